package report

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/regoguard/regoguard/internal/catalog"
	"github.com/regoguard/regoguard/internal/domain/scan"
	"github.com/regoguard/regoguard/internal/pkg/logger"
	"github.com/regoguard/regoguard/internal/testutil"
)

const reportCatalog = `metadata:
  version: "1.0"
controls:
  IAM-001:
    title: Root account MFA
    description: The root account must require MFA.
    remediation: Enable a hardware MFA device for the root user.
    severity: CRITICAL
    cloud_provider: aws
    domain: identity
    frameworks:
      cis_aws: ["1.5"]
      nist_800_53: ["IA-2"]
    policy_file: policies/aws/identity.rego
  NET-001:
    title: No wide-open ingress
    remediation: Restrict the ingress CIDR.
    severity: HIGH
    cloud_provider: multi
    domain: networking
    frameworks:
      cis_aws: ["5.2"]
    policy_file: policies/multi/networking.rego
  LOG-001:
    title: Audit logging enabled
    severity: MEDIUM
    cloud_provider: azure
    domain: logging
    policy_file: policies/azure/logging.rego
`

func loadTestCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	testutil.WriteFile(t, path, reportCatalog)
	cat, err := catalog.NewStore(path, logger.Nop()).Load()
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	return cat
}

func TestEnrich(t *testing.T) {
	cat := loadTestCatalog(t)

	tests := []struct {
		name            string
		violation       scan.Violation
		wantEnriched    bool
		wantSeverity    string
		wantDomain      string
		wantRemediation string
	}{
		{
			name: "known control gains catalog metadata",
			violation: scan.Violation{
				ControlID: "IAM-001", Severity: "CRITICAL",
				ResourceAddress: "aws_iam_user.root",
			},
			wantEnriched:    true,
			wantSeverity:    "CRITICAL",
			wantDomain:      "identity",
			wantRemediation: "Enable a hardware MFA device for the root user.",
		},
		{
			name: "catalog severity wins when engine copy is missing",
			violation: scan.Violation{
				ControlID: "NET-001", ResourceAddress: "aws_security_group.open",
			},
			wantEnriched:    true,
			wantSeverity:    "HIGH",
			wantDomain:      "networking",
			wantRemediation: "Restrict the ingress CIDR.",
		},
		{
			name: "catalog severity wins when engine copy is invalid",
			violation: scan.Violation{
				ControlID: "LOG-001", Severity: "SEVERE",
				ResourceAddress: "azurerm_monitor.main",
			},
			wantEnriched: true,
			wantSeverity: "MEDIUM",
			wantDomain:   "logging",
		},
		{
			name: "engine remediation takes precedence",
			violation: scan.Violation{
				ControlID: "NET-001", Severity: "HIGH",
				ResourceAddress: "aws_security_group.open",
				Remediation:     "Use the shared bastion security group.",
			},
			wantEnriched:    true,
			wantSeverity:    "HIGH",
			wantDomain:      "networking",
			wantRemediation: "Use the shared bastion security group.",
		},
		{
			name: "unknown control passes through unenriched",
			violation: scan.Violation{
				ControlID: "GHOST-001", Severity: "LOW",
				ResourceAddress: "aws_s3_bucket.temp",
			},
			wantEnriched: false,
			wantSeverity: "LOW",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Enrich(cat, []scan.Violation{tt.violation})
			if len(out) != 1 {
				t.Fatalf("expected 1 enriched violation, got %d", len(out))
			}
			ev := out[0]
			if ev.Enriched != tt.wantEnriched {
				t.Errorf("enriched = %v, want %v", ev.Enriched, tt.wantEnriched)
			}
			if ev.Severity != tt.wantSeverity {
				t.Errorf("severity = %s, want %s", ev.Severity, tt.wantSeverity)
			}
			if ev.Domain != tt.wantDomain {
				t.Errorf("domain = %s, want %s", ev.Domain, tt.wantDomain)
			}
			if ev.Remediation != tt.wantRemediation {
				t.Errorf("remediation = %q, want %q", ev.Remediation, tt.wantRemediation)
			}
		})
	}
}

func TestEnrichKeepsCount(t *testing.T) {
	cat := loadTestCatalog(t)
	violations := []scan.Violation{
		{ControlID: "IAM-001", ResourceAddress: "a"},
		{ControlID: "GHOST-001", ResourceAddress: "b"},
		{ControlID: "NET-001", ResourceAddress: "c"},
	}
	// Enrichment never drops or fabricates entries.
	if out := Enrich(cat, violations); len(out) != len(violations) {
		t.Errorf("enriched count = %d, want %d", len(out), len(violations))
	}
}

func TestSortViolations(t *testing.T) {
	violations := []scan.EnrichedViolation{
		{Violation: scan.Violation{ControlID: "A", Severity: "LOW"}},
		{Violation: scan.Violation{ControlID: "B", Severity: "CRITICAL"}},
		{Violation: scan.Violation{ControlID: "C", Severity: "MEDIUM"}},
		{Violation: scan.Violation{ControlID: "D", Severity: "CRITICAL"}},
		{Violation: scan.Violation{ControlID: "E", Severity: "HIGH"}},
	}
	SortViolations(violations)

	var got []string
	for _, v := range violations {
		got = append(got, v.ControlID)
	}
	// Stable: B before D within CRITICAL.
	want := []string{"B", "D", "E", "C", "A"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("sorted order %v, want %v", got, want)
	}
}

func TestUnknownControls(t *testing.T) {
	cat := loadTestCatalog(t)
	violations := []scan.Violation{
		{ControlID: "IAM-001"},
		{ControlID: "GHOST-001"},
		{ControlID: "GHOST-001"},
		{ControlID: "PHANTOM-009"},
		{ControlID: ""},
	}
	got := UnknownControls(cat, violations)
	want := []string{"GHOST-001", "PHANTOM-009"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("unknown = %v, want %v", got, want)
	}
}
