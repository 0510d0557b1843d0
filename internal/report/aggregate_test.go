package report

import (
	"testing"
	"time"

	"github.com/regoguard/regoguard/internal/domain/scan"
)

func TestSummarize(t *testing.T) {
	violations := []scan.EnrichedViolation{
		{Violation: scan.Violation{Severity: "CRITICAL"}, Domain: "identity", Cloud: "aws"},
		{Violation: scan.Violation{Severity: "CRITICAL"}, Domain: "identity", Cloud: "aws"},
		{Violation: scan.Violation{Severity: "HIGH"}, Domain: "networking", Cloud: "multi"},
		{Violation: scan.Violation{Severity: "LOW"}},
	}

	s := Summarize(violations)
	if s.Total != 4 {
		t.Errorf("total = %d, want 4", s.Total)
	}
	// Severity keys render lowercase: summary.violations_by_severity.high.
	if s.BySeverity["critical"] != 2 || s.BySeverity["high"] != 1 || s.BySeverity["low"] != 1 {
		t.Errorf("by severity = %v", s.BySeverity)
	}
	if s.BySeverity["CRITICAL"] != 0 {
		t.Errorf("severity keys must be lowercased, got %v", s.BySeverity)
	}
	if s.ByDomain["identity"] != 2 || s.ByDomain["networking"] != 1 {
		t.Errorf("by domain = %v", s.ByDomain)
	}
	// Unenriched violations have no domain or cloud to count.
	if s.ByDomain[""] != 0 || s.ByCloud[""] != 0 {
		t.Error("empty group-by keys must not be counted")
	}
}

func TestBuildDoesNotMutateInput(t *testing.T) {
	violations := []scan.EnrichedViolation{
		{Violation: scan.Violation{ControlID: "A", Severity: "LOW"}},
		{Violation: scan.Violation{ControlID: "B", Severity: "CRITICAL"}},
	}

	rep := Build(scan.Metadata{ScanID: "s1", Timestamp: time.Now()}, violations, nil, nil)

	if violations[0].ControlID != "A" {
		t.Error("Build must not reorder the caller's slice")
	}
	if rep.Violations[0].ControlID != "B" {
		t.Error("report violations must be ordered severity descending")
	}
	if rep.Summary.Total != 2 {
		t.Errorf("summary total = %d, want 2", rep.Summary.Total)
	}
}

func TestAggregate(t *testing.T) {
	cat := loadTestCatalog(t)

	export := Aggregate(cat)
	if export.GeneratedAt.IsZero() {
		t.Error("export must carry a generation timestamp")
	}

	// Frameworks sorted by name: cis_aws, nist_800_53.
	if len(export.Frameworks) != 2 {
		t.Fatalf("expected 2 frameworks, got %d", len(export.Frameworks))
	}
	cis := export.Frameworks[0]
	if cis.Framework != "cis_aws" || cis.TotalControls != 2 || cis.UniqueRefs != 2 {
		t.Errorf("cis_aws summary = %+v", cis)
	}
	if cis.BySeverity["CRITICAL"] != 1 || cis.BySeverity["HIGH"] != 1 {
		t.Errorf("cis_aws severity split = %v", cis.BySeverity)
	}
	nist := export.Frameworks[1]
	if nist.Framework != "nist_800_53" || nist.TotalControls != 1 {
		t.Errorf("nist summary = %+v", nist)
	}

	// Coverage ranked by framework count descending, id ascending.
	if len(export.Coverage) != 3 {
		t.Fatalf("expected 3 coverage rows, got %d", len(export.Coverage))
	}
	if export.Coverage[0].ControlID != "IAM-001" || export.Coverage[0].Count != 2 {
		t.Errorf("top coverage row = %+v", export.Coverage[0])
	}
	if export.Coverage[1].ControlID != "NET-001" {
		t.Errorf("second coverage row = %+v", export.Coverage[1])
	}
	// LOG-001 maps to nothing and ranks last.
	if export.Coverage[2].ControlID != "LOG-001" || export.Coverage[2].Count != 0 {
		t.Errorf("last coverage row = %+v", export.Coverage[2])
	}
}
