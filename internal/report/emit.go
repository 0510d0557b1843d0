package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/regoguard/regoguard/internal/catalog"
	"github.com/regoguard/regoguard/internal/domain/control"
	"github.com/regoguard/regoguard/internal/domain/scan"
	apperrors "github.com/regoguard/regoguard/internal/pkg/errors"
)

// severityOrder renders CRITICAL first.
var severityOrder = []string{
	control.SeverityCritical,
	control.SeverityHigh,
	control.SeverityMedium,
	control.SeverityLow,
}

// EmitJSON renders the full-fidelity structured report.
func EmitJSON(r *scan.Report) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, apperrors.Internal("failed to encode report", err)
	}
	return append(data, '\n'), nil
}

// EmitMarkdown renders the human-readable report.
func EmitMarkdown(r *scan.Report) []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "# Infrastructure Compliance Report\n\n")
	fmt.Fprintf(&b, "**Scan %s** | %s | %d violation(s) across %d policy group(s)\n\n",
		r.Metadata.ScanID, r.Metadata.Timestamp.Format("2006-01-02 15:04:05 MST"),
		r.Summary.Total, len(r.Groups))

	b.WriteString("## Summary\n\n")
	b.WriteString("| Severity | Count |\n|----------|-------|\n")
	for _, sev := range severityOrder {
		fmt.Fprintf(&b, "| %s | %d |\n", sev, r.Summary.BySeverity[strings.ToLower(sev)])
	}
	b.WriteString("\n")

	if failed := failedGroups(r.Groups); len(failed) > 0 {
		b.WriteString("## Failed Policy Groups\n\n")
		for _, g := range failed {
			fmt.Fprintf(&b, "- `%s`: %s\n", g.Group, g.Error)
		}
		b.WriteString("\n")
	}

	if len(r.Violations) > 0 {
		b.WriteString("## Violations\n\n")
		for _, sev := range severityOrder {
			var matched []scan.EnrichedViolation
			for _, v := range r.Violations {
				if v.Severity == sev {
					matched = append(matched, v)
				}
			}
			if len(matched) == 0 {
				continue
			}
			fmt.Fprintf(&b, "### %s\n\n", sev)
			for _, v := range matched {
				fmt.Fprintf(&b, "- **%s** `%s`", v.ControlID, v.ResourceAddress)
				if v.Message != "" {
					fmt.Fprintf(&b, " — %s", v.Message)
				}
				b.WriteString("\n")
				if v.Remediation != "" {
					fmt.Fprintf(&b, "  - Remediation: %s\n", v.Remediation)
				}
			}
			b.WriteString("\n")
		}
	}

	if section := frameworkSection(r.Violations); section != "" {
		b.WriteString(section)
	}

	if len(r.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
		b.WriteString("\n")
	}

	return b.Bytes()
}

func failedGroups(groups []scan.GroupResult) []scan.GroupResult {
	var out []scan.GroupResult
	for _, g := range groups {
		if g.Status == scan.GroupStatusFailed {
			out = append(out, g)
		}
	}
	return out
}

// frameworkSection summarizes which frameworks the violated controls
// map to, so auditors see affected standards at a glance.
func frameworkSection(violations []scan.EnrichedViolation) string {
	byFramework := map[string]map[string]bool{}
	for _, v := range violations {
		for name, refs := range v.Frameworks {
			if len(refs) == 0 {
				continue
			}
			if byFramework[name] == nil {
				byFramework[name] = map[string]bool{}
			}
			byFramework[name][v.ControlID] = true
		}
	}
	if len(byFramework) == 0 {
		return ""
	}

	names := make([]string, 0, len(byFramework))
	for name := range byFramework {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString("## Framework Compliance\n\n")
	b.WriteString("| Framework | Violated Controls |\n|-----------|-------------------|\n")
	for _, name := range names {
		ids := make([]string, 0, len(byFramework[name]))
		for id := range byFramework[name] {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		fmt.Fprintf(&b, "| %s | %s |\n", name, strings.Join(ids, ", "))
	}
	b.WriteString("\n")
	return b.String()
}

// MatrixFilter narrows the compliance matrix rows.
type MatrixFilter struct {
	Framework   string
	Cloud       string
	MinSeverity string
}

// EmitMatrixCSV renders the compliance matrix: one row per control,
// framework references flattened to a delimited sub-list. Driven
// purely by the catalog, independent of any scan.
func EmitMatrixCSV(cat *catalog.Catalog, filter MatrixFilter) ([]byte, error) {
	var b bytes.Buffer
	w := csv.NewWriter(&b)

	header := []string{"control_id", "title", "severity", "cloud_provider", "domain", "optional", "frameworks"}
	if err := w.Write(header); err != nil {
		return nil, apperrors.Internal("failed to encode matrix", err)
	}

	for _, ctrl := range cat.Filter(control.Filter{
		Cloud:       filter.Cloud,
		MinSeverity: filter.MinSeverity,
		Framework:   filter.Framework,
	}) {
		row := []string{
			ctrl.ID,
			ctrl.Title,
			ctrl.Severity,
			ctrl.Cloud,
			ctrl.Domain,
			fmt.Sprintf("%t", ctrl.Optional),
			flattenFrameworks(ctrl.Frameworks),
		}
		if err := w.Write(row); err != nil {
			return nil, apperrors.Internal("failed to encode matrix", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, apperrors.Internal("failed to encode matrix", err)
	}
	return b.Bytes(), nil
}

// flattenFrameworks renders framework refs as
// "cis_aws:2.1,2.2|nist_800_53:AC-4" with stable ordering.
func flattenFrameworks(frameworks map[string][]string) string {
	names := make([]string, 0, len(frameworks))
	for name, refs := range frameworks {
		if len(refs) > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	var parts []string
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s:%s", name, strings.Join(frameworks[name], ",")))
	}
	return strings.Join(parts, "|")
}

// EmitExportJSON renders the cross-framework export.
func EmitExportJSON(export *scan.ComplianceExport) ([]byte, error) {
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return nil, apperrors.Internal("failed to encode compliance export", err)
	}
	return append(data, '\n'), nil
}
