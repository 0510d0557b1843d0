package report

import (
	"sort"

	"github.com/regoguard/regoguard/internal/catalog"
	"github.com/regoguard/regoguard/internal/domain/control"
	"github.com/regoguard/regoguard/internal/domain/scan"
)

// Enrich joins raw violations with catalog metadata. Violations whose
// control id is missing from the catalog pass through unenriched. Pure
// function of its inputs.
func Enrich(cat *catalog.Catalog, violations []scan.Violation) []scan.EnrichedViolation {
	out := make([]scan.EnrichedViolation, 0, len(violations))
	for _, v := range violations {
		ev := scan.EnrichedViolation{Violation: v}
		if ctrl, err := cat.Get(v.ControlID); err == nil {
			ev.Domain = ctrl.Domain
			ev.Cloud = ctrl.Cloud
			ev.Description = ctrl.Description
			ev.Frameworks = ctrl.Frameworks
			ev.Enriched = true
			// The catalog severity is authoritative when the engine
			// copy disagrees or is missing.
			if ev.Severity == "" || !control.ValidSeverity(ev.Severity) {
				ev.Severity = ctrl.Severity
			}
			if ev.Remediation == "" {
				ev.Remediation = ctrl.Remediation
			}
		}
		out = append(out, ev)
	}
	return out
}

// SortViolations orders enriched violations by severity descending,
// preserving encounter order within a severity.
func SortViolations(violations []scan.EnrichedViolation) {
	sort.SliceStable(violations, func(i, j int) bool {
		return control.SeverityRank(violations[i].Severity) >
			control.SeverityRank(violations[j].Severity)
	})
}

// UnknownControls lists violation control ids absent from the catalog,
// each reported once in encounter order.
func UnknownControls(cat *catalog.Catalog, violations []scan.Violation) []string {
	seen := map[string]bool{}
	var unknown []string
	for _, v := range violations {
		if v.ControlID == "" || cat.Has(v.ControlID) || seen[v.ControlID] {
			continue
		}
		seen[v.ControlID] = true
		unknown = append(unknown, v.ControlID)
	}
	return unknown
}
