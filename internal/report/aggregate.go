package report

import (
	"sort"
	"strings"
	"time"

	"github.com/regoguard/regoguard/internal/catalog"
	"github.com/regoguard/regoguard/internal/domain/scan"
)

// Summarize computes the group-by counts over an enriched set.
// Severity keys are lowercased on the report surface
// (summary.violations_by_severity.high), matching domain and cloud.
func Summarize(violations []scan.EnrichedViolation) scan.Summary {
	s := scan.Summary{
		Total:      len(violations),
		BySeverity: map[string]int{},
		ByDomain:   map[string]int{},
		ByCloud:    map[string]int{},
	}
	for _, v := range violations {
		if v.Severity != "" {
			s.BySeverity[strings.ToLower(v.Severity)]++
		}
		if v.Domain != "" {
			s.ByDomain[v.Domain]++
		}
		if v.Cloud != "" {
			s.ByCloud[v.Cloud]++
		}
	}
	return s
}

// Build assembles the final report: violations sorted by severity
// descending (encounter order within a severity), summary counts, and
// per-group statuses. The input slices are not mutated.
func Build(meta scan.Metadata, violations []scan.EnrichedViolation, groups []scan.GroupResult, warnings []string) *scan.Report {
	ordered := make([]scan.EnrichedViolation, len(violations))
	copy(ordered, violations)
	SortViolations(ordered)

	return &scan.Report{
		Metadata:   meta,
		Summary:    Summarize(ordered),
		Groups:     groups,
		Violations: ordered,
		Warnings:   warnings,
	}
}

// Aggregate derives the cross-framework compliance view from the
// catalog alone; it is independent of any scan. Pure function of the
// catalog snapshot.
func Aggregate(cat *catalog.Catalog) *scan.ComplianceExport {
	type fwAgg struct {
		total      int
		bySeverity map[string]int
		refs       map[string]bool
	}
	frameworks := map[string]*fwAgg{}

	var coverage []scan.ControlCoverage
	for _, ctrl := range cat.Controls() {
		mapped := ctrl.MappedFrameworks()
		sort.Strings(mapped)
		coverage = append(coverage, scan.ControlCoverage{
			ControlID:  ctrl.ID,
			Title:      ctrl.Title,
			Severity:   ctrl.Severity,
			Frameworks: mapped,
			Count:      len(mapped),
		})

		for name, refs := range ctrl.Frameworks {
			if len(refs) == 0 {
				continue
			}
			agg, ok := frameworks[name]
			if !ok {
				agg = &fwAgg{bySeverity: map[string]int{}, refs: map[string]bool{}}
				frameworks[name] = agg
			}
			agg.total++
			agg.bySeverity[ctrl.Severity]++
			for _, ref := range refs {
				agg.refs[ref] = true
			}
		}
	}

	// High-leverage controls first: descending framework count, ties
	// broken by control id ascending.
	sort.SliceStable(coverage, func(i, j int) bool {
		if coverage[i].Count != coverage[j].Count {
			return coverage[i].Count > coverage[j].Count
		}
		return coverage[i].ControlID < coverage[j].ControlID
	})

	names := make([]string, 0, len(frameworks))
	for name := range frameworks {
		names = append(names, name)
	}
	sort.Strings(names)

	export := &scan.ComplianceExport{
		GeneratedAt: time.Now().UTC(),
		Coverage:    coverage,
	}
	for _, name := range names {
		agg := frameworks[name]
		export.Frameworks = append(export.Frameworks, scan.FrameworkSummary{
			Framework:     name,
			TotalControls: agg.total,
			BySeverity:    agg.bySeverity,
			UniqueRefs:    len(agg.refs),
		})
	}
	return export
}
