package scan

import "time"

// Violation is one detected non-compliance instance from a single
// evaluation run. Severity is copied at evaluation time and reconciled
// against the catalog during enrichment.
type Violation struct {
	ControlID       string        `json:"control_id"`
	Severity        string        `json:"severity"`
	ResourceAddress string        `json:"resource_address"`
	ResourceType    string        `json:"resource_type,omitempty"`
	Message         string        `json:"message"`
	Remediation     string        `json:"remediation,omitempty"`
	Location        *FileLocation `json:"file_location,omitempty"`
}

// FileLocation points at the source of a violating resource.
type FileLocation struct {
	Filename   string `json:"filename"`
	LineNumber int    `json:"line_number,omitempty"`
}

// EnrichedViolation joins a Violation with its control's catalog
// metadata. Catalog fields stay empty when the control id is unknown;
// the violation is passed through, never fabricated.
type EnrichedViolation struct {
	Violation
	Domain      string              `json:"domain,omitempty"`
	Cloud       string              `json:"cloud_provider,omitempty"`
	Description string              `json:"description,omitempty"`
	Frameworks  map[string][]string `json:"frameworks,omitempty"`
	Enriched    bool                `json:"enriched"`
}

// Group statuses after orchestration
const (
	GroupStatusOK     = "evaluated"
	GroupStatusFailed = "failed"
)

// GroupResult records the outcome of evaluating one policy group.
type GroupResult struct {
	Group      string `json:"group"`
	Status     string `json:"status"`
	Violations int    `json:"violations"`
	Error      string `json:"error,omitempty"`
}

// Metadata describes one evaluation run.
type Metadata struct {
	ScanID        string    `json:"scan_id"`
	Timestamp     time.Time `json:"timestamp"`
	Environment   string    `json:"environment,omitempty"`
	SourceCommit  string    `json:"source_commit,omitempty"`
	EngineVersion string    `json:"engine_version,omitempty"`
	ToolVersion   string    `json:"tool_version,omitempty"`
	ScanMode      string    `json:"scan_mode,omitempty"`
	PlanDocument  string    `json:"plan_document,omitempty"`
}

// Summary aggregates an enriched violation set.
type Summary struct {
	Total      int            `json:"total_violations"`
	BySeverity map[string]int `json:"violations_by_severity"`
	ByDomain   map[string]int `json:"violations_by_domain"`
	ByCloud    map[string]int `json:"violations_by_cloud"`
}

// Report is the full output artifact of one evaluation run.
type Report struct {
	Metadata   Metadata            `json:"scan_metadata"`
	Summary    Summary             `json:"summary"`
	Groups     []GroupResult       `json:"policy_groups,omitempty"`
	Violations []EnrichedViolation `json:"violations"`
	Warnings   []string            `json:"warnings,omitempty"`
}

// FrameworkSummary aggregates catalog controls mapped to one framework.
type FrameworkSummary struct {
	Framework     string         `json:"framework"`
	TotalControls int            `json:"total_controls"`
	BySeverity    map[string]int `json:"controls_by_severity"`
	UniqueRefs    int            `json:"unique_references"`
}

// ControlCoverage counts how many frameworks one control satisfies.
type ControlCoverage struct {
	ControlID  string   `json:"control_id"`
	Title      string   `json:"title"`
	Severity   string   `json:"severity"`
	Frameworks []string `json:"frameworks"`
	Count      int      `json:"framework_count"`
}

// ComplianceExport is the catalog-derived cross-framework view,
// independent of any particular scan.
type ComplianceExport struct {
	GeneratedAt time.Time          `json:"generated_at"`
	Frameworks  []FrameworkSummary `json:"frameworks"`
	Coverage    []ControlCoverage  `json:"coverage"`
	Trend       []TrendPoint       `json:"trend,omitempty"`
}

// TrendPoint is one historical export joined in for trend data.
type TrendPoint struct {
	Date          string `json:"date"`
	TotalControls int    `json:"total_controls"`
	Violations    int    `json:"violations,omitempty"`
}
