package control

import "strings"

// Severity levels, totally ordered for filtering
const (
	SeverityLow      = "LOW"
	SeverityMedium   = "MEDIUM"
	SeverityHigh     = "HIGH"
	SeverityCritical = "CRITICAL"
)

// Cloud providers
const (
	CloudAWS   = "aws"
	CloudAzure = "azure"
	CloudMulti = "multi"
)

// Optional-control categories
const (
	CategoryStrict       = "strict"
	CategoryExperimental = "experimental"
	CategoryEnvironment  = "environment-specific"
)

// Framework identifiers referenced by catalog entries
const (
	FrameworkNIST80053 = "nist_800_53"
	FrameworkCISAWS    = "cis_aws"
	FrameworkCISAzure  = "cis_azure"
	FrameworkISO27001  = "iso_27001"
)

// severityRank orders severities LOW < MEDIUM < HIGH < CRITICAL.
var severityRank = map[string]int{
	SeverityLow:      0,
	SeverityMedium:   1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// SeverityRank returns the position of s in the severity order, or -1
// for unknown severities so they sort below LOW.
func SeverityRank(s string) int {
	if r, ok := severityRank[strings.ToUpper(s)]; ok {
		return r
	}
	return -1
}

// SeverityAtLeast reports whether severity s is at or above threshold.
func SeverityAtLeast(s, threshold string) bool {
	return SeverityRank(s) >= SeverityRank(threshold)
}

// ValidSeverity reports whether s is a known severity level.
func ValidSeverity(s string) bool {
	_, ok := severityRank[strings.ToUpper(s)]
	return ok
}

// Control represents one named security requirement bound to a single
// implementation block in a policy file.
type Control struct {
	ID          string              `yaml:"-" json:"control_id" validate:"required"`
	Title       string              `yaml:"title" json:"title" validate:"required"`
	Description string              `yaml:"description" json:"description"`
	Remediation string              `yaml:"remediation" json:"remediation"`
	Severity    string              `yaml:"severity" json:"severity" validate:"required,oneof=LOW MEDIUM HIGH CRITICAL"`
	Cloud       string              `yaml:"cloud_provider" json:"cloud_provider" validate:"required,oneof=aws azure multi"`
	Domain      string              `yaml:"domain" json:"domain" validate:"required"`
	Frameworks  map[string][]string `yaml:"frameworks,omitempty" json:"frameworks,omitempty"`
	PolicyFile  string              `yaml:"policy_file" json:"policy_file" validate:"required"`

	Optional      bool     `yaml:"optional,omitempty" json:"optional,omitempty"`
	Category      string   `yaml:"category,omitempty" json:"category,omitempty" validate:"omitempty,oneof=strict experimental environment-specific"`
	Prerequisites []string `yaml:"prerequisites,omitempty" json:"prerequisites,omitempty"`
	Impact        string   `yaml:"impact,omitempty" json:"impact,omitempty"`

	// Extra preserves unknown catalog fields across rewrites.
	Extra map[string]interface{} `yaml:",inline" json:"-"`
}

// MappedFrameworks returns the framework names this control satisfies,
// counting only frameworks with at least one reference.
func (c *Control) MappedFrameworks() []string {
	var names []string
	for name, refs := range c.Frameworks {
		if len(refs) > 0 {
			names = append(names, name)
		}
	}
	return names
}

// Toggle states of a control implementation block
const (
	StatusEnabled  = "ENABLED"
	StatusDisabled = "DISABLED"
)

// Filter narrows catalog listings. Zero values match everything; the
// fields compose independently.
type Filter struct {
	Cloud       string
	Domain      string
	MinSeverity string
	Framework   string
}

// Matches reports whether c passes every set field of f.
func (f Filter) Matches(c *Control) bool {
	if f.Cloud != "" && c.Cloud != f.Cloud {
		return false
	}
	if f.Domain != "" && c.Domain != f.Domain {
		return false
	}
	if f.MinSeverity != "" && !SeverityAtLeast(c.Severity, f.MinSeverity) {
		return false
	}
	if f.Framework != "" {
		refs, ok := c.Frameworks[f.Framework]
		if !ok || len(refs) == 0 {
			return false
		}
	}
	return true
}
