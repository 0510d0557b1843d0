package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/regoguard/regoguard/internal/domain/control"
	apperrors "github.com/regoguard/regoguard/internal/pkg/errors"
)

// Table renders data as a formatted table.
type Table struct {
	headers []string
	rows    [][]string
	writer  io.Writer
}

// NewTable creates a new table with the given headers.
func NewTable(headers ...string) *Table {
	return &Table{
		headers: headers,
		writer:  os.Stdout,
	}
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cols ...string) {
	t.rows = append(t.rows, cols)
}

// Render writes the table to stdout.
func (t *Table) Render() {
	w := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)

	// Header
	fmt.Fprintln(w, strings.Join(t.headers, "\t"))

	// Separator
	sep := make([]string, len(t.headers))
	for i, h := range t.headers {
		sep[i] = strings.Repeat("-", len(h))
	}
	fmt.Fprintln(w, strings.Join(sep, "\t"))

	// Rows
	for _, row := range t.rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}

	w.Flush()
}

// printOutput prints data in the requested format.
func printOutput(data interface{}) error {
	switch getOutputFormat() {
	case "yaml":
		return printYAML(data)
	default:
		return printJSON(data)
	}
}

func printJSON(data interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}

func printYAML(data interface{}) error {
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(data)
}

// parseSeverity normalizes a severity flag value. Empty means no
// filtering; anything outside the known levels is an input error
// rather than a silent no-op filter.
func parseSeverity(s string) (string, error) {
	if s == "" {
		return "", nil
	}
	up := strings.ToUpper(s)
	if !control.ValidSeverity(up) {
		return "", apperrors.ValidationError(
			fmt.Sprintf("unknown severity %q, expected LOW, MEDIUM, HIGH or CRITICAL", s), nil)
	}
	return up, nil
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// formatSeverity returns a severity string with visual indicator.
func formatSeverity(severity string) string {
	switch strings.ToUpper(severity) {
	case "CRITICAL":
		return "[!] CRITICAL"
	case "HIGH":
		return "[H] HIGH"
	case "MEDIUM":
		return "[M] MEDIUM"
	case "LOW":
		return "[L] LOW"
	default:
		return severity
	}
}

// formatToggleStatus returns a toggle state with visual indicator.
func formatToggleStatus(status string) string {
	switch strings.ToUpper(status) {
	case "ENABLED":
		return "[+] ENABLED"
	case "DISABLED":
		return "[-] DISABLED"
	default:
		return status
	}
}
