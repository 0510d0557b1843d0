package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/regoguard/regoguard/internal/domain/control"
)

func newListControlsCmd() *cobra.Command {
	var cloud, domain, severity, framework, status string

	cmd := &cobra.Command{
		Use:   "list-controls",
		Short: "List catalog controls",
		RunE: func(cmd *cobra.Command, args []string) error {
			minSeverity, err := parseSeverity(severity)
			if err != nil {
				return err
			}
			cat, err := store.Load()
			if err != nil {
				return err
			}

			controls := cat.Filter(control.Filter{
				Cloud:       cloud,
				Domain:      domain,
				MinSeverity: minSeverity,
				Framework:   framework,
			})

			// The enabled/disabled filter needs the policy files, not
			// just the catalog; resolve per candidate.
			type row struct {
				*control.Control
				Status string `json:"status"`
			}
			var rows []row
			for _, ctrl := range controls {
				st, err := toggler.Status(ctrl.ID)
				if err != nil {
					st = "unknown"
				}
				if status != "" && !strings.EqualFold(status, st) {
					continue
				}
				rows = append(rows, row{Control: ctrl, Status: st})
			}

			if getOutputFormat() != "table" {
				return printOutput(rows)
			}

			t := NewTable("ID", "TITLE", "SEVERITY", "CLOUD", "DOMAIN", "STATUS")
			for _, r := range rows {
				t.AddRow(
					r.ID,
					truncate(r.Title, 48),
					formatSeverity(r.Severity),
					r.Cloud,
					r.Domain,
					formatToggleStatus(r.Status),
				)
			}
			t.Render()
			return nil
		},
	}

	cmd.Flags().StringVar(&cloud, "cloud", "", "filter by cloud provider: aws, azure, multi")
	cmd.Flags().StringVar(&domain, "domain", "", "filter by control domain")
	cmd.Flags().StringVar(&severity, "severity", "", "minimum severity: LOW, MEDIUM, HIGH, CRITICAL")
	cmd.Flags().StringVar(&framework, "framework", "", "filter by framework membership")
	cmd.Flags().StringVar(&status, "status", "", "filter by toggle state: enabled, disabled")

	return cmd
}
