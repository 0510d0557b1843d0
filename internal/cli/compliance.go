package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/regoguard/regoguard/internal/history"
	"github.com/regoguard/regoguard/internal/report"
)

func newComplianceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compliance",
		Short: "Cross-framework compliance views",
	}

	cmd.AddCommand(newComplianceExportCmd())

	return cmd
}

func newComplianceExportCmd() *cobra.Command {
	var (
		framework   string
		cloud       string
		minSeverity string
		format      string
		outputPath  string
		withTrend   bool
		trendLimit  int
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the control-to-framework compliance matrix",
		Long: `Export derives the compliance matrix from the catalog alone: which
controls map to which external frameworks, with per-framework totals
and a coverage ranking. CSV is the flat auditor-friendly matrix; JSON
carries the full aggregation and, with --trend, historical points from
earlier exports.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := store.Load()
			if err != nil {
				return err
			}
			minSeverity, err := parseSeverity(minSeverity)
			if err != nil {
				return err
			}

			emitCSV := func(path string) error {
				data, err := report.EmitMatrixCSV(cat, report.MatrixFilter{
					Framework:   framework,
					Cloud:       cloud,
					MinSeverity: minSeverity,
				})
				if err != nil {
					return err
				}
				return writeOrPrint(path, data)
			}
			emitJSON := func(path string) error {
				export := report.Aggregate(cat)
				if withTrend && cfg.History.Enabled {
					db, err := history.Open(cfg.History.Path)
					if err != nil {
						log.WithError(err).Warn("Failed to open history database")
					} else {
						if trend, err := db.Trend(cmd.Context(), trendLimit); err == nil {
							export.Trend = trend
						}
						if err := db.RecordExport(cmd.Context(), export.GeneratedAt, cat.Len()); err != nil {
							log.WithError(err).Warn("Failed to record export history")
						}
						_ = db.Close()
					}
				}
				data, err := report.EmitExportJSON(export)
				if err != nil {
					return err
				}
				return writeOrPrint(path, data)
			}

			switch strings.ToLower(format) {
			case "csv":
				return emitCSV(outputPath)
			case "json":
				return emitJSON(outputPath)
			case "both":
				if outputPath == "" {
					return fmt.Errorf("--format both requires --output")
				}
				if err := emitCSV(outputPath); err != nil {
					return err
				}
				return emitJSON(siblingPath(outputPath, ".json"))
			default:
				return fmt.Errorf("unknown export format %q", format)
			}
		},
	}

	cmd.Flags().StringVar(&framework, "framework", "", "restrict matrix rows to controls mapped to this framework")
	cmd.Flags().StringVar(&cloud, "cloud", "", "restrict matrix rows by cloud provider")
	cmd.Flags().StringVar(&minSeverity, "severity", "", "minimum severity: LOW, MEDIUM, HIGH, CRITICAL")
	cmd.Flags().StringVar(&format, "format", "csv", "export format: csv, json, both")
	cmd.Flags().StringVar(&outputPath, "output", "", "write output to this path instead of stdout")
	cmd.Flags().BoolVar(&withTrend, "trend", false, "include historical trend points (json only)")
	cmd.Flags().IntVar(&trendLimit, "trend-limit", 30, "maximum trend points to include")

	return cmd
}
