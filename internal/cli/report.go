package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/regoguard/regoguard/internal/domain/scan"
	apperrors "github.com/regoguard/regoguard/internal/pkg/errors"
	"github.com/regoguard/regoguard/internal/report"
)

func newReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Work with evaluation reports",
	}

	cmd.AddCommand(newReportGenerateCmd())

	return cmd
}

func newReportGenerateCmd() *cobra.Command {
	var inputPath, outputPath, format string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Re-render a stored JSON report in another format",
		Long: `Generate reads a previously produced JSON report, or a bare JSON
array of violations, and re-renders it, typically as markdown for
human review. Rendering never re-runs the evaluation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(inputPath)
			if err != nil {
				return apperrors.New(apperrors.ErrCodeInvalidDocument,
					"failed to read report: "+err.Error())
			}

			rep, err := decodeReport(data)
			if err != nil {
				return err
			}
			return emitReport(rep, format, outputPath)
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "stored JSON report or violations array to render (required)")
	cmd.Flags().StringVar(&outputPath, "output", "", "write output to this path instead of stdout")
	cmd.Flags().StringVar(&format, "format", "markdown", "output format: json, markdown, both")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

// decodeReport accepts either a full report object or a bare array of
// enriched violations, rebuilding the summary in the latter case.
func decodeReport(data []byte) (*scan.Report, error) {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var violations []scan.EnrichedViolation
		if err := json.Unmarshal(data, &violations); err != nil {
			return nil, apperrors.New(apperrors.ErrCodeInvalidDocument,
				"not a valid violations array: "+err.Error())
		}
		return report.Build(scan.Metadata{Timestamp: time.Now().UTC()}, violations, nil, nil), nil
	}

	var rep scan.Report
	if err := json.Unmarshal(data, &rep); err != nil {
		return nil, apperrors.New(apperrors.ErrCodeInvalidDocument,
			"not a valid report document: "+err.Error())
	}
	return &rep, nil
}
