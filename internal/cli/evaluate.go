package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/regoguard/regoguard/internal/domain/scan"
	"github.com/regoguard/regoguard/internal/engine"
	"github.com/regoguard/regoguard/internal/history"
	"github.com/regoguard/regoguard/internal/orchestrator"
	apperrors "github.com/regoguard/regoguard/internal/pkg/errors"
	"github.com/regoguard/regoguard/internal/report"
	"github.com/regoguard/regoguard/internal/worker"
)

func newEvaluateCmd() *cobra.Command {
	var (
		minSeverity     string
		policyDirs      []string
		includeOptional bool
		groupTimeout    time.Duration
		workers         int
		environment     string
		sourceCommit    string
		outputPath      string
		format          string
		schedule        string
		noHistory       bool
	)

	cmd := &cobra.Command{
		Use:   "evaluate <document>",
		Short: "Evaluate an infrastructure change document against enabled controls",
		Long: `Evaluate runs the policy engine over every discovered policy group,
merges the results deterministically, enriches violations with catalog
metadata, and emits a compliance report. Exit code 2 means the run
completed and found violations; exit code 1 means the run itself
failed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			documentPath := args[0]

			if workers <= 0 {
				workers = cfg.Engine.Workers
			}
			if groupTimeout <= 0 {
				groupTimeout = cfg.Engine.GroupTimeout
			}
			minSeverity, err := parseSeverity(minSeverity)
			if err != nil {
				return err
			}

			evaluator := engine.NewConftestEvaluator(log, cfg.Engine.Binary, groupTimeout)
			orch := orchestrator.New(evaluator, workers, groupTimeout, log)

			runOnce := func(ctx context.Context) error {
				groups := policyDirs
				if len(groups) == 0 {
					var err error
					groups, err = orchestrator.DiscoverGroups(cfg.Policy.Root, includeOptional)
					if err != nil {
						return err
					}
				}
				if len(groups) == 0 {
					return apperrors.New(apperrors.ErrCodeInternal,
						"no policy groups found under "+cfg.Policy.Root)
				}

				cat, err := store.Load()
				if err != nil {
					return err
				}

				result, err := orch.Run(ctx, documentPath, groups, minSeverity)
				if err != nil {
					return err
				}

				enriched := report.Enrich(cat, result.Violations)
				warnings := result.Warnings
				for _, id := range report.UnknownControls(cat, result.Violations) {
					warnings = append(warnings, fmt.Sprintf(
						"violation references unknown control %s", id))
				}

				meta := scan.Metadata{
					ScanID:       uuid.New().String(),
					Timestamp:    time.Now().UTC(),
					Environment:  environment,
					SourceCommit: sourceCommit,
					ToolVersion:  Version,
					ScanMode:     "full",
					PlanDocument: documentPath,
				}
				if v, err := evaluator.Version(ctx); err == nil {
					meta.EngineVersion = v
				}
				if len(policyDirs) > 0 {
					meta.ScanMode = "targeted"
				}

				rep := report.Build(meta, enriched, result.Groups, warnings)

				if cfg.History.Enabled && !noHistory {
					if db, err := history.Open(cfg.History.Path); err == nil {
						if err := db.RecordScan(ctx, rep); err != nil {
							log.WithError(err).Warn("Failed to record scan history")
						}
						_ = db.Close()
					} else {
						log.WithError(err).Warn("Failed to open history database")
					}
				}

				if err := emitReport(rep, format, outputPath); err != nil {
					return err
				}

				if rep.Summary.Total > 0 {
					exitCode = apperrors.ExitViolations
				}
				return nil
			}

			if schedule != "" {
				ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
				defer stop()
				sched := worker.NewScheduler(schedule, runOnce, log)
				if err := sched.Start(ctx); err != nil && err != context.Canceled {
					return err
				}
				return nil
			}

			return runOnce(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&minSeverity, "severity", "", "minimum severity to report: LOW, MEDIUM, HIGH, CRITICAL")
	cmd.Flags().StringArrayVar(&policyDirs, "policy-dir", nil, "evaluate only these policy group directories (repeatable)")
	cmd.Flags().BoolVar(&includeOptional, "include-optional", false, "include opt-in policy groups under optional/")
	cmd.Flags().DurationVar(&groupTimeout, "timeout", 0, "per-group evaluation timeout (default from config)")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel group evaluations (default from config)")
	cmd.Flags().StringVar(&environment, "environment", "", "environment label recorded in the report")
	cmd.Flags().StringVar(&sourceCommit, "source-commit", "", "source commit recorded in the report")
	cmd.Flags().StringVar(&outputPath, "report", "", "write the report to this path instead of stdout")
	cmd.Flags().StringVar(&format, "format", "json", "report format: json, markdown, both")
	cmd.Flags().StringVar(&schedule, "schedule", "", "re-run on a cron schedule until interrupted")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "skip recording the run in the history database")

	return cmd
}

// emitReport renders the report in the requested format(s), to stdout
// or to outputPath. With format "both" an output path is required and
// the markdown lands next to it with a .md extension.
func emitReport(rep *scan.Report, format, outputPath string) error {
	switch strings.ToLower(format) {
	case "json":
		data, err := report.EmitJSON(rep)
		if err != nil {
			return err
		}
		return writeOrPrint(outputPath, data)
	case "markdown", "md":
		return writeOrPrint(outputPath, report.EmitMarkdown(rep))
	case "both":
		if outputPath == "" {
			return fmt.Errorf("--format both requires --report")
		}
		data, err := report.EmitJSON(rep)
		if err != nil {
			return err
		}
		if err := report.WriteFile(outputPath, data); err != nil {
			return err
		}
		return report.WriteFile(siblingPath(outputPath, ".md"), report.EmitMarkdown(rep))
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}

func writeOrPrint(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return report.WriteFile(path, data)
}

// siblingPath swaps the extension of path for ext.
func siblingPath(path, ext string) string {
	if i := strings.LastIndex(path, "."); i > strings.LastIndex(path, "/") {
		return path[:i] + ext
	}
	return path + ext
}
