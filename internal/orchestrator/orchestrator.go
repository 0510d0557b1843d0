package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/regoguard/regoguard/internal/domain/control"
	"github.com/regoguard/regoguard/internal/domain/scan"
	"github.com/regoguard/regoguard/internal/engine"
	apperrors "github.com/regoguard/regoguard/internal/pkg/errors"
	"github.com/regoguard/regoguard/internal/pkg/logger"
)

// Orchestrator runs the evaluation engine across independently
// discovered policy groups and merges the results deterministically.
type Orchestrator struct {
	evaluator    engine.Evaluator
	logger       *logger.Logger
	workers      int
	groupTimeout time.Duration
}

// New creates an orchestrator. workers bounds parallel group
// evaluation; groupTimeout aborts any single group exceeding it.
func New(evaluator engine.Evaluator, workers int, groupTimeout time.Duration, log *logger.Logger) *Orchestrator {
	if workers <= 0 {
		workers = 4
	}
	return &Orchestrator{
		evaluator:    evaluator,
		logger:       log,
		workers:      workers,
		groupTimeout: groupTimeout,
	}
}

// Result is the merged outcome of one orchestration run.
type Result struct {
	Violations []scan.Violation
	Groups     []scan.GroupResult
	Warnings   []string
}

// FailedGroups counts groups that did not evaluate cleanly.
func (r *Result) FailedGroups() int {
	n := 0
	for _, g := range r.Groups {
		if g.Status == scan.GroupStatusFailed {
			n++
		}
	}
	return n
}

// Run evaluates the document against every group. Group failures are
// isolated: one crashed engine invocation marks that group failed and
// the rest proceed. The merged violation list is ordered by (group
// discovery order, original index) regardless of completion order,
// then filtered by minSeverity.
func (o *Orchestrator) Run(ctx context.Context, documentPath string, groups []string, minSeverity string) (*Result, error) {
	if err := validateDocument(documentPath); err != nil {
		return nil, err
	}

	perGroup := make([][]scan.Violation, len(groups))
	groupErrs := make([]error, len(groups))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.workers)
	for i, dir := range groups {
		i, dir := i, dir
		g.Go(func() error {
			evalCtx := gctx
			if o.groupTimeout > 0 {
				var cancel context.CancelFunc
				evalCtx, cancel = context.WithTimeout(gctx, o.groupTimeout)
				defer cancel()
			}
			violations, err := o.evaluator.Evaluate(evalCtx, documentPath, dir)
			if err != nil {
				groupErrs[i] = err
				o.logger.WithFields(map[string]interface{}{
					"group": dir,
				}).ErrorWithErr(err, "Policy group evaluation failed")
				return nil // isolate the failure
			}
			perGroup[i] = violations
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperrors.Internal("evaluation aborted", err)
	}

	result := &Result{}
	for i, dir := range groups {
		gr := scan.GroupResult{Group: dir, Status: scan.GroupStatusOK}
		if groupErrs[i] != nil {
			gr.Status = scan.GroupStatusFailed
			gr.Error = groupErrs[i].Error()
		} else {
			gr.Violations = len(perGroup[i])
			result.Violations = append(result.Violations, perGroup[i]...)
		}
		result.Groups = append(result.Groups, gr)
	}

	result.Warnings = duplicateWarnings(result.Violations)
	if minSeverity != "" {
		result.Violations = FilterSeverity(result.Violations, minSeverity)
	}

	o.logger.WithFields(map[string]interface{}{
		"groups":     len(groups),
		"failed":     result.FailedGroups(),
		"violations": len(result.Violations),
	}).Info("Evaluation run complete")
	return result, nil
}

// FilterSeverity keeps violations at or above the threshold.
func FilterSeverity(violations []scan.Violation, minSeverity string) []scan.Violation {
	var out []scan.Violation
	for _, v := range violations {
		if control.SeverityAtLeast(v.Severity, minSeverity) {
			out = append(out, v)
		}
	}
	return out
}

// duplicateWarnings surfaces repeated (control_id, resource_address)
// pairs across groups. Control ids are unique per the catalog
// invariant, so a duplicate indicates a cataloging bug and is reported
// rather than silently merged.
func duplicateWarnings(violations []scan.Violation) []string {
	seen := map[[2]string]int{}
	var warnings []string
	for _, v := range violations {
		key := [2]string{v.ControlID, v.ResourceAddress}
		seen[key]++
		if seen[key] == 2 {
			warnings = append(warnings, fmt.Sprintf(
				"duplicate violation for control %s on resource %s across policy groups",
				v.ControlID, v.ResourceAddress))
		}
	}
	return warnings
}

// validateDocument checks the infrastructure-change document exists
// and is structurally valid JSON before any engine invocation.
func validateDocument(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return apperrors.InvalidDocument(path, err)
	}
	if !json.Valid(data) {
		return apperrors.InvalidDocument(path, fmt.Errorf("not valid JSON"))
	}
	return nil
}
