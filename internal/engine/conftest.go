package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"time"

	"github.com/regoguard/regoguard/internal/domain/scan"
	apperrors "github.com/regoguard/regoguard/internal/pkg/errors"
	"github.com/regoguard/regoguard/internal/pkg/logger"
)

// ConftestEvaluator shells out to a conftest-compatible binary. A
// non-zero exit with parseable JSON output means violations were
// found, not that the tool failed.
type ConftestEvaluator struct {
	logger      *logger.Logger
	binaryPath  string
	evalTimeout time.Duration
}

// NewConftestEvaluator creates an evaluator around the conftest binary.
func NewConftestEvaluator(log *logger.Logger, binaryPath string, timeout time.Duration) *ConftestEvaluator {
	if binaryPath == "" {
		binaryPath = "conftest"
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &ConftestEvaluator{
		logger:      log,
		binaryPath:  binaryPath,
		evalTimeout: timeout,
	}
}

// checkResult mirrors one entry of conftest's JSON output.
type checkResult struct {
	Filename  string       `json:"filename"`
	Namespace string       `json:"namespace"`
	Failures  []ruleResult `json:"failures"`
	Warnings  []ruleResult `json:"warnings"`
}

// ruleResult is a single deny/warn result with its rule metadata.
type ruleResult struct {
	Message  string                 `json:"msg"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Evaluate runs the engine for one policy group.
func (e *ConftestEvaluator) Evaluate(ctx context.Context, documentPath, policyDir string) ([]scan.Violation, error) {
	ctx, cancel := context.WithTimeout(ctx, e.evalTimeout)
	defer cancel()

	args := []string{
		"test", documentPath,
		"--policy", policyDir,
		"--output", "json",
		"--no-color",
		"--all-namespaces",
	}

	cmd := exec.CommandContext(ctx, e.binaryPath, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil {
		if _, ok := runErr.(*exec.ExitError); !ok {
			e.logger.WithFields(map[string]interface{}{
				"policy_dir": policyDir,
				"stderr":     stderr.String(),
			}).ErrorWithErr(runErr, "Evaluation engine execution failed")
			return nil, apperrors.EvaluationEngine(policyDir, runErr)
		}
	}

	var results []checkResult
	if stdout.Len() > 0 {
		if err := json.Unmarshal(stdout.Bytes(), &results); err != nil {
			if runErr != nil {
				// Crashed without structured output.
				return nil, apperrors.EvaluationEngine(policyDir, runErr).
					WithDetails(strings.TrimSpace(stderr.String()))
			}
			return nil, apperrors.EvaluationEngine(policyDir, err)
		}
	} else if runErr != nil {
		return nil, apperrors.EvaluationEngine(policyDir, runErr).
			WithDetails(strings.TrimSpace(stderr.String()))
	}

	return convert(results), nil
}

// convert flattens engine results into raw violations.
func convert(results []checkResult) []scan.Violation {
	var violations []scan.Violation
	for _, result := range results {
		for _, failure := range result.Failures {
			v := scan.Violation{Message: failure.Message}
			if result.Filename != "" {
				v.Location = &scan.FileLocation{Filename: result.Filename}
			}
			applyMetadata(&v, failure.Metadata)
			if v.ControlID == "" {
				v.ControlID = controlIDFromMessage(failure.Message)
			}
			violations = append(violations, v)
		}
	}
	return violations
}

func applyMetadata(v *scan.Violation, metadata map[string]interface{}) {
	str := func(key string) string {
		if s, ok := metadata[key].(string); ok {
			return s
		}
		return ""
	}
	v.ControlID = str("control_id")
	v.Severity = strings.ToUpper(str("severity"))
	v.ResourceAddress = str("resource_address")
	if v.ResourceAddress == "" {
		v.ResourceAddress = str("resource")
	}
	v.ResourceType = str("resource_type")
	v.Remediation = str("remediation")
}

// controlIDFromMessage recovers the control id from the conventional
// "<ID>: message" prefix used by rules without metadata.
func controlIDFromMessage(msg string) string {
	head, _, found := strings.Cut(msg, ":")
	if !found {
		return ""
	}
	head = strings.TrimSpace(head)
	if head == "" || strings.ContainsAny(head, " \t") {
		return ""
	}
	return head
}

// Version returns the engine version string.
func (e *ConftestEvaluator) Version(ctx context.Context) (string, error) {
	cmd := exec.CommandContext(ctx, e.binaryPath, "--version")
	output, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return string(bytes.TrimSpace(output)), nil
}

// CheckInstallation checks the engine binary is runnable.
func (e *ConftestEvaluator) CheckInstallation(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, e.binaryPath, "--version")
	return cmd.Run()
}
