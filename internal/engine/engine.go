package engine

import (
	"context"

	"github.com/regoguard/regoguard/internal/domain/scan"
)

// Evaluator runs the external policy evaluation engine against one
// infrastructure-change document and one directory of rule files. The
// orchestrator depends only on this interface so its merge and filter
// logic is testable with a fake.
type Evaluator interface {
	Evaluate(ctx context.Context, documentPath, policyDir string) ([]scan.Violation, error)
	Version(ctx context.Context) (string, error)
}
