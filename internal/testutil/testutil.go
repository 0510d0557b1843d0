package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/regoguard/regoguard/internal/domain/scan"
)

// FakeEvaluator satisfies engine.Evaluator with canned per-directory
// results, so orchestration logic can be tested without a real engine.
type FakeEvaluator struct {
	mu sync.Mutex

	// ByDir maps a policy dir (its base name is matched too) to the
	// violations it should report.
	ByDir map[string][]scan.Violation
	// Errors maps a policy dir to a simulated engine failure.
	Errors map[string]error
	// Calls records evaluated dirs in call order.
	Calls []string
}

// Evaluate returns the canned result for dir.
func (f *FakeEvaluator) Evaluate(ctx context.Context, documentPath, dir string) ([]scan.Violation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.Calls = append(f.Calls, dir)
	f.mu.Unlock()

	if err := f.lookupError(dir); err != nil {
		return nil, err
	}
	if v, ok := f.ByDir[dir]; ok {
		return v, nil
	}
	if v, ok := f.ByDir[filepath.Base(dir)]; ok {
		return v, nil
	}
	return nil, nil
}

func (f *FakeEvaluator) lookupError(dir string) error {
	if err, ok := f.Errors[dir]; ok {
		return err
	}
	if err, ok := f.Errors[filepath.Base(dir)]; ok {
		return err
	}
	return nil
}

// Version identifies the fake.
func (f *FakeEvaluator) Version(ctx context.Context) (string, error) {
	return "fake-engine v0.0.0", nil
}

// WriteFile creates a file (and parents) under a test directory.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// ReadFile reads a file or fails the test.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}
