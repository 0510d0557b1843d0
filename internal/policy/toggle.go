package policy

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/regoguard/regoguard/internal/catalog"
	"github.com/regoguard/regoguard/internal/domain/control"
	apperrors "github.com/regoguard/regoguard/internal/pkg/errors"
	"github.com/regoguard/regoguard/internal/pkg/logger"
)

// Toggler flips a control's enabled state by rewriting its block in
// place. Not safe for concurrent use on the same policy file; callers
// serialize invocations.
type Toggler struct {
	store      *catalog.Store
	policyRoot string
	logger     *logger.Logger
}

// NewToggler creates a toggle engine over the catalog store. Relative
// policy_file paths resolve against policyRoot.
func NewToggler(store *catalog.Store, policyRoot string, log *logger.Logger) *Toggler {
	return &Toggler{
		store:      store,
		policyRoot: policyRoot,
		logger:     log,
	}
}

// Result reports the outcome of an enable/disable call. Changed is
// false for the already-in-that-state no-op.
type Result struct {
	ControlID  string `json:"control_id"`
	PolicyFile string `json:"policy_file"`
	Status     string `json:"status"`
	Changed    bool   `json:"changed"`
}

// Enable activates a control's rule logic. Idempotent.
func (t *Toggler) Enable(id string) (*Result, error) {
	return t.toggle(id, control.StatusEnabled)
}

// Disable comments out a control's rule logic. Idempotent.
func (t *Toggler) Disable(id string) (*Result, error) {
	return t.toggle(id, control.StatusDisabled)
}

// Status resolves the control's policy file and reports its state.
func (t *Toggler) Status(id string) (string, error) {
	path, err := t.resolve(id)
	if err != nil {
		return "", err
	}
	return FileStatus(path, id)
}

func (t *Toggler) resolve(id string) (string, error) {
	cat, err := t.store.Load()
	if err != nil {
		return "", err
	}
	ctrl, err := cat.Get(id)
	if err != nil {
		return "", err
	}
	path := ctrl.PolicyFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(t.policyRoot, path)
	}
	return path, nil
}

func (t *Toggler) toggle(id, target string) (*Result, error) {
	path, err := t.resolve(id)
	if err != nil {
		return nil, err
	}

	lines, trailingNewline, err := ReadLines(path)
	if err != nil {
		return nil, err
	}
	block, err := Locate(lines, path, id)
	if err != nil {
		return nil, err
	}

	res := &Result{ControlID: id, PolicyFile: path, Status: target}
	if BlockStatus(lines, block) == target {
		return res, nil // already in the target state
	}

	for i := block.StartLine - 1; i < block.EndLine && i < len(lines); i++ {
		if IsHeaderLine(lines[i]) || strings.TrimSpace(lines[i]) == "" {
			continue
		}
		if target == control.StatusDisabled {
			lines[i] = "# " + lines[i]
		} else {
			lines[i] = uncomment(lines[i])
		}
	}

	if err := t.rewrite(path, lines, trailingNewline); err != nil {
		return nil, err
	}

	res.Changed = true
	t.logger.WithFields(map[string]interface{}{
		"control_id": id,
		"status":     target,
		"file":       path,
	}).Info("Toggled control")
	return res, nil
}

// uncomment strips exactly one level of disable-commenting, the
// inverse of the "# " prefix applied by disable.
func uncomment(line string) string {
	if strings.HasPrefix(line, "# ") {
		return line[2:]
	}
	if strings.HasPrefix(line, "#") {
		return line[1:]
	}
	return line
}

// rewrite replaces the policy file contents, taking a backup first and
// restoring it when the write fails.
func (t *Toggler) rewrite(path string, lines []string, trailingNewline bool) error {
	original, err := os.ReadFile(path)
	if err != nil {
		return apperrors.ToggleWrite(path, err)
	}
	if err := os.WriteFile(path+".bak", original, 0644); err != nil {
		return apperrors.ToggleWrite(path+".bak", err)
	}

	content := strings.Join(lines, "\n")
	if trailingNewline {
		content += "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		if restoreErr := os.WriteFile(path, original, 0644); restoreErr != nil {
			t.logger.ErrorWithErr(restoreErr, "Failed to restore policy file from backup")
		}
		return apperrors.ToggleWrite(path, err)
	}
	return nil
}
