package orchestrator

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	apperrors "github.com/regoguard/regoguard/internal/pkg/errors"
)

// OptionalDirName marks opt-in policy subtrees that discovery skips
// unless explicitly included.
const OptionalDirName = "optional"

// DiscoverGroups walks the policy tree and returns every directory
// containing at least one rule file, in sorted order so repeated runs
// produce identical group ordering.
func DiscoverGroups(root string, includeOptional bool) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, apperrors.Internal("policy root not accessible", err)
	}
	if !info.IsDir() {
		return nil, apperrors.New(apperrors.ErrCodeInternal,
			"policy root is not a directory: "+root)
	}

	seen := map[string]bool{}
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == OptionalDirName && !includeOptional {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ".rego") {
			seen[filepath.Dir(path)] = true
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Internal("policy tree walk failed", err)
	}

	groups := make([]string, 0, len(seen))
	for dir := range seen {
		groups = append(groups, dir)
	}
	sort.Strings(groups)
	return groups, nil
}
