package orchestrator

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/regoguard/regoguard/internal/testutil"
)

func writePolicyTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := []string{
		"aws/identity.rego",
		"aws/networking.rego",
		"azure/identity.rego",
		"multi/governance.rego",
		"optional/aws/logging.rego",
		"docs/readme.txt",
	}
	for _, f := range files {
		testutil.WriteFile(t, filepath.Join(root, f), "package x\n")
	}
	return root
}

func TestDiscoverGroups(t *testing.T) {
	root := writePolicyTree(t)

	tests := []struct {
		name            string
		includeOptional bool
		want            []string
	}{
		{
			name: "optional subtree skipped by default",
			want: []string{
				filepath.Join(root, "aws"),
				filepath.Join(root, "azure"),
				filepath.Join(root, "multi"),
			},
		},
		{
			name:            "optional subtree included on request",
			includeOptional: true,
			want: []string{
				filepath.Join(root, "aws"),
				filepath.Join(root, "azure"),
				filepath.Join(root, "multi"),
				filepath.Join(root, "optional", "aws"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiscoverGroups(root, tt.includeOptional)
			if err != nil {
				t.Fatalf("discover: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("groups = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDiscoverGroupsErrors(t *testing.T) {
	if _, err := DiscoverGroups(filepath.Join(t.TempDir(), "absent"), false); err == nil {
		t.Error("expected error for missing policy root")
	}

	root := t.TempDir()
	testutil.WriteFile(t, filepath.Join(root, "notes.txt"), "no rego here")
	groups, err := DiscoverGroups(root, false)
	if err != nil {
		t.Fatalf("discover: %v", err)
	}
	if len(groups) != 0 {
		t.Errorf("directories without rule files are not groups, got %v", groups)
	}
}
