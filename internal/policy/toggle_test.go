package policy

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/regoguard/regoguard/internal/catalog"
	"github.com/regoguard/regoguard/internal/domain/control"
	"github.com/regoguard/regoguard/internal/pkg/logger"
	"github.com/regoguard/regoguard/internal/testutil"
)

const toggleCatalog = `metadata:
  version: "1.0"
controls:
  IAM-001:
    title: Root account MFA
    severity: CRITICAL
    cloud_provider: aws
    domain: identity
    policy_file: identity.rego
`

const togglePolicy = `package identity

# CONTROL: IAM-001
# TITLE: Root account MFA
# SEVERITY: CRITICAL
# Pre-existing author note about edge cases.
deny[msg] {
    input.root_mfa == false
    msg := "IAM-001: root account has no MFA"
}
`

func newTestToggler(t *testing.T) (*Toggler, string) {
	t.Helper()
	dir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(dir, "catalog.yaml"), toggleCatalog)
	testutil.WriteFile(t, filepath.Join(dir, "identity.rego"), togglePolicy)

	store := catalog.NewStore(filepath.Join(dir, "catalog.yaml"), logger.Nop())
	return NewToggler(store, dir, logger.Nop()), dir
}

func TestToggleDisableEnable(t *testing.T) {
	toggler, dir := newTestToggler(t)
	policyPath := filepath.Join(dir, "identity.rego")

	res, err := toggler.Disable("IAM-001")
	if err != nil {
		t.Fatalf("disable: %v", err)
	}
	if !res.Changed {
		t.Error("disable should report a change")
	}

	disabled := testutil.ReadFile(t, policyPath)
	if !strings.Contains(disabled, "# deny[msg] {") {
		t.Error("rule body should be commented out after disable")
	}
	if !strings.Contains(disabled, "# CONTROL: IAM-001") {
		t.Error("block marker must be preserved verbatim")
	}
	if !strings.Contains(disabled, "# SEVERITY: CRITICAL") {
		t.Error("metadata header must be preserved verbatim")
	}
	if !strings.Contains(disabled, "# # Pre-existing author note") {
		t.Error("existing comments gain one disable level, not get merged")
	}

	if st, err := toggler.Status("IAM-001"); err != nil || st != control.StatusDisabled {
		t.Fatalf("status after disable = %s, %v", st, err)
	}

	res, err = toggler.Enable("IAM-001")
	if err != nil {
		t.Fatalf("enable: %v", err)
	}
	if !res.Changed {
		t.Error("enable should report a change")
	}

	// A disable/enable round trip restores the file byte for byte.
	if got := testutil.ReadFile(t, policyPath); got != togglePolicy {
		t.Errorf("round trip did not restore original content:\n%s", got)
	}
}

func TestToggleIdempotent(t *testing.T) {
	toggler, dir := newTestToggler(t)
	policyPath := filepath.Join(dir, "identity.rego")

	// Enabling an already enabled control must not touch the file.
	res, err := toggler.Enable("IAM-001")
	if err != nil {
		t.Fatalf("enable: %v", err)
	}
	if res.Changed {
		t.Error("enable on an enabled control should be a no-op")
	}
	if got := testutil.ReadFile(t, policyPath); got != togglePolicy {
		t.Error("no-op enable must leave the file untouched")
	}

	if _, err := toggler.Disable("IAM-001"); err != nil {
		t.Fatalf("disable: %v", err)
	}
	afterDisable := testutil.ReadFile(t, policyPath)

	res, err = toggler.Disable("IAM-001")
	if err != nil {
		t.Fatalf("second disable: %v", err)
	}
	if res.Changed {
		t.Error("disable on a disabled control should be a no-op")
	}
	if got := testutil.ReadFile(t, policyPath); got != afterDisable {
		t.Error("no-op disable must leave the file untouched")
	}
}

func TestToggleUnknownControl(t *testing.T) {
	toggler, _ := newTestToggler(t)
	if _, err := toggler.Enable("IAM-099"); err == nil {
		t.Fatal("expected error for control missing from catalog")
	}
}

func TestToggleWritesBackup(t *testing.T) {
	toggler, dir := newTestToggler(t)

	if _, err := toggler.Disable("IAM-001"); err != nil {
		t.Fatalf("disable: %v", err)
	}
	backup := testutil.ReadFile(t, filepath.Join(dir, "identity.rego.bak"))
	if backup != togglePolicy {
		t.Error("backup should hold the pre-toggle content")
	}
}
