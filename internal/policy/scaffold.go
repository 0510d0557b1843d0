package policy

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/regoguard/regoguard/internal/catalog"
	"github.com/regoguard/regoguard/internal/domain/control"
	apperrors "github.com/regoguard/regoguard/internal/pkg/errors"
	"github.com/regoguard/regoguard/internal/pkg/logger"
)

// domainPrefixes maps control domains to their id prefixes.
var domainPrefixes = map[string]string{
	"identity":   "IAM",
	"networking": "NET",
	"logging":    "LOG",
	"data":       "DATA",
	"governance": "GOV",
}

// DomainPrefix returns the id prefix for a domain, falling back to the
// uppercased domain name for domains without a registered prefix.
func DomainPrefix(domain string) string {
	if p, ok := domainPrefixes[domain]; ok {
		return p
	}
	return strings.ToUpper(domain)
}

// Scaffolder creates new controls: it assigns the next free id for the
// domain, appends a disabled implementation skeleton to the policy
// file, and registers the catalog entry.
type Scaffolder struct {
	store      *catalog.Store
	policyRoot string
	logger     *logger.Logger
}

// NewScaffolder creates a scaffolder over the catalog store.
func NewScaffolder(store *catalog.Store, policyRoot string, log *logger.Logger) *Scaffolder {
	return &Scaffolder{
		store:      store,
		policyRoot: policyRoot,
		logger:     log,
	}
}

// Request describes the control to scaffold.
type Request struct {
	Title       string
	Description string
	Remediation string
	Severity    string
	Cloud       string
	Domain      string
	Frameworks  map[string][]string
	Optional    bool
	Category    string
}

// New scaffolds a control and returns the catalog entry it created.
func (s *Scaffolder) New(req Request) (*control.Control, error) {
	cat, err := s.store.Load()
	if err != nil {
		return nil, err
	}

	id := s.nextID(cat, req)
	relPath := filepath.Join("policies", req.Cloud, req.Domain+".rego")
	if req.Optional {
		relPath = filepath.Join("policies", "optional", req.Cloud, req.Domain+".rego")
	}

	ctrl := &control.Control{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		Remediation: req.Remediation,
		Severity:    req.Severity,
		Cloud:       req.Cloud,
		Domain:      req.Domain,
		Frameworks:  req.Frameworks,
		PolicyFile:  relPath,
		Optional:    req.Optional,
		Category:    req.Category,
	}

	// The catalog write is the commit point. A failed Add rolls the
	// skeleton back so the policy file never holds an orphan block
	// that a retry would duplicate.
	undo, err := s.appendSkeleton(ctrl)
	if err != nil {
		return nil, err
	}
	if err := s.store.Add(ctrl); err != nil {
		undo()
		return nil, err
	}
	return ctrl, nil
}

var idNumber = regexp.MustCompile(`-(\d+)$`)

// nextID assigns the next available number within the domain (and
// cloud, for opt-in controls).
func (s *Scaffolder) nextID(cat *catalog.Catalog, req Request) string {
	prefix := DomainPrefix(req.Domain)
	base := prefix
	if req.Optional {
		base = fmt.Sprintf("OPT-%s-%s", strings.ToUpper(req.Cloud), prefix)
	}

	max := 0
	var ids []string
	for _, ctrl := range cat.Controls() {
		ids = append(ids, ctrl.ID)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if !strings.HasPrefix(id, base+"-") {
			continue
		}
		m := idNumber.FindStringSubmatch(id)
		if m == nil {
			continue
		}
		if n, err := strconv.Atoi(m[1]); err == nil && n > max {
			max = n
		}
	}
	return fmt.Sprintf("%s-%03d", base, max+1)
}

// appendSkeleton writes the disabled implementation block to the end
// of the policy file, creating the file with a package header when it
// does not exist yet. The returned undo restores the file to its
// pre-append state.
func (s *Scaffolder) appendSkeleton(ctrl *control.Control) (func(), error) {
	path := ctrl.PolicyFile
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.policyRoot, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, apperrors.WriteFailed(path, err)
	}

	prior, readErr := os.ReadFile(path)
	if readErr != nil && !os.IsNotExist(readErr) {
		return nil, apperrors.WriteFailed(path, readErr)
	}
	existed := readErr == nil

	var b strings.Builder
	if !existed {
		fmt.Fprintf(&b, "package %s\n", ctrl.Domain)
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", ControlMarker, ctrl.ID)
	fmt.Fprintf(&b, "# TITLE: %s\n", ctrl.Title)
	fmt.Fprintf(&b, "# SEVERITY: %s\n", ctrl.Severity)
	fmt.Fprintf(&b, "# FRAMEWORKS: %s\n", formatFrameworks(ctrl.Frameworks))
	b.WriteString("# STATUS: DISABLED\n")
	if ctrl.Optional {
		b.WriteString("# OPTIONAL: true\n")
		if ctrl.Category != "" {
			fmt.Fprintf(&b, "# CATEGORY: %s\n", ctrl.Category)
		}
	}
	fmt.Fprintf(&b, "# deny[msg] {\n")
	fmt.Fprintf(&b, "#     resource := input.planned_values[_]\n")
	fmt.Fprintf(&b, "#     msg := sprintf(\"%s: %%s\", [resource.address])\n", ctrl.ID)
	fmt.Fprintf(&b, "# }\n")

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, apperrors.WriteFailed(path, err)
	}
	defer f.Close()
	if _, err := f.WriteString(b.String()); err != nil {
		return nil, apperrors.WriteFailed(path, err)
	}

	undo := func() {
		if existed {
			if err := os.WriteFile(path, prior, 0644); err != nil {
				s.logger.ErrorWithErr(err, "Failed to roll back policy skeleton")
			}
			return
		}
		if err := os.Remove(path); err != nil {
			s.logger.ErrorWithErr(err, "Failed to remove scaffolded policy file")
		}
	}
	return undo, nil
}

func formatFrameworks(frameworks map[string][]string) string {
	if len(frameworks) == 0 {
		return "none"
	}
	var names []string
	for name := range frameworks {
		names = append(names, name)
	}
	sort.Strings(names)
	var parts []string
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s:%s", name, strings.Join(frameworks[name], ",")))
	}
	return strings.Join(parts, " ")
}
