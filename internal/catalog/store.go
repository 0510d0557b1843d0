package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/regoguard/regoguard/internal/domain/control"
	apperrors "github.com/regoguard/regoguard/internal/pkg/errors"
	"github.com/regoguard/regoguard/internal/pkg/logger"
	"github.com/regoguard/regoguard/internal/pkg/validator"
)

// Metadata holds catalog-level counters and versioning. Unknown fields
// survive rewrites through the inline map.
type Metadata struct {
	Version          string         `yaml:"version,omitempty"`
	LastUpdated      string         `yaml:"last_updated,omitempty"`
	TotalControls    int            `yaml:"total_controls"`
	CloudCounts      map[string]int `yaml:"cloud_counts,omitempty"`
	OptionalControls int            `yaml:"optional_controls"`

	Extra map[string]interface{} `yaml:",inline"`
}

// file is the on-disk catalog shape. Top-level keys besides metadata
// and controls survive rewrites through the inline map.
type file struct {
	Metadata Metadata                    `yaml:"metadata"`
	Controls map[string]*control.Control `yaml:"controls"`

	Extra map[string]interface{} `yaml:",inline"`
}

// Catalog is an in-memory snapshot of the catalog file. Mutations go
// through Store; readers treat a snapshot as immutable.
type Catalog struct {
	Metadata Metadata
	controls map[string]*control.Control
	extra    map[string]interface{}
}

// Get retrieves a control by id.
func (c *Catalog) Get(id string) (*control.Control, error) {
	ctrl, ok := c.controls[id]
	if !ok {
		return nil, apperrors.ControlNotFound(id)
	}
	return ctrl, nil
}

// Has reports whether the catalog contains the control id.
func (c *Catalog) Has(id string) bool {
	_, ok := c.controls[id]
	return ok
}

// Len returns the number of controls in the snapshot.
func (c *Catalog) Len() int {
	return len(c.controls)
}

// Controls returns every control ordered by id.
func (c *Catalog) Controls() []*control.Control {
	ids := make([]string, 0, len(c.controls))
	for id := range c.controls {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]*control.Control, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.controls[id])
	}
	return out
}

// Filter returns controls matching f, ordered by id.
func (c *Catalog) Filter(f control.Filter) []*control.Control {
	var out []*control.Control
	for _, ctrl := range c.Controls() {
		if f.Matches(ctrl) {
			out = append(out, ctrl)
		}
	}
	return out
}

// Store manages the catalog file. Single writer; readers may load
// snapshots while no writer is active.
type Store struct {
	path     string
	validate *validator.Validator
	logger   *logger.Logger
}

// NewStore creates a catalog store for the given file path.
func NewStore(path string, log *logger.Logger) *Store {
	return &Store{
		path:     path,
		validate: validator.New(),
		logger:   log,
	}
}

// Path returns the catalog file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the entire catalog into memory.
func (s *Store) Load() (*Catalog, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.CatalogNotFound(s.path)
		}
		return nil, apperrors.Internal("failed to read catalog", err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, apperrors.CatalogCorrupt(s.path, err)
	}
	if f.Controls == nil {
		f.Controls = make(map[string]*control.Control)
	}

	// The map key is authoritative for the id.
	for id, ctrl := range f.Controls {
		ctrl.ID = id
	}

	return &Catalog{Metadata: f.Metadata, controls: f.Controls, extra: f.Extra}, nil
}

// Add validates and inserts a new control, recomputes the derived
// counters, and persists atomically. The on-disk catalog is untouched
// when the id already exists or validation fails.
func (s *Store) Add(ctrl *control.Control) error {
	cat, err := s.Load()
	if err != nil {
		return err
	}

	if errs := s.validate.Validate(ctrl); len(errs) > 0 {
		return apperrors.ValidationError(
			fmt.Sprintf("control %s failed validation", ctrl.ID), errs)
	}
	if cat.Has(ctrl.ID) {
		return apperrors.DuplicateControl(ctrl.ID)
	}

	cat.controls[ctrl.ID] = ctrl
	if err := s.save(cat); err != nil {
		return err
	}

	s.logger.WithFields(map[string]interface{}{
		"control_id": ctrl.ID,
		"severity":   ctrl.Severity,
		"cloud":      ctrl.Cloud,
	}).Info("Added control to catalog")
	return nil
}

// save recomputes counters and writes the catalog with the
// temp-then-rename discipline, keeping the previous version as .bak.
func (s *Store) save(cat *Catalog) error {
	cat.Metadata.TotalControls = len(cat.controls)
	cat.Metadata.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	cat.Metadata.CloudCounts = map[string]int{}
	cat.Metadata.OptionalControls = 0
	for _, ctrl := range cat.controls {
		cat.Metadata.CloudCounts[ctrl.Cloud]++
		if ctrl.Optional {
			cat.Metadata.OptionalControls++
		}
	}

	out := file{Metadata: cat.Metadata, Controls: cat.controls, Extra: cat.extra}
	data, err := yaml.Marshal(&out)
	if err != nil {
		return apperrors.Internal("failed to encode catalog", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".catalog-*.yaml")
	if err != nil {
		return apperrors.WriteFailed(s.path, err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.WriteFailed(s.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperrors.WriteFailed(s.path, err)
	}

	if prev, err := os.ReadFile(s.path); err == nil {
		if err := os.WriteFile(s.path+".bak", prev, 0644); err != nil {
			os.Remove(tmpName)
			return apperrors.WriteFailed(s.path+".bak", err)
		}
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return apperrors.WriteFailed(s.path, err)
	}
	return nil
}
