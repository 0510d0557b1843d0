package terraform

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"

	apperrors "github.com/regoguard/regoguard/internal/pkg/errors"
)

// Renderer builds an infrastructure-change document from a directory
// of Terraform sources. It is a convenience producer for environments
// without a real plan: only literal attribute values are resolved, and
// the evaluation pipeline treats the output as an opaque document
// exactly like an externally produced plan.
type Renderer struct {
	parser *hclparse.Parser
}

// NewRenderer creates a plan renderer.
func NewRenderer() *Renderer {
	return &Renderer{parser: hclparse.NewParser()}
}

// PlannedResource is one resource record in the rendered document.
type PlannedResource struct {
	Address string                 `json:"address"`
	Type    string                 `json:"type"`
	Name    string                 `json:"name"`
	Values  map[string]interface{} `json:"values"`
}

// Document is the rendered plan shape consumed by the evaluation
// engine: a tree of planned resource records.
type Document struct {
	PlannedValues struct {
		RootModule struct {
			Resources []PlannedResource `json:"resources"`
		} `json:"root_module"`
	} `json:"planned_values"`
}

// RenderDir parses every .tf file under dir (non-recursive, matching
// Terraform's module semantics) into a plan document.
func (r *Renderer) RenderDir(dir string) (*Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, apperrors.Internal("failed to read terraform directory", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".tf") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	if len(names) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeInvalidDocument,
			"no .tf files found in "+dir)
	}

	doc := &Document{}
	for _, name := range names {
		path := filepath.Join(dir, name)
		resources, err := r.parseFile(path)
		if err != nil {
			return nil, err
		}
		doc.PlannedValues.RootModule.Resources = append(
			doc.PlannedValues.RootModule.Resources, resources...)
	}
	return doc, nil
}

// Marshal encodes the document as indented JSON.
func (d *Document) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, apperrors.Internal("failed to encode plan document", err)
	}
	return append(data, '\n'), nil
}

func (r *Renderer) parseFile(path string) ([]PlannedResource, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Internal("failed to read terraform file", err)
	}

	file, diags := r.parser.ParseHCL(content, path)
	if diags.HasErrors() {
		return nil, apperrors.New(apperrors.ErrCodeInvalidDocument,
			fmt.Sprintf("HCL parsing failed for %s: %s", path, diags.Error()))
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeInvalidDocument,
			"unexpected HCL body type in "+path)
	}

	var resources []PlannedResource
	for _, block := range body.Blocks {
		if block.Type != "resource" || len(block.Labels) != 2 {
			continue
		}
		res := PlannedResource{
			Type:    block.Labels[0],
			Name:    block.Labels[1],
			Address: block.Labels[0] + "." + block.Labels[1],
			Values:  blockValues(block.Body),
		}
		resources = append(resources, res)
	}
	return resources, nil
}

// blockValues resolves literal attributes and nested blocks. Values
// referencing variables or other resources are unresolvable without a
// real plan and are omitted.
func blockValues(body *hclsyntax.Body) map[string]interface{} {
	values := make(map[string]interface{})
	for name, attr := range body.Attributes {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() || !val.IsWhollyKnown() {
			continue
		}
		values[name] = ctyToGo(val)
	}
	for _, nested := range body.Blocks {
		child := blockValues(nested.Body)
		if existing, ok := values[nested.Type]; ok {
			if list, ok := existing.([]interface{}); ok {
				values[nested.Type] = append(list, child)
			}
		} else {
			values[nested.Type] = []interface{}{child}
		}
	}
	return values
}

// ctyToGo converts a cty value into plain Go data for JSON encoding.
func ctyToGo(val cty.Value) interface{} {
	if val.IsNull() {
		return nil
	}
	ty := val.Type()
	switch {
	case ty == cty.String:
		return val.AsString()
	case ty == cty.Bool:
		return val.True()
	case ty == cty.Number:
		bf := val.AsBigFloat()
		if bf.IsInt() {
			i, _ := bf.Int64()
			return i
		}
		f, _ := bf.Float64()
		return f
	case ty.IsTupleType() || ty.IsListType() || ty.IsSetType():
		var out []interface{}
		for it := val.ElementIterator(); it.Next(); {
			_, ev := it.Element()
			out = append(out, ctyToGo(ev))
		}
		return out
	case ty.IsObjectType() || ty.IsMapType():
		out := make(map[string]interface{})
		for it := val.ElementIterator(); it.Next(); {
			k, ev := it.Element()
			out[k.AsString()] = ctyToGo(ev)
		}
		return out
	default:
		return nil
	}
}
