package template

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
)

// hclTemplateFile is the top-level layout of a .hcl template:
//
//	name = "Kitchen remodel"
//	variable "columns" { default = 3 }
//	node "design" {
//	  type  = "phase"
//	  width = var.columns * 220
//	}
//	node "step" {
//	  count     = var.columns
//	  type      = "task"
//	  container = "design"
//	  label     = "Step ${count.index + 1}"
//	  x         = 20 + count.index * 220
//	}
//
// A counted node expands to ids step-1, step-2, ...
type hclTemplateFile struct {
	Name        string         `hcl:"name"`
	Description string         `hcl:"description,optional"`
	Variables   []*hclVariable `hcl:"variable,block"`
	Nodes       []*hclNode     `hcl:"node,block"`
}

type hclVariable struct {
	Name    string    `hcl:"name,label"`
	Default cty.Value `hcl:"default"`
}

// Node attributes stay expressions until the variable context exists.
type hclNode struct {
	ID    string         `hcl:"id,label"`
	Count hcl.Expression `hcl:"count,optional"`
	Type  string         `hcl:"type"`

	Label       hcl.Expression `hcl:"label,optional"`
	Description hcl.Expression `hcl:"description,optional"`
	Link        hcl.Expression `hcl:"link,optional"`
	Container   hcl.Expression `hcl:"container,optional"`

	X      hcl.Expression `hcl:"x,optional"`
	Y      hcl.Expression `hcl:"y,optional"`
	Width  hcl.Expression `hcl:"width,optional"`
	Height hcl.Expression `hcl:"height,optional"`

	Status       string `hcl:"status,optional"`
	CustomStatus string `hcl:"custom_status,optional"`
	Shape        string `hcl:"shape,optional"`

	ShowInFlowchart *bool `hcl:"show_in_flowchart,optional"`
	ShowForCustomer *bool `hcl:"show_for_customer,optional"`
	SortOrder       *int  `hcl:"sort_order,optional"`
}

// ParseHCL decodes an HCL template source into a Definition.
func ParseHCL(id string, src []byte, filename string) (*Definition, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %w", filename, diags)
	}

	var raw hclTemplateFile
	if diags := gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("decoding %s: %w", filename, diags)
	}

	vars := make(map[string]cty.Value, len(raw.Variables))
	for _, v := range raw.Variables {
		vars[v.Name] = v.Default
	}
	evalCtx := &hcl.EvalContext{
		Variables: map[string]cty.Value{"var": cty.ObjectVal(vars)},
	}

	def := &Definition{ID: id, Name: raw.Name, Description: raw.Description}
	for _, n := range raw.Nodes {
		specs, err := expandHCLNode(n, evalCtx)
		if err != nil {
			return nil, fmt.Errorf("%s: node %q: %w", filename, n.ID, err)
		}
		def.Nodes = append(def.Nodes, specs...)
	}
	return def, nil
}

func expandHCLNode(n *hclNode, evalCtx *hcl.EvalContext) ([]NodeSpec, error) {
	count, counted, diags := evalInt(n.Count, evalCtx)
	if diags.HasErrors() {
		return nil, diags
	}
	if !counted {
		spec, err := decodeHCLNode(n, n.ID, evalCtx)
		if err != nil {
			return nil, err
		}
		return []NodeSpec{spec}, nil
	}
	if count < 0 {
		return nil, fmt.Errorf("count cannot be negative, got %d", count)
	}

	specs := make([]NodeSpec, 0, count)
	for i := 0; i < count; i++ {
		instanceCtx := evalCtx.NewChild()
		instanceCtx.Variables = map[string]cty.Value{
			"count": cty.ObjectVal(map[string]cty.Value{
				"index": cty.NumberIntVal(int64(i)),
			}),
		}
		spec, err := decodeHCLNode(n, fmt.Sprintf("%s-%d", n.ID, i+1), instanceCtx)
		if err != nil {
			return nil, fmt.Errorf("instance %d: %w", i+1, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func decodeHCLNode(n *hclNode, id string, evalCtx *hcl.EvalContext) (NodeSpec, error) {
	spec := NodeSpec{
		ID:              id,
		Type:            n.Type,
		Status:          n.Status,
		CustomStatus:    n.CustomStatus,
		Shape:           n.Shape,
		ShowInFlowchart: n.ShowInFlowchart,
		ShowForCustomer: n.ShowForCustomer,
		SortOrder:       n.SortOrder,
	}

	var diags hcl.Diagnostics
	collect := func(d hcl.Diagnostics) { diags = append(diags, d...) }

	label, set, d := evalString(n.Label, evalCtx)
	collect(d)
	if set {
		spec.Label = &label
	}
	spec.Description, _, d = evalString(n.Description, evalCtx)
	collect(d)
	spec.Link, _, d = evalString(n.Link, evalCtx)
	collect(d)
	spec.Container, _, d = evalString(n.Container, evalCtx)
	collect(d)

	for _, f := range []struct {
		expr hcl.Expression
		dst  *float64
	}{{n.X, &spec.X}, {n.Y, &spec.Y}, {n.Width, &spec.Width}, {n.Height, &spec.Height}} {
		collect(evalFloat(f.expr, evalCtx, f.dst))
	}

	if diags.HasErrors() {
		return NodeSpec{}, diags
	}
	return spec, nil
}

// isUnset reports whether an optional attribute was omitted. gohcl fills
// missing expression fields with a static null.
func isUnset(expr hcl.Expression, evalCtx *hcl.EvalContext) (bool, hcl.Diagnostics) {
	if expr == nil {
		return true, nil
	}
	v, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return false, diags
	}
	return v.IsNull(), nil
}

func evalString(expr hcl.Expression, evalCtx *hcl.EvalContext) (string, bool, hcl.Diagnostics) {
	unset, diags := isUnset(expr, evalCtx)
	if unset || diags.HasErrors() {
		return "", false, diags
	}
	var s string
	diags = gohcl.DecodeExpression(expr, evalCtx, &s)
	return s, !diags.HasErrors(), diags
}

func evalFloat(expr hcl.Expression, evalCtx *hcl.EvalContext, dst *float64) hcl.Diagnostics {
	unset, diags := isUnset(expr, evalCtx)
	if unset || diags.HasErrors() {
		return diags
	}
	return gohcl.DecodeExpression(expr, evalCtx, dst)
}

func evalInt(expr hcl.Expression, evalCtx *hcl.EvalContext) (int, bool, hcl.Diagnostics) {
	unset, diags := isUnset(expr, evalCtx)
	if unset || diags.HasErrors() {
		return 0, false, diags
	}
	var v int
	diags = gohcl.DecodeExpression(expr, evalCtx, &v)
	return v, !diags.HasErrors(), diags
}
