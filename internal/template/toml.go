package template

import (
	"fmt"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// tomlTemplateFile is the layout of a .toml template. Geometry values are
// numbers or expression strings over [variables] and the repeat variable;
// ids and labels expand {expr} blocks.
//
//	name = "Bathroom refresh"
//	[variables]
//	fixtures = 3
//	[[nodes]]
//	id = "fixture_{i}"
//	type = "task"
//	label = "Fixture {i}"
//	x = "(i-1)*200"
//	repeat = { var = "i", from = 1, to_var = "fixtures" }
type tomlTemplateFile struct {
	Name        string             `toml:"name"`
	Description string             `toml:"description"`
	Variables   map[string]any     `toml:"variables"`
	Nodes       []tomlNode         `toml:"nodes"`
}

type tomlNode struct {
	ID          string        `toml:"id"`
	Repeat      *RepeatConfig `toml:"repeat"`
	Type        string        `toml:"type"`
	Label       *string       `toml:"label"`
	Description string        `toml:"description"`
	Link        string        `toml:"link"`
	Container   string        `toml:"container"`

	X      any `toml:"x"`
	Y      any `toml:"y"`
	Width  any `toml:"width"`
	Height any `toml:"height"`

	Status       string `toml:"status"`
	CustomStatus string `toml:"custom_status"`
	Shape        string `toml:"shape"`

	ShowInFlowchart *bool `toml:"show_in_flowchart"`
	ShowForCustomer *bool `toml:"show_for_customer"`
	SortOrder       *int  `toml:"sort_order"`
}

// ParseTOML decodes a TOML template source into a Definition.
func ParseTOML(id string, src []byte, filename string) (*Definition, error) {
	var raw tomlTemplateFile
	if err := toml.Unmarshal(src, &raw); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", filename, err)
	}

	vars := make(map[string]float64, len(raw.Variables))
	for k, v := range raw.Variables {
		f, err := geometryValue(v, nil)
		if err != nil {
			return nil, fmt.Errorf("%s: variable %s: %w", filename, k, err)
		}
		vars[k] = f
	}

	def := &Definition{ID: id, Name: raw.Name, Description: raw.Description}
	for i, n := range raw.Nodes {
		specs, err := expandTOMLNode(n, vars)
		if err != nil {
			return nil, fmt.Errorf("%s: nodes[%d]: %w", filename, i, err)
		}
		def.Nodes = append(def.Nodes, specs...)
	}
	return def, nil
}

func expandTOMLNode(n tomlNode, vars map[string]float64) ([]NodeSpec, error) {
	if n.Repeat == nil {
		spec, err := resolveTOMLNode(n, vars)
		if err != nil {
			return nil, err
		}
		return []NodeSpec{spec}, nil
	}

	from, to, ok := n.Repeat.bounds(vars)
	if !ok {
		return nil, fmt.Errorf("repeat bound variable %q is not declared", n.Repeat.ToVar)
	}
	if n.Repeat.Var == "" {
		return nil, fmt.Errorf("repeat needs a var name")
	}

	var specs []NodeSpec
	for i := from; i <= to; i++ {
		scope := make(map[string]float64, len(vars)+1)
		for k, v := range vars {
			scope[k] = v
		}
		scope[n.Repeat.Var] = float64(i)

		spec, err := resolveTOMLNode(n, scope)
		if err != nil {
			return nil, fmt.Errorf("%s=%d: %w", n.Repeat.Var, i, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func resolveTOMLNode(n tomlNode, vars map[string]float64) (NodeSpec, error) {
	spec := NodeSpec{
		Type:            n.Type,
		Link:            n.Link,
		Status:          n.Status,
		CustomStatus:    n.CustomStatus,
		Shape:           n.Shape,
		ShowInFlowchart: n.ShowInFlowchart,
		ShowForCustomer: n.ShowForCustomer,
		SortOrder:       n.SortOrder,
	}

	var err error
	if spec.ID, err = ExpandTemplate(n.ID, vars); err != nil {
		return NodeSpec{}, fmt.Errorf("id: %w", err)
	}
	if spec.Container, err = ExpandTemplate(n.Container, vars); err != nil {
		return NodeSpec{}, fmt.Errorf("container: %w", err)
	}
	if spec.Description, err = ExpandTemplate(n.Description, vars); err != nil {
		return NodeSpec{}, fmt.Errorf("description: %w", err)
	}
	if n.Label != nil {
		label, err := ExpandTemplate(*n.Label, vars)
		if err != nil {
			return NodeSpec{}, fmt.Errorf("label: %w", err)
		}
		spec.Label = &label
	}

	for _, f := range []struct {
		name string
		raw  any
		dst  *float64
	}{{"x", n.X, &spec.X}, {"y", n.Y, &spec.Y}, {"width", n.Width, &spec.Width}, {"height", n.Height, &spec.Height}} {
		v, err := geometryValue(f.raw, vars)
		if err != nil {
			return NodeSpec{}, fmt.Errorf("%s: %w", f.name, err)
		}
		*f.dst = v
	}
	return spec, nil
}

// geometryValue accepts a TOML integer, float or expression string.
// Expressions are evaluated against vars.
func geometryValue(raw any, vars map[string]float64) (float64, error) {
	switch v := raw.(type) {
	case nil:
		return 0, nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f, nil
		}
		return EvalExpr(v, vars)
	default:
		return 0, fmt.Errorf("unsupported value %v of type %T", raw, raw)
	}
}
