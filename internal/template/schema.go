package template

// Definition is a flowchart template after its source file has been decoded
// and every repeat and expression resolved. HCL and TOML files both end up
// here before nodes are built.
type Definition struct {
	ID          string
	Name        string
	Description string
	Nodes       []NodeSpec
}

// NodeSpec describes one node of a template. Zero geometry keeps the type's
// default size; nil pointers keep the type's defaults.
type NodeSpec struct {
	ID          string
	Type        string
	Label       *string
	Description string
	Link        string
	Container   string

	X, Y          float64
	Width, Height float64

	Status       string
	CustomStatus string
	Shape        string

	ShowInFlowchart *bool
	ShowForCustomer *bool
	SortOrder       *int
}

// RepeatConfig expands one node declaration into several, binding Var to
// every integer from From to the upper bound inclusive. The bound is either
// To or the template variable named by ToVar.
type RepeatConfig struct {
	Var   string `toml:"var"`
	From  int    `toml:"from"`
	To    *int   `toml:"to"`
	ToVar string `toml:"to_var"`
}

func (r RepeatConfig) bounds(vars map[string]float64) (int, int, bool) {
	if r.To != nil {
		return r.From, *r.To, true
	}
	v, ok := vars[r.ToVar]
	if !ok {
		return 0, 0, false
	}
	return r.From, int(v), true
}
