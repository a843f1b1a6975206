package domain

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Node is a single flowchart element. Type is the discriminant; the
// container fields (Children, Status, CustomStatus, Shape) are only valid on
// phases and tasks, Points only on arrows, and arrows carry no text fields.
type Node struct {
	ID          string   `json:"id" yaml:"id"`
	Type        NodeType `json:"type" yaml:"type"`
	Label       string   `json:"label,omitempty" yaml:"label,omitempty"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Link        string   `json:"link,omitempty" yaml:"link,omitempty"`
	Position    Point    `json:"position" yaml:"position"`
	Size        Size     `json:"size" yaml:"size"`
	ContainerID *string  `json:"containerId" yaml:"containerId,omitempty"`
	Children    []string `json:"children,omitempty" yaml:"children,omitempty"`

	Status       Status `json:"status,omitempty" yaml:"status,omitempty"`
	CustomStatus string `json:"customStatus,omitempty" yaml:"customStatus,omitempty"`
	Shape        Shape  `json:"shape,omitempty" yaml:"shape,omitempty"`

	ShowInFlowchart bool `json:"showInFlowchart" yaml:"showInFlowchart"`
	ShowForCustomer bool `json:"showForCustomer" yaml:"showForCustomer"`

	SortOrder *int    `json:"sortOrder,omitempty" yaml:"sortOrder,omitempty"`
	Points    []Point `json:"points,omitempty" yaml:"points,omitempty"`
}

// typeDefaults holds the geometry and label a freshly added node receives.
var typeDefaults = map[NodeType]struct {
	size  Size
	label string
}{
	NodePhase:     {Size{300, 200}, "New Phase"},
	NodeTask:      {Size{180, 80}, "New Task"},
	NodeSubFlow:   {Size{160, 60}, "Sub-flow"},
	NodeIterative: {Size{160, 60}, "Iteration"},
	NodeNote:      {Size{160, 100}, "Note"},
	NodeExtra:     {Size{140, 60}, "Extra"},
	NodeArrow:     {Size{120, 40}, ""},
}

// NewNode returns a node of type t with the type-appropriate defaults applied.
func NewNode(id string, t NodeType) (Node, error) {
	if !ValidNodeTypes[t] {
		return Node{}, fmt.Errorf("%w: unknown type %q", ErrInvalidNode, t)
	}
	d := typeDefaults[t]
	n := Node{
		ID:              id,
		Type:            t,
		Label:           d.label,
		Size:            d.size,
		ShowInFlowchart: true,
		ShowForCustomer: true,
	}
	switch {
	case t.IsContainer():
		n.Children = []string{}
		n.Status = StatusNotStarted
		n.Shape = ShapeRectangle
	case t == NodeArrow:
		n.Points = []Point{{X: 0, Y: d.size.Height / 2}, {X: d.size.Width, Y: d.size.Height / 2}}
	}
	return n, nil
}

// Bounds returns the node's bounding box.
func (n *Node) Bounds() Rect {
	return Rect{X: n.Position.X, Y: n.Position.Y, Width: n.Size.Width, Height: n.Size.Height}
}

// Center returns the midpoint of the node's bounding box.
func (n *Node) Center() Point {
	return n.Bounds().Center()
}

// HasContainer reports whether the node is owned by a container.
func (n *Node) HasContainer() bool {
	return n.ContainerID != nil && *n.ContainerID != ""
}

// InContainer reports whether the node's container is id.
func (n *Node) InContainer(id string) bool {
	return n.HasContainer() && *n.ContainerID == id
}

// SameContainer reports whether both nodes share a container, treating
// top-level nodes as siblings of each other.
func (n *Node) SameContainer(o *Node) bool {
	if !n.HasContainer() || !o.HasContainer() {
		return !n.HasContainer() && !o.HasContainer()
	}
	return *n.ContainerID == *o.ContainerID
}

// Clone returns a deep copy of n.
func (n Node) Clone() Node {
	c := n
	if n.ContainerID != nil {
		id := *n.ContainerID
		c.ContainerID = &id
	}
	if n.SortOrder != nil {
		v := *n.SortOrder
		c.SortOrder = &v
	}
	if n.Children != nil {
		c.Children = append([]string{}, n.Children...)
	}
	if n.Points != nil {
		c.Points = append([]Point{}, n.Points...)
	}
	return c
}

// Normalize canonicalizes the representation of optional collections so that
// decoded and freshly created nodes compare equal: containers always carry a
// non-nil Children slice and leaves never do. An empty ContainerID becomes nil.
func (n *Node) Normalize() {
	if n.ContainerID != nil && *n.ContainerID == "" {
		n.ContainerID = nil
	}
	if n.Type.IsContainer() {
		if n.Children == nil {
			n.Children = []string{}
		}
	} else if len(n.Children) == 0 {
		n.Children = nil
	}
}

// Validate checks the per-variant field rules.
func (n *Node) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidNode)
	}
	if !ValidNodeTypes[n.Type] {
		return fmt.Errorf("%w: node %s has unknown type %q", ErrInvalidNode, n.ID, n.Type)
	}
	if n.Size.Width < 0 || n.Size.Height < 0 {
		return fmt.Errorf("%w: node %s has negative size", ErrInvalidNode, n.ID)
	}
	if n.ContainerID != nil && *n.ContainerID == n.ID {
		return fmt.Errorf("%w: node %s contains itself", ErrInvalidNode, n.ID)
	}

	if n.Type.IsContainer() {
		if n.Status != "" && !ValidStatuses[n.Status] {
			return fmt.Errorf("%w: node %s has unknown status %q", ErrInvalidNode, n.ID, n.Status)
		}
		if n.CustomStatus != "" && n.Status != StatusCustom {
			return fmt.Errorf("%w: node %s has customStatus without status %q", ErrInvalidNode, n.ID, StatusCustom)
		}
		if n.Shape != "" && !ValidShapes[n.Shape] {
			return fmt.Errorf("%w: node %s has unknown shape %q", ErrInvalidNode, n.ID, n.Shape)
		}
	} else {
		if len(n.Children) > 0 {
			return fmt.Errorf("%w: %s node %s cannot have children", ErrInvalidNode, n.Type, n.ID)
		}
		if n.Status != "" || n.CustomStatus != "" || n.Shape != "" {
			return fmt.Errorf("%w: %s node %s cannot carry status or shape", ErrInvalidNode, n.Type, n.ID)
		}
	}

	if n.Type == NodeArrow {
		if len(n.Points) < 2 {
			return fmt.Errorf("%w: arrow %s needs at least 2 points, has %d", ErrInvalidNode, n.ID, len(n.Points))
		}
		if n.Label != "" || n.Description != "" || n.Link != "" {
			return fmt.Errorf("%w: arrow %s cannot carry text fields", ErrInvalidNode, n.ID)
		}
	} else if len(n.Points) > 0 {
		return fmt.Errorf("%w: %s node %s cannot have points", ErrInvalidNode, n.Type, n.ID)
	}
	return nil
}

// UnmarshalJSON decodes a node, defaulting absent visibility flags to true.
func (n *Node) UnmarshalJSON(data []byte) error {
	type alias Node
	a := alias{ShowInFlowchart: true, ShowForCustomer: true}
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*n = Node(a)
	return nil
}

// UnmarshalYAML decodes a node, defaulting absent visibility flags to true.
func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	type alias Node
	a := alias{ShowInFlowchart: true, ShowForCustomer: true}
	if err := value.Decode(&a); err != nil {
		return err
	}
	*n = Node(a)
	return nil
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool {
	return &v
}
