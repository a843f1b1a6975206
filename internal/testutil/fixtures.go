package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alexanderramin/flowdesk/internal/domain"
	"github.com/google/uuid"
)

var testNodeCounter atomic.Int64

// Node options
type NodeOption func(*domain.Node)

func WithID(id string) NodeOption {
	return func(n *domain.Node) {
		n.ID = id
	}
}

func WithLabel(label string) NodeOption {
	return func(n *domain.Node) {
		n.Label = label
	}
}

func WithRect(x, y, w, h float64) NodeOption {
	return func(n *domain.Node) {
		n.Position = domain.Point{X: x, Y: y}
		n.Size = domain.Size{Width: w, Height: h}
	}
}

func WithContainer(id string) NodeOption {
	return func(n *domain.Node) {
		n.ContainerID = &id
	}
}

func WithChildren(ids ...string) NodeOption {
	return func(n *domain.Node) {
		n.Children = append([]string{}, ids...)
	}
}

func WithSortOrder(v int) NodeOption {
	return func(n *domain.Node) {
		n.SortOrder = &v
	}
}

func WithStatus(s domain.Status) NodeOption {
	return func(n *domain.Node) {
		n.Status = s
	}
}

func HiddenFromCustomer() NodeOption {
	return func(n *domain.Node) {
		n.ShowForCustomer = false
	}
}

func HiddenInFlowchart() NodeOption {
	return func(n *domain.Node) {
		n.ShowInFlowchart = false
	}
}

// NewTestNode builds a node of type t with type defaults and a readable
// sequential id such as "task-3".
func NewTestNode(t domain.NodeType, opts ...NodeOption) domain.Node {
	id := fmt.Sprintf("%s-%d", t, testNodeCounter.Add(1))
	n, err := domain.NewNode(id, t)
	if err != nil {
		panic(err)
	}
	for _, opt := range opts {
		opt(&n)
	}
	return n
}

// Link sets child's container to parent and appends it to parent's children,
// keeping both sides of the relation in step.
func Link(parent, child *domain.Node) {
	id := parent.ID
	child.ContainerID = &id
	parent.Children = append(parent.Children, child.ID)
}

// Document options
type DocumentOption func(*domain.Document)

func WithDescription(d string) DocumentOption {
	return func(doc *domain.Document) {
		doc.Description = d
	}
}

func WithNodes(nodes ...domain.Node) DocumentOption {
	return func(doc *domain.Document) {
		doc.Nodes = domain.CloneNodes(nodes)
	}
}

func NewTestDocument(kind domain.DocumentKind, name string, opts ...DocumentOption) *domain.Document {
	now := time.Now().UTC().Truncate(time.Second)
	d := &domain.Document{
		Kind:      kind,
		ID:        uuid.New().String(),
		Name:      name,
		Nodes:     []domain.Node{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func NewTestProject(name string, opts ...DocumentOption) *domain.Document {
	return NewTestDocument(domain.DocumentProject, name, opts...)
}

func NewTestTemplate(name string, opts ...DocumentOption) *domain.Document {
	return NewTestDocument(domain.DocumentTemplate, name, opts...)
}
