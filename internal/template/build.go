package template

import (
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/flowdesk/internal/domain"
	"github.com/alexanderramin/flowdesk/internal/flowchart"
)

// Build turns a resolved Definition into a template document. Children lists
// are derived from container references in declaration order.
func Build(def *Definition) (*domain.Document, error) {
	if errs := ValidateDefinition(def); len(errs) > 0 {
		return nil, fmt.Errorf("template %s: %w", def.ID, errors.Join(errs...))
	}

	nodes := make([]domain.Node, 0, len(def.Nodes))
	index := make(map[string]int, len(def.Nodes))
	for _, spec := range def.Nodes {
		n, err := buildNode(spec)
		if err != nil {
			return nil, fmt.Errorf("template %s: %w", def.ID, err)
		}
		index[n.ID] = len(nodes)
		nodes = append(nodes, n)
	}
	for i := range nodes {
		if nodes[i].HasContainer() {
			p := index[*nodes[i].ContainerID]
			nodes[p].Children = append(nodes[p].Children, nodes[i].ID)
		}
	}

	if errs := flowchart.CheckInvariants(nodes); len(errs) > 0 {
		return nil, fmt.Errorf("template %s: %w", def.ID, errors.Join(errs...))
	}

	now := time.Now().UTC().Truncate(time.Second)
	return &domain.Document{
		Kind:        domain.DocumentTemplate,
		ID:          def.ID,
		Name:        def.Name,
		Description: def.Description,
		Nodes:       nodes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func buildNode(spec NodeSpec) (domain.Node, error) {
	n, err := domain.NewNode(spec.ID, domain.NodeType(spec.Type))
	if err != nil {
		return domain.Node{}, err
	}

	if spec.Label != nil {
		n.Label = *spec.Label
	}
	n.Description = spec.Description
	n.Link = spec.Link
	n.Position = domain.Point{X: spec.X, Y: spec.Y}
	if spec.Width > 0 {
		n.Size.Width = spec.Width
	}
	if spec.Height > 0 {
		n.Size.Height = spec.Height
	}
	if spec.Container != "" {
		n.ContainerID = domain.StringPtr(spec.Container)
	}
	if spec.Status != "" {
		n.Status = domain.Status(spec.Status)
	}
	n.CustomStatus = spec.CustomStatus
	if spec.Shape != "" {
		n.Shape = domain.Shape(spec.Shape)
	}
	n.ShowInFlowchart = domain.BoolFromPtrWithDefault(true, spec.ShowInFlowchart)
	n.ShowForCustomer = domain.BoolFromPtrWithDefault(true, spec.ShowForCustomer)
	n.SortOrder = spec.SortOrder

	if n.Type == domain.NodeArrow {
		// Stretch the default straight arrow across the declared box.
		n.Points = []domain.Point{{X: 0, Y: n.Size.Height / 2}, {X: n.Size.Width, Y: n.Size.Height / 2}}
	}

	n.Normalize()
	if err := n.Validate(); err != nil {
		return domain.Node{}, err
	}
	return n, nil
}
