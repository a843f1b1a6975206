package service

import (
	"context"

	"github.com/alexanderramin/flowdesk/internal/domain"
)

// DocumentService manages projects and templates and their flowcharts.
type DocumentService interface {
	Create(ctx context.Context, kind domain.DocumentKind, name, description string) (*domain.Document, error)
	Get(ctx context.Context, kind domain.DocumentKind, id string) (*domain.Document, error)
	List(ctx context.Context, kind domain.DocumentKind) ([]*domain.Document, error)
	Delete(ctx context.Context, kind domain.DocumentKind, id string) error

	// Flowchart returns the document's full node list.
	Flowchart(ctx context.Context, kind domain.DocumentKind, id string) ([]domain.Node, error)
	// ReplaceFlowchart stores nodes as the document's whole chart. Nodes
	// failing their field rules are rejected with domain.ErrInvalidNode.
	ReplaceFlowchart(ctx context.Context, kind domain.DocumentKind, id string, nodes []domain.Node) error

	// Instantiate creates a project whose chart is a copy of the template's
	// with fresh node ids.
	Instantiate(ctx context.Context, templateID, projectName string) (*domain.Document, error)
	// SeedTemplates creates the given templates, or replaces their charts
	// when they already exist.
	SeedTemplates(ctx context.Context, templates []*domain.Document) (*SeedResult, error)
}

// SeedResult reports what SeedTemplates did per template id.
type SeedResult struct {
	Created []string
	Updated []string
}
