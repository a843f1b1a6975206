package repository

import (
	"context"
	"fmt"

	"github.com/alexanderramin/flowdesk/internal/domain"
)

// DocumentRepo stores projects and templates together with their flowchart.
// Missing documents are reported with an error wrapping domain.ErrNotFound.
type DocumentRepo interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, kind domain.DocumentKind, id string) (*domain.Document, error)
	// List returns document headers without their nodes, most recently
	// updated first.
	List(ctx context.Context, kind domain.DocumentKind) ([]*domain.Document, error)
	// ReplaceNodes swaps the whole flowchart of an existing document and
	// bumps its updated timestamp.
	ReplaceNodes(ctx context.Context, kind domain.DocumentKind, id string, nodes []domain.Node) error
	Delete(ctx context.Context, kind domain.DocumentKind, id string) error
}

func notFound(kind domain.DocumentKind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, domain.ErrNotFound)
}
