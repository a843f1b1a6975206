package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/flowdesk/internal/domain"
	"github.com/alexanderramin/flowdesk/internal/flowchart"
	"github.com/alexanderramin/flowdesk/internal/interchange"
	"github.com/alexanderramin/flowdesk/internal/repository"
	"github.com/google/uuid"
)

type documentService struct {
	docs     repository.DocumentRepo
	observer UseCaseObserver
	newID    func() string
}

func NewDocumentService(docs repository.DocumentRepo, observers ...UseCaseObserver) DocumentService {
	return &documentService{
		docs:     docs,
		observer: useCaseObserverOrNoop(observers),
		newID:    flowchart.NewStore().NewID,
	}
}

func (s *documentService) observe(ctx context.Context, name string, kind domain.DocumentKind, id string, startedAt time.Time, fields map[string]any, err error) {
	s.observer.ObserveUseCase(ctx, UseCaseEvent{
		Name:      name,
		Kind:      string(kind),
		DocID:     id,
		StartedAt: startedAt,
		Duration:  time.Since(startedAt),
		Success:   err == nil,
		Err:       err,
		Fields:    fields,
	})
}

func (s *documentService) Create(ctx context.Context, kind domain.DocumentKind, name, description string) (d *domain.Document, err error) {
	startedAt := time.Now().UTC()
	defer func() {
		id := ""
		if d != nil {
			id = d.ID
		}
		s.observe(ctx, "create-document", kind, id, startedAt, nil, err)
	}()

	now := startedAt.Truncate(time.Second)
	d = &domain.Document{
		Kind:        kind,
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		Nodes:       []domain.Node{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err = d.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidNode, err)
	}
	if err = s.docs.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("creating %s: %w", kind, err)
	}
	return d, nil
}

func (s *documentService) Get(ctx context.Context, kind domain.DocumentKind, id string) (*domain.Document, error) {
	return s.docs.GetByID(ctx, kind, id)
}

func (s *documentService) List(ctx context.Context, kind domain.DocumentKind) ([]*domain.Document, error) {
	return s.docs.List(ctx, kind)
}

func (s *documentService) Delete(ctx context.Context, kind domain.DocumentKind, id string) (err error) {
	startedAt := time.Now().UTC()
	defer func() { s.observe(ctx, "delete-document", kind, id, startedAt, nil, err) }()
	return s.docs.Delete(ctx, kind, id)
}

func (s *documentService) Flowchart(ctx context.Context, kind domain.DocumentKind, id string) ([]domain.Node, error) {
	d, err := s.docs.GetByID(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	return d.Nodes, nil
}

func (s *documentService) ReplaceFlowchart(ctx context.Context, kind domain.DocumentKind, id string, nodes []domain.Node) (err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"node_count": len(nodes)}
	defer func() { s.observe(ctx, "replace-flowchart", kind, id, startedAt, fields, err) }()

	nodes = domain.CloneNodes(nodes)
	if nodes == nil {
		nodes = []domain.Node{}
	}
	for i := range nodes {
		nodes[i].Normalize()
	}
	if errs := interchange.ValidateNodes(nodes); len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidNode, errors.Join(errs...))
	}
	// Structural problems are reported but stored anyway so an autosave
	// never loses the user's work.
	if violations := flowchart.CheckInvariants(nodes); len(violations) > 0 {
		fields["violations"] = len(violations)
	}

	if err = s.docs.ReplaceNodes(ctx, kind, id, nodes); err != nil {
		return fmt.Errorf("saving flowchart: %w", err)
	}
	return nil
}

func (s *documentService) Instantiate(ctx context.Context, templateID, projectName string) (project *domain.Document, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"template": templateID}
	defer func() {
		id := ""
		if project != nil {
			id = project.ID
		}
		s.observe(ctx, "instantiate-template", domain.DocumentProject, id, startedAt, fields, err)
	}()

	tmpl, err := s.docs.GetByID(ctx, domain.DocumentTemplate, templateID)
	if err != nil {
		return nil, fmt.Errorf("loading template: %w", err)
	}
	name := strings.TrimSpace(projectName)
	if name == "" {
		name = tmpl.Name
	}

	now := startedAt.Truncate(time.Second)
	project = &domain.Document{
		Kind:        domain.DocumentProject,
		ID:          uuid.New().String(),
		Name:        name,
		Description: tmpl.Description,
		Nodes:       flowchart.Remap(tmpl.Nodes, s.newID),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	fields["node_count"] = len(project.Nodes)

	if err = s.docs.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}
	return project, nil
}

func (s *documentService) SeedTemplates(ctx context.Context, templates []*domain.Document) (result *SeedResult, err error) {
	startedAt := time.Now().UTC()
	fields := map[string]any{"templates": len(templates)}
	defer func() { s.observe(ctx, "seed-templates", domain.DocumentTemplate, "", startedAt, fields, err) }()

	result = &SeedResult{}
	for _, t := range templates {
		_, getErr := s.docs.GetByID(ctx, domain.DocumentTemplate, t.ID)
		switch {
		case getErr == nil:
			if err = s.ReplaceFlowchart(ctx, domain.DocumentTemplate, t.ID, t.Nodes); err != nil {
				return result, fmt.Errorf("updating template %s: %w", t.ID, err)
			}
			result.Updated = append(result.Updated, t.ID)
		case errors.Is(getErr, domain.ErrNotFound):
			doc := *t
			doc.Kind = domain.DocumentTemplate
			doc.Nodes = domain.CloneNodes(t.Nodes)
			if doc.Nodes == nil {
				doc.Nodes = []domain.Node{}
			}
			for i := range doc.Nodes {
				doc.Nodes[i].Normalize()
			}
			now := time.Now().UTC().Truncate(time.Second)
			if doc.CreatedAt.IsZero() {
				doc.CreatedAt = now
			}
			doc.UpdatedAt = now
			if err = doc.Validate(); err != nil {
				return result, fmt.Errorf("template %s: %w: %w", t.ID, domain.ErrInvalidNode, err)
			}
			if errs := interchange.ValidateNodes(doc.Nodes); len(errs) > 0 {
				err = fmt.Errorf("template %s: %w: %w", t.ID, domain.ErrInvalidNode, errors.Join(errs...))
				return result, err
			}
			if err = s.docs.Create(ctx, &doc); err != nil {
				return result, fmt.Errorf("creating template %s: %w", t.ID, err)
			}
			result.Created = append(result.Created, t.ID)
		default:
			err = getErr
			return result, err
		}
	}
	fields["created"] = len(result.Created)
	fields["updated"] = len(result.Updated)
	return result, nil
}
