package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alexanderramin/flowdesk/internal/config"
	"github.com/alexanderramin/flowdesk/internal/ctxlog"
	"github.com/alexanderramin/flowdesk/internal/db"
	"github.com/alexanderramin/flowdesk/internal/domain"
	"github.com/alexanderramin/flowdesk/internal/editor"
	"github.com/alexanderramin/flowdesk/internal/flowchart"
	"github.com/alexanderramin/flowdesk/internal/remote"
	"github.com/alexanderramin/flowdesk/internal/repository"
	"github.com/alexanderramin/flowdesk/internal/service"
	"github.com/redis/go-redis/v9"
)

// Documents is what the document commands need, served either by the local
// store or by a flowdesk server.
type Documents interface {
	List(ctx context.Context, kind domain.DocumentKind) ([]*domain.Document, error)
	Create(ctx context.Context, kind domain.DocumentKind, name, description string) (*domain.Document, error)
	Get(ctx context.Context, kind domain.DocumentKind, id string) (*domain.Document, error)
	Delete(ctx context.Context, kind domain.DocumentKind, id string) error
	Instantiate(ctx context.Context, templateID, name string) (*domain.Document, error)
	// Chart returns the load/save endpoint of one document's flowchart.
	Chart(kind domain.DocumentKind, id string) editor.Remote
}

// localDocuments serves documents straight from the store. Customers see
// the same subset of nodes the server would hand them.
type localDocuments struct {
	service.DocumentService
	role domain.Role
}

func (l localDocuments) Get(ctx context.Context, kind domain.DocumentKind, id string) (*domain.Document, error) {
	d, err := l.DocumentService.Get(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	d.Nodes = customerView(d.Nodes, l.role)
	return d, nil
}

func (l localDocuments) Chart(kind domain.DocumentKind, id string) editor.Remote {
	return serviceChart{svc: l.DocumentService, role: l.role, kind: kind, id: id}
}

type serviceChart struct {
	svc  service.DocumentService
	role domain.Role
	kind domain.DocumentKind
	id   string
}

func (c serviceChart) Load(ctx context.Context) ([]domain.Node, error) {
	nodes, err := c.svc.Flowchart(ctx, c.kind, c.id)
	if err != nil {
		return nil, err
	}
	return customerView(nodes, c.role), nil
}

func (c serviceChart) Save(ctx context.Context, nodes []domain.Node) error {
	return c.svc.ReplaceFlowchart(ctx, c.kind, c.id, nodes)
}

type remoteDocuments struct {
	*remote.Client
}

func (r remoteDocuments) Chart(kind domain.DocumentKind, id string) editor.Remote {
	return r.Client.Chart(kind, id)
}

// documents returns the backend selected by --remote.
func (a *App) documents(ctx context.Context) (Documents, error) {
	if a.Docs != nil {
		return a.Docs, nil
	}
	if a.remote {
		client := remote.New(a.Config.Client.BaseURL,
			remote.WithRole(a.Role()),
			remote.WithTimeout(a.Config.Client.Timeout))
		if !client.Available(ctx) {
			return nil, fmt.Errorf("%w at %s", remote.ErrUnavailable, a.Config.Client.BaseURL)
		}
		return remoteDocuments{client}, nil
	}
	svc, err := a.localService(ctx)
	if err != nil {
		return nil, err
	}
	return localDocuments{DocumentService: svc, role: a.Role()}, nil
}

// localService opens the configured store, once per process.
func (a *App) localService(ctx context.Context) (service.DocumentService, error) {
	if a.Service != nil {
		return a.Service, nil
	}
	repo, closer, err := openRepo(ctx, a.Config.Store, a.Logger)
	if err != nil {
		return nil, err
	}
	a.onClose(closer)
	a.Service = service.NewDocumentService(repo, service.NewLogUseCaseObserver(a.Logger))
	return a.Service, nil
}

func openRepo(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (repository.DocumentRepo, func() error, error) {
	logger = ctxlog.OrDiscard(logger)
	switch cfg.Backend {
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
		}
		logger.Debug("using redis store", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
		return repository.NewRedisDocumentRepo(client), client.Close, nil
	case config.BackendFile:
		repo, err := repository.NewFileDocumentRepo(cfg.FileDir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening document directory: %w", err)
		}
		logger.Debug("using file store", "dir", cfg.FileDir)
		return repo, func() error { return nil }, nil
	default:
		database, err := db.OpenDB(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening database: %w", err)
		}
		logger.Debug("using sqlite store", "path", cfg.SQLitePath)
		return repository.NewSQLiteDocumentRepo(database), database.Close, nil
	}
}

// customerView drops the nodes a customer may not see, keeping list order.
func customerView(nodes []domain.Node, role domain.Role) []domain.Node {
	if !role.IsCustomer() {
		return nodes
	}
	out := make([]domain.Node, 0, len(nodes))
	for i := range nodes {
		if flowchart.CustomerVisible(&nodes[i], role) {
			out = append(out, nodes[i])
		}
	}
	return out
}
