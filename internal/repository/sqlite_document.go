package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/flowdesk/internal/db"
	"github.com/alexanderramin/flowdesk/internal/domain"
)

// SQLiteDocumentRepo implements DocumentRepo using a SQLite database.
// Writes that touch more than one row run inside a unit of work.
type SQLiteDocumentRepo struct {
	db  *sql.DB
	uow db.UnitOfWork
}

// SQLiteOption configures a SQLiteDocumentRepo.
type SQLiteOption func(*SQLiteDocumentRepo)

// WithUnitOfWork replaces the transaction runner, mainly so tests can inject
// failures part way through a write.
func WithUnitOfWork(uow db.UnitOfWork) SQLiteOption {
	return func(r *SQLiteDocumentRepo) {
		r.uow = uow
	}
}

// NewSQLiteDocumentRepo creates a new SQLiteDocumentRepo.
func NewSQLiteDocumentRepo(database *sql.DB, opts ...SQLiteOption) *SQLiteDocumentRepo {
	r := &SQLiteDocumentRepo{db: database, uow: db.NewSQLiteUnitOfWork(database)}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

const nodeColumns = `id, type, label, description, link, x, y, width, height, container_id, children,
	status, custom_status, shape, show_in_flowchart, show_for_customer, sort_order, points`

func (r *SQLiteDocumentRepo) Create(ctx context.Context, d *domain.Document) error {
	return r.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO documents (kind, id, name, description, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			string(d.Kind),
			d.ID,
			d.Name,
			d.Description,
			d.CreatedAt.UTC().Format(time.RFC3339),
			d.UpdatedAt.UTC().Format(time.RFC3339),
		)
		if err != nil {
			return fmt.Errorf("inserting %s: %w", d.Kind, err)
		}
		return insertNodes(ctx, tx, d.Kind, d.ID, d.Nodes)
	})
}

func (r *SQLiteDocumentRepo) GetByID(ctx context.Context, kind domain.DocumentKind, id string) (*domain.Document, error) {
	var d *domain.Document
	err := r.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		row := tx.QueryRowContext(ctx,
			`SELECT kind, id, name, description, created_at, updated_at
			FROM documents WHERE kind = ? AND id = ?`, string(kind), id)
		var err error
		d, err = scanDocument(row)
		if errors.Is(err, sql.ErrNoRows) {
			return notFound(kind, id)
		}
		if err != nil {
			return err
		}
		d.Nodes, err = listNodes(ctx, tx, kind, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *SQLiteDocumentRepo) List(ctx context.Context, kind domain.DocumentKind) ([]*domain.Document, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT kind, id, name, description, created_at, updated_at
		FROM documents WHERE kind = ? ORDER BY updated_at DESC, name`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("listing %ss: %w", kind, err)
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

func (r *SQLiteDocumentRepo) ReplaceNodes(ctx context.Context, kind domain.DocumentKind, id string, nodes []domain.Node) error {
	return r.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE documents SET updated_at = ? WHERE kind = ? AND id = ?`,
			nowUTC().Format(time.RFC3339), string(kind), id)
		if err != nil {
			return fmt.Errorf("touching %s: %w", kind, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound(kind, id)
		}
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM flowchart_nodes WHERE doc_kind = ? AND doc_id = ?`, string(kind), id); err != nil {
			return fmt.Errorf("clearing flowchart: %w", err)
		}
		return insertNodes(ctx, tx, kind, id, nodes)
	})
}

func (r *SQLiteDocumentRepo) Delete(ctx context.Context, kind domain.DocumentKind, id string) error {
	return r.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		// Nodes are removed explicitly; foreign_keys is a per-connection pragma.
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM flowchart_nodes WHERE doc_kind = ? AND doc_id = ?`, string(kind), id); err != nil {
			return fmt.Errorf("deleting flowchart: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE kind = ? AND id = ?`, string(kind), id)
		if err != nil {
			return fmt.Errorf("deleting %s: %w", kind, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return notFound(kind, id)
		}
		return nil
	})
}

func insertNodes(ctx context.Context, tx db.DBTX, kind domain.DocumentKind, docID string, nodes []domain.Node) error {
	query := `INSERT INTO flowchart_nodes (doc_kind, doc_id, position, ` + nodeColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	for i := range nodes {
		n := &nodes[i]
		children, err := jsonColumn(n.Children)
		if err != nil {
			return fmt.Errorf("encoding children of %s: %w", n.ID, err)
		}
		points, err := jsonColumn(n.Points)
		if err != nil {
			return fmt.Errorf("encoding points of %s: %w", n.ID, err)
		}
		_, err = tx.ExecContext(ctx, query,
			string(kind), docID, i,
			n.ID,
			string(n.Type),
			n.Label,
			n.Description,
			n.Link,
			n.Position.X, n.Position.Y,
			n.Size.Width, n.Size.Height,
			nullableStringToValue(n.ContainerID),
			children,
			string(n.Status),
			n.CustomStatus,
			string(n.Shape),
			boolToInt(n.ShowInFlowchart),
			boolToInt(n.ShowForCustomer),
			nullableIntToValue(n.SortOrder),
			points,
		)
		if err != nil {
			return fmt.Errorf("inserting node %s: %w", n.ID, err)
		}
	}
	return nil
}

func listNodes(ctx context.Context, tx db.DBTX, kind domain.DocumentKind, docID string) ([]domain.Node, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT `+nodeColumns+` FROM flowchart_nodes
		WHERE doc_kind = ? AND doc_id = ? ORDER BY position`, string(kind), docID)
	if err != nil {
		return nil, fmt.Errorf("listing nodes: %w", err)
	}
	defer rows.Close()

	nodes := []domain.Node{}
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (*domain.Document, error) {
	var d domain.Document
	var kind, createdAt, updatedAt string
	if err := s.Scan(&kind, &d.ID, &d.Name, &d.Description, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}
	d.Kind = domain.DocumentKind(kind)

	var err error
	if d.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return nil, err
	}
	if d.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

func scanNode(s scanner) (domain.Node, error) {
	var n domain.Node
	var nodeType, status, shape string
	var containerID, children, points sql.NullString
	var sortOrder sql.NullInt64
	var showInFlowchart, showForCustomer int

	err := s.Scan(
		&n.ID, &nodeType, &n.Label, &n.Description, &n.Link,
		&n.Position.X, &n.Position.Y, &n.Size.Width, &n.Size.Height,
		&containerID, &children,
		&status, &n.CustomStatus, &shape,
		&showInFlowchart, &showForCustomer, &sortOrder, &points,
	)
	if err != nil {
		return n, fmt.Errorf("scanning node: %w", err)
	}

	n.Type = domain.NodeType(nodeType)
	n.Status = domain.Status(status)
	n.Shape = domain.Shape(shape)
	n.ShowInFlowchart = intToBool(showInFlowchart)
	n.ShowForCustomer = intToBool(showForCustomer)
	if containerID.Valid {
		n.ContainerID = &containerID.String
	}
	if sortOrder.Valid {
		v := int(sortOrder.Int64)
		n.SortOrder = &v
	}
	if n.Children, err = parseJSONColumn[string](children); err != nil {
		return n, fmt.Errorf("node %s: %w", n.ID, err)
	}
	if n.Points, err = parseJSONColumn[domain.Point](points); err != nil {
		return n, fmt.Errorf("node %s: %w", n.ID, err)
	}
	n.Normalize()
	return n, nil
}
