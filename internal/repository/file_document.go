package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/alexanderramin/flowdesk/internal/domain"
	"github.com/gofrs/flock"
)

const (
	lockTimeout    = 3 * time.Second
	lockRetryDelay = 50 * time.Millisecond
	lockFileName   = ".flowdesk.lock"
)

// FileDocumentRepo implements DocumentRepo as one JSON file per document
// under dir/<kind>/<id>.json. A lock file in dir serializes writers across
// processes; the mutex does the same within this one.
type FileDocumentRepo struct {
	dir  string
	mu   sync.Mutex
	lock *flock.Flock
}

// NewFileDocumentRepo creates the directory layout under dir if needed.
func NewFileDocumentRepo(dir string) (*FileDocumentRepo, error) {
	for kind := range domain.ValidDocumentKinds {
		if err := os.MkdirAll(filepath.Join(dir, string(kind)), 0755); err != nil {
			return nil, fmt.Errorf("creating document directory: %w", err)
		}
	}
	return &FileDocumentRepo{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, lockFileName)),
	}, nil
}

func (r *FileDocumentRepo) path(kind domain.DocumentKind, id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return "", fmt.Errorf("invalid document id %q", id)
	}
	return filepath.Join(r.dir, string(kind), id+".json"), nil
}

// withLock runs fn holding both the in-process mutex and the file lock.
func (r *FileDocumentRepo) withLock(ctx context.Context, fn func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	locked, err := r.lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquiring store lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("acquiring store lock: timed out")
	}
	defer func() { _ = r.lock.Unlock() }()

	return fn()
}

func (r *FileDocumentRepo) Create(ctx context.Context, d *domain.Document) error {
	path, err := r.path(d.Kind, d.ID)
	if err != nil {
		return err
	}
	return r.withLock(ctx, func() error {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s %s already exists", d.Kind, d.ID)
		}
		return writeDocument(path, d)
	})
}

func (r *FileDocumentRepo) GetByID(ctx context.Context, kind domain.DocumentKind, id string) (*domain.Document, error) {
	path, err := r.path(kind, id)
	if err != nil {
		return nil, err
	}
	var d *domain.Document
	err = r.withLock(ctx, func() error {
		var err error
		d, err = readDocument(path, kind, id)
		return err
	})
	return d, err
}

func (r *FileDocumentRepo) List(ctx context.Context, kind domain.DocumentKind) ([]*domain.Document, error) {
	var docs []*domain.Document
	err := r.withLock(ctx, func() error {
		entries, err := os.ReadDir(filepath.Join(r.dir, string(kind)))
		if err != nil {
			return fmt.Errorf("listing %ss: %w", kind, err)
		}
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
				continue
			}
			id := strings.TrimSuffix(e.Name(), ".json")
			d, err := readDocument(filepath.Join(r.dir, string(kind), e.Name()), kind, id)
			if err != nil {
				return err
			}
			d.Nodes = nil
			docs = append(docs, d)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sortHeaders(docs)
	return docs, nil
}

func (r *FileDocumentRepo) ReplaceNodes(ctx context.Context, kind domain.DocumentKind, id string, nodes []domain.Node) error {
	path, err := r.path(kind, id)
	if err != nil {
		return err
	}
	return r.withLock(ctx, func() error {
		d, err := readDocument(path, kind, id)
		if err != nil {
			return err
		}
		d.Nodes = domain.CloneNodes(nodes)
		d.UpdatedAt = nowUTC()
		return writeDocument(path, d)
	})
}

func (r *FileDocumentRepo) Delete(ctx context.Context, kind domain.DocumentKind, id string) error {
	path, err := r.path(kind, id)
	if err != nil {
		return err
	}
	return r.withLock(ctx, func() error {
		if err := os.Remove(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return notFound(kind, id)
			}
			return fmt.Errorf("deleting %s: %w", kind, err)
		}
		return nil
	})
}

func readDocument(path string, kind domain.DocumentKind, id string) (*domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, notFound(kind, id)
		}
		return nil, fmt.Errorf("reading %s: %w", kind, err)
	}
	return decodeDocument(data)
}

// writeDocument replaces path atomically via a temp file and rename.
func writeDocument(path string, d *domain.Document) error {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s %s: %w", d.Kind, d.ID, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
