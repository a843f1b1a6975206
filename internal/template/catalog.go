// Package template loads flowchart templates authored as HCL or TOML files.
// Each file in the catalog directory becomes one template document whose id
// is the file name without its extension.
package template

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/alexanderramin/flowdesk/internal/ctxlog"
	"github.com/alexanderramin/flowdesk/internal/domain"
)

const (
	extHCL  = ".hcl"
	extTOML = ".toml"
)

// IsTemplateFile reports whether name has a template extension.
func IsTemplateFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case extHCL, extTOML:
		return !strings.HasPrefix(filepath.Base(name), ".")
	}
	return false
}

// IDFromPath derives a template id from its file name.
func IDFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LoadFile reads and builds a single template file.
func LoadFile(path string) (*domain.Document, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	id := IDFromPath(path)
	var def *Definition
	switch strings.ToLower(filepath.Ext(path)) {
	case extHCL:
		def, err = ParseHCL(id, src, path)
	case extTOML:
		def, err = ParseTOML(id, src, path)
	default:
		return nil, fmt.Errorf("unsupported template file %s", path)
	}
	if err != nil {
		return nil, err
	}
	return Build(def)
}

// LoadDir builds every template file in dir, sorted by file name. A broken
// file does not hide the others: the templates that built are returned
// together with the joined errors of the ones that did not.
func LoadDir(ctx context.Context, dir string) ([]*domain.Document, error) {
	logger := ctxlog.FromContext(ctx).With("dir", dir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading template dir: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var (
		docs []*domain.Document
		errs []error
		seen = make(map[string]string)
	)
	for _, entry := range entries {
		if entry.IsDir() || !IsTemplateFile(entry.Name()) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		id := IDFromPath(path)
		if prev, dup := seen[id]; dup {
			errs = append(errs, fmt.Errorf("template id %s declared by both %s and %s", id, prev, entry.Name()))
			continue
		}
		seen[id] = entry.Name()

		doc, err := LoadFile(path)
		if err != nil {
			logger.Warn("skipping template", "file", entry.Name(), "error", err)
			errs = append(errs, err)
			continue
		}
		docs = append(docs, doc)
	}

	logger.Debug("templates loaded", "count", len(docs), "failed", len(errs))
	return docs, errors.Join(errs...)
}
