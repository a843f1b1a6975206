// Package interchange reads and writes flowchart export files. An export is
// an object holding the chart name and its node list; imports also accept a
// bare node array. JSON is the portal's format, YAML is offered for files
// edited by hand.
package interchange

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alexanderramin/flowdesk/internal/domain"
)

// File is the top-level structure of an export.
type File struct {
	Name      string        `json:"name" yaml:"name"`
	FlowChart []domain.Node `json:"flowChart" yaml:"flowChart"`
}

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat accepts "json", "yaml" or "yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json", "":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q (expected json or yaml)", s)
	}
}

// FormatForPath picks the format from a file extension, defaulting to JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// LoadFile reads and decodes an export file, validating its nodes.
func LoadFile(path string) ([]domain.Node, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Import(f, FormatForPath(path))
}

// ExportFileName returns the file name offered for a chart's export.
func ExportFileName(name string, format Format) string {
	base := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		default:
			return -1
		}
	}, strings.TrimSpace(name))
	if base == "" {
		base = "flowchart"
	}
	return base + "-flowchart." + string(format)
}
