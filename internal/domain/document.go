package domain

import (
	"fmt"
	"strings"
	"time"
)

// Document owns one ordered flowchart: either a client project's chart or a
// reusable template.
type Document struct {
	Kind        DocumentKind `json:"kind"`
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Nodes       []Node       `json:"flowChart,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// Validate checks the document header; nodes are validated separately.
func (d *Document) Validate() error {
	if !ValidDocumentKinds[d.Kind] {
		return fmt.Errorf("unknown document kind %q", d.Kind)
	}
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("document name is required")
	}
	return nil
}

// DisplayID returns the best short identifier for display.
// It truncates ID to 8 characters.
func (d *Document) DisplayID() string {
	if len(d.ID) >= 8 {
		return d.ID[:8]
	}
	return d.ID
}

// CloneNodes returns a deep copy of nodes.
func CloneNodes(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, len(nodes))
	for i := range nodes {
		out[i] = nodes[i].Clone()
	}
	return out
}
