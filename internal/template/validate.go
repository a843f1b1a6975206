package template

import (
	"fmt"

	"github.com/alexanderramin/flowdesk/internal/domain"
)

// ValidateDefinition checks a resolved Definition for structural errors.
// Returns a slice of errors (empty if valid).
func ValidateDefinition(def *Definition) []error {
	var errs []error

	if def.ID == "" {
		errs = append(errs, fmt.Errorf("template id is required"))
	}
	if def.Name == "" {
		errs = append(errs, fmt.Errorf("template name is required"))
	}
	if len(def.Nodes) == 0 {
		errs = append(errs, fmt.Errorf("at least one node is required"))
	}

	ids := make(map[string]string, len(def.Nodes))
	for i, n := range def.Nodes {
		if n.ID == "" {
			errs = append(errs, fmt.Errorf("node[%d]: id is required", i))
		}
		if !domain.ValidNodeTypes[domain.NodeType(n.Type)] {
			errs = append(errs, fmt.Errorf("node[%d]: unknown type %q", i, n.Type))
		}
		if _, dup := ids[n.ID]; dup && n.ID != "" {
			errs = append(errs, fmt.Errorf("node[%d]: duplicate id %q", i, n.ID))
		}
		ids[n.ID] = n.Type
	}

	for i, n := range def.Nodes {
		if n.Container == "" {
			continue
		}
		parent, ok := ids[n.Container]
		switch {
		case !ok:
			errs = append(errs, fmt.Errorf("node[%d]: container %q is not declared", i, n.Container))
		case !domain.CanContain(domain.NodeType(parent), domain.NodeType(n.Type)):
			errs = append(errs, fmt.Errorf("node[%d]: %s %q cannot hold %s %q", i, parent, n.Container, n.Type, n.ID))
		}
	}

	return errs
}
