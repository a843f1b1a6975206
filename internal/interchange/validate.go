package interchange

import (
	"fmt"

	"github.com/alexanderramin/flowdesk/internal/domain"
)

// ValidateNodes checks every imported node against its type's field rules
// and rejects duplicate ids. It returns all errors found, each prefixed with
// the node's position in the file.
func ValidateNodes(nodes []domain.Node) []error {
	var errs []error
	seen := make(map[string]int, len(nodes))
	for i := range nodes {
		if err := nodes[i].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("flowChart[%d]: %w", i, err))
			continue
		}
		if first, dup := seen[nodes[i].ID]; dup {
			errs = append(errs, fmt.Errorf("flowChart[%d]: id %q already used by flowChart[%d]", i, nodes[i].ID, first))
			continue
		}
		seen[nodes[i].ID] = i
	}
	return errs
}
