package flowchart

import (
	"errors"
	"fmt"
	"slices"

	"github.com/alexanderramin/flowdesk/internal/domain"
)

// ErrInconsistent marks a structural violation found by CheckInvariants.
var ErrInconsistent = errors.New("inconsistent flowchart")

// CheckInvariants reports every structural violation in the store.
func (s *Store) CheckInvariants() []error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return CheckInvariants(s.nodes)
}

// CheckInvariants validates a node list: per-node field rules, unique ids,
// containers that exist and may hold the node, agreement between ContainerID
// and the container's Children list in both directions, and an acyclic
// containment relation. An empty result means the list is consistent.
func CheckInvariants(nodes []domain.Node) []error {
	var errs []error
	report := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInconsistent}, args...)...))
	}

	seen := make(map[string]bool, len(nodes))
	for i := range nodes {
		n := &nodes[i]
		if err := n.Validate(); err != nil {
			errs = append(errs, err)
		}
		if seen[n.ID] {
			report("duplicate node id %s", n.ID)
		}
		seen[n.ID] = true
	}

	for i := range nodes {
		n := &nodes[i]
		if n.HasContainer() {
			p := indexOf(nodes, *n.ContainerID)
			switch {
			case p < 0:
				report("node %s references missing container %s", n.ID, *n.ContainerID)
			case !domain.CanContain(nodes[p].Type, n.Type):
				report("%s %s cannot contain %s %s", nodes[p].Type, nodes[p].ID, n.Type, n.ID)
			case !slices.Contains(nodes[p].Children, n.ID):
				report("container %s does not list child %s", nodes[p].ID, n.ID)
			}
		}
		for _, c := range n.Children {
			j := indexOf(nodes, c)
			if j < 0 {
				report("node %s lists missing child %s", n.ID, c)
				continue
			}
			if !nodes[j].InContainer(n.ID) {
				report("node %s lists child %s that belongs elsewhere", n.ID, c)
			}
		}
		if cyclic(nodes, n.ID) {
			report("container chain of node %s does not terminate", n.ID)
		}
	}
	return errs
}

// cyclic reports whether walking ContainerID upward from id never reaches
// the top level.
func cyclic(nodes []domain.Node, id string) bool {
	i := indexOf(nodes, id)
	for steps := 0; i >= 0 && steps <= len(nodes); steps++ {
		if !nodes[i].HasContainer() {
			return false
		}
		parent := *nodes[i].ContainerID
		if parent == id {
			return true
		}
		i = indexOf(nodes, parent)
	}
	return i >= 0
}
