package flowchart

import (
	"fmt"
	"sort"

	"github.com/alexanderramin/flowdesk/internal/domain"
)

// SortStep is the gap between lazily assigned sibling sort keys.
const SortStep = 10

// Direction is the way a sibling shift moves a node in display order.
type Direction int

const (
	Up   Direction = -1
	Down Direction = 1
)

// ParseDirection maps "up"/"down" to a Direction.
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	default:
		return 0, fmt.Errorf("direction must be up or down, got %q", s)
	}
}

// Shift swaps the node's sortOrder with its neighbour in the requested
// direction among siblings of the same type sharing its container. A group
// with missing or repeated keys is first renumbered in display order as
// multiples of SortStep. It reports whether a swap happened; at a boundary
// it is a no-op.
func (s *Store) Shift(id string, dir Direction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.nodes, id)
	if i < 0 {
		return false, fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}
	if !s.nodes[i].Type.IsContainer() {
		return false, fmt.Errorf("%w: only phases and tasks are ordered, %s is a %s", domain.ErrInvalidNode, id, s.nodes[i].Type)
	}

	group := siblingIndexes(s.nodes, i)
	sortBySortOrder(s.nodes, group)
	renumberIfAmbiguous(s.nodes, group)

	pos := -1
	for k, j := range group {
		if j == i {
			pos = k
			break
		}
	}
	adj := pos + int(dir)
	if adj < 0 || adj >= len(group) {
		return false, nil
	}

	a, b := &s.nodes[group[pos]], &s.nodes[group[adj]]
	*a.SortOrder, *b.SortOrder = *b.SortOrder, *a.SortOrder
	return true, nil
}

// Siblings returns the node's sibling group (itself included) in display order.
func (s *Store) Siblings(id string) ([]domain.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := indexOf(s.nodes, id)
	if i < 0 {
		return nil, fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}
	group := siblingIndexes(s.nodes, i)
	sortBySortOrder(s.nodes, group)
	out := make([]domain.Node, len(group))
	for k, j := range group {
		out[k] = s.nodes[j].Clone()
	}
	return out, nil
}

// AssignSortOrders gives every phase and task group complete sort keys.
func (s *Store) AssignSortOrders() {
	s.mu.Lock()
	defer s.mu.Unlock()

	done := make(map[int]bool)
	for i := range s.nodes {
		if done[i] || !s.nodes[i].Type.IsContainer() {
			continue
		}
		group := siblingIndexes(s.nodes, i)
		for _, j := range group {
			done[j] = true
		}
		sortBySortOrder(s.nodes, group)
		renumberIfAmbiguous(s.nodes, group)
	}
}

// siblingIndexes returns the indexes of nodes sharing type and container with
// nodes[i], in list order.
func siblingIndexes(nodes []domain.Node, i int) []int {
	var group []int
	for j := range nodes {
		if nodes[j].Type == nodes[i].Type && nodes[j].SameContainer(&nodes[i]) {
			group = append(group, j)
		}
	}
	return group
}

// renumberIfAmbiguous rewrites every key in group, already in display order,
// to k*SortStep when a key is missing or shared. Complete, distinct keys are
// left alone.
func renumberIfAmbiguous(nodes []domain.Node, group []int) {
	seen := make(map[int]bool, len(group))
	ambiguous := false
	for _, j := range group {
		o := nodes[j].SortOrder
		if o == nil || seen[*o] {
			ambiguous = true
			break
		}
		seen[*o] = true
	}
	if !ambiguous {
		return
	}
	for k, j := range group {
		v := k * SortStep
		nodes[j].SortOrder = &v
	}
}

// sortBySortOrder orders group (indexes into nodes) by sortOrder ascending,
// treating a missing key as 0 and keeping list order for ties.
func sortBySortOrder(nodes []domain.Node, group []int) {
	sort.SliceStable(group, func(a, b int) bool {
		return sortKey(&nodes[group[a]]) < sortKey(&nodes[group[b]])
	})
}

func sortKey(n *domain.Node) int {
	if n.SortOrder == nil {
		return 0
	}
	return *n.SortOrder
}
