package flowchart

import (
	"fmt"
	"sort"

	"github.com/alexanderramin/flowdesk/internal/domain"
)

// Minimum node size a resize may produce.
const (
	MinWidth  = 40.0
	MinHeight = 30.0
)

// DropResult reports the outcome of a drop-release resolution.
type DropResult struct {
	// ContainerID is the node's container after resolution (nil for top level).
	ContainerID *string
	// Changed is true when the node moved to a different container.
	Changed bool
}

// Move translates the node and all of its transitive descendants by the
// same delta, as during a drag gesture. Descendants are found by walking
// each node's ContainerID chain up to the dragged node.
func (s *Store) Move(id string, dx, dy float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.nodes, id)
	if i < 0 {
		return fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}
	for j := range s.nodes {
		if j == i || isDescendantByContainer(s.nodes, s.nodes[j].ID, id) {
			s.nodes[j].Position.X += dx
			s.nodes[j].Position.Y += dy
		}
	}
	return nil
}

// Drop resolves which container the node belongs to after it is released at
// its current position.
//
// Candidates are phases and tasks (other than the node) whose bounding box
// contains the node's center, tried innermost first. The first candidate
// that may hold the node's type and is not the node's own descendant wins.
// When no candidate qualifies the node keeps its previous container.
func (s *Store) Drop(id string) (DropResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.nodes, id)
	if i < 0 {
		return DropResult{}, fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}
	dropped := s.nodes[i]
	current := DropResult{ContainerID: cloneIDPtr(dropped.ContainerID)}

	target, ok := s.resolveContainer(dropped)
	if !ok || dropped.InContainer(target) {
		return current, nil
	}

	s.setContainer(i, &target)
	return DropResult{ContainerID: cloneIDPtr(&target), Changed: true}, nil
}

// resolveContainer picks the innermost valid container under the node's center.
func (s *Store) resolveContainer(dropped domain.Node) (string, bool) {
	center := dropped.Center()

	type candidate struct {
		index int
		depth int
	}
	var candidates []candidate
	for j := range s.nodes {
		n := &s.nodes[j]
		if n.ID == dropped.ID || !n.Type.IsContainer() {
			continue
		}
		if n.Bounds().Contains(center) {
			candidates = append(candidates, candidate{index: j, depth: depth(s.nodes, n.ID)})
		}
	}

	// Deepest first; at equal depth the later (topmost drawn) node wins.
	sort.SliceStable(candidates, func(a, b int) bool {
		if candidates[a].depth != candidates[b].depth {
			return candidates[a].depth > candidates[b].depth
		}
		return candidates[a].index > candidates[b].index
	})

	for _, c := range candidates {
		cand := s.nodes[c.index]
		if !domain.CanContain(cand.Type, dropped.Type) {
			continue
		}
		if cand.ID == dropped.ID || isDescendantByChildren(s.nodes, dropped.ID, cand.ID) {
			continue
		}
		// Children caches from an inconsistent import may lag behind the
		// parent pointers, so the pointer chain is checked as well.
		if isDescendantByContainer(s.nodes, cand.ID, dropped.ID) {
			continue
		}
		return cand.ID, true
	}
	return "", false
}

// Detach moves the node to the top level, removing it from its container.
func (s *Store) Detach(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.nodes, id)
	if i < 0 {
		return fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}
	s.setContainer(i, nil)
	return nil
}

// setContainer rewrites containment for nodes[i]: the id is removed from
// every Children list and appended to the new container's list.
func (s *Store) setContainer(i int, containerID *string) {
	id := s.nodes[i].ID
	s.nodes[i].ContainerID = cloneIDPtr(containerID)
	for j := range s.nodes {
		s.nodes[j].Children = removeID(s.nodes[j].Children, id)
	}
	if containerID == nil {
		return
	}
	if p := indexOf(s.nodes, *containerID); p >= 0 {
		s.nodes[p].Children = append(s.nodes[p].Children, id)
	}
}

// Resize sets the node's size, clamped to the minimum. It never changes
// containment.
func (s *Store) Resize(id string, width, height float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.nodes, id)
	if i < 0 {
		return fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}
	if s.nodes[i].Type == domain.NodeArrow {
		return fmt.Errorf("%w: arrow %s is sized by its points", domain.ErrInvalidNode, id)
	}
	s.nodes[i].Size = domain.Size{Width: max(width, MinWidth), Height: max(height, MinHeight)}
	return nil
}

func cloneIDPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
