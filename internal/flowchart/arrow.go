package flowchart

import (
	"fmt"
	"slices"

	"github.com/alexanderramin/flowdesk/internal/domain"
)

// AddPoint inserts p directly after index. The new point is always interior,
// so after must address any point except the last.
func (s *Store) AddPoint(id string, after int, p domain.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.arrow(id)
	if err != nil {
		return err
	}
	if after < 0 || after >= len(n.Points)-1 {
		return fmt.Errorf("%w: arrow %s has no segment after point %d", domain.ErrInvalidNode, id, after)
	}
	n.Points = slices.Insert(n.Points, after+1, p)
	fitArrowSize(n)
	return nil
}

// MovePoint relocates the point at index. Endpoints may be moved.
func (s *Store) MovePoint(id string, index int, p domain.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.arrow(id)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(n.Points) {
		return fmt.Errorf("%w: arrow %s has no point %d", domain.ErrInvalidNode, id, index)
	}
	n.Points[index] = p
	fitArrowSize(n)
	return nil
}

// DeletePoint removes an interior control point. Requests to remove an
// endpoint, an out-of-range index, or to go below two points are ignored;
// the result reports whether a point was removed.
func (s *Store) DeletePoint(id string, index int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.arrow(id)
	if err != nil {
		return false, err
	}
	if len(n.Points) <= 2 || index <= 0 || index >= len(n.Points)-1 {
		return false, nil
	}
	n.Points = slices.Delete(n.Points, index, index+1)
	fitArrowSize(n)
	return true, nil
}

func (s *Store) arrow(id string) (*domain.Node, error) {
	i := indexOf(s.nodes, id)
	if i < 0 {
		return nil, fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}
	if s.nodes[i].Type != domain.NodeArrow {
		return nil, fmt.Errorf("%w: %s is a %s, not an arrow", domain.ErrInvalidNode, id, s.nodes[i].Type)
	}
	return &s.nodes[i], nil
}

// fitArrowSize makes the arrow's size the extent of its relative points.
func fitArrowSize(n *domain.Node) {
	var w, h float64
	for _, p := range n.Points {
		w = max(w, p.X)
		h = max(h, p.Y)
	}
	n.Size = domain.Size{Width: w, Height: h}
}
