// Package flowchart holds the in-memory node graph of one flowchart and every
// operation that mutates or projects it: the node store, drop-release
// containment resolution, sibling ordering, arrow control points, and the
// graph/list/z-order projections.
//
// The node list is flat; containment is a parent pointer (ContainerID) with
// a redundant Children cache on phases and tasks. Every mutation keeps both
// sides consistent. Traversals are computed on demand from the flat list.
package flowchart

import (
	"fmt"
	"slices"
	"sync"

	"github.com/alexanderramin/flowdesk/internal/domain"
	"github.com/google/uuid"
)

// Delta is a shallow field update. Nil fields are left unchanged.
// Containment is not part of a delta; it changes only through Drop,
// Detach, and Delete.
type Delta struct {
	Label           *string
	Description     *string
	Link            *string
	Position        *domain.Point
	Size            *domain.Size
	Status          *domain.Status
	CustomStatus    *string
	Shape           *domain.Shape
	ShowInFlowchart *bool
	ShowForCustomer *bool
	SortOrder       *int
	Points          []domain.Point
}

// Store is the authoritative ordered node list for one flowchart.
// The zero value is not usable; construct with NewStore.
type Store struct {
	mu    sync.RWMutex
	nodes []domain.Node
	newID func() string
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithIDGenerator overrides the node id generator.
func WithIDGenerator(fn func() string) StoreOption {
	return func(s *Store) {
		s.newID = fn
	}
}

// NewStore creates an empty store. Ids default to time-ordered UUIDs.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{newID: newTimeOrderedID}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func newTimeOrderedID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Create appends a new node of type t with type defaults and the given
// initial fields applied. The node is never placed inside a container.
func (s *Store) Create(t domain.NodeType, fields Delta) (domain.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := domain.NewNode(s.newID(), t)
	if err != nil {
		return domain.Node{}, err
	}
	if err := applyDelta(&n, fields); err != nil {
		return domain.Node{}, err
	}
	if err := n.Validate(); err != nil {
		return domain.Node{}, err
	}
	s.nodes = append(s.nodes, n)
	return n.Clone(), nil
}

// Get returns a copy of the node with the given id.
func (s *Store) Get(id string) (domain.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i := indexOf(s.nodes, id)
	if i < 0 {
		return domain.Node{}, false
	}
	return s.nodes[i].Clone(), true
}

// Update merges delta into the node. Setting a visibility flag on a phase
// applies the same value to every descendant at the moment of the change.
func (s *Store) Update(id string, delta Delta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.nodes, id)
	if i < 0 {
		return fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}
	updated := s.nodes[i].Clone()
	if err := applyDelta(&updated, delta); err != nil {
		return err
	}
	if err := updated.Validate(); err != nil {
		return err
	}
	s.nodes[i] = updated

	if updated.Type == domain.NodePhase && (delta.ShowInFlowchart != nil || delta.ShowForCustomer != nil) {
		for _, d := range descendantsByChildren(s.nodes, id) {
			j := indexOf(s.nodes, d)
			if delta.ShowInFlowchart != nil {
				s.nodes[j].ShowInFlowchart = *delta.ShowInFlowchart
			}
			if delta.ShowForCustomer != nil {
				s.nodes[j].ShowForCustomer = *delta.ShowForCustomer
			}
		}
	}
	return nil
}

// Delete removes the node. Its children are orphaned: their ContainerID is
// cleared rather than being deleted with it.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := indexOf(s.nodes, id)
	if i < 0 {
		return fmt.Errorf("node %s: %w", id, domain.ErrNotFound)
	}
	s.nodes = slices.Delete(s.nodes, i, i+1)
	for j := range s.nodes {
		n := &s.nodes[j]
		if n.InContainer(id) {
			n.ContainerID = nil
		}
		n.Children = removeID(n.Children, id)
	}
	return nil
}

// ReplaceAll swaps the whole node list, as on load or import. Nodes are
// normalized and validated first; on error the store is left unchanged.
func (s *Store) ReplaceAll(nodes []domain.Node) error {
	next := domain.CloneNodes(nodes)
	seen := make(map[string]bool, len(next))
	for i := range next {
		next[i].Normalize()
		if err := next[i].Validate(); err != nil {
			return err
		}
		if seen[next[i].ID] {
			return fmt.Errorf("%w: duplicate node id %s", domain.ErrInvalidNode, next[i].ID)
		}
		seen[next[i].ID] = true
	}
	if next == nil {
		next = []domain.Node{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nodes = next
	return nil
}

// Nodes returns a deep copy of the node list in store order.
func (s *Store) Nodes() []domain.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneNodes(s.nodes)
}

// Snapshot is Nodes under a name that reads well at save call sites. It is
// safe to call from a goroutine other than the one mutating the store.
func (s *Store) Snapshot() []domain.Node {
	return s.Nodes()
}

// Len returns the number of nodes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// Descendants returns the ids of every node transitively contained in id,
// following Children lists.
func (s *Store) Descendants(id string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return descendantsByChildren(s.nodes, id)
}

// Ancestors returns the container chain of id, nearest first.
func (s *Store) Ancestors(id string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ancestors(s.nodes, id)
}

// Depth returns the number of containers above id.
func (s *Store) Depth(id string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return depth(s.nodes, id)
}

func applyDelta(n *domain.Node, d Delta) error {
	if n.Type == domain.NodeArrow && (d.Label != nil || d.Description != nil || d.Link != nil) {
		return fmt.Errorf("%w: arrow %s has no text fields", domain.ErrInvalidNode, n.ID)
	}
	if !n.Type.IsContainer() && (d.Status != nil || d.CustomStatus != nil || d.Shape != nil) {
		return fmt.Errorf("%w: %s node %s has no status or shape", domain.ErrInvalidNode, n.Type, n.ID)
	}
	if d.Points != nil && n.Type != domain.NodeArrow {
		return fmt.Errorf("%w: %s node %s has no points", domain.ErrInvalidNode, n.Type, n.ID)
	}

	if d.Label != nil {
		n.Label = *d.Label
	}
	if d.Description != nil {
		n.Description = *d.Description
	}
	if d.Link != nil {
		n.Link = *d.Link
	}
	if d.Position != nil {
		n.Position = *d.Position
	}
	if d.Size != nil {
		n.Size = *d.Size
	}
	if d.Status != nil {
		n.Status = *d.Status
		if n.Status != domain.StatusCustom {
			n.CustomStatus = ""
		}
	}
	if d.CustomStatus != nil {
		n.CustomStatus = *d.CustomStatus
	}
	if d.Shape != nil {
		n.Shape = *d.Shape
	}
	if d.ShowInFlowchart != nil {
		n.ShowInFlowchart = *d.ShowInFlowchart
	}
	if d.ShowForCustomer != nil {
		n.ShowForCustomer = *d.ShowForCustomer
	}
	if d.SortOrder != nil {
		v := *d.SortOrder
		n.SortOrder = &v
	}
	if d.Points != nil {
		n.Points = append([]domain.Point{}, d.Points...)
		fitArrowSize(n)
	}
	return nil
}
