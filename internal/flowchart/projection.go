package flowchart

import (
	"sort"

	"github.com/alexanderramin/flowdesk/internal/domain"
)

// Z-order layout: a base per type plus a per-depth offset.
const (
	zBasePhase = 0
	zBaseTask  = 1000
	zBaseLeaf  = 2000
	zDepthStep = 10
)

// Section groups list view rows.
type Section string

const (
	SectionPhases          Section = "phases"
	SectionUnassignedTasks Section = "unassigned_tasks"
	SectionUnassignedOther Section = "unassigned_other"
)

// Row is one line of the hierarchical list view.
type Row struct {
	Node        domain.Node
	Depth       int
	Section     Section
	HasChildren bool
	Collapsed   bool
}

// Visible reports whether n is drawn on the graph canvas for role.
func Visible(n *domain.Node, role domain.Role) bool {
	if !n.ShowInFlowchart {
		return false
	}
	if role.IsCustomer() && !n.ShowForCustomer {
		return false
	}
	return true
}

// CustomerVisible reports whether role may see n at all.
func CustomerVisible(n *domain.Node, role domain.Role) bool {
	return !role.IsCustomer() || n.ShowForCustomer
}

// ZIndex returns the stacking key of n within nodes: phases lowest, tasks
// above, every other type highest, each offset by nesting depth so a child
// is always drawn above its ancestors.
func ZIndex(nodes []domain.Node, n *domain.Node) int {
	base := zBaseLeaf
	switch n.Type {
	case domain.NodePhase:
		base = zBasePhase
	case domain.NodeTask:
		base = zBaseTask
	}
	return base + depth(nodes, n.ID)*zDepthStep
}

// GraphView returns the nodes drawn on the canvas for role, in paint order
// (ascending z-index, list order for ties).
func GraphView(nodes []domain.Node, role domain.Role) []domain.Node {
	type ranked struct {
		node domain.Node
		z    int
	}
	var out []ranked
	for i := range nodes {
		if Visible(&nodes[i], role) {
			out = append(out, ranked{node: nodes[i].Clone(), z: ZIndex(nodes, &nodes[i])})
		}
	}
	sort.SliceStable(out, func(a, b int) bool { return out[a].z < out[b].z })

	view := make([]domain.Node, len(out))
	for i, r := range out {
		view[i] = r.node
	}
	return view
}

// ListView flattens the chart into table rows: top-level phases with their
// nested phases, then tasks, then other nodes, indented by depth; followed by
// unassigned tasks and unassigned other nodes. Rows below a collapsed phase
// are omitted. Customers only see rows flagged for them.
func ListView(nodes []domain.Node, collapsed map[string]bool, role domain.Role) []Row {
	lv := listBuilder{nodes: nodes, collapsed: collapsed, role: role, seen: make(map[string]bool)}

	for _, p := range lv.topLevel(domain.NodePhase) {
		lv.phase(p, 0)
	}
	for _, t := range lv.topLevel(domain.NodeTask) {
		lv.task(t, 0, SectionUnassignedTasks)
	}
	for _, n := range lv.topLevelOther() {
		lv.add(n, 0, SectionUnassignedOther)
	}
	return lv.rows
}

type listBuilder struct {
	nodes     []domain.Node
	collapsed map[string]bool
	role      domain.Role
	rows      []Row
	seen      map[string]bool
}

func (lv *listBuilder) phase(p domain.Node, d int) {
	if !lv.add(p, d, SectionPhases) || lv.collapsed[p.ID] {
		return
	}
	for _, c := range lv.children(p.ID, func(t domain.NodeType) bool { return t == domain.NodePhase }) {
		lv.phase(c, d+1)
	}
	for _, c := range lv.children(p.ID, func(t domain.NodeType) bool { return t == domain.NodeTask }) {
		lv.task(c, d+1, SectionPhases)
	}
	for _, c := range lv.children(p.ID, func(t domain.NodeType) bool { return !t.IsContainer() }) {
		lv.add(c, d+1, SectionPhases)
	}
}

func (lv *listBuilder) task(t domain.Node, d int, section Section) {
	if !lv.add(t, d, section) {
		return
	}
	for _, c := range lv.children(t.ID, func(nt domain.NodeType) bool { return !nt.IsContainer() }) {
		lv.add(c, d+1, section)
	}
}

// add appends a row unless the node is hidden from the role or already
// listed. It reports whether the row was added.
func (lv *listBuilder) add(n domain.Node, d int, section Section) bool {
	if lv.seen[n.ID] || !CustomerVisible(&n, lv.role) {
		return false
	}
	lv.seen[n.ID] = true
	lv.rows = append(lv.rows, Row{
		Node:        n.Clone(),
		Depth:       d,
		Section:     section,
		HasChildren: len(childrenOf(lv.nodes, n.ID)) > 0,
		Collapsed:   lv.collapsed[n.ID],
	})
	return true
}

func (lv *listBuilder) children(id string, keep func(domain.NodeType) bool) []domain.Node {
	var out []domain.Node
	for _, c := range childrenOf(lv.nodes, id) {
		if keep(c.Type) {
			out = append(out, c)
		}
	}
	sortNodes(out)
	return out
}

// topLevel returns nodes of type t with no resolvable container.
func (lv *listBuilder) topLevel(t domain.NodeType) []domain.Node {
	var out []domain.Node
	for i := range lv.nodes {
		if lv.nodes[i].Type == t && !lv.hasLiveContainer(&lv.nodes[i]) {
			out = append(out, lv.nodes[i])
		}
	}
	sortNodes(out)
	return out
}

func (lv *listBuilder) topLevelOther() []domain.Node {
	var out []domain.Node
	for i := range lv.nodes {
		if !lv.nodes[i].Type.IsContainer() && !lv.hasLiveContainer(&lv.nodes[i]) {
			out = append(out, lv.nodes[i])
		}
	}
	return out
}

// hasLiveContainer treats a dangling ContainerID as no container.
func (lv *listBuilder) hasLiveContainer(n *domain.Node) bool {
	return n.HasContainer() && indexOf(lv.nodes, *n.ContainerID) >= 0
}

func sortNodes(nodes []domain.Node) {
	sort.SliceStable(nodes, func(a, b int) bool {
		return sortKey(&nodes[a]) < sortKey(&nodes[b])
	})
}

// GraphView returns the canvas projection of the store for role.
func (s *Store) GraphView(role domain.Role) []domain.Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return GraphView(s.nodes, role)
}

// ListView returns the list projection of the store.
func (s *Store) ListView(collapsed map[string]bool, role domain.Role) []Row {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ListView(s.nodes, collapsed, role)
}

// ZIndex returns the stacking key of the node with the given id.
func (s *Store) ZIndex(id string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := indexOf(s.nodes, id)
	if i < 0 {
		return 0, false
	}
	return ZIndex(s.nodes, &s.nodes[i]), true
}
