package flowchart

import "github.com/alexanderramin/flowdesk/internal/domain"

// Traversal helpers over the flat node list. Every walk is bounded by the
// node count so a corrupted (cyclic) import cannot hang the editor.

func indexOf(nodes []domain.Node, id string) int {
	for i := range nodes {
		if nodes[i].ID == id {
			return i
		}
	}
	return -1
}

// removeID drops every occurrence of id from ids, keeping a non-nil slice non-nil.
func removeID(ids []string, id string) []string {
	if ids == nil {
		return nil
	}
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// descendantsByChildren returns every id reachable from id through Children
// lists, breadth first, excluding id itself.
func descendantsByChildren(nodes []domain.Node, id string) []string {
	var out []string
	visited := map[string]bool{id: true}
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		i := indexOf(nodes, cur)
		if i < 0 {
			continue
		}
		for _, child := range nodes[i].Children {
			if visited[child] {
				continue
			}
			visited[child] = true
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out
}

// isDescendantByChildren reports whether candidate is reachable from root
// through Children lists.
func isDescendantByChildren(nodes []domain.Node, root, candidate string) bool {
	for _, d := range descendantsByChildren(nodes, root) {
		if d == candidate {
			return true
		}
	}
	return false
}

// isDescendantByContainer reports whether following ContainerID upward from
// id reaches ancestor.
func isDescendantByContainer(nodes []domain.Node, id, ancestor string) bool {
	for _, a := range ancestors(nodes, id) {
		if a == ancestor {
			return true
		}
	}
	return false
}

// ancestors returns the ContainerID chain of id, nearest first. The walk
// stops at a missing container or after len(nodes) steps.
func ancestors(nodes []domain.Node, id string) []string {
	var out []string
	i := indexOf(nodes, id)
	for steps := 0; i >= 0 && steps < len(nodes); steps++ {
		if !nodes[i].HasContainer() {
			break
		}
		parent := *nodes[i].ContainerID
		if parent == id {
			break
		}
		out = append(out, parent)
		i = indexOf(nodes, parent)
	}
	return out
}

func depth(nodes []domain.Node, id string) int {
	d := 0
	for _, a := range ancestors(nodes, id) {
		if indexOf(nodes, a) < 0 {
			break
		}
		d++
	}
	return d
}

// childrenOf returns the nodes whose ContainerID is id, in list order.
func childrenOf(nodes []domain.Node, id string) []domain.Node {
	var out []domain.Node
	for i := range nodes {
		if nodes[i].InContainer(id) {
			out = append(out, nodes[i])
		}
	}
	return out
}
