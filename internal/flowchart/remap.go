package flowchart

import "github.com/alexanderramin/flowdesk/internal/domain"

// Remap returns a deep copy of nodes with every id replaced by a fresh one
// from newID. Container and child references are rewritten to match;
// references to ids outside the list are dropped. Used when a template's
// chart is instantiated into a new project.
func Remap(nodes []domain.Node, newID func() string) []domain.Node {
	ids := make(map[string]string, len(nodes))
	for _, n := range nodes {
		if _, ok := ids[n.ID]; !ok {
			ids[n.ID] = newID()
		}
	}

	out := domain.CloneNodes(nodes)
	for i := range out {
		n := &out[i]
		n.ID = ids[n.ID]
		if n.HasContainer() {
			if mapped, ok := ids[*n.ContainerID]; ok {
				n.ContainerID = &mapped
			} else {
				n.ContainerID = nil
			}
		}
		if n.Children != nil {
			children := make([]string, 0, len(n.Children))
			for _, c := range n.Children {
				if mapped, ok := ids[c]; ok {
					children = append(children, mapped)
				}
			}
			n.Children = children
		}
	}
	return out
}

// NewID returns a fresh node id from the store's generator.
func (s *Store) NewID() string {
	return s.newID()
}
