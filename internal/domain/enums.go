package domain

type NodeType string

const (
	NodePhase     NodeType = "phase"
	NodeTask      NodeType = "task"
	NodeSubFlow   NodeType = "subFlow"
	NodeIterative NodeType = "iterative"
	NodeNote      NodeType = "note"
	NodeExtra     NodeType = "extra"
	NodeArrow     NodeType = "arrow"
)

// ValidNodeTypes is the canonical set of accepted node type strings.
var ValidNodeTypes = map[NodeType]bool{
	NodePhase: true, NodeTask: true, NodeSubFlow: true, NodeIterative: true,
	NodeNote: true, NodeExtra: true, NodeArrow: true,
}

// allowedChildren maps a container type to the child types it may hold.
// Types missing from the map are leaves.
var allowedChildren = map[NodeType]map[NodeType]bool{
	NodePhase: {
		NodeTask: true, NodePhase: true, NodeSubFlow: true,
		NodeIterative: true, NodeNote: true, NodeExtra: true,
	},
	NodeTask: {
		NodeSubFlow: true, NodeIterative: true, NodeNote: true, NodeExtra: true,
	},
}

// IsContainer reports whether nodes of this type may hold children.
func (t NodeType) IsContainer() bool {
	return t == NodePhase || t == NodeTask
}

// CanContain reports whether a node of type parent may hold a node of type child.
func CanContain(parent, child NodeType) bool {
	return allowedChildren[parent][child]
}

type Status string

const (
	StatusNotStarted Status = "not-started"
	StatusPlanning   Status = "planning"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
	StatusCustom     Status = "custom"
)

var ValidStatuses = map[Status]bool{
	StatusNotStarted: true, StatusPlanning: true, StatusInProgress: true,
	StatusDone: true, StatusCustom: true,
}

type Shape string

const (
	ShapeRectangle     Shape = "rectangle"
	ShapeEllipse       Shape = "ellipse"
	ShapeParallelogram Shape = "parallelogram"
	ShapeDiamond       Shape = "diamond"
)

var ValidShapes = map[Shape]bool{
	ShapeRectangle: true, ShapeEllipse: true, ShapeParallelogram: true, ShapeDiamond: true,
}

// Role is the viewer role supplied by the surrounding portal.
type Role string

const (
	RoleStaff    Role = "staff"
	RoleCustomer Role = "customer"
)

// IsCustomer reports whether the role is the restricted customer role.
func (r Role) IsCustomer() bool {
	return r == RoleCustomer
}

type DocumentKind string

const (
	DocumentProject  DocumentKind = "project"
	DocumentTemplate DocumentKind = "template"
)

var ValidDocumentKinds = map[DocumentKind]bool{
	DocumentProject: true, DocumentTemplate: true,
}
