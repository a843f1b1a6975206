package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNewNode_Defaults(t *testing.T) {
	cases := []struct {
		typ       NodeType
		container bool
	}{
		{NodePhase, true},
		{NodeTask, true},
		{NodeSubFlow, false},
		{NodeIterative, false},
		{NodeNote, false},
		{NodeExtra, false},
		{NodeArrow, false},
	}
	for _, tc := range cases {
		n, err := NewNode("n1", tc.typ)
		require.NoError(t, err, "type=%s", tc.typ)
		assert.True(t, n.ShowInFlowchart)
		assert.True(t, n.ShowForCustomer)
		assert.Nil(t, n.ContainerID)
		assert.Greater(t, n.Size.Width, 0.0)
		if tc.container {
			assert.NotNil(t, n.Children, "type=%s", tc.typ)
			assert.Equal(t, StatusNotStarted, n.Status)
			assert.Equal(t, ShapeRectangle, n.Shape)
		} else {
			assert.Nil(t, n.Children, "type=%s", tc.typ)
			assert.Empty(t, n.Status)
		}
		assert.NoError(t, n.Validate(), "type=%s", tc.typ)
	}
}

func TestNewNode_ArrowHasTwoPointsAndNoLabel(t *testing.T) {
	n, err := NewNode("a1", NodeArrow)
	require.NoError(t, err)
	assert.Len(t, n.Points, 2)
	assert.Empty(t, n.Label)
}

func TestNewNode_UnknownType(t *testing.T) {
	_, err := NewNode("x", NodeType("swimlane"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidNode)
}

func TestCanContain(t *testing.T) {
	assert.True(t, CanContain(NodePhase, NodeTask))
	assert.True(t, CanContain(NodePhase, NodePhase))
	assert.True(t, CanContain(NodePhase, NodeNote))
	assert.True(t, CanContain(NodeTask, NodeSubFlow))
	assert.False(t, CanContain(NodeTask, NodePhase))
	assert.False(t, CanContain(NodeTask, NodeTask))
	assert.False(t, CanContain(NodePhase, NodeArrow))
	assert.False(t, CanContain(NodeSubFlow, NodePhase))
	assert.False(t, CanContain(NodeNote, NodeExtra))
	assert.False(t, CanContain(NodeArrow, NodeNote))
}

func TestValidate_Rejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(n *Node)
		typ    NodeType
	}{
		{"empty id", func(n *Node) { n.ID = "" }, NodeTask},
		{"status on note", func(n *Node) { n.Status = StatusDone }, NodeNote},
		{"shape on extra", func(n *Node) { n.Shape = ShapeDiamond }, NodeExtra},
		{"children on note", func(n *Node) { n.Children = []string{"x"} }, NodeNote},
		{"custom status without custom", func(n *Node) { n.CustomStatus = "waiting" }, NodePhase},
		{"unknown status", func(n *Node) { n.Status = "blocked" }, NodeTask},
		{"arrow with one point", func(n *Node) { n.Points = n.Points[:1] }, NodeArrow},
		{"arrow with label", func(n *Node) { n.Label = "x" }, NodeArrow},
		{"points on task", func(n *Node) { n.Points = []Point{{}, {}} }, NodeTask},
		{"self container", func(n *Node) { n.ContainerID = StringPtr(n.ID) }, NodeTask},
		{"negative size", func(n *Node) { n.Size.Width = -1 }, NodePhase},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n, err := NewNode("n1", tc.typ)
			require.NoError(t, err)
			tc.mutate(&n)
			err = n.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidNode)
		})
	}
}

func TestValidate_CustomStatus(t *testing.T) {
	n, err := NewNode("p1", NodePhase)
	require.NoError(t, err)
	n.Status = StatusCustom
	n.CustomStatus = "Awaiting client"
	assert.NoError(t, n.Validate())
}

func TestUnmarshalJSON_VisibilityDefaultsTrue(t *testing.T) {
	var n Node
	require.NoError(t, json.Unmarshal([]byte(`{"id":"t1","type":"task"}`), &n))
	assert.True(t, n.ShowInFlowchart)
	assert.True(t, n.ShowForCustomer)

	require.NoError(t, json.Unmarshal([]byte(`{"id":"t1","type":"task","showForCustomer":false}`), &n))
	assert.True(t, n.ShowInFlowchart)
	assert.False(t, n.ShowForCustomer)
}

func TestUnmarshalYAML_VisibilityDefaultsTrue(t *testing.T) {
	var n Node
	require.NoError(t, yaml.Unmarshal([]byte("id: t1\ntype: task\nshowInFlowchart: false\n"), &n))
	assert.False(t, n.ShowInFlowchart)
	assert.True(t, n.ShowForCustomer)
}

func TestMarshalJSON_WireNames(t *testing.T) {
	n, err := NewNode("p1", NodePhase)
	require.NoError(t, err)
	n.SortOrder = IntPtr(10)

	data, err := json.Marshal(n)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"id", "type", "position", "size", "containerId", "status", "shape", "showInFlowchart", "showForCustomer", "sortOrder"} {
		assert.Contains(t, raw, key)
	}
	assert.Nil(t, raw["containerId"])
}

func TestClone_IsDeep(t *testing.T) {
	n, err := NewNode("p1", NodePhase)
	require.NoError(t, err)
	n.Children = []string{"a"}
	n.ContainerID = StringPtr("root")
	n.SortOrder = IntPtr(20)

	c := n.Clone()
	c.Children[0] = "b"
	*c.ContainerID = "other"
	*c.SortOrder = 30

	assert.Equal(t, "a", n.Children[0])
	assert.Equal(t, "root", *n.ContainerID)
	assert.Equal(t, 20, *n.SortOrder)
}

func TestNormalize(t *testing.T) {
	phase := Node{ID: "p", Type: NodePhase, ContainerID: StringPtr("")}
	phase.Normalize()
	assert.NotNil(t, phase.Children)
	assert.Nil(t, phase.ContainerID)

	note := Node{ID: "n", Type: NodeNote, Children: []string{}}
	note.Normalize()
	assert.Nil(t, note.Children)
}

func TestRect_ContainsEdges(t *testing.T) {
	r := Rect{X: 10, Y: 10, Width: 100, Height: 50}
	assert.True(t, r.Contains(Point{X: 10, Y: 10}))
	assert.True(t, r.Contains(Point{X: 110, Y: 60}))
	assert.False(t, r.Contains(Point{X: 111, Y: 30}))
	assert.Equal(t, Point{X: 60, Y: 35}, r.Center())
}

func TestDocument_Validate(t *testing.T) {
	d := &Document{Kind: DocumentProject, Name: "Villa"}
	assert.NoError(t, d.Validate())

	d.Name = "  "
	assert.Error(t, d.Validate())

	d = &Document{Kind: "board", Name: "x"}
	assert.Error(t, d.Validate())
}

func TestDocument_DisplayID(t *testing.T) {
	d := &Document{ID: "550e8400-e29b-41d4-a716-446655440000"}
	assert.Equal(t, "550e8400", d.DisplayID())
	d.ID = "abc"
	assert.Equal(t, "abc", d.DisplayID())
}
