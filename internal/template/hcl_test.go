package template

import (
	"testing"

	"github.com/alexanderramin/flowdesk/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHCL_ResolvesVariablesAndCount(t *testing.T) {
	src := []byte(`
name = "Deck"

variable "boards" {
  default = 2
}

node "frame" {
  type  = "phase"
  width = var.boards * 100
}

node "board" {
  count     = var.boards
  type      = "task"
  container = "frame"
  label     = "Board ${count.index + 1}"
  x         = count.index * 100
}
`)
	def, err := ParseHCL("deck", src, "deck.hcl")
	require.NoError(t, err)

	assert.Equal(t, "deck", def.ID)
	assert.Equal(t, "Deck", def.Name)
	require.Len(t, def.Nodes, 3)

	frame := def.Nodes[0]
	assert.Equal(t, "frame", frame.ID)
	assert.Equal(t, 200.0, frame.Width)
	assert.Nil(t, frame.Label, "unset label keeps the type default")

	assert.Equal(t, "board-1", def.Nodes[1].ID)
	assert.Equal(t, "board-2", def.Nodes[2].ID)
	require.NotNil(t, def.Nodes[2].Label)
	assert.Equal(t, "Board 2", *def.Nodes[2].Label)
	assert.Equal(t, 100.0, def.Nodes[2].X)
	assert.Equal(t, "frame", def.Nodes[2].Container)
}

func TestParseHCL_ZeroCountDropsNode(t *testing.T) {
	src := []byte(`
name = "Empty"
node "step" {
  count = 0
  type  = "task"
}
`)
	def, err := ParseHCL("empty", src, "empty.hcl")
	require.NoError(t, err)
	assert.Empty(t, def.Nodes)
}

func TestParseHCL_Errors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{"syntax", `name = `, "parsing"},
		{"missing name", `node "a" { type = "phase" }`, "decoding"},
		{"undefined variable", "name = \"x\"\nnode \"a\" {\n type = \"phase\"\n x = var.nope\n}", `node "a"`},
		{"negative count", "name = \"x\"\nnode \"a\" {\n type = \"task\"\n count = -1\n}", "cannot be negative"},
		{"label type", "name = \"x\"\nnode \"a\" {\n type = \"task\"\n width = \"wide\"\n}", `node "a"`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseHCL("x", []byte(tc.src), "x.hcl")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestBuild_FromHCL(t *testing.T) {
	src := []byte(`
name = "Porch"
node "build" {
  type = "phase"
}
node "rail" {
  type      = "task"
  container = "build"
  status    = "custom"
  custom_status = "Waiting on wood"
  shape     = "diamond"
}
node "memo" {
  type      = "note"
  container = "rail"
  show_for_customer = false
  sort_order = 2
}
`)
	def, err := ParseHCL("porch", src, "porch.hcl")
	require.NoError(t, err)
	doc, err := Build(def)
	require.NoError(t, err)

	assert.Equal(t, domain.DocumentTemplate, doc.Kind)
	assert.Equal(t, "porch", doc.ID)
	require.Len(t, doc.Nodes, 3)

	build, rail, memo := doc.Nodes[0], doc.Nodes[1], doc.Nodes[2]
	assert.Equal(t, []string{"rail"}, build.Children)
	assert.Equal(t, []string{"memo"}, rail.Children)
	assert.Equal(t, domain.StatusCustom, rail.Status)
	assert.Equal(t, "Waiting on wood", rail.CustomStatus)
	assert.Equal(t, domain.ShapeDiamond, rail.Shape)
	assert.Equal(t, "New Task", rail.Label)
	assert.False(t, memo.ShowForCustomer)
	assert.True(t, memo.ShowInFlowchart)
	require.NotNil(t, memo.SortOrder)
	assert.Equal(t, 2, *memo.SortOrder)
	assert.Nil(t, memo.Children)
}
