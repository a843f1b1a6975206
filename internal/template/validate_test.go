package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func errorStrings(errs []error) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Error()
	}
	return out
}

func TestValidateDefinition_Valid(t *testing.T) {
	def := &Definition{
		ID:   "kitchen",
		Name: "Kitchen",
		Nodes: []NodeSpec{
			{ID: "design", Type: "phase"},
			{ID: "survey", Type: "task", Container: "design"},
			{ID: "memo", Type: "note", Container: "survey"},
		},
	}
	assert.Empty(t, ValidateDefinition(def))
}

func TestValidateDefinition_MissingRequiredFields(t *testing.T) {
	msgs := errorStrings(ValidateDefinition(&Definition{}))
	assert.Contains(t, msgs, "template id is required")
	assert.Contains(t, msgs, "template name is required")
	assert.Contains(t, msgs, "at least one node is required")
}

func TestValidateDefinition_NodeErrors(t *testing.T) {
	def := &Definition{
		ID:   "broken",
		Name: "Broken",
		Nodes: []NodeSpec{
			{ID: "a", Type: "phase"},
			{ID: "a", Type: "task"},
			{ID: "", Type: "note"},
			{ID: "b", Type: "hexagon"},
			{ID: "c", Type: "task", Container: "ghost"},
			{ID: "d", Type: "phase", Container: "c"},
			{ID: "e", Type: "note", Container: "e2"},
			{ID: "e2", Type: "note"},
		},
	}
	msgs := errorStrings(ValidateDefinition(def))
	assert.Contains(t, msgs, `node[1]: duplicate id "a"`)
	assert.Contains(t, msgs, "node[2]: id is required")
	assert.Contains(t, msgs, `node[3]: unknown type "hexagon"`)
	assert.Contains(t, msgs, `node[4]: container "ghost" is not declared`)
	assert.Contains(t, msgs, `node[5]: task "c" cannot hold phase "d"`)
	assert.Contains(t, msgs, `node[6]: note "e2" cannot hold note "e"`)
}
