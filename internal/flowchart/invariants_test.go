package flowchart

import (
	"strings"
	"testing"

	"github.com/alexanderramin/flowdesk/internal/domain"
	"github.com/alexanderramin/flowdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckInvariants_ConsistentChart(t *testing.T) {
	p := testutil.NewTestNode(domain.NodePhase, testutil.WithID("p"))
	task := testutil.NewTestNode(domain.NodeTask, testutil.WithID("t"))
	testutil.Link(&p, &task)

	assert.Empty(t, CheckInvariants([]domain.Node{p, task}))
	assert.Empty(t, CheckInvariants(nil))
}

func TestCheckInvariants_Violations(t *testing.T) {
	tests := []struct {
		name  string
		nodes func() []domain.Node
		want  string
	}{
		{
			name: "missing container",
			nodes: func() []domain.Node {
				return []domain.Node{testutil.NewTestNode(domain.NodeNote, testutil.WithID("n"), testutil.WithContainer("gone"))}
			},
			want: "missing container gone",
		},
		{
			name: "task holding a phase",
			nodes: func() []domain.Node {
				task := testutil.NewTestNode(domain.NodeTask, testutil.WithID("t"))
				p := testutil.NewTestNode(domain.NodePhase, testutil.WithID("p"))
				testutil.Link(&task, &p)
				return []domain.Node{task, p}
			},
			want: "task t cannot contain phase p",
		},
		{
			name: "child not listed by container",
			nodes: func() []domain.Node {
				p := testutil.NewTestNode(domain.NodePhase, testutil.WithID("p"))
				n := testutil.NewTestNode(domain.NodeNote, testutil.WithID("n"), testutil.WithContainer("p"))
				return []domain.Node{p, n}
			},
			want: "does not list child n",
		},
		{
			name: "listed child belongs elsewhere",
			nodes: func() []domain.Node {
				p := testutil.NewTestNode(domain.NodePhase, testutil.WithID("p"), testutil.WithChildren("n"))
				n := testutil.NewTestNode(domain.NodeNote, testutil.WithID("n"))
				return []domain.Node{p, n}
			},
			want: "lists child n that belongs elsewhere",
		},
		{
			name: "containment cycle",
			nodes: func() []domain.Node {
				a := testutil.NewTestNode(domain.NodePhase, testutil.WithID("a"))
				b := testutil.NewTestNode(domain.NodePhase, testutil.WithID("b"))
				testutil.Link(&a, &b)
				testutil.Link(&b, &a)
				return []domain.Node{a, b}
			},
			want: "does not terminate",
		},
		{
			name: "duplicate id",
			nodes: func() []domain.Node {
				n := testutil.NewTestNode(domain.NodeNote, testutil.WithID("n"))
				return []domain.Node{n, n}
			},
			want: "duplicate node id n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := CheckInvariants(tt.nodes())
			require.NotEmpty(t, errs)

			var messages []string
			for _, err := range errs {
				assert.ErrorIs(t, err, ErrInconsistent)
				messages = append(messages, err.Error())
			}
			assert.Contains(t, strings.Join(messages, "\n"), tt.want)
		})
	}
}

func TestCheckInvariants_IncludesFieldRules(t *testing.T) {
	bad := testutil.NewTestNode(domain.NodeNote, testutil.WithID("n"), testutil.WithStatus(domain.StatusDone))
	errs := CheckInvariants([]domain.Node{bad})
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], domain.ErrInvalidNode)
}

func TestRemap_RewritesReferences(t *testing.T) {
	p := testutil.NewTestNode(domain.NodePhase, testutil.WithID("p"))
	task := testutil.NewTestNode(domain.NodeTask, testutil.WithID("t"))
	note := testutil.NewTestNode(domain.NodeNote, testutil.WithID("n"), testutil.WithContainer("elsewhere"))
	testutil.Link(&p, &task)
	original := []domain.Node{p, task, note}

	next := 0
	remapped := Remap(original, func() string {
		next++
		return "new-" + string(rune('0'+next))
	})

	require.Len(t, remapped, 3)
	assert.Equal(t, "new-1", remapped[0].ID)
	assert.Equal(t, []string{"new-2"}, remapped[0].Children)
	assert.Equal(t, "new-1", *remapped[1].ContainerID)
	assert.Nil(t, remapped[2].ContainerID, "reference outside the list is dropped")
	assert.Empty(t, CheckInvariants(remapped))

	assert.Equal(t, "p", original[0].ID, "input is not modified")
	assert.Equal(t, []string{"t"}, original[0].Children)
}
