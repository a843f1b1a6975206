package flowchart

import (
	"fmt"
	"testing"

	"github.com/alexanderramin/flowdesk/internal/domain"
	"github.com/alexanderramin/flowdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sequentialIDs() StoreOption {
	n := 0
	return WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("n%d", n)
	})
}

// newStoreWith loads nodes into a fresh store, failing the test on error.
func newStoreWith(t *testing.T, nodes ...domain.Node) *Store {
	t.Helper()
	s := NewStore(sequentialIDs())
	require.NoError(t, s.ReplaceAll(nodes))
	return s
}

func mustGet(t *testing.T, s *Store, id string) domain.Node {
	t.Helper()
	n, ok := s.Get(id)
	require.True(t, ok, "node %s should exist", id)
	return n
}

func TestStore_CreateAppliesDefaults(t *testing.T) {
	s := NewStore(sequentialIDs())

	n, err := s.Create(domain.NodeTask, Delta{Position: &domain.Point{X: 10, Y: 20}})
	require.NoError(t, err)

	assert.Equal(t, "n1", n.ID)
	assert.Equal(t, "New Task", n.Label)
	assert.Equal(t, domain.Size{Width: 180, Height: 80}, n.Size)
	assert.Equal(t, domain.Point{X: 10, Y: 20}, n.Position)
	assert.Nil(t, n.ContainerID)
	assert.Equal(t, []string{}, n.Children)
	assert.Equal(t, domain.StatusNotStarted, n.Status)
	assert.True(t, n.ShowInFlowchart)
	assert.True(t, n.ShowForCustomer)
	assert.Equal(t, 1, s.Len())
}

func TestStore_CreateDefaultIDsAreUnique(t *testing.T) {
	s := NewStore()
	a, err := s.Create(domain.NodeNote, Delta{})
	require.NoError(t, err)
	b, err := s.Create(domain.NodeNote, Delta{})
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestStore_CreateRejectsInvalidFields(t *testing.T) {
	s := NewStore(sequentialIDs())

	_, err := s.Create(domain.NodeArrow, Delta{Label: domain.StringPtr("nope")})
	assert.ErrorIs(t, err, domain.ErrInvalidNode)

	status := domain.StatusDone
	_, err = s.Create(domain.NodeNote, Delta{Status: &status})
	assert.ErrorIs(t, err, domain.ErrInvalidNode)

	_, err = s.Create(domain.NodePhase, Delta{Points: []domain.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}})
	assert.ErrorIs(t, err, domain.ErrInvalidNode)

	_, err = s.Create("bogus", Delta{})
	assert.ErrorIs(t, err, domain.ErrInvalidNode)

	assert.Equal(t, 0, s.Len())
}

func TestStore_UpdateMergesFields(t *testing.T) {
	s := newStoreWith(t, testutil.NewTestNode(domain.NodePhase, testutil.WithID("p1")))

	custom := domain.StatusCustom
	require.NoError(t, s.Update("p1", Delta{
		Label:        domain.StringPtr("Discovery"),
		Status:       &custom,
		CustomStatus: domain.StringPtr("waiting on client"),
	}))
	p := mustGet(t, s, "p1")
	assert.Equal(t, "Discovery", p.Label)
	assert.Equal(t, domain.StatusCustom, p.Status)
	assert.Equal(t, "waiting on client", p.CustomStatus)

	done := domain.StatusDone
	require.NoError(t, s.Update("p1", Delta{Status: &done}))
	p = mustGet(t, s, "p1")
	assert.Equal(t, domain.StatusDone, p.Status)
	assert.Empty(t, p.CustomStatus, "leaving custom status clears the custom text")
}

func TestStore_UpdateFailureLeavesNodeUnchanged(t *testing.T) {
	s := newStoreWith(t, testutil.NewTestNode(domain.NodePhase, testutil.WithID("p1"), testutil.WithLabel("Keep")))

	bad := domain.Shape("hexagon")
	err := s.Update("p1", Delta{Label: domain.StringPtr("Changed"), Shape: &bad})
	require.ErrorIs(t, err, domain.ErrInvalidNode)
	assert.Equal(t, "Keep", mustGet(t, s, "p1").Label)

	err = s.Update("missing", Delta{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_UpdateArrowPointsRefitsSize(t *testing.T) {
	s := newStoreWith(t, testutil.NewTestNode(domain.NodeArrow, testutil.WithID("a1")))

	require.NoError(t, s.Update("a1", Delta{Points: []domain.Point{{X: 0, Y: 0}, {X: 50, Y: 70}, {X: 200, Y: 10}}}))
	a := mustGet(t, s, "a1")
	assert.Len(t, a.Points, 3)
	assert.Equal(t, domain.Size{Width: 200, Height: 70}, a.Size)
}

func TestStore_VisibilityCascadesToAllDescendants(t *testing.T) {
	p := testutil.NewTestNode(domain.NodePhase, testutil.WithID("p"))
	task := testutil.NewTestNode(domain.NodeTask, testutil.WithID("t"))
	note := testutil.NewTestNode(domain.NodeNote, testutil.WithID("n"))
	testutil.Link(&p, &task)
	testutil.Link(&task, &note)
	s := newStoreWith(t, p, task, note)

	require.NoError(t, s.Update("p", Delta{ShowInFlowchart: domain.BoolPtr(false)}))
	for _, id := range []string{"p", "t", "n"} {
		assert.False(t, mustGet(t, s, id).ShowInFlowchart, "node %s", id)
		assert.True(t, mustGet(t, s, id).ShowForCustomer, "node %s keeps customer flag", id)
	}

	require.NoError(t, s.Update("p", Delta{ShowForCustomer: domain.BoolPtr(false)}))
	for _, id := range []string{"p", "t", "n"} {
		assert.False(t, mustGet(t, s, id).ShowForCustomer, "node %s", id)
	}
}

func TestStore_VisibilityCascadeIsNotReappliedAfterReparent(t *testing.T) {
	// Documented behavior: the cascade happens only at toggle time. A node
	// detached while hidden stays hidden, and a node moved into a hidden
	// phase stays visible.
	p := testutil.NewTestNode(domain.NodePhase, testutil.WithID("p"), testutil.WithRect(0, 0, 300, 200))
	task := testutil.NewTestNode(domain.NodeTask, testutil.WithID("t"), testutil.WithRect(10, 10, 180, 80))
	note := testutil.NewTestNode(domain.NodeNote, testutil.WithID("n"), testutil.WithRect(20, 20, 40, 30))
	outside := testutil.NewTestNode(domain.NodeNote, testutil.WithID("o"), testutil.WithRect(1000, 1000, 40, 30))
	testutil.Link(&p, &task)
	testutil.Link(&task, &note)
	s := newStoreWith(t, p, task, note, outside)

	require.NoError(t, s.Update("p", Delta{ShowInFlowchart: domain.BoolPtr(false)}))
	require.NoError(t, s.Detach("n"))
	require.NoError(t, s.Update("p", Delta{ShowInFlowchart: domain.BoolPtr(true)}))

	assert.True(t, mustGet(t, s, "p").ShowInFlowchart)
	assert.True(t, mustGet(t, s, "t").ShowInFlowchart)
	assert.False(t, mustGet(t, s, "n").ShowInFlowchart, "detached node keeps the flag it had")

	require.NoError(t, s.Update("p", Delta{ShowInFlowchart: domain.BoolPtr(false)}))
	require.NoError(t, s.Move("o", -1000+250, -1000+150))
	res, err := s.Drop("o")
	require.NoError(t, err)
	require.True(t, res.Changed)
	assert.True(t, mustGet(t, s, "o").ShowInFlowchart, "node dropped into a hidden phase stays visible")
}

func TestStore_DeleteOrphansChildren(t *testing.T) {
	p := testutil.NewTestNode(domain.NodePhase, testutil.WithID("p"))
	outer := testutil.NewTestNode(domain.NodePhase, testutil.WithID("outer"))
	t1 := testutil.NewTestNode(domain.NodeTask, testutil.WithID("t1"))
	t2 := testutil.NewTestNode(domain.NodeTask, testutil.WithID("t2"))
	testutil.Link(&outer, &p)
	testutil.Link(&p, &t1)
	testutil.Link(&p, &t2)
	s := newStoreWith(t, outer, p, t1, t2)

	require.NoError(t, s.Delete("p"))

	assert.Equal(t, 3, s.Len())
	_, ok := s.Get("p")
	assert.False(t, ok)
	assert.Nil(t, mustGet(t, s, "t1").ContainerID)
	assert.Nil(t, mustGet(t, s, "t2").ContainerID)
	assert.Equal(t, []string{}, mustGet(t, s, "outer").Children)
	assert.Empty(t, s.CheckInvariants())

	assert.ErrorIs(t, s.Delete("p"), domain.ErrNotFound)
}

func TestStore_ReplaceAllRejectsDuplicatesAndKeepsState(t *testing.T) {
	s := newStoreWith(t, testutil.NewTestNode(domain.NodeNote, testutil.WithID("keep")))

	dup := testutil.NewTestNode(domain.NodeNote, testutil.WithID("x"))
	err := s.ReplaceAll([]domain.Node{dup, dup})
	require.ErrorIs(t, err, domain.ErrInvalidNode)

	nodes := s.Nodes()
	require.Len(t, nodes, 1)
	assert.Equal(t, "keep", nodes[0].ID)
}

func TestStore_ReplaceAllNormalizes(t *testing.T) {
	phase := testutil.NewTestNode(domain.NodePhase, testutil.WithID("p"))
	phase.Children = nil
	note := testutil.NewTestNode(domain.NodeNote, testutil.WithID("n"))
	note.ContainerID = domain.StringPtr("")

	s := NewStore()
	require.NoError(t, s.ReplaceAll([]domain.Node{phase, note}))
	assert.Equal(t, []string{}, mustGet(t, s, "p").Children)
	assert.Nil(t, mustGet(t, s, "n").ContainerID)

	require.NoError(t, s.ReplaceAll(nil))
	assert.Equal(t, []domain.Node{}, s.Nodes())
}

func TestStore_ReturnsCopies(t *testing.T) {
	p := testutil.NewTestNode(domain.NodePhase, testutil.WithID("p"), testutil.WithChildren("x"))
	s := NewStore()
	require.NoError(t, s.ReplaceAll([]domain.Node{p}))

	got := mustGet(t, s, "p")
	got.Children[0] = "mutated"
	got.Label = "mutated"

	again := mustGet(t, s, "p")
	assert.Equal(t, []string{"x"}, again.Children)
	assert.NotEqual(t, "mutated", again.Label)
}

func TestStore_AncestorsAndDepth(t *testing.T) {
	outer := testutil.NewTestNode(domain.NodePhase, testutil.WithID("outer"))
	inner := testutil.NewTestNode(domain.NodePhase, testutil.WithID("inner"))
	task := testutil.NewTestNode(domain.NodeTask, testutil.WithID("task"))
	note := testutil.NewTestNode(domain.NodeNote, testutil.WithID("note"))
	testutil.Link(&outer, &inner)
	testutil.Link(&inner, &task)
	testutil.Link(&task, &note)
	s := newStoreWith(t, outer, inner, task, note)

	assert.Equal(t, []string{"task", "inner", "outer"}, s.Ancestors("note"))
	assert.Equal(t, 3, s.Depth("note"))
	assert.Equal(t, 0, s.Depth("outer"))
	assert.ElementsMatch(t, []string{"inner", "task", "note"}, s.Descendants("outer"))
}
