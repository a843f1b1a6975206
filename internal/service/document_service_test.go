package service

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/alexanderramin/flowdesk/internal/ctxlog"
	"github.com/alexanderramin/flowdesk/internal/domain"
	"github.com/alexanderramin/flowdesk/internal/flowchart"
	"github.com/alexanderramin/flowdesk/internal/repository"
	"github.com/alexanderramin/flowdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu     sync.Mutex
	events []UseCaseEvent
}

func (o *recordingObserver) ObserveUseCase(_ context.Context, e UseCaseEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

func (o *recordingObserver) last() UseCaseEvent {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.events[len(o.events)-1]
}

func newTestService(t *testing.T) (DocumentService, *recordingObserver) {
	t.Helper()
	obs := &recordingObserver{}
	repo := repository.NewSQLiteDocumentRepo(testutil.NewTestDB(t))
	return NewDocumentService(repo, obs), obs
}

func templateChart() []domain.Node {
	phase := testutil.NewTestNode(domain.NodePhase, testutil.WithID("design"), testutil.WithRect(0, 0, 600, 400))
	task := testutil.NewTestNode(domain.NodeTask, testutil.WithID("survey"), testutil.WithRect(20, 40, 180, 80))
	note := testutil.NewTestNode(domain.NodeNote, testutil.WithID("reminder"), testutil.WithRect(30, 50, 160, 100))
	testutil.Link(&phase, &task)
	testutil.Link(&task, &note)
	return []domain.Node{phase, task, note}
}

func TestDocumentService_CreateAndList(t *testing.T) {
	svc, obs := newTestService(t)
	ctx := context.Background()

	d, err := svc.Create(ctx, domain.DocumentProject, "  Garden room ", "Timber frame")
	require.NoError(t, err)
	assert.Equal(t, "Garden room", d.Name)
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, "create-document", obs.last().Name)
	assert.Equal(t, d.ID, obs.last().DocID)

	docs, err := svc.List(ctx, domain.DocumentProject)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, d.ID, docs[0].ID)

	_, err = svc.Create(ctx, domain.DocumentProject, "   ", "")
	assert.ErrorIs(t, err, domain.ErrInvalidNode)
	assert.False(t, obs.last().Success)
}

func TestDocumentService_ReplaceFlowchart(t *testing.T) {
	svc, obs := newTestService(t)
	ctx := context.Background()
	d, err := svc.Create(ctx, domain.DocumentProject, "Extension", "")
	require.NoError(t, err)

	require.NoError(t, svc.ReplaceFlowchart(ctx, domain.DocumentProject, d.ID, templateChart()))
	nodes, err := svc.Flowchart(ctx, domain.DocumentProject, d.ID)
	require.NoError(t, err)
	assert.Equal(t, templateChart(), nodes)
	assert.Equal(t, 3, obs.last().Fields["node_count"])
	assert.NotContains(t, obs.last().Fields, "violations")
}

func TestDocumentService_ReplaceFlowchartRejectsInvalidNodes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	d, err := svc.Create(ctx, domain.DocumentProject, "Extension", "")
	require.NoError(t, err)
	require.NoError(t, svc.ReplaceFlowchart(ctx, domain.DocumentProject, d.ID, templateChart()))

	bad := testutil.NewTestNode(domain.NodeArrow, testutil.WithID("a"))
	bad.Points = bad.Points[:1]
	dup := testutil.NewTestNode(domain.NodeNote, testutil.WithID("design"))
	err = svc.ReplaceFlowchart(ctx, domain.DocumentProject, d.ID, append(templateChart(), bad, dup))
	require.ErrorIs(t, err, domain.ErrInvalidNode)
	assert.Contains(t, err.Error(), "flowChart[3]")
	assert.Contains(t, err.Error(), "flowChart[4]")

	nodes, err := svc.Flowchart(ctx, domain.DocumentProject, d.ID)
	require.NoError(t, err)
	assert.Len(t, nodes, 3, "rejected save leaves the stored chart alone")
}

func TestDocumentService_ReplaceFlowchartStoresStructuralViolations(t *testing.T) {
	svc, obs := newTestService(t)
	ctx := context.Background()
	d, err := svc.Create(ctx, domain.DocumentProject, "Legacy", "")
	require.NoError(t, err)

	orphan := testutil.NewTestNode(domain.NodeNote, testutil.WithID("n"), testutil.WithContainer("gone"))
	require.NoError(t, svc.ReplaceFlowchart(ctx, domain.DocumentProject, d.ID, []domain.Node{orphan}))
	assert.Equal(t, 1, obs.last().Fields["violations"])

	nodes, err := svc.Flowchart(ctx, domain.DocumentProject, d.ID)
	require.NoError(t, err)
	assert.Len(t, nodes, 1)
}

func TestDocumentService_ReplaceFlowchartOnMissingDocument(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.ReplaceFlowchart(context.Background(), domain.DocumentTemplate, "nope", nil)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_InstantiateCopiesChartWithFreshIDs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tmpl, err := svc.Create(ctx, domain.DocumentTemplate, "Loft", "Dormer loft")
	require.NoError(t, err)
	require.NoError(t, svc.ReplaceFlowchart(ctx, domain.DocumentTemplate, tmpl.ID, templateChart()))

	project, err := svc.Instantiate(ctx, tmpl.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentProject, project.Kind)
	assert.Equal(t, "Loft", project.Name, "name falls back to the template's")
	assert.Equal(t, "Dormer loft", project.Description)

	stored, err := svc.Get(ctx, domain.DocumentProject, project.ID)
	require.NoError(t, err)
	require.Len(t, stored.Nodes, 3)
	for _, n := range stored.Nodes {
		assert.NotContains(t, []string{"design", "survey", "reminder"}, n.ID)
	}
	assert.Empty(t, flowchart.CheckInvariants(stored.Nodes))
	assert.Equal(t, []string{stored.Nodes[1].ID}, stored.Nodes[0].Children)
	assert.Equal(t, stored.Nodes[0].ID, *stored.Nodes[1].ContainerID)

	// The template is untouched.
	nodes, err := svc.Flowchart(ctx, domain.DocumentTemplate, tmpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "design", nodes[0].ID)

	_, err = svc.Instantiate(ctx, "missing", "x")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_SeedTemplatesCreatesThenUpdates(t *testing.T) {
	svc, obs := newTestService(t)
	ctx := context.Background()

	seed := []*domain.Document{
		{ID: "kitchen", Name: "Kitchen", Nodes: templateChart()},
		{ID: "bathroom", Name: "Bathroom"},
	}
	res, err := svc.SeedTemplates(ctx, seed)
	require.NoError(t, err)
	assert.Equal(t, []string{"kitchen", "bathroom"}, res.Created)
	assert.Empty(t, res.Updated)

	seed[1].Nodes = []domain.Node{testutil.NewTestNode(domain.NodeExtra, testutil.WithID("tiles"))}
	res, err = svc.SeedTemplates(ctx, seed)
	require.NoError(t, err)
	assert.Empty(t, res.Created)
	assert.Equal(t, []string{"kitchen", "bathroom"}, res.Updated)
	assert.Equal(t, "seed-templates", obs.last().Name)
	assert.Equal(t, 2, obs.last().Fields["updated"])

	nodes, err := svc.Flowchart(ctx, domain.DocumentTemplate, "bathroom")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "tiles", nodes[0].ID)
}

func TestDocumentService_SeedTemplatesRejectsUnnamed(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.SeedTemplates(context.Background(), []*domain.Document{{ID: "x"}})
	assert.ErrorIs(t, err, domain.ErrInvalidNode)
}

func TestDocumentService_Delete(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	d, err := svc.Create(ctx, domain.DocumentTemplate, "Temp", "")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, domain.DocumentTemplate, d.ID))
	_, err = svc.Get(ctx, domain.DocumentTemplate, d.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLogUseCaseObserver_UsesContextLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	NewLogUseCaseObserver(nil).ObserveUseCase(ctx, UseCaseEvent{
		Name: "replace-flowchart", Kind: "project", DocID: "p1", Success: true,
		Fields: map[string]any{"node_count": 4},
	})

	out := buf.String()
	assert.Contains(t, out, "use_case=replace-flowchart")
	assert.Contains(t, out, "doc_id=p1")
	assert.Contains(t, out, "node_count=4")
	assert.Contains(t, out, "level=INFO")
}

func TestUseCaseObserverOrNoop(t *testing.T) {
	assert.Equal(t, NoopUseCaseObserver{}, useCaseObserverOrNoop(nil))
	obs := &recordingObserver{}
	assert.Same(t, obs, useCaseObserverOrNoop([]UseCaseObserver{nil, obs}))
}
