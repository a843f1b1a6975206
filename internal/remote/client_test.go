package remote

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alexanderramin/flowdesk/internal/autosave"
	"github.com/alexanderramin/flowdesk/internal/domain"
	"github.com/alexanderramin/flowdesk/internal/editor"
	"github.com/alexanderramin/flowdesk/internal/flowchart"
	"github.com/alexanderramin/flowdesk/internal/repository"
	"github.com/alexanderramin/flowdesk/internal/server"
	"github.com/alexanderramin/flowdesk/internal/service"
	"github.com/alexanderramin/flowdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Compile-time check that a Chart is usable as the editor's remote store and
// as an autosave target.
var (
	_ editor.Remote  = (*Chart)(nil)
	_ autosave.Saver = (*Chart)(nil)
)

func newBackend(t *testing.T) (*httptest.Server, service.DocumentService) {
	t.Helper()
	svc := service.NewDocumentService(repository.NewSQLiteDocumentRepo(testutil.NewTestDB(t)))
	ts := httptest.NewServer(server.New(svc).Handler())
	t.Cleanup(ts.Close)
	return ts, svc
}

func TestClient_DocumentRoundTrip(t *testing.T) {
	ts, _ := newBackend(t)
	c := New(ts.URL + "/")
	ctx := context.Background()

	assert.True(t, c.Available(ctx))

	d, err := c.Create(ctx, domain.DocumentTemplate, "Kitchen", "Galley")
	require.NoError(t, err)
	assert.Equal(t, domain.DocumentTemplate, d.Kind)

	docs, err := c.List(ctx, domain.DocumentTemplate)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	nodes := []domain.Node{testutil.NewTestNode(domain.NodePhase, testutil.WithID("demo"))}
	require.NoError(t, c.SaveFlowchart(ctx, domain.DocumentTemplate, d.ID, nodes))

	name, got, err := c.LoadFlowchart(ctx, domain.DocumentTemplate, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kitchen", name)
	assert.Equal(t, nodes, got)

	project, err := c.Instantiate(ctx, d.ID, "Jones kitchen")
	require.NoError(t, err)
	assert.Equal(t, "Jones kitchen", project.Name)

	full, err := c.Get(ctx, domain.DocumentProject, project.ID)
	require.NoError(t, err)
	assert.Len(t, full.Nodes, 1)

	require.NoError(t, c.Delete(ctx, domain.DocumentProject, project.ID))
	_, err = c.Get(ctx, domain.DocumentProject, project.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClient_MapsStatusesToDomainErrors(t *testing.T) {
	ts, svc := newBackend(t)
	ctx := context.Background()
	d, err := svc.Create(ctx, domain.DocumentProject, "Roles", "")
	require.NoError(t, err)

	customer := New(ts.URL, WithRole(domain.RoleCustomer))
	_, _, err = customer.LoadFlowchart(ctx, domain.DocumentProject, d.ID)
	require.NoError(t, err, "customers may read")
	err = customer.SaveFlowchart(ctx, domain.DocumentProject, d.ID, nil)
	assert.ErrorIs(t, err, domain.ErrReadOnly)

	staff := New(ts.URL)
	bad := testutil.NewTestNode(domain.NodeArrow)
	bad.Label = "arrows carry no text"
	err = staff.SaveFlowchart(ctx, domain.DocumentProject, d.ID, []domain.Node{bad})
	assert.ErrorIs(t, err, domain.ErrInvalidNode)

	_, _, err = staff.LoadFlowchart(ctx, domain.DocumentProject, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClient_UnreachableServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c := New("http://"+addr, WithTimeout(time.Second))
	_, err = c.List(context.Background(), domain.DocumentProject)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.False(t, c.Available(context.Background()))
}

func TestClient_RetriesReadsOnly(t *testing.T) {
	var hits atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(ts.Close)

	c := New(ts.URL)
	_, err := c.List(context.Background(), domain.DocumentProject)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
	assert.Equal(t, int32(1), hits.Load(), "server errors are not retried")
}

func TestChart_DrivesAnEditor(t *testing.T) {
	ts, svc := newBackend(t)
	ctx := context.Background()
	d, err := svc.Create(ctx, domain.DocumentProject, "Porch", "")
	require.NoError(t, err)

	chart := New(ts.URL).Chart(domain.DocumentProject, d.ID)
	e := editor.New(chart)
	require.NoError(t, e.Open(ctx))
	assert.Equal(t, "Porch", chart.Name())

	phase, err := e.AddNode(domain.NodePhase, flowchart.Delta{})
	require.NoError(t, err)
	e.EndTurn(ctx)
	assert.False(t, e.Dirty())

	stored, err := svc.Flowchart(ctx, domain.DocumentProject, d.ID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, phase.ID, stored[0].ID)
}
