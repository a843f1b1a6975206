package repository

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alexanderramin/flowdesk/internal/domain"
	"github.com/alexanderramin/flowdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileDocumentRepo_WritesOneFilePerDocument(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewFileDocumentRepo(dir)
	require.NoError(t, err)

	doc := testutil.NewTestTemplate("Bathroom", testutil.WithNodes(sampleChart()...))
	require.NoError(t, repo.Create(context.Background(), doc))

	data, err := os.ReadFile(filepath.Join(dir, "template", doc.ID+".json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"flowChart"`)
	assert.Contains(t, string(data), `"name": "Bathroom"`)

	_, err = os.Stat(filepath.Join(dir, "template", doc.ID+".json.tmp"))
	assert.True(t, os.IsNotExist(err), "temp file is renamed away")
}

func TestFileDocumentRepo_RejectsPathLikeIDs(t *testing.T) {
	repo, err := NewFileDocumentRepo(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	for _, id := range []string{"", "..", "../escape", `a\b`} {
		_, err := repo.GetByID(ctx, domain.DocumentProject, id)
		assert.Error(t, err, "id %q", id)
		assert.NotErrorIs(t, err, domain.ErrNotFound, "id %q", id)
	}
}

func TestFileDocumentRepo_ConcurrentReplacesStayReadable(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	repo, err := NewFileDocumentRepo(dir)
	require.NoError(t, err)
	other, err := NewFileDocumentRepo(dir)
	require.NoError(t, err)

	doc := testutil.NewTestProject("Shared")
	require.NoError(t, repo.Create(ctx, doc))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		r := repo
		if i%2 == 1 {
			r = other
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			nodes := []domain.Node{testutil.NewTestNode(domain.NodeNote)}
			assert.NoError(t, r.ReplaceNodes(ctx, domain.DocumentProject, doc.ID, nodes))
		}()
	}
	wg.Wait()

	got, err := repo.GetByID(ctx, domain.DocumentProject, doc.ID)
	require.NoError(t, err)
	assert.Len(t, got.Nodes, 1)
}

func TestFileDocumentRepo_ListSkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewFileDocumentRepo(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "project", "README.txt"), []byte("notes"), 0644))
	require.NoError(t, repo.Create(context.Background(), testutil.NewTestProject("Only")))

	docs, err := repo.List(context.Background(), domain.DocumentProject)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Only", docs[0].Name)
}
