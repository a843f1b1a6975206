package template

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/alexanderramin/flowdesk/internal/flowchart"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestAllTemplates_Load builds every file in the repository's templates/
// directory so a malformed template cannot break `flowdesk serve` at startup.
func TestAllTemplates_Load(t *testing.T) {
	dir := findTemplatesDir(t)

	docs, err := LoadDir(context.Background(), dir)
	require.NoError(t, err)
	require.NotEmpty(t, docs, "no templates found in %s", dir)

	for _, doc := range docs {
		t.Run(doc.ID, func(t *testing.T) {
			assert.NotEmpty(t, doc.Name)
			assert.NotEmpty(t, doc.Nodes)
			assert.Empty(t, flowchart.CheckInvariants(doc.Nodes))
		})
	}
}

// findTemplatesDir locates the templates directory relative to the test file.
func findTemplatesDir(t *testing.T) string {
	t.Helper()
	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		candidate := filepath.Join(dir, "templates")
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find templates directory")
		}
		dir = parent
	}
}
