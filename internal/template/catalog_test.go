package template

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalHCL = `
name = "Minimal"
node "only" {
  type = "phase"
}
`

const minimalTOML = `
name = "Minimal TOML"
[[nodes]]
id = "only"
type = "task"
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIsTemplateFile(t *testing.T) {
	assert.True(t, IsTemplateFile("kitchen.hcl"))
	assert.True(t, IsTemplateFile("/tmp/bath.TOML"))
	assert.False(t, IsTemplateFile("notes.md"))
	assert.False(t, IsTemplateFile(".hidden.hcl"))
	assert.False(t, IsTemplateFile("kitchen.hcl.swp"))
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	doc, err := LoadFile(writeFile(t, dir, "tiny.hcl", minimalHCL))
	require.NoError(t, err)
	assert.Equal(t, "tiny", doc.ID)
	assert.Equal(t, "Minimal", doc.Name)

	_, err = LoadFile(writeFile(t, dir, "tiny.json", `{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported template file")

	_, err = LoadFile(filepath.Join(dir, "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadDir_SkipsBrokenFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.toml", minimalTOML)
	writeFile(t, dir, "a.hcl", minimalHCL)
	writeFile(t, dir, "broken.hcl", `name = `)
	writeFile(t, dir, "README.md", "not a template")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.hcl"), 0o755))

	docs, err := LoadDir(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.hcl")

	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "b", docs[1].ID)
}

func TestLoadDir_DuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "same.hcl", minimalHCL)
	writeFile(t, dir, "same.toml", minimalTOML)

	docs, err := LoadDir(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declared by both")
	require.Len(t, docs, 1)
	assert.Equal(t, "Minimal", docs[0].Name)
}

func TestLoadDir_MissingDirectory(t *testing.T) {
	_, err := LoadDir(context.Background(), filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reading template dir")
}
