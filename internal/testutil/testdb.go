package testutil

import (
	"database/sql"
	"testing"

	"github.com/alexanderramin/flowdesk/internal/db"
	"github.com/stretchr/testify/require"
)

// NewTestDB opens a migrated in-memory flowchart database that lives until
// the test ends.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.OpenDB(":memory:")
	require.NoError(t, err, "opening test database")
	t.Cleanup(func() { _ = database.Close() })
	return database
}
