package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	if err := migrateBackfillChildren(db); err != nil {
		return fmt.Errorf("backfilling children lists: %w", err)
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		kind        TEXT NOT NULL CHECK(kind IN ('project','template')),
		id          TEXT NOT NULL,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL,
		PRIMARY KEY (kind, id)
	)`,

	`CREATE TABLE IF NOT EXISTS flowchart_nodes (
		doc_kind          TEXT NOT NULL,
		doc_id            TEXT NOT NULL,
		position          INTEGER NOT NULL,
		id                TEXT NOT NULL,
		type              TEXT NOT NULL
		                  CHECK(type IN ('phase','task','subFlow','iterative','note','extra','arrow')),
		label             TEXT NOT NULL DEFAULT '',
		description       TEXT NOT NULL DEFAULT '',
		x                 REAL NOT NULL DEFAULT 0,
		y                 REAL NOT NULL DEFAULT 0,
		width             REAL NOT NULL DEFAULT 0,
		height            REAL NOT NULL DEFAULT 0,
		container_id      TEXT,
		children          TEXT,
		status            TEXT NOT NULL DEFAULT '',
		custom_status     TEXT NOT NULL DEFAULT '',
		shape             TEXT NOT NULL DEFAULT '',
		show_in_flowchart INTEGER NOT NULL DEFAULT 1,
		sort_order        INTEGER,
		points            TEXT,
		PRIMARY KEY (doc_kind, doc_id, id),
		FOREIGN KEY (doc_kind, doc_id) REFERENCES documents(kind, id) ON DELETE CASCADE
	)`,

	`CREATE INDEX IF NOT EXISTS idx_flowchart_nodes_doc ON flowchart_nodes(doc_kind, doc_id, position)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_updated ON documents(kind, updated_at)`,

	// Customer visibility arrived with the customer portal role.
	`ALTER TABLE flowchart_nodes ADD COLUMN show_for_customer INTEGER NOT NULL DEFAULT 1`,

	// Nodes gained an external link.
	`ALTER TABLE flowchart_nodes ADD COLUMN link TEXT NOT NULL DEFAULT ''`,
}

// migrateBackfillChildren fills the children list of phases and tasks that
// predate it (children IS NULL) from their nodes' container_id, in stored
// order. Idempotent: rows that already carry a list are left alone.
func migrateBackfillChildren(db *sql.DB) error {
	ctx := context.Background()

	rows, err := db.QueryContext(ctx,
		`SELECT doc_kind, doc_id, id FROM flowchart_nodes
		 WHERE children IS NULL AND type IN ('phase','task')`)
	if err != nil {
		return fmt.Errorf("listing containers without children: %w", err)
	}
	type containerKey struct{ kind, doc, id string }
	var pending []containerKey
	for rows.Next() {
		var k containerKey
		if err := rows.Scan(&k.kind, &k.doc, &k.id); err != nil {
			rows.Close()
			return fmt.Errorf("scanning container: %w", err)
		}
		pending = append(pending, k)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, k := range pending {
		childRows, err := db.QueryContext(ctx,
			`SELECT id FROM flowchart_nodes
			 WHERE doc_kind = ? AND doc_id = ? AND container_id = ?
			 ORDER BY position`, k.kind, k.doc, k.id)
		if err != nil {
			return fmt.Errorf("listing children of %s: %w", k.id, err)
		}
		children := []string{}
		for childRows.Next() {
			var cid string
			if err := childRows.Scan(&cid); err != nil {
				childRows.Close()
				return err
			}
			children = append(children, cid)
		}
		childRows.Close()

		encoded, err := json.Marshal(children)
		if err != nil {
			return err
		}
		if _, err := db.ExecContext(ctx,
			`UPDATE flowchart_nodes SET children = ? WHERE doc_kind = ? AND doc_id = ? AND id = ?`,
			string(encoded), k.kind, k.doc, k.id); err != nil {
			return fmt.Errorf("updating children of %s: %w", k.id, err)
		}
	}
	return nil
}
