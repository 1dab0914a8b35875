package db

import (
	"context"
	"database/sql"
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
	if err := migrateBackfillRevisions(db); err != nil {
		return fmt.Errorf("backfilling document revisions: %w", err)
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		key        TEXT NOT NULL,
		body       TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (collection, key)
	)`,
	`ALTER TABLE documents ADD COLUMN rev INTEGER NOT NULL DEFAULT 0`,
	`CREATE INDEX IF NOT EXISTS idx_documents_updated ON documents(collection, updated_at)`,
}

// migrateBackfillRevisions gives documents written before the rev column
// existed a starting revision, so pollers can tell them apart from rows
// that have never been read.
func migrateBackfillRevisions(db *sql.DB) error {
	ctx := context.Background()
	if _, err := db.ExecContext(ctx, `UPDATE documents SET rev = 1 WHERE rev = 0`); err != nil {
		return fmt.Errorf("updating document revisions: %w", err)
	}
	return nil
}
