package testutil

import (
	"database/sql"
	"testing"

	"github.com/alexanderramin/procflow/internal/db"
	"github.com/alexanderramin/procflow/internal/docstore/memory"
	"github.com/alexanderramin/procflow/internal/docstore/sqlite"
)

// NewTestDB creates an in-memory SQLite database with all migrations applied.
// The database is closed when the test completes.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.OpenDB(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		database.Close()
	})
	return database
}

// NewTestUoW creates a UnitOfWork backed by the given test database.
func NewTestUoW(database *sql.DB) db.UnitOfWork {
	return db.NewSQLiteUnitOfWork(database)
}

// NewMemoryStore returns an in-process document store closed at cleanup.
func NewMemoryStore(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.New()
	t.Cleanup(func() { s.Close() })
	return s
}

// NewSQLiteStore returns a document store on a fresh in-memory database.
func NewSQLiteStore(t *testing.T, opts ...sqlite.Option) *sqlite.Store {
	t.Helper()
	s := sqlite.New(NewTestDB(t), opts...)
	t.Cleanup(func() { s.Close() })
	return s
}
