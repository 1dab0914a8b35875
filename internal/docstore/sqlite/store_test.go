package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alexanderramin/procflow/internal/db"
	"github.com/alexanderramin/procflow/internal/docstore"
	"github.com/alexanderramin/procflow/internal/docstore/docstoretest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_Memory(t *testing.T) {
	database, err := db.OpenDB(":memory:")
	require.NoError(t, err)
	defer database.Close()

	s := New(database, WithPollInterval(50*time.Millisecond))
	defer s.Close()
	docstoretest.Run(t, s)
}

func TestSQLiteStore_File(t *testing.T) {
	database, err := db.OpenDB(filepath.Join(t.TempDir(), "docs.db"))
	require.NoError(t, err)
	defer database.Close()

	s := New(database, WithPollInterval(50*time.Millisecond))
	defer s.Close()
	docstoretest.Run(t, s)
}

// Two stores on one file stand in for two processes: the second only learns
// about the first one's writes by polling.
func TestSQLiteStore_SeesOtherWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	dbA, err := db.OpenDB(path)
	require.NoError(t, err)
	defer dbA.Close()
	dbB, err := db.OpenDB(path)
	require.NoError(t, err)
	defer dbB.Close()

	a := New(dbA)
	b := New(dbB, WithPollInterval(20*time.Millisecond))
	defer a.Close()
	defer b.Close()

	ctx := context.Background()
	var seen atomic.Int64
	sub, err := b.Subscribe(ctx, "workspaces", "team", func(doc docstore.Document) {
		var n int64
		_ = json.Unmarshal(doc["n"], &n)
		seen.Store(n)
	})
	require.NoError(t, err)
	defer sub.Cancel()

	require.NoError(t, a.SetMerge(ctx, "workspaces", "team", docstore.Document{"n": json.RawMessage("7")}))
	assert.Eventually(t, func() bool { return seen.Load() == 7 }, 5*time.Second, 10*time.Millisecond)
}

func TestSQLiteStore_Closed(t *testing.T) {
	database, err := db.OpenDB(":memory:")
	require.NoError(t, err)
	defer database.Close()

	s := New(database)
	require.NoError(t, s.Close())
	_, err = s.Get(context.Background(), "c", "k")
	assert.ErrorIs(t, err, docstore.ErrClosed)
}
