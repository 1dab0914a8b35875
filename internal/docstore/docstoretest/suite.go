// Package docstoretest holds the behavioral suite every docstore backend
// must pass.
package docstoretest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alexanderramin/procflow/internal/docstore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Run exercises store. Each subtest uses a fresh key so backends may share
// state between subtests.
func Run(t *testing.T, store docstore.Store) {
	t.Helper()
	tests := []struct {
		name string
		fn   func(t *testing.T, s docstore.Store, collection, key string)
	}{
		{"MissingDocument", testMissing},
		{"SetMergeIsShallow", testShallowMerge},
		{"UpdateSeesCurrent", testUpdateSeesCurrent},
		{"UpdateErrorWritesNothing", testUpdateError},
		{"ConcurrentUpdatesAreAtomic", testConcurrentUpdates},
		{"SubscribeDeliversOwnWrites", testSubscribe},
		{"SubscribeCancel", testSubscribeCancel},
		{"CollectionsAreIsolated", testCollections},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, store, "ws_"+uuid.NewString()[:8], uuid.NewString())
		})
	}
}

func raw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func counter(t *testing.T, doc docstore.Document) int {
	t.Helper()
	if doc == nil || doc["n"] == nil {
		return 0
	}
	var n int
	require.NoError(t, json.Unmarshal(doc["n"], &n))
	return n
}

func testMissing(t *testing.T, s docstore.Store, collection, key string) {
	ctx := context.Background()
	ok, err := s.Exists(ctx, collection, key)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.Get(ctx, collection, key)
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func testShallowMerge(t *testing.T, s docstore.Store, collection, key string) {
	ctx := context.Background()
	require.NoError(t, s.SetMerge(ctx, collection, key, docstore.Document{
		"a": raw(t, "keep"),
		"b": raw(t, []int{1, 2}),
	}))
	ok, err := s.Exists(ctx, collection, key)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.SetMerge(ctx, collection, key, docstore.Document{
		"b": raw(t, []int{3}),
	}))
	doc, err := s.Get(ctx, collection, key)
	require.NoError(t, err)
	assert.JSONEq(t, `"keep"`, string(doc["a"]))
	assert.JSONEq(t, `[3]`, string(doc["b"]))
}

func testUpdateSeesCurrent(t *testing.T, s docstore.Store, collection, key string) {
	ctx := context.Background()
	var seen docstore.Document = docstore.Document{"sentinel": raw(t, true)}
	require.NoError(t, s.Update(ctx, collection, key, func(cur docstore.Document) (docstore.Document, error) {
		seen = cur
		return docstore.Document{"n": raw(t, 1)}, nil
	}))
	assert.Nil(t, seen, "missing document is passed as nil")

	require.NoError(t, s.Update(ctx, collection, key, func(cur docstore.Document) (docstore.Document, error) {
		return docstore.Document{"n": raw(t, counter(t, cur)+1), "m": raw(t, "x")}, nil
	}))
	doc, err := s.Get(ctx, collection, key)
	require.NoError(t, err)
	assert.Equal(t, 2, counter(t, doc))
	assert.JSONEq(t, `"x"`, string(doc["m"]))
}

func testUpdateError(t *testing.T, s docstore.Store, collection, key string) {
	ctx := context.Background()
	require.NoError(t, s.SetMerge(ctx, collection, key, docstore.Document{"n": raw(t, 5)}))

	boom := errors.New("boom")
	err := s.Update(ctx, collection, key, func(docstore.Document) (docstore.Document, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	doc, err := s.Get(ctx, collection, key)
	require.NoError(t, err)
	assert.Equal(t, 5, counter(t, doc))
}

func testConcurrentUpdates(t *testing.T, s docstore.Store, collection, key string) {
	ctx := context.Background()
	const writers, perWriter = 4, 5

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				err := s.Update(ctx, collection, key, func(cur docstore.Document) (docstore.Document, error) {
					n := 0
					if cur != nil && cur["n"] != nil {
						if err := json.Unmarshal(cur["n"], &n); err != nil {
							return nil, err
						}
					}
					return docstore.Document{"n": json.RawMessage(strconv.Itoa(n + 1))}, nil
				})
				if err != nil {
					t.Errorf("update: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	doc, err := s.Get(ctx, collection, key)
	require.NoError(t, err)
	assert.Equal(t, writers*perWriter, counter(t, doc))
}

func testSubscribe(t *testing.T, s docstore.Store, collection, key string) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.SetMerge(ctx, collection, key, docstore.Document{"n": raw(t, 1)}))

	var last atomic.Int64
	var calls atomic.Int64
	sub, err := s.Subscribe(ctx, collection, key, func(doc docstore.Document) {
		var n int64
		_ = json.Unmarshal(doc["n"], &n)
		last.Store(n)
		calls.Add(1)
	})
	require.NoError(t, err)
	defer sub.Cancel()

	require.Eventually(t, func() bool { return last.Load() == 1 }, 5*time.Second, 10*time.Millisecond,
		"initial snapshot should be delivered")

	for i := 2; i <= 4; i++ {
		require.NoError(t, s.SetMerge(ctx, collection, key, docstore.Document{"n": raw(t, i)}))
	}
	require.Eventually(t, func() bool { return last.Load() == 4 }, 5*time.Second, 10*time.Millisecond,
		"own writes should round-trip to the subscriber")
	assert.GreaterOrEqual(t, calls.Load(), int64(2))
}

func testSubscribeCancel(t *testing.T, s docstore.Store, collection, key string) {
	ctx := context.Background()
	var calls atomic.Int64
	sub, err := s.Subscribe(ctx, collection, key, func(docstore.Document) { calls.Add(1) })
	require.NoError(t, err)

	require.NoError(t, s.SetMerge(ctx, collection, key, docstore.Document{"n": raw(t, 1)}))
	require.Eventually(t, func() bool { return calls.Load() >= 1 }, 5*time.Second, 10*time.Millisecond)

	sub.Cancel()
	sub.Cancel()
	// Give in-flight deliveries a moment to drain before sampling.
	time.Sleep(100 * time.Millisecond)
	before := calls.Load()

	require.NoError(t, s.SetMerge(ctx, collection, key, docstore.Document{"n": raw(t, 2)}))
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, before, calls.Load(), "no deliveries after Cancel")
}

func testCollections(t *testing.T, s docstore.Store, collection, key string) {
	ctx := context.Background()
	other := fmt.Sprintf("%s_other", collection)
	require.NoError(t, s.SetMerge(ctx, collection, key, docstore.Document{"n": raw(t, 1)}))

	ok, err := s.Exists(ctx, other, key)
	require.NoError(t, err)
	assert.False(t, ok)
}
