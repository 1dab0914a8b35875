package repository

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/procflow/internal/domain"
	"github.com/alexanderramin/procflow/internal/testutil"
)

var errTransport = errors.New("rpc error: code = Unavailable")

func TestWorkspaceStore_ExistsAndReadAll(t *testing.T) {
	ctx := context.Background()
	ws := NewWorkspaceStore(testutil.NewMemoryStore(t))

	ok, err := ws.Exists(ctx, "team-a")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = ws.ReadAll(ctx, "team-a")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.NotErrorIs(t, err, domain.ErrUnavailable)

	require.NoError(t, ws.Touch(ctx, " team-a ", testutil.FixedNow))
	ok, err = ws.Exists(ctx, "team-a")
	require.NoError(t, err)
	assert.True(t, ok, "codes are trimmed")

	got, err := ws.ReadAll(ctx, "team-a")
	require.NoError(t, err)
	require.NotNil(t, got.LastAccessedAt)
	assert.True(t, testutil.FixedNow.Equal(*got.LastAccessedAt))
	assert.Empty(t, got.Projects)
}

func TestWorkspaceStore_TransportFailures(t *testing.T) {
	ctx := context.Background()
	failing := &testutil.FailingStore{
		Store:     testutil.NewMemoryStore(t),
		ExistsErr: errTransport,
		GetErr:    errTransport,
		WriteErr:  errTransport,
	}
	ws := NewWorkspaceStore(failing)

	_, err := ws.Exists(ctx, "team")
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.ErrorIs(t, err, errTransport)

	_, err = ws.ReadAll(ctx, "team")
	assert.ErrorIs(t, err, domain.ErrUnavailable)
	assert.NotErrorIs(t, err, domain.ErrNotFound)

	now := testutil.FixedNow
	err = ws.WriteMerge(ctx, "team", WorkspacePatch{LastUpdatedAt: &now})
	assert.ErrorIs(t, err, domain.ErrWrite)
	assert.ErrorIs(t, err, errTransport, "transport detail stays in the chain")
}

func TestWorkspaceStore_EmptyCode(t *testing.T) {
	ws := NewWorkspaceStore(testutil.NewMemoryStore(t))
	_, err := ws.Exists(context.Background(), "   ")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestWorkspaceStore_WriteMergeIsShallow(t *testing.T) {
	ctx := context.Background()
	ws := NewWorkspaceStore(testutil.NewMemoryStore(t))
	a := testutil.NewTestProject("A", nil)
	b := testutil.NewTestProject("B", nil)
	custom := domain.StepTemplate{{ID: "only", Title: "Only step"}}

	projects := []domain.Project{*a, *b}
	require.NoError(t, ws.WriteMerge(ctx, "team", WorkspacePatch{Projects: &projects, CustomSteps: &custom}))

	replaced := []domain.Project{*b}
	require.NoError(t, ws.WriteMerge(ctx, "team", WorkspacePatch{Projects: &replaced}))

	got, err := ws.ReadAll(ctx, "team")
	require.NoError(t, err)
	require.Len(t, got.Projects, 1, "projects array is replaced, not merged")
	assert.Equal(t, b.ID, got.Projects[0].ID)
	assert.Equal(t, custom, got.CustomSteps, "untouched fields survive")
}

func TestWorkspaceStore_SubscribeSeesOwnWrites(t *testing.T) {
	ctx := context.Background()
	ws := NewWorkspaceStore(testutil.NewMemoryStore(t))

	var count atomic.Int64
	sub, err := ws.Subscribe(ctx, "team", func(w *domain.Workspace) {
		count.Store(int64(len(w.Projects)))
	})
	require.NoError(t, err)
	defer sub.Cancel()

	projects := []domain.Project{*testutil.NewTestProject("A", nil), *testutil.NewTestProject("B", nil)}
	require.NoError(t, ws.WriteMerge(ctx, "team", WorkspacePatch{Projects: &projects}))
	assert.Eventually(t, func() bool { return count.Load() == 2 }, time.Second, 5*time.Millisecond)
}

func TestWorkspaceStore_UpdatePassesCallbackErrorThrough(t *testing.T) {
	ws := NewWorkspaceStore(testutil.NewMemoryStore(t))
	err := ws.Update(context.Background(), "team", func(*domain.Workspace) (WorkspacePatch, error) {
		return WorkspacePatch{}, domain.ErrStaleRevision
	})
	assert.ErrorIs(t, err, domain.ErrStaleRevision)
	assert.NotErrorIs(t, err, domain.ErrWrite)
}
