package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/procflow/internal/docstore"
	"github.com/alexanderramin/procflow/internal/domain"
	"github.com/alexanderramin/procflow/internal/repository"
	"github.com/alexanderramin/procflow/internal/testutil"
)

func TestNoteService_TimelineAndPostits(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	svc := NewNoteService(repo)
	p := seedProject(t, repo, nil)

	early := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	oldID, err := svc.AddTimeline(ctx, testCode, p.ID, 1, "TOR draft sent", &early)
	require.NoError(t, err)
	newID, err := svc.AddTimeline(ctx, testCode, p.ID, 1, "TOR approved", nil)
	require.NoError(t, err)

	view, err := svc.Timeline(ctx, testCode, p.ID, 1)
	require.NoError(t, err)
	require.Len(t, view, 2)
	assert.Equal(t, newID, view[0].ID, "newest first")

	require.NoError(t, svc.EditTimeline(ctx, testCode, p.ID, 1, oldID, "TOR draft v1 sent"))
	require.NoError(t, svc.DeleteTimeline(ctx, testCode, p.ID, 1, newID))
	view, err = svc.Timeline(ctx, testCode, p.ID, 1)
	require.NoError(t, err)
	require.Len(t, view, 1)
	assert.Equal(t, "TOR draft v1 sent", view[0].Text)

	pid, err := svc.AddPostit(ctx, testCode, p.ID, 1, "ask legal")
	require.NoError(t, err)
	require.NoError(t, svc.EditPostit(ctx, testCode, p.ID, 1, pid, "ask legal about clause 4"))
	stored, err := repo.Load(ctx, testCode, p.ID)
	require.NoError(t, err)
	require.Len(t, stored.Steps[1].Postits, 1)
	assert.Equal(t, "ask legal about clause 4", stored.Steps[1].Postits[0].Text)

	require.NoError(t, svc.DeletePostit(ctx, testCode, p.ID, 1, pid))
	assert.ErrorIs(t, svc.DeletePostit(ctx, testCode, p.ID, 1, pid), domain.ErrNotFound)
}

func TestNoteService_LegacyTextNoteCanBeDeletedByListedID(t *testing.T) {
	ctx := context.Background()
	store := testutil.NewMemoryStore(t)
	repo := repository.NewProjectRepo(repository.NewWorkspaceStore(store))
	svc := NewNoteService(repo)

	legacy := `[{"id":"old","name":"Legacy","status":"active",
		"createdAt":"2024-01-01T00:00:00Z","updatedAt":"2024-01-01T00:00:00Z",
		"steps":[{"id":"step1","title":"Need survey","notes":"call vendor"}]}]`
	require.NoError(t, store.SetMerge(ctx, repository.DefaultCollection, testCode, docstore.Document{
		"projects": json.RawMessage(legacy),
	}))

	view, err := svc.Timeline(ctx, testCode, "old", 0)
	require.NoError(t, err)
	require.Len(t, view, 1)
	again, err := svc.Timeline(ctx, testCode, "old", 0)
	require.NoError(t, err)
	assert.Equal(t, view, again)

	require.NoError(t, svc.DeleteTimeline(ctx, testCode, "old", 0, view[0].ID))
	view, err = svc.Timeline(ctx, testCode, "old", 0)
	require.NoError(t, err)
	assert.Empty(t, view)
}
