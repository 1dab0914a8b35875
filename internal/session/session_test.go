package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/procflow/internal/docstore"
	"github.com/alexanderramin/procflow/internal/domain"
	"github.com/alexanderramin/procflow/internal/repository"
	"github.com/alexanderramin/procflow/internal/testutil"
	"github.com/alexanderramin/procflow/internal/workflow"
)

const code = "team"

func fixedClock() time.Time { return testutil.FixedNow }

// silentStore never delivers subscription updates, which makes the stale
// path deterministic.
type silentStore struct{ docstore.Store }

type noopSub struct{}

func (noopSub) Cancel() {}

func (silentStore) Subscribe(context.Context, string, string, func(docstore.Document)) (docstore.Subscription, error) {
	return noopSub{}, nil
}

func setup(t *testing.T, store docstore.Store) (*repository.ProjectRepo, *Session, *domain.Project) {
	t.Helper()
	repo := repository.NewProjectRepo(repository.NewWorkspaceStore(store), repository.WithClock(fixedClock))
	p := testutil.NewTestProject("Desks", nil)
	require.NoError(t, repo.Create(context.Background(), code, p))

	s := New(repo, code, WithClock(fixedClock))
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)
	require.NoError(t, s.Open(context.Background(), p.ID))
	return repo, s, p
}

func completeStep(idx int) Intent {
	return func(p *domain.Project, now time.Time) error {
		return workflow.CompleteStep(p, idx, nil, nil, now)
	}
}

func TestSession_ApplyPersistsThenReplaces(t *testing.T) {
	repo, s, p := setup(t, testutil.NewMemoryStore(t))
	ctx := context.Background()

	require.NoError(t, s.Apply(ctx, completeStep(0)))
	active := s.Active()
	require.NotNil(t, active)
	assert.True(t, active.Steps[0].Completed)
	assert.Equal(t, int64(1), active.Revision)

	stored, err := repo.Load(ctx, code, p.ID)
	require.NoError(t, err)
	assert.True(t, stored.Steps[0].Completed)
}

func TestSession_FailedIntentLeavesActiveUntouched(t *testing.T) {
	_, s, _ := setup(t, testutil.NewMemoryStore(t))
	err := s.Apply(context.Background(), completeStep(9))
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, int64(0), s.Active().Revision)
}

func TestSession_ApplyWithoutOpenProject(t *testing.T) {
	repo := repository.NewProjectRepo(repository.NewWorkspaceStore(testutil.NewMemoryStore(t)))
	s := New(repo, code)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	assert.ErrorIs(t, s.Apply(context.Background(), completeStep(0)), ErrNoActiveProject)
	assert.Nil(t, s.Active())
}

func TestSession_StaleSaveReloads(t *testing.T) {
	repo, s, p := setup(t, silentStore{testutil.NewMemoryStore(t)})
	ctx := context.Background()

	other, err := repo.Load(ctx, code, p.ID)
	require.NoError(t, err)
	require.NoError(t, workflow.CompleteStep(other, 0, nil, nil, testutil.FixedNow))
	require.NoError(t, repo.Save(ctx, code, other))

	err = s.Apply(ctx, completeStep(1))
	require.ErrorIs(t, err, domain.ErrStaleRevision)

	active := s.Active()
	assert.True(t, active.Steps[0].Completed, "reload picked up the other writer's change")
	assert.False(t, active.Steps[1].Completed)

	require.NoError(t, s.Apply(ctx, completeStep(1)), "retry on fresh data succeeds")
	stored, err := repo.Load(ctx, code, p.ID)
	require.NoError(t, err)
	assert.True(t, stored.Steps[0].Completed)
	assert.True(t, stored.Steps[1].Completed)
}

func TestSession_RemoteUpdateReplacesActive(t *testing.T) {
	repo, s, p := setup(t, testutil.NewMemoryStore(t))
	ctx := context.Background()

	var changes atomic.Int64
	s.OnChange(func(*domain.Project) { changes.Add(1) })

	other, err := repo.Load(ctx, code, p.ID)
	require.NoError(t, err)
	require.NoError(t, workflow.CompleteStep(other, 2, nil, nil, testutil.FixedNow))
	require.NoError(t, repo.Save(ctx, code, other))

	require.Eventually(t, func() bool {
		a := s.Active()
		return a != nil && a.Steps[2].Completed
	}, 2*time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, changes.Load(), int64(1))
}

func TestSession_RemoteDeleteClearsActive(t *testing.T) {
	repo, s, p := setup(t, testutil.NewMemoryStore(t))
	require.NoError(t, repo.Delete(context.Background(), code, p.ID))

	require.Eventually(t, func() bool { return s.Active() == nil }, 2*time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, s.Apply(context.Background(), completeStep(0)), ErrNoActiveProject)
}

// Concurrent intents and the echoes of their own saves all pass through the
// reducer; none is lost.
func TestSession_SerializesConcurrentIntents(t *testing.T) {
	repo, s, p := setup(t, testutil.NewMemoryStore(t))
	ctx := context.Background()
	const n = 20

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Apply(ctx, func(p *domain.Project, now time.Time) error {
				_, err := workflow.AddPostit(p, 0, fmt.Sprintf("note %d", i), now)
				return err
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, s.Active().Steps[0].Postits, n)
	stored, err := repo.Load(ctx, code, p.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Steps[0].Postits, n)
	assert.Equal(t, int64(n), stored.Revision)
}

func TestSession_StopUnblocksCallers(t *testing.T) {
	_, s, _ := setup(t, testutil.NewMemoryStore(t))
	s.Stop()
	assert.ErrorIs(t, s.Apply(context.Background(), completeStep(0)), ErrStopped)
}
