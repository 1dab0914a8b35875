package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/procflow/internal/domain"
	"github.com/alexanderramin/procflow/internal/repository"
	"github.com/alexanderramin/procflow/internal/testutil"
)

func TestProjectService_CreateUsesDefaultTemplate(t *testing.T) {
	ctx := context.Background()
	obs := &recordingObserver{}
	svc := NewProjectService(newTestRepo(t), obs)

	p, err := svc.Create(ctx, testCode, domain.ProjectFields{Name: " Laptops ", Budget: 45000})
	require.NoError(t, err)
	assert.Equal(t, "Laptops", p.Name)
	assert.Len(t, p.Steps, len(domain.DefaultStepTemplate()))
	assert.Equal(t, domain.PriorityNormal, p.Priority)
	assert.Equal(t, domain.ProjectActive, p.Status)

	ev := obs.last()
	assert.Equal(t, "create-project", ev.Name)
	assert.True(t, ev.Success)
	assert.Equal(t, len(p.Steps), ev.Fields["step_count"])

	list, err := svc.List(ctx, testCode)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)
}

func TestProjectService_CreateUsesCustomTemplate(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	custom := domain.StepTemplate{{ID: "a", Title: "Quote"}, {ID: "b", Title: "Pay"}}
	require.NoError(t, repo.Workspaces().WriteMerge(ctx, testCode, repository.WorkspacePatch{CustomSteps: &custom}))

	p, err := NewProjectService(repo).Create(ctx, testCode, domain.ProjectFields{Name: "Paper"})
	require.NoError(t, err)
	require.Len(t, p.Steps, 2)
	assert.Equal(t, "Quote", p.Steps[0].Title)
}

func TestProjectService_ValidationBlocksStoreCall(t *testing.T) {
	ctx := context.Background()
	failing := &testutil.FailingStore{Store: testutil.NewMemoryStore(t), GetErr: errBoom, WriteErr: errBoom}
	obs := &recordingObserver{}
	svc := NewProjectService(repository.NewProjectRepo(repository.NewWorkspaceStore(failing)), obs)

	_, err := svc.Create(ctx, testCode, domain.ProjectFields{Name: "", Budget: 10})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.NotErrorIs(t, err, errBoom)
	assert.False(t, obs.last().Success)

	_, err = svc.Create(ctx, testCode, domain.ProjectFields{Name: "Ok", Budget: -5})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestProjectService_UpdateDeleteSummary(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	svc := NewProjectService(repo)
	p := seedProject(t, repo, nil)

	fields := p.Fields()
	amount := 600.0
	fields.ContractAmount = &amount
	fields.Priority = domain.PriorityExtreme
	updated, err := svc.UpdateDetails(ctx, testCode, p.ID, fields)
	require.NoError(t, err)
	assert.Equal(t, domain.PriorityExtreme, updated.Priority)
	assert.Equal(t, int64(1), updated.Revision)

	sum, err := svc.Summary(ctx, testCode)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Total)
	assert.Equal(t, 400.0, sum.Savings)

	require.NoError(t, svc.Delete(ctx, testCode, p.ID))
	_, err = svc.Get(ctx, testCode, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
