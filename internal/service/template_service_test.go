package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexanderramin/procflow/internal/domain"
	"github.com/alexanderramin/procflow/internal/testutil"
)

func TestTemplateService_EffectiveDefaultsWhenMissing(t *testing.T) {
	svc := NewTemplateService(newTestRepo(t))
	tmpl, custom, err := svc.Effective(context.Background(), "nobody-yet")
	require.NoError(t, err)
	assert.False(t, custom)
	assert.Equal(t, domain.DefaultStepTemplate(), tmpl)
}

func TestTemplateService_SetGlobalRetrofitsMatchingProjects(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	obs := &recordingObserver{}
	svc := NewTemplateService(repo, obs)

	old := domain.StepTemplate{
		{ID: "s1", Title: "S1", DefaultChecklist: []string{"A", "B"}},
		{ID: "s2", Title: "S2"},
	}
	match := testutil.NewTestProject("Match", old)
	match.Steps[0].Checklist[0].Checked = true
	require.NoError(t, repo.Create(ctx, testCode, match))
	other := seedProject(t, repo, testutil.ThreeStepTemplate())

	next := domain.StepTemplate{
		{ID: "s1", Title: "Survey", DefaultChecklist: []string{"A", "C"}},
		{ID: "s2", Title: "Pay", DefaultChecklist: []string{}},
	}
	res, err := svc.SetGlobal(ctx, testCode, next)
	require.NoError(t, err)
	assert.Equal(t, []string{match.ID}, res.Updated)
	assert.Equal(t, []string{other.ID}, res.Skipped)
	assert.Equal(t, 1, obs.last().Fields["skipped"])

	got, err := repo.Load(ctx, testCode, match.ID)
	require.NoError(t, err)
	assert.Equal(t, "Survey", got.Steps[0].Title)
	require.Len(t, got.Steps[0].Checklist, 2)
	assert.Equal(t, "A", got.Steps[0].Checklist[0].Text)
	assert.True(t, got.Steps[0].Checklist[0].Checked)
	assert.Equal(t, "C", got.Steps[0].Checklist[1].Text)
	assert.False(t, got.Steps[0].Checklist[1].Checked)
	assert.Equal(t, int64(1), got.Revision)

	tmpl, custom, err := svc.Effective(ctx, testCode)
	require.NoError(t, err)
	assert.True(t, custom)
	assert.Equal(t, next, tmpl)

	require.NoError(t, svc.Reset(ctx, testCode))
	_, custom, err = svc.Effective(ctx, testCode)
	require.NoError(t, err)
	assert.False(t, custom)
}

func TestTemplateService_RejectsEmptyTemplate(t *testing.T) {
	svc := NewTemplateService(newTestRepo(t))
	_, err := svc.SetGlobal(context.Background(), testCode, domain.StepTemplate{})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTemplateService_ApplyToProject(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	p := seedProject(t, repo, domain.DefaultStepTemplate())

	got, err := NewTemplateService(repo).ApplyToProject(ctx, testCode, p.ID, domain.DefaultStepTemplate()[:2])
	require.NoError(t, err)
	assert.Len(t, got.Steps, 2)
	assert.Equal(t, 0, got.CurrentStepIndex)
}
