package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func threeStepTemplate() StepTemplate {
	return StepTemplate{
		{ID: "s1", Title: "S1", DefaultChecklist: []string{"A", "B"}},
		{ID: "s2", Title: "S2", DefaultChecklist: []string{}},
		{ID: "s3", Title: "S3"},
	}
}

func TestCreateProject_SeedsStepsFromTemplate(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	p, err := CreateProject(ProjectFields{Name: "  Laptops  ", Budget: 1500}, threeStepTemplate(), now)
	require.NoError(t, err)

	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "Laptops", p.Name)
	assert.Equal(t, ProjectActive, p.Status)
	assert.Equal(t, 0, p.CurrentStepIndex)
	assert.Equal(t, PriorityNormal, p.Priority)
	assert.Equal(t, PurchaseBuy, p.PurchaseType)
	assert.Equal(t, MethodSpecific, p.ProcurementMethod)
	assert.Equal(t, now, p.CreatedAt)

	require.Len(t, p.Steps, 3)
	assert.Equal(t, "S1", p.Steps[0].Title)
	require.Len(t, p.Steps[0].Checklist, 2)
	for _, item := range p.Steps[0].Checklist {
		assert.False(t, item.Checked)
		assert.Nil(t, item.CompletedAt)
		assert.Nil(t, item.Deadline)
		assert.NotEmpty(t, item.ID)
	}
	assert.NotNil(t, p.Steps[2].Checklist)
	assert.NotNil(t, p.Steps[2].Timeline)
	assert.NotNil(t, p.Steps[2].Postits)
}

func TestCreateProject_RejectsEmptyTemplate(t *testing.T) {
	_, err := CreateProject(ProjectFields{Name: "X"}, StepTemplate{}, time.Now())
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "at least one step")
}

func TestCreateProject_Validation(t *testing.T) {
	neg := -1.0
	cases := []struct {
		name   string
		fields ProjectFields
		want   string
	}{
		{"missing name", ProjectFields{Name: "   "}, "name is required"},
		{"negative budget", ProjectFields{Name: "X", Budget: -5}, "budget"},
		{"negative contract", ProjectFields{Name: "X", ContractAmount: &neg}, "contract amount"},
		{"bad priority", ProjectFields{Name: "X", Priority: "whenever"}, "priority"},
		{"bad purchase type", ProjectFields{Name: "X", PurchaseType: "lease"}, "purchase type"},
		{"bad method", ProjectFields{Name: "X", ProcurementMethod: "auction"}, "procurement method"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := CreateProject(tc.fields, threeStepTemplate(), time.Now())
			require.ErrorIs(t, err, ErrValidation)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestProject_CloneIsDeep(t *testing.T) {
	p, err := CreateProject(ProjectFields{Name: "X"}, threeStepTemplate(), time.Now())
	require.NoError(t, err)

	c := p.Clone()
	c.Steps[0].Checklist[0].Checked = true
	c.Steps[0].Title = "changed"
	c.Steps[1].Timeline = append(c.Steps[1].Timeline, Note{Text: "x"})

	assert.False(t, p.Steps[0].Checklist[0].Checked)
	assert.Equal(t, "S1", p.Steps[0].Title)
	assert.Empty(t, p.Steps[1].Timeline)
}

func TestProject_IsOverdue(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	today := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)

	p := &Project{Status: ProjectActive, Deadline: &yesterday}
	assert.True(t, p.IsOverdue(now))

	p.Deadline = &today
	assert.False(t, p.IsOverdue(now), "deadline today is not overdue yet")

	p.Deadline = &yesterday
	p.Status = ProjectCompleted
	assert.False(t, p.IsOverdue(now))

	p.Deadline = nil
	p.Status = ProjectActive
	assert.False(t, p.IsOverdue(now))
}

func TestProject_StepOutOfRange(t *testing.T) {
	p := &Project{Steps: []Step{{ID: "s1"}}}
	_, err := p.Step(1)
	require.ErrorIs(t, err, ErrValidation)
	_, err = p.Step(-1)
	require.ErrorIs(t, err, ErrValidation)
}

func TestDisplayID(t *testing.T) {
	p := &Project{ID: "550e8400-e29b-41d4-a716-446655440000"}
	assert.Equal(t, "550e8400", p.DisplayID())
	p.ID = "abc"
	assert.Equal(t, "abc", p.DisplayID())
}

func TestPriority_Rank(t *testing.T) {
	assert.Equal(t, 0, PriorityNormal.Rank())
	assert.Equal(t, 4, PriorityExtreme.Rank())
	assert.Equal(t, -1, Priority("later").Rank())
}
