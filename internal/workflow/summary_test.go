package workflow

import (
	"testing"
	"time"

	"github.com/alexanderramin/procflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	overdue := testNow.AddDate(0, 0, -2)
	contract := 700.0

	a := newProject(t, threeSteps())
	a.Deadline = &overdue
	a.Priority = domain.PriorityExtreme
	a.ContractAmount = &contract
	require.NoError(t, CompleteStep(a, 0, nil, nil, testNow))

	b := newProject(t, threeSteps())
	for i := range b.Steps {
		require.NoError(t, CompleteStep(b, i, nil, nil, testNow))
	}
	b.Deadline = &overdue

	s := Summarize([]domain.Project{*a, *b}, testNow)
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 1, s.Active)
	assert.Equal(t, 1, s.Completed)
	assert.Equal(t, 1, s.Overdue, "completed projects are never overdue")
	assert.Equal(t, 2000.0, s.TotalBudget)
	assert.Equal(t, 700.0, s.TotalContract)
	assert.Equal(t, 300.0, s.Savings)
	assert.Equal(t, 67, s.AveragePercent) // (33 + 100) / 2 = 66.5
	assert.Equal(t, 1, s.ByPriority[domain.PriorityExtreme])
	assert.Equal(t, 1, s.ByPriority[domain.PriorityNormal])
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, testNow)
	assert.Zero(t, s.Total)
	assert.Zero(t, s.AveragePercent)
}

func TestSortByUrgency(t *testing.T) {
	soon := testNow.AddDate(0, 0, 3)
	later := testNow.AddDate(0, 0, 30)
	mk := func(name string, prio domain.Priority, deadline *time.Time, status domain.ProjectStatus) domain.Project {
		return domain.Project{Name: name, Priority: prio, Deadline: deadline, Status: status}
	}
	projects := []domain.Project{
		mk("done", domain.PriorityExtreme, &soon, domain.ProjectCompleted),
		mk("normal-later", domain.PriorityNormal, &later, domain.ProjectActive),
		mk("normal-none", domain.PriorityNormal, nil, domain.ProjectActive),
		mk("urgent", domain.PriorityUrgent, nil, domain.ProjectActive),
		mk("normal-soon", domain.PriorityNormal, &soon, domain.ProjectActive),
	}
	SortByUrgency(projects)

	names := make([]string, len(projects))
	for i, p := range projects {
		names[i] = p.Name
	}
	assert.Equal(t, []string{"urgent", "normal-soon", "normal-later", "normal-none", "done"}, names)
}
