package workflow

import (
	"math"
	"sort"
	"time"

	"github.com/alexanderramin/procflow/internal/domain"
)

// Summary aggregates a workspace's projects for the dashboard.
type Summary struct {
	Total         int
	Active        int
	Completed     int
	Overdue       int
	TotalBudget   float64
	TotalContract float64
	// Savings is budget minus contract amount, over projects that have a
	// contract amount.
	Savings        float64
	AveragePercent int
	ByPriority     map[domain.Priority]int
}

func Summarize(projects []domain.Project, now time.Time) Summary {
	s := Summary{ByPriority: make(map[domain.Priority]int)}
	var pctSum int
	for i := range projects {
		p := &projects[i]
		s.Total++
		if p.Status == domain.ProjectCompleted {
			s.Completed++
		} else {
			s.Active++
		}
		if p.IsOverdue(now) {
			s.Overdue++
		}
		s.TotalBudget += p.Budget
		if p.ContractAmount != nil {
			s.TotalContract += *p.ContractAmount
			s.Savings += p.Budget - *p.ContractAmount
		}
		s.ByPriority[p.Priority]++
		pctSum += ProgressPercent(p)
	}
	if s.Total > 0 {
		s.AveragePercent = int(math.Round(float64(pctSum) / float64(s.Total)))
	}
	return s
}

// SortByUrgency orders projects for a work queue: active before completed,
// then higher priority, then earlier deadline (projects without a deadline
// last), then newest first.
func SortByUrgency(projects []domain.Project) {
	sort.SliceStable(projects, func(i, j int) bool {
		a, b := &projects[i], &projects[j]
		if (a.Status == domain.ProjectCompleted) != (b.Status == domain.ProjectCompleted) {
			return a.Status != domain.ProjectCompleted
		}
		if ra, rb := a.Priority.Rank(), b.Priority.Rank(); ra != rb {
			return ra > rb
		}
		switch {
		case a.Deadline != nil && b.Deadline == nil:
			return true
		case a.Deadline == nil && b.Deadline != nil:
			return false
		case a.Deadline != nil && b.Deadline != nil && !a.Deadline.Equal(*b.Deadline):
			return a.Deadline.Before(*b.Deadline)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
}
