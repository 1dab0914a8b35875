package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/alexanderramin/procflow/internal/domain"
)

var testProjectCounter atomic.Int64

// FixedNow is the reference instant used by fixtures.
var FixedNow = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

// Project options
type ProjectOption func(*domain.Project)

func WithBudget(b float64) ProjectOption {
	return func(p *domain.Project) {
		p.Budget = b
	}
}

func WithContractAmount(a float64) ProjectOption {
	return func(p *domain.Project) {
		p.ContractAmount = &a
	}
}

func WithDeadline(d time.Time) ProjectOption {
	return func(p *domain.Project) {
		p.Deadline = &d
	}
}

func WithPriority(pr domain.Priority) ProjectOption {
	return func(p *domain.Project) {
		p.Priority = pr
	}
}

func WithRevision(r int64) ProjectOption {
	return func(p *domain.Project) {
		p.Revision = r
	}
}

// WithCompletedSteps marks the given step indices complete and recomputes
// the derived pointer and status.
func WithCompletedSteps(idx ...int) ProjectOption {
	return func(p *domain.Project) {
		for _, i := range idx {
			at := FixedNow
			p.Steps[i].Completed = true
			p.Steps[i].CompletedAt = &at
		}
		p.CurrentStepIndex = len(p.Steps) - 1
		p.Status = domain.ProjectCompleted
		for i, s := range p.Steps {
			if !s.Completed {
				p.CurrentStepIndex = i
				p.Status = domain.ProjectActive
				break
			}
		}
	}
}

// ThreeStepTemplate is the small template used across scenario tests.
func ThreeStepTemplate() domain.StepTemplate {
	return domain.StepTemplate{
		{ID: "s1", Title: "S1"},
		{ID: "s2", Title: "S2"},
		{ID: "s3", Title: "S3"},
	}
}

// NewTestProject builds a valid project on tmpl, or on the three-step
// template when tmpl is nil.
func NewTestProject(name string, tmpl domain.StepTemplate, opts ...ProjectOption) *domain.Project {
	if tmpl == nil {
		tmpl = ThreeStepTemplate()
	}
	if name == "" {
		name = fmt.Sprintf("Project %02d", testProjectCounter.Add(1))
	}
	p, err := domain.CreateProject(domain.ProjectFields{Name: name, Budget: 1000}, tmpl, FixedNow)
	if err != nil {
		panic(fmt.Sprintf("testutil: building project: %v", err))
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}
