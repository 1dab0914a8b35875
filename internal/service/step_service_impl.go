package service

import (
	"context"
	"time"

	"github.com/alexanderramin/procflow/internal/domain"
	"github.com/alexanderramin/procflow/internal/repository"
	"github.com/alexanderramin/procflow/internal/workflow"
)

type stepService struct {
	mutator
	observer UseCaseObserver
}

func NewStepService(projects *repository.ProjectRepo, observers ...UseCaseObserver) StepService {
	return &stepService{
		mutator:  newMutator(projects),
		observer: useCaseObserverOrNoop(observers),
	}
}

func (s *stepService) Complete(ctx context.Context, code, projectID string, stepIdx int, documentNumber *string, completedAt *time.Time) (project *domain.Project, err error) {
	fields := map[string]any{"project_id": projectID, "step": stepIdx}
	defer observe(ctx, s.observer, "complete-step", time.Now(), fields, &err)

	project, err = s.mutate(ctx, code, projectID, func(p *domain.Project, now time.Time) error {
		return workflow.CompleteStep(p, stepIdx, documentNumber, completedAt, now)
	})
	if err == nil {
		fields["progress"] = workflow.ProgressPercent(project)
		fields["status"] = string(project.Status)
	}
	return project, err
}

func (s *stepService) Revert(ctx context.Context, code, projectID string, stepIdx int) (project *domain.Project, err error) {
	fields := map[string]any{"project_id": projectID, "step": stepIdx}
	defer observe(ctx, s.observer, "revert-step", time.Now(), fields, &err)

	project, err = s.mutate(ctx, code, projectID, func(p *domain.Project, now time.Time) error {
		return workflow.RevertStep(p, stepIdx, now)
	})
	if err == nil {
		fields["progress"] = workflow.ProgressPercent(project)
	}
	return project, err
}
