package service

import (
	"context"
	"time"

	"github.com/alexanderramin/procflow/internal/domain"
	"github.com/alexanderramin/procflow/internal/repository"
	"github.com/alexanderramin/procflow/internal/workflow"
)

type templateService struct {
	mutator
	observer UseCaseObserver
}

func NewTemplateService(projects *repository.ProjectRepo, observers ...UseCaseObserver) TemplateService {
	return &templateService{
		mutator:  newMutator(projects),
		observer: useCaseObserverOrNoop(observers),
	}
}

func (s *templateService) Effective(ctx context.Context, code string) (domain.StepTemplate, bool, error) {
	ws, err := s.projects.Workspaces().ReadAll(ctx, code)
	if err != nil {
		if isNotFound(err) {
			return domain.DefaultStepTemplate(), false, nil
		}
		return nil, false, err
	}
	return ws.Template(), len(ws.CustomSteps) > 0, nil
}

// SetGlobal writes the template and the retrofitted projects in one atomic
// update. Retrofitted projects get a new revision so sessions holding them
// pick the change up.
func (s *templateService) SetGlobal(ctx context.Context, code string, tmpl domain.StepTemplate) (result workflow.GlobalResult, err error) {
	fields := map[string]any{"step_count": len(tmpl)}
	defer observe(ctx, s.observer, "set-template", time.Now(), fields, &err)

	if err = tmpl.Validate(); err != nil {
		return workflow.GlobalResult{}, err
	}
	err = s.projects.Workspaces().Update(ctx, code, func(ws *domain.Workspace) (repository.WorkspacePatch, error) {
		now := s.now()
		res, applyErr := workflow.ApplyTemplateGlobal(ws.Projects, tmpl, now)
		if applyErr != nil {
			return repository.WorkspacePatch{}, applyErr
		}
		for _, id := range res.Updated {
			ws.Projects[ws.FindProject(id)].Revision++
		}
		result = res
		custom := tmpl.Clone()
		return repository.WorkspacePatch{
			Projects:      &ws.Projects,
			CustomSteps:   &custom,
			LastUpdatedAt: &now,
		}, nil
	})
	if err != nil {
		return workflow.GlobalResult{}, err
	}
	fields["updated"] = len(result.Updated)
	fields["skipped"] = len(result.Skipped)
	return result, nil
}

func (s *templateService) Reset(ctx context.Context, code string) (err error) {
	defer observe(ctx, s.observer, "reset-template", time.Now(), map[string]any{}, &err)
	var empty domain.StepTemplate
	now := s.now()
	return s.projects.Workspaces().WriteMerge(ctx, code, repository.WorkspacePatch{
		CustomSteps:   &empty,
		LastUpdatedAt: &now,
	})
}

func (s *templateService) ApplyToProject(ctx context.Context, code, projectID string, tmpl domain.StepTemplate) (project *domain.Project, err error) {
	defer observe(ctx, s.observer, "apply-template", time.Now(), map[string]any{"project_id": projectID}, &err)
	if err = tmpl.Validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, code, projectID, func(p *domain.Project, now time.Time) error {
		return workflow.ApplyTemplateToProject(p, tmpl, now)
	})
}
