package service

import (
	"context"
	"time"

	"github.com/alexanderramin/procflow/internal/domain"
	"github.com/alexanderramin/procflow/internal/repository"
	"github.com/alexanderramin/procflow/internal/workflow"
)

type projectService struct {
	mutator
	observer UseCaseObserver
}

func NewProjectService(projects *repository.ProjectRepo, observers ...UseCaseObserver) ProjectService {
	return &projectService{
		mutator:  newMutator(projects),
		observer: useCaseObserverOrNoop(observers),
	}
}

// Create validates fields, seeds steps from the workspace's effective
// template and prepends the project.
func (s *projectService) Create(ctx context.Context, code string, fields domain.ProjectFields) (project *domain.Project, err error) {
	fields.Normalize()
	obsFields := map[string]any{"priority": string(fields.Priority)}
	defer observe(ctx, s.observer, "create-project", time.Now(), obsFields, &err)

	if err = fields.Validate(); err != nil {
		return nil, err
	}
	ws, err := s.projects.Workspaces().ReadAll(ctx, code)
	if err != nil && !isNotFound(err) {
		return nil, err
	}
	err = nil

	project, err = domain.CreateProject(fields, ws.Template(), s.now())
	if err != nil {
		return nil, err
	}
	obsFields["step_count"] = len(project.Steps)
	if err = s.projects.Create(ctx, code, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *projectService) Get(ctx context.Context, code, id string) (*domain.Project, error) {
	return s.projects.Load(ctx, code, id)
}

func (s *projectService) List(ctx context.Context, code string) ([]domain.Project, error) {
	return s.projects.List(ctx, code)
}

func (s *projectService) UpdateDetails(ctx context.Context, code, id string, fields domain.ProjectFields) (project *domain.Project, err error) {
	defer observe(ctx, s.observer, "update-project", time.Now(), map[string]any{"project_id": id}, &err)
	fields.Normalize()
	if err = fields.Validate(); err != nil {
		return nil, err
	}
	return s.mutate(ctx, code, id, func(p *domain.Project, now time.Time) error {
		return workflow.UpdateDetails(p, fields, now)
	})
}

func (s *projectService) Delete(ctx context.Context, code, id string) (err error) {
	defer observe(ctx, s.observer, "delete-project", time.Now(), map[string]any{"project_id": id}, &err)
	return s.projects.Delete(ctx, code, id)
}

func (s *projectService) Summary(ctx context.Context, code string) (workflow.Summary, error) {
	projects, err := s.projects.List(ctx, code)
	if err != nil {
		return workflow.Summary{}, err
	}
	return workflow.Summarize(projects, s.now()), nil
}
