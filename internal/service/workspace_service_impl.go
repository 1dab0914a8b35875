package service

import (
	"context"
	"time"

	"github.com/alexanderramin/procflow/internal/docstore"
	"github.com/alexanderramin/procflow/internal/domain"
	"github.com/alexanderramin/procflow/internal/repository"
)

type workspaceService struct {
	workspaces *repository.WorkspaceStore
	observer   UseCaseObserver
	now        func() time.Time
}

func NewWorkspaceService(workspaces *repository.WorkspaceStore, observers ...UseCaseObserver) WorkspaceService {
	return &workspaceService{
		workspaces: workspaces,
		observer:   useCaseObserverOrNoop(observers),
		now:        utcNow,
	}
}

func (s *workspaceService) Open(ctx context.Context, code string) (existed bool, err error) {
	defer observe(ctx, s.observer, "open-workspace", time.Now(), map[string]any{}, &err)

	existed, err = s.workspaces.Exists(ctx, code)
	if err != nil {
		return false, err
	}
	if err = s.workspaces.Touch(ctx, code, s.now()); err != nil {
		return existed, err
	}
	return existed, nil
}

func (s *workspaceService) Get(ctx context.Context, code string) (*domain.Workspace, error) {
	return s.workspaces.ReadAll(ctx, code)
}

func (s *workspaceService) Watch(ctx context.Context, code string, fn func(*domain.Workspace)) (docstore.Subscription, error) {
	return s.workspaces.Subscribe(ctx, code, fn)
}
