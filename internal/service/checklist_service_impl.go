package service

import (
	"context"
	"time"

	"github.com/alexanderramin/procflow/internal/domain"
	"github.com/alexanderramin/procflow/internal/repository"
	"github.com/alexanderramin/procflow/internal/workflow"
)

type checklistService struct {
	mutator
	observer UseCaseObserver
}

func NewChecklistService(projects *repository.ProjectRepo, observers ...UseCaseObserver) ChecklistService {
	return &checklistService{
		mutator:  newMutator(projects),
		observer: useCaseObserverOrNoop(observers),
	}
}

func itemFields(projectID string, stepIdx, itemIdx int) map[string]any {
	return map[string]any{"project_id": projectID, "step": stepIdx, "item": itemIdx}
}

func (s *checklistService) Add(ctx context.Context, code, projectID string, stepIdx int, text string, deadline *time.Time) (id string, err error) {
	defer observe(ctx, s.observer, "add-checklist-item", time.Now(), map[string]any{"project_id": projectID, "step": stepIdx}, &err)
	_, err = s.mutate(ctx, code, projectID, func(p *domain.Project, now time.Time) error {
		var addErr error
		id, addErr = workflow.AddChecklistItem(p, stepIdx, text, deadline, now)
		return addErr
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *checklistService) Edit(ctx context.Context, code, projectID string, stepIdx, itemIdx int, text string) (err error) {
	defer observe(ctx, s.observer, "edit-checklist-item", time.Now(), itemFields(projectID, stepIdx, itemIdx), &err)
	_, err = s.mutate(ctx, code, projectID, func(p *domain.Project, now time.Time) error {
		return workflow.EditChecklistItem(p, stepIdx, itemIdx, text, now)
	})
	return err
}

func (s *checklistService) SetChecked(ctx context.Context, code, projectID string, stepIdx, itemIdx int, checked bool) (err error) {
	fields := itemFields(projectID, stepIdx, itemIdx)
	fields["checked"] = checked
	defer observe(ctx, s.observer, "check-item", time.Now(), fields, &err)
	_, err = s.mutate(ctx, code, projectID, func(p *domain.Project, now time.Time) error {
		return workflow.SetItemChecked(p, stepIdx, itemIdx, checked, now)
	})
	return err
}

func (s *checklistService) SetCompletedAt(ctx context.Context, code, projectID string, stepIdx, itemIdx int, at *time.Time) (err error) {
	defer observe(ctx, s.observer, "set-item-date", time.Now(), itemFields(projectID, stepIdx, itemIdx), &err)
	_, err = s.mutate(ctx, code, projectID, func(p *domain.Project, now time.Time) error {
		return workflow.SetItemCompletedAt(p, stepIdx, itemIdx, at, now)
	})
	return err
}

func (s *checklistService) SetDeadline(ctx context.Context, code, projectID string, stepIdx, itemIdx int, deadline *time.Time) (err error) {
	defer observe(ctx, s.observer, "set-item-deadline", time.Now(), itemFields(projectID, stepIdx, itemIdx), &err)
	_, err = s.mutate(ctx, code, projectID, func(p *domain.Project, now time.Time) error {
		return workflow.SetItemDeadline(p, stepIdx, itemIdx, deadline, now)
	})
	return err
}

func (s *checklistService) Delete(ctx context.Context, code, projectID string, stepIdx, itemIdx int) (err error) {
	defer observe(ctx, s.observer, "delete-checklist-item", time.Now(), itemFields(projectID, stepIdx, itemIdx), &err)
	_, err = s.mutate(ctx, code, projectID, func(p *domain.Project, now time.Time) error {
		return workflow.DeleteChecklistItem(p, stepIdx, itemIdx, now)
	})
	return err
}

func (s *checklistService) AddNote(ctx context.Context, code, projectID string, stepIdx, itemIdx int, text string) (id string, err error) {
	defer observe(ctx, s.observer, "add-item-note", time.Now(), itemFields(projectID, stepIdx, itemIdx), &err)
	_, err = s.mutate(ctx, code, projectID, func(p *domain.Project, now time.Time) error {
		var addErr error
		id, addErr = workflow.AddItemNote(p, stepIdx, itemIdx, text, now)
		return addErr
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *checklistService) DeleteNote(ctx context.Context, code, projectID string, stepIdx, itemIdx int, ref string) (err error) {
	defer observe(ctx, s.observer, "delete-item-note", time.Now(), itemFields(projectID, stepIdx, itemIdx), &err)
	_, err = s.mutate(ctx, code, projectID, func(p *domain.Project, now time.Time) error {
		return workflow.DeleteItemNote(p, stepIdx, itemIdx, ref, now)
	})
	return err
}
