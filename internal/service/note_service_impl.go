package service

import (
	"context"
	"time"

	"github.com/alexanderramin/procflow/internal/domain"
	"github.com/alexanderramin/procflow/internal/repository"
	"github.com/alexanderramin/procflow/internal/workflow"
)

type noteService struct {
	mutator
	observer UseCaseObserver
}

func NewNoteService(projects *repository.ProjectRepo, observers ...UseCaseObserver) NoteService {
	return &noteService{
		mutator:  newMutator(projects),
		observer: useCaseObserverOrNoop(observers),
	}
}

func stepFields(projectID string, stepIdx int, kind domain.NoteKind) map[string]any {
	return map[string]any{"project_id": projectID, "step": stepIdx, "kind": string(kind)}
}

func (s *noteService) AddTimeline(ctx context.Context, code, projectID string, stepIdx int, text string, at *time.Time) (id string, err error) {
	defer observe(ctx, s.observer, "add-note", time.Now(), stepFields(projectID, stepIdx, domain.NoteTimeline), &err)
	_, err = s.mutate(ctx, code, projectID, func(p *domain.Project, now time.Time) error {
		var addErr error
		id, addErr = workflow.AddTimelineNote(p, stepIdx, text, at, now)
		return addErr
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *noteService) EditTimeline(ctx context.Context, code, projectID string, stepIdx int, ref, text string) (err error) {
	defer observe(ctx, s.observer, "edit-note", time.Now(), stepFields(projectID, stepIdx, domain.NoteTimeline), &err)
	_, err = s.mutate(ctx, code, projectID, func(p *domain.Project, now time.Time) error {
		return workflow.EditTimelineNote(p, stepIdx, ref, text, now)
	})
	return err
}

func (s *noteService) DeleteTimeline(ctx context.Context, code, projectID string, stepIdx int, ref string) (err error) {
	defer observe(ctx, s.observer, "delete-note", time.Now(), stepFields(projectID, stepIdx, domain.NoteTimeline), &err)
	_, err = s.mutate(ctx, code, projectID, func(p *domain.Project, now time.Time) error {
		return workflow.DeleteTimelineNote(p, stepIdx, ref, now)
	})
	return err
}

// Timeline returns the step's timeline newest first.
func (s *noteService) Timeline(ctx context.Context, code, projectID string, stepIdx int) ([]domain.Note, error) {
	p, err := s.projects.Load(ctx, code, projectID)
	if err != nil {
		return nil, err
	}
	step, err := p.Step(stepIdx)
	if err != nil {
		return nil, err
	}
	return workflow.TimelineView(step), nil
}

func (s *noteService) AddPostit(ctx context.Context, code, projectID string, stepIdx int, text string) (id string, err error) {
	defer observe(ctx, s.observer, "add-note", time.Now(), stepFields(projectID, stepIdx, domain.NotePostit), &err)
	_, err = s.mutate(ctx, code, projectID, func(p *domain.Project, now time.Time) error {
		var addErr error
		id, addErr = workflow.AddPostit(p, stepIdx, text, now)
		return addErr
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *noteService) EditPostit(ctx context.Context, code, projectID string, stepIdx int, ref, text string) (err error) {
	defer observe(ctx, s.observer, "edit-note", time.Now(), stepFields(projectID, stepIdx, domain.NotePostit), &err)
	_, err = s.mutate(ctx, code, projectID, func(p *domain.Project, now time.Time) error {
		return workflow.EditPostit(p, stepIdx, ref, text, now)
	})
	return err
}

func (s *noteService) DeletePostit(ctx context.Context, code, projectID string, stepIdx int, ref string) (err error) {
	defer observe(ctx, s.observer, "delete-note", time.Now(), stepFields(projectID, stepIdx, domain.NotePostit), &err)
	_, err = s.mutate(ctx, code, projectID, func(p *domain.Project, now time.Time) error {
		return workflow.DeletePostit(p, stepIdx, ref, now)
	})
	return err
}
