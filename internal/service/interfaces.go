package service

import (
	"context"
	"time"

	"github.com/alexanderramin/procflow/internal/docstore"
	"github.com/alexanderramin/procflow/internal/domain"
	"github.com/alexanderramin/procflow/internal/workflow"
)

type WorkspaceService interface {
	// Open checks the workspace and records the access. It reports whether
	// the workspace already existed; a new one is created empty.
	Open(ctx context.Context, code string) (bool, error)
	Get(ctx context.Context, code string) (*domain.Workspace, error)
	Watch(ctx context.Context, code string, fn func(*domain.Workspace)) (docstore.Subscription, error)
}

type ProjectService interface {
	Create(ctx context.Context, code string, fields domain.ProjectFields) (*domain.Project, error)
	Get(ctx context.Context, code, id string) (*domain.Project, error)
	List(ctx context.Context, code string) ([]domain.Project, error)
	UpdateDetails(ctx context.Context, code, id string, fields domain.ProjectFields) (*domain.Project, error)
	Delete(ctx context.Context, code, id string) error
	Summary(ctx context.Context, code string) (workflow.Summary, error)
}

type StepService interface {
	Complete(ctx context.Context, code, projectID string, stepIdx int, documentNumber *string, completedAt *time.Time) (*domain.Project, error)
	Revert(ctx context.Context, code, projectID string, stepIdx int) (*domain.Project, error)
}

type ChecklistService interface {
	Add(ctx context.Context, code, projectID string, stepIdx int, text string, deadline *time.Time) (string, error)
	Edit(ctx context.Context, code, projectID string, stepIdx, itemIdx int, text string) error
	SetChecked(ctx context.Context, code, projectID string, stepIdx, itemIdx int, checked bool) error
	SetCompletedAt(ctx context.Context, code, projectID string, stepIdx, itemIdx int, at *time.Time) error
	SetDeadline(ctx context.Context, code, projectID string, stepIdx, itemIdx int, deadline *time.Time) error
	Delete(ctx context.Context, code, projectID string, stepIdx, itemIdx int) error
	AddNote(ctx context.Context, code, projectID string, stepIdx, itemIdx int, text string) (string, error)
	DeleteNote(ctx context.Context, code, projectID string, stepIdx, itemIdx int, ref string) error
}

type NoteService interface {
	AddTimeline(ctx context.Context, code, projectID string, stepIdx int, text string, at *time.Time) (string, error)
	EditTimeline(ctx context.Context, code, projectID string, stepIdx int, ref, text string) error
	DeleteTimeline(ctx context.Context, code, projectID string, stepIdx int, ref string) error
	Timeline(ctx context.Context, code, projectID string, stepIdx int) ([]domain.Note, error)
	AddPostit(ctx context.Context, code, projectID string, stepIdx int, text string) (string, error)
	EditPostit(ctx context.Context, code, projectID string, stepIdx int, ref, text string) error
	DeletePostit(ctx context.Context, code, projectID string, stepIdx int, ref string) error
}

type TemplateService interface {
	// Effective returns the template new projects use and whether it is a
	// workspace override.
	Effective(ctx context.Context, code string) (domain.StepTemplate, bool, error)
	// SetGlobal stores tmpl as the workspace template and retrofits every
	// project whose step count matches it.
	SetGlobal(ctx context.Context, code string, tmpl domain.StepTemplate) (workflow.GlobalResult, error)
	// Reset drops the workspace override so the default template applies.
	Reset(ctx context.Context, code string) error
	ApplyToProject(ctx context.Context, code, projectID string, tmpl domain.StepTemplate) (*domain.Project, error)
}
