package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/procflow/internal/domain"
)

// ProjectRepo loads and saves single projects inside a workspace document.
// Every write is an atomic read-modify-write of the projects array.
type ProjectRepo struct {
	ws            *WorkspaceStore
	checkRevision bool
	now           func() time.Time
}

// ProjectRepoOption configures a ProjectRepo.
type ProjectRepoOption func(*ProjectRepo)

// WithRevisionCheck toggles stale-write detection. Disabled, Save behaves
// as last-writer-wins.
func WithRevisionCheck(enabled bool) ProjectRepoOption {
	return func(r *ProjectRepo) { r.checkRevision = enabled }
}

// WithClock sets the time source for lastUpdatedAt.
func WithClock(now func() time.Time) ProjectRepoOption {
	return func(r *ProjectRepo) { r.now = now }
}

func NewProjectRepo(ws *WorkspaceStore, opts ...ProjectRepoOption) *ProjectRepo {
	r := &ProjectRepo{
		ws:            ws,
		checkRevision: true,
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Workspaces returns the underlying workspace store.
func (r *ProjectRepo) Workspaces() *WorkspaceStore { return r.ws }

// List returns every project, newest first, with legacy notes migrated. A
// workspace that does not exist yet has no projects.
func (r *ProjectRepo) List(ctx context.Context, code string) ([]domain.Project, error) {
	ws, err := r.ws.ReadAll(ctx, code)
	if err != nil {
		if isNotFound(err) {
			return []domain.Project{}, nil
		}
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	for i := range ws.Projects {
		domain.MigrateProject(&ws.Projects[i])
	}
	return ws.Projects, nil
}

// Load returns a copy of one project with legacy notes migrated.
func (r *ProjectRepo) Load(ctx context.Context, code, id string) (*domain.Project, error) {
	ws, err := r.ws.ReadAll(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("loading project: %w", err)
	}
	idx := ws.FindProject(id)
	if idx < 0 {
		return nil, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	p := ws.Projects[idx].Clone()
	domain.MigrateProject(p)
	return p, nil
}

// Create prepends p to the workspace, creating the workspace if needed.
func (r *ProjectRepo) Create(ctx context.Context, code string, p *domain.Project) error {
	err := r.ws.Update(ctx, code, func(ws *domain.Workspace) (WorkspacePatch, error) {
		if ws.FindProject(p.ID) >= 0 {
			return WorkspacePatch{}, fmt.Errorf("%w: project %s already exists", domain.ErrValidation, p.ID)
		}
		projects := make([]domain.Project, 0, len(ws.Projects)+1)
		projects = append(projects, *p.Clone())
		projects = append(projects, ws.Projects...)
		now := r.now()
		return WorkspacePatch{Projects: &projects, LastUpdatedAt: &now}, nil
	})
	if err != nil {
		return fmt.Errorf("creating project: %w", err)
	}
	return nil
}

// Save replaces the stored project with p. With revision checks enabled it
// fails with domain.ErrStaleRevision when the stored copy changed since p
// was loaded. On success p.Revision holds the new revision.
func (r *ProjectRepo) Save(ctx context.Context, code string, p *domain.Project) error {
	var next int64
	err := r.ws.Update(ctx, code, func(ws *domain.Workspace) (WorkspacePatch, error) {
		idx := ws.FindProject(p.ID)
		if idx < 0 {
			return WorkspacePatch{}, fmt.Errorf("project %s: %w", p.ID, domain.ErrNotFound)
		}
		stored := ws.Projects[idx].Revision
		if r.checkRevision && stored != p.Revision {
			return WorkspacePatch{}, fmt.Errorf("project %s at revision %d, have %d: %w",
				p.ID, stored, p.Revision, domain.ErrStaleRevision)
		}
		next = max(stored, p.Revision) + 1
		saved := p.Clone()
		saved.Revision = next
		ws.Projects[idx] = *saved
		now := r.now()
		return WorkspacePatch{Projects: &ws.Projects, LastUpdatedAt: &now}, nil
	})
	if err != nil {
		return fmt.Errorf("saving project: %w", err)
	}
	p.Revision = next
	return nil
}

func (r *ProjectRepo) Delete(ctx context.Context, code, id string) error {
	err := r.ws.Update(ctx, code, func(ws *domain.Workspace) (WorkspacePatch, error) {
		idx := ws.FindProject(id)
		if idx < 0 {
			return WorkspacePatch{}, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
		}
		projects := append(ws.Projects[:idx:idx], ws.Projects[idx+1:]...)
		now := r.now()
		return WorkspacePatch{Projects: &projects, LastUpdatedAt: &now}, nil
	})
	if err != nil {
		return fmt.Errorf("deleting project: %w", err)
	}
	return nil
}
