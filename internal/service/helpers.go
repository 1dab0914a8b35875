package service

import (
	"context"
	"errors"
	"time"

	"github.com/alexanderramin/procflow/internal/domain"
	"github.com/alexanderramin/procflow/internal/repository"
)

// maxStaleRetries bounds how often a mutation is replayed on a freshly
// loaded project after losing a revision race.
const maxStaleRetries = 3

func utcNow() time.Time { return time.Now().UTC() }

// mutator runs load, edit and save for a single project.
type mutator struct {
	projects *repository.ProjectRepo
	now      func() time.Time
}

func newMutator(projects *repository.ProjectRepo) mutator {
	return mutator{projects: projects, now: utcNow}
}

// mutate loads the project, applies fn and saves it. When another writer
// saved in between, fn is replayed on the fresh copy.
func (m mutator) mutate(ctx context.Context, code, id string, fn func(p *domain.Project, now time.Time) error) (*domain.Project, error) {
	var err error
	for attempt := 0; attempt < maxStaleRetries; attempt++ {
		var p *domain.Project
		p, err = m.projects.Load(ctx, code, id)
		if err != nil {
			return nil, err
		}
		if err = fn(p, m.now()); err != nil {
			return nil, err
		}
		err = m.projects.Save(ctx, code, p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, domain.ErrStaleRevision) {
			return nil, err
		}
	}
	return nil, err
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
