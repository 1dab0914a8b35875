// Package session holds the active project for one workspace and applies
// local edits and remote updates to it from a single goroutine, so the two
// never interleave.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alexanderramin/procflow/internal/docstore"
	"github.com/alexanderramin/procflow/internal/domain"
	"github.com/alexanderramin/procflow/internal/repository"
)

var (
	ErrNoActiveProject = errors.New("session: no project open")
	ErrStopped         = errors.New("session: stopped")
)

// Intent edits a private copy of the active project. Returning an error
// discards the copy.
type Intent func(p *domain.Project, now time.Time) error

type message interface{ isMessage() }

type intentMsg struct {
	ctx   context.Context
	fn    Intent
	reply chan error
}

type openMsg struct {
	ctx   context.Context
	id    string
	reply chan error
}

type remoteMsg struct {
	ws *domain.Workspace
}

func (intentMsg) isMessage() {}
func (openMsg) isMessage()   {}
func (remoteMsg) isMessage() {}

// Option configures a Session.
type Option func(*Session)

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

type Session struct {
	repo   *repository.ProjectRepo
	code   string
	logger *slog.Logger
	now    func() time.Time

	msgs chan message
	stop chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
	sub  docstore.Subscription

	mu       sync.RWMutex
	active   *domain.Project
	onChange func(*domain.Project)
}

func New(repo *repository.ProjectRepo, code string, opts ...Option) *Session {
	s := &Session{
		repo:   repo,
		code:   code,
		logger: slog.Default(),
		now:    func() time.Time { return time.Now().UTC() },
		msgs:   make(chan message),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnChange registers fn to run, on the session goroutine, whenever the
// active project is replaced. fn receives a copy, or nil when the project
// was deleted remotely.
func (s *Session) OnChange(fn func(*domain.Project)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Start subscribes to the workspace and launches the reducer goroutine.
func (s *Session) Start(ctx context.Context) error {
	sub, err := s.repo.Workspaces().Subscribe(ctx, s.code, func(ws *domain.Workspace) {
		select {
		case s.msgs <- remoteMsg{ws: ws}:
		case <-s.done:
		case <-s.stop:
		}
	})
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	s.sub = sub

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop(ctx)
	}()
	return nil
}

// Stop cancels the subscription and waits for the reducer to exit.
func (s *Session) Stop() {
	s.once.Do(func() {
		close(s.stop)
		if s.sub != nil {
			s.sub.Cancel()
		}
	})
	s.wg.Wait()
}

func (s *Session) loop(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case m := <-s.msgs:
			switch m := m.(type) {
			case intentMsg:
				m.reply <- s.applyIntent(m.ctx, m.fn)
			case openMsg:
				m.reply <- s.open(m.ctx, m.id)
			case remoteMsg:
				s.applyRemote(m.ws)
			}
		}
	}
}

func (s *Session) send(ctx context.Context, m message, reply chan error) error {
	select {
	case s.msgs <- m:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.done:
		return ErrStopped
	case <-s.stop:
		return ErrStopped
	}
	return <-reply
}

// Open loads a project and makes it the active one.
func (s *Session) Open(ctx context.Context, id string) error {
	reply := make(chan error, 1)
	return s.send(ctx, openMsg{ctx: ctx, id: id, reply: reply}, reply)
}

// Apply runs fn on a copy of the active project and persists it. The active
// project is replaced only after the save succeeds. A stale save reloads the
// project and returns domain.ErrStaleRevision so the caller can retry on
// fresh data.
func (s *Session) Apply(ctx context.Context, fn Intent) error {
	reply := make(chan error, 1)
	return s.send(ctx, intentMsg{ctx: ctx, fn: fn, reply: reply}, reply)
}

// Active returns a copy of the active project, or nil.
func (s *Session) Active() *domain.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.active == nil {
		return nil
	}
	return s.active.Clone()
}

func (s *Session) setActive(p *domain.Project) {
	s.mu.Lock()
	s.active = p
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		if p == nil {
			fn(nil)
			return
		}
		fn(p.Clone())
	}
}

func (s *Session) current() *domain.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *Session) open(ctx context.Context, id string) error {
	p, err := s.repo.Load(ctx, s.code, id)
	if err != nil {
		return err
	}
	s.setActive(p)
	return nil
}

func (s *Session) applyIntent(ctx context.Context, fn Intent) error {
	active := s.current()
	if active == nil {
		return ErrNoActiveProject
	}
	next := active.Clone()
	if err := fn(next, s.now()); err != nil {
		return err
	}
	err := s.repo.Save(ctx, s.code, next)
	if errors.Is(err, domain.ErrStaleRevision) {
		s.logger.Info("stale project copy, reloading",
			slog.String("project_id", active.ID),
			slog.Int64("revision", active.Revision),
		)
		if reloaded, loadErr := s.repo.Load(ctx, s.code, active.ID); loadErr == nil {
			s.setActive(reloaded)
		}
		return err
	}
	if err != nil {
		return err
	}
	s.setActive(next)
	return nil
}

// applyRemote adopts the stored copy of the active project when it is newer.
// Echoes of this session's own saves carry the same revision and are ignored.
func (s *Session) applyRemote(ws *domain.Workspace) {
	active := s.current()
	if active == nil {
		return
	}
	idx := ws.FindProject(active.ID)
	if idx < 0 {
		s.logger.Info("active project removed remotely", slog.String("project_id", active.ID))
		s.setActive(nil)
		return
	}
	remote := ws.Projects[idx].Clone()
	if remote.Revision <= active.Revision {
		return
	}
	domain.MigrateProject(remote)
	s.setActive(remote)
}
