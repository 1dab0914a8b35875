package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alexanderramin/procflow/internal/docstore"
	"github.com/alexanderramin/procflow/internal/domain"
)

// DefaultCollection is the document collection holding workspaces.
const DefaultCollection = "workspaces"

// WorkspacePatch lists the top-level workspace fields to overwrite. Nil
// fields are left untouched. Setting Projects replaces the whole array.
type WorkspacePatch struct {
	Projects       *[]domain.Project
	CustomSteps    *domain.StepTemplate
	LastAccessedAt *time.Time
	LastUpdatedAt  *time.Time

	unreadable []json.RawMessage
}

func (p WorkspacePatch) document() (docstore.Document, error) {
	doc := docstore.Document{}
	set := func(name string, v any) error {
		raw, err := docstore.Field(v)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", name, err)
		}
		doc[name] = raw
		return nil
	}
	if p.Projects != nil {
		projects := make([]any, 0, len(*p.Projects)+len(p.unreadable))
		for i := range *p.Projects {
			projects = append(projects, &(*p.Projects)[i])
		}
		for _, raw := range p.unreadable {
			projects = append(projects, raw)
		}
		if err := set("projects", projects); err != nil {
			return nil, err
		}
	}
	if p.CustomSteps != nil {
		if err := set("customSteps", *p.CustomSteps); err != nil {
			return nil, err
		}
	}
	if p.LastAccessedAt != nil {
		if err := set("lastAccessedAt", p.LastAccessedAt.UTC()); err != nil {
			return nil, err
		}
	}
	if p.LastUpdatedAt != nil {
		if err := set("lastUpdatedAt", p.LastUpdatedAt.UTC()); err != nil {
			return nil, err
		}
	}
	return doc, nil
}

// Option configures a WorkspaceStore.
type Option func(*WorkspaceStore)

// WithCollection overrides DefaultCollection.
func WithCollection(name string) Option {
	return func(s *WorkspaceStore) { s.collection = name }
}

// WithLogger sets the logger used for read and subscription failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *WorkspaceStore) { s.logger = l }
}

// WorkspaceStore reads and writes whole workspace documents keyed by access
// code.
type WorkspaceStore struct {
	store      docstore.Store
	collection string
	logger     *slog.Logger
}

func NewWorkspaceStore(store docstore.Store, opts ...Option) *WorkspaceStore {
	s := &WorkspaceStore{
		store:      store,
		collection: DefaultCollection,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NormalizeCode trims an access code and rejects empty ones.
func NormalizeCode(code string) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("%w: access code is required", domain.ErrValidation)
	}
	return code, nil
}

func (s *WorkspaceStore) Exists(ctx context.Context, code string) (bool, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return false, err
	}
	ok, err := s.store.Exists(ctx, s.collection, code)
	if err != nil {
		return false, fmt.Errorf("%w: checking workspace: %w", domain.ErrUnavailable, err)
	}
	return ok, nil
}

// ReadAll returns the workspace document. A missing document yields
// domain.ErrNotFound; any transport failure yields domain.ErrUnavailable.
func (s *WorkspaceStore) ReadAll(ctx context.Context, code string) (*domain.Workspace, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}
	doc, err := s.store.Get(ctx, s.collection, code)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, fmt.Errorf("workspace: %w", domain.ErrNotFound)
	}
	if err != nil {
		s.logger.Warn("workspace read failed",
			slog.String("collection", s.collection),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: reading workspace: %w", domain.ErrUnavailable, err)
	}
	return s.decodeWorkspace(doc)
}

// decodeWorkspace decodes projects one at a time. A project that fails to
// decode is logged and kept aside in Unreadable instead of failing the
// whole workspace.
func (s *WorkspaceStore) decodeWorkspace(doc docstore.Document) (*domain.Workspace, error) {
	ws := &domain.Workspace{}
	if doc == nil {
		return ws, nil
	}
	var aux struct {
		domain.Workspace
		Projects []json.RawMessage `json:"projects"`
	}
	if err := docstore.Decode(doc, &aux); err != nil {
		return nil, fmt.Errorf("%w: decoding workspace: %w", domain.ErrUnavailable, err)
	}
	*ws = aux.Workspace
	ws.Projects = make([]domain.Project, 0, len(aux.Projects))
	for i, raw := range aux.Projects {
		var p domain.Project
		if err := json.Unmarshal(raw, &p); err != nil {
			s.logger.Warn("skipping unreadable project",
				slog.String("collection", s.collection),
				slog.Int("index", i),
				slog.String("error", err.Error()),
			)
			ws.Unreadable = append(ws.Unreadable, raw)
			continue
		}
		ws.Projects = append(ws.Projects, p)
	}
	return ws, nil
}

// WriteMerge overwrites the fields set in patch. Failures wrap
// domain.ErrWrite and keep the transport error in the chain.
func (s *WorkspaceStore) WriteMerge(ctx context.Context, code string, patch WorkspacePatch) error {
	code, err := NormalizeCode(code)
	if err != nil {
		return err
	}
	doc, err := patch.document()
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrWrite, err)
	}
	if err := s.store.SetMerge(ctx, s.collection, code, doc); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrWrite, err)
	}
	return nil
}

// Update runs fn on the current workspace and merges the returned patch
// atomically. fn sees an empty workspace when none exists yet. Errors from
// fn are returned unchanged.
func (s *WorkspaceStore) Update(ctx context.Context, code string, fn func(ws *domain.Workspace) (WorkspacePatch, error)) error {
	code, err := NormalizeCode(code)
	if err != nil {
		return err
	}
	var fnErr error
	err = s.store.Update(ctx, s.collection, code, func(current docstore.Document) (docstore.Document, error) {
		ws, err := s.decodeWorkspace(current)
		if err != nil {
			fnErr = err
			return nil, err
		}
		patch, err := fn(ws)
		if err != nil {
			fnErr = err
			return nil, err
		}
		patch.unreadable = ws.Unreadable
		doc, err := patch.document()
		if err != nil {
			fnErr = err
			return nil, err
		}
		return doc, nil
	})
	if err == nil {
		return nil
	}
	if fnErr != nil && errors.Is(err, fnErr) {
		return fnErr
	}
	return fmt.Errorf("%w: %w", domain.ErrWrite, err)
}

// Subscribe calls fn with the decoded workspace after every change,
// including this process's own writes. Documents that fail to decode are
// logged and skipped.
func (s *WorkspaceStore) Subscribe(ctx context.Context, code string, fn func(*domain.Workspace)) (docstore.Subscription, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return nil, err
	}
	sub, err := s.store.Subscribe(ctx, s.collection, code, func(doc docstore.Document) {
		ws, err := s.decodeWorkspace(doc)
		if err != nil {
			s.logger.Warn("workspace update skipped", slog.String("error", err.Error()))
			return
		}
		fn(ws)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: subscribing to workspace: %w", domain.ErrUnavailable, err)
	}
	return sub, nil
}

// Touch records that the workspace was opened.
func (s *WorkspaceStore) Touch(ctx context.Context, code string, now time.Time) error {
	return s.WriteMerge(ctx, code, WorkspacePatch{LastAccessedAt: &now})
}
