// Package sqlite implements docstore.Store on a local SQLite database.
// Subscriptions poll the revision column; writes from this process nudge
// its own subscribers so they do not wait for the next tick.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/alexanderramin/procflow/internal/db"
	"github.com/alexanderramin/procflow/internal/docstore"
)

var _ docstore.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for poll failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithPollInterval sets how often subscriptions check for changes made by
// other processes.
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) { s.interval = d }
}

// WithUnitOfWork replaces the transaction runner used by Update.
func WithUnitOfWork(u db.UnitOfWork) Option {
	return func(s *Store) { s.uow = u }
}

type Store struct {
	db       db.DBTX
	uow      db.UnitOfWork
	logger   *slog.Logger
	interval time.Duration

	// writeMu serializes read-modify-write cycles within this process;
	// IMMEDIATE transactions cover other processes.
	writeMu sync.Mutex

	mu     sync.Mutex
	nudges map[string]map[chan struct{}]struct{}
	feeds  map[*docstore.Feed]struct{}
	closed bool
}

// New wraps an open database. The caller keeps ownership of sqlDB.
func New(sqlDB *sql.DB, opts ...Option) *Store {
	s := &Store{
		db:       sqlDB,
		uow:      db.NewSQLiteUnitOfWork(sqlDB),
		logger:   slog.Default(),
		interval: time.Second,
		nudges:   make(map[string]map[chan struct{}]struct{}),
		feeds:    make(map[*docstore.Feed]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func docKey(collection, key string) string { return collection + "/" + key }

func (s *Store) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Store) Exists(ctx context.Context, collection, key string) (bool, error) {
	if s.isClosed() {
		return false, docstore.ErrClosed
	}
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM documents WHERE collection = ? AND key = ?`, collection, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking document: %w", err)
	}
	return true, nil
}

func (s *Store) Get(ctx context.Context, collection, key string) (docstore.Document, error) {
	if s.isClosed() {
		return nil, docstore.ErrClosed
	}
	_, doc, err := fetch(ctx, s.db, collection, key)
	return doc, err
}

func fetch(ctx context.Context, q db.DBTX, collection, key string) (int64, docstore.Document, error) {
	var body string
	var rev int64
	err := q.QueryRowContext(ctx,
		`SELECT body, rev FROM documents WHERE collection = ? AND key = ?`, collection, key).Scan(&body, &rev)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil, docstore.ErrNotFound
	}
	if err != nil {
		return 0, nil, fmt.Errorf("getting document: %w", err)
	}
	var doc docstore.Document
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return 0, nil, fmt.Errorf("decoding document body: %w", err)
	}
	if doc == nil {
		doc = docstore.Document{}
	}
	return rev, doc, nil
}

func (s *Store) SetMerge(ctx context.Context, collection, key string, patch docstore.Document) error {
	return s.Update(ctx, collection, key, func(docstore.Document) (docstore.Document, error) {
		return patch, nil
	})
}

func (s *Store) Update(ctx context.Context, collection, key string, fn docstore.UpdateFunc) error {
	if s.isClosed() {
		return docstore.ErrClosed
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		_, current, err := fetch(ctx, tx, collection, key)
		if err != nil && !errors.Is(err, docstore.ErrNotFound) {
			return err
		}
		patch, err := fn(current.Clone())
		if err != nil {
			return err
		}
		body, err := json.Marshal(docstore.Merge(current, patch))
		if err != nil {
			return fmt.Errorf("encoding document body: %w", err)
		}
		now := time.Now().UTC().Format(time.RFC3339Nano)
		_, err = tx.ExecContext(ctx,
			`INSERT INTO documents (collection, key, body, rev, created_at, updated_at)
			 VALUES (?, ?, ?, 1, ?, ?)
			 ON CONFLICT (collection, key) DO UPDATE SET
			   body = excluded.body, rev = documents.rev + 1, updated_at = excluded.updated_at`,
			collection, key, string(body), now, now)
		if err != nil {
			return fmt.Errorf("writing document: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.nudge(collection, key)
	return nil
}

func (s *Store) nudge(collection, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.nudges[docKey(collection, key)] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *Store) Subscribe(ctx context.Context, collection, key string, fn func(docstore.Document)) (docstore.Subscription, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, docstore.ErrClosed
	}
	k := docKey(collection, key)
	nudge := make(chan struct{}, 1)
	if s.nudges[k] == nil {
		s.nudges[k] = make(map[chan struct{}]struct{})
	}
	s.nudges[k][nudge] = struct{}{}
	feed := docstore.NewFeed(fn)
	s.feeds[feed] = struct{}{}
	s.mu.Unlock()

	subCtx, sub := docstore.Bind(ctx, feed)
	fetchFn := func(ctx context.Context) (int64, docstore.Document, error) {
		return fetch(ctx, s.db, collection, key)
	}
	go func() {
		docstore.Poll(subCtx, s.interval, nudge, fetchFn, feed, s.logger)
		s.mu.Lock()
		delete(s.nudges[k], nudge)
		delete(s.feeds, feed)
		s.mu.Unlock()
	}()
	return sub, nil
}

// Close cancels all subscriptions. The underlying database stays open.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for f := range s.feeds {
		f.Cancel()
	}
	return nil
}
