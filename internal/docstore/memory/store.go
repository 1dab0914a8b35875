// Package memory implements docstore.Store in process memory. Safe for
// concurrent access. Intended for tests and single-process use.
package memory

import (
	"context"
	"sync"

	"github.com/alexanderramin/procflow/internal/docstore"
)

var _ docstore.Store = (*Store)(nil)

type watcher struct {
	feed *docstore.Feed
}

type Store struct {
	mu       sync.RWMutex
	docs     map[string]docstore.Document
	watchers map[string]map[*watcher]struct{}
	closed   bool

	// failWith, when set, is returned by every operation. Tests use it to
	// simulate an unreachable service.
	failWith error
}

func New() *Store {
	return &Store{
		docs:     make(map[string]docstore.Document),
		watchers: make(map[string]map[*watcher]struct{}),
	}
}

func docKey(collection, key string) string { return collection + "/" + key }

// SetFailure makes every subsequent operation return err. Passing nil
// restores normal behavior.
func (s *Store) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failWith = err
}

func (s *Store) check() error {
	if s.closed {
		return docstore.ErrClosed
	}
	return s.failWith
}

func (s *Store) Exists(_ context.Context, collection, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(); err != nil {
		return false, err
	}
	_, ok := s.docs[docKey(collection, key)]
	return ok, nil
}

func (s *Store) Get(_ context.Context, collection, key string) (docstore.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.check(); err != nil {
		return nil, err
	}
	doc, ok := s.docs[docKey(collection, key)]
	if !ok {
		return nil, docstore.ErrNotFound
	}
	return doc.Clone(), nil
}

func (s *Store) SetMerge(ctx context.Context, collection, key string, patch docstore.Document) error {
	return s.Update(ctx, collection, key, func(docstore.Document) (docstore.Document, error) {
		return patch, nil
	})
}

func (s *Store) Update(_ context.Context, collection, key string, fn docstore.UpdateFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return err
	}
	k := docKey(collection, key)
	current, ok := s.docs[k]
	var view docstore.Document
	if ok {
		view = current.Clone()
	}
	patch, err := fn(view)
	if err != nil {
		return err
	}
	next := docstore.Merge(current, patch.Clone())
	s.docs[k] = next
	for w := range s.watchers[k] {
		w.feed.Push(next)
	}
	return nil
}

func (s *Store) Subscribe(ctx context.Context, collection, key string, fn func(docstore.Document)) (docstore.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(); err != nil {
		return nil, err
	}
	k := docKey(collection, key)
	w := &watcher{feed: docstore.NewFeed(fn)}
	if s.watchers[k] == nil {
		s.watchers[k] = make(map[*watcher]struct{})
	}
	s.watchers[k][w] = struct{}{}
	if doc, ok := s.docs[k]; ok {
		w.feed.Push(doc)
	}

	subCtx, sub := docstore.Bind(ctx, w.feed)
	go func() {
		<-subCtx.Done()
		s.mu.Lock()
		delete(s.watchers[k], w)
		s.mu.Unlock()
	}()
	return sub, nil
}

// Close cancels all subscriptions. Further calls fail with ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for k, ws := range s.watchers {
		for w := range ws {
			w.feed.Cancel()
		}
		delete(s.watchers, k)
	}
	return nil
}
