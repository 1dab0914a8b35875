// Package redis implements docstore.Store on Redis. Each document is a hash
// whose fields are the document's top-level JSON fields; a revision counter
// lives alongside them. Writes publish on a per-document channel so
// subscribers refetch without waiting for the poll interval.
//
// Usage:
//
//	client := goredis.NewClient(&goredis.Options{Addr: "localhost:6379"})
//	s := redis.New(client)
//	if err := s.Ping(ctx); err != nil { ... }
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/alexanderramin/procflow/internal/docstore"
)

var _ docstore.Store = (*Store)(nil)

// maxRetries bounds optimistic retries in Update before giving up with
// docstore.ErrConflict.
const maxRetries = 20

// Option configures the Store.
type Option func(*Store)

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithPollInterval sets the fallback interval at which subscriptions
// refetch in case a notification was missed.
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) { s.interval = d }
}

// Store implements docstore.Store backed by Redis.
type Store struct {
	client   goredis.UniversalClient
	logger   *slog.Logger
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Redis-backed store. The caller owns the client lifecycle.
func New(client goredis.UniversalClient, opts ...Option) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		client:   client,
		logger:   slog.Default(),
		interval: 5 * time.Second,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ping verifies the Redis connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) closed() bool { return s.ctx.Err() != nil }

func (s *Store) Exists(ctx context.Context, collection, key string) (bool, error) {
	if s.closed() {
		return false, docstore.ErrClosed
	}
	n, err := s.client.Exists(ctx, docKey(collection, key)).Result()
	if err != nil {
		return false, fmt.Errorf("procflow/redis: exists: %w", err)
	}
	return n > 0, nil
}

func (s *Store) Get(ctx context.Context, collection, key string) (docstore.Document, error) {
	if s.closed() {
		return nil, docstore.ErrClosed
	}
	_, doc, err := s.fetch(ctx, s.client, collection, key)
	return doc, err
}

// hashReader is satisfied by both the client and a watched transaction.
type hashReader interface {
	HGetAll(ctx context.Context, key string) *goredis.MapStringStringCmd
}

func (s *Store) fetch(ctx context.Context, c hashReader, collection, key string) (int64, docstore.Document, error) {
	fields, err := c.HGetAll(ctx, docKey(collection, key)).Result()
	if err != nil {
		return 0, nil, fmt.Errorf("procflow/redis: get: %w", err)
	}
	if len(fields) == 0 {
		return 0, nil, docstore.ErrNotFound
	}
	return fromHash(fields)
}

func fromHash(fields map[string]string) (int64, docstore.Document, error) {
	var rev int64
	doc := make(docstore.Document, len(fields))
	for name, value := range fields {
		if name == revField {
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("procflow/redis: parse revision: %w", err)
			}
			rev = n
			continue
		}
		if strings.HasPrefix(name, "_") {
			continue
		}
		if !json.Valid([]byte(value)) {
			return 0, nil, fmt.Errorf("procflow/redis: field %q is not JSON", name)
		}
		doc[name] = json.RawMessage(value)
	}
	return rev, doc, nil
}

func toHash(patch docstore.Document) map[string]any {
	out := make(map[string]any, len(patch))
	for name, value := range patch {
		out[name] = string(value)
	}
	return out
}

func (s *Store) SetMerge(ctx context.Context, collection, key string, patch docstore.Document) error {
	if s.closed() {
		return docstore.ErrClosed
	}
	k := docKey(collection, key)
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		if len(patch) > 0 {
			pipe.HSet(ctx, k, toHash(patch))
		}
		pipe.HIncrBy(ctx, k, revField, 1)
		pipe.Publish(ctx, changesChannel(collection, key), "set")
		return nil
	})
	if err != nil {
		return fmt.Errorf("procflow/redis: set merge: %w", err)
	}
	return nil
}

// Update watches the document hash and retries when another client writes
// it between the read and the transaction.
func (s *Store) Update(ctx context.Context, collection, key string, fn docstore.UpdateFunc) error {
	if s.closed() {
		return docstore.ErrClosed
	}
	k := docKey(collection, key)
	txf := func(tx *goredis.Tx) error {
		_, current, err := s.fetch(ctx, tx, collection, key)
		if err != nil && !errors.Is(err, docstore.ErrNotFound) {
			return err
		}
		patch, err := fn(current.Clone())
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
			if len(patch) > 0 {
				pipe.HSet(ctx, k, toHash(patch))
			}
			pipe.HIncrBy(ctx, k, revField, 1)
			pipe.Publish(ctx, changesChannel(collection, key), "update")
			return nil
		})
		return err
	}

	for i := 0; i < maxRetries; i++ {
		err := s.client.Watch(ctx, txf, k)
		if err == nil {
			return nil
		}
		if errors.Is(err, goredis.TxFailedErr) {
			continue
		}
		return err
	}
	return docstore.ErrConflict
}

// Subscribe listens on the document's change channel and refetches on
// every message, with a slow poll as a safety net.
func (s *Store) Subscribe(ctx context.Context, collection, key string, fn func(docstore.Document)) (docstore.Subscription, error) {
	if s.closed() {
		return nil, docstore.ErrClosed
	}
	ps := s.client.Subscribe(ctx, changesChannel(collection, key))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("procflow/redis: subscribe: %w", err)
	}

	feed := docstore.NewFeed(fn)
	subCtx, sub := docstore.Bind(ctx, feed)
	go func() {
		select {
		case <-s.ctx.Done():
			sub.Cancel()
		case <-subCtx.Done():
		}
	}()

	nudge := make(chan struct{}, 1)
	go func() {
		defer ps.Close()
		msgs := ps.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case nudge <- struct{}{}:
				default:
				}
			}
		}
	}()

	fetchFn := func(ctx context.Context) (int64, docstore.Document, error) {
		return s.fetch(ctx, s.client, collection, key)
	}
	go docstore.Poll(subCtx, s.interval, nudge, fetchFn, feed, s.logger)
	return sub, nil
}

// Close cancels all subscriptions. The caller owns the Redis client.
func (s *Store) Close() error {
	s.cancel()
	return nil
}
