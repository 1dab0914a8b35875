// Package mongo implements docstore.Store on MongoDB. Every docstore
// collection maps to a MongoDB collection and every document to one BSON
// document whose _id is the key. A _rev counter guards compare-and-swap
// updates. Subscriptions use change streams when the deployment supports
// them and fall back to polling otherwise.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongod "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/alexanderramin/procflow/internal/docstore"
)

var _ docstore.Store = (*Store)(nil)

const (
	collectionPrefix = "procflow_"
	maxRetries       = 20
)

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithPollInterval sets the refetch interval used when change streams are
// unavailable, and as a safety net when they are.
func WithPollInterval(d time.Duration) Option {
	return func(s *Store) {
		s.interval = d
	}
}

// Store is a MongoDB implementation of docstore.Store. The caller owns the
// client lifecycle; Close only cancels subscriptions.
type Store struct {
	db       *mongod.Database
	logger   *slog.Logger
	interval time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a MongoDB store on the given database.
func New(db *mongod.Database, opts ...Option) *Store {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		db:       db,
		logger:   slog.Default(),
		interval: 2 * time.Second,
		ctx:      ctx,
		cancel:   cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Client().Ping(ctx, nil)
}

func (s *Store) col(collection string) *mongod.Collection {
	return s.db.Collection(collectionPrefix + collection)
}

func (s *Store) closed() bool { return s.ctx.Err() != nil }

func (s *Store) Exists(ctx context.Context, collection, key string) (bool, error) {
	if s.closed() {
		return false, docstore.ErrClosed
	}
	n, err := s.col(collection).CountDocuments(ctx, bson.M{idKey: key}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("procflow/mongo: exists: %w", err)
	}
	return n > 0, nil
}

func (s *Store) Get(ctx context.Context, collection, key string) (docstore.Document, error) {
	if s.closed() {
		return nil, docstore.ErrClosed
	}
	_, doc, err := s.fetch(ctx, collection, key)
	return doc, err
}

func (s *Store) fetch(ctx context.Context, collection, key string) (int64, docstore.Document, error) {
	raw, err := s.col(collection).FindOne(ctx, bson.M{idKey: key}).Raw()
	if err != nil {
		if isNoDocuments(err) {
			return 0, nil, docstore.ErrNotFound
		}
		return 0, nil, fmt.Errorf("procflow/mongo: get: %w", err)
	}
	rev, fields, err := fromBSON(raw)
	if err != nil {
		return 0, nil, fmt.Errorf("procflow/mongo: get: %w", err)
	}
	return rev, docstore.Document(fields), nil
}

func (s *Store) SetMerge(ctx context.Context, collection, key string, patch docstore.Document) error {
	if s.closed() {
		return docstore.ErrClosed
	}
	fields, err := patchToBSON(patch)
	if err != nil {
		return fmt.Errorf("procflow/mongo: set merge: %w", err)
	}
	update := bson.D{{Key: "$inc", Value: bson.D{{Key: revKey, Value: int64(1)}}}}
	if len(fields) > 0 {
		update = append(update, bson.E{Key: "$set", Value: fields})
	}
	_, err = s.col(collection).UpdateOne(ctx, bson.M{idKey: key}, update, options.UpdateOne().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("procflow/mongo: set merge: %w", err)
	}
	return nil
}

// Update reads the document, applies fn, and writes back only if _rev is
// unchanged, retrying otherwise.
func (s *Store) Update(ctx context.Context, collection, key string, fn docstore.UpdateFunc) error {
	if s.closed() {
		return docstore.ErrClosed
	}
	col := s.col(collection)
	for i := 0; i < maxRetries; i++ {
		rev, current, err := s.fetch(ctx, collection, key)
		missing := errors.Is(err, docstore.ErrNotFound)
		if err != nil && !missing {
			return err
		}
		patch, err := fn(current.Clone())
		if err != nil {
			return err
		}
		fields, err := patchToBSON(patch)
		if err != nil {
			return fmt.Errorf("procflow/mongo: update: %w", err)
		}

		if missing {
			doc := append(bson.D{{Key: idKey, Value: key}, {Key: revKey, Value: int64(1)}}, fields...)
			_, err := col.InsertOne(ctx, doc)
			if isDuplicateKey(err) {
				continue
			}
			if err != nil {
				return fmt.Errorf("procflow/mongo: update insert: %w", err)
			}
			return nil
		}

		update := bson.D{{Key: "$inc", Value: bson.D{{Key: revKey, Value: int64(1)}}}}
		if len(fields) > 0 {
			update = append(update, bson.E{Key: "$set", Value: fields})
		}
		res, err := col.UpdateOne(ctx, bson.M{idKey: key, revKey: rev}, update)
		if err != nil {
			return fmt.Errorf("procflow/mongo: update: %w", err)
		}
		if res.MatchedCount == 1 {
			return nil
		}
	}
	return docstore.ErrConflict
}

// Subscribe opens a change stream filtered to the document and refetches on
// every event. Standalone servers reject change streams; the poll loop
// alone keeps the subscriber current there.
func (s *Store) Subscribe(ctx context.Context, collection, key string, fn func(docstore.Document)) (docstore.Subscription, error) {
	if s.closed() {
		return nil, docstore.ErrClosed
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
	pipeline := mongod.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "documentKey._id", Value: key}}}},
	}
	stream, err := s.col(collection).Watch(subCtx, pipeline)
	if err != nil {
		s.logger.Debug("change stream unavailable, polling",
			slog.String("collection", collection),
			slog.String("error", err.Error()),
		)
	} else {
		go func() {
			defer stream.Close(context.Background())
			for stream.Next(subCtx) {
				select {
				case nudge <- struct{}{}:
				default:
				}
			}
			if err := stream.Err(); err != nil && subCtx.Err() == nil {
				s.logger.Warn("change stream ended", slog.String("error", err.Error()))
			}
		}()
	}

	fetchFn := func(ctx context.Context) (int64, docstore.Document, error) {
		return s.fetch(ctx, collection, key)
	}
	go docstore.Poll(subCtx, s.interval, nudge, fetchFn, feed, s.logger)
	return sub, nil
}

// Close cancels all subscriptions. The caller owns the client.
func (s *Store) Close() error {
	s.cancel()
	return nil
}

// isNoDocuments returns true when err indicates no MongoDB documents found.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongod.ErrNoDocuments)
}

// isDuplicateKey checks if a MongoDB error is a duplicate key violation.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	return mongod.IsDuplicateKeyError(err) ||
		strings.Contains(err.Error(), "E11000")
}
