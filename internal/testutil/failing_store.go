package testutil

import (
	"context"
	"sync/atomic"

	"github.com/alexanderramin/procflow/internal/docstore"
)

// FailingStore wraps a docstore.Store and injects errors per operation.
// A nil error field lets the operation through. WriteFailOn, when positive,
// fails only the Nth write (SetMerge or Update, counted from 1).
type FailingStore struct {
	docstore.Store
	ExistsErr    error
	GetErr       error
	WriteErr     error
	SubscribeErr error
	WriteFailOn  int32

	writes atomic.Int32
}

var _ docstore.Store = (*FailingStore)(nil)

func (f *FailingStore) Exists(ctx context.Context, collection, key string) (bool, error) {
	if f.ExistsErr != nil {
		return false, f.ExistsErr
	}
	return f.Store.Exists(ctx, collection, key)
}

func (f *FailingStore) Get(ctx context.Context, collection, key string) (docstore.Document, error) {
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	return f.Store.Get(ctx, collection, key)
}

func (f *FailingStore) writeErr() error {
	n := f.writes.Add(1)
	if f.WriteFailOn > 0 {
		if n == f.WriteFailOn {
			return f.WriteErr
		}
		return nil
	}
	return f.WriteErr
}

func (f *FailingStore) SetMerge(ctx context.Context, collection, key string, patch docstore.Document) error {
	if err := f.writeErr(); err != nil {
		return err
	}
	return f.Store.SetMerge(ctx, collection, key, patch)
}

func (f *FailingStore) Update(ctx context.Context, collection, key string, fn docstore.UpdateFunc) error {
	if err := f.writeErr(); err != nil {
		return err
	}
	return f.Store.Update(ctx, collection, key, fn)
}

func (f *FailingStore) Subscribe(ctx context.Context, collection, key string, fn func(docstore.Document)) (docstore.Subscription, error) {
	if f.SubscribeErr != nil {
		return nil, f.SubscribeErr
	}
	return f.Store.Subscribe(ctx, collection, key, fn)
}
