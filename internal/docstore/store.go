package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNotFound = errors.New("docstore: document not found")
	ErrClosed   = errors.New("docstore: store closed")
	// ErrConflict indicates an Update kept losing to concurrent writers.
	ErrConflict = errors.New("docstore: too many concurrent modifications")
)

// Document is a plain JSON document keyed by top-level field name.
type Document map[string]json.RawMessage

// UpdateFunc receives the current document (nil when it does not exist yet)
// and returns the fields to merge into it. Returning an error aborts the
// update without writing.
type UpdateFunc func(current Document) (Document, error)

// Subscription is a live feed registered with Subscribe.
type Subscription interface {
	// Cancel stops delivery. It is safe to call more than once and from
	// inside the callback.
	Cancel()
}

// Store is the document service contract.
type Store interface {
	Exists(ctx context.Context, collection, key string) (bool, error)
	// Get returns ErrNotFound when no document exists.
	Get(ctx context.Context, collection, key string) (Document, error)
	// SetMerge replaces the given top-level fields and leaves the others
	// untouched, creating the document if needed. Nested values are never
	// merged: writing an array replaces it.
	SetMerge(ctx context.Context, collection, key string, patch Document) error
	// Update performs an atomic read-modify-write: fn sees the latest
	// committed document and its result is merged only if nothing else was
	// written in between. fn may run more than once.
	Update(ctx context.Context, collection, key string, fn UpdateFunc) error
	// Subscribe invokes fn with the full document after every change,
	// including the subscriber's own writes, and once right away when the
	// document exists. Intermediate versions may be coalesced when fn is
	// slow; the last delivered document is always the latest one.
	Subscribe(ctx context.Context, collection, key string, fn func(Document)) (Subscription, error)
	Close() error
}

// Merge applies patch onto a copy of base.
func Merge(base, patch Document) Document {
	out := make(Document, len(base)+len(patch))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// Clone returns a copy of d whose values do not share memory with d.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = append(json.RawMessage(nil), v...)
	}
	return out
}

// Encode converts a struct into a Document through its JSON form.
func Encode(v any) (Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	return doc, nil
}

// Decode fills v from the document's JSON form.
func Decode(doc Document, v any) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("decoding document: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding document: %w", err)
	}
	return nil
}

// Field encodes a single value for use in a patch.
func Field(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding field: %w", err)
	}
	return data, nil
}
