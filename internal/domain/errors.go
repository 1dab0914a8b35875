package domain

import "errors"

var (
	// ErrNotFound indicates the workspace, project, step or note does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable indicates the document store could not be reached.
	ErrUnavailable = errors.New("document store unavailable")

	// ErrWrite indicates a write to the document store failed. The underlying
	// transport error stays in the chain.
	ErrWrite = errors.New("write failed")

	// ErrValidation indicates input was rejected before any store call.
	ErrValidation = errors.New("validation failed")

	// ErrStaleRevision indicates a save was based on an outdated copy of the
	// project; the caller must reload before retrying.
	ErrStaleRevision = errors.New("project was modified concurrently")
)
