package domain

import "github.com/google/uuid"

// NewID returns a random identifier for projects, checklist items and notes.
func NewID() string {
	return uuid.New().String()
}
