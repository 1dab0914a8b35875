package domain

import (
	"encoding/json"
	"time"
)

// Workspace is the root document selected by an access code.
type Workspace struct {
	Projects       []Project    `json:"projects"`
	CustomSteps    StepTemplate `json:"customSteps,omitempty"`
	LastAccessedAt *time.Time   `json:"lastAccessedAt,omitempty"`
	LastUpdatedAt  *time.Time   `json:"lastUpdatedAt,omitempty"`

	// Unreadable holds stored project entries that could not be decoded.
	// They are written back untouched whenever the projects array is.
	Unreadable []json.RawMessage `json:"-"`
}

// FindProject returns the index of the project with the given id, or -1.
func (w *Workspace) FindProject(id string) int {
	for i := range w.Projects {
		if w.Projects[i].ID == id {
			return i
		}
	}
	return -1
}

// Template returns the workspace's custom step template when one is set,
// otherwise the default template.
func (w *Workspace) Template() StepTemplate {
	if w != nil && len(w.CustomSteps) > 0 {
		return w.CustomSteps.Clone()
	}
	return DefaultStepTemplate()
}
