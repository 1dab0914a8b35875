package domain

import "time"

type Step struct {
	ID             string          `json:"id"`
	Title          string          `json:"title"`
	Completed      bool            `json:"completed"`
	CompletedAt    *time.Time      `json:"completedAt"`
	DocumentNumber *string         `json:"documentNumber"`
	Checklist      []ChecklistItem `json:"checklist"`
	Timeline       []Note          `json:"timeline"`
	Postits        []Note          `json:"postits"`

	// Notes is the pre-split notes field found on older documents. It is
	// consumed by MigrateStepNotes and never written back.
	Notes *LegacyNotes `json:"notes,omitempty"`
}

type ChecklistItem struct {
	ID          string     `json:"id"`
	Text        string     `json:"text"`
	Checked     bool       `json:"checked"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt"`
	// ManualDate is set once CompletedAt has been edited by hand; from then on
	// checking and unchecking leave CompletedAt alone.
	ManualDate bool       `json:"manualDate,omitempty"`
	Deadline   *time.Time `json:"deadline,omitempty"`
	Notes      []SubNote  `json:"notes"`
}

type SubNote struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// Note is a timeline entry or a postit.
type Note struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Type      NoteKind  `json:"type,omitempty"`
}

// NewStep expands a template entry into an incomplete step.
func NewStep(entry StepTemplateEntry, now time.Time) Step {
	s := Step{
		ID:        entry.ID,
		Title:     entry.Title,
		Checklist: make([]ChecklistItem, 0, len(entry.DefaultChecklist)),
		Timeline:  []Note{},
		Postits:   []Note{},
	}
	for _, text := range entry.DefaultChecklist {
		s.Checklist = append(s.Checklist, NewChecklistItem(text, now))
	}
	return s
}

func NewChecklistItem(text string, now time.Time) ChecklistItem {
	return ChecklistItem{
		ID:        NewID(),
		Text:      text,
		CreatedAt: now,
		Notes:     []SubNote{},
	}
}

func (s Step) Clone() Step {
	c := s
	c.CompletedAt = cloneTime(s.CompletedAt)
	c.DocumentNumber = cloneString(s.DocumentNumber)
	if s.Checklist != nil {
		c.Checklist = make([]ChecklistItem, len(s.Checklist))
		for i := range s.Checklist {
			c.Checklist[i] = s.Checklist[i].Clone()
		}
	}
	if s.Timeline != nil {
		c.Timeline = append([]Note{}, s.Timeline...)
	}
	if s.Postits != nil {
		c.Postits = append([]Note{}, s.Postits...)
	}
	if s.Notes != nil {
		c.Notes = s.Notes.clone()
	}
	return c
}

func (i ChecklistItem) Clone() ChecklistItem {
	c := i
	c.CompletedAt = cloneTime(i.CompletedAt)
	c.Deadline = cloneTime(i.Deadline)
	if i.Notes != nil {
		c.Notes = append([]SubNote{}, i.Notes...)
	}
	return c
}
