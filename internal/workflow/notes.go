package workflow

import (
	"fmt"
	"sort"
	"time"

	"github.com/alexanderramin/procflow/internal/domain"
)

// matchesNote reports whether ref identifies a note, either by id or by an
// exact RFC 3339 timestamp.
func matchesNote(ref, id string, ts time.Time) bool {
	if ref == "" {
		return false
	}
	if ref == id {
		return true
	}
	t, err := time.Parse(time.RFC3339Nano, ref)
	return err == nil && t.Equal(ts)
}

func findNote(notes []domain.Note, ref string) int {
	for i, n := range notes {
		if matchesNote(ref, n.ID, n.Timestamp) {
			return i
		}
	}
	return -1
}

func addNote(p *domain.Project, stepIdx int, kind domain.NoteKind, text string, at *time.Time, now time.Time) (string, error) {
	step, err := p.Step(stepIdx)
	if err != nil {
		return "", err
	}
	text, err = requireText(text, string(kind))
	if err != nil {
		return "", err
	}
	ts := now
	if at != nil {
		ts = *at
	}
	n := domain.Note{ID: domain.NewID(), Text: text, Timestamp: ts, Type: kind}
	if kind == domain.NotePostit {
		step.Postits = append(step.Postits, n)
	} else {
		step.Timeline = append(step.Timeline, n)
	}
	p.UpdatedAt = now
	return n.ID, nil
}

func notesOf(step *domain.Step, kind domain.NoteKind) *[]domain.Note {
	if kind == domain.NotePostit {
		return &step.Postits
	}
	return &step.Timeline
}

func editNote(p *domain.Project, stepIdx int, kind domain.NoteKind, ref, text string, now time.Time) error {
	step, err := p.Step(stepIdx)
	if err != nil {
		return err
	}
	text, err = requireText(text, string(kind))
	if err != nil {
		return err
	}
	notes := notesOf(step, kind)
	i := findNote(*notes, ref)
	if i < 0 {
		return fmt.Errorf("%w: %s note %q", domain.ErrNotFound, kind, ref)
	}
	(*notes)[i].Text = text
	p.UpdatedAt = now
	return nil
}

func deleteNote(p *domain.Project, stepIdx int, kind domain.NoteKind, ref string, now time.Time) error {
	step, err := p.Step(stepIdx)
	if err != nil {
		return err
	}
	notes := notesOf(step, kind)
	i := findNote(*notes, ref)
	if i < 0 {
		return fmt.Errorf("%w: %s note %q", domain.ErrNotFound, kind, ref)
	}
	*notes = append((*notes)[:i], (*notes)[i+1:]...)
	p.UpdatedAt = now
	return nil
}

// AddTimelineNote appends an event to the step's timeline. at backdates the
// entry; nil means now.
func AddTimelineNote(p *domain.Project, stepIdx int, text string, at *time.Time, now time.Time) (string, error) {
	return addNote(p, stepIdx, domain.NoteTimeline, text, at, now)
}

func EditTimelineNote(p *domain.Project, stepIdx int, ref, text string, now time.Time) error {
	return editNote(p, stepIdx, domain.NoteTimeline, ref, text, now)
}

func DeleteTimelineNote(p *domain.Project, stepIdx int, ref string, now time.Time) error {
	return deleteNote(p, stepIdx, domain.NoteTimeline, ref, now)
}

func AddPostit(p *domain.Project, stepIdx int, text string, now time.Time) (string, error) {
	return addNote(p, stepIdx, domain.NotePostit, text, nil, now)
}

func EditPostit(p *domain.Project, stepIdx int, ref, text string, now time.Time) error {
	return editNote(p, stepIdx, domain.NotePostit, ref, text, now)
}

func DeletePostit(p *domain.Project, stepIdx int, ref string, now time.Time) error {
	return deleteNote(p, stepIdx, domain.NotePostit, ref, now)
}

// TimelineView returns the step's timeline newest first. Stored order is
// left untouched.
func TimelineView(step *domain.Step) []domain.Note {
	out := append([]domain.Note{}, step.Timeline...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}
