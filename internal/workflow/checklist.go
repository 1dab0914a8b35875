package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/procflow/internal/domain"
)

func checklistItem(p *domain.Project, stepIdx, itemIdx int) (*domain.ChecklistItem, error) {
	step, err := p.Step(stepIdx)
	if err != nil {
		return nil, err
	}
	if itemIdx < 0 || itemIdx >= len(step.Checklist) {
		return nil, fmt.Errorf("%w: checklist item %d out of range (step has %d items)", domain.ErrValidation, itemIdx, len(step.Checklist))
	}
	return &step.Checklist[itemIdx], nil
}

func requireText(text, what string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: %s text is required", domain.ErrValidation, what)
	}
	return text, nil
}

// AddChecklistItem appends an unchecked item to the step and returns its id.
func AddChecklistItem(p *domain.Project, stepIdx int, text string, deadline *time.Time, now time.Time) (string, error) {
	step, err := p.Step(stepIdx)
	if err != nil {
		return "", err
	}
	text, err = requireText(text, "checklist item")
	if err != nil {
		return "", err
	}
	item := domain.NewChecklistItem(text, now)
	if deadline != nil {
		d := *deadline
		item.Deadline = &d
	}
	step.Checklist = append(step.Checklist, item)
	p.UpdatedAt = now
	return item.ID, nil
}

func EditChecklistItem(p *domain.Project, stepIdx, itemIdx int, text string, now time.Time) error {
	item, err := checklistItem(p, stepIdx, itemIdx)
	if err != nil {
		return err
	}
	text, err = requireText(text, "checklist item")
	if err != nil {
		return err
	}
	item.Text = text
	p.UpdatedAt = now
	return nil
}

// SetItemChecked checks or unchecks an item. Checking stamps CompletedAt
// when it is unset; unchecking clears it unless the date was set by hand.
// A hand-set date is sticky: it survives any number of later check and
// uncheck calls until SetItemCompletedAt clears it with nil.
func SetItemChecked(p *domain.Project, stepIdx, itemIdx int, checked bool, now time.Time) error {
	item, err := checklistItem(p, stepIdx, itemIdx)
	if err != nil {
		return err
	}
	item.Checked = checked
	if checked {
		if item.CompletedAt == nil {
			at := now
			item.CompletedAt = &at
		}
	} else if !item.ManualDate {
		item.CompletedAt = nil
	}
	p.UpdatedAt = now
	return nil
}

// SetItemCompletedAt sets the completion date by hand, independent of the
// checked flag. Passing nil clears the date and restores the automatic
// linkage to checking.
func SetItemCompletedAt(p *domain.Project, stepIdx, itemIdx int, at *time.Time, now time.Time) error {
	item, err := checklistItem(p, stepIdx, itemIdx)
	if err != nil {
		return err
	}
	if at == nil {
		item.CompletedAt = nil
		item.ManualDate = false
	} else {
		v := *at
		item.CompletedAt = &v
		item.ManualDate = true
	}
	p.UpdatedAt = now
	return nil
}

func SetItemDeadline(p *domain.Project, stepIdx, itemIdx int, deadline *time.Time, now time.Time) error {
	item, err := checklistItem(p, stepIdx, itemIdx)
	if err != nil {
		return err
	}
	if deadline == nil {
		item.Deadline = nil
	} else {
		d := *deadline
		item.Deadline = &d
	}
	p.UpdatedAt = now
	return nil
}

// DeleteChecklistItem removes the item at itemIdx. There is no undo.
func DeleteChecklistItem(p *domain.Project, stepIdx, itemIdx int, now time.Time) error {
	if _, err := checklistItem(p, stepIdx, itemIdx); err != nil {
		return err
	}
	step := &p.Steps[stepIdx]
	step.Checklist = append(step.Checklist[:itemIdx], step.Checklist[itemIdx+1:]...)
	p.UpdatedAt = now
	return nil
}

// AddItemNote appends a free-text sub-note to a checklist item.
func AddItemNote(p *domain.Project, stepIdx, itemIdx int, text string, now time.Time) (string, error) {
	item, err := checklistItem(p, stepIdx, itemIdx)
	if err != nil {
		return "", err
	}
	text, err = requireText(text, "note")
	if err != nil {
		return "", err
	}
	n := domain.SubNote{ID: domain.NewID(), Text: text, Timestamp: now}
	item.Notes = append(item.Notes, n)
	p.UpdatedAt = now
	return n.ID, nil
}

// DeleteItemNote removes the sub-note identified by ref (an id, or an
// RFC 3339 timestamp for notes written before ids existed).
func DeleteItemNote(p *domain.Project, stepIdx, itemIdx int, ref string, now time.Time) error {
	item, err := checklistItem(p, stepIdx, itemIdx)
	if err != nil {
		return err
	}
	for i, n := range item.Notes {
		if matchesNote(ref, n.ID, n.Timestamp) {
			item.Notes = append(item.Notes[:i], item.Notes[i+1:]...)
			p.UpdatedAt = now
			return nil
		}
	}
	return fmt.Errorf("%w: checklist note %q", domain.ErrNotFound, ref)
}

// ChecklistProgress returns the number of checked items and the total.
func ChecklistProgress(s *domain.Step) (done, total int) {
	for _, item := range s.Checklist {
		if item.Checked {
			done++
		}
	}
	return done, len(s.Checklist)
}
