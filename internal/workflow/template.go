package workflow

import (
	"time"

	"github.com/alexanderramin/procflow/internal/domain"
)

// RebuildChecklist builds a checklist from texts, carrying over the state of
// any old item whose text matches exactly. Old items whose text is gone are
// dropped along with their history; new texts start unchecked.
func RebuildChecklist(old []domain.ChecklistItem, texts []string, now time.Time) []domain.ChecklistItem {
	used := make([]bool, len(old))
	out := make([]domain.ChecklistItem, 0, len(texts))
	for _, text := range texts {
		match := -1
		for i := range old {
			if !used[i] && old[i].Text == text {
				match = i
				break
			}
		}
		if match >= 0 {
			used[match] = true
			out = append(out, old[match].Clone())
			continue
		}
		out = append(out, domain.NewChecklistItem(text, now))
	}
	return out
}

// GlobalResult lists which projects a global template edit touched.
type GlobalResult struct {
	Updated []string
	// Skipped holds projects whose step count no longer matches the
	// template. They are left out of sync rather than migrated.
	Skipped []string
}

// ApplyTemplateGlobal retrofits tmpl onto every project with the same
// number of steps: titles are overwritten positionally and checklists are
// rebuilt with RebuildChecklist.
func ApplyTemplateGlobal(projects []domain.Project, tmpl domain.StepTemplate, now time.Time) (GlobalResult, error) {
	var res GlobalResult
	if err := tmpl.Validate(); err != nil {
		return res, err
	}
	for pi := range projects {
		p := &projects[pi]
		if len(p.Steps) != len(tmpl) {
			res.Skipped = append(res.Skipped, p.ID)
			continue
		}
		for i, entry := range tmpl {
			step := &p.Steps[i]
			step.Title = entry.Title
			step.Checklist = RebuildChecklist(step.Checklist, entry.DefaultChecklist, now)
		}
		p.UpdatedAt = now
		res.Updated = append(res.Updated, p.ID)
	}
	return res, nil
}

// ApplyTemplateToProject reshapes one project to tmpl. Each entry reuses the
// existing step with the same id, falling back to the step at the same
// position; entries with no counterpart become fresh steps and surplus steps
// are dropped. The current-step pointer and status are recalculated, which
// also clamps the pointer when the template got shorter.
func ApplyTemplateToProject(p *domain.Project, tmpl domain.StepTemplate, now time.Time) error {
	if err := tmpl.Validate(); err != nil {
		return err
	}

	used := make([]bool, len(p.Steps))
	byID := make(map[string]int, len(p.Steps))
	for i, s := range p.Steps {
		if _, dup := byID[s.ID]; !dup && s.ID != "" {
			byID[s.ID] = i
		}
	}

	// Resolve id matches first so positional fallback cannot steal a step
	// that a later entry claims by id.
	matches := make([]int, len(tmpl))
	for i, entry := range tmpl {
		matches[i] = -1
		if j, ok := byID[entry.ID]; ok && !used[j] {
			matches[i] = j
			used[j] = true
		}
	}
	for i := range tmpl {
		if matches[i] < 0 && i < len(p.Steps) && !used[i] {
			matches[i] = i
			used[i] = true
		}
	}

	steps := make([]domain.Step, 0, len(tmpl))
	for i, entry := range tmpl {
		if matches[i] < 0 {
			steps = append(steps, domain.NewStep(entry, now))
			continue
		}
		s := p.Steps[matches[i]].Clone()
		s.ID = entry.ID
		s.Title = entry.Title
		s.Checklist = RebuildChecklist(s.Checklist, entry.DefaultChecklist, now)
		steps = append(steps, s)
	}

	p.Steps = steps
	Recalculate(p)
	p.UpdatedAt = now
	return nil
}
