package workflow

import (
	"math"
	"strings"
	"time"

	"github.com/alexanderramin/procflow/internal/domain"
)

// CompleteStep marks the step at idx complete. completedAt allows
// backdating; nil means now. A blank document number clears it.
func CompleteStep(p *domain.Project, idx int, documentNumber *string, completedAt *time.Time, now time.Time) error {
	step, err := p.Step(idx)
	if err != nil {
		return err
	}

	at := now
	if completedAt != nil {
		at = *completedAt
	}
	step.Completed = true
	step.CompletedAt = &at
	step.DocumentNumber = normalizeDocumentNumber(documentNumber)

	Recalculate(p)
	p.UpdatedAt = now
	return nil
}

// RevertStep marks the step at idx incomplete and clears its completion
// data. Any step may be reverted, not only the current one.
func RevertStep(p *domain.Project, idx int, now time.Time) error {
	step, err := p.Step(idx)
	if err != nil {
		return err
	}

	step.Completed = false
	step.CompletedAt = nil
	step.DocumentNumber = nil

	Recalculate(p)
	p.UpdatedAt = now
	return nil
}

// Recalculate derives CurrentStepIndex and Status from the steps.
func Recalculate(p *domain.Project) {
	idx := CurrentStepIndex(p)
	p.CurrentStepIndex = idx
	if len(p.Steps) > 0 && CompletedCount(p) == len(p.Steps) {
		p.Status = domain.ProjectCompleted
	} else {
		p.Status = domain.ProjectActive
	}
}

// CurrentStepIndex returns the index of the first incomplete step, or the
// last index when every step is complete.
func CurrentStepIndex(p *domain.Project) int {
	for i := range p.Steps {
		if !p.Steps[i].Completed {
			return i
		}
	}
	if len(p.Steps) == 0 {
		return 0
	}
	return len(p.Steps) - 1
}

func CompletedCount(p *domain.Project) int {
	n := 0
	for i := range p.Steps {
		if p.Steps[i].Completed {
			n++
		}
	}
	return n
}

// ProgressPercent returns round(100 * completed / total). A project without
// steps reports 0.
func ProgressPercent(p *domain.Project) int {
	if len(p.Steps) == 0 {
		return 0
	}
	return int(math.Round(100 * float64(CompletedCount(p)) / float64(len(p.Steps))))
}

// UpdateDetails replaces the editable project attributes after validating
// them with the same rules as creation.
func UpdateDetails(p *domain.Project, fields domain.ProjectFields, now time.Time) error {
	fields.Normalize()
	if err := fields.Validate(); err != nil {
		return err
	}
	p.ApplyFields(fields)
	p.UpdatedAt = now
	return nil
}

func normalizeDocumentNumber(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
