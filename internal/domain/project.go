package domain

import (
	"fmt"
	"strings"
	"time"
)

type Project struct {
	ID                string            `json:"id"`
	Name              string            `json:"name"`
	Description       string            `json:"description"`
	Budget            float64           `json:"budget"`
	ContractAmount    *float64          `json:"contractAmount,omitempty"`
	Deadline          *time.Time        `json:"deadline,omitempty"`
	Priority          Priority          `json:"priority"`
	PurchaseType      PurchaseType      `json:"purchaseType"`
	ProcurementMethod ProcurementMethod `json:"procurementMethod"`
	Status            ProjectStatus     `json:"status"`
	CurrentStepIndex  int               `json:"currentStepIndex"`
	Revision          int64             `json:"revision"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
	Steps             []Step            `json:"steps"`
}

// ProjectFields carries the user-editable project attributes used by
// CreateProject and detail updates.
type ProjectFields struct {
	Name              string
	Description       string
	Budget            float64
	ContractAmount    *float64
	Deadline          *time.Time
	Priority          Priority
	PurchaseType      PurchaseType
	ProcurementMethod ProcurementMethod
}

// Normalize trims text fields and fills empty enums with their defaults.
func (f *ProjectFields) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Description = strings.TrimSpace(f.Description)
	if f.Priority == "" {
		f.Priority = PriorityNormal
	}
	if f.PurchaseType == "" {
		f.PurchaseType = PurchaseBuy
	}
	if f.ProcurementMethod == "" {
		f.ProcurementMethod = MethodSpecific
	}
}

// Validate reports the first invalid field, wrapped in ErrValidation.
func (f ProjectFields) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("%w: project name is required", ErrValidation)
	}
	if f.Budget < 0 {
		return fmt.Errorf("%w: budget must not be negative (got %.2f)", ErrValidation, f.Budget)
	}
	if f.ContractAmount != nil && *f.ContractAmount < 0 {
		return fmt.Errorf("%w: contract amount must not be negative (got %.2f)", ErrValidation, *f.ContractAmount)
	}
	if !f.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrValidation, f.Priority)
	}
	if !f.PurchaseType.Valid() {
		return fmt.Errorf("%w: unknown purchase type %q", ErrValidation, f.PurchaseType)
	}
	if !f.ProcurementMethod.Valid() {
		return fmt.Errorf("%w: unknown procurement method %q", ErrValidation, f.ProcurementMethod)
	}
	return nil
}

// CreateProject builds a new active project whose steps are expanded from
// tmpl. Each default checklist text becomes an unchecked item.
func CreateProject(fields ProjectFields, tmpl StepTemplate, now time.Time) (*Project, error) {
	fields.Normalize()
	if err := fields.Validate(); err != nil {
		return nil, err
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}

	p := &Project{
		ID:               NewID(),
		Status:           ProjectActive,
		CurrentStepIndex: 0,
		CreatedAt:        now,
		UpdatedAt:        now,
		Steps:            make([]Step, 0, len(tmpl)),
	}
	p.ApplyFields(fields)

	for _, entry := range tmpl {
		p.Steps = append(p.Steps, NewStep(entry, now))
	}
	return p, nil
}

// ApplyFields copies the editable attributes onto p.
func (p *Project) ApplyFields(f ProjectFields) {
	p.Name = f.Name
	p.Description = f.Description
	p.Budget = f.Budget
	p.ContractAmount = cloneFloat(f.ContractAmount)
	p.Deadline = cloneTime(f.Deadline)
	p.Priority = f.Priority
	p.PurchaseType = f.PurchaseType
	p.ProcurementMethod = f.ProcurementMethod
}

// Fields returns the editable attributes of p.
func (p *Project) Fields() ProjectFields {
	return ProjectFields{
		Name:              p.Name,
		Description:       p.Description,
		Budget:            p.Budget,
		ContractAmount:    cloneFloat(p.ContractAmount),
		Deadline:          cloneTime(p.Deadline),
		Priority:          p.Priority,
		PurchaseType:      p.PurchaseType,
		ProcurementMethod: p.ProcurementMethod,
	}
}

// DisplayID returns the first 8 characters of the project ID.
func (p *Project) DisplayID() string {
	if len(p.ID) >= 8 {
		return p.ID[:8]
	}
	return p.ID
}

// Step returns a pointer to the step at idx.
func (p *Project) Step(idx int) (*Step, error) {
	if idx < 0 || idx >= len(p.Steps) {
		return nil, fmt.Errorf("%w: step index %d out of range (project has %d steps)", ErrValidation, idx, len(p.Steps))
	}
	return &p.Steps[idx], nil
}

// IsOverdue reports whether the project has a deadline before now and is
// not yet completed. Deadlines are compared by calendar day.
func (p *Project) IsOverdue(now time.Time) bool {
	if p.Deadline == nil || p.Status == ProjectCompleted {
		return false
	}
	dl := p.Deadline.UTC().Format(dateLayout)
	return dl < now.UTC().Format(dateLayout)
}

// Clone returns a deep copy of p.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	c := *p
	c.ContractAmount = cloneFloat(p.ContractAmount)
	c.Deadline = cloneTime(p.Deadline)
	if p.Steps != nil {
		c.Steps = make([]Step, len(p.Steps))
		for i := range p.Steps {
			c.Steps[i] = p.Steps[i].Clone()
		}
	}
	return &c
}

const dateLayout = "2006-01-02"

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
