package domain

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// StepTemplateEntry defines one workflow step: its title and the checklist
// texts every new project starts with.
type StepTemplateEntry struct {
	ID               string   `json:"id" yaml:"id"`
	Title            string   `json:"title" yaml:"title"`
	DefaultChecklist []string `json:"defaultChecklist" yaml:"defaultChecklist"`
}

// StepTemplate is the ordered list of steps used to seed projects.
type StepTemplate []StepTemplateEntry

//go:embed default_template.yaml
var defaultTemplateYAML []byte

type templateFile struct {
	Steps StepTemplate `yaml:"steps"`
}

// DefaultStepTemplate returns a fresh copy of the built-in procurement
// workflow.
func DefaultStepTemplate() StepTemplate {
	tmpl, err := ParseStepTemplate(defaultTemplateYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded default template is invalid: %v", err))
	}
	return tmpl
}

// ParseStepTemplate decodes a template document. Both YAML and JSON are
// accepted, either as a bare list of steps or under a top-level "steps" key.
// Blank ids are filled in positionally.
func ParseStepTemplate(data []byte) (StepTemplate, error) {
	var tmpl StepTemplate
	var file templateFile
	if err := yaml.Unmarshal(data, &file); err == nil && len(file.Steps) > 0 {
		tmpl = file.Steps
	} else if err := yaml.Unmarshal(data, &tmpl); err != nil {
		return nil, fmt.Errorf("%w: parsing step template: %v", ErrValidation, err)
	}

	for i := range tmpl {
		tmpl[i].Title = strings.TrimSpace(tmpl[i].Title)
		if tmpl[i].ID == "" {
			tmpl[i].ID = fmt.Sprintf("step%d", i+1)
		}
		if tmpl[i].DefaultChecklist == nil {
			tmpl[i].DefaultChecklist = []string{}
		}
	}
	if err := tmpl.Validate(); err != nil {
		return nil, err
	}
	return tmpl, nil
}

// Validate rejects empty templates, blank titles and duplicate step ids. An
// empty template would leave progress undefined.
func (t StepTemplate) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("%w: step template must contain at least one step", ErrValidation)
	}
	seen := make(map[string]bool, len(t))
	for i, e := range t {
		if strings.TrimSpace(e.Title) == "" {
			return fmt.Errorf("%w: step %d has no title", ErrValidation, i+1)
		}
		if e.ID == "" {
			return fmt.Errorf("%w: step %d has no id", ErrValidation, i+1)
		}
		if seen[e.ID] {
			return fmt.Errorf("%w: duplicate step id %q", ErrValidation, e.ID)
		}
		seen[e.ID] = true
	}
	return nil
}

// Clone returns a deep copy of t.
func (t StepTemplate) Clone() StepTemplate {
	if t == nil {
		return nil
	}
	c := make(StepTemplate, len(t))
	for i, e := range t {
		c[i] = StepTemplateEntry{
			ID:               e.ID,
			Title:            e.Title,
			DefaultChecklist: append([]string{}, e.DefaultChecklist...),
		}
	}
	return c
}

// IndexOf returns the position of the entry with the given id, or -1.
func (t StepTemplate) IndexOf(id string) int {
	for i, e := range t {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// YAML encodes t in the shape ParseStepTemplate reads.
func (t StepTemplate) YAML() ([]byte, error) {
	return yaml.Marshal(templateFile{Steps: t})
}
