package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/alexanderramin/procflow/internal/domain"
	"github.com/alexanderramin/procflow/internal/repository"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

// accessCode returns the --workspace flag when set, otherwise the saved
// session code.
func accessCode(cmd *cobra.Command, app *App) (string, error) {
	if flag, _ := cmd.Flags().GetString("workspace"); strings.TrimSpace(flag) != "" {
		return repository.NormalizeCode(flag)
	}
	code, err := app.AccessCode.Load()
	if err != nil {
		return "", err
	}
	if code == "" {
		return "", fmt.Errorf("no workspace selected; run: procflow workspace use CODE")
	}
	return code, nil
}

// resolveProjectID accepts a full id, a unique id prefix or an exact
// (case-insensitive) project name.
func resolveProjectID(ctx context.Context, app *App, code, input string) (string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", fmt.Errorf("project ID is required")
	}

	projects, err := app.Projects.List(ctx, code)
	if err != nil {
		return "", err
	}

	for _, p := range projects {
		if p.ID == input {
			return p.ID, nil
		}
	}

	var matches []string
	for _, p := range projects {
		if strings.HasPrefix(p.ID, input) {
			matches = append(matches, p.ID)
		}
	}
	if len(matches) == 0 {
		for _, p := range projects {
			if strings.EqualFold(p.Name, input) {
				matches = append(matches, p.ID)
			}
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("project not found: %q", input)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("project reference %q is ambiguous (%d matches)", input, len(matches))
	}
}

// resolveNoteRef expands a displayed id prefix to the full note id. Refs
// that match nothing are passed through so timestamp refs keep working.
func resolveNoteRef(notes []domain.Note, ref string) string {
	var match string
	for _, n := range notes {
		if n.ID == ref {
			return ref
		}
		if n.ID != "" && strings.HasPrefix(n.ID, ref) {
			if match != "" {
				return ref
			}
			match = n.ID
		}
	}
	if match != "" {
		return match
	}
	return ref
}

func resolveSubNoteRef(notes []domain.SubNote, ref string) string {
	converted := make([]domain.Note, len(notes))
	for i, n := range notes {
		converted[i] = domain.Note{ID: n.ID}
	}
	return resolveNoteRef(converted, ref)
}

// parseIndex converts a 1-based number typed by the user to a 0-based index.
func parseIndex(kind, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s number %q (numbers start at 1)", kind, s)
	}
	return n - 1, nil
}

// parseOptionalDate returns nil for "" or "clear".
func parseOptionalDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "clear") {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q (want YYYY-MM-DD)", s)
	}
	return &t, nil
}

// target is the project and step a step-scoped command acts on.
type target struct {
	code      string
	projectID string
	step      int
}

func resolveTarget(cmd *cobra.Command, app *App, projectRef, stepNum string) (target, error) {
	code, err := accessCode(cmd, app)
	if err != nil {
		return target{}, err
	}
	id, err := resolveProjectID(cmd.Context(), app, code, projectRef)
	if err != nil {
		return target{}, err
	}
	step, err := parseIndex("step", stepNum)
	if err != nil {
		return target{}, err
	}
	return target{code: code, projectID: id, step: step}, nil
}

func (t target) project(ctx context.Context, app *App) (*domain.Project, *domain.Step, error) {
	p, err := app.Projects.Get(ctx, t.code, t.projectID)
	if err != nil {
		return nil, nil, err
	}
	s, err := p.Step(t.step)
	if err != nil {
		return nil, nil, err
	}
	return p, s, nil
}
