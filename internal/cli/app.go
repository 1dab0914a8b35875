package cli

import (
	"time"

	"github.com/alexanderramin/procflow/internal/service"
	"github.com/alexanderramin/procflow/internal/session"
	"github.com/spf13/cobra"
)

// App holds references to all service interfaces used by CLI commands.
type App struct {
	Workspaces service.WorkspaceService
	Projects   service.ProjectService
	Steps      service.StepService
	Checklists service.ChecklistService
	Notes      service.NoteService
	Templates  service.TemplateService

	// AccessCode remembers the selected workspace between invocations.
	AccessCode *SessionFile
	// NewSession builds a live project session for watch commands. Nil
	// disables project watch.
	NewSession func(code string) *session.Session
	Now        func() time.Time
}

func (a *App) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now().UTC()
}

// NewRootCmd creates the top-level "procflow" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "procflow",
		Short:         "Procurement workflow tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringP("workspace", "w", "", "Workspace access code (overrides the saved session)")

	root.AddCommand(
		newWorkspaceCmd(app),
		newProjectCmd(app),
		newStepCmd(app),
		newChecklistCmd(app),
		newTimelineCmd(app),
		newPostitCmd(app),
		newTemplateCmd(app),
		newSummaryCmd(app),
	)

	return root
}
