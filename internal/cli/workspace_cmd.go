package cli

import (
	"errors"
	"fmt"
	"sync"

	"github.com/alexanderramin/procflow/internal/cli/formatter"
	"github.com/alexanderramin/procflow/internal/domain"
	"github.com/alexanderramin/procflow/internal/repository"
	"github.com/alexanderramin/procflow/internal/workflow"
	"github.com/spf13/cobra"
)

func newWorkspaceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workspace",
		Aliases: []string{"ws"},
		Short:   "Select and inspect the shared workspace",
	}

	cmd.AddCommand(
		newWorkspaceUseCmd(app),
		newWorkspaceClearCmd(app),
		newWorkspaceShowCmd(app),
		newWorkspaceWatchCmd(app),
	)

	return cmd
}

func newWorkspaceUseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "use CODE",
		Short: "Open a workspace by access code and remember it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := repository.NormalizeCode(args[0])
			if err != nil {
				return err
			}
			existed, err := app.Workspaces.Open(cmd.Context(), code)
			if err != nil {
				return err
			}
			if err := app.AccessCode.Save(code); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if existed {
				fmt.Fprintf(out, "Opened workspace %s\n", formatter.Bold(code))
			} else {
				fmt.Fprintf(out, "Created workspace %s\n", formatter.Bold(code))
			}
			return nil
		},
	}
}

func newWorkspaceClearCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget the selected workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.AccessCode.Clear(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Workspace cleared.")
			return nil
		},
	}
}

func newWorkspaceShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the selected workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := accessCode(cmd, app)
			if err != nil {
				return err
			}
			ws, err := app.Workspaces.Get(cmd.Context(), code)
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("workspace %q does not exist yet; run: procflow workspace use %s", code, code)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s\n", formatter.Dim("workspace:"), formatter.Bold(code))
			fmt.Fprintf(out, "%s %d\n", formatter.Dim("projects:"), len(ws.Projects))
			tmpl := "default"
			if len(ws.CustomSteps) > 0 {
				tmpl = fmt.Sprintf("custom (%d steps)", len(ws.CustomSteps))
			}
			fmt.Fprintf(out, "%s %s\n", formatter.Dim("template:"), tmpl)
			if ws.LastAccessedAt != nil {
				fmt.Fprintf(out, "%s %s\n", formatter.Dim("last accessed:"), ws.LastAccessedAt.Format("2006-01-02 15:04"))
			}
			if ws.LastUpdatedAt != nil {
				fmt.Fprintf(out, "%s %s\n", formatter.Dim("last updated:"), ws.LastUpdatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
}

func newWorkspaceWatchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print the project list whenever the workspace changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := accessCode(cmd, app)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var mu sync.Mutex
			sub, err := app.Workspaces.Watch(ctx, code, func(ws *domain.Workspace) {
				projects := ws.Projects
				workflow.SortByUrgency(projects)

				mu.Lock()
				defer mu.Unlock()
				fmt.Fprintf(out, "%s\n%s", formatter.Dim("── "+app.now().Format("15:04:05")+" ──"),
					formatter.FormatProjectList(projects, app.now()))
			})
			if err != nil {
				return err
			}
			defer sub.Cancel()

			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (Ctrl-C to stop)\n", code)
			<-ctx.Done()
			return nil
		},
	}
}
