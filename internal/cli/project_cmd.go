package cli

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/procflow/internal/cli/formatter"
	"github.com/alexanderramin/procflow/internal/domain"
	"github.com/alexanderramin/procflow/internal/workflow"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func newProjectCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"p"},
		Short:   "Manage procurement projects",
	}

	cmd.AddCommand(
		newProjectCreateCmd(app),
		newProjectListCmd(app),
		newProjectShowCmd(app),
		newProjectUpdateCmd(app),
		newProjectDeleteCmd(app),
		newProjectWatchCmd(app),
	)

	return cmd
}

// projectFlags binds the editable project attributes to command flags.
type projectFlags struct {
	name, description string
	budget, contract  float64
	deadline          string
	priority          string
	purchaseType      string
	method            string
}

func (f *projectFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.name, "name", "", "Project name")
	fs.StringVar(&f.description, "description", "", "Free-form description")
	fs.Float64Var(&f.budget, "budget", 0, "Approved budget")
	fs.Float64Var(&f.contract, "contract", 0, "Contract amount (negative clears it on update)")
	fs.StringVar(&f.deadline, "deadline", "", "Deadline (YYYY-MM-DD, or 'clear')")
	fs.StringVar(&f.priority, "priority", "", "normal, urgent, very-urgent, most-urgent or extreme")
	fs.StringVar(&f.purchaseType, "type", "", "buy, hire or rent")
	fs.StringVar(&f.method, "method", "", "e-bidding, specific or selection")
}

// apply copies every flag the user set onto fields.
func (f *projectFlags) apply(fs *pflag.FlagSet, fields *domain.ProjectFields) error {
	changed := fs.Changed
	if changed("name") {
		fields.Name = f.name
	}
	if changed("description") {
		fields.Description = f.description
	}
	if changed("budget") {
		fields.Budget = f.budget
	}
	if changed("contract") {
		amount := f.contract
		fields.ContractAmount = &amount
	}
	if changed("deadline") {
		d, err := parseOptionalDate(f.deadline)
		if err != nil {
			return err
		}
		fields.Deadline = d
	}
	if changed("priority") {
		fields.Priority = domain.Priority(strings.ToLower(f.priority))
	}
	if changed("type") {
		fields.PurchaseType = domain.PurchaseType(strings.ToLower(f.purchaseType))
	}
	if changed("method") {
		fields.ProcurementMethod = domain.ProcurementMethod(strings.ToLower(f.method))
	}
	return nil
}

func newProjectCreateCmd(app *App) *cobra.Command {
	var flags projectFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a project from the workspace template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := accessCode(cmd, app)
			if err != nil {
				return err
			}
			var fields domain.ProjectFields
			if err := flags.apply(cmd.Flags(), &fields); err != nil {
				return err
			}
			p, err := app.Projects.Create(cmd.Context(), code, fields)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created project %s [%s] with %d steps\n", p.Name, p.DisplayID(), len(p.Steps))
			return nil
		},
	}

	flags.register(cmd.Flags())
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newProjectListCmd(app *App) *cobra.Command {
	var sortBy string
	var activeOnly bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List projects",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := accessCode(cmd, app)
			if err != nil {
				return err
			}
			projects, err := app.Projects.List(cmd.Context(), code)
			if err != nil {
				return err
			}

			if activeOnly {
				kept := projects[:0]
				for _, p := range projects {
					if p.Status == domain.ProjectActive {
						kept = append(kept, p)
					}
				}
				projects = kept
			}
			switch sortBy {
			case "urgency":
				workflow.SortByUrgency(projects)
			case "", "created":
			default:
				return fmt.Errorf("invalid --sort %q (want created or urgency)", sortBy)
			}

			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatProjectList(projects, app.now()))
			return nil
		},
	}

	cmd.Flags().StringVar(&sortBy, "sort", "created", "Sort order: created (newest first) or urgency")
	cmd.Flags().BoolVar(&activeOnly, "active", false, "Only show active projects")
	return cmd
}

func newProjectShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show PROJECT",
		Short: "Show a project with all steps, checklists and notes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := accessCode(cmd, app)
			if err != nil {
				return err
			}
			id, err := resolveProjectID(cmd.Context(), app, code, args[0])
			if err != nil {
				return err
			}
			p, err := app.Projects.Get(cmd.Context(), code, id)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatProjectDetail(p, app.now()))
			return nil
		},
	}
}

func newProjectUpdateCmd(app *App) *cobra.Command {
	var flags projectFlags

	cmd := &cobra.Command{
		Use:   "update PROJECT",
		Short: "Edit project details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := accessCode(cmd, app)
			if err != nil {
				return err
			}
			id, err := resolveProjectID(cmd.Context(), app, code, args[0])
			if err != nil {
				return err
			}
			p, err := app.Projects.Get(cmd.Context(), code, id)
			if err != nil {
				return err
			}

			fields := p.Fields()
			if err := flags.apply(cmd.Flags(), &fields); err != nil {
				return err
			}
			if cmd.Flags().Changed("contract") && flags.contract < 0 {
				fields.ContractAmount = nil
			}
			updated, err := app.Projects.UpdateDetails(cmd.Context(), code, id, fields)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated project %s [%s]\n", updated.Name, updated.DisplayID())
			return nil
		},
	}

	flags.register(cmd.Flags())
	return cmd
}

func newProjectDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:     "delete PROJECT",
		Aliases: []string{"rm"},
		Short:   "Delete a project",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to delete without --yes")
			}
			code, err := accessCode(cmd, app)
			if err != nil {
				return err
			}
			id, err := resolveProjectID(cmd.Context(), app, code, args[0])
			if err != nil {
				return err
			}
			if err := app.Projects.Delete(cmd.Context(), code, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted project %s\n", id[:min(8, len(id))])
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm deletion")
	return cmd
}

func newProjectWatchCmd(app *App) *cobra.Command {
	var edit bool
	cmd := &cobra.Command{
		Use:   "watch PROJECT",
		Short: "Follow a project live as other users edit it",
		Long: "Follow a project live as other users edit it.\n\n" +
			"With --edit, lines read from stdin are applied to the project:\n  " + watchEditHelp,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.NewSession == nil {
				return fmt.Errorf("project watch is not available")
			}
			code, err := accessCode(cmd, app)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			id, err := resolveProjectID(ctx, app, code, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			sess := app.NewSession(code)
			gone := make(chan struct{})
			sess.OnChange(func(p *domain.Project) {
				if p == nil {
					fmt.Fprintln(out, "Project was deleted.")
					close(gone)
					return
				}
				fmt.Fprintf(out, "%s\n%s", formatter.Dim("── revision "+fmt.Sprint(p.Revision)+" ──"),
					formatter.FormatProjectDetail(p, app.now()))
			})
			if err := sess.Start(ctx); err != nil {
				return err
			}
			defer sess.Stop()
			if err := sess.Open(ctx, id); err != nil {
				return err
			}

			var lines <-chan string
			if edit {
				fmt.Fprintln(out, formatter.Dim(watchEditHelp))
				lines = readLines(ctx, cmd.InOrStdin())
			}
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-gone:
					return nil
				case line, ok := <-lines:
					if !ok {
						// stdin closed; keep following remote edits
						lines = nil
						continue
					}
					if err := applyWatchEdit(ctx, sess, out, line); err != nil {
						return nil
					}
				}
			}
		},
	}
	cmd.Flags().BoolVar(&edit, "edit", false, "Apply edit commands read from stdin")
	return cmd
}
