package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newChecklistCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "checklist",
		Aliases: []string{"cl"},
		Short:   "Manage a step's checklist items",
	}

	cmd.AddCommand(
		newChecklistAddCmd(app),
		newChecklistEditCmd(app),
		newChecklistCheckCmd(app, true),
		newChecklistCheckCmd(app, false),
		newChecklistDateCmd(app),
		newChecklistDeadlineCmd(app),
		newChecklistDeleteCmd(app),
		newChecklistNoteCmd(app),
	)

	return cmd
}

// itemTarget resolves PROJECT STEP ITEM arguments.
func itemTarget(cmd *cobra.Command, app *App, args []string) (target, int, error) {
	t, err := resolveTarget(cmd, app, args[0], args[1])
	if err != nil {
		return target{}, 0, err
	}
	item, err := parseIndex("item", args[2])
	if err != nil {
		return target{}, 0, err
	}
	return t, item, nil
}

func newChecklistAddCmd(app *App) *cobra.Command {
	var deadline string

	cmd := &cobra.Command{
		Use:   "add PROJECT STEP TEXT...",
		Short: "Append a checklist item",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := resolveTarget(cmd, app, args[0], args[1])
			if err != nil {
				return err
			}
			dl, err := parseOptionalDate(deadline)
			if err != nil {
				return err
			}
			if _, err := app.Checklists.Add(cmd.Context(), t.code, t.projectID, t.step, strings.Join(args[2:], " "), dl); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Added checklist item.")
			return nil
		},
	}

	cmd.Flags().StringVar(&deadline, "deadline", "", "Item deadline (YYYY-MM-DD)")
	return cmd
}

func newChecklistEditCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "edit PROJECT STEP ITEM TEXT...",
		Short: "Change a checklist item's text",
		Args:  cobra.MinimumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, item, err := itemTarget(cmd, app, args)
			if err != nil {
				return err
			}
			if err := app.Checklists.Edit(cmd.Context(), t.code, t.projectID, t.step, item, strings.Join(args[3:], " ")); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Updated checklist item.")
			return nil
		},
	}
}

func newChecklistCheckCmd(app *App, checked bool) *cobra.Command {
	use, short, done := "check", "Tick a checklist item", "Checked"
	if !checked {
		use, short, done = "uncheck", "Untick a checklist item", "Unchecked"
	}

	return &cobra.Command{
		Use:   use + " PROJECT STEP ITEM",
		Short: short,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, item, err := itemTarget(cmd, app, args)
			if err != nil {
				return err
			}
			if err := app.Checklists.SetChecked(cmd.Context(), t.code, t.projectID, t.step, item, checked); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s item %d.\n", done, item+1)
			return nil
		},
	}
}

func newChecklistDateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "date PROJECT STEP ITEM DATE|clear",
		Short: "Set the completion date of an item by hand",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, item, err := itemTarget(cmd, app, args)
			if err != nil {
				return err
			}
			at, err := parseOptionalDate(args[3])
			if err != nil {
				return err
			}
			if err := app.Checklists.SetCompletedAt(cmd.Context(), t.code, t.projectID, t.step, item, at); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Updated completion date.")
			return nil
		},
	}
}

func newChecklistDeadlineCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "deadline PROJECT STEP ITEM DATE|clear",
		Short: "Set or clear an item deadline",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, item, err := itemTarget(cmd, app, args)
			if err != nil {
				return err
			}
			dl, err := parseOptionalDate(args[3])
			if err != nil {
				return err
			}
			if err := app.Checklists.SetDeadline(cmd.Context(), t.code, t.projectID, t.step, item, dl); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Updated deadline.")
			return nil
		},
	}
}

func newChecklistDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "delete PROJECT STEP ITEM",
		Aliases: []string{"rm"},
		Short:   "Remove a checklist item",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, item, err := itemTarget(cmd, app, args)
			if err != nil {
				return err
			}
			if err := app.Checklists.Delete(cmd.Context(), t.code, t.projectID, t.step, item); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Deleted checklist item.")
			return nil
		},
	}
}

func newChecklistNoteCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "note",
		Short: "Attach short notes to a checklist item",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add PROJECT STEP ITEM TEXT...",
			Short: "Add a note to an item",
			Args:  cobra.MinimumNArgs(4),
			RunE: func(cmd *cobra.Command, args []string) error {
				t, item, err := itemTarget(cmd, app, args)
				if err != nil {
					return err
				}
				if _, err := app.Checklists.AddNote(cmd.Context(), t.code, t.projectID, t.step, item, strings.Join(args[3:], " ")); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Added note.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete PROJECT STEP ITEM NOTE",
			Short: "Remove an item note by id, id prefix or timestamp",
			Args:  cobra.ExactArgs(4),
			RunE: func(cmd *cobra.Command, args []string) error {
				t, item, err := itemTarget(cmd, app, args)
				if err != nil {
					return err
				}
				_, step, err := t.project(cmd.Context(), app)
				if err != nil {
					return err
				}
				ref := args[3]
				if item < len(step.Checklist) {
					ref = resolveSubNoteRef(step.Checklist[item].Notes, ref)
				}
				if err := app.Checklists.DeleteNote(cmd.Context(), t.code, t.projectID, t.step, item, ref); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Deleted note.")
				return nil
			},
		},
	)

	return cmd
}
