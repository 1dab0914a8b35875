package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexanderramin/procflow/internal/cli/formatter"
	"github.com/alexanderramin/procflow/internal/domain"
	"github.com/spf13/cobra"
)

func newTimelineCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "timeline",
		Aliases: []string{"tl"},
		Short:   "Dated notes recording what happened during a step",
	}

	var date string
	add := &cobra.Command{
		Use:   "add PROJECT STEP TEXT...",
		Short: "Add a timeline note",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := resolveTarget(cmd, app, args[0], args[1])
			if err != nil {
				return err
			}
			at, err := parseOptionalDate(date)
			if err != nil {
				return err
			}
			if _, err := app.Notes.AddTimeline(cmd.Context(), t.code, t.projectID, t.step, strings.Join(args[2:], " "), at); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Added timeline note.")
			return nil
		},
	}
	add.Flags().StringVar(&date, "date", "", "Date the event happened (YYYY-MM-DD, default now)")

	list := &cobra.Command{
		Use:     "list PROJECT STEP",
		Aliases: []string{"ls"},
		Short:   "List timeline notes, newest first",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := resolveTarget(cmd, app, args[0], args[1])
			if err != nil {
				return err
			}
			notes, err := app.Notes.Timeline(cmd.Context(), t.code, t.projectID, t.step)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatTimeline(notes))
			return nil
		},
	}

	cmd.AddCommand(
		add,
		newNoteEditCmd(app, "timeline", func(s *domain.Step) []domain.Note { return s.Timeline }, app.Notes.EditTimeline),
		newNoteDeleteCmd(app, "timeline", func(s *domain.Step) []domain.Note { return s.Timeline }, app.Notes.DeleteTimeline),
		list,
	)

	return cmd
}

func newPostitCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "postit",
		Short: "Sticky reminders pinned to a step",
	}

	add := &cobra.Command{
		Use:   "add PROJECT STEP TEXT...",
		Short: "Pin a postit to a step",
		Args:  cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := resolveTarget(cmd, app, args[0], args[1])
			if err != nil {
				return err
			}
			if _, err := app.Notes.AddPostit(cmd.Context(), t.code, t.projectID, t.step, strings.Join(args[2:], " ")); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Added postit.")
			return nil
		},
	}

	cmd.AddCommand(
		add,
		newNoteEditCmd(app, "postit", func(s *domain.Step) []domain.Note { return s.Postits }, app.Notes.EditPostit),
		newNoteDeleteCmd(app, "postit", func(s *domain.Step) []domain.Note { return s.Postits }, app.Notes.DeletePostit),
	)

	return cmd
}

type noteEditFunc func(ctx context.Context, code, projectID string, stepIdx int, ref, text string) error

type noteDeleteFunc func(ctx context.Context, code, projectID string, stepIdx int, ref string) error

// noteRef resolves the NOTE argument against the notes currently on the step.
func noteRef(cmd *cobra.Command, app *App, t target, notes func(*domain.Step) []domain.Note, ref string) (string, error) {
	_, step, err := t.project(cmd.Context(), app)
	if err != nil {
		return "", err
	}
	return resolveNoteRef(notes(step), ref), nil
}

func newNoteEditCmd(app *App, kind string, notes func(*domain.Step) []domain.Note, edit noteEditFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "edit PROJECT STEP NOTE TEXT...",
		Short: "Change the text of a " + kind + " note",
		Args:  cobra.MinimumNArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := resolveTarget(cmd, app, args[0], args[1])
			if err != nil {
				return err
			}
			ref, err := noteRef(cmd, app, t, notes, args[2])
			if err != nil {
				return err
			}
			if err := edit(cmd.Context(), t.code, t.projectID, t.step, ref, strings.Join(args[3:], " ")); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s note.\n", kind)
			return nil
		},
	}
}

func newNoteDeleteCmd(app *App, kind string, notes func(*domain.Step) []domain.Note, del noteDeleteFunc) *cobra.Command {
	return &cobra.Command{
		Use:     "delete PROJECT STEP NOTE",
		Aliases: []string{"rm"},
		Short:   "Remove a " + kind + " note by id, id prefix or timestamp",
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := resolveTarget(cmd, app, args[0], args[1])
			if err != nil {
				return err
			}
			ref, err := noteRef(cmd, app, t, notes, args[2])
			if err != nil {
				return err
			}
			if err := del(cmd.Context(), t.code, t.projectID, t.step, ref); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s note.\n", kind)
			return nil
		},
	}
}
