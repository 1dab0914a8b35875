package cli

import (
	"fmt"

	"github.com/alexanderramin/procflow/internal/cli/formatter"
	"github.com/alexanderramin/procflow/internal/workflow"
	"github.com/spf13/cobra"
)

func newStepCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "step",
		Short: "Complete or revert workflow steps",
	}

	cmd.AddCommand(
		newStepCompleteCmd(app),
		newStepRevertCmd(app),
	)

	return cmd
}

func newStepCompleteCmd(app *App) *cobra.Command {
	var docNumber, date string

	cmd := &cobra.Command{
		Use:   "complete PROJECT STEP",
		Short: "Mark a step completed, optionally with a document number and date",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := resolveTarget(cmd, app, args[0], args[1])
			if err != nil {
				return err
			}
			completedAt, err := parseOptionalDate(date)
			if err != nil {
				return err
			}
			var doc *string
			if cmd.Flags().Changed("doc") {
				doc = &docNumber
			}

			p, err := app.Steps.Complete(cmd.Context(), t.code, t.projectID, t.step, doc, completedAt)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Completed step %d: %s\n%s\n",
				t.step+1, p.Steps[t.step].Title, formatter.RenderProgress(workflow.ProgressPercent(p), 20))
			return nil
		},
	}

	cmd.Flags().StringVar(&docNumber, "doc", "", "Document number issued for this step")
	cmd.Flags().StringVar(&date, "date", "", "Completion date (YYYY-MM-DD, default today)")
	return cmd
}

func newStepRevertCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "revert PROJECT STEP",
		Short: "Mark a step incomplete again",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := resolveTarget(cmd, app, args[0], args[1])
			if err != nil {
				return err
			}
			p, err := app.Steps.Revert(cmd.Context(), t.code, t.projectID, t.step)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reverted step %d: %s\n%s\n",
				t.step+1, p.Steps[t.step].Title, formatter.RenderProgress(workflow.ProgressPercent(p), 20))
			return nil
		},
	}
}
