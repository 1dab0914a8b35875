package cli

import (
	"fmt"
	"os"

	"github.com/alexanderramin/procflow/internal/cli/formatter"
	"github.com/alexanderramin/procflow/internal/domain"
	"github.com/spf13/cobra"
)

func newTemplateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Show or change the workspace step template",
	}

	cmd.AddCommand(
		newTemplateShowCmd(app),
		newTemplateSetCmd(app),
		newTemplateResetCmd(app),
		newTemplateApplyCmd(app),
	)

	return cmd
}

func readTemplateFile(path string) (domain.StepTemplate, error) {
	if path == "" {
		return nil, fmt.Errorf("--file is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading template: %w", err)
	}
	return domain.ParseStepTemplate(data)
}

func newTemplateShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the template new projects start from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := accessCode(cmd, app)
			if err != nil {
				return err
			}
			tmpl, custom, err := app.Templates.Effective(cmd.Context(), code)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatTemplate(tmpl, custom))
			return nil
		},
	}
}

func newTemplateSetCmd(app *App) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "set --file TEMPLATE.yaml",
		Short: "Replace the workspace template and update matching projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := accessCode(cmd, app)
			if err != nil {
				return err
			}
			tmpl, err := readTemplateFile(file)
			if err != nil {
				return err
			}
			res, err := app.Templates.SetGlobal(cmd.Context(), code, tmpl)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Template saved (%d steps). Updated %d project(s).\n", len(tmpl), len(res.Updated))
			if len(res.Skipped) > 0 {
				fmt.Fprintf(out, "%s\n", formatter.StyleYellow.Render(fmt.Sprintf(
					"%d project(s) have a different step count and were left unchanged; use: procflow template apply PROJECT --file %s",
					len(res.Skipped), file)))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML or JSON template file")
	return cmd
}

func newTemplateResetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Drop the workspace template and use the built-in default",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := accessCode(cmd, app)
			if err != nil {
				return err
			}
			if err := app.Templates.Reset(cmd.Context(), code); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Template reset to default. Existing projects are unchanged.")
			return nil
		},
	}
}

func newTemplateApplyCmd(app *App) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "apply PROJECT",
		Short: "Restructure one project to a template, keeping matching step state",
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

			var tmpl domain.StepTemplate
			if file != "" {
				if tmpl, err = readTemplateFile(file); err != nil {
					return err
				}
			} else if tmpl, _, err = app.Templates.Effective(cmd.Context(), code); err != nil {
				return err
			}

			p, err := app.Templates.ApplyToProject(cmd.Context(), code, id, tmpl)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied template to %s (%d steps)\n", p.Name, len(p.Steps))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Template file (default: workspace template)")
	return cmd
}
