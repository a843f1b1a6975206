package cli

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/flowdesk/internal/cli/formatter"
	"github.com/alexanderramin/flowdesk/internal/domain"
	"github.com/alexanderramin/flowdesk/internal/template"
	"github.com/spf13/cobra"
)

func newProjectCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"projects"},
		Short:   "Manage projects",
	}
	cmd.AddCommand(
		newDocListCmd(app, domain.DocumentProject),
		newProjectCreateCmd(app),
		newDocShowCmd(app, domain.DocumentProject),
		newDocDeleteCmd(app, domain.DocumentProject),
	)
	return cmd
}

func newTemplateCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "template",
		Aliases: []string{"templates"},
		Short:   "Manage flowchart templates",
	}
	cmd.AddCommand(
		newDocListCmd(app, domain.DocumentTemplate),
		newDocCreateCmd(app, domain.DocumentTemplate),
		newDocShowCmd(app, domain.DocumentTemplate),
		newDocDeleteCmd(app, domain.DocumentTemplate),
		newTemplateInstantiateCmd(app),
		newTemplateSeedCmd(app),
		newTemplateValidateCmd(app),
	)
	return cmd
}

func newDocListCmd(app *App, kind domain.DocumentKind) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   fmt.Sprintf("List %ss", kind),
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := app.documents(cmd.Context())
			if err != nil {
				return err
			}
			list, err := docs.List(cmd.Context(), kind)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatDocumentList(kind, list))
			return nil
		},
	}
}

func newDocCreateCmd(app *App, kind domain.DocumentKind) *cobra.Command {
	var name, description string
	cmd := &cobra.Command{
		Use:   "create",
		Short: fmt.Sprintf("Create an empty %s", kind),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireStaff(); err != nil {
				return err
			}
			docs, err := app.documents(cmd.Context())
			if err != nil {
				return err
			}
			d, err := docs.Create(cmd.Context(), kind, name, description)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %s %s\n", kind, formatter.Bold(d.Name), formatter.Dim("("+d.ID+")"))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Name (required)")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

// newProjectCreateCmd creates a project, empty or copied from a template.
func newProjectCreateCmd(app *App) *cobra.Command {
	cmd := newDocCreateCmd(app, domain.DocumentProject)
	var from string
	create := cmd.RunE
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if from == "" {
			return create(cmd, args)
		}
		name, _ := cmd.Flags().GetString("name")
		return instantiate(cmd, app, from, name)
	}
	cmd.Flags().StringVar(&from, "from", "", "Template to copy the flowchart from")
	return cmd
}

func newTemplateInstantiateCmd(app *App) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "instantiate <template>",
		Short: "Create a project from a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return instantiate(cmd, app, args[0], name)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Project name (required)")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func instantiate(cmd *cobra.Command, app *App, templateRef, name string) error {
	if err := app.requireStaff(); err != nil {
		return err
	}
	ctx := cmd.Context()
	docs, err := app.documents(ctx)
	if err != nil {
		return err
	}
	templateID, err := resolveDocumentID(ctx, docs, domain.DocumentTemplate, templateRef)
	if err != nil {
		return err
	}
	project, err := docs.Instantiate(ctx, templateID, name)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created project %s from %s %s\n",
		formatter.Bold(project.Name), templateID, formatter.Dim(fmt.Sprintf("(%s, %d nodes)", project.ID, len(project.Nodes))))
	return nil
}

func newDocShowCmd(app *App, kind domain.DocumentKind) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: fmt.Sprintf("Show a %s", kind),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			docs, err := app.documents(ctx)
			if err != nil {
				return err
			}
			id, err := resolveDocumentID(ctx, docs, kind, args[0])
			if err != nil {
				return err
			}
			d, err := docs.Get(ctx, kind, id)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatDocument(d))
			return nil
		},
	}
}

func newDocDeleteCmd(app *App, kind domain.DocumentKind) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   fmt.Sprintf("Delete a %s and its flowchart", kind),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireStaff(); err != nil {
				return err
			}
			ctx := cmd.Context()
			docs, err := app.documents(ctx)
			if err != nil {
				return err
			}
			id, err := resolveDocumentID(ctx, docs, kind, args[0])
			if err != nil {
				return err
			}
			if err := docs.Delete(ctx, kind, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s\n", kind, id)
			return nil
		},
	}
}

func newTemplateSeedCmd(app *App) *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the template catalog directory into the local store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.requireStaff(); err != nil {
				return err
			}
			if dir == "" {
				dir = app.Config.Templates.Dir
			}
			ctx := cmd.Context()
			svc, err := app.localService(ctx)
			if err != nil {
				return err
			}
			catalog, loadErr := template.LoadDir(ctx, dir)
			if len(catalog) > 0 {
				res, err := svc.SeedTemplates(ctx, catalog)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), formatter.FormatSeedResult(res.Created, res.Updated))
			} else if loadErr == nil {
				fmt.Fprint(cmd.OutOrStdout(), formatter.FormatSeedResult(nil, nil))
			}
			return loadErr
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "Template directory (default from config)")
	return cmd
}

func newTemplateValidateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check template files without loading them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var failed []string
			for _, path := range args {
				d, err := template.LoadFile(path)
				if err != nil {
					failed = append(failed, path)
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", formatter.StyleRed.Render("✖"), err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", formatter.StyleGreen.Render("✔"), path,
					formatter.Dim(fmt.Sprintf("(%s, %d nodes)", d.ID, len(d.Nodes))))
			}
			if len(failed) > 0 {
				return fmt.Errorf("invalid template files: %s", strings.Join(failed, ", "))
			}
			return nil
		},
	}
}
