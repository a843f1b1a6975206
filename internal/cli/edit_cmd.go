package cli

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func newEditCmd(app *App) *cobra.Command {
	flags := &chartFlags{}
	cmd := &cobra.Command{
		Use:   "edit <document>",
		Short: "Open a flowchart in the interactive list editor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal(app) {
				return errors.New("edit needs an interactive terminal; use the flowchart subcommands instead")
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			e, err := openEditor(ctx, app, flags.kind(), args[0])
			if err != nil {
				return err
			}

			autosaveDone := make(chan struct{})
			go func() {
				defer close(autosaveDone)
				e.Run(ctx)
			}()

			p := tea.NewProgram(newEditModel(ctx, e), tea.WithAltScreen(), tea.WithContext(ctx))
			_, runErr := p.Run()

			cancel()
			<-autosaveDone
			if err := e.Close(context.WithoutCancel(cmd.Context())); err != nil {
				return fmt.Errorf("saving on exit: %w", err)
			}
			if runErr != nil && !errors.Is(runErr, tea.ErrProgramKilled) {
				return runErr
			}
			if !e.ReadOnly() {
				fmt.Fprintln(cmd.OutOrStdout(), "Saved.")
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&flags.template, "template", "t", false, "the document is a template, not a project")
	return cmd
}
