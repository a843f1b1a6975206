package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/alexanderramin/flowdesk/internal/config"
	"github.com/alexanderramin/flowdesk/internal/domain"
	"github.com/alexanderramin/flowdesk/internal/service"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// App holds the state shared by every command. Service and Docs may be set
// up front (tests do this); otherwise they are opened from Config on first
// use.
type App struct {
	Service service.DocumentService
	Docs    Documents
	Config  config.Config
	Logger  *slog.Logger

	// IsInteractive reports whether stdin is a terminal. The editor refuses
	// to start without one.
	IsInteractive func() bool

	cfgFile string
	remote  bool
	verbose bool
	closers []func() error
}

// NewRootCmd creates the top-level "flowdesk" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "flowdesk",
		Short:         "Flowchart editor for renovation projects and templates",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return app.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&app.cfgFile, "config", "", "config file (default .flowdesk.yaml in the working or home directory)")
	flags.BoolVar(&app.remote, "remote", false, "talk to a flowdesk server instead of the local store")
	flags.String("role", "", "viewer role: staff or customer")
	flags.String("server", "", "server base URL used with --remote")
	flags.BoolVarP(&app.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newServeCmd(app),
		newProjectCmd(app),
		newTemplateCmd(app),
		newFlowchartCmd(app),
		newEditCmd(app),
	)
	return root
}

func (a *App) init(cmd *cobra.Command) error {
	v := viper.New()
	if err := config.Init(v, a.cfgFile); err != nil {
		return err
	}
	if err := v.BindPFlag("role", cmd.Flags().Lookup("role")); err != nil {
		return err
	}
	if err := v.BindPFlag("client.base_url", cmd.Flags().Lookup("server")); err != nil {
		return err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return err
	}
	a.Config = cfg

	if a.Logger == nil {
		level := slog.LevelWarn
		if a.verbose {
			level = slog.LevelDebug
		}
		a.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	}
	return nil
}

// Role is the viewer role every command acts as.
func (a *App) Role() domain.Role {
	return a.Config.ViewerRole()
}

// requireStaff refuses a mutation when the viewer is a customer.
func (a *App) requireStaff() error {
	if a.Role().IsCustomer() {
		return fmt.Errorf("customers cannot change documents: %w", domain.ErrReadOnly)
	}
	return nil
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close releases whatever the commands opened, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Execute builds the root command for app and runs it, printing any error
// to stderr.
func Execute(app *App, args []string, stderr io.Writer) int {
	root := NewRootCmd(app)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		_ = app.Close()
		return 1
	}
	return 0
}

func isTerminal(app *App) bool {
	if app.IsInteractive == nil {
		return false
	}
	return app.IsInteractive()
}

