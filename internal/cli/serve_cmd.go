package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alexanderramin/flowdesk/internal/domain"
	"github.com/alexanderramin/flowdesk/internal/server"
	"github.com/alexanderramin/flowdesk/internal/service"
	"github.com/alexanderramin/flowdesk/internal/template"
	"github.com/spf13/cobra"
)

func newServeCmd(app *App) *cobra.Command {
	var addr string
	var watch, seed bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the document API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if !cmd.Flags().Changed("addr") {
				addr = app.Config.Server.Addr
			}
			if !cmd.Flags().Changed("watch") {
				watch = app.Config.Templates.Watch
			}

			svc, err := app.localService(ctx)
			if err != nil {
				return err
			}

			dir := app.Config.Templates.Dir
			if seed {
				seedCatalog(ctx, app, svc, dir)
			}
			if watch {
				w, err := template.NewWatcher(dir, func(ctx context.Context, docs []*domain.Document, err error) {
					if err != nil {
						app.Logger.WarnContext(ctx, "template reload had errors", "error", err)
					}
					reseed(ctx, app, svc, docs)
				})
				if err != nil {
					return fmt.Errorf("watching templates: %w", err)
				}
				if err := w.Start(ctx); err != nil {
					return fmt.Errorf("watching templates: %w", err)
				}
				defer w.Stop()
				app.Logger.Info("watching template directory", "dir", dir)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Serving flowdesk on http://%s\n", addr)
			return server.New(svc, server.WithLogger(app.Logger)).ListenAndServe(ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&watch, "watch", false, "reload templates when their files change")
	cmd.Flags().BoolVar(&seed, "seed", true, "load the template catalog on startup")
	return cmd
}

// seedCatalog loads the template directory once. A missing or partly broken
// catalog is logged and does not stop the server.
func seedCatalog(ctx context.Context, app *App, svc service.DocumentService, dir string) {
	docs, err := template.LoadDir(ctx, dir)
	if err != nil {
		app.Logger.WarnContext(ctx, "loading template catalog", "dir", dir, "error", err)
	}
	reseed(ctx, app, svc, docs)
}

func reseed(ctx context.Context, app *App, svc service.DocumentService, docs []*domain.Document) {
	if len(docs) == 0 {
		return
	}
	res, err := svc.SeedTemplates(ctx, docs)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			app.Logger.ErrorContext(ctx, "seeding templates", "error", err)
		}
		return
	}
	app.Logger.InfoContext(ctx, "templates seeded", "created", len(res.Created), "updated", len(res.Updated))
}
