// Package server exposes projects, templates and their flowcharts over HTTP.
// The editor's remote store loads and saves whole charts through
// /projects/{id}/flowchart and /templates/{id}.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/alexanderramin/flowdesk/internal/ctxlog"
	"github.com/alexanderramin/flowdesk/internal/service"
	"github.com/gorilla/mux"
)

const (
	readTimeout     = 15 * time.Second
	writeTimeout    = 15 * time.Second
	idleTimeout     = 60 * time.Second
	shutdownTimeout = 5 * time.Second

	// maxBodyBytes bounds chart uploads.
	maxBodyBytes = 8 << 20
)

type Server struct {
	docs   service.DocumentService
	logger *slog.Logger
	router *mux.Router
}

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func New(docs service.DocumentService, opts ...Option) *Server {
	s := &Server{docs: docs}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = ctxlog.OrDiscard(s.logger)
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestLogger, roleMiddleware)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	r.HandleFunc("/{kind:projects|templates}", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/{kind:projects|templates}", s.handleCreate).Methods(http.MethodPost)

	// Templates are loaded and saved at their own path.
	r.HandleFunc("/templates/{id}", s.handleGetFlowchart).Methods(http.MethodGet)
	r.HandleFunc("/templates/{id}", s.handlePutFlowchart).Methods(http.MethodPut)
	r.HandleFunc("/templates/{id}/instantiate", s.handleInstantiate).Methods(http.MethodPost)
	r.HandleFunc("/projects/{id}", s.handleGet).Methods(http.MethodGet)

	r.HandleFunc("/{kind:projects|templates}/{id}", s.handleDelete).Methods(http.MethodDelete)
	r.HandleFunc("/{kind:projects|templates}/{id}/document", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/{kind:projects|templates}/{id}/flowchart", s.handleGetFlowchart).Methods(http.MethodGet)
	r.HandleFunc("/{kind:projects|templates}/{id}/flowchart", s.handlePutFlowchart).Methods(http.MethodPut)

	return r
}

// Handler returns the root HTTP handler. CORS sits outside the router so
// preflight requests are answered for every path.
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.router)
}

// ListenAndServe serves on addr until ctx is cancelled, then drains
// in-flight requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  idleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctxlog.WithLogger(context.Background(), s.logger) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}
	return nil
}
