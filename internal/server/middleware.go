package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/alexanderramin/flowdesk/internal/ctxlog"
	"github.com/alexanderramin/flowdesk/internal/domain"
	"github.com/google/uuid"
)

// RoleHeader carries the viewer role assigned by the surrounding portal.
const RoleHeader = "X-Role"

type roleKey struct{}

// RoleFromContext returns the request's role, staff when none was sent.
func RoleFromContext(ctx context.Context) domain.Role {
	if r, ok := ctx.Value(roleKey{}).(domain.Role); ok {
		return r
	}
	return domain.RoleStaff
}

// roleMiddleware resolves the role header and refuses every write from a
// customer.
func roleMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		role := domain.RoleStaff
		switch strings.ToLower(strings.TrimSpace(r.Header.Get(RoleHeader))) {
		case "", string(domain.RoleStaff):
		case string(domain.RoleCustomer):
			role = domain.RoleCustomer
		default:
			http.Error(w, "Unknown role", http.StatusBadRequest)
			return
		}

		if role.IsCustomer() && r.Method != http.MethodGet && r.Method != http.MethodHead && r.Method != http.MethodOptions {
			writeError(w, r, domain.ErrReadOnly)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), roleKey{}, role)))
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, "+RoleHeader)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// requestLogger attaches a request-scoped logger to the context and logs
// each completed request.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		logger := s.logger.With("request_id", uuid.New().String(), "method", r.Method, "path", r.URL.Path)
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r.WithContext(ctxlog.WithLogger(r.Context(), logger)))

		logger.Info("request handled", "status", rec.status, "duration_ms", time.Since(start).Milliseconds())
	})
}
