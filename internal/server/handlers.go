package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/alexanderramin/flowdesk/internal/ctxlog"
	"github.com/alexanderramin/flowdesk/internal/domain"
	"github.com/alexanderramin/flowdesk/internal/flowchart"
	"github.com/alexanderramin/flowdesk/internal/interchange"
	"github.com/gorilla/mux"
)

// kindFromPath reads the document kind off the first path segment. Routes
// that fix the kind carry no {kind} variable.
func kindFromPath(r *http.Request) domain.DocumentKind {
	if strings.HasPrefix(r.URL.Path, "/templates") {
		return domain.DocumentTemplate
	}
	return domain.DocumentProject
}

// visibleNodes drops what the request's role may not see.
func visibleNodes(r *http.Request, nodes []domain.Node) []domain.Node {
	role := RoleFromContext(r.Context())
	out := make([]domain.Node, 0, len(nodes))
	for i := range nodes {
		if flowchart.CustomerVisible(&nodes[i], role) {
			out = append(out, nodes[i])
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto status codes. Unexpected errors are
// logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidNode), errors.Is(err, domain.ErrInvalidImport):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrReadOnly):
		status = http.StatusForbidden
	}
	if status == http.StatusInternalServerError {
		ctxlog.FromContext(r.Context()).Error("request failed", "error", err)
		http.Error(w, "Internal server error", status)
		return
	}
	http.Error(w, err.Error(), status)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	docs, err := s.docs.List(r.Context(), kindFromPath(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if docs == nil {
		docs = []*domain.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

type createRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	d, err := s.docs.Create(r.Context(), kindFromPath(r), req.Name, req.Description)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// handleGet answers with the document header and its chart.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	d, err := s.docs.Get(r.Context(), kindFromPath(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	d.Nodes = visibleNodes(r, d.Nodes)
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.docs.Delete(r.Context(), kindFromPath(r), mux.Vars(r)["id"]); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetFlowchart answers with the bare node array.
func (s *Server) handleGetFlowchart(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.docs.Flowchart(r.Context(), kindFromPath(r), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, visibleNodes(r, nodes))
}

// handlePutFlowchart replaces the whole chart. The body is either
// {flowChart: [...]} or a bare node array.
func (s *Server) handlePutFlowchart(w http.ResponseWriter, r *http.Request) {
	nodes, err := interchange.Import(http.MaxBytesReader(w, r.Body, maxBodyBytes), interchange.FormatJSON)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.docs.ReplaceFlowchart(r.Context(), kindFromPath(r), mux.Vars(r)["id"], nodes); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type instantiateRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleInstantiate(w http.ResponseWriter, r *http.Request) {
	var req instantiateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
	}
	project, err := s.docs.Instantiate(r.Context(), mux.Vars(r)["id"], req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, project)
}
