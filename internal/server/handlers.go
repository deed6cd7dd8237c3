package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/blockql/internal/blockgraph"
	"github.com/roach88/blockql/internal/catalog"
	"github.com/roach88/blockql/internal/ir"
	"github.com/roach88/blockql/internal/joins"
	"github.com/roach88/blockql/internal/preview"
	"github.com/roach88/blockql/internal/session"
	"github.com/roach88/blockql/internal/sqlgen"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// emitResponse reports one emission.
type emitResponse struct {
	SQL          string            `json:"sql"`
	Diagnostic   sqlgen.Diagnostic `json:"diagnostic"`
	Collection   sqlgen.Collection `json:"collection"`
	MissingJoins []string          `json:"missingJoins"`
	Warnings     []string          `json:"warnings"`
}

// saveRequest is the body of POST /api/queries.
type saveRequest struct {
	Name  string          `json:"name"`
	Graph json.RawMessage `json:"graph"`
}

// queryResponse is a saved query with its rebuilt graph.
type queryResponse struct {
	Query ir.SavedQuery   `json:"query"`
	Graph json.RawMessage `json:"graph"`
	SQL   string          `json:"sql"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

// readBody reads at most s.maxBody bytes of the request body.
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}

// decodeGraph decodes a serialized graph. An empty body is an empty graph.
func decodeGraph(data []byte) (*blockgraph.Graph, error) {
	if len(data) == 0 {
		return blockgraph.New(), nil
	}
	return blockgraph.Unmarshal(data)
}

// graphErrorCode extracts the GraphError code, if any.
func graphErrorCode(err error) string {
	var gerr *blockgraph.GraphError
	if errors.As(err, &gerr) {
		return gerr.Code
	}
	return ""
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	nodes := s.session.Catalog().Filter(r.URL.Query().Get("q"))
	if nodes == nil {
		nodes = []catalog.SchemaNode{}
	}
	writeJSON(w, http.StatusOK, nodes)
}

func (s *Server) handleJoins(w http.ResponseWriter, r *http.Request) {
	rules := s.session.Catalog().Rules()
	if rules == nil {
		rules = []joins.Rule{}
	}
	writeJSON(w, http.StatusOK, rules)
}

func (s *Server) handleToolbox(w http.ResponseWriter, r *http.Request) {
	data, err := s.readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "", err)
		return
	}
	g, err := decodeGraph(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, graphErrorCode(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.session.ToolboxGraph(g))
}

func (s *Server) handleEmit(w http.ResponseWriter, r *http.Request) {
	data, err := s.readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "", err)
		return
	}
	g, err := decodeGraph(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, graphErrorCode(err), err)
		return
	}

	update := s.session.Evaluate(g)
	resp := emitResponse{
		SQL:          update.Result.SQL,
		Diagnostic:   update.Result.Diagnostic,
		Collection:   update.Result.Collection,
		MissingJoins: update.Result.MissingJoins,
		Warnings:     blockgraph.Validate(g).Warnings,
	}
	if resp.MissingJoins == nil {
		resp.MissingJoins = []string{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "", fmt.Errorf("invalid page %q", raw))
			return
		}
		page = n
	}

	data, err := s.readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "", err)
		return
	}
	g, err := decodeGraph(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, graphErrorCode(err), err)
		return
	}

	p, err := s.session.PreviewGraph(r.Context(), g, page)
	if err != nil {
		var verr *preview.ValidationError
		switch {
		case errors.As(err, &verr):
			writeError(w, http.StatusBadRequest, verr.Code, err)
		case errors.Is(err, preview.ErrPageOutOfRange):
			writeError(w, http.StatusBadRequest, "", err)
		default:
			s.logger.Error("preview failed", "error", err)
			writeError(w, http.StatusInternalServerError, "", err)
		}
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleListQueries(w http.ResponseWriter, r *http.Request) {
	queries, err := s.session.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", err)
		return
	}
	if queries == nil {
		queries = []ir.SavedQuery{}
	}
	writeJSON(w, http.StatusOK, queries)
}

func (s *Server) handleSaveQuery(w http.ResponseWriter, r *http.Request) {
	data, err := s.readBody(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "", err)
		return
	}
	var req saveRequest
	if err := json.Unmarshal(data, &req); err != nil {
		writeError(w, http.StatusBadRequest, "", fmt.Errorf("decode request: %w", err))
		return
	}
	g, err := decodeGraph(req.Graph)
	if err != nil {
		writeError(w, http.StatusBadRequest, graphErrorCode(err), err)
		return
	}

	q, err := s.session.SaveGraph(r.Context(), req.Name, g)
	if err != nil {
		if errors.Is(err, session.ErrEmptyName) {
			writeError(w, http.StatusBadRequest, "", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "", err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (s *Server) handleGetQuery(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	q, err := s.session.Find(r.Context(), id)
	if err != nil {
		if errors.Is(err, session.ErrQueryNotFound) {
			writeError(w, http.StatusNotFound, "", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "", err)
		return
	}

	g := s.session.Rebuild(q)
	graph, err := g.Marshal()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "", err)
		return
	}
	writeJSON(w, http.StatusOK, queryResponse{
		Query: q,
		Graph: graph,
		SQL:   s.session.Evaluate(g).Result.SQL,
	})
}

func (s *Server) handleDeleteQuery(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, session.ErrQueryNotFound) {
			writeError(w, http.StatusNotFound, "", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
