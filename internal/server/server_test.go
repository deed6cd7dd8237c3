package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/blockql/internal/blockgraph"
	"github.com/roach88/blockql/internal/catalog"
	"github.com/roach88/blockql/internal/ir"
	"github.com/roach88/blockql/internal/joins"
	"github.com/roach88/blockql/internal/preview"
	"github.com/roach88/blockql/internal/session"
	"github.com/roach88/blockql/internal/testutil"
)

type emitBody struct {
	SQL          string   `json:"sql"`
	Diagnostic   string   `json:"diagnostic"`
	MissingJoins []string `json:"missingJoins"`
	Warnings     []string `json:"warnings"`
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := session.New(session.Options{
		Executor: &preview.MockExecutor{Delay: -1, Now: func() time.Time { return testutil.Epoch }},
		IDs:      testutil.NewSequentialIDs("q"),
		Now:      testutil.NewDeterministicClock().Now,
		Logger:   logger,
	})
	return New(s, Options{Logger: logger})
}

func graphJSON(t *testing.T, ids ...string) []byte {
	t.Helper()
	refs := make([]ir.ColumnRef, len(ids))
	for i, id := range ids {
		refs[i] = ir.ParseColumnRef(id)
	}
	data, err := blockgraph.FromColumns(refs).Marshal()
	require.NoError(t, err)
	return data
}

func do(t *testing.T, srv *Server, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestSchema(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/schema", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	nodes := decode[[]catalog.SchemaNode](t, rec)
	require.Len(t, nodes, 2)
	assert.Equal(t, "Risk", nodes[0].Name)

	rec = do(t, srv, http.MethodGet, "/api/schema?q=RCOL11", nil)
	nodes = decode[[]catalog.SchemaNode](t, rec)
	require.Len(t, nodes, 1)
	require.Len(t, nodes[0].Children, 1)
	assert.Equal(t, "rtable1.rcol11", nodes[0].Children[0].Children[0].ID)

	rec = do(t, srv, http.MethodGet, "/api/schema?q=nothing", nil)
	assert.Equal(t, "[]\n", rec.Body.String())
}

func TestJoins(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/api/joins", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, joins.DefaultRules(), decode[[]joins.Rule](t, rec))
}

func TestToolbox(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/toolbox", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	categories := decode[[]session.ToolboxCategory](t, rec)
	require.Len(t, categories, 3)
	assert.Empty(t, categories[0].Entries)

	rec = do(t, srv, http.MethodPost, "/api/toolbox", graphJSON(t, "rtable1.rcol11", "ttable2.tcol22"))
	require.Equal(t, http.StatusOK, rec.Code)
	categories = decode[[]session.ToolboxCategory](t, rec)
	require.Len(t, categories, 3)
	assert.Equal(t, "Selected Columns", categories[0].Name)
	assert.Equal(t, []session.ToolboxEntry{
		{Kind: "column", Label: "rtable1.rcol11", Column: "rcol11", Table: "rtable1"},
		{Kind: "column", Label: "ttable2.tcol22", Column: "tcol22", Table: "ttable2"},
	}, categories[0].Entries)

	// The shared workspace selection is untouched.
	assert.Empty(t, srv.session.Toolbox()[0].Entries)

	rec = do(t, srv, http.MethodPost, "/api/toolbox", []byte("nope"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEmit(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name       string
		body       []byte
		sql        string
		diagnostic string
		missing    []string
	}{
		{
			name:       "empty body",
			sql:        "-- Please connect column blocks to SELECT",
			diagnostic: "empty_query",
			missing:    []string{},
		},
		{
			name:       "join",
			body:       graphJSON(t, "rtable1.rcol11", "ttable1.tcol11"),
			sql:        "SELECT rtable1.rcol11, ttable1.tcol11\nFROM rtable1\nINNER JOIN ttable1 ON rtable1.rcol11 = ttable1.tcol12",
			diagnostic: "none",
			missing:    []string{},
		},
		{
			name:       "missing join",
			body:       graphJSON(t, "ttable1.tcol11", "ttable2.tcol21"),
			sql:        "-- ERROR: Join not defined between tables: ttable1 and ttable2. Please reach out to dev for support.",
			diagnostic: "missing_join",
			missing:    []string{"ttable1 and ttable2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, "/api/emit", tt.body)
			require.Equal(t, http.StatusOK, rec.Code)

			body := decode[emitBody](t, rec)
			assert.Equal(t, tt.sql, body.SQL)
			assert.Equal(t, tt.diagnostic, body.Diagnostic)
			assert.Equal(t, tt.missing, body.MissingJoins)
			assert.Empty(t, body.Warnings)
		})
	}
}

func TestEmit_MalformedGraph(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodPost, "/api/emit", []byte(`{"version":9}`))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errorResponse](t, rec)
	assert.Equal(t, blockgraph.ErrMalformedData, body.Code)
	assert.Contains(t, body.Error, "unsupported graph version 9")
}

func TestEmit_BodyTooLarge(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(session.New(session.Options{Logger: logger}), Options{Logger: logger, MaxBodyBytes: 8})

	rec := do(t, srv, http.MethodPost, "/api/emit", graphJSON(t, "rtable1.rcol11"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "read body")
}

func TestPreview(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/preview?page=3", graphJSON(t, "rtable1.rcol11"))
	require.Equal(t, http.StatusOK, rec.Code)

	page := decode[preview.Page](t, rec)
	assert.Equal(t, 3, page.Number)
	assert.Equal(t, 200, page.TotalRows)
	assert.Equal(t, preview.Columns, page.Columns)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, page.Window)
	require.Len(t, page.Rows, 20)
	assert.Equal(t, "41", page.Rows[0][0])
}

func TestPreview_Errors(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		target string
		body   []byte
		code   string
		substr string
	}{
		{"bad page", "/api/preview?page=two", nil, "", `invalid page "two"`},
		{"page out of range", "/api/preview?page=11", graphJSON(t, "rtable1.rcol11"), "", "page out of range"},
		{"placeholder", "/api/preview", nil, preview.ErrEmptySQL, "no query to execute"},
		{"missing join", "/api/preview", graphJSON(t, "ttable1.tcol11", "ttable2.tcol21"), preview.ErrDiagnostic, "unresolved errors"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, tt.target, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			body := decode[errorResponse](t, rec)
			assert.Equal(t, tt.code, body.Code)
			assert.Contains(t, body.Error, tt.substr)
		})
	}
}

func TestQueries_SaveListGet(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodGet, "/api/queries", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())

	req, err := json.Marshal(map[string]any{
		"name":  "  risk report ",
		"graph": json.RawMessage(graphJSON(t, "rtable1.rcol11", "rtable2.rcol21")),
	})
	require.NoError(t, err)

	rec = do(t, srv, http.MethodPost, "/api/queries", req)
	require.Equal(t, http.StatusCreated, rec.Code)
	saved := decode[ir.SavedQuery](t, rec)
	assert.Equal(t, "q-1", saved.ID)
	assert.Equal(t, "risk report", saved.Name)
	assert.Equal(t, "SELECT rtable1.rcol11, rtable2.rcol21\nFROM rtable1\nINNER JOIN rtable2 ON rtable1.rcol11 = rtable2.rcol21", saved.SQL)
	require.Len(t, saved.Columns, 2)

	rec = do(t, srv, http.MethodGet, "/api/queries", nil)
	list := decode[[]ir.SavedQuery](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "q-1", list[0].ID)

	rec = do(t, srv, http.MethodGet, "/api/queries/q-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[queryResponse](t, rec)
	assert.Equal(t, saved.SQL, got.SQL)
	g, err := blockgraph.Unmarshal(got.Graph)
	require.NoError(t, err)
	assert.Len(t, g.Columns(), 2)
}

func TestQueries_Errors(t *testing.T) {
	srv := newTestServer(t)

	rec := do(t, srv, http.MethodPost, "/api/queries", []byte(`{"name":" "}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "query name is required")

	rec = do(t, srv, http.MethodPost, "/api/queries", []byte(`not json`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "decode request")

	rec = do(t, srv, http.MethodPost, "/api/queries", []byte(`{"name":"x","graph":{"version":1,"nodes":[{"id":0,"kind":"text"}]}}`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, blockgraph.ErrMalformedData, decode[errorResponse](t, rec).Code)

	rec = do(t, srv, http.MethodGet, "/api/queries/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "saved query not found: nope")
}

func TestDeleteQuery(t *testing.T) {
	srv := newTestServer(t)

	req, err := json.Marshal(map[string]any{
		"name":  "short lived",
		"graph": json.RawMessage(graphJSON(t, "rtable1.rcol11")),
	})
	require.NoError(t, err)
	rec := do(t, srv, http.MethodPost, "/api/queries", req)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := decode[ir.SavedQuery](t, rec).ID

	rec = do(t, srv, http.MethodDelete, "/api/queries/"+id, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = do(t, srv, http.MethodGet, "/api/queries/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, srv, http.MethodDelete, "/api/queries/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decode[errorResponse](t, rec).Error, "saved query not found: "+id)
}

func TestCORS(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(session.New(session.Options{Logger: logger}), Options{
		Logger:         logger,
		AllowedOrigins: []string{"http://editor.local"},
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/emit", nil)
	req.Header.Set("Origin", "http://editor.local")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, "http://editor.local", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/joins", nil)
	req.Header.Set("Origin", "http://elsewhere.local")
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoute(t *testing.T) {
	rec := do(t, newTestServer(t), http.MethodGet, "/api/nothing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServe_ShutsDownOnCancel(t *testing.T) {
	srv := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/joins")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
