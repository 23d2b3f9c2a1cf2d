package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hdbsearch/internal/model"
	"hdbsearch/internal/service"
)

type fakeQuerier struct {
	queryFn  func(ctx context.Context, req *model.QueryRequest) (*model.QueryResponse, error)
	streamFn func(ctx context.Context, req *model.QueryRequest, cb service.EventCallback) (*model.QueryResponse, error)
}

func (f *fakeQuerier) Query(ctx context.Context, req *model.QueryRequest) (*model.QueryResponse, error) {
	return f.queryFn(ctx, req)
}

func (f *fakeQuerier) QueryStream(ctx context.Context, req *model.QueryRequest, cb service.EventCallback) (*model.QueryResponse, error) {
	return f.streamFn(ctx, req, cb)
}

type fakeTools struct {
	names []string
	err   error
}

func (f fakeTools) ToolNames(context.Context) ([]string, error) { return f.names, f.err }

func newTestRouter(q Querier, tools ToolLister) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(
		NewQueryHandler(q),
		NewSystemHandler(BuildInfo{Version: "1.2.3", BuildTime: "now", GitCommit: "abc"}, tools),
		CORSConfig{AllowedOrigins: "*", AllowedMethods: "GET,POST", AllowedHeaders: "Content-Type"},
	)
}

func post(router http.Handler, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestQuery(t *testing.T) {
	var got *model.QueryRequest
	q := &fakeQuerier{queryFn: func(_ context.Context, req *model.QueryRequest) (*model.QueryResponse, error) {
		got = req
		return &model.QueryResponse{RunID: "run-1", Response: "Here are 3 flats", Total: 3}, nil
	}}
	router := newTestRouter(q, fakeTools{})

	for _, path := range []string{"/api/v1/query", "/query"} {
		t.Run(path, func(t *testing.T) {
			w := post(router, path, `{"query":"  4-room flats in Toa Payoh  "}`)
			require.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, "4-room flats in Toa Payoh", got.Query)

			var resp model.QueryResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, "run-1", resp.RunID)
			assert.Equal(t, "Here are 3 flats", resp.Response)
			assert.Equal(t, 3, resp.Total)
		})
	}
}

func TestQuery_AcceptsMessages(t *testing.T) {
	q := &fakeQuerier{queryFn: func(_ context.Context, req *model.QueryRequest) (*model.QueryResponse, error) {
		require.Len(t, req.Conversation(), 2)
		return &model.QueryResponse{}, nil
	}}
	w := post(newTestRouter(q, fakeTools{}), "/api/v1/query",
		`{"messages":[{"role":"system","content":"be brief"},{"role":"user","content":"flats in Bishan"}]}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestQuery_BadRequest(t *testing.T) {
	q := &fakeQuerier{queryFn: func(context.Context, *model.QueryRequest) (*model.QueryResponse, error) {
		t.Fatal("pipeline must not run")
		return nil, nil
	}}
	router := newTestRouter(q, fakeTools{})

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{"query":`},
		{name: "empty query", body: `{"query":"   "}`},
		{name: "nothing", body: `{}`},
		{name: "message without role", body: `{"messages":[{"content":"hi"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(router, "/api/v1/query", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "Invalid request")
		})
	}
}

func TestQuery_PipelineError(t *testing.T) {
	q := &fakeQuerier{queryFn: func(context.Context, *model.QueryRequest) (*model.QueryResponse, error) {
		return nil, context.Canceled
	}}
	w := post(newTestRouter(q, fakeTools{}), "/api/v1/query", `{"query":"flats"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Query failed")
}

func TestQueryStream(t *testing.T) {
	q := &fakeQuerier{streamFn: func(_ context.Context, req *model.QueryRequest, cb service.EventCallback) (*model.QueryResponse, error) {
		require.NoError(t, cb(service.EventStage, map[string]any{"stage": "intent"}))
		require.NoError(t, cb(service.EventDelta, map[string]any{"content": "Found"}))
		return &model.QueryResponse{RunID: "run-2", Response: "Found"}, nil
	}}
	w := post(newTestRouter(q, fakeTools{}), "/api/v1/query/stream", `{"query":"flats"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/event-stream")

	body := w.Body.String()
	order := []string{"event: start", "event: stage", "event: delta", "event: results", "event: done"}
	last := -1
	for _, marker := range order {
		idx := strings.Index(body, marker)
		require.GreaterOrEqual(t, idx, 0, "missing %q", marker)
		assert.Greater(t, idx, last, "%q out of order", marker)
		last = idx
	}
	assert.Contains(t, body, `"run_id":"run-2"`)
}

func TestQueryStream_Error(t *testing.T) {
	q := &fakeQuerier{streamFn: func(context.Context, *model.QueryRequest, service.EventCallback) (*model.QueryResponse, error) {
		return nil, errors.New("pipeline cancelled")
	}}
	w := post(newTestRouter(q, fakeTools{}), "/api/v1/query/stream", `{"query":"flats"}`)
	body := w.Body.String()
	assert.Contains(t, body, "event: error")
	assert.Contains(t, body, "pipeline cancelled")
	assert.NotContains(t, body, "event: done")
}

func TestSystemEndpoints(t *testing.T) {
	router := newTestRouter(&fakeQuerier{}, fakeTools{names: []string{"geospatial-query", "list-hdb-flats"}})

	get := func(path string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		return w
	}

	w := get("/health")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"healthy"`)

	w = get("/version")
	require.Equal(t, http.StatusOK, w.Code)
	var build BuildInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &build))
	assert.Equal(t, "1.2.3", build.Version)

	w = get("/api/v1/tools")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tools":["geospatial-query","list-hdb-flats"]}`, w.Body.String())

	w = get("/metrics")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestToolsEndpoint_LoadFailure(t *testing.T) {
	router := newTestRouter(&fakeQuerier{}, fakeTools{err: errors.New("connection refused")})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/tools", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
}
