package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newToolboxServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/toolset/", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"serverVersion": "0.9.0",
			"tools": map[string]any{
				ToolStationDistricts: map[string]any{"description": "towns near a station"},
				ToolListFlats:        map[string]any{"description": "resale flats"},
			},
		})
	})
	mux.HandleFunc("POST /api/tool/get-mrt-towns/invoke", func(w http.ResponseWriter, r *http.Request) {
		var args map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&args))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "BUKIT PANJANG", args["mrt_station"])
		_ = json.NewEncoder(w).Encode(map[string]any{"result": `[{"town":"BP"}]`})
	})
	mux.HandleFunc("POST /api/tool/list-hdb-flats/invoke", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "database unavailable", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestToolboxLoader(t *testing.T) {
	srv := newToolboxServer(t)
	g := New(NewToolboxLoader(srv.URL+"/", "", 5*time.Second))
	ctx := context.Background()

	names, err := g.ToolNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{ToolStationDistricts, ToolListFlats}, names)

	got, err := g.Invoke(ctx, ToolStationDistricts, map[string]any{"mrt_station": "BUKIT PANJANG"})
	require.NoError(t, err)
	assert.Equal(t, `[{"town":"BP"}]`, got)

	_, err = g.Invoke(ctx, ToolListFlats, map[string]any{"town": "BEDOK"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestToolboxLoaderUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewToolboxLoader(url, "", time.Second).LoadToolset(context.Background())
	assert.Error(t, err)
}
