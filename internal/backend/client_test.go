package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/plat-geochat/internal/session"
)

func TestChatDecodesResponse(t *testing.T) {
	var gotReq ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(ChatResponse{
			Message: "Kazakhstan boundary",
			Status:  "success",
			MapLayers: []WireLayer{
				{ID: "kazakhstan_boundary", Type: "geojson"},
				{ID: "bogus", Type: "hologram"},
			},
			MapAction: &session.MapAction{Type: session.ActionFlyTo, Center: []float64{67, 48}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	bounds := &session.MapBounds{North: 55.4, South: 40.5, East: 87.3, West: 46.5}
	resp, err := c.Chat(context.Background(), "show kazakhstan", bounds)
	require.NoError(t, err)

	assert.Equal(t, "show kazakhstan", gotReq.Query)
	require.NotNil(t, gotReq.MapBounds)
	assert.Equal(t, 55.4, gotReq.MapBounds.North)

	assert.Equal(t, "Kazakhstan boundary", resp.Message)
	// the invalid layer type is dropped, the valid one is normalized
	require.Len(t, resp.Layers, 1)
	layer := resp.Layers[0]
	assert.Equal(t, "kazakhstan_boundary", layer.ID)
	assert.True(t, layer.Visible)
	assert.Equal(t, 1.0, layer.Opacity)
	assert.NotNil(t, layer.Paint["fill-color"])
	require.NotNil(t, resp.Action)
	assert.Equal(t, session.ActionFlyTo, resp.Action.Type)
}

func TestChatErrorStatusDropsPayloads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ChatResponse{
			Message:   "analysis failed",
			Status:    "error",
			MapLayers: []WireLayer{{ID: "partial", Type: "geojson"}},
			Chart:     &session.ChartData{Type: "bar"},
		})
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL, nil).Chat(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Equal(t, "analysis failed", resp.Message)
	assert.Nil(t, resp.Layers)
	assert.Nil(t, resp.Chart)
	assert.Nil(t, resp.Action)
}

func TestChatNon200IsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, nil).Chat(context.Background(), "q", nil)
	assert.Error(t, err)
}

func TestHealthProbe(t *testing.T) {
	healthy := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/health", r.URL.Path)
		if !healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, nil)
	assert.NoError(t, c.Health(context.Background()))

	healthy = false
	assert.Error(t, c.Health(context.Background()))
}

func TestMonitorDrivesConnectedFlag(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	store := session.NewStore(nil)
	m := NewMonitor(store, NewClient(srv.URL, nil), nil)
	m.interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for !store.Connected() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.True(t, store.Connected())

	srv.Close()
	deadline = time.Now().Add(2 * time.Second)
	for store.Connected() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.False(t, store.Connected())
}

func TestBasemapsFallback(t *testing.T) {
	// unreachable catalog falls back to the built-in pair
	c := NewClient("http://127.0.0.1:1", nil)
	maps := c.Basemaps(context.Background())
	require.Len(t, maps, 2)
	assert.Equal(t, "dark", maps[0].ID)
	assert.Equal(t, "style", maps[0].Type)
	assert.Equal(t, "satellite", maps[1].ID)
	assert.Contains(t, maps[1].Attribution, "MapTiler")
	assert.NotContains(t, maps[1].URL, "key=", "no key configured")
}

func TestFallbackBasemapsMaptilerKey(t *testing.T) {
	maps := FallbackBasemaps("tk_test 1")
	require.Len(t, maps, 2)
	assert.NotContains(t, maps[0].URL, "key=", "carto style needs no key")
	assert.Contains(t, maps[1].URL, "api.maptiler.com")
	assert.Contains(t, maps[1].URL, "?key=tk_test+1")

	// the shared definitions must stay untouched
	again := FallbackBasemaps("")
	assert.NotContains(t, again[1].URL, "key=")
}

func TestBasemapsFallbackCarriesKey(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", nil)
	c.MaptilerKey = "abc123"
	maps := c.Basemaps(context.Background())
	require.Len(t, maps, 2)
	assert.Contains(t, maps[1].URL, "?key=abc123")
}

func TestBasemapsFromCatalog(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/layers/basemaps", r.URL.Path)
		json.NewEncoder(w).Encode(map[string][]Basemap{
			"basemaps": {{ID: "terrain", Name: "Terrain", URL: "https://example.com/t.json", Type: "style"}},
		})
	}))
	defer srv.Close()

	maps := NewClient(srv.URL, nil).Basemaps(context.Background())
	require.Len(t, maps, 1)
	assert.Equal(t, "terrain", maps[0].ID)
}

func TestBackoffSchedule(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 6 * time.Second},
		{4, 8 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Backoff(tt.attempt))
	}
}

func TestReportFilename(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/report", r.URL.Path)
		assert.Equal(t, "Air Quality", r.URL.Query().Get("title"))
		w.Header().Set("Content-Disposition", `attachment; filename="aq-report.pdf"`)
		w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	body, filename, err := NewClient(srv.URL, nil).Report(context.Background(), ReportOptions{
		Title: "Air Quality", Region: "Almaty",
	})
	require.NoError(t, err)
	defer body.Close()
	assert.Equal(t, "aq-report.pdf", filename)
}
