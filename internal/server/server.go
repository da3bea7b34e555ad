// Package server assembles the geochat HTTP surface: the Huma REST API,
// the Datastar SSE event stream, and the background session workers.
package server

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/paulmach/orb"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-geochat/internal/backend"
	"github.com/joeblew999/plat-geochat/internal/config"
	"github.com/joeblew999/plat-geochat/internal/db"
	"github.com/joeblew999/plat-geochat/internal/demo"
	"github.com/joeblew999/plat-geochat/internal/mapview"
	"github.com/joeblew999/plat-geochat/internal/session"
	"github.com/joeblew999/plat-geochat/internal/templates"
)

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string
	WebDir  string // Path to web/ directory for static files and template overrides

	// BackendURL selects the remote analysis backend. Empty means the
	// embedded demo agent answers chat queries.
	BackendURL string
	// RealtimeURL is an optional websocket endpoint for server-pushed
	// session updates.
	RealtimeURL string
	// MaptilerKey authenticates the satellite fallback basemap tiles.
	MaptilerKey string
}

// ConfigFromEnv fills unset fields from the environment.
func ConfigFromEnv(cfg Config) Config {
	env := config.Load()
	if cfg.BackendURL == "" {
		cfg.BackendURL = env.BackendURL
	}
	if cfg.RealtimeURL == "" {
		cfg.RealtimeURL = env.RealtimeURL
	}
	if cfg.MaptilerKey == "" {
		cfg.MaptilerKey = env.MaptilerKey
	}
	return cfg
}

// Server is the geochat HTTP server.
type Server struct {
	config     Config
	mux        *http.ServeMux
	humaAPI    huma.API
	logger     *zap.Logger
	bus        *session.Bus
	store      *session.Store
	dispatcher *session.Dispatcher
	client     *backend.Client
	monitor    *backend.Monitor
	channel    *backend.Channel
	surface    *mapview.Surface
	hub        *eventHub
	renderer   *templates.Renderer
	popups     *mapview.Interaction
}

// New creates a new geochat server.
func New(cfg Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()

	humaConfig := huma.DefaultConfig("plat-geochat API", "1.0.0")
	humaConfig.Info.Description = "Conversational geospatial session API: chat-driven map layers, camera actions, and charts."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}

	humaAPI := humago.New(mux, humaConfig)

	overrideDir := ""
	if cfg.WebDir != "" {
		overrideDir = filepath.Join(cfg.WebDir, "templates", "fragments")
	}
	renderer, err := templates.New(overrideDir)
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	bus := session.NewBus()
	store := session.NewStore(bus)

	s := &Server{
		config:   cfg,
		mux:      mux,
		humaAPI:  humaAPI,
		logger:   logger,
		bus:      bus,
		store:    store,
		renderer: renderer,
		popups:   &mapview.Interaction{},
	}

	var responder session.Responder
	if cfg.BackendURL != "" {
		s.client = backend.NewClient(cfg.BackendURL, logger)
		s.client.MaptilerKey = cfg.MaptilerKey
		s.monitor = backend.NewMonitor(store, s.client, logger)
		responder = s.client
	} else {
		conn, err := db.Get(db.Config{DataDir: cfg.DataDir, DBName: "geochat"})
		if err != nil {
			return nil, fmt.Errorf("open duckdb: %w", err)
		}
		agent, err := demo.NewAgent(conn, logger)
		if err != nil {
			return nil, fmt.Errorf("init demo agent: %w", err)
		}
		responder = agent
		// No backend to probe; the demo agent is always reachable.
		store.SetConnected(true)
	}

	s.dispatcher = session.NewDispatcher(store, responder, logger)
	s.dispatcher.BoundsFunc = s.viewportBounds

	s.hub = newEventHub(logger)
	s.surface = mapview.NewSurface(store, bus, s.hub, logger)

	if cfg.RealtimeURL != "" {
		s.channel = backend.NewChannel(cfg.RealtimeURL, s.applyRealtime, logger)
	}

	s.routes()
	return s, nil
}

// Run starts the background session workers and blocks until ctx is done.
func (s *Server) Run(ctx context.Context) {
	go s.surface.Run(ctx)
	if s.monitor != nil {
		go s.monitor.Run(ctx)
	}
	if s.channel != nil {
		go s.runRealtime(ctx)
	}
	<-ctx.Done()
}

// runRealtime keeps the websocket channel alive. Channel.Run returns after
// its bounded retry budget is spent; a fresh attempt cycle starts once the
// health monitor reports the backend reachable again.
func (s *Server) runRealtime(ctx context.Context) {
	for {
		err := s.channel.Run(ctx)
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("realtime channel down, waiting for backend",
			zap.Error(err))
		if !s.waitForBackend(ctx) {
			return
		}
	}
}

func (s *Server) waitForBackend(ctx context.Context) bool {
	ch := s.bus.Subscribe(session.SliceConnection)
	defer s.bus.Unsubscribe(ch)
	if s.store.Connected() {
		return true
	}
	for {
		select {
		case <-ctx.Done():
			return false
		case <-ch:
			if s.store.Connected() {
				return true
			}
		}
	}
}

// applyRealtime folds a server-pushed response into the session.
func (s *Server) applyRealtime(resp *session.Response) {
	if resp.Message != "" {
		s.store.AddMessage(session.ChatMessage{
			Role:    session.RoleAssistant,
			Content: resp.Message,
			Code:    resp.Code,
			Layers:  resp.Layers,
			Chart:   resp.Chart,
			Action:  resp.Action,
		})
	}
	if resp.Layers != nil {
		s.store.ReplaceLayers(resp.Layers)
	}
	if resp.Chart != nil {
		s.store.SetChart(resp.Chart)
	}
	if resp.Action != nil {
		s.store.SetMapAction(*resp.Action)
	}
}

// viewportBounds approximates the visible map extent from the camera state.
// The web client keeps the authoritative bounds; this fallback keeps demo
// queries spatially scoped when no client has reported bounds yet.
func (s *Server) viewportBounds() *session.MapBounds {
	view := s.store.View()
	// Rough Web Mercator span: 360 degrees of longitude at zoom 0,
	// halving per zoom level.
	span := 360.0
	for z := 0.0; z < view.Zoom; z++ {
		span /= 2
	}
	half := span / 2
	bounds := session.BoundsFrom(orb.Bound{
		Min: orb.Point{view.Longitude - half, view.Latitude - half/2},
		Max: orb.Point{view.Longitude + half, view.Latitude + half/2},
	})
	return &bounds
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Store exposes the session store, mainly for tests and the CLI.
func (s *Server) Store() *session.Store { return s.store }

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Close closes server resources.
func (s *Server) Close() error {
	return db.Close()
}
