package server

import (
	"net/http"
	"path/filepath"

	"github.com/danielgtaylor/huma/v2"
	"github.com/joeblew999/plat-geochat/internal/humastar"
)

func (s *Server) routes() {
	sessions := &sessionHandler{
		store:       s.store,
		dispatcher:  s.dispatcher,
		client:      s.client,
		popups:      s.popups,
		maptilerKey: s.config.MaptilerKey,
		logger:      s.logger,
	}
	huma.AutoRegister(s.humaAPI, sessions)

	events := &eventsHandler{
		Handler:    humastar.Handler{Renderer: s.renderer},
		store:      s.store,
		bus:        s.bus,
		hub:        s.hub,
		dispatcher: s.dispatcher,
		catalog:    sessions.basemapCatalog,
	}
	huma.AutoRegister(s.humaAPI, events)

	// Report downloads stream straight through the mux, outside Huma.
	s.mux.HandleFunc("/api/report", sessions.handleReport)

	// Static files
	if s.config.WebDir != "" {
		staticDir := filepath.Join(s.config.WebDir, "static")
		s.mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(staticDir))))
	}

	s.mux.HandleFunc("/", s.handleRoot)
}

// handleRoot serves the app shell: web/index.html when a web dir is
// configured, otherwise a minimal embedded shell that wires up Datastar.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if s.config.WebDir != "" {
		index := filepath.Join(s.config.WebDir, "index.html")
		if _, err := http.Dir(s.config.WebDir).Open("index.html"); err == nil {
			http.ServeFile(w, r, index)
			return
		}
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(indexShell))
}

const indexShell = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>plat-geochat</title>
  <script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@v1.0.0/bundles/datastar.js"></script>
</head>
<body data-on-load="@get('/events')">
  <header>
    <h1>plat-geochat</h1>
    <span id="connection-status"></span>
  </header>
  <main>
    <section id="chat">
      <div id="chat-log"></div>
      <form data-on-submit="@post('/ui/chat'); evt.preventDefault()">
        <input type="text" name="message" data-bind-message placeholder="Ask about air quality, NDVI, floods...">
        <button type="submit" data-attr-disabled="$loading">Send</button>
      </form>
    </section>
    <section id="map"></section>
    <aside>
      <select id="basemap-select" data-on-change="@post('/api/session/basemap/' + evt.target.value)"></select>
      <div id="layer-list"></div>
      <div id="chart-panel"></div>
    </aside>
  </main>
</body>
</html>
`
