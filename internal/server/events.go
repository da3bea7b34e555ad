package server

import (
	"context"
	"strings"
	"sync"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-geochat/internal/backend"
	"github.com/joeblew999/plat-geochat/internal/humastar"
	"github.com/joeblew999/plat-geochat/internal/mapview"
	"github.com/joeblew999/plat-geochat/internal/render"
	"github.com/joeblew999/plat-geochat/internal/session"
)

// Browser CustomEvent names the map widget listens for.
const (
	eventFlyTo      = "geochat:flyto"
	eventFitBounds  = "geochat:fitbounds"
	eventPrimitives = "geochat:primitives"
	eventBasemap    = "geochat:basemap"
)

// eventHub fans camera commands and rendered primitives out to every open
// SSE connection. It is the single [mapview.Engine] behind the surface, so
// a queued action is consumed once no matter how many browsers watch.
type eventHub struct {
	mu     sync.Mutex
	conns  map[*hubConn]struct{}
	logger *zap.Logger

	// last rendered primitives, replayed to newly attached connections
	primitives []render.Primitive
}

// eventSink receives DOM CustomEvents for one browser. humastar.SSE is the
// production implementation.
type eventSink interface {
	DispatchCustomEvent(name string, detail any)
}

type hubConn struct {
	sink eventSink
}

func newEventHub(logger *zap.Logger) *eventHub {
	return &eventHub{conns: make(map[*hubConn]struct{}), logger: logger}
}

// attach registers an SSE connection and replays the current primitives so
// a late joiner sees the layers already on the map. Camera actions are not
// replayed.
func (h *eventHub) attach(sink eventSink) *hubConn {
	c := &hubConn{sink: sink}
	h.mu.Lock()
	h.conns[c] = struct{}{}
	n := len(h.conns)
	replay := h.primitives
	h.mu.Unlock()
	h.logger.Debug("event stream attached", zap.Int("connections", n))
	if replay != nil {
		sink.DispatchCustomEvent(eventPrimitives, replay)
	}
	return c
}

func (h *eventHub) detach(c *hubConn) {
	h.mu.Lock()
	delete(h.conns, c)
	n := len(h.conns)
	h.mu.Unlock()
	h.logger.Debug("event stream detached", zap.Int("connections", n))
}

// broadcast snapshots the connection set under the lock and writes outside
// it, so one stalled client cannot block attach, detach, or state updates.
func (h *eventHub) broadcast(name string, detail any) {
	h.mu.Lock()
	conns := make([]*hubConn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()
	for _, c := range conns {
		c.sink.DispatchCustomEvent(name, detail)
	}
}

// FlyTo implements mapview.Engine.
func (h *eventHub) FlyTo(cmd mapview.FlyToCommand) {
	h.broadcast(eventFlyTo, map[string]any{
		"center":   []float64{cmd.Center[0], cmd.Center[1]},
		"zoom":     cmd.Zoom,
		"pitch":    cmd.Pitch,
		"bearing":  cmd.Bearing,
		"duration": cmd.Duration.Milliseconds(),
	})
}

// FitBounds implements mapview.Engine.
func (h *eventHub) FitBounds(cmd mapview.FitBoundsCommand) {
	h.broadcast(eventFitBounds, map[string]any{
		"bounds": [][]float64{
			{cmd.Bounds.Min[0], cmd.Bounds.Min[1]},
			{cmd.Bounds.Max[0], cmd.Bounds.Max[1]},
		},
		"padding":  cmd.Padding,
		"duration": cmd.Duration.Milliseconds(),
	})
}

// ApplyPrimitives implements mapview.Engine.
func (h *eventHub) ApplyPrimitives(primitives []render.Primitive) {
	h.mu.Lock()
	h.primitives = primitives
	h.mu.Unlock()
	h.broadcast(eventPrimitives, primitives)
}

// eventsHandler streams session state to the browser over Datastar SSE.
type eventsHandler struct {
	humastar.Handler
	store      *session.Store
	bus        *session.Bus
	hub        *eventHub
	dispatcher *session.Dispatcher
	catalog    func(context.Context) []backend.Basemap
}

// RegisterEvents registers the SSE event stream route.
func (h *eventsHandler) RegisterEvents(api huma.API) {
	huma.Get(api, "/events", h.Events,
		huma.OperationTags("events"))
}

// RegisterChatSignals registers the Datastar-native chat route. The page form
// posts its signals here and the reply rides the SSE protocol.
func (h *eventsHandler) RegisterChatSignals(api huma.API) {
	huma.Post(api, "/ui/chat", h.ChatSignals,
		huma.OperationTags("chat"))
}

// ChatSignals reads the message signal, dispatches it, and reports the
// outcome back as signals.
func (h *eventsHandler) ChatSignals(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	message := strings.TrimSpace(signals.String("message"))
	return h.Stream(func(sse humastar.SSE) {
		if message == "" {
			sse.Error("Type a message first")
			return
		}
		// clear the input box before the (possibly slow) round trip
		sse.Signals(map[string]any{"message": ""})
		h.dispatcher.Send(sse.Context(), message)
		sse.Success("response received")
	}), nil
}

// Events is the long-lived SSE stream. It pushes the full panel state on
// connect, then patches panels as bus events arrive.
func (h *eventsHandler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		conn := h.hub.attach(sse)
		defer h.hub.detach(conn)

		ch := h.bus.Subscribe(
			session.SliceMessages, session.SliceLayers, session.SliceChart,
			session.SliceLoading, session.SliceBasemap, session.SliceConnection,
		)
		defer h.bus.Unsubscribe(ch)

		h.patchMessages(sse)
		h.patchLayers(sse)
		h.patchChart(sse)
		h.patchStatus(sse)
		h.patchBasemapOptions(sse)
		sse.DispatchCustomEvent(eventBasemap, h.store.Basemap())

		done := sse.Context().Done()
		for {
			select {
			case <-done:
				return
			case ev := <-ch:
				switch ev.Slice {
				case session.SliceMessages:
					h.patchMessages(sse)
				case session.SliceLayers:
					h.patchLayers(sse)
				case session.SliceChart:
					h.patchChart(sse)
				case session.SliceLoading, session.SliceConnection:
					h.patchStatus(sse)
				case session.SliceBasemap:
					sse.DispatchCustomEvent(eventBasemap, h.store.Basemap())
				}
			}
		}
	}), nil
}

func (h *eventsHandler) patchMessages(sse humastar.SSE) {
	msgs := h.store.Messages()
	items := make([]any, len(msgs))
	for i, m := range msgs {
		items[i] = m
	}
	sse.Patch(h.RenderList("chat-message", items,
		"No messages", "Ask about a dataset to get started"), "#chat-log")
}

func (h *eventsHandler) patchLayers(sse humastar.SSE) {
	layers := h.store.Layers()
	items := make([]any, len(layers))
	for i, l := range layers {
		items[i] = l
	}
	sse.Patch(h.RenderList("layer-card", items,
		"No layers", "Layers appear here when an analysis adds them"), "#layer-list")
}

func (h *eventsHandler) patchChart(sse humastar.SSE) {
	chart := h.store.Chart()
	if chart == nil {
		sse.Patch(h.Renderer.MustRender("empty-state", map[string]string{
			"Title":   "No chart",
			"Message": "Charts from analyses show up here",
		}), "#chart-panel")
		return
	}
	sse.Patch(h.Renderer.MustRender("chart-panel", chart), "#chart-panel")
	// chart data rides a signal so the client chart library can redraw
	sse.Signals(map[string]any{"chart": chart})
}

func (h *eventsHandler) patchStatus(sse humastar.SSE) {
	sse.Replace(h.Renderer.MustRender("connection-badge", map[string]any{
		"Connected": h.store.Connected(),
	}), "#connection-status")
	sse.Signals(map[string]any{"loading": h.store.IsLoading()})
}

// patchBasemapOptions fills the basemap selector from the backend catalog,
// falling back to the built-in styles when it is unreachable.
func (h *eventsHandler) patchBasemapOptions(sse humastar.SSE) {
	catalog := h.catalog(sse.Context())
	options := make([]humastar.SelectOptionData, 0, len(catalog))
	for _, b := range catalog {
		options = append(options, humastar.SelectOptionData{Value: b.ID, Label: b.Name})
	}
	sse.Patch(h.RenderSelect("Basemap…", options), "#basemap-select")
}
