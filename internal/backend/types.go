// Package backend is the HTTP client for the query-answering backend:
// the chat operation, the liveness probe, the basemap catalog, the report
// endpoint, and the optional realtime push channel.
package backend

import (
	"go.uber.org/zap"

	"github.com/joeblew999/plat-geochat/internal/render"
	"github.com/joeblew999/plat-geochat/internal/session"
)

// ChatRequest is the chat operation request payload.
type ChatRequest struct {
	Query     string             `json:"query"`
	Context   map[string]any     `json:"context,omitempty"`
	MapBounds *session.MapBounds `json:"map_bounds,omitempty"`
}

// WireLayer is the layer shape on the wire: visibility and opacity are
// client-side concerns filled at ingestion.
type WireLayer struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Source map[string]any `json:"source,omitempty"`
	Paint  map[string]any `json:"paint,omitempty"`
}

// ChatResponse is the chat operation response payload.
type ChatResponse struct {
	Message   string             `json:"message"`
	Status    string             `json:"status"`
	MapLayers []WireLayer        `json:"map_layers,omitempty"`
	MapAction *session.MapAction `json:"map_action,omitempty"`
	Chart     *session.ChartData `json:"chart,omitempty"`
	Code      string             `json:"code,omitempty"`
	Data      map[string]any     `json:"data,omitempty"`
}

// Basemap is one entry of the basemap catalog.
type Basemap struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URL         string `json:"url"`
	Type        string `json:"type"`
	Attribution string `json:"attribution,omitempty"`
}

// decode converts a wire response into a validated session response.
// Layers with unknown type tags are rejected here and dropped; optional
// fields that are absent are simply skipped.
func decode(cr *ChatResponse, logger *zap.Logger) *session.Response {
	resp := &session.Response{
		Message: cr.Message,
		Code:    cr.Code,
		Chart:   cr.Chart,
		Action:  cr.MapAction,
		Data:    cr.Data,
	}
	if cr.Status == "error" {
		// An explicit backend error carries a message but no payloads.
		return &session.Response{Message: cr.Message}
	}
	if cr.MapLayers != nil {
		resp.Layers = make([]session.Layer, 0, len(cr.MapLayers))
		for _, wl := range cr.MapLayers {
			layer, err := render.Normalize(session.Layer{
				ID:      wl.ID,
				Type:    session.LayerType(wl.Type),
				Visible: true,
				Opacity: 1,
				Source:  wl.Source,
				Paint:   wl.Paint,
			})
			if err != nil {
				logger.Warn("dropping invalid layer", zap.String("id", wl.ID), zap.Error(err))
				continue
			}
			resp.Layers = append(resp.Layers, layer)
		}
	}
	return resp
}
