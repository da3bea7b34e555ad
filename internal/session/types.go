// Package session contains the central state container for a geospatial
// chat session: map view state, the ordered layer list, the chat message
// log, the single-slot map action queue, and chart payload.
package session

import (
	"time"

	"github.com/paulmach/orb"
)

// ViewState is the map camera state.
type ViewState struct {
	Longitude float64 `json:"longitude" doc:"Center longitude" example:"67.0"`
	Latitude  float64 `json:"latitude" doc:"Center latitude" example:"48.0"`
	Zoom      float64 `json:"zoom" minimum:"0" doc:"Zoom level" example:"4"`
	Pitch     float64 `json:"pitch" doc:"Camera pitch in degrees"`
	Bearing   float64 `json:"bearing" doc:"Camera bearing in degrees"`
}

// ViewStatePatch is a partial view state update. Nil fields are left
// unchanged by Store.SetViewState.
type ViewStatePatch struct {
	Longitude *float64 `json:"longitude,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Zoom      *float64 `json:"zoom,omitempty"`
	Pitch     *float64 `json:"pitch,omitempty"`
	Bearing   *float64 `json:"bearing,omitempty"`
}

// LayerType is the fixed vocabulary of renderable layer kinds.
type LayerType string

const (
	LayerGeoJSON       LayerType = "geojson"
	LayerRaster        LayerType = "raster"
	LayerVectorTile    LayerType = "vector-tile"
	LayerTerrain       LayerType = "3d-terrain"
	LayerDeck          LayerType = "deck"
	LayerFillExtrusion LayerType = "fill-extrusion"
	LayerHeatmap       LayerType = "heatmap"
	LayerCircle        LayerType = "circle"
	LayerLine          LayerType = "line"
)

// LayerTypes lists every known layer type tag.
var LayerTypes = []LayerType{
	LayerGeoJSON, LayerRaster, LayerVectorTile, LayerTerrain, LayerDeck,
	LayerFillExtrusion, LayerHeatmap, LayerCircle, LayerLine,
}

// Valid reports whether t is a known layer type tag.
func (t LayerType) Valid() bool {
	for _, known := range LayerTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Layer is a declarative descriptor for one renderable map feature set.
// Layers are stored in insertion order; the most recently (re-)inserted
// id renders on top.
type Layer struct {
	ID      string         `json:"id" doc:"Unique layer identifier" example:"air-quality"`
	Type    LayerType      `json:"type" doc:"Layer type tag" example:"circle"`
	Visible bool           `json:"visible" doc:"Whether the layer is rendered"`
	Opacity float64        `json:"opacity" minimum:"0" maximum:"1" doc:"Layer opacity"`
	Source  map[string]any `json:"source,omitempty" doc:"Opaque source payload"`
	Paint   map[string]any `json:"paint,omitempty" doc:"Style overrides"`
}

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatMessage is one entry in the append-only chat log. Once appended a
// message is never mutated.
type ChatMessage struct {
	ID        string     `json:"id"`
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Timestamp time.Time  `json:"timestamp"`
	Code      string     `json:"code,omitempty"`
	Layers    []Layer    `json:"layers,omitempty"`
	Chart     *ChartData `json:"chart,omitempty"`
	Action    *MapAction `json:"action,omitempty"`
}

// ActionType discriminates the map action variants.
type ActionType string

const (
	ActionFlyTo     ActionType = "flyTo"
	ActionFitBounds ActionType = "fitBounds"
)

// MapAction is a one-shot imperative camera command. At most one pending
// action exists at any time; each is consumed exactly once then cleared.
// Optional fields are pointers so the map surface can tell "unset" from
// zero when applying fallbacks.
type MapAction struct {
	Type     ActionType  `json:"type"`
	Center   []float64   `json:"center,omitempty"` // [lng, lat]
	Zoom     *float64    `json:"zoom,omitempty"`
	Pitch    *float64    `json:"pitch,omitempty"`
	Bearing  *float64    `json:"bearing,omitempty"`
	Bounds   [][]float64 `json:"bounds,omitempty"` // [[west, south], [east, north]]
	Padding  *float64    `json:"padding,omitempty"`
	Duration *int        `json:"duration,omitempty"` // milliseconds
}

// ChartData is an opaque chart payload, replaced wholesale on each
// response that carries one.
type ChartData struct {
	Type  string         `json:"type" example:"bar"`
	Title string         `json:"title,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// MapBounds is the viewport sent with chat requests.
type MapBounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Bound converts to an orb bound (min = southwest, max = northeast).
func (b MapBounds) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.West, b.South},
		Max: orb.Point{b.East, b.North},
	}
}

// BoundsFrom builds MapBounds from an orb bound.
func BoundsFrom(b orb.Bound) MapBounds {
	return MapBounds{
		North: b.Max.Lat(),
		South: b.Min.Lat(),
		East:  b.Max.Lon(),
		West:  b.Min.Lon(),
	}
}

// Response is a decoded, validated answer from the query backend. Layers
// are nil when the response carried no layer payload at all; an empty
// non-nil slice means "replace with nothing" and clears the layer list.
type Response struct {
	Message string
	Code    string
	Layers  []Layer
	Chart   *ChartData
	Action  *MapAction
	Data    map[string]any
}
