// Package render turns abstract layer descriptors into concrete map
// primitives. Style fallbacks live in one default table per layer type,
// applied once when a layer is ingested, so the dispatcher itself never
// branches on field presence.
package render

import (
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/joeblew999/plat-geochat/internal/session"
)

// accentColor is the fallback fill/outline color shared by vector types.
const accentColor = "#00d4aa"

// heatRamp is the 5-stop density color ramp for heatmap layers.
var heatRamp = []any{
	"interpolate", []any{"linear"}, []any{"heatmap-density"},
	0.0, "rgba(0, 0, 0, 0)",
	0.25, "#00d4aa",
	0.5, "#ffea00",
	0.75, "#ff8c00",
	1.0, "#ff2d00",
}

// paintDefaults maps each layer type to the paint keys filled in when the
// descriptor leaves them unset.
var paintDefaults = map[session.LayerType]map[string]any{
	session.LayerGeoJSON: {
		"fill-color":         accentColor,
		"fill-opacity":       0.3,
		"fill-outline-color": accentColor,
	},
	session.LayerCircle: {
		"circle-radius":       8.0,
		"circle-color":        accentColor,
		"circle-opacity":      1.0,
		"circle-stroke-width": 2.0,
		"circle-stroke-color": "#ffffff",
	},
	session.LayerHeatmap: {
		"heatmap-radius": 20.0,
		"heatmap-color":  heatRamp,
	},
	session.LayerFillExtrusion: {
		"fill-extrusion-color":   accentColor,
		"fill-extrusion-height":  []any{"get", "height"},
		"fill-extrusion-base":    0.0,
		"fill-extrusion-opacity": 0.8,
	},
	session.LayerLine: {
		"line-color":     accentColor,
		"line-width":     3.0,
		"line-dasharray": []any{1.0, 0.0},
	},
	session.LayerRaster: {
		"raster-opacity": 1.0,
	},
}

// Normalize validates a layer descriptor and applies the default table
// for its type. Unknown type tags are rejected here, at ingestion, rather
// than flowing through to the dispatcher.
func Normalize(l session.Layer) (session.Layer, error) {
	err := validation.ValidateStruct(&l,
		validation.Field(&l.ID, validation.Required),
		validation.Field(&l.Opacity, validation.Min(0.0), validation.Max(1.0)),
	)
	if err != nil {
		return session.Layer{}, fmt.Errorf("layer %q: %w", l.ID, err)
	}
	if !l.Type.Valid() {
		return session.Layer{}, fmt.Errorf("layer %q: unknown type %q", l.ID, l.Type)
	}

	defaults, ok := paintDefaults[l.Type]
	if !ok {
		// vector-tile, 3d-terrain and deck pass their paint through as-is.
		return l, nil
	}
	paint := make(map[string]any, len(defaults)+len(l.Paint))
	for k, v := range defaults {
		paint[k] = v
	}
	for k, v := range l.Paint {
		paint[k] = v
	}
	l.Paint = paint
	return l, nil
}
