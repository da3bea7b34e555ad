package render

import "github.com/joeblew999/plat-geochat/internal/session"

// Kind names a concrete render primitive.
type Kind string

const (
	KindFill          Kind = "fill"
	KindLine          Kind = "line"
	KindCircle        Kind = "circle"
	KindSymbol        Kind = "symbol"
	KindHeatmap       Kind = "heatmap"
	KindFillExtrusion Kind = "fill-extrusion"
	KindRaster        Kind = "raster"
	KindVector        Kind = "vector"
	KindTerrain       Kind = "terrain"
	KindDeck          Kind = "deck"
)

// Primitive is one concrete map engine layer derived from a descriptor.
type Primitive struct {
	ID     string         `json:"id"`
	Kind   Kind           `json:"kind"`
	Source map[string]any `json:"source,omitempty"`
	Paint  map[string]any `json:"paint,omitempty"`
	Layout map[string]any `json:"layout,omitempty"`
}

// Primitives derives the render primitives for one layer. An invisible
// layer produces nothing — the whole layer is excluded before any paint
// is computed. The switch is exhaustive over the layer type vocabulary;
// Normalize rejects anything else at ingestion.
func Primitives(l session.Layer) []Primitive {
	if !l.Visible {
		return nil
	}
	switch l.Type {
	case session.LayerGeoJSON:
		fill := clonePaint(l.Paint)
		fill["fill-opacity"] = paintFloat(l.Paint, "fill-opacity") * l.Opacity
		// The outline opacity tracks the layer opacity directly instead of
		// scaling a base outline alpha.
		return []Primitive{
			{ID: l.ID + "-fill", Kind: KindFill, Source: l.Source, Paint: fill},
			{ID: l.ID + "-outline", Kind: KindLine, Source: l.Source, Paint: map[string]any{
				"line-color":   l.Paint["fill-outline-color"],
				"line-width":   1.0,
				"line-opacity": l.Opacity,
			}},
		}
	case session.LayerCircle:
		circle := clonePaint(l.Paint)
		circle["circle-opacity"] = paintFloat(l.Paint, "circle-opacity") * l.Opacity
		return []Primitive{
			{ID: l.ID + "-circle", Kind: KindCircle, Source: l.Source, Paint: circle},
			{ID: l.ID + "-label", Kind: KindSymbol, Source: l.Source,
				Layout: map[string]any{
					"text-field":  []any{"get", "name"},
					"text-size":   11.0,
					"text-offset": []any{0.0, 1.4},
				},
				Paint: map[string]any{
					"text-color":   "#ffffff",
					"text-opacity": l.Opacity,
				}},
		}
	case session.LayerHeatmap:
		heat := clonePaint(l.Paint)
		heat["heatmap-opacity"] = l.Opacity
		return []Primitive{{ID: l.ID + "-heat", Kind: KindHeatmap, Source: l.Source, Paint: heat}}
	case session.LayerFillExtrusion:
		ext := clonePaint(l.Paint)
		ext["fill-extrusion-opacity"] = paintFloat(l.Paint, "fill-extrusion-opacity") * l.Opacity
		return []Primitive{{ID: l.ID + "-extrusion", Kind: KindFillExtrusion, Source: l.Source, Paint: ext}}
	case session.LayerLine:
		line := clonePaint(l.Paint)
		line["line-opacity"] = l.Opacity
		return []Primitive{{ID: l.ID + "-line", Kind: KindLine, Source: l.Source, Paint: line}}
	case session.LayerRaster:
		raster := clonePaint(l.Paint)
		raster["raster-opacity"] = paintFloat(l.Paint, "raster-opacity") * l.Opacity
		return []Primitive{{ID: l.ID + "-raster", Kind: KindRaster, Source: l.Source, Paint: raster}}
	case session.LayerVectorTile:
		return []Primitive{{ID: l.ID + "-vector", Kind: KindVector, Source: l.Source, Paint: l.Paint}}
	case session.LayerTerrain:
		return []Primitive{{ID: l.ID + "-terrain", Kind: KindTerrain, Source: l.Source, Paint: l.Paint}}
	case session.LayerDeck:
		return []Primitive{{ID: l.ID + "-deck", Kind: KindDeck, Source: l.Source, Paint: l.Paint}}
	}
	return nil
}

// PrimitivesFor flattens the primitives of every visible layer,
// preserving render order.
func PrimitivesFor(layers []session.Layer) []Primitive {
	var out []Primitive
	for _, l := range layers {
		out = append(out, Primitives(l)...)
	}
	return out
}

func clonePaint(paint map[string]any) map[string]any {
	out := make(map[string]any, len(paint))
	for k, v := range paint {
		out[k] = v
	}
	return out
}

// paintFloat reads a numeric paint value filled in by Normalize.
func paintFloat(paint map[string]any, key string) float64 {
	switch v := paint[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 1
}
