// Package demo is the local query responder used when no backend is
// configured. It reproduces the backend's demo behavior: keyword-routed
// canned analyses over a small DuckDB-backed dataset.
package demo

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/joeblew999/plat-geochat/internal/render"
	"github.com/joeblew999/plat-geochat/internal/session"
)

// Agent answers chat queries locally. It implements session.Responder.
type Agent struct {
	conn   *sql.DB
	logger *zap.Logger
}

// NewAgent creates a demo agent over conn, seeding the station table.
func NewAgent(conn *sql.DB, logger *zap.Logger) (*Agent, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := EnsureStations(conn); err != nil {
		return nil, err
	}
	return &Agent{conn: conn, logger: logger}, nil
}

// Chat routes the query by keyword and builds a canned analysis.
func (a *Agent) Chat(ctx context.Context, query string, bounds *session.MapBounds) (*session.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	switch {
	case containsAny(q, "air quality", "aqi", "pollution", "station"):
		return a.airQuality(bounds)
	case containsAny(q, "heat", "temperature"):
		return a.temperature()
	case containsAny(q, "kazakhstan", "astana", "almaty"):
		return a.kazakhstan()
	case containsAny(q, "ndvi", "vegetation"):
		return a.ndvi()
	case containsAny(q, "flood", "water"):
		return a.flood()
	default:
		return a.capabilities(query), nil
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func (a *Agent) airQuality(bounds *session.MapBounds) (*session.Response, error) {
	var bound *orb.Bound
	if bounds != nil {
		b := bounds.Bound()
		bound = &b
	}
	stations, err := Stations(a.conn, bound)
	if err != nil {
		return nil, err
	}
	if len(stations) == 0 {
		// Viewport misses the network entirely; answer with everything.
		if stations, err = Stations(a.conn, nil); err != nil {
			return nil, err
		}
	}

	fc := geojson.NewFeatureCollection()
	labels := make([]any, 0, len(stations))
	values := make([]any, 0, len(stations))
	for _, s := range stations {
		aqi := s.BaseAQI + rand.Intn(31) - 15
		if aqi < 0 {
			aqi = 0
		}
		category, color := aqiCategory(aqi)
		f := geojson.NewFeature(s.Point())
		f.Properties = geojson.Properties{
			"id":           s.ID,
			"name":         s.Name,
			"city":         s.City,
			"station_type": s.Kind,
			"elevation":    s.Elevation,
			"aqi":          aqi,
			"category":     category,
			"color":        color,
		}
		fc.Append(f)
		labels = append(labels, s.Name)
		values = append(values, aqi)
	}

	layer, err := render.Normalize(session.Layer{
		ID:      "air-quality-stations",
		Type:    session.LayerCircle,
		Visible: true,
		Opacity: 1,
		Source:  map[string]any{"type": "geojson", "data": fc},
		Paint:   map[string]any{"circle-color": []any{"get", "color"}},
	})
	if err != nil {
		return nil, err
	}

	fit := StationBound(stations)
	return &session.Response{
		Message: fmt.Sprintf("Live air quality from %d monitoring stations. "+
			"Circle colors follow the EPA AQI scale; click a station for its readings.",
			len(stations)),
		Layers: []session.Layer{layer},
		Chart: &session.ChartData{
			Type:  "bar",
			Title: "Air Quality Index by Station",
			Data:  map[string]any{"labels": labels, "values": values},
		},
		Action: &session.MapAction{
			Type: session.ActionFitBounds,
			Bounds: [][]float64{
				{fit.Min.Lon(), fit.Min.Lat()},
				{fit.Max.Lon(), fit.Max.Lat()},
			},
		},
	}, nil
}

func (a *Agent) temperature() (*session.Response, error) {
	stations, err := Stations(a.conn, nil)
	if err != nil {
		return nil, err
	}

	fc := geojson.NewFeatureCollection()
	for _, s := range stations {
		f := geojson.NewFeature(s.Point())
		f.Properties = geojson.Properties{
			"name":      s.Name,
			"intensity": float64(s.BaseAQI) / 130.0,
		}
		fc.Append(f)
	}

	layer, err := render.Normalize(session.Layer{
		ID:      "surface-temperature",
		Type:    session.LayerHeatmap,
		Visible: true,
		Opacity: 0.9,
		Source:  map[string]any{"type": "geojson", "data": fc},
	})
	if err != nil {
		return nil, err
	}

	return &session.Response{
		Message: "Surface temperature anomaly rendered as a density surface. " +
			"Hot spots concentrate around industrial corridors.",
		Layers: []session.Layer{layer},
	}, nil
}

// kazakhstanBoundary is the simplified country envelope used by the demo.
var kazakhstanBoundary = orb.Polygon{{
	{46.5, 40.5}, {87.3, 40.5}, {87.3, 55.4}, {46.5, 55.4}, {46.5, 40.5},
}}

func (a *Agent) kazakhstan() (*session.Response, error) {
	f := geojson.NewFeature(kazakhstanBoundary)
	f.Properties = geojson.Properties{"name": "Kazakhstan", "admin": "KZ"}

	layer, err := render.Normalize(session.Layer{
		ID:      "kazakhstan-boundary",
		Type:    session.LayerGeoJSON,
		Visible: true,
		Opacity: 1,
		Source:  map[string]any{"type": "geojson", "data": f},
		Paint: map[string]any{
			"fill-color":         "#00ff88",
			"fill-opacity":       0.2,
			"fill-outline-color": "#00ff88",
		},
	})
	if err != nil {
		return nil, err
	}

	zoom := 4.0
	return &session.Response{
		Message: "Analyzing the Kazakhstan region. Displaying administrative " +
			"boundaries and satellite imagery.",
		Layers: []session.Layer{layer},
		Action: &session.MapAction{
			Type:   session.ActionFlyTo,
			Center: []float64{67.0, 48.0},
			Zoom:   &zoom,
		},
		Data: map[string]any{
			"country":    "Kazakhstan",
			"capital":    "Astana",
			"area_km2":   2724900,
			"population": 19398000,
		},
	}, nil
}

func (a *Agent) ndvi() (*session.Response, error) {
	layer, err := render.Normalize(session.Layer{
		ID:      "ndvi-layer",
		Type:    session.LayerRaster,
		Visible: true,
		Opacity: 1,
		Source: map[string]any{
			"type":     "raster",
			"tiles":    []any{"https://tiles.planet.com/basemaps/v1/planet-tiles/global_monthly_2024_01_mosaic/gmap/{z}/{x}/{y}.png"},
			"tileSize": 256,
		},
	})
	if err != nil {
		return nil, err
	}

	return &session.Response{
		Message: "Calculating NDVI (Normalized Difference Vegetation Index). " +
			"Higher values indicate healthy vegetation.",
		Layers: []session.Layer{layer},
		Code: `ndvi = (nir - red) / (nir + red)
m.add_raster(ndvi, colormap="RdYlGn", layer_name="NDVI")`,
		Chart: &session.ChartData{
			Type:  "range",
			Title: "NDVI",
			Data:  map[string]any{"colormap": "RdYlGn", "range": []any{-1, 1}},
		},
	}, nil
}

func (a *Agent) flood() (*session.Response, error) {
	layer, err := render.Normalize(session.Layer{
		ID:      "water-layer",
		Type:    session.LayerGeoJSON,
		Visible: true,
		Opacity: 1,
		Source: map[string]any{
			"type": "geojson",
			"data": geojson.NewFeatureCollection(),
		},
		Paint: map[string]any{
			"fill-color":   "#0066ff",
			"fill-opacity": 0.6,
		},
	})
	if err != nil {
		return nil, err
	}

	return &session.Response{
		Message: "Analyzing water bodies and potential flood areas using SAR " +
			"imagery analysis.",
		Layers: []session.Layer{layer},
	}, nil
}

func (a *Agent) capabilities(query string) *session.Response {
	return &session.Response{
		Message: fmt.Sprintf("Processing your query: %q. I can help with:\n\n"+
			"• Satellite imagery analysis (NDVI, land cover)\n"+
			"• Flood and water body detection\n"+
			"• Air quality monitoring\n"+
			"• Terrain analysis\n"+
			"• Geographic data visualization\n\n"+
			"Try asking about a specific region like Kazakhstan!", query),
	}
}
