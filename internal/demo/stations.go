package demo

import (
	"database/sql"
	"fmt"

	"github.com/paulmach/orb"
)

// Station is one air quality monitoring station.
type Station struct {
	ID        string
	Name      string
	City      string
	Kind      string // urban, mountain, industrial, heavy_industrial, coastal
	Lon       float64
	Lat       float64
	Elevation int
	BaseAQI   int
}

// Point returns the station location.
func (s Station) Point() orb.Point {
	return orb.Point{s.Lon, s.Lat}
}

// seedStations is the Kazakhstan monitoring network used in demo mode.
var seedStations = []Station{
	{"almaty_center", "Almaty Center", "Almaty", "urban", 76.9458, 43.2220, 800, 65},
	{"almaty_medeu", "Almaty Medeu", "Almaty", "mountain", 77.0565, 43.1575, 1691, 25},
	{"astana_center", "Astana Center", "Astana", "urban", 71.4491, 51.1801, 350, 65},
	{"atyrau_industrial", "Atyrau Industrial", "Atyrau", "industrial", 51.9200, 46.8500, -22, 95},
	{"aktau_port", "Aktau Port", "Aktau", "coastal", 51.1667, 43.6500, -22, 45},
	{"karaganda_industrial", "Karaganda Industrial", "Karaganda", "industrial", 73.1022, 49.8047, 550, 95},
	{"temirtau_metallurgical", "Temirtau Metallurgical", "Temirtau", "heavy_industrial", 72.9589, 50.0547, 400, 130},
	{"shymkent_center", "Shymkent Center", "Shymkent", "urban", 69.5958, 42.3417, 510, 65},
}

// EnsureStations creates and seeds the station table if needed.
func EnsureStations(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS air_stations (
			id VARCHAR PRIMARY KEY,
			name VARCHAR NOT NULL,
			city VARCHAR NOT NULL,
			kind VARCHAR NOT NULL,
			lon DOUBLE NOT NULL,
			lat DOUBLE NOT NULL,
			elevation INTEGER NOT NULL,
			base_aqi INTEGER NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("create air_stations: %w", err)
	}

	var count int
	if err := conn.QueryRow(`SELECT count(*) FROM air_stations`).Scan(&count); err != nil {
		return fmt.Errorf("count air_stations: %w", err)
	}
	if count > 0 {
		return nil
	}

	for _, s := range seedStations {
		_, err := conn.Exec(
			`INSERT INTO air_stations (id, name, city, kind, lon, lat, elevation, base_aqi)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ID, s.Name, s.City, s.Kind, s.Lon, s.Lat, s.Elevation, s.BaseAQI)
		if err != nil {
			return fmt.Errorf("seed station %s: %w", s.ID, err)
		}
	}
	return nil
}

// Stations returns all stations, or only those inside bound when it is
// non-empty.
func Stations(conn *sql.DB, bound *orb.Bound) ([]Station, error) {
	query := `SELECT id, name, city, kind, lon, lat, elevation, base_aqi
	          FROM air_stations ORDER BY id`
	args := []any{}
	if bound != nil && !bound.IsEmpty() {
		query = `SELECT id, name, city, kind, lon, lat, elevation, base_aqi
		         FROM air_stations
		         WHERE lon BETWEEN ? AND ? AND lat BETWEEN ? AND ?
		         ORDER BY id`
		args = []any{bound.Min.Lon(), bound.Max.Lon(), bound.Min.Lat(), bound.Max.Lat()}
	}

	rows, err := conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query air_stations: %w", err)
	}
	defer rows.Close()

	var stations []Station
	for rows.Next() {
		var s Station
		if err := rows.Scan(&s.ID, &s.Name, &s.City, &s.Kind, &s.Lon, &s.Lat, &s.Elevation, &s.BaseAQI); err != nil {
			return nil, fmt.Errorf("scan station: %w", err)
		}
		stations = append(stations, s)
	}
	return stations, rows.Err()
}

// StationBound returns the bound covering all stations.
func StationBound(stations []Station) orb.Bound {
	var bound orb.Bound
	for i, s := range stations {
		if i == 0 {
			bound = orb.Bound{Min: s.Point(), Max: s.Point()}
			continue
		}
		bound = bound.Extend(s.Point())
	}
	return bound
}

// aqiCategory maps an AQI value to its EPA category name and color.
func aqiCategory(aqi int) (string, string) {
	switch {
	case aqi <= 50:
		return "Good", "#00e400"
	case aqi <= 100:
		return "Moderate", "#ffff00"
	case aqi <= 150:
		return "Unhealthy for Sensitive Groups", "#ff7e00"
	case aqi <= 200:
		return "Unhealthy", "#ff0000"
	case aqi <= 300:
		return "Very Unhealthy", "#8f3f97"
	default:
		return "Hazardous", "#7e0023"
	}
}
