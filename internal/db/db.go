package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog/log"

	"campus-shuttle/internal/geo"
	"campus-shuttle/internal/transit"
)

func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func Ping(ctx context.Context, db *sql.DB) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

// PingWithRetry pings with exponential backoff until maxElapsed has passed.
func PingWithRetry(ctx context.Context, db *sql.DB, maxElapsed time.Duration) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = maxElapsed
	return backoff.RetryNotify(func() error {
		return Ping(ctx, db)
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		log.Warn().Err(err).Dur("retry_in", next).Msg("database ping failed")
	})
}

// Provider loads static data from Postgres.
type Provider struct {
	DB *sql.DB
}

func (p *Provider) Load(ctx context.Context) (*transit.StaticData, error) {
	stops, err := FetchStops(ctx, p.DB)
	if err != nil {
		return nil, err
	}
	routes, err := FetchRoutes(ctx, p.DB)
	if err != nil {
		return nil, err
	}
	locations, err := FetchLocations(ctx, p.DB)
	if err != nil {
		return nil, err
	}
	geoms, err := FetchRouteGeometries(ctx, p.DB)
	if err != nil {
		return nil, err
	}
	return &transit.StaticData{Stops: stops, Routes: routes, Locations: locations, RouteGeometries: geoms}, nil
}

func FetchStops(ctx context.Context, db *sql.DB) ([]transit.Stop, error) {
	// Prefer stop_lat/stop_lon, but support PostGIS stop_loc geography as fallback
	cols, err := hasColumns(ctx, db, "public", "stops", "stop_lat", "stop_lon", "stop_loc")
	if err != nil {
		return nil, fmt.Errorf("introspect stops columns: %w", err)
	}
	var q string
	switch {
	case cols["stop_lat"] && cols["stop_lon"]:
		q = `SELECT stop_id, COALESCE(stop_name, ''), stop_lat, stop_lon FROM stops ORDER BY stop_id`
	case cols["stop_loc"]:
		q = `SELECT stop_id, COALESCE(stop_name, ''), ST_Y(stop_loc::geometry), ST_X(stop_loc::geometry) FROM stops ORDER BY stop_id`
	default:
		return nil, fmt.Errorf("stops table missing expected columns (stop_lat/lon or stop_loc)")
	}
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query stops: %w", err)
	}
	defer rows.Close()
	var stops []transit.Stop
	for rows.Next() {
		var s transit.Stop
		if err := rows.Scan(&s.ID, &s.Name, &s.Lat, &s.Lon); err != nil {
			return nil, err
		}
		stops = append(stops, s)
	}
	return stops, rows.Err()
}

// FetchRoutes assembles routes, their services and trips. Array columns are
// read through array_to_json so database/sql only sees text.
func FetchRoutes(ctx context.Context, db *sql.DB) ([]transit.Route, error) {
	q := `
SELECT s.route_name,
       s.service_id,
       COALESCE(array_to_json(s.days)::text, '[]'),
       t.headsign,
       COALESCE(array_to_json(t.stops_sequence)::text, '[]'),
       COALESCE(array_to_json(t.times)::text, '[]'),
       COALESCE(array_to_json(t.arrival_offsets)::text, 'null')
FROM services s
JOIN trips t ON t.route_name = s.route_name AND t.service_id = s.service_id
ORDER BY s.route_name, s.service_id, t.trip_order`
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query trips: %w", err)
	}
	defer rows.Close()

	var routes []transit.Route
	for rows.Next() {
		var (
			routeName, serviceID              string
			days, sequence, times, offsetsRaw string
			trip                              transit.Trip
			svcDays                           []transit.Weekday
		)
		if err := rows.Scan(&routeName, &serviceID, &days, &trip.Headsign, &sequence, &times, &offsetsRaw); err != nil {
			return nil, err
		}
		if err := decodeJSONColumns(
			jsonColumn{"days", days, &svcDays},
			jsonColumn{"stops_sequence", sequence, &trip.StopsSequence},
			jsonColumn{"times", times, &trip.Times},
			jsonColumn{"arrival_offsets", offsetsRaw, &trip.ArrivalOffsets},
		); err != nil {
			return nil, fmt.Errorf("route %q service %q: %w", routeName, serviceID, err)
		}
		routes = appendTrip(routes, routeName, serviceID, svcDays, trip)
	}
	return routes, rows.Err()
}

// appendTrip relies on rows being ordered by route then service.
func appendTrip(routes []transit.Route, routeName, serviceID string, days []transit.Weekday, trip transit.Trip) []transit.Route {
	if len(routes) == 0 || routes[len(routes)-1].Name != routeName {
		routes = append(routes, transit.Route{Name: routeName})
	}
	r := &routes[len(routes)-1]
	if len(r.Services) == 0 || r.Services[len(r.Services)-1].ServiceID != serviceID {
		r.Services = append(r.Services, transit.Service{ServiceID: serviceID, Days: days})
	}
	svc := &r.Services[len(r.Services)-1]
	svc.Trips = append(svc.Trips, trip)
	return routes
}

func FetchLocations(ctx context.Context, db *sql.DB) ([]transit.Location, error) {
	q := `SELECT location_id, name, COALESCE(category, ''), lat, lon, COALESCE(array_to_json(keywords)::text, '[]')
          FROM locations ORDER BY location_id`
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query locations: %w", err)
	}
	defer rows.Close()
	var locs []transit.Location
	for rows.Next() {
		var l transit.Location
		var keywords string
		if err := rows.Scan(&l.ID, &l.Name, &l.Category, &l.Lat, &l.Lon, &keywords); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(keywords), &l.Keywords); err != nil {
			return nil, fmt.Errorf("location %q keywords: %w", l.ID, err)
		}
		locs = append(locs, l)
	}
	return locs, rows.Err()
}

// FetchRouteGeometries reads "Route : Headsign" keyed geometries stored either
// as GeoJSON text or as a PostGIS geometry column.
func FetchRouteGeometries(ctx context.Context, db *sql.DB) (map[string]geo.Geometry, error) {
	cols, err := hasColumns(ctx, db, "public", "route_geometries", "geojson", "geom")
	if err != nil {
		return nil, fmt.Errorf("introspect route_geometries columns: %w", err)
	}
	var q string
	switch {
	case cols["geojson"]:
		q = `SELECT geometry_key, geojson::text FROM route_geometries`
	case cols["geom"]:
		q = `SELECT geometry_key, ST_AsGeoJSON(geom) FROM route_geometries`
	default:
		return nil, fmt.Errorf("route_geometries table missing expected columns (geojson or geom)")
	}
	rows, err := db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query route_geometries: %w", err)
	}
	defer rows.Close()
	out := make(map[string]geo.Geometry)
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		g, err := geo.ParseGeoJSON([]byte(raw))
		if err != nil {
			// Skip unusable geometries; the leg falls back to whatever the directions service returns
			log.Warn().Err(err).Str("key", key).Msg("skipping route geometry")
			continue
		}
		out[key] = g
	}
	return out, rows.Err()
}

type jsonColumn struct {
	name string
	raw  string
	dst  any
}

func decodeJSONColumns(cols ...jsonColumn) error {
	for _, c := range cols {
		if err := json.Unmarshal([]byte(c.raw), c.dst); err != nil {
			return fmt.Errorf("decode %s: %w", c.name, err)
		}
	}
	return nil
}

// hasColumns returns a map of requested column names to existence for the given table.
func hasColumns(ctx context.Context, db *sql.DB, schema, table string, cols ...string) (map[string]bool, error) {
	res := make(map[string]bool, len(cols))
	if len(cols) == 0 {
		return res, nil
	}
	for _, c := range cols {
		res[c] = false
	}
	q := `SELECT column_name FROM information_schema.columns
          WHERE table_schema = $1 AND table_name = $2 AND column_name = ANY($3)`
	rows, err := db.QueryContext(ctx, q, schema, table, cols)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		res[name] = true
	}
	return res, rows.Err()
}
