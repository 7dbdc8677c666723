package api

import (
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"campus-shuttle/internal/geo"
	"campus-shuttle/internal/itinerary"
	"campus-shuttle/internal/planner"
	"campus-shuttle/internal/routing"
)

func (s *Server) health(c *fiber.Ctx) error {
	loaded := s.planner.LoadedAt()
	if loaded.IsZero() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "loading"})
	}
	return c.JSON(fiber.Map{"status": "ok", "staticLoadedAt": loaded.Format(time.RFC3339)})
}

// itinerary answers with a GeoJSON FeatureCollection of render segments, or
// with the full planned result when format=json.
func (s *Server) itinerary(c *fiber.Ctx) error {
	origin, err := coordinateQuery(c, "originLat", "originLon")
	if err != nil {
		return err
	}
	req := planner.ItineraryRequest{
		Session: c.Query("session", c.Get("X-Session-ID")),
		DirectionsRequest: routing.DirectionsRequest{
			OriginLat:      origin.Lat,
			OriginLon:      origin.Lon,
			DestLocationID: c.Query("destLocationId"),
			DestName:       c.Query("destName"),
			Time:           c.Query("time"),
			Day:            c.Query("day"),
			ForceBus:       c.QueryBool("forceBus"),
		},
	}
	if req.DestLocationID == "" {
		dest, err := coordinateQuery(c, "destLat", "destLon")
		if err != nil {
			return err
		}
		req.DestLat, req.DestLon = dest.Lat, dest.Lon
	}

	it, err := s.planner.Itinerary(c.UserContext(), req)
	if err != nil {
		return err
	}
	if c.Query("format") == "json" {
		return c.JSON(it)
	}
	return c.JSON(itinerary.FeatureCollection(it.Segments))
}

func (s *Server) nextDeparture(c *fiber.Ctx) error {
	route, headsign, err := tripQuery(c)
	if err != nil {
		return err
	}
	at, err := timeQuery(c, "at")
	if err != nil {
		return err
	}
	info, err := s.planner.NextDeparture(route, headsign, at, c.QueryInt("upcoming", 0))
	if err != nil {
		return err
	}
	if info == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No upcoming departure within a week"})
	}
	return c.JSON(info)
}

func (s *Server) arrivals(c *fiber.Ctx) error {
	route, headsign, err := tripQuery(c)
	if err != nil {
		return err
	}
	at, err := timeQuery(c, "at")
	if err != nil {
		return err
	}
	arrivals, err := s.planner.Arrivals(route, headsign, c.Query("departure"), at)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"route": route, "headsign": headsign, "arrivals": arrivals})
}

// routeSegment draws one ride between two stops on the stored route
// geometry. format=geojson answers with a FeatureCollection.
func (s *Server) routeSegment(c *fiber.Ctx) error {
	route, headsign, err := tripQuery(c)
	if err != nil {
		return err
	}
	from, to := c.Query("from"), c.Query("to")
	if from == "" || to == "" {
		return badRequest{"from and to stop ids are required"}
	}
	rs, err := s.planner.RouteSegment(route, headsign, from, to)
	if err != nil {
		return err
	}
	if c.Query("format") == "geojson" {
		return c.JSON(itinerary.FeatureCollection([]itinerary.RenderSegment{rs.Segment}))
	}
	return c.JSON(rs)
}

func (s *Server) nearestStop(c *fiber.Ctx) error {
	at, err := coordinateQuery(c, "lat", "lon")
	if err != nil {
		return err
	}
	if r := c.Query("radius"); r != "" {
		radius, err := strconv.ParseFloat(r, 64)
		if err != nil || math.IsNaN(radius) || radius <= 0 {
			return badRequest{"radius must be a positive number of meters"}
		}
		stops, err := s.planner.StopsWithin(at, radius)
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{"stops": stops})
	}
	stop, dist, err := s.planner.NearestStop(at)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"stop": stop, "distance": dist})
}

func tripQuery(c *fiber.Ctx) (route, headsign string, err error) {
	route, headsign = c.Query("route"), c.Query("headsign")
	if route == "" || headsign == "" {
		return "", "", badRequest{"route and headsign are required"}
	}
	return route, headsign, nil
}

func timeQuery(c *fiber.Ctx, key string) (time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, badRequest{key + " must be an RFC 3339 timestamp"}
	}
	return t, nil
}

func coordinateQuery(c *fiber.Ctx, latKey, lonKey string) (geo.Coordinate, error) {
	lat, err1 := strconv.ParseFloat(c.Query(latKey), 64)
	lon, err2 := strconv.ParseFloat(c.Query(lonKey), 64)
	if err1 != nil || err2 != nil || math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return geo.Coordinate{}, badRequest{latKey + " and " + lonKey + " must be valid coordinates"}
	}
	return geo.Coordinate{Lat: lat, Lon: lon}, nil
}
