package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"campus-shuttle/internal/geo"
	"campus-shuttle/internal/planner"
	"campus-shuttle/internal/routing"
	"campus-shuttle/internal/schedule"
	"campus-shuttle/internal/transit"
)

// Planner is the query surface the HTTP API serves.
type Planner interface {
	Itinerary(ctx context.Context, req planner.ItineraryRequest) (*planner.Itinerary, error)
	NextDeparture(route, headsign string, at time.Time, upcoming int) (*planner.DepartureInfo, error)
	Arrivals(route, headsign, departure string, at time.Time) ([]schedule.StopArrival, error)
	RouteSegment(route, headsign, fromStopID, toStopID string) (*planner.RouteSegment, error)
	NearestStop(c geo.Coordinate) (transit.Stop, float64, error)
	StopsWithin(c geo.Coordinate, radius float64) ([]transit.Stop, error)
	LoadedAt() time.Time
}

type Server struct {
	app     *fiber.App
	planner Planner
}

func NewServer(p Planner) *Server {
	s := &Server{planner: p}
	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	s.app.Use(NewLogger())

	group := s.app.Group("/v1")
	group.Get("/health", s.health)
	group.Get("/itinerary", s.itinerary)
	group.Get("/departures/next", s.nextDeparture)
	group.Get("/arrivals", s.arrivals)
	group.Get("/segment", s.routeSegment)
	group.Get("/stops/nearest", s.nearestStop)
	return s
}

func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Listen(addr string) error { return s.app.Listen(addr) }

func (s *Server) Shutdown(ctx context.Context) error { return s.app.ShutdownWithContext(ctx) }

// badRequest marks a client input error.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	body := fiber.Map{"error": err.Error()}

	var (
		fe *fiber.Error
		br badRequest
		de *routing.DirectionsError
	)
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.As(err, &br), errors.Is(err, planner.ErrInvalidRequest):
		code = fiber.StatusBadRequest
	case errors.As(err, &de):
		code = fiber.StatusUnprocessableEntity
		body = fiber.Map{"error": de.Message}
		if de.Suggestion != "" {
			body["suggestion"] = de.Suggestion
		}
	case errors.Is(err, planner.ErrNoStaticData):
		code = fiber.StatusServiceUnavailable
	case errors.Is(err, planner.ErrUnknownTrip), errors.Is(err, planner.ErrUnknownStop), errors.Is(err, planner.ErrUnknownLocation):
		code = fiber.StatusNotFound
	case errors.Is(err, planner.ErrSuperseded):
		code = fiber.StatusConflict
	case errors.Is(err, planner.ErrNoDirections):
		code = fiber.StatusNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		code = fiber.StatusGatewayTimeout
	}
	return c.Status(code).JSON(body)
}
