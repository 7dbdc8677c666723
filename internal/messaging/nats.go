package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"

	"campus-shuttle/internal/planner"
	"campus-shuttle/internal/routing"
	"campus-shuttle/internal/schedule"
)

// Subject names under the configured prefix.
const (
	SubjectItinerary     = "itinerary"
	SubjectNextDeparture = "departures.next"
	SubjectArrivals      = "arrivals"
	SubjectSegment       = "segment"
)

const queueGroup = "campus-shuttle"

type ResponderMetrics interface {
	NATSRepliedInc()
	NATSReplyErrInc()
	ReplyObserve(d time.Duration)
	NATSSetConnected(connected bool)
}

// Planner is the query surface answered over NATS.
type Planner interface {
	Itinerary(ctx context.Context, req planner.ItineraryRequest) (*planner.Itinerary, error)
	NextDeparture(route, headsign string, at time.Time, upcoming int) (*planner.DepartureInfo, error)
	Arrivals(route, headsign, departure string, at time.Time) ([]schedule.StopArrival, error)
	RouteSegment(route, headsign, fromStopID, toStopID string) (*planner.RouteSegment, error)
}

// Connect dials NATS and keeps the connected gauge in step with the connection state.
func Connect(url string, m ResponderMetrics) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("campus-shuttle"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Warn().Err(err).Msg("nats disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(true)
			}
			log.Info().Msg("nats reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			if m != nil {
				m.NATSSetConnected(false)
			}
			log.Info().Msg("nats closed")
		}),
	)
	if err != nil {
		return nil, err
	}
	if m != nil {
		m.NATSSetConnected(true)
	}
	return nc, nil
}

// Responder answers planner requests sent with NATS request/reply. Messages
// are handled concurrently, up to a fixed number at a time, so a newer
// itinerary request can replace one still in flight for the same session.
type Responder struct {
	nc      *nats.Conn
	planner Planner
	prefix  string
	timeout time.Duration
	metrics ResponderMetrics
	subs    []*nats.Subscription
	workers *pool.Pool
	stop    sync.Once
	respond func(msg *nats.Msg, data []byte) error
}

func NewResponder(nc *nats.Conn, p Planner, prefix string, timeout time.Duration, concurrency int, m ResponderMetrics) *Responder {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Responder{
		nc:      nc,
		planner: p,
		prefix:  strings.TrimSuffix(prefix, "."),
		timeout: timeout,
		metrics: m,
		workers: pool.New().WithMaxGoroutines(concurrency),
		respond: func(msg *nats.Msg, data []byte) error { return msg.Respond(data) },
	}
}

// Start subscribes to every request subject in a shared queue group, so
// several instances split the load. Itinerary requests may also be sent to
// "<prefix>.itinerary.<session>" to select latest-wins by subject.
func (r *Responder) Start() error {
	subjects := []string{
		Subject(r.prefix, SubjectItinerary),
		Subject(r.prefix, SubjectItinerary) + ".*",
		Subject(r.prefix, SubjectNextDeparture),
		Subject(r.prefix, SubjectArrivals),
		Subject(r.prefix, SubjectSegment),
	}
	for _, subject := range subjects {
		sub, err := r.nc.QueueSubscribe(subject, queueGroup, r.handle)
		if err != nil {
			r.Close()
			return err
		}
		r.subs = append(r.subs, sub)
	}
	log.Info().Strs("subjects", subjects).Msg("nats responder listening")
	return nil
}

// Close unsubscribes and waits for in-flight requests to be answered.
func (r *Responder) Close() {
	for _, s := range r.subs {
		_ = s.Unsubscribe()
	}
	r.subs = nil
	r.stop.Do(r.workers.Wait)
}

// handle queues msg for a worker. It blocks while every worker is busy.
func (r *Responder) handle(msg *nats.Msg) {
	r.workers.Go(func() { r.reply(msg) })
}

func (r *Responder) reply(msg *nats.Msg) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	b, err := json.Marshal(r.dispatch(ctx, msg.Subject, msg.Data))
	if err == nil && msg.Reply != "" {
		err = r.respond(msg, b)
	}
	if r.metrics != nil {
		r.metrics.ReplyObserve(time.Since(start))
		if err != nil {
			r.metrics.NATSReplyErrInc()
		} else {
			r.metrics.NATSRepliedInc()
		}
	}
	if err != nil {
		log.Error().Err(err).Str("subject", msg.Subject).Msg("nats reply failed")
	}
}

// Reply is the envelope of every response.
type Reply struct {
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

type ItineraryMessage struct {
	Session        string  `json:"session,omitempty"`
	OriginLat      float64 `json:"originLat"`
	OriginLon      float64 `json:"originLon"`
	DestLocationID string  `json:"destLocationId,omitempty"`
	DestLat        float64 `json:"destLat,omitempty"`
	DestLon        float64 `json:"destLon,omitempty"`
	DestName       string  `json:"destName,omitempty"`
	Time           string  `json:"time,omitempty"`
	Day            string  `json:"day,omitempty"`
	ForceBus       bool    `json:"forceBus,omitempty"`
}

type TripMessage struct {
	Route     string    `json:"route"`
	Headsign  string    `json:"headsign"`
	Departure string    `json:"departure,omitempty"`
	At        time.Time `json:"at,omitempty"`
	Upcoming  int       `json:"upcoming,omitempty"`
	From      string    `json:"from,omitempty"`
	To        string    `json:"to,omitempty"`
}

func (r *Responder) dispatch(ctx context.Context, subject string, data []byte) Reply {
	name := strings.TrimPrefix(subject, r.prefix+".")
	switch {
	case name == SubjectItinerary || strings.HasPrefix(name, SubjectItinerary+"."):
		var m ItineraryMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return errorReply(err)
		}
		if m.Session == "" {
			m.Session = strings.TrimPrefix(strings.TrimPrefix(name, SubjectItinerary), ".")
		}
		it, err := r.planner.Itinerary(ctx, planner.ItineraryRequest{
			Session: m.Session,
			DirectionsRequest: routing.DirectionsRequest{
				OriginLat: m.OriginLat, OriginLon: m.OriginLon,
				DestLocationID: m.DestLocationID, DestLat: m.DestLat, DestLon: m.DestLon, DestName: m.DestName,
				Time: m.Time, Day: m.Day, ForceBus: m.ForceBus,
			},
		})
		if err != nil {
			return errorReply(err)
		}
		return Reply{Data: it}
	case name == SubjectNextDeparture:
		var m TripMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return errorReply(err)
		}
		info, err := r.planner.NextDeparture(m.Route, m.Headsign, m.At, m.Upcoming)
		if err != nil {
			return errorReply(err)
		}
		if info == nil {
			return Reply{Error: "No upcoming departure within a week"}
		}
		return Reply{Data: info}
	case name == SubjectArrivals:
		var m TripMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return errorReply(err)
		}
		arrivals, err := r.planner.Arrivals(m.Route, m.Headsign, m.Departure, m.At)
		if err != nil {
			return errorReply(err)
		}
		return Reply{Data: arrivals}
	case name == SubjectSegment:
		var m TripMessage
		if err := json.Unmarshal(data, &m); err != nil {
			return errorReply(err)
		}
		rs, err := r.planner.RouteSegment(m.Route, m.Headsign, m.From, m.To)
		if err != nil {
			return errorReply(err)
		}
		return Reply{Data: rs}
	}
	return Reply{Error: "unknown subject " + subject}
}

func errorReply(err error) Reply {
	var de *routing.DirectionsError
	if errors.As(err, &de) {
		return Reply{Error: de.Message, Suggestion: de.Suggestion}
	}
	return Reply{Error: err.Error()}
}

// Subject joins prefix and name.
func Subject(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// ItinerarySubject is the per-session itinerary subject for clients.
func ItinerarySubject(prefix, session string) string {
	return Subject(prefix, SubjectItinerary) + "." + subjectToken(session)
}

func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	// NATS token cannot contain spaces, '>', '*', or trailing '.'
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
