package planner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"campus-shuttle/internal/geo"
	"campus-shuttle/internal/itinerary"
	mmetrics "campus-shuttle/internal/metrics"
	"campus-shuttle/internal/routing"
	"campus-shuttle/internal/schedule"
	"campus-shuttle/internal/staticdata"
	"campus-shuttle/internal/transit"
)

var (
	// ErrSuperseded is returned to a request whose session started a newer request.
	ErrSuperseded = errors.New("request superseded by a newer one")
	// ErrNoStaticData is returned before the first successful static data load.
	ErrNoStaticData = errors.New("static data not loaded")
	ErrUnknownTrip     = errors.New("unknown route or headsign")
	ErrUnknownStop     = errors.New("no stop found")
	ErrUnknownLocation = errors.New("unknown location")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrNoDirections    = errors.New("directions service not configured")
)

// DirectionsSource plans a trip between two points.
type DirectionsSource interface {
	Directions(ctx context.Context, req routing.DirectionsRequest) (*routing.Directions, error)
}

type Options struct {
	Provider        staticdata.Provider
	Directions      DirectionsSource
	Walker          itinerary.WalkFetcher // nil disables walking legs
	Blackouts       schedule.Blackouts
	Estimator       schedule.Estimator
	Location        *time.Location
	RefreshInterval time.Duration
	WalkConcurrency int
	Metrics         *mmetrics.Collector
	Now             func() time.Time
}

// Manager serves itinerary and timetable queries against the latest static
// data snapshot. Itinerary requests carrying a session id are latest-wins.
type Manager struct {
	provider        staticdata.Provider
	directions      DirectionsSource
	walker          itinerary.WalkFetcher
	blackouts       schedule.Blackouts
	estimator       schedule.Estimator
	tz              *time.Location
	refreshInterval time.Duration
	walkConcurrency int
	metrics         *mmetrics.Collector
	now             func() time.Time

	snapMu sync.RWMutex
	snap   *snapshot

	mu       sync.Mutex
	sessions map[string]*session // session id -> in-flight request
	gen      atomic.Uint64

	refreshCancel context.CancelFunc
	refreshWG     sync.WaitGroup
}

type session struct {
	gen    uint64
	cancel context.CancelFunc
}

func NewManager(opts Options) *Manager {
	m := &Manager{
		provider:        opts.Provider,
		directions:      opts.Directions,
		walker:          opts.Walker,
		blackouts:       opts.Blackouts,
		estimator:       opts.Estimator,
		tz:              opts.Location,
		refreshInterval: opts.RefreshInterval,
		walkConcurrency: opts.WalkConcurrency,
		metrics:         opts.Metrics,
		now:             opts.Now,
		sessions:        make(map[string]*session),
	}
	if m.estimator.SpeedMps <= 0 {
		m.estimator = schedule.DefaultEstimator
	}
	if m.tz == nil {
		m.tz = time.Local
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Refresh loads static data from the provider and installs it as the current snapshot.
func (m *Manager) Refresh(ctx context.Context) error {
	d, err := m.provider.Load(ctx)
	if err != nil {
		return err
	}
	if issues := staticdata.Validate(d); len(issues) > 0 {
		log.Warn().Int("issues", len(issues)).Str("first", issues[0].String()).Msg("static data has validation issues")
	}
	snap := newSnapshot(d, m.now())
	m.snapMu.Lock()
	m.snap = snap
	m.snapMu.Unlock()
	m.metrics.StaticInstalled(len(d.Stops), len(d.Routes), snap.loadedAt)
	log.Debug().Int("stops", len(d.Stops)).Int("routes", len(d.Routes)).Msg("static data installed")
	return nil
}

// StartRefresher launches a background loop that periodically reloads static data.
func (m *Manager) StartRefresher(parent context.Context) {
	if m.refreshInterval <= 0 {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	m.refreshCancel = cancel
	m.refreshWG.Add(1)
	go func() {
		defer m.refreshWG.Done()
		ticker := time.NewTicker(m.refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.Refresh(ctx); err != nil {
					log.Error().Err(err).Msg("refresh static data")
				}
			}
		}
	}()
}

// Stop ends the refresher and cancels every in-flight itinerary request.
func (m *Manager) Stop() {
	if m.refreshCancel != nil {
		m.refreshCancel()
	}
	m.refreshWG.Wait()
	m.mu.Lock()
	for _, s := range m.sessions {
		s.cancel()
	}
	m.sessions = make(map[string]*session)
	m.mu.Unlock()
}

// Static returns the current static data.
func (m *Manager) Static() (*transit.StaticData, error) {
	s, err := m.current()
	if err != nil {
		return nil, err
	}
	return s.data, nil
}

// LoadedAt reports when the current snapshot was installed; zero before the first load.
func (m *Manager) LoadedAt() time.Time {
	m.snapMu.RLock()
	defer m.snapMu.RUnlock()
	if m.snap == nil {
		return time.Time{}
	}
	return m.snap.loadedAt
}

func (m *Manager) current() (*snapshot, error) {
	m.snapMu.RLock()
	defer m.snapMu.RUnlock()
	if m.snap == nil {
		return nil, ErrNoStaticData
	}
	return m.snap, nil
}

// begin registers a request for sessionID, cancelling the one it replaces.
// done must be called when the request finishes.
func (m *Manager) begin(parent context.Context, sessionID string) (ctx context.Context, gen uint64, done func()) {
	ctx, cancel := context.WithCancel(parent)
	gen = m.gen.Add(1)
	if sessionID == "" {
		return ctx, gen, cancel
	}
	m.mu.Lock()
	if prev, ok := m.sessions[sessionID]; ok {
		prev.cancel()
	}
	m.sessions[sessionID] = &session{gen: gen, cancel: cancel}
	m.mu.Unlock()
	return ctx, gen, func() {
		m.mu.Lock()
		if s, ok := m.sessions[sessionID]; ok && s.gen == gen {
			delete(m.sessions, sessionID)
		}
		m.mu.Unlock()
		cancel()
	}
}

func (m *Manager) isCurrent(sessionID string, gen uint64) bool {
	if sessionID == "" {
		return true
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	return ok && s.gen == gen
}

func (m *Manager) observe(op string, start time.Time, err error) {
	if errors.Is(err, ErrSuperseded) {
		m.metrics.SupersededInc()
	}
	m.metrics.ObserveRequest(op, time.Since(start), err)
}

// clock converts t (or now when zero) into the manager's time zone.
func (m *Manager) clock(t time.Time) time.Time {
	if t.IsZero() {
		t = m.now()
	}
	return t.In(m.tz)
}

// NearestStop returns the stop closest to c and its distance in meters.
func (m *Manager) NearestStop(c geo.Coordinate) (stop transit.Stop, dist float64, err error) {
	start := time.Now()
	defer func() { m.observe("nearest_stop", start, err) }()
	s, err := m.current()
	if err != nil {
		return transit.Stop{}, 0, err
	}
	stop, dist, ok := s.index.Nearest(c)
	if !ok {
		return transit.Stop{}, 0, ErrUnknownStop
	}
	return stop, dist, nil
}

// StopsWithin returns the stops no farther than radius meters from c.
func (m *Manager) StopsWithin(c geo.Coordinate, radius float64) ([]transit.Stop, error) {
	s, err := m.current()
	if err != nil {
		return nil, err
	}
	return s.index.Within(c, radius), nil
}
