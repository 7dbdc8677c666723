package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

type Collector struct {
	reg *prometheus.Registry

	Requests        *prometheus.CounterVec // op label: itinerary|next_departure|arrivals|nearest_stop
	RequestErrors   *prometheus.CounterVec
	Superseded      prometheus.Counter
	RequestDuration *prometheus.HistogramVec

	SegmentsRendered  *prometheus.CounterVec // kind label: bus|walk
	FallbackSegments  prometheus.Counter
	WalkFetchErrors   prometheus.Counter
	WalkFetchDuration prometheus.Histogram

	StaticLoads     *prometheus.CounterVec // source label: cache|provider
	StaticLoadErrs  prometheus.Counter
	StaticStops     prometheus.Gauge
	StaticRoutes    prometheus.Gauge
	StaticUpdatedAt prometheus.Gauge

	NATSReplies   prometheus.Counter
	NATSReplyErrs prometheus.Counter
	NATSConnected prometheus.Gauge
	ReplyDuration prometheus.Histogram

	RefreshInterval prometheus.Gauge // seconds
	CacheTTL        prometheus.Gauge // seconds
}

func NewCollector(refreshInterval, cacheTTL time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shuttle_requests_total",
			Help: "Planner requests by operation.",
		}, []string{"op"}),
		RequestErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shuttle_request_errors_total",
			Help: "Planner requests that failed, by operation.",
		}, []string{"op"}),
		Superseded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shuttle_requests_superseded_total",
			Help: "Itinerary requests discarded because a newer request for the same session arrived.",
		}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "shuttle_request_duration_seconds",
			Help:    "Duration of planner operations.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}, []string{"op"}),
		SegmentsRendered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shuttle_segments_rendered_total",
			Help: "Render segments produced, by kind.",
		}, []string{"kind"}),
		FallbackSegments: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shuttle_fallback_segments_total",
			Help: "Bus segments drawn from the full leg geometry because extraction failed.",
		}),
		WalkFetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shuttle_walk_fetch_errors_total",
			Help: "Walking path fetches that failed.",
		}),
		WalkFetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "shuttle_walk_fetch_duration_seconds",
			Help:    "Duration of the walking fetch fan-out for one itinerary.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		StaticLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "shuttle_static_loads_total",
			Help: "Static data loads, by source.",
		}, []string{"source"}),
		StaticLoadErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shuttle_static_load_errors_total",
			Help: "Static data loads that failed.",
		}),
		StaticStops: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shuttle_static_stops",
			Help: "Stops in the current static snapshot.",
		}),
		StaticRoutes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shuttle_static_routes",
			Help: "Routes in the current static snapshot.",
		}),
		StaticUpdatedAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shuttle_static_updated_timestamp_seconds",
			Help: "Unix time the current static snapshot was installed.",
		}),
		NATSReplies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shuttle_nats_replies_total",
			Help: "Total NATS replies sent.",
		}),
		NATSReplyErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "shuttle_nats_reply_errors_total",
			Help: "Total NATS reply errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shuttle_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		ReplyDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "shuttle_nats_reply_duration_seconds",
			Help:    "Duration to handle and answer a NATS request.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		RefreshInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shuttle_static_refresh_interval_seconds",
			Help: "Static data refresh interval in seconds.",
		}),
		CacheTTL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "shuttle_static_cache_ttl_seconds",
			Help: "Static data cache TTL in seconds.",
		}),
	}

	reg.MustRegister(
		c.Requests, c.RequestErrors, c.Superseded, c.RequestDuration,
		c.SegmentsRendered, c.FallbackSegments, c.WalkFetchErrors, c.WalkFetchDuration,
		c.StaticLoads, c.StaticLoadErrs, c.StaticStops, c.StaticRoutes, c.StaticUpdatedAt,
		c.NATSReplies, c.NATSReplyErrs, c.NATSConnected, c.ReplyDuration,
		c.RefreshInterval, c.CacheTTL,
	)

	c.RefreshInterval.Set(refreshInterval.Seconds())
	c.CacheTTL.Set(cacheTTL.Seconds())

	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.reg }

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server error")
		}
	}()
	log.Info().Str("addr", addr).Msg("metrics listening")
	return srv
}

// The methods below let a nil *Collector be passed where metrics are optional.

func (c *Collector) ObserveRequest(op string, d time.Duration, err error) {
	if c == nil {
		return
	}
	c.Requests.WithLabelValues(op).Inc()
	c.RequestDuration.WithLabelValues(op).Observe(d.Seconds())
	if err != nil {
		c.RequestErrors.WithLabelValues(op).Inc()
	}
}

func (c *Collector) SupersededInc() {
	if c != nil {
		c.Superseded.Inc()
	}
}

func (c *Collector) ObserveSegments(kind string, n, fallbacks int) {
	if c == nil {
		return
	}
	c.SegmentsRendered.WithLabelValues(kind).Add(float64(n))
	c.FallbackSegments.Add(float64(fallbacks))
}

func (c *Collector) ObserveWalks(d time.Duration, failed int) {
	if c == nil {
		return
	}
	c.WalkFetchDuration.Observe(d.Seconds())
	c.WalkFetchErrors.Add(float64(failed))
}

func (c *Collector) StaticLoad(hit bool, err error) {
	if c == nil {
		return
	}
	source := "provider"
	if hit {
		source = "cache"
	}
	c.StaticLoads.WithLabelValues(source).Inc()
	if err != nil {
		c.StaticLoadErrs.Inc()
	}
}

func (c *Collector) StaticInstalled(stops, routes int, at time.Time) {
	if c == nil {
		return
	}
	c.StaticStops.Set(float64(stops))
	c.StaticRoutes.Set(float64(routes))
	c.StaticUpdatedAt.Set(float64(at.Unix()))
}

func (c *Collector) NATSRepliedInc() {
	if c != nil {
		c.NATSReplies.Inc()
	}
}

func (c *Collector) NATSReplyErrInc() {
	if c != nil {
		c.NATSReplyErrs.Inc()
	}
}

func (c *Collector) ReplyObserve(d time.Duration) {
	if c != nil {
		c.ReplyDuration.Observe(d.Seconds())
	}
}

func (c *Collector) NATSSetConnected(connected bool) {
	if c == nil {
		return
	}
	if connected {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}
