package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"campus-shuttle/internal/api"
	"campus-shuttle/internal/config"
	"campus-shuttle/internal/messaging"
	"campus-shuttle/internal/metrics"
	"campus-shuttle/internal/planner"
	"campus-shuttle/internal/routing"
	"campus-shuttle/internal/staticdata"
	"campus-shuttle/internal/transit"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API and NATS responder",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "listen",
				Usage: "listen target for the web server (overrides HTTP_ADDR)",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if l := c.String("listen"); l != "" {
				cfg.HTTPAddr = l
			}

			// Root context with cancellation on SIGINT/SIGTERM
			ctx, cancel := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			var mcol *metrics.Collector
			if cfg.MetricsAddr != "" {
				mcol = metrics.NewCollector(cfg.StaticRefreshInterval, cfg.StaticCacheTTL)
				srv := mcol.Serve(cfg.MetricsAddr)
				defer func() {
					shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
					defer cancel()
					_ = srv.Shutdown(shutdownCtx)
				}()
			}

			source, closeSource, err := openSource(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeSource()
			cached, closeCache := cachedSource(source, cfg, mcol)
			defer closeCache()

			blackouts, err := loadBlackouts(cfg)
			if err != nil {
				return err
			}

			opts := planner.Options{
				Provider:        cached,
				Blackouts:       blackouts,
				Location:        cfg.Location,
				RefreshInterval: cfg.StaticRefreshInterval,
				WalkConcurrency: cfg.WalkConcurrency,
				Metrics:         mcol,
			}
			if cfg.DirectionsURL != "" {
				opts.Directions = routing.NewDirectionsClient(cfg.DirectionsURL, cfg.FetchTimeout)
			} else {
				log.Warn().Msg("DIRECTIONS_URL not set; itinerary requests are disabled")
			}
			if cfg.OSRMURL != "" {
				opts.Walker = routing.NewWalkingClient(cfg.OSRMURL, cfg.WalkProfile, cfg.FetchTimeout)
			}
			mgr := planner.NewManager(opts)
			if err := mgr.Refresh(ctx); err != nil {
				// keep serving; health reports loading until the refresher succeeds
				log.Error().Err(err).Msg("initial static data load failed")
			}
			mgr.StartRefresher(ctx)
			defer mgr.Stop()

			if cfg.NATSURL != "" {
				nc, err := messaging.Connect(cfg.NATSURL, mcol)
				if err != nil {
					return fmt.Errorf("nats error: %w", err)
				}
				defer func() {
					_ = nc.Drain()
					nc.Close()
				}()
				responder := messaging.NewResponder(nc, mgr, cfg.NATSSubjectPrefix, cfg.FetchTimeout*3, cfg.NATSConcurrency, mcol)
				if err := responder.Start(); err != nil {
					return fmt.Errorf("nats subscribe: %w", err)
				}
				defer responder.Close()
			}

			server := api.NewServer(mgr)
			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
				errCh <- server.Listen(cfg.HTTPAddr)
			}()

			select {
			case <-ctx.Done():
			case err := <-errCh:
				return fmt.Errorf("http server: %w", err)
			}
			shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancelShutdown()
			if err := server.Shutdown(shutdownCtx); err != nil {
				log.Warn().Err(err).Msg("http shutdown")
			}
			log.Info().Msg("shutdown complete")
			return nil
		},
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "check static data for structural problems",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			d, err := loadStatic(c.Context, cfg)
			if err != nil {
				return err
			}
			issues := staticdata.Validate(d)
			for _, i := range issues {
				fmt.Println(i.String())
			}
			if len(issues) > 0 {
				return cli.Exit(fmt.Sprintf("%d issue(s) found", len(issues)), 1)
			}
			log.Info().Int("stops", len(d.Stops)).Int("routes", len(d.Routes)).Msg("static data is valid")
			return nil
		},
	}
}

func normalizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "normalize",
		Usage: "rewrite static data with duplicate times removed, blackouts applied or undone, or a geometry reversed",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "out", Usage: "output file (stdout when empty)"},
			&cli.BoolFlag{Name: "merge-blackouts", Usage: "fold services split by --split-blackouts back into their parents"},
			&cli.BoolFlag{Name: "dedupe-times", Usage: "drop repeated trip times"},
			&cli.BoolFlag{Name: "split-blackouts", Usage: "move blacked-out days to their own services without the blacked-out times"},
			&cli.StringSliceFlag{Name: "reverse", Usage: `reverse the geometry stored under a "Route : Headsign" key`},
		},
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			d, err := loadStatic(c.Context, cfg)
			if err != nil {
				return err
			}
			if c.Bool("merge-blackouts") {
				var n int
				d, n = staticdata.MergeBlackoutSplits(d)
				log.Info().Int("services", n).Msg("merged blackout services")
			}
			if c.Bool("dedupe-times") {
				var n int
				d, n = staticdata.DedupeTimes(d)
				log.Info().Int("trips", n).Msg("removed duplicate times")
			}
			if c.Bool("split-blackouts") {
				blackouts, err := loadBlackouts(cfg)
				if err != nil {
					return err
				}
				var n int
				d, n = staticdata.ApplyBlackouts(d, blackouts)
				log.Info().Int("services", n).Msg("applied blackout windows")
			}
			for _, key := range c.StringSlice("reverse") {
				if d, err = staticdata.ReverseGeometry(d, key); err != nil {
					return err
				}
				log.Info().Str("key", key).Msg("reversed geometry")
			}
			return writeJSON(c.String("out"), d)
		},
	}
}

func tripFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "route", Required: true},
		&cli.StringFlag{Name: "headsign", Required: true},
		&cli.TimestampFlag{Name: "at", Layout: time.RFC3339, Usage: "reference time (now when unset)"},
	}
}

func nextDepartureCommand() *cli.Command {
	return &cli.Command{
		Name:  "next-departure",
		Usage: "print the next run of a route/headsign",
		Flags: append(tripFlags(), &cli.IntFlag{Name: "upcoming", Usage: "also list up to N runs that day"}),
		Action: func(c *cli.Context) error {
			mgr, err := offlineManager(c.Context)
			if err != nil {
				return err
			}
			info, err := mgr.NextDeparture(c.String("route"), c.String("headsign"), at(c), c.Int("upcoming"))
			if err != nil {
				return err
			}
			if info == nil {
				return cli.Exit("no upcoming departure within a week", 1)
			}
			return writeJSON("", info)
		},
	}
}

func arrivalsCommand() *cli.Command {
	return &cli.Command{
		Name:  "arrivals",
		Usage: "print estimated arrivals at every stop of a route/headsign run",
		Flags: append(tripFlags(), &cli.StringFlag{Name: "departure", Usage: `"HH:MM" run (next run when unset)`}),
		Action: func(c *cli.Context) error {
			mgr, err := offlineManager(c.Context)
			if err != nil {
				return err
			}
			arrivals, err := mgr.Arrivals(c.String("route"), c.String("headsign"), c.String("departure"), at(c))
			if err != nil {
				return err
			}
			return writeJSON("", arrivals)
		},
	}
}

func at(c *cli.Context) time.Time {
	if t := c.Timestamp("at"); t != nil {
		return *t
	}
	return time.Time{}
}

func loadStatic(ctx context.Context, cfg *config.Config) (*transit.StaticData, error) {
	source, closeSource, err := openSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer closeSource()
	return source.Load(ctx)
}

// offlineManager answers timetable queries from one static data load.
func offlineManager(ctx context.Context) (*planner.Manager, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	source, closeSource, err := openSource(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer closeSource()
	blackouts, err := loadBlackouts(cfg)
	if err != nil {
		return nil, err
	}
	mgr := planner.NewManager(planner.Options{Provider: source, Blackouts: blackouts, Location: cfg.Location})
	if err := mgr.Refresh(ctx); err != nil {
		return nil, err
	}
	return mgr, nil
}

func writeJSON(path string, v any) error {
	out := os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
