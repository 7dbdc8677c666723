package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"campus-shuttle/internal/config"
	"campus-shuttle/internal/db"
	"campus-shuttle/internal/metrics"
	"campus-shuttle/internal/schedule"
	"campus-shuttle/internal/staticdata"
)

// openSource returns the uncached static data provider named by cfg and a
// func releasing its resources.
func openSource(ctx context.Context, cfg *config.Config) (staticdata.Provider, func(), error) {
	switch {
	case cfg.StaticDataFile != "":
		log.Info().Str("file", cfg.StaticDataFile).Msg("static data from file")
		return staticdata.FileProvider{Path: cfg.StaticDataFile}, func() {}, nil
	case cfg.StaticDataURL != "":
		log.Info().Str("url", cfg.StaticDataURL).Msg("static data from url")
		return staticdata.NewHTTPProvider(cfg.StaticDataURL, cfg.FetchTimeout), func() {}, nil
	case cfg.DatabaseURL != "":
		sqlDB, err := openDatabase(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return &db.Provider{DB: sqlDB}, func() { sqlDB.Close() }, nil
	}
	return nil, nil, cfg.Validate()
}

// openDatabase connects to DatabaseURL, or, when a dataset is configured, to
// the latest imported database for it listed in the cluster's meta database.
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	finalDSN := cfg.DatabaseURL
	if cfg.Dataset != "" {
		rootDSN, err := db.WithDBName(cfg.DatabaseURL, "postgres")
		if err != nil {
			return nil, fmt.Errorf("invalid base DSN: %w", err)
		}
		metaDB, err := db.Open(rootDSN)
		if err != nil {
			return nil, fmt.Errorf("db open (meta): %w", err)
		}
		defer metaDB.Close()
		if err := db.PingWithRetry(ctx, metaDB, 30*time.Second); err != nil {
			return nil, fmt.Errorf("db ping (meta): %w", err)
		}
		imp, err := db.ResolveLatestDataset(ctx, metaDB, cfg.Dataset)
		if err != nil {
			return nil, fmt.Errorf("resolve latest import for dataset %q: %w", cfg.Dataset, err)
		}
		if finalDSN, err = db.WithDBName(cfg.DatabaseURL, imp.DBName); err != nil {
			return nil, fmt.Errorf("compose DSN: %w", err)
		}
		log.Info().
			Str("database", imp.DBName).
			Str("dataset", imp.Dataset).
			Str("version", imp.Version).
			Time("importedAt", imp.ImportedAt).
			Dur("age", imp.Age(time.Now())).
			Msg("using latest static data import")
	}
	sqlDB, err := db.Open(finalDSN)
	if err != nil {
		return nil, fmt.Errorf("db open: %w", err)
	}
	if err := db.PingWithRetry(ctx, sqlDB, 30*time.Second); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return sqlDB, nil
}

// cachedSource wraps the source in a TTL cache, shared through Redis when configured.
func cachedSource(source staticdata.Provider, cfg *config.Config, mcol *metrics.Collector) (*staticdata.Cached, func()) {
	var (
		store   staticdata.Store
		release = func() {}
	)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		store = staticdata.NewRedisStore(client, cfg.StaticCacheTTL)
		release = func() { _ = client.Close() }
		log.Info().Str("addr", cfg.RedisAddr).Msg("static data cache in redis")
	} else {
		store = staticdata.NewMemoryStore(cfg.StaticCacheTTL)
	}
	return &staticdata.Cached{Provider: source, Store: store, OnLoad: mcol.StaticLoad}, release
}

func loadBlackouts(cfg *config.Config) (schedule.Blackouts, error) {
	if cfg.BlackoutsFile == "" {
		return schedule.DefaultBlackouts, nil
	}
	return schedule.LoadBlackouts(cfg.BlackoutsFile)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("config error: %w", err)
	}
	config.SetupLogging(cfg.LogLevel, cfg.LogPretty)
	return cfg, nil
}
