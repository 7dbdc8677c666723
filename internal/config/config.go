package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Static data source: exactly one of file, URL or database is used, in that order.
	StaticDataFile string
	StaticDataURL  string
	DatabaseURL    string
	Dataset        string

	StaticCacheTTL        time.Duration
	StaticRefreshInterval time.Duration
	RedisAddr             string

	DirectionsURL   string
	OSRMURL         string
	WalkProfile     string
	FetchTimeout    time.Duration
	WalkConcurrency int

	HTTPAddr          string
	NATSURL           string
	NATSSubjectPrefix string
	NATSConcurrency   int
	MetricsAddr       string

	BlackoutsFile string
	Location      *time.Location

	LogLevel  string
	LogPretty bool
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.StaticDataFile = os.Getenv("STATIC_DATA_FILE")
	cfg.StaticDataURL = os.Getenv("STATIC_DATA_URL")
	cfg.Dataset = firstNonEmpty(os.Getenv("STATIC_DATASET"), os.Getenv("DATASET"))

	// Database URL: prefer DATABASE_URL / PG_DSN, else build from PG* vars when PGDATABASE is set
	dsn := firstNonEmpty(
		os.Getenv("DATABASE_URL"),
		os.Getenv("PG_DSN"),
	)
	if dsn == "" {
		if db := os.Getenv("PGDATABASE"); db != "" {
			host := getenvDefault("PGHOST", "127.0.0.1")
			port := getenvDefault("PGPORT", "5432")
			user := getenvDefault("PGUSER", "postgres")
			pass := os.Getenv("PGPASSWORD")
			sslmode := getenvDefault("PGSSLMODE", "disable")
			if pass != "" {
				dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode)
			} else {
				dsn = fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode)
			}
		}
	}
	cfg.DatabaseURL = dsn

	var err error
	if cfg.StaticCacheTTL, err = secondsEnv("STATIC_CACHE_TTL_SEC", 5*time.Minute, false); err != nil {
		return nil, err
	}
	// 0 disables the periodic refresh
	if cfg.StaticRefreshInterval, err = secondsEnv("STATIC_REFRESH_INTERVAL_SEC", 60*time.Second, true); err != nil {
		return nil, err
	}
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")

	cfg.DirectionsURL = os.Getenv("DIRECTIONS_URL")
	cfg.OSRMURL = os.Getenv("OSRM_URL")
	cfg.WalkProfile = getenvDefault("WALK_PROFILE", "foot")

	if v := os.Getenv("FETCH_TIMEOUT_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("invalid FETCH_TIMEOUT_MS: %q", v)
		}
		cfg.FetchTimeout = time.Duration(ms) * time.Millisecond
	} else {
		cfg.FetchTimeout = 10 * time.Second
	}

	if cfg.WalkConcurrency, err = positiveIntEnv("WALK_CONCURRENCY", 4); err != nil {
		return nil, err
	}

	cfg.HTTPAddr = getenvDefault("HTTP_ADDR", ":8080")
	// Empty NATS_URL disables the request/reply responder.
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.NATSSubjectPrefix = strings.TrimSuffix(getenvDefault("NATS_SUBJECT_PREFIX", "shuttle"), ".")
	// Requests handled at once by the responder.
	if cfg.NATSConcurrency, err = positiveIntEnv("NATS_CONCURRENCY", 16); err != nil {
		return nil, err
	}
	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	cfg.BlackoutsFile = os.Getenv("BLACKOUTS_FILE")

	// Time zone
	tzName := getenvDefault("TZ", "")
	if tzName == "" {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(tzName)
		if err != nil {
			return nil, fmt.Errorf("invalid TZ: %v", err)
		}
		cfg.Location = loc
	}

	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")
	cfg.LogPretty = parseBool(os.Getenv("LOG_PRETTY"))

	return cfg, nil
}

// Validate reports configuration that cannot serve requests.
func (c *Config) Validate() error {
	if c.StaticDataFile == "" && c.StaticDataURL == "" && c.DatabaseURL == "" {
		return errors.New("one of STATIC_DATA_FILE, STATIC_DATA_URL, DATABASE_URL or PGDATABASE must be set")
	}
	return nil
}

func secondsEnv(key string, def time.Duration, allowZero bool) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	sec, err := strconv.Atoi(v)
	if err != nil || sec < 0 || (sec == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return time.Duration(sec) * time.Second, nil
}

func positiveIntEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	default:
		return false
	}
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func urlEscape(s string) string {
	// Minimal escape for DSN user/pass with special chars
	r := strings.NewReplacer("@", "%40", ":", "%3A", "/", "%2F", "?", "%3F", "#", "%23")
	return r.Replace(s)
}
