package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr      string
	MetricsAddr     string
	StaticDir       string
	DatabaseURL     string
	NamesFile       string
	NATSURL         string
	NATSPrefix      string
	LogNATSSubjects bool
	MinSendInterval time.Duration
}

func Load() (*Config, error) {
	// Load .env into environment (ignore if missing)
	_ = godotenv.Load()

	cfg := &Config{}

	cfg.ListenAddr = getenvDefault("LISTEN_ADDR", ":3000")
	if v := os.Getenv("PORT"); v != "" && os.Getenv("LISTEN_ADDR") == "" {
		cfg.ListenAddr = ":" + v
	}

	// Database URL for the name log: prefer DATABASE_URL / PG_DSN, else build
	// from PG* vars. Empty means the JSON-file store is used instead.
	dsn := firstNonEmpty(
		os.Getenv("DATABASE_URL"),
		os.Getenv("PG_DSN"),
	)
	if dsn == "" && os.Getenv("PGDATABASE") != "" {
		host := getenvDefault("PGHOST", "127.0.0.1")
		port := getenvDefault("PGPORT", "5432")
		user := getenvDefault("PGUSER", "postgres")
		pass := os.Getenv("PGPASSWORD")
		db := os.Getenv("PGDATABASE")
		sslmode := getenvDefault("PGSSLMODE", "disable")
		if pass != "" {
			dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", urlEscape(user), urlEscape(pass), host, port, db, sslmode)
		} else {
			dsn = fmt.Sprintf("postgres://%s@%s:%s/%s?sslmode=%s", urlEscape(user), host, port, db, sslmode)
		}
	}
	cfg.DatabaseURL = dsn

	cfg.NamesFile = getenvDefault("NAMES_FILE", "names.json")

	// NATS mirror; empty URL disables it.
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.NATSPrefix = getenvDefault("NATS_SUBJECT_PREFIX", "bus")
	if v := os.Getenv("LOG_NATS_SUBJECTS"); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "t", "yes", "y", "on":
			cfg.LogNATSSubjects = true
		default:
			cfg.LogNATSSubjects = false
		}
	}

	// Minimum interval between accepted location updates per bus
	if v := os.Getenv("MIN_SEND_INTERVAL_MS"); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil || ms <= 0 {
			return nil, fmt.Errorf("invalid MIN_SEND_INTERVAL_MS: %q", v)
		}
		cfg.MinSendInterval = time.Duration(ms) * time.Millisecond
	} else {
		cfg.MinSendInterval = 800 * time.Millisecond
	}

	// Metrics listen address (e.g., ":9102"). Empty disables the metrics server.
	cfg.MetricsAddr = os.Getenv("METRICS_ADDR")

	// Directory of static assets to serve at /. Empty disables.
	cfg.StaticDir = os.Getenv("STATIC_DIR")

	return cfg, nil
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
