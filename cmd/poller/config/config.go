// Package config provides configuration parsing and management for the poller.
//
// It handles both command-line flags and environment variables, with flags taking
// precedence over environment variables. The Config struct contains all runtime
// configuration for the poller including:
//   - Adapter selection and its ADAPTER_* settings
//   - Snapshot output directory
//   - Wall-clock schedule (period, settle delay, alignment zone)
//   - Latest-snapshot storage (memory or redis)
//   - HTTP listen address and TLS files
//   - Logging configuration (level, format)
//
// Supported configuration sources (in order of precedence):
//  1. Command-line flags
//  2. Environment variables
//  3. Default values
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/HatiCode/gridsnap/pkg/tls"
)

// Config holds all poller configuration.
type Config struct {
	Listen        string
	LogFormat     string
	LogLevel      string
	Storage       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisTTL      time.Duration
	TLS           tls.Config

	Adapter       string
	AdapterConfig map[string]string
	SnapshotDir   string
	Every         time.Duration
	Settle        time.Duration
	AlignTZ       string
	Once          bool

	// AlignZone is AlignTZ resolved by Validate.
	AlignZone *time.Location
}

// ParseFlags parses command-line flags and environment variables into a Config.
// Environment variables are used as fallbacks when flags are not provided.
func ParseFlags() *Config {
	cfg := &Config{}

	flag.StringVar(&cfg.Listen, "listen", getEnv("LISTEN", ":8082"), "HTTP listen address")

	flag.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "Log format: text or json")
	flag.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	flag.StringVar(&cfg.Storage, "storage", getEnv("STORAGE", "memory"), "Storage backend: memory or redis")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", getEnv("REDIS_ADDR", "localhost:6379"), "Redis server address")
	flag.StringVar(&cfg.RedisPassword, "redis-password", getEnv("REDIS_PASSWORD", ""), "Redis password")
	flag.IntVar(&cfg.RedisDB, "redis-db", getEnvInt("REDIS_DB", 0), "Redis database number")
	flag.DurationVar(&cfg.RedisTTL, "redis-ttl", getEnvDuration("REDIS_TTL", 4*time.Hour), "Redis snapshot TTL")

	flag.BoolVar(&cfg.TLS.Enabled, "tls-enabled", getEnvBool("TLS_ENABLED", false), "Enable TLS for HTTP server")
	flag.StringVar(&cfg.TLS.CertFile, "tls-cert-file", getEnv("TLS_CERT_FILE", ""), "TLS certificate file")
	flag.StringVar(&cfg.TLS.KeyFile, "tls-key-file", getEnv("TLS_KEY_FILE", ""), "TLS private key file")
	flag.StringVar(&cfg.TLS.CAFile, "tls-ca-file", getEnv("TLS_CA_FILE", ""), "TLS CA certificate file for client verification")

	flag.StringVar(&cfg.Adapter, "adapter", getEnv("ADAPTER", "ercot"), "Adapter type: ercot or http")
	flag.StringVar(&cfg.SnapshotDir, "out-dir", getEnv("SNAPSHOT_DIR", "data/ercot"), "Directory for .xlsx snapshots")
	flag.DurationVar(&cfg.Every, "every", getEnvDuration("POLL_EVERY", 2*time.Hour), "Poll period, aligned to midnight in the alignment zone")
	flag.DurationVar(&cfg.Settle, "settle", getEnvDuration("POLL_SETTLE", 3*time.Minute), "Delay after a poll before waiting for the next slot")
	flag.StringVar(&cfg.AlignTZ, "align-tz", getEnv("ALIGN_TZ", "Local"), "Zone whose wall clock the schedule follows")
	flag.BoolVar(&cfg.Once, "once", getEnvBool("POLL_ONCE", false), "Poll once immediately and exit")

	flag.Parse()

	cfg.AdapterConfig = parseAdapterConfig()

	return cfg
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Adapter == "" {
		return errors.New("adapter cannot be empty")
	}
	if c.SnapshotDir == "" {
		return errors.New("snapshot directory cannot be empty")
	}

	if c.Every < time.Minute || c.Every%time.Minute != 0 {
		return fmt.Errorf("poll period %v must be a whole number of minutes", c.Every)
	}
	if (24*time.Hour)%c.Every != 0 {
		return fmt.Errorf("poll period %v must divide 24h", c.Every)
	}
	if c.Settle < 0 || c.Settle >= c.Every {
		return fmt.Errorf("settle delay %v must be in [0, %v)", c.Settle, c.Every)
	}

	zone, err := time.LoadLocation(c.AlignTZ)
	if err != nil {
		return fmt.Errorf("alignment zone: %w", err)
	}
	c.AlignZone = zone

	switch c.Storage {
	case "memory":
	case "redis":
		if c.RedisAddr == "" {
			return errors.New("redis storage requires a redis address")
		}
	default:
		return fmt.Errorf("invalid storage %q (must be memory or redis)", c.Storage)
	}

	return c.TLS.Validate()
}

// StaleAfter is the age past which the latest snapshot is reported stale.
func (c *Config) StaleAfter() time.Duration {
	return 2 * c.Every
}

// parseAdapterConfig parses ADAPTER_* environment variables into a generic configuration map.
// Environment variable names are converted to camelCase for the map keys
// (ADAPTER_TIMESTAMP_PATH → timestampPath).
func parseAdapterConfig() map[string]string {
	config := make(map[string]string)

	for _, env := range os.Environ() {
		key, value, ok := strings.Cut(env, "=")
		if !ok || len(key) <= len("ADAPTER_") || !strings.HasPrefix(key, "ADAPTER_") {
			continue
		}
		config[toLowerCamelCase(key[len("ADAPTER_"):])] = value
	}

	return config
}

func toLowerCamelCase(s string) string {
	var b strings.Builder
	nextUpper := false
	for i, r := range strings.ToLower(s) {
		if r == '_' {
			nextUpper = i > 0
			continue
		}
		if nextUpper {
			r = toUpper(r)
			nextUpper = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - 32
	}
	return r
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}
