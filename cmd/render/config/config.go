// Package config provides configuration parsing for the render command.
//
// Settings come from command-line flags with environment variable fallbacks;
// flags take precedence over the environment, which takes precedence over
// defaults. Validate must be called before use.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/HatiCode/gridsnap/pkg/chart"
	"github.com/HatiCode/gridsnap/pkg/series"
)

// Chart modes.
const (
	ModeAll = "all"
	ModeDay = "day"
)

// Config holds all render configuration.
type Config struct {
	SourceDir   string
	Fields      []string
	TimeColumn  string
	DisplayTZ   string
	SourceTZ    string
	OutputDir   string
	Modes       []string
	Width       int
	Height      int
	ParquetPath string

	LogLevel  string
	LogFormat string

	// Resolved by Validate.
	DisplayZone *time.Location
	SourceZone  *time.Location
}

// ParseFlags parses command-line flags and environment variables into a Config.
func ParseFlags() *Config {
	cfg := &Config{}

	var fields, modes string

	flag.StringVar(&cfg.SourceDir, "source-dir", getEnv("SOURCE_DIR", "data"), "Directory holding .xlsx snapshots")
	flag.StringVar(&fields, "fields", getEnv("FIELDS", strings.Join(series.DefaultFields, ",")), "Comma-separated field columns to reconstruct")
	flag.StringVar(&cfg.TimeColumn, "time-column", getEnv("TIME_COLUMN", series.TimeColumn), "Timestamp column name")
	flag.StringVar(&cfg.DisplayTZ, "display-tz", getEnv("DISPLAY_TZ", series.DefaultDisplayZone), "Zone used for charts")
	flag.StringVar(&cfg.SourceTZ, "source-tz", getEnv("SOURCE_TZ", series.DefaultSourceZone), "Zone of naive snapshot timestamps")
	flag.StringVar(&cfg.OutputDir, "out", getEnv("OUTPUT_DIR", "plots"), "Chart output directory")
	flag.StringVar(&modes, "modes", getEnv("MODES", ModeAll+","+ModeDay), "Chart modes: all, day")
	flag.IntVar(&cfg.Width, "width", getEnvInt("CHART_WIDTH", chart.DefaultWidth), "Chart width in pixels")
	flag.IntVar(&cfg.Height, "height", getEnvInt("CHART_HEIGHT", chart.DefaultHeight), "Chart height in pixels")
	flag.StringVar(&cfg.ParquetPath, "parquet", getEnv("PARQUET_PATH", ""), "Optional Parquet export of the final series")

	flag.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "Log format: text or json")
	flag.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")

	flag.Parse()

	cfg.Fields = splitList(fields)
	cfg.Modes = splitList(modes)

	return cfg
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.SourceDir == "" {
		return errors.New("source directory cannot be empty")
	}
	if c.OutputDir == "" {
		return errors.New("output directory cannot be empty")
	}
	if c.TimeColumn == "" {
		return errors.New("time column cannot be empty")
	}

	if len(c.Fields) == 0 {
		return errors.New("at least one field is required")
	}
	seen := make(map[string]bool, len(c.Fields))
	for _, f := range c.Fields {
		if f == c.TimeColumn {
			return fmt.Errorf("field %q clashes with the time column", f)
		}
		if seen[f] {
			return fmt.Errorf("duplicate field %q", f)
		}
		seen[f] = true
	}

	for _, m := range c.Modes {
		if m != ModeAll && m != ModeDay {
			return fmt.Errorf("invalid mode %q (must be all or day)", m)
		}
	}
	if len(c.Modes) == 0 && c.ParquetPath == "" {
		return errors.New("nothing to produce: no chart modes and no parquet path")
	}

	if c.Width < 0 || c.Height < 0 {
		return fmt.Errorf("invalid chart size %dx%d", c.Width, c.Height)
	}

	display, err := series.LoadZone(c.DisplayTZ)
	if err != nil {
		return fmt.Errorf("display zone: %w", err)
	}
	source, err := series.LoadZone(c.SourceTZ)
	if err != nil {
		return fmt.Errorf("source zone: %w", err)
	}
	c.DisplayZone, c.SourceZone = display, source

	return nil
}

// HasMode reports whether mode is enabled.
func (c *Config) HasMode(mode string) bool {
	return slices.Contains(c.Modes, mode)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
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
