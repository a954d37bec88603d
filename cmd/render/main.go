// Command render rebuilds the ancillary-services time series from a directory
// of .xlsx snapshots and draws one chart per field.
//
// The run reads every snapshot, merges and deduplicates the rows, splits the
// series at data gaps, resamples each run on a uniform grid and converts the
// timestamps to the display zone. It then writes:
//   - <out>/all/<field>.png - the whole history of each field
//   - <out>/day/<field>/<field>_<date>.png - one chart per display-zone day
//
// Usage:
//
//	render -source-dir=data/ercot -out=plots -display-tz=America/Chicago
//
// Environment variables:
//
//	SOURCE_DIR    - Snapshot directory (default: data)
//	FIELDS        - Comma-separated fields (default: the 8 ERCOT fields)
//	TIME_COLUMN   - Timestamp column (default: Time)
//	DISPLAY_TZ    - Chart zone (default: America/Chicago)
//	SOURCE_TZ     - Zone of naive timestamps (default: UTC)
//	OUTPUT_DIR    - Chart directory (default: plots)
//	MODES         - Chart modes, all and/or day (default: all,day)
//	PARQUET_PATH  - Optional Parquet export of the final series
//	LOG_LEVEL     - Logging level: debug, info, warn, error (default: info)
//	LOG_FORMAT    - Logging format: text, json (default: text)
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/HatiCode/gridsnap/cmd/internal/logger"
	"github.com/HatiCode/gridsnap/cmd/render/config"
	"github.com/HatiCode/gridsnap/pkg/chart"
	"github.com/HatiCode/gridsnap/pkg/series"
)

// version is set via ldflags at build time
var version = "dev"

func main() {
	cfg := config.ParseFlags()

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(log)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	log.Info("starting gridsnap render",
		"version", version,
		"source_dir", cfg.SourceDir,
		"fields", len(cfg.Fields),
		"display_tz", cfg.DisplayTZ,
		"modes", cfg.Modes,
	)

	loader := series.NewLoader(cfg.Fields, log)
	loader.TimeColumn = cfg.TimeColumn

	r := New(
		cfg.SourceDir,
		loader,
		cfg.SourceZone,
		cfg.DisplayZone,
		chart.NewPNGSink(cfg.OutputDir, cfg.Width, cfg.Height),
		Options{
			Continuous:  cfg.HasMode(config.ModeAll),
			Daily:       cfg.HasMode(config.ModeDay),
			ParquetPath: cfg.ParquetPath,
		},
		log,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if _, err := r.Run(ctx); err != nil {
		log.Error("render failed", "error", err)
		stop()
		os.Exit(1)
	}
}
