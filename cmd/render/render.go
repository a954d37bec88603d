// Package main implements the batch reconstruction and chart pipeline.
//
// This file contains the Renderer type which orchestrates one run:
//
//	list → read → load → merge → resample → localize → charts / parquet
//
// Per-source read failures are logged and skipped. Any failure from the merge
// stage onwards aborts the run before a single chart is written.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/HatiCode/gridsnap/pkg/chart"
	"github.com/HatiCode/gridsnap/pkg/export"
	"github.com/HatiCode/gridsnap/pkg/series"
	"github.com/HatiCode/gridsnap/pkg/snapshot"
)

// Sink consumes the final series one field at a time.
type Sink interface {
	Continuous(s series.Series, field string) (string, error)
	Day(d series.Day, field string) (string, error)
}

// Options selects what a run produces.
type Options struct {
	Continuous  bool
	Daily       bool
	ParquetPath string
}

// Result summarizes a completed run.
type Result struct {
	Sources  int
	Skipped  int
	Dropped  int
	Merged   int
	Segments int
	Interval time.Duration
	Samples  int
	Charts   int
}

// Renderer reconstructs the series from a snapshot directory and hands it to
// the sink.
type Renderer struct {
	sourceDir string
	loader    *series.Loader
	source    *time.Location
	display   *time.Location
	sink      Sink
	opts      Options
	logger    *slog.Logger
}

// New creates a new Renderer.
func New(
	sourceDir string,
	loader *series.Loader,
	source, display *time.Location,
	sink Sink,
	opts Options,
	logger *slog.Logger,
) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{
		sourceDir: sourceDir,
		loader:    loader,
		source:    source,
		display:   display,
		sink:      sink,
		opts:      opts,
		logger:    logger,
	}
}

// Run executes the pipeline once.
func (r *Renderer) Run(ctx context.Context) (Result, error) {
	var res Result
	start := time.Now()

	paths, err := snapshot.List(r.sourceDir)
	if err != nil {
		return res, fmt.Errorf("list snapshots: %w", err)
	}
	res.Sources = len(paths)
	r.logger.Info("found snapshots", "dir", r.sourceDir, "files", len(paths))

	tables := snapshot.ReadAll(paths, func(path string, err error) {
		res.Skipped++
		r.logger.Warn("skipping unreadable snapshot", "file", path, "error", err)
	})
	if err := ctx.Err(); err != nil {
		return res, err
	}

	final, seg, err := r.reconstruct(ctx, tables, &res)
	if err != nil {
		return res, err
	}
	reconstructDuration := time.Since(start)

	if err := r.emit(ctx, final, &res); err != nil {
		return res, err
	}

	r.logger.Info("render complete",
		"sources", res.Sources,
		"skipped", res.Skipped,
		"dropped_rows", res.Dropped,
		"merged", res.Merged,
		"segments", seg.Count,
		"interval", seg.Interval,
		"samples", res.Samples,
		"charts", res.Charts,
		"reconstruct_ms", reconstructDuration.Milliseconds(),
		"total_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

// reconstruct runs the core stages on the loaded tables.
func (r *Renderer) reconstruct(ctx context.Context, tables []series.Table, res *Result) (series.Series, series.Segmentation, error) {
	loaded, err := r.loader.Load(tables...)
	if err != nil {
		return series.Series{}, series.Segmentation{}, fmt.Errorf("load: %w", err)
	}
	res.Skipped += len(loaded.Skipped)
	res.Dropped = loaded.Dropped

	merged, err := series.Merge(loaded.Series)
	if err != nil {
		return series.Series{}, series.Segmentation{}, err
	}
	res.Merged = merged.Len()
	r.logger.Info("merged series",
		"rows", merged.Len(),
		"duplicates", loaded.Series.Len()-merged.Len(),
		"first", merged.First(),
		"last", merged.Last(),
	)

	if err := ctx.Err(); err != nil {
		return series.Series{}, series.Segmentation{}, err
	}

	resampled, seg, err := series.Resample(merged)
	if err != nil {
		return series.Series{}, series.Segmentation{}, fmt.Errorf("resample: %w", err)
	}
	res.Segments = seg.Count
	res.Interval = seg.Interval
	r.logger.Info("resampled series",
		"interval", seg.Interval,
		"threshold", seg.Threshold,
		"segments", seg.Count,
		"samples", resampled.Len(),
	)

	var final series.Series
	if resampled.Zoned {
		r.logger.Debug("snapshot timestamps carry offsets, ignoring source zone")
		final, err = series.InZone(resampled, r.display)
	} else {
		final, err = series.Localize(resampled, r.source, r.display)
	}
	if err != nil {
		return series.Series{}, series.Segmentation{}, fmt.Errorf("normalize: %w", err)
	}
	res.Samples = final.Len()

	return final, seg, nil
}

// emit writes charts and the optional parquet export.
func (r *Renderer) emit(ctx context.Context, final series.Series, res *Result) error {
	fields := final.Fields

	if r.opts.Continuous {
		for i, field := range fields {
			if err := ctx.Err(); err != nil {
				return err
			}
			r.logger.Info(fmt.Sprintf("[%d/%d] plotting continuous chart", i+1, len(fields)), "field", field)

			path, err := r.sink.Continuous(final, field)
			if errors.Is(err, chart.ErrNoData) {
				r.logger.Warn("no readings to plot", "field", field)
				continue
			}
			if err != nil {
				return fmt.Errorf("chart %s: %w", field, err)
			}
			res.Charts++
			r.logger.Debug("chart written", "path", path)
		}
	}

	if r.opts.Daily {
		days := series.Days(final)
		for i, field := range fields {
			r.logger.Info(fmt.Sprintf("[%d/%d] plotting daily charts", i+1, len(fields)), "field", field, "days", len(days))

			for j, d := range days {
				if err := ctx.Err(); err != nil {
					return err
				}
				r.logger.Debug(fmt.Sprintf("[%d/%d] plotting day", j+1, len(days)), "field", field, "date", d.Label())

				path, err := r.sink.Day(d, field)
				if errors.Is(err, chart.ErrNoData) {
					r.logger.Debug("no readings for day", "field", field, "date", d.Label())
					continue
				}
				if err != nil {
					return fmt.Errorf("chart %s %s: %w", field, d.Label(), err)
				}
				res.Charts++
				r.logger.Debug("chart written", "path", path)
			}
		}
	}

	if r.opts.ParquetPath != "" {
		if err := export.WriteParquet(r.opts.ParquetPath, final); err != nil {
			return fmt.Errorf("export parquet: %w", err)
		}
		r.logger.Info("series exported", "path", r.opts.ParquetPath, "samples", final.Len())
	}

	return nil
}
