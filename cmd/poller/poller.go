// Package main implements the dashboard poll loop.
//
// This file contains the Poller type which orchestrates one poll:
//
//	collect → name snapshot → write .xlsx → store latest
//
// The Poller runs continuously via Run(), executing Tick() at every slot of
// its Schedule. A failed tick is logged and counted; the loop keeps running.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/HatiCode/gridsnap/cmd/poller/metrics"
	"github.com/HatiCode/gridsnap/pkg/adapters"
	"github.com/HatiCode/gridsnap/pkg/snapshot"
	"github.com/HatiCode/gridsnap/pkg/storage"
)

// Poller writes one snapshot file per scheduled poll.
type Poller struct {
	adapter  adapters.Adapter
	outDir   string
	store    storage.Store
	schedule Schedule
	logger   *slog.Logger
	metrics  *metrics.Metrics

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a new Poller. store and m may be nil.
func New(
	adapter adapters.Adapter,
	outDir string,
	store storage.Store,
	schedule Schedule,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		adapter:  adapter,
		outDir:   outDir,
		store:    store,
		schedule: schedule,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
		sleep:    sleepCtx,
	}
}

// Run waits for each slot of the schedule and polls.
// Blocks until context is canceled.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("starting poll loop",
		"every", p.schedule.Every,
		"settle", p.schedule.Settle,
		"zone", p.schedule.Zone,
	)

	for {
		next := p.schedule.Next(p.now())
		p.logger.Info("waiting for next poll", "at", next)

		if err := p.sleep(ctx, next.Sub(p.now())); err != nil {
			p.logger.Info("poll loop stopped")
			return err
		}

		if _, err := p.Tick(ctx); err != nil {
			if ctx.Err() != nil {
				p.logger.Info("poll loop stopped")
				return ctx.Err()
			}
			p.logger.Error("poll tick failed", "error", err)
		}

		if err := p.sleep(ctx, p.schedule.Settle); err != nil {
			p.logger.Info("poll loop stopped")
			return err
		}
	}
}

// Tick performs one poll and returns the stored snapshot.
// Exported for testing purposes.
func (p *Poller) Tick(ctx context.Context) (storage.Snapshot, error) {
	start := time.Now()

	df, err := p.adapter.Collect(ctx)
	if err != nil {
		p.recordError("adapter", "collect_failed")
		return storage.Snapshot{}, fmt.Errorf("collect: %w", err)
	}
	collectDuration := time.Since(start)

	if len(df.Rows) == 0 || len(df.Columns) == 0 {
		p.recordError("adapter", "empty_response")
		return storage.Snapshot{}, errors.New("collect: response holds no rows")
	}
	if p.metrics != nil {
		p.metrics.RecordPoll(collectDuration, len(df.Rows))
	}

	// Adapters put the time column first.
	name, err := snapshot.FileName(df, df.Columns[0])
	if err != nil {
		p.recordError("snapshot", "name_failed")
		return storage.Snapshot{}, err
	}

	writeStart := time.Now()
	path := filepath.Join(p.outDir, name)
	if err := snapshot.Write(path, df.Columns, df); err != nil {
		p.recordError("snapshot", "write_failed")
		return storage.Snapshot{}, err
	}
	writeDuration := time.Since(writeStart)
	if p.metrics != nil {
		p.metrics.RecordWrite(writeDuration)
	}

	snap := storage.Snapshot{
		Source:     p.adapter.Name(),
		File:       name,
		CapturedAt: p.now(),
		Columns:    df.Columns,
		Rows:       df.Rows,
	}

	if p.store != nil {
		if err := p.store.Put(ctx, snap); err != nil {
			// The file is on disk; only the HTTP view is behind.
			p.recordError("store", "put_failed")
			p.logger.Warn("failed to store latest snapshot", "source", snap.Source, "error", err)
		}
	}

	if p.metrics != nil {
		p.metrics.RecordSuccess(snap.CapturedAt)
	}

	p.logger.Info("snapshot written",
		"source", snap.Source,
		"file", path,
		"rows", len(df.Rows),
		"collect_ms", collectDuration.Milliseconds(),
		"write_ms", writeDuration.Milliseconds(),
		"total_ms", time.Since(start).Milliseconds(),
	)

	return snap, nil
}

func (p *Poller) recordError(component, reason string) {
	if p.metrics != nil {
		p.metrics.RecordError(component, reason)
	}
}
