// Command poller captures ancillary-services snapshots from a grid-operator
// dashboard.
//
// At every slot of its wall-clock schedule (by default every even hour) the
// poller fetches the dashboard JSON, writes the rows to an .xlsx snapshot named
// after the first and last sample times, and keeps the latest snapshot in a
// store served over HTTP:
//   - GET /snapshot/latest?source=<name> - Latest snapshot
//   - GET /healthz - Health check endpoint
//   - GET /metrics - Prometheus metrics endpoint
//
// Usage:
//
//	poller -adapter=ercot -out-dir=data/ercot -every=2h -settle=3m
//	poller -once   # single immediate poll, e.g. from cron
//
// Environment variables:
//
//	ADAPTER       - Adapter type: ercot or http (default: ercot)
//	ADAPTER_*     - Adapter settings, e.g. ADAPTER_URL, ADAPTER_TIMESTAMP_PATH
//	SNAPSHOT_DIR  - Snapshot directory (default: data/ercot)
//	POLL_EVERY    - Poll period (default: 2h)
//	POLL_SETTLE   - Delay after each poll (default: 3m)
//	ALIGN_TZ      - Zone of the schedule's wall clock (default: Local)
//	STORAGE       - Latest snapshot store: memory or redis (default: memory)
//	LISTEN        - HTTP listen address (default: :8082)
//	LOG_LEVEL     - Logging level: debug, info, warn, error (default: info)
//	LOG_FORMAT    - Logging format: text, json (default: text)
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/HatiCode/gridsnap/cmd/internal/logger"
	"github.com/HatiCode/gridsnap/cmd/poller/config"
	"github.com/HatiCode/gridsnap/cmd/poller/metrics"
	"github.com/HatiCode/gridsnap/cmd/poller/router"
	"github.com/HatiCode/gridsnap/pkg/adapters"
	"github.com/HatiCode/gridsnap/pkg/httpx"
	"github.com/HatiCode/gridsnap/pkg/storage"
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

	adapter, err := adapters.New(cfg.Adapter, cfg.AdapterConfig)
	if err != nil {
		log.Error("failed to create adapter", "adapter", cfg.Adapter, "error", err)
		os.Exit(1)
	}

	log.Info("starting gridsnap poller",
		"version", version,
		"adapter", adapter.Name(),
		"out_dir", cfg.SnapshotDir,
		"every", cfg.Every,
		"once", cfg.Once,
	)

	m := metrics.New(prometheus.DefaultRegisterer, adapter.Name())

	store, closeStore, err := newStore(cfg, log)
	if err != nil {
		log.Error("failed to create store", "storage", cfg.Storage, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	p := New(adapter, cfg.SnapshotDir, store, Schedule{
		Every:  cfg.Every,
		Settle: cfg.Settle,
		Zone:   cfg.AlignZone,
	}, log, m)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if cfg.Once {
		if _, err := p.Tick(ctx); err != nil {
			log.Error("poll failed", "error", err)
			closeStore()
			os.Exit(1)
		}
		return
	}

	tlsConfig, err := cfg.TLS.ServerConfig()
	if err != nil {
		log.Error("invalid TLS configuration", "error", err)
		os.Exit(1)
	}

	handler := router.SetupRoutes(store, prometheus.DefaultGatherer, adapter.Name(), cfg.StaleAfter(), log)
	httpServer := httpx.NewServer(cfg.Listen, handler, log,
		httpx.WithTLS(tlsConfig, cfg.TLS.CertFile, cfg.TLS.KeyFile),
	)

	// Either side stopping takes the other down with it.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		defer cancel()
		if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("poll loop failed", "error", err)
		}
	}()

	if err := httpServer.Run(ctx); err != nil {
		log.Error("server failed", "error", err)
		cancel()
		closeStore()
		os.Exit(1)
	}

	log.Info("shutdown complete")
}

// newStore builds the configured latest-snapshot store and its cleanup.
func newStore(cfg *config.Config, log *slog.Logger) (storage.Store, func(), error) {
	if cfg.Storage == "redis" {
		rs, err := storage.NewRedisStore(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisTTL)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using redis store", "addr", cfg.RedisAddr, "db", cfg.RedisDB, "ttl", cfg.RedisTTL)
		return rs, func() {
			if err := rs.Close(); err != nil {
				log.Error("failed to close store", "error", err)
			}
		}, nil
	}

	ms := storage.NewMemoryStoreWithTTL(cfg.StaleAfter()*2, time.Minute)
	return ms, ms.Stop, nil
}
