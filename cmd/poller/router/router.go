// Package router configures HTTP routes for the poller's HTTP API.
//
// Routes configured:
//   - GET /snapshot/latest?source=<name> - Latest polled snapshot as JSON
//   - GET /healthz - 200 OK, or 503 when a remote store does not answer
//   - GET /metrics - Prometheus metrics endpoint
//
// Snapshots older than the stale threshold carry an X-Gridsnap-Stale header.
package router

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HatiCode/gridsnap/pkg/httpx"
	"github.com/HatiCode/gridsnap/pkg/storage"
)

// StaleHeader is set on snapshot responses older than the stale threshold.
const StaleHeader = "X-Gridsnap-Stale"

// SetupRoutes configures HTTP endpoints for the poller. Metrics are served
// from gatherer. defaultSource answers requests without a source parameter.
func SetupRoutes(
	store storage.Store,
	gatherer prometheus.Gatherer,
	defaultSource string,
	staleAfter time.Duration,
	logger *slog.Logger,
) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	var checks []httpx.Check
	if p, ok := store.(storage.Pinger); ok {
		checks = append(checks, p.Ping)
	}

	mux.Handle("GET /healthz", httpx.Health(2*time.Second, checks...))
	mux.HandleFunc("GET /snapshot/latest", handleGetSnapshot(store, defaultSource, staleAfter, logger))
	mux.Handle("GET /metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return httpx.Chain(mux,
		httpx.Recover(logger),
		httpx.Logging(logger),
	)
}

// handleGetSnapshot returns a handler for GET /snapshot/latest?source=<name>.
func handleGetSnapshot(store storage.Store, defaultSource string, staleAfter time.Duration, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		source := r.URL.Query().Get("source")
		if source == "" {
			source = defaultSource
		}

		if err := storage.ValidateSource(source); err != nil {
			httpx.Error(w, http.StatusBadRequest, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		snapshot, found, err := store.GetLatest(ctx, source)
		if err != nil {
			logger.Error("failed to get snapshot", "source", source, "error", err)
			httpx.Error(w, http.StatusInternalServerError, "internal server error")
			return
		}

		if !found {
			httpx.Error(w, http.StatusNotFound, fmt.Sprintf("no snapshot for source %q", source))
			return
		}

		if time.Since(snapshot.CapturedAt) > staleAfter {
			w.Header().Set(StaleHeader, "true")
		}

		if err := httpx.WriteJSON(w, http.StatusOK, snapshot); err != nil {
			logger.Error("failed to write JSON response", "error", err)
		}
	}
}
