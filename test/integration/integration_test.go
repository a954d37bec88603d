//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/HatiCode/gridsnap/cmd/poller/router"
	"github.com/HatiCode/gridsnap/pkg/adapters"
	"github.com/HatiCode/gridsnap/pkg/series"
	"github.com/HatiCode/gridsnap/pkg/snapshot"
	"github.com/HatiCode/gridsnap/pkg/storage"
)

const dashboardJSON = `{"ascapmon": [` +
	`{"tagcLastTime": 1717200000000, "deployedRegUp": 100, "undeployedRegUp": 200, "deployedRegDown": 30, "undeployedRegDown": 40, "rrs": 2500, "nsrs": 1500, "ecrs": 900},` +
	`{"tagcLastTime": 1717200010000, "deployedRegUp": 101, "undeployedRegUp": 201, "deployedRegDown": 31, "undeployedRegDown": 41, "rrs": 2510, "nsrs": 1510, "ecrs": 910},` +
	`{"tagcLastTime": 1717200020000, "deployedRegUp": 102, "undeployedRegUp": 202, "deployedRegDown": 32, "undeployedRegDown": 42, "rrs": 2520, "nsrs": 1520, "ecrs": 920},` +
	`{"tagcLastTime": 1717200040000, "deployedRegUp": 104, "undeployedRegUp": 204, "deployedRegDown": 34, "undeployedRegDown": 44, "rrs": 2540, "nsrs": 1540, "ecrs": 940}` +
	`], "data": [{"currentFrequency": 60.01}, {"currentFrequency": 59.99}, {"currentFrequency": 60.0}, {"currentFrequency": 60.02}]}`

// startDashboard serves dashboardJSON on every path from a throwaway container.
func startDashboard(ctx context.Context, t *testing.T) string {
	t.Helper()

	script := `
import http.server
import socketserver

class Dashboard(http.server.BaseHTTPRequestHandler):
    def do_GET(self):
        self.send_response(200)
        self.send_header('Content-type', 'application/json')
        self.end_headers()
        self.wfile.write(b'` + dashboardJSON + `')

    def log_message(self, format, *args):
        pass

with socketserver.TCPServer(("", 8080), Dashboard) as httpd:
    httpd.serve_forever()
`

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "python:3.11-alpine",
			ExposedPorts: []string{"8080/tcp"},
			Cmd:          []string{"python", "-c", script},
			WaitingFor:   wait.ForListeningPort("8080/tcp").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("Failed to start dashboard container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate dashboard: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get dashboard host: %v", err)
	}
	port, err := container.MappedPort(ctx, "8080")
	if err != nil {
		t.Fatalf("Failed to get dashboard port: %v", err)
	}
	return fmt.Sprintf("http://%s:%s/api/dashboard", host, port.Port())
}

func startRedis(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("Failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate redis: %v", err)
		}
	})

	endpoint, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("Failed to get redis endpoint: %v", err)
	}
	return strings.TrimPrefix(endpoint, "redis://")
}

// TestPollStoreRender follows one poll from the dashboard through Redis and
// the HTTP view, then rebuilds the series from the written snapshot.
func TestPollStoreRender(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// 1. Collect from the dashboard container
	adapter, err := adapters.New("ercot", map[string]string{"url": startDashboard(ctx, t)})
	if err != nil {
		t.Fatalf("Failed to create adapter: %v", err)
	}
	df, err := adapter.Collect(ctx)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(df.Rows) != 4 {
		t.Fatalf("Expected 4 rows, got %d", len(df.Rows))
	}

	// 2. Write the snapshot
	name, err := snapshot.FileName(df, df.Columns[0])
	if err != nil {
		t.Fatalf("FileName failed: %v", err)
	}
	if name != "20240601-000000-000040.xlsx" {
		t.Errorf("Unexpected snapshot name %s", name)
	}
	dir := t.TempDir()
	if err := snapshot.Write(filepath.Join(dir, name), df.Columns, df); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	// 3. Keep it in Redis and read it back over HTTP
	store, err := storage.NewRedisStore(startRedis(ctx, t), "", 0, time.Hour)
	if err != nil {
		t.Fatalf("Failed to create redis store: %v", err)
	}
	defer store.Close()

	if err := store.Put(ctx, storage.Snapshot{
		Source:     adapter.Name(),
		File:       name,
		CapturedAt: time.Now(),
		Columns:    df.Columns,
		Rows:       df.Rows,
	}); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	server := httptest.NewServer(router.SetupRoutes(store, prometheus.NewRegistry(), adapter.Name(), 4*time.Hour, logger))
	defer server.Close()

	resp, err := http.Get(server.URL + "/snapshot/latest")
	if err != nil {
		t.Fatalf("Failed to fetch latest snapshot: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Latest snapshot returned status %d", resp.StatusCode)
	}
	if resp.Header.Get(router.StaleHeader) != "" {
		t.Error("Fresh snapshot marked stale")
	}

	var latest storage.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&latest); err != nil {
		t.Fatalf("Failed to decode snapshot: %v", err)
	}
	if latest.File != name || len(latest.Rows) != 4 {
		t.Errorf("Latest snapshot = %s with %d rows", latest.File, len(latest.Rows))
	}

	// 4. Rebuild the series from disk
	paths, err := snapshot.List(dir)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	tables := snapshot.ReadAll(paths, func(path string, err error) {
		t.Errorf("Failed to read %s: %v", path, err)
	})

	loaded, err := series.NewLoader(nil, logger).Load(tables...)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	merged, err := series.Merge(loaded.Series)
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	resampled, seg, err := series.Resample(merged)
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}
	if seg.Interval != 10*time.Second {
		t.Errorf("Interval = %v, want 10s", seg.Interval)
	}
	// The missing 00:00:30 reading is filled on the 10 s grid.
	if resampled.Len() != 5 {
		t.Fatalf("Resampled %d samples, want 5", resampled.Len())
	}
	if rrs := resampled.Column("RRS"); rrs[3] != 2530 {
		t.Errorf("Interpolated RRS = %v, want 2530", rrs[3])
	}

	chicago, err := series.LoadZone("America/Chicago")
	if err != nil {
		t.Fatal(err)
	}
	local, err := series.Localize(resampled, time.UTC, chicago)
	if err != nil {
		t.Fatalf("Localize failed: %v", err)
	}
	if got := local.First().Format("2006-01-02 15:04"); got != "2024-05-31 19:00" {
		t.Errorf("First local time = %s", got)
	}
}
