package config

import (
	"flag"
	"os"
	"testing"
	"time"
	_ "time/tzdata"
)

func parseArgs(t *testing.T, args ...string) *Config {
	t.Helper()
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)

	orig := os.Args
	t.Cleanup(func() { os.Args = orig })
	os.Args = append([]string{"poller"}, args...)

	return ParseFlags()
}

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "environment variable set",
			key:          "TEST_VAR",
			defaultValue: "default",
			envValue:     "from-env",
			want:         "from-env",
		},
		{
			name:         "environment variable not set",
			key:          "NONEXISTENT_VAR",
			defaultValue: "default",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}

			if got := getEnv(tt.key, tt.defaultValue); got != tt.want {
				t.Errorf("getEnv() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name     string
		envValue string
		want     time.Duration
	}{
		{"valid duration", "90m", 90 * time.Minute},
		{"invalid duration", "soon", time.Hour},
		{"not set", "", time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv("TEST_DURATION", tt.envValue)
			}
			if got := getEnvDuration("TEST_DURATION", time.Hour); got != tt.want {
				t.Errorf("getEnvDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		envValue string
		want     bool
	}{
		{"true", true},
		{"1", true},
		{"false", false},
		{"yes", false},
	}

	for _, tt := range tests {
		t.Run(tt.envValue, func(t *testing.T) {
			t.Setenv("TEST_BOOL", tt.envValue)
			if got := getEnvBool("TEST_BOOL", true); got != tt.want {
				t.Errorf("getEnvBool(%q) = %v, want %v", tt.envValue, got, tt.want)
			}
		})
	}
}

func TestToLowerCamelCase(t *testing.T) {
	tests := map[string]string{
		"URL":            "url",
		"TIMESTAMP_PATH": "timestampPath",
		"TEMPLATE_VARS":  "templateVars",
		"HEADERS":        "headers",
	}
	for in, want := range tests {
		if got := toLowerCamelCase(in); got != want {
			t.Errorf("toLowerCamelCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConfig_Defaults(t *testing.T) {
	cfg := parseArgs(t)

	if cfg.Listen != ":8082" {
		t.Errorf("Listen = %q, want :8082", cfg.Listen)
	}
	if cfg.Adapter != "ercot" {
		t.Errorf("Adapter = %q, want ercot", cfg.Adapter)
	}
	if cfg.SnapshotDir != "data/ercot" {
		t.Errorf("SnapshotDir = %q", cfg.SnapshotDir)
	}
	if cfg.Every != 2*time.Hour {
		t.Errorf("Every = %v, want 2h", cfg.Every)
	}
	if cfg.Settle != 3*time.Minute {
		t.Errorf("Settle = %v, want 3m", cfg.Settle)
	}
	if cfg.AlignTZ != "Local" {
		t.Errorf("AlignTZ = %q, want Local", cfg.AlignTZ)
	}
	if cfg.Once {
		t.Error("Once should default to false")
	}
	if cfg.Storage != "memory" {
		t.Errorf("Storage = %q, want memory", cfg.Storage)
	}
	if cfg.RedisTTL != 4*time.Hour {
		t.Errorf("RedisTTL = %v, want 4h", cfg.RedisTTL)
	}
	if cfg.StaleAfter() != 4*time.Hour {
		t.Errorf("StaleAfter = %v, want 4h", cfg.StaleAfter())
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.AlignZone != time.Local {
		t.Errorf("AlignZone = %v, want Local", cfg.AlignZone)
	}
}

func TestConfig_CustomValues(t *testing.T) {
	t.Setenv("ADAPTER_URL", "http://mirror.local/as.json")
	t.Setenv("ADAPTER_TIMESTAMP_PATH", "rows.#.ts")
	t.Setenv("POLL_SETTLE", "1m")

	cfg := parseArgs(t,
		"-adapter=http",
		"-out-dir=/var/lib/gridsnap",
		"-every=30m",
		"-align-tz=America/Chicago",
		"-once",
		"-storage=redis",
		"-redis-addr=redis:6379",
		"-log-level=debug",
	)

	if cfg.Adapter != "http" {
		t.Errorf("Adapter = %q", cfg.Adapter)
	}
	if cfg.AdapterConfig["url"] != "http://mirror.local/as.json" {
		t.Errorf("AdapterConfig[url] = %q", cfg.AdapterConfig["url"])
	}
	if cfg.AdapterConfig["timestampPath"] != "rows.#.ts" {
		t.Errorf("AdapterConfig[timestampPath] = %q", cfg.AdapterConfig["timestampPath"])
	}
	if cfg.Every != 30*time.Minute || cfg.Settle != time.Minute {
		t.Errorf("schedule = %v / %v", cfg.Every, cfg.Settle)
	}
	if !cfg.Once {
		t.Error("Once = false, want true")
	}
	if cfg.Storage != "redis" || cfg.RedisAddr != "redis:6379" {
		t.Errorf("storage = %s %s", cfg.Storage, cfg.RedisAddr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() Config {
		return Config{
			Adapter:     "ercot",
			SnapshotDir: "data",
			Every:       2 * time.Hour,
			Settle:      3 * time.Minute,
			AlignTZ:     "UTC",
			Storage:     "memory",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(*Config) {}, false},
		{"empty adapter", func(c *Config) { c.Adapter = "" }, true},
		{"empty dir", func(c *Config) { c.SnapshotDir = "" }, true},
		{"sub-minute period", func(c *Config) { c.Every = 30 * time.Second }, true},
		{"period not dividing a day", func(c *Config) { c.Every = 7 * time.Hour }, true},
		{"settle too long", func(c *Config) { c.Settle = 2 * time.Hour }, true},
		{"negative settle", func(c *Config) { c.Settle = -time.Second }, true},
		{"zero settle", func(c *Config) { c.Settle = 0 }, false},
		{"bad zone", func(c *Config) { c.AlignTZ = "Atlantis/Central" }, true},
		{"bad storage", func(c *Config) { c.Storage = "disk" }, true},
		{"redis without addr", func(c *Config) { c.Storage = "redis" }, true},
		{"tls without files", func(c *Config) { c.TLS.Enabled = true }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
