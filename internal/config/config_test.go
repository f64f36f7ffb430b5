package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestValidate_Empty(t *testing.T) {
	cfg := &Config{}
	warnings := cfg.Validate()
	if len(warnings) != 0 {
		t.Errorf("empty config should have no warnings, got %v", warnings)
	}
}

func TestValidate_RedisWithoutAddr(t *testing.T) {
	cfg := &Config{Cache: CacheConfig{Backend: "redis"}}
	warnings := cfg.Validate()
	found := false
	for _, w := range warnings {
		if strings.Contains(w, "addr") {
			found = true
			break
		}
	}
	if !found {
		t.Error("expected warning about missing redis addr")
	}
}

func TestValidate_UnknownCacheBackend(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		want    bool // true = should warn
	}{
		{"empty", "", false},
		{"memory", "memory", false},
		{"redis_with_addr", "redis", false},
		{"unknown", "memcached", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Cache: CacheConfig{Backend: tt.backend, Addr: "localhost:6379"}}
			warnings := cfg.Validate()
			hasWarn := false
			for _, w := range warnings {
				if strings.Contains(w, "backend") {
					hasWarn = true
				}
			}
			if hasWarn != tt.want {
				t.Errorf("backend=%q: hasWarn=%v, want=%v", tt.backend, hasWarn, tt.want)
			}
		})
	}
}

func TestValidate_NegativeRetention(t *testing.T) {
	cfg := &Config{History: HistoryConfig{RetentionDays: -1}}
	warnings := cfg.Validate()
	found := false
	for _, w := range warnings {
		if strings.Contains(w, "retention_days") {
			found = true
		}
	}
	if !found {
		t.Error("expected warning about negative retention_days")
	}
}

func TestValidate_EnabledStoresNeedEndpoints(t *testing.T) {
	cfg := &Config{
		Graph:  GraphConfig{Enabled: true},
		Vector: VectorConfig{Enabled: true},
	}
	warnings := cfg.Validate()
	if len(warnings) != 2 {
		t.Errorf("expected 2 warnings for enabled stores without endpoints, got %v", warnings)
	}
}

func TestValidate_LogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  bool
	}{
		{"", false},
		{"debug", false},
		{"info", false},
		{"warn", false},
		{"error", false},
		{"verbose", true},
	}
	for _, tt := range tests {
		cfg := &Config{Log: LogConfig{Level: tt.level}}
		warnings := cfg.Validate()
		hasWarn := false
		for _, w := range warnings {
			if strings.Contains(w, "log level") {
				hasWarn = true
			}
		}
		if hasWarn != tt.want {
			t.Errorf("level=%q: hasWarn=%v, want=%v", tt.level, hasWarn, tt.want)
		}
	}
}

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\"): %v", err)
	}

	if cfg.Cache.Backend != "memory" {
		t.Errorf("cache.backend = %q, want memory", cfg.Cache.Backend)
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("cache.ttl = %v, want 1h", cfg.Cache.TTL)
	}
	if cfg.Temporal.TaskQueue != "mixdown-verify" {
		t.Errorf("temporal.task_queue = %q, want mixdown-verify", cfg.Temporal.TaskQueue)
	}
	if cfg.Server.MaxRuns != 100 {
		t.Errorf("server.max_runs = %d, want 100", cfg.Server.MaxRuns)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("log.level = %q, want info", cfg.Log.Level)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mixdown.yaml")
	content := `
cache:
  backend: redis
  addr: redis.internal:6379
  ttl: 5m
verify:
  fixtures_path: corpus/pinned.jsonl
gates:
  fixture_pass_rate: 0.95
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Cache.Backend != "redis" {
		t.Errorf("cache.backend = %q, want redis", cfg.Cache.Backend)
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Errorf("cache.ttl = %v, want 5m", cfg.Cache.TTL)
	}
	if cfg.Verify.FixturesPath != "corpus/pinned.jsonl" {
		t.Errorf("verify.fixtures_path = %q", cfg.Verify.FixturesPath)
	}
	if cfg.Gates.FixturePassRate != 0.95 {
		t.Errorf("gates.fixture_pass_rate = %v, want 0.95", cfg.Gates.FixturePassRate)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log.level = %q, want debug", cfg.Log.Level)
	}
	// Untouched sections keep defaults
	if cfg.History.Path != "mixdown-history.db" {
		t.Errorf("history.path = %q, want default", cfg.History.Path)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Load of missing file succeeded, want error")
	}
}
