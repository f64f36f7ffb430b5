package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/efebarandurmaz/mixdown/internal/qualitygate"
)

// Config holds all application configuration.
type Config struct {
	Verify        VerifyConfig           `mapstructure:"verify"`
	History       HistoryConfig          `mapstructure:"history"`
	Cache         CacheConfig            `mapstructure:"cache"`
	Graph         GraphConfig            `mapstructure:"graph"`
	Vector        VectorConfig           `mapstructure:"vector"`
	Temporal      TemporalConfig         `mapstructure:"temporal"`
	Server        ServerConfig           `mapstructure:"server"`
	Snapshot      SnapshotConfig         `mapstructure:"snapshot"`
	Gates         qualitygate.GateConfig `mapstructure:"gates"`
	Observability ObservabilityConfig    `mapstructure:"observability"`
	Log           LogConfig              `mapstructure:"log"`
}

// VerifyConfig controls fixture verification runs.
type VerifyConfig struct {
	FixturesPath      string   `mapstructure:"fixtures_path"`
	ReportDir         string   `mapstructure:"report_dir"`
	StateDir          string   `mapstructure:"state_dir"`
	ForceAll          bool     `mapstructure:"force_all"`
	IgnoreStateFields []string `mapstructure:"ignore_state_fields"`
	IgnoreTraceNodes  []string `mapstructure:"ignore_trace_nodes"`
}

// HistoryConfig controls the run history database.
type HistoryConfig struct {
	Path          string `mapstructure:"path"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// CacheConfig selects the outcome cache backend.
type CacheConfig struct {
	Backend  string        `mapstructure:"backend"` // memory or redis
	TTL      time.Duration `mapstructure:"ttl"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
}

// GraphConfig holds Neo4j connection settings for composition storage.
type GraphConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// VectorConfig holds Qdrant settings for similarity search.
type VectorConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Collection string `mapstructure:"collection"`
}

// TemporalConfig holds workflow engine settings.
type TemporalConfig struct {
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// ServerConfig holds dashboard and health endpoint settings.
type ServerConfig struct {
	Addr       string `mapstructure:"addr"`
	HealthAddr string `mapstructure:"health_addr"`
	MaxRuns    int    `mapstructure:"max_runs"`
}

// SnapshotConfig holds snapshot store settings.
type SnapshotConfig struct {
	Dir string `mapstructure:"dir"`
}

// ObservabilityConfig holds tracing and audit settings. An empty OTLP
// endpoint disables tracing.
type ObservabilityConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	ServiceName  string `mapstructure:"service_name"`
	AuditPath    string `mapstructure:"audit_path"`
	MetricsAddr  string `mapstructure:"metrics_addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	switch c.Cache.Backend {
	case "", "memory":
	case "redis":
		if c.Cache.Addr == "" {
			warnings = append(warnings, "cache backend 'redis' is configured but addr is empty")
		}
	default:
		warnings = append(warnings, fmt.Sprintf("cache backend '%s' is unknown (expected memory or redis)", c.Cache.Backend))
	}

	if c.Cache.TTL < 0 {
		warnings = append(warnings, fmt.Sprintf("cache ttl %s is negative", c.Cache.TTL))
	}

	if c.History.RetentionDays < 0 {
		warnings = append(warnings, fmt.Sprintf("history retention_days %d is negative", c.History.RetentionDays))
	}

	if c.Graph.Enabled && c.Graph.URI == "" {
		warnings = append(warnings, "graph storage is enabled but uri is empty")
	}

	if c.Vector.Enabled && c.Vector.Host == "" {
		warnings = append(warnings, "vector search is enabled but host is empty")
	}

	if c.Temporal.Host != "" && c.Temporal.TaskQueue == "" {
		warnings = append(warnings, "temporal host is configured but task_queue is empty")
	}

	switch c.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		warnings = append(warnings, fmt.Sprintf("log level '%s' is unknown", c.Log.Level))
	}

	return warnings
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("verify.fixtures_path", "fixtures/outcomes.jsonl")
	v.SetDefault("verify.report_dir", "reports")
	v.SetDefault("verify.state_dir", ".")

	v.SetDefault("history.path", "mixdown-history.db")
	v.SetDefault("history.retention_days", 90)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.ttl", time.Hour)

	v.SetDefault("graph.uri", "bolt://localhost:7687")
	v.SetDefault("graph.username", "neo4j")

	v.SetDefault("vector.host", "localhost")
	v.SetDefault("vector.port", 6334)
	v.SetDefault("vector.collection", "mixdown-scenarios")

	v.SetDefault("temporal.host", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "mixdown-verify")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.health_addr", ":8081")
	v.SetDefault("server.max_runs", 100)

	v.SetDefault("snapshot.dir", ".mixdown-snapshots")

	v.SetDefault("observability.service_name", "mixdown")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Load reads configuration from file and environment. An empty path
// loads defaults plus MIXDOWN_* environment overrides only.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("MIXDOWN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return &cfg, nil
}
