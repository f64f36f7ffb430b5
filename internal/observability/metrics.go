package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ScenarioExecutionsTotal counts scenario executions by outcome.
	ScenarioExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixdown_scenario_executions_total",
			Help: "Total number of scenario executions",
		},
		[]string{"scenario", "result"},
	)

	// ScenarioDuration tracks end-to-end execution latency per scenario.
	ScenarioDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mixdown_scenario_duration_seconds",
			Help:    "Scenario execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"scenario"},
	)

	// FixturesTotal counts fixture replays by result.
	FixturesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixdown_fixtures_total",
			Help: "Total number of fixture replays",
		},
		[]string{"result"},
	)

	// VerifyRunsTotal counts verification runs by result.
	VerifyRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixdown_verify_runs_total",
			Help: "Total number of verification runs",
		},
		[]string{"result"},
	)

	// VerifyDuration tracks verification run latency.
	VerifyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mixdown_verify_duration_seconds",
			Help:    "Verification run duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// CacheLookupsTotal counts outcome cache lookups by result.
	CacheLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mixdown_cache_lookups_total",
			Help: "Total number of outcome cache lookups",
		},
		[]string{"result"},
	)

	// SnapshotsTotal counts captured snapshots.
	SnapshotsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "mixdown_snapshots_total",
			Help: "Total number of snapshots captured",
		},
	)

	// ActiveWorkers tracks the number of running workflow workers.
	ActiveWorkers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mixdown_active_workers",
			Help: "Number of active workflow workers",
		},
	)
)

func init() {
	// Register metrics with the default registry
	prometheus.MustRegister(ScenarioExecutionsTotal)
	prometheus.MustRegister(ScenarioDuration)
	prometheus.MustRegister(FixturesTotal)
	prometheus.MustRegister(VerifyRunsTotal)
	prometheus.MustRegister(VerifyDuration)
	prometheus.MustRegister(CacheLookupsTotal)
	prometheus.MustRegister(SnapshotsTotal)
	prometheus.MustRegister(ActiveWorkers)
}

// MetricsHandler returns the HTTP handler serving the metrics endpoint.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordScenarioExecution records one scenario execution.
func RecordScenarioExecution(scenario string, duration time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	ScenarioExecutionsTotal.WithLabelValues(scenario, result).Inc()
	ScenarioDuration.WithLabelValues(scenario).Observe(duration.Seconds())
}

// RecordFixture records a single fixture replay result.
func RecordFixture(passed bool) {
	if passed {
		FixturesTotal.WithLabelValues("pass").Inc()
	} else {
		FixturesTotal.WithLabelValues("fail").Inc()
	}
}

// RecordVerifyRun records a completed verification run.
func RecordVerifyRun(pass bool, duration time.Duration) {
	result := "fail"
	if pass {
		result = "pass"
	}
	VerifyRunsTotal.WithLabelValues(result).Inc()
	VerifyDuration.Observe(duration.Seconds())
}

// RecordCacheLookup records an outcome cache hit or miss.
func RecordCacheLookup(hit bool) {
	if hit {
		CacheLookupsTotal.WithLabelValues("hit").Inc()
	} else {
		CacheLookupsTotal.WithLabelValues("miss").Inc()
	}
}

// RecordSnapshot records a snapshot capture.
func RecordSnapshot() {
	SnapshotsTotal.Inc()
}
