package dashboard

import "time"

// RunStatus represents the state of a verification run.
type RunStatus string

const (
	StatusPending   RunStatus = "pending"
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
)

// PhaseKind identifies a verification pipeline phase.
type PhaseKind string

const (
	PhaseExecute  PhaseKind = "execute"
	PhaseReplay   PhaseKind = "replay"
	PhaseGates    PhaseKind = "gates"
	PhaseSnapshot PhaseKind = "snapshot"
)

// VerificationRun represents a single end-to-end run of the scenario corpus.
type VerificationRun struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	Origin         string        `json:"origin"`
	Status         RunStatus     `json:"status"`
	Phases         []PhaseResult `json:"phases"`
	StartedAt      time.Time     `json:"started_at"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
	Error          string        `json:"error,omitempty"`
	ScenarioCount  int           `json:"scenario_count"`
	FixtureCount   int           `json:"fixture_count"`
	FixturesPassed int           `json:"fixtures_passed"`
	FixturesFailed int           `json:"fixtures_failed"`
	GateStatus     string        `json:"gate_status,omitempty"`
	SnapshotID     string        `json:"snapshot_id,omitempty"`
}

// PhaseResult represents a single pipeline phase execution.
type PhaseResult struct {
	Phase       PhaseKind     `json:"phase"`
	Status      RunStatus     `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration_ms"`
	Error       string        `json:"error,omitempty"`
	Metrics     PhaseMetrics  `json:"metrics"`
}

// PhaseMetrics holds per-phase counts. Items is whatever the phase
// processes: scenarios for execute, fixtures for replay, gates for
// gates, documents for snapshot.
type PhaseMetrics struct {
	Items   int `json:"items"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// DashboardStats holds aggregate statistics.
type DashboardStats struct {
	TotalRuns      int     `json:"total_runs"`
	ActiveRuns     int     `json:"active_runs"`
	CompletedRuns  int     `json:"completed_runs"`
	FailedRuns     int     `json:"failed_runs"`
	TotalScenarios int     `json:"total_scenarios"`
	TotalFixtures  int     `json:"total_fixtures"`
	AvgDuration    float64 `json:"avg_duration_seconds"`
	SuccessRate    float64 `json:"success_rate"`
}

// Event represents a real-time dashboard event.
type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	RunID     string      `json:"run_id,omitempty"`
	Phase     PhaseKind   `json:"phase,omitempty"`
	Data      interface{} `json:"data,omitempty"`
}

// LogEntry represents a log line for a verification run.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	RunID     string    `json:"run_id"`
	Phase     string    `json:"phase,omitempty"`
}
