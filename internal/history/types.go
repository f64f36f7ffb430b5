package history

import (
	"time"

	"github.com/google/uuid"

	"github.com/efebarandurmaz/mixdown/internal/verify"
)

// Run is one recorded verification run.
type Run struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	// Origin records what started the run: cli, workflow, or server.
	Origin        string `json:"origin"`
	Pass          bool   `json:"pass"`
	ScenarioCount int    `json:"scenario_count"`
	PassCount     int    `json:"pass_count"`
	FailCount     int    `json:"fail_count"`
}

// ScenarioResult is one scenario outcome within a run.
type ScenarioResult struct {
	RunID     string        `json:"run_id"`
	Scenario  string        `json:"scenario"`
	GraphHash string        `json:"graph_hash,omitempty"`
	Pass      bool          `json:"pass"`
	Reason    string        `json:"reason,omitempty"`
	Order     []string      `json:"order,omitempty"`
	Trace     []string      `json:"trace,omitempty"`
	Duration  time.Duration `json:"duration_ms"`
}

// Summary aggregates the stored runs.
type Summary struct {
	TotalRuns  int       `json:"total_runs"`
	PassedRuns int       `json:"passed_runs"`
	FailedRuns int       `json:"failed_runs"`
	LastRun    time.Time `json:"last_run,omitempty"`
}

// FromReport converts a verification report into a run and its results.
// Graph hashes are optional; pass nil when fingerprinting was skipped.
func FromReport(report *verify.Report, origin string, hashes map[string]string) (Run, []ScenarioResult) {
	run := Run{
		RunID:         uuid.NewString(),
		StartedAt:     report.StartedAt,
		FinishedAt:    report.EndedAt,
		Origin:        origin,
		Pass:          report.Pass,
		ScenarioCount: report.FixtureCount,
		PassCount:     report.PassCount,
		FailCount:     report.FailCount,
	}

	results := make([]ScenarioResult, 0, len(report.Results))
	for _, res := range report.Results {
		sr := ScenarioResult{
			RunID:    run.RunID,
			Scenario: res.Scenario,
			Pass:     res.Diff.Pass && res.Error == "",
			Reason:   res.Diff.Reason,
			Duration: res.Duration,
		}
		if res.Error != "" {
			sr.Reason = res.Error
		}
		if hashes != nil {
			sr.GraphHash = hashes[res.Scenario]
		}
		results = append(results, sr)
	}
	return run, results
}
