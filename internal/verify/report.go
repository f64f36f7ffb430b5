package verify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Report is the evidence bundle for one verification run, suitable for
// archiving next to the fixtures it replayed.
type Report struct {
	StartedAt time.Time `json:"started_at"`
	EndedAt   time.Time `json:"ended_at"`
	Pass      bool      `json:"pass"`

	FixtureCount int `json:"fixture_count"`
	PassCount    int `json:"pass_count"`
	FailCount    int `json:"fail_count"`

	Results []Result `json:"results"`
}

// Result is one fixture replay.
type Result struct {
	Fixture  string        `json:"fixture"`
	Scenario string        `json:"scenario"`
	Diff     DiffResult    `json:"diff"`
	Duration time.Duration `json:"duration_ms"`
	Error    string        `json:"error,omitempty"`
}

func NewReport() *Report {
	return &Report{StartedAt: time.Now()}
}

func (r *Report) Add(res Result) {
	r.Results = append(r.Results, res)
}

// Finish freezes the counters. Safe to call more than once.
func (r *Report) Finish() {
	r.EndedAt = time.Now()
	r.FixtureCount = len(r.Results)
	r.PassCount = 0
	for _, res := range r.Results {
		if res.Diff.Pass && res.Error == "" {
			r.PassCount++
		}
	}
	r.FailCount = r.FixtureCount - r.PassCount
	r.Pass = r.FailCount == 0
}

// Write stores the report as summary.json under dir.
func (r *Report) Write(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "summary.json"), b, 0o644)
}

func (r *Report) String() string {
	return fmt.Sprintf("verify: %d fixtures, %d pass, %d fail", r.FixtureCount, r.PassCount, r.FailCount)
}

// FormatReport renders a human-readable run summary.
func FormatReport(r *Report) string {
	var b strings.Builder
	b.WriteString("Verification Report\n")
	b.WriteString("===================\n\n")
	b.WriteString(fmt.Sprintf("Fixtures:  %d\n", r.FixtureCount))
	b.WriteString(fmt.Sprintf("Passed:    %d\n", r.PassCount))
	b.WriteString(fmt.Sprintf("Failed:    %d\n", r.FailCount))
	if !r.EndedAt.IsZero() {
		b.WriteString(fmt.Sprintf("Duration:  %s\n", r.EndedAt.Sub(r.StartedAt).Round(time.Millisecond)))
	}

	var failed []Result
	for _, res := range r.Results {
		if !res.Diff.Pass || res.Error != "" {
			failed = append(failed, res)
		}
	}
	if len(failed) > 0 {
		b.WriteString("\nFailures:\n")
		for _, res := range failed {
			reason := res.Diff.Reason
			if res.Error != "" {
				reason = res.Error
			}
			b.WriteString(fmt.Sprintf("  - %s: %s\n", res.Fixture, reason))
		}
	}
	return b.String()
}
