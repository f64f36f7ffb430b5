package history

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/efebarandurmaz/mixdown/internal/verify"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "mixdown.db")
	store, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleRun(id string, start time.Time, pass bool) (Run, []ScenarioResult) {
	run := Run{
		RunID:         id,
		StartedAt:     start,
		FinishedAt:    start.Add(time.Second),
		Origin:        "cli",
		Pass:          pass,
		ScenarioCount: 2,
		PassCount:     2,
		FailCount:     0,
	}
	if !pass {
		run.PassCount = 1
		run.FailCount = 1
	}
	results := []ScenarioResult{
		{RunID: id, Scenario: "diamond", GraphHash: "h1", Pass: true,
			Order:    []string{"T1", "T2", "T3", "C1"},
			Trace:    []string{"Creating C1", "Created C1"},
			Duration: 3 * time.Millisecond},
		{RunID: id, Scenario: "single-trait", Pass: pass, Reason: reasonFor(pass),
			Duration: time.Millisecond},
	}
	return run, results
}

func reasonFor(pass bool) string {
	if pass {
		return ""
	}
	return "order mismatch at 0"
}

func TestNewStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "mixdown.db")
	store, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer store.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Errorf("database file was not created at %s", dbPath)
	}

	for _, table := range []string{"runs", "scenario_results"} {
		var name string
		err := store.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		if err != nil {
			t.Fatalf("failed to query sqlite_master for %s: %v", table, err)
		}
	}
}

func TestSaveAndGetRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run, results := sampleRun("run-1", time.Now().UTC(), true)
	if err := store.SaveRun(ctx, run, results); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	got, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected run, got nil")
	}
	if !got.Pass || got.ScenarioCount != 2 || got.Origin != "cli" {
		t.Errorf("unexpected run: %+v", got)
	}
}

func TestGetRunMissing(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetRun(context.Background(), "nope")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for missing run, got %+v", got)
	}
}

func TestResultsRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run, results := sampleRun("run-1", time.Now().UTC(), false)
	if err := store.SaveRun(ctx, run, results); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	got, err := store.Results(ctx, "run-1")
	if err != nil {
		t.Fatalf("Results failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	// Results come back in scenario order.
	if got[0].Scenario != "diamond" {
		t.Errorf("expected diamond first, got %s", got[0].Scenario)
	}
	if len(got[0].Order) != 4 || got[0].Order[0] != "T1" {
		t.Errorf("order lost in round trip: %v", got[0].Order)
	}
	if len(got[0].Trace) != 2 {
		t.Errorf("trace lost in round trip: %v", got[0].Trace)
	}
	if got[0].Duration != 3*time.Millisecond {
		t.Errorf("duration lost in round trip: %v", got[0].Duration)
	}
	if got[1].Reason != "order mismatch at 0" {
		t.Errorf("reason lost in round trip: %q", got[1].Reason)
	}
}

func TestRecentRunsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	for i, id := range []string{"run-a", "run-b", "run-c"} {
		run, results := sampleRun(id, base.Add(time.Duration(i)*time.Minute), true)
		if err := store.SaveRun(ctx, run, results); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	runs, err := store.RecentRuns(ctx, 2)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].RunID != "run-c" || runs[1].RunID != "run-b" {
		t.Errorf("expected newest first, got %s then %s", runs[0].RunID, runs[1].RunID)
	}
}

func TestScenarioHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	for i, id := range []string{"run-a", "run-b"} {
		run, results := sampleRun(id, base.Add(time.Duration(i)*time.Minute), i == 1)
		if err := store.SaveRun(ctx, run, results); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	hist, err := store.ScenarioHistory(ctx, "single-trait", 10)
	if err != nil {
		t.Fatalf("ScenarioHistory failed: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(hist))
	}
	if hist[0].RunID != "run-b" {
		t.Errorf("expected newest first, got %s", hist[0].RunID)
	}
	if hist[0].Pass == hist[1].Pass {
		t.Error("expected one pass and one fail across runs")
	}
}

func TestPruneBeforeCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	old, oldResults := sampleRun("run-old", time.Now().UTC().Add(-48*time.Hour), true)
	recent, recentResults := sampleRun("run-new", time.Now().UTC(), true)
	if err := store.SaveRun(ctx, old, oldResults); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveRun(ctx, recent, recentResults); err != nil {
		t.Fatal(err)
	}

	pruned, err := store.PruneBefore(ctx, time.Now().UTC().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PruneBefore failed: %v", err)
	}
	if pruned != 1 {
		t.Errorf("expected 1 pruned run, got %d", pruned)
	}

	results, err := store.Results(ctx, "run-old")
	if err != nil {
		t.Fatalf("Results failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected cascaded delete of results, got %d rows", len(results))
	}
}

func TestSummarize(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	pass, passResults := sampleRun("run-pass", base, true)
	fail, failResults := sampleRun("run-fail", base.Add(time.Minute), false)
	if err := store.SaveRun(ctx, pass, passResults); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveRun(ctx, fail, failResults); err != nil {
		t.Fatal(err)
	}

	sum, err := store.Summarize(ctx)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if sum.TotalRuns != 2 || sum.PassedRuns != 1 || sum.FailedRuns != 1 {
		t.Errorf("unexpected summary: %+v", sum)
	}
	if sum.LastRun.IsZero() {
		t.Error("expected LastRun to be set")
	}
}

func TestFromReport(t *testing.T) {
	report := verify.NewReport()
	report.Add(verify.Result{
		Fixture:  "diamond",
		Scenario: "diamond",
		Diff:     verify.DiffResult{Fixture: "diamond", Pass: true},
		Duration: 2 * time.Millisecond,
	})
	report.Add(verify.Result{
		Fixture:  "ghost",
		Scenario: "ghost",
		Diff:     verify.DiffResult{Fixture: "ghost", Pass: false},
		Error:    `no scenario named "ghost"`,
	})
	report.Finish()

	run, results := FromReport(report, "cli", map[string]string{"diamond": "h1"})
	if run.RunID == "" {
		t.Error("expected generated run id")
	}
	if run.Origin != "cli" {
		t.Errorf("expected cli origin, got %s", run.Origin)
	}
	if run.PassCount != 1 || run.FailCount != 1 {
		t.Errorf("unexpected counts: %+v", run)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].GraphHash != "h1" {
		t.Errorf("expected graph hash attached, got %q", results[0].GraphHash)
	}
	if results[1].Reason == "" {
		t.Error("expected error carried into reason")
	}
}
