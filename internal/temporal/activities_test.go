package temporal

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/efebarandurmaz/mixdown/internal/catalog"
	"github.com/efebarandurmaz/mixdown/internal/history"
	"github.com/efebarandurmaz/mixdown/internal/qualitygate"
	"github.com/efebarandurmaz/mixdown/internal/verify"
)

// setupTestDependencies wires the builtin registry into the activities.
func setupTestDependencies() *catalog.Registry {
	reg := catalog.Builtin()
	SetDependencies(&Dependencies{Registry: reg})
	return reg
}

func TestSetDependencies(t *testing.T) {
	reg := catalog.Builtin()
	testDeps := &Dependencies{Registry: reg}

	SetDependencies(testDeps)

	if deps == nil {
		t.Fatal("SetDependencies failed: deps is nil")
	}
	if deps.Registry != reg {
		t.Error("SetDependencies did not set registry correctly")
	}
}

func TestListScenariosActivity_All(t *testing.T) {
	reg := setupTestDependencies()

	ctx := context.Background()
	result, err := ListScenariosActivity(ctx, VerifyCorpusInput{})
	if err != nil {
		t.Fatalf("ListScenariosActivity failed: %v", err)
	}

	if len(result.Names) != reg.Len() {
		t.Fatalf("expected %d names, got %d", reg.Len(), len(result.Names))
	}
	for i := 1; i < len(result.Names); i++ {
		if result.Names[i-1] >= result.Names[i] {
			t.Fatalf("names not sorted: %v", result.Names)
		}
	}
}

func TestListScenariosActivity_Filtered(t *testing.T) {
	setupTestDependencies()

	ctx := context.Background()
	result, err := ListScenariosActivity(ctx, VerifyCorpusInput{
		Scenarios: []string{"diamond", "single-trait"},
	})
	if err != nil {
		t.Fatalf("ListScenariosActivity failed: %v", err)
	}

	if len(result.Names) != 2 {
		t.Fatalf("expected 2 names, got %v", result.Names)
	}
}

func TestListScenariosActivity_Unknown(t *testing.T) {
	setupTestDependencies()

	ctx := context.Background()
	_, err := ListScenariosActivity(ctx, VerifyCorpusInput{
		Scenarios: []string{"diamond", "no-such-scenario"},
	})
	if err == nil {
		t.Fatal("expected error for unknown scenario")
	}
}

func TestExecuteScenarioActivity_Diamond(t *testing.T) {
	reg := setupTestDependencies()

	ctx := context.Background()
	result, err := ExecuteScenarioActivity(ctx, "diamond")
	if err != nil {
		t.Fatalf("ExecuteScenarioActivity failed: %v", err)
	}

	if result.OutcomeJSON == "" {
		t.Fatal("expected non-empty OutcomeJSON")
	}

	// Unmarshal to verify it's valid JSON
	var out catalog.Outcome
	if err := json.Unmarshal([]byte(result.OutcomeJSON), &out); err != nil {
		t.Fatalf("OutcomeJSON is not valid JSON: %v", err)
	}

	s, _ := reg.Get("diamond")
	if len(out.Order) != len(s.WantOrder) {
		t.Fatalf("order = %v, want %v", out.Order, s.WantOrder)
	}
	for i := range s.WantOrder {
		if out.Order[i] != s.WantOrder[i] {
			t.Fatalf("order = %v, want %v", out.Order, s.WantOrder)
		}
	}
}

func TestExecuteScenarioActivity_Unknown(t *testing.T) {
	setupTestDependencies()

	ctx := context.Background()
	_, err := ExecuteScenarioActivity(ctx, "no-such-scenario")
	if err == nil {
		t.Fatal("expected error for unknown scenario")
	}
}

func TestReplayFixturesActivity_Pins(t *testing.T) {
	reg := setupTestDependencies()

	ctx := context.Background()
	result, err := ReplayFixturesActivity(ctx, VerifyCorpusInput{})
	if err != nil {
		t.Fatalf("ReplayFixturesActivity failed: %v", err)
	}

	want := len(verify.Pinned(reg))
	if result.FixtureCount != want {
		t.Fatalf("expected %d fixtures, got %d", want, result.FixtureCount)
	}
	if !result.Pass {
		t.Fatalf("expected builtin pins to pass, got %d failures", result.FailCount)
	}

	var report verify.Report
	if err := json.Unmarshal([]byte(result.ReportJSON), &report); err != nil {
		t.Fatalf("ReportJSON is not valid JSON: %v", err)
	}
	if report.PassCount != result.PassCount {
		t.Fatalf("report PassCount %d != result PassCount %d", report.PassCount, result.PassCount)
	}
}

func TestReplayFixturesActivity_FromFile(t *testing.T) {
	setupTestDependencies()

	// One fixture with a deliberately wrong order
	fixtures := []verify.Fixture{
		{Name: "good", Scenario: "single-trait", Order: []string{"T1", "C1"}},
		{Name: "stale", Scenario: "diamond", Order: []string{"C1", "T1"}},
	}
	path := filepath.Join(t.TempDir(), "fixtures.jsonl")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := verify.WriteJSONL(f, fixtures); err != nil {
		t.Fatal(err)
	}
	f.Close()

	ctx := context.Background()
	result, err := ReplayFixturesActivity(ctx, VerifyCorpusInput{FixturesPath: path})
	if err != nil {
		t.Fatalf("ReplayFixturesActivity failed: %v", err)
	}

	if result.FixtureCount != 2 {
		t.Fatalf("expected 2 fixtures, got %d", result.FixtureCount)
	}
	if result.Pass {
		t.Fatal("expected run to fail with a stale fixture")
	}
	if result.FailCount != 1 {
		t.Fatalf("expected 1 failure, got %d", result.FailCount)
	}
}

func TestReplayFixturesActivity_MissingFile(t *testing.T) {
	setupTestDependencies()

	ctx := context.Background()
	_, err := ReplayFixturesActivity(ctx, VerifyCorpusInput{
		FixturesPath: filepath.Join(t.TempDir(), "absent.jsonl"),
	})
	if err == nil {
		t.Fatal("expected error for missing fixtures file")
	}
}

func TestReplayFixturesActivity_RecordsHistory(t *testing.T) {
	reg := catalog.Builtin()
	store, err := history.NewStore(filepath.Join(t.TempDir(), "mixdown.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()
	SetDependencies(&Dependencies{Registry: reg, History: store})

	ctx := context.Background()
	if _, err := ReplayFixturesActivity(ctx, VerifyCorpusInput{}); err != nil {
		t.Fatalf("ReplayFixturesActivity failed: %v", err)
	}

	runs, err := store.RecentRuns(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 recorded run, got %d", len(runs))
	}
	if runs[0].Origin != "workflow" {
		t.Fatalf("expected origin workflow, got %s", runs[0].Origin)
	}

	results, err := store.Results(ctx, runs[0].RunID)
	if err != nil {
		t.Fatal(err)
	}
	for _, sr := range results {
		if sr.Scenario == "diamond" && sr.GraphHash == "" {
			t.Error("expected a graph hash on the diamond result")
		}
	}
}

func TestEvaluateGatesActivity_PassingReport(t *testing.T) {
	reg := setupTestDependencies()

	report := verify.Run(reg, verify.Pinned(reg), nil)
	reportJSON, _ := json.Marshal(report)

	ctx := context.Background()
	result, err := EvaluateGatesActivity(ctx, string(reportJSON))
	if err != nil {
		t.Fatalf("EvaluateGatesActivity failed: %v", err)
	}

	if !result.Pass {
		t.Fatalf("expected gates to pass, status %s", result.GateStatus)
	}
	if result.GateStatus != string(qualitygate.GatePassed) {
		t.Fatalf("expected status passed, got %s", result.GateStatus)
	}

	var pipeline qualitygate.PipelineResult
	if err := json.Unmarshal([]byte(result.GatesJSON), &pipeline); err != nil {
		t.Fatalf("GatesJSON is not valid JSON: %v", err)
	}
	if len(pipeline.Gates) == 0 {
		t.Fatal("expected evaluated gates in the result")
	}
}

func TestEvaluateGatesActivity_FailingReport(t *testing.T) {
	setupTestDependencies()

	report := verify.NewReport()
	report.Add(verify.Result{
		Fixture:  "stale",
		Scenario: "diamond",
		Diff:     verify.DiffResult{Fixture: "stale", Pass: false, Reason: "order mismatch at 0"},
	})
	report.Finish()
	reportJSON, _ := json.Marshal(report)

	ctx := context.Background()
	result, err := EvaluateGatesActivity(ctx, string(reportJSON))
	if err != nil {
		t.Fatalf("EvaluateGatesActivity failed: %v", err)
	}

	if result.Pass {
		t.Fatal("expected gates to fail on a failing report")
	}
	if result.GateStatus != string(qualitygate.GateFailed) {
		t.Fatalf("expected status failed, got %s", result.GateStatus)
	}
}

func TestEvaluateGatesActivity_InvalidJSON(t *testing.T) {
	setupTestDependencies()

	ctx := context.Background()
	_, err := EvaluateGatesActivity(ctx, "invalid json")
	if err == nil {
		t.Fatal("expected error with invalid JSON")
	}
}

func TestCaptureSnapshotActivity(t *testing.T) {
	setupTestDependencies()
	dir := t.TempDir()

	ctx := context.Background()
	result, err := CaptureSnapshotActivity(ctx, dir)
	if err != nil {
		t.Fatalf("CaptureSnapshotActivity failed: %v", err)
	}

	if len(result.SnapshotID) != 16 {
		t.Fatalf("expected 16-char snapshot ID, got %q", result.SnapshotID)
	}

	// The snapshot should be findable in the store afterwards
	if _, err := os.Stat(filepath.Join(dir, "snapshots", result.SnapshotID, "snapshot.json")); err != nil {
		t.Fatalf("snapshot not persisted: %v", err)
	}
}

func TestLoadFixtures_DefaultsToPins(t *testing.T) {
	reg := setupTestDependencies()

	fixtures, err := loadFixtures("")
	if err != nil {
		t.Fatal(err)
	}
	if len(fixtures) != len(verify.Pinned(reg)) {
		t.Fatalf("expected pinned fixtures, got %d", len(fixtures))
	}
}
