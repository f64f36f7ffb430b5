package e2e

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/efebarandurmaz/mixdown/internal/catalog"
	"github.com/efebarandurmaz/mixdown/internal/fingerprint"
	"github.com/efebarandurmaz/mixdown/internal/history"
	"github.com/efebarandurmaz/mixdown/internal/qualitygate"
	"github.com/efebarandurmaz/mixdown/internal/snapshot"
	"github.com/efebarandurmaz/mixdown/internal/verify"
)

func TestE2E_BuiltinCorpus_RecordReplayGateSnapshot(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()

	reg := catalog.Builtin()
	if reg.Len() != 8 {
		t.Fatalf("expected 8 builtin scenarios, got %d", reg.Len())
	}

	// 1. Record: execute every scenario and pin its full outcome
	fixtures, err := verify.Record(reg)
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if len(fixtures) != reg.Len() {
		t.Fatalf("expected %d fixtures, got %d", reg.Len(), len(fixtures))
	}
	for _, f := range fixtures {
		if len(f.Order) == 0 {
			t.Errorf("fixture %s: empty order", f.Name)
		}
		if len(f.Trace) == 0 {
			t.Errorf("fixture %s: empty trace", f.Name)
		}
		if len(f.FinalState) == 0 {
			t.Errorf("fixture %s: empty final state", f.Name)
		}
	}

	// 2. Round-trip the fixtures through the JSONL archive format
	fixPath := filepath.Join(tmpDir, "fixtures.jsonl")
	fh, err := os.Create(fixPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := verify.WriteJSONL(fh, fixtures); err != nil {
		t.Fatalf("write fixtures: %v", err)
	}
	fh.Close()

	rh, err := os.Open(fixPath)
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := verify.ReadJSONL(rh)
	rh.Close()
	if err != nil {
		t.Fatalf("read fixtures: %v", err)
	}
	if len(loaded) != len(fixtures) {
		t.Fatalf("expected %d fixtures after round-trip, got %d", len(fixtures), len(loaded))
	}

	// 3. Replay the archived fixtures against the engine
	report := verify.Run(reg, loaded, nil)
	if !report.Pass {
		t.Fatalf("replay failed:\n%s", verify.FormatReport(report))
	}
	if report.FixtureCount != 8 || report.FailCount != 0 {
		t.Fatalf("expected 8/0, got %d/%d", report.FixtureCount, report.FailCount)
	}

	// 4. Quality gates over the report
	gctx := qualitygate.ContextFromReport(report, reg)
	result := qualitygate.BuildPipeline(qualitygate.DefaultConfig()).Run(gctx)
	if result.Status != qualitygate.GatePassed {
		t.Fatalf("gates failed: %s", result.Summary)
	}
	if result.FailedCount != 0 {
		t.Fatalf("expected no failed gates, got %d", result.FailedCount)
	}

	// 5. Snapshot the corpus outcomes
	docs, infos, err := snapshot.Capture(reg)
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	if len(docs) != 8 {
		t.Fatalf("expected 8 outcome documents, got %d", len(docs))
	}
	snap := snapshot.NewSnapshot("e2e", docs, infos)
	if len(snap.ID) != 16 {
		t.Errorf("expected 16-char snapshot ID, got %q", snap.ID)
	}
	if snap.Status != "success" {
		t.Errorf("expected success snapshot, got %s", snap.Status)
	}
	if snap.PassRate != 1.0 {
		t.Errorf("expected pass rate 1.0, got %f", snap.PassRate)
	}

	store, err := snapshot.NewStore(filepath.Join(tmpDir, "snaps"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Save(snap, docs); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	snapPath := filepath.Join(tmpDir, "snaps", "snapshots", snap.ID, "snapshot.json")
	if _, err := os.Stat(snapPath); err != nil {
		t.Errorf("snapshot not on disk: %v", err)
	}
	reloaded, err := store.Load(snap.ID)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if reloaded.ContentHash != snap.ContentHash {
		t.Error("snapshot content hash changed across save/load")
	}

	// 6. Record the run in history with per-scenario graph hashes
	hashes, err := fingerprint.ScenarioHashes(reg)
	if err != nil {
		t.Fatalf("scenario hashes: %v", err)
	}
	hs, err := history.NewStore(filepath.Join(tmpDir, "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer hs.Close()

	run, results := history.FromReport(report, "e2e", hashes)
	if err := hs.SaveRun(ctx, run, results); err != nil {
		t.Fatalf("save run: %v", err)
	}
	got, err := hs.GetRun(ctx, run.RunID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if !got.Pass || got.ScenarioCount != 8 {
		t.Errorf("stored run pass=%v count=%d", got.Pass, got.ScenarioCount)
	}
	storedResults, err := hs.Results(ctx, run.RunID)
	if err != nil {
		t.Fatalf("results: %v", err)
	}
	if len(storedResults) != 8 {
		t.Fatalf("expected 8 stored results, got %d", len(storedResults))
	}
	for _, sr := range storedResults {
		if sr.GraphHash == "" {
			t.Errorf("result %s missing graph hash", sr.Scenario)
		}
	}
	summary, err := hs.Summarize(ctx)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary.TotalRuns != 1 || summary.PassedRuns != 1 {
		t.Errorf("summary runs=%d passed=%d", summary.TotalRuns, summary.PassedRuns)
	}
}

func TestE2E_SingleTrait_CanonicalTrace(t *testing.T) {
	reg := catalog.Builtin()
	s, err := reg.Get("single-trait")
	if err != nil {
		t.Fatal(err)
	}

	out, err := catalog.Execute(s)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	wantOrder := []string{"T1", "C1"}
	if len(out.Order) != len(wantOrder) {
		t.Fatalf("expected order %v, got %v", wantOrder, out.Order)
	}
	for i := range wantOrder {
		if out.Order[i] != wantOrder[i] {
			t.Fatalf("expected order %v, got %v", wantOrder, out.Order)
		}
	}

	wantResolution := []string{"C1", "T1"}
	for i := range wantResolution {
		if out.Resolution[i] != wantResolution[i] {
			t.Fatalf("expected resolution %v, got %v", wantResolution, out.Resolution)
		}
	}

	wantTrace := "Creating C1;In T1: x=0;In T1: x=1;In C1: y=0;In C1: y=2;Created C1"
	if got := strings.Join(out.Trace, ";"); got != wantTrace {
		t.Fatalf("trace mismatch:\n got %s\nwant %s", got, wantTrace)
	}

	if out.FinalState["x"] != "1" || out.FinalState["y"] != "2" {
		t.Errorf("unexpected final state: %v", out.FinalState)
	}
}

func TestE2E_Diamond_SharedSupertypeInitializesOnce(t *testing.T) {
	reg := catalog.Builtin()
	s, err := reg.Get("diamond")
	if err != nil {
		t.Fatal(err)
	}

	out, err := catalog.Execute(s)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}

	wantOrder := []string{"T1", "T2", "T3", "C1"}
	for i := range wantOrder {
		if out.Order[i] != wantOrder[i] {
			t.Fatalf("expected order %v, got %v", wantOrder, out.Order)
		}
	}

	// T1 appears once in the order even though both T2 and T3 extend it
	seen := make(map[string]int)
	for _, name := range out.Order {
		seen[name]++
	}
	for name, count := range seen {
		if count != 1 {
			t.Errorf("node %s appears %d times in order", name, count)
		}
	}

	// T1's initializer ran exactly once
	assignments := 0
	for _, e := range out.Trace {
		if e == "In T1: tag=T1" {
			assignments++
		}
	}
	if assignments != 1 {
		t.Errorf("expected T1 to initialize once, saw %d assignments", assignments)
	}

	// The last layer's write wins
	if out.FinalState["tag"] != "T3" {
		t.Errorf("expected tag=T3, got %q", out.FinalState["tag"])
	}
}

func TestE2E_Regression_FailsGatesAndIsRecorded(t *testing.T) {
	ctx := context.Background()

	reg := catalog.Builtin()
	fixtures, err := verify.Record(reg)
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}

	// Corrupt one pin the way an engine regression would surface
	for i := range fixtures {
		if fixtures[i].Scenario == "diamond" {
			fixtures[i].Order = []string{"T1", "T3", "T2", "C1"}
		}
	}

	report := verify.Run(reg, fixtures, nil)
	if report.Pass {
		t.Fatal("expected replay to fail")
	}
	if report.PassCount != 7 || report.FailCount != 1 {
		t.Fatalf("expected 7/1, got %d/%d", report.PassCount, report.FailCount)
	}

	var diamondResult *verify.Result
	for i := range report.Results {
		if report.Results[i].Scenario == "diamond" {
			diamondResult = &report.Results[i]
		}
	}
	if diamondResult == nil {
		t.Fatal("diamond result missing from report")
	}
	if !strings.Contains(diamondResult.Diff.Reason, "order mismatch") {
		t.Errorf("expected order mismatch reason, got %q", diamondResult.Diff.Reason)
	}

	// The fixtures gate flips the pipeline to failed
	gctx := qualitygate.ContextFromReport(report, reg)
	result := qualitygate.BuildPipeline(qualitygate.DefaultConfig()).Run(gctx)
	if result.Status != qualitygate.GateFailed {
		t.Fatalf("expected gates to fail, got %s", result.Status)
	}
	for _, gr := range result.Gates {
		if gr.Name == "fixtures" && gr.Status != qualitygate.GateFailed {
			t.Errorf("expected fixtures gate failed, got %s", gr.Status)
		}
	}

	// The failed run still lands in history
	hs, err := history.NewStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	defer hs.Close()

	run, results := history.FromReport(report, "e2e", nil)
	if err := hs.SaveRun(ctx, run, results); err != nil {
		t.Fatalf("save run: %v", err)
	}
	summary, err := hs.Summarize(ctx)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary.FailedRuns != 1 {
		t.Errorf("expected 1 failed run, got %d", summary.FailedRuns)
	}
}

func TestE2E_IncrementalAnalysisSkipsUnchanged(t *testing.T) {
	reg := catalog.Builtin()
	hashes, err := fingerprint.ScenarioHashes(reg)
	if err != nil {
		t.Fatalf("scenario hashes: %v", err)
	}
	if len(hashes) != reg.Len() {
		t.Fatalf("expected %d hashes, got %d", reg.Len(), len(hashes))
	}

	analyzer := fingerprint.NewAnalyzer(&fingerprint.IncrementalConfig{StateDir: t.TempDir()})

	first, err := analyzer.Analyze(hashes)
	if err != nil {
		t.Fatalf("first analysis: %v", err)
	}
	if !first.IsFirstRun {
		t.Error("expected first run")
	}
	if len(first.NewScenarios) != reg.Len() {
		t.Errorf("expected all scenarios new, got %d", len(first.NewScenarios))
	}

	if err := analyzer.SaveState(hashes); err != nil {
		t.Fatalf("save state: %v", err)
	}

	second, err := analyzer.Analyze(hashes)
	if err != nil {
		t.Fatalf("second analysis: %v", err)
	}
	if second.IsFirstRun {
		t.Error("expected stored state on second run")
	}
	if second.Skipped != reg.Len() {
		t.Errorf("expected all %d scenarios skipped, got %d", reg.Len(), second.Skipped)
	}
	if toVerify := analyzer.ScenariosToVerify(second); len(toVerify) != 0 {
		t.Errorf("expected nothing to verify, got %v", toVerify)
	}

	// A graph edit flips exactly its own scenario
	changed := make(map[string]string, len(hashes))
	for k, v := range hashes {
		changed[k] = v
	}
	changed["diamond"] = "0000000000000000"

	third, err := analyzer.Analyze(changed)
	if err != nil {
		t.Fatalf("third analysis: %v", err)
	}
	if len(third.ChangedScenarios) != 1 || third.ChangedScenarios[0] != "diamond" {
		t.Errorf("expected only diamond changed, got %v", third.ChangedScenarios)
	}
	if third.Skipped != reg.Len()-1 {
		t.Errorf("expected %d skipped, got %d", reg.Len()-1, third.Skipped)
	}
	toVerify := analyzer.ScenariosToVerify(third)
	if len(toVerify) != 1 || toVerify[0] != "diamond" {
		t.Errorf("expected [diamond] to verify, got %v", toVerify)
	}
}

func TestE2E_EmptyRegistry(t *testing.T) {
	reg := catalog.NewRegistry()

	// Record over an empty registry produces no fixtures and no error
	fixtures, err := verify.Record(reg)
	if err != nil {
		t.Fatalf("record failed: %v", err)
	}
	if len(fixtures) != 0 {
		t.Fatalf("expected no fixtures, got %d", len(fixtures))
	}

	// A replay with nothing to check is vacuously passing
	report := verify.Run(reg, fixtures, nil)
	if !report.Pass {
		t.Error("expected vacuous pass")
	}
	if report.FixtureCount != 0 {
		t.Errorf("expected 0 fixtures, got %d", report.FixtureCount)
	}

	// The data gates skip rather than fail
	gctx := qualitygate.ContextFromReport(report, reg)
	result := qualitygate.BuildPipeline(qualitygate.DefaultConfig()).Run(gctx)
	if result.Status != qualitygate.GatePassed {
		t.Fatalf("expected gates to pass on empty registry, got %s", result.Status)
	}
	if result.FailedCount != 0 {
		t.Errorf("expected no failed gates, got %d", result.FailedCount)
	}

	// Snapshotting an empty corpus still produces a loadable snapshot
	docs, infos, err := snapshot.Capture(reg)
	if err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected no documents, got %d", len(docs))
	}
	snap := snapshot.NewSnapshot("e2e", docs, infos)
	store, err := snapshot.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := store.Save(snap, docs); err != nil {
		t.Fatalf("save snapshot: %v", err)
	}
	if _, err := store.Load(snap.ID); err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
}
