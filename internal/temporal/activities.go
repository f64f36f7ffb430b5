package temporal

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/efebarandurmaz/mixdown/internal/catalog"
	"github.com/efebarandurmaz/mixdown/internal/fingerprint"
	"github.com/efebarandurmaz/mixdown/internal/history"
	"github.com/efebarandurmaz/mixdown/internal/observability"
	"github.com/efebarandurmaz/mixdown/internal/qualitygate"
	"github.com/efebarandurmaz/mixdown/internal/snapshot"
	"github.com/efebarandurmaz/mixdown/internal/verify"
)

// ActivityResult is the serializable result passed between activities.
type ActivityResult struct {
	Names        []string
	OutcomeJSON  string
	ReportJSON   string
	GatesJSON    string
	GateStatus   string
	SnapshotID   string
	Pass         bool
	FixtureCount int
	PassCount    int
	FailCount    int
	Errors       []string
}

// Dependencies holds shared resources injected into activities.
type Dependencies struct {
	Registry *catalog.Registry
	History  *history.Store         // optional; runs are recorded when set
	Gates    *qualitygate.GateConfig // optional; nil uses the defaults
}

var deps *Dependencies

// SetDependencies injects shared resources (called during worker setup).
func SetDependencies(d *Dependencies) {
	deps = d
}

// ListScenariosActivity resolves the scenario set for a run. Requesting
// an unregistered scenario is an error up front, not a misleading pass.
func ListScenariosActivity(ctx context.Context, input VerifyCorpusInput) (ActivityResult, error) {
	if len(input.Scenarios) == 0 {
		return ActivityResult{Names: deps.Registry.Names()}, nil
	}

	names := make([]string, 0, len(input.Scenarios))
	for _, name := range input.Scenarios {
		if _, err := deps.Registry.Get(name); err != nil {
			return ActivityResult{}, err
		}
		names = append(names, name)
	}
	return ActivityResult{Names: names}, nil
}

// ExecuteScenarioActivity runs one scenario through the full pipeline.
func ExecuteScenarioActivity(ctx context.Context, name string) (ActivityResult, error) {
	s, err := deps.Registry.Get(name)
	if err != nil {
		return ActivityResult{}, err
	}

	out, err := catalog.Execute(s)
	if err != nil {
		return ActivityResult{}, err
	}

	outJSON, err := json.Marshal(out)
	if err != nil {
		return ActivityResult{}, fmt.Errorf("marshal outcome: %w", err)
	}
	return ActivityResult{OutcomeJSON: string(outJSON)}, nil
}

// ReplayFixturesActivity replays the configured fixtures and records the
// run in history when a store is wired in.
func ReplayFixturesActivity(ctx context.Context, input VerifyCorpusInput) (ActivityResult, error) {
	fixtures, err := loadFixtures(input.FixturesPath)
	if err != nil {
		return ActivityResult{}, err
	}

	report := verify.Run(deps.Registry, fixtures, nil)

	if deps.History != nil {
		origin := input.HistoryOrigin
		if origin == "" {
			origin = "workflow"
		}
		run, results := history.FromReport(report, origin, graphHashes())
		if err := deps.History.SaveRun(ctx, run, results); err != nil {
			return ActivityResult{}, fmt.Errorf("record run: %w", err)
		}
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return ActivityResult{}, fmt.Errorf("marshal report: %w", err)
	}
	return ActivityResult{
		ReportJSON:   string(reportJSON),
		Pass:         report.Pass,
		FixtureCount: report.FixtureCount,
		PassCount:    report.PassCount,
		FailCount:    report.FailCount,
	}, nil
}

// EvaluateGatesActivity runs the verification gates over a report.
func EvaluateGatesActivity(ctx context.Context, reportJSON string) (ActivityResult, error) {
	var report verify.Report
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return ActivityResult{}, err
	}

	cfg := deps.Gates
	if cfg == nil {
		cfg = qualitygate.DefaultConfig()
	}

	evalCtx := qualitygate.ContextFromReport(&report, deps.Registry)
	result := qualitygate.BuildPipeline(cfg).Run(evalCtx)

	gatesJSON, err := json.Marshal(result)
	if err != nil {
		return ActivityResult{}, fmt.Errorf("marshal gate result: %w", err)
	}
	return ActivityResult{
		GatesJSON:  string(gatesJSON),
		GateStatus: string(result.Status),
		Pass:       result.Status != qualitygate.GateFailed,
	}, nil
}

// CaptureSnapshotActivity captures the current corpus outcomes into a
// snapshot store rooted at dir.
func CaptureSnapshotActivity(ctx context.Context, dir string) (ActivityResult, error) {
	docs, infos, err := snapshot.Capture(deps.Registry)
	if err != nil {
		return ActivityResult{}, err
	}

	snap := snapshot.NewSnapshot("workflow", docs, infos)
	store, err := snapshot.NewStore(dir)
	if err != nil {
		return ActivityResult{}, err
	}
	if err := store.Save(snap, docs); err != nil {
		return ActivityResult{}, err
	}

	observability.RecordSnapshot()
	return ActivityResult{SnapshotID: snap.ID}, nil
}

// loadFixtures reads JSONL fixtures, falling back to the registry's
// pinned expectations when no path is configured.
func loadFixtures(path string) ([]verify.Fixture, error) {
	if path == "" {
		return verify.Pinned(deps.Registry), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open fixtures: %w", err)
	}
	defer f.Close()
	return verify.ReadJSONL(f)
}

// graphHashes fingerprints every registered scenario for history rows.
// A scenario whose graph fails to build simply has no hash.
func graphHashes() map[string]string {
	hashes := make(map[string]string)
	for _, s := range deps.Registry.All() {
		g, err := s.Graph()
		if err != nil {
			continue
		}
		hashes[s.Name] = fingerprint.GraphHash(g)
	}
	return hashes
}
