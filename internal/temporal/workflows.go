package temporal

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/workflow"
)

// VerifyCorpusInput holds the workflow parameters.
type VerifyCorpusInput struct {
	Scenarios    []string // Scenario names to execute; empty means every registered scenario
	FixturesPath string   // Path to a JSONL fixtures file; empty replays the registry's pins

	HistoryOrigin string // Origin tag recorded with the run (default: "workflow")

	// Snapshot configuration (optional)
	CaptureSnapshot bool   // Capture an outcome snapshot after a passing run
	SnapshotDir     string // Snapshot store root (required when CaptureSnapshot)
}

// VerifyCorpusOutput holds the workflow result.
type VerifyCorpusOutput struct {
	ScenarioCount int
	FixtureCount  int
	PassCount     int
	FailCount     int
	Pass          bool
	GateStatus    string
	SnapshotID    string
	Errors        []string
}

// CorpusVerifyWorkflow executes the scenario corpus, replays fixtures
// against it, evaluates the verification gates, and snapshots the
// outcomes when the run passes.
func CorpusVerifyWorkflow(ctx workflow.Context, input VerifyCorpusInput) (*VerifyCorpusOutput, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Minute,
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	// Step 1: resolve the scenario set
	var listResult ActivityResult
	if err := workflow.ExecuteActivity(ctx, ListScenariosActivity, input).Get(ctx, &listResult); err != nil {
		return nil, fmt.Errorf("list scenarios: %w", err)
	}

	// Step 2: execute every scenario. A failing scenario becomes an
	// error in the output; the rest of the corpus still runs.
	var execErrors []string
	for _, name := range listResult.Names {
		var execResult ActivityResult
		if err := workflow.ExecuteActivity(ctx, ExecuteScenarioActivity, name).Get(ctx, &execResult); err != nil {
			execErrors = append(execErrors, fmt.Sprintf("execute %s: %v", name, err))
		}
	}

	// Step 3: replay fixtures
	var verifyResult ActivityResult
	if err := workflow.ExecuteActivity(ctx, ReplayFixturesActivity, input).Get(ctx, &verifyResult); err != nil {
		return nil, fmt.Errorf("replay fixtures: %w", err)
	}

	// Step 4: evaluate gates over the report
	var gateResult ActivityResult
	if err := workflow.ExecuteActivity(ctx, EvaluateGatesActivity, verifyResult.ReportJSON).Get(ctx, &gateResult); err != nil {
		return nil, fmt.Errorf("evaluate gates: %w", err)
	}

	output := &VerifyCorpusOutput{
		ScenarioCount: len(listResult.Names),
		FixtureCount:  verifyResult.FixtureCount,
		PassCount:     verifyResult.PassCount,
		FailCount:     verifyResult.FailCount,
		Pass:          verifyResult.Pass && gateResult.Pass,
		GateStatus:    gateResult.GateStatus,
		Errors:        execErrors,
	}

	// Step 5: snapshot passing corpora only; a failed run should not
	// become the next baseline.
	if input.CaptureSnapshot && output.Pass {
		var snapResult ActivityResult
		if err := workflow.ExecuteActivity(ctx, CaptureSnapshotActivity, input.SnapshotDir).Get(ctx, &snapResult); err != nil {
			return nil, fmt.Errorf("capture snapshot: %w", err)
		}
		output.SnapshotID = snapResult.SnapshotID
	}

	return output, nil
}
