package qualitygate

import (
	"strings"
	"testing"
	"time"

	"github.com/efebarandurmaz/mixdown/internal/catalog"
	"github.com/efebarandurmaz/mixdown/internal/verify"
)

func TestCompositionGate(t *testing.T) {
	tests := []struct {
		name       string
		severity   GateSeverity
		ok         bool
		errors     []string
		wantStatus GateStatus
	}{
		{
			name:       "pass with all compositions valid",
			severity:   SeverityCritical,
			ok:         true,
			wantStatus: GatePassed,
		},
		{
			name:       "fail with validation errors",
			severity:   SeverityCritical,
			ok:         false,
			errors:     []string{"scenario broken: composition has no root"},
			wantStatus: GateFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewCompositionGate(tt.severity)
			ctx := &EvalContext{
				CompositionOK:     tt.ok,
				CompositionErrors: tt.errors,
			}

			result, err := gate.Evaluate(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if result.Status != tt.wantStatus {
				t.Errorf("got status %v, want %v", result.Status, tt.wantStatus)
			}
			if result.Name != "composition" {
				t.Errorf("got name %q, want %q", result.Name, "composition")
			}
			if tt.wantStatus == GateFailed && len(result.Details) != len(tt.errors) {
				t.Errorf("got %d details, want %d", len(result.Details), len(tt.errors))
			}
		})
	}
}

func TestFixtureGate(t *testing.T) {
	tests := []struct {
		name        string
		minPassRate float64
		passed      int
		total       int
		wantStatus  GateStatus
	}{
		{
			name:        "pass with full pass rate",
			minPassRate: 1.0,
			passed:      10,
			total:       10,
			wantStatus:  GatePassed,
		},
		{
			name:        "pass at threshold",
			minPassRate: 0.8,
			passed:      8,
			total:       10,
			wantStatus:  GatePassed,
		},
		{
			name:        "fail below threshold",
			minPassRate: 1.0,
			passed:      9,
			total:       10,
			wantStatus:  GateFailed,
		},
		{
			name:        "skip with no fixtures",
			minPassRate: 1.0,
			passed:      0,
			total:       0,
			wantStatus:  GateSkipped,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewFixtureGate(tt.minPassRate, SeverityRequired)
			ctx := &EvalContext{
				FixturesPassed: tt.passed,
				FixturesTotal:  tt.total,
			}

			result, err := gate.Evaluate(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if result.Status != tt.wantStatus {
				t.Errorf("got status %v, want %v", result.Status, tt.wantStatus)
			}
			if tt.total > 0 {
				wantScore := float64(tt.passed) / float64(tt.total)
				if result.Score != wantScore {
					t.Errorf("got score %v, want %v", result.Score, wantScore)
				}
			}
		})
	}
}

func TestCoverageGate(t *testing.T) {
	tests := []struct {
		name        string
		minCoverage float64
		covered     int
		total       int
		wantStatus  GateStatus
	}{
		{
			name:        "pass with full coverage",
			minCoverage: 0.9,
			covered:     8,
			total:       8,
			wantStatus:  GatePassed,
		},
		{
			name:        "fail below threshold",
			minCoverage: 0.9,
			covered:     5,
			total:       8,
			wantStatus:  GateFailed,
		},
		{
			name:        "skip with empty registry",
			minCoverage: 0.9,
			covered:     0,
			total:       0,
			wantStatus:  GateSkipped,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewCoverageGate(tt.minCoverage, SeverityAdvisory)
			ctx := &EvalContext{
				ScenariosCovered: tt.covered,
				ScenariosTotal:   tt.total,
			}

			result, err := gate.Evaluate(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if result.Status != tt.wantStatus {
				t.Errorf("got status %v, want %v", result.Status, tt.wantStatus)
			}
		})
	}
}

func TestDriftGate(t *testing.T) {
	tests := []struct {
		name          string
		maxChangeRate float64
		changed       int
		total         int
		wantStatus    GateStatus
	}{
		{
			name:          "pass with no changes",
			maxChangeRate: 0.5,
			changed:       0,
			total:         8,
			wantStatus:    GatePassed,
		},
		{
			name:          "pass at limit",
			maxChangeRate: 0.5,
			changed:       4,
			total:         8,
			wantStatus:    GatePassed,
		},
		{
			name:          "fail on corpus-wide change",
			maxChangeRate: 0.5,
			changed:       8,
			total:         8,
			wantStatus:    GateFailed,
		},
		{
			name:          "skip with empty registry",
			maxChangeRate: 0.5,
			changed:       0,
			total:         0,
			wantStatus:    GateSkipped,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewDriftGate(tt.maxChangeRate, SeverityAdvisory)
			ctx := &EvalContext{
				ScenariosChanged: tt.changed,
				ScenariosTotal:   tt.total,
			}

			result, err := gate.Evaluate(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if result.Status != tt.wantStatus {
				t.Errorf("got status %v, want %v", result.Status, tt.wantStatus)
			}
		})
	}
}

func TestDurationGate(t *testing.T) {
	tests := []struct {
		name       string
		budget     time.Duration
		elapsed    time.Duration
		wantStatus GateStatus
	}{
		{
			name:       "pass under budget",
			budget:     time.Second,
			elapsed:    200 * time.Millisecond,
			wantStatus: GatePassed,
		},
		{
			name:       "fail over budget",
			budget:     time.Second,
			elapsed:    1500 * time.Millisecond,
			wantStatus: GateFailed,
		},
		{
			name:       "skip with no budget",
			budget:     0,
			elapsed:    time.Hour,
			wantStatus: GateSkipped,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewDurationGate(tt.budget, SeverityAdvisory)
			ctx := &EvalContext{Elapsed: tt.elapsed}

			result, err := gate.Evaluate(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if result.Status != tt.wantStatus {
				t.Errorf("got status %v, want %v", result.Status, tt.wantStatus)
			}
		})
	}
}

func TestErrorGate(t *testing.T) {
	tests := []struct {
		name       string
		maxErrors  int
		errors     []string
		wantStatus GateStatus
	}{
		{
			name:       "pass with no errors",
			maxErrors:  0,
			errors:     nil,
			wantStatus: GatePassed,
		},
		{
			name:       "pass at limit",
			maxErrors:  2,
			errors:     []string{"a", "b"},
			wantStatus: GatePassed,
		},
		{
			name:       "fail over limit",
			maxErrors:  0,
			errors:     []string{"no scenario named \"gone\""},
			wantStatus: GateFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gate := NewErrorGate(tt.maxErrors, SeverityCritical)
			ctx := &EvalContext{Errors: tt.errors}

			result, err := gate.Evaluate(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if result.Status != tt.wantStatus {
				t.Errorf("got status %v, want %v", result.Status, tt.wantStatus)
			}
			if tt.wantStatus == GateFailed && len(result.Details) == 0 {
				t.Error("expected error details for failed gate")
			}
		})
	}
}

func healthyContext() *EvalContext {
	return &EvalContext{
		CompositionOK:    true,
		FixturesPassed:   8,
		FixturesTotal:    8,
		ScenariosCovered: 8,
		ScenariosTotal:   8,
		ScenariosChanged: 1,
		Elapsed:          100 * time.Millisecond,
	}
}

func TestPipelineAllPassing(t *testing.T) {
	pipeline := NewPipeline(
		NewCompositionGate(SeverityCritical),
		NewFixtureGate(1.0, SeverityRequired),
		NewCoverageGate(0.9, SeverityAdvisory),
		NewDriftGate(0.5, SeverityAdvisory),
		NewErrorGate(0, SeverityCritical),
	)

	result := pipeline.Run(healthyContext())

	if result.Status != GatePassed {
		t.Errorf("got status %v, want %v", result.Status, GatePassed)
	}
	if result.PassedCount != 5 {
		t.Errorf("got %d passed gates, want 5", result.PassedCount)
	}
	if result.FailedCount != 0 || result.SkippedCount != 0 || result.WarningCount != 0 {
		t.Errorf("got failed=%d skipped=%d warnings=%d, want all zero",
			result.FailedCount, result.SkippedCount, result.WarningCount)
	}
	if result.Duration <= 0 {
		t.Error("expected positive duration")
	}
	if result.Summary == "" {
		t.Error("expected non-empty summary")
	}
}

func TestPipelineCriticalFailureSkipsRest(t *testing.T) {
	pipeline := NewPipeline(
		NewCompositionGate(SeverityCritical),
		NewFixtureGate(1.0, SeverityRequired),
		NewCoverageGate(0.9, SeverityAdvisory),
	)

	ctx := healthyContext()
	ctx.CompositionOK = false
	ctx.CompositionErrors = []string{"scenario broken: duplicate declaration of T1"}

	result := pipeline.Run(ctx)

	if result.Status != GateFailed {
		t.Errorf("got status %v, want %v", result.Status, GateFailed)
	}
	if result.Gates[0].Status != GateFailed {
		t.Errorf("first gate status %v, want %v", result.Gates[0].Status, GateFailed)
	}
	if result.SkippedCount != 2 {
		t.Errorf("got %d skipped, want 2 (gates after critical failure)", result.SkippedCount)
	}
}

func TestPipelineRequiredFailureRunsAllGates(t *testing.T) {
	pipeline := NewPipeline(
		NewCompositionGate(SeverityCritical),
		NewFixtureGate(1.0, SeverityRequired),
		NewCoverageGate(0.9, SeverityAdvisory),
	)

	ctx := healthyContext()
	ctx.FixturesPassed = 7

	result := pipeline.Run(ctx)

	if result.Status != GateFailed {
		t.Errorf("got status %v, want %v", result.Status, GateFailed)
	}
	if len(result.Gates) != 3 {
		t.Errorf("got %d gate results, want 3", len(result.Gates))
	}
	if result.SkippedCount != 0 {
		t.Errorf("got %d skipped, want 0 after required failure", result.SkippedCount)
	}
}

func TestPipelineAdvisoryFailureBecomesWarning(t *testing.T) {
	pipeline := NewPipeline(
		NewCompositionGate(SeverityCritical),
		NewCoverageGate(0.9, SeverityAdvisory),
	)

	ctx := healthyContext()
	ctx.ScenariosCovered = 2

	result := pipeline.Run(ctx)

	if result.Status != GatePassed {
		t.Errorf("got status %v, want %v (advisory must not fail the run)", result.Status, GatePassed)
	}
	if result.WarningCount != 1 {
		t.Errorf("got %d warnings, want 1", result.WarningCount)
	}
	if result.FailedCount != 0 {
		t.Errorf("got %d failed, want 0", result.FailedCount)
	}
	if result.Gates[1].Status != GateWarning {
		t.Errorf("advisory gate status %v, want %v", result.Gates[1].Status, GateWarning)
	}
}

func TestPipelineEmptyGates(t *testing.T) {
	result := NewPipeline().Run(healthyContext())

	if result.Status != GatePassed {
		t.Errorf("got status %v, want %v for empty pipeline", result.Status, GatePassed)
	}
	if len(result.Gates) != 0 {
		t.Errorf("got %d gates, want 0", len(result.Gates))
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.Enabled {
		t.Error("expected enabled by default")
	}
	if !cfg.CompositionRequired {
		t.Error("expected composition gate by default")
	}
	if cfg.FixturePassRate != 1.0 {
		t.Errorf("got fixture pass rate %v, want 1.0", cfg.FixturePassRate)
	}

	validSeverities := map[string]bool{
		string(SeverityCritical): true,
		string(SeverityRequired): true,
		string(SeverityAdvisory): true,
	}
	for name, sev := range map[string]string{
		"fixture":  cfg.FixtureSeverity,
		"coverage": cfg.CoverageSeverity,
		"drift":    cfg.DriftSeverity,
		"duration": cfg.DurationSeverity,
		"error":    cfg.ErrorSeverity,
	} {
		if !validSeverities[sev] {
			t.Errorf("invalid %s severity: %q", name, sev)
		}
	}
}

func TestBuildPipeline(t *testing.T) {
	result := BuildPipeline(nil).Run(healthyContext())

	gateNames := make(map[string]bool)
	for _, gr := range result.Gates {
		gateNames[gr.Name] = true
	}

	for _, name := range []string{"composition", "fixtures", "coverage", "drift", "errors"} {
		if !gateNames[name] {
			t.Errorf("expected gate %q not found", name)
		}
	}
	if gateNames["duration"] {
		t.Error("duration gate present despite zero budget")
	}
	if result.Status != GatePassed {
		t.Errorf("got status %v, want %v", result.Status, GatePassed)
	}
}

func TestFormatReport(t *testing.T) {
	result := &PipelineResult{
		Status:      GateFailed,
		PassedCount: 1,
		FailedCount: 1,
		Summary:     "Verification Gates: 1 passed, 1 failed, 0 warnings, 0 skipped [failed]",
		Gates: []GateResult{
			{
				Name:     "composition",
				Status:   GatePassed,
				Severity: SeverityCritical,
				Message:  "All compositions validate",
			},
			{
				Name:     "fixtures",
				Status:   GateFailed,
				Severity: SeverityRequired,
				Message:  "Fixture pass rate 87.5% below threshold 100.0% (7/8 passed)",
				Details:  []string{"diamond: trace mismatch at 3"},
			},
		},
	}

	report := FormatReport(result)

	for _, want := range []string{"Verification Gate Report", "composition", "fixtures", "[REQUIRED]", "FAILED", "trace mismatch"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestContextFromReport(t *testing.T) {
	reg := catalog.Builtin()

	report := verify.NewReport()
	for _, name := range reg.Names() {
		report.Add(verify.Result{
			Fixture:  name,
			Scenario: name,
			Diff:     verify.DiffResult{Fixture: name, Pass: true},
		})
	}
	report.Add(verify.Result{
		Fixture:  "stale",
		Scenario: "retired-scenario",
		Error:    `no scenario named "retired-scenario"`,
	})
	report.Finish()

	ctx := ContextFromReport(report, reg)

	if !ctx.CompositionOK {
		t.Errorf("CompositionOK = false, errors: %v", ctx.CompositionErrors)
	}
	if ctx.FixturesTotal != reg.Len()+1 {
		t.Errorf("FixturesTotal = %d, want %d", ctx.FixturesTotal, reg.Len()+1)
	}
	if ctx.ScenariosCovered != reg.Len() {
		t.Errorf("ScenariosCovered = %d, want %d", ctx.ScenariosCovered, reg.Len())
	}
	if ctx.ScenariosTotal != reg.Len() {
		t.Errorf("ScenariosTotal = %d, want %d", ctx.ScenariosTotal, reg.Len())
	}
	if len(ctx.Errors) != 1 {
		t.Errorf("Errors = %v, want the one replay error", ctx.Errors)
	}

	result := BuildPipeline(DefaultConfig()).Run(ctx)
	if result.Status != GateFailed {
		t.Errorf("got status %v, want failed (one fixture errored)", result.Status)
	}
}
