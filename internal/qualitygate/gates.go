package qualitygate

import (
	"fmt"
	"time"
)

// CompositionGate checks that every registered composition validates.
// A corpus with an unbuildable scenario cannot be trusted at all, so
// this gate is normally wired critical.
type CompositionGate struct {
	severity GateSeverity
}

func NewCompositionGate(severity GateSeverity) *CompositionGate {
	return &CompositionGate{severity: severity}
}

func (g *CompositionGate) Name() string           { return "composition" }
func (g *CompositionGate) Severity() GateSeverity { return g.severity }
func (g *CompositionGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{
		Name:     g.Name(),
		Severity: g.severity,
	}
	if ctx.CompositionOK {
		r.Status = GatePassed
		r.Score = 1.0
		r.Message = "All compositions validate"
	} else {
		r.Status = GateFailed
		r.Score = 0.0
		r.Message = fmt.Sprintf("Composition validation failed for %d scenarios", len(ctx.CompositionErrors))
		r.Details = ctx.CompositionErrors
	}
	return r, nil
}

// FixtureGate checks that enough pinned fixtures replay cleanly.
type FixtureGate struct {
	MinPassRate float64
	severity    GateSeverity
}

func NewFixtureGate(minPassRate float64, severity GateSeverity) *FixtureGate {
	return &FixtureGate{MinPassRate: minPassRate, severity: severity}
}

func (g *FixtureGate) Name() string           { return "fixtures" }
func (g *FixtureGate) Severity() GateSeverity { return g.severity }
func (g *FixtureGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{
		Name:      g.Name(),
		Severity:  g.severity,
		Threshold: g.MinPassRate,
	}

	if ctx.FixturesTotal == 0 {
		r.Status = GateSkipped
		r.Message = "No fixtures to replay"
		return r, nil
	}

	passRate := float64(ctx.FixturesPassed) / float64(ctx.FixturesTotal)
	r.Score = passRate

	if passRate >= g.MinPassRate {
		r.Status = GatePassed
		r.Message = fmt.Sprintf("Fixture pass rate %.1f%% meets threshold %.1f%%",
			passRate*100, g.MinPassRate*100)
	} else {
		r.Status = GateFailed
		r.Message = fmt.Sprintf("Fixture pass rate %.1f%% below threshold %.1f%% (%d/%d passed)",
			passRate*100, g.MinPassRate*100, ctx.FixturesPassed, ctx.FixturesTotal)
	}
	return r, nil
}

// CoverageGate checks that fixtures exercise enough of the registry.
// Scenarios nobody pins can drift silently.
type CoverageGate struct {
	MinCoverage float64
	severity    GateSeverity
}

func NewCoverageGate(minCoverage float64, severity GateSeverity) *CoverageGate {
	return &CoverageGate{MinCoverage: minCoverage, severity: severity}
}

func (g *CoverageGate) Name() string           { return "coverage" }
func (g *CoverageGate) Severity() GateSeverity { return g.severity }
func (g *CoverageGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{
		Name:      g.Name(),
		Severity:  g.severity,
		Threshold: g.MinCoverage,
	}

	if ctx.ScenariosTotal == 0 {
		r.Status = GateSkipped
		r.Message = "No scenarios registered"
		return r, nil
	}

	coverage := float64(ctx.ScenariosCovered) / float64(ctx.ScenariosTotal)
	r.Score = coverage

	if coverage >= g.MinCoverage {
		r.Status = GatePassed
		r.Message = fmt.Sprintf("Scenario coverage %.1f%% meets threshold %.1f%%",
			coverage*100, g.MinCoverage*100)
	} else {
		r.Status = GateFailed
		r.Message = fmt.Sprintf("Scenario coverage %.1f%% below threshold %.1f%% (%d/%d pinned)",
			coverage*100, g.MinCoverage*100, ctx.ScenariosCovered, ctx.ScenariosTotal)
	}
	return r, nil
}

// DriftGate watches how much of the corpus changed hash since the last
// recorded state. A burst of changes usually means an engine edit, not
// eight independent scenario edits.
type DriftGate struct {
	MaxChangeRate float64
	severity      GateSeverity
}

func NewDriftGate(maxChangeRate float64, severity GateSeverity) *DriftGate {
	return &DriftGate{MaxChangeRate: maxChangeRate, severity: severity}
}

func (g *DriftGate) Name() string           { return "drift" }
func (g *DriftGate) Severity() GateSeverity { return g.severity }
func (g *DriftGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{
		Name:     g.Name(),
		Severity: g.severity,
	}

	if ctx.ScenariosTotal == 0 {
		r.Status = GateSkipped
		r.Message = "No scenarios registered"
		return r, nil
	}

	changeRate := float64(ctx.ScenariosChanged) / float64(ctx.ScenariosTotal)
	r.Score = 1.0 - changeRate
	r.Threshold = 1.0 - g.MaxChangeRate

	if changeRate <= g.MaxChangeRate {
		r.Status = GatePassed
		r.Message = fmt.Sprintf("Change rate %.1f%% within limit %.1f%% (%d/%d changed)",
			changeRate*100, g.MaxChangeRate*100, ctx.ScenariosChanged, ctx.ScenariosTotal)
	} else {
		r.Status = GateFailed
		r.Message = fmt.Sprintf("Change rate %.1f%% exceeds limit %.1f%% (%d/%d changed)",
			changeRate*100, g.MaxChangeRate*100, ctx.ScenariosChanged, ctx.ScenariosTotal)
	}
	return r, nil
}

// DurationGate checks that the verification run finished inside its
// wall-time budget.
type DurationGate struct {
	MaxElapsed time.Duration
	severity   GateSeverity
}

func NewDurationGate(maxElapsed time.Duration, severity GateSeverity) *DurationGate {
	return &DurationGate{MaxElapsed: maxElapsed, severity: severity}
}

func (g *DurationGate) Name() string           { return "duration" }
func (g *DurationGate) Severity() GateSeverity { return g.severity }
func (g *DurationGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{
		Name:     g.Name(),
		Severity: g.severity,
	}

	if g.MaxElapsed <= 0 {
		r.Status = GateSkipped
		r.Message = "No duration budget configured"
		return r, nil
	}

	usage := float64(ctx.Elapsed) / float64(g.MaxElapsed)
	r.Score = 1.0 - usage
	if r.Score < 0 {
		r.Score = 0
	}

	if ctx.Elapsed <= g.MaxElapsed {
		r.Status = GatePassed
		r.Message = fmt.Sprintf("Run took %s within budget %s (%.0f%% used)",
			ctx.Elapsed, g.MaxElapsed, usage*100)
	} else {
		r.Status = GateFailed
		r.Message = fmt.Sprintf("Run took %s exceeding budget %s (%.0f%% over)",
			ctx.Elapsed, g.MaxElapsed, (usage-1)*100)
	}
	return r, nil
}

// ErrorGate checks that the run produced no more errors than allowed.
type ErrorGate struct {
	MaxErrors int
	severity  GateSeverity
}

func NewErrorGate(maxErrors int, severity GateSeverity) *ErrorGate {
	return &ErrorGate{MaxErrors: maxErrors, severity: severity}
}

func (g *ErrorGate) Name() string           { return "errors" }
func (g *ErrorGate) Severity() GateSeverity { return g.severity }
func (g *ErrorGate) Evaluate(ctx *EvalContext) (*GateResult, error) {
	r := &GateResult{
		Name:     g.Name(),
		Severity: g.severity,
	}

	errorCount := len(ctx.Errors)
	if errorCount <= g.MaxErrors {
		r.Status = GatePassed
		r.Score = 1.0
		r.Message = fmt.Sprintf("Error count %d within limit %d", errorCount, g.MaxErrors)
	} else {
		r.Status = GateFailed
		r.Score = 0.0
		r.Message = fmt.Sprintf("Error count %d exceeds limit %d", errorCount, g.MaxErrors)
		r.Details = ctx.Errors
	}
	return r, nil
}
