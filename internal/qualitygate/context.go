package qualitygate

import (
	"github.com/efebarandurmaz/mixdown/internal/catalog"
	"github.com/efebarandurmaz/mixdown/internal/verify"
)

// ContextFromReport derives an EvalContext from a verification report
// and the registry it ran against. ScenariosChanged stays zero; the
// caller fills it in when an incremental analysis is available.
func ContextFromReport(report *verify.Report, reg *catalog.Registry) *EvalContext {
	ctx := &EvalContext{
		CompositionOK:  true,
		FixturesPassed: report.PassCount,
		FixturesTotal:  report.FixtureCount,
		ScenariosTotal: reg.Len(),
		Elapsed:        report.EndedAt.Sub(report.StartedAt),
	}

	for _, s := range reg.All() {
		if _, err := s.Graph(); err != nil {
			ctx.CompositionOK = false
			ctx.CompositionErrors = append(ctx.CompositionErrors, err.Error())
		}
	}

	covered := make(map[string]bool)
	for _, res := range report.Results {
		if res.Error != "" {
			ctx.Errors = append(ctx.Errors, res.Error)
		}
		if _, err := reg.Get(res.Scenario); err == nil {
			covered[res.Scenario] = true
		}
	}
	ctx.ScenariosCovered = len(covered)

	return ctx
}
