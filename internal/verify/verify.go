package verify

import (
	"time"

	"github.com/efebarandurmaz/mixdown/internal/catalog"
	"github.com/efebarandurmaz/mixdown/internal/observability"
)

// Run replays every fixture against the registry's scenarios and
// returns the finished report. An unknown scenario or an execution
// failure is a failed result, never a hard stop; the remaining fixtures
// still run.
func Run(reg *catalog.Registry, fixtures []Fixture, defaults *NormalizeRules) *Report {
	report := NewReport()
	for _, f := range fixtures {
		res := replay(reg, f, defaults)
		observability.RecordFixture(res.Diff.Pass && res.Error == "")
		report.Add(res)
	}
	report.Finish()
	observability.RecordVerifyRun(report.Pass, report.EndedAt.Sub(report.StartedAt))
	return report
}

func replay(reg *catalog.Registry, f Fixture, defaults *NormalizeRules) Result {
	start := time.Now()
	res := Result{Fixture: f.Name, Scenario: f.Scenario}

	s, err := reg.Get(f.Scenario)
	if err != nil {
		res.Error = err.Error()
		res.Diff = DiffResult{Fixture: f.Name, Pass: false, Reason: res.Error}
		res.Duration = time.Since(start)
		return res
	}

	out, err := catalog.Execute(s)
	if err != nil {
		res.Error = err.Error()
		res.Diff = DiffResult{Fixture: f.Name, Pass: false, Reason: res.Error}
		res.Duration = time.Since(start)
		return res
	}

	res.Diff = Diff(f, out, defaults)
	res.Duration = time.Since(start)
	return res
}

// Record executes every registered scenario and pins its full outcome
// as a fixture: the record half of record/replay.
func Record(reg *catalog.Registry) ([]Fixture, error) {
	var out []Fixture
	for _, s := range reg.All() {
		o, err := catalog.Execute(s)
		if err != nil {
			return nil, err
		}
		out = append(out, Fixture{
			Name:       s.Name,
			Scenario:   s.Name,
			Order:      o.Order,
			Resolution: o.Resolution,
			Trace:      o.Trace,
			FinalState: o.FinalState,
		})
	}
	return out, nil
}
