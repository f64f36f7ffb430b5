package verify

import (
	"fmt"

	"github.com/efebarandurmaz/mixdown/internal/catalog"
)

// DiffResult reports one fixture comparison. Reason carries the first
// mismatch found, in check order: order, resolution, trace, final state.
type DiffResult struct {
	Fixture string `json:"fixture"`
	Pass    bool   `json:"pass"`
	Reason  string `json:"reason,omitempty"`
}

// Diff compares an executed outcome against a fixture's expectations.
// Per-fixture normalize rules override the run-wide defaults.
func Diff(f Fixture, out *catalog.Outcome, defaults *NormalizeRules) DiffResult {
	rules := defaults
	if f.Normalize != nil {
		rules = f.Normalize
	}

	if reason := diffSlice("order", f.Order, out.Order); reason != "" {
		return DiffResult{Fixture: f.Name, Pass: false, Reason: reason}
	}
	if reason := diffSlice("resolution", f.Resolution, out.Resolution); reason != "" {
		return DiffResult{Fixture: f.Name, Pass: false, Reason: reason}
	}

	if len(f.Trace) > 0 {
		ignore := rules.ignoreNodeSet()
		want := filterTrace(f.Trace, ignore)
		got := filterTrace(out.Trace, ignore)
		if reason := diffSlice("trace", want, got); reason != "" {
			return DiffResult{Fixture: f.Name, Pass: false, Reason: reason}
		}
	}

	if len(f.FinalState) > 0 {
		ignore := rules.ignoreFieldSet()
		for field, want := range f.FinalState {
			if ignore[field] {
				continue
			}
			got, ok := out.FinalState[field]
			if !ok {
				return DiffResult{Fixture: f.Name, Pass: false,
					Reason: fmt.Sprintf("final state missing field %q", field)}
			}
			if got != want {
				return DiffResult{Fixture: f.Name, Pass: false,
					Reason: fmt.Sprintf("final state %q: got %q want %q", field, got, want)}
			}
		}
	}

	return DiffResult{Fixture: f.Name, Pass: true}
}

func diffSlice(what string, want, got []string) string {
	if len(want) == 0 {
		return ""
	}
	if len(got) != len(want) {
		return fmt.Sprintf("%s length mismatch: got %d want %d", what, len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Sprintf("%s mismatch at %d: got %q want %q", what, i, got[i], want[i])
		}
	}
	return ""
}
