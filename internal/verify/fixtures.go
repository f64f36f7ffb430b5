// Package verify replays recorded scenario fixtures against the engine
// and diffs what comes back: initialization order, resolution order,
// construction trace, and final field state. Fixtures travel as JSON
// Lines so they can be archived, reviewed, and replayed anywhere.
package verify

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/efebarandurmaz/mixdown/internal/catalog"
)

// Fixture pins the expected outcome of one scenario. Empty expectation
// fields are not compared, so a fixture can assert on order alone.
type Fixture struct {
	Name     string `json:"name"`
	Scenario string `json:"scenario"`

	Order      []string          `json:"order,omitempty"`
	Resolution []string          `json:"resolution,omitempty"`
	Trace      []string          `json:"trace,omitempty"`
	FinalState map[string]string `json:"final_state,omitempty"`

	// Normalize overrides the run-wide comparison rules for this fixture.
	Normalize *NormalizeRules `json:"normalize,omitempty"`
}

// ReadJSONL reads fixtures from a JSON Lines stream.
func ReadJSONL(r io.Reader) ([]Fixture, error) {
	var out []Fixture
	sc := bufio.NewScanner(r)
	// Traces for deep compositions can make long lines.
	sc.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	lineNo := 0
	for sc.Scan() {
		lineNo++
		b := sc.Bytes()
		if len(b) == 0 {
			continue
		}
		var f Fixture
		if err := json.Unmarshal(b, &f); err != nil {
			return nil, fmt.Errorf("fixtures: invalid JSONL at line %d: %w", lineNo, err)
		}
		if f.Scenario == "" {
			return nil, fmt.Errorf("fixtures: missing scenario at line %d", lineNo)
		}
		if f.Name == "" {
			f.Name = f.Scenario
		}
		out = append(out, f)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Pinned builds fixtures from the expectations the registered scenarios
// carry themselves. Scenarios that pin nothing are skipped.
func Pinned(reg *catalog.Registry) []Fixture {
	var out []Fixture
	for _, s := range reg.All() {
		f := Fixture{Name: s.Name, Scenario: s.Name, Order: s.WantOrder}
		if s.WantTrace != "" {
			f.Trace = strings.Split(s.WantTrace, ";")
		}
		if len(f.Order) == 0 && len(f.Trace) == 0 {
			continue
		}
		out = append(out, f)
	}
	return out
}

// WriteJSONL writes fixtures as one JSON object per line.
func WriteJSONL(w io.Writer, fixtures []Fixture) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for i, f := range fixtures {
		if f.Scenario == "" {
			return fmt.Errorf("fixtures: missing scenario at index %d", i)
		}
		if err := enc.Encode(f); err != nil {
			return fmt.Errorf("fixtures: encode %s: %w", f.Scenario, err)
		}
	}
	return bw.Flush()
}
