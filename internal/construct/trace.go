package construct

import (
	"encoding/json"
	"strings"
)

// Event is one observable step in an initialization trace. Label is the
// full printed form; Node attributes it to the initializer that emitted
// it, with boundary events attributed to the composition root.
type Event struct {
	Node  string `json:"node"`
	Label string `json:"label"`
}

func (e Event) String() string { return e.Label }

// Trace is the ordered record of events one construction run produced.
// A trace belongs to the single run that created it and is not safe for
// concurrent use; the engine never retains it after Run returns.
type Trace struct {
	events []Event
}

// Append records an event.
func (t *Trace) Append(node, label string) {
	t.events = append(t.events, Event{Node: node, Label: label})
}

// Events returns a copy of the recorded events.
func (t *Trace) Events() []Event {
	return append([]Event(nil), t.events...)
}

// Len returns the number of recorded events.
func (t *Trace) Len() int { return len(t.events) }

// Strings returns the event labels in order.
func (t *Trace) Strings() []string {
	out := make([]string, len(t.events))
	for i, e := range t.events {
		out[i] = e.Label
	}
	return out
}

// Render joins the event labels with a separator, the form the source
// exercises compare against, e.g. "Creating C1;In T1: x=0;...".
func (t *Trace) Render(sep string) string {
	return strings.Join(t.Strings(), sep)
}

// PerNode counts recorded events by emitting node.
func (t *Trace) PerNode() map[string]int {
	out := make(map[string]int)
	for _, e := range t.events {
		out[e.Node]++
	}
	return out
}

// MarshalJSON serializes the trace as its event list.
func (t *Trace) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.events)
}

// UnmarshalJSON restores a trace from its event list.
func (t *Trace) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &t.events)
}
