package verify

import "strings"

// NormalizeRules carves out parts of an outcome before comparison. The
// ignore lists are enough to skip fields whose values a fixture does not
// want to pin, without loosening the rest of the diff.
type NormalizeRules struct {
	IgnoreStateFields []string `json:"ignore_state_fields,omitempty"`
	IgnoreTraceNodes  []string `json:"ignore_trace_nodes,omitempty"`
}

func (r *NormalizeRules) ignoreFieldSet() map[string]bool {
	out := make(map[string]bool)
	if r == nil {
		return out
	}
	for _, f := range r.IgnoreStateFields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		out[f] = true
	}
	return out
}

func (r *NormalizeRules) ignoreNodeSet() map[string]bool {
	out := make(map[string]bool)
	if r == nil {
		return out
	}
	for _, n := range r.IgnoreTraceNodes {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		out[n] = true
	}
	return out
}

// filterTrace drops events attributed to ignored nodes. Events are
// attributed by their "In <node>:" prefix; the Creating/Created brackets
// always survive.
func filterTrace(events []string, ignore map[string]bool) []string {
	if len(ignore) == 0 {
		return events
	}
	out := make([]string, 0, len(events))
	for _, e := range events {
		if node, ok := traceNode(e); ok && ignore[node] {
			continue
		}
		out = append(out, e)
	}
	return out
}

func traceNode(event string) (string, bool) {
	if !strings.HasPrefix(event, "In ") {
		return "", false
	}
	rest := event[len("In "):]
	i := strings.Index(rest, ":")
	if i < 0 {
		return "", false
	}
	return rest[:i], true
}
