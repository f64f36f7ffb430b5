package tui

import (
	"strings"
	"time"

	"github.com/efebarandurmaz/mixdown/internal/catalog"
	"github.com/efebarandurmaz/mixdown/internal/verify"
)

// InspectStatus represents the verification state of an inspected scenario
type InspectStatus int

const (
	InspectPassed InspectStatus = iota
	InspectFailed
	InspectError
	InspectUnpinned
)

// String returns the string representation of InspectStatus
func (s InspectStatus) String() string {
	switch s {
	case InspectPassed:
		return "passed"
	case InspectFailed:
		return "failed"
	case InspectError:
		return "error"
	case InspectUnpinned:
		return "unpinned"
	default:
		return "unknown"
	}
}

// InspectItem holds one scenario's executed outcome alongside its pinned
// expectations, ready for side-by-side browsing.
type InspectItem struct {
	Name        string
	Description string
	Root        string
	Order       []string // initialization order, base first
	Resolution  []string // resolution order, most-derived first
	Trace       []string
	FinalState  map[string]string
	WantTrace   []string // pinned trace split on ";", empty when unpinned
	Status      InspectStatus
	Mismatch    string // first diff reason, or the execution error
}

// MismatchStep returns the index of the first trace line that diverges
// from the pin, or -1 when the traces agree as far as both go.
func (it *InspectItem) MismatchStep() int {
	if len(it.WantTrace) == 0 {
		return -1
	}
	n := len(it.Trace)
	if len(it.WantTrace) < n {
		n = len(it.WantTrace)
	}
	for i := 0; i < n; i++ {
		if it.Trace[i] != it.WantTrace[i] {
			return i
		}
	}
	if len(it.Trace) != len(it.WantTrace) {
		return n
	}
	return -1
}

// InspectSession holds every scenario's outcome for interactive browsing
type InspectSession struct {
	Items     []*InspectItem
	CreatedAt time.Time
}

// NewInspectSession executes every registered scenario and diffs each
// one against the expectations it carries itself. Execution failures
// become error items rather than aborting the session.
func NewInspectSession(reg *catalog.Registry) *InspectSession {
	session := &InspectSession{
		Items:     make([]*InspectItem, 0, reg.Len()),
		CreatedAt: time.Now(),
	}

	for _, s := range reg.All() {
		item := &InspectItem{
			Name:        s.Name,
			Description: s.Description,
		}
		if s.WantTrace != "" {
			item.WantTrace = strings.Split(s.WantTrace, ";")
		}

		out, err := catalog.Execute(s)
		if err != nil {
			item.Status = InspectError
			item.Mismatch = err.Error()
			session.Items = append(session.Items, item)
			continue
		}

		item.Root = out.Root
		item.Order = out.Order
		item.Resolution = out.Resolution
		item.Trace = out.Trace
		item.FinalState = out.FinalState

		pin := verify.Fixture{
			Name:     s.Name,
			Scenario: s.Name,
			Order:    s.WantOrder,
			Trace:    item.WantTrace,
		}
		if len(pin.Order) == 0 && len(pin.Trace) == 0 {
			item.Status = InspectUnpinned
		} else if diff := verify.Diff(pin, out, nil); diff.Pass {
			item.Status = InspectPassed
		} else {
			item.Status = InspectFailed
			item.Mismatch = diff.Reason
		}

		session.Items = append(session.Items, item)
	}

	return session
}

// Counts tallies items by status.
func (s *InspectSession) Counts() (passed, failed, errored, unpinned int) {
	for _, item := range s.Items {
		switch item.Status {
		case InspectPassed:
			passed++
		case InspectFailed:
			failed++
		case InspectError:
			errored++
		case InspectUnpinned:
			unpinned++
		}
	}
	return
}

// PassRate returns the fraction of pinned scenarios that passed.
// Unpinned scenarios do not count either way; an all-unpinned session
// rates 1.0 because nothing contradicts its pins.
func (s *InspectSession) PassRate() float64 {
	passed, failed, errored, _ := s.Counts()
	pinned := passed + failed + errored
	if pinned == 0 {
		return 1.0
	}
	return float64(passed) / float64(pinned)
}
