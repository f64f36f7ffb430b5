// Package catalog holds named composition scenarios: declaration sets
// with initializers and the order and trace they are expected to
// produce. The built-in scenarios double as executable documentation of
// the linearization rules; verification runs them against recorded
// fixtures.
package catalog

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/efebarandurmaz/mixdown/internal/composition"
	"github.com/efebarandurmaz/mixdown/internal/construct"
	"github.com/efebarandurmaz/mixdown/internal/linearize"
	"github.com/efebarandurmaz/mixdown/internal/mixin"
	"github.com/efebarandurmaz/mixdown/internal/observability"
)

// Scenario is one self-contained composition case.
type Scenario struct {
	Name         string
	Description  string
	Declarations []mixin.Node
	Initializers map[string]construct.Initializer

	// WantOrder and WantTrace pin the expected initialization order and
	// the ";"-joined trace. WantTrace may be empty for scenarios that
	// only assert on order.
	WantOrder []string
	WantTrace string
}

// Graph validates the scenario's declarations.
func (s Scenario) Graph() (*composition.Graph, error) {
	g, err := composition.Build(s.Declarations)
	if err != nil {
		return nil, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	return g, nil
}

// Outcome is the serializable result of executing one scenario.
type Outcome struct {
	Scenario   string            `json:"scenario"`
	Root       string            `json:"root"`
	Order      []string          `json:"order"`
	Resolution []string          `json:"resolution"`
	Trace      []string          `json:"trace"`
	FinalState map[string]string `json:"final_state,omitempty"`
}

// Execute runs the full pipeline for one scenario: validate, linearize,
// construct. The outcome carries everything fixtures assert on.
func Execute(s Scenario) (*Outcome, error) {
	start := time.Now()

	g, err := s.Graph()
	if err != nil {
		observability.RecordScenarioExecution(s.Name, time.Since(start), err)
		return nil, err
	}
	order := linearize.Linearize(g)

	inst, trace, err := construct.RunInstance(order, s.Initializers)
	if err != nil {
		err = fmt.Errorf("scenario %s: %w", s.Name, err)
		observability.RecordScenarioExecution(s.Name, time.Since(start), err)
		return nil, err
	}

	state := make(map[string]string)
	for _, field := range inst.Fields() {
		v, _ := inst.Get(field)
		state[field] = v.String()
	}
	observability.RecordScenarioExecution(s.Name, time.Since(start), nil)
	return &Outcome{
		Scenario:   s.Name,
		Root:       g.Root().Name,
		Order:      order.Names(),
		Resolution: order.Resolution(),
		Trace:      trace.Strings(),
		FinalState: state,
	}, nil
}

// Registry stores scenarios by name.
type Registry struct {
	mu        sync.RWMutex
	scenarios map[string]Scenario
}

// NewRegistry creates an empty scenario registry.
func NewRegistry() *Registry {
	return &Registry{scenarios: make(map[string]Scenario)}
}

// Register adds a scenario, replacing any existing one with the same name.
func (r *Registry) Register(s Scenario) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scenarios[s.Name] = s
}

// Get returns the named scenario.
func (r *Registry) Get(name string) (Scenario, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scenarios[name]
	if !ok {
		return Scenario{}, fmt.Errorf("no scenario named %q", name)
	}
	return s, nil
}

// Names returns the registered scenario names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.scenarios))
	for name := range r.scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns the registered scenarios in name order.
func (r *Registry) All() []Scenario {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.scenarios))
	for name := range r.scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Scenario, 0, len(names))
	for _, name := range names {
		out = append(out, r.scenarios[name])
	}
	return out
}

// Len returns the number of registered scenarios.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scenarios)
}
