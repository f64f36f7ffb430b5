package cache

import (
	"context"
	"sync"
	"time"

	"github.com/efebarandurmaz/mixdown/internal/catalog"
	"github.com/efebarandurmaz/mixdown/internal/fingerprint"
	"github.com/efebarandurmaz/mixdown/internal/observability"
)

// Executor runs catalog scenarios through an outcome cache. The cache
// key is the composition graph hash, so any edit to a declaration
// misses and re-executes.
type Executor struct {
	store Store
	reg   *catalog.Registry
	ttl   time.Duration

	mu     sync.Mutex
	hits   int
	misses int
}

func NewExecutor(store Store, reg *catalog.Registry, ttl time.Duration) *Executor {
	return &Executor{store: store, reg: reg, ttl: ttl}
}

// Execute returns the outcome for the named scenario, from cache when
// the composition is unchanged. Cache failures fall through to a fresh
// run rather than failing the request.
func (e *Executor) Execute(ctx context.Context, name string) (*catalog.Outcome, error) {
	s, err := e.reg.Get(name)
	if err != nil {
		return nil, err
	}
	g, err := s.Graph()
	if err != nil {
		return nil, err
	}
	key := fingerprint.GraphHash(g)

	if out, ok, err := e.store.Get(ctx, key); err == nil && ok {
		e.count(&e.hits)
		observability.RecordCacheLookup(true)
		return out, nil
	}
	e.count(&e.misses)
	observability.RecordCacheLookup(false)

	out, err := catalog.Execute(s)
	if err != nil {
		return nil, err
	}
	// A failed cache write only costs the next lookup, not this run.
	_ = e.store.Set(ctx, key, out, e.ttl)
	return out, nil
}

func (e *Executor) count(n *int) {
	e.mu.Lock()
	*n++
	e.mu.Unlock()
}

// Stats reports cache hits and misses since construction.
func (e *Executor) Stats() (hits, misses int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hits, e.misses
}
