package graphstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/efebarandurmaz/mixdown/internal/composition"
	"github.com/efebarandurmaz/mixdown/internal/mixin"
)

// MemoryRepository keeps compositions in process memory. It backs tests
// and deployments that run without a graph database.
type MemoryRepository struct {
	mu           sync.RWMutex
	compositions map[string][]mixin.Node
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *MemoryRepository {
	return &MemoryRepository{compositions: make(map[string][]mixin.Node)}
}

func (r *MemoryRepository) StoreComposition(ctx context.Context, scenario string, g *composition.Graph) error {
	decls := make([]mixin.Node, 0, g.Len())
	for _, n := range g.Nodes() {
		decls = append(decls, *n.Clone())
	}
	sort.Slice(decls, func(i, j int) bool { return decls[i].Name < decls[j].Name })

	r.mu.Lock()
	defer r.mu.Unlock()
	r.compositions[scenario] = decls
	return nil
}

func (r *MemoryRepository) LoadComposition(ctx context.Context, scenario string) ([]mixin.Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	decls, ok := r.compositions[scenario]
	if !ok {
		return nil, fmt.Errorf("no composition stored for scenario %q", scenario)
	}
	out := make([]mixin.Node, 0, len(decls))
	for _, n := range decls {
		out = append(out, *n.Clone())
	}
	return out, nil
}

func (r *MemoryRepository) QuerySupertypes(ctx context.Context, scenario, node string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	decls, ok := r.compositions[scenario]
	if !ok {
		return nil, fmt.Errorf("no composition stored for scenario %q", scenario)
	}
	for _, n := range decls {
		if n.Name == node {
			return append([]string(nil), n.Supertypes...), nil
		}
	}
	return nil, fmt.Errorf("no node %q in scenario %q", node, scenario)
}

func (r *MemoryRepository) QuerySubtypes(ctx context.Context, scenario, node string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	decls, ok := r.compositions[scenario]
	if !ok {
		return nil, fmt.Errorf("no composition stored for scenario %q", scenario)
	}
	var subs []string
	for _, n := range decls {
		for _, super := range n.Supertypes {
			if super == node {
				subs = append(subs, n.Name)
				break
			}
		}
	}
	sort.Strings(subs)
	return subs, nil
}

func (r *MemoryRepository) Scenarios(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.compositions))
	for name := range r.compositions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (r *MemoryRepository) Close(ctx context.Context) error { return nil }

var _ Repository = (*MemoryRepository)(nil)
