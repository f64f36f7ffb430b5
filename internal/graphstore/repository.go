// Package graphstore persists composition graphs so supertype
// relationships stay queryable across runs and tools.
package graphstore

import (
	"context"

	"github.com/efebarandurmaz/mixdown/internal/composition"
	"github.com/efebarandurmaz/mixdown/internal/mixin"
)

// Repository provides graph storage for compositions.
type Repository interface {
	// StoreComposition persists the graph under the scenario name,
	// replacing whatever was stored for it before.
	StoreComposition(ctx context.Context, scenario string, g *composition.Graph) error
	// LoadComposition retrieves the declarations stored for a scenario.
	LoadComposition(ctx context.Context, scenario string) ([]mixin.Node, error)
	// QuerySupertypes returns a node's direct supertypes in mixin order.
	QuerySupertypes(ctx context.Context, scenario, node string) ([]string, error)
	// QuerySubtypes returns the nodes that extend the given node directly.
	QuerySubtypes(ctx context.Context, scenario, node string) ([]string, error)
	// Scenarios lists the stored scenario names.
	Scenarios(ctx context.Context) ([]string, error)
	// Close releases resources.
	Close(ctx context.Context) error
}
