package similarity

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"github.com/efebarandurmaz/mixdown/internal/catalog"
	"github.com/efebarandurmaz/mixdown/internal/composition"
)

// Indexer embeds compositions and stores them in a vector repository.
type Indexer struct {
	repo Repository
}

// NewIndexer creates an Indexer.
func NewIndexer(repo Repository) *Indexer {
	return &Indexer{repo: repo}
}

// IndexScenario embeds one scenario's composition and upserts it.
func (ix *Indexer) IndexScenario(ctx context.Context, s catalog.Scenario) error {
	g, err := s.Graph()
	if err != nil {
		return err
	}
	doc := Document{
		ID:      uuid.NewString(),
		Content: g.Describe(),
		Vector:  Embed(g),
		Metadata: map[string]string{
			"scenario": s.Name,
			"root":     g.Root().Name,
			"nodes":    strconv.Itoa(g.Len()),
		},
	}
	if err := ix.repo.Upsert(ctx, []Document{doc}); err != nil {
		return fmt.Errorf("index %s: %w", s.Name, err)
	}
	return nil
}

// IndexAll indexes every registered scenario.
func (ix *Indexer) IndexAll(ctx context.Context, reg *catalog.Registry) error {
	for _, s := range reg.All() {
		if err := ix.IndexScenario(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// FindSimilar embeds the graph and returns the closest indexed
// compositions.
func (ix *Indexer) FindSimilar(ctx context.Context, g *composition.Graph, topK int) ([]SearchResult, error) {
	if topK <= 0 {
		topK = 5
	}
	return ix.repo.Search(ctx, Embed(g), topK)
}
