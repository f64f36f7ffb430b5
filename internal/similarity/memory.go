package similarity

import (
	"context"
	"sort"
	"sync"
)

// MemoryRepository is a brute-force in-memory vector store for tests
// and single-process deployments.
type MemoryRepository struct {
	mu   sync.RWMutex
	docs map[string]Document
}

// NewMemory creates an empty in-memory repository.
func NewMemory() *MemoryRepository {
	return &MemoryRepository{docs: make(map[string]Document)}
}

func (r *MemoryRepository) Upsert(ctx context.Context, docs []Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range docs {
		vec := append([]float32(nil), d.Vector...)
		meta := make(map[string]string, len(d.Metadata))
		for k, v := range d.Metadata {
			meta[k] = v
		}
		d.Vector = vec
		d.Metadata = meta
		r.docs[d.ID] = d
	}
	return nil
}

func (r *MemoryRepository) Search(ctx context.Context, vector []float32, topK int) ([]SearchResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	results := make([]SearchResult, 0, len(r.docs))
	for _, d := range r.docs {
		results = append(results, SearchResult{
			ID:       d.ID,
			Score:    Cosine(vector, d.Vector),
			Content:  d.Content,
			Metadata: d.Metadata,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ID < results[j].ID
	})
	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func (r *MemoryRepository) Close() error { return nil }

// Len returns the number of stored documents.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}

var _ Repository = (*MemoryRepository)(nil)
