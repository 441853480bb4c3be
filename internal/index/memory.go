package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/jimmy12-d/rean-ai/internal/model"
)

// memoryIndex is a brute-force in-memory index. The corpus is a few thousand
// short documents, so a linear scan beats maintaining an ANN structure.
type memoryIndex struct {
	mu      sync.RWMutex
	docs    []model.Document
	vectors [][]float32
}

func newMemoryIndex(collection string, args interface{}) (Index, error) {
	_ = collection
	_ = args
	return &memoryIndex{}, nil
}

func (m *memoryIndex) Add(ctx context.Context, docs []model.Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("documents/vectors length mismatch: %d != %d", len(docs), len(vectors))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = append(m.docs, docs...)
	m.vectors = append(m.vectors, vectors...)
	return nil
}

func (m *memoryIndex) Search(ctx context.Context, vector []float32, k int, filter map[string]string) ([]model.ScoredDocument, error) {
	if k <= 0 {
		return nil, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]model.ScoredDocument, 0, len(m.docs))
	for i, doc := range m.docs {
		if len(filter) > 0 && !matchesFilter(doc.Metadata, filter) {
			continue
		}
		results = append(results, model.ScoredDocument{
			Document: doc,
			Distance: cosineDistance(vector, m.vectors[i]),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

func (m *memoryIndex) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs), nil
}

func (m *memoryIndex) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = nil
	m.vectors = nil
	return nil
}

func (m *memoryIndex) Close(ctx context.Context) error {
	return m.Reset(ctx)
}

// cosineDistance is 1 - cosine similarity. Mismatched or zero-norm vectors
// count as maximally distant rather than erroring out of a whole search.
func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}

func init() {
	Register("memory", newMemoryIndex)
}
