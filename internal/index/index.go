package index

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/jimmy12-d/rean-ai/internal/model"
)

// Index is a similarity index over one document collection. Implementations
// order results by ascending cosine distance (0 identical, ~1 unrelated).
type Index interface {
	Add(ctx context.Context, docs []model.Document, vectors [][]float32) error
	// Search returns up to k nearest documents. filter entries must match
	// document metadata exactly.
	Search(ctx context.Context, vector []float32, k int, filter map[string]string) ([]model.ScoredDocument, error)
	Count(ctx context.Context) (int, error)
	// Reset discards the collection's contents ahead of a rebuild.
	Reset(ctx context.Context) error
	// Close releases whatever backs the collection (memory, connection
	// pools). The index must not be used afterwards.
	Close(ctx context.Context) error
}

type Factory func(collection string, args interface{}) (Index, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Factory{}
)

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registryMu.Lock()
	registry[key] = factory
	registryMu.Unlock()
}

func New(typ string, collection string, args interface{}) (Index, error) {
	key := strings.ToLower(strings.TrimSpace(typ))
	if key == "" {
		return nil, fmt.Errorf("index.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported index type: %s", typ)
	}
	return factory(collection, args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode index config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode index config: %w", err)
	}
	return nil
}

func matchesFilter(meta map[string]string, filter map[string]string) bool {
	for k, want := range filter {
		if meta[k] != want {
			return false
		}
	}
	return true
}
