package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrUnavailable = errors.New("embedding provider unavailable")

// Embedder computes a fixed-length vector for a text string.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}

type Factory func(embedModel string, args interface{}) (Embedder, error)

var registry = map[string]Factory{}

func Register(name string, factory Factory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewEmbedder(provider string, embedModel string, args interface{}) (Embedder, error) {
	key := strings.ToLower(strings.TrimSpace(provider))
	if key == "" {
		return nil, fmt.Errorf("embedding.provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported embedding provider: %s", provider)
	}
	return factory(embedModel, args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode embedding provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode embedding provider config: %w", err)
	}
	return nil
}

// l2Normalize scales the vector to unit length so cosine distances are
// comparable across providers. Zero vectors are returned unchanged.
func l2Normalize(values []float32) []float32 {
	var sum float64
	for _, v := range values {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return values
	}
	norm := float32(math.Sqrt(sum))
	for i := range values {
		values[i] /= norm
	}
	return values
}
