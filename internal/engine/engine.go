package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/jimmy12-d/rean-ai/internal/model"
)

// Params are the sampling parameters for one completion.
type Params struct {
	MaxTokens     int
	Temperature   float32
	RepeatPenalty float32
	TopP          float32
	TopK          int
	Stop          []string
}

// Engine is a loaded inference instance for one model profile. Complete
// invokes onToken for every produced text fragment, in order, and returns
// when generation finishes, hits a stop marker, or ctx is canceled.
type Engine interface {
	Complete(ctx context.Context, prompt string, params Params, onToken func(token string) error) error
	Close() error
}

type Factory func(profile model.ModelProfile, args interface{}) (Engine, error)

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

func New(typ string, profile model.ModelProfile, args interface{}) (Engine, error) {
	key := strings.ToLower(strings.TrimSpace(typ))
	if key == "" {
		return nil, fmt.Errorf("engine.type is required")
	}
	registryMu.RLock()
	factory := registry[key]
	registryMu.RUnlock()
	if factory == nil {
		return nil, fmt.Errorf("unsupported engine type: %s", typ)
	}
	return factory(profile, args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return nil
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode engine config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode engine config: %w", err)
	}
	return nil
}
