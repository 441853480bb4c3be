package engine

import (
	"context"
	"fmt"

	"github.com/jimmy12-d/rean-ai/internal/model"
)

type remoteConfig struct {
	BaseURL string `json:"base_url"`
}

// remoteEngine attaches to an externally managed llama-server. Loading does
// not actually swap the weights on the remote side, so this type suits
// single-model deployments where an operator owns the server lifecycle.
type remoteEngine struct {
	client *completionClient
}

func newRemoteEngine(profile model.ModelProfile, args interface{}) (Engine, error) {
	_ = profile
	cfg := &remoteConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("engine.data.base_url is required for remote engine")
	}
	return &remoteEngine{client: newCompletionClient(cfg.BaseURL)}, nil
}

func (e *remoteEngine) Complete(ctx context.Context, prompt string, params Params, onToken func(string) error) error {
	return e.client.complete(ctx, prompt, params, onToken)
}

// Close is a no-op; the process belongs to someone else.
func (e *remoteEngine) Close() error {
	return nil
}

func init() {
	Register("remote", newRemoteEngine)
}
