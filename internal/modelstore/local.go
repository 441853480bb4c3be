package modelstore

import (
	"context"
	"fmt"
	"os"
)

type localStore struct{}

func (localStore) Resolve(ctx context.Context, path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("model file missing: %s: %w", path, err)
	}
	return path, nil
}

func init() {
	Register("local", func(args interface{}) (Store, error) {
		return localStore{}, nil
	})
}
