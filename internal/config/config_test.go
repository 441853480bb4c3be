package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jimmy12-d/rean-ai/internal/config"
	"github.com/jimmy12-d/rean-ai/internal/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `{
		"models": [
			{"key": "qwen-khmer", "weights_path": "/models/qwen.gguf"}
		]
	}`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, 8000, cfg.Port)
	require.Equal(t, "info", cfg.LogConfig.Level)
	require.Equal(t, "qwen-khmer", cfg.DefaultModel)
	require.Equal(t, "llamacpp", cfg.Engine.Type)
	require.Equal(t, "ollama", cfg.Embedding.Provider)
	require.Equal(t, "bge-m3", cfg.Embedding.Model)
	require.Equal(t, "memory", cfg.Index.Type)
	require.Equal(t, "local", cfg.ModelStore.Type)
	require.InDelta(t, 0.8, cfg.RAG.ScoreThreshold, 1e-9)
	require.Equal(t, 6000, cfg.RAG.MaxContextChars)

	require.Equal(t, "qwen-khmer", cfg.Models[0].DisplayName)
	require.Equal(t, model.FamilyQwen, cfg.Models[0].Family)
}

func TestLoadResolvesSeaLLMFamilyAndAdapterScale(t *testing.T) {
	path := writeConfig(t, `{
		"models": [
			{"key": "seallm-khmer", "weights_path": "/models/seallm.gguf", "adapter_path": "/models/lora.gguf", "display_name": "SeaLLM"}
		]
	}`)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, model.FamilySeaLLM, cfg.Models[0].Family)
	require.Equal(t, "SeaLLM", cfg.Models[0].DisplayName)
	require.InDelta(t, 1.0, cfg.Models[0].AdapterScale, 1e-9)
}

func TestLoadRejectsBadConfigs(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"no models", `{}`},
		{"missing key", `{"models":[{"weights_path":"/m.gguf"}]}`},
		{"missing weights", `{"models":[{"key":"qwen-a"}]}`},
		{"duplicate key", `{"models":[{"key":"qwen-a","weights_path":"/a.gguf"},{"key":"qwen-a","weights_path":"/b.gguf"}]}`},
		{"unknown default", `{"default_model":"nope","models":[{"key":"qwen-a","weights_path":"/a.gguf"}]}`},
		{"unknown family", `{"models":[{"key":"mistral-a","weights_path":"/a.gguf","family":"mistral"}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, tc.content))
			require.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}
