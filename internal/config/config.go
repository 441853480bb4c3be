package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"

	"github.com/jimmy12-d/rean-ai/internal/model"
)

type Config struct {
	Port         int                  `json:"port"`
	LogConfig    logger.LogConfig     `json:"log_config"`
	DefaultModel string               `json:"default_model"`
	Models       []model.ModelProfile `json:"models"`
	Engine       ComponentConfig      `json:"engine"`
	Embedding    EmbeddingConfig      `json:"embedding"`
	EmbedCache   EmbedCacheConfig     `json:"embed_cache"`
	Index        ComponentConfig      `json:"index"`
	RAG          RAGConfig            `json:"rag"`
	ModelStore   ComponentConfig      `json:"model_store"`

	// Development posture: empty allowlist means all origins are allowed.
	CORSAllowlist []string `json:"cors_allowlist"`
	// 0 disables rate limiting on /set_model.
	SetModelRateLimitSeconds int `json:"set_model_rate_limit_seconds"`
}

// ComponentConfig selects a registered implementation by type and carries its
// opaque config block, decoded by the component factory.
type ComponentConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type EmbeddingConfig struct {
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Data     interface{} `json:"data"`
}

type EmbedCacheConfig struct {
	Size       int `json:"size"`
	TTLSeconds int `json:"ttl_seconds"`
}

type RAGConfig struct {
	CorpusDir       string   `json:"corpus_dir"`
	ScoreThreshold  float64  `json:"score_threshold"`
	MaxContextChars int      `json:"max_context_chars"`
	// Extra keywords that classify a query as GENERATE, merged with the
	// built-in list.
	GenerateKeywords []string `json:"generate_keywords"`
	// Standard 5-field cron spec; empty disables periodic reindexing.
	ReindexCron string `json:"reindex_cron"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		cfg.Port = 8000
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if len(cfg.Models) == 0 {
		return nil, fmt.Errorf("models is required")
	}
	seen := map[string]bool{}
	for i := range cfg.Models {
		p := &cfg.Models[i]
		if p.Key == "" {
			return nil, fmt.Errorf("models[%d].key is required", i)
		}
		if seen[p.Key] {
			return nil, fmt.Errorf("duplicate model key: %s", p.Key)
		}
		seen[p.Key] = true
		if p.WeightsPath == "" {
			return nil, fmt.Errorf("model %s: weights_path is required", p.Key)
		}
		if p.DisplayName == "" {
			p.DisplayName = p.Key
		}
		if p.AdapterPath != "" && p.AdapterScale == 0 {
			p.AdapterScale = 1.0
		}
		p.Family = p.ResolveFamily()
		if p.Family != model.FamilyQwen && p.Family != model.FamilySeaLLM {
			return nil, fmt.Errorf("model %s: unsupported family: %s", p.Key, p.Family)
		}
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = cfg.Models[0].Key
	}
	if !seen[cfg.DefaultModel] {
		return nil, fmt.Errorf("default_model %s is not in models", cfg.DefaultModel)
	}
	if cfg.Engine.Type == "" {
		cfg.Engine.Type = "llamacpp"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "ollama"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "bge-m3"
	}
	if cfg.Index.Type == "" {
		cfg.Index.Type = "memory"
	}
	if cfg.ModelStore.Type == "" {
		cfg.ModelStore.Type = "local"
	}
	if cfg.RAG.ScoreThreshold == 0 {
		cfg.RAG.ScoreThreshold = 0.8
	}
	if cfg.RAG.MaxContextChars == 0 {
		cfg.RAG.MaxContextChars = 6000
	}
	return &cfg, nil
}
