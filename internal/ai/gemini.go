package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

type geminiConfig struct {
	APIKey   string `json:"api_key"`
	TaskType string `json:"task_type"`
}

type geminiEmbedder struct {
	apiKey   string
	model    string
	taskType string
}

func (e *geminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.apiKey == "" {
		return nil, ErrUnavailable
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  e.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	var config *genai.EmbedContentConfig
	if e.taskType != "" {
		config = &genai.EmbedContentConfig{TaskType: e.taskType}
	}
	resp, err := client.Models.EmbedContent(
		ctx,
		e.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: text}}}},
		config,
	)
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) == 0 {
		return nil, fmt.Errorf("no embedding values returned")
	}
	return l2Normalize(resp.Embeddings[0].Values), nil
}

func (e *geminiEmbedder) ModelName() string {
	return e.model
}

func createGeminiEmbedder(embedModel string, args interface{}) (Embedder, error) {
	cfg := &geminiConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	return &geminiEmbedder{
		apiKey:   strings.TrimSpace(cfg.APIKey),
		model:    embedModel,
		taskType: cfg.TaskType,
	}, nil
}

func init() {
	Register("gemini", createGeminiEmbedder)
}
