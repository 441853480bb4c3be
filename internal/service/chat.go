package service

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/jimmy12-d/rean-ai/internal/engine"
	"github.com/jimmy12-d/rean-ai/internal/model"
)

// StreamEvent is one newline-delimited JSON message of the /generate stream:
// an info line carrying the rendered prompt, then one token line per fragment.
type StreamEvent struct {
	Type   string `json:"type"`
	Prompt string `json:"prompt,omitempty"`
	Text   string `json:"text,omitempty"`
}

// Chat runs the retrieval-augmented generation pipeline for one request.
type Chat struct {
	manager    *engine.Manager
	retriever  *Retriever
	classifier *Classifier
	composer   *Composer
}

func NewChat(manager *engine.Manager, retriever *Retriever, classifier *Classifier, composer *Composer) *Chat {
	return &Chat{manager: manager, retriever: retriever, classifier: classifier, composer: composer}
}

// Stream acquires the active engine, assembles the prompt, and forwards
// generated tokens to sink as they are produced. The engine handle is held
// for the whole call, so a concurrent model swap cannot free it mid-stream.
// A sink error (e.g. client disconnect) aborts generation.
func (s *Chat) Stream(ctx context.Context, req model.ChatRequest, sink func(StreamEvent) error) error {
	handle, err := s.manager.Acquire()
	if err != nil {
		return err
	}
	defer handle.Release()

	query := req.UserQuery()
	conceptText, exerciseText := s.retriever.Retrieve(ctx, query, "")
	intent := s.classifier.Classify(query)
	logutil.GetLogger(ctx).Info("generate request",
		zap.String("model", handle.Profile().Key),
		zap.String("intent", intent.String()),
	)

	prompt, err := s.composer.Compose(handle.Profile().Family, intent, conceptText, exerciseText, query)
	if err != nil {
		return err
	}
	if err := sink(StreamEvent{Type: "info", Prompt: prompt.Text}); err != nil {
		return err
	}
	return handle.Engine().Complete(ctx, prompt.Text, prompt.Params, func(token string) error {
		return sink(StreamEvent{Type: "token", Text: token})
	})
}
