package service

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/jimmy12-d/rean-ai/internal/ai"
	"github.com/jimmy12-d/rean-ai/internal/index"
)

const (
	ConceptNotFound  = "No relevant concept found."
	ExerciseNotFound = "No relevant exercise found."
)

// IndexPair is one immutable generation of the two similarity indices. The
// reindex job builds a fresh pair and swaps it in; searches in flight keep
// using the pair they started with.
type IndexPair struct {
	Concepts  index.Index
	Exercises index.Index
}

// Close releases both indices. Nil receivers and slots are tolerated so
// callers can close whatever SwapIndices hands back.
func (p *IndexPair) Close(ctx context.Context) error {
	if p == nil {
		return nil
	}
	var firstErr error
	for _, idx := range []index.Index{p.Concepts, p.Exercises} {
		if idx == nil {
			continue
		}
		if err := idx.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Retriever answers "what reference text is closest to this utterance" for
// both collections. It never fails a request: any miss, empty index, or
// embedding error degrades to the fixed not-found sentinels.
type Retriever struct {
	embedder  ai.Embedder
	threshold float64
	pair      atomic.Pointer[IndexPair]
}

func NewRetriever(embedder ai.Embedder, threshold float64) *Retriever {
	return &Retriever{embedder: embedder, threshold: threshold}
}

// SwapIndices installs a new index generation and returns the previous one
// so the caller can release it.
func (r *Retriever) SwapIndices(pair *IndexPair) *IndexPair {
	return r.pair.Swap(pair)
}

// Retrieve returns the rendered concept and exercise context blocks for a
// query. subject, when non-empty, restricts matches by metadata.
func (r *Retriever) Retrieve(ctx context.Context, query string, subject string) (conceptText string, exerciseText string) {
	conceptText = ConceptNotFound
	exerciseText = ExerciseNotFound

	pair := r.pair.Load()
	if pair == nil {
		return conceptText, exerciseText
	}
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		logutil.GetLogger(ctx).Warn("query embedding failed, serving without context", zap.Error(err))
		return conceptText, exerciseText
	}
	var filter map[string]string
	if subject != "" {
		filter = map[string]string{"subject": subject}
	}
	if text, ok := r.searchSlot(ctx, pair.Concepts, vector, filter, "concept"); ok {
		conceptText = text
	}
	if text, ok := r.searchSlot(ctx, pair.Exercises, vector, filter, "exercise"); ok {
		exerciseText = text
	}
	return conceptText, exerciseText
}

func (r *Retriever) searchSlot(ctx context.Context, idx index.Index, vector []float32, filter map[string]string, slot string) (string, bool) {
	if idx == nil {
		return "", false
	}
	results, err := idx.Search(ctx, vector, 1, filter)
	if err != nil {
		logutil.GetLogger(ctx).Warn("index search failed", zap.String("slot", slot), zap.Error(err))
		return "", false
	}
	if len(results) == 0 {
		return "", false
	}
	best := results[0]
	if best.Distance >= r.threshold {
		logutil.GetLogger(ctx).Debug("best match above threshold",
			zap.String("slot", slot), zap.Float64("distance", best.Distance))
		return "", false
	}
	logutil.GetLogger(ctx).Debug("context match",
		zap.String("slot", slot), zap.String("doc_id", best.Document.ID), zap.Float64("distance", best.Distance))
	return fmt.Sprintf("%s\n\n(Similarity Score: %.4f)", best.Document.Text, best.Distance), true
}

// Counts reports index sizes for the health endpoint. A missing pair reports
// zeros.
func (r *Retriever) Counts(ctx context.Context) (concepts int, exercises int) {
	pair := r.pair.Load()
	if pair == nil {
		return 0, 0
	}
	if pair.Concepts != nil {
		if n, err := pair.Concepts.Count(ctx); err == nil {
			concepts = n
		}
	}
	if pair.Exercises != nil {
		if n, err := pair.Exercises.Count(ctx); err == nil {
			exercises = n
		}
	}
	return concepts, exercises
}
