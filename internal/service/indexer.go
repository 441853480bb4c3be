package service

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/jimmy12-d/rean-ai/internal/ai"
	"github.com/jimmy12-d/rean-ai/internal/index"
	"github.com/jimmy12-d/rean-ai/internal/ingest"
	"github.com/jimmy12-d/rean-ai/internal/model"
)

// IndexFactory builds one index instance for a named collection.
type IndexFactory func(collection string) (index.Index, error)

// Indexer turns the corpus directory into a fresh pair of similarity indices
// and hands it to the retriever. It runs synchronously at startup and from
// the reindex cron job.
type Indexer struct {
	loader    *ingest.Loader
	embedder  ai.Embedder
	retriever *Retriever
	newIndex  IndexFactory
}

func NewIndexer(loader *ingest.Loader, embedder ai.Embedder, retriever *Retriever, factory IndexFactory) *Indexer {
	return &Indexer{loader: loader, embedder: embedder, retriever: retriever, newIndex: factory}
}

// Rebuild loads, embeds, and indexes the corpus, then swaps the new pair in.
// An empty corpus still swaps (the retriever then serves sentinels only).
func (ix *Indexer) Rebuild(ctx context.Context) error {
	start := time.Now()
	concepts, exercises, err := ix.loader.Load(ctx)
	if err != nil {
		return err
	}
	conceptIdx, err := ix.buildIndex(ctx, "concepts", concepts)
	if err != nil {
		return err
	}
	exerciseIdx, err := ix.buildIndex(ctx, "exercises", exercises)
	if err != nil {
		return err
	}
	old := ix.retriever.SwapIndices(&IndexPair{Concepts: conceptIdx, Exercises: exerciseIdx})
	if old != nil {
		// Searches in flight on the old generation fail closed to the
		// sentinels, so the retired pair can be released right away.
		if err := old.Close(ctx); err != nil {
			logutil.GetLogger(ctx).Warn("closing retired indices failed", zap.Error(err))
		}
	}
	logutil.GetLogger(ctx).Info("indices rebuilt",
		zap.Int("concepts", len(concepts)),
		zap.Int("exercises", len(exercises)),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}

func (ix *Indexer) buildIndex(ctx context.Context, collection string, docs []model.Document) (index.Index, error) {
	idx, err := ix.newIndex(collection)
	if err != nil {
		return nil, err
	}
	if err := idx.Reset(ctx); err != nil {
		return nil, err
	}
	kept := make([]model.Document, 0, len(docs))
	vectors := make([][]float32, 0, len(docs))
	for _, doc := range docs {
		vector, err := ix.embedder.Embed(ctx, doc.Text)
		if err != nil {
			// One bad document should not sink the whole rebuild.
			logutil.GetLogger(ctx).Warn("embedding document failed, skipping",
				zap.String("collection", collection), zap.String("doc_id", doc.ID), zap.Error(err))
			continue
		}
		kept = append(kept, doc)
		vectors = append(vectors, vector)
	}
	if err := idx.Add(ctx, kept, vectors); err != nil {
		return nil, err
	}
	return idx, nil
}
