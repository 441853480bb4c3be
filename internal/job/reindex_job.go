package job

import (
	"context"

	"github.com/jimmy12-d/rean-ai/internal/service"
)

// ReindexJob rebuilds the similarity indices from the corpus directory so
// newly dropped .jsonl files show up without a restart.
type ReindexJob struct {
	indexer *service.Indexer
}

func NewReindexJob(indexer *service.Indexer) *ReindexJob {
	return &ReindexJob{indexer: indexer}
}

func (j *ReindexJob) Name() string {
	return "corpus_reindex"
}

func (j *ReindexJob) Run(ctx context.Context) error {
	if j.indexer == nil {
		return nil
	}
	return j.indexer.Rebuild(ctx)
}
