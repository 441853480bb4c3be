package service_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jimmy12-d/rean-ai/internal/index"
	"github.com/jimmy12-d/rean-ai/internal/ingest"
	"github.com/jimmy12-d/rean-ai/internal/service"
)

func TestIndexerRebuildSwapsFreshPair(t *testing.T) {
	dir := t.TempDir()
	corpus := `{"id":"TH_1","khmer_title":"ច្បាប់ញូតុន","content":"F = ma","subject":"physics"}
{"id":"EX_1","content":"Find F for m=2kg, a=3m/s^2","metadata":{"type":"Q&A","subject":"physics"}}
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "physics.jsonl"), []byte(corpus), 0o644))

	embedder := &stubEmbedder{vectors: map[string][]float32{
		"ច្បាប់ញូតុន\nF = ma":           {1, 0, 0},
		"Find F for m=2kg, a=3m/s^2":   {1, 0, 0},
		"what is newton's second law?": {1, 0, 0},
	}}
	retriever := service.NewRetriever(embedder, 0.8)
	indexer := service.NewIndexer(ingest.NewLoader(dir), embedder, retriever, func(collection string) (index.Index, error) {
		return index.New("memory", collection, nil)
	})

	require.NoError(t, indexer.Rebuild(context.Background()))

	concepts, exercises := retriever.Counts(context.Background())
	require.Equal(t, 1, concepts)
	require.Equal(t, 1, exercises)

	concept, exercise := retriever.Retrieve(context.Background(), "what is newton's second law?", "")
	require.Contains(t, concept, "F = ma")
	require.Contains(t, exercise, "Find F")
}

type trackingIndex struct {
	index.Index
	closed bool
}

func (x *trackingIndex) Close(ctx context.Context) error {
	x.closed = true
	return x.Index.Close(ctx)
}

func TestIndexerRebuildClosesRetiredPair(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.jsonl"),
		[]byte(`{"id":"TH_1","content":"alpha"}`+"\n"), 0o644))

	var made []*trackingIndex
	retriever := service.NewRetriever(&stubEmbedder{}, 0.8)
	indexer := service.NewIndexer(ingest.NewLoader(dir), &stubEmbedder{}, retriever, func(collection string) (index.Index, error) {
		inner, err := index.New("memory", collection, nil)
		if err != nil {
			return nil, err
		}
		ti := &trackingIndex{Index: inner}
		made = append(made, ti)
		return ti, nil
	})

	require.NoError(t, indexer.Rebuild(context.Background()))
	require.Len(t, made, 2)
	require.False(t, made[0].closed)
	require.False(t, made[1].closed)

	// The second rebuild must release the first generation's indices.
	require.NoError(t, indexer.Rebuild(context.Background()))
	require.Len(t, made, 4)
	require.True(t, made[0].closed)
	require.True(t, made[1].closed)
	require.False(t, made[2].closed)
	require.False(t, made[3].closed)
}

func TestIndexerRebuildEmptyCorpusStillSwaps(t *testing.T) {
	retriever := service.NewRetriever(&stubEmbedder{}, 0.8)
	indexer := service.NewIndexer(ingest.NewLoader(t.TempDir()), &stubEmbedder{}, retriever, func(collection string) (index.Index, error) {
		return index.New("memory", collection, nil)
	})
	require.NoError(t, indexer.Rebuild(context.Background()))

	concepts, exercises := retriever.Counts(context.Background())
	require.Zero(t, concepts)
	require.Zero(t, exercises)
}
