package ingest_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jimmy12-d/rean-ai/internal/ingest"
)

func writeCorpusFile(t *testing.T, path string, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadPartitionsConceptsAndExercises(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, filepath.Join(dir, "physics", "ch1.jsonl"), `{"id":"TH_1","khmer_title":"ច្បាប់ញូតុន","content":"F = ma","subject":"physics","chapter":"1","topic":"dynamics"}
{"id":"EX_1","content":"Find F for m=2kg.","metadata":{"type":"Q&A","subject":"physics"}}
{"id":"SE_1","content":"Worked solution.","metadata":{"type":"Solved Example"}}
`)

	concepts, exercises, err := ingest.NewLoader(dir).Load(context.Background())
	require.NoError(t, err)

	require.Len(t, concepts, 1)
	require.Equal(t, "TH_1", concepts[0].ID)
	require.Equal(t, "ច្បាប់ញូតុន\nF = ma", concepts[0].Text)
	require.Equal(t, "physics", concepts[0].Metadata["subject"])
	require.Equal(t, "1", concepts[0].Metadata["chapter"])
	require.Equal(t, "dynamics", concepts[0].Metadata["topic"])
	require.Equal(t, "TH_1", concepts[0].Metadata["id"])

	require.Len(t, exercises, 2)
	require.Equal(t, "EX_1", exercises[0].ID)
	require.Equal(t, "physics", exercises[0].Metadata["subject"])
	// No EX_ prefix, but the type marks it as an exercise.
	require.Equal(t, "SE_1", exercises[1].ID)
}

func TestLoadSkipsMalformedLinesAndBlankLines(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, filepath.Join(dir, "corpus.jsonl"), `{"id":"TH_1","content":"good"}
this is not json

{"id":"TH_2","content":"also good"}
`)

	concepts, exercises, err := ingest.NewLoader(dir).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, concepts, 2)
	require.Empty(t, exercises)
}

func TestLoadDuplicateIDLastWinsKeepsPosition(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, filepath.Join(dir, "corpus.jsonl"), `{"id":"TH_1","content":"first version"}
{"id":"TH_2","content":"other"}
{"id":"TH_1","content":"second version"}
`)

	concepts, _, err := ingest.NewLoader(dir).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, concepts, 2)
	require.Equal(t, "TH_1", concepts[0].ID)
	require.Equal(t, "second version", concepts[0].Text)
	require.Equal(t, "TH_2", concepts[1].ID)
}

func TestLoadIgnoresNonJSONLFiles(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, filepath.Join(dir, "notes.txt"), `{"id":"TH_9","content":"should not load"}`)
	writeCorpusFile(t, filepath.Join(dir, "nested", "deep", "ch2.jsonl"), `{"id":"TH_3","content":"nested"}`)

	concepts, exercises, err := ingest.NewLoader(dir).Load(context.Background())
	require.NoError(t, err)
	require.Len(t, concepts, 1)
	require.Equal(t, "TH_3", concepts[0].ID)
	require.Empty(t, exercises)
}

func TestLoadMissingDirIsEmptyNotError(t *testing.T) {
	concepts, exercises, err := ingest.NewLoader(filepath.Join(t.TempDir(), "nope")).Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, concepts)
	require.Empty(t, exercises)
}

func TestStats(t *testing.T) {
	dir := t.TempDir()
	writeCorpusFile(t, filepath.Join(dir, "corpus.jsonl"), `{"id":"TH_1","content":"a"}
{"id":"TH_2","content":"b"}
{"id":"DEF_1","content":"c"}
{"id":"EX_1","content":"d","metadata":{"type":"Q&A"}}
`)

	stats, err := ingest.NewLoader(dir).Stats(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, stats.Concepts)
	require.Equal(t, 1, stats.Exercises)
	require.Equal(t, map[string]int{"TH": 2, "DEF": 1}, stats.ConceptPrefixes)
	require.Equal(t, map[string]int{"EX": 1}, stats.ExercisePrefixes)
	require.Equal(t, []string{"DEF", "TH"}, ingest.SortedPrefixes(stats.ConceptPrefixes))
}
