package ingest

import (
	"context"
	"sort"
	"strings"
)

// Stats summarizes a loaded corpus for the `corpus` CLI command.
type Stats struct {
	Concepts         int
	Exercises        int
	ConceptPrefixes  map[string]int
	ExercisePrefixes map[string]int
}

func (l *Loader) Stats(ctx context.Context) (*Stats, error) {
	concepts, exercises, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	stats := &Stats{
		Concepts:         len(concepts),
		Exercises:        len(exercises),
		ConceptPrefixes:  map[string]int{},
		ExercisePrefixes: map[string]int{},
	}
	for _, doc := range concepts {
		stats.ConceptPrefixes[idPrefix(doc.ID)]++
	}
	for _, doc := range exercises {
		stats.ExercisePrefixes[idPrefix(doc.ID)]++
	}
	return stats, nil
}

// SortedPrefixes returns map keys in a stable order for printing.
func SortedPrefixes(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func idPrefix(id string) string {
	if i := strings.Index(id, "_"); i > 0 {
		return id[:i]
	}
	if id == "" {
		return "(none)"
	}
	return id
}
