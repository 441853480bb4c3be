package model

// Document is a single reference text unit stored in a similarity index.
// Documents are immutable once indexed.
type Document struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata"`
}

// ScoredDocument is a retrieval hit. Distance is a cosine distance where
// 0 means identical and values near 1 mean unrelated.
type ScoredDocument struct {
	Document Document `json:"document"`
	Distance float64  `json:"distance"`
}

// IsExercise reports whether a record belongs to the exercise collection.
// Everything else (TH_, EM_, WV_ prefixes and plain concept types) is a concept.
func IsExercise(id string, docType string) bool {
	if len(id) >= 3 && id[:3] == "EX_" {
		return true
	}
	return docType == "Q&A" || docType == "Solved Example"
}
