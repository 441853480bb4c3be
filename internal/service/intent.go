package service

import (
	"strings"

	"github.com/jimmy12-d/rean-ai/internal/model"
)

// Creation verbs in English plus their Khmer equivalents. Any hit flips the
// intent to GENERATE; everything else defaults to SOLVE.
var defaultGenerateKeywords = []string{
	"create", "generate", "make", "write", "compose",
	"បង្កើត", "តែង", "សរសេរ", "រកនឹក",
}

// Classifier is a deterministic keyword matcher over the user query.
type Classifier struct {
	keywords []string
}

// NewClassifier merges extra configured keywords with the built-in list.
func NewClassifier(extra []string) *Classifier {
	keywords := make([]string, 0, len(defaultGenerateKeywords)+len(extra))
	keywords = append(keywords, defaultGenerateKeywords...)
	for _, kw := range extra {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			keywords = append(keywords, kw)
		}
	}
	return &Classifier{keywords: keywords}
}

func (c *Classifier) Classify(query string) model.Intent {
	lower := strings.ToLower(query)
	for _, kw := range c.keywords {
		if strings.Contains(lower, kw) {
			return model.IntentGenerate
		}
	}
	return model.IntentSolve
}
