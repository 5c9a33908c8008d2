package segment

import (
	"strings"

	"github.com/jdkato/prose/v2"
)

// Splitter breaks text into sentences.
type Splitter interface {
	Split(text string) ([]string, error)
}

// ProseSplitter segments text with prose's punkt sentence tokenizer. Tagging,
// tokenization and entity extraction are switched off; only sentence
// boundaries are needed.
type ProseSplitter struct{}

// Split implements Splitter.
func (ProseSplitter) Split(text string) ([]string, error) {
	doc, err := prose.NewDocument(text,
		prose.WithTokenization(false),
		prose.WithTagging(false),
		prose.WithExtraction(false),
	)
	if err != nil {
		return nil, err
	}
	sents := doc.Sentences()
	out := make([]string, 0, len(sents))
	for _, s := range sents {
		if t := strings.TrimSpace(s.Text); t != "" {
			out = append(out, t)
		}
	}
	return out, nil
}

// PeriodSplitter splits on '.' and re-appends the delimiter to each
// non-empty piece. It never fails and is the fallback when the tokenizer
// errors or panics.
type PeriodSplitter struct{}

// Split implements Splitter.
func (PeriodSplitter) Split(text string) ([]string, error) {
	return splitOnPeriods(text), nil
}

func splitOnPeriods(text string) []string {
	parts := strings.Split(text, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p+".")
		}
	}
	return out
}
