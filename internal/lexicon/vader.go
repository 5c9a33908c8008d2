package lexicon

import "github.com/jonreiter/govader"

// VaderScorer wraps govader's rule-based analyzer. The analyzer only reads its
// lexicon after construction, so one instance serves every goroutine.
type VaderScorer struct {
	sia *govader.SentimentIntensityAnalyzer
}

// NewVaderScorer builds the analyzer and its lexicon once.
func NewVaderScorer() *VaderScorer {
	return &VaderScorer{sia: govader.NewSentimentIntensityAnalyzer()}
}

// Compound returns VADER's normalized compound polarity in [-1, 1].
func (v *VaderScorer) Compound(text string) float64 {
	if text == "" {
		return 0
	}
	return v.sia.PolarityScores(text).Compound
}
