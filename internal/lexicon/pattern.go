package lexicon

import (
	"math"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/textnorm"
)

// negationWindow is how many preceding words are searched for a negation.
const negationWindow = 3

// negationFactor flips and dampens a negated assessment ("not bad" is mildly
// positive, not strongly positive).
const negationFactor = -0.5

// PatternScorer computes polarity in [-1,1] and subjectivity in [0,1] by
// averaging the prior assessments of the lexicon words found in the text.
// A preceding intensifier scales an assessment; a negation within the last
// few words flips and halves its polarity.
type PatternScorer struct {
	lex *Lexicon
}

// NewPatternScorer returns a scorer backed by lex.
func NewPatternScorer(lex *Lexicon) *PatternScorer {
	return &PatternScorer{lex: lex}
}

// Score returns (polarity, subjectivity). Text with no known words scores
// (0, 0).
func (p *PatternScorer) Score(text string) (float64, float64) {
	words := textnorm.Words(text)
	var sumPol, sumSubj float64
	n := 0
	for i, w := range words {
		a, ok := p.lex.Words[w]
		if !ok {
			continue
		}
		pol, subj := a.Polarity, a.Subjectivity
		if i > 0 {
			if m, ok := p.lex.Intensifiers[words[i-1]]; ok {
				pol *= m
				subj *= m
			}
		}
		if p.negated(words, i) {
			pol *= negationFactor
		}
		sumPol += pol
		sumSubj += subj
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return clamp(sumPol/float64(n), -1, 1), clamp(sumSubj/float64(n), 0, 1)
}

func (p *PatternScorer) negated(words []string, i int) bool {
	for j := i - 1; j >= 0 && j >= i-negationWindow; j-- {
		w := words[j]
		if p.lex.Negations[w] || strings.HasSuffix(w, "n't") {
			return true
		}
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
