package sentiment

import (
	"math"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/lexicon"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/textnorm"
)

// keywordSaturation is the number of business keywords at which the
// keyword confidence component reaches 1.
const keywordSaturation = 5.0

// BusinessScore is the outcome of the business vocabulary pass.
type BusinessScore struct {
	Sentiment           float64
	Positive            int
	Negative            int
	Aspects             []string
	ConfidenceComponent float64
}

// BusinessScorer counts domain-specific satisfaction and dissatisfaction
// phrases and tags the product aspects a text touches.
type BusinessScorer struct {
	lex *lexicon.Lexicon
}

// NewBusinessScorer returns a scorer over lex's business vocabularies.
func NewBusinessScorer(lex *lexicon.Lexicon) *BusinessScorer {
	return &BusinessScorer{lex: lex}
}

// Score counts each vocabulary phrase at most once. Sentiment is
// (pos-neg)/(pos+neg), or 0 when nothing matched. Aspects are returned in
// taxonomy order.
func (s *BusinessScorer) Score(text string) BusinessScore {
	lower := strings.ToLower(text)
	var out BusinessScore
	for _, kw := range s.lex.Positive {
		if textnorm.ContainsAtWordStart(lower, kw) {
			out.Positive++
		}
	}
	for _, kw := range s.lex.Negative {
		if textnorm.ContainsAtWordStart(lower, kw) {
			out.Negative++
		}
	}
	total := out.Positive + out.Negative
	if total > 0 {
		out.Sentiment = float64(out.Positive-out.Negative) / float64(total)
	}
	out.ConfidenceComponent = math.Min(float64(total)/keywordSaturation, 1)

	out.Aspects = []string{}
	for _, a := range s.lex.Aspects {
		for _, kw := range a.Keywords {
			if textnorm.ContainsAtWordStart(lower, kw) {
				out.Aspects = append(out.Aspects, a.Name)
				break
			}
		}
	}
	return out
}
