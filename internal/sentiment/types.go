// Package sentiment scores how a post feels about one entity. It combines a
// VADER compound score, a pattern-style polarity score and a business
// vocabulary score over the entity-scoped text into a single labelled result.
package sentiment

// Label is the discrete sentiment class of a result.
type Label string

const (
	Positive Label = "positive"
	Negative Label = "negative"
	Neutral  Label = "neutral"
)

// ScoreBundle holds the raw scores for one piece of scoped text before they
// are combined.
type ScoreBundle struct {
	CompoundPolarity     float64  `json:"compound_polarity"`
	Polarity             float64  `json:"polarity"`
	Subjectivity         float64  `json:"subjectivity"`
	BusinessSentiment    float64  `json:"business_sentiment"`
	PositiveKeywordCount int      `json:"positive_keyword_count"`
	NegativeKeywordCount int      `json:"negative_keyword_count"`
	Aspects              []string `json:"aspects"`
	ConfidenceComponent  float64  `json:"confidence_component"`
}

// Result is the final sentiment of a post towards one entity. Error carries
// a diagnostic when the result is a substitute for a failed scoring.
type Result struct {
	Label      Label    `json:"label"`
	Score      float64  `json:"score"`
	Confidence float64  `json:"confidence"`
	Aspects    []string `json:"aspects"`
	Error      string   `json:"error,omitempty"`
}

// NeutralResult is the result for text that does not discuss the entity.
func NeutralResult() Result {
	return Result{Label: Neutral, Aspects: []string{}}
}

// Failed returns a neutral result carrying diag.
func Failed(diag string) Result {
	r := NeutralResult()
	r.Error = diag
	return r
}

// IsZero reports whether r is the neutral, zero-score, zero-confidence
// result.
func (r Result) IsZero() bool {
	return r.Label == Neutral && r.Score == 0 && r.Confidence == 0
}
