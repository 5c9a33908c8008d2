package sentiment

import "math"

const (
	compoundWeight = 0.4
	polarityWeight = 0.3
	businessWeight = 0.3

	// LabelThreshold is the absolute score at which a result stops being
	// neutral. Both boundaries are inclusive.
	LabelThreshold = 0.05
)

// LabelFor maps a combined score to its label.
func LabelFor(score float64) Label {
	switch {
	case score >= LabelThreshold:
		return Positive
	case score <= -LabelThreshold:
		return Negative
	default:
		return Neutral
	}
}

// Combine folds a ScoreBundle into a Result. The score is a fixed weighted
// sum clamped to [-1, 1]; confidence grows with the magnitude of the
// compound and polarity scores and with how many business keywords fired.
func Combine(b ScoreBundle) Result {
	score := compoundWeight*b.CompoundPolarity +
		polarityWeight*b.Polarity +
		businessWeight*b.BusinessSentiment
	score = math.Max(-1, math.Min(1, score))

	confidence := compoundWeight*math.Abs(b.CompoundPolarity) +
		polarityWeight*math.Abs(b.Polarity) +
		businessWeight*b.ConfidenceComponent
	confidence = math.Min(confidence, 1)

	aspects := b.Aspects
	if aspects == nil {
		aspects = []string{}
	}
	return Result{
		Label:      LabelFor(score),
		Score:      score,
		Confidence: confidence,
		Aspects:    aspects,
	}
}
