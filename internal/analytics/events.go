package analytics

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/sentiment"
)

// EventTypePostScored labels PostScoredEvent messages.
const EventTypePostScored = "post.scored"

// PostScoredEvent is published to the post-scored topic after a post's
// analysis is stored.
type PostScoredEvent struct {
	PostID         string                      `json:"post_id"`
	Platform       string                      `json:"platform"`
	Brand          sentiment.Result            `json:"brand"`
	Themes         map[string]float64          `json:"themes"`
	Competitors    map[string]sentiment.Result `json:"competitors"`
	LatencyMs      int64                       `json:"latency_ms"`
	Rescore        bool                        `json:"rescore"`
	LexiconVersion string                      `json:"lexicon_version"`
	ScoredAt       time.Time                   `json:"scored_at"`
}
