// Package theme scores how strongly entity-scoped text relates to each of a
// fixed set of business themes, using keyword density.
package theme

import (
	"context"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/lexicon"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/segment"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/sentiment"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/textnorm"
)

// RelevanceCutoff is the score a theme must exceed to be stored against a
// post.
const RelevanceCutoff = 0.1

// Scores maps every theme name to a non-negative relevance score.
type Scores map[string]float64

// Ranked is one theme and its score.
type Ranked struct {
	Name        string  `json:"name"`
	Score       float64 `json:"score"`
	Description string  `json:"description"`
}

// Classifier scores themes. It is immutable and safe for concurrent use.
type Classifier struct {
	themes    []lexicon.Theme
	extractor *segment.Extractor
}

// NewClassifier returns a classifier over lex's theme taxonomy.
func NewClassifier(lex *lexicon.Lexicon, ext *segment.Extractor) *Classifier {
	return &Classifier{themes: lex.Themes, extractor: ext}
}

// Names returns theme names in taxonomy order.
func (c *Classifier) Names() []string {
	out := make([]string, len(c.themes))
	for i, th := range c.themes {
		out[i] = th.Name
	}
	return out
}

// Descriptions maps theme names to their descriptions.
func (c *Classifier) Descriptions() map[string]string {
	out := make(map[string]string, len(c.themes))
	for _, th := range c.themes {
		out[th.Name] = th.Description
	}
	return out
}

// Zero returns a score map with every theme at 0.
func (c *Classifier) Zero() Scores {
	out := make(Scores, len(c.themes))
	for _, th := range c.themes {
		out[th.Name] = 0
	}
	return out
}

// ScoreThemes scores the part of the post about entityName. When the post
// does not discuss the entity, every theme scores 0.
func (c *Classifier) ScoreThemes(title, body, entityName string) Scores {
	s, _ := c.ScoreThemesContext(context.Background(), title, body, entityName)
	return s
}

// ScoreThemesContext is ScoreThemes that gives up with all-zero scores and
// ctx's error once ctx is done.
func (c *Classifier) ScoreThemesContext(ctx context.Context, title, body, entityName string) (Scores, error) {
	if strings.TrimSpace(body) == "" {
		return c.Zero(), nil
	}
	segs, err := c.extractor.ExtractContext(ctx, sentiment.CombinedText(title, body), entityName)
	if err != nil {
		return c.Zero(), err
	}
	if len(segs) == 0 {
		return c.Zero(), nil
	}
	return c.ScoreText(sentiment.ScopedText(segs)), nil
}

// ScoreText scores already-scoped text. For each theme with K keywords, of
// which m appear in text of W words, the score is (m/K)*(m/W)*100.
func (c *Classifier) ScoreText(text string) Scores {
	processed := textnorm.LettersOnly(text)
	words := len(strings.Fields(processed))
	out := c.Zero()
	if words == 0 {
		return out
	}
	for _, th := range c.themes {
		matches := 0
		for _, kw := range th.Keywords {
			if textnorm.ContainsAtWordStart(processed, kw) {
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		m := float64(matches)
		out[th.Name] = (m / float64(len(th.Keywords))) * (m / float64(words)) * 100
	}
	return out
}

// Relevant returns the themes scoring above RelevanceCutoff.
func Relevant(s Scores) map[string]float64 {
	out := make(map[string]float64)
	for name, v := range s {
		if v > RelevanceCutoff {
			out[name] = v
		}
	}
	return out
}

// Top returns up to n themes with a positive score, highest first. Ties are
// broken by name.
func (c *Classifier) Top(s Scores, n int) []Ranked {
	desc := c.Descriptions()
	var out []Ranked
	for name, v := range s {
		if v > 0 {
			out = append(out, Ranked{Name: name, Score: v, Description: desc[name]})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	if out == nil {
		out = []Ranked{}
	}
	return out
}
