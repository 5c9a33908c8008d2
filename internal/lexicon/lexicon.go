// Package lexicon loads the scoring vocabularies (business phrases, aspect
// and theme taxonomies, adjective polarity lexicon) and provides the two
// general-purpose sentiment primitives built on them: a VADER compound
// scorer and a pattern-style polarity/subjectivity scorer.
//
// A Lexicon is immutable once loaded and may be shared by any number of
// goroutines.
package lexicon

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	apperrors "github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/textnorm"
)

//go:embed data/lexicon.yaml
var defaultLexicon []byte

// Category is a named keyword set, used for aspects.
type Category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Theme is a named business theme with a human-readable description.
type Theme struct {
	Name        string   `yaml:"name"`
	Description string   `yaml:"description"`
	Keywords    []string `yaml:"keywords"`
}

// Assessment is the prior polarity and subjectivity of one word.
type Assessment struct {
	Polarity     float64
	Subjectivity float64
}

// Lexicon is the loaded, validated set of vocabularies.
type Lexicon struct {
	Version      string
	Positive     []string
	Negative     []string
	Aspects      []Category
	Themes       []Theme
	Words        map[string]Assessment
	Intensifiers map[string]float64
	Negations    map[string]bool
}

type fileFormat struct {
	Business struct {
		Positive []string `yaml:"positive"`
		Negative []string `yaml:"negative"`
	} `yaml:"business"`
	Aspects  []Category `yaml:"aspects"`
	Themes   []Theme    `yaml:"themes"`
	Polarity struct {
		Negations    []string             `yaml:"negations"`
		Intensifiers map[string]float64   `yaml:"intensifiers"`
		Words        map[string][]float64 `yaml:"words"`
	} `yaml:"polarity"`
}

// Default returns the compiled-in lexicon. It panics if the embedded file is
// invalid, which can only happen through a bad build.
func Default() *Lexicon {
	lex, err := Parse(defaultLexicon)
	if err != nil {
		panic(err)
	}
	return lex
}

// Load reads a lexicon file from path, or returns the embedded default when
// path is empty.
func Load(path string) (*Lexicon, error) {
	if path == "" {
		return Parse(defaultLexicon)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", apperrors.ErrLexiconLoad, path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML lexicon document.
func Parse(data []byte) (*Lexicon, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrLexiconLoad, err)
	}

	sum := sha256.Sum256(data)
	lex := &Lexicon{
		Version:      hex.EncodeToString(sum[:6]),
		Positive:     lowerAll(f.Business.Positive),
		Negative:     lowerAll(f.Business.Negative),
		Words:        make(map[string]Assessment, len(f.Polarity.Words)),
		Intensifiers: make(map[string]float64, len(f.Polarity.Intensifiers)),
		Negations:    make(map[string]bool, len(f.Polarity.Negations)),
	}
	if len(lex.Positive) == 0 || len(lex.Negative) == 0 {
		return nil, fmt.Errorf("%w: business vocabularies must not be empty", apperrors.ErrLexiconLoad)
	}

	seen := make(map[string]bool)
	for _, a := range f.Aspects {
		a.Name = strings.TrimSpace(a.Name)
		if a.Name == "" || seen["aspect:"+a.Name] {
			return nil, fmt.Errorf("%w: aspect name %q empty or duplicated", apperrors.ErrLexiconLoad, a.Name)
		}
		seen["aspect:"+a.Name] = true
		a.Keywords = lowerAll(a.Keywords)
		if len(a.Keywords) == 0 {
			return nil, fmt.Errorf("%w: aspect %q has no keywords", apperrors.ErrLexiconLoad, a.Name)
		}
		lex.Aspects = append(lex.Aspects, a)
	}

	for _, th := range f.Themes {
		th.Name = strings.TrimSpace(th.Name)
		if th.Name == "" || seen["theme:"+th.Name] {
			return nil, fmt.Errorf("%w: theme name %q empty or duplicated", apperrors.ErrLexiconLoad, th.Name)
		}
		seen["theme:"+th.Name] = true
		if len(th.Keywords) == 0 {
			return nil, fmt.Errorf("%w: theme %q has no keywords", apperrors.ErrLexiconLoad, th.Name)
		}
		for i, kw := range th.Keywords {
			// Theme text is reduced to letters and spaces before matching, so
			// a keyword that does not survive the same reduction never fires.
			norm := textnorm.LettersOnly(kw)
			if norm != strings.ToLower(strings.TrimSpace(kw)) {
				return nil, fmt.Errorf("%w: theme %q keyword %q must be letters and spaces only", apperrors.ErrLexiconLoad, th.Name, kw)
			}
			th.Keywords[i] = norm
		}
		lex.Themes = append(lex.Themes, th)
	}
	if len(lex.Themes) == 0 {
		return nil, fmt.Errorf("%w: no themes defined", apperrors.ErrLexiconLoad)
	}

	for w, pair := range f.Polarity.Words {
		if len(pair) != 2 {
			return nil, fmt.Errorf("%w: polarity entry %q needs [polarity, subjectivity]", apperrors.ErrLexiconLoad, w)
		}
		if pair[0] < -1 || pair[0] > 1 || pair[1] < 0 || pair[1] > 1 {
			return nil, fmt.Errorf("%w: polarity entry %q out of range", apperrors.ErrLexiconLoad, w)
		}
		lex.Words[strings.ToLower(w)] = Assessment{Polarity: pair[0], Subjectivity: pair[1]}
	}
	for w, m := range f.Polarity.Intensifiers {
		if m <= 0 {
			return nil, fmt.Errorf("%w: intensifier %q must be positive", apperrors.ErrLexiconLoad, w)
		}
		lex.Intensifiers[strings.ToLower(w)] = m
	}
	for _, w := range f.Polarity.Negations {
		lex.Negations[strings.ToLower(w)] = true
	}
	return lex, nil
}

// ThemeNames returns theme names in declaration order.
func (l *Lexicon) ThemeNames() []string {
	out := make([]string, len(l.Themes))
	for i, th := range l.Themes {
		out[i] = th.Name
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
