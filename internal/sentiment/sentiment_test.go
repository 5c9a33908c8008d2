package sentiment

import (
	"math"
	"reflect"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/entity"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/lexicon"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/segment"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestLabelFor(t *testing.T) {
	tests := []struct {
		score float64
		want  Label
	}{
		{0.05, Positive},
		{0.049, Neutral},
		{0, Neutral},
		{-0.049, Neutral},
		{-0.05, Negative},
		{1, Positive},
		{-1, Negative},
	}
	for _, tt := range tests {
		if got := LabelFor(tt.score); got != tt.want {
			t.Errorf("LabelFor(%v) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestCombine(t *testing.T) {
	tests := []struct {
		name      string
		bundle    ScoreBundle
		wantScore float64
		wantConf  float64
		wantLabel Label
	}{
		{
			name:      "weighted sum",
			bundle:    ScoreBundle{CompoundPolarity: 0.5, Polarity: 0.5, BusinessSentiment: 1, ConfidenceComponent: 0.4},
			wantScore: 0.65,
			wantConf:  0.47,
			wantLabel: Positive,
		},
		{
			name:      "exact positive boundary",
			bundle:    ScoreBundle{CompoundPolarity: 0.125},
			wantScore: 0.05,
			wantConf:  0.05,
			wantLabel: Positive,
		},
		{
			name:      "exact negative boundary",
			bundle:    ScoreBundle{CompoundPolarity: -0.125},
			wantScore: -0.05,
			wantConf:  0.05,
			wantLabel: Negative,
		},
		{
			name:      "confidence capped",
			bundle:    ScoreBundle{CompoundPolarity: 1, Polarity: 1, BusinessSentiment: 1, ConfidenceComponent: 1},
			wantScore: 1,
			wantConf:  1,
			wantLabel: Positive,
		},
		{
			name:      "opposing signals cancel",
			bundle:    ScoreBundle{CompoundPolarity: 0.75, Polarity: -0.5, BusinessSentiment: -0.5, ConfidenceComponent: 0.2},
			wantScore: 0,
			wantConf:  0.51,
			wantLabel: Neutral,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Combine(tt.bundle)
			if !almostEqual(got.Score, tt.wantScore) {
				t.Errorf("score = %v, want %v", got.Score, tt.wantScore)
			}
			if !almostEqual(got.Confidence, tt.wantConf) {
				t.Errorf("confidence = %v, want %v", got.Confidence, tt.wantConf)
			}
			if got.Label != tt.wantLabel {
				t.Errorf("label = %s, want %s", got.Label, tt.wantLabel)
			}
			if got.Aspects == nil {
				t.Error("aspects must be non-nil")
			}
		})
	}
}

func TestBusinessScorer(t *testing.T) {
	s := NewBusinessScorer(lexicon.Default())
	tests := []struct {
		name        string
		text        string
		wantPos     int
		wantNeg     int
		wantSent    float64
		wantConf    float64
		wantAspects []string
	}{
		{"empty", "", 0, 0, 0, 0, []string{}},
		{"positive", "gusto has been great", 2, 0, 1, 0.4, []string{}},
		{"negative pricing", "adp's fees kept creeping up", 0, 1, -1, 0.2, []string{"pricing"}},
		{
			"mixed", "support is helpful but the ui is confusing and slow", 1, 2, -1.0 / 3, 0.6,
			[]string{"customer_service", "user_interface", "performance_reliability"},
		},
		{"ui inside a word does not count", "quickbooks", 0, 0, 0, 0, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Score(tt.text)
			if got.Positive != tt.wantPos || got.Negative != tt.wantNeg {
				t.Errorf("counts = (%d, %d), want (%d, %d)", got.Positive, got.Negative, tt.wantPos, tt.wantNeg)
			}
			if !almostEqual(got.Sentiment, tt.wantSent) {
				t.Errorf("sentiment = %v, want %v", got.Sentiment, tt.wantSent)
			}
			if !almostEqual(got.ConfidenceComponent, tt.wantConf) {
				t.Errorf("confidence component = %v, want %v", got.ConfidenceComponent, tt.wantConf)
			}
			if !reflect.DeepEqual(got.Aspects, tt.wantAspects) {
				t.Errorf("aspects = %v, want %v", got.Aspects, tt.wantAspects)
			}
		})
	}
}

type fixedCompound float64

func (f fixedCompound) Compound(string) float64 { return float64(f) }

type fixedPolarity struct{ pol, subj float64 }

func (f fixedPolarity) Score(string) (float64, float64) { return f.pol, f.subj }

func newTestAnalyzer(opts ...AnalyzerOption) *Analyzer {
	reg := entity.Default()
	ext := segment.NewExtractor(reg, segment.WithSplitter(segment.PeriodSplitter{}))
	return NewAnalyzer(reg, ext, lexicon.Default(), opts...)
}

func TestScoreSentimentEntityIsolation(t *testing.T) {
	a := newTestAnalyzer()
	body := "ADP is terrible. Gusto works great."
	if got := a.ScoreSentiment("", body, "ADP"); got.Label != Negative {
		t.Errorf("ADP label = %s (score %v), want negative", got.Label, got.Score)
	}
	if got := a.ScoreSentiment("", body, "Gusto"); got.Label != Positive {
		t.Errorf("Gusto label = %s (score %v), want positive", got.Label, got.Score)
	}
}

func TestScoreSentimentSwitchScenario(t *testing.T) {
	a := newTestAnalyzer()
	body := "Switched from ADP to Gusto, ADP's fees kept creeping up but Gusto has been great, no issues at all."

	gusto := a.Explain("", body, "Gusto")
	if gusto.Result.Label != Positive {
		t.Errorf("Gusto label = %s (score %v), want positive", gusto.Result.Label, gusto.Result.Score)
	}
	if strings.Contains(gusto.Scoped, "fees") {
		t.Errorf("Gusto scope leaked competitor complaint: %q", gusto.Scoped)
	}

	adp := a.Explain("", body, "ADP")
	if adp.Result.Label != Negative {
		t.Errorf("ADP label = %s (score %v), want negative", adp.Result.Label, adp.Result.Score)
	}
	if !strings.Contains(adp.Scoped, "fees kept creeping up") {
		t.Errorf("ADP scope = %q, want it to include the fee complaint", adp.Scoped)
	}
	if !reflect.DeepEqual(adp.Result.Aspects, []string{"pricing"}) {
		t.Errorf("ADP aspects = %v", adp.Result.Aspects)
	}
}

func TestScoreSentimentScenariosPerSplitter(t *testing.T) {
	splitters := []struct {
		name     string
		splitter segment.Splitter
	}{
		{"period", segment.PeriodSplitter{}},
		{"prose", segment.ProseSplitter{}},
	}
	scenarios := []struct {
		name, body, entity string
		want               Label
	}{
		{"isolation negative", "ADP is terrible. Gusto works great.", "adp", Negative},
		{"isolation positive", "ADP is terrible. Gusto works great.", "gusto", Positive},
		{"switch target", "Switched from ADP to Gusto, ADP's fees kept creeping up but Gusto has been great, no issues at all.", "gusto", Positive},
		{"switch source", "Switched from ADP to Gusto, ADP's fees kept creeping up but Gusto has been great, no issues at all.", "adp", Negative},
	}
	reg := entity.Default()
	for _, sp := range splitters {
		a := NewAnalyzer(reg, segment.NewExtractor(reg, segment.WithSplitter(sp.splitter)), lexicon.Default())
		for _, sc := range scenarios {
			t.Run(sp.name+"/"+sc.name, func(t *testing.T) {
				if got := a.ScoreSentiment("", sc.body, sc.entity); got.Label != sc.want {
					t.Errorf("label = %s (score %v), want %s", got.Label, got.Score, sc.want)
				}
			})
		}
	}

	// The extractor's zero-option default is the prose splitter.
	a := NewAnalyzer(reg, segment.NewExtractor(reg), lexicon.Default())
	if got := a.ScoreSentiment("", scenarios[2].body, "gusto"); got.Label != Positive {
		t.Errorf("default extractor: gusto label = %s (score %v), want positive", got.Label, got.Score)
	}
}

func TestScoreSentimentShortCircuits(t *testing.T) {
	a := newTestAnalyzer()
	tests := []struct {
		name, title, body, entity string
	}{
		{"empty body", "Gusto review", "", "gusto"},
		{"entity not mentioned", "", "Payroll is a chore every month.", "gusto"},
		{"unknown entity", "", "Gusto is great", "acme"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.ScoreSentiment(tt.title, tt.body, tt.entity)
			if !got.IsZero() || len(got.Aspects) != 0 || got.Aspects == nil {
				t.Errorf("expected neutral zero result with empty aspects, got %+v", got)
			}
		})
	}
}

func TestScoreSentimentURLInvariance(t *testing.T) {
	a := newTestAnalyzer()
	withURL := a.ScoreSentiment("Payroll thread",
		"Gusto support has been fantastic https://www.reddit.com/r/smallbusiness/comments/abc see thread", "gusto")
	without := a.ScoreSentiment("Payroll thread",
		"Gusto support has been fantastic see thread", "gusto")
	if !reflect.DeepEqual(withURL, without) {
		t.Errorf("URL changed the result: %+v vs %+v", withURL, without)
	}
}

func TestScoreSentimentIdempotent(t *testing.T) {
	a := newTestAnalyzer()
	body := "Rippling was confusing, but Gusto onboarding was smooth and support was helpful."
	first := a.ScoreSentiment("Switching stories", body, "gusto")
	for i := 0; i < 5; i++ {
		if again := a.ScoreSentiment("Switching stories", body, "gusto"); !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %+v vs %+v", i, first, again)
		}
	}
}

func TestScoreSentimentUsesInjectedScorers(t *testing.T) {
	tests := []struct {
		name      string
		compound  float64
		wantLabel Label
	}{
		{"at positive threshold", 0.125, Positive},
		{"just inside neutral", -0.1225, Neutral},
		{"at negative threshold", -0.125, Negative},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAnalyzer(
				WithCompoundScorer(fixedCompound(tt.compound)),
				WithPolarityScorer(fixedPolarity{}),
			)
			got := a.ScoreSentiment("", "Gusto ran payroll on friday.", "gusto")
			if got.Label != tt.wantLabel {
				t.Errorf("label = %s (score %v), want %s", got.Label, got.Score, tt.wantLabel)
			}
			if !reflect.DeepEqual(got.Aspects, []string{"payroll_processing"}) {
				t.Errorf("aspects = %v", got.Aspects)
			}
		})
	}
}
