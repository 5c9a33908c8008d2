package segment

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/entity"
)

func testTarget(name string) *Target {
	reg := entity.Default()
	return newTarget(name, reg.IdentifiersFor(name), reg.OtherIdentifiers(name))
}

func TestTopicAnchoredPattern(t *testing.T) {
	tests := []struct {
		name     string
		sentence string
		entity   string
		want     string
		wantOK   bool
	}{
		{"nearest anchor", "adp, expensive and slow, gusto is fine.", "adp", "adp, expensive", true},
		{"earlier group wins", "gusto support and pricing, adp is meh", "gusto", "gusto support and pricing", true},
		{"verb then evaluation", "adp, well it was awful, gusto rocks", "adp", "adp, well it was awful", true},
		{"stop punctuation ends the search", "adp? gusto pricing is fair", "adp", "", false},
		{"other entity in between", "adp and gusto pricing", "adp", "", false},
		{"anchor inside the identifier is skipped", "gusto payroll and adp", "gusto", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := TopicAnchoredPattern{}.Extract(tt.sentence, testTarget(tt.entity))
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Extract() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestStrategiesScaleWithSentenceLength(t *testing.T) {
	sentence := strings.Repeat("gusto adp but ", 2000)
	target := testTarget("gusto")
	for _, st := range DefaultStrategies(DefaultClauseWindow) {
		t.Run(st.Name(), func(t *testing.T) {
			start := time.Now()
			st.Extract(sentence, target)
			if elapsed := time.Since(start); elapsed > time.Second {
				t.Errorf("%s took %v on a %d byte sentence", st.Name(), elapsed, len(sentence))
			}
		})
	}

	start := time.Now()
	if segs := newTestExtractor().ExtractDetailed(sentence, "gusto"); len(segs) == 0 {
		t.Error("expected a segment for the repeated mention")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("extraction took %v", elapsed)
	}
}

func TestExtractContextStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	segs, err := newTestExtractor().ExtractContext(ctx, "Gusto is great. ADP is not.", "gusto")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if segs != nil {
		t.Errorf("segments = %v, want none", segs)
	}

	segs, err = newTestExtractor().ExtractContext(context.Background(), "Gusto is great. ADP is not.", "gusto")
	if err != nil || len(segs) != 1 {
		t.Errorf("ExtractContext = %v, %v", segs, err)
	}
}
