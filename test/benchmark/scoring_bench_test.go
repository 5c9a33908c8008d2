package benchmark

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/entity"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/lexicon"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/segment"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/sentiment"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/textnorm"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/theme"
)

var samplePosts = map[string]string{
	"short": "Gusto is great, setup was easy.",
	"comparative": `Switched from ADP to Gusto, ADP's fees kept creeping up but Gusto has been
        great, no issues at all. We looked at Rippling too but it felt expensive for a
        team our size. Paychex support never called us back.`,
	"long": strings.Repeat(`Our company runs payroll through Gusto for about forty employees. The
        onboarding was easy and the benefits administration saves hours every month.
        Customer support can be slow during tax season though, and the mobile app
        crashed twice last week. Before Gusto we used QuickBooks payroll which was
        clunky and expensive. A friend at another startup swears by Justworks. `, 20),
}

func newEngine(workers int) *pipeline.Engine {
	reg := entity.Default()
	lex := lexicon.Default()
	ext := segment.NewExtractor(reg)
	an := sentiment.NewAnalyzer(reg, ext, lex)
	cl := theme.NewClassifier(lex, ext)
	return pipeline.New(reg, an, cl, pipeline.Options{Workers: workers, CompetitorMode: true}, nil)
}

func BenchmarkScoreSentiment(b *testing.B) {
	e := newEngine(1)
	ctx := context.Background()
	for name, text := range samplePosts {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(text)))
			p := pipeline.Post{Body: text}
			for i := 0; i < b.N; i++ {
				_ = e.ScoreSentiment(ctx, p, "gusto")
			}
		})
	}
}

func BenchmarkAnalyze(b *testing.B) {
	e := newEngine(1)
	ctx := context.Background()
	p := pipeline.Post{Body: samplePosts["comparative"]}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = e.Analyze(ctx, p)
	}
}

func BenchmarkScoreBatch(b *testing.B) {
	ctx := context.Background()
	posts := make([]pipeline.Post, 500)
	texts := []string{samplePosts["short"], samplePosts["comparative"]}
	for i := range posts {
		posts[i] = pipeline.Post{ID: fmt.Sprint(i), Body: texts[i%len(texts)]}
	}
	for _, workers := range []int{1, 4, 8} {
		e := newEngine(workers)
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := e.ScoreBatch(ctx, posts, "gusto"); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkExtract(b *testing.B) {
	ext := segment.NewExtractor(entity.Default())
	text := samplePosts["comparative"]
	for _, name := range []string{"gusto", "adp", "rippling"} {
		b.Run(name, func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				_ = ext.ExtractDetailed(text, name)
			}
		})
	}
}

func BenchmarkScoreThemes(b *testing.B) {
	lex := lexicon.Default()
	cl := theme.NewClassifier(lex, segment.NewExtractor(entity.Default()))
	text := samplePosts["long"]
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	for i := 0; i < b.N; i++ {
		_ = cl.ScoreText(text)
	}
}

func BenchmarkCleanParallel(b *testing.B) {
	text := samplePosts["long"] + " https://gusto.com/pricing @gustohq #payroll"
	b.ReportAllocs()
	b.SetBytes(int64(len(text)))
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = textnorm.Clean(text)
		}
	})
}
