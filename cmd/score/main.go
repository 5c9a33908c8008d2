// Command score runs the scoring engine offline over JSON-lines input.
//
// Each input line is a post {"id","title","body"}; each output line is the
// corresponding result. Logs go to stderr so stdout stays machine-readable.
//
// Usage:
//
//	score sentiment --entity adp < posts.jsonl
//	score analyze --input posts.jsonl --competitor-mode
//	score themes --top 3 < posts.jsonl
//	score competitors < posts.jsonl
//	score entities
//	score keys create collector --scope ingest
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/logger"
)

var (
	configPath     string
	lexiconPath    string
	inputPath      string
	workers        int
	competitorMode bool
	logLevel       string
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "score",
		Short:         "Entity-scoped sentiment and theme scoring for social posts",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.SetupWriter(os.Stderr, logLevel, "text")
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "optional config file (entities, analyzer settings)")
	rootCmd.PersistentFlags().StringVar(&lexiconPath, "lexicon", "", "lexicon override file")
	rootCmd.PersistentFlags().StringVarP(&inputPath, "input", "i", "", "JSON-lines input file (default stdin)")
	rootCmd.PersistentFlags().IntVar(&workers, "workers", 0, "parallel scoring workers (default from config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level")

	rootCmd.AddCommand(sentimentCmd())
	rootCmd.AddCommand(themesCmd())
	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(competitorsCmd())
	rootCmd.AddCommand(entitiesCmd())
	rootCmd.AddCommand(keysCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildEngine loads configuration and applies flag overrides.
func buildEngine() (*pipeline.Engine, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if lexiconPath != "" {
		cfg.Analyzer.LexiconPath = lexiconPath
	}
	if workers > 0 {
		cfg.Analyzer.Workers = workers
	}
	if competitorMode {
		cfg.Analyzer.CompetitorMode = true
	}
	return pipeline.Build(cfg.Analyzer, cfg.Entities, nil)
}
