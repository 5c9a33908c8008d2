package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/sentiment"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/theme"
)

// maxLineBytes bounds one input post.
const maxLineBytes = 4 << 20

type sentimentLine struct {
	ID     string           `json:"id,omitempty"`
	Entity string           `json:"entity"`
	Result sentiment.Result `json:"result"`
}

type themesLine struct {
	ID       string             `json:"id,omitempty"`
	Entity   string             `json:"entity"`
	Relevant map[string]float64 `json:"relevant"`
	Top      []theme.Ranked     `json:"top"`
}

func sentimentCmd() *cobra.Command {
	var entityName string
	cmd := &cobra.Command{
		Use:   "sentiment",
		Short: "Score sentiment towards one entity for every post",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(e *pipeline.Engine, posts []pipeline.Post, out *json.Encoder) error {
				target := entityOr(e, entityName)
				results, err := e.ScoreBatch(cmd.Context(), posts, target)
				if err != nil {
					return err
				}
				for i, r := range results {
					if err := out.Encode(sentimentLine{ID: posts[i].ID, Entity: target, Result: r}); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&entityName, "entity", "e", "", "entity to score (default: the brand)")
	return cmd
}

func themesCmd() *cobra.Command {
	var entityName string
	var top int
	cmd := &cobra.Command{
		Use:   "themes",
		Short: "Score business themes of the part of each post about an entity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(e *pipeline.Engine, posts []pipeline.Post, out *json.Encoder) error {
				target := entityOr(e, entityName)
				for _, p := range posts {
					scores := e.ScoreThemes(cmd.Context(), p, target)
					line := themesLine{
						ID:       p.ID,
						Entity:   target,
						Relevant: theme.Relevant(scores),
						Top:      e.Classifier().Top(scores, top),
					}
					if err := out.Encode(line); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&entityName, "entity", "e", "", "entity to score (default: the brand)")
	cmd.Flags().IntVar(&top, "top", 3, "number of top themes to print")
	return cmd
}

func analyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the full analysis (brand, themes, competitors) for every post",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(e *pipeline.Engine, posts []pipeline.Post, out *json.Encoder) error {
				analyses, err := e.AnalyzeBatch(cmd.Context(), posts)
				if err != nil {
					return err
				}
				for _, a := range analyses {
					if err := out.Encode(a); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&competitorMode, "competitor-mode", false, "also score every mentioned competitor")
	return cmd
}

func competitorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "competitors",
		Short: "Score sentiment towards every competitor each post mentions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd, func(e *pipeline.Engine, posts []pipeline.Post, out *json.Encoder) error {
				results, err := e.ScoreCompetitors(cmd.Context(), posts)
				if err != nil {
					return err
				}
				for _, r := range results {
					if err := out.Encode(r); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func entitiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "entities",
		Short: "List the tracked brand and competitors",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := buildEngine()
			if err != nil {
				return err
			}
			for _, ent := range e.Registry().Entities() {
				kind := "competitor"
				if ent.Brand {
					kind = "brand"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %-10s %s\n", ent.Name, kind, strings.Join(ent.Identifiers, ", "))
			}
			return nil
		},
	}
}

// withEngine builds the engine, reads all input posts and hands them to fn
// with a JSON-lines encoder on stdout.
func withEngine(cmd *cobra.Command, fn func(e *pipeline.Engine, posts []pipeline.Post, out *json.Encoder) error) error {
	e, err := buildEngine()
	if err != nil {
		return err
	}
	in := cmd.InOrStdin()
	if inputPath != "" {
		f, err := os.Open(inputPath)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()
		in = f
	}
	posts, err := readPosts(in)
	if err != nil {
		return err
	}
	return fn(e, posts, json.NewEncoder(cmd.OutOrStdout()))
}

// readPosts parses JSON lines. Blank lines are skipped; a post without an id
// gets its 1-based line number.
func readPosts(r io.Reader) ([]pipeline.Post, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	var posts []pipeline.Post
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var p pipeline.Post
		if err := json.Unmarshal([]byte(text), &p); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if p.ID == "" {
			p.ID = fmt.Sprint(line)
		}
		posts = append(posts, p)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	return posts, nil
}

func entityOr(e *pipeline.Engine, name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return e.Registry().Brand()
	}
	return name
}
