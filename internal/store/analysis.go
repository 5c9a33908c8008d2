package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/pipeline"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/sentiment"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/theme"
	apperrors "github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/errors"
)

// SaveAnalysis replaces the stored analysis of a post: brand sentiment on
// the post row, themes above theme.RelevanceCutoff and one row per scored
// competitor. A result carrying a diagnostic marks the post FAILED.
func (s *Store) SaveAnalysis(ctx context.Context, postID string, a pipeline.Analysis, lexiconVersion string) error {
	status := StatusScored
	if a.Brand.Error != "" {
		status = StatusFailed
	}
	err := s.db.InTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE posts SET status = $2, sentiment_label = $3, sentiment_score = $4,
				sentiment_confidence = $5, aspects = $6, scoring_error = NULLIF($7, ''),
				lexicon_version = $8, analyzed_at = $9
			WHERE id = $1`,
			postID, status, string(a.Brand.Label), a.Brand.Score, a.Brand.Confidence,
			pq.Array(nonNil(a.Brand.Aspects)), a.Brand.Error, lexiconVersion, time.Now().UTC(),
		)
		if err != nil {
			return fmt.Errorf("updating post sentiment: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return apperrors.Newf(apperrors.ErrPostNotFound, 404, "post %q not found", postID)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM post_themes WHERE post_id = $1`, postID); err != nil {
			return fmt.Errorf("clearing post themes: %w", err)
		}
		for _, name := range sortedKeys(theme.Relevant(a.Themes)) {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO post_themes (post_id, theme, relevance) VALUES ($1, $2, $3)`,
				postID, name, a.Themes[name])
			if err != nil {
				return fmt.Errorf("inserting theme %s: %w", name, err)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM competitor_mentions WHERE post_id = $1`, postID); err != nil {
			return fmt.Errorf("clearing competitor mentions: %w", err)
		}
		for _, comp := range sortedKeys(a.Competitors) {
			r := a.Competitors[comp]
			_, err := tx.ExecContext(ctx,
				`INSERT INTO competitor_mentions (post_id, competitor, sentiment_label, sentiment_score, confidence, aspects)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				postID, comp, string(r.Label), r.Score, r.Confidence, pq.Array(nonNil(r.Aspects)))
			if err != nil {
				return fmt.Errorf("inserting competitor %s: %w", comp, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: post %s: %w", apperrors.ErrStoreUnwritten, postID, err)
	}
	s.logger.Debug("analysis saved",
		"post_id", postID,
		"label", a.Brand.Label,
		"competitors", len(a.Competitors),
	)
	return nil
}

// CompetitorMentions returns the stored competitor results of one post.
func (s *Store) CompetitorMentions(ctx context.Context, postID string) (map[string]sentiment.Result, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT competitor, sentiment_label, sentiment_score, confidence, aspects
		FROM competitor_mentions WHERE post_id = $1`, postID)
	if err != nil {
		return nil, fmt.Errorf("loading competitor mentions: %w", err)
	}
	defer rows.Close()
	out := map[string]sentiment.Result{}
	for rows.Next() {
		var (
			comp, label string
			r           sentiment.Result
		)
		if err := rows.Scan(&comp, &label, &r.Score, &r.Confidence, pq.Array(&r.Aspects)); err != nil {
			return nil, fmt.Errorf("scanning competitor mention: %w", err)
		}
		r.Label = sentiment.Label(label)
		r.Aspects = nonNil(r.Aspects)
		out[comp] = r
	}
	return out, rows.Err()
}

// PostThemes returns the stored themes of one post.
func (s *Store) PostThemes(ctx context.Context, postID string) (map[string]float64, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT theme, relevance FROM post_themes WHERE post_id = $1`, postID)
	if err != nil {
		return nil, fmt.Errorf("loading post themes: %w", err)
	}
	defer rows.Close()
	out := map[string]float64{}
	for rows.Next() {
		var (
			name string
			rel  float64
		)
		if err := rows.Scan(&name, &rel); err != nil {
			return nil, fmt.Errorf("scanning post theme: %w", err)
		}
		out[name] = rel
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
