package store

import (
	"context"
	"fmt"
	"time"
)

// Overview summarises posts in the reporting window.
type Overview struct {
	Days               int            `json:"days"`
	TotalPosts         int64          `json:"total_posts"`
	ScoredPosts        int64          `json:"scored_posts"`
	PendingPosts       int64          `json:"pending_posts"`
	Platforms          map[string]int `json:"platforms"`
	SentimentBreakdown map[string]int `json:"sentiment_breakdown"`
	AvgSentimentScore  float64        `json:"avg_sentiment_score"`
	RecentPosts7Days   int64          `json:"recent_posts_7_days"`
	LastUpdated        time.Time      `json:"last_updated"`
}

// ThemeStat is one theme's share of the posts in the window.
type ThemeStat struct {
	Name          string  `json:"name"`
	Description   string  `json:"description"`
	TotalMentions int64   `json:"total_mentions"`
	AvgRelevance  float64 `json:"avg_relevance"`
	AvgSentiment  float64 `json:"avg_sentiment"`
	Positive      int64   `json:"positive_count"`
	Negative      int64   `json:"negative_count"`
	Neutral       int64   `json:"neutral_count"`
}

// CompetitorStat aggregates sentiment towards one competitor.
type CompetitorStat struct {
	Name         string  `json:"name"`
	MentionCount int64   `json:"mention_count"`
	AvgSentiment float64 `json:"avg_sentiment"`
	Positive     int64   `json:"positive_count"`
	Negative     int64   `json:"negative_count"`
	Neutral      int64   `json:"neutral_count"`
}

// TrendPoint is one day of brand sentiment.
type TrendPoint struct {
	Date         string  `json:"date"`
	AvgSentiment float64 `json:"avg_sentiment"`
	PostCount    int64   `json:"post_count"`
	Positive     int64   `json:"positive_count"`
	Negative     int64   `json:"negative_count"`
	Neutral      int64   `json:"neutral_count"`
}

const windowClause = `posted_at >= NOW() - make_interval(days => $1)`

// Overview computes headline numbers over the last days days.
func (s *Store) Overview(ctx context.Context, days int) (*Overview, error) {
	ov := &Overview{
		Days:               days,
		Platforms:          map[string]int{},
		SentimentBreakdown: map[string]int{"positive": 0, "negative": 0, "neutral": 0},
		LastUpdated:        time.Now().UTC(),
	}
	err := s.db.DB.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status <> 'PENDING'),
			COUNT(*) FILTER (WHERE status = 'PENDING'),
			COALESCE(AVG(sentiment_score) FILTER (WHERE status = 'SCORED'), 0),
			COUNT(*) FILTER (WHERE posted_at >= NOW() - INTERVAL '7 days')
		FROM posts WHERE `+windowClause, days,
	).Scan(&ov.TotalPosts, &ov.ScoredPosts, &ov.PendingPosts, &ov.AvgSentimentScore, &ov.RecentPosts7Days)
	if err != nil {
		return nil, fmt.Errorf("querying overview: %w", err)
	}

	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT platform, COUNT(*) FROM posts WHERE `+windowClause+` GROUP BY platform`, days)
	if err != nil {
		return nil, fmt.Errorf("querying platform breakdown: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			platform string
			n        int
		)
		if err := rows.Scan(&platform, &n); err != nil {
			return nil, fmt.Errorf("scanning platform row: %w", err)
		}
		ov.Platforms[platform] = n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	labels, err := s.db.DB.QueryContext(ctx,
		`SELECT sentiment_label, COUNT(*) FROM posts
		WHERE `+windowClause+` AND sentiment_label IS NOT NULL GROUP BY sentiment_label`, days)
	if err != nil {
		return nil, fmt.Errorf("querying sentiment breakdown: %w", err)
	}
	defer labels.Close()
	for labels.Next() {
		var (
			label string
			n     int
		)
		if err := labels.Scan(&label, &n); err != nil {
			return nil, fmt.Errorf("scanning sentiment row: %w", err)
		}
		ov.SentimentBreakdown[label] = n
	}
	return ov, labels.Err()
}

// Themes ranks themes by the number of posts they were assigned to.
func (s *Store) Themes(ctx context.Context, days int) ([]ThemeStat, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT t.name, t.description, COUNT(*), AVG(pt.relevance),
			COALESCE(AVG(p.sentiment_score), 0),
			COUNT(*) FILTER (WHERE p.sentiment_label = 'positive'),
			COUNT(*) FILTER (WHERE p.sentiment_label = 'negative'),
			COUNT(*) FILTER (WHERE p.sentiment_label = 'neutral')
		FROM post_themes pt
		JOIN themes t ON t.name = pt.theme
		JOIN posts p ON p.id = pt.post_id
		WHERE p.`+windowClause+`
		GROUP BY t.name, t.description
		ORDER BY COUNT(*) DESC, t.name`, days)
	if err != nil {
		return nil, fmt.Errorf("querying themes: %w", err)
	}
	defer rows.Close()
	out := []ThemeStat{}
	for rows.Next() {
		var ts ThemeStat
		if err := rows.Scan(&ts.Name, &ts.Description, &ts.TotalMentions, &ts.AvgRelevance,
			&ts.AvgSentiment, &ts.Positive, &ts.Negative, &ts.Neutral); err != nil {
			return nil, fmt.Errorf("scanning theme row: %w", err)
		}
		out = append(out, ts)
	}
	return out, rows.Err()
}

// Competitors ranks competitors by mention count.
func (s *Store) Competitors(ctx context.Context, days int) ([]CompetitorStat, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT cm.competitor, COUNT(*), AVG(cm.sentiment_score),
			COUNT(*) FILTER (WHERE cm.sentiment_label = 'positive'),
			COUNT(*) FILTER (WHERE cm.sentiment_label = 'negative'),
			COUNT(*) FILTER (WHERE cm.sentiment_label = 'neutral')
		FROM competitor_mentions cm
		JOIN posts p ON p.id = cm.post_id
		WHERE p.`+windowClause+`
		GROUP BY cm.competitor
		ORDER BY COUNT(*) DESC, cm.competitor`, days)
	if err != nil {
		return nil, fmt.Errorf("querying competitors: %w", err)
	}
	defer rows.Close()
	out := []CompetitorStat{}
	for rows.Next() {
		var cs CompetitorStat
		if err := rows.Scan(&cs.Name, &cs.MentionCount, &cs.AvgSentiment,
			&cs.Positive, &cs.Negative, &cs.Neutral); err != nil {
			return nil, fmt.Errorf("scanning competitor row: %w", err)
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

// Trends returns daily brand sentiment, oldest first.
func (s *Store) Trends(ctx context.Context, days int) ([]TrendPoint, error) {
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT to_char(date_trunc('day', posted_at), 'YYYY-MM-DD') AS day,
			COALESCE(AVG(sentiment_score), 0), COUNT(*),
			COUNT(*) FILTER (WHERE sentiment_label = 'positive'),
			COUNT(*) FILTER (WHERE sentiment_label = 'negative'),
			COUNT(*) FILTER (WHERE sentiment_label = 'neutral')
		FROM posts
		WHERE `+windowClause+` AND status = 'SCORED'
		GROUP BY day
		ORDER BY day`, days)
	if err != nil {
		return nil, fmt.Errorf("querying trends: %w", err)
	}
	defer rows.Close()
	out := []TrendPoint{}
	for rows.Next() {
		var tp TrendPoint
		if err := rows.Scan(&tp.Date, &tp.AvgSentiment, &tp.PostCount,
			&tp.Positive, &tp.Negative, &tp.Neutral); err != nil {
			return nil, fmt.Errorf("scanning trend row: %w", err)
		}
		out = append(out, tp)
	}
	return out, rows.Err()
}
