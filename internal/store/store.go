// Package store persists posts and their analyses in PostgreSQL and answers
// the dashboard aggregate queries.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	apperrors "github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/postgres"
)

//go:embed schema.sql
var schemaSQL string

// Post statuses.
const (
	StatusPending = "PENDING"
	StatusScored  = "SCORED"
	StatusFailed  = "FAILED"
)

// Post is a stored social-media post with its brand sentiment, when scored.
type Post struct {
	ID         string    `json:"id"`
	Platform   string    `json:"platform"`
	ExternalID string    `json:"external_id"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	Author     string    `json:"author"`
	URL        string    `json:"url"`
	PostedAt   time.Time `json:"posted_at"`
	IngestedAt time.Time `json:"ingested_at"`
	Status     string    `json:"status"`

	SentimentLabel      string     `json:"sentiment_label,omitempty"`
	SentimentScore      float64    `json:"sentiment_score"`
	SentimentConfidence float64    `json:"sentiment_confidence"`
	Aspects             []string   `json:"aspects"`
	ScoringError        string     `json:"scoring_error,omitempty"`
	AnalyzedAt          *time.Time `json:"analyzed_at,omitempty"`
}

// ListFilter narrows ListPosts.
type ListFilter struct {
	Platform  string
	Sentiment string
	Limit     int
	Offset    int
}

// Store is the PostgreSQL repository.
type Store struct {
	db     *postgres.Client
	logger *slog.Logger
}

// New creates a Store over db.
func New(db *postgres.Client) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "post-store"),
	}
}

// EnsureSchema creates the tables and indexes when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.db.Migrate(ctx, schemaSQL)
}

// SyncThemes upserts theme descriptions so post_themes can reference them.
func (s *Store) SyncThemes(ctx context.Context, descriptions map[string]string) error {
	return s.db.InTx(ctx, func(tx *sql.Tx) error {
		for name, desc := range descriptions {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO themes (name, description) VALUES ($1, $2)
				ON CONFLICT (name) DO UPDATE SET description = EXCLUDED.description`,
				name, desc)
			if err != nil {
				return fmt.Errorf("upserting theme %s: %w", name, err)
			}
		}
		return nil
	})
}

// InsertPost stores p as PENDING and fills in its ID. When a post with the
// same (platform, external_id) exists, p receives the existing ID and status
// and created is false.
func (s *Store) InsertPost(ctx context.Context, p *Post) (created bool, err error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.PostedAt.IsZero() {
		p.PostedAt = time.Now().UTC()
	}
	var id string
	err = s.db.DB.QueryRowContext(ctx,
		`INSERT INTO posts (id, platform, external_id, title, body, author, url, posted_at, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (platform, external_id) DO NOTHING
		RETURNING id`,
		p.ID, p.Platform, p.ExternalID, p.Title, p.Body, p.Author, p.URL, p.PostedAt, StatusPending,
	).Scan(&id)
	if err == nil {
		p.Status = StatusPending
		return true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("inserting post: %w", err)
	}

	err = s.db.DB.QueryRowContext(ctx,
		`SELECT id, status FROM posts WHERE platform = $1 AND external_id = $2`,
		p.Platform, p.ExternalID,
	).Scan(&p.ID, &p.Status)
	if err != nil {
		return false, fmt.Errorf("loading existing post: %w", err)
	}
	s.logger.Info("duplicate post ignored",
		"post_id", p.ID,
		"platform", p.Platform,
		"external_id", p.ExternalID,
	)
	return false, nil
}

const postColumns = `id, platform, external_id, title, body, author, url, posted_at, ingested_at, status,
	COALESCE(sentiment_label, ''), COALESCE(sentiment_score, 0), COALESCE(sentiment_confidence, 0),
	aspects, COALESCE(scoring_error, ''), analyzed_at`

// GetPost loads one post.
func (s *Store) GetPost(ctx context.Context, id string) (*Post, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.Newf(apperrors.ErrPostNotFound, 404, "post %q not found", id)
	}
	row := s.db.DB.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id)
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.Newf(apperrors.ErrPostNotFound, 404, "post %q not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("loading post %s: %w", id, err)
	}
	return p, nil
}

// ListPosts returns posts newest first.
func (s *Store) ListPosts(ctx context.Context, f ListFilter) ([]Post, error) {
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 20
	}
	var (
		where []string
		args  []any
	)
	if f.Platform != "" {
		args = append(args, f.Platform)
		where = append(where, fmt.Sprintf("platform = $%d", len(args)))
	}
	if f.Sentiment != "" {
		args = append(args, f.Sentiment)
		where = append(where, fmt.Sprintf("sentiment_label = $%d", len(args)))
	}
	query := `SELECT ` + postColumns + ` FROM posts`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit, f.Offset)
	query += fmt.Sprintf(` ORDER BY posted_at DESC, id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := s.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	defer rows.Close()
	return collectPosts(rows)
}

// PostsAfter pages through every post in ID order, for re-scoring. Pass ""
// to start from the beginning.
func (s *Store) PostsAfter(ctx context.Context, afterID string, limit int) ([]Post, error) {
	if afterID == "" {
		afterID = uuid.Nil.String()
	}
	rows, err := s.db.DB.QueryContext(ctx,
		`SELECT `+postColumns+` FROM posts WHERE id > $1 ORDER BY id LIMIT $2`,
		afterID, limit)
	if err != nil {
		return nil, fmt.Errorf("paging posts after %s: %w", afterID, err)
	}
	defer rows.Close()
	return collectPosts(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*Post, error) {
	var (
		p          Post
		analyzedAt sql.NullTime
	)
	err := row.Scan(
		&p.ID, &p.Platform, &p.ExternalID, &p.Title, &p.Body, &p.Author, &p.URL,
		&p.PostedAt, &p.IngestedAt, &p.Status,
		&p.SentimentLabel, &p.SentimentScore, &p.SentimentConfidence,
		pq.Array(&p.Aspects), &p.ScoringError, &analyzedAt,
	)
	if err != nil {
		return nil, err
	}
	if analyzedAt.Valid {
		t := analyzedAt.Time
		p.AnalyzedAt = &t
	}
	if p.Aspects == nil {
		p.Aspects = []string{}
	}
	return &p, nil
}

func collectPosts(rows *sql.Rows) ([]Post, error) {
	posts := []Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning post row: %w", err)
		}
		posts = append(posts, *p)
	}
	return posts, rows.Err()
}
