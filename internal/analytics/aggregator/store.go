// Package aggregator persists snapshots of the live scoring stats to
// PostgreSQL so totals survive restarts of the stats consumer and the
// dashboard can chart them over time.
package aggregator

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/postgres"
)

// Retention is how long snapshots are kept.
const Retention = 7 * 24 * time.Hour

// Store reads and writes rows of the analytics_snapshots table.
type Store struct {
	db     *sql.DB
	now    func() time.Time
	logger *slog.Logger
}

// NewStore creates a snapshot store.
func NewStore(db *postgres.Client) *Store {
	return &Store{
		db:     db.DB,
		now:    func() time.Time { return time.Now().UTC() },
		logger: slog.Default().With("component", "stats-snapshots"),
	}
}

// Save persists one snapshot of stats.
func (s *Store) Save(ctx context.Context, stats analytics.AggregatedStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("encoding stats snapshot: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO analytics_snapshots (data, captured_at) VALUES ($1, $2)`,
		data, s.now(),
	); err != nil {
		return fmt.Errorf("inserting stats snapshot: %w", err)
	}
	return nil
}

// Latest returns the newest snapshot, or nil when the table is empty.
func (s *Store) Latest(ctx context.Context) (*analytics.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT captured_at, data FROM analytics_snapshots ORDER BY captured_at DESC LIMIT 1`)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading latest stats snapshot: %w", err)
	}
	return &snap, nil
}

// History returns up to limit snapshots captured after since, oldest first.
func (s *Store) History(ctx context.Context, since time.Time, limit int) ([]analytics.Snapshot, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT captured_at, data FROM (
			SELECT captured_at, data FROM analytics_snapshots
			WHERE captured_at >= $1
			ORDER BY captured_at DESC
			LIMIT $2
		) recent ORDER BY captured_at ASC`,
		since, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying stats history: %w", err)
	}
	defer rows.Close()

	out := []analytics.Snapshot{}
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning stats snapshot: %w", err)
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Prune deletes snapshots captured before cutoff.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM analytics_snapshots WHERE captured_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning stats snapshots: %w", err)
	}
	return res.RowsAffected()
}

// Restore seeds agg from the newest snapshot if there is one.
func (s *Store) Restore(ctx context.Context, agg *analytics.Aggregator) error {
	snap, err := s.Latest(ctx)
	if err != nil || snap == nil {
		return err
	}
	agg.Restore(snap.Stats)
	s.logger.Info("stats restored", "captured_at", snap.CapturedAt, "total_scored", snap.Stats.TotalScored)
	return nil
}

// Run snapshots agg every interval and drops snapshots past Retention. It
// blocks until ctx is done and then writes one last snapshot.
func (s *Store) Run(ctx context.Context, agg *analytics.Aggregator, interval time.Duration) {
	s.logger.Info("stats snapshots scheduled", "interval", interval, "retention", Retention)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			if err := s.Save(final, agg.Stats()); err != nil {
				s.logger.Error("final stats snapshot failed", "error", err)
			}
			cancel()
			return
		case <-ticker.C:
			s.tick(ctx, agg)
		}
	}
}

func (s *Store) tick(ctx context.Context, agg *analytics.Aggregator) {
	stats := agg.Stats()
	if err := s.Save(ctx, stats); err != nil {
		s.logger.Error("stats snapshot failed", "error", err)
		return
	}
	n, err := s.Prune(ctx, s.now().Add(-Retention))
	switch {
	case err != nil:
		s.logger.Warn("stats snapshot prune failed", "error", err)
	case n > 0:
		s.logger.Debug("old stats snapshots pruned", "deleted", n)
	}
	s.logger.Debug("stats snapshot saved", "total_scored", stats.TotalScored, "failed", stats.Failed)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(sc scanner) (analytics.Snapshot, error) {
	var (
		snap analytics.Snapshot
		data []byte
	)
	if err := sc.Scan(&snap.CapturedAt, &data); err != nil {
		return snap, err
	}
	if err := json.Unmarshal(data, &snap.Stats); err != nil {
		return snap, fmt.Errorf("decoding stats snapshot: %w", err)
	}
	return snap, nil
}
