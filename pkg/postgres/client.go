// Package postgres wraps database/sql over lib/pq with pool settings,
// transactions and schema bootstrapping.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/config"
)

// Client owns the connection pool.
type Client struct {
	DB     *sql.DB
	cfg    config.PostgresConfig
	logger *slog.Logger
}

// New opens the pool and verifies it with a ping.
func New(cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging postgres %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
	}
	return NewFromDB(db, cfg), nil
}

// NewFromDB wraps an already-open handle.
func NewFromDB(db *sql.DB, cfg config.PostgresConfig) *Client {
	return &Client{
		DB:     db,
		cfg:    cfg,
		logger: slog.Default().With("component", "postgres", "database", cfg.Database),
	}
}

// Close closes the pool.
func (c *Client) Close() error {
	return c.DB.Close()
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.DB.PingContext(ctx)
}

// Migrate executes DDL statements in one transaction. Statements must be
// idempotent (CREATE ... IF NOT EXISTS) so every service can run them at
// startup.
func (c *Client) Migrate(ctx context.Context, ddl string) error {
	start := time.Now()
	err := c.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.logger.Info("schema ensured", "duration", time.Since(start))
	return nil
}

// InTx runs fn inside a transaction, committing on success and rolling back
// on error.
func (c *Client) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction after error %v: %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	return nil
}
