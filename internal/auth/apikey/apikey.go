// Package apikey validates API keys against PostgreSQL. Raw keys are random
// 32-byte hex strings; only their SHA-256 digest is stored. Each key carries
// scopes that gate the write and admin endpoints. Successful lookups are
// cached for a short TTL so hot ingestion paths do not hit the database on
// every request.
package apikey

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/Adithya-Monish-Kumar-K/Brand-Sentiment-Platform/pkg/postgres"
)

// Scopes granted to keys.
const (
	ScopeIngest = "ingest"
	ScopeAdmin  = "admin"
)

var (
	ErrInvalidKey   = errors.New("invalid api key")
	ErrExpiredKey   = errors.New("api key expired")
	ErrMissingScope = errors.New("api key lacks required scope")
	ErrUnknownScope = errors.New("unknown scope")
)

// KeyInfo holds metadata about a validated API key.
type KeyInfo struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Scopes    []string   `json:"scopes"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// HasScope reports whether the key grants scope. Admin keys grant every
// scope.
func (k *KeyInfo) HasScope(scope string) bool {
	return slices.Contains(k.Scopes, scope) || slices.Contains(k.Scopes, ScopeAdmin)
}

type cachedKey struct {
	info    *KeyInfo
	expires time.Time
}

// Validator validates API keys against the api_keys table.
type Validator struct {
	db     *postgres.Client
	lookup func(ctx context.Context, hash string) (*KeyInfo, error)
	ttl    time.Duration
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]cachedKey

	logger *slog.Logger
}

// NewValidator creates a validator backed by db. ttl <= 0 disables caching.
func NewValidator(db *postgres.Client, ttl time.Duration) *Validator {
	v := &Validator{
		db:     db,
		ttl:    ttl,
		now:    time.Now,
		cache:  make(map[string]cachedKey),
		logger: slog.Default().With("component", "apikey-validator"),
	}
	v.lookup = v.queryKey
	return v
}

// Validate resolves a raw key to its KeyInfo. It returns ErrInvalidKey for
// unknown or revoked keys and ErrExpiredKey once the key's expiry passed.
func (v *Validator) Validate(ctx context.Context, rawKey string) (*KeyInfo, error) {
	if rawKey == "" {
		return nil, ErrInvalidKey
	}
	hash := HashKey(rawKey)
	now := v.now()

	if info, ok := v.cached(hash, now); ok {
		return checkExpiry(info, now)
	}

	info, err := v.lookup(ctx, hash)
	if err != nil {
		return nil, err
	}
	if _, err := checkExpiry(info, now); err != nil {
		return nil, err
	}
	if v.ttl > 0 {
		v.mu.Lock()
		v.cache[hash] = cachedKey{info: info, expires: now.Add(v.ttl)}
		v.mu.Unlock()
	}
	return info, nil
}

func (v *Validator) cached(hash string, now time.Time) (*KeyInfo, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	c, ok := v.cache[hash]
	if !ok {
		return nil, false
	}
	if now.After(c.expires) {
		delete(v.cache, hash)
		return nil, false
	}
	return c.info, true
}

func checkExpiry(info *KeyInfo, now time.Time) (*KeyInfo, error) {
	if info.ExpiresAt != nil && info.ExpiresAt.Before(now) {
		return nil, ErrExpiredKey
	}
	return info, nil
}

func (v *Validator) queryKey(ctx context.Context, hash string) (*KeyInfo, error) {
	var (
		info      KeyInfo
		expiresAt sql.NullTime
	)
	err := v.db.DB.QueryRowContext(ctx,
		`SELECT id, name, scopes, created_at, expires_at
		FROM api_keys
		WHERE key_hash = $1 AND is_active = true`,
		hash,
	).Scan(&info.ID, &info.Name, pq.Array(&info.Scopes), &info.CreatedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidKey
	}
	if err != nil {
		return nil, fmt.Errorf("querying api key: %w", err)
	}
	if expiresAt.Valid {
		info.ExpiresAt = &expiresAt.Time
	}
	return &info, nil
}

// CreateKey generates a key with the given scopes, stores its hash and
// returns the raw key. The raw key cannot be retrieved again.
func (v *Validator) CreateKey(ctx context.Context, name string, scopes []string, expiresAt *time.Time) (string, *KeyInfo, error) {
	if len(scopes) == 0 {
		scopes = []string{ScopeIngest}
	}
	for _, s := range scopes {
		if s != ScopeIngest && s != ScopeAdmin {
			return "", nil, fmt.Errorf("%w: %q", ErrUnknownScope, s)
		}
	}
	rawKey := generateRawKey()
	info := &KeyInfo{
		ID:        uuid.NewString(),
		Name:      name,
		Scopes:    scopes,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	}

	var expiry sql.NullTime
	if expiresAt != nil {
		expiry = sql.NullTime{Time: *expiresAt, Valid: true}
	}
	_, err := v.db.DB.ExecContext(ctx,
		`INSERT INTO api_keys (id, key_hash, name, scopes, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		info.ID, HashKey(rawKey), name, pq.Array(scopes), info.CreatedAt, expiry,
	)
	if err != nil {
		return "", nil, fmt.Errorf("creating api key: %w", err)
	}
	v.logger.Info("api key created", "id", info.ID, "name", name, "scopes", scopes)
	return rawKey, info, nil
}

// RevokeKey deactivates the key with the given ID and drops cached lookups.
func (v *Validator) RevokeKey(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrInvalidKey
	}
	result, err := v.db.DB.ExecContext(ctx,
		`UPDATE api_keys SET is_active = false WHERE id = $1 AND is_active = true`, id)
	if err != nil {
		return fmt.Errorf("revoking api key: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrInvalidKey
	}

	v.mu.Lock()
	clear(v.cache)
	v.mu.Unlock()
	v.logger.Info("api key revoked", "id", id)
	return nil
}

// ListKeys returns all active keys, newest first.
func (v *Validator) ListKeys(ctx context.Context) ([]KeyInfo, error) {
	rows, err := v.db.DB.QueryContext(ctx,
		`SELECT id, name, scopes, created_at, expires_at
		FROM api_keys WHERE is_active = true ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing api keys: %w", err)
	}
	defer rows.Close()

	var keys []KeyInfo
	for rows.Next() {
		var (
			k         KeyInfo
			expiresAt sql.NullTime
		)
		if err := rows.Scan(&k.ID, &k.Name, pq.Array(&k.Scopes), &k.CreatedAt, &expiresAt); err != nil {
			return nil, fmt.Errorf("scanning api key row: %w", err)
		}
		if expiresAt.Valid {
			k.ExpiresAt = &expiresAt.Time
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// HashKey returns the SHA-256 hex digest of a raw API key.
func HashKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func generateRawKey() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
