package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/admission-go/internal/analytics"
)

const denialSchema = `
	CREATE TABLE IF NOT EXISTS admission_denials (
		id              TEXT PRIMARY KEY,
		scope_key       TEXT        NOT NULL,
		scope           TEXT        NOT NULL,
		reason          TEXT        NOT NULL,
		quota_limit     BIGINT      NOT NULL,
		retry_after_ms  BIGINT      NOT NULL,
		denied_at       TIMESTAMPTZ NOT NULL,
		source          TEXT        NOT NULL,
		path            TEXT,
		client_ip       TEXT,
		user_agent      TEXT,
		request_id      TEXT
	);
	CREATE INDEX IF NOT EXISTS admission_denials_key_time
		ON admission_denials (scope_key, denied_at DESC);
`

// DenialPostgresStore is a PostgreSQL implementation of analytics.Store.
type DenialPostgresStore struct {
	pool *pgxpool.Pool
}

// NewDenialPostgresStore creates a new PostgreSQL-backed denial store.
func NewDenialPostgresStore(pool *pgxpool.Pool) *DenialPostgresStore {
	return &DenialPostgresStore{pool: pool}
}

// EnsureSchema creates the denial table and index when missing.
func (p *DenialPostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, denialSchema); err != nil {
		return fmt.Errorf("create admission_denials: %w", err)
	}

	return nil
}

// SaveDenied inserts the event. Redelivered events are ignored.
func (p *DenialPostgresStore) SaveDenied(ctx context.Context, event *analytics.DeniedEvent) error {
	query := `
		INSERT INTO admission_denials (
			id, scope_key, scope, reason, quota_limit, retry_after_ms,
			denied_at, source, path, client_ip, user_agent, request_id
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`

	_, err := p.pool.Exec(ctx, query,
		event.ID,
		event.Key,
		event.Scope,
		event.Reason,
		event.Limit,
		event.RetryAfterMs,
		event.DeniedAt,
		event.Source,
		nullableString(event.Path),
		nullableString(event.ClientIP),
		nullableString(event.UserAgent),
		nullableString(event.RequestID),
	)

	return err
}

// CountSince returns how many denials were stored for key at or after since.
func (p *DenialPostgresStore) CountSince(ctx context.Context, key string, since time.Time) (int64, error) {
	var n int64

	err := p.pool.QueryRow(ctx,
		`SELECT count(*) FROM admission_denials WHERE scope_key = $1 AND denied_at >= $2`,
		key, since,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count denials: %w", err)
	}

	return n, nil
}

// Ping checks database connectivity.
func (p *DenialPostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Shutdown closes the connection pool.
func (p *DenialPostgresStore) Shutdown() error {
	p.pool.Close()

	return nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

// Compile-time check.
var _ analytics.Store = (*DenialPostgresStore)(nil)
