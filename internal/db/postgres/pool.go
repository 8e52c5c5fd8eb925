package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NewPool connects to Postgres and verifies the link before handing
// the pool to the rest of the vault.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: creating pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: pinging database: %w", err)
	}

	return pool, nil
}

// Statements run one at a time: pgx's extended protocol rejects
// multi-command strings.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS secrets (
		id         UUID PRIMARY KEY,
		name       TEXT NOT NULL UNIQUE,
		encoded    TEXT NOT NULL,
		version    INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS system_alerts (
		id          UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		severity    TEXT NOT NULL,
		category    TEXT NOT NULL,
		resource_id TEXT NOT NULL DEFAULT '',
		message     TEXT NOT NULL,
		is_resolved BOOLEAN NOT NULL DEFAULT FALSE,
		metadata    JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		resolved_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS system_alerts_open_idx
		ON system_alerts (created_at DESC) WHERE is_resolved = FALSE`,
}

// EnsureSchema creates the vault tables on first boot. Idempotent, so
// every instance can run it unconditionally.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("postgres: ensuring schema: %w", err)
		}
	}
	return nil
}
