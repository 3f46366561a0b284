package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

type DB struct {
	Pool *pgxpool.Pool
}

func New(ctx context.Context, connString string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool}, nil
}

func (db *DB) Close() {
	db.Pool.Close()
}

func (db *DB) Migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS user_contexts (
			contact_key TEXT PRIMARY KEY,
			contact     JSONB NOT NULL,
			campaign    JSONB NOT NULL,
			updated_at  TIMESTAMPTZ DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS delivery_log (
			id          TEXT PRIMARY KEY,
			fingerprint TEXT NOT NULL,
			event_id    TEXT NOT NULL,
			event_kind  TEXT NOT NULL,
			downstream  TEXT NOT NULL,
			status      TEXT NOT NULL,
			attempts    INT DEFAULT 0,
			error       TEXT,
			latency_ms  BIGINT,
			created_at  TIMESTAMPTZ DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_delivery_log_fingerprint ON delivery_log(fingerprint);
		CREATE INDEX IF NOT EXISTS idx_delivery_log_created_at ON delivery_log(created_at);
		CREATE INDEX IF NOT EXISTS idx_delivery_log_downstream_status ON delivery_log(downstream, status);
	`

	_, err := db.Pool.Exec(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
