package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS arb_audit_log (
    id         UUID PRIMARY KEY,
    kind       TEXT        NOT NULL,
    detail     JSONB       NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
)`

// PostgresStore appends audit records to a shared PostgreSQL table
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to dsn and makes sure the table exists
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	cfg.MaxConns = 4
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: apply schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Emit inserts the event with its payload stored as JSONB
func (s *PostgresStore) Emit(ctx context.Context, e Event) error {
	rec, err := Encode(e)
	if err != nil {
		return err
	}
	const query = `INSERT INTO arb_audit_log (id, kind, detail, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := s.pool.Exec(ctx, query, e.ID, string(rec.Kind), []byte(rec.Detail), rec.Timestamp); err != nil {
		return fmt.Errorf("postgres: log audit event %s: %w", rec.Kind, err)
	}
	return nil
}

// Close shuts the pool down
func (s *PostgresStore) Close() {
	s.pool.Close()
}

var _ Log = (*PostgresStore)(nil)
