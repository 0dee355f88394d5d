package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres keeps one row per period in a plain blob table. The schema is
// created on connect so a fresh database works without a migration step.
type Postgres struct {
	pool *pgxpool.Pool
}

const createPeriodsTable = `CREATE TABLE IF NOT EXISTS periods (
	id TEXT PRIMARY KEY,
	blob JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// NewPostgres takes a connected pool, see platform/db.New, and ensures the
// periods table exists.
func NewPostgres(ctx context.Context, pool *pgxpool.Pool) (*Postgres, error) {
	if _, err := pool.Exec(ctx, createPeriodsTable); err != nil {
		return nil, fmt.Errorf("store: ensure schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Get(ctx context.Context, id string) ([]byte, error) {
	var blob []byte
	err := p.pool.QueryRow(ctx, `SELECT blob FROM periods WHERE id=$1`, id).Scan(&blob)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: postgres get %s: %w", id, err)
	}
	return blob, nil
}

func (p *Postgres) Put(ctx context.Context, id string, blob []byte) error {
	_, err := p.pool.Exec(ctx, `INSERT INTO periods (id, blob, updated_at) VALUES ($1,$2,now())
ON CONFLICT (id) DO UPDATE SET blob=EXCLUDED.blob, updated_at=now()`, id, blob)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok {
			return fmt.Errorf("store: postgres put %s: %s: %w", id, pgErr.Code, err)
		}
		return fmt.Errorf("store: postgres put %s: %w", id, err)
	}
	return nil
}

func (p *Postgres) List(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT id FROM periods ORDER BY updated_at`)
	if err != nil {
		return nil, fmt.Errorf("store: postgres list: %w", err)
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: postgres list scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
