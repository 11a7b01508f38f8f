package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS bookload_runs (
    id         TEXT PRIMARY KEY,
    created_at TIMESTAMPTZ NOT NULL,
    config     JSONB NOT NULL,
    summary    JSONB NOT NULL
)`

type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// OpenPostgres connects to dsn and creates the runs table if missing.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("error connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("error pinging database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating bookload_runs: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Save(ctx context.Context, item HistoryItem) error {
	cfg, err := json.Marshal(item.Config)
	if err != nil {
		return err
	}
	sum, err := json.Marshal(item.Summary)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
        INSERT INTO bookload_runs (id, created_at, config, summary)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (id) DO UPDATE
        SET created_at = EXCLUDED.created_at, config = EXCLUDED.config, summary = EXCLUDED.summary`,
		item.ID, item.Timestamp, cfg, sum,
	)
	return err
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]HistoryItem, error) {
	rows, err := s.pool.Query(ctx, `
        SELECT id, created_at, config, summary
        FROM bookload_runs
        ORDER BY created_at DESC
        LIMIT $1`, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []HistoryItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*HistoryItem, error) {
	row := s.pool.QueryRow(ctx, `
        SELECT id, created_at, config, summary
        FROM bookload_runs
        WHERE id = $1`, id)
	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return item, err
}

func scanItem(row pgx.Row) (*HistoryItem, error) {
	var (
		item     HistoryItem
		cfg, sum []byte
	)
	if err := row.Scan(&item.ID, &item.Timestamp, &cfg, &sum); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(cfg, &item.Config); err != nil {
		return nil, fmt.Errorf("decode config of %s: %w", item.ID, err)
	}
	if err := json.Unmarshal(sum, &item.Summary); err != nil {
		return nil, fmt.Errorf("decode summary of %s: %w", item.ID, err)
	}
	return &item, nil
}
