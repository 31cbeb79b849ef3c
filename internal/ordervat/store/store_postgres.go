package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"euvat/internal/ordervat"
	"euvat/pkg/platform/sentinel"
	"euvat/pkg/platform/tx"
)

// Schema creates the meta tables.
const Schema = `
CREATE TABLE IF NOT EXISTS order_meta (
	order_id   TEXT NOT NULL,
	meta_key   TEXT NOT NULL,
	meta_value TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (order_id, meta_key)
);
CREATE TABLE IF NOT EXISTS customer_meta (
	customer_id TEXT NOT NULL,
	meta_key    TEXT NOT NULL,
	meta_value  TEXT NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (customer_id, meta_key)
);`

const (
	orderTable       = "order_meta"
	orderIDColumn    = "order_id"
	customerTable    = "customer_meta"
	customerIDColumn = "customer_id"
)

// querier is satisfied by *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// PostgresStore persists meta in Postgres. Each Set call is one transaction.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrate meta tables: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetOrderMeta(ctx context.Context, id string, meta map[string]string) error {
	return tx.Run(ctx, s.pool, func(ctx context.Context, t pgx.Tx) error {
		return replaceMeta(ctx, t, orderTable, orderIDColumn, id, meta)
	})
}

func (s *PostgresStore) OrderMeta(ctx context.Context, id string) (map[string]string, error) {
	return loadMeta(ctx, s.pool, orderTable, orderIDColumn, id)
}

func (s *PostgresStore) SetCustomerMeta(ctx context.Context, id string, meta map[string]string) error {
	return tx.Run(ctx, s.pool, func(ctx context.Context, t pgx.Tx) error {
		return replaceMeta(ctx, t, customerTable, customerIDColumn, id, meta)
	})
}

func (s *PostgresStore) CustomerMeta(ctx context.Context, id string) (map[string]string, error) {
	return loadMeta(ctx, s.pool, customerTable, customerIDColumn, id)
}

// RunInTx runs fn against a store bound to one transaction.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(store ordervat.MetaStore) error) error {
	return tx.Run(ctx, s.pool, func(_ context.Context, t pgx.Tx) error {
		return fn(&txStore{tx: t})
	})
}

// txStore serves a single transaction. Reading an order takes an advisory
// lock on it, so concurrent transactions on one order run one after another.
type txStore struct {
	tx pgx.Tx
}

func (t *txStore) SetOrderMeta(ctx context.Context, id string, meta map[string]string) error {
	return replaceMeta(ctx, t.tx, orderTable, orderIDColumn, id, meta)
}

func (t *txStore) OrderMeta(ctx context.Context, id string) (map[string]string, error) {
	if _, err := t.tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('order_meta:' || $1))`, id); err != nil {
		return nil, fmt.Errorf("%w: lock order %s: %v", sentinel.ErrUnavailable, id, err)
	}
	return loadMeta(ctx, t.tx, orderTable, orderIDColumn, id)
}

func (t *txStore) SetCustomerMeta(ctx context.Context, id string, meta map[string]string) error {
	return replaceMeta(ctx, t.tx, customerTable, customerIDColumn, id, meta)
}

func (t *txStore) CustomerMeta(ctx context.Context, id string) (map[string]string, error) {
	return loadMeta(ctx, t.tx, customerTable, customerIDColumn, id)
}

// replaceMeta deletes the existing keys of id and inserts meta in one batch.
// table and idColumn are package constants, never user input.
func replaceMeta(ctx context.Context, q querier, table, idColumn, id string, meta map[string]string) error {
	batch := &pgx.Batch{}
	batch.Queue(fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, table, idColumn), id)
	insert := fmt.Sprintf(`INSERT INTO %s (%s, meta_key, meta_value, updated_at) VALUES ($1, $2, $3, now())`, table, idColumn)
	for key, value := range meta {
		batch.Queue(insert, id, key, value)
	}

	results := q.SendBatch(ctx, batch)
	for range batch.Len() {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("%w: replace %s: %v", sentinel.ErrUnavailable, table, err)
		}
	}
	return results.Close()
}

func loadMeta(ctx context.Context, q querier, table, idColumn, id string) (map[string]string, error) {
	query := fmt.Sprintf(`SELECT meta_key, meta_value FROM %s WHERE %s = $1`, table, idColumn)
	rows, err := q.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %v", sentinel.ErrUnavailable, table, err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("%w: scan %s: %v", sentinel.ErrBadData, table, err)
		}
		meta[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", sentinel.ErrUnavailable, table, err)
	}
	if len(meta) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return meta, nil
}
