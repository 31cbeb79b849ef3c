// Package postgres opens the database handles used by the order meta store
// (pgx pool) and the audit store (database/sql over lib/pq).
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"euvat/internal/platform/config"
)

// Handles bundles both connections to the same database.
type Handles struct {
	Pool *pgxpool.Pool
	DB   *sql.DB
}

// Open connects both handles. Returns nil if the DSN is empty (Postgres not
// configured).
func Open(ctx context.Context, cfg config.Postgres) (*Handles, error) {
	if cfg.DSN == "" {
		return nil, nil
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open pgx pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("open sql db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		pool.Close()
		_ = db.Close()
		return nil, fmt.Errorf("sql ping failed: %w", err)
	}

	return &Handles{Pool: pool, DB: db}, nil
}

// Health pings the pool.
func (h *Handles) Health(ctx context.Context) error {
	return h.Pool.Ping(ctx)
}

// Close releases both handles.
func (h *Handles) Close() error {
	h.Pool.Close()
	return h.DB.Close()
}
