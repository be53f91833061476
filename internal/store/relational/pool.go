// Package relational implements the relational store: the
// transactional store of record for documents, statements, segments,
// speakers, legislators, votes, and the ingestion scheduler's batch/task
// rows. Backed by Postgres via pgx.
package relational

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"polsearch/internal/config"
)

// Store wraps a Postgres connection pool with per-entity repository methods.
type Store struct {
	pool *pgxpool.Pool
}

// Open creates a connection pool per cfg and bootstraps the schema.
func Open(ctx context.Context, cfg config.RelationalConfig) (*Store, error) {
	pool, err := newPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	s := &Store{pool: pool}
	if err := s.bootstrap(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying pool.
func (s *Store) Close() { s.pool.Close() }

func newPool(ctx context.Context, cfg config.RelationalConfig) (*pgxpool.Pool, error) {
	pgcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, err
	}
	maxConns := cfg.MaxConns
	if maxConns <= 0 {
		maxConns = 10
	}
	pgcfg.MaxConns = maxConns
	pgcfg.MinConns = 0
	pgcfg.MaxConnLifetime = time.Hour
	pgcfg.MaxConnIdleTime = cfg.MaxConnIdle
	if pgcfg.MaxConnIdleTime <= 0 {
		pgcfg.MaxConnIdleTime = 5 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgcfg)
	if err != nil {
		return nil, err
	}
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(cctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
