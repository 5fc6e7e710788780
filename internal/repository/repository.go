// Package repository implements typed PostgreSQL access for crawlers,
// products, benchmarks and categories. All SQL lives here; jobs talk to the
// database exclusively through these methods.
package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository wraps a pgx connection pool. Methods are safe for concurrent
// use; every write that touches more than one row runs in a single
// transaction.
type Repository struct {
	pool *pgxpool.Pool
}

// New wraps an existing connection pool.
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Pool exposes the underlying pool for health checks and pool stats.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}
