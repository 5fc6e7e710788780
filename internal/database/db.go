// Package database owns the worker's PostgreSQL connection pool. The
// pool is process-wide: jobs, the repository and the ops health check
// all share it.
package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	mu   sync.RWMutex
	pool *pgxpool.Pool
)

// PoolConfig sizes the connection pool. Zero values fall back to the
// pgxpool defaults.
type PoolConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Init opens the process-wide pool and verifies it with a ping.
// Calling Init again without Close in between is an error.
func Init(ctx context.Context, cfg PoolConfig) error {
	mu.Lock()
	defer mu.Unlock()

	if pool != nil {
		return errors.New("database pool already initialized")
	}

	pc, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		pc.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		pc.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		pc.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		pc.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	pc.HealthCheckPeriod = time.Minute

	p, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return fmt.Errorf("create connection pool: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return fmt.Errorf("ping database: %w", err)
	}

	pool = p
	return nil
}

// Close tears the pool down. Safe to call when Init never ran.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if pool != nil {
		pool.Close()
		pool = nil
	}
}

// Pool returns the shared pool, or nil before Init.
func Pool() *pgxpool.Pool {
	mu.RLock()
	defer mu.RUnlock()
	return pool
}

// Status pings the database through the shared pool.
func Status(ctx context.Context) error {
	p := Pool()
	if p == nil {
		return errors.New("database not initialized")
	}
	return p.Ping(ctx)
}

// Stats reports pool connection counts for the health endpoint. Nil
// before Init.
func Stats() *pgxpool.Stat {
	p := Pool()
	if p == nil {
		return nil
	}
	return p.Stat()
}
