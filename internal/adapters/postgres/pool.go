// Package postgres implements the quote store, like ledger and ranking ports
// on PostgreSQL using pgx.
//
// Every write that touches both quotes.likes_count and the likes table runs in
// one transaction, and counters are only ever changed with relative updates.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the subset of *pgxpool.Pool the repositories use.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// PoolConfig contains connection pool settings.
type PoolConfig struct {
	URL             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// NewPool opens a pool and verifies connectivity.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parsing database url: %w", err)
	}

	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	poolCfg.MinConns = cfg.MinConns

	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}

	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("creating pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return pool, nil
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker reports database reachability to the health registry.
type HealthChecker struct {
	pool Pinger
}

// NewHealthChecker wraps pool.
func NewHealthChecker(pool Pinger) *HealthChecker {
	return &HealthChecker{pool: pool}
}

// Name implements ports.HealthChecker.
func (h *HealthChecker) Name() string {
	return "postgres"
}

// Check implements ports.HealthChecker.
func (h *HealthChecker) Check(ctx context.Context) error {
	return h.pool.Ping(ctx)
}

// rollback ends tx if it is still open. It is deferred on every transaction, so
// ErrTxClosed after a successful commit is expected.
func rollback(ctx context.Context, tx pgx.Tx, logger *slog.Logger) {
	// Rollback must run even when the request context is already cancelled.
	err := tx.Rollback(context.WithoutCancel(ctx))
	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		logger.WarnContext(ctx, "transaction rollback failed", slog.Any("error", err))
	}
}

// scanner is implemented by pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}
