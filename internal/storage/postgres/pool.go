// Package postgres holds the pgx plumbing used by the bulk writer: the
// connection-provider seam, a pgxpool-backed implementation, and the SQL text
// builders for staging tables, join updates and table DDL.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Conn is the subset of *pgxpool.Conn used per write operation. Tests
// substitute fakes; production code gets *pgxpool.Conn from Pool.
type Conn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Release()
}

// Provider hands out one connection per operation. Callers must Release it.
type Provider interface {
	Acquire(ctx context.Context) (Conn, error)
}

// Config holds pool configuration.
type Config struct {
	DSN      string // connection string for pgxpool
	MaxConns int32  // 0 keeps the pgxpool default
	MinConns int32
}

// Pool is a Provider backed by *pgxpool.Pool.
type Pool struct {
	pool *pgxpool.Pool
}

var _ Provider = (*Pool)(nil)

// NewPool parses cfg, opens the pool and returns a Close function for cleanup.
func NewPool(ctx context.Context, cfg Config) (*Pool, func(), error) {
	pcfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		pcfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		pcfg.MinConns = cfg.MinConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxpool: %w", err)
	}
	closeFn := func() { pool.Close() }
	return &Pool{pool: pool}, closeFn, nil
}

// Acquire implements Provider.
func (p *Pool) Acquire(ctx context.Context) (Conn, error) {
	c, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Exec runs a single statement on a pooled connection (DDL, test fixtures).
func (p *Pool) Exec(ctx context.Context, sql string, args ...any) error {
	_, err := p.pool.Exec(ctx, sql, args...)
	return err
}

// Ping verifies connectivity.
func (p *Pool) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}
