package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/product-management/internal/config"
)

type Postgres struct {
	Pool *pgxpool.Pool

	sqlxDB     *sqlx.DB
	txAttempts int
}

type Option func(*Postgres)

// WithTxAttempts sets how many times RunInTx retries a unit of work that
// failed with a serialization failure or a deadlock.
func WithTxAttempts(n int) Option {
	return func(p *Postgres) {
		if n > 0 {
			p.txAttempts = n
		}
	}
}

func New(ctx context.Context, cfg config.PostgresConfig, opts ...Option) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres connstr: %w", err)
	}

	poolConfig.MaxConns = cfg.MaxConns
	poolConfig.MinConns = cfg.MinConns
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime

	dbPool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres connection pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to ping db: %w", err)
	}

	log.Info().Str("host", cfg.Host).Str("dbname", cfg.DBName).Msg("Connected to PostgreSQL")
	return NewFromPool(dbPool, opts...), nil
}

// NewFromPool wraps an existing pool.
func NewFromPool(pool *pgxpool.Pool, opts ...Option) *Postgres {
	p := &Postgres{
		Pool:       pool,
		sqlxDB:     sqlx.NewDb(stdlib.OpenDBFromPool(pool), "pgx"),
		txAttempts: 1,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SQLX exposes the pool through database/sql for struct-scanning reads.
// Queries issued through it never join a transaction from RunInTx.
func (p *Postgres) SQLX() *sqlx.DB {
	return p.sqlxDB
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.Pool.Ping(ctx)
}

func (p *Postgres) Close() {
	if p.sqlxDB != nil {
		if err := p.sqlxDB.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database/sql handle")
		}
	}
	if p.Pool != nil {
		p.Pool.Close()
		log.Info().Msg("Database connection closed")
	}
}
