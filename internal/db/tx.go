package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Transactor runs a unit of work inside one transaction. *Postgres
// implements it; services depend on the interface.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

// Conn returns the transaction bound to ctx by RunInTx, or the pool.
func (p *Postgres) Conn(ctx context.Context) Querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return p.Pool
}

// InTx reports whether ctx carries a transaction.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(pgx.Tx)
	return ok
}

// RunInTx executes fn in one transaction: committed when fn returns nil,
// rolled back on error or panic. A nested call joins the outer transaction.
// The whole unit of work is retried on serialization failures and deadlocks.
func (p *Postgres) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTx(ctx) {
		return fn(ctx)
	}

	var err error
	for attempt := 1; attempt <= p.txAttempts; attempt++ {
		err = p.runOnce(ctx, fn)
		if err == nil || !IsRetryable(err) {
			return err
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("db: transaction conflict, retrying")
	}
	return err
}

func (p *Postgres) runOnce(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	tx, err := p.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("db: failed to begin transaction: %w", err)
	}

	defer func() {
		// откат не должен зависеть от отмены запроса
		rbCtx := context.WithoutCancel(ctx)
		if rec := recover(); rec != nil {
			log.Error().Interface("panic_value", rec).Msg("db: panic recovered inside transaction, rolling back")
			if rbErr := tx.Rollback(rbCtx); rbErr != nil {
				log.Error().Err(rbErr).Msg("db: failed to rollback transaction after panic")
			}
			panic(rec)
		}
		if err != nil {
			if rbErr := tx.Rollback(rbCtx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				log.Error().Err(rbErr).Msg("db: failed to rollback transaction")
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("db: failed to commit transaction: %w", commitErr)
		}
	}()

	return fn(context.WithValue(ctx, txKey{}, tx))
}

// IsRetryable reports whether err is a transient concurrency failure.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
}

// IsUniqueViolation reports whether err is a unique constraint violation,
// optionally on the named constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

// IsForeignKeyViolation reports whether err is a foreign key violation.
func IsForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}

// IsCheckViolation reports whether err violates the named CHECK constraint.
func IsCheckViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.CheckViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
