// Package store implements the inventory store on PostgreSQL with pgx.
// Reads go through the pool; InTx runs a function inside one database
// transaction and the lock methods use SELECT ... FOR UPDATE.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"it-inventory-api/internal/inventory"
	"it-inventory-api/internal/lifecycle"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// scanner is satisfied by pgx.Row and pgx.Rows
type scanner interface {
	Scan(dest ...any) error
}

type Store struct {
	reader
	pool *pgxpool.Pool
}

var (
	_ inventory.Store = (*Store)(nil)
	_ inventory.Tx    = (*txStore)(nil)
)

// Open connects a pool and checks that the database answers.
func Open(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return New(pool), nil
}

// New wraps an existing pool
func New(pool *pgxpool.Pool) *Store {
	return &Store{reader: reader{q: pool}, pool: pool}
}

func (s *Store) Pool() *pgxpool.Pool { return s.pool }

func (s *Store) Ping(ctx context.Context) error { return s.pool.Ping(ctx) }

func (s *Store) Close() { s.pool.Close() }

func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx inventory.Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &txStore{reader: reader{q: tx}}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError(fmt.Errorf("commit: %w", err))
	}
	return nil
}

// mapError turns driver errors into domain errors: missing rows become
// NotFound and unique violations become Conflict.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return lifecycle.NotFound("record not found")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return lifecycle.Conflict("%s", conflictMessage(pgErr))
		case "23503":
			return lifecycle.Validation("referenced record does not exist")
		}
	}
	return err
}

func conflictMessage(pgErr *pgconn.PgError) string {
	switch pgErr.ConstraintName {
	case "assets_asset_tag_key":
		return "asset tag already exists"
	case "assets_serial_number_key":
		return "serial number already exists"
	case "employees_email_key":
		return "employee email already exists"
	case "employees_employee_id_key":
		return "employee ID already exists"
	case "users_email_key", "users_username_key":
		return "username or email already registered"
	}
	if pgErr.Detail != "" {
		return pgErr.Detail
	}
	return "record already exists"
}

// notFound reports a missing row as NotFound with a specific message
func notFound(err error, format string, args ...any) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return lifecycle.NotFound(format, args...)
	}
	return mapError(err)
}
