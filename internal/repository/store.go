package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrDuplicateEmail is returned when an account email is already taken.
var ErrDuplicateEmail = errors.New("email already exists")

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store groups the repositories behind one transactional storage resource.
type Store interface {
	Tickets() TicketRepository
	StatusLogs() StatusLogRepository
	Comments() CommentRepository
	Accounts() AccountRepository
	// WithinTx runs fn against a Store bound to a single transaction. The transaction
	// commits when fn returns nil and rolls back on error, panic or context cancellation.
	// Calling WithinTx on a transaction-bound Store reuses the open transaction.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
	Ping(ctx context.Context) error
}

type postgresStore struct {
	pool *pgxpool.Pool
	db   DBTX
}

// NewPostgresStore returns a Store backed by the pgx pool.
func NewPostgresStore(pool *pgxpool.Pool) Store {
	return &postgresStore{pool: pool, db: pool}
}

func (s *postgresStore) Tickets() TicketRepository       { return NewTicketRepository(s.db) }
func (s *postgresStore) StatusLogs() StatusLogRepository { return NewStatusLogRepository(s.db) }
func (s *postgresStore) Comments() CommentRepository     { return NewCommentRepository(s.db) }
func (s *postgresStore) Accounts() AccountRepository     { return NewAccountRepository(s.db) }

func (s *postgresStore) WithinTx(ctx context.Context, fn func(tx Store) error) (err error) {
	if _, inTx := s.db.(pgx.Tx); inTx {
		return fn(s)
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err = fn(&postgresStore{pool: s.pool, db: tx}); err != nil {
		return err
	}
	err = tx.Commit(ctx)
	return err
}

func (s *postgresStore) Ping(ctx context.Context) error {
	if s.pool == nil {
		return errors.New("postgres pool not configured")
	}
	return s.pool.Ping(ctx)
}
