// Package sqlite implements repository.Store on top of database/sql and the
// pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/helpdesk-labs/ticket-service/internal/repository"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type store struct {
	db *sql.DB
	q  querier
}

// NewStore returns a Store backed by db.
func NewStore(db *sql.DB) repository.Store {
	return &store{db: db, q: db}
}

func (s *store) Tickets() repository.TicketRepository       { return &ticketRepository{q: s.q} }
func (s *store) StatusLogs() repository.StatusLogRepository { return &statusLogRepository{q: s.q} }
func (s *store) Comments() repository.CommentRepository     { return &commentRepository{q: s.q} }
func (s *store) Accounts() repository.AccountRepository     { return &accountRepository{q: s.q} }

func (s *store) WithinTx(ctx context.Context, fn func(tx repository.Store) error) (err error) {
	if _, inTx := s.q.(*sql.Tx); inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(&store{db: s.db, q: tx}); err != nil {
		return err
	}
	err = tx.Commit()
	return err
}

func (s *store) Ping(ctx context.Context) error {
	if s.db == nil {
		return errors.New("sqlite database not configured")
	}
	return s.db.PingContext(ctx)
}

func toNanos(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromNanos(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
