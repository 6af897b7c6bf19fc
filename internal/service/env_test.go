package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/helpdesk-labs/ticket-service/internal/auth"
	"github.com/helpdesk-labs/ticket-service/internal/config"
	"github.com/helpdesk-labs/ticket-service/internal/domain"
	"github.com/helpdesk-labs/ticket-service/internal/events"
	"github.com/helpdesk-labs/ticket-service/internal/persistence"
	"github.com/helpdesk-labs/ticket-service/internal/repository"
	"github.com/helpdesk-labs/ticket-service/internal/repository/sqlite"
	apperrors "github.com/helpdesk-labs/ticket-service/pkg/util/errorutil"
)

// stepClock returns a strictly increasing time on every call.
type stepClock struct {
	mu  sync.Mutex
	cur time.Time
}

func newStepClock() *stepClock {
	return &stepClock{cur: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

type testEnv struct {
	ctx        context.Context
	store      repository.Store
	policy     *auth.Engine
	clock      *stepClock
	dispatcher events.Dispatcher
	published  *eventLog
	audit      *AuditLog
	tickets    *TicketService
	comments   *CommentService
	accounts   *AccountService
}

type eventLog struct {
	mu     sync.Mutex
	events []events.Event
}

func (l *eventLog) record(_ context.Context, e events.Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *eventLog) types() []events.EventType {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]events.EventType, 0, len(l.events))
	for _, e := range l.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestStore(t *testing.T) repository.Store {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	db, err := persistence.OpenSQLite(ctx, config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "tickets.db")}, logger)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := persistence.RunSQLiteMigrations(ctx, db, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return sqlite.NewStore(db)
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		ctx:        context.Background(),
		store:      newTestStore(t),
		policy:     auth.NewEngine(),
		clock:      newStepClock(),
		dispatcher: events.NewInMemoryDispatcher(),
		published:  &eventLog{},
	}
	events.SubscribeAll(env.dispatcher, env.published.record)
	env.wire(env.store)
	return env
}

// wire builds the services over store, which may wrap env.store.
func (env *testEnv) wire(store repository.Store) {
	env.audit = NewAuditLog(AuditDependencies{Store: store, Policy: env.policy, Clock: env.clock.Now})
	env.tickets = NewTicketService(TicketDependencies{
		Store:      store,
		Policy:     env.policy,
		Assignment: NewAssignmentService(AssignmentDependencies{Store: store}),
		Audit:      env.audit,
		Dispatcher: env.dispatcher,
		Clock:      env.clock.Now,
	})
	env.comments = NewCommentService(CommentDependencies{
		Store:      store,
		Policy:     env.policy,
		Dispatcher: env.dispatcher,
		Clock:      env.clock.Now,
	})
	env.accounts = NewAccountService(AccountDependencies{
		Store:      store,
		Policy:     env.policy,
		Tokens:     auth.NewTokenManager("test-secret", 5),
		BcryptCost: 4,
		Clock:      env.clock.Now,
	})
}

// seedAccount inserts an account directly and returns its actor.
func (env *testEnv) seedAccount(t *testing.T, name string, role domain.Role) *domain.Actor {
	t.Helper()
	account := &domain.Account{
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: "unused",
		Role:         role,
		CreatedAt:    env.clock.Now(),
	}
	if err := env.store.Accounts().Create(env.ctx, account); err != nil {
		t.Fatalf("seed account %s: %v", name, err)
	}
	actor := account.Actor()
	return &actor
}

func (env *testEnv) createTicket(t *testing.T, actor *domain.Actor, title string) *domain.Ticket {
	t.Helper()
	ticket, err := env.tickets.Create(env.ctx, actor, TicketCreateInput{
		Title:       title,
		Description: "A description long enough to pass",
	})
	if err != nil {
		t.Fatalf("create ticket %q: %v", title, err)
	}
	return ticket
}

func (env *testEnv) reload(t *testing.T, ticketID int64) *domain.Ticket {
	t.Helper()
	ticket, err := env.store.Tickets().GetByID(env.ctx, ticketID)
	if err != nil {
		t.Fatalf("reload ticket %d: %v", ticketID, err)
	}
	return ticket
}

func (env *testEnv) trail(t *testing.T, ticketID int64) []domain.StatusLogEntry {
	t.Helper()
	entries, err := env.store.StatusLogs().ListByTicket(env.ctx, ticketID)
	if err != nil {
		t.Fatalf("list status logs: %v", err)
	}
	return entries
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if !apperrors.HasCode(err, code) {
		t.Fatalf("expected %s error, got %v", code, err)
	}
}
