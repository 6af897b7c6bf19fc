package service

import (
	"testing"

	"github.com/helpdesk-labs/ticket-service/internal/auth"
	"github.com/helpdesk-labs/ticket-service/internal/domain"
	apperrors "github.com/helpdesk-labs/ticket-service/pkg/util/errorutil"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	account, err := env.accounts.Register(env.ctx, AccountInput{
		Name:     "Alice",
		Email:    " Alice@Example.com ",
		Password: "secret1",
		Role:     "MANAGER",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if account.Role != domain.RoleUser {
		t.Fatalf("self-registration granted role %s", account.Role)
	}
	if account.Email != "alice@example.com" {
		t.Fatalf("email = %q", account.Email)
	}
	if account.PasswordHash == "secret1" {
		t.Fatalf("password stored in plain text")
	}

	result, err := env.accounts.Login(env.ctx, "alice@example.com", "secret1")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	actor, err := auth.NewTokenManager("test-secret", 5).ParseToken(result.Token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if actor.ID != account.ID || actor.Role != domain.RoleUser {
		t.Fatalf("token carries %+v", actor)
	}

	_, err = env.accounts.Login(env.ctx, "alice@example.com", "wrong-password")
	assertCode(t, err, apperrors.CodeUnauthenticated)
	_, err = env.accounts.Login(env.ctx, "nobody@example.com", "secret1")
	assertCode(t, err, apperrors.CodeUnauthenticated)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.accounts.Register(env.ctx, AccountInput{Name: "Alice", Email: "alice@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	cases := []struct {
		name  string
		input AccountInput
	}{
		{"bad email", AccountInput{Name: "Bob", Email: "bob-at-example", Password: "secret1"}},
		{"short password", AccountInput{Name: "Bob", Email: "bob@example.com", Password: "12345"}},
		{"missing name", AccountInput{Email: "bob@example.com", Password: "secret1"}},
		{"duplicate email", AccountInput{Name: "Other", Email: "ALICE@example.com", Password: "secret1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.accounts.Register(env.ctx, tc.input)
			assertCode(t, err, apperrors.CodeValidation)
		})
	}
}

func TestCreateAndListUsersRequireManager(t *testing.T) {
	env := newTestEnv(t)
	alice := env.seedAccount(t, "alice", domain.RoleUser)
	mia := env.seedAccount(t, "mia", domain.RoleManager)
	input := AccountInput{Name: "Sam", Email: "sam@example.com", Password: "secret1", Role: "support"}

	_, err := env.accounts.CreateUser(env.ctx, alice, input)
	assertCode(t, err, apperrors.CodeForbidden)
	_, err = env.accounts.CreateUser(env.ctx, nil, input)
	assertCode(t, err, apperrors.CodeUnauthenticated)
	_, err = env.accounts.CreateUser(env.ctx, mia, AccountInput{Name: "X", Email: "x@example.com", Password: "secret1", Role: "ROOT"})
	assertCode(t, err, apperrors.CodeValidation)

	sam, err := env.accounts.CreateUser(env.ctx, mia, input)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if sam.Role != domain.RoleSupport {
		t.Fatalf("role = %s", sam.Role)
	}

	_, err = env.accounts.ListUsers(env.ctx, alice)
	assertCode(t, err, apperrors.CodeForbidden)
	users, err := env.accounts.ListUsers(env.ctx, mia)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 3 || users[2].ID != sam.ID {
		t.Fatalf("unexpected users %+v", users)
	}

	ticket := env.createTicket(t, alice, "Printer broken")
	if err := env.tickets.Assign(env.ctx, mia, ticket.ID, sam.ID); err != nil {
		t.Fatalf("created support account is not assignable: %v", err)
	}
}
