package auth

import (
	"testing"

	"github.com/helpdesk-labs/ticket-service/internal/domain"
)

func TestTokenRoundTripCarriesActor(t *testing.T) {
	tm := NewTokenManager("test-secret", 5)
	token, exp, err := tm.GenerateToken(&domain.Account{ID: 42, Email: "a@b.co", Role: domain.RoleSupport})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if exp.IsZero() {
		t.Fatalf("expected expiry")
	}
	actor, err := tm.ParseToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if actor.ID != 42 || actor.Role != domain.RoleSupport {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a", 5)
	verifier := NewTokenManager("secret-b", 5)
	token, _, err := issuer.GenerateToken(&domain.Account{ID: 1, Role: domain.RoleManager})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := verifier.ParseToken(token); err == nil {
		t.Fatalf("expected signature failure")
	}
	if _, err := verifier.ParseToken("not-a-jwt"); err == nil {
		t.Fatalf("expected parse failure")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!", 4)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := ComparePassword(hash, "s3cret!"); err != nil {
		t.Fatalf("compare: %v", err)
	}
	if err := ComparePassword(hash, "wrong"); err == nil {
		t.Fatalf("expected mismatch")
	}
}
