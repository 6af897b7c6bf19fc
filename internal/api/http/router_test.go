package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/helpdesk-labs/ticket-service/internal/api/http/handlers"
	"github.com/helpdesk-labs/ticket-service/internal/auth"
	"github.com/helpdesk-labs/ticket-service/internal/config"
	"github.com/helpdesk-labs/ticket-service/internal/domain"
	"github.com/helpdesk-labs/ticket-service/internal/events"
	"github.com/helpdesk-labs/ticket-service/internal/observability"
	"github.com/helpdesk-labs/ticket-service/internal/persistence"
	"github.com/helpdesk-labs/ticket-service/internal/repository"
	"github.com/helpdesk-labs/ticket-service/internal/repository/sqlite"
	"github.com/helpdesk-labs/ticket-service/internal/service"
)

type apiFixture struct {
	t       *testing.T
	app     *fiber.App
	store   repository.Store
	tokens  *auth.TokenManager
	metrics *observability.Metrics
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	ctx := context.Background()
	logger := zap.NewNop()

	db, err := persistence.OpenSQLite(ctx, config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "api.db")}, logger)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := persistence.RunSQLiteMigrations(ctx, db, logger); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	store := sqlite.NewStore(db)
	policy := auth.NewEngine()
	tokens := auth.NewTokenManager("api-test-secret", 5)
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()

	audit := service.NewAuditLog(service.AuditDependencies{Store: store, Policy: policy})
	tickets := service.NewTicketService(service.TicketDependencies{
		Store:      store,
		Policy:     policy,
		Assignment: service.NewAssignmentService(service.AssignmentDependencies{Store: store}),
		Audit:      audit,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	comments := service.NewCommentService(service.CommentDependencies{Store: store, Policy: policy, Dispatcher: dispatcher, Logger: logger})
	accounts := service.NewAccountService(service.AccountDependencies{Store: store, Policy: policy, Tokens: tokens, BcryptCost: 4, Logger: logger})

	app := NewApp("ticket-service-test", logger, metrics, 5*time.Second, RouteConfig{
		Health:         handlers.NewHealthHandler("ticket-service-test", "test", store, nil),
		Users:          handlers.NewUsersHandler(accounts),
		Tickets:        handlers.NewTicketsHandler(tickets, audit),
		Comments:       handlers.NewCommentsHandler(comments),
		Metrics:        metrics,
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
	})

	return &apiFixture{t: t, app: app, store: store, tokens: tokens, metrics: metrics}
}

// seed stores an account and returns a bearer token for it.
func (f *apiFixture) seed(name string, role domain.Role) (int64, string) {
	f.t.Helper()
	account := &domain.Account{
		Name:         name,
		Email:        name + "@example.com",
		PasswordHash: "unused",
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := f.store.Accounts().Create(context.Background(), account); err != nil {
		f.t.Fatalf("seed %s: %v", name, err)
	}
	token, _, err := f.tokens.GenerateToken(account)
	if err != nil {
		f.t.Fatalf("token: %v", err)
	}
	return account.ID, token
}

type apiResponse struct {
	status int
	body   map[string]any
}

func (r apiResponse) errorCode() string {
	errObj, _ := r.body["error"].(map[string]any)
	code, _ := errObj["code"].(string)
	return code
}

func (r apiResponse) data() map[string]any {
	data, _ := r.body["data"].(map[string]any)
	return data
}

func (r apiResponse) list() []any {
	items, _ := r.body["data"].([]any)
	return items
}

func (f *apiFixture) do(method, path, token string, body any) apiResponse {
	f.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			f.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.app.Test(req, -1)
	if err != nil {
		f.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := apiResponse{status: resp.StatusCode, body: map[string]any{}}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		f.t.Fatalf("read body: %v", err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out.body); err != nil {
			f.t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	}
	return out
}

func expectStatus(t *testing.T, resp apiResponse, status int, code string) {
	t.Helper()
	if resp.status != status {
		t.Fatalf("status = %d, want %d (body %v)", resp.status, status, resp.body)
	}
	if code != "" && resp.errorCode() != code {
		t.Fatalf("error code = %q, want %q", resp.errorCode(), code)
	}
}

func TestTicketLifecycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	_, userToken := f.seed("alice", domain.RoleUser)
	supportID, supportToken := f.seed("sam", domain.RoleSupport)
	_, managerToken := f.seed("mia", domain.RoleManager)

	resp := f.do("POST", "/tickets", userToken, map[string]any{
		"title":       "Printer broken",
		"description": "The printer on floor 3 is broken",
	})
	expectStatus(t, resp, fiber.StatusCreated, "")
	ticketID := int64(resp.data()["id"].(float64))
	ticketPath := fmt.Sprintf("/tickets/%d", ticketID)

	resp = f.do("PATCH", ticketPath+"/status", supportToken, map[string]any{"status": "RESOLVED"})
	expectStatus(t, resp, fiber.StatusConflict, "INVALID_TRANSITION")
	details := resp.body["error"].(map[string]any)["details"].(map[string]any)
	if details["from"] != "OPEN" || details["to"] != "RESOLVED" {
		t.Fatalf("details = %v", details)
	}

	resp = f.do("PATCH", ticketPath+"/status", supportToken, map[string]any{"status": "in_progress"})
	expectStatus(t, resp, fiber.StatusOK, "")
	if resp.data()["status"] != "IN_PROGRESS" {
		t.Fatalf("status response = %v", resp.body)
	}

	resp = f.do("PATCH", ticketPath+"/status", userToken, map[string]any{"status": "RESOLVED"})
	expectStatus(t, resp, fiber.StatusForbidden, "FORBIDDEN")

	resp = f.do("PATCH", ticketPath+"/assign", managerToken, map[string]any{"userId": supportID})
	expectStatus(t, resp, fiber.StatusOK, "")

	resp = f.do("GET", "/tickets", supportToken, nil)
	expectStatus(t, resp, fiber.StatusOK, "")
	if items := resp.list(); len(items) != 1 {
		t.Fatalf("support sees %d tickets", len(items))
	}

	resp = f.do("GET", ticketPath+"/history", userToken, nil)
	expectStatus(t, resp, fiber.StatusOK, "")
	if items := resp.list(); len(items) != 1 {
		t.Fatalf("history has %d entries", len(items))
	}

	resp = f.do("DELETE", ticketPath, supportToken, nil)
	expectStatus(t, resp, fiber.StatusForbidden, "FORBIDDEN")
	resp = f.do("DELETE", ticketPath, managerToken, nil)
	expectStatus(t, resp, fiber.StatusOK, "")
	resp = f.do("DELETE", ticketPath, managerToken, nil)
	expectStatus(t, resp, fiber.StatusNotFound, "NOT_FOUND")

	snap := f.metrics.Snapshot()
	if snap.Transitions["OPEN->IN_PROGRESS"] != 1 {
		t.Fatalf("transition metrics = %v", snap.Transitions)
	}
}

func TestAuthenticationIsDistinctFromAuthorization(t *testing.T) {
	f := newAPIFixture(t)
	_, supportToken := f.seed("sam", domain.RoleSupport)
	body := map[string]any{"title": "Printer broken", "description": "The printer on floor 3 is broken"}

	expectStatus(t, f.do("POST", "/tickets", "", body), fiber.StatusUnauthorized, "UNAUTHENTICATED")
	expectStatus(t, f.do("POST", "/tickets", "not-a-jwt", body), fiber.StatusUnauthorized, "UNAUTHENTICATED")
	expectStatus(t, f.do("POST", "/tickets", supportToken, body), fiber.StatusForbidden, "FORBIDDEN")
	expectStatus(t, f.do("GET", "/tickets", "", nil), fiber.StatusUnauthorized, "UNAUTHENTICATED")
}

func TestAssignRejectsRegularUser(t *testing.T) {
	f := newAPIFixture(t)
	userID, userToken := f.seed("alice", domain.RoleUser)
	_, managerToken := f.seed("mia", domain.RoleManager)

	resp := f.do("POST", "/tickets", userToken, map[string]any{
		"title":       "Printer broken",
		"description": "The printer on floor 3 is broken",
		"priority":    "low",
	})
	expectStatus(t, resp, fiber.StatusCreated, "")
	ticketID := int64(resp.data()["id"].(float64))

	resp = f.do("PATCH", fmt.Sprintf("/tickets/%d/assign", ticketID), managerToken, map[string]any{"userId": userID})
	expectStatus(t, resp, fiber.StatusBadRequest, "VALIDATION_FAILED")

	resp = f.do("GET", "/tickets", managerToken, nil)
	items := resp.list()
	if len(items) != 1 {
		t.Fatalf("manager sees %d tickets", len(items))
	}
	ticket := items[0].(map[string]any)
	if ticket["assigned_to"] != nil || ticket["priority"] != "LOW" {
		t.Fatalf("ticket = %v", ticket)
	}
}

func TestCommentsOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	_, ownerToken := f.seed("alice", domain.RoleUser)
	_, strangerToken := f.seed("bob", domain.RoleUser)
	_, managerToken := f.seed("mia", domain.RoleManager)

	resp := f.do("POST", "/tickets", ownerToken, map[string]any{
		"title":       "Printer broken",
		"description": "The printer on floor 3 is broken",
	})
	ticketID := int64(resp.data()["id"].(float64))
	commentsPath := fmt.Sprintf("/tickets/%d/comments", ticketID)

	resp = f.do("POST", commentsPath, ownerToken, map[string]any{"comment": "any update?"})
	expectStatus(t, resp, fiber.StatusCreated, "")
	commentID := int64(resp.data()["id"].(float64))
	commentPath := fmt.Sprintf("/comments/%d", commentID)

	expectStatus(t, f.do("POST", commentsPath, strangerToken, map[string]any{"comment": "me too"}), fiber.StatusForbidden, "FORBIDDEN")
	expectStatus(t, f.do("POST", commentsPath, ownerToken, map[string]any{"comment": ""}), fiber.StatusBadRequest, "VALIDATION_FAILED")
	expectStatus(t, f.do("GET", "/tickets/9999/comments", managerToken, nil), fiber.StatusNotFound, "NOT_FOUND")

	expectStatus(t, f.do("PATCH", commentPath, strangerToken, map[string]any{"comment": "hijack"}), fiber.StatusForbidden, "FORBIDDEN")
	resp = f.do("PATCH", commentPath, managerToken, map[string]any{"comment": "moderated"})
	expectStatus(t, resp, fiber.StatusOK, "")

	resp = f.do("GET", commentsPath, ownerToken, nil)
	expectStatus(t, resp, fiber.StatusOK, "")
	items := resp.list()
	if len(items) != 1 || items[0].(map[string]any)["comment"] != "moderated" {
		t.Fatalf("comments = %v", items)
	}

	expectStatus(t, f.do("DELETE", commentPath, strangerToken, nil), fiber.StatusForbidden, "FORBIDDEN")
	expectStatus(t, f.do("DELETE", commentPath, ownerToken, nil), fiber.StatusOK, "")
	expectStatus(t, f.do("DELETE", commentPath, ownerToken, nil), fiber.StatusNotFound, "NOT_FOUND")
}

func TestRegisterLoginAndUserAdministration(t *testing.T) {
	f := newAPIFixture(t)
	_, managerToken := f.seed("mia", domain.RoleManager)

	resp := f.do("POST", "/auth/register", "", map[string]any{"name": "Alice", "email": "alice@example.com", "password": "secret1"})
	expectStatus(t, resp, fiber.StatusCreated, "")
	if resp.data()["role"] != "USER" {
		t.Fatalf("registered role = %v", resp.data()["role"])
	}
	expectStatus(t, f.do("POST", "/auth/register", "", map[string]any{"name": "Alice", "email": "alice@example.com", "password": "secret1"}),
		fiber.StatusBadRequest, "VALIDATION_FAILED")
	expectStatus(t, f.do("POST", "/auth/register", "", map[string]any{"name": "Bob", "email": "bob", "password": "secret1"}),
		fiber.StatusBadRequest, "VALIDATION_FAILED")

	expectStatus(t, f.do("POST", "/auth/login", "", map[string]any{"email": "alice@example.com", "password": "wrong-one"}),
		fiber.StatusUnauthorized, "UNAUTHENTICATED")
	resp = f.do("POST", "/auth/login", "", map[string]any{"email": "alice@example.com", "password": "secret1"})
	expectStatus(t, resp, fiber.StatusOK, "")
	token := resp.data()["auth"].(map[string]any)["token"].(string)

	resp = f.do("POST", "/tickets", token, map[string]any{"title": "Printer broken", "description": "The printer on floor 3 is broken"})
	expectStatus(t, resp, fiber.StatusCreated, "")

	expectStatus(t, f.do("GET", "/users", token, nil), fiber.StatusForbidden, "FORBIDDEN")
	resp = f.do("POST", "/users", managerToken, map[string]any{"name": "Sam", "email": "sam@example.com", "password": "secret1", "role": "SUPPORT"})
	expectStatus(t, resp, fiber.StatusCreated, "")
	resp = f.do("GET", "/users", managerToken, nil)
	expectStatus(t, resp, fiber.StatusOK, "")
	if items := resp.list(); len(items) != 3 {
		t.Fatalf("users = %d", len(items))
	}
	for _, item := range resp.list() {
		if _, leaked := item.(map[string]any)["password_hash"]; leaked {
			t.Fatalf("password hash exposed")
		}
	}
}

func TestRequestParsingAndRouting(t *testing.T) {
	f := newAPIFixture(t)
	_, userToken := f.seed("alice", domain.RoleUser)
	_, managerToken := f.seed("mia", domain.RoleManager)

	resp := f.do("POST", "/tickets", userToken, map[string]any{"title": "Printer broken", "description": "The printer on floor 3 is broken"})
	ticketID := int64(resp.data()["id"].(float64))

	expectStatus(t, f.do("GET", fmt.Sprintf("/tickets/:%d/comments", ticketID), managerToken, nil), fiber.StatusOK, "")
	expectStatus(t, f.do("GET", "/tickets/abc/comments", managerToken, nil), fiber.StatusBadRequest, "VALIDATION_FAILED")
	expectStatus(t, f.do("GET", "/nowhere", "", nil), fiber.StatusNotFound, "NOT_FOUND")

	resp = f.do("GET", "/health/live", "", nil)
	expectStatus(t, resp, fiber.StatusOK, "")
	resp = f.do("GET", "/health/ready", "", nil)
	expectStatus(t, resp, fiber.StatusOK, "")
	deps := resp.body["dependencies"].(map[string]any)
	if deps["storage"] != "ok" || deps["redis"] != "disabled" {
		t.Fatalf("dependencies = %v", deps)
	}
}

func TestAnonymousRequestsFailAuthenticationBeforeParsing(t *testing.T) {
	f := newAPIFixture(t)

	cases := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{"bad ticket id", "PATCH", "/tickets/abc/status", map[string]any{"status": "IN_PROGRESS"}},
		{"bad assign id", "PATCH", "/tickets/0/assign", map[string]any{"userId": 1}},
		{"bad history id", "GET", "/tickets/-4/history", nil},
		{"bad comment id", "DELETE", "/comments/x", nil},
		{"bad comments list id", "GET", "/tickets/abc/comments", nil},
		{"malformed body", "POST", "/tickets", "not-an-object"},
		{"malformed user body", "POST", "/users", "not-an-object"},
	}
	for _, tc := range cases {
		resp := f.do(tc.method, tc.path, "", tc.body)
		if resp.status != fiber.StatusUnauthorized || resp.errorCode() != "UNAUTHENTICATED" {
			t.Fatalf("%s: status = %d code = %q", tc.name, resp.status, resp.errorCode())
		}
	}
}
