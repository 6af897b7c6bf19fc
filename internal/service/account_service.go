package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/helpdesk-labs/ticket-service/internal/auth"
	"github.com/helpdesk-labs/ticket-service/internal/domain"
	"github.com/helpdesk-labs/ticket-service/internal/repository"
	apperrors "github.com/helpdesk-labs/ticket-service/pkg/util/errorutil"
)

const minPasswordLength = 6

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AccountService registers accounts and issues bearer tokens.
type AccountService struct {
	store      repository.Store
	policy     *auth.Engine
	tokens     *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
	now        Clock
}

// AccountDependencies bundles collaborators for the account service.
type AccountDependencies struct {
	Store      repository.Store
	Policy     *auth.Engine
	Tokens     *auth.TokenManager
	BcryptCost int
	Logger     *zap.Logger
	Clock      Clock
}

// AccountInput carries registration data.
type AccountInput struct {
	Name     string
	Email    string
	Password string
	// Role is only honoured by CreateUser.
	Role string
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Account   *domain.Account
	Token     string
	ExpiresAt time.Time
}

// NewAccountService builds the service.
func NewAccountService(deps AccountDependencies) *AccountService {
	return &AccountService{
		store:      deps.Store,
		policy:     deps.Policy,
		tokens:     deps.Tokens,
		bcryptCost: deps.BcryptCost,
		logger:     loggerOrNop(deps.Logger),
		now:        clockOrDefault(deps.Clock),
	}
}

// Register creates a USER account.
func (s *AccountService) Register(ctx context.Context, input AccountInput) (*domain.Account, error) {
	return s.create(ctx, input, domain.RoleUser)
}

// CreateUser creates an account with any known role. MANAGER only.
func (s *AccountService) CreateUser(ctx context.Context, actor *domain.Actor, input AccountInput) (*domain.Account, error) {
	if err := s.policy.Authorize(actor, auth.OpManageUsers, auth.ResourceFacts{}); err != nil {
		return nil, err
	}
	role, ok := domain.ParseRole(input.Role)
	if !ok {
		return nil, apperrors.NewValidationError("Invalid role", map[string]any{
			"field":   "role",
			"allowed": []domain.Role{domain.RoleUser, domain.RoleSupport, domain.RoleManager},
		})
	}
	return s.create(ctx, input, role)
}

// ListUsers returns every account. MANAGER only.
func (s *AccountService) ListUsers(ctx context.Context, actor *domain.Actor) ([]domain.Account, error) {
	if err := s.policy.Authorize(actor, auth.OpManageUsers, auth.ResourceFacts{}); err != nil {
		return nil, err
	}
	accounts, err := s.store.Accounts().List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return accounts, nil
}

// Login verifies credentials and issues a token carrying the account id and role.
func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if err := validateCredentials(email, password); err != nil {
		return nil, err
	}

	account, err := s.store.Accounts().GetByEmail(ctx, email)
	if err != nil {
		if apperrors.IsNoRows(err) {
			return nil, apperrors.NewUnauthenticated("Invalid credentials")
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthenticated("Invalid credentials")
	}

	token, exp, err := s.tokens.GenerateToken(account)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{Account: account, Token: token, ExpiresAt: exp}, nil
}

func (s *AccountService) create(ctx context.Context, input AccountInput, role domain.Role) (*domain.Account, error) {
	name := strings.TrimSpace(input.Name)
	email := normalizeEmail(input.Email)
	if err := validateCredentials(email, input.Password); err != nil {
		return nil, err
	}
	if name == "" {
		return nil, apperrors.NewValidationError("Name is required", map[string]any{"field": "name"})
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	account := &domain.Account{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Accounts().Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, apperrors.NewValidationError("email already exists", map[string]any{"field": "email"})
		}
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("account created", zap.Int64("account_id", account.ID), zap.String("role", string(role)))
	return account, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateCredentials(email, password string) error {
	if !emailPattern.MatchString(email) {
		return apperrors.NewValidationError("Invalid email format", map[string]any{"field": "email"})
	}
	if len(password) < minPasswordLength {
		return apperrors.NewValidationError("Password must be at least 6 characters long", map[string]any{"field": "password"})
	}
	return nil
}
