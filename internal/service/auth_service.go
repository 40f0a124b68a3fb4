package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/session"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 30
	maxNameLength     = 30
)

// AuthService coordinates registration and login flows.
type AuthService struct {
	accounts   repository.AccountRepository
	sessions   session.Store
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	AccountRepo repository.AccountRepository
	Sessions    session.Store
}

// RegisterInput describes a self-registration.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// ProfileInput describes an edit of the caller's own account. An empty
// Password keeps the current one.
type ProfileInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// accountFields is the normalized form shared by registration and profile edits.
type accountFields struct {
	firstName string
	lastName  string
	email     string
}

func validateAccountFields(firstName, lastName, email, password string, passwordRequired bool) (accountFields, error) {
	fields := accountFields{
		firstName: strings.TrimSpace(firstName),
		lastName:  strings.TrimSpace(lastName),
		email:     strings.ToLower(strings.TrimSpace(email)),
	}
	if err := validateName(fields.firstName, "first_name"); err != nil {
		return fields, err
	}
	if err := validateName(fields.lastName, "last_name"); err != nil {
		return fields, err
	}
	if !validEmail(fields.email) {
		return fields, apperrors.NewValidationError("email is invalid", map[string]any{"field": "email"})
	}
	if password == "" && !passwordRequired {
		return fields, nil
	}
	return fields, validatePassword(password)
}

func validateName(name, field string) error {
	switch {
	case name == "":
		return apperrors.NewValidationError(strings.ReplaceAll(field, "_", " ")+" is required", map[string]any{"field": field})
	case utf8.RuneCountInString(name) > maxNameLength:
		return apperrors.NewValidationError(strings.ReplaceAll(field, "_", " ")+" is too long", map[string]any{
			"field":      field,
			"max_length": maxNameLength,
		})
	}
	return nil
}

// validatePassword accepts 8 to 30 ASCII letters and digits with at least
// one of each.
func validatePassword(password string) error {
	if len(password) < minPasswordLength || len(password) > maxPasswordLength {
		return apperrors.NewValidationError("password length is out of range", map[string]any{
			"field":      "password",
			"min_length": minPasswordLength,
			"max_length": maxPasswordLength,
		})
	}
	var letter, digit bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			letter = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			return apperrors.NewValidationError("password may contain only letters and digits", map[string]any{"field": "password"})
		}
	}
	if !letter || !digit {
		return apperrors.NewValidationError("password needs at least one letter and one digit", map[string]any{"field": "password"})
	}
	return nil
}

// LoginResult is an issued access token and the account it belongs to.
type LoginResult struct {
	Account   *domain.Account
	Token     string
	ExpiresAt time.Time
	SessionID string
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		accounts:   deps.AccountRepo,
		sessions:   deps.Sessions,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL()),
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// Register creates an account with the user role.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.Account, error) {
	fields, err := validateAccountFields(input.FirstName, input.LastName, input.Email, input.Password, true)
	if err != nil {
		return nil, err
	}

	if _, err := s.accounts.GetByEmail(ctx, fields.email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"field": "email"})
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	account := &domain.Account{
		FirstName:    fields.firstName,
		LastName:     fields.lastName,
		Email:        fields.email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"field": "email"})
		}
		return nil, apperrors.MapError(err)
	}
	return account, nil
}

// UpdateProfile edits the caller's names, email and optionally password.
// The email must stay unique among other accounts.
func (s *AuthService) UpdateProfile(ctx context.Context, caller domain.Account, input ProfileInput) (*domain.Account, error) {
	fields, err := validateAccountFields(input.FirstName, input.LastName, input.Email, input.Password, false)
	if err != nil {
		return nil, err
	}

	account, err := s.accounts.GetByID(ctx, caller.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if owner, err := s.accounts.GetByEmail(ctx, fields.email); err == nil && owner.ID != account.ID {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"field": "email"})
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	account.FirstName = fields.firstName
	account.LastName = fields.lastName
	account.Email = fields.email
	if input.Password != "" {
		hash, err := auth.HashPassword(input.Password, s.bcryptCost)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		account.PasswordHash = hash
	}
	if err := s.accounts.UpdateProfile(ctx, account); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"field": "email"})
		}
		return nil, apperrors.MapError(err)
	}
	return account, nil
}

// Login authenticates by email and password and opens a new session.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	account, err := s.accounts.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	sessionID, err := s.sessions.Create(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	token, exp, err := s.tokenMgr.GenerateToken(account.ID, account.Role, sessionID)
	if err != nil {
		_ = s.sessions.Destroy(ctx, sessionID)
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{Account: account, Token: token, ExpiresAt: exp, SessionID: sessionID}, nil
}

// Logout destroys the session; its unread watermarks go with it.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Destroy(ctx, sessionID); err != nil {
		return apperrors.MapError(err)
	}
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
