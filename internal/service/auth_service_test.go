package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util/errorutil"
)

func newAuthService(t *testing.T) (*AuthService, *fakeAccounts) {
	t.Helper()
	accounts := newFakeAccounts()
	sessions, _ := newSessionStore(t)
	cfg := config.Config{Auth: config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 30,
		BcryptCost:            bcrypt.MinCost,
	}}
	return NewAuthService(cfg, AuthDependencies{AccountRepo: accounts, Sessions: sessions}), accounts
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()

	account, err := svc.Register(ctx, RegisterInput{
		FirstName: " Uma ",
		LastName:  "User",
		Email:     "Uma@Example.com",
		Password:  "horse2024",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, account.Role)
	assert.Equal(t, "Uma", account.FirstName)
	assert.Equal(t, "uma@example.com", account.Email)
	assert.NotEqual(t, "horse2024", account.PasswordHash)

	result, err := svc.Login(ctx, "uma@example.com", "horse2024")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, account.ID, result.Account.ID)

	claims, err := svc.TokenManager().ParseToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, account.ID, claims.AccountID)
	assert.Equal(t, domain.RoleUser, claims.Role)
	assert.Equal(t, result.SessionID, claims.SessionID)
}

func TestAuthService_RegisterRejectsDuplicatesAndBadInput(t *testing.T) {
	svc, accounts := newAuthService(t)
	ctx := context.Background()
	accounts.add("Uma", "User", domain.RoleUser)

	_, err := svc.Register(ctx, RegisterInput{FirstName: "U", LastName: "U", Email: "uma.user@example.com", Password: "longenough1"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	cases := []RegisterInput{
		{LastName: "L", Email: "a@example.com", Password: "longenough1"},
		{FirstName: "F", Email: "a@example.com", Password: "longenough1"},
		{FirstName: "F", LastName: "L", Email: "not-an-email", Password: "longenough1"},
		{FirstName: "F", LastName: "L", Email: "a@example.com", Password: "short"},
		{FirstName: strings.Repeat("f", 31), LastName: "L", Email: "a@example.com", Password: "longenough1"},
		{FirstName: "F", LastName: strings.Repeat("l", 31), Email: "a@example.com", Password: "longenough1"},
	}
	for _, input := range cases {
		_, err := svc.Register(ctx, input)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "input %+v", input)
	}
}

func TestAuthService_PasswordPolicy(t *testing.T) {
	cases := map[string]bool{
		"abcdefg1":                        true,
		"ABCDEFGH12345678901234567890XY":  true,
		"1234567a":                        true,
		"abc1":                            false,
		"abcdefgh":                        false,
		"12345678":                        false,
		"abcd 1234":                       false,
		"abcd-1234":                       false,
		"p\u00e4sswort12":                 false,
		"abcdefgh12345678901234567890XYZ": false,
	}
	for password, ok := range cases {
		err := validatePassword(password)
		if ok {
			assert.NoError(t, err, password)
			continue
		}
		assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), password)
	}
}

func TestAuthService_UpdateProfile(t *testing.T) {
	svc, accounts := newAuthService(t)
	ctx := context.Background()
	other := accounts.add("Olga", "Other", domain.RoleUser)
	account, err := svc.Register(ctx, RegisterInput{FirstName: "Uma", LastName: "User", Email: "uma@example.com", Password: "horse2024"})
	require.NoError(t, err)
	originalHash := account.PasswordHash

	updated, err := svc.UpdateProfile(ctx, *account, ProfileInput{FirstName: " Una ", LastName: "Userova", Email: "UMA@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Una", updated.FirstName)
	assert.Equal(t, "Userova", updated.LastName)
	assert.Equal(t, "uma@example.com", updated.Email)
	assert.Equal(t, originalHash, updated.PasswordHash)

	_, err = svc.Login(ctx, "uma@example.com", "horse2024")
	require.NoError(t, err)

	_, err = svc.UpdateProfile(ctx, *account, ProfileInput{FirstName: "Una", LastName: "U", Email: other.Email})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	_, err = svc.UpdateProfile(ctx, *account, ProfileInput{FirstName: "Una", LastName: "U", Email: "uma@example.com", Password: "nodigits"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = svc.UpdateProfile(ctx, *account, ProfileInput{FirstName: strings.Repeat("x", 31), LastName: "U", Email: "uma@example.com"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	updated, err = svc.UpdateProfile(ctx, *account, ProfileInput{FirstName: "Una", LastName: "U", Email: "una@example.com", Password: "battery77"})
	require.NoError(t, err)
	assert.NotEqual(t, originalHash, updated.PasswordHash)

	_, err = svc.Login(ctx, "una@example.com", "horse2024")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
	_, err = svc.Login(ctx, "una@example.com", "battery77")
	require.NoError(t, err)

	stored, err := accounts.GetByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "Olga", stored.FirstName)
}

func TestAuthService_LoginFailures(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterInput{FirstName: "U", LastName: "U", Email: "u@example.com", Password: "longenough1"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "u@example.com", "wrong password")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))

	_, err = svc.Login(ctx, "nobody@example.com", "longenough1")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeUnauthorized))
}

func TestAuthService_LogoutEndsSession(t *testing.T) {
	svc, _ := newAuthService(t)
	ctx := context.Background()
	_, err := svc.Register(ctx, RegisterInput{FirstName: "U", LastName: "U", Email: "u@example.com", Password: "longenough1"})
	require.NoError(t, err)
	result, err := svc.Login(ctx, "u@example.com", "longenough1")
	require.NoError(t, err)

	alive, err := svc.sessions.Exists(ctx, result.SessionID)
	require.NoError(t, err)
	assert.True(t, alive)

	require.NoError(t, svc.Logout(ctx, result.SessionID))

	alive, err = svc.sessions.Exists(ctx, result.SessionID)
	require.NoError(t, err)
	assert.False(t, alive)
}
