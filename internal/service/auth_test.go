package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/code-compass/internal/apperror"
	"github.com/sakif/code-compass/internal/auth"
	"github.com/sakif/code-compass/internal/model"
)

// newTestAuthService returns an AuthService wired with fake dependencies.
// bcrypt runs at MinCost so the suite stays fast.
func newTestAuthService(t *testing.T) (*AuthService, *fakeUserRepo, *auth.TokenService) {
	t.Helper()
	repo := newFakeUserRepo()
	tokens, err := auth.NewTokenService("test-secret-at-least-16-bytes", time.Hour)
	require.NoError(t, err)
	svc := NewAuthService(repo, tokens, auth.NewPasswordServiceForTest(4), newValidator(), testLogger())
	return svc, repo, tokens
}

func register(t *testing.T, svc *AuthService, email, password string) *AuthResult {
	t.Helper()
	res, err := svc.Register(context.Background(), RegisterInput{Name: "Ada", Email: email, Password: password})
	require.NoError(t, err)
	return res
}

// ===== REGISTER =====

func TestRegister_HashesAndIssuesToken(t *testing.T) {
	svc, repo, tokens := newTestAuthService(t)

	res := register(t, svc, "Ada@Example.com", "secret123")

	assert.Equal(t, "ada@example.com", res.User.Email)
	assert.Equal(t, model.ModeBeginner, res.User.Mode)
	assert.Equal(t, model.RoleUser, res.User.Role)
	assert.Equal(t, model.DefaultPreferences(), res.User.Preferences)

	stored, err := repo.GetByID(context.Background(), res.User.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", stored.PasswordHash)
	assert.NotEmpty(t, stored.PasswordHash)

	id, err := tokens.Validate(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, id.UserID)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	register(t, svc, "ada@example.com", "secret123")

	_, err := svc.Register(context.Background(), RegisterInput{Name: "Other", Email: "ADA@example.com", Password: "secret123"})

	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.Equal(t, "email", appErr.Field)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name string
		in   RegisterInput
	}{
		{"short password", RegisterInput{Name: "A", Email: "a@example.com", Password: "12345"}},
		{"bad email", RegisterInput{Name: "A", Email: "not-an-email", Password: "secret123"}},
		{"missing name", RegisterInput{Email: "a@example.com", Password: "secret123"}},
		{"unknown mode", RegisterInput{Name: "A", Email: "a@example.com", Password: "secret123", Mode: "expert"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestAuthService(t)
			_, err := svc.Register(context.Background(), tt.in)
			assert.ErrorIs(t, err, apperror.ErrValidation)
		})
	}
}

// ===== LOGIN =====

func TestLogin(t *testing.T) {
	svc, repo, _ := newTestAuthService(t)
	registered := register(t, svc, "ada@example.com", "secret123")

	res, err := svc.Login(context.Background(), LoginInput{Email: "ADA@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, res.User.ID)
	assert.NotEmpty(t, res.Token)

	stored, _ := repo.GetByID(context.Background(), res.User.ID)
	assert.NotNil(t, stored.LastLoginAt)
}

func TestLogin_BadCredentials(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	register(t, svc, "ada@example.com", "secret123")

	for _, in := range []LoginInput{
		{Email: "ada@example.com", Password: "wrong-password"},
		{Email: "nobody@example.com", Password: "secret123"},
	} {
		_, err := svc.Login(context.Background(), in)
		assert.ErrorIs(t, err, apperror.ErrUnauthorized)
	}
}

func TestLogin_InactiveAccount(t *testing.T) {
	svc, repo, _ := newTestAuthService(t)
	res := register(t, svc, "ada@example.com", "secret123")
	repo.users[res.User.ID].IsActive = false

	_, err := svc.Login(context.Background(), LoginInput{Email: "ada@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}

func TestLogin_StoreFailure(t *testing.T) {
	svc, repo, _ := newTestAuthService(t)
	repo.getErr = apperror.Unavailable("sqlite: getting user", errors.New("closed"))

	_, err := svc.Login(context.Background(), LoginInput{Email: "ada@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, apperror.ErrUnavailable)
}

// ===== GITHUB =====

func TestLoginGitHub_CreatesThenReuses(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	gh := &auth.GitHubUser{ID: 42, Login: "octocat", Email: "octo@example.com"}

	first, err := svc.LoginGitHub(context.Background(), gh)
	require.NoError(t, err)
	assert.Equal(t, int64(42), first.User.GitHubID)
	assert.Equal(t, "octocat", first.User.Name)

	second, err := svc.LoginGitHub(context.Background(), gh)
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, second.User.ID)
}

func TestLoginGitHub_LinksExistingEmail(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	registered := register(t, svc, "octo@example.com", "secret123")

	res, err := svc.LoginGitHub(context.Background(), &auth.GitHubUser{ID: 7, Login: "octocat", Email: "octo@example.com"})
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, res.User.ID)
	assert.Equal(t, int64(7), res.User.GitHubID)
}

func TestLoginGitHub_NilUser(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	_, err := svc.LoginGitHub(context.Background(), nil)
	assert.Error(t, err)
}

// ===== ME =====

func TestMe(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	res := register(t, svc, "ada@example.com", "secret123")

	u, err := svc.Me(context.Background(), res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, res.User.Email, u.Email)

	_, err = svc.Me(context.Background(), "deleted-user")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)

	_, err = svc.Me(context.Background(), "")
	assert.ErrorIs(t, err, apperror.ErrUnauthorized)
}
