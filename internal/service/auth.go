package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/code-compass/internal/apperror"
	"github.com/sakif/code-compass/internal/auth"
	"github.com/sakif/code-compass/internal/model"
	"github.com/sakif/code-compass/internal/repository"
	"github.com/sakif/code-compass/internal/validate"
)

// errBadCredentials is deliberately the same for an unknown email and a
// wrong password.
const errBadCredentials = "Invalid email or password"

// RegisterInput is the body of POST /api/auth/register.
type RegisterInput struct {
	Name     string     `json:"name"     validate:"required,max=100"`
	Email    string     `json:"email"    validate:"required,email,max=254"`
	Password string     `json:"password" validate:"required,min=6,max=72"`
	Mode     model.Mode `json:"mode"     validate:"omitempty,oneof=beginner intermediate"`
}

// LoginInput is the body of POST /api/auth/login.
type LoginInput struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResult bundles the user record and the issued JWT so the handler
// can respond in one step.
type AuthResult struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// AuthService handles registration, login and token issuance.
//
//	AuthHandler (HTTP) → AuthService → UserRepository (DB)
//	                   ↘ TokenService (JWT), PasswordService (bcrypt)
type AuthService struct {
	users     repository.UserRepository
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	validator *validate.Validator
	logger    *slog.Logger
	now       func() time.Time
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	v *validate.Validator,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		tokens:    tokens,
		passwords: passwords,
		validator: v,
		logger:    logger,
		now:       time.Now,
	}
}

// Register creates an email/password account and signs it in. The
// password is hashed here, before the repository ever sees the user.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: hashing password: %w", err)
	}

	mode := in.Mode
	if mode == "" {
		mode = model.ModeBeginner
	}
	now := s.now().UTC()
	user := &model.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		PasswordHash: hash,
		Mode:         mode,
		Role:         model.RoleUser,
		Preferences:  model.DefaultPreferences(),
		Progress:     []model.UserProgress{},
		IsActive:     true,
		LastLoginAt:  &now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered", slog.String("userID", user.ID))
	return s.issue(user)
}

// Login checks email and password. Unknown email, wrong password and a
// deactivated account all come back as Unauthorized.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.Unauthorized(errBadCredentials)
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}
	if user.PasswordHash == "" {
		// GitHub-only account.
		return nil, apperror.Unauthorized(errBadCredentials)
	}
	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.Unauthorized(errBadCredentials)
		}
		return nil, fmt.Errorf("service/auth: verifying password: %w", err)
	}
	if !user.IsActive {
		return nil, apperror.Unauthorized("Account is deactivated")
	}

	if err := s.touch(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return s.issue(user)
}

// LoginGitHub finds or creates the account for a GitHub profile: first by
// GitHub ID, then by email (linking the GitHub ID to the existing
// account), else a new password-less account.
func (s *AuthService) LoginGitHub(ctx context.Context, gh *auth.GitHubUser) (*AuthResult, error) {
	if gh == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user, err := s.users.GetByGitHubID(ctx, gh.ID)
	switch {
	case err == nil:
	case errors.Is(err, apperror.ErrNotFound):
		user, err = s.linkOrCreate(ctx, gh)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("service/auth: looking up github user %d: %w", gh.ID, err)
	}

	if !user.IsActive {
		return nil, apperror.Unauthorized("Account is deactivated")
	}
	if err := s.touch(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", gh.Login),
	)
	return s.issue(user)
}

func (s *AuthService) linkOrCreate(ctx context.Context, gh *auth.GitHubUser) (*model.User, error) {
	user, err := s.users.GetByEmail(ctx, gh.Email)
	if err == nil {
		if err := s.users.LinkGitHub(ctx, user.ID, gh.ID); err != nil {
			return nil, fmt.Errorf("service/auth: linking github account to %s: %w", user.ID, err)
		}
		user.GitHubID = gh.ID
		return user, nil
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: looking up user by email: %w", err)
	}

	user = &model.User{
		Name:        gh.DisplayName(),
		Email:       gh.Email,
		Mode:        model.ModeBeginner,
		Role:        model.RoleUser,
		Preferences: model.DefaultPreferences(),
		Progress:    []model.UserProgress{},
		GitHubID:    gh.ID,
		IsActive:    true,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating github user %d: %w", gh.ID, err)
	}
	return user, nil
}

// Me returns the user for the given internal ID.
func (s *AuthService) Me(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.Unauthorized("Access denied. No token provided.")
	}
	user, err := s.users.GetByID(ctx, id)
	if errors.Is(err, apperror.ErrNotFound) {
		// A valid token for a deleted account.
		return nil, apperror.Unauthorized("Invalid token")
	}
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}
	return user, nil
}

func (s *AuthService) touch(ctx context.Context, user *model.User) error {
	now := s.now().UTC()
	if err := s.users.TouchLogin(ctx, user.ID, now); err != nil {
		return fmt.Errorf("service/auth: recording login of %s: %w", user.ID, err)
	}
	user.LastLoginAt = &now
	return nil
}

func (s *AuthService) issue(user *model.User) (*AuthResult, error) {
	token, err := s.tokens.Generate(auth.Identity{UserID: user.ID, Role: user.Role})
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}
	return &AuthResult{User: user, Token: token}, nil
}
