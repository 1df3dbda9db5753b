package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/code-compass/internal/model"
	"github.com/sakif/code-compass/internal/repository"
	"github.com/sakif/code-compass/internal/validate"
)

// ProfileInput is a partial update; nil fields are left unchanged.
type ProfileInput struct {
	Name *string     `json:"name" validate:"omitempty,min=1,max=100"`
	Mode *model.Mode `json:"mode" validate:"omitempty,oneof=beginner intermediate"`
}

// PreferencesInput is a partial update; nil fields are left unchanged.
type PreferencesInput struct {
	Theme           *model.Theme `json:"theme"           validate:"omitempty,oneof=light dark"`
	Notifications   *bool        `json:"notifications"`
	Language        *string      `json:"language"        validate:"omitempty,min=2,max=10"`
	SelectedProject *string      `json:"selectedProject" validate:"omitempty,max=100"`
}

// UserService manages the signed-in user's own profile.
type UserService struct {
	users     repository.UserRepository
	validator *validate.Validator
	logger    *slog.Logger
}

func NewUserService(users repository.UserRepository, v *validate.Validator, logger *slog.Logger) *UserService {
	return &UserService{users: users, validator: v, logger: logger}
}

func (s *UserService) Profile(ctx context.Context, userID string) (*model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/user: getting user %s: %w", userID, err)
	}
	return u, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*model.User, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	return s.mutate(ctx, userID, func(u *model.User) {
		if in.Name != nil {
			u.Name = strings.TrimSpace(*in.Name)
		}
		if in.Mode != nil {
			u.Mode = *in.Mode
		}
	})
}

func (s *UserService) UpdatePreferences(ctx context.Context, userID string, in PreferencesInput) (*model.User, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	return s.mutate(ctx, userID, func(u *model.User) {
		if in.Theme != nil {
			u.Preferences.Theme = *in.Theme
		}
		if in.Notifications != nil {
			u.Preferences.Notifications = *in.Notifications
		}
		if in.Language != nil {
			u.Preferences.Language = *in.Language
		}
		if in.SelectedProject != nil {
			u.Preferences.SelectedProject = *in.SelectedProject
		}
	})
}

func (s *UserService) mutate(ctx context.Context, userID string, apply func(*model.User)) (*model.User, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/user: getting user %s: %w", userID, err)
	}
	apply(u)
	if err := s.users.UpdateProfile(ctx, u); err != nil {
		return nil, fmt.Errorf("service/user: updating user %s: %w", userID, err)
	}
	s.logger.Info("profile updated", slog.String("userID", userID))
	return u, nil
}
