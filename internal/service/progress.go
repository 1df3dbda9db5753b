package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/code-compass/internal/apperror"
	"github.com/sakif/code-compass/internal/model"
	"github.com/sakif/code-compass/internal/progress"
	"github.com/sakif/code-compass/internal/repository"
	"github.com/sakif/code-compass/internal/validate"
)

// ProgressNotifier is told about every saved progress record. It must not
// block; delivery is best effort.
type ProgressNotifier interface {
	ProgressUpdated(ctx context.Context, userID string, rec model.UserProgress)
}

// ProgressInput is one completion update from a client, over REST or the
// websocket.
type ProgressInput struct {
	TemplateID     string   `json:"templateId"     validate:"required,max=100"`
	CompletedSteps []string `json:"completedSteps" validate:"max=1000,dive,max=200"`
	TimeSpent      int      `json:"timeSpent"      validate:"gte=0"`
}

// ProgressService tracks which steps of which templates a user has done.
type ProgressService struct {
	users     repository.UserRepository
	templates repository.TemplateRepository
	notifier  ProgressNotifier
	mode      progress.MergeMode
	validator *validate.Validator
	logger    *slog.Logger
	now       func() time.Time
}

// NewProgressService wires the tracker. notifier may be nil.
func NewProgressService(
	users repository.UserRepository,
	templates repository.TemplateRepository,
	notifier ProgressNotifier,
	mode progress.MergeMode,
	v *validate.Validator,
	logger *slog.Logger,
) *ProgressService {
	return &ProgressService{
		users:     users,
		templates: templates,
		notifier:  notifier,
		mode:      mode,
		validator: v,
		logger:    logger,
		now:       time.Now,
	}
}

// Update saves the user's progress on one template and returns the saved
// record. The template must exist and be published.
//
// The template is checked before the read-modify-write starts: the store
// serialises transactions, so no other store call may run inside fn.
func (s *ProgressService) Update(ctx context.Context, userID string, in ProgressInput) (model.UserProgress, error) {
	if err := s.validator.Struct(in); err != nil {
		return model.UserProgress{}, err
	}
	if err := s.requirePublished(ctx, in.TemplateID); err != nil {
		return model.UserProgress{}, err
	}

	update := progress.Update{
		TemplateID:     in.TemplateID,
		CompletedSteps: in.CompletedSteps,
		TimeSpent:      in.TimeSpent,
		At:             s.now().UTC(),
	}
	var saved model.UserProgress
	_, err := s.users.UpdateProgress(ctx, userID, func(records []model.UserProgress) ([]model.UserProgress, error) {
		var next []model.UserProgress
		next, saved = progress.Apply(records, update, s.mode)
		return next, nil
	})
	if err != nil {
		return model.UserProgress{}, fmt.Errorf("service/progress: saving progress of %s on %s: %w", userID, in.TemplateID, err)
	}

	s.logger.Info("progress saved",
		slog.String("userID", userID),
		slog.String("templateID", saved.TemplateID),
		slog.Int("completedSteps", len(saved.CompletedSteps)),
	)
	if s.notifier != nil {
		s.notifier.ProgressUpdated(ctx, userID, saved)
	}
	return saved, nil
}

// Get returns the user's record for templateID, or nil when the user has
// not started it. A templateID that names no template is NotFound.
func (s *ProgressService) Get(ctx context.Context, userID, templateID string) (*model.UserProgress, error) {
	if _, err := s.templates.GetByID(ctx, templateID); err != nil {
		return nil, fmt.Errorf("service/progress: getting template %s: %w", templateID, err)
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/progress: getting user %s: %w", userID, err)
	}
	rec, ok := progress.Find(u.Progress, templateID)
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// List returns every progress record of the user.
func (s *ProgressService) List(ctx context.Context, userID string) ([]model.UserProgress, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("service/progress: getting user %s: %w", userID, err)
	}
	if u.Progress == nil {
		return []model.UserProgress{}, nil
	}
	return u.Progress, nil
}

// Stats summarises the user's progress across templates.
func (s *ProgressService) Stats(ctx context.Context, userID string) (model.UserStats, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.UserStats{}, fmt.Errorf("service/progress: getting user %s: %w", userID, err)
	}
	categories, err := s.templates.Categories(ctx, progress.TemplateIDs(u.Progress))
	if err != nil {
		return model.UserStats{}, fmt.Errorf("service/progress: resolving categories: %w", err)
	}
	return progress.Stats(u.Progress, categories), nil
}

func (s *ProgressService) requirePublished(ctx context.Context, templateID string) error {
	t, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		return fmt.Errorf("service/progress: getting template %s: %w", templateID, err)
	}
	if !t.IsPublished {
		return apperror.NotFound("template", templateID)
	}
	return nil
}
