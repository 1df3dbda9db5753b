package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/sakif/code-compass/internal/apperror"
	"github.com/sakif/code-compass/internal/filetree"
	"github.com/sakif/code-compass/internal/model"
	"github.com/sakif/code-compass/internal/query"
	"github.com/sakif/code-compass/internal/repository"
	"github.com/sakif/code-compass/internal/slug"
	"github.com/sakif/code-compass/internal/validate"
)

const (
	DefaultProjectListLimit = 10
	FeaturedProjectLimit    = 6
)

// ProjectQuery is what GET /api/projects accepts. tech and featured are
// read from Params.Extra.
var ProjectQuery = query.Spec{
	DefaultLimit: DefaultProjectListLimit,
	Difficulties: enumStrings(model.Difficulties),
}

// ProjectInput is the authoring payload for projects. An empty ID on
// create is derived from the name.
type ProjectInput struct {
	ID                 string               `json:"id"                 validate:"omitempty,max=100"`
	Name               string               `json:"name"               validate:"required,max=100"`
	Description        string               `json:"description"        validate:"required,max=1000"`
	Tech               []string             `json:"tech"               validate:"dive,required"`
	Color              string               `json:"color"              validate:"omitempty,max=50"`
	Icon               string               `json:"icon"               validate:"omitempty,max=50"`
	Difficulty         model.Difficulty     `json:"difficulty"         validate:"required,oneof=beginner intermediate advanced"`
	EstimatedHours     int                  `json:"estimatedHours"     validate:"gte=0"`
	FileStructure      *model.FileNode      `json:"fileStructure"`
	CodeFlow           []model.CodeFlowStep `json:"codeFlow"`
	Dependencies       []string             `json:"dependencies"`
	SetupInstructions  []string             `json:"setupInstructions"`
	Featured           bool                 `json:"featured"`
	Tags               []string             `json:"tags"`
	Prerequisites      []string             `json:"prerequisites"`
	LearningObjectives []string             `json:"learningObjectives"`
}

// ProjectService serves the project showcase.
type ProjectService struct {
	projects  repository.ProjectRepository
	validator *validate.Validator
	logger    *slog.Logger
}

func NewProjectService(projects repository.ProjectRepository, v *validate.Validator, logger *slog.Logger) *ProjectService {
	return &ProjectService{projects: projects, validator: v, logger: logger}
}

// List returns a page of active projects. Params.Extra may carry "tech"
// (comma separated, any of) and "featured" (true or false).
func (s *ProjectService) List(ctx context.Context, p query.Params) ([]model.ProjectSummary, query.Pagination, error) {
	filter := repository.ProjectFilter{
		Difficulty: model.Difficulty(p.Difficulty),
		Search:     p.Search,
	}
	if raw := p.Extra.Get("tech"); raw != "" {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				filter.Tech = append(filter.Tech, t)
			}
		}
	}
	if raw := p.Extra.Get("featured"); raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, query.Pagination{}, apperror.ValidationFailed("featured", "featured must be true or false")
		}
		filter.Featured = &b
	}

	items, total, err := s.projects.List(ctx, filter, repository.ListOptions{Limit: p.Limit, Offset: p.Offset()})
	if err != nil {
		return nil, query.Pagination{}, fmt.Errorf("service/project: listing projects: %w", err)
	}
	return items, query.NewPagination(p, total), nil
}

// Get returns an active project.
func (s *ProjectService) Get(ctx context.Context, id string) (*model.Project, error) {
	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/project: getting project %s: %w", id, err)
	}
	if !p.IsActive {
		return nil, apperror.NotFound("project", id)
	}
	return p, nil
}

func (s *ProjectService) Featured(ctx context.Context) ([]model.ProjectSummary, error) {
	items, err := s.projects.Featured(ctx, FeaturedProjectLimit)
	if err != nil {
		return nil, fmt.Errorf("service/project: listing featured projects: %w", err)
	}
	return items, nil
}

func (s *ProjectService) Stats(ctx context.Context, id string) (*model.ProjectStats, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return &model.ProjectStats{
		TotalFiles:     filetree.CountFiles(p.FileStructure),
		Dependencies:   len(p.Dependencies),
		SetupSteps:     len(p.SetupInstructions),
		CodeFlowSteps:  len(p.CodeFlow),
		EstimatedHours: p.EstimatedHours,
		Difficulty:     p.Difficulty,
	}, nil
}

func (s *ProjectService) Create(ctx context.Context, in ProjectInput) (*model.Project, error) {
	if err := s.checkInput(in); err != nil {
		return nil, err
	}
	id := slug.Make(in.ID)
	if id == "" {
		id = slug.Make(in.Name)
	}
	if id == "" {
		return nil, apperror.ValidationFailed("id", "id must contain at least one letter or digit")
	}

	p := &model.Project{ID: id, IsActive: true}
	applyProjectInput(p, in)
	if err := s.projects.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("service/project: creating project %s: %w", id, err)
	}
	s.logger.Info("project created", slog.String("id", p.ID), slog.Int("totalFiles", p.TotalFiles))
	return p, nil
}

// Update rewrites an existing project, active or not. The ID is fixed.
func (s *ProjectService) Update(ctx context.Context, id string, in ProjectInput) (*model.Project, error) {
	if err := s.checkInput(in); err != nil {
		return nil, err
	}
	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/project: loading project %s: %w", id, err)
	}
	applyProjectInput(p, in)
	if err := s.projects.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("service/project: updating project %s: %w", id, err)
	}
	s.logger.Info("project updated", slog.String("id", p.ID))
	return p, nil
}

// Deactivate is the project soft delete.
func (s *ProjectService) Deactivate(ctx context.Context, id string) error {
	if err := s.projects.SetActive(ctx, id, false); err != nil {
		return fmt.Errorf("service/project: deactivating project %s: %w", id, err)
	}
	s.logger.Info("project deactivated", slog.String("id", id))
	return nil
}

func (s *ProjectService) checkInput(in ProjectInput) error {
	if err := s.validator.Struct(in); err != nil {
		return err
	}
	var details []apperror.FieldError
	if err := filetree.Validate(in.FileStructure); err != nil {
		details = append(details, apperror.FieldError{Field: "fileStructure", Message: err.Error()})
	}
	details = append(details, checkCodeFlow(in.CodeFlow)...)
	if len(details) > 0 {
		return apperror.Validation(details)
	}
	return nil
}

func applyProjectInput(p *model.Project, in ProjectInput) {
	p.Name = in.Name
	p.Description = in.Description
	p.Tech = dedupe(in.Tech)
	p.Color = in.Color
	p.Icon = in.Icon
	p.Difficulty = in.Difficulty
	p.EstimatedHours = in.EstimatedHours
	p.FileStructure = in.FileStructure
	p.CodeFlow = orEmpty(in.CodeFlow)
	p.Dependencies = orEmpty(in.Dependencies)
	p.SetupInstructions = orEmpty(in.SetupInstructions)
	p.Featured = in.Featured
	p.Tags = dedupe(in.Tags)
	p.Prerequisites = orEmpty(in.Prerequisites)
	p.LearningObjectives = orEmpty(in.LearningObjectives)
}

// orEmpty keeps JSON output as [] rather than null.
func orEmpty[S ~[]E, E any](s S) S {
	if s == nil {
		return S{}
	}
	return s
}
