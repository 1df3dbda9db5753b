package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/code-compass/internal/apperror"
	"github.com/sakif/code-compass/internal/model"
	"github.com/sakif/code-compass/internal/query"
	"github.com/sakif/code-compass/internal/repository"
	"github.com/sakif/code-compass/internal/validate"
)

const (
	DefaultGlossaryListLimit = 50
	MaxGlossarySearchResults = 20
)

var GlossaryQuery = query.Spec{
	DefaultLimit: DefaultGlossaryListLimit,
	Categories:   enumStrings(model.GlossaryCategories),
	Difficulties: enumStrings(model.Difficulties),
}

type GlossaryInput struct {
	Term         string                 `json:"term"         validate:"required,max=100"`
	Definition   string                 `json:"definition"   validate:"required,max=1000"`
	Category     model.GlossaryCategory `json:"category"     validate:"required,oneof=Frontend Backend Database General Testing DevOps"`
	Difficulty   model.Difficulty       `json:"difficulty"   validate:"omitempty,oneof=beginner intermediate advanced"`
	Examples     []string               `json:"examples"`
	RelatedTerms []string               `json:"relatedTerms"`
	Tags         []string               `json:"tags"`
}

type GlossaryService struct {
	terms     repository.GlossaryRepository
	validator *validate.Validator
	logger    *slog.Logger
}

func NewGlossaryService(terms repository.GlossaryRepository, v *validate.Validator, logger *slog.Logger) *GlossaryService {
	return &GlossaryService{terms: terms, validator: v, logger: logger}
}

func (s *GlossaryService) List(ctx context.Context, p query.Params) ([]model.GlossaryTerm, query.Pagination, error) {
	filter := repository.GlossaryFilter{
		Category:   model.GlossaryCategory(p.Category),
		Difficulty: model.Difficulty(p.Difficulty),
		Search:     p.Search,
	}
	items, total, err := s.terms.List(ctx, filter, repository.ListOptions{Limit: p.Limit, Offset: p.Offset()})
	if err != nil {
		return nil, query.Pagination{}, fmt.Errorf("service/glossary: listing terms: %w", err)
	}
	return items, query.NewPagination(p, total), nil
}

// Search is the quick lookup behind the glossary search box. q is required.
func (s *GlossaryService) Search(ctx context.Context, q string) ([]model.GlossaryTerm, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, apperror.BadRequest("MISSING_QUERY", "Search query is required")
	}
	if fe := s.validator.Var("q", q, "max=100"); fe != nil {
		return nil, apperror.Validation([]apperror.FieldError{*fe})
	}
	items, err := s.terms.Search(ctx, q, MaxGlossarySearchResults)
	if err != nil {
		return nil, fmt.Errorf("service/glossary: searching %q: %w", q, err)
	}
	return items, nil
}

func (s *GlossaryService) Categories(ctx context.Context) ([]model.GlossaryCategory, error) {
	cats, err := s.terms.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/glossary: listing categories: %w", err)
	}
	return cats, nil
}

func (s *GlossaryService) Create(ctx context.Context, in GlossaryInput) (*model.GlossaryTerm, error) {
	if err := s.validator.Struct(in); err != nil {
		return nil, err
	}
	term := &model.GlossaryTerm{
		Term:         strings.TrimSpace(in.Term),
		Definition:   in.Definition,
		Category:     in.Category,
		Difficulty:   in.Difficulty,
		Examples:     orEmpty(in.Examples),
		RelatedTerms: orEmpty(in.RelatedTerms),
		Tags:         dedupe(in.Tags),
		IsPublished:  true,
	}
	if term.Difficulty == "" {
		term.Difficulty = model.DifficultyBeginner
	}
	if err := s.terms.Create(ctx, term); err != nil {
		return nil, fmt.Errorf("service/glossary: creating term %q: %w", term.Term, err)
	}
	s.logger.Info("glossary term created", slog.String("id", term.ID), slog.String("term", term.Term))
	return term, nil
}
