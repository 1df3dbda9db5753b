// Package service contains the business rules of Code Compass.
//
//	Handler (HTTP)  → parses requests, writes responses
//	Service         → validates, enforces rules, orchestrates
//	Repository      → reads and writes the store
//
// Services take repository interfaces, never *sqlite.DB, so tests run
// against in-memory fakes and nothing here knows about SQL or HTTP.
// Errors leaving a service wrap an apperror sentinel; the handler maps the
// sentinel to a status code exactly once.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/sakif/code-compass/internal/apperror"
	"github.com/sakif/code-compass/internal/depgraph"
	"github.com/sakif/code-compass/internal/filetree"
	"github.com/sakif/code-compass/internal/model"
	"github.com/sakif/code-compass/internal/query"
	"github.com/sakif/code-compass/internal/repository"
	"github.com/sakif/code-compass/internal/slug"
	"github.com/sakif/code-compass/internal/validate"
)

const (
	MaxTemplateNameLength        = 100
	MaxTemplateDescriptionLength = 500
	DefaultTemplateListLimit     = 20

	projectionTimeout = 5 * time.Second
)

// TemplateQuery is what GET /api/templates accepts.
var TemplateQuery = query.Spec{
	DefaultLimit: DefaultTemplateListLimit,
	Categories:   enumStrings(model.Categories),
	Difficulties: enumStrings(model.Difficulties),
	Sorts:        []string{repository.SortName, repository.SortNewest, repository.SortPopular, repository.SortRating},
}

// GraphProjector mirrors a template's dependency graph into an external
// graph store. Implementations live in internal/graph.
type GraphProjector interface {
	ProjectTemplate(ctx context.Context, t *model.Template) error
	RemoveTemplate(ctx context.Context, templateID string) error
}

// TemplateInput is the authoring payload for create and update.
type TemplateInput struct {
	Name          string                 `json:"name"          validate:"required,max=100"`
	Slug          string                 `json:"slug"          validate:"omitempty,max=120"`
	Description   string                 `json:"description"   validate:"required,max=500"`
	Category      model.Category         `json:"category"      validate:"required,oneof=frontend backend fullstack mobile testing"`
	Difficulty    model.Difficulty       `json:"difficulty"    validate:"required,oneof=beginner intermediate advanced"`
	Tags          []string               `json:"tags"          validate:"max=20,dive,required,max=30"`
	FileStructure *model.FileNode        `json:"fileStructure" validate:"required"`
	Dependencies  []model.Dependency     `json:"dependencies"`
	CodeFlow      []model.CodeFlowStep   `json:"codeFlow"`
	Metadata      model.TemplateMetadata `json:"metadata"`
	IsPublished   *bool                  `json:"isPublished"`
}

// CatalogService serves the template catalog.
type CatalogService struct {
	templates repository.TemplateRepository
	projector GraphProjector
	validator *validate.Validator
	logger    *slog.Logger
}

// NewCatalogService wires the catalog. projector may be nil when no graph
// store is configured.
func NewCatalogService(templates repository.TemplateRepository, projector GraphProjector, v *validate.Validator, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		templates: templates,
		projector: projector,
		validator: v,
		logger:    logger,
	}
}

// List returns a page of published templates.
func (s *CatalogService) List(ctx context.Context, p query.Params) ([]model.TemplateSummary, query.Pagination, error) {
	filter := repository.TemplateFilter{
		Category:   model.Category(p.Category),
		Difficulty: model.Difficulty(p.Difficulty),
		Tags:       p.Tags,
		Search:     p.Search,
		Sort:       p.Sort,
	}
	items, total, err := s.templates.List(ctx, filter, repository.ListOptions{Limit: p.Limit, Offset: p.Offset()})
	if err != nil {
		return nil, query.Pagination{}, fmt.Errorf("service/catalog: listing templates: %w", err)
	}
	return items, query.NewPagination(p, total), nil
}

// GetByID returns a published template and counts the view. The returned
// stats include this view.
func (s *CatalogService) GetByID(ctx context.Context, id string) (*model.Template, error) {
	t, err := s.templates.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: getting template %s: %w", id, err)
	}
	return s.view(ctx, t, id)
}

// GetBySlug is GetByID keyed by slug.
func (s *CatalogService) GetBySlug(ctx context.Context, sl string) (*model.Template, error) {
	t, err := s.templates.GetBySlug(ctx, sl)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: getting template %s: %w", sl, err)
	}
	return s.view(ctx, t, sl)
}

func (s *CatalogService) view(ctx context.Context, t *model.Template, key string) (*model.Template, error) {
	if !t.IsPublished {
		return nil, apperror.NotFound("template", key)
	}
	if err := s.templates.IncrementViews(ctx, t.ID); err != nil {
		return nil, fmt.Errorf("service/catalog: counting view of %s: %w", t.ID, err)
	}
	t.Stats.Views++
	return t, nil
}

// Published returns a published template without counting a view. Used
// by callers that only need to know the template exists.
func (s *CatalogService) Published(ctx context.Context, id string) (*model.Template, error) {
	t, err := s.templates.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: getting template %s: %w", id, err)
	}
	if !t.IsPublished {
		return nil, apperror.NotFound("template", id)
	}
	return t, nil
}

func (s *CatalogService) CategoryStats(ctx context.Context) ([]model.CategoryStats, error) {
	stats, err := s.templates.CategoryStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: aggregating categories: %w", err)
	}
	return stats, nil
}

// Create validates and stores a new template. The slug comes from the
// explicit slug when given, otherwise from the name, and is never
// regenerated afterwards.
func (s *CatalogService) Create(ctx context.Context, in TemplateInput, createdBy string) (*model.Template, error) {
	if err := s.checkInput(in); err != nil {
		return nil, err
	}

	source := in.Slug
	if source == "" {
		source = in.Name
	}
	sl := slug.Make(source)
	if sl == "" {
		return nil, apperror.ValidationFailed("slug", "name must contain at least one letter or digit")
	}

	t := &model.Template{
		Slug:        sl,
		IsPublished: true,
		CreatedBy:   createdBy,
	}
	applyInput(t, in)

	if err := s.templates.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("service/catalog: creating template %q: %w", t.Name, err)
	}

	s.logger.Info("template created",
		slog.String("id", t.ID),
		slog.String("slug", t.Slug),
		slog.String("createdBy", createdBy),
	)
	s.logDangling(t)
	s.project(ctx, t)
	return t, nil
}

// Update replaces the authored content of a template. The slug is kept.
func (s *CatalogService) Update(ctx context.Context, id string, in TemplateInput) (*model.Template, error) {
	if err := s.checkInput(in); err != nil {
		return nil, err
	}

	t, err := s.templates.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/catalog: loading template %s: %w", id, err)
	}
	applyInput(t, in)

	if err := s.templates.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("service/catalog: updating template %s: %w", id, err)
	}

	s.logger.Info("template updated", slog.String("id", t.ID), slog.String("slug", t.Slug))
	s.logDangling(t)
	s.project(ctx, t)
	return t, nil
}

// Unpublish hides a template from every public read.
func (s *CatalogService) Unpublish(ctx context.Context, id string) error {
	if err := s.templates.SetPublished(ctx, id, false); err != nil {
		return fmt.Errorf("service/catalog: unpublishing template %s: %w", id, err)
	}
	s.logger.Info("template unpublished", slog.String("id", id))

	if s.projector != nil {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), projectionTimeout)
		defer cancel()
		if err := s.projector.RemoveTemplate(pctx, id); err != nil {
			s.logger.Warn("removing template from graph store failed",
				slog.String("id", id),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// Graph returns the dependency view of a published template.
func (s *CatalogService) Graph(ctx context.Context, id string) (*model.TemplateGraph, error) {
	t, err := s.Published(ctx, id)
	if err != nil {
		return nil, err
	}

	g := &model.TemplateGraph{
		TemplateID: t.ID,
		Nodes:      []model.GraphNode{},
		Edges:      t.Dependencies,
	}
	if g.Edges == nil {
		g.Edges = []model.Dependency{}
	}
	for n := range filetree.Files(t.FileStructure) {
		g.Nodes = append(g.Nodes, model.GraphNode{ID: n.ID, Path: n.Path, Name: n.Name, Type: n.Type, Order: n.Order})
	}
	g.BuildOrder, g.Cyclic = depgraph.BuildOrder(t.FileStructure, t.Dependencies)
	g.Dangling = depgraph.New(t.Dependencies).Dangling(filetree.Paths(t.FileStructure))
	return g, nil
}

// checkInput runs the struct tags, then the rules tags cannot express:
// tree shape, dependency types and code-flow ordering.
func (s *CatalogService) checkInput(in TemplateInput) error {
	if err := s.validator.Struct(in); err != nil {
		return err
	}

	var details []apperror.FieldError
	if err := filetree.Validate(in.FileStructure); err != nil {
		details = append(details, apperror.FieldError{Field: "fileStructure", Message: err.Error()})
	}
	for i, d := range in.Dependencies {
		field := "dependencies[" + strconv.Itoa(i) + "]"
		if d.From == "" || d.To == "" {
			details = append(details, apperror.FieldError{Field: field, Message: "from and to are required"})
		}
		if !d.Type.Valid() {
			details = append(details, apperror.FieldError{Field: field + ".type", Message: "must be one of: import, component, api, data"})
		}
	}
	details = append(details, checkCodeFlow(in.CodeFlow)...)

	if len(details) > 0 {
		return apperror.Validation(details)
	}
	return nil
}

// checkCodeFlow rejects missing ids, non-positive or duplicate orders and
// negative time estimates.
func checkCodeFlow(steps []model.CodeFlowStep) []apperror.FieldError {
	var details []apperror.FieldError
	orders := make(map[int]bool, len(steps))
	for i, st := range steps {
		field := "codeFlow[" + strconv.Itoa(i) + "]"
		if st.ID == "" {
			details = append(details, apperror.FieldError{Field: field + ".id", Message: "id is required"})
		}
		if st.Title == "" {
			details = append(details, apperror.FieldError{Field: field + ".title", Message: "title is required"})
		}
		switch {
		case st.Order < 1:
			details = append(details, apperror.FieldError{Field: field + ".order", Message: "must be at least 1"})
		case orders[st.Order]:
			details = append(details, apperror.FieldError{Field: field + ".order", Message: fmt.Sprintf("order %d is used twice", st.Order)})
		}
		orders[st.Order] = true
		if st.EstimatedTime < 0 {
			details = append(details, apperror.FieldError{Field: field + ".estimatedTime", Message: "must be at least 0"})
		}
	}
	return details
}

func applyInput(t *model.Template, in TemplateInput) {
	t.Name = in.Name
	t.Description = in.Description
	t.Category = in.Category
	t.Difficulty = in.Difficulty
	t.Tags = dedupe(in.Tags)
	t.FileStructure = in.FileStructure
	t.Dependencies = in.Dependencies
	t.CodeFlow = slices.Clone(in.CodeFlow)
	slices.SortStableFunc(t.CodeFlow, func(a, b model.CodeFlowStep) int { return a.Order - b.Order })
	t.Metadata = in.Metadata
	if in.IsPublished != nil {
		t.IsPublished = *in.IsPublished
	}
	if t.Dependencies == nil {
		t.Dependencies = []model.Dependency{}
	}
	if t.CodeFlow == nil {
		t.CodeFlow = []model.CodeFlowStep{}
	}
}

func (s *CatalogService) logDangling(t *model.Template) {
	dangling := depgraph.New(t.Dependencies).Dangling(filetree.Paths(t.FileStructure))
	if len(dangling) == 0 {
		return
	}
	s.logger.Warn("template has dependencies outside its file tree",
		slog.String("id", t.ID),
		slog.Int("dangling", len(dangling)),
	)
}

// project mirrors t into the graph store. Failures are logged and never
// reach the caller.
func (s *CatalogService) project(ctx context.Context, t *model.Template) {
	if s.projector == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), projectionTimeout)
	defer cancel()
	if err := s.projector.ProjectTemplate(pctx, t); err != nil {
		s.logger.Warn("projecting template into graph store failed",
			slog.String("id", t.ID),
			slog.String("error", err.Error()),
		)
	}
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !slices.Contains(out, v) {
			out = append(out, v)
		}
	}
	return out
}

func enumStrings[S ~[]E, E ~string](values S) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return out
}
