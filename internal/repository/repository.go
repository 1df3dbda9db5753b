// Package repository declares the storage contracts the service layer
// depends on. internal/repository/sqlite implements all of them.
package repository

import (
	"context"
	"time"

	"github.com/sakif/code-compass/internal/model"
)

type ListOptions struct {
	Limit  int
	Offset int
}

// Sort keys accepted by TemplateFilter.Sort.
const (
	SortName    = "name"
	SortNewest  = "newest"
	SortPopular = "popular"
	SortRating  = "rating"
)

// TemplateFilter selects published templates. All set fields must match.
type TemplateFilter struct {
	Category   model.Category
	Difficulty model.Difficulty
	Tags       []string // any of
	Search     string   // case-insensitive substring of name, description or a tag
	Sort       string
}

type TemplateRepository interface {
	Create(ctx context.Context, t *model.Template) error
	Update(ctx context.Context, t *model.Template) error
	// GetByID and GetBySlug return unpublished templates too; callers
	// decide visibility.
	GetByID(ctx context.Context, id string) (*model.Template, error)
	GetBySlug(ctx context.Context, slug string) (*model.Template, error)
	List(ctx context.Context, f TemplateFilter, opts ListOptions) ([]model.TemplateSummary, int, error)
	// IncrementViews adds one to stats.views in a single statement.
	IncrementViews(ctx context.Context, id string) error
	SetPublished(ctx context.Context, id string, published bool) error
	CategoryStats(ctx context.Context) ([]model.CategoryStats, error)
	// Categories resolves template IDs to their category. Unknown IDs are
	// absent from the result.
	Categories(ctx context.Context, ids []string) (map[string]model.Category, error)
}

type ProjectFilter struct {
	Difficulty model.Difficulty
	Tech       []string // any of
	Featured   *bool
	Search     string
}

type ProjectRepository interface {
	Create(ctx context.Context, p *model.Project) error
	Update(ctx context.Context, p *model.Project) error
	GetByID(ctx context.Context, id string) (*model.Project, error)
	// List and Featured only return active projects.
	List(ctx context.Context, f ProjectFilter, opts ListOptions) ([]model.ProjectSummary, int, error)
	Featured(ctx context.Context, limit int) ([]model.ProjectSummary, error)
	SetActive(ctx context.Context, id string, active bool) error
}

// ProgressFunc receives the stored progress records and returns the
// records to write back.
type ProgressFunc func(records []model.UserProgress) ([]model.UserProgress, error)

type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
	UpdateProfile(ctx context.Context, u *model.User) error
	LinkGitHub(ctx context.Context, id string, githubID int64) error
	TouchLogin(ctx context.Context, id string, at time.Time) error
	// UpdateProgress runs fn as one read-modify-write of the user's
	// progress list and returns what was written.
	UpdateProgress(ctx context.Context, userID string, fn ProgressFunc) ([]model.UserProgress, error)
}

type GlossaryFilter struct {
	Category   model.GlossaryCategory
	Difficulty model.Difficulty
	Search     string
}

type GlossaryRepository interface {
	Create(ctx context.Context, term *model.GlossaryTerm) error
	GetByID(ctx context.Context, id string) (*model.GlossaryTerm, error)
	// List and Search only return published terms.
	List(ctx context.Context, f GlossaryFilter, opts ListOptions) ([]model.GlossaryTerm, int, error)
	Search(ctx context.Context, q string, limit int) ([]model.GlossaryTerm, error)
	Categories(ctx context.Context) ([]model.GlossaryCategory, error)
}
