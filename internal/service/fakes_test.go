package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sakif/code-compass/internal/apperror"
	"github.com/sakif/code-compass/internal/model"
	"github.com/sakif/code-compass/internal/repository"
	"github.com/sakif/code-compass/internal/validate"
)

// =========================================================================
// FAKE REPOSITORIES
// =========================================================================
//
// Hand-written in-memory implementations of the repository interfaces.
// They copy on the way in and out so tests cannot alias stored state.

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakeTemplateRepo struct {
	mu        sync.Mutex
	templates map[string]*model.Template
	nextID    int
	listErr   error
}

func newFakeTemplateRepo() *fakeTemplateRepo {
	return &fakeTemplateRepo{templates: make(map[string]*model.Template)}
}

func (f *fakeTemplateRepo) Create(_ context.Context, t *model.Template) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.templates {
		if existing.Slug == t.Slug {
			return apperror.Conflict("template", "slug")
		}
	}
	if t.ID == "" {
		f.nextID++
		t.ID = fmt.Sprintf("tmpl-%d", f.nextID)
	}
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	stored := *t
	f.templates[t.ID] = &stored
	return nil
}

func (f *fakeTemplateRepo) Update(_ context.Context, t *model.Template) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	old, ok := f.templates[t.ID]
	if !ok {
		return apperror.NotFound("template", t.ID)
	}
	stored := *t
	stored.Stats = old.Stats
	f.templates[t.ID] = &stored
	return nil
}

func (f *fakeTemplateRepo) GetByID(_ context.Context, id string) (*model.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.templates[id]
	if !ok {
		return nil, apperror.NotFound("template", id)
	}
	out := *t
	return &out, nil
}

func (f *fakeTemplateRepo) GetBySlug(_ context.Context, slug string) (*model.Template, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.templates {
		if t.Slug == slug {
			out := *t
			return &out, nil
		}
	}
	return nil, apperror.NotFound("template", slug)
}

func (f *fakeTemplateRepo) List(_ context.Context, flt repository.TemplateFilter, opts repository.ListOptions) ([]model.TemplateSummary, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	var all []model.TemplateSummary
	for _, t := range f.templates {
		if !t.IsPublished || (flt.Category != "" && t.Category != flt.Category) {
			continue
		}
		if flt.Search != "" && !strings.Contains(strings.ToLower(t.Name), strings.ToLower(flt.Search)) {
			continue
		}
		all = append(all, model.TemplateSummary{ID: t.ID, Name: t.Name, Slug: t.Slug, Category: t.Category})
	}
	slices.SortFunc(all, func(a, b model.TemplateSummary) int { return cmp.Compare(a.Name, b.Name) })
	total := len(all)
	if opts.Offset >= total {
		return []model.TemplateSummary{}, total, nil
	}
	all = all[opts.Offset:]
	if opts.Limit < len(all) {
		all = all[:opts.Limit]
	}
	return all, total, nil
}

func (f *fakeTemplateRepo) IncrementViews(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.templates[id]
	if !ok {
		return apperror.NotFound("template", id)
	}
	t.Stats.Views++
	return nil
}

func (f *fakeTemplateRepo) SetPublished(_ context.Context, id string, published bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.templates[id]
	if !ok {
		return apperror.NotFound("template", id)
	}
	t.IsPublished = published
	return nil
}

func (f *fakeTemplateRepo) CategoryStats(_ context.Context) ([]model.CategoryStats, error) {
	return []model.CategoryStats{}, nil
}

func (f *fakeTemplateRepo) Categories(_ context.Context, ids []string) (map[string]model.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]model.Category)
	for _, id := range ids {
		if t, ok := f.templates[id]; ok {
			out[id] = t.Category
		}
	}
	return out, nil
}

// views reads the stored counter directly.
func (f *fakeTemplateRepo) views(id string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.templates[id].Stats.Views
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
	next  int
	// set to a non-nil error to simulate a database failure
	getErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*model.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.Email = strings.ToLower(u.Email)
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return apperror.Conflict("user", "email")
		}
	}
	f.next++
	u.ID = fmt.Sprintf("user-%d", f.next)
	u.CreatedAt = time.Now()
	stored := *u
	f.users[u.ID] = &stored
	return nil
}

func (f *fakeUserRepo) find(match func(*model.User) bool, label string) (*model.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.users {
		if match(u) {
			out := *u
			out.Progress = slices.Clone(u.Progress)
			return &out, nil
		}
	}
	return nil, apperror.NotFound("user", label)
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.ID == id }, id)
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	email = strings.ToLower(email)
	return f.find(func(u *model.User) bool { return u.Email == email }, email)
}

func (f *fakeUserRepo) GetByGitHubID(_ context.Context, id int64) (*model.User, error) {
	return f.find(func(u *model.User) bool { return u.GitHubID != 0 && u.GitHubID == id }, fmt.Sprint(id))
}

func (f *fakeUserRepo) UpdateProfile(_ context.Context, u *model.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.users[u.ID]
	if !ok {
		return apperror.NotFound("user", u.ID)
	}
	stored.Name, stored.Mode, stored.Preferences = u.Name, u.Mode, u.Preferences
	return nil
}

func (f *fakeUserRepo) LinkGitHub(_ context.Context, id string, githubID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	stored.GitHubID = githubID
	return nil
}

func (f *fakeUserRepo) TouchLogin(_ context.Context, id string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.users[id]
	if !ok {
		return apperror.NotFound("user", id)
	}
	stored.LastLoginAt = &at
	return nil
}

func (f *fakeUserRepo) UpdateProgress(_ context.Context, userID string, fn repository.ProgressFunc) ([]model.UserProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.users[userID]
	if !ok {
		return nil, apperror.NotFound("user", userID)
	}
	next, err := fn(slices.Clone(stored.Progress))
	if err != nil {
		return nil, err
	}
	stored.Progress = next
	return next, nil
}

// addUser stores a ready-made active user and returns its ID.
func (f *fakeUserRepo) addUser(t *testing.T, email string) string {
	t.Helper()
	u := &model.User{Name: "Test", Email: email, Role: model.RoleUser, IsActive: true}
	if err := f.Create(context.Background(), u); err != nil {
		t.Fatalf("addUser: %v", err)
	}
	return u.ID
}

// recordingNotifier captures ProgressUpdated calls.
type recordingNotifier struct {
	mu    sync.Mutex
	calls []model.UserProgress
	users []string
}

func (n *recordingNotifier) ProgressUpdated(_ context.Context, userID string, rec model.UserProgress) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.users = append(n.users, userID)
	n.calls = append(n.calls, rec)
}

func newValidator() *validate.Validator { return validate.New() }

// mernTree is root → client → {package.json (order 3), src → App.js (order 5)}.
func mernTree() *model.FileNode {
	return &model.FileNode{
		ID: "root", Name: "mern-stack", Type: model.NodeFolder, Path: "/",
		Children: []*model.FileNode{{
			ID: "client", Name: "client", Type: model.NodeFolder, Path: "client",
			Children: []*model.FileNode{
				{ID: "pkg", Name: "package.json", Type: model.NodeFile, Path: "client/package.json", Order: 3},
				{ID: "src", Name: "src", Type: model.NodeFolder, Path: "client/src", Children: []*model.FileNode{
					{ID: "app", Name: "App.js", Type: model.NodeFile, Path: "client/src/App.js", Order: 5},
				}},
			},
		}},
	}
}

func validTemplateInput(name string) TemplateInput {
	return TemplateInput{
		Name:          name,
		Description:   "A starter",
		Category:      model.CategoryFullstack,
		Difficulty:    model.DifficultyBeginner,
		Tags:          []string{"react", "node", "react"},
		FileStructure: mernTree(),
		Dependencies: []model.Dependency{
			{From: "client/src/App.js", To: "client/package.json", Type: model.DependencyImport},
		},
		CodeFlow: []model.CodeFlowStep{
			{ID: "s2", Order: 2, Title: "App"},
			{ID: "s1", Order: 1, Title: "Package"},
		},
	}
}
