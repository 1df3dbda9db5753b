package service

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/code-compass/internal/apperror"
	"github.com/sakif/code-compass/internal/model"
	"github.com/sakif/code-compass/internal/query"
)

type fakeProjector struct {
	projected []string
	removed   []string
	err       error
}

func (p *fakeProjector) ProjectTemplate(_ context.Context, t *model.Template) error {
	p.projected = append(p.projected, t.ID)
	return p.err
}

func (p *fakeProjector) RemoveTemplate(_ context.Context, id string) error {
	p.removed = append(p.removed, id)
	return p.err
}

func newTestCatalog(t *testing.T) (*CatalogService, *fakeTemplateRepo, *fakeProjector) {
	t.Helper()
	repo := newFakeTemplateRepo()
	proj := &fakeProjector{}
	return NewCatalogService(repo, proj, newValidator(), testLogger()), repo, proj
}

// ===== CREATE =====

func TestCatalogCreate_DerivesSlugAndNormalises(t *testing.T) {
	svc, _, proj := newTestCatalog(t)

	tmpl, err := svc.Create(context.Background(), validTemplateInput("MERN Stack!"), "admin-1")
	require.NoError(t, err)

	assert.Equal(t, "mern-stack", tmpl.Slug)
	assert.Equal(t, []string{"react", "node"}, tmpl.Tags)
	assert.True(t, tmpl.IsPublished)
	assert.Equal(t, "admin-1", tmpl.CreatedBy)
	require.Len(t, tmpl.CodeFlow, 2)
	assert.Equal(t, "s1", tmpl.CodeFlow[0].ID, "code flow is stored in order")
	assert.Equal(t, []string{tmpl.ID}, proj.projected)
}

func TestCatalogCreate_ExplicitSlugIsNormalised(t *testing.T) {
	svc, _, _ := newTestCatalog(t)
	in := validTemplateInput("Whatever")
	in.Slug = "My Custom Slug"

	tmpl, err := svc.Create(context.Background(), in, "")
	require.NoError(t, err)
	assert.Equal(t, "my-custom-slug", tmpl.Slug)
}

func TestCatalogCreate_DuplicateSlugConflicts(t *testing.T) {
	svc, _, _ := newTestCatalog(t)
	_, err := svc.Create(context.Background(), validTemplateInput("MERN Stack"), "")
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), validTemplateInput("mern  stack"), "")
	assert.ErrorIs(t, err, apperror.ErrConflict)
}

func TestCatalogCreate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*TemplateInput)
		field  string
	}{
		{"missing name", func(in *TemplateInput) { in.Name = "" }, "name"},
		{"unknown category", func(in *TemplateInput) { in.Category = "desktop" }, "category"},
		{"missing tree", func(in *TemplateInput) { in.FileStructure = nil }, "fileStructure"},
		{"duplicate node id", func(in *TemplateInput) {
			in.FileStructure.Children[0].Children[0].ID = "client"
		}, "fileStructure"},
		{"bad dependency type", func(in *TemplateInput) { in.Dependencies[0].Type = "calls" }, "dependencies[0].type"},
		{"duplicate step order", func(in *TemplateInput) { in.CodeFlow[1].Order = 2 }, "codeFlow[1].order"},
		{"zero step order", func(in *TemplateInput) { in.CodeFlow[0].Order = 0 }, "codeFlow[0].order"},
		{"negative estimate", func(in *TemplateInput) { in.CodeFlow[0].EstimatedTime = -1 }, "codeFlow[0].estimatedTime"},
		{"name without letters", func(in *TemplateInput) { in.Name = "!!!" }, "slug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestCatalog(t)
			in := validTemplateInput("MERN Stack")
			tt.mutate(&in)

			_, err := svc.Create(context.Background(), in, "")

			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.ErrorIs(t, err, apperror.ErrValidation)
			fields := make([]string, len(appErr.Details))
			for i, d := range appErr.Details {
				fields[i] = d.Field
			}
			assert.Contains(t, fields, tt.field)
		})
	}
}

func TestCatalogCreate_ProjectionFailureIsIgnored(t *testing.T) {
	svc, _, proj := newTestCatalog(t)
	proj.err = errors.New("neo4j down")

	_, err := svc.Create(context.Background(), validTemplateInput("MERN Stack"), "")
	assert.NoError(t, err)
}

func TestCatalogCreate_NilProjector(t *testing.T) {
	svc := NewCatalogService(newFakeTemplateRepo(), nil, newValidator(), testLogger())
	_, err := svc.Create(context.Background(), validTemplateInput("MERN Stack"), "")
	assert.NoError(t, err)
}

// ===== READ =====

func TestCatalogGetBySlug_IncrementsViews(t *testing.T) {
	svc, repo, _ := newTestCatalog(t)
	created, err := svc.Create(context.Background(), validTemplateInput("MERN Stack"), "")
	require.NoError(t, err)

	got, err := svc.GetBySlug(context.Background(), "mern-stack")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Stats.Views)

	for range 4 {
		_, err := svc.GetByID(context.Background(), created.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, int64(5), repo.views(created.ID))
}

func TestCatalogGet_UnpublishedIsNotFound(t *testing.T) {
	svc, repo, proj := newTestCatalog(t)
	created, err := svc.Create(context.Background(), validTemplateInput("MERN Stack"), "")
	require.NoError(t, err)

	require.NoError(t, svc.Unpublish(context.Background(), created.ID))
	assert.Equal(t, []string{created.ID}, proj.removed)

	_, err = svc.GetByID(context.Background(), created.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	_, err = svc.GetBySlug(context.Background(), "mern-stack")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Equal(t, int64(0), repo.views(created.ID), "hidden templates do not count views")
}

func TestCatalogList_Pagination(t *testing.T) {
	svc, _, _ := newTestCatalog(t)
	for _, name := range []string{"A", "B", "C", "D", "E"} {
		_, err := svc.Create(context.Background(), validTemplateInput(name), "")
		require.NoError(t, err)
	}
	hidden, err := svc.Create(context.Background(), validTemplateInput("Hidden"), "")
	require.NoError(t, err)
	require.NoError(t, svc.Unpublish(context.Background(), hidden.ID))

	p, err := query.Parse(url.Values{"limit": {"2"}}, TemplateQuery, newValidator())
	require.NoError(t, err)

	items, page, err := svc.List(context.Background(), p)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, query.Pagination{Page: 1, Limit: 2, Total: 5, Pages: 3}, page)
}

func TestCatalogList_StoreErrorIsWrapped(t *testing.T) {
	svc, repo, _ := newTestCatalog(t)
	repo.listErr = apperror.Timeout("sqlite: listing templates", context.DeadlineExceeded)

	_, _, err := svc.List(context.Background(), query.Params{Page: 1, Limit: 20})
	assert.ErrorIs(t, err, apperror.ErrTimeout)
}

// ===== UPDATE =====

func TestCatalogUpdate_KeepsSlug(t *testing.T) {
	svc, _, proj := newTestCatalog(t)
	created, err := svc.Create(context.Background(), validTemplateInput("MERN Stack"), "")
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, validTemplateInput("Renamed Stack"))
	require.NoError(t, err)
	assert.Equal(t, "Renamed Stack", updated.Name)
	assert.Equal(t, "mern-stack", updated.Slug)
	assert.Len(t, proj.projected, 2)
}

func TestCatalogUpdate_NotFound(t *testing.T) {
	svc, _, _ := newTestCatalog(t)
	_, err := svc.Update(context.Background(), "nope", validTemplateInput("X"))
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

// ===== GRAPH =====

func TestCatalogGraph(t *testing.T) {
	svc, _, _ := newTestCatalog(t)
	in := validTemplateInput("MERN Stack")
	in.Dependencies = append(in.Dependencies, model.Dependency{From: "client/src/App.js", To: "server/index.js", Type: model.DependencyAPI})
	created, err := svc.Create(context.Background(), in, "")
	require.NoError(t, err)

	g, err := svc.Graph(context.Background(), created.ID)
	require.NoError(t, err)

	assert.Len(t, g.Nodes, 2, "only files are graph nodes")
	assert.Equal(t, []string{"client/package.json", "client/src/App.js"}, g.BuildOrder)
	assert.Empty(t, g.Cyclic)
	require.Len(t, g.Dangling, 1)
	assert.Equal(t, "server/index.js", g.Dangling[0].To)
}
