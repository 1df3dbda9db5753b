package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/code-compass/internal/apperror"
	"github.com/sakif/code-compass/internal/model"
	"github.com/sakif/code-compass/internal/repository"
)

type fakeGlossaryRepo struct {
	terms       []model.GlossaryTerm
	searchLimit int
}

func (f *fakeGlossaryRepo) Create(_ context.Context, term *model.GlossaryTerm) error {
	for _, t := range f.terms {
		if strings.EqualFold(t.Term, term.Term) {
			return apperror.Conflict("glossary term", "term")
		}
	}
	term.ID = "g-" + term.Term
	f.terms = append(f.terms, *term)
	return nil
}

func (f *fakeGlossaryRepo) GetByID(_ context.Context, id string) (*model.GlossaryTerm, error) {
	for _, t := range f.terms {
		if t.ID == id {
			return &t, nil
		}
	}
	return nil, apperror.NotFound("glossary term", id)
}

func (f *fakeGlossaryRepo) List(_ context.Context, flt repository.GlossaryFilter, opts repository.ListOptions) ([]model.GlossaryTerm, int, error) {
	var out []model.GlossaryTerm
	for _, t := range f.terms {
		if flt.Category == "" || t.Category == flt.Category {
			out = append(out, t)
		}
	}
	return out, len(out), nil
}

func (f *fakeGlossaryRepo) Search(_ context.Context, q string, limit int) ([]model.GlossaryTerm, error) {
	f.searchLimit = limit
	var out []model.GlossaryTerm
	for _, t := range f.terms {
		if strings.Contains(strings.ToLower(t.Term), strings.ToLower(q)) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeGlossaryRepo) Categories(_ context.Context) ([]model.GlossaryCategory, error) {
	return []model.GlossaryCategory{model.GlossaryBackend}, nil
}

func newTestGlossary() (*GlossaryService, *fakeGlossaryRepo) {
	repo := &fakeGlossaryRepo{}
	return NewGlossaryService(repo, newValidator(), testLogger()), repo
}

func TestGlossarySearch_RequiresQuery(t *testing.T) {
	svc, _ := newTestGlossary()

	for _, q := range []string{"", "   "} {
		_, err := svc.Search(context.Background(), q)

		var appErr *apperror.AppError
		require.ErrorAs(t, err, &appErr)
		assert.ErrorIs(t, err, apperror.ErrBadRequest)
		assert.Equal(t, "MISSING_QUERY", appErr.Code)
	}
}

func TestGlossarySearch_CapsResults(t *testing.T) {
	svc, repo := newTestGlossary()
	_, err := svc.Create(context.Background(), GlossaryInput{Term: "API", Definition: "interface", Category: model.GlossaryBackend})
	require.NoError(t, err)

	got, err := svc.Search(context.Background(), " api ")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, MaxGlossarySearchResults, repo.searchLimit)
}

func TestGlossaryCreate(t *testing.T) {
	svc, _ := newTestGlossary()
	ctx := context.Background()

	term, err := svc.Create(ctx, GlossaryInput{Term: " Webpack ", Definition: "A bundler", Category: model.GlossaryFrontend})
	require.NoError(t, err)
	assert.Equal(t, "Webpack", term.Term)
	assert.Equal(t, model.DifficultyBeginner, term.Difficulty)
	assert.True(t, term.IsPublished)

	_, err = svc.Create(ctx, GlossaryInput{Term: "webpack", Definition: "dup", Category: model.GlossaryFrontend})
	assert.ErrorIs(t, err, apperror.ErrConflict)

	_, err = svc.Create(ctx, GlossaryInput{Term: "X", Definition: "y", Category: "Cooking"})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
