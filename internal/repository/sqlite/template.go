package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/code-compass/internal/apperror"
	"github.com/sakif/code-compass/internal/model"
	"github.com/sakif/code-compass/internal/repository"
)

// compile-time check that templateStore implements repository.TemplateRepository
var _ repository.TemplateRepository = (*templateStore)(nil)

// templateStore is the template view of DB. DB serves several repository
// interfaces whose method names overlap (Create, GetByID, List), so each
// aggregate gets a thin named view; Templates() hands it out.
type templateStore struct{ db *DB }

// Templates returns the TemplateRepository backed by db.
func (db *DB) Templates() repository.TemplateRepository { return &templateStore{db: db} }

const templateColumns = `id, slug, name, description, category, difficulty, tags,
	file_structure, dependencies, code_flow, metadata,
	views, completions, rating, is_published, created_by, created_at, updated_at`

const templateSummaryColumns = `id, slug, name, description, category, difficulty, tags,
	metadata, views, completions, rating, created_at, updated_at`

// Create inserts a new template. An empty ID is filled with a fresh xid.
func (s *templateStore) Create(ctx context.Context, t *model.Template) error {
	ctx, cancel := s.db.writeCtx(ctx)
	defer cancel()

	now := time.Now().UTC()
	if t.ID == "" {
		t.ID = xid.New().String()
	}
	t.CreatedAt = now
	t.UpdatedAt = now

	cols, err := jsonColumns(t.Tags, t.FileStructure, t.Dependencies, t.CodeFlow, t.Metadata)
	if err != nil {
		return fmt.Errorf("sqlite: encoding template %s: %w", t.ID, err)
	}

	_, err = s.db.conn.ExecContext(ctx,
		`INSERT INTO templates (`+templateColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Slug, t.Name, t.Description, t.Category, t.Difficulty, cols[0],
		cols[1], cols[2], cols[3], cols[4],
		t.Stats.Views, t.Stats.Completions, t.Stats.Rating,
		boolToInt(t.IsPublished), t.CreatedBy, t.CreatedAt, t.UpdatedAt,
	)
	if isUniqueViolation(err) {
		if strings.Contains(err.Error(), "templates.slug") {
			return apperror.Conflict("template", "slug")
		}
		return apperror.Conflict("template", "id")
	}
	return wrapErr("sqlite: inserting template", err)
}

// Update rewrites the authored content of a template. Stats, slug and
// creation fields are left alone; views only move through IncrementViews.
func (s *templateStore) Update(ctx context.Context, t *model.Template) error {
	ctx, cancel := s.db.writeCtx(ctx)
	defer cancel()

	t.UpdatedAt = time.Now().UTC()
	cols, err := jsonColumns(t.Tags, t.FileStructure, t.Dependencies, t.CodeFlow, t.Metadata)
	if err != nil {
		return fmt.Errorf("sqlite: encoding template %s: %w", t.ID, err)
	}

	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE templates SET name = ?, description = ?, category = ?, difficulty = ?,
			tags = ?, file_structure = ?, dependencies = ?, code_flow = ?, metadata = ?,
			is_published = ?, updated_at = ?
		 WHERE id = ?`,
		t.Name, t.Description, t.Category, t.Difficulty,
		cols[0], cols[1], cols[2], cols[3], cols[4],
		boolToInt(t.IsPublished), t.UpdatedAt, t.ID,
	)
	if err != nil {
		return wrapErr("sqlite: updating template "+t.ID, err)
	}
	return requireRow(res, "template", t.ID)
}

func (s *templateStore) GetByID(ctx context.Context, id string) (*model.Template, error) {
	return s.getOne(ctx, "id", id)
}

func (s *templateStore) GetBySlug(ctx context.Context, slug string) (*model.Template, error) {
	return s.getOne(ctx, "slug", slug)
}

// getOne fetches a template by a unique column. column is always a
// constant from this file, never user input.
func (s *templateStore) getOne(ctx context.Context, column, value string) (*model.Template, error) {
	ctx, cancel := s.db.readCtx(ctx)
	defer cancel()

	row := s.db.conn.QueryRowContext(ctx,
		`SELECT `+templateColumns+` FROM templates WHERE `+column+` = ?`, value)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("template", value)
	}
	if err != nil {
		return nil, wrapErr("sqlite: getting template "+value, err)
	}
	return t, nil
}

// List returns one page of published templates and the total number of
// matches.
//
// With a search term and no explicit sort the page is ordered by
// relevance: a name hit outweighs a tag hit, which outweighs a
// description hit. Name breaks ties so paging is deterministic.
func (s *templateStore) List(ctx context.Context, f repository.TemplateFilter, opts repository.ListOptions) ([]model.TemplateSummary, int, error) {
	ctx, cancel := s.db.readCtx(ctx)
	defer cancel()

	var w where
	w.add("is_published = 1")
	if f.Category != "" {
		w.add("category = ?", f.Category)
	}
	if f.Difficulty != "" {
		w.add("difficulty = ?", f.Difficulty)
	}
	if len(f.Tags) > 0 {
		w.add(`EXISTS (SELECT 1 FROM json_each(templates.tags) WHERE json_each.value IN (`+placeholders(len(f.Tags))+`))`,
			stringArgs(f.Tags)...)
	}
	var pattern string
	if f.Search != "" {
		pattern = containsPattern(f.Search)
		w.add(`(fold(name) LIKE ? ESCAPE '\' OR fold(description) LIKE ? ESCAPE '\'
			OR EXISTS (SELECT 1 FROM json_each(templates.tags) WHERE fold(json_each.value) LIKE ? ESCAPE '\'))`,
			pattern, pattern, pattern)
	}

	var total int
	if err := s.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM templates`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, wrapErr("sqlite: counting templates", err)
	}

	args := append([]any{}, w.args...)
	var order string
	switch f.Sort {
	case repository.SortNewest:
		order = "created_at DESC, name ASC"
	case repository.SortPopular:
		order = "views DESC, name ASC"
	case repository.SortRating:
		order = "rating DESC, name ASC"
	case repository.SortName:
		order = "name ASC"
	default:
		order = "name ASC"
		if f.Search != "" {
			order = `(CASE WHEN fold(name) LIKE ? ESCAPE '\' THEN 3 ELSE 0 END
				+ CASE WHEN EXISTS (SELECT 1 FROM json_each(templates.tags) WHERE fold(json_each.value) LIKE ? ESCAPE '\') THEN 2 ELSE 0 END
				+ CASE WHEN fold(description) LIKE ? ESCAPE '\' THEN 1 ELSE 0 END) DESC, name ASC`
			args = append(args, pattern, pattern, pattern)
		}
	}
	args = append(args, opts.Limit, opts.Offset)

	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT `+templateSummaryColumns+` FROM templates`+w.String()+
			` ORDER BY `+order+` LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, wrapErr("sqlite: listing templates", err)
	}
	defer rows.Close()

	out := []model.TemplateSummary{}
	for rows.Next() {
		var (
			ts             model.TemplateSummary
			tags, metadata string
		)
		if err := rows.Scan(&ts.ID, &ts.Slug, &ts.Name, &ts.Description, &ts.Category, &ts.Difficulty,
			&tags, &metadata, &ts.Stats.Views, &ts.Stats.Completions, &ts.Stats.Rating,
			&ts.CreatedAt, &ts.UpdatedAt); err != nil {
			return nil, 0, wrapErr("sqlite: scanning template summary", err)
		}
		if err := fromJSON(tags, &ts.Tags); err != nil {
			return nil, 0, fmt.Errorf("sqlite: decoding tags of %s: %w", ts.ID, err)
		}
		if err := fromJSON(metadata, &ts.Metadata); err != nil {
			return nil, 0, fmt.Errorf("sqlite: decoding metadata of %s: %w", ts.ID, err)
		}
		out = append(out, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, wrapErr("sqlite: iterating templates", err)
	}
	return out, total, nil
}

// IncrementViews is a single UPDATE, so concurrent viewers never lose a
// count.
func (s *templateStore) IncrementViews(ctx context.Context, id string) error {
	ctx, cancel := s.db.writeCtx(ctx)
	defer cancel()

	res, err := s.db.conn.ExecContext(ctx, `UPDATE templates SET views = views + 1 WHERE id = ?`, id)
	if err != nil {
		return wrapErr("sqlite: incrementing views of "+id, err)
	}
	return requireRow(res, "template", id)
}

func (s *templateStore) SetPublished(ctx context.Context, id string, published bool) error {
	ctx, cancel := s.db.writeCtx(ctx)
	defer cancel()

	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE templates SET is_published = ?, updated_at = ? WHERE id = ?`,
		boolToInt(published), time.Now().UTC(), id)
	if err != nil {
		return wrapErr("sqlite: publishing template "+id, err)
	}
	return requireRow(res, "template", id)
}

// CategoryStats groups published templates by category, largest first.
func (s *templateStore) CategoryStats(ctx context.Context) ([]model.CategoryStats, error) {
	ctx, cancel := s.db.readCtx(ctx)
	defer cancel()

	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT category, COUNT(*), COALESCE(AVG(rating), 0), COALESCE(SUM(views), 0)
		 FROM templates WHERE is_published = 1
		 GROUP BY category
		 ORDER BY COUNT(*) DESC, category ASC`)
	if err != nil {
		return nil, wrapErr("sqlite: aggregating categories", err)
	}
	defer rows.Close()

	out := []model.CategoryStats{}
	for rows.Next() {
		var cs model.CategoryStats
		if err := rows.Scan(&cs.Category, &cs.Count, &cs.AvgRating, &cs.TotalViews); err != nil {
			return nil, wrapErr("sqlite: scanning category stats", err)
		}
		out = append(out, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("sqlite: iterating category stats", err)
	}
	return out, nil
}

func (s *templateStore) Categories(ctx context.Context, ids []string) (map[string]model.Category, error) {
	out := make(map[string]model.Category, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	ctx, cancel := s.db.readCtx(ctx)
	defer cancel()

	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT id, category FROM templates WHERE id IN (`+placeholders(len(ids))+`)`,
		stringArgs(ids)...)
	if err != nil {
		return nil, wrapErr("sqlite: resolving template categories", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id  string
			cat model.Category
		)
		if err := rows.Scan(&id, &cat); err != nil {
			return nil, wrapErr("sqlite: scanning template category", err)
		}
		out[id] = cat
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("sqlite: iterating template categories", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*model.Template, error) {
	var (
		t                                model.Template
		tags, tree, deps, flow, metadata string
		published                        int
	)
	if err := row.Scan(&t.ID, &t.Slug, &t.Name, &t.Description, &t.Category, &t.Difficulty, &tags,
		&tree, &deps, &flow, &metadata,
		&t.Stats.Views, &t.Stats.Completions, &t.Stats.Rating, &published, &t.CreatedBy,
		&t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.IsPublished = published == 1

	for _, c := range []struct {
		name string
		raw  string
		dst  any
	}{
		{"tags", tags, &t.Tags},
		{"file_structure", tree, &t.FileStructure},
		{"dependencies", deps, &t.Dependencies},
		{"code_flow", flow, &t.CodeFlow},
		{"metadata", metadata, &t.Metadata},
	} {
		if err := fromJSON(c.raw, c.dst); err != nil {
			return nil, fmt.Errorf("decoding %s of template %s: %w", c.name, t.ID, err)
		}
	}
	return &t, nil
}

// requireRow turns a zero-row UPDATE into NotFound.
func requireRow(res sql.Result, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return wrapErr("sqlite: rows affected", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
