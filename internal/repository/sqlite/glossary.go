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

var _ repository.GlossaryRepository = (*glossaryStore)(nil)

type glossaryStore struct{ db *DB }

// Glossary returns the GlossaryRepository backed by db.
func (db *DB) Glossary() repository.GlossaryRepository { return &glossaryStore{db: db} }

const glossaryColumns = `id, term, definition, category, difficulty, examples, related_terms,
	tags, is_published, created_at, updated_at`

// Create inserts a term. Terms are unique ignoring case.
func (s *glossaryStore) Create(ctx context.Context, term *model.GlossaryTerm) error {
	ctx, cancel := s.db.writeCtx(ctx)
	defer cancel()

	now := time.Now().UTC()
	if term.ID == "" {
		term.ID = xid.New().String()
	}
	term.Term = strings.TrimSpace(term.Term)
	term.CreatedAt = now
	term.UpdatedAt = now

	cols, err := jsonColumns(term.Examples, term.RelatedTerms, term.Tags)
	if err != nil {
		return fmt.Errorf("sqlite: encoding glossary term %s: %w", term.ID, err)
	}

	_, err = s.db.conn.ExecContext(ctx,
		`INSERT INTO glossary_terms (`+glossaryColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		term.ID, term.Term, term.Definition, term.Category, term.Difficulty,
		cols[0], cols[1], cols[2], boolToInt(term.IsPublished), term.CreatedAt, term.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return apperror.Conflict("glossary term", "term")
	}
	return wrapErr("sqlite: inserting glossary term", err)
}

func (s *glossaryStore) GetByID(ctx context.Context, id string) (*model.GlossaryTerm, error) {
	ctx, cancel := s.db.readCtx(ctx)
	defer cancel()

	term, err := scanTerm(s.db.conn.QueryRowContext(ctx,
		`SELECT `+glossaryColumns+` FROM glossary_terms WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("glossary term", id)
	}
	if err != nil {
		return nil, wrapErr("sqlite: getting glossary term "+id, err)
	}
	return term, nil
}

// List pages through published terms alphabetically. With a search term,
// terms whose name matches come before definition-only matches.
func (s *glossaryStore) List(ctx context.Context, f repository.GlossaryFilter, opts repository.ListOptions) ([]model.GlossaryTerm, int, error) {
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
	order := "term COLLATE NOCASE ASC"
	var orderArgs []any
	if f.Search != "" {
		pattern := containsPattern(f.Search)
		w.add(`(fold(term) LIKE ? ESCAPE '\' OR fold(definition) LIKE ? ESCAPE '\')`, pattern, pattern)
		order = `CASE WHEN fold(term) LIKE ? ESCAPE '\' THEN 0 ELSE 1 END, ` + order
		orderArgs = append(orderArgs, pattern)
	}

	var total int
	if err := s.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM glossary_terms`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, wrapErr("sqlite: counting glossary terms", err)
	}

	args := append(append(append([]any{}, w.args...), orderArgs...), opts.Limit, opts.Offset)
	terms, err := s.query(ctx,
		`SELECT `+glossaryColumns+` FROM glossary_terms`+w.String()+
			` ORDER BY `+order+` LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, err
	}
	return terms, total, nil
}

// Search matches q against term, definition and tags. Exact term matches
// rank first, then prefix matches, then everything else alphabetically.
func (s *glossaryStore) Search(ctx context.Context, q string, limit int) ([]model.GlossaryTerm, error) {
	ctx, cancel := s.db.readCtx(ctx)
	defer cancel()

	lowered := strings.ToLower(strings.TrimSpace(q))
	pattern := containsPattern(lowered)
	prefix := likeEscaper.Replace(lowered) + "%"

	return s.query(ctx,
		`SELECT `+glossaryColumns+` FROM glossary_terms
		 WHERE is_published = 1 AND (
			fold(term) LIKE ? ESCAPE '\' OR fold(definition) LIKE ? ESCAPE '\'
			OR EXISTS (SELECT 1 FROM json_each(glossary_terms.tags) WHERE fold(json_each.value) LIKE ? ESCAPE '\'))
		 ORDER BY
			CASE WHEN fold(term) = ? THEN 0 WHEN fold(term) LIKE ? ESCAPE '\' THEN 1 ELSE 2 END,
			term COLLATE NOCASE ASC
		 LIMIT ?`,
		pattern, pattern, pattern, lowered, prefix, limit)
}

func (s *glossaryStore) Categories(ctx context.Context) ([]model.GlossaryCategory, error) {
	ctx, cancel := s.db.readCtx(ctx)
	defer cancel()

	rows, err := s.db.conn.QueryContext(ctx,
		`SELECT DISTINCT category FROM glossary_terms WHERE is_published = 1 ORDER BY category ASC`)
	if err != nil {
		return nil, wrapErr("sqlite: listing glossary categories", err)
	}
	defer rows.Close()

	out := []model.GlossaryCategory{}
	for rows.Next() {
		var c model.GlossaryCategory
		if err := rows.Scan(&c); err != nil {
			return nil, wrapErr("sqlite: scanning glossary category", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("sqlite: iterating glossary categories", err)
	}
	return out, nil
}

func (s *glossaryStore) query(ctx context.Context, query string, args ...any) ([]model.GlossaryTerm, error) {
	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("sqlite: querying glossary terms", err)
	}
	defer rows.Close()

	out := []model.GlossaryTerm{}
	for rows.Next() {
		term, err := scanTerm(rows)
		if err != nil {
			return nil, wrapErr("sqlite: scanning glossary term", err)
		}
		out = append(out, *term)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("sqlite: iterating glossary terms", err)
	}
	return out, nil
}

func scanTerm(row rowScanner) (*model.GlossaryTerm, error) {
	var (
		t                       model.GlossaryTerm
		examples, related, tags string
		published               int
	)
	if err := row.Scan(&t.ID, &t.Term, &t.Definition, &t.Category, &t.Difficulty,
		&examples, &related, &tags, &published, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.IsPublished = published == 1
	for _, c := range []struct {
		raw string
		dst any
	}{{examples, &t.Examples}, {related, &t.RelatedTerms}, {tags, &t.Tags}} {
		if err := fromJSON(c.raw, c.dst); err != nil {
			return nil, fmt.Errorf("decoding glossary term %s: %w", t.ID, err)
		}
	}
	return &t, nil
}
