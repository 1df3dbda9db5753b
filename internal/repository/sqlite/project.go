package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/code-compass/internal/apperror"
	"github.com/sakif/code-compass/internal/filetree"
	"github.com/sakif/code-compass/internal/model"
	"github.com/sakif/code-compass/internal/repository"
)

var _ repository.ProjectRepository = (*projectStore)(nil)

type projectStore struct{ db *DB }

// Projects returns the ProjectRepository backed by db.
func (db *DB) Projects() repository.ProjectRepository { return &projectStore{db: db} }

const projectColumns = `id, name, description, tech, color, icon, difficulty, estimated_hours,
	file_structure, code_flow, dependencies, setup_instructions, is_active, featured,
	tags, prerequisites, learning_objectives, total_files, created_at, updated_at`

const projectSummaryColumns = `id, name, description, tech, color, icon, difficulty,
	estimated_hours, featured, tags, total_files, created_at`

// Create inserts a project under its caller-chosen ID. total_files is
// derived from the tree here so listings never decode the tree.
func (s *projectStore) Create(ctx context.Context, p *model.Project) error {
	ctx, cancel := s.db.writeCtx(ctx)
	defer cancel()

	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	p.TotalFiles = filetree.CountFiles(p.FileStructure)

	cols, err := jsonColumns(p.Tech, p.FileStructure, p.CodeFlow, p.Dependencies,
		p.SetupInstructions, p.Tags, p.Prerequisites, p.LearningObjectives)
	if err != nil {
		return fmt.Errorf("sqlite: encoding project %s: %w", p.ID, err)
	}

	_, err = s.db.conn.ExecContext(ctx,
		`INSERT INTO projects (`+projectColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, cols[0], p.Color, p.Icon, p.Difficulty, p.EstimatedHours,
		cols[1], cols[2], cols[3], cols[4], boolToInt(p.IsActive), boolToInt(p.Featured),
		cols[5], cols[6], cols[7], p.TotalFiles, p.CreatedAt, p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return apperror.Conflict("project", "id")
	}
	return wrapErr("sqlite: inserting project", err)
}

func (s *projectStore) Update(ctx context.Context, p *model.Project) error {
	ctx, cancel := s.db.writeCtx(ctx)
	defer cancel()

	p.UpdatedAt = time.Now().UTC()
	p.TotalFiles = filetree.CountFiles(p.FileStructure)

	cols, err := jsonColumns(p.Tech, p.FileStructure, p.CodeFlow, p.Dependencies,
		p.SetupInstructions, p.Tags, p.Prerequisites, p.LearningObjectives)
	if err != nil {
		return fmt.Errorf("sqlite: encoding project %s: %w", p.ID, err)
	}

	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE projects SET name = ?, description = ?, tech = ?, color = ?, icon = ?,
			difficulty = ?, estimated_hours = ?, file_structure = ?, code_flow = ?,
			dependencies = ?, setup_instructions = ?, is_active = ?, featured = ?,
			tags = ?, prerequisites = ?, learning_objectives = ?, total_files = ?, updated_at = ?
		 WHERE id = ?`,
		p.Name, p.Description, cols[0], p.Color, p.Icon,
		p.Difficulty, p.EstimatedHours, cols[1], cols[2],
		cols[3], cols[4], boolToInt(p.IsActive), boolToInt(p.Featured),
		cols[5], cols[6], cols[7], p.TotalFiles, p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		return wrapErr("sqlite: updating project "+p.ID, err)
	}
	return requireRow(res, "project", p.ID)
}

// GetByID returns inactive projects too.
func (s *projectStore) GetByID(ctx context.Context, id string) (*model.Project, error) {
	ctx, cancel := s.db.readCtx(ctx)
	defer cancel()

	var (
		p                                                    model.Project
		tech, tree, flow, deps, setup, tags, prereq, learned string
		active, featured                                     int
	)
	err := s.db.conn.QueryRowContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &p.Description, &tech, &p.Color, &p.Icon, &p.Difficulty, &p.EstimatedHours,
		&tree, &flow, &deps, &setup, &active, &featured,
		&tags, &prereq, &learned, &p.TotalFiles, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperror.NotFound("project", id)
	}
	if err != nil {
		return nil, wrapErr("sqlite: getting project "+id, err)
	}
	p.IsActive = active == 1
	p.Featured = featured == 1

	for _, c := range []struct {
		raw string
		dst any
	}{
		{tech, &p.Tech}, {tree, &p.FileStructure}, {flow, &p.CodeFlow}, {deps, &p.Dependencies},
		{setup, &p.SetupInstructions}, {tags, &p.Tags}, {prereq, &p.Prerequisites}, {learned, &p.LearningObjectives},
	} {
		if err := fromJSON(c.raw, c.dst); err != nil {
			return nil, fmt.Errorf("sqlite: decoding project %s: %w", id, err)
		}
	}
	return &p, nil
}

// List orders featured projects first, then newest.
func (s *projectStore) List(ctx context.Context, f repository.ProjectFilter, opts repository.ListOptions) ([]model.ProjectSummary, int, error) {
	ctx, cancel := s.db.readCtx(ctx)
	defer cancel()

	var w where
	w.add("is_active = 1")
	if f.Difficulty != "" {
		w.add("difficulty = ?", f.Difficulty)
	}
	if len(f.Tech) > 0 {
		w.add(`EXISTS (SELECT 1 FROM json_each(projects.tech) WHERE fold(json_each.value) IN (`+placeholders(len(f.Tech))+`))`,
			lowerArgs(f.Tech)...)
	}
	if f.Featured != nil {
		w.add("featured = ?", boolToInt(*f.Featured))
	}
	if f.Search != "" {
		pattern := containsPattern(f.Search)
		w.add(`(fold(name) LIKE ? ESCAPE '\' OR fold(description) LIKE ? ESCAPE '\')`, pattern, pattern)
	}

	var total int
	if err := s.db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, wrapErr("sqlite: counting projects", err)
	}

	args := append(append([]any{}, w.args...), opts.Limit, opts.Offset)
	items, err := s.querySummaries(ctx,
		`SELECT `+projectSummaryColumns+` FROM projects`+w.String()+
			` ORDER BY featured DESC, created_at DESC, id ASC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Featured returns up to limit active featured projects, newest first.
func (s *projectStore) Featured(ctx context.Context, limit int) ([]model.ProjectSummary, error) {
	ctx, cancel := s.db.readCtx(ctx)
	defer cancel()

	return s.querySummaries(ctx,
		`SELECT `+projectSummaryColumns+` FROM projects
		 WHERE is_active = 1 AND featured = 1
		 ORDER BY created_at DESC, id ASC LIMIT ?`, limit)
}

func (s *projectStore) SetActive(ctx context.Context, id string, active bool) error {
	ctx, cancel := s.db.writeCtx(ctx)
	defer cancel()

	res, err := s.db.conn.ExecContext(ctx,
		`UPDATE projects SET is_active = ?, updated_at = ? WHERE id = ?`,
		boolToInt(active), time.Now().UTC(), id)
	if err != nil {
		return wrapErr("sqlite: updating project "+id, err)
	}
	return requireRow(res, "project", id)
}

func (s *projectStore) querySummaries(ctx context.Context, query string, args ...any) ([]model.ProjectSummary, error) {
	rows, err := s.db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("sqlite: listing projects", err)
	}
	defer rows.Close()

	out := []model.ProjectSummary{}
	for rows.Next() {
		var (
			p          model.ProjectSummary
			tech, tags string
			featured   int
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &tech, &p.Color, &p.Icon, &p.Difficulty,
			&p.EstimatedHours, &featured, &tags, &p.TotalFiles, &p.CreatedAt); err != nil {
			return nil, wrapErr("sqlite: scanning project", err)
		}
		p.Featured = featured == 1
		if err := fromJSON(tech, &p.Tech); err != nil {
			return nil, fmt.Errorf("sqlite: decoding tech of %s: %w", p.ID, err)
		}
		if err := fromJSON(tags, &p.Tags); err != nil {
			return nil, fmt.Errorf("sqlite: decoding tags of %s: %w", p.ID, err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("sqlite: iterating projects", err)
	}
	return out, nil
}
