// Package graph mirrors template dependency graphs into Neo4j.
//
// Each template becomes a :Template node with one :File node per file in
// its tree (linked by :HAS_FILE) and a :DEPENDS_ON relationship per
// dependency whose ends both exist. A projection replaces whatever the
// template had before.
package graph

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/saulfrancisco-ruizacevedo/gocypher"

	"github.com/sakif/code-compass/internal/filetree"
	"github.com/sakif/code-compass/internal/model"
)

// Runner executes one Cypher statement and buffers its result.
type Runner interface {
	Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error)
}

// Options locate a Neo4j database.
type Options struct {
	URI      string
	Username string
	Password string
	Database string
}

// Neo4jRunner is a Runner backed by the official driver.
type Neo4jRunner struct {
	driver   neo4j.DriverWithContext
	database string
}

// Connect opens a driver and verifies it can reach the server.
func Connect(ctx context.Context, opts Options) (*Neo4jRunner, error) {
	driver, err := neo4j.NewDriverWithContext(opts.URI, neo4j.BasicAuth(opts.Username, opts.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("graph: creating neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("graph: connecting to %s: %w", opts.URI, err)
	}
	return &Neo4jRunner{driver: driver, database: opts.Database}, nil
}

func (r *Neo4jRunner) Run(ctx context.Context, query string, params map[string]any) (*neo4j.EagerResult, error) {
	result, err := neo4j.ExecuteQuery(ctx, r.driver, query, params,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(r.database),
	)
	if err != nil {
		return nil, fmt.Errorf("graph: executing query: %w", err)
	}
	return result, nil
}

func (r *Neo4jRunner) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

// Projector writes template graphs through a Runner.
type Projector struct {
	runner Runner
	logger *slog.Logger
}

func NewProjector(runner Runner, logger *slog.Logger) *Projector {
	return &Projector{runner: runner, logger: logger}
}

type statement struct {
	query  string
	params map[string]any
}

// ProjectTemplate replaces the graph stored for t. Statements run one at a
// time; the first failure stops the projection and is returned.
func (p *Projector) ProjectTemplate(ctx context.Context, t *model.Template) error {
	stmts, err := projectStatements(t)
	if err != nil {
		return err
	}
	if err := p.run(ctx, stmts); err != nil {
		return err
	}
	p.logger.Debug("projected template graph",
		slog.String("templateID", t.ID),
		slog.Int("statements", len(stmts)),
	)
	return nil
}

// RemoveTemplate deletes the template node and its files.
func (p *Projector) RemoveTemplate(ctx context.Context, templateID string) error {
	stmts, err := removeStatements(templateID)
	if err != nil {
		return err
	}
	return p.run(ctx, stmts)
}

func (p *Projector) run(ctx context.Context, stmts []statement) error {
	for _, s := range stmts {
		if _, err := p.runner.Run(ctx, s.query, s.params); err != nil {
			return err
		}
	}
	return nil
}

func removeStatements(templateID string) ([]statement, error) {
	files, err := build(gocypher.NewQueryBuilder().
		Match(gocypher.N("f", "File").WithProperties(map[string]any{"templateId": templateID})).
		DetachDelete("f"))
	if err != nil {
		return nil, err
	}
	tmpl, err := build(gocypher.NewQueryBuilder().
		Match(gocypher.N("t", "Template").WithProperties(map[string]any{"id": templateID})).
		DetachDelete("t"))
	if err != nil {
		return nil, err
	}
	return []statement{files, tmpl}, nil
}

func projectStatements(t *model.Template) ([]statement, error) {
	// Only the file nodes are cleared; the template node itself is merged
	// so its identity survives re-projection.
	reset, err := build(gocypher.NewQueryBuilder().
		Match(gocypher.N("f", "File").WithProperties(map[string]any{"templateId": t.ID})).
		DetachDelete("f"))
	if err != nil {
		return nil, err
	}
	stmts := []statement{reset}

	tmpl, err := build(gocypher.NewQueryBuilder().
		Merge(gocypher.N("t", "Template").WithProperties(map[string]any{"id": t.ID})).
		Set(map[string]any{
			"t.name":       t.Name,
			"t.slug":       t.Slug,
			"t.category":   string(t.Category),
			"t.difficulty": string(t.Difficulty),
		}))
	if err != nil {
		return nil, err
	}
	stmts = append(stmts, tmpl)

	paths := make(map[string]struct{})
	for f := range filetree.Files(t.FileStructure) {
		paths[f.Path] = struct{}{}
		s, err := build(gocypher.NewQueryBuilder().
			Match(gocypher.N("t", "Template").WithProperties(map[string]any{"id": t.ID})).
			Create(
				gocypher.NRef("t"),
				gocypher.R("h", "HAS_FILE").To(),
				gocypher.N("f", "File").WithProperties(map[string]any{
					"templateId": t.ID,
					"nodeId":     f.ID,
					"path":       f.Path,
					"name":       f.Name,
					"order":      int64(f.Order),
					"tool":       f.Tool,
				}),
			))
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}

	for _, d := range t.Dependencies {
		_, fromOK := paths[d.From]
		_, toOK := paths[d.To]
		if !fromOK || !toOK {
			continue
		}
		s, err := build(gocypher.NewQueryBuilder().
			Match(gocypher.N("a", "File").WithProperties(map[string]any{"templateId": t.ID, "path": d.From})).
			Match(gocypher.N("b", "File").WithProperties(map[string]any{"templateId": t.ID, "path": d.To})).
			Create(
				gocypher.NRef("a"),
				gocypher.R("r", "DEPENDS_ON").To().WithProperties(map[string]any{
					"type":        string(d.Type),
					"description": d.Description,
				}),
				gocypher.NRef("b"),
			))
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return stmts, nil
}

func build(qb *gocypher.QueryBuilder) (statement, error) {
	query, params, err := qb.Build()
	if err != nil {
		return statement{}, fmt.Errorf("graph: building query: %w", err)
	}
	return statement{query: query, params: params}, nil
}
