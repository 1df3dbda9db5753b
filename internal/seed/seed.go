// Package seed loads catalog content from YAML files and writes it
// through the services, so seeded data passes the same validation and
// slug rules as content created over the API.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/sakif/code-compass/internal/apperror"
	"github.com/sakif/code-compass/internal/model"
	"github.com/sakif/code-compass/internal/service"
)

// Bundle is the merged content of every seed file in a directory.
type Bundle struct {
	Templates []model.Template     `yaml:"templates"`
	Projects  []model.Project      `yaml:"projects"`
	Glossary  []model.GlossaryTerm `yaml:"glossary"`
}

// Load decodes every *.yaml and *.yml file at the top of fsys in name
// order. Unknown keys are an error.
func Load(fsys fs.FS) (*Bundle, error) {
	var names []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := fs.Glob(fsys, pattern)
		if err != nil {
			return nil, fmt.Errorf("seed: listing %s: %w", pattern, err)
		}
		names = append(names, matches...)
	}
	slices.Sort(names)

	var out Bundle
	for _, name := range names {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, fmt.Errorf("seed: reading %s: %w", name, err)
		}
		b, err := decode(raw)
		if err != nil {
			return nil, fmt.Errorf("seed: %s: %w", path.Base(name), err)
		}
		out.Templates = append(out.Templates, b.Templates...)
		out.Projects = append(out.Projects, b.Projects...)
		out.Glossary = append(out.Glossary, b.Glossary...)
	}
	return &out, nil
}

// decode reads every document in raw; a file may hold several separated
// by "---".
func decode(raw []byte) (*Bundle, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)

	var out Bundle
	for {
		var doc Bundle
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return &out, nil
		}
		if err != nil {
			return nil, err
		}
		out.Templates = append(out.Templates, doc.Templates...)
		out.Projects = append(out.Projects, doc.Projects...)
		out.Glossary = append(out.Glossary, doc.Glossary...)
	}
}

// Targets are the services seeded content is written through.
type Targets struct {
	Catalog  *service.CatalogService
	Projects *service.ProjectService
	Glossary *service.GlossaryService
}

// Report counts what Apply did. Skipped entries already existed.
type Report struct {
	TemplatesCreated int
	TemplatesSkipped int
	ProjectsCreated  int
	ProjectsSkipped  int
	TermsCreated     int
	TermsSkipped     int
}

// Apply writes b through t. Entries that conflict with existing content
// are skipped, so seeding twice is harmless. Any other error stops the run.
func Apply(ctx context.Context, b *Bundle, t Targets, logger *slog.Logger) (Report, error) {
	var r Report

	for _, tmpl := range b.Templates {
		created, err := skipConflict(t.Catalog.Create(ctx, templateInput(tmpl), "seed"))
		if err != nil {
			return r, fmt.Errorf("seed: template %q: %w", tmpl.Name, err)
		}
		if created {
			r.TemplatesCreated++
		} else {
			r.TemplatesSkipped++
			logger.Debug("template already seeded", slog.String("name", tmpl.Name))
		}
	}

	for _, p := range b.Projects {
		created, err := skipConflict(t.Projects.Create(ctx, projectInput(p)))
		if err != nil {
			return r, fmt.Errorf("seed: project %q: %w", p.Name, err)
		}
		if created {
			r.ProjectsCreated++
		} else {
			r.ProjectsSkipped++
			logger.Debug("project already seeded", slog.String("id", p.ID))
		}
	}

	for _, term := range b.Glossary {
		created, err := skipConflict(t.Glossary.Create(ctx, glossaryInput(term)))
		if err != nil {
			return r, fmt.Errorf("seed: glossary term %q: %w", term.Term, err)
		}
		if created {
			r.TermsCreated++
		} else {
			r.TermsSkipped++
		}
	}

	logger.Info("seed applied",
		slog.Int("templatesCreated", r.TemplatesCreated),
		slog.Int("templatesSkipped", r.TemplatesSkipped),
		slog.Int("projectsCreated", r.ProjectsCreated),
		slog.Int("projectsSkipped", r.ProjectsSkipped),
		slog.Int("termsCreated", r.TermsCreated),
		slog.Int("termsSkipped", r.TermsSkipped),
	)
	return r, nil
}

func skipConflict[T any](_ T, err error) (bool, error) {
	if errors.Is(err, apperror.ErrConflict) {
		return false, nil
	}
	return err == nil, err
}

func templateInput(t model.Template) service.TemplateInput {
	published := t.IsPublished
	return service.TemplateInput{
		Name:          t.Name,
		Slug:          t.Slug,
		Description:   t.Description,
		Category:      t.Category,
		Difficulty:    t.Difficulty,
		Tags:          t.Tags,
		FileStructure: t.FileStructure,
		Dependencies:  t.Dependencies,
		CodeFlow:      t.CodeFlow,
		Metadata:      t.Metadata,
		IsPublished:   &published,
	}
}

func projectInput(p model.Project) service.ProjectInput {
	return service.ProjectInput{
		ID:                 p.ID,
		Name:               p.Name,
		Description:        p.Description,
		Tech:               p.Tech,
		Color:              p.Color,
		Icon:               p.Icon,
		Difficulty:         p.Difficulty,
		EstimatedHours:     p.EstimatedHours,
		FileStructure:      p.FileStructure,
		CodeFlow:           p.CodeFlow,
		Dependencies:       p.Dependencies,
		SetupInstructions:  p.SetupInstructions,
		Featured:           p.Featured,
		Tags:               p.Tags,
		Prerequisites:      p.Prerequisites,
		LearningObjectives: p.LearningObjectives,
	}
}

func glossaryInput(g model.GlossaryTerm) service.GlossaryInput {
	return service.GlossaryInput{
		Term:         g.Term,
		Definition:   g.Definition,
		Category:     g.Category,
		Difficulty:   g.Difficulty,
		Examples:     g.Examples,
		RelatedTerms: g.RelatedTerms,
		Tags:         g.Tags,
	}
}
