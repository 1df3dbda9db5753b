package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sakif/code-compass/internal/seed"
	"github.com/sakif/code-compass/internal/service"
	"github.com/sakif/code-compass/internal/validate"
)

func newSeedCmd(load loadFunc) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load templates, projects and glossary terms from YAML files",
		Long: "Load every *.yaml file in the seed directory. Existing entries " +
			"(same slug or term) are skipped, so the command can be re-run.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.Seed.Dir
			}

			bundle, err := seed.Load(os.DirFS(dir))
			if err != nil {
				logger.Error("reading seed files", slog.String("dir", dir), slog.String("error", err.Error()))
				return err
			}

			db, err := openDatabase(cfg.Database, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			v := validate.New()
			report, err := seed.Apply(cmd.Context(), bundle, seed.Targets{
				Catalog:  service.NewCatalogService(db.Templates(), nil, v, logger),
				Projects: service.NewProjectService(db.Projects(), v, logger),
				Glossary: service.NewGlossaryService(db.Glossary(), v, logger),
			}, logger)
			if err != nil {
				logger.Error("seeding failed", slog.String("error", err.Error()))
				return err
			}

			logger.Info("seed complete",
				slog.String("dir", dir),
				slog.Int("templatesCreated", report.TemplatesCreated),
				slog.Int("templatesSkipped", report.TemplatesSkipped),
				slog.Int("projectsCreated", report.ProjectsCreated),
				slog.Int("projectsSkipped", report.ProjectsSkipped),
				slog.Int("termsCreated", report.TermsCreated),
				slog.Int("termsSkipped", report.TermsSkipped),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "seed directory (default SEED_DIR)")
	return cmd
}
