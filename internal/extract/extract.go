// Package extract exports the OMOP vocabulary tables from PostgreSQL to
// CSV files using COPY TO STDOUT, streaming rows from the server without
// needing server-side file access. The emitted files are the input contract
// of the transform package: stable headers, force-quoted values, empty
// fields for NULLs, ISO dates, and a "|"-aggregated synonym column.
package extract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"omop2neo4j/pkg/config"
	"omop2neo4j/pkg/errors"
	"omop2neo4j/pkg/logger"
)

// tableQueries maps output file names to their COPY statements. The concept
// query folds concept_synonym into a single delimited column so the
// transformer never has to join across files.
func tableQueries(schema string) map[string]string {
	return map[string]string{
		"concepts_optimized.csv": fmt.Sprintf(`
			COPY (
				SELECT
					c.concept_id, c.concept_name, c.domain_id, c.vocabulary_id,
					c.concept_class_id, c.standard_concept, c.concept_code,
					to_char(c.valid_start_date, 'YYYY-MM-DD') AS valid_start_date,
					to_char(c.valid_end_date, 'YYYY-MM-DD') AS valid_end_date,
					c.invalid_reason,
					string_agg(cs.concept_synonym_name, '|') AS synonyms
				FROM %[1]s.concept c
				LEFT JOIN %[1]s.concept_synonym cs ON c.concept_id = cs.concept_id
				GROUP BY
					c.concept_id, c.concept_name, c.domain_id, c.vocabulary_id,
					c.concept_class_id, c.standard_concept, c.concept_code,
					c.valid_start_date, c.valid_end_date, c.invalid_reason
			) TO STDOUT WITH CSV HEADER FORCE QUOTE *`, schema),
		"domain.csv":     fmt.Sprintf(`COPY (SELECT * FROM %s.domain) TO STDOUT WITH CSV HEADER FORCE QUOTE *`, schema),
		"vocabulary.csv": fmt.Sprintf(`COPY (SELECT * FROM %s.vocabulary) TO STDOUT WITH CSV HEADER FORCE QUOTE *`, schema),
		"concept_relationship.csv": fmt.Sprintf(`
			COPY (
				SELECT concept_id_1, concept_id_2, relationship_id,
					to_char(valid_start_date, 'YYYY-MM-DD') AS valid_start_date,
					to_char(valid_end_date, 'YYYY-MM-DD') AS valid_end_date,
					invalid_reason
				FROM %s.concept_relationship
			) TO STDOUT WITH CSV HEADER FORCE QUOTE *`, schema),
		"concept_ancestor.csv": fmt.Sprintf(`
			COPY (
				SELECT descendant_concept_id, ancestor_concept_id,
					min_levels_of_separation, max_levels_of_separation
				FROM %s.concept_ancestor
			) TO STDOUT WITH CSV HEADER FORCE QUOTE *`, schema),
	}
}

// ExportTables exports all vocabulary tables into cfg.ExportDir. Each table
// streams over its own connection; the outputs are independent files, so the
// exports run concurrently.
func ExportTables(ctx context.Context, cfg *config.Config) error {
	log := logger.Get()
	log.Info("Starting extraction from PostgreSQL",
		zap.String("database", cfg.PostgresDB),
		zap.String("schema", cfg.OMOPSchema),
		zap.String("export_dir", cfg.ExportDir),
	)

	if err := os.MkdirAll(cfg.ExportDir, 0o755); err != nil {
		return fmt.Errorf("creating export directory %s: %w", cfg.ExportDir, err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for filename, query := range tableQueries(cfg.OMOPSchema) {
		filename, query := filename, query
		g.Go(func() error {
			return exportTable(ctx, cfg, filename, query)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Extraction complete")
	return nil
}

func exportTable(ctx context.Context, cfg *config.Config, filename, query string) error {
	log := logger.Get()
	conn, err := pgx.Connect(ctx, cfg.PostgresDSN())
	if err != nil {
		return errors.NewExtractFailed(filename, fmt.Errorf("connecting to PostgreSQL: %w", err))
	}
	defer conn.Close(ctx)

	outPath := filepath.Join(cfg.ExportDir, filename)
	f, err := os.Create(outPath)
	if err != nil {
		return errors.NewExtractFailed(filename, err)
	}
	defer f.Close()

	log.Info("Exporting table", zap.String("file", outPath))
	if _, err := conn.PgConn().CopyTo(ctx, f, query); err != nil {
		return errors.NewExtractFailed(filename, err)
	}
	if err := f.Close(); err != nil {
		return errors.NewExtractFailed(filename, err)
	}
	log.Info("Export finished", zap.String("file", outPath))
	return nil
}
