// Package graph holds the Neo4j repository for the online load path:
// database clearing, schema setup, LOAD CSV loading and post-load
// validation. The offline bulk path never touches a live database and lives
// in internal/transform.
package graph

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"omop2neo4j/pkg/config"
	"omop2neo4j/pkg/errors"
	"omop2neo4j/pkg/logger"
)

// Repository handles all Neo4j database operations
type Repository struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewDriver creates and verifies a Neo4j driver from configuration.
func NewDriver(ctx context.Context, cfg *config.Config) (neo4j.DriverWithContext, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		return nil, errors.NewGraphConnectionFailed(cfg.Neo4jURI, err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, errors.NewGraphConnectionFailed(cfg.Neo4jURI, err)
	}
	return driver, nil
}

// NewRepository creates a new graph repository
func NewRepository(driver neo4j.DriverWithContext) *Repository {
	return &Repository{
		driver: driver,
		logger: logger.Get(),
	}
}

// Close closes the Neo4j driver connection
func (r *Repository) Close(ctx context.Context) error {
	return r.driver.Close(ctx)
}

// runQueries executes a list of Cypher statements in order. With
// ignoreErrors set, failures are logged and skipped (used for best-effort
// drops during clearing).
func (r *Repository) runQueries(ctx context.Context, queries []string, ignoreErrors bool) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	for _, query := range queries {
		r.logger.Info("Executing query", zap.String("query", truncate(query, 120)))
		if _, err := session.Run(ctx, query, nil); err != nil {
			if ignoreErrors {
				r.logger.Warn("Query failed, continuing", zap.String("query", truncate(query, 120)), zap.Error(err))
				continue
			}
			return errors.NewGraphQueryFailed(truncate(query, 120), err)
		}
	}
	return nil
}

// ClearDatabase drops all constraints and indexes, then deletes every node
// and relationship. Used before an online full reload.
func (r *Repository) ClearDatabase(ctx context.Context) error {
	r.logger.Info("Clearing database")

	constraints, err := r.collectNames(ctx, "SHOW CONSTRAINTS YIELD name")
	if err != nil {
		return err
	}
	indexes, err := r.collectNames(ctx, "SHOW INDEXES YIELD name")
	if err != nil {
		return err
	}

	var drops []string
	for _, name := range constraints {
		drops = append(drops, fmt.Sprintf("DROP CONSTRAINT %s", name))
	}
	for _, name := range indexes {
		drops = append(drops, fmt.Sprintf("DROP INDEX %s", name))
	}
	if len(drops) > 0 {
		if err := r.runQueries(ctx, drops, true); err != nil {
			return err
		}
	}

	if err := r.runQueries(ctx, []string{"MATCH (n) DETACH DELETE n"}, false); err != nil {
		return err
	}
	r.logger.Info("Database cleared")
	return nil
}

// CreateConstraintsAndIndexes creates the vocabulary graph schema: unique
// ids for Concept, Domain and Vocabulary, plus lookup indexes.
func (r *Repository) CreateConstraintsAndIndexes(ctx context.Context) error {
	r.logger.Info("Creating constraints and indexes")
	queries := []string{
		"CREATE CONSTRAINT constraint_concept_id IF NOT EXISTS " +
			"FOR (c:Concept) REQUIRE c.concept_id IS UNIQUE",
		"CREATE CONSTRAINT constraint_domain_id IF NOT EXISTS " +
			"FOR (d:Domain) REQUIRE d.domain_id IS UNIQUE",
		"CREATE CONSTRAINT constraint_vocabulary_id IF NOT EXISTS " +
			"FOR (v:Vocabulary) REQUIRE v.vocabulary_id IS UNIQUE",
		"CREATE INDEX index_concept_code IF NOT EXISTS " +
			"FOR (c:Concept) ON (c.concept_code)",
		"CREATE INDEX index_standard_label IF NOT EXISTS " +
			"FOR (c:Standard) ON (c.concept_id)",
	}
	if err := r.runQueries(ctx, queries, false); err != nil {
		return err
	}
	r.logger.Info("Constraints and indexes created")
	return nil
}

// LoadCSV performs the online full reload: verifies the export files exist,
// clears the database, creates the schema and runs the LOAD CSV statements
// in batched transactions.
func (r *Repository) LoadCSV(ctx context.Context, exportDir string, batchSize int) error {
	for _, name := range []string{
		"domain.csv", "vocabulary.csv", "concepts_optimized.csv",
		"concept_relationship.csv", "concept_ancestor.csv",
	} {
		path := filepath.Join(exportDir, name)
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("export file missing, run extract first: %s: %w", path, err)
		}
	}

	if err := r.ClearDatabase(ctx); err != nil {
		return err
	}
	if err := r.CreateConstraintsAndIndexes(ctx); err != nil {
		return err
	}

	r.logger.Info("Loading data via LOAD CSV", zap.Int("batch_size", batchSize))
	if err := r.runQueries(ctx, loadingQueries(batchSize), false); err != nil {
		return err
	}
	r.logger.Info("Online load complete")
	return nil
}

func (r *Repository) collectNames(ctx context.Context, query string) ([]string, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, query, nil)
	if err != nil {
		return nil, errors.NewGraphQueryFailed(query, err)
	}
	var names []string
	for result.Next(ctx) {
		if name := getString(result.Record(), "name", ""); name != "" {
			names = append(names, name)
		}
	}
	if err := result.Err(); err != nil {
		return nil, errors.NewGraphQueryFailed(query, err)
	}
	return names, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
