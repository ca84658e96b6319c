package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"omop2neo4j/internal/extract"
	"omop2neo4j/internal/graph"
	"omop2neo4j/internal/transform"
	"omop2neo4j/pkg/logger"
)

func init() {
	rootCmd.AddCommand(
		extractCmd(),
		prepareBulkCmd(),
		loadCSVCmd(),
		clearDBCmd(),
		createIndexesCmd(),
		validateCmd(),
	)
}

func extractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract",
		Short: "Export the OMOP vocabulary tables from PostgreSQL to CSV files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.ValidatePostgres(); err != nil {
				return err
			}
			return extract.ExportTables(cmd.Context(), cfg)
		},
	}
}

func prepareBulkCmd() *cobra.Command {
	var (
		chunkSize int
		importDir string
		lenient   bool
	)
	cmd := &cobra.Command{
		Use:   "prepare-bulk",
		Short: "Prepare node and relationship files for the offline neo4j-admin import",
		Long: "Transforms the extracted CSVs into neo4j-admin import files, streaming each\n" +
			"source in bounded row windows, and prints the import command to run while the\n" +
			"database is stopped. This is the recommended path for full vocabularies.",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.Get()
			if chunkSize <= 0 {
				chunkSize = cfg.TransformationChunkSize
			}
			result, err := transform.PrepareBulkImport(transform.Options{
				SourceDir:        cfg.ExportDir,
				ImportDir:        importDir,
				ChunkSize:        chunkSize,
				SynonymDelimiter: cfg.SynonymDelimiter,
				Lenient:          lenient,
				DatabaseName:     cfg.Neo4jDatabase,
				RunID:            runID,
			})
			if err != nil {
				return err
			}
			if result.TotalSkipped > 0 {
				log.Warn("Rows were skipped in lenient mode",
					zap.Int64("total_skipped", result.TotalSkipped),
					zap.Any("by_file", result.SkippedRows),
				)
			}
			fmt.Println("--- Neo4j-Admin Import Command ---")
			fmt.Println("1. Stop the Neo4j database service.")
			fmt.Println("2. Run the following command from your terminal:")
			fmt.Println()
			fmt.Println(result.Command)
			fmt.Println()
			fmt.Println("3. After the import is complete, start the Neo4j service.")
			fmt.Println("4. Run `omop2neo4j create-indexes` to build the database schema.")
			log.Info("Manifest written", zap.String("path", result.ManifestPath))
			return nil
		},
	}
	cmd.Flags().IntVar(&chunkSize, "chunk-size", 0, "rows to process per chunk (default TRANSFORMATION_CHUNK_SIZE)")
	cmd.Flags().StringVar(&importDir, "import-dir", "bulk_import", "directory for the formatted neo4j-admin files")
	cmd.Flags().BoolVar(&lenient, "lenient", false, "skip and count malformed rows instead of aborting")
	return cmd
}

func loadCSVCmd() *cobra.Command {
	var batchSize int
	cmd := &cobra.Command{
		Use:   "load-csv",
		Short: "Load the extracted CSVs into Neo4j online via LOAD CSV (full reload)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.ValidateNeo4j(); err != nil {
				return err
			}
			ctx := cmd.Context()
			driver, err := graph.NewDriver(ctx, cfg)
			if err != nil {
				return err
			}
			repo := graph.NewRepository(driver)
			defer repo.Close(ctx)

			size := batchSize
			if size <= 0 {
				size = cfg.LoadCSVBatchSize
			}
			return repo.LoadCSV(ctx, cfg.ExportDir, size)
		},
	}
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "override LOAD_CSV_BATCH_SIZE")
	return cmd
}

func clearDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-db",
		Short: "Delete all nodes, relationships, constraints and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.ValidateNeo4j(); err != nil {
				return err
			}
			ctx := cmd.Context()
			driver, err := graph.NewDriver(ctx, cfg)
			if err != nil {
				return err
			}
			repo := graph.NewRepository(driver)
			defer repo.Close(ctx)
			return repo.ClearDatabase(ctx)
		},
	}
}

func createIndexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-indexes",
		Short: "Create the vocabulary graph constraints and indexes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.ValidateNeo4j(); err != nil {
				return err
			}
			ctx := cmd.Context()
			driver, err := graph.NewDriver(ctx, cfg)
			if err != nil {
				return err
			}
			repo := graph.NewRepository(driver)
			defer repo.Close(ctx)
			return repo.CreateConstraintsAndIndexes(ctx)
		},
	}
}

func validateCmd() *cobra.Command {
	var sampleConceptID int64
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Run validation checks against the loaded graph and print a JSON report",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.ValidateNeo4j(); err != nil {
				return err
			}
			ctx := cmd.Context()
			driver, err := graph.NewDriver(ctx, cfg)
			if err != nil {
				return err
			}
			repo := graph.NewRepository(driver)
			defer repo.Close(ctx)

			report, err := repo.RunValidation(ctx, sampleConceptID)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().Int64Var(&sampleConceptID, "sample-concept-id", graph.DefaultSampleConceptID,
		"concept id used for the structural sample check")
	return cmd
}
