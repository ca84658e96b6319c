package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"omop2neo4j/pkg/config"
	"omop2neo4j/pkg/logger"
)

var (
	cfg   *config.Config
	runID string
)

var rootCmd = &cobra.Command{
	Use:   "omop2neo4j",
	Short: "Migrate the OMOP vocabulary from PostgreSQL to a Neo4j property graph",
	Long: "omop2neo4j extracts the OMOP CDM vocabulary tables to CSV, transforms them\n" +
		"into neo4j-admin bulk import files (or loads them online via LOAD CSV), and\n" +
		"validates the resulting graph.",
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("loading configuration: %w", err)
		}
		if err := logger.Init(cfg.Env, cfg.LogFile); err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		runID = uuid.NewString()
		logger.Get().Info("Configuration loaded",
			zap.String("run_id", runID),
			zap.String("command", cmd.Name()),
		)
		return nil
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		logger.Sync()
	}
}
