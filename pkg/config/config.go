package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"omop2neo4j/pkg/errors"
)

// Config holds all application configuration
type Config struct {
	// App
	Env     string
	LogFile string

	// PostgreSQL (OMOP source)
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	OMOPSchema       string

	// Neo4j
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string

	// ETL
	ExportDir               string
	LoadCSVBatchSize        int
	TransformationChunkSize int
	SynonymDelimiter        string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Env:                     getEnv("ENV", "development"),
		LogFile:                 getEnv("LOG_FILE", "omop2neo4j.log"),
		PostgresHost:            getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:            getEnvInt("POSTGRES_PORT", 5432),
		PostgresUser:            getEnv("POSTGRES_USER", "postgres"),
		PostgresPassword:        getEnv("POSTGRES_PASSWORD", ""),
		PostgresDB:              getEnv("POSTGRES_DB", "ohdsi"),
		OMOPSchema:              getEnv("OMOP_SCHEMA", ""),
		Neo4jURI:                getEnv("NEO4J_URI", "bolt://localhost:7687"),
		Neo4jUser:               getEnv("NEO4J_USER", "neo4j"),
		Neo4jPassword:           getEnv("NEO4J_PASSWORD", ""),
		Neo4jDatabase:           getEnv("NEO4J_DATABASE", "neo4j"),
		ExportDir:               getEnv("EXPORT_DIR", "export"),
		LoadCSVBatchSize:        getEnvInt("LOAD_CSV_BATCH_SIZE", 10000),
		TransformationChunkSize: getEnvInt("TRANSFORMATION_CHUNK_SIZE", 100000),
		SynonymDelimiter:        getEnv("SYNONYM_DELIMITER", "|"),
	}

	return cfg, nil
}

// ValidatePostgres checks that the settings required to reach the OMOP
// source database are set. Only the extract command needs these.
func (c *Config) ValidatePostgres() error {
	if c.PostgresPassword == "" {
		return errors.NewConfigMissingRequired("POSTGRES_PASSWORD")
	}
	if c.OMOPSchema == "" {
		return errors.NewConfigMissingRequired("OMOP_SCHEMA")
	}
	return nil
}

// ValidateNeo4j checks that the settings required to reach Neo4j are set.
func (c *Config) ValidateNeo4j() error {
	if c.Neo4jURI == "" {
		return errors.NewConfigMissingRequired("NEO4J_URI")
	}
	if c.Neo4jUser == "" {
		return errors.NewConfigMissingRequired("NEO4J_USER")
	}
	if c.Neo4jPassword == "" {
		return errors.NewConfigMissingRequired("NEO4J_PASSWORD")
	}
	return nil
}

// PostgresDSN builds the connection string for the OMOP source database.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s",
		c.PostgresUser, c.PostgresPassword, c.PostgresHost, c.PostgresPort, c.PostgresDB,
	)
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}
