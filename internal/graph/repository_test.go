package graph

import (
	"context"
	"os"
	"testing"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Integration tests require a running Neo4j instance.
// Set NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD environment variables.
func TestRepository_ClearAndSchema(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	driver := createTestDriver(t, ctx)
	defer driver.Close(ctx)

	repo := NewRepository(driver)

	if err := repo.ClearDatabase(ctx); err != nil {
		t.Fatalf("ClearDatabase failed: %v", err)
	}
	if err := repo.CreateConstraintsAndIndexes(ctx); err != nil {
		t.Fatalf("CreateConstraintsAndIndexes failed: %v", err)
	}

	// The schema statements are idempotent.
	if err := repo.CreateConstraintsAndIndexes(ctx); err != nil {
		t.Fatalf("CreateConstraintsAndIndexes second run failed: %v", err)
	}

	constraints, err := repo.collectNames(ctx, "SHOW CONSTRAINTS YIELD name")
	if err != nil {
		t.Fatalf("listing constraints failed: %v", err)
	}
	if len(constraints) < 3 {
		t.Errorf("Expected at least 3 constraints, got %d", len(constraints))
	}
}

func TestRepository_ValidationOnEmptyDatabase(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test")
	}

	ctx := context.Background()
	driver := createTestDriver(t, ctx)
	defer driver.Close(ctx)

	repo := NewRepository(driver)
	if err := repo.ClearDatabase(ctx); err != nil {
		t.Fatalf("ClearDatabase failed: %v", err)
	}

	report, err := repo.RunValidation(ctx, DefaultSampleConceptID)
	if err != nil {
		t.Fatalf("RunValidation failed: %v", err)
	}
	if len(report.NodeCountsByLabelCombination) != 0 {
		t.Errorf("Expected no node counts on an empty database, got %v", report.NodeCountsByLabelCombination)
	}
	if report.SampleConcept != nil {
		t.Errorf("Expected no sample concept on an empty database, got %+v", report.SampleConcept)
	}
}

func createTestDriver(t *testing.T, ctx context.Context) neo4j.DriverWithContext {
	t.Helper()

	uri := os.Getenv("NEO4J_URI")
	if uri == "" {
		uri = "bolt://localhost:7687"
	}
	user := os.Getenv("NEO4J_USER")
	if user == "" {
		user = "neo4j"
	}
	password := os.Getenv("NEO4J_PASSWORD")
	if password == "" {
		password = "password"
	}

	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		t.Fatalf("Failed to create driver: %v", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		t.Skipf("Neo4j not reachable at %s: %v", uri, err)
	}
	return driver
}
