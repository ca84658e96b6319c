package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileURI(t *testing.T) {
	assert.Equal(t, "file:///domain.csv", fileURI("domain.csv"))
	assert.Equal(t, "file:///concepts%20optimized.csv", fileURI("concepts optimized.csv"))
}

func TestLoadingQueries(t *testing.T) {
	queries := loadingQueries(5000)
	require.Len(t, queries, 5)

	// Metadata nodes load before concepts, concepts before relationships.
	assert.Contains(t, queries[0], "CREATE (d:Domain")
	assert.Contains(t, queries[1], "CREATE (v:Vocabulary")
	assert.Contains(t, queries[2], "CREATE (c:Concept")
	assert.Contains(t, queries[3], "apoc.create.relationship")
	assert.Contains(t, queries[4], "HAS_ANCESTOR")

	for i, q := range queries[2:] {
		assert.Contains(t, q, "IN TRANSACTIONS OF 5000 ROWS", "query %d", i+2)
	}

	// Dynamic labels and relationship types are sanitized in-database.
	assert.Contains(t, queries[2], "apoc.text.upperCamelCase")
	assert.Contains(t, queries[2], "SET c:Standard")
	assert.Contains(t, queries[3], "toupper")

	// Ancestry edges point from the ancestor to the descendant.
	ancestor := queries[4]
	assert.Less(t,
		strings.Index(ancestor, "row.ancestor_concept_id"),
		strings.Index(ancestor, "row.descendant_concept_id"))
	assert.Contains(t, ancestor, "CREATE (a)-[r:HAS_ANCESTOR]->(d)")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 120))
	long := strings.Repeat("x", 200)
	assert.Len(t, truncate(long, 120), 120)
}
