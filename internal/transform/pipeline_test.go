package transform

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omop2neo4j/pkg/errors"
)

type fixture struct {
	domains       [][]string
	vocabularies  [][]string
	concepts      [][]string
	relationships [][]string
	ancestors     [][]string
}

// defaultFixture is a small but complete vocabulary slice: two standard
// concepts, one non-standard one, a semantic edge in each direction of the
// mapping, and one ancestry row.
func defaultFixture() fixture {
	return fixture{
		domains: [][]string{
			{"domain_id", "domain_name", "domain_concept_id"},
			{"Drug", "Drug", "13"},
			{"Condition", "Condition", "19"},
		},
		vocabularies: [][]string{
			{"vocabulary_id", "vocabulary_name", "vocabulary_reference", "vocabulary_version", "vocabulary_concept_id"},
			{"RxNorm", "RxNorm (NLM)", "http://www.nlm.nih.gov/research/umls/rxnorm", "20240101", "44819104"},
			{"SNOMED", "SNOMED CT", "http://www.snomed.org", "2024-01-31", "44819097"},
		},
		concepts: [][]string{
			{"concept_id", "concept_name", "domain_id", "vocabulary_id", "concept_class_id",
				"standard_concept", "concept_code", "invalid_reason",
				"valid_start_date", "valid_end_date", "synonyms"},
			{"1001", "Aspirin", "Drug", "RxNorm", "Ingredient", "S", "1191", "",
				"1970-01-01", "2099-12-31", "acetylsalicylic acid"},
			{"1002", "Headache", "Condition", "SNOMED", "Clinical Finding", "S", "25064002", "",
				"1970-01-01", "2099-12-31", ""},
			{"1003", "Pain Killer", "Drug", "RxNorm", "Ingredient", "", "999", "",
				"1970-01-01", "2099-12-31", "pain reliever|analgesic"},
		},
		relationships: [][]string{
			{"concept_id_1", "concept_id_2", "relationship_id",
				"valid_start_date", "valid_end_date", "invalid_reason"},
			{"1001", "1002", "treats", "1970-01-01", "2099-12-31", ""},
			{"1003", "1001", "maps to", "1970-01-01", "2099-12-31", ""},
		},
		ancestors: [][]string{
			{"ancestor_concept_id", "descendant_concept_id",
				"min_levels_of_separation", "max_levels_of_separation"},
			{"1003", "1001", "1", "1"},
		},
	}
}

func writeCSV(t *testing.T, path string, rows [][]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	w := csv.NewWriter(f)
	require.NoError(t, w.WriteAll(rows))
	require.NoError(t, f.Close())
}

func writeSourceDir(t *testing.T, fx fixture) string {
	t.Helper()
	dir := t.TempDir()
	writeCSV(t, filepath.Join(dir, srcDomains), fx.domains)
	writeCSV(t, filepath.Join(dir, srcVocabularies), fx.vocabularies)
	writeCSV(t, filepath.Join(dir, srcConcepts), fx.concepts)
	writeCSV(t, filepath.Join(dir, srcRelationship), fx.relationships)
	writeCSV(t, filepath.Join(dir, srcAncestor), fx.ancestors)
	return dir
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func runPipeline(t *testing.T, srcDir string, mutate func(*Options)) (*Result, string, error) {
	t.Helper()
	importDir := filepath.Join(t.TempDir(), "bulk_import")
	opts := Options{
		SourceDir: srcDir,
		ImportDir: importDir,
		ChunkSize: 2,
		RunID:     "test-run",
	}
	if mutate != nil {
		mutate(&opts)
	}
	res, err := PrepareBulkImport(opts)
	return res, importDir, err
}

func TestPrepareBulkImport(t *testing.T) {
	srcDir := writeSourceDir(t, defaultFixture())
	res, importDir, err := runPipeline(t, srcDir, nil)
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Zero(t, res.TotalSkipped)

	concepts := readCSV(t, filepath.Join(importDir, outConceptNodes))
	require.Len(t, concepts, 4)
	assert.Equal(t, conceptHeader, concepts[0])
	assert.Equal(t, "concept_id:ID(concept-id)", concepts[0][0])

	byID := make(map[string][]string)
	for _, row := range concepts[1:] {
		byID[row[0]] = row
	}
	require.Contains(t, byID, "1001")
	assert.Equal(t, "Concept;Drug;Standard", byID["1001"][10])
	assert.Equal(t, "acetylsalicylic acid", byID["1001"][9])
	assert.Equal(t, "Concept;Condition;Standard", byID["1002"][10])
	assert.Equal(t, "Concept;Drug", byID["1003"][10])
	assert.Equal(t, "pain reliever|analgesic", byID["1003"][9])

	semantic := readCSV(t, filepath.Join(importDir, outSemanticRels))
	require.Len(t, semantic, 3)
	assert.Equal(t, ":START_ID(concept-id)", semantic[0][0])
	assert.Equal(t, []string{"1001", "1002", "1970-01-01", "2099-12-31", "", "TREATS"}, semantic[1])
	assert.Equal(t, []string{"1003", "1001", "1970-01-01", "2099-12-31", "", "MAPS_TO"}, semantic[2])

	ancestors := readCSV(t, filepath.Join(importDir, outAncestorRels))
	require.Len(t, ancestors, 2)
	assert.Equal(t, []string{"1003", "1001", "1", "1", "HAS_ANCESTOR"}, ancestors[1])

	inDomain := readCSV(t, filepath.Join(importDir, outInDomainRels))
	require.Len(t, inDomain, 4)
	assert.Equal(t, []string{"1001", "Drug", "IN_DOMAIN"}, inDomain[1])

	fromVocab := readCSV(t, filepath.Join(importDir, outFromVocabRels))
	require.Len(t, fromVocab, 4)
	assert.Equal(t, []string{"1002", "SNOMED", "FROM_VOCABULARY"}, fromVocab[2])

	assert.Contains(t, res.Command, "--nodes='nodes_concept.csv'")
	assert.Contains(t, res.Command, "--relationships='rels_ancestor.csv'")
	assert.Contains(t, res.Command, "--array-delimiter='|'")

	require.FileExists(t, res.ManifestPath)
	assert.Equal(t, "test-run", res.Manifest.RunID)
	assert.Len(t, res.Manifest.Files, 7)
	assert.ElementsMatch(t,
		[]GroupID{GroupConcept, GroupDomain, GroupVocabulary},
		res.Manifest.NodeGroups())
}

func TestPrepareBulkImport_ChunkSizeTransparent(t *testing.T) {
	srcDir := writeSourceDir(t, defaultFixture())

	_, smallDir, err := runPipeline(t, srcDir, func(o *Options) { o.ChunkSize = 1 })
	require.NoError(t, err)
	_, largeDir, err := runPipeline(t, srcDir, func(o *Options) { o.ChunkSize = 100000 })
	require.NoError(t, err)

	for _, name := range []string{
		outConceptNodes, outDomainNodes, outVocabularyNodes,
		outInDomainRels, outFromVocabRels, outSemanticRels, outAncestorRels,
	} {
		small, err := os.ReadFile(filepath.Join(smallDir, name))
		require.NoError(t, err)
		large, err := os.ReadFile(filepath.Join(largeDir, name))
		require.NoError(t, err)
		assert.Equal(t, string(large), string(small), "file %s", name)
	}
}

func TestPrepareBulkImport_DanglingReference(t *testing.T) {
	fx := defaultFixture()
	fx.relationships = append(fx.relationships,
		[]string{"1001", "9999", "treats", "1970-01-01", "2099-12-31", ""})
	srcDir := writeSourceDir(t, fx)

	_, _, err := runPipeline(t, srcDir, nil)
	var dangling *errors.DanglingReferenceError
	require.ErrorAs(t, err, &dangling)
	assert.Equal(t, "9999", dangling.ID)

	// Lenient mode only forgives malformed rows, never broken identity.
	_, _, err = runPipeline(t, srcDir, func(o *Options) { o.Lenient = true })
	require.ErrorAs(t, err, &dangling)
}

func TestPrepareBulkImport_DuplicateConceptID(t *testing.T) {
	fx := defaultFixture()
	fx.concepts = append(fx.concepts,
		[]string{"1001", "Aspirin Again", "Drug", "RxNorm", "Ingredient", "S", "1191", "",
			"1970-01-01", "2099-12-31", ""})
	srcDir := writeSourceDir(t, fx)

	_, _, err := runPipeline(t, srcDir, func(o *Options) { o.Lenient = true })
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrorTypeIdentity))
}

func TestPrepareBulkImport_RowPolicy(t *testing.T) {
	fx := defaultFixture()
	fx.concepts = append(fx.concepts,
		[]string{"1004", "Broken", "Drug", "RxNorm", "Ingredient", "", "0", "",
			"not-a-date", "2099-12-31", ""})
	srcDir := writeSourceDir(t, fx)

	// Strict runs abort on the first malformed row.
	_, _, err := runPipeline(t, srcDir, nil)
	var rowErr *errors.RowParseError
	require.ErrorAs(t, err, &rowErr)
	assert.Equal(t, "valid_start_date", rowErr.Field)

	// Lenient runs skip it, count it, and leave no trace of it downstream.
	res, importDir, err := runPipeline(t, srcDir, func(o *Options) { o.Lenient = true })
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.SkippedRows[srcConcepts])
	assert.Equal(t, int64(1), res.TotalSkipped)

	concepts := readCSV(t, filepath.Join(importDir, outConceptNodes))
	assert.Len(t, concepts, 4)
	inDomain := readCSV(t, filepath.Join(importDir, outInDomainRels))
	assert.Len(t, inDomain, 4)
}

func TestPrepareBulkImport_MissingSourceFile(t *testing.T) {
	fx := defaultFixture()
	srcDir := writeSourceDir(t, fx)
	require.NoError(t, os.Remove(filepath.Join(srcDir, srcAncestor)))

	_, importDir, err := runPipeline(t, srcDir, nil)
	require.Error(t, err)
	assert.NoDirExists(t, importDir)
}
