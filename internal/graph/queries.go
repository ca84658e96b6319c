package graph

import (
	"fmt"
	"net/url"
)

// fileURI builds the file URL for a CSV name relative to the Neo4j import
// directory; the operator mounts the export directory there.
func fileURI(filename string) string {
	return "file:///" + url.PathEscape(filename)
}

// loadingQueries returns the full set of LOAD CSV statements for the online
// path, in dependency order: metadata nodes, concepts (with dynamic labels
// and membership edges), then semantic and ancestry relationships.
// Dynamic labels and relationship types are sanitized in-database with the
// same character grammar the transform package applies offline.
func loadingQueries(batchSize int) []string {
	loadDomains := fmt.Sprintf(`
	LOAD CSV WITH HEADERS FROM '%s' AS row
	CREATE (d:Domain {
		domain_id: row.domain_id,
		name: row.domain_name,
		concept_id: toInteger(row.domain_concept_id)
	});`, fileURI("domain.csv"))

	loadVocabularies := fmt.Sprintf(`
	LOAD CSV WITH HEADERS FROM '%s' AS row
	CREATE (v:Vocabulary {
		vocabulary_id: row.vocabulary_id,
		name: row.vocabulary_name,
		concept_id: toInteger(row.vocabulary_concept_id),
		vocabulary_reference: row.vocabulary_reference,
		vocabulary_version: row.vocabulary_version
	});`, fileURI("vocabulary.csv"))

	loadConcepts := fmt.Sprintf(`
	CALL {
		LOAD CSV WITH HEADERS FROM '%s' AS row
		CREATE (c:Concept {
			concept_id: toInteger(row.concept_id),
			name: row.concept_name,
			domain_id: row.domain_id,
			vocabulary_id: row.vocabulary_id,
			concept_class_id: row.concept_class_id,
			standard_concept: row.standard_concept,
			concept_code: row.concept_code,
			valid_start_date: date(row.valid_start_date),
			valid_end_date: date(row.valid_end_date),
			invalid_reason: row.invalid_reason,
			synonyms: CASE
				WHEN row.synonyms IS NOT NULL THEN split(row.synonyms, '|')
				ELSE []
			END
		})
		WITH c, row
		WITH c, row, apoc.text.upperCamelCase(
			apoc.text.regreplace(row.domain_id, '[^A-Za-z0-9]+', ' ')
		) AS standardizedLabel
		CALL apoc.create.addLabels(c, [standardizedLabel]) YIELD node
		WITH c, row
		FOREACH (x IN CASE WHEN row.standard_concept = 'S' THEN [1] ELSE [] END |
			SET c:Standard
		)
		WITH c, row
		MATCH (d:Domain {domain_id: row.domain_id})
		CREATE (c)-[:IN_DOMAIN]->(d)
		WITH c, row
		MATCH (v:Vocabulary {vocabulary_id: row.vocabulary_id})
		CREATE (c)-[:FROM_VOCABULARY]->(v)
	} IN TRANSACTIONS OF %d ROWS;`, fileURI("concepts_optimized.csv"), batchSize)

	loadRelationships := fmt.Sprintf(`
	CALL {
		LOAD CSV WITH HEADERS FROM '%s' AS row
		MATCH (c1:Concept {concept_id: toInteger(row.concept_id_1)})
		MATCH (c2:Concept {concept_id: toInteger(row.concept_id_2)})
		WITH c1, c2, row,
			toupper(
				apoc.text.replace(row.relationship_id, '[^A-Za-z0-9_]+', '_')
			) AS relType
		CALL apoc.create.relationship(c1, relType, {
			valid_start: date(row.valid_start_date),
			valid_end: date(row.valid_end_date),
			invalid_reason: row.invalid_reason
		}, c2) YIELD rel
		RETURN count(rel) AS count
	} IN TRANSACTIONS OF %d ROWS
	RETURN "relationships loaded";`, fileURI("concept_relationship.csv"), batchSize)

	loadAncestors := fmt.Sprintf(`
	CALL {
		LOAD CSV WITH HEADERS FROM '%s' AS row
		MATCH (a:Concept {concept_id: toInteger(row.ancestor_concept_id)})
		MATCH (d:Concept {concept_id: toInteger(row.descendant_concept_id)})
		CREATE (a)-[r:HAS_ANCESTOR]->(d)
		SET r.min_levels = toInteger(row.min_levels_of_separation),
			r.max_levels = toInteger(row.max_levels_of_separation)
	} IN TRANSACTIONS OF %d ROWS
	RETURN "ancestors loaded";`, fileURI("concept_ancestor.csv"), batchSize)

	return []string{
		loadDomains,
		loadVocabularies,
		loadConcepts,
		loadRelationships,
		loadAncestors,
	}
}
