package graph

import (
	"context"
	"sort"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"omop2neo4j/pkg/errors"
)

// Report is the JSON-printable result of a validation run.
type Report struct {
	NodeCountsByLabelCombination map[string]int64 `json:"node_counts_by_label_combination"`
	RelationshipCountsByType     map[string]int64 `json:"relationship_counts_by_type"`
	SampleConcept                *SampleConcept   `json:"sample_concept_verification,omitempty"`
}

// SampleConcept is the structural check of one concept node.
type SampleConcept struct {
	ConceptID    int64            `json:"concept_id"`
	Name         string           `json:"name"`
	Labels       []string         `json:"labels"`
	SynonymCount int64            `json:"synonym_count"`
	OutgoingRels map[string]int64 `json:"outgoing_relationship_counts"`
	AncestorIDs  []int64          `json:"ancestor_ids"`
}

// DefaultSampleConceptID is Enalapril, a well-connected RxNorm ingredient in
// any full vocabulary load.
const DefaultSampleConceptID int64 = 1177480

// NodeCounts returns node counts per distinct label combination, keyed by
// the sorted labels joined with ":".
func (r *Repository) NodeCounts(ctx context.Context) (map[string]int64, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
	MATCH (n)
	WITH labels(n) AS label_combination
	RETURN label_combination, count(*) AS count
	ORDER BY count DESC`
	result, err := session.Run(ctx, query, nil)
	if err != nil {
		return nil, errors.NewGraphQueryFailed(query, err)
	}

	counts := make(map[string]int64)
	for result.Next(ctx) {
		record := result.Record()
		labels := getStringSlice(record, "label_combination")
		if len(labels) == 0 {
			continue
		}
		sort.Strings(labels)
		counts[strings.Join(labels, ":")] = getInt64(record, "count", 0)
	}
	if err := result.Err(); err != nil {
		return nil, errors.NewGraphQueryFailed(query, err)
	}
	return counts, nil
}

// RelationshipCounts returns edge counts per relationship type.
func (r *Repository) RelationshipCounts(ctx context.Context) (map[string]int64, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
	MATCH ()-[r]->()
	RETURN type(r) AS rel_type, count(*) AS count
	ORDER BY rel_type`
	result, err := session.Run(ctx, query, nil)
	if err != nil {
		return nil, errors.NewGraphQueryFailed(query, err)
	}

	counts := make(map[string]int64)
	for result.Next(ctx) {
		record := result.Record()
		if relType := getString(record, "rel_type", ""); relType != "" {
			counts[relType] = getInt64(record, "count", 0)
		}
	}
	if err := result.Err(); err != nil {
		return nil, errors.NewGraphQueryFailed(query, err)
	}
	return counts, nil
}

// VerifySampleConcept fetches one concept and summarizes its labels,
// synonyms, outgoing relationships and ancestors. Returns nil when the
// concept is absent, which is normal for partial vocabularies.
func (r *Repository) VerifySampleConcept(ctx context.Context, conceptID int64) (*SampleConcept, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	query := `
	MATCH (c:Concept {concept_id: $concept_id})
	OPTIONAL MATCH (c)-[rel]->()
	WITH c, type(rel) AS rel_type, count(rel) AS rel_count
	WITH c, collect({rel_type: rel_type, count: rel_count}) AS rels
	OPTIONAL MATCH (ancestor:Concept)-[:HAS_ANCESTOR]->(c)
	RETURN
		c.concept_id AS concept_id,
		c.name AS name,
		labels(c) AS node_labels,
		size(c.synonyms) AS synonym_count,
		rels,
		collect(ancestor.concept_id) AS ancestor_ids`
	result, err := session.Run(ctx, query, map[string]interface{}{"concept_id": conceptID})
	if err != nil {
		return nil, errors.NewGraphQueryFailed(query, err)
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return nil, errors.NewGraphQueryFailed(query, err)
		}
		r.logger.Warn("Sample concept not found", zap.Int64("concept_id", conceptID))
		return nil, nil
	}
	record := result.Record()

	labels := getStringSlice(record, "node_labels")
	sort.Strings(labels)
	sample := &SampleConcept{
		ConceptID:    getInt64(record, "concept_id", 0),
		Name:         getString(record, "name", ""),
		Labels:       labels,
		SynonymCount: getInt64(record, "synonym_count", 0),
		OutgoingRels: make(map[string]int64),
		AncestorIDs:  []int64{},
	}

	if rels, ok := record.Get("rels"); ok {
		if list, ok := rels.([]interface{}); ok {
			for _, item := range list {
				m, ok := item.(map[string]interface{})
				if !ok {
					continue
				}
				relType, _ := m["rel_type"].(string)
				count, _ := m["count"].(int64)
				if relType != "" {
					sample.OutgoingRels[relType] = count
				}
			}
		}
	}
	if ids, ok := record.Get("ancestor_ids"); ok {
		if list, ok := ids.([]interface{}); ok {
			for _, item := range list {
				if id, ok := item.(int64); ok {
					sample.AncestorIDs = append(sample.AncestorIDs, id)
				}
			}
		}
	}
	return sample, nil
}

// RunValidation runs all validation checks and returns the combined report.
func (r *Repository) RunValidation(ctx context.Context, sampleConceptID int64) (*Report, error) {
	r.logger.Info("Running database validation")
	nodeCounts, err := r.NodeCounts(ctx)
	if err != nil {
		return nil, err
	}
	relCounts, err := r.RelationshipCounts(ctx)
	if err != nil {
		return nil, err
	}
	sample, err := r.VerifySampleConcept(ctx, sampleConceptID)
	if err != nil {
		return nil, err
	}
	return &Report{
		NodeCountsByLabelCombination: nodeCounts,
		RelationshipCountsByType:     relCounts,
		SampleConcept:                sample,
	}, nil
}
