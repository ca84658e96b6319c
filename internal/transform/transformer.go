package transform

import (
	"strings"
	"time"

	"omop2neo4j/internal/sanitize"
	"omop2neo4j/pkg/errors"
)

// dateLayout is the textual date representation the extraction contract
// guarantees and neo4j-admin's date type accepts.
const dateLayout = "2006-01-02"

// Structural column headers for the emitted import files. Id groups live in
// the header cells, which is how neo4j-admin scopes identifier spaces.
func idColumn(name string, group GroupID) string {
	return name + ":ID(" + string(group) + ")"
}

func startColumn(group GroupID) string { return ":START_ID(" + string(group) + ")" }
func endColumn(group GroupID) string   { return ":END_ID(" + string(group) + ")" }

var (
	conceptHeader = []string{
		idColumn("concept_id", GroupConcept), "name:string", "vocabulary_id:string",
		"concept_class_id:string", "standard_concept:string", "concept_code:string",
		"invalid_reason:string", "valid_start_date:date", "valid_end_date:date",
		"synonyms:string[]", ":LABEL",
	}
	domainHeader = []string{
		idColumn("domain_id", GroupDomain), "name:string", "domain_concept_id:int", ":LABEL",
	}
	vocabularyHeader = []string{
		idColumn("vocabulary_id", GroupVocabulary), "name:string",
		"vocabulary_reference:string", "vocabulary_version:string",
		"vocabulary_concept_id:int", ":LABEL",
	}
	semanticHeader = []string{
		startColumn(GroupConcept), endColumn(GroupConcept),
		"valid_start_date:date", "valid_end_date:date", "invalid_reason:string", ":TYPE",
	}
	ancestorHeader = []string{
		startColumn(GroupConcept), endColumn(GroupConcept),
		"min_levels:int", "max_levels:int", ":TYPE",
	}
	inDomainHeader       = []string{startColumn(GroupConcept), endColumn(GroupDomain), ":TYPE"}
	fromVocabularyHeader = []string{startColumn(GroupConcept), endColumn(GroupVocabulary), ":TYPE"}
)

// Transformer converts one source row into graph records. It holds only
// explicit configuration, no ambient state, so the same input row always
// yields the same records.
type Transformer struct {
	synonymDelimiter string
}

func NewTransformer(synonymDelimiter string) *Transformer {
	if synonymDelimiter == "" {
		synonymDelimiter = "|"
	}
	return &Transformer{synonymDelimiter: synonymDelimiter}
}

// conceptRecord is a transformed concept row: the node record plus the ids
// needed for the implicit membership edges.
type conceptRecord struct {
	node         []string
	id           string
	domainID     string
	vocabularyID string
	labels       sanitize.LabelSet
}

// edgeRecord is a transformed relationship or ancestor row.
type edgeRecord struct {
	fields  []string
	startID string
	endID   string
}

// ConceptRow transforms one concept row into a node record. The label set
// derives from the domain column plus the standard flag, or, when the source
// carries a pre-joined "labels" column, from that delimited field; both
// shapes normalize to the same set.
func (t *Transformer) ConceptRow(v rowView) (conceptRecord, error) {
	id, err := v.intField("concept_id")
	if err != nil {
		return conceptRecord{}, err
	}
	name, err := v.get("concept_name")
	if err != nil {
		return conceptRecord{}, err
	}
	domainID, err := v.get("domain_id")
	if err != nil {
		return conceptRecord{}, err
	}
	vocabularyID, err := v.get("vocabulary_id")
	if err != nil {
		return conceptRecord{}, err
	}
	conceptClass, err := v.get("concept_class_id")
	if err != nil {
		return conceptRecord{}, err
	}
	standard, _ := v.optional("standard_concept")
	code, err := v.get("concept_code")
	if err != nil {
		return conceptRecord{}, err
	}
	invalidReason, _ := v.optional("invalid_reason")
	validStart, err := t.dateField(v, "valid_start_date")
	if err != nil {
		return conceptRecord{}, err
	}
	validEnd, err := t.dateField(v, "valid_end_date")
	if err != nil {
		return conceptRecord{}, err
	}

	labels, err := t.conceptLabels(v, domainID, standard == "S")
	if err != nil {
		return conceptRecord{}, err
	}

	rawSynonyms, _ := v.optional("synonyms")
	synonyms := ParseSynonyms(rawSynonyms, t.synonymDelimiter)

	return conceptRecord{
		node: []string{
			id, name, vocabularyID, conceptClass, standard, code,
			invalidReason, validStart, validEnd,
			strings.Join(synonyms, t.synonymDelimiter),
			labels.String(),
		},
		id:           id,
		domainID:     domainID,
		vocabularyID: vocabularyID,
		labels:       labels,
	}, nil
}

func (t *Transformer) conceptLabels(v rowView, domainID string, standard bool) (sanitize.LabelSet, error) {
	if raw, ok := v.optional("labels"); ok && strings.TrimSpace(raw) != "" {
		ls, err := sanitize.LabelSetFromDelimited(raw)
		if err != nil {
			return sanitize.LabelSet{}, errors.NewRowParse(v.file, v.num, "labels", "sanitizes to nothing", err)
		}
		return sanitize.NormalizeConceptLabels(ls, standard), nil
	}
	ls, err := sanitize.LabelSetFromDomain(domainID, standard)
	if err != nil {
		return sanitize.LabelSet{}, errors.NewRowParse(v.file, v.num, "domain_id", "sanitizes to nothing", err)
	}
	return ls, nil
}

// DomainRow transforms one domain row into a node record.
func (t *Transformer) DomainRow(v rowView) ([]string, string, error) {
	id, err := v.get("domain_id")
	if err != nil {
		return nil, "", err
	}
	if strings.TrimSpace(id) == "" {
		return nil, "", errors.NewRowParse(v.file, v.num, "domain_id", "is empty", nil)
	}
	name, err := v.get("domain_name")
	if err != nil {
		return nil, "", err
	}
	conceptID, err := v.intField("domain_concept_id")
	if err != nil {
		return nil, "", err
	}
	return []string{id, name, conceptID, string(sanitize.LabelDomain)}, id, nil
}

// VocabularyRow transforms one vocabulary row into a node record.
func (t *Transformer) VocabularyRow(v rowView) ([]string, string, error) {
	id, err := v.get("vocabulary_id")
	if err != nil {
		return nil, "", err
	}
	if strings.TrimSpace(id) == "" {
		return nil, "", errors.NewRowParse(v.file, v.num, "vocabulary_id", "is empty", nil)
	}
	name, err := v.get("vocabulary_name")
	if err != nil {
		return nil, "", err
	}
	reference, _ := v.optional("vocabulary_reference")
	version, _ := v.optional("vocabulary_version")
	conceptID, err := v.intField("vocabulary_concept_id")
	if err != nil {
		return nil, "", err
	}
	return []string{id, name, reference, version, conceptID, string(sanitize.LabelVocabulary)}, id, nil
}

// RelationshipRow transforms one concept_relationship row into a semantic
// edge. Rows with invalid_reason set are still emitted; validity filtering
// is a query-time policy, not a transform-time one.
func (t *Transformer) RelationshipRow(v rowView) (edgeRecord, error) {
	startID, err := v.intField("concept_id_1")
	if err != nil {
		return edgeRecord{}, err
	}
	endID, err := v.intField("concept_id_2")
	if err != nil {
		return edgeRecord{}, err
	}
	rawType, err := v.get("relationship_id")
	if err != nil {
		return edgeRecord{}, err
	}
	relType, err := sanitize.SanitizeRelType(rawType)
	if err != nil {
		return edgeRecord{}, errors.NewRowParse(v.file, v.num, "relationship_id", "sanitizes to nothing", err)
	}
	validStart, err := t.dateField(v, "valid_start_date")
	if err != nil {
		return edgeRecord{}, err
	}
	validEnd, err := t.dateField(v, "valid_end_date")
	if err != nil {
		return edgeRecord{}, err
	}
	invalidReason, _ := v.optional("invalid_reason")

	return edgeRecord{
		fields:  []string{startID, endID, validStart, validEnd, invalidReason, string(relType)},
		startID: startID,
		endID:   endID,
	}, nil
}

// AncestorRow transforms one concept_ancestor row into a HAS_ANCESTOR edge
// from the ancestor concept to the descendant concept.
func (t *Transformer) AncestorRow(v rowView) (edgeRecord, error) {
	startID, err := v.intField("ancestor_concept_id")
	if err != nil {
		return edgeRecord{}, err
	}
	endID, err := v.intField("descendant_concept_id")
	if err != nil {
		return edgeRecord{}, err
	}
	minLevels, err := v.intField("min_levels_of_separation")
	if err != nil {
		return edgeRecord{}, err
	}
	maxLevels, err := v.intField("max_levels_of_separation")
	if err != nil {
		return edgeRecord{}, err
	}
	return edgeRecord{
		fields:  []string{startID, endID, minLevels, maxLevels, string(sanitize.RelTypeHasAncestor)},
		startID: startID,
		endID:   endID,
	}, nil
}

// InDomainEdge builds the implicit Concept->Domain membership edge.
func (t *Transformer) InDomainEdge(c conceptRecord) edgeRecord {
	return edgeRecord{
		fields:  []string{c.id, c.domainID, string(sanitize.RelTypeInDomain)},
		startID: c.id,
		endID:   c.domainID,
	}
}

// FromVocabularyEdge builds the implicit Concept->Vocabulary membership edge.
func (t *Transformer) FromVocabularyEdge(c conceptRecord) edgeRecord {
	return edgeRecord{
		fields:  []string{c.id, c.vocabularyID, string(sanitize.RelTypeFromVocabulary)},
		startID: c.id,
		endID:   c.vocabularyID,
	}
}

// dateField validates a required date field and returns its text unchanged.
// Unparseable dates are row errors, never silently coerced.
func (t *Transformer) dateField(v rowView, name string) (string, error) {
	raw, err := v.get(name)
	if err != nil {
		return "", err
	}
	raw = strings.TrimSpace(raw)
	if _, err := time.Parse(dateLayout, raw); err != nil {
		return "", errors.NewRowParse(v.file, v.num, name, "is not a valid date", err)
	}
	return raw, nil
}

// ParseSynonyms splits the aggregated synonym field on its delimiter,
// trimming each segment and discarding empties. An absent or empty field
// yields an empty, non-nil slice: the synonyms property is always an array.
func ParseSynonyms(raw, delimiter string) []string {
	out := []string{}
	if raw == "" {
		return out
	}
	for _, part := range strings.Split(raw, delimiter) {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
