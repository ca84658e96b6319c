package sanitize

import (
	"strings"

	"omop2neo4j/pkg/errors"
)

// LabelSet is an ordered, duplicate-free set of node labels. The two
// ingestion shapes for concept labels (a domain column plus a standard flag,
// or a pre-joined ";"-delimited string) both normalize into this one
// representation, so downstream code never sees which shape a row arrived in.
type LabelSet struct {
	labels []Label
}

// LabelSetFromDomain derives the label set for a concept row driven by its
// domain column: Concept, the sanitized domain label, and Standard when the
// standard flag is set.
func LabelSetFromDomain(domainID string, standard bool) (LabelSet, error) {
	domain, err := SanitizeLabel(domainID)
	if err != nil {
		return LabelSet{}, err
	}
	ls := LabelSet{}
	ls.add(LabelConcept)
	ls.add(domain)
	if standard {
		ls.add(LabelStandard)
	}
	return ls, nil
}

// LabelSetFromDelimited parses a pre-joined multi-label field, sanitizing
// each ";"-separated segment independently. Empty segments are dropped; a
// field with no usable segment is an InvalidIdentifierError.
func LabelSetFromDelimited(raw string) (LabelSet, error) {
	ls := LabelSet{}
	for _, seg := range strings.Split(raw, ";") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		label, err := SanitizeLabel(seg)
		if err != nil {
			return LabelSet{}, err
		}
		ls.add(label)
	}
	if len(ls.labels) == 0 {
		return LabelSet{}, errors.NewInvalidIdentifier(raw)
	}
	return ls, nil
}

// NormalizeConceptLabels rewrites a parsed concept label set into canonical
// form: Concept first, then the parsed labels, then Standard when the
// standard flag is set. This is what makes the delimited-string path and the
// domain-column path emit identical sets for equivalent input.
func NormalizeConceptLabels(parsed LabelSet, standard bool) LabelSet {
	out := LabelSet{}
	out.add(LabelConcept)
	for _, l := range parsed.labels {
		out.add(l)
	}
	if standard {
		out.add(LabelStandard)
	}
	return out
}

func (s *LabelSet) add(l Label) {
	for _, have := range s.labels {
		if have == l {
			return
		}
	}
	s.labels = append(s.labels, l)
}

// With returns a copy of the set containing l. Used to normalize the
// delimited path onto the same base labels as the domain-driven path.
func (s LabelSet) With(l Label) LabelSet {
	out := LabelSet{labels: make([]Label, len(s.labels), len(s.labels)+1)}
	copy(out.labels, s.labels)
	out.add(l)
	return out
}

// Contains reports whether l is in the set.
func (s LabelSet) Contains(l Label) bool {
	for _, have := range s.labels {
		if have == l {
			return true
		}
	}
	return false
}

// Labels returns the labels in insertion order.
func (s LabelSet) Labels() []Label {
	return s.labels
}

// Equal reports whether two sets hold the same labels, ignoring order.
func (s LabelSet) Equal(other LabelSet) bool {
	if len(s.labels) != len(other.labels) {
		return false
	}
	for _, l := range s.labels {
		if !other.Contains(l) {
			return false
		}
	}
	return true
}

// String joins the labels with ";", the separator neo4j-admin expects in a
// :LABEL column.
func (s LabelSet) String() string {
	parts := make([]string, len(s.labels))
	for i, l := range s.labels {
		parts[i] = string(l)
	}
	return strings.Join(parts, ";")
}
