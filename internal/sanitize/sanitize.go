// Package sanitize derives legal Neo4j identifiers from raw vocabulary
// values. Labels and relationship types reach the bulk importer as-is, so
// every dynamic name must pass through here first: Label and RelType cannot
// be built any other way.
package sanitize

import (
	"strings"

	"omop2neo4j/pkg/errors"
)

// Label is a node label in UpperCamelCase, restricted to [A-Za-z0-9_].
// Only SanitizeLabel produces values of this type.
type Label string

// RelType is a relationship type in UPPER_SNAKE_CASE, restricted to
// [A-Za-z0-9_]. Only SanitizeRelType produces values of this type.
type RelType string

// Fixed labels and types used by the vocabulary graph schema.
const (
	LabelConcept    Label = "Concept"
	LabelStandard   Label = "Standard"
	LabelDomain     Label = "Domain"
	LabelVocabulary Label = "Vocabulary"

	RelTypeInDomain       RelType = "IN_DOMAIN"
	RelTypeFromVocabulary RelType = "FROM_VOCABULARY"
	RelTypeHasAncestor    RelType = "HAS_ANCESTOR"
)

// words splits s into runs of ASCII letters and digits. Every other
// character acts as a separator and is dropped.
func words(s string) []string {
	isAlnum := func(r rune) bool {
		return r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9'
	}
	return strings.FieldsFunc(s, func(r rune) bool { return !isAlnum(r) })
}

// SanitizeLabel converts a raw string into a legal node label.
// Words are joined in UpperCamelCase; only the first letter of each word is
// upcased, the rest keep their case ("mixedCASE" -> "MixedCASE",
// "Drug/Device" -> "DrugDevice"). An input with no legal characters is an
// InvalidIdentifierError.
func SanitizeLabel(raw string) (Label, error) {
	parts := words(raw)
	if len(parts) == 0 {
		return "", errors.NewInvalidIdentifier(raw)
	}
	var b strings.Builder
	for _, w := range parts {
		b.WriteString(strings.ToUpper(w[:1]))
		b.WriteString(w[1:])
	}
	return Label(prefixIfDigit(b.String())), nil
}

// prefixIfDigit keeps identifiers starting with a letter or underscore, as
// the importer's grammar requires.
func prefixIfDigit(s string) string {
	if s[0] >= '0' && s[0] <= '9' {
		return "_" + s
	}
	return s
}

// SanitizeRelType converts a raw string into a legal relationship type.
// Words are joined with underscores and upper-cased ("maps to" -> "MAPS_TO",
// "ATC - ATC" -> "ATC_ATC"). An input with no legal characters is an
// InvalidIdentifierError.
func SanitizeRelType(raw string) (RelType, error) {
	parts := words(raw)
	if len(parts) == 0 {
		return "", errors.NewInvalidIdentifier(raw)
	}
	return RelType(prefixIfDigit(strings.ToUpper(strings.Join(parts, "_")))), nil
}
