package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsErrorType(t *testing.T) {
	err := NewRowParse("concepts.csv", 42, "valid_start_date", "is not a valid date", nil)
	assert.True(t, IsErrorType(err, ErrorTypeTransform))
	assert.False(t, IsErrorType(err, ErrorTypeIdentity))
	assert.False(t, IsErrorType(stderrors.New("plain"), ErrorTypeTransform))
}

func TestIsErrorType_Wrapped(t *testing.T) {
	inner := NewDanglingReference("rels_semantic.csv", "concept-id", "9999")
	wrapped := fmt.Errorf("processing edges: %w", inner)
	assert.True(t, IsErrorType(wrapped, ErrorTypeIdentity))

	var dangling *DanglingReferenceError
	require.ErrorAs(t, wrapped, &dangling)
	assert.Equal(t, "9999", dangling.ID)
}

func TestErrorMessages(t *testing.T) {
	err := NewRowParse("concepts.csv", 42, "concept_id", "is not an integer id", nil)
	assert.Contains(t, err.Error(), "concepts.csv")
	assert.Contains(t, err.Error(), "row 42")
	assert.Contains(t, err.Error(), "concept_id")

	identity := NewIdentityGroup("concept-id", "duplicate node id 1001")
	assert.Contains(t, identity.Error(), "concept-id")
	assert.Contains(t, identity.Error(), "duplicate node id 1001")
}

func TestUnwrap(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := NewGraphConnectionFailed("bolt://localhost:7687", cause)
	assert.True(t, stderrors.Is(err, cause))
	assert.True(t, IsErrorType(err, ErrorTypeGraph))
}

func TestNewInvalidIdentifier(t *testing.T) {
	err := NewInvalidIdentifier("!!!")
	assert.True(t, IsErrorType(err, ErrorTypeSanitize))
	assert.Equal(t, "!!!", err.Raw)
}
