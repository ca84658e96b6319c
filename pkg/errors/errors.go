package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorType represents the category of error
type ErrorType string

const (
	// ErrorTypeSanitize represents identifier sanitization errors
	ErrorTypeSanitize ErrorType = "sanitize"
	// ErrorTypeTransform represents row transformation errors
	ErrorTypeTransform ErrorType = "transform"
	// ErrorTypeIdentity represents id-group bookkeeping errors
	ErrorTypeIdentity ErrorType = "identity"
	// ErrorTypeExtract represents source database extraction errors
	ErrorTypeExtract ErrorType = "extract"
	// ErrorTypeGraph represents graph database errors
	ErrorTypeGraph ErrorType = "graph"
	// ErrorTypeConfig represents configuration errors
	ErrorTypeConfig ErrorType = "config"
)

// BaseError is the base error type with common fields
type BaseError struct {
	Type      ErrorType
	Message   string
	Timestamp time.Time
	Err       error // Wrapped error
}

// Error implements the error interface
func (e *BaseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error for error unwrapping
func (e *BaseError) Unwrap() error {
	return e.Err
}

// ErrType returns the error category. Promoted through embedding so typed
// errors answer IsErrorType without reflection on the concrete struct.
func (e *BaseError) ErrType() ErrorType {
	return e.Type
}

// NewBaseError creates a new base error
func NewBaseError(errType ErrorType, message string, err error) *BaseError {
	return &BaseError{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Err:       err,
	}
}

// Sanitizer Errors

// InvalidIdentifierError is returned when a raw string sanitizes to an empty
// label or relationship type.
type InvalidIdentifierError struct {
	*BaseError
	Raw string
}

func NewInvalidIdentifier(raw string) *InvalidIdentifierError {
	return &InvalidIdentifierError{
		BaseError: NewBaseError(ErrorTypeSanitize, fmt.Sprintf("no legal identifier characters in %q", raw), nil),
		Raw:       raw,
	}
}

// Transform Errors

// RowParseError is returned when a source row has a malformed or missing field
type RowParseError struct {
	*BaseError
	File  string
	Row   int
	Field string
}

func NewRowParse(file string, row int, field, reason string, err error) *RowParseError {
	return &RowParseError{
		BaseError: NewBaseError(ErrorTypeTransform,
			fmt.Sprintf("%s row %d: field %q %s", file, row, field, reason), err),
		File:  file,
		Row:   row,
		Field: field,
	}
}

// Identity Errors

// IdentityGroupError is returned on inconsistent or colliding id-group
// assignments. Always fatal: an import run with a broken id space would
// silently corrupt edges.
type IdentityGroupError struct {
	*BaseError
	Group string
}

func NewIdentityGroup(group, reason string) *IdentityGroupError {
	return &IdentityGroupError{
		BaseError: NewBaseError(ErrorTypeIdentity, fmt.Sprintf("id group %q: %s", group, reason), nil),
		Group:     group,
	}
}

// DanglingReferenceError is returned when an edge references a node id that
// was never emitted. Always fatal.
type DanglingReferenceError struct {
	*BaseError
	File  string
	Group string
	ID    string
}

func NewDanglingReference(file, group, id string) *DanglingReferenceError {
	return &DanglingReferenceError{
		BaseError: NewBaseError(ErrorTypeIdentity,
			fmt.Sprintf("%s references id %q, never emitted under group %q", file, id, group), nil),
		File:  file,
		Group: group,
		ID:    id,
	}
}

// Extraction Errors

// ExtractFailed is returned when exporting a source table fails
type ExtractFailed struct {
	*BaseError
	Table string
}

func NewExtractFailed(table string, err error) *ExtractFailed {
	return &ExtractFailed{
		BaseError: NewBaseError(ErrorTypeExtract, fmt.Sprintf("failed to export table: %s", table), err),
		Table:     table,
	}
}

// Graph Errors

// GraphConnectionFailed is returned when the Neo4j connection fails
type GraphConnectionFailed struct {
	*BaseError
	URI string
}

func NewGraphConnectionFailed(uri string, err error) *GraphConnectionFailed {
	return &GraphConnectionFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("failed to connect to Neo4j: %s", uri), err),
		URI:       uri,
	}
}

// GraphQueryFailed is returned when a graph query fails
type GraphQueryFailed struct {
	*BaseError
	Query string
}

func NewGraphQueryFailed(query string, err error) *GraphQueryFailed {
	return &GraphQueryFailed{
		BaseError: NewBaseError(ErrorTypeGraph, fmt.Sprintf("query failed: %s", query), err),
		Query:     query,
	}
}

// Config Errors

// ConfigMissingRequired is returned when a required config value is missing
type ConfigMissingRequired struct {
	*BaseError
	Field string
}

func NewConfigMissingRequired(field string) *ConfigMissingRequired {
	return &ConfigMissingRequired{
		BaseError: NewBaseError(ErrorTypeConfig, fmt.Sprintf("missing required config: %s", field), nil),
		Field:     field,
	}
}

// Helper functions

// IsErrorType checks if an error is of a specific category, looking through
// wrapped errors.
func IsErrorType(err error, errType ErrorType) bool {
	var typed interface{ ErrType() ErrorType }
	if errors.As(err, &typed) {
		return typed.ErrType() == errType
	}
	return false
}
