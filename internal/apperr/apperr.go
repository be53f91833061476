// Package apperr defines the error kinds from the service's error-handling
// design: validation, not-found, parse, embedding, store-unavailable,
// index-missing, and timeout errors. Kinds are sentinel errors wrapped with
// fmt.Errorf("...: %w", ...) at the call site.
package apperr

import "errors"

// Sentinel kinds. Use errors.Is(err, apperr.NotFound) to classify a wrapped error.
var (
	// ValidationError: empty query, bad date format, missing required flags.
	ValidationError = errors.New("validation error")
	// NotFound: document/speaker lookup by id missed.
	NotFound = errors.New("not found")
	// ParseError: JSON malformed or missing a required field.
	ParseError = errors.New("parse error")
	// EmbeddingFailed: embedder refused input.
	EmbeddingFailed = errors.New("embedding failed")
	// StoreUnavailable: RS/CS connection failure.
	StoreUnavailable = errors.New("store unavailable")
	// IndexMissing: FTS index absent on the columnar store.
	IndexMissing = errors.New("index missing")
	// Timeout: request exceeded its configured budget.
	Timeout = errors.New("timeout")
)

// Field wraps a ValidationError with the offending field name.
func Field(field, reason string) error {
	return &fieldError{field: field, reason: reason}
}

type fieldError struct {
	field  string
	reason string
}

func (e *fieldError) Error() string {
	return "validation error: " + e.field + ": " + e.reason
}

func (e *fieldError) Unwrap() error { return ValidationError }
