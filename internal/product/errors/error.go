// Package errors provides custom error types for product-related operations.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrProductNotFound = errors.New("product not found")
var ErrInvalidViewType = errors.New("invalid view type")

// ValidationError carries one message per rejected form field.
// It is the only recoverable error a form submission can produce.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates a ValidationError from a field to message map.
func NewValidationError(fields map[string]string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// AsValidationError reports whether err wraps a ValidationError and returns it.
func AsValidationError(err error) (*ValidationError, bool) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr, true
	}
	return nil, false
}
