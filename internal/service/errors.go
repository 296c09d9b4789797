package service

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrSuperseded is returned when the views a fetch was serving were
	// invalidated twice while it ran. Its result is discarded.
	ErrSuperseded = errors.New("superseded by a newer query")
	// ErrForbidden is returned when the viewer lacks the role for an operation.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError lists field-level problems with a request body.
type ValidationError struct {
	Fields map[string]string
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

type validator map[string]string

func (v validator) check(ok bool, field, msg string) {
	if !ok {
		if _, seen := v[field]; !seen {
			v[field] = msg
		}
	}
}

func (v validator) err() error {
	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Fields: v}
}
