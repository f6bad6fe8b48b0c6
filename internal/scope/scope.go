// Package scope carries the (project, manager) pair that partitions all
// indexed vectors, queries, and deletes. Two projects never cross-match
// even if their skill text is identical.
package scope

import (
	"context"
	"errors"
)

// Fail-closed: store operations without scope in context return errors,
// never unscoped results.
var (
	// ErrMissingScope is returned when scope info is absent from context.
	ErrMissingScope = errors.New("scope missing from context")

	// ErrInvalidScope is returned when a scope field is empty.
	ErrInvalidScope = errors.New("invalid scope")
)

// scopeContextKey is the context key for Scope.
type scopeContextKey struct{}

// Scope identifies the organizational partition every vector belongs to.
// Both fields are required.
type Scope struct {
	ProjectID string
	ManagerID string
}

// Validate checks that both scope fields are present.
func (s Scope) Validate() error {
	if s.ProjectID == "" || s.ManagerID == "" {
		return ErrInvalidScope
	}
	return nil
}

// NewContext returns a context carrying the given scope. The scope is
// validated here so an invalid scope never enters a context.
func NewContext(ctx context.Context, s Scope) (context.Context, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return context.WithValue(ctx, scopeContextKey{}, s), nil
}

// FromContext extracts the Scope from a context.
// Returns ErrMissingScope if not present - fail closed.
func FromContext(ctx context.Context) (Scope, error) {
	val := ctx.Value(scopeContextKey{})
	if val == nil {
		return Scope{}, ErrMissingScope
	}
	s, ok := val.(Scope)
	if !ok {
		return Scope{}, ErrMissingScope
	}
	if err := s.Validate(); err != nil {
		return Scope{}, err
	}
	return s, nil
}

// Metadata returns the scope as a metadata map for document storage.
func (s Scope) Metadata() map[string]interface{} {
	return map[string]interface{}{
		"project_id": s.ProjectID,
		"manager_id": s.ManagerID,
	}
}

// Filter returns the scope as query filter conditions.
func (s Scope) Filter() map[string]interface{} {
	return map[string]interface{}{
		"project_id": s.ProjectID,
		"manager_id": s.ManagerID,
	}
}
