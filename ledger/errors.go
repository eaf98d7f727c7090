/*
errors.go - Centralized error types for the ledger engine

PURPOSE:
  All sentinel errors in one place. Note the asymmetry with the reducer:
  Reduce itself NEVER returns or raises an error - every failure it detects
  is representable as "unchanged state + notification". These sentinels
  exist for the boundaries around the core: the dispatch container, the
  snapshot store, and the HTTP layer, which do need to distinguish failure
  classes.

USAGE:
  Callers match with errors.Is:

    if errors.Is(err, ledger.ErrNotFound) { ... 404 ... }

SEE ALSO:
  - reducer.go: the no-error transition contract
  - store/sqlite: wraps these with storage context
  - api: maps these onto HTTP status codes
*/
package ledger

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotFound is returned by boundary lookups when a referenced entity
	// does not exist in the current state.
	ErrNotFound = errors.New("entity not found")

	// ErrForbidden is returned by boundary layers when an action is rejected
	// by a role gate before it even reaches dispatch.
	ErrForbidden = errors.New("forbidden for role")

	// ErrNoSnapshot is returned by snapshot stores when no persisted state
	// exists yet.
	ErrNoSnapshot = errors.New("no snapshot available")

	// ErrInvalidAction is returned by boundary validation when an action
	// payload is malformed (the reducer itself would just no-op).
	ErrInvalidAction = errors.New("invalid action payload")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// NotFoundError carries the entity type and id of a failed lookup.
type NotFoundError struct {
	EntityType string
	EntityID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.EntityType, e.EntityID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsNotFound reports whether err indicates a missing entity or snapshot.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrNoSnapshot)
}

// IsClientError reports whether err is due to invalid client input rather
// than an internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidAction) || errors.Is(err, ErrForbidden)
}
