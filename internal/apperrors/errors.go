// Package apperrors defines the sentinel errors shared across services.
// Callers classify failures with errors.Is and wrap context with %w.
package apperrors

import "errors"

var (
	// ErrNotFound — a referenced entity does not exist where existence is required.
	ErrNotFound = errors.New("not found")
	// ErrValidation — malformed input (empty name, duplicate role name, bad enum).
	ErrValidation = errors.New("invalid input")
	// ErrConflict — the mutation would violate a ledger invariant
	// (e.g. deleting a role still referenced by active assignments).
	ErrConflict = errors.New("resource conflict")
	// ErrForbidden — the caller lacks the global privilege for a gated operation.
	ErrForbidden = errors.New("forbidden")
	// ErrStorage — the storage layer failed; mutations surface this, reads degrade.
	ErrStorage = errors.New("storage unavailable")
)
