// Package dispoerrors defines the sentinel error kinds shared across
// the store, state machine, fill engine, and waterfall, plus the
// wrapping helpers that attach operation context to them.
package dispoerrors

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/brightfunnel/disposition/internal/domain"
)

// Sentinel errors for the conditions callers need to distinguish.
var (
	// ErrContactNotFound indicates the requested contact does not exist.
	ErrContactNotFound = errors.New("contact not found")

	// ErrCompanyNotFound indicates the requested company does not exist.
	ErrCompanyNotFound = errors.New("company not found")

	// ErrIllegalTransition indicates a state-machine refusal.
	ErrIllegalTransition = errors.New("illegal transition")

	// ErrStoreError indicates a transactional or connectivity failure.
	ErrStoreError = errors.New("store error")

	// ErrProviderError indicates an adapter-originated failure. Never
	// propagates out of the waterfall; always becomes a warning entry.
	ErrProviderError = errors.New("provider error")

	// ErrValidation indicates a malformed request.
	ErrValidation = errors.New("validation error")

	// ErrOwnershipConflict indicates a claim was attempted on a company
	// owned by a different client.
	ErrOwnershipConflict = errors.New("ownership conflict")
)

// IllegalTransitionError carries the current and requested status plus
// the allowed set, so callers can render a useful 400 response.
type IllegalTransitionError struct {
	Current   domain.DispositionStatus
	Requested domain.DispositionStatus
	Allowed   []domain.DispositionStatus
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal transition from %s to %s (allowed: %v)", e.Current, e.Requested, e.Allowed)
}

func (e *IllegalTransitionError) Unwrap() error {
	return ErrIllegalTransition
}

// ValidationError carries the offending field and a human message.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// WrapStoreError wraps a database error with operation context,
// converting sql.ErrNoRows to a nil-safe not-found sentinel selected by
// the caller (since sql.ErrNoRows alone doesn't say which entity).
func WrapStoreError(op string, err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, notFound)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreError, err)
}

// WrapStoreErrorf is WrapStoreError with a formatted operation string.
func WrapStoreErrorf(err error, notFound error, format string, args ...any) error {
	return WrapStoreError(fmt.Sprintf(format, args...), err, notFound)
}

// IsNotFound reports whether err is or wraps a not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrContactNotFound) || errors.Is(err, ErrCompanyNotFound)
}

// IsIllegalTransition reports whether err is or wraps ErrIllegalTransition.
func IsIllegalTransition(err error) bool {
	return errors.Is(err, ErrIllegalTransition)
}
