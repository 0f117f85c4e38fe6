/*
errors.go - Centralized error types for the inventory engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages should wrap these errors with additional context.

ERROR CATEGORIES:
  1. Change errors - Rejected, discarded, or unroutable mutations
  2. Persistence errors - Save/load and version negotiation failures

USAGE:
  Callers distinguish outcomes with errors.Is / errors.As:

    if errors.Is(err, generic.ErrSaveNotFound) {
        // first run, nothing persisted yet
    }
    var vErr *generic.UnsupportedVersionError
    if errors.As(err, &vErr) {
        log.Printf("cannot read save version %s", vErr.Version)
    }

SEE ALSO:
  - processor.go: Produces change errors
  - persist.go: Produces persistence errors
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrChangeRejected is returned internally when a checked batch fails
	// its validity check. Public checked operations translate it into a
	// false result rather than surfacing it as an error.
	ErrChangeRejected = errors.New("change rejected: insufficient quantity")

	// ErrChangeDiscarded is the outcome of a checked change that was queued
	// but thrown away by a Load before the processor reached it. The handle
	// is resolved with this error instead of being left pending forever.
	ErrChangeDiscarded = errors.New("change discarded by load")

	// ErrEngineClosed is returned when a mutation is submitted after the
	// engine has been torn down.
	ErrEngineClosed = errors.New("inventory engine closed")

	// ErrEngineFault is the outcome of a checked change that was pending
	// when the mutation processor halted on a panic. The handle resolves
	// with this error instead of waiting on a processor that will never
	// run again.
	ErrEngineFault = errors.New("inventory engine halted by processor fault")

	// ErrSaveNotFound is returned by Load when the backing store has no
	// document at the requested location.
	ErrSaveNotFound = errors.New("save document not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// UnsupportedVersionError is returned by Load when a document's version
// differs from the engine's base version and no Migration is registered.
type UnsupportedVersionError struct {
	Version string // version found in the document
	Base    string // version this engine writes
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported save version %q (engine version %q, no migration registered)", e.Version, e.Base)
}

// DecodeError wraps a deserialization failure with the offending version so
// operators can tell a corrupt file from a foreign one.
type DecodeError struct {
	Version string
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode save document (version %q): %v", e.Version, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
