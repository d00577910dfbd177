package zkrange

import (
	"errors"
	"fmt"
)

// Failure taxonomy shared by the whole package. Store and orchestrator
// outcomes are surfaced to callers through errors.Is; a cryptographic
// reject is not an error and is reported as Verified == false instead.
var (
	// ErrOutOfRangeInput means a prove precondition was violated: the value
	// lies outside [rangeMin, rangeMax] or the range does not fit the
	// configured bit width. Not retryable without correcting the input.
	ErrOutOfRangeInput = errors.New("zkrange: value or range out of bounds")

	// ErrMalformedEncoding means a point or scalar byte string could not be
	// parsed: wrong length, invalid hex, or an invalid curve-point encoding.
	// This is a transport-level error, distinct from a verification reject.
	ErrMalformedEncoding = errors.New("zkrange: malformed encoding")

	// ErrDuplicateEntry means a store put named a composite key that is
	// already present. Nonces are single-use; reuse is a caller logic error.
	ErrDuplicateEntry = errors.New("zkrange: duplicate disclosure entry")

	// ErrNotFound means no entry exists under the composite key.
	ErrNotFound = errors.New("zkrange: disclosure entry not found")

	// ErrExpired means the entry existed but its TTL had elapsed; the entry
	// is removed and later lookups report ErrNotFound.
	ErrExpired = errors.New("zkrange: disclosure entry expired")
)

// PartialDisclosureError reports that one half of a dual-channel operation
// completed while the other failed. Side names the failed channel ("proof"
// or "store"). The orchestrator discards the successful half before
// returning this, so no dangling proof or store entry survives.
type PartialDisclosureError struct {
	Side string
	Err  error
}

func (e *PartialDisclosureError) Error() string {
	return fmt.Sprintf("zkrange: partial disclosure, %s side failed: %v", e.Side, e.Err)
}

func (e *PartialDisclosureError) Unwrap() error {
	return e.Err
}
