/*****************************************************************************************************************/

//	@author		Michael Roberts <michael@observerly.com>
//	@package	@observerly/platesolve
//	@license	Copyright © 2021-2025 observerly

/*****************************************************************************************************************/

package perr

/*****************************************************************************************************************/

import (
	"errors"
	"fmt"
)

/*****************************************************************************************************************/

// Kind is the error taxonomy of spec.md §7: every error surfaced by the
// extraction pipeline or the solving orchestrator carries one of these.
type Kind int

/*****************************************************************************************************************/

const (
	// Precondition covers missing buffers, impossible parameters, or a
	// wrong element type for the chosen solver.
	Precondition Kind = iota

	// Resource covers allocation failure, pixel-stack overflow in labeling,
	// or deblend queue overflow.
	Resource

	// Kernel covers ill-conditioned fits, unknown noise types, or illegal
	// sub-pixel parameters.
	Kernel

	// Search covers no-solution-before-timeout and no-solution-exhaustive.
	Search

	// Cancelled covers caller-initiated abort.
	Cancelled

	// Environment covers insufficient RAM for requested in-parallel mode;
	// this kind is always downgraded to a log event, never surfaced as a
	// terminal failure.
	Environment
)

/*****************************************************************************************************************/

func (k Kind) String() string {
	switch k {
	case Precondition:
		return "precondition"
	case Resource:
		return "resource"
	case Kernel:
		return "kernel"
	case Search:
		return "search"
	case Cancelled:
		return "cancelled"
	case Environment:
		return "environment"
	default:
		return "unknown"
	}
}

/*****************************************************************************************************************/

// Error wraps an underlying cause with a Kind, so that callers can recover
// the taxonomy via errors.As without parsing message text.
type Error struct {
	Kind  Kind
	Msg   string
	cause error
}

/*****************************************************************************************************************/

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.cause)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

/*****************************************************************************************************************/

func (e *Error) Unwrap() error {
	return e.cause
}

/*****************************************************************************************************************/

// New constructs a taxonomy-tagged error with no wrapped cause.
func New(kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg}
}

/*****************************************************************************************************************/

// Wrap constructs a taxonomy-tagged error around an existing cause.
func Wrap(kind Kind, msg string, cause error) error {
	return &Error{Kind: kind, Msg: msg, cause: cause}
}

/*****************************************************************************************************************/

// Is reports whether err carries the given Kind anywhere in its chain.
func Is(err error, kind Kind) bool {
	var e *Error

	for errors.As(err, &e) {
		if e.Kind == kind {
			return true
		}
		err = e.cause
	}

	return false
}

/*****************************************************************************************************************/
