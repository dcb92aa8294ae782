// Package cerr is the shared error taxonomy for the cortical engine: the
// SDR, segment substrate, temporal memory, column pooler, grid/displacement
// modules, column/region/hierarchy orchestration and persistence return one
// of these four kinds rather than a bare sentinel error, so callers can
// inspect which field or component failed. The spatial pooler reports its
// own htm.PoolingError instead.
package cerr

import "fmt"

// CoreErrorKind categorizes failures raised by the cortical engine itself.
type CoreErrorKind string

const (
	// ErrShapeMismatch is raised when SDR widths, basal/apical widths, or
	// peer counts disagree with what a component was configured for.
	ErrShapeMismatch CoreErrorKind = "shape_mismatch"
	// ErrInvalidArgument is raised for out-of-range scalars or configuration
	// defaults violated (e.g. a negative boost strength).
	ErrInvalidArgument CoreErrorKind = "invalid_argument"
	// ErrStateCorruption is raised on checksum/version mismatch during
	// deserialization, or an internal invariant violation caught during
	// maintenance. Never recovered automatically.
	ErrStateCorruption CoreErrorKind = "state_corruption"
	// ErrCapacityExceeded is raised only when a cap is configured as hard;
	// soft caps are absorbed silently via LRU eviction.
	ErrCapacityExceeded CoreErrorKind = "capacity_exceeded"
)

// CoreError is the structured error type returned by the cortical
// components listed in the package doc. It mirrors PoolingError's shape (type + message + context)
// rather than exposing bare sentinel errors, so callers can inspect which
// field or component was at fault.
type CoreError struct {
	Kind      CoreErrorKind
	Component string
	Message   string
	Field     string
}

// Error implements the error interface.
func (e *CoreError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s[%s]: %s (field: %s)", e.Component, e.Kind, e.Message, e.Field)
	}
	return fmt.Sprintf("%s[%s]: %s", e.Component, e.Kind, e.Message)
}

// NewShapeMismatch builds a CoreError for a width/size disagreement.
func NewShapeMismatch(component, message string) *CoreError {
	return &CoreError{Kind: ErrShapeMismatch, Component: component, Message: message}
}

// NewInvalidArgument builds a CoreError for an out-of-range scalar.
func NewInvalidArgument(component, field, message string) *CoreError {
	return &CoreError{Kind: ErrInvalidArgument, Component: component, Message: message, Field: field}
}

// NewStateCorruption builds a CoreError for a deserialization/invariant failure.
func NewStateCorruption(component, message string) *CoreError {
	return &CoreError{Kind: ErrStateCorruption, Component: component, Message: message}
}

// NewCapacityExceeded builds a CoreError for a hard-capacity violation.
func NewCapacityExceeded(component, message string) *CoreError {
	return &CoreError{Kind: ErrCapacityExceeded, Component: component, Message: message}
}

// Is supports errors.Is comparisons against a CoreErrorKind sentinel built
// via Sentinel, so callers can do errors.Is(err, cerr.ErrShapeMismatch.Sentinel())
// style checks without type-asserting to *CoreError first.
func (e *CoreError) Is(target error) bool {
	k, ok := target.(kindSentinel)
	return ok && e.Kind == CoreErrorKind(k)
}

type kindSentinel string

func (k kindSentinel) Error() string { return string(k) }

// Sentinel returns an error value usable with errors.Is(err, kind.Sentinel()).
func (k CoreErrorKind) Sentinel() error { return kindSentinel(k) }
