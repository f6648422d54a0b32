// Package customerrors defines the sentinel errors shared by the aggregation
// packages. Callers wrap them with context and test with errors.Is.
package customerrors

import (
	"errors"
)

var (
	// ErrDecode is returned when a persisted stream is truncated, malformed
	// or carries a format tag the decoder does not recognize.
	ErrDecode = errors.New("decode error")

	// ErrKindMismatch is returned by Merge when the two aggregators differ in
	// concrete kind or configuration (e.g. MAX merged into MIN).
	ErrKindMismatch = errors.New("aggregator kind mismatch")

	// ErrUnsupportedType is returned when an aggregate cannot consume the
	// declared input type.
	ErrUnsupportedType = errors.New("unsupported column type")

	// ErrUnknownAggregate is returned for aggregate names with no
	// implementation.
	ErrUnknownAggregate = errors.New("unknown aggregate function")

	// ErrPlanInvalidated is returned when a persisted plan no longer decodes
	// and was removed from the store.
	ErrPlanInvalidated = errors.New("persisted plan invalidated")

	// ErrDistinctMerge is returned when two partial groupings of a DISTINCT
	// aggregate would have to be combined. Their dedup sets are not
	// persisted, so the result could count a value twice.
	ErrDistinctMerge = errors.New("cannot merge partial DISTINCT aggregates")

	ErrNotFound = errors.New("not found")
)
