package event

import "errors"

var (
	// ErrEventNotFound indicates no event exists for the requested tuple.
	ErrEventNotFound = errors.New("monthly event not found")
	// ErrInvalidKind indicates an unrecognized event kind.
	ErrInvalidKind = errors.New("invalid event kind")
	// ErrInvalidMonthKey indicates a malformed YYYY-MM key.
	ErrInvalidMonthKey = errors.New("invalid month key")
	// ErrNegativeCount indicates a count below zero.
	ErrNegativeCount = errors.New("event count must be non-negative")
)
