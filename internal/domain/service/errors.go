package service

import (
	"errors"
	"fmt"
)

// ValidationError names the first field of a request that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ScoringErrorKind classifies why scoring produced no usable score.
type ScoringErrorKind int

const (
	// ScoringUnavailable covers transport failures after the retry, scorer
	// error responses, a saturated bulkhead and an open circuit.
	ScoringUnavailable ScoringErrorKind = iota + 1
	// ScoringInvalidResponse means the scorer returned a value outside 0-1000.
	ScoringInvalidResponse
	// ScoringDeadlineExceeded means the request budget ran out.
	ScoringDeadlineExceeded
)

func (k ScoringErrorKind) String() string {
	switch k {
	case ScoringUnavailable:
		return "unavailable"
	case ScoringInvalidResponse:
		return "invalid_response"
	case ScoringDeadlineExceeded:
		return "deadline_exceeded"
	default:
		return "unknown"
	}
}

// ScoringError is the only error type ScoringClient returns.
type ScoringError struct {
	Err  error
	Kind ScoringErrorKind
}

func (e *ScoringError) Error() string {
	if e.Err == nil {
		return "scoring " + e.Kind.String()
	}
	return fmt.Sprintf("scoring %s: %v", e.Kind, e.Err)
}

func (e *ScoringError) Unwrap() error { return e.Err }

// ScoringErrorKindOf extracts the kind from err, treating anything that is
// not a *ScoringError as unavailable.
func ScoringErrorKindOf(err error) ScoringErrorKind {
	var se *ScoringError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ScoringUnavailable
}
