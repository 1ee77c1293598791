package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized signals a missing, malformed, or expired credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden signals a valid credential without the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation signals missing or malformed request input.
	ErrValidation = errors.New("validation failed")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrDependencyUnavailable signals that a required backing
	// dependency (knowledge store, limiter counters) is unreachable.
	ErrDependencyUnavailable = errors.New("dependency unavailable")
	// ErrUpstream signals a failed or timed-out upstream call
	// (generation, vision, directory, availability). Handlers recover
	// from it locally; it must never reach the HTTP boundary.
	ErrUpstream = errors.New("upstream service error")
	// ErrImageDecode signals an undecodable image payload.
	ErrImageDecode = errors.New("image decode failed")
)

// RateLimitError wraps ErrRateLimited with the violated window details.
type RateLimitError struct {
	Limit      int
	Window     string
	RetryAfter int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("%s: %d per %s", ErrRateLimited.Error(), e.Limit, e.Window)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// NewRateLimit creates a rate limit error for the given window.
func NewRateLimit(limit int, window string, retryAfter int) error {
	return &RateLimitError{Limit: limit, Window: window, RetryAfter: retryAfter}
}
