// Package quote fetches per-ticker quote snapshots from the upstream stock
// API. The endpoint is unreliable: failure responses may carry a JSON
// {error} body, opaque HTML, or nothing, so every fetch result is classified
// into a typed failure kind the caller can branch on.
package quote

import (
	"errors"
	"fmt"
)

// FailureKind classifies a failed quote fetch.
type FailureKind string

const (
	// FailureNetwork covers transport-level errors and an open circuit.
	FailureNetwork FailureKind = "network"
	// FailureHTTP is a non-2xx response that is not a rate-limit rejection.
	FailureHTTP FailureKind = "http"
	// FailureRateLimited is a 403/forbidden class response. A sync batch
	// must abort on this kind rather than keep hammering the API.
	FailureRateLimited FailureKind = "rate_limited"
	// FailureMalformed is a 2xx response whose body is not valid JSON.
	FailureMalformed FailureKind = "malformed"
)

// Error is a classified quote fetch failure for one ticker.
type Error struct {
	Ticker      string
	Kind        FailureKind
	Status      int    // HTTP status, 0 for transport errors
	BodyExcerpt string // leading bytes of the response body, for logs
	Err         error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("quote %s: %s (HTTP %d)", e.Ticker, e.Kind, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("quote %s: %s: %v", e.Ticker, e.Kind, e.Err)
	}
	return fmt.Sprintf("quote %s: %s", e.Ticker, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// IsRateLimited reports whether err is a rate-limit classified quote failure.
func IsRateLimited(err error) bool {
	var qe *Error
	return errors.As(err, &qe) && qe.Kind == FailureRateLimited
}
