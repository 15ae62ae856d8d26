package domain

import (
	"errors"
	"fmt"
	"time"
)

// Boundary errors shared by both external APIs. The transport layers map raw
// HTTP failures onto these so the pipeline can branch without knowing the
// underlying client.
var (
	// ErrUnauthorized covers invalid credentials and missing permissions.
	// Fatal for a single channel fetch; fallback-eligible for delivery.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound means the channel does not exist or is not visible.
	ErrNotFound = errors.New("not found")

	// ErrBadRequest means the request itself was malformed. For delivery this
	// is a configuration error and aborts the run rather than triggering the
	// fallback credential.
	ErrBadRequest = errors.New("bad request")
)

// RateLimitedError reports a rate-limited API response and, when the source
// supplied one, the interval to wait before retrying.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
	}
	return "rate limited"
}
