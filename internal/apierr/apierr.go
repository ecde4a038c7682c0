// Package apierr defines the request-fatal error taxonomy shared by the
// verifier, rate limiter, and download token manager. External messages are
// uniform per class so failures never reveal whether a credential existed.
package apierr

import (
	"errors"
	"net/http"
)

var (
	// ErrUnauthorized covers every bearer credential failure: missing or
	// malformed header, unknown key, revoked key, expired session, and any
	// signed token problem.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrInvalidCredentials is the login-only password failure.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrRateLimited is admission denial; RetryAfter travels alongside.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrNotFound is an unknown download token.
	ErrNotFound = errors.New("not found")

	// ErrGone is an expired or already-redeemed download token.
	ErrGone = errors.New("gone")

	// ErrForbidden is a download token binding mismatch.
	ErrForbidden = errors.New("forbidden")

	// ErrStoreUnavailable is a store-level I/O failure, fatal for the request.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Status maps a taxonomy error to its HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrGone):
		return http.StatusGone
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the caller-visible message for a taxonomy error.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid credentials"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrRateLimited):
		return "rate limit exceeded"
	case errors.Is(err, ErrNotFound):
		return "download token not found"
	case errors.Is(err, ErrGone):
		return "download token expired or already used"
	case errors.Is(err, ErrForbidden):
		return "download token not valid for this client"
	case errors.Is(err, ErrStoreUnavailable):
		return "service unavailable"
	default:
		return "internal error"
	}
}
