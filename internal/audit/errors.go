package audit

import "errors"

// Sentinel errors callers branch on.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("audit record not found")
	// ErrInvalidURL indicates the caller supplied a malformed or non-http(s)
	// URL. Rejected before any browser work begins.
	ErrInvalidURL = errors.New("invalid audit url")
	// ErrNavigation wraps a fatal navigation failure (DNS, TLS, timeout).
	ErrNavigation = errors.New("navigation failed")
)
