package domain

import "errors"

// Upstream failure kinds. Adapters wrap these with %w so the acquisition
// pipeline can classify failures with errors.Is.
var (
	ErrTransport      = errors.New("upstream transport failure")
	ErrRateLimited    = errors.New("upstream rate limited")
	ErrAuthFailed     = errors.New("upstream authentication failed")
	ErrUpstreamStatus = errors.New("upstream returned non-success status")
	ErrShapeMismatch  = errors.New("unexpected upstream payload shape")
	ErrNoResults      = errors.New("upstream returned no results")
	ErrNotFound       = errors.New("not found")
)
