package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")
	// ErrProviderUnavailable marks transient provider conditions
	// (network failures, rate limits, 5xx). Safe to retry later.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrUnknownExternalJob means the provider rejected the external job
	// identifier itself. Not retryable.
	ErrUnknownExternalJob = errors.New("unknown external job")
	ErrUnresolvableJob    = errors.New("job has no resolvable external id")
	ErrStoreWrite         = errors.New("store write failed")
)
