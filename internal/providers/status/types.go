package status

import "context"

// State is the canonical vocabulary after normalization. Each client maps
// its provider's native status names onto these four; the reconciler never
// sees provider-specific vocabulary.
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Status is the normalized provider answer for a single external job.
type Status struct {
	State     State
	ResultURL string
	Message   string
}

// JobStatus pairs an external job id with its status, as returned by bulk listing.
type JobStatus struct {
	ExternalJobID string
	Status        Status
}

// Client fetches the provider's current truth for one external job id.
// Implementations return errors wrapping domain.ErrProviderUnavailable for
// retryable conditions (network, rate limit, 5xx) and
// domain.ErrUnknownExternalJob when the provider rejects the identifier itself.
type Client interface {
	FetchStatus(ctx context.Context, externalJobID string) (*Status, error)
}

// BulkClient is an optional capability for providers that can enumerate
// their recent jobs in one call. Callers that need it must type-assert;
// absence degrades to per-job FetchStatus polling.
type BulkClient interface {
	ListJobs(ctx context.Context) ([]JobStatus, error)
}
