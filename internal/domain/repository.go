package domain

import "context"

// JobUpdate carries the field changes produced by one reconciliation.
// A nil pointer leaves the stored value untouched; a pointer to the empty
// string clears the column.
type JobUpdate struct {
	State          JobState
	ResultLocation *string
	ErrorMessage   *string
}

// JobStore defines the persistence surface the reconciler consumes. The
// reconciler never creates or deletes job rows.
type JobStore interface {
	GetByID(ctx context.Context, jobID string) (*GenerationJob, error)
	// ApplyOutcome updates a single job row. Implementations must refuse the
	// write when the stored state is already terminal and report false, so a
	// lost race between two reconcilers cannot overwrite a terminal outcome.
	ApplyOutcome(ctx context.Context, jobID string, update JobUpdate) (bool, error)
	// ListInFlight returns every non-terminal row, oldest first.
	ListInFlight(ctx context.Context) ([]GenerationJob, error)
}
