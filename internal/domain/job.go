package domain

import "time"

// JobState enumerates generation job lifecycle states.
type JobState string

const (
	// JobStatePending means the job was submitted but no worker confirmation
	// has been observed yet.
	JobStatePending JobState = "PENDING"
	// JobStateProcessing means the provider confirmed the job and is generating.
	JobStateProcessing JobState = "PROCESSING"
	JobStateCompleted  JobState = "COMPLETED"
	JobStateFailed     JobState = "FAILED"
	// JobStateUnknown marks rows where reconciliation was attempted but the
	// provider gave no usable answer. The reconciler reads this state but
	// never writes it; it comes from manual correction or legacy data.
	JobStateUnknown JobState = "UNKNOWN"
)

// GenerationJob is the reconciler's view of a persisted generated-asset row.
// The row is created by the submission flow and deleted (if ever) by the
// store; the reconciler only updates fields.
type GenerationJob struct {
	ID             string
	Provider       string
	State          JobState
	ExternalJobID  string
	ResultLocation string
	ErrorMessage   string
	Notes          string
	SubmittedAt    time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsTerminal reports whether the job reached a final state. Terminal jobs
// must never be transitioned again.
func (j *GenerationJob) IsTerminal() bool {
	return j.State == JobStateCompleted || j.State == JobStateFailed
}

// InFlight reports whether the job is still awaiting a provider outcome.
func (j *GenerationJob) InFlight() bool {
	return j.State == JobStatePending || j.State == JobStateProcessing
}
