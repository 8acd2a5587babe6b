package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"server/internal/domain"
)

// JobStorePG implements domain.JobStore on top of the generated_videos table.
type JobStorePG struct {
	pool *pgxpool.Pool
}

// NewJobStore creates a job store backed by PostgreSQL.
func NewJobStore(pool *pgxpool.Pool) *JobStorePG {
	return &JobStorePG{pool: pool}
}

const jobColumns = `id, provider, state, external_job_id, result_location, error_message, notes, submitted_at, created_at, updated_at`

// GetByID fetches a job row by its identifier.
func (s *JobStorePG) GetByID(ctx context.Context, jobID string) (*domain.GenerationJob, error) {
	query := `
SELECT ` + jobColumns + `
FROM generated_videos
WHERE id = $1;
`
	row := s.pool.QueryRow(ctx, query, jobID)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// ApplyOutcome updates one job row. The state guard makes the write a no-op
// when the stored row is already terminal, so concurrent reconciliation of
// the same job cannot produce a second effective transition.
func (s *JobStorePG) ApplyOutcome(ctx context.Context, jobID string, update domain.JobUpdate) (bool, error) {
	query := `
UPDATE generated_videos
SET state = $2,
    result_location = CASE WHEN $3::text IS NULL THEN result_location ELSE NULLIF($3, '') END,
    error_message   = CASE WHEN $4::text IS NULL THEN error_message ELSE NULLIF($4, '') END,
    updated_at = NOW()
WHERE id = $1
  AND state NOT IN ('COMPLETED', 'FAILED');
`
	tag, err := s.pool.Exec(ctx, query, jobID, update.State, update.ResultLocation, update.ErrorMessage)
	if err != nil {
		return false, fmt.Errorf("%w: %v", domain.ErrStoreWrite, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListInFlight returns every non-terminal job row, oldest first. UNKNOWN rows
// are included so bulk recovery can pick up manually corrected jobs.
func (s *JobStorePG) ListInFlight(ctx context.Context) ([]domain.GenerationJob, error) {
	query := `
SELECT ` + jobColumns + `
FROM generated_videos
WHERE state IN ('PENDING', 'PROCESSING', 'UNKNOWN')
ORDER BY created_at ASC;
`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.GenerationJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (*domain.GenerationJob, error) {
	var job domain.GenerationJob
	var externalJobID, resultLocation, errorMessage, notes *string
	if err := row.Scan(
		&job.ID,
		&job.Provider,
		&job.State,
		&externalJobID,
		&resultLocation,
		&errorMessage,
		&notes,
		&job.SubmittedAt,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	job.ExternalJobID = deref(externalJobID)
	job.ResultLocation = deref(resultLocation)
	job.ErrorMessage = deref(errorMessage)
	job.Notes = deref(notes)
	return &job, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ domain.JobStore = (*JobStorePG)(nil)
