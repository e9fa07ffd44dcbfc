package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const jobColumns = `id, job_type, payload, status, priority, attempts, max_attempts,
scheduled_at, started_at, completed_at, error_message, created_at, updated_at`

func scanJob(row recordScanner, j *Job) error {
	return row.Scan(&j.ID, &j.JobType, &j.Payload, &j.Status, &j.Priority,
		&j.Attempts, &j.MaxAttempts, &j.ScheduledAt, &j.StartedAt,
		&j.CompletedAt, &j.ErrorMessage, &j.CreatedAt, &j.UpdatedAt)
}

const enqueueJob = `
INSERT INTO jobs (job_type, payload, priority, max_attempts, scheduled_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + jobColumns

// EnqueueJobParams holds the columns for a new background job.
type EnqueueJobParams struct {
	JobType     string
	Payload     json.RawMessage
	Priority    int32
	MaxAttempts int32
	ScheduledAt time.Time
}

// EnqueueJob inserts a pending job and returns it.
func (q *Queries) EnqueueJob(ctx context.Context, arg EnqueueJobParams) (Job, error) {
	row := q.db.QueryRowContext(ctx, enqueueJob,
		arg.JobType, arg.Payload, arg.Priority, arg.MaxAttempts, arg.ScheduledAt)
	var j Job
	err := scanJob(row, &j)
	return j, err
}

const dequeueJob = `
SELECT ` + jobColumns + `
FROM jobs
WHERE status = 'pending' AND scheduled_at <= NOW()
ORDER BY priority DESC, scheduled_at
LIMIT 1
FOR UPDATE SKIP LOCKED
`

// DequeueJob locks and returns the next runnable job. Must be called inside
// a transaction; returns sql.ErrNoRows when the queue is empty.
func (q *Queries) DequeueJob(ctx context.Context) (Job, error) {
	row := q.db.QueryRowContext(ctx, dequeueJob)
	var j Job
	err := scanJob(row, &j)
	return j, err
}

const updateJobStarted = `
UPDATE jobs
SET status = 'running', started_at = NOW(), attempts = attempts + 1, updated_at = NOW()
WHERE id = $1
`

// UpdateJobStarted marks a job as running and counts the attempt.
func (q *Queries) UpdateJobStarted(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, updateJobStarted, id)
	return err
}

const updateJobCompleted = `
UPDATE jobs
SET status = 'completed', completed_at = NOW(), updated_at = NOW()
WHERE id = $1
`

// UpdateJobCompleted marks a job as successfully finished.
func (q *Queries) UpdateJobCompleted(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.ExecContext(ctx, updateJobCompleted, id)
	return err
}

const updateJobFailed = `
UPDATE jobs
SET status = CASE WHEN attempts >= max_attempts THEN 'failed' ELSE 'pending' END,
	scheduled_at = CASE WHEN attempts >= max_attempts THEN scheduled_at
		ELSE NOW() + (INTERVAL '1 minute' * POWER(2, attempts)) END,
	error_message = $2,
	updated_at = NOW()
WHERE id = $1
`

// UpdateJobFailedParams identifies the failed job and its diagnostic.
type UpdateJobFailedParams struct {
	ID           uuid.UUID
	ErrorMessage sql.NullString
}

// UpdateJobFailed records a failure. Jobs with attempts left are
// rescheduled with exponential backoff; exhausted jobs are marked failed.
func (q *Queries) UpdateJobFailed(ctx context.Context, arg UpdateJobFailedParams) error {
	_, err := q.db.ExecContext(ctx, updateJobFailed, arg.ID, arg.ErrorMessage)
	return err
}

const markJobFailedPermanently = `
UPDATE jobs
SET status = 'failed', error_message = $2, updated_at = NOW()
WHERE id = $1
`

// MarkJobFailedPermanently fails a job without retry, regardless of
// remaining attempts.
func (q *Queries) MarkJobFailedPermanently(ctx context.Context, arg UpdateJobFailedParams) error {
	_, err := q.db.ExecContext(ctx, markJobFailedPermanently, arg.ID, arg.ErrorMessage)
	return err
}

const recoverStaleJobs = `
UPDATE jobs
SET status = 'pending', started_at = NULL, updated_at = NOW()
WHERE status = 'running'
	AND started_at < NOW() - ($1 * INTERVAL '1 second')
`

// RecoverStaleJobs resets jobs stuck in running back to pending, handling
// worker crashes. Returns the number of jobs recovered.
func (q *Queries) RecoverStaleJobs(ctx context.Context, thresholdSeconds float64) (int64, error) {
	result, err := q.db.ExecContext(ctx, recoverStaleJobs, thresholdSeconds)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
