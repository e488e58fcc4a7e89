// Package queue implements the claim-based Job Queue: one relational table
// per job type (arena_simulations, live20_runs), one algorithm shared by
// both via SQL templated on the table name. Every operation is a single
// atomic statement so the claim is strictly serialised at the database —
// two workers can never claim the same row.
package queue

import (
	"context"
	goerrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/quantarena/arena/pkg/errors"
)

// ClaimedJob is the minimal queue-state view returned by a claim — just
// enough for the worker driver to stamp heartbeats and check
// cancellation. Domain-specific fields are loaded separately by the
// caller's Loader.
type ClaimedJob struct {
	ID        uuid.UUID
	CreatedAt time.Time
}

// Queue drives the claim/heartbeat/cancellation algorithm against a single
// table. The table name is a fixed identifier chosen by the caller at
// construction time (never derived from request input), so building SQL
// with fmt.Sprintf here carries no injection risk.
type Queue struct {
	pool           *pgxpool.Pool
	table          string
	staleThreshold time.Duration
}

// New builds a Queue bound to the given table ("arena_simulations" or
// "live20_runs"), with the given stale-heartbeat threshold (spec default
// 5 minutes).
func New(pool *pgxpool.Pool, table string, staleThreshold time.Duration) *Queue {
	return &Queue{pool: pool, table: table, staleThreshold: staleThreshold}
}

// ClaimNextJob atomically selects and claims the oldest pending row via
// SELECT ... FOR UPDATE SKIP LOCKED, so concurrent workers never contend
// for the same row. Returns (ClaimedJob{}, false, nil) when no work is
// available.
func (q *Queue) ClaimNextJob(ctx context.Context, workerID string) (ClaimedJob, bool, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET status = 'running', worker_id = $1, claimed_at = now(), heartbeat_at = now(), updated_at = now()
		WHERE id = (
			SELECT id FROM %s WHERE status = 'pending' ORDER BY created_at ASC FOR UPDATE SKIP LOCKED LIMIT 1
		)
		RETURNING id, created_at
	`, q.table, q.table)

	row := q.pool.QueryRow(ctx, query, workerID)

	var job ClaimedJob
	if err := row.Scan(&job.ID, &job.CreatedAt); err != nil {
		if isNoRows(err) {
			return ClaimedJob{}, false, nil
		}

		return ClaimedJob{}, false, errors.Wrap(errors.ErrCodeJobNotClaimable, "failed to claim next job", err)
	}

	return job, true, nil
}

// UpdateHeartbeat pulses heartbeat_at for a still-running job.
func (q *Queue) UpdateHeartbeat(ctx context.Context, jobID uuid.UUID) error {
	query := fmt.Sprintf(`UPDATE %s SET heartbeat_at = now() WHERE id = $1 AND status = 'running'`, q.table)

	_, err := q.pool.Exec(ctx, query, jobID)
	if err != nil {
		return errors.Wrap(errors.ErrCodeJobNotFound, "failed to update heartbeat", err)
	}

	return nil
}

// IsCancelled is the cooperative-cancellation probe: true iff the job's
// current status is 'cancelled'.
func (q *Queue) IsCancelled(ctx context.Context, jobID uuid.UUID) (bool, error) {
	query := fmt.Sprintf(`SELECT status = 'cancelled' FROM %s WHERE id = $1`, q.table)

	var cancelled bool

	err := q.pool.QueryRow(ctx, query, jobID).Scan(&cancelled)
	if err != nil {
		if isNoRows(err) {
			return false, errors.Newf(errors.ErrCodeJobNotFound, "job %s not found", jobID)
		}

		return false, errors.Wrap(errors.ErrCodeJobNotFound, "failed to read job status", err)
	}

	return cancelled, nil
}

// MarkCompleted transitions a job to its terminal success state, clearing
// claim ownership.
func (q *Queue) MarkCompleted(ctx context.Context, jobID uuid.UUID) error {
	query := fmt.Sprintf(`
		UPDATE %s SET status = 'completed', worker_id = NULL, claimed_at = NULL, updated_at = now()
		WHERE id = $1
	`, q.table)

	_, err := q.pool.Exec(ctx, query, jobID)
	if err != nil {
		return errors.Wrap(errors.ErrCodeJobNotFound, "failed to mark job completed", err)
	}

	return nil
}

// MarkFailed records the error a job's Loader or Processor returned. Below max_retries the job
// returns to pending for another claim attempt; at the retry ceiling it
// transitions to the terminal failed state. Cancellation must never be
// routed through this path — cooperative cancellation bypasses retry
// counting entirely.
func (q *Queue) MarkFailed(ctx context.Context, jobID uuid.UUID, errMsg string) error {
	query := fmt.Sprintf(`
		UPDATE %s SET
			last_error = $2,
			status = CASE WHEN retry_count < max_retries THEN 'pending' ELSE 'failed' END,
			retry_count = CASE WHEN retry_count < max_retries THEN retry_count + 1 ELSE retry_count END,
			worker_id = CASE WHEN retry_count < max_retries THEN NULL ELSE worker_id END,
			claimed_at = CASE WHEN retry_count < max_retries THEN NULL ELSE claimed_at END,
			updated_at = now()
		WHERE id = $1
	`, q.table)

	_, err := q.pool.Exec(ctx, query, jobID, errMsg)
	if err != nil {
		return errors.Wrap(errors.ErrCodeJobNotFound, "failed to mark job failed", err)
	}

	return nil
}

// ResetStaleJobs reclaims running jobs whose heartbeat has gone silent for
// longer than the stale threshold, returning them to pending. Idempotent
// and safe under concurrent invocation by multiple sweepers.
func (q *Queue) ResetStaleJobs(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET status = 'pending', worker_id = NULL, claimed_at = NULL, updated_at = now()
		WHERE status = 'running' AND heartbeat_at < now() - $1::interval
	`, q.table)

	tag, err := q.pool.Exec(ctx, query, q.staleThreshold.String())
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeJobNotClaimable, "failed to reset stale jobs", err)
	}

	return int(tag.RowsAffected()), nil
}

// ResetStrandedJobs is a one-shot startup call: every running row is, by
// definition, orphaned in a single-instance process, so all of them reset
// to pending unconditionally.
func (q *Queue) ResetStrandedJobs(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`
		UPDATE %s SET status = 'pending', worker_id = NULL, claimed_at = NULL, updated_at = now()
		WHERE status = 'running'
	`, q.table)

	tag, err := q.pool.Exec(ctx, query)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeJobNotClaimable, "failed to reset stranded jobs", err)
	}

	return int(tag.RowsAffected()), nil
}

// Cancel sets status=cancelled directly, the REST-layer half of
// cooperative cancellation. Only pending/running/paused jobs are
// cancellable; terminal jobs reject the transition.
func (q *Queue) Cancel(ctx context.Context, jobID uuid.UUID) error {
	query := fmt.Sprintf(`
		UPDATE %s SET status = 'cancelled', updated_at = now()
		WHERE id = $1 AND status IN ('pending', 'running', 'paused')
	`, q.table)

	tag, err := q.pool.Exec(ctx, query, jobID)
	if err != nil {
		return errors.Wrap(errors.ErrCodeJobNotFound, "failed to cancel job", err)
	}

	if tag.RowsAffected() == 0 {
		return errors.Newf(errors.ErrCodeJobNotCancellable, "job %s is not in a cancellable state", jobID)
	}

	return nil
}

func isNoRows(err error) bool {
	return goerrors.Is(err, pgx.ErrNoRows)
}
