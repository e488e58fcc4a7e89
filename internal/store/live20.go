package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/quantarena/arena/internal/types"
	"github.com/quantarena/arena/pkg/errors"
)

// InsertLive20Run creates a new live20_runs row in the pending state.
func (s *Store) InsertLive20Run(ctx context.Context, run types.Live20Run) (uuid.UUID, error) {
	var sourceLists []string
	if run.SourceLists.IsSome() {
		sourceLists = run.SourceLists.Unwrap()
	}

	failedSymbols := run.FailedSymbols
	if failedSymbols == nil {
		failedSymbols = map[string]string{}
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO live20_runs (input_symbols, symbol_count, source_lists, status, max_retries, failed_symbols)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING id
	`, run.InputSymbols, len(run.InputSymbols), sourceLists, types.JobStatusPending,
		maxRetriesOrDefault(run.MaxRetries), failedSymbols)

	var id uuid.UUID
	if err := row.Scan(&id); err != nil {
		return uuid.Nil, errors.Wrap(errors.ErrCodeAgentEvalFailed, "failed to insert live20 run", err)
	}

	return id, nil
}

// DeleteLive20Run removes a run and, via ON DELETE CASCADE, its recommendations.
func (s *Store) DeleteLive20Run(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM live20_runs WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(errors.ErrCodeAgentNotFound, "failed to delete live20 run", err)
	}

	if tag.RowsAffected() == 0 {
		return errors.Newf(errors.ErrCodeAgentNotFound, "live20 run %s not found", id)
	}

	return nil
}

// GetLive20Run loads a full Live20Run by ID.
func (s *Store) GetLive20Run(ctx context.Context, id uuid.UUID) (types.Live20Run, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, input_symbols, symbol_count, source_lists, status, worker_id, claimed_at, heartbeat_at,
			retry_count, max_retries, last_error, processed_count, long_count, short_count, no_setup_count,
			failed_symbols, created_at, updated_at
		FROM live20_runs WHERE id = $1
	`, id)

	run, err := scanLive20Run(row)
	if err != nil {
		if isNoRows(err) {
			return types.Live20Run{}, errors.Newf(errors.ErrCodeAgentNotFound, "live20 run %s not found", id)
		}

		return types.Live20Run{}, errors.Wrap(errors.ErrCodeAgentNotFound, "failed to load live20 run", err)
	}

	return run, nil
}

// ListLive20Runs returns every run, most recently created first.
func (s *Store) ListLive20Runs(ctx context.Context) ([]types.Live20Run, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, input_symbols, symbol_count, source_lists, status, worker_id, claimed_at, heartbeat_at,
			retry_count, max_retries, last_error, processed_count, long_count, short_count, no_setup_count,
			failed_symbols, created_at, updated_at
		FROM live20_runs ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeAgentNotFound, "failed to list live20 runs", err)
	}
	defer rows.Close()

	var runs []types.Live20Run

	for rows.Next() {
		run, err := scanLive20Run(rows)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeAgentNotFound, "failed to scan live20 run row", err)
		}

		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// UpdateLive20Progress advances the per-symbol counters as the run walks
// its input symbol list.
func (s *Store) UpdateLive20Progress(ctx context.Context, id uuid.UUID, processed, long, short, noSetup int, failedSymbols map[string]string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE live20_runs SET
			processed_count = $2, long_count = $3, short_count = $4, no_setup_count = $5,
			failed_symbols = $6, updated_at = now()
		WHERE id = $1
	`, id, processed, long, short, noSetup, failedSymbols)

	return err
}

// InsertRecommendation records one symbol's analysis outcome.
func (s *Store) InsertRecommendation(ctx context.Context, rec types.Recommendation) (uuid.UUID, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO recommendations
			(live20_run_id, stock, source, recommendation, confidence_score, reasoning, criteria)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING id
	`, rec.Live20RunID, rec.Stock, rec.Source, rec.Recommendation, rec.ConfidenceScore, rec.Reasoning, rec.Criteria)

	var id uuid.UUID
	if err := row.Scan(&id); err != nil {
		return uuid.Nil, errors.Wrap(errors.ErrCodeAgentEvalFailed, "failed to insert recommendation", err)
	}

	return id, nil
}

// ListRecommendations returns every non-deleted recommendation for a run.
func (s *Store) ListRecommendations(ctx context.Context, runID uuid.UUID) ([]types.Recommendation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, live20_run_id, stock, source, recommendation, confidence_score, reasoning, criteria,
			deleted_at, created_at, updated_at
		FROM recommendations WHERE live20_run_id = $1 AND deleted_at IS NULL ORDER BY confidence_score DESC
	`, runID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeAgentEvalFailed, "failed to list recommendations", err)
	}
	defer rows.Close()

	var recs []types.Recommendation

	for rows.Next() {
		var (
			rec       types.Recommendation
			deletedAt *time.Time
		)

		if err := rows.Scan(&rec.ID, &rec.Live20RunID, &rec.Stock, &rec.Source, &rec.Recommendation,
			&rec.ConfidenceScore, &rec.Reasoning, &rec.Criteria, &deletedAt, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
			return nil, errors.Wrap(errors.ErrCodeAgentEvalFailed, "failed to scan recommendation row", err)
		}

		rec.DeletedAt = optionFromTimePtr(deletedAt)
		recs = append(recs, rec)
	}

	return recs, rows.Err()
}

// SoftDeleteRecommendation marks a recommendation deleted without removing
// the row, preserving the run's historical record.
func (s *Store) SoftDeleteRecommendation(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE recommendations SET deleted_at = now(), updated_at = now() WHERE id = $1 AND deleted_at IS NULL
	`, id)
	if err != nil {
		return errors.Wrap(errors.ErrCodeAgentEvalFailed, "failed to delete recommendation", err)
	}

	if tag.RowsAffected() == 0 {
		return errors.Newf(errors.ErrCodeAgentNotFound, "recommendation %s not found", id)
	}

	return nil
}

func scanLive20Run(row scannable) (types.Live20Run, error) {
	var run types.Live20Run

	var (
		sourceLists []string
		workerID    *string
		claimedAt   *time.Time
		heartbeatAt *time.Time
		lastError   *string
	)

	err := row.Scan(&run.ID, &run.InputSymbols, &run.SymbolCount, &sourceLists, &run.Status,
		&workerID, &claimedAt, &heartbeatAt, &run.RetryCount, &run.MaxRetries, &lastError,
		&run.ProcessedCount, &run.LongCount, &run.ShortCount, &run.NoSetupCount,
		&run.FailedSymbols, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return types.Live20Run{}, err
	}

	if sourceLists != nil {
		run.SourceLists = optional.Some(sourceLists)
	} else {
		run.SourceLists = optional.None[[]string]()
	}

	run.WorkerID = optionFromStringPtr(workerID)
	run.ClaimedAt = optionFromTimePtr(claimedAt)
	run.HeartbeatAt = optionFromTimePtr(heartbeatAt)
	run.LastError = optionFromStringPtr(lastError)

	if run.FailedSymbols == nil {
		run.FailedSymbols = map[string]string{}
	}

	return run, nil
}
