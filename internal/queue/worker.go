package queue

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/quantarena/arena/internal/logger"
	"go.uber.org/zap"
)

// Loader fetches the full domain record for a claimed job ID. Kept
// separate from ClaimedJob so this package never depends on
// ArenaSimulation/Live20Run directly.
type Loader[T any] func(ctx context.Context, id uuid.UUID) (T, error)

// Processor runs a claimed job to completion, checking IsCancelled at the
// job type's defined safe points (between days for Arena, between symbols
// for Live20) and returning cleanly without error when cancelled.
type Processor[T any] func(ctx context.Context, job T) error

// Worker is the single abstract claim/process/heartbeat driver, specialised
// per job type by the Loader/Processor pair supplied at construction. One
// Worker instance corresponds to one long-lived goroutine processing one
// queue.
type Worker[T any] struct {
	queue             *Queue
	id                string
	load              Loader[T]
	process           Processor[T]
	pollInterval      time.Duration
	heartbeatInterval time.Duration
	logger            *logger.Logger
}

// NewWorker builds a Worker with a randomly generated stable id
// (<type>-<random8>) so log lines and heartbeat rows can be traced back
// to a specific worker process.
func NewWorker[T any](q *Queue, jobType string, load Loader[T], process Processor[T], pollInterval, heartbeatInterval time.Duration, log *logger.Logger) *Worker[T] {
	return &Worker[T]{
		queue:             q,
		id:                jobType + "-" + randomID8(),
		load:              load,
		process:           process,
		pollInterval:      pollInterval,
		heartbeatInterval: heartbeatInterval,
		logger:            log,
	}
}

// Run drives the claim/process/heartbeat loop until ctx is cancelled.
func (w *Worker[T]) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		job, ok, err := w.queue.ClaimNextJob(ctx, w.id)
		if err != nil {
			w.logf("claim failed", err)
			w.sleep(ctx, w.pollInterval)

			continue
		}

		if !ok {
			w.sleep(ctx, w.pollInterval)

			continue
		}

		w.runOne(ctx, job.ID)
	}
}

func (w *Worker[T]) runOne(ctx context.Context, jobID uuid.UUID) {
	heartbeatCtx, stopHeartbeat := context.WithCancel(ctx)
	defer stopHeartbeat()

	go w.pulseHeartbeat(heartbeatCtx, jobID)

	record, err := w.load(ctx, jobID)
	if err != nil {
		w.markFailed(ctx, jobID, err)

		return
	}

	if err := w.process(ctx, record); err != nil {
		w.markFailed(ctx, jobID, err)

		return
	}

	cancelled, err := w.queue.IsCancelled(ctx, jobID)
	if err != nil {
		w.logf("failed to check cancellation before completion", err)
	}

	if cancelled {
		// Already transitioned to cancelled by the REST layer; leave it
		// there, do not overwrite with completed.
		return
	}

	if err := w.queue.MarkCompleted(ctx, jobID); err != nil {
		w.logf("failed to mark job completed", err)
	}
}

func (w *Worker[T]) markFailed(ctx context.Context, jobID uuid.UUID, cause error) {
	if err := w.queue.MarkFailed(ctx, jobID, cause.Error()); err != nil {
		w.logf("failed to mark job failed", err)
	}
}

func (w *Worker[T]) pulseHeartbeat(ctx context.Context, jobID uuid.UUID) {
	ticker := time.NewTicker(w.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.queue.UpdateHeartbeat(ctx, jobID); err != nil {
				w.logf("heartbeat update failed", err)
			}
		}
	}
}

func (w *Worker[T]) sleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (w *Worker[T]) logf(msg string, err error) {
	if w.logger == nil {
		return
	}

	w.logger.Warn(msg, zap.String("worker_id", w.id), zap.Error(err))
}

const idAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

func randomID8() string {
	b := make([]byte, 8)
	for i := range b {
		b[i] = idAlphabet[rand.Intn(len(idAlphabet))]
	}

	return string(b)
}
