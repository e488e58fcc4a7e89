// Package arenaworker wires internal/queue's generic Worker driver to
// internal/engine's day-stepped simulation: claim a simulation job,
// initialize it if needed, then step one trading day at a time until
// the engine reports nothing left to do. The Live20 screening side of
// this same claim/process/heartbeat loop lives in internal/live20worker.
package arenaworker

import (
	"context"

	"github.com/google/uuid"
	"github.com/quantarena/arena/internal/engine"
	"github.com/quantarena/arena/internal/queue"
	"github.com/quantarena/arena/internal/types"
	"github.com/quantarena/arena/pkg/errors"
)

// SimulationLoader loads the full simulation record for a claimed job ID.
type SimulationLoader func(ctx context.Context, id uuid.UUID) (types.ArenaSimulation, error)

// cancellationChecker is the narrow slice of *queue.Queue this package
// drives cooperative cancellation through, so tests can fake it out
// without a real queue/database.
type cancellationChecker interface {
	IsCancelled(ctx context.Context, jobID uuid.UUID) (bool, error)
}

// Processor runs one arena simulation to completion: initialize once, then
// step one trading day at a time until the engine reports nothing left to
// do, checking for cooperative cancellation between days.
type Processor struct {
	engine *engine.Engine
	queue  cancellationChecker
}

// NewProcessor builds a Processor bound to the given engine and the queue
// it should poll for cancellation.
func NewProcessor(eng *engine.Engine, q *queue.Queue) *Processor {
	return &Processor{engine: eng, queue: q}
}

// Process implements queue.Processor[types.ArenaSimulation].
func (p *Processor) Process(ctx context.Context, sim types.ArenaSimulation) error {
	if sim.TotalDays == 0 {
		if err := p.engine.InitializeSimulation(ctx, sim.ID); err != nil {
			return errors.Wrap(errors.ErrCodeSimulationNotInit, "failed to initialize arena simulation", err)
		}
	}

	for {
		cancelled, err := p.queue.IsCancelled(ctx, sim.ID)
		if err != nil {
			return err
		}

		if cancelled {
			return nil
		}

		snapshot, err := p.engine.StepDay(ctx, sim.ID)
		if err != nil {
			return err
		}

		if snapshot == nil {
			return nil
		}
	}
}
