package queue

import (
	"context"
	"time"

	"github.com/quantarena/arena/internal/logger"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper periodically reclaims stale running jobs across every
// registered queue, driven by a single cron.Cron schedule shared across
// all of them.
type Sweeper struct {
	cron   *cron.Cron
	queues []*Queue
	logger *logger.Logger
}

// NewSweeper builds a Sweeper that resets stale jobs on every queue once
// per sweepInterval.
func NewSweeper(sweepInterval time.Duration, log *logger.Logger, queues ...*Queue) *Sweeper {
	s := &Sweeper{
		cron:   cron.New(),
		queues: queues,
		logger: log,
	}

	spec := "@every " + sweepInterval.String()

	_, _ = s.cron.AddFunc(spec, s.sweepOnce)

	return s
}

// Start begins the cron schedule. Non-blocking.
func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop waits for any in-flight sweep to finish before returning.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

// ResetStranded runs once at process startup, before Start, reclaiming
// every running row left over from a prior crash — safe because this is a
// single-instance process and any running row at startup is by
// definition orphaned.
func (s *Sweeper) ResetStranded(ctx context.Context) error {
	for _, q := range s.queues {
		n, err := q.ResetStrandedJobs(ctx)
		if err != nil {
			return err
		}

		if n > 0 && s.logger != nil {
			s.logger.Info("reset stranded jobs", zap.String("table", q.table), zap.Int("count", n))
		}
	}

	return nil
}

func (s *Sweeper) sweepOnce() {
	ctx := context.Background()

	for _, q := range s.queues {
		n, err := q.ResetStaleJobs(ctx)
		if err != nil {
			if s.logger != nil {
				s.logger.Warn("sweep failed", zap.String("table", q.table), zap.Error(err))
			}

			continue
		}

		if n > 0 && s.logger != nil {
			s.logger.Info("reset stale jobs", zap.String("table", q.table), zap.Int("count", n))
		}
	}
}
