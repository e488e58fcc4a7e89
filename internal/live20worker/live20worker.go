// Package live20worker wires internal/queue's generic Worker driver to
// the live20 screening pass: walk a run's input symbols one at a time,
// score each with agent.AnalyzeSymbol, record a recommendation, and
// advance the run's progress counters, checking for cooperative
// cancellation between symbols.
package live20worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/quantarena/arena/internal/agent"
	"github.com/quantarena/arena/internal/cache"
	"github.com/quantarena/arena/internal/logger"
	"github.com/quantarena/arena/internal/types"
	"github.com/quantarena/arena/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	historyLookbackDays = 21
	civilLookbackFactor  = 1.5
	recommendationSource = "live20"
)

// priceCache is the run's bar read path, narrowed the same way
// internal/engine.PriceCache narrows *internal/cache.Cache.
type priceCache interface {
	FetchAndStore(ctx context.Context, providerName, symbol string, interval types.Interval, start, end time.Time, forceRefresh bool) (cache.Result, error)
}

// runStore is the slice of *internal/store.Store this package needs to
// persist recommendations and progress, narrowed so tests can fake it.
type runStore interface {
	UpdateLive20Progress(ctx context.Context, id uuid.UUID, processed, long, short, noSetup int, failedSymbols map[string]string) error
	InsertRecommendation(ctx context.Context, rec types.Recommendation) (uuid.UUID, error)
}

// cancellationChecker is the narrow slice of *internal/queue.Queue this
// package drives cooperative cancellation through.
type cancellationChecker interface {
	IsCancelled(ctx context.Context, jobID uuid.UUID) (bool, error)
}

// Processor scores one Live20Run's input symbols to completion.
type Processor struct {
	store    runStore
	prices   priceCache
	queue    cancellationChecker
	provider string
	log      *logger.Logger
}

// NewProcessor builds a Processor bound to the given store, price cache,
// cancellation source, and market data provider name.
func NewProcessor(st runStore, prices priceCache, q cancellationChecker, providerName string, log *logger.Logger) *Processor {
	if providerName == "" {
		providerName = "mock"
	}

	return &Processor{store: st, prices: prices, queue: q, provider: providerName, log: log}
}

// Process implements queue.Processor[types.Live20Run]. It re-derives
// progress from the run's already-persisted counters, so resuming a run
// claimed by a different worker after a crash picks up where it left off
// rather than re-scoring symbols already processed.
func (p *Processor) Process(ctx context.Context, run types.Live20Run) error {
	processed := run.ProcessedCount
	long := run.LongCount
	short := run.ShortCount
	noSetup := run.NoSetupCount

	failedSymbols := run.FailedSymbols
	if failedSymbols == nil {
		failedSymbols = map[string]string{}
	}

	for _, symbol := range run.InputSymbols[processed:] {
		cancelled, err := p.queue.IsCancelled(ctx, run.ID)
		if err != nil {
			return err
		}

		if cancelled {
			return nil
		}

		direction, score, reasoning, criteria, err := p.analyze(ctx, symbol)
		if err != nil {
			failedSymbols[symbol] = err.Error()
			noSetup++
			processed++

			if p.log != nil {
				p.log.Warn("live20 symbol analysis failed, recording as no-setup",
					zap.String("symbol", symbol), zap.Error(err))
			}

			if updErr := p.store.UpdateLive20Progress(ctx, run.ID, processed, long, short, noSetup, failedSymbols); updErr != nil {
				return updErr
			}

			continue
		}

		switch direction {
		case types.RecommendationLong:
			long++
		case types.RecommendationShort:
			short++
		default:
			noSetup++
		}

		processed++

		if _, err := p.store.InsertRecommendation(ctx, types.Recommendation{
			Live20RunID:     run.ID,
			Stock:           symbol,
			Source:          recommendationSource,
			Recommendation:  direction,
			ConfidenceScore: score,
			Reasoning:       reasoning,
			Criteria:        criteria,
		}); err != nil {
			return errors.Wrapf(errors.ErrCodeAgentEvalFailed, err, "failed to record recommendation for %s", symbol)
		}

		if err := p.store.UpdateLive20Progress(ctx, run.ID, processed, long, short, noSetup, failedSymbols); err != nil {
			return err
		}
	}

	return nil
}

func (p *Processor) analyze(ctx context.Context, symbol string) (types.RecommendationDirection, decimal.Decimal, string, types.LiveCriteria, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -int(float64(historyLookbackDays)*civilLookbackFactor))

	res, err := p.prices.FetchAndStore(ctx, p.provider, symbol, types.Interval1Day, start, end, false)
	if err != nil {
		return types.RecommendationNoSetup, decimal.Zero, "", types.LiveCriteria{},
			errors.Wrapf(errors.ErrCodeCacheFetchFailed, err, "failed to fetch history for %s", symbol)
	}

	return agent.AnalyzeSymbol(symbol, res.Bars, decimal.Zero, "")
}
