// Package engine drives one Arena simulation at a time: InitializeSimulation
// pre-fetches everything a run will need, and repeated StepDay calls replay
// the simulated trading days one at a time, each wholly derived from what is
// already persisted so a crash mid-run resumes exactly where it left off.
package engine

import (
	"context"
	"math"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/quantarena/arena/internal/agent"
	"github.com/quantarena/arena/internal/cache"
	"github.com/quantarena/arena/internal/calendar"
	"github.com/quantarena/arena/internal/engine/commission"
	"github.com/quantarena/arena/internal/indicator"
	"github.com/quantarena/arena/internal/logger"
	"github.com/quantarena/arena/internal/types"
	"github.com/quantarena/arena/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPrefetchConcurrency = 8
	defaultProvider            = "mock"
	atrLookbackDays            = 20
	atrPeriod                  = 14
	sameDayGraceHours          = 24
)

// Store is the capability slice of *internal/store.Store the engine needs,
// narrowed to an interface so engine tests run against an in-memory fake
// instead of a live Postgres instance.
type Store interface {
	GetSimulation(ctx context.Context, id uuid.UUID) (types.ArenaSimulation, error)
	SetTotalDays(ctx context.Context, id uuid.UUID, totalDays int) error
	UpdateSimulationProgress(ctx context.Context, id uuid.UUID, currentDay int) error
	FinalizeSimulation(ctx context.Context, id uuid.UUID, stats types.ArenaSimulation) error

	InsertPosition(ctx context.Context, pos types.ArenaPosition) (uuid.UUID, error)
	FillEntry(ctx context.Context, id uuid.UUID, entryDate time.Time, entryPrice decimal.Decimal, shares int64, initialStop decimal.Decimal) error
	UpdateTrailingStop(ctx context.Context, id uuid.UUID, highestPrice, currentStop decimal.Decimal) error
	CloseExit(ctx context.Context, id uuid.UUID, exitDate time.Time, exitPrice, pnl, returnPct decimal.Decimal, reason types.ExitReason) error
	ListPositions(ctx context.Context, simulationID uuid.UUID) ([]types.ArenaPosition, error)
	ListOpenPositions(ctx context.Context, simulationID uuid.UUID) ([]types.ArenaPosition, error)
	ListPendingPositions(ctx context.Context, simulationID uuid.UUID) ([]types.ArenaPosition, error)

	InsertSnapshot(ctx context.Context, snap types.ArenaSnapshot) error
	ListSnapshots(ctx context.Context, simulationID uuid.UUID) ([]types.ArenaSnapshot, error)
	LatestSnapshot(ctx context.Context, simulationID uuid.UUID) (types.ArenaSnapshot, bool, error)

	GetSector(ctx context.Context, symbol string) (types.StockSector, bool, error)
}

// PriceCache is the engine's bar read path, narrowed from *internal/cache.Cache.
type PriceCache interface {
	FetchAndStore(ctx context.Context, providerName, symbol string, interval types.Interval, start, end time.Time, forceRefresh bool) (cache.Result, error)
}

// Engine advances exactly one simulation per InitializeSimulation/StepDay
// call. It carries no per-simulation state between calls beyond its
// injected dependencies — every fact needed to take the next step is
// re-derived from the store, so a simulation can resume under a different
// worker process with identical results.
type Engine struct {
	store       Store
	prices      PriceCache
	agents      *agent.Registry
	portfolios  *agent.PortfolioRegistry
	commission  commission.Model
	provider    string
	concurrency int
	reportDir   string
	log         *logger.Logger
}

// New builds an Engine. commissionModel defaults to zero-commission and
// providerName to "mock" when left unset, so callers don't have to spell
// out sane defaults explicitly. reportDir is optional: when empty, a
// completed simulation's Parquet/YAML report is skipped entirely.
func New(st Store, prices PriceCache, agents *agent.Registry, portfolios *agent.PortfolioRegistry, commissionModel commission.Model, providerName, reportDir string, log *logger.Logger) *Engine {
	if commissionModel == nil {
		commissionModel = commission.NewZeroCommission()
	}

	if providerName == "" {
		providerName = defaultProvider
	}

	return &Engine{
		store:       st,
		prices:      prices,
		agents:      agents,
		portfolios:  portfolios,
		commission:  commissionModel,
		provider:    providerName,
		concurrency: defaultPrefetchConcurrency,
		reportDir:   reportDir,
		log:         log,
	}
}

// InitializeSimulation loads the simulation record, computes its trading
// calendar, pre-fetches every symbol's bars and sector metadata with
// bounded concurrency, and persists total_days. Must run exactly once
// before the first StepDay.
func (e *Engine) InitializeSimulation(ctx context.Context, simID uuid.UUID) error {
	sim, err := e.store.GetSimulation(ctx, simID)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSimulationNotFound, "failed to load simulation for initialize", err)
	}

	if sim.TotalDays != 0 {
		return errors.Newf(errors.ErrCodeSimulationAlreadyInit, "simulation %s already initialized", simID)
	}

	tradingDays := calendar.TradingDaysInRange(sim.StartDate, sim.EndDate)
	if len(tradingDays) == 0 {
		return errors.Newf(errors.ErrCodeInvalidDate, "no trading days between %s and %s", sim.StartDate.Format("2006-01-02"), sim.EndDate.Format("2006-01-02"))
	}

	ag, ok := e.agents.Get(sim.AgentType)
	if !ok {
		return errors.Newf(errors.ErrCodeAgentNotFound, "agent %q not registered", sim.AgentType)
	}

	prefetchStart := sim.StartDate.AddDate(0, 0, -civilLookbackDays(ag.RequiredLookbackDays()))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for _, symbol := range sim.Symbols {
		symbol := symbol

		g.Go(func() error {
			if _, err := e.prices.FetchAndStore(gctx, e.provider, symbol, types.Interval1Day, prefetchStart, sim.EndDate, false); err != nil {
				return errors.Wrapf(errors.ErrCodeCacheFetchFailed, err, "failed to prefetch bars for %s", symbol)
			}

			if _, found, err := e.store.GetSector(gctx, symbol); err != nil {
				return errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to load sector metadata for %s", symbol)
			} else if !found {
				e.log.Warn("no sector metadata cached for symbol, will run without sector caps", zap.String("symbol", symbol))
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if err := e.store.SetTotalDays(ctx, simID, len(tradingDays)); err != nil {
		return err
	}

	return nil
}

// StepDay advances the simulation by one trading day, running the fill,
// manage, signal, snapshot, and advance phases in order. It returns the
// day's snapshot, or (nil, nil) once the simulation has nothing left to do
// (already terminal, or already reached total_days).
func (e *Engine) StepDay(ctx context.Context, simID uuid.UUID) (*types.ArenaSnapshot, error) {
	sim, err := e.store.GetSimulation(ctx, simID)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeSimulationNotFound, "failed to load simulation for step", err)
	}

	if sim.Status.IsTerminal() {
		return nil, nil
	}

	if sim.TotalDays == 0 {
		return nil, errors.Newf(errors.ErrCodeSimulationNotInit, "simulation %s has not been initialized", simID)
	}

	if sim.CurrentDay >= sim.TotalDays {
		return nil, nil
	}

	tradingDays := calendar.TradingDaysInRange(sim.StartDate, sim.EndDate)
	d := tradingDays[sim.CurrentDay]

	ag, ok := e.agents.Get(sim.AgentType)
	if !ok {
		return nil, errors.Newf(errors.ErrCodeAgentNotFound, "agent %q not registered", sim.AgentType)
	}

	decisions := make(map[string]types.Decision, len(sim.Symbols))

	cash, err := e.previousCash(ctx, simID, sim.InitialCapital)
	if err != nil {
		return nil, err
	}

	// A. Fill entries signalled the prior trading day.
	if sim.CurrentDay > 0 {
		cash, err = e.fillPendingEntries(ctx, sim, d, cash, decisions)
		if err != nil {
			return nil, err
		}
	}

	// B. Manage positions that were already open coming into today.
	cash, err = e.manageOpenPositions(ctx, sim, d, cash, decisions)
	if err != nil {
		return nil, err
	}

	// C. Evaluate signals for symbols without an open or pending position.
	if err := e.evaluateSignals(ctx, sim, ag, d, decisions); err != nil {
		return nil, err
	}

	// D. Compute and persist the end-of-day snapshot.
	snapshot, err := e.computeSnapshot(ctx, simID, sim, d, cash, decisions)
	if err != nil {
		return nil, err
	}

	// E. Advance current_day, finalizing on the last one.
	nextDay := sim.CurrentDay + 1
	if err := e.store.UpdateSimulationProgress(ctx, simID, nextDay); err != nil {
		return nil, errors.Wrap(errors.ErrCodeSimulationNotFound, "failed to advance current_day", err)
	}

	if nextDay == sim.TotalDays {
		if err := e.finalize(ctx, simID, sim, d, snapshot.Cash); err != nil {
			return nil, err
		}
	}

	return &snapshot, nil
}

func (e *Engine) previousCash(ctx context.Context, simID uuid.UUID, initialCapital decimal.Decimal) (decimal.Decimal, error) {
	snap, found, err := e.store.LatestSnapshot(ctx, simID)
	if err != nil {
		return decimal.Zero, errors.Wrap(errors.ErrCodeSimulationNotFound, "failed to load latest snapshot", err)
	}

	if !found {
		return initialCapital, nil
	}

	return snap.Cash, nil
}

// fillPendingEntries fills every still-pending position using d's opening
// bar, regardless of which earlier day it was signalled on. A position
// whose symbol has no bar yet is left pending for one more day's grace
// (measured from its own signal_date, not from d) before being given up on
// as insufficient_capital — so a position StepDay couldn't fill on its
// first look is checked again on every subsequent day until it is either
// filled or it ages out. A position whose entry-day low already breaches
// the initial stop is closed the same day it opens — the only case in
// which an open position is checked against its stop on its own entry day.
func (e *Engine) fillPendingEntries(ctx context.Context, sim types.ArenaSimulation, d time.Time, cash decimal.Decimal, decisions map[string]types.Decision) (decimal.Decimal, error) {
	pending, err := e.store.ListPendingPositions(ctx, sim.ID)
	if err != nil {
		return cash, err
	}

	sort.Slice(pending, func(i, j int) bool { return pending[i].Symbol < pending[j].Symbol })

	for _, pos := range pending {
		bar, found, err := e.barOn(ctx, pos.Symbol, d)
		if err != nil {
			return cash, err
		}

		if !found {
			if d.Sub(pos.SignalDate) > sameDayGraceHours*time.Hour {
				if err := e.store.CloseExit(ctx, pos.ID, d, decimal.Zero, decimal.Zero, decimal.Zero, types.ExitReasonInsufficientCapital); err != nil {
					return cash, errors.Wrap(errors.ErrCodeInvalidPosition, "failed to close stale pending position", err)
				}
			}

			continue
		}

		entryPrice := bar.Open
		shares := sim.PositionSize.Div(entryPrice).Floor().IntPart()
		cost := entryPrice.Mul(decimal.NewFromInt(shares))
		commission := e.commission.Calculate(decimal.NewFromInt(shares))
		totalCost := cost.Add(commission)

		if shares <= 0 || totalCost.GreaterThan(cash) {
			if err := e.store.CloseExit(ctx, pos.ID, d, decimal.Zero, decimal.Zero, decimal.Zero, types.ExitReasonInsufficientCapital); err != nil {
				return cash, errors.Wrap(errors.ErrCodeInvalidPosition, "failed to close underfunded position", err)
			}

			decisions[pos.Symbol] = types.Decision{Symbol: pos.Symbol, Action: types.AgentActionNoSignal, Detail: "insufficient capital to fill entry"}

			continue
		}

		initialStop := InitialStop(entryPrice, pos.TrailingStopPct)

		if err := e.store.FillEntry(ctx, pos.ID, d, entryPrice, shares, initialStop); err != nil {
			return cash, errors.Wrap(errors.ErrCodeInvalidPosition, "failed to fill entry", err)
		}

		cash = cash.Sub(totalCost)

		if bar.Low.LessThanOrEqual(initialStop) {
			exitCommission := e.commission.Calculate(decimal.NewFromInt(shares))
			pnl := initialStop.Sub(entryPrice).Mul(decimal.NewFromInt(shares)).Sub(commission).Sub(exitCommission)
			returnPct := initialStop.Div(entryPrice).Sub(decimal.NewFromInt(1)).Mul(oneHundred)

			if err := e.store.CloseExit(ctx, pos.ID, d, initialStop, pnl, returnPct, types.ExitReasonStopHit); err != nil {
				return cash, errors.Wrap(errors.ErrCodeInvalidPosition, "failed to close same-day stop-out", err)
			}

			cash = cash.Add(initialStop.Mul(decimal.NewFromInt(shares))).Sub(exitCommission)
			decisions[pos.Symbol] = types.Decision{Symbol: pos.Symbol, Action: types.AgentActionBuy, Detail: "entry filled and stopped out the same day"}

			continue
		}

		decisions[pos.Symbol] = types.Decision{Symbol: pos.Symbol, Action: types.AgentActionBuy, Detail: "entry filled"}
	}

	return cash, nil
}

// manageOpenPositions runs the trailing-stop update for every position that
// was already open coming into today, skipping ones filled today (those
// were just handled by fillPendingEntries) and carrying forward unchanged
// any position whose symbol has no bar for d.
func (e *Engine) manageOpenPositions(ctx context.Context, sim types.ArenaSimulation, d time.Time, cash decimal.Decimal, decisions map[string]types.Decision) (decimal.Decimal, error) {
	open, err := e.store.ListOpenPositions(ctx, sim.ID)
	if err != nil {
		return cash, err
	}

	for _, pos := range open {
		if pos.EntryDate.IsNone() || sameDay(pos.EntryDate.Unwrap(), d) {
			continue
		}

		bar, found, err := e.barOn(ctx, pos.Symbol, d)
		if err != nil {
			return cash, err
		}

		if !found {
			continue
		}

		highestPrice := pos.HighestPrice.Unwrap()
		currentStop := pos.CurrentStop.Unwrap()
		entryPrice := pos.EntryPrice.Unwrap()
		shares := pos.Shares.Unwrap()

		result := UpdateTrailingStop(pos.TrailingStopPct, bar.High, bar.Low, highestPrice, currentStop)

		if result.Triggered {
			roundTripCommission := e.commission.Calculate(decimal.NewFromInt(shares)).Mul(decimal.NewFromInt(2))
			pnl := result.TriggerPrice.Sub(entryPrice).Mul(decimal.NewFromInt(shares)).Sub(roundTripCommission)
			returnPct := result.TriggerPrice.Div(entryPrice).Sub(decimal.NewFromInt(1)).Mul(oneHundred)

			if err := e.store.CloseExit(ctx, pos.ID, d, result.TriggerPrice, pnl, returnPct, types.ExitReasonStopHit); err != nil {
				return cash, errors.Wrap(errors.ErrCodeInvalidPosition, "failed to close triggered position", err)
			}

			cash = cash.Add(result.TriggerPrice.Mul(decimal.NewFromInt(shares))).Sub(e.commission.Calculate(decimal.NewFromInt(shares)))
			decisions[pos.Symbol] = types.Decision{Symbol: pos.Symbol, Action: types.AgentActionNoSignal, Detail: "trailing stop triggered"}

			continue
		}

		if err := e.store.UpdateTrailingStop(ctx, pos.ID, result.HighestPrice, result.StopPrice); err != nil {
			return cash, errors.Wrap(errors.ErrCodeInvalidPosition, "failed to update trailing stop", err)
		}
	}

	return cash, nil
}

// evaluateSignals runs the agent over every symbol not already tied up in
// a pending or open position, admits the resulting BUY candidates through
// the configured portfolio selector (if any), and opens a pending position
// for each one admitted.
func (e *Engine) evaluateSignals(ctx context.Context, sim types.ArenaSimulation, ag agent.Agent, d time.Time, decisions map[string]types.Decision) error {
	positions, err := e.store.ListPositions(ctx, sim.ID)
	if err != nil {
		return err
	}

	held := make(map[string]bool, len(positions))
	for _, pos := range positions {
		if pos.Status == types.PositionStatusPending || pos.Status == types.PositionStatusOpen {
			held[pos.Symbol] = true
		}
	}

	var candidates []agent.Candidate
	evaluated := make(map[string]agent.Decision, len(sim.Symbols))

	for _, symbol := range sim.Symbols {
		if held[symbol] {
			continue
		}

		history, err := e.history(ctx, symbol, ag.RequiredLookbackDays(), d)
		if err != nil {
			return err
		}

		if len(history) == 0 {
			continue
		}

		decision, err := ag.Evaluate(ctx, symbol, history, d, false)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeAgentEvalFailed, err, "agent evaluation failed for %s", symbol)
		}

		evaluated[symbol] = decision

		if decision.Action != types.AgentActionBuy {
			continue
		}

		sector := ""
		if sec, found, err := e.store.GetSector(ctx, symbol); err == nil && found {
			sector = sec.Sector
		}

		atr, err := e.atrFor(ctx, symbol, d)
		if err != nil {
			return err
		}

		candidates = append(candidates, agent.Candidate{Symbol: symbol, Score: decision.Score, Sector: sector, ATR: atr})
	}

	admitted := candidates

	if sim.AgentConfig.PortfolioStrategy.IsSome() {
		if selector, ok := e.portfolios.Get(sim.AgentConfig.PortfolioStrategy.Unwrap()); ok {
			sectorCounts, openCount, err := e.sectorExposure(ctx, sim.ID)
			if err != nil {
				return err
			}

			admitted = selector.Select(agent.SelectionInput{
				Candidates:        candidates,
				OpenPositionCount: openCount,
				OpenSectorCounts:  sectorCounts,
				MaxPerSector:      sim.AgentConfig.MaxPerSector,
				MaxOpenPositions:  sim.AgentConfig.MaxOpenPositions,
			})
		} else {
			return errors.Newf(errors.ErrCodeSelectorNotFound, "portfolio strategy %q not registered", sim.AgentConfig.PortfolioStrategy.Unwrap())
		}
	}

	admittedSet := make(map[string]bool, len(admitted))
	for _, c := range admitted {
		admittedSet[c.Symbol] = true
	}

	for symbol, decision := range evaluated {
		detail := string(decision.Action)
		if decision.Action == types.AgentActionBuy && !admittedSet[symbol] {
			detail = "BUY signal rejected by portfolio selector"
		}

		decisions[symbol] = types.Decision{Symbol: symbol, Action: decision.Action, Detail: detail}

		if decision.Action != types.AgentActionBuy || !admittedSet[symbol] {
			continue
		}

		pos := types.ArenaPosition{
			SimulationID:    sim.ID,
			Symbol:          symbol,
			Status:          types.PositionStatusPending,
			SignalDate:      d,
			TrailingStopPct: sim.AgentConfig.TrailingStopPct,
			AgentReasoning:  optional.Some(decision.Reasoning),
			AgentScore:      optional.Some(decision.Score),
		}

		if _, err := e.store.InsertPosition(ctx, pos); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidPosition, "failed to insert pending position", err)
		}
	}

	return nil
}

func (e *Engine) sectorExposure(ctx context.Context, simID uuid.UUID) (map[string]int, int, error) {
	open, err := e.store.ListOpenPositions(ctx, simID)
	if err != nil {
		return nil, 0, err
	}

	counts := make(map[string]int)

	for _, pos := range open {
		sector := ""
		if sec, found, err := e.store.GetSector(ctx, pos.Symbol); err == nil && found {
			sector = sec.Sector
		}

		counts[sector]++
	}

	return counts, len(open), nil
}

func (e *Engine) atrFor(ctx context.Context, symbol string, d time.Time) (decimal.Decimal, error) {
	history, err := e.history(ctx, symbol, atrLookbackDays, d)
	if err != nil {
		return decimal.Zero, err
	}

	if len(history) <= atrPeriod {
		return decimal.Zero, nil
	}

	highs := make([]decimal.Decimal, len(history))
	lows := make([]decimal.Decimal, len(history))
	closes := make([]decimal.Decimal, len(history))

	for i, bar := range history {
		highs[i] = bar.High
		lows[i] = bar.Low
		closes[i] = bar.Close
	}

	atr, err := indicator.ATR(highs, lows, closes, atrPeriod)
	if err != nil {
		return decimal.Zero, nil
	}

	return atr, nil
}

// computeSnapshot values every still-open position at d's close, rolls up
// the day's P&L against the previous snapshot (or initial_capital on day
// zero), and persists the result.
func (e *Engine) computeSnapshot(ctx context.Context, simID uuid.UUID, sim types.ArenaSimulation, d time.Time, cash decimal.Decimal, decisions map[string]types.Decision) (types.ArenaSnapshot, error) {
	open, err := e.store.ListOpenPositions(ctx, simID)
	if err != nil {
		return types.ArenaSnapshot{}, err
	}

	positionsValue := decimal.Zero

	for _, pos := range open {
		bar, found, err := e.barOn(ctx, pos.Symbol, d)
		if err != nil {
			return types.ArenaSnapshot{}, err
		}

		if !found {
			continue
		}

		positionsValue = positionsValue.Add(bar.Close.Mul(decimal.NewFromInt(pos.Shares.Unwrap())))
	}

	totalEquity := cash.Add(positionsValue)

	previousEquity := sim.InitialCapital
	if prev, found, err := e.store.LatestSnapshot(ctx, simID); err != nil {
		return types.ArenaSnapshot{}, errors.Wrap(errors.ErrCodeSimulationNotFound, "failed to load previous snapshot", err)
	} else if found {
		previousEquity = prev.TotalEquity
	}

	dailyPnL := totalEquity.Sub(previousEquity)

	dailyReturnPct := decimal.Zero
	if previousEquity.IsPositive() {
		dailyReturnPct = dailyPnL.Div(previousEquity).Mul(oneHundred)
	}

	cumulativeReturnPct := decimal.Zero
	if sim.InitialCapital.IsPositive() {
		cumulativeReturnPct = totalEquity.Div(sim.InitialCapital).Sub(decimal.NewFromInt(1)).Mul(oneHundred)
	}

	snap := types.ArenaSnapshot{
		SimulationID:        simID,
		SnapshotDate:        d,
		DayNumber:           sim.CurrentDay,
		Cash:                cash.Round(2),
		PositionsValue:      positionsValue.Round(2),
		TotalEquity:         totalEquity.Round(2),
		DailyPnL:            dailyPnL.Round(2),
		DailyReturnPct:      dailyReturnPct.Round(4),
		CumulativeReturnPct: cumulativeReturnPct.Round(4),
		OpenPositionCount:   len(open),
		Decisions:           decisions,
	}

	if err := e.store.InsertSnapshot(ctx, snap); err != nil {
		return types.ArenaSnapshot{}, errors.Wrap(errors.ErrCodeSimulationNotFound, "failed to persist snapshot", err)
	}

	return snap, nil
}

// finalize liquidates every position still open after the last simulated
// day at that day's close, then recomputes and persists the completion
// analytics.
func (e *Engine) finalize(ctx context.Context, simID uuid.UUID, sim types.ArenaSimulation, d time.Time, cashAfterDay decimal.Decimal) error {
	open, err := e.store.ListOpenPositions(ctx, simID)
	if err != nil {
		return err
	}

	cash := cashAfterDay

	for _, pos := range open {
		bar, found, err := e.barOn(ctx, pos.Symbol, d)
		if err != nil {
			return err
		}

		if !found {
			continue
		}

		entryPrice := pos.EntryPrice.Unwrap()
		shares := pos.Shares.Unwrap()

		exitCommission := e.commission.Calculate(decimal.NewFromInt(shares))
		roundTripCommission := exitCommission.Mul(decimal.NewFromInt(2))
		pnl := bar.Close.Sub(entryPrice).Mul(decimal.NewFromInt(shares)).Sub(roundTripCommission)
		returnPct := bar.Close.Div(entryPrice).Sub(decimal.NewFromInt(1)).Mul(oneHundred)

		if err := e.store.CloseExit(ctx, pos.ID, d, bar.Close, pnl, returnPct, types.ExitReasonSimulationEnd); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidPosition, "failed to close position at simulation end", err)
		}

		cash = cash.Add(bar.Close.Mul(decimal.NewFromInt(shares))).Sub(exitCommission)
	}

	positions, err := e.store.ListPositions(ctx, simID)
	if err != nil {
		return err
	}

	closed := make([]types.ArenaPosition, 0, len(positions))
	for _, pos := range positions {
		if pos.Status == types.PositionStatusClosed && pos.Shares.IsSome() && pos.Shares.Unwrap() > 0 {
			closed = append(closed, pos)
		}
	}

	snapshots, err := e.store.ListSnapshots(ctx, simID)
	if err != nil {
		return err
	}

	analytics := ComputeAnalytics(closed, snapshots)

	finalEquity := cash.Round(2)
	totalReturnPct := decimal.Zero
	if sim.InitialCapital.IsPositive() {
		totalReturnPct = finalEquity.Div(sim.InitialCapital).Sub(decimal.NewFromInt(1)).Mul(oneHundred).Round(4)
	}

	stats := types.ArenaSimulation{
		FinalEquity:      optional.Some(finalEquity),
		TotalReturnPct:   optional.Some(totalReturnPct),
		TotalTrades:      analytics.TotalTrades,
		WinningTrades:    analytics.WinningTrades,
		MaxDrawdownPct:   optional.Some(analytics.MaxDrawdownPct),
		AvgHoldDays:      optional.Some(analytics.AvgHoldDays),
		AvgWinPnL:        optional.Some(analytics.AvgWinPnL),
		AvgLossPnL:       optional.Some(analytics.AvgLossPnL),
		ProfitFactor:     optional.Some(analytics.ProfitFactor),
		SharpeRatio:      optional.Some(analytics.SharpeRatio),
		TotalRealizedPnL: optional.Some(analytics.TotalRealizedPnL),
	}

	if err := e.store.FinalizeSimulation(ctx, simID, stats); err != nil {
		return err
	}

	if e.reportDir == "" {
		return nil
	}

	final, err := e.store.GetSimulation(ctx, simID)
	if err != nil {
		return errors.Wrap(errors.ErrCodeSimulationNotFound, "failed to reload simulation for report export", err)
	}

	return e.exportReport(ctx, simID, final, closed, snapshots)
}

// exportReport writes a completed simulation's closed positions and daily
// snapshots to Parquet, plus a YAML headline summary, under
// reportDir/<simulation id>. Failure here is logged but never fails
// StepDay — the simulation has already been marked completed and the report
// is a best-effort artifact, not part of the simulation's own state.
func (e *Engine) exportReport(ctx context.Context, simID uuid.UUID, sim types.ArenaSimulation, closed []types.ArenaPosition, snapshots []types.ArenaSnapshot) error {
	report, err := NewReport(e.log)
	if err != nil {
		e.log.Error("failed to open simulation report", zap.String("simulation_id", simID.String()), zap.Error(err))
		return nil
	}
	defer report.Close() //nolint:errcheck

	if err := report.LoadPositions(closed); err != nil {
		e.log.Error("failed to buffer report positions", zap.String("simulation_id", simID.String()), zap.Error(err))
		return nil
	}

	if err := report.LoadSnapshots(snapshots); err != nil {
		e.log.Error("failed to buffer report snapshots", zap.String("simulation_id", simID.String()), zap.Error(err))
		return nil
	}

	dir := filepath.Join(e.reportDir, simID.String())

	if err := report.Export(dir); err != nil {
		e.log.Error("failed to export simulation report", zap.String("simulation_id", simID.String()), zap.Error(err))
		return nil
	}

	if err := report.ExportSummary(dir, sim); err != nil {
		e.log.Error("failed to export simulation summary", zap.String("simulation_id", simID.String()), zap.Error(err))
	}

	return nil
}

// barOn fetches the single bar for symbol on day d, if any exists.
func (e *Engine) barOn(ctx context.Context, symbol string, d time.Time) (types.PriceBar, bool, error) {
	res, err := e.prices.FetchAndStore(ctx, e.provider, symbol, types.Interval1Day, d, d, false)
	if err != nil {
		return types.PriceBar{}, false, errors.Wrapf(errors.ErrCodeCacheFetchFailed, err, "failed to fetch bar for %s on %s", symbol, d.Format("2006-01-02"))
	}

	for _, bar := range res.Bars {
		if sameDay(bar.Timestamp, d) {
			return bar, true, nil
		}
	}

	return types.PriceBar{}, false, nil
}

// history fetches an oldest-first slice of bars ending on d, generous
// enough to contain lookbackDays trading days even across weekends and
// holidays.
func (e *Engine) history(ctx context.Context, symbol string, lookbackDays int, d time.Time) ([]types.PriceBar, error) {
	start := d.AddDate(0, 0, -civilLookbackDays(lookbackDays))

	res, err := e.prices.FetchAndStore(ctx, e.provider, symbol, types.Interval1Day, start, d, false)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeCacheFetchFailed, err, "failed to fetch history for %s", symbol)
	}

	return res.Bars, nil
}

func civilLookbackDays(tradingDays int) int {
	return int(math.Ceil(float64(tradingDays) * 1.5))
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()

	return ay == by && am == bm && ad == bd
}
