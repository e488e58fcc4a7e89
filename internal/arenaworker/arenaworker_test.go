package arenaworker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quantarena/arena/internal/agent"
	"github.com/quantarena/arena/internal/cache"
	"github.com/quantarena/arena/internal/engine"
	"github.com/quantarena/arena/internal/logger"
	"github.com/quantarena/arena/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// fakeStore is a minimal in-memory engine.Store, enough to drive a
// no-trade simulation (an agent that never signals BUY) through
// InitializeSimulation/StepDay.
type fakeStore struct {
	sim       types.ArenaSimulation
	snapshots []types.ArenaSnapshot
}

func (f *fakeStore) GetSimulation(_ context.Context, _ uuid.UUID) (types.ArenaSimulation, error) {
	return f.sim, nil
}

func (f *fakeStore) SetTotalDays(_ context.Context, _ uuid.UUID, totalDays int) error {
	f.sim.TotalDays = totalDays
	return nil
}

func (f *fakeStore) UpdateSimulationProgress(_ context.Context, _ uuid.UUID, currentDay int) error {
	f.sim.CurrentDay = currentDay
	return nil
}

func (f *fakeStore) FinalizeSimulation(_ context.Context, _ uuid.UUID, stats types.ArenaSimulation) error {
	f.sim.TotalTrades = stats.TotalTrades
	return nil
}

func (f *fakeStore) InsertPosition(_ context.Context, pos types.ArenaPosition) (uuid.UUID, error) {
	return uuid.New(), nil
}

func (f *fakeStore) FillEntry(context.Context, uuid.UUID, time.Time, decimal.Decimal, int64, decimal.Decimal) error {
	return nil
}

func (f *fakeStore) UpdateTrailingStop(context.Context, uuid.UUID, decimal.Decimal, decimal.Decimal) error {
	return nil
}

func (f *fakeStore) CloseExit(context.Context, uuid.UUID, time.Time, decimal.Decimal, decimal.Decimal, decimal.Decimal, types.ExitReason) error {
	return nil
}

func (f *fakeStore) ListPositions(context.Context, uuid.UUID) ([]types.ArenaPosition, error) {
	return nil, nil
}

func (f *fakeStore) ListOpenPositions(context.Context, uuid.UUID) ([]types.ArenaPosition, error) {
	return nil, nil
}

func (f *fakeStore) ListPendingPositions(context.Context, uuid.UUID) ([]types.ArenaPosition, error) {
	return nil, nil
}

func (f *fakeStore) InsertSnapshot(_ context.Context, snap types.ArenaSnapshot) error {
	f.snapshots = append(f.snapshots, snap)
	return nil
}

func (f *fakeStore) ListSnapshots(context.Context, uuid.UUID) ([]types.ArenaSnapshot, error) {
	return f.snapshots, nil
}

func (f *fakeStore) LatestSnapshot(_ context.Context, _ uuid.UUID) (types.ArenaSnapshot, bool, error) {
	if len(f.snapshots) == 0 {
		return types.ArenaSnapshot{}, false, nil
	}

	return f.snapshots[len(f.snapshots)-1], true, nil
}

func (f *fakeStore) GetSector(context.Context, string) (types.StockSector, bool, error) {
	return types.StockSector{}, false, nil
}

// fakePriceCache serves a flat, unchanging daily bar for every fetch.
type fakePriceCache struct{}

func (fakePriceCache) FetchAndStore(_ context.Context, _ string, symbol string, _ types.Interval, start, end time.Time, _ bool) (cache.Result, error) {
	var bars []types.PriceBar

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		bars = append(bars, types.PriceBar{
			Symbol: symbol, Timestamp: d, Interval: types.Interval1Day,
			Open: decimal.NewFromInt(100), High: decimal.NewFromInt(100),
			Low: decimal.NewFromInt(100), Close: decimal.NewFromInt(100),
			Volume: 1000, DataSource: "mock", IsValidated: true,
		})
	}

	return cache.Result{Bars: bars}, nil
}

// neverBuyAgent never signals, so the simulation runs to completion with
// zero positions opened — enough to exercise the Processor's init/step/
// cancellation loop without the engine's trade-management paths.
type neverBuyAgent struct{}

func (neverBuyAgent) Name() string               { return "never-buy" }
func (neverBuyAgent) RequiredLookbackDays() int { return 1 }
func (neverBuyAgent) Evaluate(context.Context, string, []types.PriceBar, time.Time, bool) (agent.Decision, error) {
	return agent.Decision{Action: types.AgentActionNoSignal}, nil
}

// fakeQueue implements cancellationChecker; set cancelled to true to make
// the Processor stop cooperatively mid-run.
type fakeQueue struct {
	cancelled bool
	calls     int
}

func (q *fakeQueue) IsCancelled(context.Context, uuid.UUID) (bool, error) {
	q.calls++
	return q.cancelled, nil
}

func newTestEngine(st *fakeStore) *engine.Engine {
	log, _ := logger.NewDevelopment()
	agents := agent.NewRegistry(neverBuyAgent{})
	portfolios := agent.NewPortfolioRegistry()

	return engine.New(st, fakePriceCache{}, agents, portfolios, nil, "mock", "", log)
}

type ProcessorTestSuite struct {
	suite.Suite
}

func TestProcessorSuite(t *testing.T) {
	suite.Run(t, new(ProcessorTestSuite))
}

func sampleSim() types.ArenaSimulation {
	return types.ArenaSimulation{
		ID:             uuid.New(),
		Symbols:        []string{"AAPL"},
		StartDate:      time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC),
		EndDate:        time.Date(2024, 1, 4, 12, 0, 0, 0, time.UTC),
		InitialCapital: decimal.NewFromInt(100000),
		PositionSize:   decimal.NewFromInt(1000),
		AgentType:      "never-buy",
		Status:         types.JobStatusRunning,
	}
}

func (s *ProcessorTestSuite) TestProcessRunsToCompletion() {
	st := &fakeStore{sim: sampleSim()}
	eng := newTestEngine(st)
	q := &fakeQueue{}

	p := &Processor{engine: eng, queue: q}

	s.Require().NoError(p.Process(context.Background(), st.sim))
	s.Greater(st.sim.TotalDays, 0)
	s.Equal(st.sim.TotalDays, st.sim.CurrentDay)
	s.True(q.calls > 0, "expected cancellation check between days")
}

func (s *ProcessorTestSuite) TestProcessStopsOnCancellation() {
	st := &fakeStore{sim: sampleSim()}
	eng := newTestEngine(st)
	q := &fakeQueue{cancelled: true}

	p := &Processor{engine: eng, queue: q}

	s.Require().NoError(p.Process(context.Background(), st.sim))
	s.Equal(0, st.sim.CurrentDay, "no day should advance once cancellation is observed up front")
}
