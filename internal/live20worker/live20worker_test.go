package live20worker

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/quantarena/arena/internal/cache"
	"github.com/quantarena/arena/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// fakePriceCache serves a flat, unchanging daily bar for any symbol, except
// for symbols listed in errSymbols which always fail the fetch.
type fakePriceCache struct {
	errSymbols map[string]bool
}

func (f fakePriceCache) FetchAndStore(_ context.Context, _ string, symbol string, _ types.Interval, start, end time.Time, _ bool) (cache.Result, error) {
	if f.errSymbols[symbol] {
		return cache.Result{}, assertErr{}
	}

	var bars []types.PriceBar

	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		bars = append(bars, types.PriceBar{
			Symbol: symbol, Timestamp: d, Interval: types.Interval1Day,
			Open: decimal.NewFromInt(100), High: decimal.NewFromInt(101),
			Low: decimal.NewFromInt(99), Close: decimal.NewFromInt(100),
			Volume: 1000, DataSource: "mock", IsValidated: true,
		})
	}

	return cache.Result{Bars: bars}, nil
}

type assertErr struct{}

func (assertErr) Error() string { return "simulated fetch failure" }

// fakeRunStore records every progress update and recommendation insert
// in memory, standing in for *internal/store.Store.
type fakeRunStore struct {
	progress      []progressCall
	recs          []types.Recommendation
	insertErr     error
	updateErr     error
}

type progressCall struct {
	processed, long, short, noSetup int
	failedSymbols                   map[string]string
}

func (f *fakeRunStore) UpdateLive20Progress(_ context.Context, _ uuid.UUID, processed, long, short, noSetup int, failedSymbols map[string]string) error {
	if f.updateErr != nil {
		return f.updateErr
	}

	f.progress = append(f.progress, progressCall{processed, long, short, noSetup, failedSymbols})

	return nil
}

func (f *fakeRunStore) InsertRecommendation(_ context.Context, rec types.Recommendation) (uuid.UUID, error) {
	if f.insertErr != nil {
		return uuid.Nil, f.insertErr
	}

	f.recs = append(f.recs, rec)

	return uuid.New(), nil
}

// fakeQueue implements cancellationChecker; set cancelled to true to stop
// the Processor cooperatively before the next symbol.
type fakeQueue struct {
	cancelled bool
	calls     int
}

func (q *fakeQueue) IsCancelled(context.Context, uuid.UUID) (bool, error) {
	q.calls++
	return q.cancelled, nil
}

func sampleRun() types.Live20Run {
	return types.Live20Run{
		ID:           uuid.New(),
		InputSymbols: []string{"AAPL", "MSFT", "GOOG"},
		Status:       types.JobStatusRunning,
	}
}

type ProcessorTestSuite struct {
	suite.Suite
}

func TestProcessorSuite(t *testing.T) {
	suite.Run(t, new(ProcessorTestSuite))
}

func (s *ProcessorTestSuite) TestProcessScoresEverySymbolNoSetup() {
	run := sampleRun()
	st := &fakeRunStore{}
	q := &fakeQueue{}
	p := NewProcessor(st, fakePriceCache{}, q, "mock", nil)

	s.Require().NoError(p.Process(context.Background(), run))
	s.Len(st.recs, 3, "expected one recommendation per symbol")
	s.Equal(3, q.calls, "expected a cancellation check before every symbol")

	last := st.progress[len(st.progress)-1]
	s.Equal(3, last.processed)
	s.Equal(0, last.long)
	s.Equal(0, last.short)
	s.Equal(3, last.noSetup, "flat price history never aligns 3 criteria, so every symbol is NO_SETUP")
}

func (s *ProcessorTestSuite) TestProcessStopsOnCancellation() {
	run := sampleRun()
	st := &fakeRunStore{}
	q := &fakeQueue{cancelled: true}
	p := NewProcessor(st, fakePriceCache{}, q, "mock", nil)

	s.Require().NoError(p.Process(context.Background(), run))
	s.Empty(st.recs, "no symbol should be scored once cancellation is observed up front")
}

func (s *ProcessorTestSuite) TestProcessResumesFromPersistedCounters() {
	run := sampleRun()
	run.ProcessedCount = 2
	run.NoSetupCount = 2

	st := &fakeRunStore{}
	q := &fakeQueue{}
	p := NewProcessor(st, fakePriceCache{}, q, "mock", nil)

	s.Require().NoError(p.Process(context.Background(), run))
	s.Len(st.recs, 1, "only the unprocessed tail symbol should be scored")
	s.Equal("GOOG", st.recs[0].Stock)
}

func (s *ProcessorTestSuite) TestProcessRecordsFetchFailuresAsNoSetup() {
	run := sampleRun()
	st := &fakeRunStore{}
	q := &fakeQueue{}
	prices := fakePriceCache{errSymbols: map[string]bool{"MSFT": true}}
	p := NewProcessor(st, prices, q, "mock", nil)

	s.Require().NoError(p.Process(context.Background(), run))
	s.Len(st.recs, 2, "the failing symbol is skipped, not recommended")

	last := st.progress[len(st.progress)-1]
	s.Equal(3, last.processed)
	s.Equal(3, last.noSetup)
	s.Contains(last.failedSymbols, "MSFT")
}
