package provider

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/quantarena/arena/internal/types"
	"github.com/quantarena/arena/pkg/errors"
)

// Mock is an in-memory, deterministic MarketDataProvider used by the cache
// and provider tests and registered as "mock" by internal/bootstrap. Bars and sectors are seeded directly rather than
// fetched over the network. Safe for concurrent FetchBars calls, since
// cache tests exercise it from parallel goroutines.
type Mock struct {
	mu      sync.RWMutex
	Bars    map[string][]types.PriceBar
	Sectors map[string]types.StockSector
	calls   int64
}

// NewMock builds an empty Mock provider ready for seeding.
func NewMock() *Mock {
	return &Mock{
		Bars:    make(map[string][]types.PriceBar),
		Sectors: make(map[string]types.StockSector),
	}
}

// Seed registers bars for a symbol/interval pair.
func (m *Mock) Seed(symbol string, interval types.Interval, bars []types.PriceBar) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Bars[mockKey(symbol, interval)] = bars
}

// SeedSector registers sector metadata for a symbol.
func (m *Mock) SeedSector(symbol string, sector types.StockSector) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Sectors[symbol] = sector
}

func (m *Mock) Name() string { return "mock" }

// Calls reports how many times FetchBars has been invoked so far.
func (m *Mock) Calls() int64 {
	return atomic.LoadInt64(&m.calls)
}

func (m *Mock) FetchBars(_ context.Context, req FetchRequest) ([]types.PriceBar, error) {
	atomic.AddInt64(&m.calls, 1)

	m.mu.RLock()
	bars, ok := m.Bars[mockKey(req.Symbol, req.Interval)]
	m.mu.RUnlock()

	if !ok {
		return nil, errors.Newf(errors.ErrCodeSymbolNotFound, "mock provider has no data seeded for %s", req.Symbol)
	}

	var out []types.PriceBar

	for _, b := range bars {
		if !b.Timestamp.Before(req.Start) && !b.Timestamp.After(req.End) {
			out = append(out, b)
		}
	}

	return out, nil
}

func (m *Mock) FetchSector(_ context.Context, symbol string) (types.StockSector, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sec, ok := m.Sectors[symbol]
	if !ok {
		return types.StockSector{}, errors.Newf(errors.ErrCodeSymbolNotFound, "mock provider has no sector seeded for %s", symbol)
	}

	return sec, nil
}

func mockKey(symbol string, interval types.Interval) string {
	return symbol + "|" + string(interval)
}
