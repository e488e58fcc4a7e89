package cache

import (
	"context"
	"sync"
	"time"

	"github.com/quantarena/arena/internal/store"
	"github.com/quantarena/arena/internal/types"
)

// fakeStore is an in-memory L2 stand-in, guarded by a mutex so the
// concurrent-cache-fill scenario exercises real contention instead of a
// single-threaded illusion of it.
type fakeStore struct {
	mu   sync.Mutex
	bars []types.PriceBar
}

func newFakeStore() *fakeStore {
	return &fakeStore{}
}

func (f *fakeStore) GetBarsInRange(_ context.Context, symbol string, start, end time.Time, interval types.Interval) ([]types.PriceBar, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []types.PriceBar

	for _, b := range f.bars {
		if b.Symbol == symbol && b.Interval == interval && !b.Timestamp.Before(start) && !b.Timestamp.After(end) {
			out = append(out, b)
		}
	}

	return out, nil
}

func (f *fakeStore) UpsertBars(_ context.Context, bars []types.PriceBar) (store.UpsertResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var result store.UpsertResult

	for _, bar := range bars {
		found := false

		for i, existing := range f.bars {
			if existing.Symbol == bar.Symbol && existing.Interval == bar.Interval && existing.Timestamp.Equal(bar.Timestamp) {
				f.bars[i] = bar
				found = true
				result.Updated++

				break
			}
		}

		if !found {
			f.bars = append(f.bars, bar)
			result.Inserted++
		}
	}

	return result, nil
}

func (f *fakeStore) UpdateLastFetchedAt(_ context.Context, symbol string, start, end time.Time, interval types.Interval) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()

	for i, b := range f.bars {
		if b.Symbol == symbol && b.Interval == interval && !b.Timestamp.Before(start) && !b.Timestamp.After(end) {
			f.bars[i].LastFetchedAt = now
		}
	}

	return nil
}
