package cache

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/quantarena/arena/internal/calendar"
	"github.com/quantarena/arena/internal/logger"
	"github.com/quantarena/arena/internal/provider"
	"github.com/quantarena/arena/internal/store"
	"github.com/quantarena/arena/internal/types"
	"github.com/quantarena/arena/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// PriceStore is the L2 tier's capability boundary: the subset of
// *store.Store the cache needs. Narrowed to an interface so cache tests
// can substitute an in-memory fake instead of a live Postgres instance.
type PriceStore interface {
	GetBarsInRange(ctx context.Context, symbol string, start, end time.Time, interval types.Interval) ([]types.PriceBar, error)
	UpsertBars(ctx context.Context, bars []types.PriceBar) (store.UpsertResult, error)
	UpdateLastFetchedAt(ctx context.Context, symbol string, start, end time.Time, interval types.Interval) error
}

// l1Entry is the L1 cache value. Entries are keyed by cacheKey's
// (symbol, interval, start_date, end_date) shape.
type l1Entry struct {
	Bars []types.PriceBar
}

// Cache is the two-tier Market Data Cache. It is a process-wide singleton
// with its own lifecycle (constructed once at startup, no teardown
// required) — callers pass it in explicitly rather than reaching for a
// package-level accessor.
type Cache struct {
	l1             *lru.LRU[string, l1Entry]
	store          PriceStore
	providers      *provider.Registry
	group          singleflight.Group
	marketHoursTTL time.Duration
	logger         *logger.Logger
}

// Result is what FetchAndStore returns to a consumer.
type Result struct {
	Bars         []types.PriceBar
	CacheHit     bool
	HitType      types.CacheHitType
	MarketStatus types.MarketStatus
}

// New builds a Cache with the given L1 size/TTL and market-hours TTL.
func New(st PriceStore, providers *provider.Registry, l1Size int, l1TTL, marketHoursTTL time.Duration, log *logger.Logger) *Cache {
	return &Cache{
		l1:             lru.NewLRU[string, l1Entry](l1Size, nil, l1TTL),
		store:          st,
		providers:      providers,
		marketHoursTTL: marketHoursTTL,
		logger:         log,
	}
}

func cacheKey(symbol string, interval types.Interval, start, end time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%s", symbol, interval, start.Format(time.RFC3339), end.Format(time.RFC3339))
}

// FetchAndStore runs the cache-fill algorithm: an L1 lookup, a freshness
// check, a per-key singleflight-coordinated provider fetch on miss, and
// an L2 upsert before populating L1. At most one provider call happens
// per cache key even under concurrent callers.
func (c *Cache) FetchAndStore(ctx context.Context, providerName, symbol string, interval types.Interval, start, end time.Time, forceRefresh bool) (Result, error) {
	symbol = types.CanonicalSymbol(symbol)
	key := cacheKey(symbol, interval, start, end)

	if !forceRefresh {
		if entry, ok := c.l1.Get(key); ok {
			return Result{Bars: entry.Bars, CacheHit: true, HitType: types.CacheHitL1, MarketStatus: types.MarketStatus(calendar.MarketStatus(time.Now()))}, nil
		}

		result, ok, err := c.tryFreshFromStore(ctx, symbol, interval, start, end, forceRefresh)
		if err != nil {
			return Result{}, err
		}

		if ok {
			c.l1.Add(key, l1Entry{Bars: result.Bars})

			return result, nil
		}
	}

	out, err, _ := c.group.Do(key, func() (interface{}, error) {
		return c.fetchAndStoreLocked(ctx, providerName, symbol, interval, start, end, forceRefresh)
	})
	if err != nil {
		return Result{}, err
	}

	result := out.(Result)
	c.l1.Add(key, l1Entry{Bars: result.Bars})

	return result, nil
}

// fetchAndStoreLocked runs inside the per-key singleflight group: this is
// the "acquire the key's mutex" step, with singleflight standing in for
// a hand-rolled mutex map.
func (c *Cache) fetchAndStoreLocked(ctx context.Context, providerName, symbol string, interval types.Interval, start, end time.Time, forceRefresh bool) (Result, error) {
	if !forceRefresh {
		if result, ok, err := c.tryFreshFromStore(ctx, symbol, interval, start, end, forceRefresh); err != nil {
			return Result{}, err
		} else if ok {
			return result, nil
		}
	}

	p, ok := c.providers.Get(providerName)
	if !ok {
		return Result{}, errors.Newf(errors.ErrCodeInvalidProvider, "unknown market data provider %q", providerName)
	}

	existing, err := c.store.GetBarsInRange(ctx, symbol, start, end, interval)
	if err != nil {
		return Result{}, errors.Wrap(errors.ErrCodeCacheFetchFailed, "failed to read price store before fetch", err)
	}

	fresh := CheckFreshnessSmart(FreshnessInputs{
		Symbol: symbol, Interval: interval, Start: start, End: end,
		Now: time.Now(), MarketHoursTTL: c.marketHoursTTL, ExistingBars: existing,
	})

	fetchStart := start
	if fresh.NeedsFetch && !fresh.FetchStartDate.IsZero() {
		fetchStart = fresh.FetchStartDate
	}

	fetched, err := p.FetchBars(ctx, provider.FetchRequest{Symbol: symbol, Interval: interval, Start: fetchStart, End: end})
	if err != nil {
		if c.logger != nil {
			c.logger.Warn("provider fetch failed", zap.String("symbol", symbol), zap.Error(err))
		}

		return Result{}, err
	}

	if len(fetched) > 0 {
		if _, err := c.store.UpsertBars(ctx, fetched); err != nil {
			return Result{}, errors.Wrap(errors.ErrCodeCacheFetchFailed, "failed to upsert fetched bars", err)
		}
	}

	if err := c.store.UpdateLastFetchedAt(ctx, symbol, fetchStart, end, interval); err != nil {
		return Result{}, errors.Wrap(errors.ErrCodeCacheFetchFailed, "failed to bump last_fetched_at", err)
	}

	bars, err := c.store.GetBarsInRange(ctx, symbol, start, end, interval)
	if err != nil {
		return Result{}, errors.Wrap(errors.ErrCodeCacheFetchFailed, "failed to re-read price store after fetch", err)
	}

	return Result{Bars: bars, CacheHit: false, HitType: types.CacheMiss, MarketStatus: fresh.MarketStatus}, nil
}

func (c *Cache) tryFreshFromStore(ctx context.Context, symbol string, interval types.Interval, start, end time.Time, forceRefresh bool) (Result, bool, error) {
	if forceRefresh {
		return Result{}, false, nil
	}

	existing, err := c.store.GetBarsInRange(ctx, symbol, start, end, interval)
	if err != nil {
		return Result{}, false, errors.Wrap(errors.ErrCodeCacheFetchFailed, "failed to read price store", err)
	}

	fresh := CheckFreshnessSmart(FreshnessInputs{
		Symbol: symbol, Interval: interval, Start: start, End: end,
		Now: time.Now(), MarketHoursTTL: c.marketHoursTTL, ExistingBars: existing,
	})

	if !fresh.IsFresh {
		return Result{}, false, nil
	}

	return Result{Bars: existing, CacheHit: true, HitType: types.CacheHitStore, MarketStatus: fresh.MarketStatus}, true, nil
}
