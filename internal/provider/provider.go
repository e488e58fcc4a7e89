// Package provider defines the MarketDataProvider capability boundary and
// its concrete variants (yahoo, ib, mock): one narrow interface, several
// interchangeable backends selected by config, no concrete type ever
// reaching the cache or engine layers directly.
package provider

import (
	"context"
	"time"

	"github.com/quantarena/arena/internal/types"
)

// FetchRequest describes a single historical-bar fetch.
type FetchRequest struct {
	Symbol   string
	Interval types.Interval
	Start    time.Time
	End      time.Time
}

// MarketDataProvider is the capability every market-data backend
// implements. Implementations return whatever subset of the requested
// range is available — the cache layer upserts partial results and
// refetches the remaining gap on a later call.
type MarketDataProvider interface {
	// Name identifies the provider for logging and registry lookup.
	Name() string

	// FetchBars retrieves OHLCV bars for the requested range. Errors must
	// carry one of the provider error kinds (symbol unknown, validation,
	// transport, rate limit) so the cache layer can decide whether the
	// freshness result should be left untouched.
	FetchBars(ctx context.Context, req FetchRequest) ([]types.PriceBar, error)

	// FetchSector retrieves sector/industry metadata for a symbol, used
	// to populate the Price Store's stock_sectors table on first sight.
	FetchSector(ctx context.Context, symbol string) (types.StockSector, error)
}

// Registry resolves a provider name to an instance: a static name lookup,
// no reflection, no plugin loading.
type Registry struct {
	providers map[string]MarketDataProvider
}

// NewRegistry builds a registry from the given named providers.
func NewRegistry(providers ...MarketDataProvider) *Registry {
	r := &Registry{providers: make(map[string]MarketDataProvider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}

	return r
}

// Get resolves a provider by name, returning ok=false if unregistered.
func (r *Registry) Get(name string) (MarketDataProvider, bool) {
	p, ok := r.providers[name]

	return p, ok
}
