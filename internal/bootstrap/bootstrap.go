// Package bootstrap wires the shared store/provider construction every
// cmd entrypoint needs, so arena-worker, live20-worker, and migrate don't
// each duplicate the same config-to-dependency plumbing.
package bootstrap

import (
	"context"
	"os"

	"github.com/quantarena/arena/internal/config"
	"github.com/quantarena/arena/internal/logger"
	"github.com/quantarena/arena/internal/provider"
	"github.com/quantarena/arena/internal/store"
)

// NewStore opens the Postgres-backed price store from the resolved config.
func NewStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (*store.Store, error) {
	return store.New(ctx, cfg.DatabaseURL, log)
}

// NewProviderRegistry builds the market data provider set available to the
// cache: yahoo and mock are always present, ib (Polygon-backed) joins in
// only when POLYGON_API_KEY is set, since it requires a live API key to
// construct.
func NewProviderRegistry(cfg *config.Config) *provider.Registry {
	providers := []provider.MarketDataProvider{
		provider.NewYahoo(cfg.YahooMaxRetries, cfg.YahooRetryDelay),
		provider.NewMock(),
	}

	if apiKey := os.Getenv("POLYGON_API_KEY"); apiKey != "" {
		if ib, err := provider.NewIB(apiKey); err == nil {
			providers = append(providers, ib)
		}
	}

	return provider.NewRegistry(providers...)
}
