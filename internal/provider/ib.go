package provider

import (
	"context"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/quantarena/arena/internal/types"
	"github.com/quantarena/arena/pkg/errors"
	"github.com/shopspring/decimal"
)

// polygonAggsIterator is the subset of iter.Iter[models.Agg] the ib
// provider drives, so a fake can stand in for tests without a real
// Polygon API key.
type polygonAggsIterator interface {
	Next() bool
	Item() models.Agg
	Err() error
}

// polygonAPIClient is the subset of *polygon.Client the ib provider calls,
// narrowed so tests can substitute a fake instead of a live API client.
type polygonAPIClient interface {
	ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) polygonAggsIterator
}

type polygonClientWrapper struct {
	client *polygon.Client
}

func (w *polygonClientWrapper) ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) polygonAggsIterator {
	return w.client.ListAggs(ctx, params, options...)
}

// IB is the interactive-brokers-account-scoped market data provider. Its
// historical-bar fetch is backed by Polygon.io, a genuine US-equities
// OHLCV source the account is entitled to via its market data
// subscription; order execution for the same account goes through
// internal/broker's ib Broker variant.
type IB struct {
	apiClient polygonAPIClient
}

// NewIB builds an IB market-data provider backed by a Polygon API key.
func NewIB(apiKey string) (*IB, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "polygon api key is required for the ib market data provider")
	}

	client := polygon.New(apiKey)

	return &IB{apiClient: &polygonClientWrapper{client: client}}, nil
}

// NewIBWithClient builds an IB provider around a caller-supplied client,
// for tests that fake out the Polygon API surface.
func NewIBWithClient(client polygonAPIClient) *IB {
	return &IB{apiClient: client}
}

func (p *IB) Name() string { return "ib" }

func (p *IB) FetchBars(ctx context.Context, req FetchRequest) ([]types.PriceBar, error) {
	multiplier, timespan := polygonTimespan(req.Interval)

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     req.Symbol,
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(req.Start),
		To:         models.Millis(req.End),
	}.WithLimit(50000)

	iterator := p.apiClient.ListAggs(ctx, &params)

	var bars []types.PriceBar

	for iterator.Next() {
		select {
		case <-ctx.Done():
			return bars, ctx.Err()
		default:
		}

		agg := iterator.Item()

		bars = append(bars, types.PriceBar{
			Symbol:        req.Symbol,
			Timestamp:     time.Time(agg.Timestamp),
			Interval:      req.Interval,
			Open:          decimal.NewFromFloat(agg.Open),
			High:          decimal.NewFromFloat(agg.High),
			Low:           decimal.NewFromFloat(agg.Low),
			Close:         decimal.NewFromFloat(agg.Close),
			Volume:        int64(agg.Volume),
			DataSource:    p.Name(),
			LastFetchedAt: time.Now(),
			IsValidated:   true,
		})
	}

	if err := iterator.Err(); err != nil {
		return bars, errors.Wrap(errors.ErrCodeProviderTransport, "polygon aggs iteration failed", err)
	}

	return bars, nil
}

// FetchSector is not yet backed by a real reference-data call; this
// provider's market-data capability covers historical bars only. Sector
// metadata for Polygon-backed symbols is seeded out of band until a
// reference-data endpoint is wired in.
func (p *IB) FetchSector(_ context.Context, symbol string) (types.StockSector, error) {
	return types.StockSector{}, errors.Newf(errors.ErrCodeProviderValidation, "ib provider does not yet support sector lookup for %s", symbol)
}

func polygonTimespan(interval types.Interval) (int, models.Timespan) {
	switch interval {
	case types.Interval1Min:
		return 1, models.Minute
	case types.Interval2Min:
		return 2, models.Minute
	case types.Interval5Min:
		return 5, models.Minute
	case types.Interval15Min:
		return 15, models.Minute
	case types.Interval30Min:
		return 30, models.Minute
	case types.Interval60Min, types.Interval1Hour:
		return 1, models.Hour
	case types.Interval90Min:
		return 90, models.Minute
	case types.Interval1Day:
		return 1, models.Day
	case types.Interval5Day:
		return 5, models.Day
	case types.Interval1Week:
		return 1, models.Week
	case types.Interval1Mo:
		return 1, models.Month
	case types.Interval3Mo:
		return 3, models.Month
	default:
		return 1, models.Day
	}
}
