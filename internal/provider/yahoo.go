package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/quantarena/arena/internal/types"
	"github.com/quantarena/arena/pkg/errors"
	"github.com/shopspring/decimal"
)

const yahooChartBaseURL = "https://query1.finance.yahoo.com/v8/finance/chart"

// Yahoo is the free, unauthenticated Yahoo Finance chart-API provider.
// Retries (bounded, exponential backoff) are handled by retryablehttp
// rather than a hand-rolled loop.
type Yahoo struct {
	client  *retryablehttp.Client
	baseURL string
}

// NewYahoo builds a Yahoo provider with the given retry budget.
func NewYahoo(maxRetries int, retryDelay time.Duration) *Yahoo {
	client := retryablehttp.NewClient()
	client.RetryMax = maxRetries
	client.RetryWaitMin = retryDelay
	client.RetryWaitMax = retryDelay * time.Duration(1<<uint(maxRetries))
	client.Logger = nil
	// Once retries on a 429 are exhausted, hand the last response back so
	// FetchBars reports it as rate limited rather than as a transport error.
	client.ErrorHandler = func(resp *http.Response, err error, attempts int) (*http.Response, error) {
		if resp == nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			return resp, nil
		}
		resp.Body.Close()

		return nil, fmt.Errorf("giving up after %d attempt(s) with status %d", attempts, resp.StatusCode)
	}

	return &Yahoo{client: client, baseURL: yahooChartBaseURL}
}

func (y *Yahoo) Name() string { return "yahoo" }

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
				AdjClose []struct {
					AdjClose []*float64 `json:"adjclose"`
				} `json:"adjclose"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (y *Yahoo) FetchBars(ctx context.Context, req FetchRequest) ([]types.PriceBar, error) {
	interval := yahooInterval(req.Interval)

	url := fmt.Sprintf("%s/%s?period1=%d&period2=%d&interval=%s",
		y.baseURL, req.Symbol, req.Start.Unix(), req.End.Unix(), interval)

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeProviderTransport, "failed to build yahoo request", err)
	}

	resp, err := y.client.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeProviderTransport, "yahoo request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, errors.Newf(errors.ErrCodeProviderRateLimited, "yahoo rate limited request for %s", req.Symbol)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, errors.Newf(errors.ErrCodeSymbolNotFound, "yahoo has no data for symbol %s", req.Symbol)
	}

	var parsed yahooChartResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, errors.Wrap(errors.ErrCodeProviderValidation, "failed to decode yahoo response", err)
	}

	if parsed.Chart.Error != nil {
		return nil, errors.Newf(errors.ErrCodeProviderValidation, "yahoo error for %s: %s", req.Symbol, parsed.Chart.Error.Description)
	}

	if len(parsed.Chart.Result) == 0 {
		return nil, errors.Newf(errors.ErrCodeSymbolNotFound, "yahoo returned no results for %s", req.Symbol)
	}

	result := parsed.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, errors.Newf(errors.ErrCodeProviderValidation, "yahoo response for %s has no quote series", req.Symbol)
	}

	quote := result.Indicators.Quote[0]

	bars := make([]types.PriceBar, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		if !hasOHLC(quote, i) {
			continue
		}

		bar := types.PriceBar{
			Symbol:        req.Symbol,
			Timestamp:     time.Unix(ts, 0).UTC(),
			Interval:      req.Interval,
			Open:          decimal.NewFromFloat(*quote.Open[i]),
			High:          decimal.NewFromFloat(*quote.High[i]),
			Low:           decimal.NewFromFloat(*quote.Low[i]),
			Close:         decimal.NewFromFloat(*quote.Close[i]),
			DataSource:    y.Name(),
			LastFetchedAt: time.Now(),
			IsValidated:   true,
		}

		if quote.Volume[i] != nil {
			bar.Volume = *quote.Volume[i]
		}

		if len(result.Indicators.AdjClose) > 0 && i < len(result.Indicators.AdjClose[0].AdjClose) {
			if adj := result.Indicators.AdjClose[0].AdjClose[i]; adj != nil {
				adjDec := decimal.NewFromFloat(*adj)
				bar.AdjustedClose = &adjDec
			}
		}

		bars = append(bars, bar)
	}

	return bars, nil
}

func hasOHLC(quote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*int64   `json:"volume"`
}, i int,
) bool {
	return i < len(quote.Open) && quote.Open[i] != nil &&
		i < len(quote.High) && quote.High[i] != nil &&
		i < len(quote.Low) && quote.Low[i] != nil &&
		i < len(quote.Close) && quote.Close[i] != nil
}

func yahooInterval(interval types.Interval) string {
	switch interval {
	case types.Interval1Min, types.Interval2Min, types.Interval5Min, types.Interval15Min, types.Interval30Min,
		types.Interval60Min, types.Interval90Min, types.Interval1Hour:
		return string(interval)
	case types.Interval1Day:
		return "1d"
	case types.Interval5Day:
		return "5d"
	case types.Interval1Week:
		return "1wk"
	case types.Interval1Mo:
		return "1mo"
	case types.Interval3Mo:
		return "3mo"
	default:
		return "1d"
	}
}

// FetchSector is unsupported on the Yahoo chart endpoint; sector metadata
// comes from the ib/Polygon variant or is pre-seeded.
func (y *Yahoo) FetchSector(_ context.Context, symbol string) (types.StockSector, error) {
	return types.StockSector{}, errors.Newf(errors.ErrCodeProviderValidation, "yahoo provider does not support sector lookup for %s", symbol)
}
