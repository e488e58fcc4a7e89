package types

import (
	"time"

	"github.com/quantarena/arena/pkg/errors"
	"github.com/shopspring/decimal"
)

// PriceBar is one OHLCV time-slice for a symbol at a given interval.
// Prices are fixed-point decimals quantised to 4 fractional digits.
type PriceBar struct {
	Symbol         string          `json:"symbol" db:"symbol"`
	Timestamp      time.Time       `json:"timestamp" db:"timestamp"`
	Interval       Interval        `json:"interval" db:"interval"`
	Open           decimal.Decimal `json:"open" db:"open"`
	High           decimal.Decimal `json:"high" db:"high"`
	Low            decimal.Decimal `json:"low" db:"low"`
	Close          decimal.Decimal `json:"close" db:"close"`
	Volume         int64           `json:"volume" db:"volume"`
	AdjustedClose  *decimal.Decimal `json:"adjusted_close,omitempty" db:"adjusted_close"`
	DataSource     string          `json:"data_source" db:"data_source"`
	LastFetchedAt  time.Time       `json:"last_fetched_at" db:"last_fetched_at"`
	IsValidated    bool            `json:"is_validated" db:"is_validated"`
}

// PricePrecision is the fractional-digit quantisation applied to every price field.
const PricePrecision = 4

// Validate enforces the invariants from the data model: positive prices,
// low/high bounding open and close, non-negative volume, and a recognised interval.
func (b *PriceBar) Validate() error {
	if b.Symbol == "" {
		return errors.New(errors.ErrCodeInvalidParameter, "price bar symbol is required")
	}

	if !IsValidInterval(b.Interval) {
		return errors.Newf(errors.ErrCodeInvalidParameter, "unrecognized interval %q", b.Interval)
	}

	if b.Volume < 0 {
		return errors.New(errors.ErrCodeInvalidParameter, "volume must be non-negative")
	}

	for _, p := range []decimal.Decimal{b.Open, b.High, b.Low, b.Close} {
		if !p.IsPositive() {
			return errors.New(errors.ErrCodeInvalidParameter, "prices must be positive")
		}
	}

	if b.Low.GreaterThan(b.Open) || b.Low.GreaterThan(b.Close) || b.Low.GreaterThan(b.High) {
		return errors.New(errors.ErrCodeInvalidParameter, "low must not exceed open, close, or high")
	}

	if b.Open.GreaterThan(b.High) || b.Close.GreaterThan(b.High) {
		return errors.New(errors.ErrCodeInvalidParameter, "open and close must not exceed high")
	}

	return nil
}

// Quantize rounds every price field to PricePrecision fractional digits,
// matching the store's fixed-point column definitions.
func (b *PriceBar) Quantize() {
	b.Open = b.Open.Round(PricePrecision)
	b.High = b.High.Round(PricePrecision)
	b.Low = b.Low.Round(PricePrecision)
	b.Close = b.Close.Round(PricePrecision)

	if b.AdjustedClose != nil {
		rounded := b.AdjustedClose.Round(PricePrecision)
		b.AdjustedClose = &rounded
	}
}

// StockSector caches the descriptive metadata the provider returns once per symbol.
type StockSector struct {
	Symbol    string    `json:"symbol" db:"symbol"`
	Sector    string    `json:"sector" db:"sector"`
	SectorETF string    `json:"sector_etf" db:"sector_etf"`
	Industry  string    `json:"industry" db:"industry"`
	Name      string    `json:"name" db:"name"`
	Exchange  string    `json:"exchange" db:"exchange"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// SectorETF maps GICS sectors to their SPDR sector ETF ticker.
var SectorETF = map[string]string{
	"Technology":             "XLK",
	"Health Care":            "XLV",
	"Financials":             "XLF",
	"Consumer Discretionary": "XLY",
	"Consumer Staples":       "XLP",
	"Energy":                 "XLE",
	"Industrials":            "XLI",
	"Materials":              "XLB",
	"Utilities":              "XLU",
	"Real Estate":            "XLRE",
	"Communication Services": "XLC",
}
