// Package indicator implements the technical indicator math used by trading
// agents. Every function is a pure calculation over a price window (closes,
// or parallel high/low/close slices for ATR and CCI); callers own data
// retrieval and windowing.
package indicator

import (
	"github.com/quantarena/arena/pkg/errors"
	"github.com/shopspring/decimal"
)

// SMA computes the simple moving average of closes. closes must be ordered
// oldest first and len(closes) >= period.
func SMA(closes []decimal.Decimal, period int) (decimal.Decimal, error) {
	if period <= 0 {
		return decimal.Zero, errors.Newf(errors.ErrCodeInvalidPeriod, "period must be positive, got %d", period)
	}

	if len(closes) < period {
		return decimal.Zero, errors.NewInsufficientDataErrorf(period, len(closes), "", "SMA requires %d points, got %d", period, len(closes))
	}

	window := closes[len(closes)-period:]
	sum := decimal.Zero

	for _, c := range window {
		sum = sum.Add(c)
	}

	return sum.Div(decimal.NewFromInt(int64(period))), nil
}
