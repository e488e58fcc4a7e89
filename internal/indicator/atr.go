package indicator

import (
	"github.com/quantarena/arena/pkg/errors"
	"github.com/shopspring/decimal"
)

// ATR computes the Average True Range over parallel high/low/close slices
// ordered oldest first, using the true-range series smoothed by EMA.
func ATR(highs, lows, closes []decimal.Decimal, period int) (decimal.Decimal, error) {
	if period <= 0 {
		return decimal.Zero, errors.Newf(errors.ErrCodeInvalidPeriod, "period must be positive, got %d", period)
	}

	if len(highs) != len(lows) || len(highs) != len(closes) {
		return decimal.Zero, errors.New(errors.ErrCodeInvalidParameter, "high, low and close slices must have equal length")
	}

	if len(closes) < period+1 {
		return decimal.Zero, errors.NewInsufficientDataErrorf(period+1, len(closes), "", "ATR requires %d points, got %d", period+1, len(closes))
	}

	trueRanges := make([]decimal.Decimal, 0, len(closes)-1)

	for i := 1; i < len(closes); i++ {
		highLow := highs[i].Sub(lows[i]).Abs()
		highPrevClose := highs[i].Sub(closes[i-1]).Abs()
		lowPrevClose := lows[i].Sub(closes[i-1]).Abs()

		tr := highLow
		if highPrevClose.GreaterThan(tr) {
			tr = highPrevClose
		}

		if lowPrevClose.GreaterThan(tr) {
			tr = lowPrevClose
		}

		trueRanges = append(trueRanges, tr)
	}

	return EMA(trueRanges, period)
}
