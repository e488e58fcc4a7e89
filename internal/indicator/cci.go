package indicator

import (
	"github.com/quantarena/arena/pkg/errors"
	"github.com/shopspring/decimal"
)

var cciConstant = decimal.NewFromFloat(0.015)

// CCI computes the Commodity Channel Index over parallel high/low/close
// slices ordered oldest first, using the standard typical-price / mean
// deviation formula.
func CCI(highs, lows, closes []decimal.Decimal, period int) (decimal.Decimal, error) {
	if period <= 0 {
		return decimal.Zero, errors.Newf(errors.ErrCodeInvalidPeriod, "period must be positive, got %d", period)
	}

	if len(highs) != len(lows) || len(highs) != len(closes) {
		return decimal.Zero, errors.New(errors.ErrCodeInvalidParameter, "high, low and close slices must have equal length")
	}

	if len(closes) < period {
		return decimal.Zero, errors.NewInsufficientDataErrorf(period, len(closes), "", "CCI requires %d points, got %d", period, len(closes))
	}

	three := decimal.NewFromInt(3)
	n := len(closes)
	typical := make([]decimal.Decimal, period)

	for i := 0; i < period; i++ {
		idx := n - period + i
		typical[i] = highs[idx].Add(lows[idx]).Add(closes[idx]).Div(three)
	}

	sma, err := SMA(typical, period)
	if err != nil {
		return decimal.Zero, err
	}

	meanDeviation := decimal.Zero
	for _, tp := range typical {
		meanDeviation = meanDeviation.Add(tp.Sub(sma).Abs())
	}

	meanDeviation = meanDeviation.Div(decimal.NewFromInt(int64(period)))

	if meanDeviation.IsZero() {
		return decimal.Zero, nil
	}

	latest := typical[len(typical)-1]
	cci := latest.Sub(sma).Div(cciConstant.Mul(meanDeviation))

	return cci, nil
}
