package indicator

import (
	"github.com/quantarena/arena/pkg/errors"
	"github.com/shopspring/decimal"
)

// EMA computes the exponential moving average of closes in its recursive
// form: seed with the simple average of the first `period` values, then
// smooth each later value with alpha = 2/(period+1).
func EMA(closes []decimal.Decimal, period int) (decimal.Decimal, error) {
	if period <= 0 {
		return decimal.Zero, errors.Newf(errors.ErrCodeInvalidPeriod, "period must be positive, got %d", period)
	}

	if len(closes) < period {
		return decimal.Zero, errors.NewInsufficientDataErrorf(period, len(closes), "", "EMA requires %d points, got %d", period, len(closes))
	}

	seed := decimal.Zero
	for i := 0; i < period; i++ {
		seed = seed.Add(closes[i])
	}

	seed = seed.Div(decimal.NewFromInt(int64(period)))

	alpha := decimal.NewFromInt(2).Div(decimal.NewFromInt(int64(period + 1)))
	oneMinusAlpha := decimal.NewFromInt(1).Sub(alpha)

	ema := seed
	for i := period; i < len(closes); i++ {
		ema = closes[i].Mul(alpha).Add(ema.Mul(oneMinusAlpha))
	}

	return ema, nil
}
