package indicator

import (
	"github.com/quantarena/arena/pkg/errors"
	"github.com/shopspring/decimal"
)

// RSI computes the Relative Strength Index over period (live20 calls it
// with period 2) using Wilder's smoothing method. closes must be
// ordered oldest first with len(closes) >= period+1.
func RSI(closes []decimal.Decimal, period int) (decimal.Decimal, error) {
	if period <= 0 {
		return decimal.Zero, errors.Newf(errors.ErrCodeInvalidPeriod, "period must be positive, got %d", period)
	}

	if len(closes) < period+1 {
		return decimal.Zero, errors.NewInsufficientDataErrorf(period+1, len(closes), "", "RSI requires %d points, got %d", period+1, len(closes))
	}

	gains := make([]decimal.Decimal, 0, len(closes)-1)
	losses := make([]decimal.Decimal, 0, len(closes)-1)

	for i := 1; i < len(closes); i++ {
		change := closes[i].Sub(closes[i-1])
		if change.IsPositive() {
			gains = append(gains, change)
			losses = append(losses, decimal.Zero)
		} else {
			gains = append(gains, decimal.Zero)
			losses = append(losses, change.Neg())
		}
	}

	periodDec := decimal.NewFromInt(int64(period))
	avgGain := decimal.Zero
	avgLoss := decimal.Zero

	for i := 0; i < period; i++ {
		avgGain = avgGain.Add(gains[i])
		avgLoss = avgLoss.Add(losses[i])
	}

	avgGain = avgGain.Div(periodDec)
	avgLoss = avgLoss.Div(periodDec)

	periodMinusOne := decimal.NewFromInt(int64(period - 1))

	for i := period; i < len(gains); i++ {
		avgGain = avgGain.Mul(periodMinusOne).Add(gains[i]).Div(periodDec)
		avgLoss = avgLoss.Mul(periodMinusOne).Add(losses[i]).Div(periodDec)
	}

	if avgLoss.IsZero() {
		return decimal.NewFromInt(100), nil
	}

	rs := avgGain.Div(avgLoss)
	rsi := decimal.NewFromInt(100).Sub(decimal.NewFromInt(100).Div(decimal.NewFromInt(1).Add(rs)))

	return rsi, nil
}
