package engine

import "github.com/shopspring/decimal"

// TrailingStopResult is the outcome of one day's trailing-stop update for an
// open position.
type TrailingStopResult struct {
	Triggered    bool
	TriggerPrice decimal.Decimal
	HighestPrice decimal.Decimal
	StopPrice    decimal.Decimal
}

var oneHundred = decimal.NewFromInt(100)

// InitialStop computes the trailing stop set at fill time: entry_price
// scaled down by trail_pct percent.
func InitialStop(entryPrice, trailPct decimal.Decimal) decimal.Decimal {
	return entryPrice.Mul(decimal.NewFromInt(1).Sub(trailPct.Div(oneHundred)))
}

// UpdateTrailingStop advances a position's trailing stop for one trading
// day. The check against the low uses the stop as it stood coming into the
// day (prevStop) — not a same-day high-driven update — so a position isn't
// stopped out on the same bar that pushes its own stop higher. Only when
// the day survives does the stop ratchet up using today's high; it never
// moves down.
func UpdateTrailingStop(trailPct, high, low, prevHighest, prevStop decimal.Decimal) TrailingStopResult {
	if low.LessThanOrEqual(prevStop) {
		return TrailingStopResult{
			Triggered:    true,
			TriggerPrice: prevStop,
			HighestPrice: prevHighest,
			StopPrice:    prevStop,
		}
	}

	newHighest := decimal.Max(prevHighest, high)
	candidateStop := newHighest.Mul(decimal.NewFromInt(1).Sub(trailPct.Div(oneHundred)))
	newStop := decimal.Max(prevStop, candidateStop)

	return TrailingStopResult{
		Triggered:    false,
		HighestPrice: newHighest,
		StopPrice:    newStop,
	}
}
