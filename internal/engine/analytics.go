package engine

import (
	"math"

	"github.com/quantarena/arena/internal/types"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

const tradingDaysPerYear = 252

// Analytics is the completion statistics computed once a simulation closes
// its final day, all quantized to 4 decimal places.
type Analytics struct {
	TotalTrades      int
	WinningTrades    int
	MaxDrawdownPct   decimal.Decimal
	AvgHoldDays      decimal.Decimal
	AvgWinPnL        decimal.Decimal
	AvgLossPnL       decimal.Decimal
	ProfitFactor     decimal.Decimal
	SharpeRatio      decimal.Decimal
	TotalRealizedPnL decimal.Decimal
}

// ComputeAnalytics derives completion statistics from every closed position
// and every daily snapshot of a finished simulation. Positions that closed
// without ever getting shares filled (e.g. insufficient-capital closures)
// never became a trade and are excluded.
func ComputeAnalytics(closed []types.ArenaPosition, snapshots []types.ArenaSnapshot) Analytics {
	filled := make([]types.ArenaPosition, 0, len(closed))
	for _, pos := range closed {
		if pos.Shares.IsSome() && pos.Shares.Unwrap() > 0 {
			filled = append(filled, pos)
		}
	}

	closed = filled
	a := Analytics{TotalTrades: len(closed)}

	var (
		sumWins, sumLosses, sumHoldDays, sumPnL decimal.Decimal
		winCount, lossCount                     int
	)

	for _, pos := range closed {
		pnl := decimal.Zero
		if pos.RealizedPnL.IsSome() {
			pnl = pos.RealizedPnL.Unwrap()
		}

		sumPnL = sumPnL.Add(pnl)

		if pnl.IsPositive() {
			a.WinningTrades++
			winCount++
			sumWins = sumWins.Add(pnl)
		} else if pnl.IsNegative() {
			lossCount++
			sumLosses = sumLosses.Add(pnl)
		}

		if pos.EntryDate.IsSome() && pos.ExitDate.IsSome() {
			holdDays := pos.ExitDate.Unwrap().Sub(pos.EntryDate.Unwrap()).Hours() / 24
			sumHoldDays = sumHoldDays.Add(decimal.NewFromFloat(holdDays))
		}
	}

	a.TotalRealizedPnL = sumPnL.Round(4)

	if winCount > 0 {
		a.AvgWinPnL = sumWins.Div(decimal.NewFromInt(int64(winCount))).Round(4)
	}

	if lossCount > 0 {
		a.AvgLossPnL = sumLosses.Div(decimal.NewFromInt(int64(lossCount))).Round(4)
	}

	if a.TotalTrades > 0 {
		a.AvgHoldDays = sumHoldDays.Div(decimal.NewFromInt(int64(a.TotalTrades))).Round(4)
	}

	if !sumLosses.IsZero() {
		a.ProfitFactor = sumWins.Div(sumLosses.Abs()).Round(4)
	}

	a.MaxDrawdownPct = maxDrawdownPct(snapshots).Round(4)
	a.SharpeRatio = sharpeRatio(snapshots).Round(4)

	return a
}

// maxDrawdownPct is the largest peak-to-trough decline in total_equity
// across the run, expressed as a positive percentage.
func maxDrawdownPct(snapshots []types.ArenaSnapshot) decimal.Decimal {
	if len(snapshots) == 0 {
		return decimal.Zero
	}

	peak := snapshots[0].TotalEquity
	maxDrawdown := decimal.Zero

	for _, snap := range snapshots {
		if snap.TotalEquity.GreaterThan(peak) {
			peak = snap.TotalEquity
		}

		if peak.IsZero() {
			continue
		}

		drawdown := peak.Sub(snap.TotalEquity).Div(peak).Mul(oneHundred)
		if drawdown.GreaterThan(maxDrawdown) {
			maxDrawdown = drawdown
		}
	}

	return maxDrawdown
}

// sharpeRatio computes mean(daily_returns)/stddev(daily_returns) x sqrt(252)
// over the run's daily_return_pct series, via gonum/stat rather than
// hand-rolled variance arithmetic.
func sharpeRatio(snapshots []types.ArenaSnapshot) decimal.Decimal {
	if len(snapshots) < 2 {
		return decimal.Zero
	}

	returns := make([]float64, len(snapshots))
	for i, snap := range snapshots {
		f, _ := snap.DailyReturnPct.Float64()
		returns[i] = f
	}

	mean := stat.Mean(returns, nil)
	stddev := stat.StdDev(returns, nil)

	if stddev == 0 {
		return decimal.Zero
	}

	return decimal.NewFromFloat(mean / stddev * math.Sqrt(tradingDaysPerYear))
}
