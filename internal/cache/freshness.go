// Package cache is the two-tier Market Data Cache sitting between
// consumers and the external price provider: an in-process LRU+TTL tier
// (L1), the durable Price Store (L2), and a freshness evaluator that
// decides when cached bars are trustworthy enough to skip a provider call.
package cache

import (
	"time"

	"github.com/quantarena/arena/internal/calendar"
	"github.com/quantarena/arena/internal/types"
)

// FreshnessResult is the well-formed output of CheckFreshnessSmart. It
// never carries an error — on any data anomaly it degrades to
// fresh=false and a fetch recommendation, never panicking or returning
// an ambiguous result.
type FreshnessResult struct {
	IsFresh                 bool
	Reason                  string
	MarketStatus            types.MarketStatus
	RecommendedTTL          time.Duration
	LastDataDate            time.Time
	LastCompleteTradingDay  time.Time
	NeedsFetch              bool
	FetchStartDate          time.Time
}

// FreshnessInputs bundles the request and the current store state the
// classifier reasons over.
type FreshnessInputs struct {
	Symbol         string
	Interval       types.Interval
	Start          time.Time
	End            time.Time
	Now            time.Time
	MarketHoursTTL time.Duration
	ExistingBars   []types.PriceBar
}

// CheckFreshnessSmart is the central cache-freshness decision. It is pure
// and total: given any inputs it returns a well-formed result, never an
// error, so a cache read can always proceed to either a hit or a
// recommended refetch.
func CheckFreshnessSmart(in FreshnessInputs) FreshnessResult {
	status := types.MarketStatus(calendar.MarketStatus(in.Now))
	lastComplete := calendar.LastCompleteTradingDay(in.Now)

	requestedEnd := in.End
	if requestedEnd.Before(dayStart(in.Now)) {
		// Historical request: the end of the requested range is strictly
		// before today, so freshness is judged against the last trading
		// day on or before it rather than the live session.
		lastComplete = lastTradingDayOnOrBefore(requestedEnd)
		status = types.MarketStatusClosed
	}

	if len(in.ExistingBars) == 0 {
		return FreshnessResult{
			IsFresh:                false,
			Reason:                 "no cached data",
			MarketStatus:           status,
			RecommendedTTL:         in.MarketHoursTTL,
			LastCompleteTradingDay: lastComplete,
			NeedsFetch:             true,
			FetchStartDate:         in.Start,
		}
	}

	firstData, lastData := boundsOf(in.ExistingBars)
	normalizedStart := calendar.FirstTradingDayOnOrAfter(in.Start)

	if firstData.After(normalizedStart) {
		return FreshnessResult{
			IsFresh:                false,
			Reason:                 "front gap before requested start",
			MarketStatus:           status,
			RecommendedTTL:         in.MarketHoursTTL,
			LastDataDate:           lastData,
			LastCompleteTradingDay: lastComplete,
			NeedsFetch:             true,
			FetchStartDate:         in.Start,
		}
	}

	switch status {
	case types.MarketStatusOpen:
		return checkLiveOpen(in, lastData, lastComplete, status)
	case types.MarketStatusClosed:
		return checkHistorical(in, lastData, lastComplete, status)
	default: // pre_market, after_hours
		return checkLiveNonOpen(in, lastData, lastComplete, status)
	}
}

func checkHistorical(in FreshnessInputs, lastData, lastComplete time.Time, status types.MarketStatus) FreshnessResult {
	if !lastData.Before(lastComplete) {
		return FreshnessResult{
			IsFresh:                true,
			Reason:                 "historical data complete through last trading day",
			MarketStatus:           status,
			RecommendedTTL:         in.MarketHoursTTL,
			LastDataDate:           lastData,
			LastCompleteTradingDay: lastComplete,
		}
	}

	return FreshnessResult{
		IsFresh:                false,
		Reason:                 "historical data stale",
		MarketStatus:           status,
		RecommendedTTL:         in.MarketHoursTTL,
		LastDataDate:           lastData,
		LastCompleteTradingDay: lastComplete,
		NeedsFetch:             true,
		FetchStartDate:         lastData,
	}
}

func checkLiveOpen(in FreshnessInputs, lastData, lastComplete time.Time, status types.MarketStatus) FreshnessResult {
	today := dayStart(in.Now)

	if lastData.Before(today) {
		return FreshnessResult{
			IsFresh:                false,
			Reason:                 "no data for today's session yet",
			MarketStatus:           status,
			RecommendedTTL:         in.MarketHoursTTL,
			LastDataDate:           lastData,
			LastCompleteTradingDay: lastComplete,
			NeedsFetch:             true,
			FetchStartDate:         lastData,
		}
	}

	cutoff := in.Now.Add(-in.MarketHoursTTL)

	latestFetch := latestFetchedAt(in.ExistingBars)
	if latestFetch.After(cutoff) || latestFetch.Equal(cutoff) {
		return FreshnessResult{
			IsFresh:                true,
			Reason:                 "within market-hours TTL",
			MarketStatus:           status,
			RecommendedTTL:         in.MarketHoursTTL,
			LastDataDate:           lastData,
			LastCompleteTradingDay: lastComplete,
		}
	}

	return FreshnessResult{
		IsFresh:                false,
		Reason:                 "market-hours TTL expired",
		MarketStatus:           status,
		RecommendedTTL:         in.MarketHoursTTL,
		LastDataDate:           lastData,
		LastCompleteTradingDay: lastComplete,
		NeedsFetch:             true,
		FetchStartDate:         lastData,
	}
}

func checkLiveNonOpen(in FreshnessInputs, lastData, lastComplete time.Time, status types.MarketStatus) FreshnessResult {
	if !lastData.Before(lastComplete) {
		return FreshnessResult{
			IsFresh:                true,
			Reason:                 "data complete through last trading day",
			MarketStatus:           status,
			RecommendedTTL:         in.MarketHoursTTL,
			LastDataDate:           lastData,
			LastCompleteTradingDay: lastComplete,
		}
	}

	return FreshnessResult{
		IsFresh:                false,
		Reason:                 "data stale relative to last complete trading day",
		MarketStatus:           status,
		RecommendedTTL:         in.MarketHoursTTL,
		LastDataDate:           lastData,
		LastCompleteTradingDay: lastComplete,
		NeedsFetch:             true,
		FetchStartDate:         lastData,
	}
}

func boundsOf(bars []types.PriceBar) (first, last time.Time) {
	first, last = bars[0].Timestamp, bars[0].Timestamp

	for _, b := range bars[1:] {
		if b.Timestamp.Before(first) {
			first = b.Timestamp
		}

		if b.Timestamp.After(last) {
			last = b.Timestamp
		}
	}

	return first, last
}

func latestFetchedAt(bars []types.PriceBar) time.Time {
	var latest time.Time

	for _, b := range bars {
		if b.LastFetchedAt.After(latest) {
			latest = b.LastFetchedAt
		}
	}

	return latest
}

func dayStart(t time.Time) time.Time {
	y, m, d := t.Date()

	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func lastTradingDayOnOrBefore(t time.Time) time.Time {
	if calendar.IsTradingDay(t) {
		return t
	}

	return calendar.PreviousTradingDay(t)
}
