package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/quantarena/arena/internal/indicator"
	"github.com/quantarena/arena/internal/types"
	"github.com/quantarena/arena/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	live20RequiredLookbackDays = 21
	live20MomentumPeriod       = 20
)

var (
	live20VolumeConfirmedMultiplier = decimal.NewFromFloat(1.5)
	live20VolumeWatchMultiplier     = decimal.NewFromFloat(1.2)
	live20CandleBodyRatio           = decimal.NewFromFloat(0.5)
	live20MA20DistanceHealthy       = decimal.NewFromInt(8)
	live20MA20DistanceStretched     = decimal.NewFromInt(15)
	live20CCIBreakout               = decimal.NewFromInt(100)
	live20RSIOversoldStrong         = decimal.NewFromInt(10)
	live20RSIOversoldWatch          = decimal.NewFromInt(30)
	live20RSIOverboughtStrong       = decimal.NewFromInt(90)
	live20RSIOverboughtWatch        = decimal.NewFromInt(70)
	criterionPoints                 = decimal.NewFromInt(20)
	criterionHalfPoints             = decimal.NewFromInt(10)
)

// criteriaScore is one criterion's graduated contribution to the long and
// short scores, computed independently so a criterion can align neither,
// either, or (for symmetric ones like volume) both directions at once.
type criteriaScore struct {
	alignedLong  bool
	alignedShort bool
	points       decimal.Decimal
	pointsShort  decimal.Decimal
}

// live20Criteria is every raw value live20 computes, independent of
// direction — used both to populate types.LiveCriteria for persistence and
// to derive the BUY/SHORT/NO_SETUP decision.
type live20Criteria struct {
	trend    criteriaScore
	ma20     criteriaScore
	candle   criteriaScore
	volume   criteriaScore
	momentum criteriaScore

	ma20DistancePct   decimal.Decimal
	momentumValue     decimal.Decimal
	momentumAlgorithm string
}

// Live20 implements the Agent capability with the five-criteria scoring
// system: trend, MA20 distance, candle pattern, volume confirmation, and
// momentum (CCI zones when enough history exists, RSI-2 graduated scoring
// otherwise, or forced either way by AgentConfig.ScoringAlgorithm).
type Live20 struct {
	minBuyScore      decimal.Decimal
	scoringAlgorithm string
}

// NewLive20 builds the live20 agent from a simulation's AgentConfig.
func NewLive20(cfg types.AgentConfig) *Live20 {
	return &Live20{
		minBuyScore:      cfg.MinBuyScore,
		scoringAlgorithm: cfg.ScoringAlgorithm,
	}
}

func (a *Live20) Name() string { return "live20" }

func (a *Live20) RequiredLookbackDays() int { return live20RequiredLookbackDays }

func (a *Live20) Evaluate(ctx context.Context, symbol string, history []types.PriceBar, currentDate time.Time, hasOpenPosition bool) (Decision, error) {
	if hasOpenPosition {
		return Decision{Action: types.AgentActionHold, Reasoning: "position already open, no new signal evaluated"}, nil
	}

	if len(history) < live20RequiredLookbackDays {
		return Decision{Action: types.AgentActionNoSignal, Reasoning: fmt.Sprintf("insufficient history: need %d bars, have %d", live20RequiredLookbackDays, len(history))}, nil
	}

	criteria, err := computeLive20Criteria(history, a.scoringAlgorithm)
	if err != nil {
		return Decision{}, errors.Wrap(errors.ErrCodeAgentEvalFailed, "failed to compute live20 criteria", err)
	}

	score, alignedLong, reasons := criteria.longScore()

	minScore := a.minBuyScore
	if minScore.IsZero() {
		minScore = decimal.NewFromInt(60)
	}

	if alignedLong >= 3 && score.GreaterThanOrEqual(minScore) {
		return Decision{Action: types.AgentActionBuy, Score: score, Reasoning: strings.Join(reasons, "; ")}, nil
	}

	return Decision{Action: types.AgentActionNoSignal, Score: score, Reasoning: strings.Join(reasons, "; ")}, nil
}

// AnalyzeSymbol runs the same five-criteria scoring for a Live20Run
// screening pass, producing a LONG/SHORT/NO_SETUP recommendation instead
// of an engine BUY/HOLD/NO_SIGNAL decision. Kept as a standalone function
// (not the Agent interface) because Live20Run has no open-position concept
// — every symbol is evaluated fresh.
func AnalyzeSymbol(symbol string, history []types.PriceBar, minBuyScore decimal.Decimal, scoringAlgorithm string) (types.RecommendationDirection, decimal.Decimal, string, types.LiveCriteria, error) {
	if len(history) < live20RequiredLookbackDays {
		return types.RecommendationNoSetup, decimal.Zero,
			fmt.Sprintf("insufficient history: need %d bars, have %d", live20RequiredLookbackDays, len(history)),
			types.LiveCriteria{}, nil
	}

	criteria, err := computeLive20Criteria(history, scoringAlgorithm)
	if err != nil {
		return types.RecommendationNoSetup, decimal.Zero, "", types.LiveCriteria{},
			errors.Wrap(errors.ErrCodeAgentEvalFailed, "failed to compute live20 criteria", err)
	}

	liveCriteria := criteria.toLiveCriteria()

	threshold := minBuyScore
	if threshold.IsZero() {
		threshold = decimal.NewFromInt(60)
	}

	if longScore, alignedLong, longReasons := criteria.longScore(); alignedLong >= 3 && longScore.GreaterThanOrEqual(threshold) {
		return types.RecommendationLong, longScore, strings.Join(longReasons, "; "), liveCriteria, nil
	}

	if shortScore, alignedShort, shortReasons := criteria.shortScore(); alignedShort >= 3 && shortScore.GreaterThanOrEqual(threshold) {
		return types.RecommendationShort, shortScore, strings.Join(shortReasons, "; "), liveCriteria, nil
	}

	return types.RecommendationNoSetup, decimal.Zero, "no direction reached the minimum alignment or score threshold", liveCriteria, nil
}

func (c live20Criteria) longScore() (decimal.Decimal, int, []string) {
	scores := []criteriaScore{c.trend, c.ma20, c.candle, c.volume, c.momentum}
	names := []string{"trend", "ma20_distance", "candle_pattern", "volume", "momentum"}

	total := decimal.Zero
	aligned := 0

	var reasons []string

	for i, s := range scores {
		total = total.Add(s.points)
		if s.alignedLong {
			aligned++

			reasons = append(reasons, names[i]+" aligned long")
		}
	}

	return total, aligned, reasons
}

func (c live20Criteria) shortScore() (decimal.Decimal, int, []string) {
	scores := []criteriaScore{c.trend, c.ma20, c.candle, c.volume, c.momentum}
	names := []string{"trend", "ma20_distance", "candle_pattern", "volume", "momentum"}

	total := decimal.Zero
	aligned := 0

	var reasons []string

	for i, s := range scores {
		total = total.Add(s.pointsShort)
		if s.alignedShort {
			aligned++

			reasons = append(reasons, names[i]+" aligned short")
		}
	}

	return total, aligned, reasons
}

func (c live20Criteria) toLiveCriteria() types.LiveCriteria {
	return types.LiveCriteria{
		TrendAligned:      c.trend.alignedLong,
		MA20DistancePct:   c.ma20DistancePct,
		CandlePatternHit:  c.candle.alignedLong,
		VolumeConfirmed:   c.volume.alignedLong,
		MomentumValue:     c.momentumValue,
		MomentumAlgorithm: c.momentumAlgorithm,
	}
}

func computeLive20Criteria(history []types.PriceBar, scoringAlgorithm string) (live20Criteria, error) {
	closes := make([]decimal.Decimal, len(history))
	highs := make([]decimal.Decimal, len(history))
	lows := make([]decimal.Decimal, len(history))
	volumes := make([]decimal.Decimal, len(history))

	for i, bar := range history {
		closes[i] = bar.Close
		highs[i] = bar.High
		lows[i] = bar.Low
		volumes[i] = decimal.NewFromInt(bar.Volume)
	}

	last := history[len(history)-1]

	ma5, err := indicator.SMA(closes, 5)
	if err != nil {
		return live20Criteria{}, err
	}

	ma20, err := indicator.SMA(closes, 20)
	if err != nil {
		return live20Criteria{}, err
	}

	trend := criteriaScore{
		alignedLong:  ma5.GreaterThan(ma20),
		alignedShort: ma5.LessThan(ma20),
	}

	if trend.alignedLong {
		trend.points = criterionPoints
	}

	if trend.alignedShort {
		trend.pointsShort = criterionPoints
	}

	ma20DistancePct := last.Close.Sub(ma20).Div(ma20).Mul(decimal.NewFromInt(100))
	ma20Score := scoreMA20Distance(ma20DistancePct)

	bodyRange := last.Close.Sub(last.Open)
	fullRange := last.High.Sub(last.Low)
	candle := scoreCandlePattern(bodyRange, fullRange)

	volumeScore, err := scoreVolume(volumes)
	if err != nil {
		return live20Criteria{}, err
	}

	momentumValue, momentumAlgorithm, momentumScore, err := scoreMomentum(highs, lows, closes, scoringAlgorithm)
	if err != nil {
		return live20Criteria{}, err
	}

	return live20Criteria{
		trend:             trend,
		ma20:              ma20Score,
		candle:            candle,
		volume:            volumeScore,
		momentum:          momentumScore,
		ma20DistancePct:   ma20DistancePct,
		momentumValue:     momentumValue,
		momentumAlgorithm: momentumAlgorithm,
	}, nil
}

func scoreMA20Distance(distancePct decimal.Decimal) criteriaScore {
	var s criteriaScore

	switch {
	case distancePct.IsPositive() && distancePct.LessThanOrEqual(live20MA20DistanceHealthy):
		s.alignedLong = true
		s.points = criterionPoints
	case distancePct.IsPositive() && distancePct.LessThanOrEqual(live20MA20DistanceStretched):
		s.alignedLong = true
		s.points = criterionHalfPoints
	}

	negDistance := distancePct.Neg()

	switch {
	case distancePct.IsNegative() && negDistance.LessThanOrEqual(live20MA20DistanceHealthy):
		s.alignedShort = true
		s.pointsShort = criterionPoints
	case distancePct.IsNegative() && negDistance.LessThanOrEqual(live20MA20DistanceStretched):
		s.alignedShort = true
		s.pointsShort = criterionHalfPoints
	}

	return s
}

func scoreCandlePattern(bodyRange, fullRange decimal.Decimal) criteriaScore {
	var s criteriaScore

	if fullRange.IsZero() {
		return s
	}

	bodyRatio := bodyRange.Abs().Div(fullRange)

	switch {
	case bodyRange.IsPositive() && bodyRatio.GreaterThanOrEqual(live20CandleBodyRatio):
		s.alignedLong = true
		s.points = criterionPoints
	case bodyRange.IsPositive():
		s.alignedLong = true
		s.points = criterionHalfPoints
	case bodyRange.IsNegative() && bodyRatio.GreaterThanOrEqual(live20CandleBodyRatio):
		s.alignedShort = true
		s.pointsShort = criterionPoints
	case bodyRange.IsNegative():
		s.alignedShort = true
		s.pointsShort = criterionHalfPoints
	}

	return s
}

func scoreVolume(volumes []decimal.Decimal) (criteriaScore, error) {
	var s criteriaScore

	n := len(volumes)
	if n < 21 {
		return s, nil
	}

	avgVolume, err := indicator.SMA(volumes[:n-1], 20)
	if err != nil {
		return s, err
	}

	if avgVolume.IsZero() {
		return s, nil
	}

	today := volumes[n-1]

	switch {
	case today.GreaterThanOrEqual(avgVolume.Mul(live20VolumeConfirmedMultiplier)):
		s.alignedLong = true
		s.alignedShort = true
		s.points = criterionPoints
		s.pointsShort = criterionPoints
	case today.GreaterThanOrEqual(avgVolume.Mul(live20VolumeWatchMultiplier)):
		s.alignedLong = true
		s.alignedShort = true
		s.points = criterionHalfPoints
		s.pointsShort = criterionHalfPoints
	}

	return s, nil
}

// scoreMomentum picks CCI zones when the algorithm is "cci" (the default
// for an empty scoringAlgorithm) and at least live20MomentumPeriod closes
// exist; a "cci" request with shorter history, like an explicit "rsi2",
// uses RSI-2 graduated scoring. CCI above +100 signals a bullish breakout, below -100 a bearish
// one; RSI-2 below 10 signals an oversold bounce, above 90 an overbought
// pullback.
func scoreMomentum(highs, lows, closes []decimal.Decimal, scoringAlgorithm string) (decimal.Decimal, string, criteriaScore, error) {
	algorithm := scoringAlgorithm
	if algorithm == "" {
		algorithm = "cci"
	}

	if algorithm == "cci" && len(closes) < live20MomentumPeriod {
		algorithm = "rsi2"
	}

	switch algorithm {
	case "cci":
		cci, err := indicator.CCI(highs, lows, closes, live20MomentumPeriod)
		if err != nil {
			return decimal.Zero, "cci", criteriaScore{}, err
		}

		var s criteriaScore

		switch {
		case cci.GreaterThanOrEqual(live20CCIBreakout):
			s.alignedLong = true
			s.points = criterionPoints
		case cci.IsPositive():
			s.alignedLong = true
			s.points = criterionHalfPoints
		}

		switch {
		case cci.LessThanOrEqual(live20CCIBreakout.Neg()):
			s.alignedShort = true
			s.pointsShort = criterionPoints
		case cci.IsNegative():
			s.alignedShort = true
			s.pointsShort = criterionHalfPoints
		}

		return cci, "cci", s, nil
	case "rsi2":
		if len(closes) < 3 {
			return decimal.Zero, "rsi2", criteriaScore{}, nil
		}

		rsi2, err := indicator.RSI(closes, 2)
		if err != nil {
			return decimal.Zero, "rsi2", criteriaScore{}, err
		}

		var s criteriaScore

		switch {
		case rsi2.LessThanOrEqual(live20RSIOversoldStrong):
			s.alignedLong = true
			s.points = criterionPoints
		case rsi2.LessThanOrEqual(live20RSIOversoldWatch):
			s.alignedLong = true
			s.points = criterionHalfPoints
		}

		switch {
		case rsi2.GreaterThanOrEqual(live20RSIOverboughtStrong):
			s.alignedShort = true
			s.pointsShort = criterionPoints
		case rsi2.GreaterThanOrEqual(live20RSIOverboughtWatch):
			s.alignedShort = true
			s.pointsShort = criterionHalfPoints
		}

		return rsi2, "rsi2", s, nil
	default:
		return decimal.Zero, algorithm, criteriaScore{}, errors.Newf(errors.ErrCodeInvalidConfiguration, "unrecognized scoring_algorithm %q", algorithm)
	}
}
