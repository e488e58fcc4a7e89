package agent

import (
	"context"
	"testing"
	"time"

	"github.com/quantarena/arena/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type Live20TestSuite struct {
	suite.Suite
}

func TestLive20Suite(t *testing.T) {
	suite.Run(t, new(Live20TestSuite))
}

// uptrendHistory builds a 25-day bar series that climbs steadily with a
// volume spike and a strong bullish candle on the final day, enough to
// trip trend, MA20-distance, candle, and volume criteria all at once.
func uptrendHistory() []types.PriceBar {
	bars := make([]types.PriceBar, 0, 25)

	price := 80.0
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 24; i++ {
		open := price
		close := price + 0.5
		bars = append(bars, types.PriceBar{
			Symbol:    "TEST",
			Timestamp: start.AddDate(0, 0, i),
			Open:      decimal.NewFromFloat(open),
			High:      decimal.NewFromFloat(close + 0.3),
			Low:       decimal.NewFromFloat(open - 0.3),
			Close:     decimal.NewFromFloat(close),
			Volume:    1_000_000,
		})
		price = close
	}

	last := types.PriceBar{
		Symbol:    "TEST",
		Timestamp: start.AddDate(0, 0, 24),
		Open:      decimal.NewFromFloat(price),
		High:      decimal.NewFromFloat(price + 5),
		Low:       decimal.NewFromFloat(price - 0.2),
		Close:     decimal.NewFromFloat(price + 4.5),
		Volume:    3_000_000,
	}
	bars = append(bars, last)

	return bars
}

// flatHistory builds a perfectly flat 25-day series, where no criterion
// should align in either direction.
func flatHistory() []types.PriceBar {
	bars := make([]types.PriceBar, 0, 25)
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 25; i++ {
		bars = append(bars, types.PriceBar{
			Symbol:    "FLAT",
			Timestamp: start.AddDate(0, 0, i),
			Open:      decimal.NewFromFloat(50),
			High:      decimal.NewFromFloat(50.1),
			Low:       decimal.NewFromFloat(49.9),
			Close:     decimal.NewFromFloat(50),
			Volume:    500_000,
		})
	}

	return bars
}

func (s *Live20TestSuite) TestEvaluateHoldsWhenPositionAlreadyOpen() {
	a := NewLive20(types.AgentConfig{})

	decision, err := a.Evaluate(context.Background(), "TEST", uptrendHistory(), time.Now(), true)
	s.Require().NoError(err)
	s.Equal(types.AgentActionHold, decision.Action)
}

func (s *Live20TestSuite) TestEvaluateNoSignalOnInsufficientHistory() {
	a := NewLive20(types.AgentConfig{})

	short := uptrendHistory()[:10]

	decision, err := a.Evaluate(context.Background(), "TEST", short, time.Now(), false)
	s.Require().NoError(err)
	s.Equal(types.AgentActionNoSignal, decision.Action)
}

func (s *Live20TestSuite) TestEvaluateBuysOnStrongUptrend() {
	a := NewLive20(types.AgentConfig{MinBuyScore: decimal.NewFromInt(60)})

	decision, err := a.Evaluate(context.Background(), "TEST", uptrendHistory(), time.Now(), false)
	s.Require().NoError(err)
	s.Equal(types.AgentActionBuy, decision.Action)
	s.True(decision.Score.GreaterThanOrEqual(decimal.NewFromInt(60)))
	s.NotEmpty(decision.Reasoning)
}

func (s *Live20TestSuite) TestEvaluateNoSignalOnFlatSeries() {
	a := NewLive20(types.AgentConfig{MinBuyScore: decimal.NewFromInt(60)})

	decision, err := a.Evaluate(context.Background(), "FLAT", flatHistory(), time.Now(), false)
	s.Require().NoError(err)
	s.Equal(types.AgentActionNoSignal, decision.Action)
}

func (s *Live20TestSuite) TestEvaluateDefaultsMinBuyScoreWhenUnset() {
	a := NewLive20(types.AgentConfig{})

	decision, err := a.Evaluate(context.Background(), "TEST", uptrendHistory(), time.Now(), false)
	s.Require().NoError(err)
	s.Equal(types.AgentActionBuy, decision.Action)
}

func (s *Live20TestSuite) TestAnalyzeSymbolLongOnUptrend() {
	direction, score, reasoning, criteria, err := AnalyzeSymbol("TEST", uptrendHistory(), decimal.NewFromInt(60), "")
	s.Require().NoError(err)
	s.Equal(types.RecommendationLong, direction)
	s.True(score.GreaterThanOrEqual(decimal.NewFromInt(60)))
	s.NotEmpty(reasoning)
	s.True(criteria.TrendAligned)
}

func (s *Live20TestSuite) TestAnalyzeSymbolNoSetupOnFlatSeries() {
	direction, _, _, _, err := AnalyzeSymbol("FLAT", flatHistory(), decimal.NewFromInt(60), "")
	s.Require().NoError(err)
	s.Equal(types.RecommendationNoSetup, direction)
}

func (s *Live20TestSuite) TestAnalyzeSymbolInsufficientHistoryIsNoSetup() {
	direction, score, _, _, err := AnalyzeSymbol("TEST", uptrendHistory()[:5], decimal.NewFromInt(60), "")
	s.Require().NoError(err)
	s.Equal(types.RecommendationNoSetup, direction)
	s.True(score.IsZero())
}

func (s *Live20TestSuite) TestScoreMomentumRejectsUnknownAlgorithm() {
	closes := make([]decimal.Decimal, 25)
	for i := range closes {
		closes[i] = decimal.NewFromInt(int64(100 + i))
	}

	_, _, _, err := scoreMomentum(closes, closes, closes, "made_up_algorithm")
	s.Error(err)
}

func (s *Live20TestSuite) TestScoreMomentumFallsBackToRSI2WhenHistoryShort() {
	closes := []decimal.Decimal{
		decimal.NewFromInt(10),
		decimal.NewFromInt(11),
		decimal.NewFromInt(9),
	}

	_, algorithm, _, err := scoreMomentum(closes, closes, closes, "cci")
	s.Require().NoError(err)
	s.Equal("rsi2", algorithm)
}

func (a *Live20TestSuite) TestLive20Name() {
	agent := NewLive20(types.AgentConfig{})
	a.Equal("live20", agent.Name())
	a.Equal(live20RequiredLookbackDays, agent.RequiredLookbackDays())
}
