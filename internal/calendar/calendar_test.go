package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type CalendarTestSuite struct {
	suite.Suite
}

func TestCalendarSuite(t *testing.T) {
	suite.Run(t, new(CalendarTestSuite))
}

func et(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 12, 0, 0, 0, eastern)
}

func (s *CalendarTestSuite) TestWeekendIsNotTradingDay() {
	s.False(IsTradingDay(et(2024, 1, 6))) // Saturday
	s.False(IsTradingDay(et(2024, 1, 7))) // Sunday
}

func (s *CalendarTestSuite) TestNewYearsDayIsHoliday() {
	s.False(IsTradingDay(et(2024, 1, 1)))
}

func (s *CalendarTestSuite) TestNewYearsObservedOnPriorDec31WhenJan1IsSaturday() {
	// Jan 1, 2022 is a Saturday, so NYSE observes New Year's on Dec 31, 2021.
	s.False(IsTradingDay(et(2021, 12, 31)))
	s.True(IsTradingDay(et(2021, 12, 30)))
}

func (s *CalendarTestSuite) TestJuneteenthIsHoliday() {
	s.False(IsTradingDay(et(2024, 6, 19)))
}

func (s *CalendarTestSuite) TestOrdinaryWeekdayIsTradingDay() {
	s.True(IsTradingDay(et(2024, 1, 2)))
}

func (s *CalendarTestSuite) TestThanksgivingIsFourthThursday() {
	// 2024 Thanksgiving is November 28.
	s.False(IsTradingDay(et(2024, 11, 28)))
	s.True(isEarlyClose(et(2024, 11, 29)))
}

func (s *CalendarTestSuite) TestTradingDaysInRangeExcludesWeekendsAndHolidays() {
	days := TradingDaysInRange(et(2024, 1, 1), et(2024, 1, 5))
	s.Len(days, 4) // Jan 2, 3, 4, 5 (Jan 1 is New Year's Day)
}

func (s *CalendarTestSuite) TestFirstTradingDayOnOrAfterRoundTrip() {
	d := FirstTradingDayOnOrAfter(et(2024, 1, 1))
	s.True(IsTradingDay(d))
	s.True(!d.Before(et(2024, 1, 1)))
}

func (s *CalendarTestSuite) TestNextTradingDayIsStrictlyAfter() {
	d := NextTradingDay(et(2024, 1, 2))
	s.True(d.After(et(2024, 1, 2)))
	s.True(IsTradingDay(d))
}

func (s *CalendarTestSuite) TestMarketStatusDuringRegularHours() {
	ts := time.Date(2024, 1, 2, 10, 0, 0, 0, eastern)
	s.Equal(StatusOpen, MarketStatus(ts))
}

func (s *CalendarTestSuite) TestMarketStatusPreMarket() {
	ts := time.Date(2024, 1, 2, 8, 0, 0, 0, eastern)
	s.Equal(StatusPreMarket, MarketStatus(ts))
}

func (s *CalendarTestSuite) TestMarketStatusAfterHours() {
	ts := time.Date(2024, 1, 2, 18, 0, 0, 0, eastern)
	s.Equal(StatusAfterHours, MarketStatus(ts))
}

func (s *CalendarTestSuite) TestMarketStatusClosedOnWeekend() {
	ts := time.Date(2024, 1, 6, 10, 0, 0, 0, eastern)
	s.Equal(StatusClosed, MarketStatus(ts))
}

func (s *CalendarTestSuite) TestLastCompleteTradingDayDuringAfterHours() {
	ts := time.Date(2024, 1, 2, 18, 0, 0, 0, eastern)
	last := LastCompleteTradingDay(ts)
	s.True(sameDate(last, et(2024, 1, 2)))
}

func (s *CalendarTestSuite) TestLastCompleteTradingDayDuringPreMarket() {
	ts := time.Date(2024, 1, 3, 8, 0, 0, 0, eastern)
	last := LastCompleteTradingDay(ts)
	s.True(sameDate(last, et(2024, 1, 2)))
}
