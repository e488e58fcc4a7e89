package calendar

import "time"

// isHoliday reports whether d (already normalized to US/Eastern midnight) is
// an observed US equities market holiday.
func isHoliday(d time.Time) bool {
	y, m, day := d.Date()

	switch m {
	case time.January:
		if day == observedNewYears(y) {
			return true
		}

		if isNthWeekday(d, 3, time.Monday) {
			return true // MLK Day
		}
	case time.February:
		if isNthWeekday(d, 3, time.Monday) {
			return true // Presidents' Day
		}
	case time.May:
		if day == lastWeekdayOfMonth(y, m) {
			return true // Memorial Day
		}
	case time.June:
		if day == observedJuneteenth(y) {
			return true
		}
	case time.July:
		if day == observedIndependenceDay(y) {
			return true
		}
	case time.September:
		if isNthWeekday(d, 1, time.Monday) {
			return true // Labor Day
		}
	case time.November:
		if isNthWeekdayOfMonth(d, 4, time.Thursday) {
			return true // Thanksgiving
		}
	case time.December:
		if day == observedChristmas(y) {
			return true
		}

		if day == 31 && time.Date(y+1, time.January, 1, 0, 0, 0, 0, eastern).Weekday() == time.Saturday {
			return true // next year's New Year's Day, observed on Dec 31
		}
	}

	return goodFriday(y) != nil && sameDate(d, *goodFriday(y))
}

// isEarlyClose reports whether d observes the 13:00 ET early close.
func isEarlyClose(d time.Time) bool {
	y, m, day := d.Date()

	switch m {
	case time.November:
		// Day after Thanksgiving.
		thanksgiving := nthWeekdayOfMonth(y, m, 4, time.Thursday)

		return day == thanksgiving+1
	case time.December:
		return day == 24 && IsTradingDay(time.Date(y, m, 24, 0, 0, 0, 0, eastern))
	case time.July:
		return day == 3 && IsTradingDay(time.Date(y, m, 3, 0, 0, 0, 0, eastern))
	default:
		return false
	}
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()

	return ay == by && am == bm && ad == bd
}

func isNthWeekday(d time.Time, n int, weekday time.Weekday) bool {
	y, m, day := d.Date()

	return day == nthWeekdayOfMonth(y, m, n, weekday)
}

func isNthWeekdayOfMonth(d time.Time, n int, weekday time.Weekday) bool {
	return isNthWeekday(d, n, weekday)
}

// nthWeekdayOfMonth returns the day-of-month for the nth occurrence of
// weekday in month y-m.
func nthWeekdayOfMonth(y int, m time.Month, n int, weekday time.Weekday) int {
	first := time.Date(y, m, 1, 0, 0, 0, 0, eastern)
	offset := (int(weekday) - int(first.Weekday()) + 7) % 7
	day := 1 + offset + (n-1)*7

	return day
}

// lastWeekdayOfMonth returns the day-of-month for the last Monday in month
// y-m. Used for Memorial Day.
func lastWeekdayOfMonth(y int, m time.Month) int {
	firstOfNext := time.Date(y, m+1, 1, 0, 0, 0, 0, eastern)
	last := firstOfNext.AddDate(0, 0, -1)

	for last.Weekday() != time.Monday {
		last = last.AddDate(0, 0, -1)
	}

	return last.Day()
}

func observedNewYears(y int) int {
	return observedFixed(y, time.January, 1)
}

func observedIndependenceDay(y int) int {
	return observedFixed(y, time.July, 4)
}

func observedChristmas(y int) int {
	return observedFixed(y, time.December, 25)
}

func observedJuneteenth(y int) int {
	return observedFixed(y, time.June, 19)
}

// observedFixed shifts a fixed-date holiday that falls on Saturday back to
// Friday, or on Sunday forward to Monday.
func observedFixed(y int, m time.Month, day int) int {
	d := time.Date(y, m, day, 0, 0, 0, 0, eastern)

	switch d.Weekday() {
	case time.Saturday:
		return day - 1
	case time.Sunday:
		return day + 1
	default:
		return day
	}
}

// goodFriday returns the date of Good Friday (two days before Easter Sunday)
// for year y, computed via the anonymous Gregorian algorithm.
func goodFriday(y int) *time.Time {
	a := y % 19
	b := y / 100
	c := y % 100
	dd := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - dd - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	mm := (a + 11*h + 22*l) / 451
	month := (h + l - 7*mm + 114) / 31
	day := ((h + l - 7*mm + 114) % 31) + 1

	easter := time.Date(y, time.Month(month), day, 0, 0, 0, 0, eastern)
	gf := easter.AddDate(0, 0, -2)

	return &gf
}
