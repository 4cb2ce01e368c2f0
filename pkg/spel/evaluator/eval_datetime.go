package evaluator

import (
	"time"

	"github.com/araddon/dateparse"
)

// currentDate returns today per the environment clock, truncated to the day.
// Conditions only ever reason about calendar dates, never times of day.
func currentDate(env *Env) Object {
	now := env.Now
	if now == nil {
		now = time.Now
	}
	return &Date{Value: truncateToDay(now())}
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func compareDates(a, b time.Time) int {
	a, b = truncateToDay(a), truncateToDay(b)
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	default:
		return 0
	}
}

// minusYears subtracts whole years. Feb 29 lands on Feb 28 in a non-leap
// target year; Go's AddDate would normalize it forward to Mar 1, which is the
// wrong direction for age checks like "born at least 14 years ago".
func minusYears(t time.Time, years int64) time.Time {
	y, m, d := t.Date()
	targetYear := y - int(years)
	if m == time.February && d == 29 && !isLeapYear(targetYear) {
		d = 28
	}
	return time.Date(targetYear, m, d, 0, 0, 0, 0, time.UTC)
}

func plusYears(t time.Time, years int64) time.Time {
	return minusYears(t, -years)
}

func minusDays(t time.Time, days int64) time.Time {
	return truncateToDay(t).AddDate(0, 0, -int(days))
}

func plusDays(t time.Time, days int64) time.Time {
	return truncateToDay(t).AddDate(0, 0, int(days))
}

func isLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// parseDate turns a string into a Date. ISO-8601 dates are the contract
// format; anything else goes through the lenient parser, which covers the
// timestamp variants that occasionally leak into scenario files.
func parseDate(s string) (time.Time, bool) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return truncateToDay(t), true
	}
	if t, err := dateparse.ParseAny(s); err == nil {
		return truncateToDay(t), true
	}
	return time.Time{}, false
}

// toDate coerces an object to a Date: Date values pass through, strings are
// parsed. The boolean is false for everything else.
func toDate(obj Object) (*Date, bool) {
	switch obj := obj.(type) {
	case *Date:
		return obj, true
	case *String:
		if t, ok := parseDate(obj.Value); ok {
			return &Date{Value: t}, true
		}
		return nil, false
	default:
		return nil, false
	}
}
