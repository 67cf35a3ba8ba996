package stale

import (
	"math"
	"time"
)

const day = 24 * time.Hour

// Policy decides when an issue counts as stale. It is fixed for a run.
type Policy struct {
	// DaysStale is the threshold: an age strictly greater than DaysStale
	// is stale.
	DaysStale int `json:"daysStale"`
	// OnlyWeekdays counts Monday to Friday calendar days instead of
	// elapsed 24 hour periods.
	OnlyWeekdays bool `json:"onlyWeekdays"`
}

// Age returns how old t is relative to now under the policy's mode.
//
// In calendar mode it is |now - t| rounded to the nearest whole day, so it
// is symmetric in its arguments. In weekday mode it steps one calendar day
// at a time from t until passing now and counts the steps that land on a
// weekday; t at or after now has age 0. Weekdays are evaluated in now's
// location.
func (p Policy) Age(t, now time.Time) int {
	if p.OnlyWeekdays {
		return weekdaysBetween(t, now)
	}
	return calendarDays(t, now)
}

// IsStale reports whether an age exceeds the threshold.
func (p Policy) IsStale(age int) bool {
	return age > p.DaysStale
}

func calendarDays(t, now time.Time) int {
	d := now.Sub(t)
	if d < 0 {
		d = -d
	}
	return int(math.Round(float64(d) / float64(day)))
}

func weekdaysBetween(t, now time.Time) int {
	if !t.Before(now) {
		return 0
	}

	n := 0
	for cur := t.In(now.Location()); !cur.After(now); cur = cur.Add(day) {
		switch cur.Weekday() {
		case time.Saturday, time.Sunday:
		default:
			n++
		}
	}
	return n
}
