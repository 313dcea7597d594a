package utils

import (
	"math"
	"time"
)

const day = 24 * time.Hour

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = t.Location()
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// SameDay reports whether t falls on the calendar day of date, evaluated in
// date's location.
func SameDay(t, date time.Time) bool {
	t = t.In(date.Location())
	y1, m1, d1 := t.Date()
	y2, m2, d2 := date.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// DaysUntil is ceil((due - now) / 24h). A due date earlier today yields 0.
func DaysUntil(due, now time.Time) int {
	d := math.Ceil(float64(due.Sub(now)) / float64(day))
	if d == 0 {
		return 0
	}
	return int(d)
}

// ParseDate accepts YYYY-MM-DD or RFC3339 and returns the start of that day in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation(time.DateOnly, s, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return StartOfDay(t, loc), nil
}
