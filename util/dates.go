package util

import (
	"errors"
	"fmt"
	"time"
)

const Layout = "2006-01-02"

// DefaultDaysInYear is the day count used when none is configured.
const DefaultDaysInYear = 365

var ErrInvalidSchedule = errors.New("invalid schedule")

// MathDateConverter turns calendar dates into year fractions on an actual/N basis.
type MathDateConverter struct {
	DaysInYear int
}

func NewMathDateConverter(daysInYear int) MathDateConverter {
	if daysInYear <= 0 {
		daysInYear = DefaultDaysInYear
	}
	return MathDateConverter{DaysInYear: daysInYear}
}

// Distance is the number of calendar days from start to end divided by DaysInYear.
func (c MathDateConverter) Distance(start, end time.Time) float64 {
	days := Date(end).Sub(Date(start)).Hours() / 24
	return days / float64(c.DaysInYear)
}

// Distances converts each date to its distance from start.
func (c MathDateConverter) Distances(start time.Time, dates []time.Time) []float64 {
	out := make([]float64, len(dates))
	for i, d := range dates {
		out[i] = c.Distance(start, d)
	}
	return out
}

// Date truncates t to midnight UTC of its calendar day.
func Date(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Convert holidays from string to time.Time format
func Hols(s []string) ([]time.Time, error) {
	h := make([]time.Time, len(s))
	for i, v := range s {
		d, err := time.Parse(Layout, v)
		if err != nil {
			return nil, err
		}
		h[i] = d
	}
	return h, nil
}

func IsHol(d time.Time, hols []time.Time) bool {
	return IsIn(d, hols)
}

func IsWeekday(d time.Time) bool {
	return d.Weekday() > time.Sunday && d.Weekday() < time.Saturday
}

// AdjustFollowing rolls d forward to the next business day.
func AdjustFollowing(d time.Time, hols []time.Time) time.Time {
	for IsHol(d, hols) || !IsWeekday(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// IsIn reports whether t falls on the same calendar day as one of ts.
func IsIn(t time.Time, ts []time.Time) bool {
	day := Date(t)
	for _, v := range ts {
		if day.Equal(Date(v)) {
			return true
		}
	}
	return false
}

// GenerateDates returns the payment dates of a contract starting at start, one every
// freq months up to tenor months, each rolled to the following business day.
func GenerateDates(start time.Time, tenor, freq int, hols []time.Time) ([]time.Time, error) {
	if freq <= 0 || tenor < freq {
		return nil, fmt.Errorf("%w: tenor %d months with frequency %d months", ErrInvalidSchedule, tenor, freq)
	}
	n := tenor / freq
	dates := make([]time.Time, n)
	for i := 0; i < n; i++ {
		dates[i] = AdjustFollowing(start.AddDate(0, (i+1)*freq, 0), hols)
	}
	return dates, nil
}

// ParseDates parses dates in the 2006-01-02 layout.
func ParseDates(s []string) ([]time.Time, error) {
	out := make([]time.Time, len(s))
	for i, v := range s {
		d, err := time.Parse(Layout, v)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSchedule, err)
		}
		out[i] = d
	}
	return out, nil
}
