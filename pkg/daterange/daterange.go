// Package daterange turns the start/end/day-count inputs of a report run
// into the half-open window sent to the usage API.
package daterange

import (
	"errors"
	"fmt"
	"time"

	"github.com/thannaske/ocicost/pkg/models"
)

// Layout is the calendar date format accepted on the command line.
const Layout = "2006-01-02"

// MaxDays is the longest window the usage API accepts in one query.
const MaxDays = 93

var (
	ErrInvalidRange  = errors.New("invalid date range")
	ErrRangeTooLarge = errors.New("date range too large")
)

// Input holds the optional user supplied bounds. Nil means not supplied.
type Input struct {
	Start *time.Time
	End   *time.Time
	Days  *int
}

// ParseDate parses a YYYY-MM-DD date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("given date (%s) not valid, expected format YYYY-MM-DD: %w", s, err)
	}
	return t, nil
}

// PreviousMonth returns the first and last day of the month before now.
func PreviousMonth(now time.Time) (time.Time, time.Time) {
	thisFirst := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	prevLast := thisFirst.AddDate(0, 0, -1)
	prevFirst := time.Date(prevLast.Year(), prevLast.Month(), 1, 0, 0, 0, 0, time.UTC)
	return prevFirst, prevLast
}

// Resolve validates the input against now and returns the query window.
func Resolve(in Input, now time.Time) (models.TimeWindow, error) {
	defStart, defEnd := PreviousMonth(now)

	if in.Start == nil && in.End == nil && in.Days == nil {
		return models.TimeWindow{Start: defStart, End: defEnd}, nil
	}

	start := defStart
	if in.Start != nil {
		start = *in.Start
	}
	// Without a day count the end defaults to the last day of the previous
	// month, as it does when no dates are given at all.
	end := defEnd
	if in.End != nil {
		end = *in.End
	}

	if start.After(now) {
		return models.TimeWindow{}, fmt.Errorf("%w: start date cannot be in the future", ErrInvalidRange)
	}
	if (in.End != nil || in.Days == nil) && start.After(end) {
		return models.TimeWindow{}, fmt.Errorf("%w: start date cannot be greater than end date", ErrInvalidRange)
	}

	if in.Days != nil {
		if *in.Days < 0 {
			return models.TimeWindow{}, fmt.Errorf("%w: day count cannot be negative", ErrInvalidRange)
		}
		end = start.AddDate(0, 0, *in.Days)
	}

	w := models.TimeWindow{Start: start, End: end}
	if days := w.Days(); days > MaxDays {
		return models.TimeWindow{}, fmt.Errorf("%w: max %d days period allowed, input is %d days", ErrRangeTooLarge, MaxDays, days)
	}
	return w, nil
}
