// Package timeutil converts between caller-local wall clock values and the
// UTC instants the rest of the system stores. Callers supply a fixed UTC
// offset in minutes with each request; no timezone database or daylight
// saving transitions are consulted. This is a documented limitation, not an
// oversight: offsets are applied at this boundary and discarded, so stored
// instants never carry timezone ambiguity.
package timeutil

import (
	"errors"
	"fmt"
	"time"
)

const (
	// MinOffsetMinutes is the westernmost supported UTC offset (UTC-12).
	MinOffsetMinutes = -720
	// MaxOffsetMinutes is the easternmost supported UTC offset (UTC+12).
	MaxOffsetMinutes = 720
)

// ErrOffsetOutOfRange indicates a UTC offset outside [-720, 720] minutes.
var ErrOffsetOutOfRange = errors.New("timeutil: offset must be between -720 and 720 minutes")

// Date is a calendar date with no time-of-day or timezone component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a date in "2006-01-02" form.
func ParseDate(value string) (Date, error) {
	ts, err := time.Parse("2006-01-02", value)
	if err != nil {
		return Date{}, fmt.Errorf("timeutil: invalid date %q: %w", value, err)
	}
	return DateOf(ts), nil
}

// DateOf extracts the calendar date from an instant in the instant's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// String renders the date in "2006-01-02" form.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Weekday returns the day of week the date falls on.
func (d Date) Weekday() time.Weekday {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC).Weekday()
}

// AddDays returns the date shifted by the given number of days, normalising
// across month and year boundaries.
func (d Date) AddDays(days int) Date {
	return DateOf(time.Date(d.Year, d.Month, d.Day+days, 0, 0, 0, 0, time.UTC))
}

// Before reports whether d falls strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.compare(other) < 0
}

// After reports whether d falls strictly later than other.
func (d Date) After(other Date) bool {
	return d.compare(other) > 0
}

// Equal reports whether the two dates are the same calendar day.
func (d Date) Equal(other Date) bool {
	return d.compare(other) == 0
}

func (d Date) compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return d.Year - other.Year
	case d.Month != other.Month:
		return int(d.Month) - int(other.Month)
	default:
		return d.Day - other.Day
	}
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	// Day zero of the following month normalises to the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// TimeOfDay is a wall clock time with no date or timezone component.
type TimeOfDay struct {
	Hour   int
	Minute int
	Second int
}

// ParseTimeOfDay parses "15:04" or "15:04:05" forms.
func ParseTimeOfDay(value string) (TimeOfDay, error) {
	for _, layout := range []string{"15:04:05", "15:04"} {
		if ts, err := time.Parse(layout, value); err == nil {
			return TimeOfDay{Hour: ts.Hour(), Minute: ts.Minute(), Second: ts.Second()}, nil
		}
	}
	return TimeOfDay{}, fmt.Errorf("timeutil: invalid time of day %q", value)
}

// TimeOfDayOf extracts the wall clock time from an instant in the instant's
// location.
func TimeOfDayOf(t time.Time) TimeOfDay {
	return TimeOfDay{Hour: t.Hour(), Minute: t.Minute(), Second: t.Second()}
}

// String renders the time in "15:04:05" form.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// Before reports whether t is earlier in the day than other.
func (t TimeOfDay) Before(other TimeOfDay) bool {
	return t.seconds() < other.seconds()
}

func (t TimeOfDay) seconds() int {
	return t.Hour*3600 + t.Minute*60 + t.Second
}

// ValidateOffset checks a UTC offset against the supported range.
func ValidateOffset(offsetMinutes int) error {
	if offsetMinutes < MinOffsetMinutes || offsetMinutes > MaxOffsetMinutes {
		return ErrOffsetOutOfRange
	}
	return nil
}

// ToUTC composes the date and wall clock time in the caller's local frame and
// converts the result to UTC by subtracting the offset.
func ToUTC(date Date, tod TimeOfDay, offsetMinutes int) (time.Time, error) {
	if err := ValidateOffset(offsetMinutes); err != nil {
		return time.Time{}, err
	}
	local := time.Date(date.Year, date.Month, date.Day, tod.Hour, tod.Minute, tod.Second, 0, time.UTC)
	return local.Add(-time.Duration(offsetMinutes) * time.Minute), nil
}

// ToLocal shifts a stored UTC instant into the caller's local frame for
// display. The result is still typed as UTC; only the wall clock components
// are meaningful. Used at the response boundary, never for storage.
func ToLocal(instant time.Time, offsetMinutes int) (time.Time, error) {
	if err := ValidateOffset(offsetMinutes); err != nil {
		return time.Time{}, err
	}
	return instant.UTC().Add(time.Duration(offsetMinutes) * time.Minute), nil
}
