// Package recurrence expands a schedule template's recurrence rule into the
// ordered sequence of concrete calendar dates it covers. Expansion is a pure
// function of its inputs: it touches no storage and can be re-run safely.
package recurrence

import (
	"errors"
	"time"

	"github.com/raj29code/playohcanada/internal/timeutil"
)

// Frequency represents supported recurrence intervals.
type Frequency int

const (
	// FrequencyUnspecified indicates the rule frequency is not set.
	FrequencyUnspecified Frequency = iota
	// FrequencyDaily generates one date for each day within the range.
	FrequencyDaily
	// FrequencyWeekly generates dates for the selected weekdays in every week.
	FrequencyWeekly
	// FrequencyBiWeekly generates dates for the selected weekdays in every
	// other calendar week.
	FrequencyBiWeekly
	// FrequencyMonthly generates one date per month on the start date's
	// day-of-month, clamped to shorter months.
	FrequencyMonthly
)

// String returns the lowercase wire name of the frequency.
func (f Frequency) String() string {
	switch f {
	case FrequencyDaily:
		return "daily"
	case FrequencyWeekly:
		return "weekly"
	case FrequencyBiWeekly:
		return "biweekly"
	case FrequencyMonthly:
		return "monthly"
	default:
		return "unspecified"
	}
}

// ParseFrequency maps a wire name to a Frequency.
func ParseFrequency(value string) (Frequency, error) {
	switch value {
	case "daily":
		return FrequencyDaily, nil
	case "weekly":
		return FrequencyWeekly, nil
	case "biweekly":
		return FrequencyBiWeekly, nil
	case "monthly":
		return FrequencyMonthly, nil
	default:
		return FrequencyUnspecified, ErrInvalidFrequency
	}
}

// Rule describes a recurrence configuration attached to a schedule template.
// A zero Rule (Recurring false) expands to the start date alone.
type Rule struct {
	Recurring bool
	Frequency Frequency
	EndDate   timeutil.Date
	Weekdays  []time.Weekday
}

var (
	// ErrInvalidFrequency indicates the recurrence frequency is missing or unsupported.
	ErrInvalidFrequency = errors.New("recurrence: invalid frequency")
	// ErrMissingEndDate indicates a recurring rule without an end date.
	ErrMissingEndDate = errors.New("recurrence: end date is required for recurring schedules")
	// ErrEndBeforeStart indicates an end date earlier than the start date.
	ErrEndBeforeStart = errors.New("recurrence: end date must be on or after the start date")
	// ErrMissingWeekdays indicates a weekly or biweekly rule with no weekdays selected.
	ErrMissingWeekdays = errors.New("recurrence: weekly and biweekly rules require at least one weekday")
	// ErrEmptyExpansion indicates a rule that generates no dates at all.
	ErrEmptyExpansion = errors.New("recurrence: rule generates no dates")
)

// Expand produces the ordered dates a template covers, start date first.
//
// Semantics per frequency:
//   - Daily emits every date from start through EndDate inclusive.
//   - Weekly emits every date in range whose weekday is selected.
//   - BiWeekly partitions the range into calendar weeks and emits selected
//     weekdays only in even-indexed weeks. The week index is anchored to
//     Monday transitions counted from the start date, not to the start
//     date's own weekday; when no weekdays are selected the start date's
//     weekday is used.
//   - Monthly emits the start date's day-of-month once per month, clamped to
//     the last day of shorter months; a clamped date before the start date
//     is skipped.
func Expand(start timeutil.Date, rule Rule) ([]timeutil.Date, error) {
	if !rule.Recurring {
		return []timeutil.Date{start}, nil
	}

	if rule.Frequency == FrequencyUnspecified {
		return nil, ErrInvalidFrequency
	}
	if rule.EndDate.IsZero() {
		return nil, ErrMissingEndDate
	}
	if rule.EndDate.Before(start) {
		return nil, ErrEndBeforeStart
	}

	var dates []timeutil.Date
	switch rule.Frequency {
	case FrequencyDaily:
		dates = expandDaily(start, rule.EndDate)
	case FrequencyWeekly:
		if len(rule.Weekdays) == 0 {
			return nil, ErrMissingWeekdays
		}
		dates = expandWeekly(start, rule.EndDate, weekdaySet(rule.Weekdays))
	case FrequencyBiWeekly:
		if len(rule.Weekdays) == 0 {
			return nil, ErrMissingWeekdays
		}
		dates = expandBiWeekly(start, rule.EndDate, weekdaySet(rule.Weekdays))
	case FrequencyMonthly:
		dates = expandMonthly(start, rule.EndDate)
	default:
		return nil, ErrInvalidFrequency
	}

	if len(dates) == 0 {
		return nil, ErrEmptyExpansion
	}
	return dates, nil
}

func expandDaily(start, end timeutil.Date) []timeutil.Date {
	var dates []timeutil.Date
	for current := start; !current.After(end); current = current.AddDays(1) {
		dates = append(dates, current)
	}
	return dates
}

func expandWeekly(start, end timeutil.Date, weekdays map[time.Weekday]struct{}) []timeutil.Date {
	var dates []timeutil.Date
	for current := start; !current.After(end); current = current.AddDays(1) {
		if _, ok := weekdays[current.Weekday()]; ok {
			dates = append(dates, current)
		}
	}
	return dates
}

// expandBiWeekly walks the range day by day, bumping a week counter each time
// the walk crosses into a Monday. Dates are emitted only while the counter is
// even, so parity is anchored to calendar weeks: when the start date is
// mid-week, the first partial week is week zero regardless of how few days it
// contains. Kept compatible with already-published schedules; see DESIGN.md
// before changing the anchor.
func expandBiWeekly(start, end timeutil.Date, weekdays map[time.Weekday]struct{}) []timeutil.Date {
	if len(weekdays) == 0 {
		weekdays = map[time.Weekday]struct{}{start.Weekday(): {}}
	}

	var dates []timeutil.Date
	week := 0
	for current := start; !current.After(end); {
		if week%2 == 0 {
			if _, ok := weekdays[current.Weekday()]; ok {
				dates = append(dates, current)
			}
		}

		current = current.AddDays(1)
		if current.Weekday() == time.Monday {
			week++
		}
	}
	return dates
}

func expandMonthly(start, end timeutil.Date) []timeutil.Date {
	var dates []timeutil.Date
	year, month := start.Year, start.Month

	for {
		day := start.Day
		if last := timeutil.DaysInMonth(year, month); day > last {
			day = last
		}
		candidate := timeutil.Date{Year: year, Month: month, Day: day}

		if candidate.After(end) {
			break
		}
		if !candidate.Before(start) {
			dates = append(dates, candidate)
		}

		month++
		if month > time.December {
			month = time.January
			year++
		}
	}
	return dates
}

func weekdaySet(days []time.Weekday) map[time.Weekday]struct{} {
	set := make(map[time.Weekday]struct{}, len(days))
	for _, day := range days {
		set[day] = struct{}{}
	}
	return set
}
