package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

var (
	// ErrInvalidAlarm is returned when an alarm fails validation.
	ErrInvalidAlarm = errors.New("invalid alarm")

	// ErrAlarmNotFound is returned when no alarm has the requested ID.
	ErrAlarmNotFound = errors.New("alarm not found")
)

// DateLayout is the calendar-date format used for one-off alarms.
const DateLayout = "2006-01-02"

// Alarm is a user-defined wake-up time that triggers a weather briefing.
//
// An alarm is one of three kinds: one-off (Date set), weekday-repeating
// (Days non-empty), or daily (neither).
type Alarm struct {
	ID      int64
	Hour    int
	Minute  int
	Days    []time.Weekday
	Date    *time.Time
	Enabled bool
}

// IsOneOff reports whether the alarm fires once on a specific date.
func (a Alarm) IsOneOff() bool { return a.Date != nil }

// Normalize validates the alarm and returns a canonical copy: days are
// deduplicated and sorted, and a specific date clears the weekday set.
func (a Alarm) Normalize() (Alarm, error) {
	if a.Hour < 0 || a.Hour > 23 {
		return Alarm{}, fmt.Errorf("%w: hour %d out of range", ErrInvalidAlarm, a.Hour)
	}
	if a.Minute < 0 || a.Minute > 59 {
		return Alarm{}, fmt.Errorf("%w: minute %d out of range", ErrInvalidAlarm, a.Minute)
	}

	if a.Date != nil {
		d := time.Date(a.Date.Year(), a.Date.Month(), a.Date.Day(), 0, 0, 0, 0, a.Date.Location())
		a.Date = &d
		a.Days = nil
		return a, nil
	}

	seen := make(map[time.Weekday]bool, len(a.Days))
	days := make([]time.Weekday, 0, len(a.Days))
	for _, d := range a.Days {
		if d < time.Sunday || d > time.Saturday {
			return Alarm{}, fmt.Errorf("%w: weekday %d out of range", ErrInvalidAlarm, d)
		}
		if !seen[d] {
			seen[d] = true
			days = append(days, d)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i] < days[j] })
	if len(days) == 0 {
		days = nil
	}
	a.Days = days
	return a, nil
}

// NextTrigger returns the first trigger time strictly after now, in now's
// location. The boolean is false when the alarm will never fire again, which
// only happens for one-off alarms whose date has passed.
func (a Alarm) NextTrigger(now time.Time) (time.Time, bool) {
	loc := now.Location()

	if a.Date != nil {
		d := *a.Date
		at := time.Date(d.Year(), d.Month(), d.Day(), a.Hour, a.Minute, 0, 0, loc)
		return at, at.After(now)
	}

	if len(a.Days) > 0 {
		return a.nextWeekly(now)
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), a.Hour, a.Minute, 0, 0, loc)
	if today.After(now) {
		return today, true
	}
	return today.AddDate(0, 0, 1), true
}

func (a Alarm) nextWeekly(now time.Time) (time.Time, bool) {
	days := make([]rrule.Weekday, 0, len(a.Days))
	for _, d := range a.Days {
		days = append(days, rruleDay[d])
	}

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()),
		Byweekday: days,
		Byhour:    []int{a.Hour},
		Byminute:  []int{a.Minute},
		Bysecond:  []int{0},
	})
	if err != nil {
		return time.Time{}, false
	}

	next := r.After(now, false)
	if next.IsZero() {
		return time.Time{}, false
	}
	return next, true
}

var rruleDay = map[time.Weekday]rrule.Weekday{
	time.Sunday:    rrule.SU,
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
}

var weekdayNames = [...]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// WeekdayName returns the three-letter lowercase name of d ("mon").
func WeekdayName(d time.Weekday) string {
	if d < time.Sunday || d > time.Saturday {
		return ""
	}
	return weekdayNames[d]
}

// ParseWeekday accepts three-letter or full English weekday names, any case.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) >= 3 {
		for i, name := range weekdayNames {
			if s == name || s == strings.ToLower(time.Weekday(i).String()) {
				return time.Weekday(i), nil
			}
		}
	}
	return 0, fmt.Errorf("%w: unknown weekday %q", ErrInvalidAlarm, s)
}

// FormatWeekdays joins days as a comma-separated list of short names.
func FormatWeekdays(days []time.Weekday) string {
	names := make([]string, 0, len(days))
	for _, d := range days {
		names = append(names, WeekdayName(d))
	}
	return strings.Join(names, ",")
}

// ParseWeekdays is the inverse of FormatWeekdays. An empty string yields nil.
func ParseWeekdays(s string) ([]time.Weekday, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	days := make([]time.Weekday, 0, len(parts))
	for _, p := range parts {
		d, err := ParseWeekday(p)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, nil
}
