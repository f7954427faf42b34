package tips

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// =============================================================================
// CLOCK - minute-of-day offsets
// =============================================================================

// MinutesPerDay is the length of one calendar day in minutes.
const MinutesPerDay Clock = 24 * 60

// Clock is a minute offset from the start of a business day.
// Values at or past MinutesPerDay reach into the following calendar day.
type Clock int

// NewClock builds a clock value from hours and minutes.
func NewClock(hour, minute int) Clock { return Clock(hour*60 + minute) }

// ParseClock accepts "HH:MM" or "HH:MM:SS". Hours up to 47 are allowed so
// after-midnight times can be written on the same business day.
func ParseClock(s string) (Clock, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid clock %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 47 {
		return 0, fmt.Errorf("invalid hour in clock %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in clock %q", s)
	}
	if len(parts) == 3 {
		if sec, err := strconv.Atoi(parts[2]); err != nil || sec < 0 || sec > 59 {
			return 0, fmt.Errorf("invalid second in clock %q", s)
		}
	}
	return NewClock(h, m), nil
}

// MustParseClock panics on malformed input. Intended for tests and fixtures.
func MustParseClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ClockPtr returns a pointer to a parsed clock.
func ClockPtr(s string) *Clock {
	c := MustParseClock(s)
	return &c
}

func (c Clock) Hour() int   { return int(c) / 60 }
func (c Clock) Minute() int { return int(c) % 60 }

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour(), c.Minute())
}

// =============================================================================
// DATES AND PERIODS
// =============================================================================

const dateLayout = "2006-01-02"

// Day returns the UTC midnight of t's calendar date.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NewDate builds a UTC calendar date.
func NewDate(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(s))
}

// FormatDate renders YYYY-MM-DD.
func FormatDate(t time.Time) string { return t.Format(dateLayout) }

// DatePtr returns a pointer to a calendar date.
func DatePtr(year int, month time.Month, day int) *time.Time {
	d := NewDate(year, month, day)
	return &d
}

// Period is a pay period, inclusive on both ends.
type Period struct {
	Start time.Time
	End   time.Time
}

// NewPeriod normalizes both bounds to calendar dates.
func NewPeriod(start, end time.Time) (Period, error) {
	p := Period{Start: Day(start), End: Day(end)}
	if p.End.Before(p.Start) {
		return Period{}, ErrInvalidPeriod
	}
	return p, nil
}

// Contains returns true if the date is within [Start, End].
func (p Period) Contains(t time.Time) bool {
	d := Day(t)
	return !d.Before(p.Start) && !d.After(p.End)
}

// Days returns every date in the period.
func (p Period) Days() []time.Time {
	var days []time.Time
	for d := p.Start; !d.After(p.End); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

// Equal compares both bounds by calendar date.
func (p Period) Equal(o Period) bool {
	return Day(p.Start).Equal(Day(o.Start)) && Day(p.End).Equal(Day(o.End))
}

func (p Period) String() string {
	return "[" + FormatDate(p.Start) + ", " + FormatDate(p.End) + "]"
}
