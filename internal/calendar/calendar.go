// Package calendar provides timezone-safe date helpers for work weeks and
// invoice dates. Dates travel through the system as YYYY-MM-DD strings and are
// only turned into time.Time values anchored at local noon, so that daylight
// saving shifts and UTC conversions can never move a date to a neighbouring day.
package calendar

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
)

// noon is the hour every parsed date is anchored at.
const noon = 12

var ErrInvalidDate = errors.New("invalid date")

var (
	mu       sync.RWMutex
	location = time.Local
)

// SetLocation sets the zone dates are interpreted in. It is called once at
// start-up from configuration; nil is ignored.
func SetLocation(loc *time.Location) {
	if loc == nil {
		return
	}
	mu.Lock()
	location = loc
	mu.Unlock()
}

// Location returns the zone dates are interpreted in.
func Location() *time.Location {
	mu.RLock()
	defer mu.RUnlock()
	return location
}

// ParseLocalDate builds a date from the year, month and day written in s,
// which must be exactly YYYY-MM-DD. The string is never handed to a
// UTC-assuming parser.
func ParseLocalDate(s string) (time.Time, error) {
	if len(s) != 10 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}

	parts := strings.Split(s, "-")
	if len(parts) != 3 || len(parts[0]) != 4 || len(parts[1]) != 2 || len(parts[2]) != 2 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}

	year, err := digits(parts[0])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	month, err := digits(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	day, err := digits(parts[2])
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}

	if month < 1 || month > 12 || day < 1 || day > daysIn(time.Month(month), year) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}

	return time.Date(year, time.Month(month), day, noon, 0, 0, 0, Location()), nil
}

// ParseStoredDate reads a date column as returned by a database driver. A
// trailing time part ("2026-01-05T00:00:00Z") is dropped so that only the
// written calendar day counts.
func ParseStoredDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > 10 && (s[10] == 'T' || s[10] == ' ') {
		s = s[:10]
	}
	return ParseLocalDate(s)
}

// MustParseLocalDate is ParseLocalDate for literals known to be valid.
func MustParseLocalDate(s string) time.Time {
	t, err := ParseLocalDate(s)
	if err != nil {
		panic(err)
	}
	return t
}

// FormatDateString renders t as YYYY-MM-DD from t's own wall-clock fields.
func FormatDateString(t time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
}

// NormalizeDate rewrites anything ParseStoredDate accepts, such as a
// driver-formatted timestamp, into YYYY-MM-DD. Unparseable input is
// returned unchanged.
func NormalizeDate(s string) string {
	t, err := ParseStoredDate(s)
	if err != nil {
		return s
	}
	return FormatDateString(t)
}

// ISOWeek returns the ISO-8601 week number of t.
func ISOWeek(t time.Time) int {
	_, week := t.ISOWeek()
	return week
}

// ISOWeekYear returns the year that owns the Thursday of t's ISO week.
func ISOWeekYear(t time.Time) int {
	year, _ := t.ISOWeek()
	return year
}

// IsDateInWeek reports whether dateStr falls in ISO week `week` of ISO
// week-year `year`. Malformed dates are never in any week.
func IsDateInWeek(dateStr string, week, year int) bool {
	t, err := ParseStoredDate(dateStr)
	if err != nil {
		return false
	}
	y, w := t.ISOWeek()
	return y == year && w == week
}

// WeekStart returns the Monday of the given ISO week at local noon.
func WeekStart(week, year int) time.Time {
	// January 4th always lies in week 1.
	jan4 := time.Date(year, time.January, 4, noon, 0, 0, 0, Location())
	offset := (int(jan4.Weekday()) + 6) % 7
	return AddDays(jan4, -offset+(week-1)*7)
}

// WeekEnd returns the Sunday of the given ISO week at local noon.
func WeekEnd(week, year int) time.Time {
	return AddDays(WeekStart(week, year), 6)
}

// WeeksInYear returns 52 or 53, the number of ISO weeks of year.
func WeeksInYear(year int) int {
	_, w := time.Date(year, time.December, 28, noon, 0, 0, 0, Location()).ISOWeek()
	return w
}

// AddDays moves t by n calendar days, keeping the noon anchor.
func AddDays(t time.Time, n int) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day()+n, noon, 0, 0, 0, t.Location())
}

// Today returns the current date in the configured zone at local noon.
func Today() time.Time {
	return DateOf(time.Now())
}

// DateOf drops the clock part of t after moving it into the configured zone.
func DateOf(t time.Time) time.Time {
	t = t.In(Location())
	return time.Date(t.Year(), t.Month(), t.Day(), noon, 0, 0, 0, Location())
}

func digits(s string) (int, error) {
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, ErrInvalidDate
		}
	}
	return strconv.Atoi(s)
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, noon, 0, 0, 0, time.UTC).Day()
}
