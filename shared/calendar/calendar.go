// Package calendar holds the canonical calendar date and minute-of-day types
// used by bookings, together with the interval overlap rules.
//
// Dates are compared as YYYY-MM-DD strings and are never shifted across
// timezones: a value carrying a clock time contributes only the calendar
// components it was written with.
package calendar

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"meetroom/shared/timezone"
)

const (
	Layout        = "2006-01-02"
	ClockLayout   = "15:04"
	MinutesPerDay = 24 * 60
)

var (
	ErrInvalidDate  = errors.New("invalid date")
	ErrInvalidTime  = errors.New("invalid time")
	ErrInvalidRange = errors.New("invalid date range")
)

var (
	datePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	clockPattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)

	fallbackLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006/01/02",
		"02 Jan 2006",
		time.RFC1123,
	}
)

// Date is a canonical calendar date in YYYY-MM-DD form.
type Date string

// NormalizeDate converts any accepted date representation into a Date.
func NormalizeDate(input string) (Date, error) {
	value := strings.TrimSpace(input)
	if value == "" {
		return "", fmt.Errorf("%w: empty value", ErrInvalidDate)
	}

	if datePattern.MatchString(value) {
		if _, err := time.Parse(Layout, value); err != nil {
			return "", fmt.Errorf("%w: %s", ErrInvalidDate, value)
		}

		return Date(value), nil
	}

	if idx := strings.Index(value, "T"); idx == len(Layout) && datePattern.MatchString(value[:idx]) {
		if _, err := time.Parse(Layout, value[:idx]); err == nil {
			return Date(value[:idx]), nil
		}
	}

	for _, layout := range fallbackLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return FromTime(parsed), nil
		}
	}

	return "", fmt.Errorf("%w: %s", ErrInvalidDate, value)
}

// MustDate is NormalizeDate for literals known to be valid.
func MustDate(input string) Date {
	date, err := NormalizeDate(input)
	if err != nil {
		panic(err)
	}

	return date
}

// FromTime takes the wall-clock calendar components of t as written.
func FromTime(t time.Time) Date {
	return Date(fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day()))
}

func (d Date) String() string {
	return string(d)
}

func (d Date) IsZero() bool {
	return d == ""
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	parsed, err := time.Parse(Layout, string(d))
	if err != nil {
		return time.Time{}
	}

	return parsed
}

func (d Date) AddDays(days int) Date {
	return FromTime(d.Time().AddDate(0, 0, days))
}

func (d Date) Before(other Date) bool {
	return d < other
}

func (d Date) After(other Date) bool {
	return d > other
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src any) error {
	switch value := src.(type) {
	case nil:
		*d = ""
	case time.Time:
		*d = FromTime(value)
	case []byte:
		return d.scanString(string(value))
	case string:
		return d.scanString(value)
	default:
		return fmt.Errorf("%w: unsupported type %T", ErrInvalidDate, src)
	}

	return nil
}

func (d *Date) scanString(value string) error {
	date, err := NormalizeDate(value)
	if err != nil {
		return err
	}

	*d = date

	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	if d == "" {
		return nil, nil
	}

	return string(d), nil
}

// Days lists every date from start to end inclusive.
func Days(start, end Date) []Date {
	if end.Before(start) {
		return nil
	}

	days := []Date{}
	for day := start; !day.After(end); day = day.AddDays(1) {
		days = append(days, day)
	}

	return days
}

// TimeToMinutes parses an HH:MM clock value into minutes since midnight.
func TimeToMinutes(value string) (int, error) {
	value = strings.TrimSpace(value)
	if !clockPattern.MatchString(value) {
		return 0, fmt.Errorf("%w: %s", ErrInvalidTime, value)
	}

	hour, minute, _ := strings.Cut(value, ":")

	hours, err := strconv.Atoi(hour)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidTime, value)
	}

	minutes, err := strconv.Atoi(minute)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidTime, value)
	}

	return hours*60 + minutes, nil
}

// IsClock reports whether value is a well-formed HH:MM clock value.
func IsClock(value string) bool {
	return clockPattern.MatchString(strings.TrimSpace(value))
}

func FormatMinutes(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// DateRangesOverlap treats both ranges as closed on both ends.
func DateRangesOverlap(startA, endA, startB, endB Date) bool {
	return startA <= endB && endA >= startB
}

// TimeRangesOverlap treats both ranges as half-open, so touching slots do not overlap.
func TimeRangesOverlap(startA, endA, startB, endB int) bool {
	return startA < endB && endA > startB
}

// Now returns today's date and the current minute of day in the application timezone.
func Now() (Date, int) {
	now := timezone.Now()

	return FromTime(now), now.Hour()*60 + now.Minute()
}
