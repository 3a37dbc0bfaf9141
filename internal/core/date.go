package core

import (
	"strings"
	"time"
)

const (
	// DateFormat is the canonical calendar-day format, also used as snapshot key.
	DateFormat = "2006-01-02"
	TimeFormat = "15:04"
)

// fallbackLayouts are tried after the strict DateFormat, in order.
var fallbackLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
}

// ParseDateLike parses a calendar date or a store timestamp.
// Values without an offset are read as UTC.
func ParseDateLike(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateFormat, s); err == nil {
		return t, true
	}
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateKey returns the calendar-day key of a timestamp and its unix time in
// milliseconds. Unparseable values keep the raw string as key and a zero
// timestamp, which sorts them as oldest.
func DateKey(s string) (key string, timestamp int64) {
	t, ok := ParseDateLike(s)
	if !ok {
		return s, 0
	}
	return t.Format(DateFormat), t.UnixMilli()
}

// FormatDate reformats a date-like string; "" when it cannot be parsed.
func FormatDate(s string, layout string) string {
	t, ok := ParseDateLike(s)
	if !ok {
		return ""
	}
	if layout == "" {
		layout = DateFormat
	}
	return t.Format(layout)
}

// FormatTime returns the HH:mm part of a timestamp; "" when it cannot be parsed.
func FormatTime(s string) string {
	return FormatDate(s, TimeFormat)
}

func FormatDateWithFallback(s, fallback string) string {
	if v := FormatDate(s, DateFormat); v != "" {
		return v
	}
	return fallback
}

// IsValidDateString reports whether s is a strict YYYY-MM-DD date.
func IsValidDateString(s string) bool {
	if s == "" {
		return false
	}
	_, err := time.Parse(DateFormat, s)
	return err == nil
}

// Today returns now formatted as a calendar day.
func Today(now time.Time) string {
	return now.Format(DateFormat)
}

// MonthLabel returns the English month name used by the debt ledger.
func MonthLabel(t time.Time) string {
	return t.Month().String()
}

// PreviousMonth returns the first day of the calendar month before t.
func PreviousMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m-1, 1, 0, 0, 0, 0, t.Location())
}
