package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidTimeRange is returned when a time range is not two HH:MM endpoints with start < end.
var ErrInvalidTimeRange = errors.New("invalid time range")

// TimeRange is a start and end wall-clock offset within a day.
type TimeRange struct {
	Start time.Duration
	End   time.Duration
}

// ParseTimeRange parses "HH:MM-HH:MM". Whitespace around either endpoint is ignored.
func ParseTimeRange(raw string) (TimeRange, error) {
	parts := strings.Split(strings.TrimSpace(raw), "-")
	if len(parts) != 2 {
		return TimeRange{}, fmt.Errorf("%w: %q", ErrInvalidTimeRange, raw)
	}

	start, err := parseClock(parts[0])
	if err != nil {
		return TimeRange{}, fmt.Errorf("%w: %q", ErrInvalidTimeRange, raw)
	}
	end, err := parseClock(parts[1])
	if err != nil {
		return TimeRange{}, fmt.Errorf("%w: %q", ErrInvalidTimeRange, raw)
	}
	if start >= end {
		return TimeRange{}, fmt.Errorf("%w: start must precede end in %q", ErrInvalidTimeRange, raw)
	}

	return TimeRange{Start: start, End: end}, nil
}

// ParseClock parses a single "HH:MM" wall-clock value into an offset from midnight.
func ParseClock(value string) (time.Duration, error) {
	return parseClock(value)
}

func parseClock(value string) (time.Duration, error) {
	pieces := strings.Split(strings.TrimSpace(value), ":")
	if len(pieces) != 2 {
		return 0, fmt.Errorf("clock %q must be HH:MM", value)
	}
	hours, err := strconv.Atoi(strings.TrimSpace(pieces[0]))
	if err != nil || hours < 0 || hours > 23 {
		return 0, fmt.Errorf("clock %q has invalid hour", value)
	}
	minutes, err := strconv.Atoi(strings.TrimSpace(pieces[1]))
	if err != nil || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("clock %q has invalid minute", value)
	}
	return time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute, nil
}

// Minutes returns the length of the range in whole minutes.
func (r TimeRange) Minutes() int {
	return int((r.End - r.Start) / time.Minute)
}

// String renders the canonical zero-padded form, which sorts chronologically.
func (r TimeRange) String() string {
	return formatClock(r.Start) + "-" + formatClock(r.End)
}

// EndOn anchors the end of the range to the calendar day of ref, in ref's location.
func (r TimeRange) EndOn(ref time.Time) time.Time {
	return anchor(ref, r.End)
}

// StartOn anchors the start of the range to the calendar day of ref, in ref's location.
func (r TimeRange) StartOn(ref time.Time) time.Time {
	return anchor(ref, r.Start)
}

// ClockOffset returns how far into its day t is.
func ClockOffset(t time.Time) time.Duration {
	hour, minute, second := t.Clock()
	return time.Duration(hour)*time.Hour +
		time.Duration(minute)*time.Minute +
		time.Duration(second)*time.Second +
		time.Duration(t.Nanosecond())
}

func anchor(ref time.Time, offset time.Duration) time.Time {
	year, month, day := ref.Date()
	hours := int(offset / time.Hour)
	minutes := int((offset % time.Hour) / time.Minute)
	return time.Date(year, month, day, hours, minutes, 0, 0, ref.Location())
}

func formatClock(offset time.Duration) string {
	hours := int(offset / time.Hour)
	minutes := int((offset % time.Hour) / time.Minute)
	return fmt.Sprintf("%02d:%02d", hours, minutes)
}
