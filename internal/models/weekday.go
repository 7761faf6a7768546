package models

import (
	"fmt"
	"strings"
	"time"
)

// Weekday names the recurring day a slot belongs to.
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

var weekdayOrder = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Weekdays returns the canonical Monday..Sunday ordering.
func Weekdays() []Weekday {
	out := make([]Weekday, len(weekdayOrder))
	copy(out, weekdayOrder)
	return out
}

// ParseWeekday resolves a case-insensitive weekday name.
func ParseWeekday(value string) (Weekday, error) {
	trimmed := strings.TrimSpace(value)
	for _, day := range weekdayOrder {
		if strings.EqualFold(string(day), trimmed) {
			return day, nil
		}
	}
	return "", fmt.Errorf("unknown weekday %q", value)
}

// WeekdayOf returns the weekday of t in t's location.
func WeekdayOf(t time.Time) Weekday {
	// time.Weekday starts on Sunday.
	return weekdayOrder[(int(t.Weekday())+6)%7]
}

// Index returns the zero-based position of the day in the Monday..Sunday week, or -1.
func (d Weekday) Index() int {
	for idx, day := range weekdayOrder {
		if day == d {
			return idx
		}
	}
	return -1
}

// Valid reports whether d is one of the seven canonical names.
func (d Weekday) Valid() bool {
	return d.Index() >= 0
}
