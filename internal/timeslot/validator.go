package timeslot

import (
	"fmt"
	"time"

	"github.com/Freeeeeet/office_hours/internal/apperr"
)

// IsWeekday reports whether date falls on Monday through Friday.
func IsWeekday(date time.Time) bool {
	wd := date.Weekday()
	return wd >= time.Monday && wd <= time.Friday
}

// WeekdayName returns the English day name, e.g. "Monday".
func WeekdayName(date time.Time) string {
	return date.Weekday().String()
}

// IsWithinBusinessHours reports whether 09:00 <= t <= 18:00.
func IsWithinBusinessHours(t TimeOfDay) bool {
	return t >= OpeningTime && t <= ClosingTime
}

// ValidDuration reports whether minutes is one of the bookable durations.
func ValidDuration(minutes int) bool {
	_, ok := allowedDurations[minutes]
	return ok
}

// ComputeEndTime adds minutes to start. The result must not pass closing time.
func ComputeEndTime(start TimeOfDay, minutes int) (TimeOfDay, error) {
	end := start + TimeOfDay(minutes)
	if end > ClosingTime {
		return 0, fmt.Errorf("%w: appointment would end at %s", apperr.ErrOutOfHours, end)
	}
	return end, nil
}

// ValidateRange checks that both endpoints are within business hours and end > start.
func ValidateRange(start, end TimeOfDay) error {
	if !IsWithinBusinessHours(start) || !IsWithinBusinessHours(end) {
		return fmt.Errorf("%w: %s-%s", apperr.ErrInvalidRange, start, end)
	}
	if end <= start {
		return fmt.Errorf("%w: %s-%s", apperr.ErrInvalidRange, start, end)
	}
	return nil
}

// SlotsOverlap reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Touching intervals (10:00-11:00, 11:00-12:00) do not overlap.
func SlotsOverlap(aStart, aEnd, bStart, bEnd TimeOfDay) bool {
	return aStart < bEnd && aEnd > bStart
}

// Collides is the double-booking rule: equal start times always collide,
// otherwise the intervals must overlap.
func Collides(aStart, aEnd, bStart, bEnd TimeOfDay) bool {
	return aStart == bStart || SlotsOverlap(aStart, aEnd, bStart, bEnd)
}
