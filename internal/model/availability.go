package model

import (
	"time"

	"github.com/Freeeeeet/office_hours/internal/timeslot"
)

// AvailabilitySlot is an open window declared by a faculty member.
type AvailabilitySlot struct {
	ID        int64              `json:"id"`
	FacultyID int64              `json:"faculty_id"`
	Date      time.Time          `json:"date"` // civil date, UTC midnight
	Day       string             `json:"day"`  // derived from Date
	StartTime timeslot.TimeOfDay `json:"start_time"`
	EndTime   timeslot.TimeOfDay `json:"end_time"`
	IsBooked  bool               `json:"is_booked"`
	IsActive  bool               `json:"is_active"`
	CreatedAt time.Time          `json:"created_at"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// IsOpen checks if the slot can be booked
func (s *AvailabilitySlot) IsOpen() bool {
	return s.IsActive && !s.IsBooked
}

// Overlaps checks whether the slot intersects [start, end) on the same date.
func (s *AvailabilitySlot) Overlaps(date time.Time, start, end timeslot.TimeOfDay) bool {
	return s.Date.Equal(date) && timeslot.SlotsOverlap(start, end, s.StartTime, s.EndTime)
}
