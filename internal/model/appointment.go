package model

import (
	"time"

	"github.com/Freeeeeet/office_hours/internal/timeslot"
)

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"   // waiting for the faculty
	AppointmentStatusAccepted  AppointmentStatus = "accepted"  // approved by the faculty
	AppointmentStatusRejected  AppointmentStatus = "rejected"  // declined by the faculty
	AppointmentStatusCancelled AppointmentStatus = "cancelled" // called off by either side
	AppointmentStatusCompleted AppointmentStatus = "completed" // held
)

// transitions lists every allowed status change.
var transitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentStatusPending: {
		AppointmentStatusAccepted,
		AppointmentStatusRejected,
		AppointmentStatusCancelled,
	},
	AppointmentStatusAccepted: {
		AppointmentStatusCompleted,
		AppointmentStatusCancelled,
	},
}

// Valid checks the status is one of the known values
func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusAccepted, AppointmentStatusRejected,
		AppointmentStatusCancelled, AppointmentStatusCompleted:
		return true
	}
	return false
}

// IsActive reports whether the appointment still holds the student's time.
func (s AppointmentStatus) IsActive() bool {
	return s == AppointmentStatusPending || s == AppointmentStatusAccepted
}

// IsTerminal reports whether no further transition is possible.
func (s AppointmentStatus) IsTerminal() bool {
	return len(transitions[s]) == 0
}

// CanTransitionTo reports whether s -> next is allowed.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// CancelledBy records which side called an appointment off.
type CancelledBy string

const (
	CancelledByStudent CancelledBy = "student"
	CancelledByFaculty CancelledBy = "faculty"
)

// PurposeCategory classifies why the student is booking.
type PurposeCategory string

const (
	PurposeAcademic PurposeCategory = "Academic"
	PurposePersonal PurposeCategory = "Personal"
	PurposeProject  PurposeCategory = "Project"
	PurposeOther    PurposeCategory = "Other"
)

// Valid checks the category is one of the known values.
func (c PurposeCategory) Valid() bool {
	switch c {
	case PurposeAcademic, PurposePersonal, PurposeProject, PurposeOther:
		return true
	}
	return false
}

// Text length limits
const (
	MaxPurposeLength       = 200
	MaxCustomPurposeLength = 200
	MaxReasonLength        = 200
)

// Appointment is a student's booking with a faculty member, either on a slot or as a direct request.
type Appointment struct {
	ID                int64              `json:"id"`
	StudentID         int64              `json:"student_id"`
	FacultyID         int64              `json:"faculty_id"`
	AvailabilityID    *int64             `json:"availability_id"` // nil for direct requests
	Date              time.Time          `json:"date"`
	StartTime         timeslot.TimeOfDay `json:"start_time"`
	EndTime           timeslot.TimeOfDay `json:"end_time"`
	Duration          *int               `json:"duration,omitempty"` // minutes, direct requests only
	Purpose           string             `json:"purpose"`
	PurposeCategory   PurposeCategory    `json:"purpose_category"`
	CustomPurposeText string             `json:"custom_purpose_text,omitempty"`
	Status            AppointmentStatus  `json:"status"`
	CancelledBy       *CancelledBy       `json:"cancelled_by"`
	CancelReason      string             `json:"cancel_reason,omitempty"`
	IsDirectRequest   bool               `json:"is_direct_request"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// CollidesWith applies the double-booking rule against another interval on the same date.
func (a *Appointment) CollidesWith(date time.Time, start, end timeslot.TimeOfDay) bool {
	return a.Date.Equal(date) && timeslot.Collides(start, end, a.StartTime, a.EndTime)
}
