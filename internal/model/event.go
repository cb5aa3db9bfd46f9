package model

import (
	"time"

	"github.com/google/uuid"
)

// EventType names an appointment change published to sinks.
type EventType string

const (
	EventBooked    EventType = "appointment.booked"
	EventAccepted  EventType = "appointment.accepted"
	EventRejected  EventType = "appointment.rejected"
	EventCancelled EventType = "appointment.cancelled"
	EventCompleted EventType = "appointment.completed"
)

// AppointmentEvent describes a committed appointment change.
type AppointmentEvent struct {
	ID          uuid.UUID    `json:"id"`
	Type        EventType    `json:"type"`
	Appointment Appointment  `json:"appointment"`
	Student     Student      `json:"student"`
	Faculty     Faculty      `json:"faculty"`
	CancelledBy *CancelledBy `json:"cancelled_by,omitempty"`
	Reason      string       `json:"reason,omitempty"`
	OccurredAt  time.Time    `json:"occurred_at"`
}

// NewAppointmentEvent stamps a fresh event id and copies the cancellation details from appt.
func NewAppointmentEvent(typ EventType, appt Appointment, student Student, faculty Faculty, at time.Time) AppointmentEvent {
	return AppointmentEvent{
		ID:          uuid.New(),
		Type:        typ,
		Appointment: appt,
		Student:     student,
		Faculty:     faculty,
		CancelledBy: appt.CancelledBy,
		Reason:      appt.CancelReason,
		OccurredAt:  at,
	}
}
