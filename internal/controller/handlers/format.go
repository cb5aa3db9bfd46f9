package handlers

import (
	"fmt"

	"github.com/Freeeeeet/office_hours/internal/model"
)

const dateLayout = "Mon 02.01.2006"

var statusEmoji = map[model.AppointmentStatus]string{
	model.AppointmentStatusPending:   "⏳",
	model.AppointmentStatusAccepted:  "✅",
	model.AppointmentStatusRejected:  "❌",
	model.AppointmentStatusCancelled: "🚫",
	model.AppointmentStatusCompleted: "🏁",
}

func formatAppointment(a *model.Appointment) string {
	kind := "slot"
	if a.IsDirectRequest {
		kind = "direct request"
	}
	return fmt.Sprintf("%s #%d %s %s-%s (%s)\n%s · %s",
		statusEmoji[a.Status],
		a.ID,
		a.Date.Format(dateLayout),
		a.StartTime,
		a.EndTime,
		a.Status,
		a.Purpose,
		kind,
	)
}

func formatSlot(s *model.AvailabilitySlot) string {
	state := "open"
	switch {
	case !s.IsActive:
		state = "inactive"
	case s.IsBooked:
		state = "booked"
	}
	return fmt.Sprintf("#%d %s %s-%s %s", s.ID, s.Date.Format(dateLayout), s.StartTime, s.EndTime, state)
}
