package notify

import (
	"fmt"
	"strings"

	"github.com/Freeeeeet/office_hours/internal/model"
)

const dateLayout = "Mon Jan 02 2006"

// Recipient is one party of an appointment with its reachable addresses.
type Recipient struct {
	Email          string
	TelegramChatID *int64
}

// Message is a rendered notification for one recipient.
type Message struct {
	To      Recipient
	Subject string
	Body    string
}

func studentOf(e model.AppointmentEvent) Recipient {
	return Recipient{Email: e.Student.Email, TelegramChatID: e.Student.TelegramChatID}
}

func facultyOf(e model.AppointmentEvent) Recipient {
	return Recipient{Email: e.Faculty.Email, TelegramChatID: e.Faculty.TelegramChatID}
}

// Render builds the messages an event produces. Unknown event types render nothing.
func Render(e model.AppointmentEvent) []Message {
	a := e.Appointment
	when := fmt.Sprintf("on %s at %s", a.Date.Format(dateLayout), a.StartTime)

	reason := ""
	if e.Reason != "" {
		reason = " Reason: " + e.Reason
	}

	switch e.Type {
	case model.EventBooked:
		lines := []string{fmt.Sprintf("You have a new appointment request from %s %s.", e.Student.Name, when)}
		if a.IsDirectRequest && a.Duration != nil {
			lines = append(lines, fmt.Sprintf("Duration: %d minutes", *a.Duration))
		}
		purpose := "Purpose: " + string(a.PurposeCategory)
		if a.CustomPurposeText != "" {
			purpose += " - " + a.CustomPurposeText
		}
		lines = append(lines, purpose)

		return []Message{
			{
				To:      studentOf(e),
				Subject: "Appointment Request Submitted",
				Body:    fmt.Sprintf("Your appointment request with %s %s has been submitted and is pending approval.", e.Faculty.Name, when),
			},
			{
				To:      facultyOf(e),
				Subject: "New Appointment Request",
				Body:    strings.Join(lines, "\n"),
			},
		}

	case model.EventAccepted, model.EventRejected:
		status := string(a.Status)
		return []Message{{
			To:      studentOf(e),
			Subject: "Appointment " + strings.ToUpper(status[:1]) + status[1:],
			Body:    fmt.Sprintf("Your appointment with %s %s has been %s.%s", e.Faculty.Name, when, status, reason),
		}}

	case model.EventCancelled:
		by := e.Faculty.Name
		if e.CancelledBy != nil && *e.CancelledBy == model.CancelledByStudent {
			by = e.Student.Name
		}
		return []Message{
			{
				To:      studentOf(e),
				Subject: "Appointment Cancelled",
				Body:    fmt.Sprintf("Your appointment with %s %s has been cancelled by %s.%s", e.Faculty.Name, when, by, reason),
			},
			{
				To:      facultyOf(e),
				Subject: "Appointment Cancelled",
				Body:    fmt.Sprintf("Your appointment with %s %s has been cancelled by %s.%s", e.Student.Name, when, by, reason),
			},
		}

	case model.EventCompleted:
		return []Message{{
			To:      studentOf(e),
			Subject: "Appointment Completed",
			Body:    fmt.Sprintf("Your appointment with %s %s has been marked as completed.", e.Faculty.Name, when),
		}}
	}
	return nil
}
