package handlers

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/service"
	"github.com/Freeeeeet/office_hours/internal/timeslot"
)

const (
	bookUsage    = "Usage: /book <faculty id> <slot id> <category> [purpose]"
	requestUsage = "Usage: /request <faculty id> <YYYY-MM-DD> <HH:MM> <minutes> <category> [text]"
)

func bookedText(a *model.Appointment) string {
	return fmt.Sprintf("✅ Appointment #%d requested for %s %s-%s.\nYou will be notified when the faculty responds.",
		a.ID, a.Date.Format(dateLayout), a.StartTime, a.EndTime)
}

// book: /book <faculty id> <slot id> <category> [purpose]
func (h *Handlers) book(ctx context.Context, chatID int64, args []string) string {
	actor, reply := h.requireRole(ctx, chatID, model.RoleStudent)
	if reply != "" {
		return reply
	}
	if len(args) < 3 {
		return bookUsage
	}
	facultyID, ok1 := parseID(args[0:1])
	slotID, ok2 := parseID(args[1:2])
	if !ok1 || !ok2 {
		return bookUsage
	}

	category := parseCategory(args[2])
	text := restOf(args, 3)
	purpose := text
	if purpose == "" {
		purpose = string(category)
	}

	appt, err := h.appointments.Book(ctx, actor.ID, facultyID, service.BookingRequest{
		AvailabilityID:    &slotID,
		Purpose:           purpose,
		PurposeCategory:   category,
		CustomPurposeText: text,
	})
	if err != nil {
		return h.errorText(err, chatID)
	}
	return bookedText(appt)
}

// request: /request <faculty id> <YYYY-MM-DD> <HH:MM> <minutes> <category> [text]
func (h *Handlers) request(ctx context.Context, chatID int64, args []string) string {
	actor, reply := h.requireRole(ctx, chatID, model.RoleStudent)
	if reply != "" {
		return reply
	}
	if len(args) < 5 {
		return requestUsage
	}
	facultyID, ok := parseID(args[0:1])
	if !ok {
		return requestUsage
	}

	date, err := timeslot.ParseDate(args[1])
	if err != nil {
		return requestUsage
	}
	start, err := timeslot.ParseTimeOfDay(args[2])
	if err != nil {
		return h.errorText(err, chatID)
	}
	duration, err := strconv.Atoi(args[3])
	if err != nil {
		return requestUsage
	}

	appt, err := h.appointments.RequestDirect(ctx, actor.ID, facultyID, service.DirectRequest{
		Date:              date,
		StartTime:         &start,
		Duration:          &duration,
		PurposeCategory:   parseCategory(args[4]),
		CustomPurposeText: restOf(args, 5),
	})
	if err != nil {
		return h.errorText(err, chatID)
	}
	return bookedText(appt)
}
