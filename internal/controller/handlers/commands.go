package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"

	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/service"
)

const helpText = "📚 Commands:\n\n" +
	"/start - Link status and chat id\n" +
	"/appointments [status] - My appointments\n" +
	"/slots [faculty id] - My slots, or a faculty's open slots\n" +
	"/cancel <id> [reason] - Cancel an appointment\n" +
	"/help - Show this help\n\n" +
	"For students:\n" +
	"/book <faculty id> <slot id> <category> [purpose] - Book an open slot\n" +
	"/request <faculty id> <YYYY-MM-DD> <HH:MM> <minutes> <category> [text] - Ask for a custom time\n\n" +
	"For faculty:\n" +
	"/addslot <YYYY-MM-DD> <HH:MM> <HH:MM> - Declare a slot\n" +
	"/editslot <id> [date=YYYY-MM-DD] [start=HH:MM] [end=HH:MM] [active=on|off] - Change a slot\n" +
	"/delslot <id> - Delete an unbooked slot\n" +
	"/accept <id> - Accept a pending request\n" +
	"/reject <id> [reason] - Reject a pending request\n" +
	"/complete <id> - Mark an accepted appointment as held\n\n" +
	"Categories: Academic, Personal, Project, Other"

// HandleStart shows the link status of the chat.
func (h *Handlers) HandleStart() bot.HandlerFunc { return h.serve(h.start) }

// HandleHelp lists the commands.
func (h *Handlers) HandleHelp() bot.HandlerFunc { return h.serve(h.help) }

// HandleAppointments lists the caller's appointments.
func (h *Handlers) HandleAppointments() bot.HandlerFunc { return h.serve(h.listAppointments) }

// HandleSlots lists the caller's slots or a faculty member's open slots.
func (h *Handlers) HandleSlots() bot.HandlerFunc { return h.serve(h.listSlots) }

// HandleCancel cancels an appointment on behalf of either party.
func (h *Handlers) HandleCancel() bot.HandlerFunc { return h.serve(h.cancel) }

// HandleBook books an open slot.
func (h *Handlers) HandleBook() bot.HandlerFunc { return h.serve(h.book) }

// HandleRequest files a direct request for a custom time.
func (h *Handlers) HandleRequest() bot.HandlerFunc { return h.serve(h.request) }

// HandleAddSlot declares a slot.
func (h *Handlers) HandleAddSlot() bot.HandlerFunc { return h.serve(h.addSlot) }

// HandleEditSlot changes an unbooked slot.
func (h *Handlers) HandleEditSlot() bot.HandlerFunc { return h.serve(h.editSlot) }

// HandleDeleteSlot deletes an unbooked slot.
func (h *Handlers) HandleDeleteSlot() bot.HandlerFunc { return h.serve(h.deleteSlot) }

// HandleAccept accepts a pending request.
func (h *Handlers) HandleAccept() bot.HandlerFunc { return h.serve(h.accept) }

// HandleReject rejects a pending request.
func (h *Handlers) HandleReject() bot.HandlerFunc { return h.serve(h.reject) }

// HandleComplete marks an accepted appointment as held.
func (h *Handlers) HandleComplete() bot.HandlerFunc { return h.serve(h.complete) }

func (h *Handlers) start(ctx context.Context, chatID int64, _ []string) string {
	actor, reply := h.actor(ctx, chatID)
	if reply != "" {
		return "👋 Welcome to Office Hours!\n\n" + reply
	}
	return fmt.Sprintf("👋 Welcome back! You are signed in as %s #%d.\n\n%s", actor.Role, actor.ID, helpText)
}

func (h *Handlers) help(context.Context, int64, []string) string {
	return helpText
}

func (h *Handlers) listAppointments(ctx context.Context, chatID int64, args []string) string {
	actor, reply := h.actor(ctx, chatID)
	if reply != "" {
		return reply
	}

	filter := service.StatusAll
	if len(args) > 0 {
		filter = service.StatusFilter(strings.ToLower(args[0]))
	}

	var (
		list []*model.Appointment
		err  error
	)
	switch actor.Role {
	case model.RoleStudent:
		list, err = h.appointments.ListByStudent(ctx, actor.ID, filter)
	case model.RoleFaculty:
		list, err = h.appointments.ListByFaculty(ctx, actor.ID, filter)
	}
	if err != nil {
		return h.errorText(err, chatID)
	}

	if len(list) == 0 {
		return "📭 No appointments."
	}
	lines := make([]string, 0, len(list)+1)
	lines = append(lines, "📅 Appointments:")
	for _, a := range list {
		lines = append(lines, formatAppointment(a))
	}
	return strings.Join(lines, "\n\n")
}

func (h *Handlers) listSlots(ctx context.Context, chatID int64, args []string) string {
	actor, reply := h.actor(ctx, chatID)
	if reply != "" {
		return reply
	}

	var (
		list []*model.AvailabilitySlot
		err  error
	)
	if facultyID, ok := parseID(args); ok {
		list, err = h.slots.ListOpenSlots(ctx, facultyID)
	} else if actor.Role == model.RoleFaculty {
		list, err = h.slots.ListFacultySlots(ctx, actor.ID)
	} else {
		return "Usage: /slots <faculty id>"
	}
	if err != nil {
		return h.errorText(err, chatID)
	}

	if len(list) == 0 {
		return "📭 No slots."
	}
	lines := make([]string, 0, len(list)+1)
	lines = append(lines, "🗓 Slots:")
	for _, s := range list {
		lines = append(lines, formatSlot(s))
	}
	return strings.Join(lines, "\n")
}

func (h *Handlers) cancel(ctx context.Context, chatID int64, args []string) string {
	actor, reply := h.actor(ctx, chatID)
	if reply != "" {
		return reply
	}
	apptID, ok := parseID(args)
	if !ok {
		return "Usage: /cancel <id> [reason]"
	}

	appt, err := h.lifecycle.Cancel(ctx, actor, apptID, reasonOf(args))
	if err != nil {
		return h.errorText(err, chatID)
	}
	return fmt.Sprintf("✅ Appointment #%d is now %s.", appt.ID, appt.Status)
}
