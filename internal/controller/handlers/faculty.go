package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/service"
	"github.com/Freeeeeet/office_hours/internal/timeslot"
)

const (
	addSlotUsage  = "Usage: /addslot <YYYY-MM-DD> <HH:MM> <HH:MM>"
	editSlotUsage = "Usage: /editslot <id> [date=YYYY-MM-DD] [start=HH:MM] [end=HH:MM] [active=on|off]"
)

// addSlot: /addslot <YYYY-MM-DD> <HH:MM> <HH:MM>
func (h *Handlers) addSlot(ctx context.Context, chatID int64, args []string) string {
	actor, reply := h.requireRole(ctx, chatID, model.RoleFaculty)
	if reply != "" {
		return reply
	}
	if len(args) != 3 {
		return addSlotUsage
	}

	date, err := timeslot.ParseDate(args[0])
	if err != nil {
		return addSlotUsage
	}
	start, err := timeslot.ParseTimeOfDay(args[1])
	if err != nil {
		return h.errorText(err, chatID)
	}
	end, err := timeslot.ParseTimeOfDay(args[2])
	if err != nil {
		return h.errorText(err, chatID)
	}

	slot, err := h.slots.DeclareSlot(ctx, actor.ID, date, start, end)
	if err != nil {
		return h.errorText(err, chatID)
	}
	return "✅ Slot declared: " + formatSlot(slot)
}

// parseSlotUpdate reads key=value pairs; ok is false on an unknown key, a bad date or a bad flag.
func parseSlotUpdate(pairs []string) (upd service.SlotUpdate, ok bool, err error) {
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found {
			return upd, false, nil
		}
		switch strings.ToLower(key) {
		case "date":
			d, err := timeslot.ParseDate(value)
			if err != nil {
				return upd, false, nil
			}
			upd.Date = &d
		case "start":
			t, err := timeslot.ParseTimeOfDay(value)
			if err != nil {
				return upd, false, err
			}
			upd.StartTime = &t
		case "end":
			t, err := timeslot.ParseTimeOfDay(value)
			if err != nil {
				return upd, false, err
			}
			upd.EndTime = &t
		case "active":
			var active bool
			switch strings.ToLower(value) {
			case "on", "yes", "true":
				active = true
			case "off", "no", "false":
				active = false
			default:
				return upd, false, nil
			}
			upd.IsActive = &active
		default:
			return upd, false, nil
		}
	}
	return upd, len(pairs) > 0, nil
}

// editSlot: /editslot <id> key=value...
func (h *Handlers) editSlot(ctx context.Context, chatID int64, args []string) string {
	actor, reply := h.requireRole(ctx, chatID, model.RoleFaculty)
	if reply != "" {
		return reply
	}
	slotID, ok := parseID(args)
	if !ok {
		return editSlotUsage
	}

	upd, ok, err := parseSlotUpdate(args[1:])
	if err != nil {
		return h.errorText(err, chatID)
	}
	if !ok {
		return editSlotUsage
	}

	slot, err := h.slots.UpdateSlot(ctx, actor.ID, slotID, upd)
	if err != nil {
		return h.errorText(err, chatID)
	}
	return "✅ Slot updated: " + formatSlot(slot)
}

// deleteSlot: /delslot <id>
func (h *Handlers) deleteSlot(ctx context.Context, chatID int64, args []string) string {
	actor, reply := h.requireRole(ctx, chatID, model.RoleFaculty)
	if reply != "" {
		return reply
	}
	slotID, ok := parseID(args)
	if !ok {
		return "Usage: /delslot <id>"
	}

	if err := h.slots.DeleteSlot(ctx, actor.ID, slotID); err != nil {
		return h.errorText(err, chatID)
	}
	return fmt.Sprintf("✅ Slot #%d deleted.", slotID)
}

// transition runs a faculty-only status change on the appointment named by args[0].
func (h *Handlers) transition(
	ctx context.Context,
	chatID int64,
	args []string,
	usage string,
	run func(facultyID, apptID int64) (*model.Appointment, error),
) string {
	actor, reply := h.requireRole(ctx, chatID, model.RoleFaculty)
	if reply != "" {
		return reply
	}
	apptID, ok := parseID(args)
	if !ok {
		return "Usage: " + usage
	}

	appt, err := run(actor.ID, apptID)
	if err != nil {
		return h.errorText(err, chatID)
	}
	return fmt.Sprintf("✅ Appointment #%d is now %s.", appt.ID, appt.Status)
}

func (h *Handlers) accept(ctx context.Context, chatID int64, args []string) string {
	return h.transition(ctx, chatID, args, "/accept <id>", func(facultyID, apptID int64) (*model.Appointment, error) {
		return h.lifecycle.SetStatus(ctx, facultyID, apptID, model.AppointmentStatusAccepted, "")
	})
}

func (h *Handlers) reject(ctx context.Context, chatID int64, args []string) string {
	return h.transition(ctx, chatID, args, "/reject <id> [reason]", func(facultyID, apptID int64) (*model.Appointment, error) {
		return h.lifecycle.SetStatus(ctx, facultyID, apptID, model.AppointmentStatusRejected, reasonOf(args))
	})
}

func (h *Handlers) complete(ctx context.Context, chatID int64, args []string) string {
	return h.transition(ctx, chatID, args, "/complete <id>", func(facultyID, apptID int64) (*model.Appointment, error) {
		return h.lifecycle.Complete(ctx, facultyID, apptID)
	})
}
