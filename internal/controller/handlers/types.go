package handlers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/service"
	"github.com/Freeeeeet/office_hours/internal/timeslot"
)

// Directory resolves the account behind a chat.
type Directory interface {
	ResolveTelegramActor(ctx context.Context, chatID int64) (service.Actor, error)
}

// Appointments books and lists appointments.
type Appointments interface {
	Book(ctx context.Context, studentID, facultyID int64, req service.BookingRequest) (*model.Appointment, error)
	RequestDirect(ctx context.Context, studentID, facultyID int64, req service.DirectRequest) (*model.Appointment, error)
	ListByStudent(ctx context.Context, studentID int64, filter service.StatusFilter) ([]*model.Appointment, error)
	ListByFaculty(ctx context.Context, facultyID int64, filter service.StatusFilter) ([]*model.Appointment, error)
}

// Slots manages faculty availability.
type Slots interface {
	DeclareSlot(ctx context.Context, facultyID int64, date time.Time, start, end timeslot.TimeOfDay) (*model.AvailabilitySlot, error)
	UpdateSlot(ctx context.Context, facultyID, slotID int64, upd service.SlotUpdate) (*model.AvailabilitySlot, error)
	DeleteSlot(ctx context.Context, facultyID, slotID int64) error
	ListFacultySlots(ctx context.Context, facultyID int64) ([]*model.AvailabilitySlot, error)
	ListOpenSlots(ctx context.Context, facultyID int64) ([]*model.AvailabilitySlot, error)
}

// Lifecycle moves appointments between statuses.
type Lifecycle interface {
	SetStatus(ctx context.Context, facultyID, appointmentID int64, status model.AppointmentStatus, reason string) (*model.Appointment, error)
	Cancel(ctx context.Context, actor service.Actor, appointmentID int64, reason string) (*model.Appointment, error)
	Complete(ctx context.Context, facultyID, appointmentID int64) (*model.Appointment, error)
}

// Handlers holds the dependencies of the bot commands.
type Handlers struct {
	directory    Directory
	appointments Appointments
	slots        Slots
	lifecycle    Lifecycle
	logger       *zap.Logger
}

// NewHandlers creates the bot command handlers.
func NewHandlers(
	directory Directory,
	appointments Appointments,
	slots Slots,
	lifecycle Lifecycle,
	logger *zap.Logger,
) *Handlers {
	return &Handlers{
		directory:    directory,
		appointments: appointments,
		slots:        slots,
		lifecycle:    lifecycle,
		logger:       logger,
	}
}
