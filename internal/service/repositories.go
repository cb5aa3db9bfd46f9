package service

import (
	"context"
	"time"

	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/timeslot"
)

// Repository getters return nil, nil for missing rows.

// DirectoryRepository looks up accounts and profiles and links telegram chats.
type DirectoryRepository interface {
	GetStudent(ctx context.Context, id int64) (*model.Student, error)
	LockStudent(ctx context.Context, id int64) (*model.Student, error)
	GetStudentByUserID(ctx context.Context, userID int64) (*model.Student, error)
	GetFaculty(ctx context.Context, id int64) (*model.Faculty, error)
	LockFaculty(ctx context.Context, id int64) (*model.Faculty, error)
	GetFacultyByUserID(ctx context.Context, userID int64) (*model.Faculty, error)
	ListFaculty(ctx context.Context, departmentID *int64) ([]*model.Faculty, error)
	ListDepartments(ctx context.Context) ([]*model.Department, error)
	GetUserByTelegramChatID(ctx context.Context, chatID int64) (*model.User, error)
	SetTelegramChatID(ctx context.Context, userID, chatID int64) (bool, error)
}

// AvailabilityRepository is the slot ledger. Reserve is a compare-and-set.
type AvailabilityRepository interface {
	Create(ctx context.Context, slot *model.AvailabilitySlot) error
	GetByID(ctx context.Context, id int64) (*model.AvailabilitySlot, error)
	GetForUpdate(ctx context.Context, id int64) (*model.AvailabilitySlot, error)
	ListActiveByFacultyDate(ctx context.Context, facultyID int64, date time.Time) ([]*model.AvailabilitySlot, error)
	ListByFaculty(ctx context.Context, facultyID int64, openOnly bool) ([]*model.AvailabilitySlot, error)
	Update(ctx context.Context, slot *model.AvailabilitySlot) error
	Delete(ctx context.Context, id int64) error
	Reserve(ctx context.Context, id int64) (bool, error)
	Release(ctx context.Context, id int64) error
}

// AppointmentRepository stores appointments.
type AppointmentRepository interface {
	Create(ctx context.Context, a *model.Appointment) error
	GetByID(ctx context.Context, id int64) (*model.Appointment, error)
	GetForUpdate(ctx context.Context, id int64) (*model.Appointment, error)
	ListActiveByStudentDate(ctx context.Context, studentID int64, date time.Time) ([]*model.Appointment, error)
	ListByStudent(ctx context.Context, studentID int64, status *model.AppointmentStatus) ([]*model.Appointment, error)
	ListByFaculty(ctx context.Context, facultyID int64, status *model.AppointmentStatus) ([]*model.Appointment, error)
	UpdateStatus(ctx context.Context, a *model.Appointment) error
}

// Repositories is one set of repositories bound to the same connection or transaction.
type Repositories struct {
	Directory    DirectoryRepository
	Availability AvailabilityRepository
	Appointments AppointmentRepository
}

// TxManager runs fn inside a transaction: committed when fn returns nil, rolled back otherwise.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(Repositories) error) error
}

// EventSink receives committed appointment events.
type EventSink interface {
	Emit(ctx context.Context, event model.AppointmentEvent) error
}

// Clock abstracts time for the validators.
type Clock struct {
	Location *time.Location
	Now      func() time.Time
}

// SystemClock reads the wall clock in loc.
func SystemClock(loc *time.Location) Clock {
	return Clock{Location: loc, Now: time.Now}
}

// Today returns the current civil date and wall-clock time in the clock's location.
func (c Clock) Today() (time.Time, timeslot.TimeOfDay) {
	now := c.Now().In(c.Location)
	return timeslot.DateOf(now, nil), timeslot.At(now)
}
