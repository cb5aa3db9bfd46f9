package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/Freeeeeet/office_hours/internal/apperr"
	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/timeslot"
)

// BookingRequest is either slot mode (AvailabilityID set) or direct mode (Direct with
// Date, StartTime and Duration).
type BookingRequest struct {
	Direct            bool
	AvailabilityID    *int64
	Date              time.Time // optional in slot mode, must then match the slot's date
	StartTime         *timeslot.TimeOfDay
	Duration          *int
	Purpose           string
	PurposeCategory   model.PurposeCategory
	CustomPurposeText string
}

// DirectRequest asks for a free-form time outside the declared slots.
type DirectRequest struct {
	Date              time.Time
	StartTime         *timeslot.TimeOfDay
	Duration          *int
	PurposeCategory   model.PurposeCategory
	CustomPurposeText string
}

// StatusFilter selects appointments by status. "" and "all" match everything.
type StatusFilter string

const StatusAll StatusFilter = "all"

func (f StatusFilter) status() (*model.AppointmentStatus, error) {
	if f == "" || f == StatusAll {
		return nil, nil
	}
	st := model.AppointmentStatus(f)
	if !st.Valid() {
		return nil, fmt.Errorf("%w: got %q", apperr.ErrInvalidFilter, string(f))
	}
	return &st, nil
}

// AppointmentService books appointments on slots or as direct requests.
type AppointmentService struct {
	repos  Repositories
	tx     TxManager
	events EventSink
	clock  Clock
	logger *zap.Logger
}

// NewAppointmentService reads through repos and writes through tx. Events go to events after commit.
func NewAppointmentService(repos Repositories, tx TxManager, events EventSink, clock Clock, logger *zap.Logger) *AppointmentService {
	return &AppointmentService{
		repos:  repos,
		tx:     tx,
		events: events,
		clock:  clock,
		logger: logger,
	}
}

func validatePurpose(req BookingRequest) error {
	purpose := strings.TrimSpace(req.Purpose)
	if purpose == "" || utf8.RuneCountInString(purpose) > model.MaxPurposeLength {
		return fmt.Errorf("%w: purpose must be 1 to %d characters", apperr.ErrInvalidPurpose, model.MaxPurposeLength)
	}
	if !req.PurposeCategory.Valid() {
		return fmt.Errorf("%w: unknown category %q", apperr.ErrInvalidPurpose, string(req.PurposeCategory))
	}
	if utf8.RuneCountInString(req.CustomPurposeText) > model.MaxCustomPurposeLength {
		return fmt.Errorf("%w: custom text is longer than %d characters", apperr.ErrInvalidPurpose, model.MaxCustomPurposeLength)
	}
	return nil
}

// directWindow validates a direct request and returns its interval.
func directWindow(req BookingRequest) (timeslot.TimeOfDay, timeslot.TimeOfDay, error) {
	if req.Date.IsZero() {
		return 0, 0, fmt.Errorf("%w: date", apperr.ErrMissingField)
	}
	if req.StartTime == nil || req.Duration == nil {
		return 0, 0, fmt.Errorf("%w: start time and duration are required for direct requests", apperr.ErrMissingField)
	}
	if !timeslot.ValidDuration(*req.Duration) {
		return 0, 0, apperr.ErrInvalidDuration
	}
	start := *req.StartTime
	if !timeslot.IsWithinBusinessHours(start) {
		return 0, 0, apperr.ErrOutOfHours
	}
	end, err := timeslot.ComputeEndTime(start, *req.Duration)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// Book creates a pending appointment. In slot mode the slot is reserved in the
// same transaction as the insert, so either both happen or neither does.
func (s *AppointmentService) Book(ctx context.Context, studentID, facultyID int64, req BookingRequest) (*model.Appointment, error) {
	if err := validatePurpose(req); err != nil {
		return nil, err
	}

	var (
		appt    *model.Appointment
		student *model.Student
		faculty *model.Faculty
	)

	err := s.tx.WithinTx(ctx, func(repos Repositories) error {
		var err error

		// Holding the student row lock makes the collision check and the insert
		// one unit per student.
		student, err = repos.Directory.LockStudent(ctx, studentID)
		if err != nil {
			return fmt.Errorf("lock student: %w", err)
		}
		if student == nil {
			return apperr.ErrStudentNotFound
		}

		faculty, err = repos.Directory.GetFaculty(ctx, facultyID)
		if err != nil {
			return fmt.Errorf("get faculty: %w", err)
		}
		if faculty == nil {
			return apperr.ErrFacultyNotFound
		}

		appt = &model.Appointment{
			StudentID:         studentID,
			FacultyID:         facultyID,
			Purpose:           strings.TrimSpace(req.Purpose),
			PurposeCategory:   req.PurposeCategory,
			CustomPurposeText: req.CustomPurposeText,
			Status:            model.AppointmentStatusPending,
			IsDirectRequest:   req.Direct,
		}

		var slot *model.AvailabilitySlot
		if req.Direct {
			if !req.Date.IsZero() && !timeslot.IsWeekday(req.Date) {
				return apperr.ErrInvalidDate
			}
			start, end, err := directWindow(req)
			if err != nil {
				return err
			}
			duration := *req.Duration
			appt.Date = req.Date
			appt.StartTime = start
			appt.EndTime = end
			appt.Duration = &duration
		} else {
			if req.AvailabilityID == nil {
				return fmt.Errorf("%w: availability slot id is required for slot booking", apperr.ErrMissingField)
			}
			slot, err = repos.Availability.GetByID(ctx, *req.AvailabilityID)
			if err != nil {
				return fmt.Errorf("get slot: %w", err)
			}
			if slot == nil {
				return apperr.ErrSlotNotFound
			}
			if slot.FacultyID != facultyID {
				return apperr.ErrMismatch
			}
			if !req.Date.IsZero() && !req.Date.Equal(slot.Date) {
				return fmt.Errorf("%w: slot is on %s", apperr.ErrMismatch, timeslot.FormatDate(slot.Date))
			}
			if !timeslot.IsWeekday(slot.Date) {
				return apperr.ErrInvalidDate
			}
			if !slot.IsActive {
				return apperr.ErrInactive
			}
			if slot.IsBooked {
				return apperr.ErrAlreadyBooked
			}
			slotID := slot.ID
			appt.AvailabilityID = &slotID
			appt.Date = slot.Date
			appt.StartTime = slot.StartTime
			appt.EndTime = slot.EndTime
		}

		if err := checkStudentCollision(ctx, repos, appt); err != nil {
			return err
		}

		if err := repos.Appointments.Create(ctx, appt); err != nil {
			return err
		}

		if slot != nil {
			if err := reserve(ctx, repos, slot); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Appointment booked",
		zap.Int64("appointment_id", appt.ID),
		zap.Int64("student_id", studentID),
		zap.Int64("faculty_id", facultyID),
		zap.Bool("direct", appt.IsDirectRequest),
		zap.String("date", timeslot.FormatDate(appt.Date)),
		zap.Stringer("start", appt.StartTime),
	)

	emit(ctx, s.events, s.logger, model.NewAppointmentEvent(model.EventBooked, *appt, *student, *faculty, s.clock.Now()))

	return appt, nil
}

// checkStudentCollision fails with ErrDoubleBooking when the student already holds an
// active appointment starting at the same time or overlapping the new one.
func checkStudentCollision(ctx context.Context, repos Repositories, appt *model.Appointment) error {
	existing, err := repos.Appointments.ListActiveByStudentDate(ctx, appt.StudentID, appt.Date)
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.CollidesWith(appt.Date, appt.StartTime, appt.EndTime) {
			return fmt.Errorf("%w: %s-%s", apperr.ErrDoubleBooking, other.StartTime, other.EndTime)
		}
	}
	return nil
}

// RequestDirect books a direct request, deriving the purpose from the category
// and the optional custom text.
func (s *AppointmentService) RequestDirect(ctx context.Context, studentID, facultyID int64, req DirectRequest) (*model.Appointment, error) {
	if req.Date.IsZero() || req.StartTime == nil || req.Duration == nil || req.PurposeCategory == "" {
		return nil, fmt.Errorf("%w: date, start time, duration and category are required", apperr.ErrMissingField)
	}

	purpose := string(req.PurposeCategory)
	if text := strings.TrimSpace(req.CustomPurposeText); text != "" {
		purpose = purpose + ": " + text
	}
	if utf8.RuneCountInString(purpose) > model.MaxPurposeLength {
		return nil, fmt.Errorf("%w: purpose must be at most %d characters", apperr.ErrInvalidPurpose, model.MaxPurposeLength)
	}

	return s.Book(ctx, studentID, facultyID, BookingRequest{
		Direct:            true,
		Date:              req.Date,
		StartTime:         req.StartTime,
		Duration:          req.Duration,
		Purpose:           purpose,
		PurposeCategory:   req.PurposeCategory,
		CustomPurposeText: req.CustomPurposeText,
	})
}

// ListByStudent returns the student's appointments ordered by date and start time.
func (s *AppointmentService) ListByStudent(ctx context.Context, studentID int64, filter StatusFilter) ([]*model.Appointment, error) {
	status, err := filter.status()
	if err != nil {
		return nil, err
	}

	student, err := s.repos.Directory.GetStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	if student == nil {
		return nil, apperr.ErrStudentNotFound
	}

	return s.repos.Appointments.ListByStudent(ctx, studentID, status)
}

// ListByFaculty returns the faculty member's appointments ordered by date and start time.
func (s *AppointmentService) ListByFaculty(ctx context.Context, facultyID int64, filter StatusFilter) ([]*model.Appointment, error) {
	status, err := filter.status()
	if err != nil {
		return nil, err
	}

	faculty, err := s.repos.Directory.GetFaculty(ctx, facultyID)
	if err != nil {
		return nil, fmt.Errorf("get faculty: %w", err)
	}
	if faculty == nil {
		return nil, apperr.ErrFacultyNotFound
	}

	return s.repos.Appointments.ListByFaculty(ctx, facultyID, status)
}

// Get returns the appointment or ErrAppointmentNotFound.
func (s *AppointmentService) Get(ctx context.Context, id int64) (*model.Appointment, error) {
	appt, err := s.repos.Appointments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	if appt == nil {
		return nil, apperr.ErrAppointmentNotFound
	}
	return appt, nil
}
