package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/Freeeeeet/office_hours/internal/apperr"
	"github.com/Freeeeeet/office_hours/internal/model"
)

// Actor is the authenticated caller: a student or a faculty member, by profile id.
type Actor struct {
	Role model.Role
	ID   int64
}

// StudentActor and FacultyActor build the caller identity for lifecycle checks.
func StudentActor(id int64) Actor { return Actor{Role: model.RoleStudent, ID: id} }
func FacultyActor(id int64) Actor { return Actor{Role: model.RoleFaculty, ID: id} }

// LifecycleService drives appointments through their status transitions.
type LifecycleService struct {
	tx     TxManager
	events EventSink
	clock  Clock
	logger *zap.Logger
}

// NewLifecycleService runs every transition through tx and emits after commit.
func NewLifecycleService(tx TxManager, events EventSink, clock Clock, logger *zap.Logger) *LifecycleService {
	return &LifecycleService{
		tx:     tx,
		events: events,
		clock:  clock,
		logger: logger,
	}
}

func normalizeReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) > model.MaxReasonLength {
		return "", apperr.ErrReasonTooLong
	}
	return reason, nil
}

// transition is one locked status change: load, guard, mutate, persist, release.
type transition struct {
	appt    *model.Appointment
	student *model.Student
	faculty *model.Faculty
}

// apply runs guard and then moves the appointment to next within one transaction.
// The referenced slot, if any, is released unless next keeps the appointment active.
func (s *LifecycleService) apply(
	ctx context.Context,
	appointmentID int64,
	next model.AppointmentStatus,
	guard func(*model.Appointment) error,
	mutate func(*model.Appointment),
) (*transition, error) {
	var t transition

	err := s.tx.WithinTx(ctx, func(repos Repositories) error {
		appt, err := repos.Appointments.GetForUpdate(ctx, appointmentID)
		if err != nil {
			return fmt.Errorf("get appointment: %w", err)
		}
		if appt == nil {
			return apperr.ErrAppointmentNotFound
		}
		if err := guard(appt); err != nil {
			return err
		}
		if !appt.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: %s -> %s", apperr.ErrInvalidTransition, appt.Status, next)
		}

		appt.Status = next
		if mutate != nil {
			mutate(appt)
		}
		if err := repos.Appointments.UpdateStatus(ctx, appt); err != nil {
			return err
		}

		if !next.IsActive() && appt.AvailabilityID != nil {
			if err := repos.Availability.Release(ctx, *appt.AvailabilityID); err != nil {
				return err
			}
		}

		// Loaded for notifications only.
		if t.student, err = repos.Directory.GetStudent(ctx, appt.StudentID); err != nil {
			return fmt.Errorf("get student: %w", err)
		}
		if t.faculty, err = repos.Directory.GetFaculty(ctx, appt.FacultyID); err != nil {
			return fmt.Errorf("get faculty: %w", err)
		}

		t.appt = appt
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func (s *LifecycleService) emit(ctx context.Context, typ model.EventType, t *transition) {
	var (
		student model.Student
		faculty model.Faculty
	)
	if t.student != nil {
		student = *t.student
	}
	if t.faculty != nil {
		faculty = *t.faculty
	}
	emit(ctx, s.events, s.logger, model.NewAppointmentEvent(typ, *t.appt, student, faculty, s.clock.Now()))
}

// SetStatus accepts or rejects a pending appointment on behalf of its faculty member.
// Rejection frees the slot and keeps the reason.
func (s *LifecycleService) SetStatus(ctx context.Context, facultyID, appointmentID int64, status model.AppointmentStatus, reason string) (*model.Appointment, error) {
	if status != model.AppointmentStatusAccepted && status != model.AppointmentStatusRejected {
		return nil, apperr.ErrInvalidStatus
	}
	reason, err := normalizeReason(reason)
	if err != nil {
		return nil, err
	}

	t, err := s.apply(ctx, appointmentID, status,
		func(appt *model.Appointment) error {
			if appt.FacultyID != facultyID {
				return apperr.ErrForbidden
			}
			if appt.Status != model.AppointmentStatusPending {
				return fmt.Errorf("%w: appointment is already %s", apperr.ErrAlreadyProcessed, appt.Status)
			}
			return nil
		},
		func(appt *model.Appointment) {
			if status == model.AppointmentStatusRejected && reason != "" {
				appt.CancelReason = reason
			}
		},
	)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Appointment status changed",
		zap.Int64("appointment_id", appointmentID),
		zap.Int64("faculty_id", facultyID),
		zap.String("status", string(status)),
	)

	typ := model.EventAccepted
	if status == model.AppointmentStatusRejected {
		typ = model.EventRejected
	}
	s.emit(ctx, typ, t)

	return t.appt, nil
}

// Cancel calls off a pending or accepted appointment. The actor must own either side of it.
func (s *LifecycleService) Cancel(ctx context.Context, actor Actor, appointmentID int64, reason string) (*model.Appointment, error) {
	reason, err := normalizeReason(reason)
	if err != nil {
		return nil, err
	}

	var by model.CancelledBy
	t, err := s.apply(ctx, appointmentID, model.AppointmentStatusCancelled,
		func(appt *model.Appointment) error {
			switch {
			case actor.Role == model.RoleStudent && appt.StudentID == actor.ID:
				by = model.CancelledByStudent
			case actor.Role == model.RoleFaculty && appt.FacultyID == actor.ID:
				by = model.CancelledByFaculty
			default:
				return apperr.ErrForbidden
			}

			switch appt.Status {
			case model.AppointmentStatusCancelled:
				return apperr.ErrAlreadyCancelled
			case model.AppointmentStatusRejected, model.AppointmentStatusCompleted:
				return fmt.Errorf("%w: cannot cancel a %s appointment", apperr.ErrInvalidTransition, appt.Status)
			}
			return nil
		},
		func(appt *model.Appointment) {
			appt.CancelledBy = &by
			if reason != "" {
				appt.CancelReason = reason
			}
		},
	)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Appointment cancelled",
		zap.Int64("appointment_id", appointmentID),
		zap.String("cancelled_by", string(by)),
		zap.Int64("actor_id", actor.ID),
	)

	s.emit(ctx, model.EventCancelled, t)

	return t.appt, nil
}

// Complete marks an accepted appointment as held and frees its slot.
func (s *LifecycleService) Complete(ctx context.Context, facultyID, appointmentID int64) (*model.Appointment, error) {
	t, err := s.apply(ctx, appointmentID, model.AppointmentStatusCompleted,
		func(appt *model.Appointment) error {
			if appt.FacultyID != facultyID {
				return apperr.ErrForbidden
			}
			if appt.Status != model.AppointmentStatusAccepted {
				return fmt.Errorf("%w: current status is %s", apperr.ErrNotAccepted, appt.Status)
			}
			return nil
		},
		nil,
	)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Appointment completed",
		zap.Int64("appointment_id", appointmentID),
		zap.Int64("faculty_id", facultyID),
	)

	s.emit(ctx, model.EventCompleted, t)

	return t.appt, nil
}
