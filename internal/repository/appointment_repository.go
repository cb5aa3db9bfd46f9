package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/office_hours/internal/apperr"
	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/repository/base"
)

// StudentStartConstraint is the partial unique index guarding a student's active start times.
const StudentStartConstraint = "appointments_student_start_uniq"

const appointmentColumns = `
	id, student_id, faculty_id, availability_id, date, start_time, end_time, duration,
	purpose, purpose_category, custom_purpose_text, status, cancelled_by, cancel_reason,
	is_direct_request, created_at, updated_at
`

// AppointmentRepository stores appointments.
type AppointmentRepository struct {
	*base.Repository
}

// NewAppointmentRepository binds the repository to a pool or a transaction.
func NewAppointmentRepository(db base.DBTX) *AppointmentRepository {
	return &AppointmentRepository{Repository: base.NewRepository(db)}
}

func scanAppointment(row interface{ Scan(...any) error }) (*model.Appointment, error) {
	var a model.Appointment
	err := row.Scan(
		&a.ID,
		&a.StudentID,
		&a.FacultyID,
		&a.AvailabilityID,
		&a.Date,
		&a.StartTime,
		&a.EndTime,
		&a.Duration,
		&a.Purpose,
		&a.PurposeCategory,
		&a.CustomPurposeText,
		&a.Status,
		&a.CancelledBy,
		&a.CancelReason,
		&a.IsDirectRequest,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts the appointment
func (r *AppointmentRepository) Create(ctx context.Context, a *model.Appointment) error {
	query := `
		INSERT INTO appointments (
			student_id, faculty_id, availability_id, date, start_time, end_time, duration,
			purpose, purpose_category, custom_purpose_text, status, is_direct_request
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		a.StudentID,
		a.FacultyID,
		a.AvailabilityID,
		a.Date,
		a.StartTime,
		a.EndTime,
		a.Duration,
		a.Purpose,
		a.PurposeCategory,
		a.CustomPurposeText,
		a.Status,
		a.IsDirectRequest,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)

	if err != nil {
		if base.IsUniqueViolation(err, StudentStartConstraint) {
			return fmt.Errorf("create appointment: %w", apperr.ErrDoubleBooking)
		}
		return fmt.Errorf("create appointment: %w", err)
	}

	return nil
}

// GetByID returns nil, nil when the appointment does not exist
func (r *AppointmentRepository) GetByID(ctx context.Context, id int64) (*model.Appointment, error) {
	return r.get(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
}

// GetForUpdate locks the appointment row for a status transition.
func (r *AppointmentRepository) GetForUpdate(ctx context.Context, id int64) (*model.Appointment, error) {
	return r.get(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id)
}

func (r *AppointmentRepository) get(ctx context.Context, query string, id int64) (*model.Appointment, error) {
	a, err := scanAppointment(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get appointment by id: %w", err)
	}
	return a, nil
}

// ListActiveByStudentDate returns the student's pending and accepted appointments on date.
func (r *AppointmentRepository) ListActiveByStudentDate(ctx context.Context, studentID int64, date time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE student_id = $1
		  AND date = $2
		  AND status IN ('pending', 'accepted')
		ORDER BY start_time
	`
	return r.list(ctx, query, studentID, date)
}

// ListByStudent filters by status unless status is nil.
func (r *AppointmentRepository) ListByStudent(ctx context.Context, studentID int64, status *model.AppointmentStatus) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE student_id = $1
		  AND ($2::VARCHAR IS NULL OR status = $2)
		ORDER BY date, start_time
	`
	return r.list(ctx, query, studentID, status)
}

// ListByFaculty filters by status unless status is nil.
func (r *AppointmentRepository) ListByFaculty(ctx context.Context, facultyID int64, status *model.AppointmentStatus) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE faculty_id = $1
		  AND ($2::VARCHAR IS NULL OR status = $2)
		ORDER BY date, start_time
	`
	return r.list(ctx, query, facultyID, status)
}

func (r *AppointmentRepository) list(ctx context.Context, query string, args ...any) ([]*model.Appointment, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var list []*model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		list = append(list, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}

	return list, nil
}

// UpdateStatus persists status, cancelled_by and cancel_reason.
func (r *AppointmentRepository) UpdateStatus(ctx context.Context, a *model.Appointment) error {
	query := `
		UPDATE appointments
		SET status = $2, cancelled_by = $3, cancel_reason = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.QueryRow(ctx, query, a.ID, a.Status, a.CancelledBy, a.CancelReason).Scan(&a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}

	return nil
}
