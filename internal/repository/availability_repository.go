package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Freeeeeet/office_hours/internal/apperr"
	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/repository/base"
)

// FacultyStartConstraint is the partial unique index on a faculty's active start times.
const FacultyStartConstraint = "availability_faculty_start_uniq"

const slotColumns = `id, faculty_id, date, day, start_time, end_time, is_booked, is_active, created_at, updated_at`

// AvailabilityRepository stores the faculty availability ledger.
type AvailabilityRepository struct {
	*base.Repository
}

// NewAvailabilityRepository binds the repository to a pool or a transaction.
func NewAvailabilityRepository(db base.DBTX) *AvailabilityRepository {
	return &AvailabilityRepository{Repository: base.NewRepository(db)}
}

func scanSlot(row interface{ Scan(...any) error }) (*model.AvailabilitySlot, error) {
	var slot model.AvailabilitySlot
	err := row.Scan(
		&slot.ID,
		&slot.FacultyID,
		&slot.Date,
		&slot.Day,
		&slot.StartTime,
		&slot.EndTime,
		&slot.IsBooked,
		&slot.IsActive,
		&slot.CreatedAt,
		&slot.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &slot, nil
}

// Create inserts a new slot
func (r *AvailabilityRepository) Create(ctx context.Context, slot *model.AvailabilitySlot) error {
	query := `
		INSERT INTO availability_slots (faculty_id, date, day, start_time, end_time, is_booked, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.QueryRow(
		ctx, query,
		slot.FacultyID,
		slot.Date,
		slot.Day,
		slot.StartTime,
		slot.EndTime,
		slot.IsBooked,
		slot.IsActive,
	).Scan(&slot.ID, &slot.CreatedAt, &slot.UpdatedAt)

	if err != nil {
		if base.IsUniqueViolation(err, FacultyStartConstraint) {
			return fmt.Errorf("create slot: %w", apperr.ErrOverlap)
		}
		return fmt.Errorf("create slot: %w", err)
	}

	return nil
}

// GetByID returns nil, nil when the slot does not exist
func (r *AvailabilityRepository) GetByID(ctx context.Context, id int64) (*model.AvailabilitySlot, error) {
	return r.get(ctx, `SELECT `+slotColumns+` FROM availability_slots WHERE id = $1`, id)
}

// GetForUpdate is GetByID with a row lock held until the transaction ends.
func (r *AvailabilityRepository) GetForUpdate(ctx context.Context, id int64) (*model.AvailabilitySlot, error) {
	return r.get(ctx, `SELECT `+slotColumns+` FROM availability_slots WHERE id = $1 FOR UPDATE`, id)
}

func (r *AvailabilityRepository) get(ctx context.Context, query string, id int64) (*model.AvailabilitySlot, error) {
	slot, err := scanSlot(r.QueryRow(ctx, query, id))
	if err != nil {
		if base.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get slot by id: %w", err)
	}
	return slot, nil
}

// ListActiveByFacultyDate returns the faculty's active slots on date.
func (r *AvailabilityRepository) ListActiveByFacultyDate(ctx context.Context, facultyID int64, date time.Time) ([]*model.AvailabilitySlot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM availability_slots
		WHERE faculty_id = $1
		  AND date = $2
		  AND is_active
		ORDER BY start_time
	`
	return r.list(ctx, query, facultyID, date)
}

// ListByFaculty returns the faculty's slots, only open ones when openOnly is set.
func (r *AvailabilityRepository) ListByFaculty(ctx context.Context, facultyID int64, openOnly bool) ([]*model.AvailabilitySlot, error) {
	query := `
		SELECT ` + slotColumns + `
		FROM availability_slots
		WHERE faculty_id = $1
		  AND (NOT $2 OR (is_active AND NOT is_booked))
		ORDER BY date, start_time
	`
	return r.list(ctx, query, facultyID, openOnly)
}

func (r *AvailabilityRepository) list(ctx context.Context, query string, args ...any) ([]*model.AvailabilitySlot, error) {
	rows, err := r.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	defer rows.Close()

	var slots []*model.AvailabilitySlot
	for rows.Next() {
		slot, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan slot: %w", err)
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slots: %w", err)
	}

	return slots, nil
}

// Update overwrites the mutable fields of a slot
func (r *AvailabilityRepository) Update(ctx context.Context, slot *model.AvailabilitySlot) error {
	query := `
		UPDATE availability_slots
		SET date = $2, day = $3, start_time = $4, end_time = $5, is_active = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.QueryRow(ctx, query,
		slot.ID,
		slot.Date,
		slot.Day,
		slot.StartTime,
		slot.EndTime,
		slot.IsActive,
	).Scan(&slot.UpdatedAt)
	if err != nil {
		if base.IsUniqueViolation(err, FacultyStartConstraint) {
			return fmt.Errorf("update slot: %w", apperr.ErrOverlap)
		}
		return fmt.Errorf("update slot: %w", err)
	}

	return nil
}

// Delete removes the slot; appointments on it keep their copy of the time.
func (r *AvailabilityRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.ExecAffected(ctx, `DELETE FROM availability_slots WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	return nil
}

// Reserve flips is_booked only if the slot is still active and free.
// It returns false when another booking got there first.
func (r *AvailabilityRepository) Reserve(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE availability_slots
		SET is_booked = TRUE, updated_at = NOW()
		WHERE id = $1
		  AND is_active
		  AND NOT is_booked
	`

	affected, err := r.ExecAffected(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("reserve slot: %w", err)
	}

	return affected == 1, nil
}

// Release frees the slot. Missing or already free slots are not an error.
func (r *AvailabilityRepository) Release(ctx context.Context, id int64) error {
	query := `
		UPDATE availability_slots
		SET is_booked = FALSE, updated_at = NOW()
		WHERE id = $1
		  AND is_booked
	`

	if _, err := r.ExecAffected(ctx, query, id); err != nil {
		return fmt.Errorf("release slot: %w", err)
	}

	return nil
}
