package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Freeeeeet/office_hours/internal/apperr"
	"github.com/Freeeeeet/office_hours/internal/model"
	"github.com/Freeeeeet/office_hours/internal/timeslot"
)

// SlotUpdate carries the fields to change; nil fields are left as they are.
type SlotUpdate struct {
	Date      *time.Time
	StartTime *timeslot.TimeOfDay
	EndTime   *timeslot.TimeOfDay
	IsActive  *bool
}

func (u SlotUpdate) empty() bool {
	return u.Date == nil && u.StartTime == nil && u.EndTime == nil && u.IsActive == nil
}

// AvailabilityService is the ledger of faculty availability slots.
type AvailabilityService struct {
	repos  Repositories
	tx     TxManager
	clock  Clock
	logger *zap.Logger
}

// NewAvailabilityService reads through repos and writes through tx.
func NewAvailabilityService(repos Repositories, tx TxManager, clock Clock, logger *zap.Logger) *AvailabilityService {
	return &AvailabilityService{
		repos:  repos,
		tx:     tx,
		clock:  clock,
		logger: logger,
	}
}

// checkDate rejects dates before today and weekend dates.
func (s *AvailabilityService) checkDate(date time.Time) error {
	today, _ := s.clock.Today()
	if date.Before(today) {
		return apperr.ErrPastDate
	}
	if !timeslot.IsWeekday(date) {
		return apperr.ErrWeekend
	}
	return nil
}

// checkStartsInFuture rejects a slot for today whose start time has already passed.
func (s *AvailabilityService) checkStartsInFuture(date time.Time, start timeslot.TimeOfDay) error {
	today, now := s.clock.Today()
	if date.Equal(today) && start <= now {
		return fmt.Errorf("%w: %s has already passed today", apperr.ErrPastDate, start)
	}
	return nil
}

// checkOverlap fails when an active slot of the faculty on date other than skipID overlaps [start, end).
func checkOverlap(ctx context.Context, repos Repositories, facultyID int64, date time.Time, start, end timeslot.TimeOfDay, skipID int64) error {
	existing, err := repos.Availability.ListActiveByFacultyDate(ctx, facultyID, date)
	if err != nil {
		return err
	}
	for _, slot := range existing {
		if slot.ID == skipID {
			continue
		}
		if slot.Overlaps(date, start, end) {
			return fmt.Errorf("%w: %s-%s", apperr.ErrOverlap, slot.StartTime, slot.EndTime)
		}
	}
	return nil
}

// DeclareSlot publishes a new open slot for the faculty member.
func (s *AvailabilityService) DeclareSlot(ctx context.Context, facultyID int64, date time.Time, start, end timeslot.TimeOfDay) (*model.AvailabilitySlot, error) {
	var slot *model.AvailabilitySlot

	err := s.tx.WithinTx(ctx, func(repos Repositories) error {
		faculty, err := repos.Directory.LockFaculty(ctx, facultyID)
		if err != nil {
			return fmt.Errorf("lock faculty: %w", err)
		}
		if faculty == nil {
			return apperr.ErrFacultyNotFound
		}

		if err := s.checkDate(date); err != nil {
			return err
		}
		if err := timeslot.ValidateRange(start, end); err != nil {
			return err
		}
		if err := s.checkStartsInFuture(date, start); err != nil {
			return err
		}
		if err := checkOverlap(ctx, repos, facultyID, date, start, end, 0); err != nil {
			return err
		}

		slot = &model.AvailabilitySlot{
			FacultyID: facultyID,
			Date:      date,
			Day:       timeslot.WeekdayName(date),
			StartTime: start,
			EndTime:   end,
			IsBooked:  false,
			IsActive:  true,
		}
		return repos.Availability.Create(ctx, slot)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Availability slot declared",
		zap.Int64("slot_id", slot.ID),
		zap.Int64("faculty_id", facultyID),
		zap.String("date", timeslot.FormatDate(date)),
		zap.Stringer("start", start),
		zap.Stringer("end", end),
	)

	return slot, nil
}

// ReserveSlot marks the slot booked. Of several concurrent reservations exactly one succeeds.
func (s *AvailabilityService) ReserveSlot(ctx context.Context, slotID, facultyID int64) error {
	err := s.tx.WithinTx(ctx, func(repos Repositories) error {
		slot, err := repos.Availability.GetByID(ctx, slotID)
		if err != nil {
			return fmt.Errorf("get slot: %w", err)
		}
		if slot == nil {
			return apperr.ErrSlotNotFound
		}
		if slot.FacultyID != facultyID {
			return apperr.ErrForbidden
		}
		return reserve(ctx, repos, slot)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Availability slot reserved", zap.Int64("slot_id", slotID))
	return nil
}

// reserve checks the slot state and flips is_booked with a compare-and-set.
func reserve(ctx context.Context, repos Repositories, slot *model.AvailabilitySlot) error {
	if !slot.IsActive {
		return apperr.ErrInactive
	}
	if slot.IsBooked {
		return apperr.ErrAlreadyBooked
	}

	ok, err := repos.Availability.Reserve(ctx, slot.ID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.ErrAlreadyBooked
	}

	slot.IsBooked = true
	return nil
}

// ReleaseSlot frees the slot. Releasing a missing or free slot is a no-op.
func (s *AvailabilityService) ReleaseSlot(ctx context.Context, slotID int64) error {
	if err := s.repos.Availability.Release(ctx, slotID); err != nil {
		return err
	}

	s.logger.Debug("Availability slot released", zap.Int64("slot_id", slotID))
	return nil
}

// ownedSlot loads the slot for update and checks it belongs to the faculty member.
func ownedSlot(ctx context.Context, repos Repositories, facultyID, slotID int64) (*model.AvailabilitySlot, error) {
	slot, err := repos.Availability.GetForUpdate(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("get slot: %w", err)
	}
	if slot == nil {
		return nil, apperr.ErrSlotNotFound
	}
	if slot.FacultyID != facultyID {
		return nil, apperr.ErrForbidden
	}
	return slot, nil
}

// UpdateSlot edits an unbooked slot.
func (s *AvailabilityService) UpdateSlot(ctx context.Context, facultyID, slotID int64, upd SlotUpdate) (*model.AvailabilitySlot, error) {
	var slot *model.AvailabilitySlot

	err := s.tx.WithinTx(ctx, func(repos Repositories) error {
		faculty, err := repos.Directory.LockFaculty(ctx, facultyID)
		if err != nil {
			return fmt.Errorf("lock faculty: %w", err)
		}
		if faculty == nil {
			return apperr.ErrFacultyNotFound
		}

		slot, err = ownedSlot(ctx, repos, facultyID, slotID)
		if err != nil {
			return err
		}
		if slot.IsBooked && !upd.empty() {
			return apperr.ErrSlotLocked
		}

		if upd.Date != nil {
			if err := s.checkDate(*upd.Date); err != nil {
				return err
			}
			slot.Date = *upd.Date
			slot.Day = timeslot.WeekdayName(*upd.Date)
		}
		if upd.StartTime != nil {
			slot.StartTime = *upd.StartTime
		}
		if upd.EndTime != nil {
			slot.EndTime = *upd.EndTime
		}
		if upd.IsActive != nil {
			slot.IsActive = *upd.IsActive
		}

		if err := timeslot.ValidateRange(slot.StartTime, slot.EndTime); err != nil {
			return err
		}
		if upd.Date != nil || upd.StartTime != nil {
			if err := s.checkStartsInFuture(slot.Date, slot.StartTime); err != nil {
				return err
			}
		}
		if slot.IsActive {
			if err := checkOverlap(ctx, repos, facultyID, slot.Date, slot.StartTime, slot.EndTime, slot.ID); err != nil {
				return err
			}
		}

		return repos.Availability.Update(ctx, slot)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Availability slot updated",
		zap.Int64("slot_id", slot.ID),
		zap.Int64("faculty_id", facultyID),
		zap.Bool("active", slot.IsActive),
	)

	return slot, nil
}

// DeleteSlot removes an unbooked slot.
func (s *AvailabilityService) DeleteSlot(ctx context.Context, facultyID, slotID int64) error {
	err := s.tx.WithinTx(ctx, func(repos Repositories) error {
		slot, err := ownedSlot(ctx, repos, facultyID, slotID)
		if err != nil {
			return err
		}
		if slot.IsBooked {
			return apperr.ErrSlotLocked
		}
		return repos.Availability.Delete(ctx, slotID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("Availability slot deleted",
		zap.Int64("slot_id", slotID),
		zap.Int64("faculty_id", facultyID),
	)
	return nil
}

// ListFacultySlots returns every slot of the faculty member, ordered by date and start time.
func (s *AvailabilityService) ListFacultySlots(ctx context.Context, facultyID int64) ([]*model.AvailabilitySlot, error) {
	return s.listSlots(ctx, facultyID, false)
}

// ListOpenSlots returns the slots a student can still book.
func (s *AvailabilityService) ListOpenSlots(ctx context.Context, facultyID int64) ([]*model.AvailabilitySlot, error) {
	return s.listSlots(ctx, facultyID, true)
}

func (s *AvailabilityService) listSlots(ctx context.Context, facultyID int64, openOnly bool) ([]*model.AvailabilitySlot, error) {
	faculty, err := s.repos.Directory.GetFaculty(ctx, facultyID)
	if err != nil {
		return nil, fmt.Errorf("get faculty: %w", err)
	}
	if faculty == nil {
		return nil, apperr.ErrFacultyNotFound
	}

	return s.repos.Availability.ListByFaculty(ctx, facultyID, openOnly)
}
