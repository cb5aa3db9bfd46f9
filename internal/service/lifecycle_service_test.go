package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Freeeeeet/office_hours/internal/apperr"
	"github.com/Freeeeeet/office_hours/internal/model"
)

// bookSlot declares a Tuesday slot for facultyA and books it for studentS1.
func bookSlot(t *testing.T, env *testEnv) (*model.AvailabilitySlot, *model.Appointment) {
	t.Helper()
	slot := env.declare(t, facultyA, "2025-06-10", "10:00", "11:00")
	appt, err := env.appointments.Book(context.Background(), studentS1, facultyA, slotRequest(slot.ID))
	require.NoError(t, err)
	return slot, appt
}

// ── SetStatus ──

func TestLifecycleService_SetStatus_ScenarioD_Reject(t *testing.T) {
	env := setupTestEnv(t)
	slot, appt := bookSlot(t, env)

	got, err := env.lifecycle.SetStatus(context.Background(), facultyA, appt.ID, model.AppointmentStatusRejected, "unavailable")
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusRejected, got.Status)
	assert.Equal(t, "unavailable", got.CancelReason)
	assert.False(t, env.store.slot(slot.ID).IsBooked)
	assert.Equal(t, *got, env.store.appointment(appt.ID))

	assert.Equal(t, []model.EventType{model.EventBooked, model.EventRejected}, env.sink.types())
	ev := env.sink.events[1]
	assert.Equal(t, "unavailable", ev.Reason)
	assert.Equal(t, "s1@uni.edu", ev.Student.Email)
}

func TestLifecycleService_SetStatus_Accept(t *testing.T) {
	env := setupTestEnv(t)
	slot, appt := bookSlot(t, env)

	got, err := env.lifecycle.SetStatus(context.Background(), facultyA, appt.ID, model.AppointmentStatusAccepted, "")
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusAccepted, got.Status)
	assert.True(t, env.store.slot(slot.ID).IsBooked)
	assert.Equal(t, model.EventAccepted, env.sink.types()[1])
}

func TestLifecycleService_SetStatus_Guards(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	_, appt := bookSlot(t, env)

	_, err := env.lifecycle.SetStatus(ctx, facultyA, appt.ID, model.AppointmentStatusCompleted, "")
	assert.ErrorIs(t, err, apperr.ErrInvalidStatus)

	_, err = env.lifecycle.SetStatus(ctx, facultyA, 999, model.AppointmentStatusAccepted, "")
	assert.ErrorIs(t, err, apperr.ErrAppointmentNotFound)

	_, err = env.lifecycle.SetStatus(ctx, facultyB, appt.ID, model.AppointmentStatusAccepted, "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	_, err = env.lifecycle.SetStatus(ctx, facultyA, appt.ID, model.AppointmentStatusRejected, strings.Repeat("r", model.MaxReasonLength+1))
	assert.ErrorIs(t, err, apperr.ErrReasonTooLong)

	_, err = env.lifecycle.SetStatus(ctx, facultyA, appt.ID, model.AppointmentStatusAccepted, "")
	require.NoError(t, err)

	for _, status := range []model.AppointmentStatus{model.AppointmentStatusAccepted, model.AppointmentStatusRejected} {
		_, err = env.lifecycle.SetStatus(ctx, facultyA, appt.ID, status, "")
		assert.ErrorIs(t, err, apperr.ErrAlreadyProcessed)
		assert.ErrorIs(t, err, apperr.ErrState)
	}
	assert.Equal(t, model.AppointmentStatusAccepted, env.store.appointment(appt.ID).Status)
}

// ── Cancel ──

func TestLifecycleService_Cancel_ByStudent(t *testing.T) {
	env := setupTestEnv(t)
	slot, appt := bookSlot(t, env)

	got, err := env.lifecycle.Cancel(context.Background(), StudentActor(studentS1), appt.ID, "  exam clash  ")
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusCancelled, got.Status)
	require.NotNil(t, got.CancelledBy)
	assert.Equal(t, model.CancelledByStudent, *got.CancelledBy)
	assert.Equal(t, "exam clash", got.CancelReason)
	assert.False(t, env.store.slot(slot.ID).IsBooked)

	ev := env.sink.events[len(env.sink.events)-1]
	assert.Equal(t, model.EventCancelled, ev.Type)
	assert.Equal(t, model.CancelledByStudent, *ev.CancelledBy)
}

func TestLifecycleService_Cancel_ByFacultyAfterAccept(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	slot, appt := bookSlot(t, env)
	_, err := env.lifecycle.SetStatus(ctx, facultyA, appt.ID, model.AppointmentStatusAccepted, "")
	require.NoError(t, err)

	got, err := env.lifecycle.Cancel(ctx, FacultyActor(facultyA), appt.ID, "")
	require.NoError(t, err)

	assert.Equal(t, model.CancelledByFaculty, *got.CancelledBy)
	assert.Empty(t, got.CancelReason)
	assert.False(t, env.store.slot(slot.ID).IsBooked)
}

func TestLifecycleService_Cancel_Guards(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	_, appt := bookSlot(t, env)

	_, err := env.lifecycle.Cancel(ctx, StudentActor(studentS1), 999, "")
	assert.ErrorIs(t, err, apperr.ErrAppointmentNotFound)

	forbidden := []Actor{
		StudentActor(studentS2),
		FacultyActor(facultyB),
		// The ids are compared per role, so a faculty id equal to the student id does not match.
		FacultyActor(studentS1),
		{Role: model.RoleAdmin, ID: facultyA},
	}
	for _, actor := range forbidden {
		_, err := env.lifecycle.Cancel(ctx, actor, appt.ID, "")
		assert.ErrorIs(t, err, apperr.ErrForbidden, "%+v", actor)
	}

	_, err = env.lifecycle.Cancel(ctx, StudentActor(studentS1), appt.ID, "")
	require.NoError(t, err)

	_, err = env.lifecycle.Cancel(ctx, StudentActor(studentS1), appt.ID, "")
	assert.ErrorIs(t, err, apperr.ErrAlreadyCancelled)

	// Ownership is checked before state.
	_, err = env.lifecycle.Cancel(ctx, StudentActor(studentS2), appt.ID, "")
	assert.ErrorIs(t, err, apperr.ErrForbidden)
}

func TestLifecycleService_Cancel_TerminalStates(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()

	_, rejected := bookSlot(t, env)
	_, err := env.lifecycle.SetStatus(ctx, facultyA, rejected.ID, model.AppointmentStatusRejected, "")
	require.NoError(t, err)

	completed, err := env.appointments.Book(ctx, studentS1, facultyA, directRequest(t, "2025-06-11", "10:00", 30))
	require.NoError(t, err)
	_, err = env.lifecycle.SetStatus(ctx, facultyA, completed.ID, model.AppointmentStatusAccepted, "")
	require.NoError(t, err)
	_, err = env.lifecycle.Complete(ctx, facultyA, completed.ID)
	require.NoError(t, err)

	for _, id := range []int64{rejected.ID, completed.ID} {
		_, err := env.lifecycle.Cancel(ctx, StudentActor(studentS1), id, "")
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	}
}

// ── Complete ──

func TestLifecycleService_Complete_ReleasesSlot(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	slot, appt := bookSlot(t, env)

	_, err := env.lifecycle.Complete(ctx, facultyA, appt.ID)
	assert.ErrorIs(t, err, apperr.ErrNotAccepted)
	assert.True(t, env.store.slot(slot.ID).IsBooked)

	_, err = env.lifecycle.SetStatus(ctx, facultyA, appt.ID, model.AppointmentStatusAccepted, "")
	require.NoError(t, err)

	_, err = env.lifecycle.Complete(ctx, facultyB, appt.ID)
	assert.ErrorIs(t, err, apperr.ErrForbidden)

	got, err := env.lifecycle.Complete(ctx, facultyA, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, got.Status)
	assert.False(t, env.store.slot(slot.ID).IsBooked)
	assert.Equal(t, model.EventCompleted, env.sink.types()[2])

	_, err = env.lifecycle.Complete(ctx, facultyA, appt.ID)
	assert.ErrorIs(t, err, apperr.ErrNotAccepted)
}

func TestLifecycleService_Complete_DirectRequestHasNoSlot(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	appt, err := env.appointments.Book(ctx, studentS1, facultyA, directRequest(t, "2025-06-10", "10:00", 30))
	require.NoError(t, err)
	_, err = env.lifecycle.SetStatus(ctx, facultyA, appt.ID, model.AppointmentStatusAccepted, "")
	require.NoError(t, err)

	env.store.fail["Availability.Release"] = errors.New("must not be called")
	got, err := env.lifecycle.Complete(ctx, facultyA, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, got.Status)
}

// ── atomicity ──

func TestLifecycleService_FailedReleaseRollsBack(t *testing.T) {
	env := setupTestEnv(t)
	slot, appt := bookSlot(t, env)
	boom := errors.New("release failed")
	env.store.fail["Availability.Release"] = boom

	_, err := env.lifecycle.SetStatus(context.Background(), facultyA, appt.ID, model.AppointmentStatusRejected, "busy")
	assert.ErrorIs(t, err, boom)

	stored := env.store.appointment(appt.ID)
	assert.Equal(t, model.AppointmentStatusPending, stored.Status)
	assert.Empty(t, stored.CancelReason)
	assert.True(t, env.store.slot(slot.ID).IsBooked)
	assert.Equal(t, []model.EventType{model.EventBooked}, env.sink.types())
}

func TestLifecycleService_SinkFailureDoesNotFailTransition(t *testing.T) {
	env := setupTestEnv(t)
	_, appt := bookSlot(t, env)
	env.sink.err = errors.New("queue full")

	got, err := env.lifecycle.SetStatus(context.Background(), facultyA, appt.ID, model.AppointmentStatusAccepted, "")
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusAccepted, env.store.appointment(got.ID).Status)
}

func TestLifecycleService_RebookAfterReject(t *testing.T) {
	env := setupTestEnv(t)
	ctx := context.Background()
	slot, appt := bookSlot(t, env)
	_, err := env.lifecycle.SetStatus(ctx, facultyA, appt.ID, model.AppointmentStatusRejected, "")
	require.NoError(t, err)

	again, err := env.appointments.Book(ctx, studentS2, facultyA, slotRequest(slot.ID))
	require.NoError(t, err)
	assert.Equal(t, slot.ID, *again.AvailabilityID)
	assert.True(t, env.store.slot(slot.ID).IsBooked)
}
