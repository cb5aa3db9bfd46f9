package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/Freeeeeet/office_hours/internal/model"
)

// emit hands a committed event to the sink. The transition already happened,
// so a failing sink is only logged.
func emit(ctx context.Context, sink EventSink, logger *zap.Logger, event model.AppointmentEvent) {
	if sink == nil {
		return
	}
	if err := sink.Emit(ctx, event); err != nil {
		logger.Error("Failed to emit appointment event",
			zap.String("event_id", event.ID.String()),
			zap.String("event_type", string(event.Type)),
			zap.Int64("appointment_id", event.Appointment.ID),
			zap.Error(err),
		)
	}
}
