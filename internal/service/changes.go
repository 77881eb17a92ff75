package service

import (
	"context"
	"time"

	"kovorka/internal/domain"
	"kovorka/internal/events"
	"kovorka/internal/models"

	"github.com/rs/zerolog"
)

// changeRecorder journals booking mutations and queues them for external
// sync. Failures are logged, never propagated; the mutation itself already
// committed on the authority.
type changeRecorder struct {
	journal domain.Journal
	worker  domain.SyncWorker
	logger  *zerolog.Logger
}

func (r changeRecorder) record(ctx context.Context, b *models.Booking, changeType string, oldStart, oldEnd *time.Time) {
	entry := &models.ChangeEntry{
		BookingID:  b.ID,
		ChangeType: changeType,
		OldStart:   oldStart,
		OldEnd:     oldEnd,
		NewStart:   &b.StartDatetime,
		NewEnd:     &b.EndDatetime,
		CreatedAt:  time.Now(),
	}
	if r.journal != nil {
		if err := r.journal.RecordChange(ctx, entry); err != nil {
			r.logger.Error().Err(err).Int64("booking_id", b.ID).Msg("failed to journal change")
		}
	}
	if r.worker != nil {
		if err := r.worker.EnqueueChange(ctx, entry); err != nil {
			r.logger.Error().Err(err).Int64("booking_id", b.ID).Msg("failed to enqueue change sync")
		}
	}
}

func publishBookingEvent(bus domain.EventPublisher, logger *zerolog.Logger, eventType string, b *models.Booking, detail string) {
	if bus == nil {
		return
	}
	payload := events.BookingEventPayload{
		BookingID:   b.ID,
		UserID:      b.UserID,
		BookingType: b.BookingType,
		Status:      b.Status,
		Start:       b.StartDatetime,
		End:         b.EndDatetime,
		Detail:      detail,
	}
	if b.Resource != nil {
		payload.ResourceID = b.Resource.ID
		payload.ResourceName = b.Resource.Name
	}
	if err := bus.PublishJSON(eventType, payload); err != nil {
		logger.Error().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}
