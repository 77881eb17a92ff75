package service

import (
	"context"
	"fmt"
	"time"

	"kovorka/internal/domain"
	"kovorka/internal/events"
	"kovorka/internal/metrics"
	"kovorka/internal/models"

	"github.com/rs/zerolog"
)

// BookingLifecycle owns status transitions: create, cancel with cascade to
// equipment children, and resolution of conflicted bookings. Extensions live
// in ExtensionNegotiator, equipment attach/detach in BookingHierarchy.
type BookingLifecycle struct {
	authority domain.Authority
	gate      *EquipmentGate
	eventBus  domain.EventPublisher
	recorder  changeRecorder
	rules     models.WindowRules
	logger    *zerolog.Logger
}

func NewBookingLifecycle(
	authority domain.Authority,
	gate *EquipmentGate,
	eventBus domain.EventPublisher,
	journal domain.Journal,
	worker domain.SyncWorker,
	rules models.WindowRules,
	logger *zerolog.Logger,
) *BookingLifecycle {
	return &BookingLifecycle{
		authority: authority,
		gate:      gate,
		eventBus:  eventBus,
		recorder:  changeRecorder{journal: journal, worker: worker, logger: logger},
		rules:     rules,
		logger:    logger,
	}
}

// GetBooking fetches a booking and enforces ownership.
func (s *BookingLifecycle) GetBooking(ctx context.Context, sess *models.Session, id int64) (*models.Booking, error) {
	booking, err := s.authority.GetBooking(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(sess, booking); err != nil {
		return nil, err
	}
	return booking, nil
}

// Create validates the window locally, gate-checks any equipment batch, then
// commits through the authority. Equipment attaches atomically on the
// authority side; a batch that vanished between check and commit surfaces as
// a conflict, never a partial attach.
func (s *BookingLifecycle) Create(ctx context.Context, sess *models.Session, req *models.CreateBookingRequest) (*models.Booking, error) {
	if sess == nil {
		return nil, models.ErrUnauthorized
	}
	if req == nil || req.ResourceID == 0 {
		return nil, &models.ValidationError{Reason: "resource is required"}
	}
	switch req.TimeFormat {
	case models.TimeFormatHour, models.TimeFormatDay, models.TimeFormatMonth:
	default:
		return nil, &models.ValidationError{Reason: fmt.Sprintf("unknown time format %q", req.TimeFormat)}
	}
	window := models.Window{Start: req.StartDatetime, End: req.EndDatetime}
	if err := s.rules.Validate(window, req.TimeFormat); err != nil {
		return nil, err
	}
	if len(req.Equipment) > 0 {
		if err := s.gate.Require(ctx, window, req.Equipment); err != nil {
			return nil, err
		}
	}

	booking, err := s.authority.CreateBooking(ctx, req, sess.UserID)
	if err != nil {
		if models.IsConflict(err) {
			metrics.IncAvailabilityConflict()
		}
		return nil, err
	}

	s.recordChange(ctx, booking, models.ChangeCreate, nil, nil)
	s.publishEvent(events.EventBookingCreated, booking, "")
	s.logger.Info().
		Int64("booking_id", booking.ID).
		Int64("user_id", sess.UserID).
		Int("equipment_items", len(req.Equipment)).
		Msg("booking created")

	return booking, nil
}

// Cancel transitions a booking to cancelled. Allowed from active or
// conflicted; cancelling a workspace parent cascades to its active and
// conflicted equipment children.
func (s *BookingLifecycle) Cancel(ctx context.Context, sess *models.Session, id int64) (*models.Booking, error) {
	booking, err := s.GetBooking(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.StatusActive && booking.Status != models.StatusConflicted {
		return nil, &models.StateError{Status: booking.Status, Action: "cancel"}
	}

	oldStart, oldEnd := booking.StartDatetime, booking.EndDatetime
	updated, err := s.authority.CancelBooking(ctx, id)
	if err != nil {
		return nil, err
	}

	for _, child := range booking.ActiveChildren() {
		if _, err := s.authority.CancelBooking(ctx, child.ID); err != nil {
			s.logger.Error().Err(err).
				Int64("booking_id", id).
				Int64("child_id", child.ID).
				Msg("failed to cascade cancel to equipment child")
			continue
		}
		s.recordChange(ctx, child, models.ChangeCancel, &child.StartDatetime, &child.EndDatetime)
	}

	s.recordChange(ctx, updated, models.ChangeCancel, &oldStart, &oldEnd)
	s.publishEvent(events.EventBookingCancelled, updated, "")
	s.logger.Info().
		Int64("booking_id", id).
		Int("children_cancelled", len(booking.ActiveChildren())).
		Msg("booking cancelled")

	return updated, nil
}

// ChangeOptions returns the authority's replacement menu for a conflicted
// booking. Redistribution itself is computed server-side; this only surfaces
// the result.
func (s *BookingLifecycle) ChangeOptions(ctx context.Context, sess *models.Session, id int64) (*models.ChangeOptions, error) {
	booking, err := s.GetBooking(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.StatusConflicted {
		return nil, &models.StateError{Status: booking.Status, Action: "list change options for"}
	}
	return s.authority.ChangeOptions(ctx, id)
}

// ApplyChange accepts a replacement option: the booking is rebound to the
// chosen resource with its window preserved, and returns to active.
func (s *BookingLifecycle) ApplyChange(ctx context.Context, sess *models.Session, id int64, resourceID int64) (*models.Booking, error) {
	booking, err := s.GetBooking(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.StatusConflicted {
		return nil, &models.StateError{Status: booking.Status, Action: "apply a change to"}
	}
	if resourceID == 0 {
		return nil, &models.ValidationError{Reason: "replacement resource is required"}
	}

	updated, err := s.authority.ApplyChange(ctx, id, resourceID)
	if err != nil {
		if models.IsConflict(err) {
			metrics.IncAvailabilityConflict()
		}
		return nil, err
	}

	s.recordChange(ctx, updated, models.ChangeMove, &booking.StartDatetime, &booking.EndDatetime)
	s.publishEvent(events.EventBookingReassigned, updated, fmt.Sprintf("moved to resource %d", resourceID))
	s.logger.Info().
		Int64("booking_id", id).
		Int64("resource_id", resourceID).
		Msg("conflicted booking reassigned")

	return updated, nil
}

// DeclineChange cancels a conflicted booking whose owner rejects every
// replacement.
func (s *BookingLifecycle) DeclineChange(ctx context.Context, sess *models.Session, id int64) (*models.Booking, error) {
	booking, err := s.GetBooking(ctx, sess, id)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.StatusConflicted {
		return nil, &models.StateError{Status: booking.Status, Action: "decline a change for"}
	}
	return s.Cancel(ctx, sess, id)
}

func (s *BookingLifecycle) authorize(sess *models.Session, booking *models.Booking) error {
	return authorizeSession(sess, booking)
}

func (s *BookingLifecycle) recordChange(ctx context.Context, b *models.Booking, changeType string, oldStart, oldEnd *time.Time) {
	s.recorder.record(ctx, b, changeType, oldStart, oldEnd)
}

func (s *BookingLifecycle) publishEvent(eventType string, b *models.Booking, detail string) {
	publishBookingEvent(s.eventBus, s.logger, eventType, b, detail)
}
