package service

import (
	"context"
	"fmt"

	"kovorka/internal/domain"
	"kovorka/internal/events"
	"kovorka/internal/metrics"
	"kovorka/internal/models"
	"kovorka/internal/pricing"

	"github.com/rs/zerolog"
)

// BookingHierarchy manages the workspace parent and its equipment children:
// attaching equipment under the parent's window, detaching it, and totalling
// cost across the tree. Children never outlive or outspan the parent, and a
// parent extension deliberately leaves children at their own windows.
type BookingHierarchy struct {
	authority domain.Authority
	gate      *EquipmentGate
	eventBus  domain.EventPublisher
	recorder  changeRecorder
	logger    *zerolog.Logger
}

func NewBookingHierarchy(
	authority domain.Authority,
	gate *EquipmentGate,
	eventBus domain.EventPublisher,
	journal domain.Journal,
	worker domain.SyncWorker,
	logger *zerolog.Logger,
) *BookingHierarchy {
	return &BookingHierarchy{
		authority: authority,
		gate:      gate,
		eventBus:  eventBus,
		recorder:  changeRecorder{journal: journal, worker: worker, logger: logger},
		logger:    logger,
	}
}

// AttachEquipment gate-checks the batch over the parent's current window and
// commits it. The authority re-validates on commit; units that vanished in
// between come back as a conflict with nothing attached.
func (s *BookingHierarchy) AttachEquipment(ctx context.Context, sess *models.Session, parentID int64, items []models.EquipmentItem) ([]*models.Booking, error) {
	parent, err := s.authority.GetBooking(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if err := authorizeSession(sess, parent); err != nil {
		return nil, err
	}
	if !parent.IsWorkspace() {
		return nil, &models.ValidationError{Reason: "equipment attaches to workspace bookings only"}
	}
	if parent.IsTerminal() || parent.Status == models.StatusConflicted {
		return nil, &models.StateError{Status: parent.Status, Action: "add equipment to"}
	}

	if err := s.gate.Require(ctx, parent.Window(), items); err != nil {
		return nil, err
	}

	children, err := s.authority.AddEquipment(ctx, parentID, items)
	if err != nil {
		if models.IsConflict(err) {
			metrics.IncAvailabilityConflict()
		}
		return nil, err
	}

	for _, child := range children {
		s.recorder.record(ctx, child, models.ChangeAttach, nil, nil)
		publishBookingEvent(s.eventBus, s.logger, events.EventEquipmentAttached, child,
			fmt.Sprintf("attached to booking %d", parentID))
	}
	s.logger.Info().
		Int64("booking_id", parentID).
		Int("children", len(children)).
		Msg("equipment attached")

	return children, nil
}

// DetachEquipment cancels one equipment child. The parent is untouched.
func (s *BookingHierarchy) DetachEquipment(ctx context.Context, sess *models.Session, parentID, childID int64) (*models.Booking, error) {
	parent, err := s.authority.GetBooking(ctx, parentID)
	if err != nil {
		return nil, err
	}
	if err := authorizeSession(sess, parent); err != nil {
		return nil, err
	}
	child := parent.ChildByID(childID)
	if child == nil {
		return nil, fmt.Errorf("child booking %d: %w", childID, models.ErrNotFound)
	}
	if child.IsTerminal() {
		return nil, &models.StateError{Status: child.Status, Action: "detach"}
	}

	updated, err := s.authority.CancelBooking(ctx, childID)
	if err != nil {
		return nil, err
	}

	s.recorder.record(ctx, updated, models.ChangeDetach, &child.StartDatetime, &child.EndDatetime)
	publishBookingEvent(s.eventBus, s.logger, events.EventEquipmentDetached, updated,
		fmt.Sprintf("detached from booking %d", parentID))
	s.logger.Info().
		Int64("booking_id", parentID).
		Int64("child_id", childID).
		Msg("equipment detached")

	return updated, nil
}

// CostSummary prices the parent plus its active and conflicted children,
// quoting each line so a missing rate is visible to the caller.
func (s *BookingHierarchy) CostSummary(ctx context.Context, sess *models.Session, bookingID int64) (pricing.CostSummary, error) {
	booking, err := s.authority.GetBooking(ctx, bookingID)
	if err != nil {
		return pricing.CostSummary{}, err
	}
	if err := authorizeSession(sess, booking); err != nil {
		return pricing.CostSummary{}, err
	}
	return pricing.Summarize(booking), nil
}

func authorizeSession(sess *models.Session, booking *models.Booking) error {
	if sess == nil {
		return models.ErrUnauthorized
	}
	if sess.IsAdmin || booking.UserID == sess.UserID {
		return nil
	}
	return models.ErrForbidden
}
