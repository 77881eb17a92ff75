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

// ExtensionNegotiator answers "how far can this booking be extended, and
// where". It searches four tiers: the booking's own resource, other
// resources of the same type, workspace resources of other types, and the
// single best partial extension across all of them. Every tier is always
// computed; the caller decides what to show.
type ExtensionNegotiator struct {
	authority domain.Authority
	eventBus  domain.EventPublisher
	recorder  changeRecorder
	rules     models.WindowRules
	logger    *zerolog.Logger
}

func NewExtensionNegotiator(
	authority domain.Authority,
	eventBus domain.EventPublisher,
	journal domain.Journal,
	worker domain.SyncWorker,
	rules models.WindowRules,
	logger *zerolog.Logger,
) *ExtensionNegotiator {
	return &ExtensionNegotiator{
		authority: authority,
		eventBus:  eventBus,
		recorder:  changeRecorder{journal: journal, worker: worker, logger: logger},
		rules:     rules,
		logger:    logger,
	}
}

// extendOnResource computes the latest end achievable on one resource when
// extending from base toward desiredEnd. The next reservation starting at or
// after base caps the extension; a clear calendar grants the full request.
func (n *ExtensionNegotiator) extendOnResource(
	ctx context.Context,
	resourceID int64,
	base, desiredEnd time.Time,
) (time.Time, bool, error) {
	next, found, err := n.authority.NextReservationStart(ctx, resourceID, base)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("next reservation on resource %d: %w", resourceID, err)
	}
	if !found || !next.Before(desiredEnd) {
		return desiredEnd, true, nil
	}
	if !next.After(base) {
		return base, false, nil
	}
	return next, false, nil
}

// bestOnResources walks candidate resources in the authority's order and
// keeps the first one achieving the maximum end. Broken or in-maintenance
// resources and resources that cannot extend past base at all are skipped.
func (n *ExtensionNegotiator) bestOnResources(
	ctx context.Context,
	resources []*models.Resource,
	base, desiredEnd time.Time,
) (models.RelocationOption, error) {
	var opt models.RelocationOption
	for _, res := range resources {
		if !res.IsActive() {
			continue
		}
		maxEnd, full, err := n.extendOnResource(ctx, res.ID, base, desiredEnd)
		if err != nil {
			return opt, err
		}
		if !maxEnd.After(base) {
			continue
		}
		if !opt.CanAny || maxEnd.After(opt.MaxEnd) {
			opt = models.RelocationOption{
				CanAny:       true,
				CanFull:      full,
				ResourceID:   res.ID,
				ResourceName: res.Name,
				MaxEnd:       maxEnd,
			}
		}
		if opt.CanFull {
			break
		}
	}
	if !opt.CanAny {
		opt.Reason = "no resource is free past the current end"
	}
	return opt, nil
}

// Negotiate builds the full option set for extending booking to desiredEnd.
func (n *ExtensionNegotiator) Negotiate(ctx context.Context, booking *models.Booking, desiredEnd time.Time) (*models.ExtensionOptions, error) {
	if booking == nil || booking.Resource == nil || booking.Resource.Type == nil {
		return nil, &models.ValidationError{Reason: "booking is missing resource data"}
	}
	if booking.IsTerminal() {
		return nil, &models.StateError{Status: booking.Status, Action: "extend"}
	}
	if booking.Status == models.StatusConflicted {
		return nil, &models.StateError{Status: booking.Status, Action: "extend"}
	}
	if !desiredEnd.After(booking.EndDatetime) {
		return nil, &models.ValidationError{Reason: "desired end must be after the current end"}
	}
	if err := n.rules.ValidateExtension(booking.EndDatetime, desiredEnd); err != nil {
		return nil, err
	}
	if err := n.rules.Validate(models.Window{Start: booking.EndDatetime, End: desiredEnd}, booking.TimeFormat); err != nil {
		return nil, err
	}

	base := booking.EndDatetime
	opts := &models.ExtensionOptions{
		BookingID:  booking.ID,
		DesiredEnd: desiredEnd,
		CurrentEnd: base,
	}

	maxEnd, full, err := n.extendOnResource(ctx, booking.Resource.ID, base, desiredEnd)
	if err != nil {
		return nil, err
	}
	opts.SameResource = models.SameResourceOption{CanFull: full, MaxEnd: maxEnd}
	if !full {
		opts.SameResource.Reason = fmt.Sprintf("resource is reserved from %s", maxEnd.Format(time.RFC3339))
	}

	sameType, err := n.authority.ActiveResourcesByType(ctx, booking.Resource.Type.ID)
	if err != nil {
		return nil, err
	}
	opts.SameTypeOther, err = n.bestOnResources(ctx, excludeResource(sameType, booking.Resource.ID), base, desiredEnd)
	if err != nil {
		return nil, err
	}

	otherTypes, err := n.authority.ActiveResourcesByCategory(ctx, models.CategoryWorkspace, booking.Resource.Type.ID)
	if err != nil {
		return nil, err
	}
	opts.OtherWorkspaceType, err = n.bestOnResources(ctx, otherTypes, base, desiredEnd)
	if err != nil {
		return nil, err
	}

	opts.BestPartial = bestPartial(opts, base)
	opts.PreferSameResource = opts.SameResource.CanFull

	metrics.IncNegotiation(negotiationOutcome(opts))
	n.logger.Debug().
		Int64("booking_id", booking.ID).
		Time("desired_end", desiredEnd).
		Bool("same_resource_full", opts.SameResource.CanFull).
		Bool("best_partial_exists", opts.BestPartial.Exists).
		Msg("extension negotiated")

	return opts, nil
}

// bestPartial picks the farthest max_end across the tiers; earlier tiers win
// ties so the user is never relocated without gain.
func bestPartial(opts *models.ExtensionOptions, base time.Time) models.BestPartialOption {
	best := models.BestPartialOption{}
	consider := func(source string, resourceID int64, resourceName string, maxEnd time.Time) {
		if !maxEnd.After(base) {
			return
		}
		if best.Exists && !maxEnd.After(best.MaxEnd) {
			return
		}
		best = models.BestPartialOption{
			Exists:       true,
			Source:       source,
			ResourceID:   resourceID,
			ResourceName: resourceName,
			MaxEnd:       maxEnd,
		}
	}
	consider(models.SourceSameResource, 0, "", opts.SameResource.MaxEnd)
	if opts.SameTypeOther.CanAny {
		consider(models.SourceSameTypeOther, opts.SameTypeOther.ResourceID, opts.SameTypeOther.ResourceName, opts.SameTypeOther.MaxEnd)
	}
	if opts.OtherWorkspaceType.CanAny {
		consider(models.SourceOtherWorkspaceType, opts.OtherWorkspaceType.ResourceID, opts.OtherWorkspaceType.ResourceName, opts.OtherWorkspaceType.MaxEnd)
	}
	return best
}

func negotiationOutcome(opts *models.ExtensionOptions) string {
	switch {
	case opts.SameResource.CanFull:
		return models.SourceSameResource
	case opts.SameTypeOther.CanFull:
		return models.SourceSameTypeOther
	case opts.OtherWorkspaceType.CanFull:
		return models.SourceOtherWorkspaceType
	case opts.BestPartial.Exists:
		return "partial"
	default:
		return "none"
	}
}

func excludeResource(resources []*models.Resource, id int64) []*models.Resource {
	out := make([]*models.Resource, 0, len(resources))
	for _, r := range resources {
		if r.ID != id {
			out = append(out, r)
		}
	}
	return out
}

// ConfirmExtend commits an extension through the authority. Confirming the
// end the booking already has is a no-op success, which makes retries safe.
// A window that is no longer free surfaces as a conflict; the caller must
// re-run Negotiate.
func (n *ExtensionNegotiator) ConfirmExtend(ctx context.Context, bookingID int64, newEnd time.Time) (*models.Booking, error) {
	booking, err := n.authority.GetBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.IsTerminal() || booking.Status == models.StatusConflicted {
		return nil, &models.StateError{Status: booking.Status, Action: "extend"}
	}
	if newEnd.Equal(booking.EndDatetime) {
		return booking, nil
	}
	if newEnd.Before(booking.EndDatetime) {
		return nil, &models.ValidationError{Reason: "extension never moves the end backward"}
	}
	if err := n.rules.ValidateExtension(booking.EndDatetime, newEnd); err != nil {
		return nil, err
	}
	if err := n.rules.Validate(models.Window{Start: booking.EndDatetime, End: newEnd}, booking.TimeFormat); err != nil {
		return nil, err
	}

	oldEnd := booking.EndDatetime
	updated, err := n.authority.ConfirmExtend(ctx, bookingID, newEnd)
	if err != nil {
		if models.IsConflict(err) {
			metrics.IncAvailabilityConflict()
		}
		return nil, err
	}

	n.recorder.record(ctx, updated, models.ChangeExtend, &booking.StartDatetime, &oldEnd)
	publishBookingEvent(n.eventBus, n.logger, events.EventBookingExtended, updated, "")

	n.logger.Info().
		Int64("booking_id", bookingID).
		Time("old_end", oldEnd).
		Time("new_end", newEnd).
		Msg("booking extended")

	return updated, nil
}

