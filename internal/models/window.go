package models

import (
	"fmt"
	"time"
)

// Window is a half-open [Start, End) booking interval.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Contains reports whether other lies entirely within w.
func (w Window) Contains(other Window) bool {
	return !other.Start.Before(w.Start) && !other.End.After(w.End)
}

// WindowRules are the site's operating constraints for booking windows.
// MaxExtensionDays ≤ 0 means extensions are uncapped.
type WindowRules struct {
	OpenHour         int
	CloseHour        int
	SlotMinutes      int
	MaxExtensionDays int
}

// DefaultWindowRules returns the standard 06:00-23:00, 15-minute grid.
func DefaultWindowRules() WindowRules {
	return WindowRules{
		OpenHour:         DefaultWorkdayStartHour,
		CloseHour:        DefaultWorkdayEndHour,
		SlotMinutes:      DefaultSlotMinutes,
		MaxExtensionDays: DefaultMaxExtensionDays,
	}
}

// Validate checks a window against ordering, the slot grid and operating
// hours. Month-format bookings skip the operating-hours check since they
// cover whole days.
func (r WindowRules) Validate(w Window, timeFormat string) error {
	if !w.End.After(w.Start) {
		return &ValidationError{Reason: "end must be after start"}
	}
	if r.SlotMinutes > 0 {
		if !onSlotGrid(w.Start, r.SlotMinutes) || !onSlotGrid(w.End, r.SlotMinutes) {
			return &ValidationError{
				Reason: fmt.Sprintf("times must align to a %d-minute grid", r.SlotMinutes),
			}
		}
	}
	if timeFormat == TimeFormatMonth {
		return nil
	}
	for _, t := range []time.Time{w.Start, w.End} {
		if !r.withinHours(t) {
			return &ValidationError{
				Reason: fmt.Sprintf("time %s is outside operating hours %02d:00-%02d:00",
					t.Format("15:04"), r.OpenHour, r.CloseHour),
			}
		}
	}
	return nil
}

// ValidateExtension rejects a new end further than MaxExtensionDays past the
// current one. A non-positive cap disables the check.
func (r WindowRules) ValidateExtension(currentEnd, newEnd time.Time) error {
	if r.MaxExtensionDays <= 0 {
		return nil
	}
	if newEnd.After(currentEnd.AddDate(0, 0, r.MaxExtensionDays)) {
		return &ValidationError{
			Reason: fmt.Sprintf("extension exceeds the %d-day maximum", r.MaxExtensionDays),
		}
	}
	return nil
}

func (r WindowRules) withinHours(t time.Time) bool {
	minutes := t.Hour()*60 + t.Minute()
	if minutes < r.OpenHour*60 {
		return false
	}
	return minutes <= r.CloseHour*60
}

func onSlotGrid(t time.Time, slotMinutes int) bool {
	return t.Minute()%slotMinutes == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

// RoundUpToSlot rounds t forward to the next grid boundary. A time already
// on the grid is returned unchanged.
func RoundUpToSlot(t time.Time, slotMinutes int) time.Time {
	if slotMinutes <= 0 {
		return t
	}
	trimmed := t.Truncate(time.Minute)
	rem := trimmed.Minute() % slotMinutes
	if rem == 0 && trimmed.Equal(t) {
		return t
	}
	if rem == 0 {
		return trimmed.Add(time.Duration(slotMinutes) * time.Minute)
	}
	return trimmed.Add(time.Duration(slotMinutes-rem) * time.Minute)
}
