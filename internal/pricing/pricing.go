// Package pricing computes booking costs from the resource type's tiered
// rates. It is pure: no state, no network.
package pricing

import (
	"kovorka/internal/models"
)

// DaysPerMonth is the billing approximation for month-format bookings.
// Deliberately not calendar-accurate; changing it changes billed amounts.
const DaysPerMonth = 30

// RateTable holds the per-format rates of one resource type. A nil rate
// means the type is not offered in that billing mode.
type RateTable struct {
	Hourly  *float64
	Daily   *float64
	Monthly *float64
}

// RatesFor extracts the rate table from a booking's resource type. Returns
// an empty table when the chain is incomplete.
func RatesFor(b *models.Booking) RateTable {
	if b == nil || b.Resource == nil || b.Resource.Type == nil {
		return RateTable{}
	}
	t := b.Resource.Type
	return RateTable{Hourly: t.HourlyRate, Daily: t.DailyRate, Monthly: t.MonthlyRate}
}

// Price computes the cost of one booking. The billing rule is selected by
// time_format alone. Durations are fractional, never rounded up. A missing
// rate or an inverted window prices to 0; there is no fallback to another
// rate tier here.
func Price(b *models.Booking, rates RateTable) float64 {
	if b == nil || !b.EndDatetime.After(b.StartDatetime) {
		return 0
	}
	elapsed := b.Window().Duration()
	switch b.TimeFormat {
	case models.TimeFormatHour:
		if rates.Hourly == nil {
			return 0
		}
		return *rates.Hourly * elapsed.Hours()
	case models.TimeFormatDay:
		if rates.Daily == nil {
			return 0
		}
		return *rates.Daily * (elapsed.Hours() / 24)
	case models.TimeFormatMonth:
		if rates.Monthly == nil {
			return 0
		}
		days := elapsed.Hours() / 24
		return *rates.Monthly * (days / DaysPerMonth)
	default:
		return 0
	}
}

// TotalCost aggregates a workspace booking with its equipment children.
// Cancelled and completed children contribute nothing.
func TotalCost(parent *models.Booking) float64 {
	return Summarize(parent).TotalCost
}

// Quote describes a computed price alongside the rate that produced it, so
// callers can tell a genuinely free booking from a missing rate.
type Quote struct {
	Amount      float64 `json:"amount"`
	TimeFormat  string  `json:"time_format"`
	RateMissing bool    `json:"rate_missing"`
}

// ChildQuote is one equipment child's line in a cost summary.
type ChildQuote struct {
	BookingID int64 `json:"booking_id"`
	Quote
}

// CostSummary is the price breakdown of a booking tree: the parent's quote,
// one line per active or conflicted child, and the aggregate.
type CostSummary struct {
	BookingID int64        `json:"booking_id"`
	Parent    Quote        `json:"parent"`
	Children  []ChildQuote `json:"children,omitempty"`
	TotalCost float64      `json:"total_cost"`
}

// Summarize quotes the parent and each billable child. Cancelled and
// completed children contribute nothing.
func Summarize(parent *models.Booking) CostSummary {
	summary := CostSummary{Parent: QuoteFor(parent)}
	if parent == nil {
		return summary
	}
	summary.BookingID = parent.ID
	summary.TotalCost = summary.Parent.Amount
	for _, child := range parent.ActiveChildren() {
		quote := QuoteFor(child)
		summary.Children = append(summary.Children, ChildQuote{BookingID: child.ID, Quote: quote})
		summary.TotalCost += quote.Amount
	}
	return summary
}

// QuoteFor prices a booking and flags whether its rate tier was absent.
func QuoteFor(b *models.Booking) Quote {
	rates := RatesFor(b)
	q := Quote{Amount: Price(b, rates)}
	if b == nil {
		q.RateMissing = true
		return q
	}
	q.TimeFormat = b.TimeFormat
	switch b.TimeFormat {
	case models.TimeFormatHour:
		q.RateMissing = rates.Hourly == nil
	case models.TimeFormatDay:
		q.RateMissing = rates.Daily == nil
	case models.TimeFormatMonth:
		q.RateMissing = rates.Monthly == nil
	default:
		q.RateMissing = true
	}
	return q
}
