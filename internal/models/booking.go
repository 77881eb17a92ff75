package models

import "time"

// Booking is a reservation of one resource for a time window. Workspace
// bookings may own equipment child bookings; a child's window always lies
// within its parent's window.
type Booking struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"user_id"`
	Resource      *Resource  `json:"resource"`
	BookingType   string     `json:"booking_type"`
	TimeFormat    string     `json:"time_format"`
	StartDatetime time.Time  `json:"start_datetime"`
	EndDatetime   time.Time  `json:"end_datetime"`
	Status        string     `json:"status"`
	ParentID      int64      `json:"parent_booking_id,omitempty"`
	Children      []*Booking `json:"child_bookings,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// IsTerminal reports whether the booking admits no further transitions.
func (b *Booking) IsTerminal() bool {
	return b.Status == StatusCancelled || b.Status == StatusCompleted
}

func (b *Booking) IsWorkspace() bool {
	return b.BookingType == BookingTypeWorkspace
}

// Window returns the booked interval.
func (b *Booking) Window() Window {
	return Window{Start: b.StartDatetime, End: b.EndDatetime}
}

// ActiveChildren returns equipment children that still count for billing
// and cascades (status active or conflicted).
func (b *Booking) ActiveChildren() []*Booking {
	var out []*Booking
	for _, c := range b.Children {
		if c.Status == StatusActive || c.Status == StatusConflicted {
			out = append(out, c)
		}
	}
	return out
}

// ChildByID finds a direct child booking, nil when absent.
func (b *Booking) ChildByID(id int64) *Booking {
	for _, c := range b.Children {
		if c.ID == id {
			return c
		}
	}
	return nil
}

// EquipmentItem is one line of a bulk equipment request.
type EquipmentItem struct {
	ResourceTypeID int64 `json:"resource_type_id"`
	Quantity       int   `json:"quantity"`
}

// CreateBookingRequest is the payload for creating a primary booking,
// optionally with an equipment batch attached in the same commit.
type CreateBookingRequest struct {
	ResourceID    int64           `json:"resource_id"`
	BookingType   string          `json:"booking_type"`
	TimeFormat    string          `json:"time_format"`
	StartDatetime time.Time       `json:"start_datetime"`
	EndDatetime   time.Time       `json:"end_datetime"`
	Equipment     []EquipmentItem `json:"equipment,omitempty"`
}

// ReplacementOption is one candidate resource for a conflicted booking.
type ReplacementOption struct {
	ResourceID   int64  `json:"resource_id"`
	ResourceName string `json:"resource_name"`
}

// ChangeOptions is the authority's replacement menu for a conflicted booking.
type ChangeOptions struct {
	BookingID   int64               `json:"booking_id"`
	BookingType string              `json:"booking_type"`
	PeriodStart time.Time           `json:"period_start"`
	PeriodEnd   time.Time           `json:"period_end"`
	HasOptions  bool                `json:"has_options"`
	Options     []ReplacementOption `json:"options"`
}

// ChangeEntry is one row of the booking change journal.
type ChangeEntry struct {
	ID         int64      `json:"id"`
	BookingID  int64      `json:"booking_id"`
	ChangeType string     `json:"change_type"`
	OldStart   *time.Time `json:"old_start,omitempty"`
	OldEnd     *time.Time `json:"old_end,omitempty"`
	NewStart   *time.Time `json:"new_start,omitempty"`
	NewEnd     *time.Time `json:"new_end,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// SyncTask is a persisted unit of work for the journal sync worker.
type SyncTask struct {
	ID          int64      `json:"id"`
	TaskType    string     `json:"task_type"`
	ChangeID    int64      `json:"change_id"`
	Payload     string     `json:"payload"`
	Status      string     `json:"status"`
	RetryCount  int        `json:"retry_count"`
	LastError   string     `json:"last_error"`
	CreatedAt   time.Time  `json:"created_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`
}

// Session carries the authenticated identity through every operation that
// needs it, instead of process-wide auth state.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	IsAdmin   bool      `json:"is_admin"`
	CreatedAt time.Time `json:"created_at"`
	LastSeen  time.Time `json:"last_seen"`
}

// Issue is a fault report against a booking and/or resource. The portal only
// renders issues; outage computation happens on the authority side.
type Issue struct {
	ID         int64     `json:"id"`
	BookingID  int64     `json:"booking_id,omitempty"`
	ResourceID int64     `json:"resource_id,omitempty"`
	Status     string    `json:"status"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}
