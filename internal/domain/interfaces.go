package domain

import (
	"context"
	"time"

	"kovorka/internal/models"
)

// Schedule is the read side of the booking authority: reservation timetables
// and free unit counts. Negotiation logic runs entirely on these queries.
type Schedule interface {
	// NextReservationStart returns the start of the earliest reservation on
	// the resource beginning at or after from. found is false when the
	// calendar is clear from that point on.
	NextReservationStart(ctx context.Context, resourceID int64, from time.Time) (next time.Time, found bool, err error)
	// ActiveResourcesByType lists active resources of one type in the
	// authority's stable ordering.
	ActiveResourcesByType(ctx context.Context, resourceTypeID int64) ([]*models.Resource, error)
	// ActiveResourcesByCategory lists active resources across every type of a
	// category except the excluded type.
	ActiveResourcesByCategory(ctx context.Context, category string, excludeTypeID int64) ([]*models.Resource, error)
	// FreeEquipmentCount reports how many units of a type are free over the
	// window, outage reductions already applied.
	FreeEquipmentCount(ctx context.Context, resourceTypeID int64, window models.Window) (int, error)
}

// Authority is the external booking service. All mutations go through it;
// the portal never persists bookings itself.
type Authority interface {
	Schedule

	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	CreateBooking(ctx context.Context, req *models.CreateBookingRequest, userID int64) (*models.Booking, error)
	ConfirmExtend(ctx context.Context, bookingID int64, newEnd time.Time) (*models.Booking, error)
	CancelBooking(ctx context.Context, bookingID int64) (*models.Booking, error)
	ChangeOptions(ctx context.Context, bookingID int64) (*models.ChangeOptions, error)
	ApplyChange(ctx context.Context, bookingID int64, resourceID int64) (*models.Booking, error)
	AddEquipment(ctx context.Context, bookingID int64, items []models.EquipmentItem) ([]*models.Booking, error)
	Login(ctx context.Context, username, password string) (userID int64, name string, isAdmin bool, err error)
}

// SessionRepository stores portal sessions keyed by token.
type SessionRepository interface {
	GetSession(ctx context.Context, token string) (*models.Session, error)
	SetSession(ctx context.Context, session *models.Session) error
	DeleteSession(ctx context.Context, token string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Journal persists the local change history and the sync queue behind it.
type Journal interface {
	RecordChange(ctx context.Context, entry *models.ChangeEntry) error
	ListChanges(ctx context.Context, bookingID int64, limit int) ([]*models.ChangeEntry, error)
	ListAllChanges(ctx context.Context, since time.Time) ([]*models.ChangeEntry, error)
}

type SyncWorker interface {
	EnqueueChange(ctx context.Context, entry *models.ChangeEntry) error
}

// Messenger delivers human-readable notifications; implementations decide
// the channel.
type Messenger interface {
	SendMessage(text string) error
}

// ChangeSink receives journal rows that reached the external spreadsheet.
type ChangeSink interface {
	AppendChange(ctx context.Context, entry *models.ChangeEntry) error
}
