package models

// Booking statuses. Cancelled and completed are terminal.
const (
	StatusActive     = "active"
	StatusCancelled  = "cancelled"
	StatusCompleted  = "completed"
	StatusConflicted = "conflicted"
)

const (
	BookingTypeWorkspace = "workspace"
	BookingTypeEquipment = "equipment"
	BookingTypeService   = "service"
	BookingTypeParking   = "parking"
	BookingTypeLocker    = "locker"
)

const (
	TimeFormatHour  = "hour"
	TimeFormatDay   = "day"
	TimeFormatMonth = "month"
)

const (
	ResourceStatusActive      = "active"
	ResourceStatusBroken      = "broken"
	ResourceStatusMaintenance = "maintenance"
)

// Resource category codes assigned by the booking authority.
const (
	CategoryWorkspace = "workspace"
	CategoryEquipment = "equipment"
)

const (
	IssueStatusNew       = "new"
	IssueStatusConfirmed = "confirmed"
	IssueStatusResolved  = "resolved"
	IssueStatusRejected  = "rejected"
)

// Change log entry types, mirroring what the portal journals per mutation.
const (
	ChangeExtend = "extend"
	ChangeCancel = "cancel"
	ChangeMove   = "move"
	ChangeCreate = "create"
	ChangeAttach = "attach"
	ChangeDetach = "detach"
)

// Extension option sources for the best_partial tier.
const (
	SourceSameResource       = "same_resource"
	SourceSameTypeOther      = "same_type_other_resource"
	SourceOtherWorkspaceType = "other_workspace_resource_type"
)

const (
	// DefaultWorkdayStartHour is the earliest bookable hour.
	DefaultWorkdayStartHour = 6

	// DefaultWorkdayEndHour is the latest bookable hour (inclusive boundary).
	DefaultWorkdayEndHour = 23

	// DefaultSlotMinutes is the booking time grid.
	DefaultSlotMinutes = 15

	// DefaultMaxExtensionDays caps how far past its current end a booking
	// may be extended in one request.
	DefaultMaxExtensionDays = 30

	// DefaultSessionTTL holds a session in the store for a day of inactivity.
	DefaultSessionTTL = 24 * 60 * 60 // seconds

	// RateLimitRequests and RateLimitWindow bound per-session request bursts.
	RateLimitRequests = 30
	RateLimitWindow   = 60 // seconds

	// WorkerQueueSize bounds the journal sync worker's in-memory queue.
	WorkerQueueSize = 1000
)
