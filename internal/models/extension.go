package models

import "time"

// SameResourceOption is tier one of an extension negotiation: keeping the
// booking on its current resource.
type SameResourceOption struct {
	CanFull bool      `json:"can_full"`
	MaxEnd  time.Time `json:"max_end"`
	Reason  string    `json:"reason,omitempty"`
}

// RelocationOption is the shape of tiers two and three: moving to another
// resource of the same type, or to another workspace type.
type RelocationOption struct {
	CanAny       bool      `json:"can_any"`
	CanFull      bool      `json:"can_full"`
	ResourceID   int64     `json:"resource_id,omitempty"`
	ResourceName string    `json:"resource_name,omitempty"`
	MaxEnd       time.Time `json:"max_end,omitempty"`
	Reason       string    `json:"reason,omitempty"`
}

// BestPartialOption names the single farthest max_end across all tiers.
type BestPartialOption struct {
	Exists       bool      `json:"exists"`
	Source       string    `json:"source,omitempty"`
	ResourceID   int64     `json:"resource_id,omitempty"`
	ResourceName string    `json:"resource_name,omitempty"`
	MaxEnd       time.Time `json:"max_end,omitempty"`
}

// ExtensionOptions is the full negotiation result. All four tiers are always
// computed; PreferSameResource tells the presentation layer it may suppress
// the relocation tiers because tier one covers the request.
type ExtensionOptions struct {
	BookingID          int64              `json:"booking_id"`
	DesiredEnd         time.Time          `json:"desired_end"`
	CurrentEnd         time.Time          `json:"current_end"`
	SameResource       SameResourceOption `json:"same_resource"`
	SameTypeOther      RelocationOption   `json:"same_type_other_resource"`
	OtherWorkspaceType RelocationOption   `json:"other_workspace_resource_type"`
	BestPartial        BestPartialOption  `json:"best_partial"`
	PreferSameResource bool               `json:"prefer_same_resource"`
}
