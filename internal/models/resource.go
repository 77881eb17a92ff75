package models

// ResourceType is the billing and category template shared by resources.
// Rate pointers are nil when the type is not offered in that billing mode.
type ResourceType struct {
	ID          int64    `json:"id"`
	Category    string   `json:"category"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	HourlyRate  *float64 `json:"hourly_rate"`
	DailyRate   *float64 `json:"daily_rate"`
	MonthlyRate *float64 `json:"monthly_rate"`
}

// Resource is a single bookable physical unit (desk, room, device).
type Resource struct {
	ID       int64         `json:"id"`
	Name     string        `json:"name"`
	Zone     string        `json:"zone,omitempty"`
	Capacity int64         `json:"capacity"`
	Status   string        `json:"status"`
	Type     *ResourceType `json:"type"`
}

func (r *Resource) IsActive() bool {
	return r != nil && r.Status == ResourceStatusActive
}
