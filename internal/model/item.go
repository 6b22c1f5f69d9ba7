package model

import "time"

// BucketListItem represents a single travel or experience goal.
//
// Ownership: UserID is set at creation time and never reassigned. Every
// mutating operation must verify the caller owns the item.
//
// WHY *float64 FOR COORDINATES?
// Latitude 0 / longitude 0 is a real place (the Gulf of Guinea), so the
// float zero value can't stand in for "no location pinned". A nil pointer
// means the item has no map pin; a non-nil pair is rendered on the map.
// The two are always set together or not at all.
//
// PlannedDate is a calendar date in "YYYY-MM-DD" form with no time-of-day
// or timezone component. An empty string means no date was picked.
type BucketListItem struct {
	ID          string    `json:"id"                    db:"id"`
	UserID      string    `json:"userId"                db:"user_id"`
	Title       string    `json:"title"                 db:"title"`
	Description string    `json:"description,omitempty" db:"description"`
	Location    string    `json:"location,omitempty"    db:"location"` // free-text label, e.g. "Kyoto, Japan"
	LocationLat *float64  `json:"locationLat,omitempty" db:"location_lat"`
	LocationLng *float64  `json:"locationLng,omitempty" db:"location_lng"`
	PlannedDate string    `json:"plannedDate,omitempty" db:"planned_date"`
	Category    string    `json:"category,omitempty"    db:"category"` // e.g. "Adventure", "Cultural"
	Completed   bool      `json:"completed"             db:"completed"`
	PhotoURL    string    `json:"photoUrl,omitempty"    db:"photo_url"`
	StorageID   string    `json:"storageId,omitempty"   db:"storage_id"`
	CreatedAt   time.Time `json:"createdAt"             db:"created_at"`
}

// Stats is the dashboard aggregation: always recomputed from the live
// collection, never stored.
type Stats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
}
