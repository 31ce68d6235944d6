package domain

import "time"

// AvailabilityReport is a user-submitted observation that a marker is
// occupied or free again. Reports flow through the broker and are
// applied asynchronously.
type AvailabilityReport struct {
	Kind       MarkerKind `json:"kind"`
	MarkerID   string     `json:"marker_id"`
	Available  bool       `json:"available"`
	ReporterID string     `json:"reporter_id,omitempty"`
	At         time.Time  `json:"at"`
}

// MarkerUpdated is broadcast after an availability change was persisted.
type MarkerUpdated struct {
	Kind      MarkerKind `json:"kind"`
	MarkerID  string     `json:"marker_id"`
	Available bool       `json:"available"`
	At        time.Time  `json:"at"`
}

// AccountDeleted is emitted once an account deletion completed.
type AccountDeleted struct {
	UserID string    `json:"user_id"`
	At     time.Time `json:"at"`
}
