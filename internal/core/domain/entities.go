package domain

import (
	"fmt"
	"strings"
	"time"
)

// MarkerKind classifies what a map marker points at.
type MarkerKind string

const (
	MarkerParking        MarkerKind = "parking"
	MarkerRepairStation  MarkerKind = "repair_station"
	MarkerBicycleService MarkerKind = "bicycle_service"
)

// Valid reports whether k is a known marker kind.
func (k MarkerKind) Valid() bool {
	switch k {
	case MarkerParking, MarkerRepairStation, MarkerBicycleService:
		return true
	}
	return false
}

// ParseMarkerKind parses a marker kind from its wire form.
func ParseMarkerKind(s string) (MarkerKind, error) {
	k := MarkerKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown marker kind %q", s)
	}
	return k, nil
}

// Marker is the normalized map marker served to clients. Every row shape
// the backend returns (split lat/lon or raw WKB) collapses into this.
type Marker struct {
	ID          string     `json:"id"`
	Kind        MarkerKind `json:"kind"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Coordinate  GeoPoint   `json:"coordinate"`
	Available   bool       `json:"available"`
	Capacity    int        `json:"capacity,omitempty"`
	Covered     bool       `json:"covered,omitempty"`
	HasPump     bool       `json:"has_pump,omitempty"`
	HasTools    bool       `json:"has_tools,omitempty"`
	Distance    *float64   `json:"distance,omitempty"` // meters, computed field
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ParkingSpot is a bicycle parking location.
type ParkingSpot struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Location    GeoPoint  `json:"location"`
	Capacity    int       `json:"capacity"`
	Covered     bool      `json:"covered"`
	Available   bool      `json:"available"`
	Distance    *float64  `json:"distance,omitempty"` // computed field
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// StationType distinguishes self-service repair stands from bicycle shops.
type StationType string

const (
	StationRepair  StationType = "repair"
	StationService StationType = "service"
)

// RepairStation is a public repair stand or a bicycle service shop.
type RepairStation struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Location    GeoPoint    `json:"location"`
	StationType StationType `json:"station_type"`
	HasPump     bool        `json:"has_pump"`
	HasTools    bool        `json:"has_tools"`
	Available   bool        `json:"available"`
	Distance    *float64    `json:"distance,omitempty"` // computed field
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// Profile is a registered user account.
type Profile struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"display_name,omitempty"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	HomeLocation *GeoPoint `json:"home_location,omitempty"`
	PasswordHash string    `json:"-"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ProfilePatch carries the fields a user may change on their profile.
// Nil pointers leave the stored value untouched.
type ProfilePatch struct {
	DisplayName  *string   `json:"display_name,omitempty"`
	AvatarURL    *string   `json:"avatar_url,omitempty"`
	HomeLocation *GeoPoint `json:"home_location,omitempty"`
}

// Feedback is a user-submitted report about the app or a marker.
type Feedback struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	Rating    int       `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}
