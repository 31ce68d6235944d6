package domain

import (
	"fmt"
	"math"
	"time"
)

// ParkingSpotRow is the raw parking spot row as returned by the backend
// queries. The nearby query carries split Lat/Lon columns plus a computed
// distance; the get-all query carries the location as a hex-encoded WKB
// string instead. Exactly one of the two location forms is expected.
type ParkingSpotRow struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Lat            *float64  `json:"lat"`
	Lon            *float64  `json:"lon"`
	LocationWKB    string    `json:"location"`
	Capacity       int       `json:"capacity"`
	Covered        bool      `json:"covered"`
	Available      bool      `json:"available"`
	DistanceMeters *float64  `json:"distance_meters"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// RepairStationRow is the raw repair station row, with the same two
// location forms as ParkingSpotRow.
type RepairStationRow struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Lat            *float64  `json:"lat"`
	Lon            *float64  `json:"lon"`
	LocationWKB    string    `json:"location"`
	StationType    string    `json:"station_type"`
	HasPump        bool      `json:"has_pump"`
	HasTools       bool      `json:"has_tools"`
	Available      bool      `json:"available"`
	DistanceMeters *float64  `json:"distance_meters"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PointDecoder decodes a backend location string (hex WKB) into a
// coordinate. Wired to geospatial.DecodePointHex; a parameter here so
// the domain package stays dependency-free.
type PointDecoder func(s string) (GeoPoint, error)

// MarkerFromParkingSpot normalizes a raw parking spot row into a Marker.
// Rows with a missing id or name, or without a usable location, are
// rejected rather than zero-filled.
func MarkerFromParkingSpot(row ParkingSpotRow, decode PointDecoder) (Marker, error) {
	pt, err := rowCoordinate(row.Lat, row.Lon, row.LocationWKB, decode)
	if err != nil {
		return Marker{}, fmt.Errorf("parking spot %q: %w", row.ID, err)
	}
	if row.ID == "" || row.Name == "" {
		return Marker{}, fmt.Errorf("parking spot row missing id or name")
	}
	return Marker{
		ID:          row.ID,
		Kind:        MarkerParking,
		Name:        row.Name,
		Description: row.Description,
		Coordinate:  pt,
		Available:   row.Available,
		Capacity:    row.Capacity,
		Covered:     row.Covered,
		Distance:    copyDistance(row.DistanceMeters),
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

// MarkerFromRepairStation normalizes a raw repair station row into a
// Marker. The station_type column decides the marker kind: "service"
// rows are bicycle shops, everything else is a self-service stand.
func MarkerFromRepairStation(row RepairStationRow, decode PointDecoder) (Marker, error) {
	pt, err := rowCoordinate(row.Lat, row.Lon, row.LocationWKB, decode)
	if err != nil {
		return Marker{}, fmt.Errorf("repair station %q: %w", row.ID, err)
	}
	if row.ID == "" || row.Name == "" {
		return Marker{}, fmt.Errorf("repair station row missing id or name")
	}
	kind := MarkerRepairStation
	if StationType(row.StationType) == StationService {
		kind = MarkerBicycleService
	}
	return Marker{
		ID:          row.ID,
		Kind:        kind,
		Name:        row.Name,
		Description: row.Description,
		Coordinate:  pt,
		Available:   row.Available,
		HasPump:     row.HasPump,
		HasTools:    row.HasTools,
		Distance:    copyDistance(row.DistanceMeters),
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

// rowCoordinate resolves the row's location: split lat/lon columns win
// when both are present and finite, otherwise the WKB string is decoded.
func rowCoordinate(lat, lon *float64, wkb string, decode PointDecoder) (GeoPoint, error) {
	if lat != nil && lon != nil {
		pt := GeoPoint{Lat: *lat, Lon: *lon}
		if !pt.Valid() {
			return GeoPoint{}, fmt.Errorf("coordinate out of range (%v, %v)", *lat, *lon)
		}
		return pt, nil
	}
	if wkb == "" {
		return GeoPoint{}, fmt.Errorf("row has neither lat/lon nor location")
	}
	if decode == nil {
		return GeoPoint{}, fmt.Errorf("no point decoder configured")
	}
	pt, err := decode(wkb)
	if err != nil {
		return GeoPoint{}, err
	}
	if !pt.Valid() {
		return GeoPoint{}, fmt.Errorf("decoded coordinate out of range (%v, %v)", pt.Lat, pt.Lon)
	}
	return pt, nil
}

func copyDistance(d *float64) *float64 {
	if d == nil || math.IsNaN(*d) || math.IsInf(*d, 0) {
		return nil
	}
	v := *d
	return &v
}

// MergeMarkers merges the home set with search results, deduplicating
// by id. A marker present in both sets keeps its home entry. Order is
// stable: home markers first in their given order, then search markers
// that introduced a new id, in theirs.
func MergeMarkers(home, search []Marker) []Marker {
	merged := make([]Marker, 0, len(home)+len(search))
	seen := make(map[string]struct{}, len(home)+len(search))
	for _, m := range home {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		merged = append(merged, m)
	}
	for _, m := range search {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		merged = append(merged, m)
	}
	return merged
}
