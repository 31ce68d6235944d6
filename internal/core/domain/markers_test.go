package domain_test

import (
	"math"
	"testing"
	"time"

	"github.com/parksafe/parksafe/internal/core/domain"
	"github.com/parksafe/parksafe/internal/pkg/geospatial"
)

func decodePoint(s string) (domain.GeoPoint, error) {
	lat, lon, err := geospatial.DecodePointHex(s)
	if err != nil {
		return domain.GeoPoint{}, err
	}
	return domain.GeoPoint{Lat: lat, Lon: lon}, nil
}

func f64(v float64) *float64 { return &v }

func TestMarkerFromParkingSpotSplitColumns(t *testing.T) {
	now := time.Now()
	row := domain.ParkingSpotRow{
		ID:             "ps-1",
		Name:           "Dóm tér rack",
		Description:    "Covered rack by the cathedral",
		Lat:            f64(46.24877),
		Lon:            f64(20.14824),
		Capacity:       12,
		Covered:        true,
		Available:      true,
		DistanceMeters: f64(215.4),
		UpdatedAt:      now,
	}

	m, err := domain.MarkerFromParkingSpot(row, decodePoint)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if m.Kind != domain.MarkerParking {
		t.Errorf("kind = %s, want parking", m.Kind)
	}
	if m.Coordinate != (domain.GeoPoint{Lat: 46.24877, Lon: 20.14824}) {
		t.Errorf("coordinate = %+v", m.Coordinate)
	}
	if m.Distance == nil || *m.Distance != 215.4 {
		t.Errorf("distance not carried through: %v", m.Distance)
	}
	if !m.Covered || m.Capacity != 12 || !m.Available {
		t.Errorf("attributes lost: %+v", m)
	}
}

func TestMarkerFromParkingSpotWKBFallback(t *testing.T) {
	row := domain.ParkingSpotRow{
		ID:          "ps-2",
		Name:        "Anna-kút stand",
		LocationWKB: geospatial.EncodePointHex(46.25566, 20.14851),
	}

	m, err := domain.MarkerFromParkingSpot(row, decodePoint)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if math.Abs(m.Coordinate.Lat-46.25566) > 1e-9 || math.Abs(m.Coordinate.Lon-20.14851) > 1e-9 {
		t.Errorf("coordinate = %+v", m.Coordinate)
	}
	if m.Distance != nil {
		t.Errorf("distance should be absent on get-all rows, got %v", *m.Distance)
	}
}

func TestMarkerFromParkingSpotRejects(t *testing.T) {
	valid := domain.ParkingSpotRow{
		ID:   "ps-3",
		Name: "Széchenyi tér rack",
		Lat:  f64(46.25310),
		Lon:  f64(20.14770),
	}

	cases := []struct {
		name   string
		mutate func(r *domain.ParkingSpotRow)
	}{
		{"missing id", func(r *domain.ParkingSpotRow) { r.ID = "" }},
		{"missing name", func(r *domain.ParkingSpotRow) { r.Name = "" }},
		{"no location at all", func(r *domain.ParkingSpotRow) { r.Lat, r.Lon, r.LocationWKB = nil, nil, "" }},
		{"latitude out of range", func(r *domain.ParkingSpotRow) { r.Lat = f64(91.0) }},
		{"non-finite longitude", func(r *domain.ParkingSpotRow) { r.Lon = f64(math.NaN()) }},
		{"corrupt wkb", func(r *domain.ParkingSpotRow) { r.Lat, r.Lon, r.LocationWKB = nil, nil, "0101" }},
	}
	for _, tc := range cases {
		row := valid
		tc.mutate(&row)
		if _, err := domain.MarkerFromParkingSpot(row, decodePoint); err == nil {
			t.Errorf("%s: expected error, got none", tc.name)
		}
	}
}

func TestMarkerFromRepairStationKinds(t *testing.T) {
	base := domain.RepairStationRow{
		ID:       "rs-1",
		Name:     "Tisza pump point",
		Lat:      f64(46.2530),
		Lon:      f64(20.1484),
		HasPump:  true,
		HasTools: true,
	}

	m, err := domain.MarkerFromRepairStation(base, decodePoint)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if m.Kind != domain.MarkerRepairStation {
		t.Errorf("default kind = %s, want repair_station", m.Kind)
	}
	if !m.HasPump || !m.HasTools {
		t.Errorf("equipment flags lost: %+v", m)
	}

	base.StationType = "service"
	m, err = domain.MarkerFromRepairStation(base, decodePoint)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if m.Kind != domain.MarkerBicycleService {
		t.Errorf("service kind = %s, want bicycle_service", m.Kind)
	}
}

func TestMarkerDistanceSanitized(t *testing.T) {
	row := domain.ParkingSpotRow{
		ID:             "ps-4",
		Name:           "Mars tér rack",
		Lat:            f64(46.2541),
		Lon:            f64(20.1399),
		DistanceMeters: f64(math.NaN()),
	}
	m, err := domain.MarkerFromParkingSpot(row, decodePoint)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if m.Distance != nil {
		t.Errorf("NaN distance should be dropped, got %v", *m.Distance)
	}
}

func TestMergeMarkersHomeWins(t *testing.T) {
	home := []domain.Marker{
		{ID: "a", Name: "home a", Available: true},
		{ID: "b", Name: "home b"},
	}
	search := []domain.Marker{
		{ID: "b", Name: "search b", Available: true},
		{ID: "c", Name: "search c"},
	}

	merged := domain.MergeMarkers(home, search)
	if len(merged) != 3 {
		t.Fatalf("merged %d markers, want 3", len(merged))
	}
	if merged[0].ID != "a" || merged[1].ID != "b" || merged[2].ID != "c" {
		t.Errorf("order = %s %s %s, want a b c", merged[0].ID, merged[1].ID, merged[2].ID)
	}
	if merged[1].Name != "home b" {
		t.Errorf("duplicate id kept search entry %q, home must win", merged[1].Name)
	}
}

func TestMergeMarkersIdempotent(t *testing.T) {
	home := []domain.Marker{{ID: "a"}, {ID: "b"}}
	search := []domain.Marker{{ID: "c"}}

	once := domain.MergeMarkers(home, search)
	twice := domain.MergeMarkers(once, search)
	if len(once) != len(twice) {
		t.Fatalf("merge not idempotent: %d then %d", len(once), len(twice))
	}
	for i := range once {
		if once[i].ID != twice[i].ID {
			t.Errorf("order changed at %d: %s vs %s", i, once[i].ID, twice[i].ID)
		}
	}
}

func TestMergeMarkersNilSets(t *testing.T) {
	if got := domain.MergeMarkers(nil, nil); len(got) != 0 {
		t.Errorf("nil merge produced %d markers", len(got))
	}
	single := []domain.Marker{{ID: "a"}}
	if got := domain.MergeMarkers(single, nil); len(got) != 1 || got[0].ID != "a" {
		t.Errorf("home-only merge wrong: %+v", got)
	}
	if got := domain.MergeMarkers(nil, single); len(got) != 1 || got[0].ID != "a" {
		t.Errorf("search-only merge wrong: %+v", got)
	}
}
