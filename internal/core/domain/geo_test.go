package domain_test

import (
	"math"
	"testing"

	"github.com/parksafe/parksafe/internal/core/domain"
)

func TestGeoPointValid(t *testing.T) {
	cases := []struct {
		name string
		p    domain.GeoPoint
		want bool
	}{
		{"szeged center", domain.GeoPoint{Lat: 46.2530, Lon: 20.1484}, true},
		{"poles", domain.GeoPoint{Lat: 90, Lon: 180}, true},
		{"lat too high", domain.GeoPoint{Lat: 90.0001, Lon: 0}, false},
		{"lon too low", domain.GeoPoint{Lat: 0, Lon: -180.5}, false},
		{"nan", domain.GeoPoint{Lat: math.NaN(), Lon: 0}, false},
		{"inf", domain.GeoPoint{Lat: 0, Lon: math.Inf(1)}, false},
	}
	for _, tc := range cases {
		if got := tc.p.Valid(); got != tc.want {
			t.Errorf("%s: Valid() = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestBoundsContains(t *testing.T) {
	b := domain.Bounds{MinLat: 46.20, MinLon: 20.10, MaxLat: 46.30, MaxLon: 20.20}
	if !b.Valid() {
		t.Fatal("bounds should be valid")
	}
	if !b.Contains(domain.GeoPoint{Lat: 46.2530, Lon: 20.1484}) {
		t.Error("center point should be inside")
	}
	if !b.Contains(domain.GeoPoint{Lat: 46.20, Lon: 20.10}) {
		t.Error("edges are inclusive")
	}
	if b.Contains(domain.GeoPoint{Lat: 46.31, Lon: 20.15}) {
		t.Error("point north of box should be outside")
	}

	inverted := domain.Bounds{MinLat: 46.30, MinLon: 20.10, MaxLat: 46.20, MaxLon: 20.20}
	if inverted.Valid() {
		t.Error("inverted bounds should be invalid")
	}
}
