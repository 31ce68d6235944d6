package geospatial

import (
	"math"
	"strings"
	"testing"
)

// Hex fixtures as PostGIS renders them (geography point cast to text).
const (
	budapestEWKB  = "0101000020E6100000D735B5C766123340F9A3A833F7BF4740" // lon 19.0718808 lat 47.4997315, SRID 4326
	szegedWKB     = "0101000000F5B9DA8AFD253440AAF1D24D62204740"         // lon 20.1484 lat 46.2530, no SRID
	szegedBigEnd  = "0020000001000010E6403425FD8ADAB9F5404720624DD2F1AA" // same point, big endian EWKB
	lineStringWKB = "0102000000000000000000F03F0000000000000040"
	badLatWKB     = "010100000000000000000034400000000000A05740" // lat 94.5
)

func TestDecodePointHex(t *testing.T) {
	lat, lon, err := DecodePointHex(budapestEWKB)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if math.Abs(lat-47.4997315) > 1e-7 {
		t.Errorf("lat = %v, want 47.4997315", lat)
	}
	if math.Abs(lon-19.0718808) > 1e-7 {
		t.Errorf("lon = %v, want 19.0718808", lon)
	}
}

func TestDecodePointHexWithoutSRID(t *testing.T) {
	lat, lon, err := DecodePointHex(szegedWKB)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if math.Abs(lat-46.2530) > 1e-7 || math.Abs(lon-20.1484) > 1e-7 {
		t.Errorf("got (%v, %v), want (46.2530, 20.1484)", lat, lon)
	}
}

func TestDecodePointHexBigEndian(t *testing.T) {
	lat, lon, err := DecodePointHex(szegedBigEnd)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if math.Abs(lat-46.2530) > 1e-7 || math.Abs(lon-20.1484) > 1e-7 {
		t.Errorf("got (%v, %v), want (46.2530, 20.1484)", lat, lon)
	}
}

func TestDecodePointHexLowercaseInput(t *testing.T) {
	if _, _, err := DecodePointHex(strings.ToLower(budapestEWKB)); err != nil {
		t.Errorf("lowercase hex should decode: %v", err)
	}
}

func TestDecodePointHexRejects(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"odd length hex", budapestEWKB[:11]},
		{"non hex", "01ZZ000020E61000"},
		{"truncated header", budapestEWKB[:8]},
		{"truncated coordinates", budapestEWKB[:24]},
		{"trailing bytes", budapestEWKB + "00"},
		{"invalid byte order", "02" + budapestEWKB[2:]},
		{"linestring", lineStringWKB},
		{"latitude out of range", badLatWKB},
	}
	for _, tc := range cases {
		if _, _, err := DecodePointHex(tc.in); err == nil {
			t.Errorf("%s: expected error, got none", tc.name)
		}
	}
}

func TestEncodePointHexRoundTrip(t *testing.T) {
	wantLat, wantLon := 46.24877, 20.14824
	s := EncodePointHex(wantLat, wantLon)
	lat, lon, err := DecodePointHex(s)
	if err != nil {
		t.Fatalf("round trip decode failed: %v", err)
	}
	if lat != wantLat || lon != wantLon {
		t.Errorf("round trip got (%v, %v), want (%v, %v)", lat, lon, wantLat, wantLon)
	}
}

func TestEncodePointHexMatchesPostGISForm(t *testing.T) {
	if got := EncodePointHex(47.4997315, 19.0718808); got != budapestEWKB {
		t.Errorf("encoded %s, want %s", got, budapestEWKB)
	}
}
