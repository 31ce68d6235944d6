package geospatial

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
)

// PostGIS emits geography columns cast to text as hex-encoded EWKB:
// one endianness byte, a uint32 geometry type word whose high bits flag
// extensions, an optional uint32 SRID, then the coordinates as float64s.
const (
	wkbPoint     = 1
	ewkbSRIDFlag = 0x20000000
	sridWGS84    = 4326
)

// DecodePointHex decodes a hex-encoded WKB or EWKB point into latitude
// and longitude in degrees. Only 2D points are supported; Z/M variants,
// other geometry types, truncated input and out-of-range coordinates
// are rejected.
func DecodePointHex(s string) (lat, lon float64, err error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return 0, 0, fmt.Errorf("wkb: decode hex: %w", err)
	}
	if len(raw) < 5 {
		return 0, 0, fmt.Errorf("wkb: truncated point: %d bytes", len(raw))
	}

	var order binary.ByteOrder
	switch raw[0] {
	case 0:
		order = binary.BigEndian
	case 1:
		order = binary.LittleEndian
	default:
		return 0, 0, fmt.Errorf("wkb: invalid byte order marker 0x%02x", raw[0])
	}

	typeWord := order.Uint32(raw[1:5])
	offset := 5
	if typeWord&ewkbSRIDFlag != 0 {
		// SRID is carried but not interpreted; geography is WGS 84.
		if len(raw) < offset+4 {
			return 0, 0, fmt.Errorf("wkb: truncated srid")
		}
		offset += 4
	}
	if base := typeWord &^ ewkbSRIDFlag; base != wkbPoint {
		return 0, 0, fmt.Errorf("wkb: unsupported geometry type 0x%08x", typeWord)
	}

	if len(raw) < offset+16 {
		return 0, 0, fmt.Errorf("wkb: truncated point coordinates: %d bytes", len(raw))
	}
	if len(raw) > offset+16 {
		return 0, 0, fmt.Errorf("wkb: %d trailing bytes after point", len(raw)-offset-16)
	}

	lon = math.Float64frombits(order.Uint64(raw[offset : offset+8]))
	lat = math.Float64frombits(order.Uint64(raw[offset+8 : offset+16]))

	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lon) || math.IsInf(lon, 0) {
		return 0, 0, fmt.Errorf("wkb: non-finite coordinates")
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("wkb: coordinates out of range (%v, %v)", lat, lon)
	}
	return lat, lon, nil
}

// EncodePointHex encodes a coordinate as uppercase hex EWKB, little
// endian with SRID 4326, the same form PostGIS renders for a geography
// point cast to text.
func EncodePointHex(lat, lon float64) string {
	raw := make([]byte, 25)
	raw[0] = 1
	binary.LittleEndian.PutUint32(raw[1:5], wkbPoint|ewkbSRIDFlag)
	binary.LittleEndian.PutUint32(raw[5:9], sridWGS84)
	binary.LittleEndian.PutUint64(raw[9:17], math.Float64bits(lon))
	binary.LittleEndian.PutUint64(raw[17:25], math.Float64bits(lat))
	return fmt.Sprintf("%X", raw)
}
