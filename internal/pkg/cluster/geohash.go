package cluster

import "strings"

// geohash base32 alphabet (a, i, l, o excluded).
const geohashBase32 = "0123456789bcdefghjkmnpqrstuvwxyz"

// geohash encodes a coordinate into its geohash cell at the given
// precision by interleaving longitude and latitude bisection bits,
// five bits per output character. Nearby points share cells, which is
// all the grid clusterer needs from it.
func geohash(lat, lon float64, precision int) string {
	minLat, maxLat := -90.0, 90.0
	minLon, maxLon := -180.0, 180.0

	var hash strings.Builder
	isEven := true
	bit := 0
	ch := 0

	for hash.Len() < precision {
		if isEven {
			mid := (minLon + maxLon) / 2
			if lon >= mid {
				ch |= 1 << (4 - bit)
				minLon = mid
			} else {
				maxLon = mid
			}
		} else {
			mid := (minLat + maxLat) / 2
			if lat >= mid {
				ch |= 1 << (4 - bit)
				minLat = mid
			} else {
				maxLat = mid
			}
		}
		isEven = !isEven
		bit++
		if bit == 5 {
			hash.WriteByte(geohashBase32[ch])
			bit = 0
			ch = 0
		}
	}

	return hash.String()
}
