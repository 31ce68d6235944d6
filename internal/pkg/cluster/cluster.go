// Package cluster groups map markers into viewport clusters so dense
// areas render as a single counted blob instead of hundreds of pins.
// Markers are bucketed into geohash grid cells sized by the map zoom
// level; cells holding two or more markers collapse into a cluster at
// their centroid, lone markers pass through untouched.
package cluster

import (
	"fmt"
	"sort"

	"github.com/parksafe/parksafe/internal/core/domain"
)

const (
	minZoom = 1
	maxZoom = 20

	// At this zoom and beyond the map is close enough to show every
	// marker individually.
	unclusteredZoom = 17
)

// Feature is one renderable unit on the map: either a cluster bubble
// or a single marker.
type Feature struct {
	Cluster    bool            `json:"cluster"`
	Count      int             `json:"count"`
	Coordinate domain.GeoPoint `json:"coordinate"`
	Marker     *domain.Marker  `json:"marker,omitempty"`
}

// Clusters buckets the markers that fall inside b into grid cells for
// the given zoom level. Output order is deterministic (cell key order).
func Clusters(markers []domain.Marker, zoom int, b domain.Bounds) ([]Feature, error) {
	if !b.Valid() {
		return nil, fmt.Errorf("cluster: invalid bounds %+v", b)
	}
	if zoom < minZoom {
		zoom = minZoom
	}
	if zoom > maxZoom {
		zoom = maxZoom
	}

	visible := make([]domain.Marker, 0, len(markers))
	for _, m := range markers {
		if b.Contains(m.Coordinate) {
			visible = append(visible, m)
		}
	}

	if zoom >= unclusteredZoom {
		features := make([]Feature, 0, len(visible))
		for i := range visible {
			features = append(features, singleton(visible[i]))
		}
		return features, nil
	}

	precision := precisionForZoom(zoom)
	cells := make(map[string][]domain.Marker)
	for _, m := range visible {
		key := geohash(m.Coordinate.Lat, m.Coordinate.Lon, precision)
		cells[key] = append(cells[key], m)
	}

	keys := make([]string, 0, len(cells))
	for key := range cells {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	features := make([]Feature, 0, len(keys))
	for _, key := range keys {
		members := cells[key]
		if len(members) == 1 {
			features = append(features, singleton(members[0]))
			continue
		}
		features = append(features, Feature{
			Cluster:    true,
			Count:      len(members),
			Coordinate: centroid(members),
		})
	}
	return features, nil
}

func singleton(m domain.Marker) Feature {
	return Feature{
		Count:      1,
		Coordinate: m.Coordinate,
		Marker:     &m,
	}
}

func centroid(members []domain.Marker) domain.GeoPoint {
	var lat, lon float64
	for _, m := range members {
		lat += m.Coordinate.Lat
		lon += m.Coordinate.Lon
	}
	n := float64(len(members))
	return domain.GeoPoint{Lat: lat / n, Lon: lon / n}
}

// precisionForZoom maps a web map zoom level to a geohash cell size
// roughly matching what fits in one cluster bubble on screen.
func precisionForZoom(zoom int) int {
	switch {
	case zoom <= 5:
		return 3 // ~156 km cells
	case zoom <= 8:
		return 4 // ~39 km
	case zoom <= 10:
		return 5 // ~4.9 km
	case zoom <= 12:
		return 6 // ~1.2 km
	case zoom <= 14:
		return 7 // ~153 m
	default:
		return 8 // ~38 m
	}
}
