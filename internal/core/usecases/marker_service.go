package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/parksafe/parksafe/internal/core/domain"
	"github.com/parksafe/parksafe/internal/core/ports"
	"github.com/parksafe/parksafe/internal/pkg/geospatial"
	"github.com/parksafe/parksafe/internal/pkg/metrics"
)

const (
	minNearbyRadius     = 50.0
	maxNearbyRadius     = 10000.0
	defaultNearbyRadius = 1000.0
	maxNearbyLimit      = 100
	defaultNearbyLimit  = 50
)

// MarkerService serves normalized markers from the parking spot and
// repair station tables.
type MarkerService struct {
	spots     ports.ParkingSpotRepository
	stations  ports.RepairStationRepository
	cache     ports.CacheService
	publisher ports.EventPublisher
}

// NewMarkerService creates a new MarkerService. Cache and publisher may
// be nil; the service degrades to uncached, non-publishing behavior.
func NewMarkerService(
	spots ports.ParkingSpotRepository,
	stations ports.RepairStationRepository,
	cache ports.CacheService,
	publisher ports.EventPublisher,
) *MarkerService {
	return &MarkerService{spots: spots, stations: stations, cache: cache, publisher: publisher}
}

// decodePoint adapts the geospatial WKB decoder to the domain decoder shape.
func decodePoint(s string) (domain.GeoPoint, error) {
	lat, lon, err := geospatial.DecodePointHex(s)
	if err != nil {
		return domain.GeoPoint{}, err
	}
	return domain.GeoPoint{Lat: lat, Lon: lon}, nil
}

// FindNearby returns markers within radiusMeters of the given point,
// nearest first. An empty kinds list means all kinds.
func (s *MarkerService) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int, kinds []domain.MarkerKind) ([]domain.Marker, error) {
	origin := domain.GeoPoint{Lat: lat, Lon: lon}
	if !origin.Valid() {
		return nil, fmt.Errorf("invalid coordinates (%v, %v)", lat, lon)
	}
	if radiusMeters <= 0 {
		radiusMeters = defaultNearbyRadius
	}
	if radiusMeters < minNearbyRadius {
		radiusMeters = minNearbyRadius
	}
	if radiusMeters > maxNearbyRadius {
		radiusMeters = maxNearbyRadius
	}
	if limit <= 0 || limit > maxNearbyLimit {
		limit = defaultNearbyLimit
	}
	want, err := kindSet(kinds)
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("markers:nearby:%.4f:%.4f:%.0f:%d:%s", lat, lon, radiusMeters, limit, kindsKey(kinds))
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var markers []domain.Marker
			if err := json.Unmarshal(data, &markers); err == nil {
				return markers, nil
			}
		}
	}

	var markers []domain.Marker
	if want[domain.MarkerParking] {
		rows, err := s.spots.FindNearby(ctx, lat, lon, radiusMeters, limit)
		if err != nil {
			return nil, fmt.Errorf("nearby parking spots: %w", err)
		}
		markers = append(markers, s.normalizeSpots(rows)...)
	}
	if want[domain.MarkerRepairStation] || want[domain.MarkerBicycleService] {
		rows, err := s.stations.FindNearby(ctx, lat, lon, radiusMeters, limit)
		if err != nil {
			return nil, fmt.Errorf("nearby repair stations: %w", err)
		}
		markers = append(markers, filterKinds(s.normalizeStations(rows), want)...)
	}

	sortByDistance(markers)
	if len(markers) > limit {
		markers = markers[:limit]
	}

	// Nearby results go stale with availability updates, keep the TTL short.
	if s.cache != nil {
		if data, err := json.Marshal(markers); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 60)
		}
	}
	return markers, nil
}

// All returns every marker of the requested kinds. Rows come back from
// the repositories with WKB-encoded locations and are normalized here.
func (s *MarkerService) All(ctx context.Context, kinds []domain.MarkerKind) ([]domain.Marker, error) {
	want, err := kindSet(kinds)
	if err != nil {
		return nil, err
	}

	cacheKey := "markers:all:" + kindsKey(kinds)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var markers []domain.Marker
			if err := json.Unmarshal(data, &markers); err == nil {
				return markers, nil
			}
		}
	}

	var markers []domain.Marker
	if want[domain.MarkerParking] {
		rows, err := s.spots.All(ctx)
		if err != nil {
			return nil, fmt.Errorf("all parking spots: %w", err)
		}
		markers = append(markers, s.normalizeSpots(rows)...)
	}
	if want[domain.MarkerRepairStation] || want[domain.MarkerBicycleService] {
		rows, err := s.stations.All(ctx)
		if err != nil {
			return nil, fmt.Errorf("all repair stations: %w", err)
		}
		markers = append(markers, filterKinds(s.normalizeStations(rows), want)...)
	}

	sort.Slice(markers, func(i, j int) bool {
		if markers[i].Name != markers[j].Name {
			return markers[i].Name < markers[j].Name
		}
		return markers[i].ID < markers[j].ID
	})

	if s.cache != nil {
		if data, err := json.Marshal(markers); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 300)
		}
	}
	return markers, nil
}

// ParkingSpot returns a single parking spot.
func (s *MarkerService) ParkingSpot(ctx context.Context, id string) (*domain.ParkingSpot, error) {
	cacheKey := "spots:id:" + id
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var spot domain.ParkingSpot
			if err := json.Unmarshal(data, &spot); err == nil {
				return &spot, nil
			}
		}
	}
	spot, err := s.spots.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if data, err := json.Marshal(spot); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600)
		}
	}
	return spot, nil
}

// RepairStation returns a single repair station.
func (s *MarkerService) RepairStation(ctx context.Context, id string) (*domain.RepairStation, error) {
	cacheKey := "stations:id:" + id
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var station domain.RepairStation
			if err := json.Unmarshal(data, &station); err == nil {
				return &station, nil
			}
		}
	}
	station, err := s.stations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if data, err := json.Marshal(station); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600)
		}
	}
	return station, nil
}

// ListParkingSpots returns a page of parking spots plus the total count.
func (s *MarkerService) ListParkingSpots(ctx context.Context, limit, offset int) ([]domain.ParkingSpot, int, error) {
	return s.spots.List(ctx, limit, offset)
}

// ListRepairStations returns a page of repair stations plus the total count.
func (s *MarkerService) ListRepairStations(ctx context.Context, limit, offset int) ([]domain.RepairStation, int, error) {
	return s.stations.List(ctx, limit, offset)
}

// ReportAvailability validates a user report and hands it to the broker
// for asynchronous application.
func (s *MarkerService) ReportAvailability(ctx context.Context, report *domain.AvailabilityReport) error {
	if report == nil || report.MarkerID == "" {
		return fmt.Errorf("report needs a marker id")
	}
	if !report.Kind.Valid() {
		return fmt.Errorf("unknown marker kind %q", report.Kind)
	}
	if report.At.IsZero() {
		report.At = time.Now()
	}
	if s.publisher == nil {
		return fmt.Errorf("availability reporting is disabled")
	}
	if err := s.publisher.PublishAvailabilityReport(ctx, report); err != nil {
		return fmt.Errorf("publish availability report: %w", err)
	}
	return nil
}

// ApplyAvailability persists an availability change and broadcasts the
// resulting marker update. Returns ports.ErrNotFound for unknown ids.
func (s *MarkerService) ApplyAvailability(ctx context.Context, report *domain.AvailabilityReport) error {
	if report == nil || report.MarkerID == "" || !report.Kind.Valid() {
		return fmt.Errorf("invalid availability report")
	}

	var err error
	switch report.Kind {
	case domain.MarkerParking:
		err = s.spots.SetAvailability(ctx, report.MarkerID, report.Available)
	default:
		err = s.stations.SetAvailability(ctx, report.MarkerID, report.Available)
	}
	if err != nil {
		return err
	}

	metrics.AvailabilityApplied.WithLabelValues(string(report.Kind)).Inc()
	s.invalidateMarkerCaches(ctx, report.Kind, report.MarkerID)

	if s.publisher != nil {
		update := &domain.MarkerUpdated{
			Kind:      report.Kind,
			MarkerID:  report.MarkerID,
			Available: report.Available,
			At:        time.Now(),
		}
		_ = s.publisher.PublishMarkerUpdated(ctx, update)
	}
	return nil
}

// invalidateMarkerCaches drops the cache entries an availability change
// makes wrong. Nearby keys are origin-dependent and left to their short
// TTL; the canonical all-markers keys are deleted here.
func (s *MarkerService) invalidateMarkerCaches(ctx context.Context, kind domain.MarkerKind, id string) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Delete(ctx, "markers:all:all")
	_ = s.cache.Delete(ctx, "markers:all:"+string(kind))
	switch kind {
	case domain.MarkerParking:
		_ = s.cache.Delete(ctx, "spots:id:"+id)
	default:
		_ = s.cache.Delete(ctx, "stations:id:"+id)
	}
}

func (s *MarkerService) normalizeSpots(rows []domain.ParkingSpotRow) []domain.Marker {
	markers := make([]domain.Marker, 0, len(rows))
	for _, row := range rows {
		m, err := domain.MarkerFromParkingSpot(row, decodePoint)
		if err != nil {
			metrics.MarkersDropped.WithLabelValues(string(domain.MarkerParking)).Inc()
			continue
		}
		markers = append(markers, m)
	}
	return markers
}

func (s *MarkerService) normalizeStations(rows []domain.RepairStationRow) []domain.Marker {
	markers := make([]domain.Marker, 0, len(rows))
	for _, row := range rows {
		m, err := domain.MarkerFromRepairStation(row, decodePoint)
		if err != nil {
			metrics.MarkersDropped.WithLabelValues(string(domain.MarkerRepairStation)).Inc()
			continue
		}
		markers = append(markers, m)
	}
	return markers
}

func filterKinds(markers []domain.Marker, want map[domain.MarkerKind]bool) []domain.Marker {
	out := markers[:0]
	for _, m := range markers {
		if want[m.Kind] {
			out = append(out, m)
		}
	}
	return out
}

func sortByDistance(markers []domain.Marker) {
	sort.SliceStable(markers, func(i, j int) bool {
		di, dj := markers[i].Distance, markers[j].Distance
		switch {
		case di == nil && dj == nil:
			return false
		case di == nil:
			return false
		case dj == nil:
			return true
		default:
			return *di < *dj
		}
	})
}

// kindSet expands a kinds filter into a lookup set; empty means all.
func kindSet(kinds []domain.MarkerKind) (map[domain.MarkerKind]bool, error) {
	want := make(map[domain.MarkerKind]bool, 3)
	if len(kinds) == 0 {
		want[domain.MarkerParking] = true
		want[domain.MarkerRepairStation] = true
		want[domain.MarkerBicycleService] = true
		return want, nil
	}
	for _, k := range kinds {
		if !k.Valid() {
			return nil, fmt.Errorf("unknown marker kind %q", k)
		}
		want[k] = true
	}
	return want, nil
}

// kindsKey renders a kinds filter as a stable cache key fragment.
func kindsKey(kinds []domain.MarkerKind) string {
	if len(kinds) == 0 {
		return "all"
	}
	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, string(k))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
