package usecases_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/parksafe/parksafe/internal/core/domain"
	"github.com/parksafe/parksafe/internal/core/ports"
	"github.com/parksafe/parksafe/internal/core/usecases"
	"github.com/parksafe/parksafe/internal/pkg/geospatial"
)

// --- Mock ParkingSpotRepository ---

type mockSpotRepo struct {
	findNearbyFn      func(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.ParkingSpotRow, error)
	allFn             func(ctx context.Context) ([]domain.ParkingSpotRow, error)
	getByIDFn         func(ctx context.Context, id string) (*domain.ParkingSpot, error)
	listFn            func(ctx context.Context, limit, offset int) ([]domain.ParkingSpot, int, error)
	setAvailabilityFn func(ctx context.Context, id string, available bool) error
}

func (m *mockSpotRepo) Upsert(ctx context.Context, spot *domain.ParkingSpot) error        { return nil }
func (m *mockSpotRepo) UpsertBatch(ctx context.Context, spots []domain.ParkingSpot) error { return nil }

func (m *mockSpotRepo) GetByID(ctx context.Context, id string) (*domain.ParkingSpot, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, ports.ErrNotFound
}

func (m *mockSpotRepo) List(ctx context.Context, limit, offset int) ([]domain.ParkingSpot, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, 0, nil
}

func (m *mockSpotRepo) FindNearby(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.ParkingSpotRow, error) {
	if m.findNearbyFn != nil {
		return m.findNearbyFn(ctx, lat, lon, radius, limit)
	}
	return nil, nil
}

func (m *mockSpotRepo) All(ctx context.Context) ([]domain.ParkingSpotRow, error) {
	if m.allFn != nil {
		return m.allFn(ctx)
	}
	return nil, nil
}

func (m *mockSpotRepo) SetAvailability(ctx context.Context, id string, available bool) error {
	if m.setAvailabilityFn != nil {
		return m.setAvailabilityFn(ctx, id, available)
	}
	return nil
}

// --- Mock RepairStationRepository ---

type mockStationRepo struct {
	findNearbyFn      func(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.RepairStationRow, error)
	allFn             func(ctx context.Context) ([]domain.RepairStationRow, error)
	getByIDFn         func(ctx context.Context, id string) (*domain.RepairStation, error)
	listFn            func(ctx context.Context, limit, offset int) ([]domain.RepairStation, int, error)
	setAvailabilityFn func(ctx context.Context, id string, available bool) error
}

func (m *mockStationRepo) Upsert(ctx context.Context, st *domain.RepairStation) error        { return nil }
func (m *mockStationRepo) UpsertBatch(ctx context.Context, st []domain.RepairStation) error  { return nil }

func (m *mockStationRepo) GetByID(ctx context.Context, id string) (*domain.RepairStation, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, ports.ErrNotFound
}

func (m *mockStationRepo) List(ctx context.Context, limit, offset int) ([]domain.RepairStation, int, error) {
	if m.listFn != nil {
		return m.listFn(ctx, limit, offset)
	}
	return nil, 0, nil
}

func (m *mockStationRepo) FindNearby(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.RepairStationRow, error) {
	if m.findNearbyFn != nil {
		return m.findNearbyFn(ctx, lat, lon, radius, limit)
	}
	return nil, nil
}

func (m *mockStationRepo) All(ctx context.Context) ([]domain.RepairStationRow, error) {
	if m.allFn != nil {
		return m.allFn(ctx)
	}
	return nil, nil
}

func (m *mockStationRepo) SetAvailability(ctx context.Context, id string, available bool) error {
	if m.setAvailabilityFn != nil {
		return m.setAvailabilityFn(ctx, id, available)
	}
	return nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu      sync.Mutex
	reports []domain.AvailabilityReport
	updates []domain.MarkerUpdated
	deleted []domain.AccountDeleted
}

func (m *mockPublisher) PublishAvailabilityReport(ctx context.Context, r *domain.AvailabilityReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, *r)
	return nil
}

func (m *mockPublisher) PublishMarkerUpdated(ctx context.Context, u *domain.MarkerUpdated) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, *u)
	return nil
}

func (m *mockPublisher) PublishAccountDeleted(ctx context.Context, e *domain.AccountDeleted) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, *e)
	return nil
}

// --- Fake cache ---

type fakeCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string][]byte)}
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if data, ok := c.entries[key]; ok {
		return data, nil
	}
	return nil, errors.New("cache miss")
}

func (c *fakeCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	c.deleted = append(c.deleted, key)
	return nil
}

func rowLatLon(lat, lon float64) (*float64, *float64) { return &lat, &lon }

// --- Tests ---

func TestMarkerService_FindNearby_MergesAndSorts(t *testing.T) {
	d1, d2, d3 := 500.0, 100.0, 900.0
	spots := &mockSpotRepo{
		findNearbyFn: func(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.ParkingSpotRow, error) {
			la, lo := rowLatLon(46.2488, 20.1482)
			return []domain.ParkingSpotRow{
				{ID: "ps-1", Name: "Dóm tér rack", Lat: la, Lon: lo, DistanceMeters: &d1},
			}, nil
		},
	}
	stations := &mockStationRepo{
		findNearbyFn: func(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.RepairStationRow, error) {
			la, lo := rowLatLon(46.2531, 20.1477)
			la2, lo2 := rowLatLon(46.2411, 20.1441)
			return []domain.RepairStationRow{
				{ID: "rs-1", Name: "Széchenyi pump", Lat: la, Lon: lo, DistanceMeters: &d2},
				{ID: "rs-2", Name: "Station stand", Lat: la2, Lon: lo2, DistanceMeters: &d3},
			}, nil
		},
	}

	svc := usecases.NewMarkerService(spots, stations, nil, nil)
	markers, err := svc.FindNearby(context.Background(), 46.2530, 20.1484, 1000, 10, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(markers) != 3 {
		t.Fatalf("expected 3 markers, got %d", len(markers))
	}
	if markers[0].ID != "rs-1" || markers[1].ID != "ps-1" || markers[2].ID != "rs-2" {
		t.Errorf("not sorted by distance: %s, %s, %s", markers[0].ID, markers[1].ID, markers[2].ID)
	}
}

func TestMarkerService_FindNearby_KindFilterSkipsRepo(t *testing.T) {
	stationsCalled := false
	spots := &mockSpotRepo{
		findNearbyFn: func(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.ParkingSpotRow, error) {
			la, lo := rowLatLon(46.2488, 20.1482)
			return []domain.ParkingSpotRow{{ID: "ps-1", Name: "Rack", Lat: la, Lon: lo}}, nil
		},
	}
	stations := &mockStationRepo{
		findNearbyFn: func(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.RepairStationRow, error) {
			stationsCalled = true
			return nil, nil
		},
	}

	svc := usecases.NewMarkerService(spots, stations, nil, nil)
	markers, err := svc.FindNearby(context.Background(), 46.2530, 20.1484, 1000, 10, []domain.MarkerKind{domain.MarkerParking})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stationsCalled {
		t.Error("station repo queried although only parking was requested")
	}
	if len(markers) != 1 || markers[0].Kind != domain.MarkerParking {
		t.Errorf("unexpected markers: %+v", markers)
	}
}

func TestMarkerService_FindNearby_ServiceKindFilter(t *testing.T) {
	stations := &mockStationRepo{
		findNearbyFn: func(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.RepairStationRow, error) {
			la, lo := rowLatLon(46.2531, 20.1477)
			la2, lo2 := rowLatLon(46.2541, 20.1399)
			return []domain.RepairStationRow{
				{ID: "rs-1", Name: "Pump stand", StationType: "repair", Lat: la, Lon: lo},
				{ID: "shop-1", Name: "Bringaszerviz", StationType: "service", Lat: la2, Lon: lo2},
			}, nil
		},
	}

	svc := usecases.NewMarkerService(&mockSpotRepo{}, stations, nil, nil)
	markers, err := svc.FindNearby(context.Background(), 46.2530, 20.1484, 1000, 10, []domain.MarkerKind{domain.MarkerBicycleService})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(markers) != 1 || markers[0].ID != "shop-1" || markers[0].Kind != domain.MarkerBicycleService {
		t.Errorf("expected only the service shop, got %+v", markers)
	}
}

func TestMarkerService_FindNearby_InvalidCoordinates(t *testing.T) {
	svc := usecases.NewMarkerService(&mockSpotRepo{}, &mockStationRepo{}, nil, nil)
	if _, err := svc.FindNearby(context.Background(), 95.0, 20.0, 1000, 10, nil); err == nil {
		t.Error("expected error for latitude out of range")
	}
}

func TestMarkerService_FindNearby_ClampsLimitAndRadius(t *testing.T) {
	spots := &mockSpotRepo{
		findNearbyFn: func(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.ParkingSpotRow, error) {
			if limit != 50 {
				t.Errorf("expected limit clamped to 50, got %d", limit)
			}
			if radius != 10000 {
				t.Errorf("expected radius clamped to 10000, got %v", radius)
			}
			return nil, nil
		},
	}
	svc := usecases.NewMarkerService(spots, &mockStationRepo{}, nil, nil)
	_, _ = svc.FindNearby(context.Background(), 46.25, 20.15, 99999, 999, []domain.MarkerKind{domain.MarkerParking})
}

func TestMarkerService_FindNearby_DropsBadRows(t *testing.T) {
	spots := &mockSpotRepo{
		findNearbyFn: func(ctx context.Context, lat, lon, radius float64, limit int) ([]domain.ParkingSpotRow, error) {
			la, lo := rowLatLon(46.2488, 20.1482)
			return []domain.ParkingSpotRow{
				{ID: "good", Name: "Rack", Lat: la, Lon: lo},
				{ID: "", Name: "No id", Lat: la, Lon: lo},
				{ID: "bad-loc", Name: "Nowhere"},
			}, nil
		},
	}
	svc := usecases.NewMarkerService(spots, &mockStationRepo{}, nil, nil)
	markers, err := svc.FindNearby(context.Background(), 46.25, 20.15, 1000, 10, []domain.MarkerKind{domain.MarkerParking})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(markers) != 1 || markers[0].ID != "good" {
		t.Errorf("bad rows must be dropped, got %+v", markers)
	}
}

func TestMarkerService_All_DecodesWKB(t *testing.T) {
	spots := &mockSpotRepo{
		allFn: func(ctx context.Context) ([]domain.ParkingSpotRow, error) {
			return []domain.ParkingSpotRow{
				{ID: "ps-1", Name: "Anna-kút stand", LocationWKB: geospatial.EncodePointHex(46.25566, 20.14851)},
			}, nil
		},
	}
	stations := &mockStationRepo{
		allFn: func(ctx context.Context) ([]domain.RepairStationRow, error) {
			return []domain.RepairStationRow{
				{ID: "rs-1", Name: "Dóm tér pump", StationType: "repair", LocationWKB: geospatial.EncodePointHex(46.24877, 20.14824)},
			}, nil
		},
	}

	svc := usecases.NewMarkerService(spots, stations, nil, nil)
	markers, err := svc.All(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(markers) != 2 {
		t.Fatalf("expected 2 markers, got %d", len(markers))
	}
	// Sorted by name: Anna-kút before Dóm tér.
	if markers[0].ID != "ps-1" || markers[1].ID != "rs-1" {
		t.Errorf("unexpected order: %s, %s", markers[0].ID, markers[1].ID)
	}
	if markers[0].Coordinate.Lat == 0 || markers[1].Coordinate.Lat == 0 {
		t.Error("WKB locations not decoded")
	}
	if markers[0].Distance != nil {
		t.Error("get-all markers must not carry a distance")
	}
}

func TestMarkerService_All_UsesCache(t *testing.T) {
	calls := 0
	spots := &mockSpotRepo{
		allFn: func(ctx context.Context) ([]domain.ParkingSpotRow, error) {
			calls++
			return []domain.ParkingSpotRow{
				{ID: "ps-1", Name: "Rack", LocationWKB: geospatial.EncodePointHex(46.25, 20.15)},
			}, nil
		},
	}
	cache := newFakeCache()
	svc := usecases.NewMarkerService(spots, &mockStationRepo{}, cache, nil)

	if _, err := svc.All(context.Background(), []domain.MarkerKind{domain.MarkerParking}); err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if _, err := svc.All(context.Background(), []domain.MarkerKind{domain.MarkerParking}); err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("repo called %d times, want 1 (second hit must come from cache)", calls)
	}
}

func TestMarkerService_ReportAvailability(t *testing.T) {
	pub := &mockPublisher{}
	svc := usecases.NewMarkerService(&mockSpotRepo{}, &mockStationRepo{}, nil, pub)

	report := &domain.AvailabilityReport{Kind: domain.MarkerParking, MarkerID: "ps-1", Available: false}
	if err := svc.ReportAvailability(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pub.reports) != 1 {
		t.Fatalf("expected 1 published report, got %d", len(pub.reports))
	}
	if pub.reports[0].At.IsZero() {
		t.Error("report timestamp not filled in")
	}
}

func TestMarkerService_ReportAvailability_NoPublisher(t *testing.T) {
	svc := usecases.NewMarkerService(&mockSpotRepo{}, &mockStationRepo{}, nil, nil)
	report := &domain.AvailabilityReport{Kind: domain.MarkerParking, MarkerID: "ps-1"}
	if err := svc.ReportAvailability(context.Background(), report); err == nil {
		t.Error("expected error when no publisher is configured")
	}
}

func TestMarkerService_ReportAvailability_RejectsBadKind(t *testing.T) {
	svc := usecases.NewMarkerService(&mockSpotRepo{}, &mockStationRepo{}, nil, &mockPublisher{})
	report := &domain.AvailabilityReport{Kind: "scooter", MarkerID: "x"}
	if err := svc.ReportAvailability(context.Background(), report); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestMarkerService_ApplyAvailability(t *testing.T) {
	var gotID string
	var gotAvailable bool
	spots := &mockSpotRepo{
		setAvailabilityFn: func(ctx context.Context, id string, available bool) error {
			gotID, gotAvailable = id, available
			return nil
		},
	}
	pub := &mockPublisher{}
	cache := newFakeCache()
	svc := usecases.NewMarkerService(spots, &mockStationRepo{}, cache, pub)

	report := &domain.AvailabilityReport{Kind: domain.MarkerParking, MarkerID: "ps-1", Available: false}
	if err := svc.ApplyAvailability(context.Background(), report); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotID != "ps-1" || gotAvailable {
		t.Errorf("repo got (%s, %v), want (ps-1, false)", gotID, gotAvailable)
	}
	if len(pub.updates) != 1 || pub.updates[0].MarkerID != "ps-1" {
		t.Errorf("marker update not broadcast: %+v", pub.updates)
	}
	found := false
	for _, key := range cache.deleted {
		if key == "spots:id:ps-1" {
			found = true
		}
	}
	if !found {
		t.Errorf("spot cache entry not invalidated, deleted: %v", cache.deleted)
	}
}

func TestMarkerService_ApplyAvailability_StationKinds(t *testing.T) {
	stationCalls := 0
	stations := &mockStationRepo{
		setAvailabilityFn: func(ctx context.Context, id string, available bool) error {
			stationCalls++
			return nil
		},
	}
	svc := usecases.NewMarkerService(&mockSpotRepo{}, stations, nil, nil)

	for _, kind := range []domain.MarkerKind{domain.MarkerRepairStation, domain.MarkerBicycleService} {
		report := &domain.AvailabilityReport{Kind: kind, MarkerID: "rs-1", Available: true}
		if err := svc.ApplyAvailability(context.Background(), report); err != nil {
			t.Fatalf("kind %s: unexpected error: %v", kind, err)
		}
	}
	if stationCalls != 2 {
		t.Errorf("station repo called %d times, want 2", stationCalls)
	}
}

func TestMarkerService_ApplyAvailability_UnknownMarker(t *testing.T) {
	spots := &mockSpotRepo{
		setAvailabilityFn: func(ctx context.Context, id string, available bool) error {
			return ports.ErrNotFound
		},
	}
	svc := usecases.NewMarkerService(spots, &mockStationRepo{}, nil, nil)
	report := &domain.AvailabilityReport{Kind: domain.MarkerParking, MarkerID: "ghost", Available: true}
	if err := svc.ApplyAvailability(context.Background(), report); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkerService_ParkingSpot_NotFoundPassthrough(t *testing.T) {
	svc := usecases.NewMarkerService(&mockSpotRepo{}, &mockStationRepo{}, nil, nil)
	if _, err := svc.ParkingSpot(context.Background(), "ghost"); !errors.Is(err, ports.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
