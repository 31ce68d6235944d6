//go:build integration
// +build integration

package http_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/parksafe/parksafe/internal/adapters/http"
	"github.com/parksafe/parksafe/internal/adapters/postgres"
	"github.com/parksafe/parksafe/internal/core/domain"
	"github.com/parksafe/parksafe/internal/core/usecases"
	"github.com/parksafe/parksafe/internal/pkg/auth"
	"github.com/parksafe/parksafe/internal/pkg/config"
)

// setupTestDB connects to the test database and returns a clean DB instance.
func setupTestDB(t *testing.T) *postgres.DB {
	cfg, err := config.Load("parksafe-test")
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	dsn := cfg.Database.DSN()
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}

	db := &postgres.DB{Pool: pool}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("ping db: %v", err)
	}

	return db
}

// setupTestDeps creates dependencies with real DB and repos, no cache.
func setupTestDeps(t *testing.T, db *postgres.DB) *http.Dependencies {
	spotRepo := postgres.NewSpotRepo(db)
	stationRepo := postgres.NewStationRepo(db)
	profileRepo := postgres.NewProfileRepo(db)
	feedbackRepo := postgres.NewFeedbackRepo(db)
	tokens := auth.New("integration-test-secret", time.Hour)

	return &http.Dependencies{
		Markers:  usecases.NewMarkerService(spotRepo, stationRepo, nil, nil),
		Accounts: usecases.NewAccountService(profileRepo, feedbackRepo, tokens, nil),
		Feedback: usecases.NewFeedbackService(feedbackRepo),
		Auth:     tokens,
		DB:       db,
	}
}

// seedTestSpot inserts a parking spot at the given coordinate.
func seedTestSpot(t *testing.T, db *postgres.DB, id, name string, lat, lon float64) {
	ctx := context.Background()
	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO parking_spots (id, name, location, capacity, covered, available)
		VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography, 10, false, true)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
	`, id, name, lon, lat); err != nil {
		t.Fatalf("seed parking spot: %v", err)
	}
}

// seedTestStation inserts a repair station at the given coordinate.
func seedTestStation(t *testing.T, db *postgres.DB, id, name string, lat, lon float64) {
	ctx := context.Background()
	if _, err := db.Pool.Exec(ctx, `
		INSERT INTO repair_stations (id, name, location, station_type, has_pump, has_tools, available)
		VALUES ($1, $2, ST_SetSRID(ST_MakePoint($3, $4), 4326)::geography, 'repair', true, true, true)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
	`, id, name, lon, lat); err != nil {
		t.Fatalf("seed repair station: %v", err)
	}
}

// TestListParkingSpots_Integration_WithRealDB lists spots against a real database.
func TestListParkingSpots_Integration_WithRealDB(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	// Seed test data near the Szeged city center
	seedTestSpot(t, db, "test-integ-spot-1", "Teszt tároló 1", 46.2530, 20.1484)
	seedTestSpot(t, db, "test-integ-spot-2", "Teszt tároló 2", 46.2540, 20.1490)

	deps := setupTestDeps(t, db)
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/parking-spots", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var result struct {
		Data       []domain.ParkingSpot `json:"data"`
		Pagination struct{ Total int }  `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if result.Pagination.Total < 2 {
		t.Errorf("expected at least 2 parking spots, got %d", result.Pagination.Total)
	}
}

// TestGetRepairStation_Integration looks up a station against a real database.
func TestGetRepairStation_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	id := "test-integ-" + time.Now().Format("20060102150405")
	seedTestStation(t, db, id, "Teszt szervizoszlop", 46.2489, 20.1483)

	deps := setupTestDeps(t, db)
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/repair-stations/"+id, nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var station domain.RepairStation
	if err := json.NewDecoder(resp.Body).Decode(&station); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if station.ID != id {
		t.Errorf("expected id %s, got %s", id, station.ID)
	}
	if station.StationType != domain.StationRepair {
		t.Errorf("expected repair station, got %s", station.StationType)
	}
}

// TestNearbyMarkers_Integration runs the geospatial query against a real database.
func TestNearbyMarkers_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	db := setupTestDB(t)
	defer db.Pool.Close()

	// Szeged city center: 46.2530, 20.1484
	seedTestSpot(t, db, "test-integ-nearby", "Teszt tároló a Tisza-parton", 46.2530, 20.1484)

	deps := setupTestDeps(t, db)
	app := setupApp(deps)

	req := httptest.NewRequest("GET", "/v1/markers/nearby?lat=46.2530&lon=20.1484&radius=5000", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("test request: %v", err)
	}

	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var markers []domain.Marker
	if err := json.NewDecoder(resp.Body).Decode(&markers); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if len(markers) == 0 {
		t.Error("expected at least 1 nearby marker, got 0")
	}
}
