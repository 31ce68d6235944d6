// Command simulator seeds a synthetic Szeged marker set and publishes
// randomized availability reports, standing in for real crowd traffic on
// dev and staging environments.
package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	natsadapter "github.com/parksafe/parksafe/internal/adapters/nats"
	"github.com/parksafe/parksafe/internal/adapters/postgres"
	"github.com/parksafe/parksafe/internal/core/domain"
	"github.com/parksafe/parksafe/internal/pkg/config"
)

// Szeged city center; synthetic markers scatter around it.
const (
	centerLat = 46.2530
	centerLon = 20.1484
)

var streets = []string{
	"Dóm tér", "Széchenyi tér", "Dugonics tér", "Mars tér", "Honvéd tér",
	"Aradi vértanúk tere", "Kárász utca", "Oskola utca", "Kelemen utca",
	"Kígyó utca", "Kölcsey utca", "Tisza Lajos körút", "Boldogasszony sugárút",
	"Petőfi Sándor sugárút", "Kálvária sugárút", "Csongrádi sugárút",
	"Berlini körút", "Londoni körút", "Párizsi körút", "Bécsi körút",
	"Római körút", "Felső Tisza-part",
}

func main() {
	cfg, err := config.Load("parksafe-simulator")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer pub.Close()

	// Fixed seed keeps the synthetic map stable across restarts.
	placer := rand.New(rand.NewSource(4626))

	spots := makeSpots(cfg.Simulator.SpotCount, placer)
	stations := makeStations(cfg.Simulator.StationCount, placer)

	spotRepo := postgres.NewSpotRepo(db)
	stationRepo := postgres.NewStationRepo(db)

	if err := spotRepo.UpsertBatch(ctx, spots); err != nil {
		log.Fatalf("seed spots: %v", err)
	}
	if err := stationRepo.UpsertBatch(ctx, stations); err != nil {
		log.Fatalf("seed stations: %v", err)
	}
	log.Printf("ParkSafe simulator — seeded %d spots, %d stations around Szeged", len(spots), len(stations))

	interval := time.Duration(cfg.Simulator.ReportInterval) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log.Printf("publishing %d reports every %s", cfg.Simulator.ReportBatchSize, interval)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	flipper := rand.New(rand.NewSource(time.Now().UnixNano()))

	// Run once immediately
	publishBatch(ctx, pub, flipper, spots, stations, cfg.Simulator.ReportBatchSize)

	for {
		select {
		case <-ticker.C:
			publishBatch(ctx, pub, flipper, spots, stations, cfg.Simulator.ReportBatchSize)
		case sig := <-quit:
			log.Printf("received signal %v, shutting down simulator", sig)
			cancel()
			return
		}
	}
}

// ---------------------------------------------------------------------------
// Synthetic marker generation
// ---------------------------------------------------------------------------

func makeSpots(n int, r *rand.Rand) []domain.ParkingSpot {
	spots := make([]domain.ParkingSpot, 0, n)
	for i := 0; i < n; i++ {
		street := streets[i%len(streets)]
		spots = append(spots, domain.ParkingSpot{
			ID:          fmt.Sprintf("sim-spot-%03d", i+1),
			Name:        fmt.Sprintf("%s kerékpártároló %d", street, i/len(streets)+1),
			Description: "Szimulált tároló",
			Location:    scatter(r),
			Capacity:    4 + r.Intn(17),
			Covered:     r.Float64() < 0.3,
			Available:   true,
		})
	}
	return spots
}

func makeStations(n int, r *rand.Rand) []domain.RepairStation {
	stations := make([]domain.RepairStation, 0, n)
	for i := 0; i < n; i++ {
		street := streets[(i*3)%len(streets)]
		st := domain.RepairStation{
			ID:        fmt.Sprintf("sim-station-%03d", i+1),
			Location:  scatter(r),
			Available: true,
		}
		// Roughly one shop for every three public stands
		if i%4 == 3 {
			st.Name = fmt.Sprintf("Bringaszerviz %s", street)
			st.Description = "Szimulált szerviz"
			st.StationType = domain.StationService
			st.HasPump = true
			st.HasTools = true
		} else {
			st.Name = fmt.Sprintf("%s szervizoszlop", street)
			st.Description = "Szimulált szervizoszlop"
			st.StationType = domain.StationRepair
			st.HasPump = r.Float64() < 0.9
			st.HasTools = r.Float64() < 0.8
		}
		stations = append(stations, st)
	}
	return stations
}

// scatter places a point within roughly 2 km of the city center.
func scatter(r *rand.Rand) domain.GeoPoint {
	return domain.GeoPoint{
		Lat: centerLat + (r.Float64()-0.5)*0.036,
		Lon: centerLon + (r.Float64()-0.5)*0.052,
	}
}

// ---------------------------------------------------------------------------
// Availability reports
// ---------------------------------------------------------------------------

func publishBatch(ctx context.Context, pub *natsadapter.Publisher, r *rand.Rand, spots []domain.ParkingSpot, stations []domain.RepairStation, batchSize int) {
	published := 0
	for i := 0; i < batchSize; i++ {
		report := &domain.AvailabilityReport{
			ReporterID: "simulator",
			At:         time.Now(),
		}
		// Spots flip more often than stations, and mostly report "free"
		if r.Float64() < 0.8 {
			s := spots[r.Intn(len(spots))]
			report.MarkerID = s.ID
			report.Kind = domain.MarkerParking
			report.Available = r.Float64() < 0.7
		} else {
			st := stations[r.Intn(len(stations))]
			report.MarkerID = st.ID
			report.Kind = domain.MarkerRepairStation
			if st.StationType == domain.StationService {
				report.Kind = domain.MarkerBicycleService
			}
			report.Available = r.Float64() < 0.9
		}
		if err := pub.PublishAvailabilityReport(ctx, report); err != nil {
			log.Printf("publish report %s: %v", report.MarkerID, err)
			continue
		}
		published++
	}
	if published > 0 {
		log.Printf("published %d availability reports", published)
	}
}
