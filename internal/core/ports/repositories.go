package ports

import (
	"context"
	"errors"

	"github.com/parksafe/parksafe/internal/core/domain"
)

// Sentinel errors adapters translate their storage errors into, so the
// HTTP layer can map them to statuses without knowing the driver.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// ParkingSpotRepository persists parking spots.
type ParkingSpotRepository interface {
	Upsert(ctx context.Context, spot *domain.ParkingSpot) error
	UpsertBatch(ctx context.Context, spots []domain.ParkingSpot) error
	GetByID(ctx context.Context, id string) (*domain.ParkingSpot, error)
	List(ctx context.Context, limit, offset int) ([]domain.ParkingSpot, int, error)
	// FindNearby returns raw rows with split lat/lon columns and a
	// computed distance, ordered nearest first.
	FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.ParkingSpotRow, error)
	// All returns raw rows carrying the location as hex WKB.
	All(ctx context.Context) ([]domain.ParkingSpotRow, error)
	SetAvailability(ctx context.Context, id string, available bool) error
}

// RepairStationRepository persists repair stations and service shops.
type RepairStationRepository interface {
	Upsert(ctx context.Context, station *domain.RepairStation) error
	UpsertBatch(ctx context.Context, stations []domain.RepairStation) error
	GetByID(ctx context.Context, id string) (*domain.RepairStation, error)
	List(ctx context.Context, limit, offset int) ([]domain.RepairStation, int, error)
	FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.RepairStationRow, error)
	All(ctx context.Context) ([]domain.RepairStationRow, error)
	SetAvailability(ctx context.Context, id string, available bool) error
}

// ProfileRepository persists user accounts.
type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) error
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)
	Update(ctx context.Context, id string, patch domain.ProfilePatch) (*domain.Profile, error)
	// UsernameExists matches case-insensitively.
	UsernameExists(ctx context.Context, username string) (bool, error)
	SetActive(ctx context.Context, id string, active bool) error
	Delete(ctx context.Context, id string) error
}

// FeedbackRepository persists user feedback.
type FeedbackRepository interface {
	Insert(ctx context.Context, fb *domain.Feedback) error
	ListByUser(ctx context.Context, userID string) ([]domain.Feedback, error)
	// DeleteByUser removes all feedback rows of a user and reports how
	// many were removed.
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}
