package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/parksafe/parksafe/internal/core/domain"
	"github.com/parksafe/parksafe/internal/core/ports"
)

// SpotRepo implements ports.ParkingSpotRepository with pgx.
type SpotRepo struct {
	db *DB
}

// NewSpotRepo creates a new SpotRepo.
func NewSpotRepo(db *DB) *SpotRepo {
	return &SpotRepo{db: db}
}

// Upsert inserts or updates a single parking spot.
func (r *SpotRepo) Upsert(ctx context.Context, s *domain.ParkingSpot) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO parking_spots (id, name, description, location, capacity, covered, available)
		VALUES ($1, $2, $3, ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, description = EXCLUDED.description,
		    location = EXCLUDED.location, capacity = EXCLUDED.capacity,
		    covered = EXCLUDED.covered, available = EXCLUDED.available,
		    updated_at = now()
	`, s.ID, s.Name, s.Description, s.Location.Lon, s.Location.Lat,
		s.Capacity, s.Covered, s.Available)
	return translateErr(err)
}

// UpsertBatch inserts many parking spots using pgx.Batch.
func (r *SpotRepo) UpsertBatch(ctx context.Context, spots []domain.ParkingSpot) error {
	batch := &pgx.Batch{}
	for _, s := range spots {
		batch.Queue(`
			INSERT INTO parking_spots (id, name, description, location, capacity, covered, available)
			VALUES ($1, $2, $3, ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, location = EXCLUDED.location,
			    capacity = EXCLUDED.capacity, covered = EXCLUDED.covered,
			    available = EXCLUDED.available, updated_at = now()
		`, s.ID, s.Name, s.Description, s.Location.Lon, s.Location.Lat,
			s.Capacity, s.Covered, s.Available)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range spots {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// GetByID returns a parking spot by UUID.
func (r *SpotRepo) GetByID(ctx context.Context, id string) (*domain.ParkingSpot, error) {
	var s domain.ParkingSpot
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(description, ''),
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       capacity, covered, available, created_at, updated_at
		FROM parking_spots WHERE id = $1
	`, id).Scan(
		&s.ID, &s.Name, &s.Description,
		&s.Location.Lat, &s.Location.Lon,
		&s.Capacity, &s.Covered, &s.Available, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, translateErr(err)
	}
	return &s, nil
}

// List returns a page of parking spots ordered by name, with the total count.
func (r *SpotRepo) List(ctx context.Context, limit, offset int) ([]domain.ParkingSpot, int, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, name, COALESCE(description, ''),
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       capacity, covered, available, created_at, updated_at,
		       count(*) OVER() as total
		FROM parking_spots
		ORDER BY name, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var spots []domain.ParkingSpot
	var total int
	for rows.Next() {
		var s domain.ParkingSpot
		if err := rows.Scan(
			&s.ID, &s.Name, &s.Description,
			&s.Location.Lat, &s.Location.Lon,
			&s.Capacity, &s.Covered, &s.Available, &s.CreatedAt, &s.UpdatedAt,
			&total,
		); err != nil {
			return nil, 0, err
		}
		spots = append(spots, s)
	}
	return spots, total, rows.Err()
}

// FindNearby returns raw rows within radiusMeters using PostGIS
// ST_DWithin, nearest first. Coordinates come back as split columns.
func (r *SpotRepo) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.ParkingSpotRow, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, name, COALESCE(description, ''),
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       capacity, covered, available,
		       ST_Distance(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) as distance_meters,
		       updated_at
		FROM parking_spots
		WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		ORDER BY distance_meters
		LIMIT $4
	`, lon, lat, radiusMeters, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ParkingSpotRow
	for rows.Next() {
		var row domain.ParkingSpotRow
		if err := rows.Scan(
			&row.ID, &row.Name, &row.Description,
			&row.Lat, &row.Lon,
			&row.Capacity, &row.Covered, &row.Available,
			&row.DistanceMeters, &row.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// All returns every parking spot as a raw row. The location comes back
// as hex EWKB (location::text), decoded during normalization.
func (r *SpotRepo) All(ctx context.Context) ([]domain.ParkingSpotRow, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, name, COALESCE(description, ''),
		       location::text as location,
		       capacity, covered, available, updated_at
		FROM parking_spots
		ORDER BY name, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ParkingSpotRow
	for rows.Next() {
		var row domain.ParkingSpotRow
		if err := rows.Scan(
			&row.ID, &row.Name, &row.Description,
			&row.LocationWKB,
			&row.Capacity, &row.Covered, &row.Available, &row.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// SetAvailability flips the availability flag of one spot.
func (r *SpotRepo) SetAvailability(ctx context.Context, id string, available bool) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE parking_spots SET available = $2, updated_at = now() WHERE id = $1
	`, id, available)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// translateErr maps driver errors to the port sentinels.
func translateErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ports.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ports.ErrConflict
	}
	return err
}
