package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/parksafe/parksafe/internal/core/domain"
	"github.com/parksafe/parksafe/internal/core/ports"
)

// StationRepo implements ports.RepairStationRepository with pgx.
type StationRepo struct {
	db *DB
}

// NewStationRepo creates a new StationRepo.
func NewStationRepo(db *DB) *StationRepo {
	return &StationRepo{db: db}
}

// Upsert inserts or updates a single repair station.
func (r *StationRepo) Upsert(ctx context.Context, s *domain.RepairStation) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO repair_stations (id, name, description, location, station_type, has_pump, has_tools, available)
		VALUES ($1, $2, $3, ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, description = EXCLUDED.description,
		    location = EXCLUDED.location, station_type = EXCLUDED.station_type,
		    has_pump = EXCLUDED.has_pump, has_tools = EXCLUDED.has_tools,
		    available = EXCLUDED.available, updated_at = now()
	`, s.ID, s.Name, s.Description, s.Location.Lon, s.Location.Lat,
		s.StationType, s.HasPump, s.HasTools, s.Available)
	return translateErr(err)
}

// UpsertBatch inserts many repair stations using pgx.Batch.
func (r *StationRepo) UpsertBatch(ctx context.Context, stations []domain.RepairStation) error {
	batch := &pgx.Batch{}
	for _, s := range stations {
		batch.Queue(`
			INSERT INTO repair_stations (id, name, description, location, station_type, has_pump, has_tools, available)
			VALUES ($1, $2, $3, ST_SetSRID(ST_MakePoint($4, $5), 4326)::geography, $6, $7, $8, $9)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, location = EXCLUDED.location,
			    station_type = EXCLUDED.station_type, available = EXCLUDED.available,
			    updated_at = now()
		`, s.ID, s.Name, s.Description, s.Location.Lon, s.Location.Lat,
			s.StationType, s.HasPump, s.HasTools, s.Available)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range stations {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// GetByID returns a repair station by UUID.
func (r *StationRepo) GetByID(ctx context.Context, id string) (*domain.RepairStation, error) {
	var s domain.RepairStation
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, name, COALESCE(description, ''),
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       station_type, has_pump, has_tools, available, created_at, updated_at
		FROM repair_stations WHERE id = $1
	`, id).Scan(
		&s.ID, &s.Name, &s.Description,
		&s.Location.Lat, &s.Location.Lon,
		&s.StationType, &s.HasPump, &s.HasTools, &s.Available, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, translateErr(err)
	}
	return &s, nil
}

// List returns a page of repair stations ordered by name, with the total count.
func (r *StationRepo) List(ctx context.Context, limit, offset int) ([]domain.RepairStation, int, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, name, COALESCE(description, ''),
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       station_type, has_pump, has_tools, available, created_at, updated_at,
		       count(*) OVER() as total
		FROM repair_stations
		ORDER BY name, id
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var stations []domain.RepairStation
	var total int
	for rows.Next() {
		var s domain.RepairStation
		if err := rows.Scan(
			&s.ID, &s.Name, &s.Description,
			&s.Location.Lat, &s.Location.Lon,
			&s.StationType, &s.HasPump, &s.HasTools, &s.Available, &s.CreatedAt, &s.UpdatedAt,
			&total,
		); err != nil {
			return nil, 0, err
		}
		stations = append(stations, s)
	}
	return stations, total, rows.Err()
}

// FindNearby returns raw rows within radiusMeters, nearest first.
func (r *StationRepo) FindNearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]domain.RepairStationRow, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, name, COALESCE(description, ''),
		       ST_Y(location::geometry) as lat,
		       ST_X(location::geometry) as lon,
		       station_type, has_pump, has_tools, available,
		       ST_Distance(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography) as distance_meters,
		       updated_at
		FROM repair_stations
		WHERE ST_DWithin(location, ST_SetSRID(ST_MakePoint($1, $2), 4326)::geography, $3)
		ORDER BY distance_meters
		LIMIT $4
	`, lon, lat, radiusMeters, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RepairStationRow
	for rows.Next() {
		var row domain.RepairStationRow
		if err := rows.Scan(
			&row.ID, &row.Name, &row.Description,
			&row.Lat, &row.Lon,
			&row.StationType, &row.HasPump, &row.HasTools, &row.Available,
			&row.DistanceMeters, &row.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// All returns every repair station as a raw row with hex EWKB location.
func (r *StationRepo) All(ctx context.Context) ([]domain.RepairStationRow, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, name, COALESCE(description, ''),
		       location::text as location,
		       station_type, has_pump, has_tools, available, updated_at
		FROM repair_stations
		ORDER BY name, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RepairStationRow
	for rows.Next() {
		var row domain.RepairStationRow
		if err := rows.Scan(
			&row.ID, &row.Name, &row.Description,
			&row.LocationWKB,
			&row.StationType, &row.HasPump, &row.HasTools, &row.Available, &row.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// SetAvailability flips the availability flag of one station.
func (r *StationRepo) SetAvailability(ctx context.Context, id string, available bool) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE repair_stations SET available = $2, updated_at = now() WHERE id = $1
	`, id, available)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}
