package postgres

import (
	"context"
	"database/sql"

	"github.com/parksafe/parksafe/internal/core/domain"
	"github.com/parksafe/parksafe/internal/core/ports"
)

// ProfileRepo implements ports.ProfileRepository.
type ProfileRepo struct {
	db *DB
}

func NewProfileRepo(db *DB) *ProfileRepo {
	return &ProfileRepo{db: db}
}

const profileColumns = `
	id, email, username, COALESCE(display_name, ''), COALESCE(avatar_url, ''),
	ST_Y(home_location::geometry) as home_lat,
	ST_X(home_location::geometry) as home_lon,
	password_hash, active, created_at, updated_at`

// Create inserts a new profile. Duplicate email or username comes back
// as ports.ErrConflict.
func (r *ProfileRepo) Create(ctx context.Context, p *domain.Profile) error {
	var homeLat, homeLon *float64
	if p.HomeLocation != nil {
		homeLat, homeLon = &p.HomeLocation.Lat, &p.HomeLocation.Lon
	}
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO profiles (id, email, username, display_name, avatar_url, home_location, password_hash, active)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''),
		        CASE WHEN $6::float8 IS NULL THEN NULL
		             ELSE ST_SetSRID(ST_MakePoint($7, $6), 4326)::geography END,
		        $8, $9)
	`, p.ID, p.Email, p.Username, p.DisplayName, p.AvatarURL,
		homeLat, homeLon, p.PasswordHash, p.Active)
	return translateErr(err)
}

func (r *ProfileRepo) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = $1`, id)
	return scanProfile(row)
}

func (r *ProfileRepo) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM profiles WHERE lower(email) = lower($1)`, email)
	return scanProfile(row)
}

// Update applies non-nil patch fields and returns the stored profile.
func (r *ProfileRepo) Update(ctx context.Context, id string, patch domain.ProfilePatch) (*domain.Profile, error) {
	var homeLat, homeLon *float64
	if patch.HomeLocation != nil {
		homeLat, homeLon = &patch.HomeLocation.Lat, &patch.HomeLocation.Lon
	}
	row := r.db.Pool.QueryRow(ctx, `
		UPDATE profiles
		SET display_name = COALESCE($2, display_name),
		    avatar_url = COALESCE($3, avatar_url),
		    home_location = CASE WHEN $4::float8 IS NULL THEN home_location
		                         ELSE ST_SetSRID(ST_MakePoint($5, $4), 4326)::geography END,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+profileColumns,
		id, patch.DisplayName, patch.AvatarURL, homeLat, homeLon)
	return scanProfile(row)
}

// UsernameExists matches case-insensitively.
func (r *ProfileRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM profiles WHERE lower(username) = lower($1))
	`, username).Scan(&exists)
	return exists, err
}

func (r *ProfileRepo) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE profiles SET active = $2, updated_at = now() WHERE id = $1
	`, id, active)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r *ProfileRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*domain.Profile, error) {
	p := &domain.Profile{}
	var homeLat, homeLon sql.NullFloat64
	err := row.Scan(
		&p.ID, &p.Email, &p.Username, &p.DisplayName, &p.AvatarURL,
		&homeLat, &homeLon,
		&p.PasswordHash, &p.Active, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, translateErr(err)
	}
	if homeLat.Valid && homeLon.Valid {
		p.HomeLocation = &domain.GeoPoint{Lat: homeLat.Float64, Lon: homeLon.Float64}
	}
	return p, nil
}
