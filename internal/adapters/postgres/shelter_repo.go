package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/safezone-app/safezone/internal/core/domain"
)

// ShelterRepo implements ports.ShelterRepository with pgx.
type ShelterRepo struct {
	db *DB
}

// NewShelterRepo creates a new ShelterRepo.
func NewShelterRepo(db *DB) *ShelterRepo {
	return &ShelterRepo{db: db}
}

// UpsertBatch inserts many shelters using pgx.Batch. Shelters must already
// carry a finite Location; grid coordinates are kept for reference.
func (r *ShelterRepo) UpsertBatch(ctx context.Context, shelters []domain.Shelter) error {
	batch := &pgx.Batch{}
	for _, s := range shelters {
		var easting, northing *float64
		if s.Projected != nil {
			easting, northing = &s.Projected.Easting, &s.Projected.Northing
		}
		batch.Queue(`
			INSERT INTO shelters (id, name, address, kind, capacity, accessible, lat, lon, easting, northing, updated_at)
			VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, address = EXCLUDED.address, kind = EXCLUDED.kind,
			    capacity = EXCLUDED.capacity, accessible = EXCLUDED.accessible,
			    lat = EXCLUDED.lat, lon = EXCLUDED.lon,
			    easting = EXCLUDED.easting, northing = EXCLUDED.northing,
			    updated_at = EXCLUDED.updated_at
		`, s.ID, s.Name, s.Address, s.Kind, s.Capacity, s.Accessible,
			s.Location.Lat, s.Location.Lon, easting, northing, s.UpdatedAt)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range shelters {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// InBounds returns shelters inside b. Distance filtering happens in Go.
func (r *ShelterRepo) InBounds(ctx context.Context, b domain.Bounds) ([]domain.Shelter, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, COALESCE(name, ''), COALESCE(address, ''), COALESCE(kind, ''),
		       capacity, accessible, lat, lon, easting, northing, updated_at
		FROM shelters
		WHERE lat BETWEEN $1 AND $3 AND lon BETWEEN $2 AND $4
		ORDER BY id
	`, b.MinLat, b.MinLon, b.MaxLat, b.MaxLon)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shelters []domain.Shelter
	for rows.Next() {
		var s domain.Shelter
		var easting, northing *float64
		if err := rows.Scan(
			&s.ID, &s.Name, &s.Address, &s.Kind,
			&s.Capacity, &s.Accessible, &s.Location.Lat, &s.Location.Lon,
			&easting, &northing, &s.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if easting != nil && northing != nil {
			s.Projected = &domain.ProjectedPoint{Easting: *easting, Northing: *northing}
		}
		shelters = append(shelters, s)
	}
	return shelters, rows.Err()
}
