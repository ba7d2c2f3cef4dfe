package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/safezone-app/safezone/internal/core/domain"
)

// HospitalRepo implements ports.HospitalRepository with pgx.
type HospitalRepo struct {
	db *DB
}

// NewHospitalRepo creates a new HospitalRepo.
func NewHospitalRepo(db *DB) *HospitalRepo {
	return &HospitalRepo{db: db}
}

// UpsertBatch inserts many hospitals using pgx.Batch.
func (r *HospitalRepo) UpsertBatch(ctx context.Context, hospitals []domain.Hospital) error {
	batch := &pgx.Batch{}
	for _, h := range hospitals {
		batch.Queue(`
			INSERT INTO hospitals (id, name, phone, city, emergency, lat, lon, updated_at)
			VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8)
			ON CONFLICT (id) DO UPDATE
			SET name = EXCLUDED.name, phone = EXCLUDED.phone, city = EXCLUDED.city,
			    emergency = EXCLUDED.emergency, lat = EXCLUDED.lat, lon = EXCLUDED.lon,
			    updated_at = EXCLUDED.updated_at
		`, h.ID, h.Name, h.Phone, h.City, h.Emergency, h.Location.Lat, h.Location.Lon, h.UpdatedAt)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()
	for range hospitals {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	return nil
}

// InBounds returns hospitals inside b.
func (r *HospitalRepo) InBounds(ctx context.Context, b domain.Bounds) ([]domain.Hospital, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, COALESCE(name, ''), COALESCE(phone, ''), COALESCE(city, ''),
		       emergency, lat, lon, updated_at
		FROM hospitals
		WHERE lat BETWEEN $1 AND $3 AND lon BETWEEN $2 AND $4
		ORDER BY id
	`, b.MinLat, b.MinLon, b.MaxLat, b.MaxLon)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hospitals []domain.Hospital
	for rows.Next() {
		var h domain.Hospital
		if err := rows.Scan(
			&h.ID, &h.Name, &h.Phone, &h.City,
			&h.Emergency, &h.Location.Lat, &h.Location.Lon, &h.UpdatedAt,
		); err != nil {
			return nil, err
		}
		hospitals = append(hospitals, h)
	}
	return hospitals, rows.Err()
}
