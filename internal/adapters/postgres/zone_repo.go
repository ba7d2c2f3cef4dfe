package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/safezone-app/safezone/internal/core/domain"
)

// ZoneRepo implements ports.ZoneRepository with pgx.
type ZoneRepo struct {
	db *DB
}

// NewZoneRepo creates a new ZoneRepo.
func NewZoneRepo(db *DB) *ZoneRepo {
	return &ZoneRepo{db: db}
}

const zoneColumns = `id, code, COALESCE(name, ''), COALESCE(city, ''), lat, lon, shelter_seconds`

func scanZone(row pgx.Row, z *domain.AlertZone) error {
	return row.Scan(&z.ID, &z.Code, &z.Name, &z.City, &z.Point.Lat, &z.Point.Lon, &z.ShelterSeconds)
}

// ReplaceAll swaps the zone table for zones in one transaction. position
// records the upstream order, which zone resolution depends on.
func (r *ZoneRepo) ReplaceAll(ctx context.Context, zones []domain.AlertZone) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM alert_zones`); err != nil {
		return fmt.Errorf("clear zones: %w", err)
	}

	batch := &pgx.Batch{}
	for i, z := range zones {
		batch.Queue(`
			INSERT INTO alert_zones (id, code, name, city, lat, lon, shelter_seconds, position)
			VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5, $6, $7, $8)
			ON CONFLICT (code) DO NOTHING
		`, z.ID, z.Code, z.Name, z.City, z.Point.Lat, z.Point.Lon, z.ShelterSeconds, i)
	}
	br := tx.SendBatch(ctx, batch)
	for range zones {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("batch exec: %w", err)
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("batch close: %w", err)
	}

	return tx.Commit(ctx)
}

// List returns every zone in upstream order.
func (r *ZoneRepo) List(ctx context.Context) ([]domain.AlertZone, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT `+zoneColumns+` FROM alert_zones ORDER BY position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var zones []domain.AlertZone
	for rows.Next() {
		var z domain.AlertZone
		if err := scanZone(rows, &z); err != nil {
			return nil, err
		}
		zones = append(zones, z)
	}
	return zones, rows.Err()
}

// GetByCode returns a single zone.
func (r *ZoneRepo) GetByCode(ctx context.Context, code string) (*domain.AlertZone, error) {
	var z domain.AlertZone
	err := scanZone(r.db.Pool.QueryRow(ctx, `SELECT `+zoneColumns+` FROM alert_zones WHERE code = $1`, code), &z)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &z, nil
}
