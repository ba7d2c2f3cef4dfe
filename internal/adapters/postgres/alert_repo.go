package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/safezone-app/safezone/internal/core/domain"
)

// AlertRepo implements ports.AlertRepository with pgx.
type AlertRepo struct {
	db *DB
}

// NewAlertRepo creates a new AlertRepo.
func NewAlertRepo(db *DB) *AlertRepo {
	return &AlertRepo{db: db}
}

// InsertNew stores alerts whose ID is not yet known and returns those, in
// input order.
func (r *AlertRepo) InsertNew(ctx context.Context, alerts []domain.Alert) ([]domain.Alert, error) {
	batch := &pgx.Batch{}
	for _, a := range alerts {
		batch.Queue(`
			INSERT INTO alerts (id, category, title, zone_codes, cities, issued_at)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO NOTHING
		`, a.ID, a.Category, a.Title, nonNil(a.ZoneCodes), nonNil(a.Cities), a.IssuedAt)
	}
	br := r.db.Pool.SendBatch(ctx, batch)
	defer br.Close()

	var fresh []domain.Alert
	for _, a := range alerts {
		tag, err := br.Exec()
		if err != nil {
			return nil, fmt.Errorf("batch exec: %w", err)
		}
		if tag.RowsAffected() == 1 {
			fresh = append(fresh, a)
		}
	}
	return fresh, nil
}

// Since returns alerts issued at or after t, newest first.
func (r *AlertRepo) Since(ctx context.Context, t time.Time, limit int) ([]domain.Alert, error) {
	return r.query(ctx, `
		SELECT id, category, title, zone_codes, cities, issued_at
		FROM alerts
		WHERE issued_at >= $1
		ORDER BY issued_at DESC
		LIMIT $2
	`, t, limit)
}

// ActiveForZone returns alerts for zoneCode issued at or after since.
func (r *AlertRepo) ActiveForZone(ctx context.Context, zoneCode string, since time.Time) ([]domain.Alert, error) {
	return r.query(ctx, `
		SELECT id, category, title, zone_codes, cities, issued_at
		FROM alerts
		WHERE $1 = ANY(zone_codes) AND issued_at >= $2
		ORDER BY issued_at DESC
	`, zoneCode, since)
}

func (r *AlertRepo) query(ctx context.Context, sql string, args ...any) ([]domain.Alert, error) {
	rows, err := r.db.Pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []domain.Alert
	for rows.Next() {
		var a domain.Alert
		if err := rows.Scan(&a.ID, &a.Category, &a.Title, &a.ZoneCodes, &a.Cities, &a.IssuedAt); err != nil {
			return nil, err
		}
		a.IssuedAt = a.IssuedAt.UTC()
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
