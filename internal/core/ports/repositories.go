package ports

import (
	"context"
	"time"

	"github.com/safezone-app/safezone/internal/core/domain"
)

// ZoneRepository persists alert zones.
type ZoneRepository interface {
	// ReplaceAll swaps the stored zone list for zones, keeping their order.
	ReplaceAll(ctx context.Context, zones []domain.AlertZone) error
	// List returns every zone in source order.
	List(ctx context.Context) ([]domain.AlertZone, error)
	GetByCode(ctx context.Context, code string) (*domain.AlertZone, error)
}

// ShelterRepository persists public shelters.
type ShelterRepository interface {
	UpsertBatch(ctx context.Context, shelters []domain.Shelter) error
	// InBounds returns shelters whose location lies inside b.
	InBounds(ctx context.Context, b domain.Bounds) ([]domain.Shelter, error)
}

// HospitalRepository persists hospitals.
type HospitalRepository interface {
	UpsertBatch(ctx context.Context, hospitals []domain.Hospital) error
	InBounds(ctx context.Context, b domain.Bounds) ([]domain.Hospital, error)
}

// AlertRepository persists the alert log.
type AlertRepository interface {
	// InsertNew stores alerts that are not yet known and returns only those.
	InsertNew(ctx context.Context, alerts []domain.Alert) ([]domain.Alert, error)
	// Since returns alerts issued at or after t, newest first.
	Since(ctx context.Context, t time.Time, limit int) ([]domain.Alert, error)
	ActiveForZone(ctx context.Context, zoneCode string, since time.Time) ([]domain.Alert, error)
}
