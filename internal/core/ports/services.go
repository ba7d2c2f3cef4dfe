package ports

import (
	"context"
	"time"

	"github.com/safezone-app/safezone/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishAlert(ctx context.Context, alert *domain.Alert) error
	PublishCountdownExpired(ctx context.Context, alertID, zoneCode string, deadline time.Time) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeAlerts(ctx context.Context, handler func(ctx context.Context, alert *domain.Alert) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// DeadlineStore keeps the shelter deadline per client session. A stored
// deadline only ever moves later.
type DeadlineStore interface {
	// Extend stores deadline if it is later than the current one and returns
	// the deadline in effect afterwards.
	Extend(ctx context.Context, session string, deadline time.Time) (time.Time, error)
	// Get returns the current deadline, or false when none is pending.
	Get(ctx context.Context, session string) (time.Time, bool, error)
}

// ZoneSource fetches the alert zone reference list from upstream.
type ZoneSource interface {
	FetchZones(ctx context.Context) ([]domain.AlertZone, error)
}

// ShelterSource fetches shelters from upstream.
type ShelterSource interface {
	FetchShelters(ctx context.Context) ([]domain.Shelter, error)
}

// HospitalSource fetches hospitals from upstream.
type HospitalSource interface {
	FetchHospitals(ctx context.Context) ([]domain.Hospital, error)
}

// AlertSource fetches the current alert feed from upstream.
type AlertSource interface {
	FetchAlerts(ctx context.Context) ([]domain.Alert, error)
}

// CountdownScheduler starts a durable shelter countdown for one zone of an alert.
type CountdownScheduler interface {
	ScheduleCountdown(ctx context.Context, alertID, zoneCode string, deadline time.Time) error
}
