package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/safezone-app/safezone/internal/core/domain"
	"github.com/safezone-app/safezone/internal/core/ports"
	"github.com/safezone-app/safezone/internal/pkg/geospatial"
	"github.com/safezone-app/safezone/internal/pkg/metrics"
)

// DefaultActiveWindow is how long after issue an alert counts as active.
const DefaultActiveWindow = 10 * time.Minute

// AlertService handles the alert log and per-session shelter countdowns.
type AlertService struct {
	alerts    ports.AlertRepository
	zones     *ZoneService
	deadlines ports.DeadlineStore
	publisher ports.EventPublisher
	window    time.Duration
	now       func() time.Time
}

// NewAlertService creates a new AlertService. publisher may be nil.
func NewAlertService(
	alerts ports.AlertRepository,
	zones *ZoneService,
	deadlines ports.DeadlineStore,
	publisher ports.EventPublisher,
	window time.Duration,
) *AlertService {
	if window <= 0 {
		window = DefaultActiveWindow
	}
	return &AlertService{
		alerts:    alerts,
		zones:     zones,
		deadlines: deadlines,
		publisher: publisher,
		window:    window,
		now:       time.Now,
	}
}

// History returns alerts issued since the given time, newest first.
func (s *AlertService) History(ctx context.Context, since time.Time, limit int) ([]domain.Alert, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if since.IsZero() {
		since = s.now().Add(-24 * time.Hour)
	}
	return s.alerts.Since(ctx, since, limit)
}

// Record stores alerts not seen before and publishes them. It returns the
// newly recorded alerts.
func (s *AlertService) Record(ctx context.Context, alerts []domain.Alert) ([]domain.Alert, error) {
	if len(alerts) == 0 {
		return nil, nil
	}
	fresh, err := s.alerts.InsertNew(ctx, alerts)
	if err != nil {
		return nil, fmt.Errorf("insert alerts: %w", err)
	}
	metrics.AlertsRecorded.Add(float64(len(fresh)))

	if s.publisher != nil {
		for i := range fresh {
			if err := s.publisher.PublishAlert(ctx, &fresh[i]); err != nil {
				slog.WarnContext(ctx, "publish alert failed", "alert_id", fresh[i].ID, "error", err)
			}
		}
	}
	return fresh, nil
}

// Status resolves the user's zone, lists the alerts active there and merges
// the resulting shelter deadline into the session's countdown. An empty
// session skips the merge.
func (s *AlertService) Status(ctx context.Context, session string, user domain.GeoPoint, city string, strategy geospatial.Strategy) (*domain.ZoneStatus, error) {
	status, err := s.zones.Resolve(ctx, user, city, strategy)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var deadline time.Time

	if status.Matched {
		active, err := s.alerts.ActiveForZone(ctx, status.Zone.Code, now.Add(-s.window))
		if err != nil {
			return nil, fmt.Errorf("active alerts: %w", err)
		}
		status.Alerts = active
		deadline = ShelterDeadline(active, *status.Zone)
	}

	if session != "" && s.deadlines != nil {
		if !deadline.IsZero() {
			merged, err := s.deadlines.Extend(ctx, session, deadline)
			if err != nil {
				return nil, fmt.Errorf("extend deadline: %w", err)
			}
			deadline = merged
		} else if pending, ok, err := s.deadlines.Get(ctx, session); err != nil {
			return nil, fmt.Errorf("get deadline: %w", err)
		} else if ok {
			deadline = pending
		}
	}

	if deadline.After(now) {
		status.Deadline = &deadline
	}
	return status, nil
}

// ShelterDeadline returns the latest shelter deadline implied by alerts for
// zone, or the zero time when there are none.
func ShelterDeadline(alerts []domain.Alert, zone domain.AlertZone) time.Time {
	var latest time.Time
	for _, a := range alerts {
		if !a.Covers(zone.Code) {
			continue
		}
		d := a.IssuedAt.Add(time.Duration(zone.ShelterSeconds) * time.Second)
		if d.After(latest) {
			latest = d
		}
	}
	return latest
}
