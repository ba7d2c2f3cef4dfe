package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/safezone-app/safezone/internal/core/domain"
	"github.com/safezone-app/safezone/internal/core/ports"
)

// CountdownService turns recorded alerts into durable per-zone shelter
// countdowns.
type CountdownService struct {
	zones     *ZoneService
	scheduler ports.CountdownScheduler
	now       func() time.Time
}

// NewCountdownService creates a new CountdownService.
func NewCountdownService(zones *ZoneService, scheduler ports.CountdownScheduler) *CountdownService {
	return &CountdownService{zones: zones, scheduler: scheduler, now: time.Now}
}

// Schedule starts one countdown per zone the alert covers, due at issue time
// plus the zone's shelter seconds. Unknown zones and deadlines already past
// are skipped. It returns the number of countdowns scheduled.
func (s *CountdownService) Schedule(ctx context.Context, alert *domain.Alert) (int, error) {
	issued := alert.IssuedAt
	if issued.IsZero() {
		issued = s.now()
	}

	var (
		n    int
		errs []error
	)
	for _, code := range alert.ZoneCodes {
		zone, err := s.zones.GetByCode(ctx, code)
		if errors.Is(err, domain.ErrNotFound) {
			slog.WarnContext(ctx, "countdown skipped", "alert_id", alert.ID, "zone", code, "reason", "unknown zone")
			continue
		}
		if err != nil {
			return n, fmt.Errorf("zone %s: %w", code, err)
		}

		deadline := issued.Add(time.Duration(zone.ShelterSeconds) * time.Second)
		if !deadline.After(s.now()) {
			continue
		}
		if err := s.scheduler.ScheduleCountdown(ctx, alert.ID, code, deadline); err != nil {
			errs = append(errs, err)
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}
