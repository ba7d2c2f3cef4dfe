package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/safezone-app/safezone/internal/core/ports"
)

// DefaultPollInterval is how often the upstream alert feed is read.
const DefaultPollInterval = 2 * time.Second

// AlertPoller reads the upstream alert feed and records new alerts.
type AlertPoller struct {
	source   ports.AlertSource
	alerts   *AlertService
	interval time.Duration
}

// NewAlertPoller creates a new AlertPoller.
func NewAlertPoller(source ports.AlertSource, alerts *AlertService, interval time.Duration) *AlertPoller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &AlertPoller{source: source, alerts: alerts, interval: interval}
}

// PollOnce fetches the feed once and returns how many alerts were new.
func (p *AlertPoller) PollOnce(ctx context.Context) (int, error) {
	alerts, err := p.source.FetchAlerts(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch alerts: %w", err)
	}
	fresh, err := p.alerts.Record(ctx, alerts)
	if err != nil {
		return 0, err
	}
	return len(fresh), nil
}

// Run polls until ctx is cancelled. Poll failures are logged and retried on
// the next tick.
func (p *AlertPoller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if n, err := p.PollOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.WarnContext(ctx, "alert poll failed", "error", err)
		} else if n > 0 {
			slog.InfoContext(ctx, "alerts recorded", "count", n)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
