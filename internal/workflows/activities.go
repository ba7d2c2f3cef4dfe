package workflows

import (
	"context"
	"fmt"

	"github.com/safezone-app/safezone/internal/core/ports"
)

// CountdownActivities holds the activity implementations for the countdown workflow.
type CountdownActivities struct {
	Publisher ports.EventPublisher
}

// PublishCountdownExpired announces that a zone's shelter countdown ran out.
func (a *CountdownActivities) PublishCountdownExpired(ctx context.Context, input CountdownInput) error {
	if err := a.Publisher.PublishCountdownExpired(ctx, input.AlertID, input.ZoneCode, input.Deadline); err != nil {
		return fmt.Errorf("publish countdown %s/%s: %w", input.AlertID, input.ZoneCode, err)
	}
	return nil
}
