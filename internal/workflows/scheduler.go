package workflows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/safezone-app/safezone/internal/pkg/metrics"
	"github.com/safezone-app/safezone/internal/pkg/telemetry"
)

// Scheduler implements ports.CountdownScheduler on Temporal.
type Scheduler struct {
	client    client.Client
	taskQueue string
}

// NewScheduler creates a Scheduler starting workflows on taskQueue.
func NewScheduler(c client.Client, taskQueue string) *Scheduler {
	return &Scheduler{client: c, taskQueue: taskQueue}
}

// WorkflowID is the countdown workflow ID for one zone of an alert.
func WorkflowID(alertID, zoneCode string) string {
	return "countdown-" + alertID + "-" + zoneCode
}

// ScheduleCountdown starts the countdown for (alertID, zoneCode). Starting
// the same countdown twice is not an error; a running countdown is
// extended to deadline if that is later.
func (s *Scheduler) ScheduleCountdown(ctx context.Context, alertID, zoneCode string, deadline time.Time) (err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "countdown.schedule", trace.WithAttributes(
		telemetry.AttrAlertID.String(alertID),
		telemetry.AttrZoneCode.String(zoneCode),
	))
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	id := WorkflowID(alertID, zoneCode)
	timeout := time.Hour
	if left := time.Until(deadline); left > 0 {
		timeout += left
	}
	opts := client.StartWorkflowOptions{
		ID:                                       id,
		TaskQueue:                                s.taskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
		WorkflowExecutionTimeout:                 timeout,
	}

	input := CountdownInput{AlertID: alertID, ZoneCode: zoneCode, Deadline: deadline}
	_, err = s.client.ExecuteWorkflow(ctx, opts, ShelterCountdownWorkflow, input)

	var started *serviceerror.WorkflowExecutionAlreadyStarted
	switch {
	case err == nil:
		metrics.CountdownsScheduled.Inc()
		return nil
	case errors.As(err, &started):
		if sigErr := s.client.SignalWorkflow(ctx, id, "", ExtendSignal, deadline); sigErr != nil {
			// The countdown already finished; nothing left to extend.
			var notFound *serviceerror.NotFound
			if errors.As(sigErr, &notFound) {
				return nil
			}
			return fmt.Errorf("extend countdown %s: %w", id, sigErr)
		}
		return nil
	default:
		return fmt.Errorf("start countdown %s: %w", id, err)
	}
}
