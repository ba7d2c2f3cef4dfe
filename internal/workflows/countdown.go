package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// ExtendSignal carries a later deadline to a running countdown.
const ExtendSignal = "extend-deadline"

// CountdownInput is the input for the shelter countdown workflow.
type CountdownInput struct {
	AlertID  string
	ZoneCode string
	Deadline time.Time
}

// ShelterCountdownWorkflow waits until the shelter deadline for one zone of
// an alert and then announces its expiry. An ExtendSignal with a later
// deadline restarts the wait; earlier deadlines are ignored.
func ShelterCountdownWorkflow(ctx workflow.Context, input CountdownInput) error {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting shelter countdown", "alertID", input.AlertID, "zone", input.ZoneCode, "deadline", input.Deadline)

	deadline := input.Deadline
	extend := workflow.GetSignalChannel(ctx, ExtendSignal)

	for {
		wait := deadline.Sub(workflow.Now(ctx))
		if wait <= 0 {
			break
		}

		timerCtx, cancelTimer := workflow.WithCancel(ctx)
		timer := workflow.NewTimer(timerCtx, wait)

		expired := false
		sel := workflow.NewSelector(ctx)
		sel.AddFuture(timer, func(f workflow.Future) {
			expired = f.Get(ctx, nil) == nil
		})
		sel.AddReceive(extend, func(c workflow.ReceiveChannel, more bool) {
			var later time.Time
			c.Receive(ctx, &later)
			if later.After(deadline) {
				logger.Info("Countdown extended", "from", deadline, "to", later)
				deadline = later
			}
		})
		sel.Select(ctx)
		cancelTimer()

		if expired {
			break
		}
	}

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 10 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 5,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	input.Deadline = deadline
	if err := workflow.ExecuteActivity(ctx, "PublishCountdownExpired", input).Get(ctx, nil); err != nil {
		logger.Warn("countdown expiry not published", "error", err)
		return err
	}

	logger.Info("Shelter countdown finished", "zone", input.ZoneCode)
	return nil
}
