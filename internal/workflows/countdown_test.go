package workflows_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.temporal.io/sdk/testsuite"

	"github.com/safezone-app/safezone/internal/core/domain"
	"github.com/safezone-app/safezone/internal/workflows"
)

type expiry struct {
	alertID, zoneCode string
	deadline          time.Time
}

type mockPublisher struct {
	mu      sync.Mutex
	expired []expiry
	fail    bool
}

func (m *mockPublisher) PublishAlert(ctx context.Context, a *domain.Alert) error { return nil }

func (m *mockPublisher) PublishCountdownExpired(ctx context.Context, alertID, zoneCode string, deadline time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("broker down")
	}
	m.expired = append(m.expired, expiry{alertID, zoneCode, deadline})
	return nil
}

var t0 = time.Date(2024, 4, 14, 1, 42, 0, 0, time.UTC)

func newEnv(pub *mockPublisher) *testsuite.TestWorkflowEnvironment {
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	env.SetStartTime(t0)
	env.RegisterActivity(&workflows.CountdownActivities{Publisher: pub})
	return env
}

func TestShelterCountdownWorkflow_PublishesAtDeadline(t *testing.T) {
	pub := &mockPublisher{}
	env := newEnv(pub)

	deadline := t0.Add(90 * time.Second)
	env.ExecuteWorkflow(workflows.ShelterCountdownWorkflow, workflows.CountdownInput{
		AlertID: "a-1", ZoneCode: "sderot", Deadline: deadline,
	})

	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	if len(pub.expired) != 1 {
		t.Fatalf("expected one expiry, got %d", len(pub.expired))
	}
	got := pub.expired[0]
	if got.alertID != "a-1" || got.zoneCode != "sderot" || !got.deadline.Equal(deadline) {
		t.Errorf("unexpected expiry %+v", got)
	}
	if now := env.Now(); now.Before(deadline) {
		t.Errorf("expiry published before the deadline (now %v)", now)
	}
}

func TestShelterCountdownWorkflow_ExtendOnlyLater(t *testing.T) {
	pub := &mockPublisher{}
	env := newEnv(pub)

	later := t0.Add(3 * time.Minute)
	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(workflows.ExtendSignal, t0.Add(30*time.Second))
	}, 10*time.Second)
	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(workflows.ExtendSignal, later)
	}, 20*time.Second)

	env.ExecuteWorkflow(workflows.ShelterCountdownWorkflow, workflows.CountdownInput{
		AlertID: "a-1", ZoneCode: "sderot", Deadline: t0.Add(time.Minute),
	})

	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	if len(pub.expired) != 1 || !pub.expired[0].deadline.Equal(later) {
		t.Fatalf("expected a single expiry at %v, got %+v", later, pub.expired)
	}
}

func TestShelterCountdownWorkflow_PastDeadline(t *testing.T) {
	pub := &mockPublisher{}
	env := newEnv(pub)

	env.ExecuteWorkflow(workflows.ShelterCountdownWorkflow, workflows.CountdownInput{
		AlertID: "a-1", ZoneCode: "sderot", Deadline: t0.Add(-time.Minute),
	})
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("workflow error: %v", err)
	}
	if len(pub.expired) != 1 {
		t.Errorf("expected immediate expiry, got %d", len(pub.expired))
	}
}

func TestShelterCountdownWorkflow_PublishFailure(t *testing.T) {
	env := newEnv(&mockPublisher{fail: true})

	env.ExecuteWorkflow(workflows.ShelterCountdownWorkflow, workflows.CountdownInput{
		AlertID: "a-1", ZoneCode: "sderot", Deadline: t0.Add(time.Second),
	})
	if env.GetWorkflowError() == nil {
		t.Error("expected workflow error when the expiry cannot be published")
	}
}

func TestWorkflowID(t *testing.T) {
	if got := workflows.WorkflowID("a-1", "sderot"); got != "countdown-a-1-sderot" {
		t.Errorf("WorkflowID = %s", got)
	}
}
