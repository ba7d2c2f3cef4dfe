package usecases_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/safezone-app/safezone/internal/core/domain"
	"github.com/safezone-app/safezone/internal/core/usecases"
)

func TestAlertPoller_PollOnce(t *testing.T) {
	pub := &mockPublisher{}
	repo := &mockAlertRepo{insertNewFn: func(ctx context.Context, alerts []domain.Alert) ([]domain.Alert, error) {
		return alerts[:1], nil
	}}
	alerts := usecases.NewAlertService(repo, nil, nil, pub, time.Minute)
	src := &mockSources{alertsFn: func(ctx context.Context) ([]domain.Alert, error) {
		return []domain.Alert{{ID: "new"}, {ID: "seen"}}, nil
	}}

	n, err := usecases.NewAlertPoller(src, alerts, time.Second).PollOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 || len(pub.published) != 1 || pub.published[0] != "new" {
		t.Errorf("expected only the new alert published, got n=%d %v", n, pub.published)
	}
}

func TestAlertPoller_RunRetriesUntilCancelled(t *testing.T) {
	var polls atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	src := &mockSources{alertsFn: func(context.Context) ([]domain.Alert, error) {
		if polls.Add(1) >= 3 {
			cancel()
		}
		return nil, errors.New("feed down")
	}}
	alerts := usecases.NewAlertService(&mockAlertRepo{}, nil, nil, nil, time.Minute)

	done := make(chan error, 1)
	go func() { done <- usecases.NewAlertPoller(src, alerts, time.Millisecond).Run(ctx) }()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("poller did not stop")
	}
	if polls.Load() < 3 {
		t.Errorf("expected at least 3 polls, got %d", polls.Load())
	}
}
