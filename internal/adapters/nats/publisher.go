package natsadapter

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/safezone-app/safezone/internal/core/domain"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := RawConn(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	if err := ensureStreams(js); err != nil {
		conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn, js: js}, nil
}

func ensureStreams(js nats.JetStreamContext) error {
	streams := []nats.StreamConfig{
		{
			Name:       StreamAlerts,
			Subjects:   []string{SubjectAlerts},
			Retention:  nats.InterestPolicy,
			MaxAge:     24 * time.Hour,
			Storage:    nats.FileStorage,
			Duplicates: 10 * time.Minute,
		},
		{
			Name:      StreamCountdown,
			Subjects:  []string{SubjectCountdown},
			Retention: nats.LimitsPolicy,
			MaxAge:    1 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}
	return nil
}

// PublishAlert publishes an alert. The alert ID doubles as the JetStream
// message ID, so republishing within the duplicate window is a no-op.
func (p *Publisher) PublishAlert(ctx context.Context, a *domain.Alert) error {
	data, err := EncodeAlert(a)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(AlertSubject(a), data, nats.MsgId(a.ID), nats.Context(ctx))
	return err
}

// PublishCountdownExpired announces that the shelter countdown for a zone ran out.
func (p *Publisher) PublishCountdownExpired(ctx context.Context, alertID, zoneCode string, deadline time.Time) error {
	data, err := EncodeCountdown(alertID, zoneCode, deadline)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(CountdownSubject(zoneCode), data,
		nats.MsgId(alertID+"/"+zoneCode), nats.Context(ctx))
	return err
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name("safezone"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
