package http

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/safezone-app/safezone/internal/adapters/nats"
	"github.com/safezone-app/safezone/internal/core/domain"
	"github.com/safezone-app/safezone/internal/pkg/metrics"
)

// wsMessage is sent from client to subscribe/unsubscribe to feeds.
type wsMessage struct {
	Action   string `json:"action"`   // "subscribe" | "unsubscribe"
	Channel  string `json:"channel"`  // "alerts" | "countdown" (default: alerts)
	Zone     string `json:"zone"`     // zone code filter (optional)
	Category string `json:"category"` // alert category filter (optional)
}

// wsSubscription identifies one client feed.
type wsSubscription struct {
	subject string
	zone    string
}

func (s wsSubscription) key() string { return s.subject + "|" + s.zone }

// subscriptionFor maps a client request onto a NATS subject plus an optional
// zone filter applied to decoded alerts.
func subscriptionFor(m wsMessage) (wsSubscription, bool) {
	zone := strings.TrimSpace(m.Zone)
	switch m.Channel {
	case "", "alerts":
		subject := natsadapter.SubjectAlerts
		if cat := strings.TrimSpace(m.Category); cat != "" {
			subject = natsadapter.AlertSubject(&domain.Alert{Category: cat})
		}
		return wsSubscription{subject: subject, zone: zone}, true
	case "countdown":
		if zone != "" {
			return wsSubscription{subject: natsadapter.CountdownSubject(zone)}, true
		}
		return wsSubscription{subject: natsadapter.SubjectCountdown}, true
	}
	return wsSubscription{}, false
}

// relayable decodes a protobuf event into JSON and applies the zone filter.
func relayable(sub wsSubscription, data []byte) ([]byte, bool) {
	if sub.zone != "" && strings.HasPrefix(sub.subject, "safezone.alerts.") {
		a, err := natsadapter.DecodeAlert(data)
		if err != nil || !a.Covers(sub.zone) {
			return nil, false
		}
	}
	out, err := natsadapter.ToJSON(data)
	if err != nil {
		return nil, false
	}
	return out, true
}

// WebSocketHandler relays alert and countdown events to connected clients.
// Every client starts subscribed to all alerts. Clients send JSON such as
// {"action":"subscribe","channel":"countdown","zone":"5001"}.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		remoteAddr := c.RemoteAddr().String()
		log := slog.Default().With("remote_addr", remoteAddr)
		log.Info("ws client connected")
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var mu sync.Mutex
		subs := make(map[string]*nats.Subscription)

		writeRaw := func(data []byte) error {
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			return writeRaw(data)
		}
		subscribe := func(s wsSubscription) error {
			ns, err := nc.Subscribe(s.subject, func(msg *nats.Msg) {
				if out, ok := relayable(s, msg.Data); ok {
					_ = writeRaw(out)
				}
			})
			if err != nil {
				return err
			}
			subs[s.key()] = ns
			return nil
		}

		if err := subscribe(wsSubscription{subject: natsadapter.SubjectAlerts}); err != nil {
			log.Error("ws default subscribe failed", "error", err)
			return
		}

		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			sub, ok := subscriptionFor(m)
			if !ok {
				_ = writeJSON(map[string]string{"error": "unknown channel: " + m.Channel})
				continue
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[sub.key()]; exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": sub.subject})
					continue
				}
				if err := subscribe(sub); err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				_ = writeJSON(map[string]string{"status": "subscribed", "subject": sub.subject})

			case "unsubscribe":
				if s, exists := subs[sub.key()]; exists {
					_ = s.Unsubscribe()
					delete(subs, sub.key())
					_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": sub.subject})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + sub.subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
		log.Info("ws client disconnected")
	}
}
