package natsadapter

import (
	"fmt"
	"strings"
	"time"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/safezone-app/safezone/internal/core/domain"
)

// Subjects and streams.
const (
	SubjectAlerts    = "safezone.alerts.>"
	SubjectCountdown = "safezone.countdown.>"

	StreamAlerts    = "SAFEZONE_ALERTS"
	StreamCountdown = "SAFEZONE_COUNTDOWN"
)

// AlertSubject returns the subject an alert is published on.
func AlertSubject(a *domain.Alert) string {
	return "safezone.alerts." + token(a.Category)
}

// CountdownSubject returns the subject a countdown expiry is published on.
func CountdownSubject(zoneCode string) string {
	return "safezone.countdown." + token(zoneCode)
}

// token makes s usable as a single subject token.
func token(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}

// EncodeAlert serialises an alert as a protobuf Struct.
func EncodeAlert(a *domain.Alert) ([]byte, error) {
	st, err := structpb.NewStruct(map[string]any{
		"type":       "alert",
		"id":         a.ID,
		"category":   a.Category,
		"title":      a.Title,
		"zone_codes": strings2any(a.ZoneCodes),
		"cities":     strings2any(a.Cities),
		"issued_at":  a.IssuedAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("encode alert: %w", err)
	}
	return proto.Marshal(st)
}

// DecodeAlert parses a payload produced by EncodeAlert.
func DecodeAlert(data []byte) (*domain.Alert, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("decode alert: %w", err)
	}
	f := st.GetFields()

	issued, err := time.Parse(time.RFC3339Nano, f["issued_at"].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("decode alert issued_at: %w", err)
	}
	return &domain.Alert{
		ID:        f["id"].GetStringValue(),
		Category:  f["category"].GetStringValue(),
		Title:     f["title"].GetStringValue(),
		ZoneCodes: any2strings(f["zone_codes"]),
		Cities:    any2strings(f["cities"]),
		IssuedAt:  issued,
	}, nil
}

// EncodeCountdown serialises a countdown expiry event.
func EncodeCountdown(alertID, zoneCode string, deadline time.Time) ([]byte, error) {
	st, err := structpb.NewStruct(map[string]any{
		"type":      "countdown_expired",
		"alert_id":  alertID,
		"zone_code": zoneCode,
		"deadline":  deadline.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return nil, fmt.Errorf("encode countdown: %w", err)
	}
	return proto.Marshal(st)
}

// ToJSON re-encodes a protobuf event payload as JSON for browser clients.
func ToJSON(data []byte) ([]byte, error) {
	var st structpb.Struct
	if err := proto.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	return protojson.MarshalOptions{UseProtoNames: true}.Marshal(&st)
}

func strings2any(in []string) []any {
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func any2strings(v *structpb.Value) []string {
	list := v.GetListValue().GetValues()
	if len(list) == 0 {
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		out = append(out, item.GetStringValue())
	}
	return out
}
