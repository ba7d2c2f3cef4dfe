package natsadapter_test

import (
	"encoding/json"
	"testing"
	"time"

	natsadapter "github.com/safezone-app/safezone/internal/adapters/nats"
	"github.com/safezone-app/safezone/internal/core/domain"
)

func TestAlertPayload(t *testing.T) {
	in := &domain.Alert{
		ID:        "a-1",
		Category:  "1",
		Title:     "Rocket fire",
		ZoneCodes: []string{"sderot", "netivot"},
		IssuedAt:  time.Date(2024, 4, 14, 1, 42, 0, 0, time.UTC),
	}
	data, err := natsadapter.EncodeAlert(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := natsadapter.DecodeAlert(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ID != in.ID || out.Title != in.Title || len(out.ZoneCodes) != 2 || out.ZoneCodes[1] != "netivot" {
		t.Errorf("unexpected alert %+v", out)
	}
	if !out.IssuedAt.Equal(in.IssuedAt) {
		t.Errorf("issued_at %v, want %v", out.IssuedAt, in.IssuedAt)
	}
	if out.Cities != nil {
		t.Errorf("expected no cities, got %v", out.Cities)
	}
}

func TestToJSON(t *testing.T) {
	deadline := time.Date(2024, 4, 14, 1, 43, 30, 0, time.UTC)
	data, err := natsadapter.EncodeCountdown("a-1", "sderot", deadline)
	if err != nil {
		t.Fatal(err)
	}
	js, err := natsadapter.ToJSON(data)
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	var got map[string]any
	if err := json.Unmarshal(js, &got); err != nil {
		t.Fatalf("not JSON: %v (%s)", err, js)
	}
	if got["type"] != "countdown_expired" || got["zone_code"] != "sderot" || got["deadline"] != "2024-04-14T01:43:30Z" {
		t.Errorf("unexpected payload %v", got)
	}
}

func TestSubjects(t *testing.T) {
	if got := natsadapter.CountdownSubject("tel aviv.south"); got != "safezone.countdown.tel_aviv_south" {
		t.Errorf("CountdownSubject = %s", got)
	}
	if got := natsadapter.AlertSubject(&domain.Alert{}); got != "safezone.alerts._" {
		t.Errorf("AlertSubject = %s", got)
	}
}
