package upstream_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/safezone-app/safezone/internal/adapters/upstream"
	"github.com/safezone-app/safezone/internal/core/domain"
)

func TestUnwrap(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain array", `[{"id":1}]`, `[{"id":1}]`},
		{"string envelope", `"[{\"id\":1}]"`, `[{"id":1}]`},
		{"body string", `{"statusCode":200,"body":"[{\"id\":1}]"}`, `[{"id":1}]`},
		{"body json", `{"body":[{"id":1}]}`, `[{"id":1}]`},
		{"object without body", `{"id":1}`, `{"id":1}`},
		{"bom", "\xef\xbb\xbf [1]", `[1]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := upstream.Unwrap([]byte(tt.in))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}

	if _, err := upstream.Unwrap([]byte("  ")); err == nil {
		t.Error("expected error for empty body")
	}
}

func TestDecodeZones(t *testing.T) {
	body := []byte(`[
		{"id": 1, "code": "tlv-1", "name": "Tel Aviv ", "lat": "32.08", "lon": 34.78, "shelter_seconds": "90"},
		{"code": "sderot", "city": "Sderot", "lat": 31.52, "lon": 34.6, "shelter_seconds": 15}
	]`)
	zones, err := upstream.DecodeZones(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(zones) != 2 {
		t.Fatalf("expected 2 zones, got %d", len(zones))
	}
	if zones[0].ID != "1" || zones[0].Name != "Tel Aviv" || zones[0].ShelterSeconds != 90 {
		t.Errorf("unexpected zone %+v", zones[0])
	}
	if zones[1].ID != "sderot" {
		t.Errorf("expected code to stand in for a missing id, got %q", zones[1].ID)
	}
}

func TestDecodeZones_MissingField(t *testing.T) {
	_, err := upstream.DecodeZones([]byte(`[{"code":"a","lat":1,"lon":2},{"code":"b","lat":1}]`))
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if vErr.Field != "zones[1].lon" {
		t.Errorf("expected field zones[1].lon, got %s", vErr.Field)
	}
}

func TestDecodeShelters(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	body := []byte(`[
		{"id": "s1", "name": "Public 12", "accessible": "true", "x": "178000", "y": 665000, "capacity": "120"},
		{"id": "s2", "lat": 32.08, "lon": 34.78, "accessible": "0"},
		{"id": "s3", "x": "", "y": 665000}
	]`)
	shelters, err := upstream.DecodeShelters(body, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(shelters) != 3 {
		t.Fatalf("expected 3 shelters, got %d", len(shelters))
	}

	s1 := shelters[0]
	if s1.Projected == nil || s1.Projected.Easting != 178000 || !s1.Accessible || s1.Capacity != 120 {
		t.Errorf("unexpected s1 %+v", s1)
	}
	if s1.Location != (domain.GeoPoint{}) {
		t.Errorf("grid-only shelter should have zero location, got %+v", s1.Location)
	}
	if shelters[1].Projected != nil || shelters[1].Accessible {
		t.Errorf("unexpected s2 %+v", shelters[1])
	}
	if !math.IsNaN(shelters[2].Projected.Easting) {
		t.Errorf("blank easting should decode as NaN, got %v", shelters[2].Projected.Easting)
	}
	if !s1.UpdatedAt.Equal(now) {
		t.Errorf("expected UpdatedAt %v", now)
	}
}

func TestDecodeShelters_MissingCoordinates(t *testing.T) {
	tests := []struct {
		body  string
		field string
	}{
		{`[{"name":"x"}]`, "shelters[0].id"},
		{`[{"id":"a"}]`, "shelters[0].lat"},
		{`[{"id":"a","lat":32}]`, "shelters[0].lon"},
		{`[{"id":"a","x":178000}]`, "shelters[0].y"},
	}
	for _, tt := range tests {
		_, err := upstream.DecodeShelters([]byte(tt.body), time.Now())
		var vErr *domain.ValidationError
		if !errors.As(err, &vErr) || vErr.Field != tt.field {
			t.Errorf("%s: expected missing %s, got %v", tt.body, tt.field, err)
		}
	}
}

func TestDecodeHospitals(t *testing.T) {
	body := []byte(`[{"id": 7, "name": "Ichilov", "emergency": "yes", "lat": 32.08, "lon": "34.79"}]`)
	hospitals, err := upstream.DecodeHospitals(body, time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hospitals) != 1 || hospitals[0].ID != "7" || !hospitals[0].Emergency || hospitals[0].Location.Lon != 34.79 {
		t.Errorf("unexpected hospitals %+v", hospitals)
	}

	_, err = upstream.DecodeHospitals([]byte(`[{"id":1,"lon":34}]`), time.Now())
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "hospitals[0].lat" {
		t.Errorf("expected missing lat, got %v", err)
	}
}

func TestDecodeAlerts(t *testing.T) {
	body := []byte(`[
		{"id": "a-1", "cat": 1, "title": "Rocket fire", "zones": ["sderot"], "alertDate": "2024-04-14T01:42:00Z"},
		{"cat": "1", "title": "Rocket fire", "data": ["Sderot", " "], "alertDate": "2024-04-14T01:43:00Z"}
	]`)
	alerts, err := upstream.DecodeAlerts(body)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerts) != 2 {
		t.Fatalf("expected 2 alerts, got %d", len(alerts))
	}
	if alerts[0].ID != "a-1" || alerts[0].Category != "1" {
		t.Errorf("unexpected alert %+v", alerts[0])
	}
	if alerts[1].ID == "" || len(alerts[1].Cities) != 1 {
		t.Errorf("unexpected alert %+v", alerts[1])
	}

	again, _ := upstream.DecodeAlerts(body)
	if again[1].ID != alerts[1].ID {
		t.Error("derived alert IDs must be stable")
	}
}

func TestDecodeAlerts_SingleObject(t *testing.T) {
	alerts, err := upstream.DecodeAlerts([]byte(`{"cat":"1","data":["Sderot"],"alertDate":"2024-04-14 04:42:00"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(alerts) != 1 || !alerts[0].IssuedAt.Equal(time.Date(2024, 4, 14, 1, 42, 0, 0, time.UTC)) {
		t.Errorf("unexpected alerts %+v", alerts)
	}
}

func TestDecodeAlerts_Missing(t *testing.T) {
	_, err := upstream.DecodeAlerts([]byte(`[{"cat":"1","zones":["a"]}]`))
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) || vErr.Field != "alerts[0].alertDate" {
		t.Errorf("expected missing alertDate, got %v", err)
	}

	_, err = upstream.DecodeAlerts([]byte(`[{"cat":"1","alertDate":"2024-04-14T01:42:00Z"}]`))
	if !errors.As(err, &vErr) || vErr.Field != "alerts[0].zones" {
		t.Errorf("expected missing zones, got %v", err)
	}
}

func TestAlertID_OrderIndependent(t *testing.T) {
	at := time.Date(2024, 4, 14, 1, 42, 0, 0, time.UTC)
	a := upstream.AlertID(domain.Alert{Category: "1", IssuedAt: at, ZoneCodes: []string{"a", "b"}})
	b := upstream.AlertID(domain.Alert{Category: "1", IssuedAt: at, ZoneCodes: []string{"b", "a"}})
	c := upstream.AlertID(domain.Alert{Category: "1", IssuedAt: at.Add(time.Second), ZoneCodes: []string{"a", "b"}})
	if a != b {
		t.Error("zone order should not change the ID")
	}
	if a == c {
		t.Error("different issue times should give different IDs")
	}
}
