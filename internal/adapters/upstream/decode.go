package upstream

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/safezone-app/safezone/internal/core/domain"
)

// alertNamespace seeds the name-based IDs given to alerts that arrive
// without one, so the same alert always maps to the same ID.
var alertNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://safezone.app/alerts"))

type zoneRecord struct {
	ID             Text   `json:"id"`
	Code           Text   `json:"code"`
	Name           string `json:"name"`
	City           string `json:"city"`
	Lat            Number `json:"lat"`
	Lon            Number `json:"lon"`
	ShelterSeconds Number `json:"shelter_seconds"`
}

type shelterRecord struct {
	ID         Text   `json:"id"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	Kind       string `json:"type"`
	Capacity   Number `json:"capacity"`
	Accessible Flag   `json:"accessible"`
	Lat        Number `json:"lat"`
	Lon        Number `json:"lon"`
	Easting    Number `json:"x"`
	Northing   Number `json:"y"`
}

type hospitalRecord struct {
	ID        Text   `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	City      string `json:"city"`
	Emergency Flag   `json:"emergency"`
	Lat       Number `json:"lat"`
	Lon       Number `json:"lon"`
}

type alertRecord struct {
	ID       Text      `json:"id"`
	Category Text      `json:"cat"`
	Title    string    `json:"title"`
	Zones    []string  `json:"zones"`
	Cities   []string  `json:"data"`
	Date     Timestamp `json:"alertDate"`
}

func missing(source string, i int, field string) *domain.ValidationError {
	return domain.Missing(fmt.Sprintf("%s[%d].%s", source, i, field))
}

// DecodeZones parses an alert-zone document. Zones keep source order.
func DecodeZones(body []byte) ([]domain.AlertZone, error) {
	var recs []zoneRecord
	if err := json.Unmarshal(body, &recs); err != nil {
		return nil, fmt.Errorf("decode zones: %w", err)
	}

	zones := make([]domain.AlertZone, 0, len(recs))
	for i, r := range recs {
		switch {
		case r.Code == "":
			return nil, missing("zones", i, "code")
		case !r.Lat.Set:
			return nil, missing("zones", i, "lat")
		case !r.Lon.Set:
			return nil, missing("zones", i, "lon")
		}
		id := r.ID.String()
		if id == "" {
			id = r.Code.String()
		}
		zones = append(zones, domain.AlertZone{
			ID:             id,
			Code:           r.Code.String(),
			Name:           strings.TrimSpace(r.Name),
			City:           strings.TrimSpace(r.City),
			Point:          domain.GeoPoint{Lat: r.Lat.Value, Lon: r.Lon.Value},
			ShelterSeconds: r.ShelterSeconds.Int(),
		})
	}
	return zones, nil
}

// DecodeShelters parses a shelter registry document. A shelter needs either
// lat/lon or grid x/y; grid-only shelters are returned with Projected set
// and a zero Location for the projector to fill in.
func DecodeShelters(body []byte, now time.Time) ([]domain.Shelter, error) {
	var recs []shelterRecord
	if err := json.Unmarshal(body, &recs); err != nil {
		return nil, fmt.Errorf("decode shelters: %w", err)
	}

	shelters := make([]domain.Shelter, 0, len(recs))
	for i, r := range recs {
		if r.ID == "" {
			return nil, missing("shelters", i, "id")
		}
		sh := domain.Shelter{
			ID:         r.ID.String(),
			Name:       strings.TrimSpace(r.Name),
			Address:    strings.TrimSpace(r.Address),
			Kind:       strings.TrimSpace(r.Kind),
			Capacity:   r.Capacity.Int(),
			Accessible: bool(r.Accessible),
			UpdatedAt:  now,
		}

		switch {
		case r.Lat.Set && r.Lon.Set:
			sh.Location = domain.GeoPoint{Lat: r.Lat.Value, Lon: r.Lon.Value}
		case r.Easting.Set && r.Northing.Set:
			sh.Projected = &domain.ProjectedPoint{Easting: r.Easting.Value, Northing: r.Northing.Value}
		case r.Lat.Set || r.Easting.Set:
			field := "lon"
			if r.Easting.Set {
				field = "y"
			}
			return nil, missing("shelters", i, field)
		default:
			return nil, missing("shelters", i, "lat")
		}
		shelters = append(shelters, sh)
	}
	return shelters, nil
}

// DecodeHospitals parses a hospital list.
func DecodeHospitals(body []byte, now time.Time) ([]domain.Hospital, error) {
	var recs []hospitalRecord
	if err := json.Unmarshal(body, &recs); err != nil {
		return nil, fmt.Errorf("decode hospitals: %w", err)
	}

	hospitals := make([]domain.Hospital, 0, len(recs))
	for i, r := range recs {
		switch {
		case r.ID == "":
			return nil, missing("hospitals", i, "id")
		case !r.Lat.Set:
			return nil, missing("hospitals", i, "lat")
		case !r.Lon.Set:
			return nil, missing("hospitals", i, "lon")
		}
		hospitals = append(hospitals, domain.Hospital{
			ID:        r.ID.String(),
			Name:      strings.TrimSpace(r.Name),
			Phone:     strings.TrimSpace(r.Phone),
			City:      strings.TrimSpace(r.City),
			Emergency: bool(r.Emergency),
			Location:  domain.GeoPoint{Lat: r.Lat.Value, Lon: r.Lon.Value},
			UpdatedAt: now,
		})
	}
	return hospitals, nil
}

// DecodeAlerts parses an alert feed. A single alert object is accepted as
// well as a list. Alerts without an ID get a name-based UUID derived from
// their content.
func DecodeAlerts(body []byte) ([]domain.Alert, error) {
	var recs []alertRecord
	if len(body) > 0 && body[0] == '{' {
		var one alertRecord
		if err := json.Unmarshal(body, &one); err != nil {
			return nil, fmt.Errorf("decode alert: %w", err)
		}
		recs = []alertRecord{one}
	} else if err := json.Unmarshal(body, &recs); err != nil {
		return nil, fmt.Errorf("decode alerts: %w", err)
	}

	alerts := make([]domain.Alert, 0, len(recs))
	for i, r := range recs {
		if r.Date.IsZero() {
			return nil, missing("alerts", i, "alertDate")
		}
		zones := cleanList(r.Zones)
		cities := cleanList(r.Cities)
		if len(zones) == 0 && len(cities) == 0 {
			return nil, missing("alerts", i, "zones")
		}

		a := domain.Alert{
			ID:        r.ID.String(),
			Category:  r.Category.String(),
			Title:     strings.TrimSpace(r.Title),
			ZoneCodes: zones,
			Cities:    cities,
			IssuedAt:  r.Date.UTC(),
		}
		if a.ID == "" {
			a.ID = AlertID(a)
		}
		alerts = append(alerts, a)
	}
	return alerts, nil
}

// AlertID derives a stable ID from an alert's category, issue time and
// targets.
func AlertID(a domain.Alert) string {
	zones := append([]string(nil), a.ZoneCodes...)
	sort.Strings(zones)
	cities := append([]string(nil), a.Cities...)
	sort.Strings(cities)

	name := strings.Join([]string{
		a.Category,
		a.IssuedAt.UTC().Format(time.RFC3339),
		strings.Join(zones, ","),
		strings.Join(cities, ","),
	}, "|")
	return uuid.NewSHA1(alertNamespace, []byte(name)).String()
}

func cleanList(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
