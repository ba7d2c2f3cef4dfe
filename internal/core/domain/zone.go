package domain

import "time"

// AlertZone is a civil-defense alerting zone. Zones are read-only reference
// data loaded wholesale from upstream.
type AlertZone struct {
	ID             string   `json:"id"`
	Code           string   `json:"code"`
	Name           string   `json:"name,omitempty"`
	City           string   `json:"city,omitempty"`
	Point          GeoPoint `json:"point"`
	ShelterSeconds int      `json:"shelter_seconds"` // time to reach shelter once an alert sounds
}

// Alert is a single entry of the alert log.
type Alert struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Title     string    `json:"title"`
	ZoneCodes []string  `json:"zone_codes"`
	Cities    []string  `json:"cities,omitempty"`
	IssuedAt  time.Time `json:"issued_at"`
}

// Covers reports whether the alert targets the given zone code.
func (a Alert) Covers(zoneCode string) bool {
	for _, c := range a.ZoneCodes {
		if c == zoneCode {
			return true
		}
	}
	return false
}

// ZoneStatus is the outcome of resolving a user's zone, together with the
// alerts currently active for it.
type ZoneStatus struct {
	Zone     *AlertZone `json:"zone,omitempty"`
	Matched  bool       `json:"matched"`
	MatchBy  string     `json:"match_by,omitempty"` // "radius" | "city"
	Alerts   []Alert    `json:"alerts,omitempty"`
	Deadline *time.Time `json:"deadline,omitempty"`
}
