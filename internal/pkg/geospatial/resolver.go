package geospatial

import (
	"strings"

	"github.com/safezone-app/safezone/internal/core/domain"
)

// DefaultZoneRadiusKm is the radius used when matching a user to an alert zone.
const DefaultZoneRadiusKm = 5.0

// Strategy selects which zone wins when several lie inside the radius.
type Strategy int

const (
	// FirstMatch returns the earliest zone in input order that is inside the radius.
	FirstMatch Strategy = iota
	// Nearest returns the closest zone inside the radius; ties go to input order.
	Nearest
)

// ParseStrategy maps "first" / "nearest" to a Strategy. Empty means FirstMatch.
func ParseStrategy(s string) (Strategy, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first", "first_match":
		return FirstMatch, true
	case "nearest":
		return Nearest, true
	}
	return FirstMatch, false
}

func (s Strategy) String() string {
	if s == Nearest {
		return "nearest"
	}
	return "first"
}

// ResolveOptions configures ResolveZone.
type ResolveOptions struct {
	RadiusKm float64
	Strategy Strategy
}

// Match describes how a zone was picked.
type Match string

const (
	MatchByRadius Match = "radius"
	MatchByCity   Match = "city"
)

// ResolveZone picks the alert zone for user. Zones strictly closer than
// RadiusKm are considered first; failing that, a zone whose trimmed name or
// city equals the trimmed fallbackCity. The returned pointer aliases zones.
// A nil result is a normal outcome.
func ResolveZone(user domain.GeoPoint, zones []domain.AlertZone, fallbackCity string, opts ResolveOptions) (*domain.AlertZone, Match) {
	radius := opts.RadiusKm
	if radius <= 0 {
		radius = DefaultZoneRadiusKm
	}

	var i int
	if opts.Strategy == Nearest {
		i = NearestWithin(user, zones, radius)
	} else {
		i = FirstWithin(user, zones, radius)
	}
	if i >= 0 {
		return &zones[i], MatchByRadius
	}

	if i = MatchCity(zones, fallbackCity); i >= 0 {
		return &zones[i], MatchByCity
	}
	return nil, ""
}

// FirstWithin returns the index of the first zone strictly inside radiusKm, or -1.
func FirstWithin(user domain.GeoPoint, zones []domain.AlertZone, radiusKm float64) int {
	for i := range zones {
		if DistanceKm(user, zones[i].Point) < radiusKm {
			return i
		}
	}
	return -1
}

// NearestWithin returns the index of the closest zone strictly inside
// radiusKm, or -1. Equal distances keep the earlier zone.
func NearestWithin(user domain.GeoPoint, zones []domain.AlertZone, radiusKm float64) int {
	best := -1
	bestDist := radiusKm
	for i := range zones {
		d := DistanceKm(user, zones[i].Point)
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// MatchCity returns the index of the first zone whose trimmed Name or City
// equals the trimmed city, or -1. An empty city never matches.
func MatchCity(zones []domain.AlertZone, city string) int {
	city = strings.TrimSpace(city)
	if city == "" {
		return -1
	}
	for i := range zones {
		if strings.TrimSpace(zones[i].Name) == city || strings.TrimSpace(zones[i].City) == city {
			return i
		}
	}
	return -1
}
