package http

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/safezone-app/safezone/internal/core/domain"
	"github.com/safezone-app/safezone/internal/pkg/geospatial"
)

// SessionHeader carries the client session whose shelter countdown is merged.
const SessionHeader = "X-Session-ID"

// ---- Geo ----

type projectRequest struct {
	Easting  *float64 `json:"easting"`
	Northing *float64 `json:"northing"`
}

// ProjectHandler converts a grid coordinate to WGS 84.
func ProjectHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req projectRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Easting == nil {
			return errFromDomain(c, domain.Missing("easting"))
		}
		if req.Northing == nil {
			return errFromDomain(c, domain.Missing("northing"))
		}

		p, err := deps.Projector.Project(domain.ProjectedPoint{Easting: *req.Easting, Northing: *req.Northing})
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(p)
	}
}

// DistanceHandler returns the great-circle distance between two points.
func DistanceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		from, err := queryPoint(c, "from_lat", "from_lon")
		if err != nil {
			return errFromDomain(c, err)
		}
		to, err := queryPoint(c, "to_lat", "to_lon")
		if err != nil {
			return errFromDomain(c, err)
		}

		km := geospatial.DistanceKm(from, to)
		c.Set("Cache-Control", "public, max-age=86400")
		return c.JSON(fiber.Map{
			"km":    km,
			"label": domain.DistanceLabel(&km),
		})
	}
}

// ---- Zones ----

// ListZonesHandler returns alert zones in source order.
func ListZonesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		zones, err := deps.Zones.List(c.UserContext())
		if err != nil {
			return errFromDomain(c, err)
		}

		offset, limit := pageParams(c, 100, 500)
		pg := Pagination{Offset: offset, Limit: limit, Total: len(zones)}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: page(zones, offset, limit), Pagination: pg})
	}
}

// GetZoneHandler returns a single zone by its code.
func GetZoneHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		code := strings.TrimSpace(c.Params("code"))
		if code == "" {
			return errFromDomain(c, domain.Missing("code"))
		}

		zone, err := deps.Zones.GetByCode(c.UserContext(), code)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(zone)
	}
}

// ResolveZoneHandler finds the zone for a location. A miss is a 200 with
// matched=false.
func ResolveZoneHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := queryPoint(c, "lat", "lon")
		if err != nil {
			return errFromDomain(c, err)
		}
		strategy, ok := geospatial.ParseStrategy(c.Query("strategy"))
		if !ok {
			return errInvalidField(c, "strategy", "strategy must be first or nearest")
		}

		status, err := deps.Zones.Resolve(c.UserContext(), user, c.Query("city"), strategy)
		if err != nil {
			return errFromDomain(c, err)
		}

		c.Set("Cache-Control", "no-store")
		return c.JSON(status)
	}
}

// ---- Places ----

type shelterView struct {
	domain.Shelter
	DistanceLabel string `json:"distance_label"`
}

type hospitalView struct {
	domain.Hospital
	DistanceLabel string `json:"distance_label"`
}

// NearestSheltersHandler returns the closest shelters to a location.
func NearestSheltersHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := queryPoint(c, "lat", "lon")
		if err != nil {
			return errFromDomain(c, err)
		}

		shelters, err := deps.Shelters.Nearest(c.UserContext(), user, c.QueryInt("limit", 10))
		if err != nil {
			return errFromDomain(c, err)
		}

		out := make([]shelterView, len(shelters))
		for i, s := range shelters {
			out[i] = shelterView{Shelter: s, DistanceLabel: domain.DistanceLabel(s.Distance)}
		}
		return c.JSON(out)
	}
}

// NearbyHospitalsHandler returns hospitals within a radius, closest first.
func NearbyHospitalsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := queryPoint(c, "lat", "lon")
		if err != nil {
			return errFromDomain(c, err)
		}
		radius := c.QueryFloat("radius_km", deps.HospitalRadiusKm)
		if radius < 0 || radius > 200 || math.IsNaN(radius) {
			return errInvalidField(c, "radius_km", "radius_km must be between 0 and 200")
		}

		hospitals, err := deps.Hospitals.Nearby(c.UserContext(), user, radius)
		if err != nil {
			return errFromDomain(c, err)
		}

		out := make([]hospitalView, len(hospitals))
		for i, h := range hospitals {
			out[i] = hospitalView{Hospital: h, DistanceLabel: domain.DistanceLabel(h.Distance)}
		}
		return c.JSON(out)
	}
}

// ---- Alerts ----

// maxHistory bounds how many alerts one history request can page through.
const maxHistory = 500

// AlertHistoryHandler returns recorded alerts, newest first.
func AlertHistoryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		since, err := parseSince(c.Query("since"))
		if err != nil {
			return errFromDomain(c, err)
		}

		alerts, err := deps.Alerts.History(c.UserContext(), since, maxHistory)
		if err != nil {
			return errFromDomain(c, err)
		}

		offset, limit := pageParams(c, 50, 200)
		pg := Pagination{Offset: offset, Limit: limit, Total: len(alerts)}
		SetLinkHeaders(c, pg)
		c.Set("Cache-Control", "public, max-age=5")
		return c.JSON(PaginatedResponse{Data: page(alerts, offset, limit), Pagination: pg})
	}
}

type statusView struct {
	*domain.ZoneStatus
	Countdown   string `json:"countdown"`
	SecondsLeft int    `json:"seconds_left"`
}

// StatusHandler resolves the caller's zone, its active alerts and the
// session's shelter countdown.
func StatusHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := queryPoint(c, "lat", "lon")
		if err != nil {
			return errFromDomain(c, err)
		}
		strategy, ok := geospatial.ParseStrategy(c.Query("strategy"))
		if !ok {
			return errInvalidField(c, "strategy", "strategy must be first or nearest")
		}
		session := strings.TrimSpace(c.Get(SessionHeader))

		status, err := deps.Alerts.Status(c.UserContext(), session, user, c.Query("city"), strategy)
		if err != nil {
			return errFromDomain(c, err)
		}

		now := time.Now()
		view := statusView{ZoneStatus: status, Countdown: domain.CountdownLabel(status.Deadline, now)}
		if status.Deadline != nil {
			if left := status.Deadline.Sub(now); left > 0 {
				view.SecondsLeft = int(left.Round(time.Second) / time.Second)
			}
		}

		c.Set("Cache-Control", "no-store")
		return c.JSON(view)
	}
}

// ---- Query helpers ----

// queryPoint reads a finite coordinate pair from the query string.
func queryPoint(c *fiber.Ctx, latKey, lonKey string) (domain.GeoPoint, error) {
	lat, err := queryFloat(c, latKey)
	if err != nil {
		return domain.GeoPoint{}, err
	}
	lon, err := queryFloat(c, lonKey)
	if err != nil {
		return domain.GeoPoint{}, err
	}
	p := domain.GeoPoint{Lat: lat, Lon: lon}
	if !p.Valid() {
		return domain.GeoPoint{}, &domain.ValidationError{Field: latKey + "," + lonKey, Reason: "out of range"}
	}
	return p, nil
}

func queryFloat(c *fiber.Ctx, key string) (float64, error) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return 0, domain.Missing(key)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, &domain.ValidationError{Field: key, Reason: "not a finite number"}
	}
	return f, nil
}

// parseSince accepts RFC 3339 or unix seconds. Empty means the service default.
func parseSince(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, &domain.ValidationError{Field: "since", Reason: "expected RFC 3339 or unix seconds"}
	}
	return t, nil
}
