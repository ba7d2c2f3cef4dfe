package geospatial

import (
	"math"

	"github.com/safezone-app/safezone/internal/core/domain"
)

const earthRadiusKm = 6371.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// DistanceKm returns the haversine distance in kilometers between a and b.
// Non-finite input yields a non-finite result.
func DistanceKm(a, b domain.GeoPoint) float64 {
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon) / 1000
}

// Within reports whether b lies within radiusKm of a, boundary included.
func Within(a, b domain.GeoPoint, radiusKm float64) bool {
	return DistanceKm(a, b) <= radiusKm
}

// BoundingBox returns the smallest latitude/longitude box that contains every
// point within radiusMeters of (lat, lon) on the haversine sphere. The box is
// clamped to the WGS 84 ranges; when the circle reaches a pole or crosses the
// antimeridian it spans every longitude.
func BoundingBox(lat, lon, radiusMeters float64) (minLat, minLon, maxLat, maxLon float64) {
	angular := radiusMeters / (earthRadiusKm * 1000)
	latDelta := toDeg(angular)

	lonDelta := 180.0
	if s := math.Sin(angular) / math.Cos(toRad(lat)); angular < math.Pi/2 && s >= 0 && s < 1 {
		lonDelta = toDeg(math.Asin(s))
	}

	minLat, maxLat = math.Max(lat-latDelta, -90), math.Min(lat+latDelta, 90)
	minLon, maxLon = lon-lonDelta, lon+lonDelta
	if minLon < -180 || maxLon > 180 {
		minLon, maxLon = -180, 180
	}
	return minLat, minLon, maxLat, maxLon
}

// BoundsAround is BoundingBox for a point and a radius in kilometers.
func BoundsAround(p domain.GeoPoint, radiusKm float64) domain.Bounds {
	minLat, minLon, maxLat, maxLon := BoundingBox(p.Lat, p.Lon, radiusKm*1000)
	return domain.Bounds{MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon}
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}

func toDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}
