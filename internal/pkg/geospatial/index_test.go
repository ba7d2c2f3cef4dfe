package geospatial_test

import (
	"math"
	"reflect"
	"testing"

	"github.com/safezone-app/safezone/internal/core/domain"
	"github.com/safezone-app/safezone/internal/pkg/geospatial"
)

func TestIndex_CandidatesSortedAndComplete(t *testing.T) {
	points := []domain.GeoPoint{
		north(user, 3),
		north(user, 50),
		north(user, 0.5),
		{Lat: math.NaN(), Lon: user.Lon},
		north(user, -4.99),
		north(user, 200),
	}
	ix := geospatial.NewIndex(points)
	if ix.Len() != len(points) {
		t.Fatalf("Len() = %d, want %d", ix.Len(), len(points))
	}

	got := ix.Candidates(user, 5)
	want := []int{0, 2, 4}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Candidates() = %v, want %v", got, want)
	}
}

func TestIndex_AgreesWithLinearScan(t *testing.T) {
	var zones []domain.AlertZone
	for i := 0; i < 200; i++ {
		// A spiral of zones around the user out to ~40 km.
		r := float64(i) * 0.2
		a := float64(i) * 0.7
		zones = append(zones, domain.AlertZone{Point: domain.GeoPoint{
			Lat: user.Lat + r/111*math.Cos(a),
			Lon: user.Lon + r/94*math.Sin(a),
		}})
	}
	ix := geospatial.NewIndex(geospatial.ZonePoints(zones))

	for _, radius := range []float64{0.5, 2, 5, 10, 25} {
		for i := range zones {
			inside := geospatial.DistanceKm(user, zones[i].Point) < radius
			if !inside {
				continue
			}
			found := false
			for _, c := range ix.Candidates(user, radius) {
				if c == i {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("radius %.1f: zone %d inside radius but missing from candidates", radius, i)
			}
		}
	}
}

func TestIndex_LargeRadiusHighLatitude(t *testing.T) {
	center := domain.GeoPoint{Lat: 60, Lon: 10}
	var points []domain.GeoPoint
	for bearing := 0.0; bearing < 360; bearing += 10 {
		points = append(points, destination(center, bearing, 1990))
	}
	ix := geospatial.NewIndex(points)

	got := ix.Candidates(center, 2000)
	if len(got) != len(points) {
		t.Errorf("expected all %d points as candidates, got %d: %v", len(points), len(got), got)
	}
}

func TestIndex_InvalidQuery(t *testing.T) {
	ix := geospatial.NewIndex([]domain.GeoPoint{user})
	if got := ix.Candidates(domain.GeoPoint{Lat: math.NaN()}, 5); got != nil {
		t.Errorf("expected nil for NaN query, got %v", got)
	}
	if got := ix.Candidates(user, 0); got != nil {
		t.Errorf("expected nil for zero radius, got %v", got)
	}
}

func TestIndex_AcrossAntimeridian(t *testing.T) {
	center := domain.GeoPoint{Lat: -17.7, Lon: 179.8}
	ix := geospatial.NewIndex([]domain.GeoPoint{
		{Lat: -17.7, Lon: -179.9},
		{Lat: -17.7, Lon: 170},
	})

	got := ix.Candidates(center, 50)
	if len(got) == 0 || got[0] != 0 {
		t.Errorf("expected the point across the antimeridian as a candidate, got %v", got)
	}
}
