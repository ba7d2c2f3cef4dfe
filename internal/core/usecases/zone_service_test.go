package usecases_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/safezone-app/safezone/internal/core/domain"
	"github.com/safezone-app/safezone/internal/core/usecases"
	"github.com/safezone-app/safezone/internal/pkg/geospatial"
)

var telAviv = domain.GeoPoint{Lat: 32.0853, Lon: 34.7818}

func north(p domain.GeoPoint, km float64) domain.GeoPoint {
	return domain.GeoPoint{Lat: p.Lat + km/6371.0*180/math.Pi, Lon: p.Lon}
}

func zoneRepoWith(zones ...domain.AlertZone) *mockZoneRepo {
	return &mockZoneRepo{
		listFn: func(ctx context.Context) ([]domain.AlertZone, error) { return zones, nil },
	}
}

func TestZoneService_Resolve_FirstMatch(t *testing.T) {
	repo := zoneRepoWith(
		domain.AlertZone{ID: "1", Code: "z1", Point: north(telAviv, 4.9)},
		domain.AlertZone{ID: "2", Code: "z2", Point: north(telAviv, 1.0)},
	)
	svc := usecases.NewZoneService(repo, 5)

	status, err := svc.Resolve(context.Background(), telAviv, "", geospatial.FirstMatch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.Matched || status.Zone.ID != "1" {
		t.Fatalf("expected zone 1, got %+v", status)
	}
	if status.MatchBy != "radius" {
		t.Errorf("expected match by radius, got %s", status.MatchBy)
	}
}

func TestZoneService_Resolve_Nearest(t *testing.T) {
	repo := zoneRepoWith(
		domain.AlertZone{ID: "1", Code: "z1", Point: north(telAviv, 4.9)},
		domain.AlertZone{ID: "2", Code: "z2", Point: north(telAviv, 1.0)},
	)
	svc := usecases.NewZoneService(repo, 5)

	status, err := svc.Resolve(context.Background(), telAviv, "", geospatial.Nearest)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.Matched || status.Zone.ID != "2" {
		t.Fatalf("expected zone 2, got %+v", status)
	}
}

func TestZoneService_Resolve_CityFallback(t *testing.T) {
	repo := zoneRepoWith(
		domain.AlertZone{ID: "1", Code: "z1", Name: "Haifa", Point: north(telAviv, 80)},
		domain.AlertZone{ID: "2", Code: "z2", Name: "Tel Aviv", Point: north(telAviv, 9)},
	)
	svc := usecases.NewZoneService(repo, 5)

	status, err := svc.Resolve(context.Background(), telAviv, "Tel Aviv ", geospatial.FirstMatch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.Matched || status.Zone.ID != "2" || status.MatchBy != "city" {
		t.Fatalf("expected city match on zone 2, got %+v", status)
	}
}

func TestZoneService_Resolve_NoMatchIsNotAnError(t *testing.T) {
	svc := usecases.NewZoneService(zoneRepoWith(
		domain.AlertZone{ID: "1", Code: "z1", Name: "Haifa", Point: north(telAviv, 80)},
	), 5)

	status, err := svc.Resolve(context.Background(), telAviv, "", geospatial.FirstMatch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status.Matched || status.Zone != nil {
		t.Errorf("expected no match, got %+v", status)
	}
}

func TestZoneService_Resolve_InvalidPoint(t *testing.T) {
	svc := usecases.NewZoneService(zoneRepoWith(), 5)
	_, err := svc.Resolve(context.Background(), domain.GeoPoint{Lat: 120, Lon: 0}, "", geospatial.FirstMatch)
	var vErr *domain.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestZoneService_Resolve_NoZonesLoaded(t *testing.T) {
	svc := usecases.NewZoneService(zoneRepoWith(), 5)
	_, err := svc.Resolve(context.Background(), telAviv, "", geospatial.FirstMatch)
	if !errors.Is(err, domain.ErrNoZones) {
		t.Fatalf("expected ErrNoZones, got %v", err)
	}
}

func TestZoneService_AgreesWithResolveZone(t *testing.T) {
	var zones []domain.AlertZone
	for i := 0; i < 120; i++ {
		a := float64(i) * 2.39996
		r := float64(i) * 0.15
		zones = append(zones, domain.AlertZone{
			ID:   fmt.Sprintf("%d", i),
			Code: fmt.Sprintf("z%d", i),
			Point: domain.GeoPoint{
				Lat: telAviv.Lat + r/111*math.Cos(a),
				Lon: telAviv.Lon + r/94*math.Sin(a),
			},
		})
	}
	svc := usecases.NewZoneService(zoneRepoWith(zones...), 5)

	queries := []domain.GeoPoint{telAviv, north(telAviv, 3), north(telAviv, 12), north(telAviv, -20), north(telAviv, 40)}
	for _, strategy := range []geospatial.Strategy{geospatial.FirstMatch, geospatial.Nearest} {
		for _, p := range queries {
			want, _ := geospatial.ResolveZone(p, zones, "", geospatial.ResolveOptions{RadiusKm: 5, Strategy: strategy})
			got, err := svc.Resolve(context.Background(), p, "", strategy)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			switch {
			case want == nil && got.Matched:
				t.Errorf("%v %v: service matched %s, resolver did not", strategy, p, got.Zone.ID)
			case want != nil && !got.Matched:
				t.Errorf("%v %v: resolver matched %s, service did not", strategy, p, want.ID)
			case want != nil && got.Zone.ID != want.ID:
				t.Errorf("%v %v: service %s, resolver %s", strategy, p, got.Zone.ID, want.ID)
			}
		}
	}
}

func TestZoneService_LoadsOnceAndRefreshes(t *testing.T) {
	repo := zoneRepoWith(domain.AlertZone{ID: "1", Code: "z1", Point: telAviv})
	svc := usecases.NewZoneService(repo, 5)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.Resolve(ctx, telAviv, "", geospatial.FirstMatch); err != nil {
			t.Fatal(err)
		}
	}
	if repo.calls != 1 {
		t.Errorf("expected a single load, got %d", repo.calls)
	}

	n, err := svc.Refresh(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || repo.calls != 2 {
		t.Errorf("expected refresh to reload (n=%d calls=%d)", n, repo.calls)
	}
}

func TestZoneService_GetByCode(t *testing.T) {
	svc := usecases.NewZoneService(zoneRepoWith(
		domain.AlertZone{ID: "1", Code: "z1", Name: "Sderot", ShelterSeconds: 15},
	), 5)

	z, err := svc.GetByCode(context.Background(), "z1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if z.Name != "Sderot" || z.ShelterSeconds != 15 {
		t.Errorf("unexpected zone %+v", z)
	}

	if _, err := svc.GetByCode(context.Background(), "nope"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestZoneService_ListReturnsCopy(t *testing.T) {
	svc := usecases.NewZoneService(zoneRepoWith(domain.AlertZone{ID: "1", Code: "z1", Name: "A"}), 5)
	zones, _ := svc.List(context.Background())
	zones[0].Name = "changed"

	again, _ := svc.List(context.Background())
	if again[0].Name != "A" {
		t.Errorf("snapshot mutated through List: %+v", again[0])
	}
}

func TestZoneService_RefreshError(t *testing.T) {
	svc := usecases.NewZoneService(&mockZoneRepo{
		listFn: func(ctx context.Context) ([]domain.AlertZone, error) { return nil, errors.New("db down") },
	}, 5)
	if _, err := svc.Resolve(context.Background(), telAviv, "", geospatial.FirstMatch); err == nil {
		t.Error("expected error when zones cannot be loaded")
	}
}

func TestZoneService_Count(t *testing.T) {
	svc := usecases.NewZoneService(zoneRepoWith(
		domain.AlertZone{Code: "z1", Point: telAviv},
		domain.AlertZone{Code: "z2", Point: north(telAviv, 8)},
	), 5)
	n, err := svc.Count(context.Background())
	if err != nil || n != 2 {
		t.Fatalf("expected 2 zones, got %d (%v)", n, err)
	}

	empty := usecases.NewZoneService(zoneRepoWith(), 5)
	if n, err := empty.Count(context.Background()); err != nil || n != 0 {
		t.Errorf("expected 0 zones, got %d (%v)", n, err)
	}
}
