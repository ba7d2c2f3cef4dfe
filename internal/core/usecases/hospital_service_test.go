package usecases_test

import (
	"context"
	"testing"

	"github.com/safezone-app/safezone/internal/core/domain"
	"github.com/safezone-app/safezone/internal/core/usecases"
)

func TestHospitalService_Nearby(t *testing.T) {
	var gotBounds domain.Bounds
	repo := &mockHospitalRepo{
		inBoundsFn: func(ctx context.Context, b domain.Bounds) ([]domain.Hospital, error) {
			gotBounds = b
			return []domain.Hospital{
				{ID: "ichilov", Name: "Ichilov", Location: north(telAviv, 1.5)},
				{ID: "sheba", Name: "Sheba", Location: north(telAviv, -8)},
				{ID: "meir", Name: "Meir", Location: north(telAviv, 19.9)},
				{ID: "rambam", Name: "Rambam", Location: north(telAviv, 85)},
			}, nil
		},
	}
	svc := usecases.NewHospitalService(repo, nil)

	hospitals, err := svc.Nearby(context.Background(), telAviv, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !gotBounds.Contains(north(telAviv, 19)) {
		t.Errorf("bounds %+v do not cover the search radius", gotBounds)
	}

	want := []string{"ichilov", "sheba", "meir"}
	if len(hospitals) != len(want) {
		t.Fatalf("expected %d hospitals, got %d", len(want), len(hospitals))
	}
	for i, id := range want {
		if hospitals[i].ID != id {
			t.Errorf("position %d: expected %s, got %s", i, id, hospitals[i].ID)
		}
	}
}

func TestHospitalService_Nearby_BoundingBoxKeepsEdge(t *testing.T) {
	stored := []domain.Hospital{
		{ID: "edge-north", Location: north(telAviv, 19.99)},
		{ID: "edge-south", Location: north(telAviv, -19.99)},
		{ID: "outside", Location: north(telAviv, 20.5)},
	}
	repo := &mockHospitalRepo{
		inBoundsFn: func(ctx context.Context, b domain.Bounds) ([]domain.Hospital, error) {
			var out []domain.Hospital
			for _, h := range stored {
				if b.Contains(h.Location) {
					out = append(out, h)
				}
			}
			return out, nil
		},
	}
	svc := usecases.NewHospitalService(repo, nil)

	hospitals, err := svc.Nearby(context.Background(), telAviv, 20)
	if err != nil {
		t.Fatal(err)
	}
	if len(hospitals) != 2 {
		t.Fatalf("expected both edge hospitals, got %+v", hospitals)
	}
	for _, h := range hospitals {
		if h.ID == "outside" {
			t.Errorf("hospital beyond the radius returned")
		}
	}
}

func TestHospitalService_Nearby_CustomRadius(t *testing.T) {
	repo := &mockHospitalRepo{
		inBoundsFn: func(ctx context.Context, b domain.Bounds) ([]domain.Hospital, error) {
			return []domain.Hospital{
				{ID: "a", Location: north(telAviv, 4)},
				{ID: "b", Location: north(telAviv, 6)},
			}, nil
		},
	}
	svc := usecases.NewHospitalService(repo, newMockCache())

	hospitals, err := svc.Nearby(context.Background(), telAviv, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hospitals) != 1 || hospitals[0].ID != "a" {
		t.Errorf("unexpected hospitals %+v", hospitals)
	}
}

func TestHospitalService_Nearby_InvalidLocation(t *testing.T) {
	svc := usecases.NewHospitalService(&mockHospitalRepo{}, nil)
	if _, err := svc.Nearby(context.Background(), domain.GeoPoint{Lat: 10, Lon: 200}, 0); err == nil {
		t.Error("expected validation error")
	}
}
