package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/safezone-app/safezone/internal/core/domain"
	"github.com/safezone-app/safezone/internal/core/ports"
	"github.com/safezone-app/safezone/internal/pkg/geospatial"
	"github.com/safezone-app/safezone/internal/pkg/metrics"
)

// DefaultShelterSearchKm bounds the nearest-shelter lookup.
const DefaultShelterSearchKm = 3.0

// ShelterService handles shelter lookups.
type ShelterService struct {
	shelters  ports.ShelterRepository
	projector *geospatial.Projector
	cache     ports.CacheService
	searchKm  float64
}

// NewShelterService creates a new ShelterService.
func NewShelterService(shelters ports.ShelterRepository, projector *geospatial.Projector, cache ports.CacheService, searchKm float64) *ShelterService {
	if searchKm <= 0 {
		searchKm = DefaultShelterSearchKm
	}
	return &ShelterService{shelters: shelters, projector: projector, cache: cache, searchKm: searchKm}
}

// Nearest returns up to limit shelters around user, closest first.
func (s *ShelterService) Nearest(ctx context.Context, user domain.GeoPoint, limit int) ([]domain.Shelter, error) {
	if !user.Valid() {
		return nil, &domain.ValidationError{Field: "location", Reason: "latitude/longitude out of range"}
	}
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	// Try cache
	cacheKey := fmt.Sprintf("shelters:nearest:%.4f:%.4f:%.1f:%d", user.Lat, user.Lon, s.searchKm, limit)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var shelters []domain.Shelter
			if err := json.Unmarshal(data, &shelters); err == nil {
				metrics.CacheHits.WithLabelValues("shelters_nearest").Inc()
				return shelters, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("shelters_nearest").Inc()
	}

	raw, err := s.shelters.InBounds(ctx, geospatial.BoundsAround(user, s.searchKm))
	if err != nil {
		return nil, fmt.Errorf("shelters in bounds: %w", err)
	}

	shelters := s.Annotate(user, raw)
	n := 0
	for _, sh := range shelters {
		if *sh.Distance > s.searchKm {
			break
		}
		n++
	}
	shelters = shelters[:n]
	if len(shelters) > limit {
		shelters = shelters[:limit]
	}

	// Shelter registries change rarely; 5 minutes is plenty.
	if s.cache != nil {
		if data, err := json.Marshal(shelters); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 300)
		}
	}

	return shelters, nil
}

// Annotate derives missing locations from grid coordinates, drops shelters
// whose coordinates are not usable, sets Distance (km) from user and sorts
// the result by ascending distance. The input slice is left untouched.
func (s *ShelterService) Annotate(user domain.GeoPoint, shelters []domain.Shelter) []domain.Shelter {
	out := LocateShelters(s.projector, shelters)
	n := 0
	for _, sh := range out {
		d := geospatial.DistanceKm(user, sh.Location)
		if math.IsNaN(d) || math.IsInf(d, 0) {
			metrics.DroppedEntities.WithLabelValues("shelter").Inc()
			continue
		}
		sh.Distance = &d
		out[n] = sh
		n++
	}
	out = out[:n]

	sort.SliceStable(out, func(i, j int) bool { return *out[i].Distance < *out[j].Distance })
	return out
}
