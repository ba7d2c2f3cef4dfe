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

// DefaultHospitalRadiusKm is the "nearby" threshold for hospital listings.
const DefaultHospitalRadiusKm = 20.0

// HospitalService handles hospital lookups.
type HospitalService struct {
	hospitals ports.HospitalRepository
	cache     ports.CacheService
}

// NewHospitalService creates a new HospitalService.
func NewHospitalService(hospitals ports.HospitalRepository, cache ports.CacheService) *HospitalService {
	return &HospitalService{hospitals: hospitals, cache: cache}
}

// Nearby returns hospitals within radiusKm of user (inclusive), closest first.
func (s *HospitalService) Nearby(ctx context.Context, user domain.GeoPoint, radiusKm float64) ([]domain.Hospital, error) {
	if !user.Valid() {
		return nil, &domain.ValidationError{Field: "location", Reason: "latitude/longitude out of range"}
	}
	if radiusKm <= 0 {
		radiusKm = DefaultHospitalRadiusKm
	}

	cacheKey := fmt.Sprintf("hospitals:nearby:%.4f:%.4f:%.1f", user.Lat, user.Lon, radiusKm)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var hospitals []domain.Hospital
			if err := json.Unmarshal(data, &hospitals); err == nil {
				metrics.CacheHits.WithLabelValues("hospitals_nearby").Inc()
				return hospitals, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("hospitals_nearby").Inc()
	}

	raw, err := s.hospitals.InBounds(ctx, geospatial.BoundsAround(user, radiusKm))
	if err != nil {
		return nil, fmt.Errorf("hospitals in bounds: %w", err)
	}

	hospitals := make([]domain.Hospital, 0, len(raw))
	for _, h := range raw {
		d := geospatial.DistanceKm(user, h.Location)
		if math.IsNaN(d) || math.IsInf(d, 0) {
			metrics.DroppedEntities.WithLabelValues("hospital").Inc()
			continue
		}
		if !geospatial.Within(user, h.Location, radiusKm) {
			continue
		}
		h.Distance = &d
		hospitals = append(hospitals, h)
	}
	sort.SliceStable(hospitals, func(i, j int) bool { return *hospitals[i].Distance < *hospitals[j].Distance })

	if s.cache != nil {
		if data, err := json.Marshal(hospitals); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, 600)
		}
	}

	return hospitals, nil
}
