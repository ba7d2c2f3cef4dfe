package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/safezone-app/safezone/internal/core/domain"
	"github.com/safezone-app/safezone/internal/core/ports"
	"github.com/safezone-app/safezone/internal/pkg/geospatial"
	"github.com/safezone-app/safezone/internal/pkg/metrics"
)

// ZoneSnapshot is an immutable, indexed copy of the alert zone list.
type ZoneSnapshot struct {
	zones    []domain.AlertZone
	byCode   map[string]int
	index    *geospatial.Index
	LoadedAt time.Time
}

func newZoneSnapshot(zones []domain.AlertZone) *ZoneSnapshot {
	byCode := make(map[string]int, len(zones))
	for i, z := range zones {
		if _, dup := byCode[z.Code]; !dup {
			byCode[z.Code] = i
		}
	}
	return &ZoneSnapshot{
		zones:    zones,
		byCode:   byCode,
		index:    geospatial.NewIndex(geospatial.ZonePoints(zones)),
		LoadedAt: time.Now(),
	}
}

// Len returns the number of zones in the snapshot.
func (s *ZoneSnapshot) Len() int { return len(s.zones) }

// resolve runs the zone resolver over the index candidates. Candidates keep
// source order, so first-match semantics are the same as a full scan.
func (s *ZoneSnapshot) resolve(user domain.GeoPoint, city string, opts geospatial.ResolveOptions) (int, geospatial.Match) {
	cand := s.index.Candidates(user, opts.RadiusKm)
	subset := make([]domain.AlertZone, len(cand))
	for i, pos := range cand {
		subset[i] = s.zones[pos]
	}

	var hit int
	if opts.Strategy == geospatial.Nearest {
		hit = geospatial.NearestWithin(user, subset, opts.RadiusKm)
	} else {
		hit = geospatial.FirstWithin(user, subset, opts.RadiusKm)
	}
	if hit >= 0 {
		return cand[hit], geospatial.MatchByRadius
	}

	if i := geospatial.MatchCity(s.zones, city); i >= 0 {
		return i, geospatial.MatchByCity
	}
	return -1, ""
}

// ZoneService resolves user positions to alert zones.
type ZoneService struct {
	zones    ports.ZoneRepository
	radiusKm float64

	snap atomic.Pointer[ZoneSnapshot]
	mu   sync.Mutex // serialises reloads
}

// NewZoneService creates a new ZoneService. radiusKm <= 0 selects
// geospatial.DefaultZoneRadiusKm.
func NewZoneService(zones ports.ZoneRepository, radiusKm float64) *ZoneService {
	if radiusKm <= 0 {
		radiusKm = geospatial.DefaultZoneRadiusKm
	}
	return &ZoneService{zones: zones, radiusKm: radiusKm}
}

// RadiusKm returns the configured match radius.
func (s *ZoneService) RadiusKm() float64 { return s.radiusKm }

// Refresh reloads the zone list and swaps in a new snapshot.
func (s *ZoneService) Refresh(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	zones, err := s.zones.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list zones: %w", err)
	}
	s.snap.Store(newZoneSnapshot(zones))
	slog.InfoContext(ctx, "alert zones loaded", "count", len(zones))
	return len(zones), nil
}

func (s *ZoneService) snapshot(ctx context.Context) (*ZoneSnapshot, error) {
	if snap := s.snap.Load(); snap != nil {
		return snap, nil
	}
	if _, err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s.snap.Load(), nil
}

// Count returns the number of zones in the current snapshot, loading it
// first if needed.
func (s *ZoneService) Count(ctx context.Context) (int, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return len(snap.zones), nil
}

// List returns every zone in source order.
func (s *ZoneService) List(ctx context.Context) ([]domain.AlertZone, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.AlertZone, len(snap.zones))
	copy(out, snap.zones)
	return out, nil
}

// GetByCode returns a single zone.
func (s *ZoneService) GetByCode(ctx context.Context, code string) (*domain.AlertZone, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	i, ok := snap.byCode[code]
	if !ok {
		return nil, domain.ErrNotFound
	}
	z := snap.zones[i]
	return &z, nil
}

// Resolve finds the alert zone for user, falling back to city. No match is
// reported through ZoneStatus.Matched, not as an error.
func (s *ZoneService) Resolve(ctx context.Context, user domain.GeoPoint, city string, strategy geospatial.Strategy) (*domain.ZoneStatus, error) {
	if !user.Valid() {
		return nil, &domain.ValidationError{Field: "location", Reason: "latitude/longitude out of range"}
	}

	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if snap.Len() == 0 {
		return nil, domain.ErrNoZones
	}

	i, by := snap.resolve(user, city, geospatial.ResolveOptions{RadiusKm: s.radiusKm, Strategy: strategy})
	if i < 0 {
		metrics.ZoneResolutions.WithLabelValues("none").Inc()
		return &domain.ZoneStatus{Matched: false}, nil
	}

	metrics.ZoneResolutions.WithLabelValues(string(by)).Inc()
	z := snap.zones[i]
	return &domain.ZoneStatus{Zone: &z, Matched: true, MatchBy: string(by)}, nil
}
