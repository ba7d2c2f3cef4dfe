package usecases_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/safezone-app/safezone/internal/core/domain"
)

// --- Mock ZoneRepository ---

type mockZoneRepo struct {
	listFn       func(ctx context.Context) ([]domain.AlertZone, error)
	replaceAllFn func(ctx context.Context, zones []domain.AlertZone) error
	calls        int
}

func (m *mockZoneRepo) ReplaceAll(ctx context.Context, zones []domain.AlertZone) error {
	if m.replaceAllFn != nil {
		return m.replaceAllFn(ctx, zones)
	}
	return nil
}
func (m *mockZoneRepo) GetByCode(ctx context.Context, code string) (*domain.AlertZone, error) {
	return nil, domain.ErrNotFound
}

func (m *mockZoneRepo) List(ctx context.Context) ([]domain.AlertZone, error) {
	m.calls++
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

// --- Mock ShelterRepository ---

type mockShelterRepo struct {
	inBoundsFn func(ctx context.Context, b domain.Bounds) ([]domain.Shelter, error)
	upserted   []domain.Shelter
}

func (m *mockShelterRepo) UpsertBatch(ctx context.Context, s []domain.Shelter) error {
	m.upserted = append(m.upserted, s...)
	return nil
}

func (m *mockShelterRepo) InBounds(ctx context.Context, b domain.Bounds) ([]domain.Shelter, error) {
	if m.inBoundsFn != nil {
		return m.inBoundsFn(ctx, b)
	}
	return nil, nil
}

// --- Mock HospitalRepository ---

type mockHospitalRepo struct {
	inBoundsFn func(ctx context.Context, b domain.Bounds) ([]domain.Hospital, error)
	upserted   []domain.Hospital
}

func (m *mockHospitalRepo) UpsertBatch(ctx context.Context, h []domain.Hospital) error {
	m.upserted = append(m.upserted, h...)
	return nil
}

func (m *mockHospitalRepo) InBounds(ctx context.Context, b domain.Bounds) ([]domain.Hospital, error) {
	if m.inBoundsFn != nil {
		return m.inBoundsFn(ctx, b)
	}
	return nil, nil
}

// --- Mock AlertRepository ---

type mockAlertRepo struct {
	insertNewFn     func(ctx context.Context, alerts []domain.Alert) ([]domain.Alert, error)
	sinceFn         func(ctx context.Context, t time.Time, limit int) ([]domain.Alert, error)
	activeForZoneFn func(ctx context.Context, zoneCode string, since time.Time) ([]domain.Alert, error)
}

func (m *mockAlertRepo) InsertNew(ctx context.Context, alerts []domain.Alert) ([]domain.Alert, error) {
	if m.insertNewFn != nil {
		return m.insertNewFn(ctx, alerts)
	}
	return alerts, nil
}

func (m *mockAlertRepo) Since(ctx context.Context, t time.Time, limit int) ([]domain.Alert, error) {
	if m.sinceFn != nil {
		return m.sinceFn(ctx, t, limit)
	}
	return nil, nil
}

func (m *mockAlertRepo) ActiveForZone(ctx context.Context, zoneCode string, since time.Time) ([]domain.Alert, error) {
	if m.activeForZoneFn != nil {
		return m.activeForZoneFn(ctx, zoneCode, since)
	}
	return nil, nil
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu        sync.Mutex
	published []string
	fail      bool
}

func (m *mockPublisher) PublishAlert(ctx context.Context, a *domain.Alert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("broker down")
	}
	m.published = append(m.published, a.ID)
	return nil
}

func (m *mockPublisher) PublishCountdownExpired(ctx context.Context, alertID, zoneCode string, deadline time.Time) error {
	return nil
}

// --- Mock CacheService ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMockCache() *mockCache { return &mockCache{data: make(map[string][]byte)} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, errors.New("miss")
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// --- Mock upstream sources ---

type mockSources struct {
	zones     []domain.AlertZone
	shelters  []domain.Shelter
	hospitals []domain.Hospital
	alertsFn  func(ctx context.Context) ([]domain.Alert, error)
	err       error
}

func (m *mockSources) FetchZones(ctx context.Context) ([]domain.AlertZone, error) {
	return m.zones, m.err
}

func (m *mockSources) FetchShelters(ctx context.Context) ([]domain.Shelter, error) {
	return m.shelters, m.err
}

func (m *mockSources) FetchHospitals(ctx context.Context) ([]domain.Hospital, error) {
	return m.hospitals, m.err
}

func (m *mockSources) FetchAlerts(ctx context.Context) ([]domain.Alert, error) {
	if m.alertsFn != nil {
		return m.alertsFn(ctx)
	}
	return nil, m.err
}

// --- Mock CountdownScheduler ---

type scheduled struct {
	alertID  string
	zone     string
	deadline time.Time
}

type mockScheduler struct {
	mu    sync.Mutex
	calls []scheduled
	err   error
}

func (m *mockScheduler) ScheduleCountdown(ctx context.Context, alertID, zoneCode string, deadline time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.calls = append(m.calls, scheduled{alertID, zoneCode, deadline})
	return nil
}
