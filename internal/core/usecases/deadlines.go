package usecases

import (
	"context"
	"sync"
	"time"
)

// MemoryDeadlines is an in-process ports.DeadlineStore. Deadlines only move
// later; expired entries read as absent and are pruned on write.
type MemoryDeadlines struct {
	mu        sync.Mutex
	deadlines map[string]time.Time
	now       func() time.Time
}

// NewMemoryDeadlines creates an empty store.
func NewMemoryDeadlines() *MemoryDeadlines {
	return &MemoryDeadlines{deadlines: make(map[string]time.Time), now: time.Now}
}

// Extend implements ports.DeadlineStore.
func (m *MemoryDeadlines) Extend(ctx context.Context, session string, deadline time.Time) (time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, d := range m.deadlines {
		if !d.After(now) {
			delete(m.deadlines, k)
		}
	}

	cur, ok := m.deadlines[session]
	if ok && !deadline.After(cur) {
		return cur, nil
	}
	if !deadline.After(now) {
		return deadline, nil
	}
	m.deadlines[session] = deadline
	return deadline, nil
}

// Get implements ports.DeadlineStore.
func (m *MemoryDeadlines) Get(ctx context.Context, session string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.deadlines[session]
	if !ok || !d.After(m.now()) {
		return time.Time{}, false, nil
	}
	return d, true, nil
}
