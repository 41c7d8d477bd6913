package handoff

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value   []byte
	expires time.Time
}

// MemoryStore keeps entries in process memory
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
	locks   map[string]time.Time
	now     func() time.Time
}

// NewMemoryStore creates an in-process store whose entries expire after ttl
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
		locks:   make(map[string]time.Time),
		now:     time.Now,
	}
}

func memoryKey(sessionID, key string) string {
	return sessionID + ":" + key
}

func (m *MemoryStore) Put(_ context.Context, sessionID, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sweepLocked()
	stored := make([]byte, len(value))
	copy(stored, value)
	m.entries[memoryKey(sessionID, key)] = memoryEntry{
		value:   stored,
		expires: m.now().Add(m.ttl),
	}
	return nil
}

func (m *MemoryStore) Get(_ context.Context, sessionID, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := memoryKey(sessionID, key)
	e, ok := m.entries[k]
	if !ok {
		return nil, ErrNotFound
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, k)
		return nil, ErrNotFound
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, key := range keys {
		delete(m.entries, memoryKey(sessionID, key))
	}
	return nil
}

func (m *MemoryStore) Acquire(_ context.Context, sessionID, name string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	k := memoryKey(sessionID, name)
	now := m.now()
	if until, held := m.locks[k]; held && now.Before(until) {
		return false, nil
	}
	m.locks[k] = now.Add(ttl)
	return true, nil
}

func (m *MemoryStore) Locked(_ context.Context, sessionID, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	until, held := m.locks[memoryKey(sessionID, name)]
	return held && m.now().Before(until), nil
}

func (m *MemoryStore) Release(_ context.Context, sessionID, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.locks, memoryKey(sessionID, name))
	return nil
}

func (m *MemoryStore) Close() error {
	return nil
}

// sweepLocked drops expired entries and locks; m.mu must be held
func (m *MemoryStore) sweepLocked() {
	now := m.now()
	for k, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, k)
		}
	}
	for k, until := range m.locks {
		if !now.Before(until) {
			delete(m.locks, k)
		}
	}
}
