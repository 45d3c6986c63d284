package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory.  Entries older than the
// TTL are treated as absent and removed by Sweep.  The mutex only guards
// map access; no I/O happens while it is held.
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryEntry
	ttl   time.Duration
	now   func() time.Time
}

type memoryEntry struct {
	session Session
	savedAt time.Time
}

// NewMemoryStore returns an empty store.  A ttl <= 0 disables expiry.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		items: make(map[string]memoryEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (m *MemoryStore) expired(e memoryEntry, now time.Time) bool {
	return m.ttl > 0 && now.Sub(e.savedAt) >= m.ttl
}

func (m *MemoryStore) Load(_ context.Context, userID string) (Session, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.items[userID]
	if !ok {
		return Session{}, false, nil
	}
	if m.expired(e, m.now()) {
		delete(m.items, userID)
		return Session{}, false, nil
	}
	return e.session.Clone(), true, nil
}

func (m *MemoryStore) Save(_ context.Context, userID string, s Session) error {
	s = s.Clone()
	m.mu.Lock()
	m.items[userID] = memoryEntry{session: s, savedAt: m.now()}
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, userID string) error {
	m.mu.Lock()
	delete(m.items, userID)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored sessions, expired or not.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Sweep removes every session that expired at now and returns how many
// were removed.
func (m *MemoryStore) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, e := range m.items {
		if m.expired(e, now) {
			delete(m.items, id)
			n++
		}
	}
	return n
}

// RunJanitor calls Sweep every interval until ctx is cancelled.
func (m *MemoryStore) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 || m.ttl <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			m.Sweep(now)
		}
	}
}
