package storage

import (
	"sync"
	"time"
)

type memoryEntry struct {
	token  string
	expiry time.Time
}

// memoryStore keeps tokens for the lifetime of the process.
type memoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func newMemoryStore(opts Options, now func() time.Time) *memoryStore {
	return &memoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     opts.TokenTTL,
		now:     now,
	}
}

func (m *memoryStore) Close() error { return nil }

func (m *memoryStore) Token(profile string) (string, bool, error) {
	profile, err := normalizeProfile(profile)
	if err != nil {
		return "", false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[profile]
	if !ok {
		return "", false, nil
	}
	if !e.expiry.After(m.now()) {
		delete(m.entries, profile)
		return "", false, nil
	}
	return e.token, true, nil
}

func (m *memoryStore) SaveToken(profile, token string) error {
	profile, err := normalizeProfile(profile)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.entries[profile] = memoryEntry{token: token, expiry: m.now().Add(m.ttl)}
	m.mu.Unlock()
	return nil
}

func (m *memoryStore) DeleteToken(profile string) error {
	profile, err := normalizeProfile(profile)
	if err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.entries, profile)
	m.mu.Unlock()
	return nil
}
