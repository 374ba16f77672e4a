package storage

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func openTestBolt(t *testing.T, opts Options) (*boltStore, *testClock) {
	t.Helper()
	store, err := openBolt(filepath.Join(t.TempDir(), "nested", "session.db"), normalizeOptions(opts))
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	clock := &testClock{now: time.Now()}
	store.now = clock.Now
	store.lastCleanup.Store(clock.Now().UnixMilli())
	return store, clock
}

func storedSessions(t *testing.T, b *boltStore) int {
	t.Helper()
	n := 0
	err := b.db.View(func(tx *bolt.Tx) error {
		n = tx.Bucket([]byte(sessionBucket)).Stats().KeyN
		return nil
	})
	if err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	return n
}

func TestBoltStoreSavesAndExpiresTokens(t *testing.T) {
	store, clock := openTestBolt(t, Options{TokenTTL: time.Minute, CleanupInterval: time.Hour})

	if _, ok, err := store.Token("default"); err != nil || ok {
		t.Fatalf("expected no token, ok=%v err=%v", ok, err)
	}

	if err := store.SaveToken("default", "tok-123"); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	token, ok, err := store.Token("default")
	if err != nil || !ok || token != "tok-123" {
		t.Fatalf("expected stored token, got %q ok=%v err=%v", token, ok, err)
	}

	clock.Advance(time.Minute)
	if _, ok, err := store.Token("default"); err != nil || ok {
		t.Fatalf("expected token to expire, ok=%v err=%v", ok, err)
	}
	if n := storedSessions(t, store); n != 0 {
		t.Fatalf("expired token should be deleted on read, %d left", n)
	}
}

func TestBoltStoreCleanupCadence(t *testing.T) {
	store, clock := openTestBolt(t, Options{TokenTTL: time.Minute, CleanupInterval: 10 * time.Minute})

	for _, p := range []string{"a", "b", "c"} {
		if err := store.SaveToken(p, "t-"+p); err != nil {
			t.Fatalf("SaveToken: %v", err)
		}
	}

	clock.Advance(5 * time.Minute)
	if err := store.SaveToken("fresh", "t"); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	if n := storedSessions(t, store); n != 4 {
		t.Fatalf("cleanup ran before its interval, %d sessions left", n)
	}

	clock.Advance(6 * time.Minute)
	if err := store.SaveToken("fresh", "t2"); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	if n := storedSessions(t, store); n != 1 {
		t.Fatalf("expected only the fresh session after cleanup, got %d", n)
	}
}

func TestBoltStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")
	first, err := NewStore("bbolt", path, Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := first.SaveToken("ops", "persisted"); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	second, err := NewStore("bbolt", path, Options{})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer second.Close()

	token, ok, err := second.Token("ops")
	if err != nil || !ok || token != "persisted" {
		t.Fatalf("expected persisted token, got %q ok=%v err=%v", token, ok, err)
	}
	if err := second.DeleteToken("ops"); err != nil {
		t.Fatalf("DeleteToken: %v", err)
	}
	if _, ok, _ := second.Token("ops"); ok {
		t.Fatalf("token should be gone after DeleteToken")
	}
}

func TestMemoryStoreExpiry(t *testing.T) {
	clock := &testClock{now: time.Now()}
	store := newMemoryStore(Options{TokenTTL: time.Second}, clock.Now)

	if err := store.SaveToken("p", "t"); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	if tok, ok, _ := store.Token("p"); !ok || tok != "t" {
		t.Fatalf("expected token, got %q ok=%v", tok, ok)
	}
	clock.Advance(time.Second)
	if _, ok, _ := store.Token("p"); ok {
		t.Fatalf("expected token to expire")
	}
}

func TestStoresRejectEmptyProfile(t *testing.T) {
	store := newMemoryStore(normalizeOptions(Options{}), time.Now)
	if err := store.SaveToken("  ", "t"); !errors.Is(err, ErrEmptyProfile) {
		t.Fatalf("expected ErrEmptyProfile, got %v", err)
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.SaveToken("x", "y"); err != nil {
		t.Fatalf("noop store SaveToken: %v", err)
	}
	if _, ok, _ := store.Token("x"); ok {
		t.Fatalf("noop store should never return a token")
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewStore("redis", "", Options{}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
	if _, err := NewStore("bbolt", " ", Options{}); err == nil {
		t.Fatalf("expected error for missing bbolt path")
	}
}

func TestTokenSourceReadsProfile(t *testing.T) {
	store := newMemoryStore(normalizeOptions(Options{}), time.Now)
	ts := TokenSource(store, "desk")

	tok, err := ts.Token(context.Background())
	if err != nil || tok != "" {
		t.Fatalf("expected empty token, got %q err=%v", tok, err)
	}

	if err := store.SaveToken("desk", "abc"); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}
	tok, err = ts.Token(context.Background())
	if err != nil || tok != "abc" {
		t.Fatalf("expected abc, got %q err=%v", tok, err)
	}
}
