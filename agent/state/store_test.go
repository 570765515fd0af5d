package state

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemoryStoreEmptySession(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	if _, err := store.Load(context.Background(), "   "); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("Load() error = %v, want ErrInvalidSession", err)
	}
	if err := store.Save(context.Background(), nil); !errors.Is(err, ErrNilSession) {
		t.Fatalf("Save(nil) error = %v, want ErrNilSession", err)
	}
}

func TestMemoryStoreSaveLoadDelete(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	store := NewMemoryStore(WithClock(func() time.Time { return now }))

	st := NewSession("session-1", "dr@example.org", now)
	if err := st.Append(RoleUser, "hello", now); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := store.Save(context.Background(), st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// mutating the caller's copy must not leak into the store
	st.Messages[0].Content = "mutated"

	got, err := store.Load(context.Background(), "session-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(got.Messages) != 1 || got.Messages[0].Content != "hello" {
		t.Fatalf("unexpected messages: %#v", got.Messages)
	}

	if err := store.Delete(context.Background(), "session-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Load(context.Background(), "session-1"); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("Load() after delete error = %v, want ErrStateNotFound", err)
	}
}

func TestMemoryStoreTTL(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	now := start
	store := NewMemoryStore(WithTTL(time.Hour), WithClock(func() time.Time { return now }))

	if err := store.Save(context.Background(), NewSession("s", "", start)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	now = start.Add(59 * time.Minute)
	if _, err := store.Load(context.Background(), "s"); err != nil {
		t.Fatalf("Load() before expiry error = %v", err)
	}

	now = start.Add(61 * time.Minute)
	if _, err := store.Load(context.Background(), "s"); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("Load() after expiry error = %v, want ErrStateNotFound", err)
	}
	if store.Len() != 0 {
		t.Fatalf("expired session not evicted, len = %d", store.Len())
	}
}

func TestMemoryStoreCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewMemoryStore().Save(ctx, NewSession("s", "", time.Now())); !errors.Is(err, context.Canceled) {
		t.Fatalf("Save() error = %v, want context.Canceled", err)
	}
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st := NewSession("shared", "", time.Now())
			_ = store.Save(context.Background(), st)
			_, _ = store.Load(context.Background(), "shared")
		}()
	}
	wg.Wait()
	if store.Len() != 1 {
		t.Fatalf("expected one session, got %d", store.Len())
	}
}

func TestSessionAppendAndGreeting(t *testing.T) {
	t.Parallel()

	now := time.Now()
	st := NewSession("s", "", now)

	if err := st.Append(RoleUser, "   ", now); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("Append(empty) error = %v", err)
	}
	if err := st.Append(Role("system"), "x", now); !errors.Is(err, ErrUnknownRole) {
		t.Fatalf("Append(system) error = %v", err)
	}

	if err := st.MarkGreeted("welcome", now); err != nil {
		t.Fatalf("MarkGreeted() error = %v", err)
	}
	if err := st.MarkGreeted("welcome", now); err != nil {
		t.Fatalf("MarkGreeted() second call error = %v", err)
	}
	if len(st.Messages) != 1 || !st.Greeted {
		t.Fatalf("greeting recorded %d times", len(st.Messages))
	}
	if err := st.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestMemoryStoreTTLIgnoresSessionClock(t *testing.T) {
	t.Parallel()

	storeNow := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore(WithTTL(time.Hour), WithClock(func() time.Time { return storeNow }))

	// the caller stamps the session from a clock far behind the store's
	stale := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	st := NewSession("s", "", stale)
	if err := st.Append(RoleUser, "hello", stale); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if err := store.Save(context.Background(), st); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := store.Load(context.Background(), "s")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !got.UpdatedAt.Equal(stale) {
		t.Fatalf("UpdatedAt = %v, want caller value %v", got.UpdatedAt, stale)
	}

	storeNow = storeNow.Add(2 * time.Hour)
	if _, err := store.Load(context.Background(), "s"); !errors.Is(err, ErrStateNotFound) {
		t.Fatalf("Load() after expiry error = %v, want ErrStateNotFound", err)
	}
}
