package state

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

var (
	ErrStateNotFound  = errors.New("session state not found")
	ErrNilSession     = errors.New("session state is nil")
	ErrInvalidSession = errors.New("session id is empty")
)

const defaultStoreTTL = 24 * time.Hour

// Store is the persistence contract used by the orchestrator.
type Store interface {
	Load(ctx context.Context, sessionID string) (*Session, error)
	Save(ctx context.Context, st *Session) error
	Delete(ctx context.Context, sessionID string) error
}

type StoreConfig struct {
	TTL time.Duration `default:"24h"`
}

// StoreOption customizes MemoryStore.
type StoreOption func(*MemoryStore)

// WithTTL expires sessions not updated within ttl. Zero disables expiry.
func WithTTL(ttl time.Duration) StoreOption {
	return func(s *MemoryStore) {
		if ttl >= 0 {
			s.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) StoreOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// MemoryStore keeps sessions in process memory. Sessions are copied on the
// way in and out so callers never share state with the store. Expiry is
// measured from the last Save on the store's own clock.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]storedSession
	ttl      time.Duration
	now      func() time.Time
}

func NewMemoryStore(opts ...StoreOption) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]storedSession),
		ttl:      defaultStoreTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *MemoryStore) Load(ctx context.Context, sessionID string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := sessionKey(sessionID)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	entry, ok := s.sessions[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrStateNotFound
	}
	if s.expired(entry) {
		s.mu.Lock()
		if cur, ok := s.sessions[key]; ok && cur.savedAt.Equal(entry.savedAt) {
			delete(s.sessions, key)
		}
		s.mu.Unlock()
		return nil, ErrStateNotFound
	}
	return entry.session.Clone(), nil
}

func (s *MemoryStore) Save(ctx context.Context, st *Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if st == nil {
		return ErrNilSession
	}
	key, err := sessionKey(st.SessionID)
	if err != nil {
		return err
	}
	now := s.now().UTC()
	if st.UpdatedAt.IsZero() {
		st.UpdatedAt = now
	}

	s.mu.Lock()
	s.sessions[key] = storedSession{session: st.Clone(), savedAt: now}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := sessionKey(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.sessions, key)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *MemoryStore) expired(entry storedSession) bool {
	if s.ttl <= 0 {
		return false
	}
	return s.now().Sub(entry.savedAt) > s.ttl
}

type storedSession struct {
	session *Session
	savedAt time.Time
}

func sessionKey(sessionID string) (string, error) {
	key := strings.TrimSpace(sessionID)
	if key == "" {
		return "", ErrInvalidSession
	}
	return key, nil
}
