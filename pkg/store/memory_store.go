package store

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore backs SessionStore with an in-process cache. It is the
// fallback when Redis is unreachable and the default for tests.
type MemoryStore struct {
	sessions   *cache.Cache
	results    *cache.Cache
	sessionTTL time.Duration
}

var _ SessionStore = &MemoryStore{}

func NewMemoryStore(sessionTTL, resultTTL time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions:   cache.New(sessionTTL, 10*time.Minute),
		results:    cache.New(resultTTL, 10*time.Minute),
		sessionTTL: sessionTTL,
	}
}

func (s *MemoryStore) SaveSession(_ context.Context, session *Session) error {
	s.sessions.Set(sessionKey(session.ID), session, cache.DefaultExpiration)
	return nil
}

func (s *MemoryStore) GetSession(_ context.Context, sessionID string) (*Session, error) {
	x, found := s.sessions.Get(sessionKey(sessionID))
	if !found {
		return nil, ErrNotFound
	}
	session := x.(*Session)
	// Re-arm the TTL the same way the Redis backend does on read.
	s.sessions.Set(sessionKey(sessionID), session, cache.DefaultExpiration)
	return session, nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, sessionID string) error {
	s.sessions.Delete(sessionKey(sessionID))
	return nil
}

func (s *MemoryStore) PutResult(_ context.Context, key string, entry *CacheEntry) error {
	// Add fails when the key exists, matching the write-once Redis SetNX.
	_ = s.results.Add(key, entry, cache.DefaultExpiration)
	return nil
}

func (s *MemoryStore) GetResult(_ context.Context, key string) (*CacheEntry, error) {
	x, found := s.results.Get(key)
	if !found {
		return nil, ErrNotFound
	}
	return x.(*CacheEntry), nil
}
