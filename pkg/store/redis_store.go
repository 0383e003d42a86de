package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when a session or result key has no value.
var ErrNotFound = errors.New("store: not found")

// RedisStore backs SessionStore with Redis so state survives restarts and
// is shared between replicas.
type RedisStore struct {
	rdb        *redis.Client
	sessionTTL time.Duration
	resultTTL  time.Duration
}

var _ SessionStore = &RedisStore{}

func NewRedisStore(rdb *redis.Client, sessionTTL, resultTTL time.Duration) *RedisStore {
	return &RedisStore{
		rdb:        rdb,
		sessionTTL: sessionTTL,
		resultTTL:  resultTTL,
	}
}

func (s *RedisStore) SaveSession(ctx context.Context, session *Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.rdb.Set(ctx, sessionKey(session.ID), payload, s.sessionTTL).Err(); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *RedisStore) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	payload, err := s.rdb.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var session Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	// Reading a session keeps the conversation alive for another full TTL.
	s.rdb.Expire(ctx, sessionKey(sessionID), s.sessionTTL)

	return &session, nil
}

func (s *RedisStore) DeleteSession(ctx context.Context, sessionID string) error {
	if err := s.rdb.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *RedisStore) PutResult(ctx context.Context, key string, entry *CacheEntry) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	// SetNX keeps the first finished answer; later duplicates are dropped.
	if err := s.rdb.SetNX(ctx, key, payload, s.resultTTL).Err(); err != nil {
		return fmt.Errorf("put result: %w", err)
	}
	return nil
}

func (s *RedisStore) GetResult(ctx context.Context, key string) (*CacheEntry, error) {
	payload, err := s.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get result: %w", err)
	}

	var entry CacheEntry
	if err := json.Unmarshal(payload, &entry); err != nil {
		return nil, fmt.Errorf("unmarshal result: %w", err)
	}
	return &entry, nil
}
