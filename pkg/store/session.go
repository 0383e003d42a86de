package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Outcome classifies what the resolution pipeline concluded for a query.
type Outcome string

const (
	OutcomeResolved      Outcome = "RESOLVED"
	OutcomeNeedsFollowUp Outcome = "NEEDS_FOLLOW_UP"
	OutcomeNoMatch       Outcome = "NO_MATCH"
)

// Session represents the active conversation state between turns. It is
// what lets a numeric reply to a follow-up prompt be interpreted against
// the options that produced the prompt.
type Session struct {
	ID             string    `json:"id"`
	UpstreamHandle string    `json:"upstream_handle"`
	PendingPrompt  string    `json:"pending_prompt"`
	Options        []string  `json:"options"`
	CreatedAt      time.Time `json:"created_at"`
}

// HasPendingFollowUp reports whether the session is waiting for the user
// to pick one of the offered options.
func (s *Session) HasPendingFollowUp() bool {
	return s != nil && len(s.Options) > 0
}

// CacheEntry is the resolved answer for one (session, query) pair.
type CacheEntry struct {
	Outcome        Outcome   `json:"outcome"`
	ServiceName    string    `json:"service_name"`
	FollowUpPrompt string    `json:"follow_up_prompt"`
	Options        []string  `json:"options"`
	DurationMs     int64     `json:"duration_ms"`
	CreatedAt      time.Time `json:"created_at"`
}

// SessionStore persists conversation state and finished results. Result
// writes are write-once: a second write for the same key is a no-op so a
// slow duplicate request cannot clobber the answer a client already saw.
type SessionStore interface {
	SaveSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, sessionID string) (*Session, error)
	DeleteSession(ctx context.Context, sessionID string) error

	PutResult(ctx context.Context, key string, entry *CacheEntry) error
	GetResult(ctx context.Context, key string) (*CacheEntry, error)
}

// ResultKey derives the cache key for a (session, query) pair.
func ResultKey(sessionID, queryText string) string {
	sum := sha256.Sum256([]byte(sessionID + ":" + queryText))
	return "result:" + hex.EncodeToString(sum[:])
}

func sessionKey(sessionID string) string {
	return "session:" + sessionID
}
