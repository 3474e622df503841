// Package session holds per-user bounded conversation history with
// idle expiry. Sessions live in process memory only.
package session

import (
	"hash/fnv"
	"sync"
	"time"
)

const (
	// DefaultTurnLimit is how many turns are kept per session.
	DefaultTurnLimit = 5
	// DefaultIdleTTL is how long a session survives without activity.
	DefaultIdleTTL = time.Hour

	shardCount = 32
)

// Role identifies who authored a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation. Immutable once created.
type Turn struct {
	Role      Role
	Text      string
	Timestamp time.Time
}

// Info describes a single user's session for status queries.
type Info struct {
	TurnCount    int
	TurnLimit    int
	LastActivity time.Time
}

// Stats describes the store's overall state.
type Stats struct {
	ActiveSessions int
	TotalTurns     int
	TurnLimit      int
	IdleTTL        time.Duration
}

// Config holds store configuration.
type Config struct {
	TurnLimit int           // Defaults to DefaultTurnLimit
	IdleTTL   time.Duration // Defaults to DefaultIdleTTL
}

type userSession struct {
	turns        []Turn
	lastActivity time.Time
}

type sessionShard struct {
	mu       sync.Mutex
	sessions map[string]*userSession
}

// Store keeps one bounded session per active user. Users are spread
// across shards so appends for unrelated users never contend on one
// lock; operations on the same user serialize on their shard.
type Store struct {
	turnLimit int
	idleTTL   time.Duration
	shards    [shardCount]*sessionShard
}

// NewStore creates a Store from the given configuration.
func NewStore(config Config) *Store {
	turnLimit := config.TurnLimit
	if turnLimit <= 0 {
		turnLimit = DefaultTurnLimit
	}
	idleTTL := config.IdleTTL
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}

	s := &Store{turnLimit: turnLimit, idleTTL: idleTTL}
	for i := range s.shards {
		s.shards[i] = &sessionShard{sessions: make(map[string]*userSession)}
	}
	return s
}

func (s *Store) shardFor(userID string) *sessionShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return s.shards[h.Sum32()%shardCount]
}

// AppendTurn records a turn for the user, creating the session when
// absent and evicting the oldest turn beyond the limit. A session that
// idled past the TTL is discarded before the new turn lands, so stale
// history never leaks into a fresh conversation.
func (s *Store) AppendTurn(userID string, role Role, text string, now time.Time) {
	shard := s.shardFor(userID)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	sess, ok := shard.sessions[userID]
	if !ok || s.expired(sess, now) {
		sess = &userSession{}
		shard.sessions[userID] = sess
	}

	sess.turns = append(sess.turns, Turn{Role: role, Text: text, Timestamp: now})
	if len(sess.turns) > s.turnLimit {
		over := len(sess.turns) - s.turnLimit
		sess.turns = append(sess.turns[:0], sess.turns[over:]...)
	}
	sess.lastActivity = now
}

// Context returns the user's turns in chronological order, or nil when
// the user has no session or it has idle-expired. Expired sessions are
// purged on read.
func (s *Store) Context(userID string, now time.Time) []Turn {
	shard := s.shardFor(userID)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	sess, ok := shard.sessions[userID]
	if !ok {
		return nil
	}
	if s.expired(sess, now) {
		delete(shard.sessions, userID)
		return nil
	}

	turns := make([]Turn, len(sess.turns))
	copy(turns, sess.turns)
	return turns
}

// Reset destroys the user's session immediately.
func (s *Store) Reset(userID string) {
	shard := s.shardFor(userID)
	shard.mu.Lock()
	defer shard.mu.Unlock()
	delete(shard.sessions, userID)
}

// Info returns session details for a single user. The second return is
// false when the user has no live session.
func (s *Store) Info(userID string, now time.Time) (Info, bool) {
	shard := s.shardFor(userID)
	shard.mu.Lock()
	defer shard.mu.Unlock()

	sess, ok := shard.sessions[userID]
	if !ok || s.expired(sess, now) {
		return Info{TurnLimit: s.turnLimit}, false
	}
	return Info{
		TurnCount:    len(sess.turns),
		TurnLimit:    s.turnLimit,
		LastActivity: sess.lastActivity,
	}, true
}

// Sweep removes every session whose last activity is older than the
// TTL and returns how many were removed. Context also expires lazily,
// so Sweep exists to bound memory held for users that never return.
func (s *Store) Sweep(now time.Time) int {
	removed := 0
	for _, shard := range s.shards {
		shard.mu.Lock()
		for userID, sess := range shard.sessions {
			if s.expired(sess, now) {
				delete(shard.sessions, userID)
				removed++
			}
		}
		shard.mu.Unlock()
	}
	return removed
}

// Stats returns the store's configuration and live session counts.
func (s *Store) Stats() Stats {
	stats := Stats{TurnLimit: s.turnLimit, IdleTTL: s.idleTTL}
	for _, shard := range s.shards {
		shard.mu.Lock()
		stats.ActiveSessions += len(shard.sessions)
		for _, sess := range shard.sessions {
			stats.TotalTurns += len(sess.turns)
		}
		shard.mu.Unlock()
	}
	return stats
}

func (s *Store) expired(sess *userSession, now time.Time) bool {
	return now.Sub(sess.lastActivity) > s.idleTTL
}
