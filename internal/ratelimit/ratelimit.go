// Package ratelimit implements a per-user sliding-window rate limiter.
// State is process-lifetime only; a restart clears all counters.
package ratelimit

import (
	"hash/fnv"
	"sync"
	"time"
)

const (
	// DefaultMaxRequests is the number of requests admitted per window.
	DefaultMaxRequests = 10
	// DefaultWindow is the trailing interval requests are counted over.
	DefaultWindow = 60 * time.Second

	shardCount = 32
)

// Decision is the outcome of a single admission check.
type Decision struct {
	Allowed    bool
	Remaining  int           // Requests left in the current window
	RetryAfter time.Duration // How long until the next request is admitted; zero when Allowed
}

// Config holds limiter configuration.
type Config struct {
	MaxRequests int           // Defaults to DefaultMaxRequests
	Window      time.Duration // Defaults to DefaultWindow
}

// Stats describes the limiter's current state.
type Stats struct {
	ActiveUsers int
	MaxRequests int
	Window      time.Duration
}

type shard struct {
	mu       sync.Mutex
	requests map[string][]time.Time
}

// Limiter admits at most MaxRequests checks per user in any trailing
// Window. Users are spread across shards so checks for unrelated users
// never contend on one lock; checks for the same user serialize on
// their shard.
type Limiter struct {
	maxRequests int
	window      time.Duration
	shards      [shardCount]*shard
}

// NewLimiter creates a Limiter from the given configuration.
func NewLimiter(config Config) *Limiter {
	maxRequests := config.MaxRequests
	if maxRequests <= 0 {
		maxRequests = DefaultMaxRequests
	}
	window := config.Window
	if window <= 0 {
		window = DefaultWindow
	}

	l := &Limiter{maxRequests: maxRequests, window: window}
	for i := range l.shards {
		l.shards[i] = &shard{requests: make(map[string][]time.Time)}
	}
	return l
}

func (l *Limiter) shardFor(userID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return l.shards[h.Sum32()%shardCount]
}

// Check prunes the user's timestamps to the trailing window, then
// either records now and admits the request, or denies it with the
// time until the oldest in-window timestamp expires.
func (l *Limiter) Check(userID string, now time.Time) Decision {
	s := l.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := pruneBefore(s.requests[userID], now.Add(-l.window))

	if len(kept) < l.maxRequests {
		kept = append(kept, now)
		s.requests[userID] = kept
		return Decision{Allowed: true, Remaining: l.maxRequests - len(kept)}
	}

	s.requests[userID] = kept
	retryAfter := l.window - now.Sub(kept[0])
	if retryAfter < 0 {
		retryAfter = 0
	}
	return Decision{Allowed: false, RetryAfter: retryAfter}
}

// Remaining reports how many requests the user has left in the current
// window without consuming quota.
func (l *Limiter) Remaining(userID string, now time.Time) int {
	s := l.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := pruneBefore(s.requests[userID], now.Add(-l.window))
	if len(kept) == 0 {
		delete(s.requests, userID)
	} else {
		s.requests[userID] = kept
	}
	return l.maxRequests - len(kept)
}

// Reset clears the counters for a single user.
func (l *Limiter) Reset(userID string) {
	s := l.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.requests, userID)
}

// Sweep drops users whose every timestamp has aged out of the window.
// Entries are also pruned lazily on Check, so Sweep only bounds memory
// held for users that went quiet.
func (l *Limiter) Sweep(now time.Time) int {
	cutoff := now.Add(-l.window)
	removed := 0

	for _, s := range l.shards {
		s.mu.Lock()
		for userID, timestamps := range s.requests {
			kept := pruneBefore(timestamps, cutoff)
			if len(kept) == 0 {
				delete(s.requests, userID)
				removed++
			} else {
				s.requests[userID] = kept
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Stats returns the limiter's configuration and active user count.
func (l *Limiter) Stats() Stats {
	active := 0
	for _, s := range l.shards {
		s.mu.Lock()
		active += len(s.requests)
		s.mu.Unlock()
	}
	return Stats{ActiveUsers: active, MaxRequests: l.maxRequests, Window: l.window}
}

// pruneBefore returns the suffix of timestamps at or after cutoff.
// Timestamps are appended in order, so a prefix scan suffices.
func pruneBefore(timestamps []time.Time, cutoff time.Time) []time.Time {
	idx := 0
	for idx < len(timestamps) && timestamps[idx].Before(cutoff) {
		idx++
	}
	if idx == 0 {
		return timestamps
	}
	kept := make([]time.Time, len(timestamps)-idx)
	copy(kept, timestamps[idx:])
	return kept
}
