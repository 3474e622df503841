package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	s := NewStore(Config{})
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	s.AppendTurn("user-1", RoleUser, "Hello!", base)
	s.AppendTurn("user-1", RoleAssistant, "Hi there!", base.Add(time.Second))

	turns := s.Context("user-1", base.Add(2*time.Second))
	require.Len(t, turns, 2)
	assert.Equal(t, RoleUser, turns[0].Role)
	assert.Equal(t, "Hello!", turns[0].Text)
	assert.Equal(t, RoleAssistant, turns[1].Role)
	assert.Equal(t, "Hi there!", turns[1].Text)
}

func TestTurnLimitEviction(t *testing.T) {
	s := NewStore(Config{TurnLimit: 5})
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 7; i++ {
		s.AppendTurn("user-1", RoleUser, fmt.Sprintf("turn %d", i), base.Add(time.Duration(i)*time.Second))
	}

	turns := s.Context("user-1", base.Add(10*time.Second))
	require.Len(t, turns, 5)
	// Oldest first, turns 0 and 1 evicted.
	assert.Equal(t, "turn 2", turns[0].Text)
	assert.Equal(t, "turn 6", turns[4].Text)
}

func TestIdleExpiry(t *testing.T) {
	s := NewStore(Config{IdleTTL: 3600 * time.Second})
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	s.AppendTurn("user-1", RoleUser, "hello", base)

	assert.NotEmpty(t, s.Context("user-1", base.Add(3600*time.Second)))
	assert.Empty(t, s.Context("user-1", base.Add(3601*time.Second)))
}

func TestExpiredSessionDiscardedOnAppend(t *testing.T) {
	s := NewStore(Config{IdleTTL: time.Hour})
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	s.AppendTurn("user-1", RoleUser, "old", base)
	s.AppendTurn("user-1", RoleUser, "new", base.Add(2*time.Hour))

	turns := s.Context("user-1", base.Add(2*time.Hour))
	require.Len(t, turns, 1)
	assert.Equal(t, "new", turns[0].Text)
}

func TestReset(t *testing.T) {
	s := NewStore(Config{})
	now := time.Now()

	s.AppendTurn("user-1", RoleUser, "hello", now)
	s.Reset("user-1")

	assert.Empty(t, s.Context("user-1", now))
}

func TestResetIsolatedPerUser(t *testing.T) {
	s := NewStore(Config{})
	now := time.Now()

	s.AppendTurn("user-a", RoleUser, "a", now)
	s.AppendTurn("user-b", RoleUser, "b", now)
	s.Reset("user-a")

	assert.Empty(t, s.Context("user-a", now))
	assert.Len(t, s.Context("user-b", now), 1)
}

func TestInfo(t *testing.T) {
	s := NewStore(Config{TurnLimit: 5})
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	_, ok := s.Info("user-1", base)
	assert.False(t, ok)

	s.AppendTurn("user-1", RoleUser, "hello", base)
	s.AppendTurn("user-1", RoleAssistant, "hi", base.Add(time.Second))

	info, ok := s.Info("user-1", base.Add(2*time.Second))
	require.True(t, ok)
	assert.Equal(t, 2, info.TurnCount)
	assert.Equal(t, 5, info.TurnLimit)
	assert.Equal(t, base.Add(time.Second), info.LastActivity)
}

func TestSweep(t *testing.T) {
	s := NewStore(Config{IdleTTL: time.Hour})
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	s.AppendTurn("stale", RoleUser, "old", base)
	s.AppendTurn("fresh", RoleUser, "new", base.Add(90*time.Minute))

	removed := s.Sweep(base.Add(2 * time.Hour))
	assert.Equal(t, 1, removed)

	stats := s.Stats()
	assert.Equal(t, 1, stats.ActiveSessions)
	assert.Equal(t, 1, stats.TotalTurns)
}

func TestContextReturnsCopy(t *testing.T) {
	s := NewStore(Config{})
	now := time.Now()

	s.AppendTurn("user-1", RoleUser, "original", now)
	turns := s.Context("user-1", now)
	turns[0].Text = "mutated"

	fresh := s.Context("user-1", now)
	assert.Equal(t, "original", fresh[0].Text)
}

func TestConcurrentAppends(t *testing.T) {
	s := NewStore(Config{TurnLimit: 200})
	now := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s.AppendTurn("same-user", RoleUser, fmt.Sprintf("msg %d", n), now)
			s.AppendTurn(fmt.Sprintf("user-%d", n), RoleUser, "hi", now)
		}(i)
	}
	wg.Wait()

	assert.Len(t, s.Context("same-user", now), 100)
	assert.Equal(t, 101, s.Stats().ActiveSessions)
}
