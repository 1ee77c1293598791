package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/clinico-health/assist/internal/domain"
)

// Memory is the in-process limiter backend. One mutex guards all
// per-user timestamp lists; it is never held across network calls
// because there are none.
type Memory struct {
	mu      sync.Mutex
	history map[string][]time.Time
	enabled bool
	now     func() time.Time
}

// NewMemory creates the in-process backend. A disabled limiter admits
// everything with no side effects.
func NewMemory(enabled bool) *Memory {
	return &Memory{
		history: make(map[string][]time.Time),
		enabled: enabled,
		now:     time.Now,
	}
}

// Allow implements Limiter. Windows are evaluated minute, hour, day;
// the first violated one determines the rejection. The timestamp is
// recorded only when all three pass.
func (m *Memory) Allow(_ context.Context, userID string, role domain.Role) (Result, error) {
	tier := TierFor(role)
	if !m.enabled {
		return allowed(tier, 0, 0, 0), nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	entries := m.prune(userID, now)

	minute, hour := countWindows(entries, now)
	day := len(entries)

	switch {
	case minute >= tier.PerMinute:
		return rejected(tier, WindowMinute), nil
	case hour >= tier.PerHour:
		return rejected(tier, WindowHour), nil
	case day >= tier.PerDay:
		return rejected(tier, WindowDay), nil
	}

	m.history[userID] = append(entries, now)
	return allowed(tier, minute+1, hour+1, day+1), nil
}

// Status implements Limiter.
func (m *Memory) Status(_ context.Context, userID string, role domain.Role) (Usage, error) {
	tier := TierFor(role)
	if !m.enabled {
		return Usage{Tier: tier}, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	entries := m.prune(userID, now)
	minute, hour := countWindows(entries, now)

	return Usage{Tier: tier, Minute: minute, Hour: hour, Day: len(entries)}, nil
}

// prune drops entries older than 24h. Must be called with mu held.
func (m *Memory) prune(userID string, now time.Time) []time.Time {
	entries := m.history[userID]
	cutoff := now.Add(-24 * time.Hour)

	kept := entries[:0]
	for _, ts := range entries {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) == 0 {
		delete(m.history, userID)
		return nil
	}
	m.history[userID] = kept
	return kept
}

func countWindows(entries []time.Time, now time.Time) (minute, hour int) {
	minuteCutoff := now.Add(-time.Minute)
	hourCutoff := now.Add(-time.Hour)
	for _, ts := range entries {
		if ts.After(hourCutoff) {
			hour++
			if ts.After(minuteCutoff) {
				minute++
			}
		}
	}
	return minute, hour
}
