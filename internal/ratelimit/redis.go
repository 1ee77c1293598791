package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/clinico-health/assist/internal/db"
	"github.com/clinico-health/assist/internal/domain"
)

// Redis is the distributed limiter backend: one atomic counter per
// bucketed window key, with a first-write expiry slightly longer than
// the window so stale buckets clean themselves up.
type Redis struct {
	counters  db.CounterStore
	keyPrefix string
	enabled   bool
	now       func() time.Time
}

// Bucket key TTLs, twice the window so a bucket straddling a boundary
// still exists when checked.
var windowTTLs = map[Window]time.Duration{
	WindowMinute: 120 * time.Second,
	WindowHour:   7200 * time.Second,
	WindowDay:    172800 * time.Second,
}

var windowBuckets = map[Window]int64{
	WindowMinute: 60,
	WindowHour:   3600,
	WindowDay:    86400,
}

// NewRedis creates the distributed backend.
func NewRedis(counters db.CounterStore, keyPrefix string, enabled bool) *Redis {
	return &Redis{
		counters:  counters,
		keyPrefix: keyPrefix,
		enabled:   enabled,
		now:       time.Now,
	}
}

// Allow implements Limiter. Counters are incremented in ascending
// window order; the first violated window stops the chain, so larger
// windows are not charged for rejected requests.
func (r *Redis) Allow(ctx context.Context, userID string, role domain.Role) (Result, error) {
	tier := TierFor(role)
	if !r.enabled {
		return allowed(tier, 0, 0, 0), nil
	}

	now := r.now().Unix()
	counts := make(map[Window]int, 3)

	for _, w := range []Window{WindowMinute, WindowHour, WindowDay} {
		key := r.key(userID, w, now)
		count, err := r.counters.IncrBy(ctx, key, 1)
		if err != nil {
			return Result{}, fmt.Errorf("increment %s window: %w: %w", w, domain.ErrDependencyUnavailable, err)
		}
		if count == 1 {
			if err := r.counters.Expire(ctx, key, windowTTLs[w], true); err != nil {
				return Result{}, fmt.Errorf("expire %s window: %w: %w", w, domain.ErrDependencyUnavailable, err)
			}
		}
		if int(count) > tier.limitFor(w) {
			return rejected(tier, w), nil
		}
		counts[w] = int(count)
	}

	return allowed(tier, counts[WindowMinute], counts[WindowHour], counts[WindowDay]), nil
}

// Status implements Limiter.
func (r *Redis) Status(ctx context.Context, userID string, role domain.Role) (Usage, error) {
	tier := TierFor(role)
	if !r.enabled {
		return Usage{Tier: tier}, nil
	}

	now := r.now().Unix()
	usage := Usage{Tier: tier}

	for _, w := range []Window{WindowMinute, WindowHour, WindowDay} {
		count, err := r.counters.GetInt(ctx, r.key(userID, w, now))
		if err != nil {
			return Usage{}, fmt.Errorf("read %s window: %w: %w", w, domain.ErrDependencyUnavailable, err)
		}
		switch w {
		case WindowMinute:
			usage.Minute = int(count)
		case WindowHour:
			usage.Hour = int(count)
		default:
			usage.Day = int(count)
		}
	}
	return usage, nil
}

func (r *Redis) key(userID string, w Window, now int64) string {
	return fmt.Sprintf("%srate_limit:%s:%s:%d", r.keyPrefix, userID, w, now/windowBuckets[w])
}
