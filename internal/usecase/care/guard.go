package care

import (
	"sync"
	"time"
)

// guardTTL bounds how long an abandoned flow keeps its version record.
const guardTTL = 24 * time.Hour

// versionGuard rejects stale state-snapshot replays. Snapshots are
// caller-carried, so two concurrent requests can present the same
// snapshot; the guard admits the first and rejects the rest by tracking
// the highest version each user has advanced past.
//
// Completed and restarted flows clear their record explicitly; records
// of abandoned flows are pruned lazily once untouched for guardTTL, so
// the map stays bounded no matter how long the process runs.
type versionGuard struct {
	mu   sync.Mutex
	seen map[string]versionRecord
	ttl  time.Duration
	now  func() time.Time
}

type versionRecord struct {
	version int
	touched time.Time
}

func newVersionGuard() *versionGuard {
	return &versionGuard{
		seen: make(map[string]versionRecord),
		ttl:  guardTTL,
		now:  time.Now,
	}
}

// accept reports whether a snapshot at version may transition, and
// records the version the transition will emit.
func (g *versionGuard) accept(userID string, version int) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.prune(now)

	if rec, ok := g.seen[userID]; ok && version < rec.version {
		return false
	}
	g.seen[userID] = versionRecord{version: version + 1, touched: now}
	return true
}

// reset clears the record for a user, called when a flow completes or
// restarts from scratch.
func (g *versionGuard) reset(userID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.seen, userID)
}

// prune drops records untouched for longer than the ttl. Caller holds mu.
func (g *versionGuard) prune(now time.Time) {
	for id, rec := range g.seen {
		if now.Sub(rec.touched) > g.ttl {
			delete(g.seen, id)
		}
	}
}
