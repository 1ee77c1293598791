package care

import (
	"testing"
	"time"
)

func TestVersionGuard_RejectsStaleReplay(t *testing.T) {
	g := newVersionGuard()

	if !g.accept("user-1", 3) {
		t.Fatal("first snapshot must be admitted")
	}
	if g.accept("user-1", 3) {
		t.Error("replay of the same version must be rejected")
	}
	if !g.accept("user-1", 4) {
		t.Error("the emitted version must be admitted")
	}
}

func TestVersionGuard_ResetAllowsFreshFlow(t *testing.T) {
	g := newVersionGuard()

	g.accept("user-1", 7)
	g.reset("user-1")

	if !g.accept("user-1", 0) {
		t.Error("a fresh flow after reset must be admitted")
	}
}

func TestVersionGuard_AbandonedFlowExpires(t *testing.T) {
	g := newVersionGuard()
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return base }

	g.accept("user-1", 5)

	// Stale replay is still caught while the record is fresh.
	if g.accept("user-1", 2) {
		t.Fatal("stale snapshot must be rejected before expiry")
	}

	g.now = func() time.Time { return base.Add(guardTTL + time.Minute) }

	if !g.accept("user-1", 0) {
		t.Error("an abandoned flow's record must expire and admit a fresh start")
	}
}

func TestVersionGuard_ActiveFlowsSurvivePrune(t *testing.T) {
	g := newVersionGuard()
	base := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return base }

	g.accept("idle", 5)

	g.now = func() time.Time { return base.Add(guardTTL - time.Hour) }
	g.accept("active", 1)

	g.now = func() time.Time { return base.Add(guardTTL + time.Minute) }
	g.accept("other", 0)

	if g.accept("active", 1) {
		t.Error("a recently touched record must survive pruning")
	}
	if len(g.seen) != 2 {
		t.Errorf("expected idle record pruned, have %d records", len(g.seen))
	}
	if _, ok := g.seen["idle"]; ok {
		t.Error("idle record must have been pruned")
	}
}
