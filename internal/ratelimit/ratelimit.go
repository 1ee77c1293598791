package ratelimit

import (
	"context"

	"github.com/clinico-health/assist/internal/domain"
)

// Window identifies one of the three sliding windows.
type Window string

const (
	WindowMinute Window = "minute"
	WindowHour   Window = "hour"
	WindowDay    Window = "day"
)

// windowSeconds is the retry hint per window.
var windowSeconds = map[Window]int{
	WindowMinute: 60,
	WindowHour:   3600,
	WindowDay:    86400,
}

// Tier holds the per-window request caps for one role.
type Tier struct {
	PerMinute int
	PerHour   int
	PerDay    int
}

// tiers maps each role to its caps. Trust level increases the budget.
var tiers = map[domain.Role]Tier{
	domain.RolePatient:      {PerMinute: 10, PerHour: 100, PerDay: 500},
	domain.RoleProfessional: {PerMinute: 20, PerHour: 300, PerDay: 2000},
	domain.RoleNGO:          {PerMinute: 30, PerHour: 500, PerDay: 5000},
	domain.RoleAdmin:        {PerMinute: 100, PerHour: 1000, PerDay: 10000},
}

// TierFor returns the caps for a role, defaulting to the patient tier.
func TierFor(role domain.Role) Tier {
	if t, ok := tiers[role]; ok {
		return t
	}
	return tiers[domain.RolePatient]
}

// limitFor returns the cap a tier sets on one window.
func (t Tier) limitFor(w Window) int {
	switch w {
	case WindowMinute:
		return t.PerMinute
	case WindowHour:
		return t.PerHour
	default:
		return t.PerDay
	}
}

// Remaining is the per-window quota left after an admitted request.
type Remaining struct {
	Minute int `json:"minute"`
	Hour   int `json:"hour"`
	Day    int `json:"day"`
}

// Result is the outcome of one admission check. When rejected, Window,
// Limit, and RetryAfter describe the first violated window.
type Result struct {
	Allowed    bool
	Window     Window
	Limit      int
	RetryAfter int
	Remaining  Remaining
}

// Usage reports current window consumption for the status endpoint.
type Usage struct {
	Tier   Tier
	Minute int
	Hour   int
	Day    int
}

// Limiter is the admission-control contract. Two backends implement it:
// an in-process one for single-instance deployments and a Redis-backed
// one for multi-instance deployments.
type Limiter interface {
	Allow(ctx context.Context, userID string, role domain.Role) (Result, error)
	Status(ctx context.Context, userID string, role domain.Role) (Usage, error)
}

// allowed builds an admitted result with remaining quota.
func allowed(tier Tier, minute, hour, day int) Result {
	return Result{
		Allowed: true,
		Remaining: Remaining{
			Minute: maxInt(tier.PerMinute-minute, 0),
			Hour:   maxInt(tier.PerHour-hour, 0),
			Day:    maxInt(tier.PerDay-day, 0),
		},
	}
}

// rejected builds a rejection for the violated window.
func rejected(tier Tier, w Window) Result {
	return Result{
		Allowed:    false,
		Window:     w,
		Limit:      tier.limitFor(w),
		RetryAfter: windowSeconds[w],
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
