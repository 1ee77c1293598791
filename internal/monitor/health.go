package monitor

import (
	"context"
	"time"
)

// Status is the aggregated service health.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Probe checks one dependency.
type Probe interface {
	HealthCheck(ctx context.Context) error
}

// ProbeFunc adapts a function to Probe.
type ProbeFunc func(ctx context.Context) error

func (f ProbeFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

// CheckResult is one dependency's probe outcome.
type CheckResult struct {
	Status    string  `json:"status"`
	Error     string  `json:"error,omitempty"`
	LatencyMS float64 `json:"latency_ms"`
}

// Report is the dependency-by-dependency health view.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

type dependency struct {
	name     string
	probe    Probe
	required bool
}

// Health aggregates dependency probes. A failing required dependency
// makes the service unhealthy; a failing optional one only degrades it.
type Health struct {
	deps    []dependency
	timeout time.Duration
}

// NewHealth creates a health aggregator with a per-probe timeout.
func NewHealth(timeout time.Duration) *Health {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Health{timeout: timeout}
}

// Required registers a dependency whose failure is fatal for the service.
func (h *Health) Required(name string, probe Probe) *Health {
	h.deps = append(h.deps, dependency{name: name, probe: probe, required: true})
	return h
}

// Optional registers a dependency whose failure only degrades the service.
func (h *Health) Optional(name string, probe Probe) *Health {
	h.deps = append(h.deps, dependency{name: name, probe: probe})
	return h
}

// Check probes every registered dependency with the configured timeout.
func (h *Health) Check(ctx context.Context) Report {
	report := Report{
		Status: StatusHealthy,
		Checks: make(map[string]CheckResult, len(h.deps)),
	}

	for _, dep := range h.deps {
		probeCtx, cancel := context.WithTimeout(ctx, h.timeout)
		start := time.Now()
		err := dep.probe.HealthCheck(probeCtx)
		cancel()

		result := CheckResult{
			Status:    "up",
			LatencyMS: float64(time.Since(start).Microseconds()) / 1000,
		}
		if err != nil {
			result.Status = "down"
			result.Error = err.Error()
			if dep.required {
				report.Status = StatusUnhealthy
			} else if report.Status == StatusHealthy {
				report.Status = StatusDegraded
			}
		}
		report.Checks[dep.name] = result
	}

	return report
}
