package observability

import (
	"context"
	"sync"
)

// HealthStatus is up, degraded or down.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "up"
	HealthStatusDown     HealthStatus = "down"
	HealthStatusDegraded HealthStatus = "degraded"
)

// Health describes the health of one dependency: the media tool, the
// transcription backend or the result cache.
type Health struct {
	Name    string            `json:"name"`
	Status  HealthStatus      `json:"status"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

// ServiceHealth is the /health payload.
type ServiceHealth struct {
	Service    string       `json:"service"`
	Status     HealthStatus `json:"status"`
	Version    string       `json:"version,omitempty"`
	Components []Health     `json:"components,omitempty"`
}

// HealthChecker reports the health of one dependency.
type HealthChecker interface {
	CheckHealth(ctx context.Context) Health
}

// CheckFunc adapts a probe function to HealthChecker. A nil error is up;
// an error is reported with Down, or Degraded when Optional is set.
type CheckFunc struct {
	Name     string
	Optional bool
	Check    func(ctx context.Context) error
}

// CheckHealth runs the probe.
func (c CheckFunc) CheckHealth(ctx context.Context) Health {
	if err := c.Check(ctx); err != nil {
		status := HealthStatusDown
		if c.Optional {
			status = HealthStatusDegraded
		}
		return Health{Name: c.Name, Status: status, Message: err.Error()}
	}
	return Health{Name: c.Name, Status: HealthStatusUp}
}

// NewServiceHealth returns an up ServiceHealth with no components.
func NewServiceHealth(service, version string) *ServiceHealth {
	return &ServiceHealth{Service: service, Version: version, Status: HealthStatusUp}
}

var severity = map[HealthStatus]int{
	HealthStatusUp:       0,
	HealthStatusDegraded: 1,
	HealthStatusDown:     2,
}

// AddComponent appends h. The overall status is the worst seen so far.
func (sh *ServiceHealth) AddComponent(h Health) {
	sh.Components = append(sh.Components, h)
	if severity[h.Status] > severity[sh.Status] {
		sh.Status = h.Status
	}
}

// CheckAll probes every checker in parallel. Components keep checker order.
func CheckAll(ctx context.Context, service, version string, checkers ...HealthChecker) *ServiceHealth {
	results := make([]Health, len(checkers))
	var wg sync.WaitGroup
	wg.Add(len(checkers))
	for i, c := range checkers {
		go func() {
			defer wg.Done()
			results[i] = c.CheckHealth(ctx)
		}()
	}
	wg.Wait()

	sh := NewServiceHealth(service, version)
	for _, h := range results {
		sh.AddComponent(h)
	}
	return sh
}
