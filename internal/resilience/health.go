package resilience

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"time"
)

// HealthStatus represents the health status of a component.
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusDegraded  HealthStatus = "degraded"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// ComponentHealth represents the health of a single component.
type ComponentHealth struct {
	Name    string        `json:"name"`
	Status  HealthStatus  `json:"status"`
	Message string        `json:"message,omitempty"`
	Latency time.Duration `json:"latency"`
}

// HealthCheck checks one component.
type HealthCheck func(ctx context.Context) ComponentHealth

// SystemHealth is the result of running every registered check.
type SystemHealth struct {
	Status     HealthStatus      `json:"status"`
	Uptime     string            `json:"uptime"`
	Goroutines int               `json:"goroutines"`
	Components []ComponentHealth `json:"components"`
	CheckedAt  time.Time         `json:"checkedAt"`
}

// HealthChecker runs component checks on demand.
type HealthChecker struct {
	mu        sync.RWMutex
	checks    map[string]HealthCheck
	timeout   time.Duration
	startTime time.Time
	now       func() time.Time
}

// NewHealthChecker creates a checker whose checks each get timeout to answer.
func NewHealthChecker(timeout time.Duration) *HealthChecker {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthChecker{
		checks:    make(map[string]HealthCheck),
		timeout:   timeout,
		startTime: time.Now(),
		now:       time.Now,
	}
}

// Register adds or replaces the check for a component.
func (c *HealthChecker) Register(name string, check HealthCheck) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Check runs every registered check concurrently. The overall status is the
// worst component status.
func (c *HealthChecker) Check(ctx context.Context) SystemHealth {
	c.mu.RLock()
	names := make([]string, 0, len(c.checks))
	for name := range c.checks {
		names = append(names, name)
	}
	checks := make(map[string]HealthCheck, len(c.checks))
	for k, v := range c.checks {
		checks[k] = v
	}
	c.mu.RUnlock()
	sort.Strings(names)

	results := make([]ComponentHealth, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			results[i] = c.run(ctx, name, checks[name])
		}(i, name)
	}
	wg.Wait()

	status := HealthStatusHealthy
	for _, r := range results {
		switch {
		case r.Status == HealthStatusUnhealthy:
			status = HealthStatusUnhealthy
		case r.Status == HealthStatusDegraded && status == HealthStatusHealthy:
			status = HealthStatusDegraded
		}
	}

	return SystemHealth{
		Status:     status,
		Uptime:     c.now().Sub(c.startTime).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		Components: results,
		CheckedAt:  c.now().UTC(),
	}
}

func (c *HealthChecker) run(ctx context.Context, name string, check HealthCheck) (health ComponentHealth) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			health = ComponentHealth{Name: name, Status: HealthStatusUnhealthy, Message: fmt.Sprintf("check panicked: %v", r)}
		}
	}()

	health = check(ctx)
	health.Name = name
	return health
}

// DatabaseHealthCheck reports the database unhealthy when ping fails and
// degraded when it is slower than slow.
func DatabaseHealthCheck(ping func(ctx context.Context) error, slow time.Duration) HealthCheck {
	return func(ctx context.Context) ComponentHealth {
		start := time.Now()
		err := ping(ctx)
		health := ComponentHealth{Latency: time.Since(start)}

		switch {
		case err != nil:
			health.Status = HealthStatusUnhealthy
			health.Message = fmt.Sprintf("ping failed: %v", err)
		case slow > 0 && health.Latency > slow:
			health.Status = HealthStatusDegraded
			health.Message = fmt.Sprintf("slow ping: %v", health.Latency)
		default:
			health.Status = HealthStatusHealthy
		}
		return health
	}
}

// CircuitHealthCheck reports an optional dependency guarded by cb. An open
// circuit degrades the service rather than failing it.
func CircuitHealthCheck(cb *CircuitBreaker) HealthCheck {
	return func(ctx context.Context) ComponentHealth {
		stats := cb.Stats()
		health := ComponentHealth{Status: HealthStatusHealthy, Message: string(stats.State)}
		if stats.State != CircuitClosed {
			health.Status = HealthStatusDegraded
			health.Message = fmt.Sprintf("circuit %s after %d failures", stats.State, stats.TotalFailures)
		}
		return health
	}
}
