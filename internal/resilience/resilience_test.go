package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func failing(context.Context) error { return errBoom }
func passing(context.Context) error { return nil }

func newTestBreaker(threshold int, cooldown time.Duration) (*CircuitBreaker, *time.Time) {
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	cb := NewCircuitBreaker("test", CircuitBreakerConfig{
		FailureThreshold: threshold,
		SuccessThreshold: 1,
		Cooldown:         cooldown,
	})
	cb.now = func() time.Time { return now }
	return cb, &now
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb, _ := newTestBreaker(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		assert.ErrorIs(t, cb.Execute(ctx, failing), errBoom)
		assert.Equal(t, CircuitClosed, cb.State())
	}
	assert.ErrorIs(t, cb.Execute(ctx, failing), errBoom)
	assert.Equal(t, CircuitOpen, cb.State())

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)

	stats := cb.Stats()
	assert.Equal(t, int64(3), stats.TotalCalls)
	assert.Equal(t, int64(3), stats.TotalFailures)
	assert.Equal(t, int64(1), stats.TotalRejected)
	assert.InDelta(t, 100, stats.FailureRate(), 1e-9)
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb, _ := newTestBreaker(2, time.Minute)
	ctx := context.Background()

	_ = cb.Execute(ctx, failing)
	require.NoError(t, cb.Execute(ctx, passing))
	_ = cb.Execute(ctx, failing)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	cb, now := newTestBreaker(1, time.Minute)
	ctx := context.Background()

	var mu sync.Mutex
	var transitions []CircuitState
	cb.config.OnStateChange = func(_ string, _, to CircuitState) {
		mu.Lock()
		transitions = append(transitions, to)
		mu.Unlock()
	}

	_ = cb.Execute(ctx, failing)
	require.Equal(t, CircuitOpen, cb.State())

	*now = now.Add(time.Minute)
	_ = cb.Execute(ctx, failing)
	assert.Equal(t, CircuitOpen, cb.State(), "a failed trial call reopens the circuit")

	*now = now.Add(time.Minute)
	require.NoError(t, cb.Execute(ctx, passing))
	assert.Equal(t, CircuitClosed, cb.State())

	assert.Equal(t, []CircuitState{CircuitOpen, CircuitHalfOpen, CircuitOpen, CircuitHalfOpen, CircuitClosed}, transitions)
}

func TestCircuitBreaker_CallerCancellationIsNotAFailure(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := cb.Execute(ctx, func(ctx context.Context) error { return ctx.Err() })
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestExecuteWithResult(t *testing.T) {
	cb, _ := newTestBreaker(1, time.Minute)

	v, err := ExecuteWithResult(context.Background(), cb, func(context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	cb.Reset()
	assert.Equal(t, CircuitClosed, cb.State())
}

func TestHealthChecker(t *testing.T) {
	hc := NewHealthChecker(time.Second)
	hc.Register("database", DatabaseHealthCheck(func(context.Context) error { return nil }, 0))

	health := hc.Check(context.Background())
	assert.Equal(t, HealthStatusHealthy, health.Status)
	require.Len(t, health.Components, 1)
	assert.Equal(t, "database", health.Components[0].Name)

	cb, _ := newTestBreaker(1, time.Hour)
	_ = cb.Execute(context.Background(), failing)
	hc.Register("coach", CircuitHealthCheck(cb))

	health = hc.Check(context.Background())
	assert.Equal(t, HealthStatusDegraded, health.Status)
	assert.Equal(t, "coach", health.Components[0].Name)
	assert.Equal(t, HealthStatusDegraded, health.Components[0].Status)

	hc.Register("database", DatabaseHealthCheck(func(context.Context) error { return errBoom }, 0))
	health = hc.Check(context.Background())
	assert.Equal(t, HealthStatusUnhealthy, health.Status)
}

func TestHealthChecker_RecoversPanickingCheck(t *testing.T) {
	hc := NewHealthChecker(time.Second)
	hc.Register("broken", func(context.Context) ComponentHealth { panic("nil store") })

	health := hc.Check(context.Background())
	assert.Equal(t, HealthStatusUnhealthy, health.Status)
	assert.Contains(t, health.Components[0].Message, "nil store")
}
