package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/leadgen-cli/internal/config"
)

var errBusy = NewTransientError(errors.New("busy"), 503)

func failN(cb *CircuitBreaker, n int, err error) {
	for range n {
		_ = cb.Execute(context.Background(), func(_ context.Context) error { return err })
	}
}

func TestCircuitBreaker_OpensAfterTransientFailures(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3, ResetTimeout: time.Minute})
	failN(cb, 3, errBusy)
	assert.Equal(t, CircuitOpen, cb.State())

	err := cb.Execute(context.Background(), func(_ context.Context) error {
		t.Error("provider must not be called while open")
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestCircuitBreaker_PermanentErrorsDoNotTrip(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 2})
	failN(cb, 5, errors.New("no such organization"))
	assert.Equal(t, CircuitClosed, cb.State())
	assert.Zero(t, cb.Failures())
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	t.Parallel()

	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3})
	failN(cb, 2, errBusy)
	assert.Equal(t, 2, cb.Failures())

	require.NoError(t, cb.Execute(context.Background(), func(_ context.Context) error { return nil }))
	assert.Zero(t, cb.Failures())
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	t.Parallel()

	now := time.Now()
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 2,
		ResetTimeout:     100 * time.Millisecond,
		OnStateChange: func(from, to CircuitState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	cb.nowFunc = func() time.Time { return now }

	failN(cb, 2, errBusy)
	require.Equal(t, CircuitOpen, cb.State())

	cb.nowFunc = func() time.Time { return now.Add(200 * time.Millisecond) }
	assert.Equal(t, CircuitHalfOpen, cb.State())

	// failed probe reopens
	failN(cb, 1, errBusy)
	assert.Equal(t, CircuitOpen, cb.State())

	cb.nowFunc = func() time.Time { return now.Add(time.Second) }
	require.NoError(t, cb.Execute(context.Background(), func(_ context.Context) error { return nil }))
	assert.Equal(t, CircuitClosed, cb.State())

	assert.Equal(t, []string{
		"closed->open",
		"open->half-open",
		"half-open->open",
		"open->half-open",
		"half-open->closed",
	}, transitions)
}

func TestCircuitState_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "closed", CircuitClosed.String())
	assert.Equal(t, "open", CircuitOpen.String())
	assert.Equal(t, "half-open", CircuitHalfOpen.String())
	assert.Equal(t, "unknown", CircuitState(9).String())
}

func TestCall_RetriesThroughBreaker(t *testing.T) {
	t.Parallel()

	g := NewGuard("apollo", fastRetry(3), CircuitBreakerConfig{FailureThreshold: 10})
	calls := 0
	got, err := Call(context.Background(), g, "search", func(_ context.Context) (int, error) {
		calls++
		if calls < 2 {
			return 0, errBusy
		}
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 2, calls)
}

func TestCall_OpenCircuitStopsRetries(t *testing.T) {
	t.Parallel()

	g := NewGuard("places", fastRetry(5), CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Hour})
	calls := 0
	_, err := Call(context.Background(), g, "search", func(_ context.Context) (int, error) {
		calls++
		return 0, errBusy
	})
	require.Error(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, CircuitOpen, g.Breaker.State())
}

func TestCall_NilGuard(t *testing.T) {
	t.Parallel()

	calls := 0
	_, err := Call(context.Background(), nil, "reveal", func(_ context.Context) (int, error) {
		calls++
		return 0, errBusy
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestFromConfig(t *testing.T) {
	t.Parallel()

	retry, breaker := FromConfig(config.RetryConfig{
		MaxAttempts:      4,
		InitialBackoffMs: 100,
		MaxBackoffMs:     900,
		Multiplier:       3,
		JitterFraction:   0,
		FailureThreshold: 7,
		ResetTimeoutSecs: 15,
	})
	assert.Equal(t, 4, retry.MaxAttempts)
	assert.Equal(t, 100*time.Millisecond, retry.InitialBackoff)
	assert.Equal(t, 900*time.Millisecond, retry.MaxBackoff)
	assert.InDelta(t, 3.0, retry.Multiplier, 0.001)
	assert.Zero(t, retry.JitterFraction)
	assert.Equal(t, 7, breaker.FailureThreshold)
	assert.Equal(t, 15*time.Second, breaker.ResetTimeout)

	retry, breaker = FromConfig(config.RetryConfig{JitterFraction: -1})
	assert.Equal(t, DefaultRetryConfig().MaxAttempts, retry.MaxAttempts)
	assert.Equal(t, DefaultCircuitBreakerConfig().FailureThreshold, breaker.FailureThreshold)
	assert.NotNil(t, GuardFromConfig("sheets", config.RetryConfig{}).Breaker)
}
