package resilience_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/consultorio-api/internal/resilience"
)

var errNotFound = errors.New("not found")

func TestGuardAppliesTimeout(t *testing.T) {
	guard := resilience.Guard{Timeout: 20 * time.Millisecond}
	err := guard.Do(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGuardRetriesFailures(t *testing.T) {
	calls := 0
	guard := resilience.Guard{MaxAttempts: 3, BaseBackoff: time.Millisecond}
	err := guard.Do(context.Background(), func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, 3, calls)
}

func TestGuardDoesNotRetryNonFailures(t *testing.T) {
	calls := 0
	breaker := resilience.NewBreaker(1, 0.5, time.Minute)
	guard := resilience.Guard{
		Breaker:     breaker,
		MaxAttempts: 3,
		BaseBackoff: time.Millisecond,
		IsFailure:   func(err error) bool { return !errors.Is(err, errNotFound) },
	}
	err := guard.Do(context.Background(), func(context.Context) error {
		calls++
		return errNotFound
	})
	require.ErrorIs(t, err, errNotFound)
	require.Equal(t, 1, calls)
	require.Equal(t, resilience.Closed, breaker.State())
}

func TestGuardOpenCircuitSkipsCall(t *testing.T) {
	breaker := resilience.NewBreaker(1, 0.5, time.Minute)
	guard := resilience.Guard{Breaker: breaker}
	ctx := context.Background()

	err := guard.Do(ctx, func(context.Context) error { return errors.New("boom") })
	require.Error(t, err)

	called := false
	err = guard.Do(ctx, func(context.Context) error {
		called = true
		return nil
	})
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	require.False(t, called)
}

func TestGuardOnceDisablesRetries(t *testing.T) {
	calls := 0
	guard := resilience.Guard{MaxAttempts: 3, BaseBackoff: time.Millisecond}.Once()
	err := guard.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("transient")
	})
	require.Error(t, err)
	require.Equal(t, 1, calls)
}

func TestGuardRetriesStopAtOpenCircuit(t *testing.T) {
	calls := 0
	breaker := resilience.NewBreaker(2, 0.5, time.Minute)
	guard := resilience.Guard{Breaker: breaker, MaxAttempts: 5, BaseBackoff: time.Millisecond}
	err := guard.Do(context.Background(), func(context.Context) error {
		calls++
		return errors.New("down")
	})
	require.ErrorIs(t, err, resilience.ErrOpenCircuit)
	require.Equal(t, 2, calls)
}
