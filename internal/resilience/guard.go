package resilience

import (
	"context"
	"errors"
	"math/rand"
	"time"
)

// Guard bounds calls to a downstream dependency with a per-attempt timeout, a
// circuit breaker and optional retries for idempotent operations.
type Guard struct {
	Breaker     *Breaker
	Timeout     time.Duration
	MaxAttempts int
	BaseBackoff time.Duration
	Jitter      float64
	// IsFailure decides whether an error counts against the breaker and may be
	// retried. Errors it rejects (e.g. a 4xx from the provider) are returned as-is.
	IsFailure func(error) bool
}

// Once returns a copy of g that makes a single attempt. Use it for calls that
// are not safe to repeat.
func (g Guard) Once() Guard {
	g.MaxAttempts = 1
	return g
}

// Do executes fn under the guard. When the breaker is open ErrOpenCircuit is
// returned without calling fn. A nil Breaker disables breaker bookkeeping.
func (g Guard) Do(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return errors.New("resilience: guarded func not provided")
	}
	breaker := g.Breaker
	maxAttempts := g.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	baseBackoff := g.BaseBackoff
	if baseBackoff <= 0 {
		baseBackoff = 100 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if !breaker.Allow(ctx) {
			if lastErr != nil {
				return errors.Join(ErrOpenCircuit, lastErr)
			}
			return ErrOpenCircuit
		}
		err := g.doOnce(ctx, fn)
		if err == nil || !g.isFailure(err) {
			breaker.Report(ctx, true)
			return err
		}
		lastErr = err
		breaker.Report(ctx, false)
		if attempt == maxAttempts {
			break
		}
		timer := time.NewTimer(Backoff(baseBackoff, attempt, g.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(ctx.Err(), lastErr)
		case <-timer.C:
		}
	}
	return lastErr
}

func (g Guard) doOnce(ctx context.Context, fn func(context.Context) error) error {
	var callCtx context.Context
	var cancel context.CancelFunc
	if g.Timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, g.Timeout)
	} else {
		callCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()
	return fn(callCtx)
}

func (g Guard) isFailure(err error) bool {
	if g.IsFailure == nil {
		return true
	}
	return g.IsFailure(err)
}

// Backoff returns an exponential backoff duration for the provided attempt.
// Jitter is expressed as a fraction (e.g. 0.2 == 20%).
func Backoff(base time.Duration, attempt int, jitterPct float64) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	d := base * time.Duration(1<<uint(attempt-1))
	if jitterPct <= 0 {
		return d
	}
	jitter := float64(d) * jitterPct
	delta := (rand.Float64()*2 - 1) * jitter
	return d + time.Duration(delta)
}
