package retry

import (
	"context"
	"log/slog"
	"time"

	"github.com/marconicastro/zeropragas-sub000/internal/breaker"
	"github.com/marconicastro/zeropragas-sub000/internal/logging"
	"github.com/marconicastro/zeropragas-sub000/internal/metrics"
)

// Strategy values reported in Result.Strategy.
const (
	StrategySingleAttempt   = "single_attempt"
	StrategyRetry           = "retry"
	StrategyFallback        = "fallback"
	StrategyCircuitRejected = "circuit_breaker_rejected"
	StrategyNonRecoverable  = "non_recoverable_abort"
	StrategyCancelled       = "cancelled"
)

// UnitOfWork is one attempt against a downstream.
type UnitOfWork func(ctx context.Context) error

// Result is the outcome of ExecuteWithRecovery.
type Result struct {
	Success  bool
	Err      error
	Attempts int
	Strategy string
}

// Executor runs units of work with bounded retries, exponential backoff with
// jitter, and per-operation circuit breaking. One executor serves all
// operations; budgets come from the profile registered under the operation
// name.
type Executor struct {
	profiles  map[string]Profile
	breakers  *breaker.Registry
	fallbacks map[string]UnitOfWork

	// sleep is swappable in tests so backoff does not stall them.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewExecutor(profiles map[string]Profile, breakers *breaker.Registry) *Executor {
	if profiles == nil {
		profiles = DefaultProfiles()
	}
	return &Executor{
		profiles:  profiles,
		breakers:  breakers,
		fallbacks: make(map[string]UnitOfWork),
		sleep:     sleepCtx,
	}
}

// WithFallback registers a single alternate delivery path tried once after
// op exhausts its retries. Fallback failure is reported but never re-enters
// the retry loop.
func (e *Executor) WithFallback(op string, fn UnitOfWork) *Executor {
	e.fallbacks[op] = fn
	return e
}

// Profile returns the budget for op, falling back to the default profile.
func (e *Executor) Profile(op string) Profile {
	if p, ok := e.profiles[op]; ok {
		return p
	}
	return DefaultProfile()
}

// ExecuteWithRecovery runs fn under op's retry budget. The breaker is
// consulted before the first attempt — an open circuit means zero calls —
// and updated after every attempt. Context cancellation aborts pending
// sleeps and further attempts.
func (e *Executor) ExecuteWithRecovery(ctx context.Context, op string, fn UnitOfWork) Result {
	log := logging.FromContext(ctx).With(slog.String("operation", op))
	prof := e.Profile(op)

	if !e.breakers.Allow(op) {
		log.Warn("delivery rejected by open circuit", slog.String("code", "CB_REJECTED"))
		return Result{Err: ErrCircuitOpen, Strategy: StrategyCircuitRejected}
	}

	backoff := prof.backoff()
	var lastErr error
	attempts := 0

	for attempts < prof.MaxAttempts {
		attempts++

		err := fn(ctx)
		if err == nil {
			e.breakers.RecordSuccess(op)
			metrics.CircuitOpen.WithLabelValues(op).Set(0)
			strategy := StrategySingleAttempt
			if attempts > 1 {
				strategy = StrategyRetry
			}
			return Result{Success: true, Attempts: attempts, Strategy: strategy}
		}
		lastErr = err

		recoverable := IsRecoverable(err)
		opened := e.breakers.RecordFailure(op, prof.FailureThreshold, prof.Cooldown, !recoverable)
		if opened {
			metrics.CircuitOpen.WithLabelValues(op).Set(1)
		}

		log.Warn("delivery attempt failed",
			slog.String("code", "DEL_ATTEMPT_FAILED"),
			slog.Int("attempt", attempts),
			slog.Bool("recoverable", recoverable),
			slog.Bool("circuitOpened", opened),
			slog.Any("error", err),
		)

		if !recoverable {
			return e.finish(ctx, op, log, Result{Err: lastErr, Attempts: attempts, Strategy: StrategyNonRecoverable})
		}
		if ctx.Err() != nil {
			return Result{Err: ctx.Err(), Attempts: attempts, Strategy: StrategyCancelled}
		}
		if attempts >= prof.MaxAttempts {
			break
		}

		delay := backoff.NextDelay(attempts - 1)
		log.Info("backing off before retry",
			slog.String("code", "DEL_RETRY"),
			slog.Int("nextAttempt", attempts+1),
			slog.Duration("delay", delay),
		)
		if err := e.sleep(ctx, delay); err != nil {
			return Result{Err: err, Attempts: attempts, Strategy: StrategyCancelled}
		}
	}

	return e.finish(ctx, op, log, Result{Err: lastErr, Attempts: attempts, Strategy: StrategyRetry})
}

// finish tries the configured fallback, if any, after the main path gave up.
func (e *Executor) finish(ctx context.Context, op string, log *slog.Logger, r Result) Result {
	fb, ok := e.fallbacks[op]
	if !ok || ctx.Err() != nil {
		return r
	}

	log.Info("attempting fallback delivery", slog.String("code", "DEL_FALLBACK"))
	if err := fb(ctx); err != nil {
		log.Warn("fallback delivery failed", slog.String("code", "DEL_FALLBACK_FAILED"), slog.Any("error", err))
		r.Strategy = StrategyFallback
		return r
	}
	return Result{Success: true, Attempts: r.Attempts, Strategy: StrategyFallback}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
