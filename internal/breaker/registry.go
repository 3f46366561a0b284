// Package breaker implements per-operation circuit breaking. One breaker
// exists per named operation class, created lazily on first use and kept for
// the process lifetime.
package breaker

import (
	"sync"
	"time"
)

// maxCooldownFactor caps cooldown escalation at 10x the configured base.
const maxCooldownFactor = 10

// State is a read-only snapshot of one breaker.
type State struct {
	Operation           string
	Open                bool
	ConsecutiveFailures int
	OpenedAt            time.Time
	CooldownDeadline    time.Time
}

type circuit struct {
	open             bool
	failures         int
	openedAt         time.Time
	cooldownDeadline time.Time
	cooldown         time.Duration // current (possibly escalated) cooldown
	halfOpen         bool          // one trial attempt in flight
}

// Registry tracks breakers for the small fixed set of operation names. A
// single lock across all of them is fine at that cardinality.
type Registry struct {
	mu       sync.Mutex
	circuits map[string]*circuit
	now      func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		circuits: make(map[string]*circuit),
		now:      time.Now,
	}
}

// Allow reports whether an attempt against op may proceed. An open breaker
// rejects until its cooldown deadline passes, then admits exactly one
// half-open trial; further calls are rejected until that trial resolves.
func (r *Registry) Allow(op string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.circuit(op)
	if !c.open {
		return true
	}
	if r.now().Before(c.cooldownDeadline) {
		return false
	}
	if c.halfOpen {
		return false
	}
	c.halfOpen = true
	return true
}

// RecordSuccess closes the breaker for op and resets all failure state.
func (r *Registry) RecordSuccess(op string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.circuit(op)
	c.open = false
	c.halfOpen = false
	c.failures = 0
	c.cooldown = 0
}

// RecordFailure increments op's consecutive-failure count and opens the
// breaker when it reaches threshold, when force is set (non-recoverable
// errors), or when a half-open trial fails. Re-opening doubles the cooldown,
// capped at 10x base; it never shrinks. Returns true when the breaker is
// open after this failure.
func (r *Registry) RecordFailure(op string, threshold int, baseCooldown time.Duration, force bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.circuit(op)
	c.failures++

	trialFailed := c.open && c.halfOpen
	c.halfOpen = false

	if !trialFailed && !force && (threshold <= 0 || c.failures < threshold) {
		return c.open
	}

	next := baseCooldown
	if c.cooldown > 0 {
		next = c.cooldown * 2
		if max := baseCooldown * maxCooldownFactor; next > max {
			next = max
		}
		if next < c.cooldown {
			next = c.cooldown
		}
	}
	c.cooldown = next
	c.open = true
	c.openedAt = r.now()
	c.cooldownDeadline = c.openedAt.Add(next)
	return true
}

// Snapshot returns the current state of op's breaker.
func (r *Registry) Snapshot(op string) State {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.circuit(op)
	return State{
		Operation:           op,
		Open:                c.open,
		ConsecutiveFailures: c.failures,
		OpenedAt:            c.openedAt,
		CooldownDeadline:    c.cooldownDeadline,
	}
}

func (r *Registry) circuit(op string) *circuit {
	c, ok := r.circuits[op]
	if !ok {
		c = &circuit{}
		r.circuits[op] = c
	}
	return c
}
