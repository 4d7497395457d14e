// Package circuitbreaker guards a single downstream dependency with
// closed → open → half-open transitions.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ErrOpen is returned by Allow callers when the circuit rejects a request.
var ErrOpen = errors.New("circuit breaker is open")

// State represents the circuit breaker state.
type State int

const (
	StateClosed   State = iota // Normal: requests flow through
	StateOpen                  // Tripped: requests are rejected
	StateHalfOpen              // Probing: one request allowed to test recovery
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

var (
	stateGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "risk",
		Subsystem: "circuitbreaker",
		Name:      "state",
		Help:      "Current breaker state per dependency (0 closed, 1 open, 2 half-open).",
	}, []string{"name"})

	transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "risk",
		Subsystem: "circuitbreaker",
		Name:      "state_transitions_total",
		Help:      "Breaker state transitions by dependency, from-state and to-state.",
	}, []string{"name", "from_state", "to_state"})
)

func init() {
	prometheus.MustRegister(stateGauge, transitions)
}

// Breaker trips open after threshold consecutive failures and stays open for
// openDuration before letting a single probe through.
type Breaker struct {
	mu           sync.Mutex
	name         string
	state        State
	failures     int
	openedAt     time.Time
	threshold    int
	openDuration time.Duration
	now          func() time.Time
}

// New creates a breaker for the named dependency. Non-positive arguments fall
// back to 5 failures and 30 seconds.
func New(name string, threshold int, openDuration time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if openDuration <= 0 {
		openDuration = 30 * time.Second
	}
	stateGauge.WithLabelValues(name).Set(float64(StateClosed))
	return &Breaker{
		name:         name,
		threshold:    threshold,
		openDuration: openDuration,
		now:          time.Now,
	}
}

// WithClock replaces the breaker's time source.
func (b *Breaker) WithClock(now func() time.Time) *Breaker {
	b.mu.Lock()
	b.now = now
	b.mu.Unlock()
	return b
}

// Allow reports whether a request may proceed. An open circuit whose cooldown
// has elapsed moves to half-open and admits exactly one probe.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if b.now().Sub(b.openedAt) >= b.openDuration {
			b.transition(StateHalfOpen)
			return true
		}
		return false
	case StateHalfOpen:
		return false
	default:
		return true
	}
}

// RecordSuccess resets the failure count and closes a half-open circuit.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	if b.state != StateClosed {
		b.transition(StateClosed)
	}
}

// RecordFailure counts a failure, tripping the circuit when the threshold is
// reached or when a half-open probe fails.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	switch {
	case b.state == StateHalfOpen:
		b.open()
	case b.state == StateClosed && b.failures >= b.threshold:
		b.open()
	}
}

// Release returns an admitted half-open probe without judging the dependency,
// e.g. when the caller gave up for reasons unrelated to it.
func (b *Breaker) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.transition(StateOpen)
	}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// caller holds b.mu
func (b *Breaker) open() {
	b.openedAt = b.now()
	b.transition(StateOpen)
}

// caller holds b.mu
func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	stateGauge.WithLabelValues(b.name).Set(float64(to))
	transitions.WithLabelValues(b.name, from.String(), to.String()).Inc()
}
