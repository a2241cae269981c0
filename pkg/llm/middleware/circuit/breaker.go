// Package circuit stops calling a provider that keeps failing, so the
// fallback chain moves past it without waiting on every request.
package circuit

import (
	"fmt"
	"sync"
	"time"
)

// State of a breaker.
type State int

// Breaker states.
const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Open:
		return "OPEN"
	case HalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Config sets when a breaker trips and when it tries the provider again.
type Config struct {
	FailureThreshold int           `yaml:"failure_threshold"` // consecutive failures that open the circuit
	SuccessThreshold int           `yaml:"success_threshold"` // half-open successes that close it
	Timeout          time.Duration `yaml:"timeout"`           // how long it stays open
}

// DefaultConfig is used when the config file sets nothing.
//
//nolint:gochecknoglobals // default value
var DefaultConfig = Config{
	FailureThreshold: 5,
	SuccessThreshold: 1,
	Timeout:          30 * time.Second,
}

// Error is returned instead of calling the provider while the circuit is
// open. It wraps the failure that tripped the circuit, so a rejected key
// still reads as an authentication failure after the breaker opens.
type Error struct {
	State State
	Last  error
}

func (e *Error) Error() string {
	if e.Last == nil {
		return fmt.Sprintf("circuit breaker is %s", e.State)
	}
	return fmt.Sprintf("circuit breaker is %s: %v", e.State, e.Last)
}

func (e *Error) Unwrap() error {
	return e.Last
}

// Breaker tracks the health of one provider.
type Breaker interface {
	// Allow returns nil when a call may proceed and an *Error otherwise.
	Allow() error

	// Record feeds back the result of an allowed call; nil means success.
	Record(err error)

	// GetState returns the current state.
	GetState() State

	// Reset closes the circuit and forgets past failures.
	Reset()
}

//nolint:govet // grouped by meaning
type breaker struct {
	cfg Config
	now func() time.Time

	mu        sync.Mutex
	state     State
	failures  int
	successes int
	openedAt  time.Time
	lastErr   error
}

// New creates a closed breaker.
func New(cfg Config) Breaker {
	return &breaker{cfg: cfg, now: time.Now}
}

func (b *breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Open && b.now().Sub(b.openedAt) >= b.cfg.Timeout {
		b.state = HalfOpen
		b.successes = 0
	}
	if b.state == Open {
		return &Error{State: Open, Last: b.lastErr}
	}
	return nil
}

func (b *breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.lastErr = err
		b.failures++
		if b.state == HalfOpen || b.failures >= b.cfg.FailureThreshold {
			b.trip()
		}
		return
	}

	b.failures = 0
	if b.state != HalfOpen {
		return
	}
	b.successes++
	if b.successes >= b.cfg.SuccessThreshold {
		b.state = Closed
		b.successes = 0
		b.lastErr = nil
	}
}

func (b *breaker) trip() {
	b.state = Open
	b.openedAt = b.now()
	b.successes = 0
}

func (b *breaker) GetState() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = Closed
	b.failures = 0
	b.successes = 0
	b.lastErr = nil
}
