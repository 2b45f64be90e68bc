package infra

import (
	"errors"
	"sync"
	"time"
)

// ── Circuit Breaker ───────────────────────────────────────────────────────────
// Guards the outbound SMTP path during scheduler runs. When the mail host
// is down, every send would otherwise block on its timeout and a large
// batch of due automations would crawl; the breaker fast-fails sends
// after a few consecutive failures and probes for recovery later.
//
// States: Closed (requests flow) → Open (fast-fail) → Half-Open (one probe).

type BreakerState int

const (
	BreakerClosed BreakerState = iota
	BreakerOpen
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrBreakerOpen is returned when Execute is called while the breaker is open.
var ErrBreakerOpen = errors.New("circuit breaker is open")

// Breaker implements the pattern with thread-safe state transitions.
type Breaker struct {
	mu           sync.Mutex
	state        BreakerState
	failures     int
	successes    int
	lastFailure  time.Time
	failLimit    int
	successLimit int
	openTimeout  time.Duration
}

// NewBreaker creates a closed breaker. failLimit consecutive failures trip
// it open; after openTimeout one probe is allowed, and successLimit
// consecutive probe successes close it again.
func NewBreaker(failLimit, successLimit int, openTimeout time.Duration) *Breaker {
	if failLimit <= 0 {
		failLimit = 5
	}
	if successLimit <= 0 {
		successLimit = 2
	}
	if openTimeout <= 0 {
		openTimeout = 60 * time.Second
	}
	return &Breaker{failLimit: failLimit, successLimit: successLimit, openTimeout: openTimeout}
}

// State returns the current state (safe for concurrent reads).
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && time.Since(b.lastFailure) >= b.openTimeout {
		b.state = BreakerHalfOpen
		b.successes = 0
	}
	return b.state
}

// Execute runs fn through the breaker, returning ErrBreakerOpen
// immediately while open.
func (b *Breaker) Execute(fn func() error) error {
	if b.State() == BreakerOpen {
		return ErrBreakerOpen
	}

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	if err != nil {
		b.onFailure()
		return err
	}
	b.onSuccess()
	return nil
}

func (b *Breaker) onFailure() {
	b.failures++
	b.lastFailure = time.Now()
	switch b.state {
	case BreakerClosed:
		if b.failures >= b.failLimit {
			b.state = BreakerOpen
			b.successes = 0
		}
	case BreakerHalfOpen:
		b.state = BreakerOpen
		b.failures = 0
	}
}

func (b *Breaker) onSuccess() {
	switch b.state {
	case BreakerClosed:
		b.failures = 0
	case BreakerHalfOpen:
		b.successes++
		if b.successes >= b.successLimit {
			b.state = BreakerClosed
			b.failures = 0
			b.successes = 0
		}
	}
}
