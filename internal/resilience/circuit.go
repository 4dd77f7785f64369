package resilience

import (
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// BreakerState is the state of a per-source circuit breaker.
type BreakerState int

const (
	// BreakerClosed is the normal state; calls flow through.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects calls immediately after repeated failures.
	BreakerOpen
	// BreakerHalfOpen lets one probe call test recovery.
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

// ErrSourceOpen is returned when a source's breaker rejects the call.
var ErrSourceOpen = eris.New("source circuit is open")

// BreakerConfig controls a source breaker.
type BreakerConfig struct {
	// FailureThreshold is the consecutive-failure count that opens the
	// breaker. Default: 5.
	FailureThreshold int
	// ResetTimeout is how long the breaker stays open before allowing a
	// probe. Default: 30s.
	ResetTimeout time.Duration
}

// Breaker guards one external source across validation requests. A source
// failing consistently for every request is cut off instead of burning each
// request's retry budget on it.
type Breaker struct {
	cfg    BreakerConfig
	source string

	mu           sync.Mutex
	state        BreakerState
	failures     int
	lastFailure  time.Time
	now          func() time.Time
}

// NewBreaker creates a breaker for the named source.
func NewBreaker(source string, cfg BreakerConfig) *Breaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	return &Breaker{cfg: cfg, source: source, state: BreakerClosed, now: time.Now}
}

// Allow reports whether a call may proceed, transitioning open->half-open
// after the reset timeout.
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerOpen:
		if b.now().Sub(b.lastFailure) >= b.cfg.ResetTimeout {
			b.setState(BreakerHalfOpen)
			return nil
		}
		return WithCode(CodeSystemFailure, ErrSourceOpen)
	default:
		return nil
	}
}

// Record feeds a call outcome into the breaker. Only coded transient
// failures count toward the threshold; a NON_RECOVERABLE input error says
// nothing about the source's health.
func (b *Breaker) Record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		if b.state == BreakerHalfOpen {
			b.setState(BreakerClosed)
		}
		b.failures = 0
		return
	}

	switch CodeOf(err) {
	case CodeNetworkError, CodeRateLimit, CodeSystemFailure:
	default:
		return
	}

	b.failures++
	b.lastFailure = b.now()

	switch b.state {
	case BreakerClosed:
		if b.failures >= b.cfg.FailureThreshold {
			b.setState(BreakerOpen)
		}
	case BreakerHalfOpen:
		b.setState(BreakerOpen)
	}
}

// State returns the current state.
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && b.now().Sub(b.lastFailure) >= b.cfg.ResetTimeout {
		return BreakerHalfOpen
	}
	return b.state
}

func (b *Breaker) setState(s BreakerState) {
	if s == b.state {
		return
	}
	zap.L().Info("source circuit state change",
		zap.String("source", b.source),
		zap.String("from", b.state.String()),
		zap.String("to", s.String()),
	)
	b.state = s
	if s != BreakerOpen {
		b.failures = 0
	}
}
