// File: internal/resilience/breaker.go
package resilience

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrCircuitOpen is returned for calls made while the breaker is open and the
// recovery timeout has not yet elapsed. The wrapped operation is not invoked.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitState enumerates the breaker lifecycle.
type CircuitState string

const (
	StateClosed   CircuitState = "closed"
	StateOpen     CircuitState = "open"
	StateHalfOpen CircuitState = "half-open"
)

// BreakerConfig parameterizes a CircuitBreaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that trips the
	// breaker from closed to open.
	FailureThreshold int `mapstructure:"failure_threshold" yaml:"failure_threshold"`
	// RecoveryTimeout is how long the breaker refuses calls after opening
	// before allowing a single half-open trial.
	RecoveryTimeout time.Duration `mapstructure:"recovery_timeout" yaml:"recovery_timeout"`
}

// DefaultBreakerConfig matches the agent's driver defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{FailureThreshold: 5, RecoveryTimeout: 60 * time.Second}
}

// CircuitBreaker guards one operation class against a persistently failing
// dependency (e.g. a crashed browser session). State transitions are
// evaluated lazily on each call; there is no background timer.
//
// Transitions:
//
//	closed    --failureCount reaches threshold--> open
//	open      --recovery timeout elapsed--------> half-open (on next call)
//	half-open --success-------------------------> closed (failureCount reset)
//	half-open --failure-------------------------> open (lastFailure reset)
//
// The breaker never moves from open to closed without passing half-open.
type CircuitBreaker struct {
	cfg    BreakerConfig
	logger *zap.Logger
	now    func() time.Time

	mu          sync.Mutex
	state       CircuitState
	failures    int
	lastFailure time.Time
}

// BreakerOption customizes a CircuitBreaker.
type BreakerOption func(*CircuitBreaker)

// WithClock injects a clock for tests.
func WithClock(now func() time.Time) BreakerOption {
	return func(b *CircuitBreaker) { b.now = now }
}

// NewCircuitBreaker creates a breaker in the closed state.
func NewCircuitBreaker(cfg BreakerConfig, logger *zap.Logger, opts ...BreakerOption) *CircuitBreaker {
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = DefaultBreakerConfig().FailureThreshold
	}
	if cfg.RecoveryTimeout <= 0 {
		cfg.RecoveryTimeout = DefaultBreakerConfig().RecoveryTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &CircuitBreaker{
		cfg:    cfg,
		logger: logger.Named("breaker"),
		now:    time.Now,
		state:  StateClosed,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Do executes op under the breaker. While open and inside the recovery
// window it fails fast with ErrCircuitOpen.
func (b *CircuitBreaker) Do(ctx context.Context, op Operation) error {
	if err := b.before(); err != nil {
		return err
	}
	err := op(ctx)
	b.after(err)
	return err
}

// State reports the current state, applying the lazy open -> half-open
// transition if the recovery timeout has elapsed.
func (b *CircuitBreaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeHalfOpenLocked()
	return b.state
}

// FailureCount reports the consecutive failure count.
func (b *CircuitBreaker) FailureCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

func (b *CircuitBreaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeHalfOpenLocked()
	if b.state == StateOpen {
		return ErrCircuitOpen
	}
	return nil
}

func (b *CircuitBreaker) maybeHalfOpenLocked() {
	if b.state == StateOpen && b.now().Sub(b.lastFailure) >= b.cfg.RecoveryTimeout {
		b.state = StateHalfOpen
		b.logger.Info("Recovery timeout elapsed, allowing one trial call.",
			zap.Duration("recovery_timeout", b.cfg.RecoveryTimeout))
	}
}

func (b *CircuitBreaker) after(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		if b.state != StateClosed {
			b.logger.Info("Trial call succeeded, closing circuit.")
		}
		b.state = StateClosed
		b.failures = 0
		return
	}

	b.lastFailure = b.now()
	switch b.state {
	case StateHalfOpen:
		// A failed trial re-opens immediately regardless of the count.
		b.state = StateOpen
		b.logger.Warn("Trial call failed, re-opening circuit.", zap.Error(err))
	default:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.state = StateOpen
			b.logger.Warn("Failure threshold reached, opening circuit.",
				zap.Int("failures", b.failures),
				zap.Error(err))
		}
	}
}
