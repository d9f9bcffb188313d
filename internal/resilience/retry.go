// File: internal/resilience/retry.go
package resilience

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
)

// RetryConfig is an immutable value describing bounded exponential backoff
// with uniform jitter.
//
// Invariants enforced by Validate: MaxAttempts >= 1, BaseDelay <= MaxDelay,
// 0 <= JitterFraction < 1.
type RetryConfig struct {
	MaxAttempts    int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	BaseDelay      time.Duration `mapstructure:"base_delay" yaml:"base_delay"`
	MaxDelay       time.Duration `mapstructure:"max_delay" yaml:"max_delay"`
	Multiplier     float64       `mapstructure:"multiplier" yaml:"multiplier"`
	JitterFraction float64       `mapstructure:"jitter_fraction" yaml:"jitter_fraction"`
}

// DefaultRetryConfig mirrors the defaults the rest of the agent assumes:
// three attempts, 1s base, 30s cap, doubling, 25% jitter.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		BaseDelay:      time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.25,
	}
}

// Validate checks the config invariants.
func (c RetryConfig) Validate() error {
	if c.MaxAttempts < 1 {
		return NewError(KindGeneric, "retry.validate", "max attempts must be >= 1, got %d", c.MaxAttempts)
	}
	if c.BaseDelay < 0 || c.MaxDelay < 0 || c.BaseDelay > c.MaxDelay {
		return NewError(KindGeneric, "retry.validate", "delays must satisfy 0 <= base (%v) <= max (%v)", c.BaseDelay, c.MaxDelay)
	}
	if c.Multiplier < 1 {
		return NewError(KindGeneric, "retry.validate", "multiplier must be >= 1, got %v", c.Multiplier)
	}
	if c.JitterFraction < 0 || c.JitterFraction >= 1 {
		return NewError(KindGeneric, "retry.validate", "jitter fraction must be in [0, 1), got %v", c.JitterFraction)
	}
	return nil
}

// backoffDelay computes the pre-jitter delay for a 0-indexed attempt:
// min(base * multiplier^attempt, max).
func (c RetryConfig) backoffDelay(attempt int) time.Duration {
	d := float64(c.BaseDelay) * math.Pow(c.Multiplier, float64(attempt))
	if d > float64(c.MaxDelay) {
		return c.MaxDelay
	}
	return time.Duration(d)
}

// Operation is any fallible unit of work executed under retry.
type Operation func(ctx context.Context) error

// SleepFunc waits for d or until ctx is done. Injectable so tests can run
// the exact delay schedule without real sleeping.
type SleepFunc func(ctx context.Context, d time.Duration) error

func contextSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Retrier executes operations under a RetryConfig, retrying only failures
// whose taxonomy kind is in the retryable set. The random source and sleep
// function are injectable: a fixed seed must produce an identical delay
// sequence whether the host sleeps for real or not.
type Retrier struct {
	cfg       RetryConfig
	retryable KindSet
	logger    *zap.Logger
	rng       *rand.Rand
	sleep     SleepFunc
}

// RetrierOption customizes a Retrier.
type RetrierOption func(*Retrier)

// WithSeed fixes the jitter random source for reproducible delay sequences.
func WithSeed(seed int64) RetrierOption {
	return func(r *Retrier) { r.rng = rand.New(rand.NewSource(seed)) }
}

// WithSleep replaces the sleeping function.
func WithSleep(fn SleepFunc) RetrierOption {
	return func(r *Retrier) { r.sleep = fn }
}

// NewRetrier builds a Retrier. A nil retryable set falls back to
// DefaultRetryable.
func NewRetrier(cfg RetryConfig, retryable KindSet, logger *zap.Logger, opts ...RetrierOption) (*Retrier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if retryable == nil {
		retryable = DefaultRetryable()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Retrier{
		cfg:       cfg,
		retryable: retryable,
		logger:    logger.Named("retrier"),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:     contextSleep,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Do runs op up to MaxAttempts times. Failures outside the retryable set and
// the final failed attempt return immediately with no further waiting.
func (r *Retrier) Do(ctx context.Context, name string, op Operation) error {
	var lastErr error
	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		kind := KindOf(lastErr)
		if !r.retryable.Contains(kind) {
			r.logger.Debug("Failure is not retryable, giving up.",
				zap.String("operation", name),
				zap.String("kind", string(kind)),
				zap.Error(lastErr))
			return lastErr
		}
		if attempt == r.cfg.MaxAttempts-1 {
			break
		}

		delay := r.jitteredDelay(attempt)
		r.logger.Warn("Operation failed, backing off before retry.",
			zap.String("operation", name),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", r.cfg.MaxAttempts),
			zap.Duration("delay", delay),
			zap.Error(lastErr))
		if err := r.sleep(ctx, delay); err != nil {
			return err
		}
	}

	r.logger.Error("Operation exhausted all attempts.",
		zap.String("operation", name),
		zap.Int("attempts", r.cfg.MaxAttempts),
		zap.Error(lastErr))
	return lastErr
}

// jitteredDelay applies uniform jitter in [-d*jf, +d*jf] and clamps at zero.
func (r *Retrier) jitteredDelay(attempt int) time.Duration {
	d := r.cfg.backoffDelay(attempt)
	if r.cfg.JitterFraction > 0 {
		span := float64(d) * r.cfg.JitterFraction
		d += time.Duration((r.rng.Float64()*2 - 1) * span)
	}
	if d < 0 {
		return 0
	}
	return d
}
