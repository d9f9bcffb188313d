// File: internal/resolver/engine.go
// Description: The adaptive resolution engine. Maps an ambiguous target
// description to a concrete actionable element by walking the strategy
// catalog, recording every attempt along the way.

package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/CharbelDaher34/jarvis/internal/resilience"
)

// AttemptRecord is an immutable log entry for one strategy attempt.
type AttemptRecord struct {
	StrategyName string
	Succeeded    bool
	Elapsed      time.Duration
}

// Resolution is a successful outcome: the handle plus the strategy that won
// and the attempt trail that led there.
type Resolution struct {
	Handle   Handle
	Strategy string
	Attempts []AttemptRecord
}

// ResolutionError reports strategy-chain exhaustion. Its AttemptedStrategies
// list is exactly the chain the catalog produced for the target/action pair.
type ResolutionError struct {
	Target              string
	Action              ActionKind
	AttemptedStrategies []string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("all %d strategies failed to locate %q for %s (attempted: %s)",
		len(e.AttemptedStrategies), e.Target, e.Action, strings.Join(e.AttemptedStrategies, ", "))
}

// StrategyStats aggregates attempts for one strategy name.
type StrategyStats struct {
	Name      string
	Attempts  int
	Successes int
}

// Stats is the engine-lifetime aggregate view over all resolutions.
type Stats struct {
	PerStrategy    []StrategyStats
	TotalAttempts  int
	TotalSuccesses int
	SuccessRate    float64
}

// EngineConfig parameterizes the resolution engine.
type EngineConfig struct {
	// ResolveTimeout bounds a whole Resolve call.
	ResolveTimeout time.Duration `mapstructure:"resolve_timeout" yaml:"resolve_timeout"`
	// AttemptTimeout bounds each individual strategy attempt so one slow
	// strategy cannot starve the remaining ones. Must be shorter than
	// ResolveTimeout.
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout" yaml:"attempt_timeout"`
}

// DefaultEngineConfig returns the standard timeouts.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{ResolveTimeout: 30 * time.Second, AttemptTimeout: 3 * time.Second}
}

// Engine resolves target descriptions into actionable handles. One engine is
// constructed per task run and threaded through explicitly; it holds no
// global state. Resolve is called synchronously from the acting role, so the
// mutex only guards the stats against concurrent readers.
type Engine struct {
	driver  Driver
	catalog *Catalog
	cfg     EngineConfig
	logger  *zap.Logger

	mu         sync.Mutex
	byStrategy map[string]*StrategyStats
	totals     StrategyStats
}

// NewEngine constructs an engine over the given driver and catalog. A nil
// catalog gets the default one.
func NewEngine(driver Driver, catalog *Catalog, cfg EngineConfig, logger *zap.Logger) *Engine {
	if catalog == nil {
		catalog = NewCatalog()
	}
	if cfg.ResolveTimeout <= 0 {
		cfg.ResolveTimeout = DefaultEngineConfig().ResolveTimeout
	}
	if cfg.AttemptTimeout <= 0 || cfg.AttemptTimeout >= cfg.ResolveTimeout {
		cfg.AttemptTimeout = DefaultEngineConfig().AttemptTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		driver:     driver,
		catalog:    catalog,
		cfg:        cfg,
		logger:     logger.Named("resolver"),
		byStrategy: make(map[string]*StrategyStats),
	}
}

// Resolve walks the strategy chain for target/action and returns the first
// actionable handle. Searching is read-only; the post-success reveal (scroll
// into view plus highlight) is best-effort and never changes the outcome.
// Exhaustion returns a taxonomy ElementNotFound error wrapping a
// *ResolutionError.
func (e *Engine) Resolve(ctx context.Context, target string, action ActionKind) (Resolution, error) {
	opCtx, cancel := context.WithTimeout(ctx, e.cfg.ResolveTimeout)
	defer cancel()

	chain := e.catalog.For(target, action)
	attempts := make([]AttemptRecord, 0, len(chain))
	log := e.logger.With(zap.String("target", target), zap.String("action", string(action)))

	for _, strat := range chain {
		if err := opCtx.Err(); err != nil {
			return Resolution{}, resilience.WrapError(resilience.KindTimeout, "resolver.resolve", err)
		}

		start := time.Now()
		attemptCtx, cancelAttempt := context.WithTimeout(opCtx, e.cfg.AttemptTimeout)
		handle, err := strat.Attempt(attemptCtx, e.driver, target)
		cancelAttempt()

		rec := AttemptRecord{StrategyName: strat.Name(), Succeeded: err == nil, Elapsed: time.Since(start)}
		attempts = append(attempts, rec)
		e.record(rec)

		if err != nil {
			log.Debug("Strategy attempt failed.", zap.String("strategy", strat.Name()), zap.Error(err))
			continue
		}

		log.Info("Element resolved.",
			zap.String("strategy", strat.Name()),
			zap.String("selector", handle.Selector),
			zap.Int("attempts", len(attempts)))
		e.reveal(opCtx, handle, log)
		return Resolution{Handle: handle, Strategy: strat.Name(), Attempts: attempts}, nil
	}

	names := make([]string, len(attempts))
	for i, a := range attempts {
		names[i] = a.StrategyName
	}
	resErr := &ResolutionError{Target: target, Action: action, AttemptedStrategies: names}
	log.Warn("Resolution exhausted every strategy.", zap.Strings("strategies", names))
	return Resolution{}, resilience.WrapError(resilience.KindElementNotFound, "resolver.resolve", resErr)
}

// reveal scrolls the resolved element into view and highlights it for
// operator feedback. Failures are logged and swallowed.
func (e *Engine) reveal(ctx context.Context, h Handle, log *zap.Logger) {
	revealCtx, cancel := context.WithTimeout(ctx, e.cfg.AttemptTimeout)
	defer cancel()
	if err := e.driver.Reveal(revealCtx, h); err != nil {
		log.Debug("Post-resolution reveal failed (non-critical).", zap.Error(err))
	}
}

func (e *Engine) record(rec AttemptRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st, ok := e.byStrategy[rec.StrategyName]
	if !ok {
		st = &StrategyStats{Name: rec.StrategyName}
		e.byStrategy[rec.StrategyName] = st
	}
	st.Attempts++
	e.totals.Attempts++
	if rec.Succeeded {
		st.Successes++
		e.totals.Successes++
	}
}

// Stats returns the engine-lifetime aggregate, per-strategy entries sorted by
// name for stable output.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	per := make([]StrategyStats, 0, len(e.byStrategy))
	for _, st := range e.byStrategy {
		per = append(per, *st)
	}
	sort.Slice(per, func(i, j int) bool { return per[i].Name < per[j].Name })

	rate := 0.0
	if e.totals.Attempts > 0 {
		rate = float64(e.totals.Successes) / float64(e.totals.Attempts)
	}
	return Stats{
		PerStrategy:    per,
		TotalAttempts:  e.totals.Attempts,
		TotalSuccesses: e.totals.Successes,
		SuccessRate:    rate,
	}
}
