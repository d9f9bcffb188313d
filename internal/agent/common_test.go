package agent

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/CharbelDaher34/jarvis/api/schemas"
	"github.com/CharbelDaher34/jarvis/internal/resilience"
	"github.com/CharbelDaher34/jarvis/internal/resolver"
)

// scriptedLLM returns canned generations in order and records requests.
type scriptedLLM struct {
	responses []schemas.Generation
	errs      []error
	requests  []schemas.GenerationRequest
}

func (s *scriptedLLM) Generate(_ context.Context, req schemas.GenerationRequest) (schemas.Generation, error) {
	s.requests = append(s.requests, req)
	idx := len(s.requests) - 1
	var err error
	if idx < len(s.errs) {
		err = s.errs[idx]
	}
	if err != nil {
		return schemas.Generation{}, err
	}
	if idx >= len(s.responses) {
		return schemas.Generation{}, nil
	}
	return s.responses[idx], nil
}

// fakeBrowser records calls and serves canned pages.
type fakeBrowser struct {
	navigated []string
	scrolled  []string
	url       string
	pageHTML  string
	navErr    error
	navFails  int
}

func (f *fakeBrowser) Navigate(_ context.Context, url string) error {
	f.navigated = append(f.navigated, url)
	if f.navFails > 0 {
		f.navFails--
		return f.navErr
	}
	return nil
}

func (f *fakeBrowser) CurrentURL(_ context.Context) (string, error) { return f.url, nil }
func (f *fakeBrowser) PageHTML(_ context.Context) (string, error)   { return f.pageHTML, nil }
func (f *fakeBrowser) Scroll(_ context.Context, direction string) error {
	f.scrolled = append(f.scrolled, direction)
	return nil
}

// fakeResolver resolves every target to a fixed handle or fails.
type fakeResolver struct {
	resolved []string
	err      error
	strategy string
}

func (f *fakeResolver) Resolve(_ context.Context, target string, _ resolver.ActionKind) (resolver.Resolution, error) {
	f.resolved = append(f.resolved, target)
	if f.err != nil {
		return resolver.Resolution{}, f.err
	}
	strategy := f.strategy
	if strategy == "" {
		strategy = "exact text"
	}
	return resolver.Resolution{
		Handle:   resolver.Handle{Selector: "//button[1]", ByXPath: true},
		Strategy: strategy,
	}, nil
}

// fakeDriver records Act calls.
type fakeDriver struct {
	acts   []resolver.ActionKind
	actErr error
}

func (f *fakeDriver) FindCandidates(context.Context, resolver.Query) ([]resolver.Handle, error) {
	return nil, nil
}
func (f *fakeDriver) IsActionable(context.Context, resolver.Handle) (bool, error) {
	return true, nil
}
func (f *fakeDriver) Act(_ context.Context, _ resolver.Handle, action resolver.ActionKind, _ string) error {
	f.acts = append(f.acts, action)
	return f.actErr
}
func (f *fakeDriver) Reveal(context.Context, resolver.Handle) error { return nil }

func newTestRetrier(t *testing.T) *resilience.Retrier {
	t.Helper()
	cfg := resilience.RetryConfig{
		MaxAttempts:    3,
		BaseDelay:      time.Millisecond,
		MaxDelay:       5 * time.Millisecond,
		Multiplier:     2.0,
		JitterFraction: 0,
	}
	r, err := resilience.NewRetrier(cfg, resilience.DefaultRetryable(), zap.NewNop(),
		resilience.WithSleep(func(context.Context, time.Duration) error { return nil }))
	if err != nil {
		t.Fatalf("failed to build retrier: %v", err)
	}
	return r
}

func newTestToolbox(t *testing.T, b *fakeBrowser, r *fakeResolver, d *fakeDriver, blocked []string) *Toolbox {
	t.Helper()
	breaker := resilience.NewCircuitBreaker(resilience.DefaultBreakerConfig(), zap.NewNop())
	tb := NewToolbox(b, r, d, newTestRetrier(t), breaker, blocked, zap.NewNop())
	tb.sleep = func(context.Context, time.Duration) error { return nil }
	return tb
}
