// internal/agent/tools.go
package agent

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/CharbelDaher34/jarvis/internal/resilience"
	"github.com/CharbelDaher34/jarvis/internal/resolver"
)

// maxPageTextLength caps read_page output so one tool result cannot flood
// the model context.
const maxPageTextLength = 5000

// Browser is the page surface the toolbox drives. Satisfied by
// *browser.Session.
type Browser interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	PageHTML(ctx context.Context) (string, error)
	Scroll(ctx context.Context, direction string) error
}

// ElementResolver locates page elements for interaction. Satisfied by
// *resolver.Engine.
type ElementResolver interface {
	Resolve(ctx context.Context, target string, action resolver.ActionKind) (resolver.Resolution, error)
}

// ToolCall is one action the acting role requests.
type ToolCall struct {
	Thought string `json:"thought"`
	Tool    string `json:"tool"`
	Target  string `json:"target"`
	Value   string `json:"value"`
	Done    bool   `json:"done"`
	Summary string `json:"summary"`
}

// Toolbox executes browser tools with the resilience stack applied:
// interactions run inside the circuit breaker, and transient failures are
// retried.
type Toolbox struct {
	browser  Browser
	resolver ElementResolver
	driver   resolver.Driver
	retrier  *resilience.Retrier
	breaker  *resilience.CircuitBreaker
	blocked  []string
	logger   *zap.Logger
	sleep    func(context.Context, time.Duration) error
}

// NewToolbox wires the toolbox. blockedDomains lists hosts navigation must
// refuse; matching is by host or dot-suffix.
func NewToolbox(
	browser Browser,
	elementResolver ElementResolver,
	driver resolver.Driver,
	retrier *resilience.Retrier,
	breaker *resilience.CircuitBreaker,
	blockedDomains []string,
	logger *zap.Logger,
) *Toolbox {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Toolbox{
		browser:  browser,
		resolver: elementResolver,
		driver:   driver,
		retrier:  retrier,
		breaker:  breaker,
		blocked:  blockedDomains,
		logger:   logger.Named("tools"),
		sleep:    contextSleep,
	}
}

func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Invoke dispatches a tool call and returns a textual result for the model.
func (t *Toolbox) Invoke(ctx context.Context, call ToolCall) (string, error) {
	t.logger.Info("Executing tool",
		zap.String("tool", call.Tool),
		zap.String("target", call.Target),
	)

	switch call.Tool {
	case "navigate":
		return t.navigate(ctx, call.Target)
	case "click":
		return t.interact(ctx, call.Target, resolver.ActionClick, "")
	case "type":
		return t.interact(ctx, call.Target, resolver.ActionType, call.Value)
	case "select":
		return t.interact(ctx, call.Target, resolver.ActionSelect, call.Value)
	case "scroll":
		return t.scroll(ctx, call.Target)
	case "read_page":
		return t.readPage(ctx)
	case "current_url":
		return t.currentURL(ctx)
	case "wait":
		return t.wait(ctx, call.Value)
	default:
		return "", fmt.Errorf("unknown tool %q", call.Tool)
	}
}

func (t *Toolbox) navigate(ctx context.Context, rawURL string) (string, error) {
	target, err := t.validateURL(rawURL)
	if err != nil {
		return "", err
	}

	err = t.breaker.Do(ctx, func(ctx context.Context) error {
		return t.retrier.Do(ctx, "navigate", func(ctx context.Context) error {
			return t.browser.Navigate(ctx, target)
		})
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Successfully navigated to %s", target), nil
}

// validateURL enforces the navigation policy: absolute http(s) URLs only,
// never to a blocked host. Violations are security errors and are not
// retried.
func (t *Toolbox) validateURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", resilience.NewError(resilience.KindNavigation, "tools.navigate",
			"invalid URL %q: %v", rawURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", resilience.NewError(resilience.KindSecurity, "tools.navigate",
			"refusing to navigate to non-http(s) URL %q", rawURL)
	}
	host := strings.ToLower(u.Hostname())
	for _, blocked := range t.blocked {
		b := strings.ToLower(strings.TrimSpace(blocked))
		if b == "" {
			continue
		}
		if host == b || strings.HasSuffix(host, "."+b) {
			return "", resilience.NewError(resilience.KindSecurity, "tools.navigate",
				"navigation to blocked domain %q refused", host)
		}
	}
	return u.String(), nil
}

// interact resolves the target and performs the action on it. Resolution
// exhaustion is an element-not-found error and is never retried; transient
// driver faults are.
func (t *Toolbox) interact(ctx context.Context, target string, action resolver.ActionKind, value string) (string, error) {
	var res resolver.Resolution
	err := t.breaker.Do(ctx, func(ctx context.Context) error {
		return t.retrier.Do(ctx, string(action), func(ctx context.Context) error {
			var resolveErr error
			res, resolveErr = t.resolver.Resolve(ctx, target, action)
			if resolveErr != nil {
				return resolveErr
			}
			return t.driver.Act(ctx, res.Handle, action, value)
		})
	})
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Successfully performed %s on %q (matched via %s)", action, target, res.Strategy), nil
}

func (t *Toolbox) scroll(ctx context.Context, direction string) (string, error) {
	if direction == "" {
		direction = "down"
	}
	if err := t.browser.Scroll(ctx, direction); err != nil {
		return "", err
	}
	return fmt.Sprintf("Scrolled %s", direction), nil
}

func (t *Toolbox) readPage(ctx context.Context) (string, error) {
	pageHTML, err := t.browser.PageHTML(ctx)
	if err != nil {
		return "", err
	}

	text, err := extractVisibleText(pageHTML)
	if err != nil {
		return "", fmt.Errorf("failed to parse page HTML: %w", err)
	}
	if len(text) > maxPageTextLength {
		text = text[:maxPageTextLength] + "... (content truncated)"
	}
	return "Page text content:\n" + text, nil
}

func (t *Toolbox) currentURL(ctx context.Context) (string, error) {
	u, err := t.browser.CurrentURL(ctx)
	if err != nil {
		return "", err
	}
	return "Current URL: " + u, nil
}

func (t *Toolbox) wait(ctx context.Context, value string) (string, error) {
	seconds, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil || seconds <= 0 {
		seconds = 1
	}
	if seconds > 10 {
		seconds = 10
	}
	d := time.Duration(seconds * float64(time.Second))
	if err := t.sleep(ctx, d); err != nil {
		return "", err
	}
	return fmt.Sprintf("Waited %.1f seconds", seconds), nil
}

// extractVisibleText walks the parsed document collecting text nodes,
// skipping script and style subtrees.
func extractVisibleText(pageHTML string) (string, error) {
	doc, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
		}
		if n.Type == html.TextNode {
			trimmed := strings.TrimSpace(n.Data)
			if trimmed != "" {
				if sb.Len() > 0 {
					sb.WriteByte('\n')
				}
				sb.WriteString(trimmed)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return sb.String(), nil
}
