// internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/CharbelDaher34/jarvis/internal/config"
	"github.com/CharbelDaher34/jarvis/internal/resilience"
)

// Session owns one headless browser process and one tab. All CDP traffic is
// serialized through a single-slot semaphore so concurrent callers cannot
// interleave actions on the shared tab.
type Session struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc
	tabCtx          context.Context
	tabCancel       context.CancelFunc

	guard *semaphore.Weighted
}

// NewSession launches the browser process, opens a tab and verifies it is
// responsive before returning.
func NewSession(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Session, error) {
	s := &Session{
		logger: logger.Named("browser"),
		cfg:    cfg,
		guard:  semaphore.NewWeighted(1),
	}

	opts := buildAllocatorOptions(cfg)
	s.allocatorCtx, s.allocatorCancel = chromedp.NewExecAllocator(ctx, opts...)
	s.tabCtx, s.tabCancel = chromedp.NewContext(s.allocatorCtx)

	// Confirm the browser starts and responds before handing the session out.
	probeCtx, cancelProbe := context.WithTimeout(s.tabCtx, 30*time.Second)
	defer cancelProbe()
	if err := chromedp.Run(probeCtx, chromedp.Navigate("about:blank")); err != nil {
		s.allocatorCancel()
		return nil, resilience.WrapError(resilience.KindConnection, "browser.launch",
			fmt.Errorf("browser failed to start or respond: %w", err))
	}

	s.logger.Info("Browser launched",
		zap.Bool("headless", cfg.Headless),
		zap.Int("window_width", cfg.WindowWidth),
		zap.Int("window_height", cfg.WindowHeight),
	)
	return s, nil
}

// buildAllocatorOptions assembles the launch flags for the browser process.
func buildAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("ignore-certificate-errors", cfg.IgnoreTLSErrors),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-gpu", cfg.Headless),
	)

	if cfg.WindowWidth > 0 && cfg.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight))
	}
	if cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.UserAgent))
	}

	// Flags required when running inside containers.
	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}

	return opts
}

// run executes the actions on the tab under the session guard. The caller's
// context bounds the operation; the tab context carries the CDP target.
func (s *Session) run(ctx context.Context, op string, actions ...chromedp.Action) error {
	if err := s.guard.Acquire(ctx, 1); err != nil {
		return resilience.WrapError(resilience.KindTimeout, op, err)
	}
	defer s.guard.Release(1)

	runCtx, cancel := combineContext(s.tabCtx, ctx)
	defer cancel()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		return classifyCDPError(op, err)
	}
	return nil
}

// Navigate loads the URL, bounded by the configured navigation timeout.
func (s *Session) Navigate(ctx context.Context, url string) error {
	timeout := s.cfg.NavigationTimeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s.logger.Info("Navigating", zap.String("url", url))
	return s.run(navCtx, "browser.navigate", chromedp.Navigate(url))
}

// CurrentURL returns the tab's current location.
func (s *Session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	if err := s.run(ctx, "browser.current_url", chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// PageHTML returns the serialized outer HTML of the document.
func (s *Session) PageHTML(ctx context.Context) (string, error) {
	var html string
	err := s.run(ctx, "browser.page_html",
		chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	if err != nil {
		return "", err
	}
	return html, nil
}

// Title returns the document title.
func (s *Session) Title(ctx context.Context) (string, error) {
	var title string
	if err := s.run(ctx, "browser.title", chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

// Scroll moves the viewport by one window height in the given direction.
func (s *Session) Scroll(ctx context.Context, direction string) error {
	return s.run(ctx, "browser.scroll", chromedp.Evaluate(scrollScript(direction), nil))
}

// Screenshot captures the visible viewport as PNG bytes.
func (s *Session) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	if err := s.run(ctx, "browser.screenshot", chromedp.CaptureScreenshot(&buf)); err != nil {
		return nil, err
	}
	return buf, nil
}

// SaveScreenshot captures the viewport and writes it to path. Best effort:
// callers treat a failure as diagnostic loss, not a task failure.
func (s *Session) SaveScreenshot(ctx context.Context, path string) error {
	buf, err := s.Screenshot(ctx)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return resilience.WrapError(resilience.KindGeneric, "browser.screenshot", err)
	}
	s.logger.Info("Screenshot saved", zap.String("path", path))
	return nil
}

// Close tears down the tab and the browser process.
func (s *Session) Close() error {
	s.logger.Info("Closing browser session")
	if s.tabCancel != nil {
		s.tabCancel()
	}
	if s.allocatorCancel != nil {
		s.allocatorCancel()
		<-s.allocatorCtx.Done()
	}
	return nil
}

// scrollScript builds the window scroll expression for a direction keyword.
func scrollScript(direction string) string {
	switch direction {
	case "up":
		return "window.scrollBy(0, -window.innerHeight);"
	case "top":
		return "window.scrollTo(0, 0);"
	case "bottom":
		return "window.scrollTo(0, document.body.scrollHeight);"
	default:
		return "window.scrollBy(0, window.innerHeight);"
	}
}

// combineContext derives a context from parent that is also canceled when
// secondary is done. Needed because the CDP target rides on the parent.
func combineContext(parent, secondary context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-secondary.Done():
			cancel()
		case <-combined.Done():
		}
	}()
	return combined, cancel
}
