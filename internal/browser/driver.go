// internal/browser/driver.go
package browser

import (
	"context"
	"fmt"
	"strconv"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"github.com/CharbelDaher34/jarvis/internal/resilience"
	"github.com/CharbelDaher34/jarvis/internal/resolver"
)

// Driver adapts the chromedp session to the element resolution contract.
// Candidates are normalized to full XPath handles so later actions address
// the exact node a query matched.
type Driver struct {
	session *Session
}

// NewDriver wraps the session.
func NewDriver(session *Session) *Driver {
	return &Driver{session: session}
}

var _ resolver.Driver = (*Driver)(nil)

// FindCandidates runs the query against the live DOM without waiting for
// matches to appear.
func (d *Driver) FindCandidates(ctx context.Context, q resolver.Query) ([]resolver.Handle, error) {
	var nodes []*cdp.Node
	opt := chromedp.ByQueryAll
	if q.ByXPath {
		opt = chromedp.BySearch
	}

	err := d.session.run(ctx, "driver.find_candidates",
		chromedp.Nodes(q.Selector, &nodes, opt, chromedp.AtLeast(0)))
	if err != nil {
		return nil, err
	}

	handles := make([]resolver.Handle, 0, len(nodes))
	for _, node := range nodes {
		handles = append(handles, resolver.Handle{
			Selector:    node.FullXPath(),
			ByXPath:     true,
			Description: node.LocalName,
		})
	}
	return handles, nil
}

// IsActionable reports whether the element is enabled and has a visible box.
func (d *Driver) IsActionable(ctx context.Context, h resolver.Handle) (bool, error) {
	var actionable bool
	err := d.session.run(ctx, "driver.is_actionable",
		chromedp.Evaluate(actionableScript(h), &actionable))
	if err != nil {
		return false, err
	}
	return actionable, nil
}

// Act performs the interaction on the resolved element.
func (d *Driver) Act(ctx context.Context, h resolver.Handle, action resolver.ActionKind, value string) error {
	opt := queryOption(h)

	switch action {
	case resolver.ActionClick:
		return d.session.run(ctx, "driver.click", chromedp.Click(h.Selector, opt))
	case resolver.ActionType:
		return d.session.run(ctx, "driver.type",
			chromedp.SetValue(h.Selector, "", opt),
			chromedp.SendKeys(h.Selector, value, opt),
		)
	case resolver.ActionSelect:
		return d.session.run(ctx, "driver.select", chromedp.SetValue(h.Selector, value, opt))
	default:
		return resilience.NewError(resilience.KindGeneric, "driver.act", "unsupported action %q", action)
	}
}

// Reveal scrolls the element into view and briefly highlights it. Failures
// here are cosmetic and do not affect resolution.
func (d *Driver) Reveal(ctx context.Context, h resolver.Handle) error {
	return d.session.run(ctx, "driver.reveal",
		chromedp.ScrollIntoView(h.Selector, queryOption(h)),
		chromedp.Evaluate(highlightScript(h), nil),
	)
}

func queryOption(h resolver.Handle) chromedp.QueryOption {
	if h.ByXPath {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// locatorExpr builds the JS expression resolving the handle to an element.
func locatorExpr(h resolver.Handle) string {
	if h.ByXPath {
		return fmt.Sprintf(
			"document.evaluate(%s, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue",
			strconv.Quote(h.Selector))
	}
	return fmt.Sprintf("document.querySelector(%s)", strconv.Quote(h.Selector))
}

func actionableScript(h resolver.Handle) string {
	return fmt.Sprintf(`(() => {
	const el = %s;
	if (!el) return false;
	if (el.disabled) return false;
	const style = window.getComputedStyle(el);
	if (style.display === 'none' || style.visibility === 'hidden') return false;
	const rect = el.getBoundingClientRect();
	return rect.width > 0 && rect.height > 0;
})()`, locatorExpr(h))
}

func highlightScript(h resolver.Handle) string {
	return fmt.Sprintf(`(() => {
	const el = %s;
	if (!el) return;
	const previous = el.style.outline;
	el.style.outline = '2px solid #ff5722';
	setTimeout(() => { el.style.outline = previous; }, 750);
})()`, locatorExpr(h))
}
