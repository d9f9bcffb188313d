package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/CharbelDaher34/jarvis/internal/resolver"
)

func TestLocatorExpr_XPathHandle(t *testing.T) {
	h := resolver.Handle{Selector: `//button[text()="Login"]`, ByXPath: true}
	expr := locatorExpr(h)
	assert.Contains(t, expr, "document.evaluate")
	assert.Contains(t, expr, `\"Login\"`)
	assert.Contains(t, expr, "FIRST_ORDERED_NODE_TYPE")
}

func TestLocatorExpr_CSSHandle(t *testing.T) {
	h := resolver.Handle{Selector: `[aria-label="Search"]`}
	expr := locatorExpr(h)
	assert.Contains(t, expr, "document.querySelector")
	assert.Contains(t, expr, `aria-label`)
}

func TestActionableScript_ChecksVisibilityAndState(t *testing.T) {
	script := actionableScript(resolver.Handle{Selector: "#submit"})
	assert.Contains(t, script, "el.disabled")
	assert.Contains(t, script, "getComputedStyle")
	assert.Contains(t, script, "getBoundingClientRect")
}

func TestHighlightScript_RestoresOutline(t *testing.T) {
	script := highlightScript(resolver.Handle{Selector: "#submit"})
	assert.Contains(t, script, "el.style.outline")
	assert.Contains(t, script, "setTimeout")
}
