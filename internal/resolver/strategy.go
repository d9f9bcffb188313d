// File: internal/resolver/strategy.go
// Description: The strategy catalog. Each strategy is one named technique for
// turning a target description into a page query; the engine runs them in a
// fixed per-action order until one produces an actionable handle.

package resolver

import (
	"context"
	"fmt"
	"strings"
)

// ActionKind is the interaction the caller ultimately wants to perform with
// the resolved element. The catalog order differs per kind.
type ActionKind string

const (
	ActionClick  ActionKind = "click"
	ActionType   ActionKind = "type"
	ActionSelect ActionKind = "select"
)

// StrategyKind classifies the locating technique a strategy uses.
type StrategyKind string

const (
	KindStructural  StrategyKind = "structural"
	KindExactText   StrategyKind = "exact_text"
	KindPartialText StrategyKind = "partial_text"
	KindRole        StrategyKind = "role"
	KindAttribute   StrategyKind = "attribute"
	KindContainment StrategyKind = "containment"
)

// Handle is an actionable reference to a page element. The driver guarantees
// that re-targeting by Selector hits the same element it matched, for as long
// as the page has not navigated.
type Handle struct {
	Selector    string
	ByXPath     bool
	Description string
}

// Query is a single candidate lookup issued to the driver.
type Query struct {
	Kind     StrategyKind
	Selector string
	ByXPath  bool
}

// Driver is the page collaborator the resolver searches through. It may be
// flaky; implementations map their failures into the resilience taxonomy.
// Resolution itself is read-only: only Act and Reveal mutate page state.
type Driver interface {
	FindCandidates(ctx context.Context, q Query) ([]Handle, error)
	IsActionable(ctx context.Context, h Handle) (bool, error)
	Act(ctx context.Context, h Handle, action ActionKind, value string) error
	Reveal(ctx context.Context, h Handle) error
}

// Strategy is one registered locating technique. Implementations are
// immutable once registered.
type Strategy interface {
	Name() string
	Kind() StrategyKind
	Attempt(ctx context.Context, d Driver, target string) (Handle, error)
}

// queryStrategy is the standard strategy shape: build a query from the
// target, ask the driver for candidates, return the first actionable one.
type queryStrategy struct {
	name  string
	kind  StrategyKind
	build func(target string) Query
}

func (s *queryStrategy) Name() string       { return s.name }
func (s *queryStrategy) Kind() StrategyKind { return s.kind }

func (s *queryStrategy) Attempt(ctx context.Context, d Driver, target string) (Handle, error) {
	candidates, err := d.FindCandidates(ctx, s.build(target))
	if err != nil {
		return Handle{}, fmt.Errorf("strategy %q query failed: %w", s.name, err)
	}
	for _, c := range candidates {
		ok, err := d.IsActionable(ctx, c)
		if err != nil {
			return Handle{}, fmt.Errorf("strategy %q actionability check failed: %w", s.name, err)
		}
		if ok {
			return c, nil
		}
	}
	return Handle{}, fmt.Errorf("strategy %q matched no actionable element for %q", s.name, target)
}

// attributeProbeOrder is the fixed order of generic attribute probes run
// after the action-specific strategies.
var attributeProbeOrder = []string{"aria-label", "title", "alt", "placeholder"}

// Catalog holds the ordered strategy lists, one per action kind. The
// structural strategy is kept separate: it is only consulted when the target
// already looks like a selector, and then always first.
type Catalog struct {
	structural Strategy
	byAction   map[ActionKind][]Strategy
}

// NewCatalog builds the default catalog.
//
// Ordering rationale: cheapest and least false-positive-prone first. Exact
// text beats partial text, semantic role and placeholder lookups beat raw
// attribute probes, and bare substring containment runs dead last because it
// is the most likely to match an unintended element.
func NewCatalog() *Catalog {
	common := func() []Strategy {
		return []Strategy{
			&queryStrategy{name: "exact text", kind: KindExactText, build: exactTextQuery},
			&queryStrategy{name: "partial text", kind: KindPartialText, build: partialTextQuery},
		}
	}
	probes := func() []Strategy {
		out := make([]Strategy, 0, len(attributeProbeOrder)+1)
		for _, attr := range attributeProbeOrder {
			a := attr
			out = append(out, &queryStrategy{
				name: a + " attribute",
				kind: KindAttribute,
				build: func(target string) Query {
					return Query{Kind: KindAttribute, Selector: fmt.Sprintf(`[%s=%s]`, a, cssString(target))}
				},
			})
		}
		out = append(out, &queryStrategy{name: "text containment", kind: KindContainment, build: containmentQuery})
		return out
	}

	click := append(common(),
		&queryStrategy{name: "button role", kind: KindRole, build: roleQuery("button")},
		&queryStrategy{name: "link role", kind: KindRole, build: roleQuery("link")},
	)
	click = append(click, probes()...)

	typing := append(common(),
		&queryStrategy{name: "input placeholder", kind: KindAttribute, build: inputPlaceholderQuery},
	)
	typing = append(typing, probes()...)

	selecting := append(common(), probes()...)

	return &Catalog{
		structural: &queryStrategy{
			name: "css selector",
			kind: KindStructural,
			build: func(target string) Query {
				return Query{Kind: KindStructural, Selector: target}
			},
		},
		byAction: map[ActionKind][]Strategy{
			ActionClick:  click,
			ActionType:   typing,
			ActionSelect: selecting,
		},
	}
}

// Register appends a strategy to the catalog for the given action kinds.
// New techniques are added here, never by editing engine call sites.
func (c *Catalog) Register(s Strategy, actions ...ActionKind) {
	for _, a := range actions {
		c.byAction[a] = append(c.byAction[a], s)
	}
}

// For returns the ordered strategy chain for the target and action. A
// selector-looking target gets the structural strategy prepended.
func (c *Catalog) For(target string, action ActionKind) []Strategy {
	base := c.byAction[action]
	if !LooksLikeSelector(target) {
		return base
	}
	chain := make([]Strategy, 0, len(base)+1)
	chain = append(chain, c.structural)
	return append(chain, base...)
}

// Size reports the chain length for a target/action pair.
func (c *Catalog) Size(target string, action ActionKind) int {
	return len(c.For(target, action))
}

// LooksLikeSelector reports whether the target already reads as a structural
// CSS selector rather than human-facing text.
func LooksLikeSelector(target string) bool {
	return strings.ContainsAny(target, ".#[]>~+:")
}

// -- Query builders --

func exactTextQuery(target string) Query {
	lit := xpathString(target)
	return Query{
		Kind:    KindExactText,
		ByXPath: true,
		Selector: fmt.Sprintf(`//*[normalize-space(text())=%s]|//input[@value=%s]|//button[normalize-space(.)=%s]`,
			lit, lit, lit),
	}
}

func partialTextQuery(target string) Query {
	lit := xpathString(target)
	return Query{
		Kind:     KindPartialText,
		ByXPath:  true,
		Selector: fmt.Sprintf(`//*[contains(normalize-space(text()),%s)]`, lit),
	}
}

func roleQuery(role string) func(string) Query {
	tag := map[string]string{"button": "button", "link": "a"}[role]
	return func(target string) Query {
		lit := xpathString(target)
		return Query{
			Kind:    KindRole,
			ByXPath: true,
			Selector: fmt.Sprintf(`//%s[contains(normalize-space(.),%s)]|//*[@role=%s][contains(normalize-space(.),%s)]`,
				tag, lit, xpathString(role), lit),
		}
	}
}

func inputPlaceholderQuery(target string) Query {
	lit := cssString(target)
	return Query{
		Kind:     KindAttribute,
		Selector: fmt.Sprintf(`input[placeholder=%s], textarea[placeholder=%s]`, lit, lit),
	}
}

func containmentQuery(target string) Query {
	return Query{
		Kind:     KindContainment,
		ByXPath:  true,
		Selector: fmt.Sprintf(`//*[contains(text(),%s)]`, xpathString(target)),
	}
}

// xpathString renders s as an XPath string literal. XPath 1.0 has no escape
// sequences, so values containing both quote styles need concat().
func xpathString(s string) string {
	if !strings.Contains(s, `'`) {
		return `'` + s + `'`
	}
	if !strings.Contains(s, `"`) {
		return `"` + s + `"`
	}
	parts := strings.Split(s, `'`)
	quoted := make([]string, 0, len(parts)*2)
	for i, p := range parts {
		if i > 0 {
			quoted = append(quoted, `"'"`)
		}
		if p != "" {
			quoted = append(quoted, `'`+p+`'`)
		}
	}
	return "concat(" + strings.Join(quoted, ",") + ")"
}

// cssString renders s as a double-quoted CSS attribute value.
func cssString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
