// File: internal/browser/locator.go

// Package browser contains the resilient element-interaction layer: locator
// resolution with staleness recovery, layered click and fill strategies, and
// the bounded popup-dismissal loop, all driving a headless Chrome session
// over the DevTools protocol.
package browser

import (
	"fmt"
	"strings"
	"time"
)

// Strategy selects how a Locator's selector string is interpreted.
type Strategy int

const (
	// ByAttribute matches with a CSS selector.
	ByAttribute Strategy = iota
	// ByPathQuery matches with an XPath expression.
	ByPathQuery
)

func (s Strategy) String() string {
	if s == ByPathQuery {
		return "xpath"
	}
	return "css"
}

// Locator is an immutable descriptor resolved against the live document.
// Most locators are built once from configuration and reused across polling
// cycles.
type Locator struct {
	strategy Strategy
	selector string
}

// NewLocator classifies the selector: expressions beginning with "//" are
// path queries, everything else is a CSS selector.
func NewLocator(selector string) Locator {
	strategy := ByAttribute
	if strings.HasPrefix(selector, "//") {
		strategy = ByPathQuery
	}
	return Locator{strategy: strategy, selector: selector}
}

// Strategy returns the selection strategy.
func (l Locator) Strategy() Strategy { return l.strategy }

// Selector returns the raw selector string.
func (l Locator) Selector() string { return l.selector }

// IsZero reports whether the locator was never populated.
func (l Locator) IsZero() bool { return l.selector == "" }

func (l Locator) String() string {
	return fmt.Sprintf("%s(%s)", l.strategy, l.selector)
}

// ReadinessMode is the condition an element must satisfy before it is
// returned by a resolve. Each mode is a strict superset of the previous.
type ReadinessMode int

const (
	// Present means attached to the DOM.
	Present ReadinessMode = iota
	// Visible means present, rendered with a nonzero box and not hidden.
	Visible
	// Clickable means visible and enabled.
	Clickable
)

func (m ReadinessMode) String() string {
	switch m {
	case Visible:
		return "visible"
	case Clickable:
		return "clickable"
	default:
		return "present"
	}
}

// PopupEntry pairs a popup locator with a human-readable label for logs.
// Entries are held in a slice so iteration follows registration order.
type PopupEntry struct {
	Locator Locator
	Label   string
}

// RetryBudget bounds a retry loop. The loop exits on whichever limit trips
// first; a zero field means that limit is not enforced.
type RetryBudget struct {
	MaxAttempts int
	MaxElapsed  time.Duration
}
