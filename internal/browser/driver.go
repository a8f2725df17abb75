// File: internal/browser/driver.go
package browser

import (
	"context"
	"time"
)

// Element is an opaque handle bound to one DOM node at resolution time. It
// is not comparable across navigations; validity is only knowable by probing
// (any operation on a detached node fails with a stale error).
type Element interface {
	// Enabled reports whether the node is not disabled. The cheapest probe;
	// the resolver uses it for liveness checks.
	Enabled(ctx context.Context) (bool, error)
	// Displayed reports whether the node is rendered with a nonzero box and
	// not hidden by styles.
	Displayed(ctx context.Context) (bool, error)
	// Attribute returns the named attribute, empty when absent.
	Attribute(ctx context.Context, name string) (string, error)
	// Text returns the trimmed visible text content.
	Text(ctx context.Context) (string, error)
	// TagName returns the lowercase tag name.
	TagName(ctx context.Context) (string, error)
	// Click performs a native pointer click at the node center, scrolling it
	// into view first. Returns ErrIntercepted when another element covers
	// the center point.
	Click(ctx context.Context) error
	// SendKeys focuses the node and types the text as key events.
	SendKeys(ctx context.Context, text string) error
	// Clear empties the field through native-style selection and deletion.
	Clear(ctx context.Context) error
	// Call invokes a JavaScript function with the node bound as `this`,
	// decoding the return value into res when res is non-nil.
	Call(ctx context.Context, fn string, res interface{}, args ...interface{}) error
}

// Driver is the boundary to the live page. The chromedp Session implements
// it; tests substitute fakes.
type Driver interface {
	// Navigate loads the URL and waits for the document to be ready.
	Navigate(ctx context.Context, url string) error
	// WaitFor polls for an element satisfying the readiness mode, returning
	// ErrNotFound when the timeout elapses.
	WaitFor(ctx context.Context, loc Locator, mode ReadinessMode, timeout time.Duration) (Element, error)
	// Query returns all current matches, possibly none.
	Query(ctx context.Context, loc Locator) ([]Element, error)
	// Evaluate runs a script in the page, decoding the result into res when
	// res is non-nil.
	Evaluate(ctx context.Context, script string, res interface{}) error
}
