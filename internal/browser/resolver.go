// File: internal/browser/resolver.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Resolver locates elements under a readiness mode, detects stale handles
// and recovers them, by the original locator first and heuristically as a
// last resort. Failures are absorbed into nil results with a logged
// warning; the resolver never panics or blocks past its timeout.
type Resolver struct {
	driver         Driver
	defaultTimeout time.Duration
	logger         *zap.Logger
}

// NewResolver builds a resolver with the given default wait timeout.
func NewResolver(driver Driver, defaultTimeout time.Duration, logger *zap.Logger) *Resolver {
	return &Resolver{
		driver:         driver,
		defaultTimeout: defaultTimeout,
		logger:         logger.Named("resolver"),
	}
}

// Resolve waits for an element satisfying the mode. A zero timeout means
// the resolver's default. Returns nil when nothing matched in time; the
// common miss is not an error.
func (r *Resolver) Resolve(ctx context.Context, loc Locator, mode ReadinessMode, timeout time.Duration) Element {
	if timeout <= 0 {
		timeout = r.defaultTimeout
	}
	el, err := r.driver.WaitFor(ctx, loc, mode, timeout)
	if err != nil {
		r.logger.Warn("Element did not resolve.",
			zap.Stringer("locator", loc),
			zap.Stringer("mode", mode),
			zap.Duration("timeout", timeout))
		return nil
	}
	return el
}

// FindAll returns all current matches. Driver errors are absorbed into an
// empty result.
func (r *Resolver) FindAll(ctx context.Context, loc Locator) []Element {
	elements, err := r.driver.Query(ctx, loc)
	if err != nil {
		r.logger.Warn("Query failed.", zap.Stringer("locator", loc), zap.Error(err))
		return nil
	}
	if len(elements) == 0 {
		r.logger.Debug("Query matched nothing.", zap.Stringer("locator", loc))
	}
	return elements
}

// IsLive probes the handle with a cheap read-only check. Any error means
// the node is gone; nothing is ever mutated or propagated.
func (r *Resolver) IsLive(ctx context.Context, el Element) bool {
	if el == nil {
		return false
	}
	_, err := el.Enabled(ctx)
	return err == nil
}

// EnsureValid returns the handle unchanged when it is still live. A dead
// handle is re-resolved by the original locator under progressively
// stricter modes, and failing that, re-identified heuristically. Returns
// nil when nothing could be recovered.
func (r *Resolver) EnsureValid(ctx context.Context, loc Locator, el Element, label string, timeout time.Duration) Element {
	if r.IsLive(ctx, el) {
		return el
	}

	r.logger.Debug("Handle is stale, attempting recovery.",
		zap.String("label", label), zap.Stringer("locator", loc))

	for _, mode := range []ReadinessMode{Present, Visible, Clickable} {
		if recovered := r.Resolve(ctx, loc, mode, timeout); recovered != nil && r.IsLive(ctx, recovered) {
			r.logger.Debug("Recovered by re-resolving.",
				zap.String("label", label), zap.Stringer("mode", mode))
			return recovered
		}
	}

	if similar := r.FindSimilar(ctx, el, label); similar != nil {
		r.logger.Debug("Recovered a similar element.", zap.String("label", label))
		return similar
	}

	r.logger.Warn("Could not recover stale element.",
		zap.String("label", label), zap.Stringer("locator", loc))
	return nil
}

// FindSimilar re-identifies a node the original locator can no longer find,
// typically after the page replaced it with a structurally similar one.
// Heuristics run in a fixed order and the first displayed-and-enabled
// candidate wins: id attribute, then each class token, then visible text,
// then tag plus type/name attributes.
func (r *Resolver) FindSimilar(ctx context.Context, original Element, label string) Element {
	if original == nil {
		return nil
	}

	if id, err := original.Attribute(ctx, "id"); err == nil && id != "" {
		loc := NewLocator(fmt.Sprintf(`[id=%q]`, id))
		if el := r.firstUsable(ctx, loc); el != nil {
			r.logger.Debug("Similar element found by id.", zap.String("label", label), zap.String("id", id))
			return el
		}
	}

	if class, err := original.Attribute(ctx, "class"); err == nil && class != "" {
		for _, token := range strings.Fields(class) {
			if el := r.firstUsable(ctx, NewLocator("."+token)); el != nil {
				r.logger.Debug("Similar element found by class token.",
					zap.String("label", label), zap.String("class", token))
				return el
			}
		}
	}

	if text, err := original.Text(ctx); err == nil && text != "" {
		loc := NewLocator(`//*[contains(text(), "` + text + `")]`)
		if el := r.firstUsable(ctx, loc); el != nil {
			r.logger.Debug("Similar element found by text.", zap.String("label", label))
			return el
		}
	}

	tag, err := original.TagName(ctx)
	if err == nil && tag != "" {
		typ, _ := original.Attribute(ctx, "type")
		name, _ := original.Attribute(ctx, "name")
		if typ != "" || name != "" {
			selector := tag
			if typ != "" {
				selector += fmt.Sprintf(`[type=%q]`, typ)
			}
			if name != "" {
				selector += fmt.Sprintf(`[name=%q]`, name)
			}
			if el := r.firstUsable(ctx, NewLocator(selector)); el != nil {
				r.logger.Debug("Similar element found by tag and attributes.",
					zap.String("label", label), zap.String("selector", selector))
				return el
			}
		}
	}

	return nil
}

// firstUsable returns the first match that is displayed and enabled.
func (r *Resolver) firstUsable(ctx context.Context, loc Locator) Element {
	elements, err := r.driver.Query(ctx, loc)
	if err != nil {
		return nil
	}
	for _, el := range elements {
		displayed, err := el.Displayed(ctx)
		if err != nil || !displayed {
			continue
		}
		enabled, err := el.Enabled(ctx)
		if err != nil || !enabled {
			continue
		}
		return el
	}
	return nil
}
