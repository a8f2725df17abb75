// File: internal/browser/interactor.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
)

const defaultKeystrokeDelay = 50 * time.Millisecond

// Interactor performs clicks and field fills with layered fallbacks. Every
// failure short of a terminal one is absorbed into a boolean result; the
// caller decides what a false is worth.
type Interactor struct {
	resolver       *Resolver
	budget         RetryBudget
	retryInterval  time.Duration
	keystrokeDelay time.Duration
	logger         *zap.Logger
}

// ClickOptions tunes a single click.
type ClickOptions struct {
	// UseScript skips the native pointer path entirely.
	UseScript bool
	// NoScroll skips the best-effort scroll into view.
	NoScroll bool
}

// NewInteractor builds an interactor. The budget bounds every retry loop.
func NewInteractor(resolver *Resolver, budget RetryBudget, retryInterval time.Duration, logger *zap.Logger) *Interactor {
	return &Interactor{
		resolver:       resolver,
		budget:         budget,
		retryInterval:  retryInterval,
		keystrokeDelay: defaultKeystrokeDelay,
		logger:         logger.Named("interactor"),
	}
}

// Click attempts a layered click on the element. A stale handle is
// recovered through loc first. The first attempt neutralizes pointer-event
// interception and clicks natively; an intercepted native click falls back
// to a synthesized mouse event sequence; later attempts click via script. A
// handle that dies mid-loop aborts instead of retrying against a dead
// reference.
func (i *Interactor) Click(ctx context.Context, el Element, loc Locator, label string, opts ClickOptions) bool {
	log := i.logger.With(zap.String("label", label))

	if !i.resolver.IsLive(ctx, el) {
		el = i.resolver.EnsureValid(ctx, loc, el, label, 0)
		if el == nil {
			log.Warn("Click aborted, element could not be recovered.")
			return false
		}
	}

	if !opts.NoScroll {
		if err := el.Call(ctx, scriptScrollCenter, nil); err != nil {
			log.Debug("Scroll into view failed, clicking anyway.", zap.Error(err))
		}
	}

	for attempt := 1; attempt <= i.budget.MaxAttempts; attempt++ {
		var err error

		if opts.UseScript || attempt > 1 {
			if err = el.Call(ctx, scriptClick, nil); err == nil {
				log.Debug("Clicked via script.", zap.Int("attempt", attempt))
				return true
			}
		} else {
			if nErr := el.Call(ctx, scriptNeutralizeOverlays, nil); nErr != nil {
				log.Debug("Overlay neutralization failed.", zap.Error(nErr))
			}
			if err = el.Click(ctx); err == nil {
				log.Debug("Clicked natively.", zap.Int("attempt", attempt))
				return true
			}
			if IsIntercepted(err) {
				if dErr := el.Call(ctx, scriptDispatchClick, nil); dErr == nil {
					log.Debug("Clicked via dispatched mouse events.", zap.Int("attempt", attempt))
					return true
				} else {
					err = dErr
				}
			}
		}

		switch {
		case IsStale(err):
			if !i.resolver.IsLive(ctx, el) {
				log.Warn("Element died mid-click, aborting retries.")
				return false
			}
			log.Debug("Transient staleness, retrying.", zap.Int("attempt", attempt))
		case IsIntercepted(err):
			log.Debug("Click still intercepted, retrying via script.", zap.Int("attempt", attempt))
		default:
			log.Warn("Click failed with an unrecoverable error.", zap.Error(err))
			return false
		}

		if attempt < i.budget.MaxAttempts && !sleepCtx(ctx, i.retryInterval) {
			return false
		}
	}

	log.Warn("Click attempts exhausted.", zap.Int("attempts", i.budget.MaxAttempts))
	return false
}

// WaitAndClick resolves the locator in Clickable mode and clicks it.
func (i *Interactor) WaitAndClick(ctx context.Context, loc Locator, label string, timeout time.Duration, useScript bool) bool {
	el := i.resolver.Resolve(ctx, loc, Clickable, timeout)
	if el == nil {
		return false
	}
	return i.Click(ctx, el, loc, label, ClickOptions{UseScript: useScript})
}

// Fill types text into the field and verifies the resulting value, falling
// back to scripted assignment with input/change events when keystrokes do
// not stick. It returns true only when the final value matches exactly. The
// error return is reserved for the terminal case where the field cannot be
// resolved at all, even after recovery.
func (i *Interactor) Fill(ctx context.Context, loc Locator, text string, clear bool) (bool, error) {
	log := i.logger.With(zap.Stringer("locator", loc))

	el := i.resolver.Resolve(ctx, loc, Visible, 0)
	if el == nil || !i.resolver.IsLive(ctx, el) {
		el = i.resolver.EnsureValid(ctx, loc, el, loc.Selector(), 0)
	}
	if el == nil {
		return false, fmt.Errorf("%w: field %s could not be resolved", ErrNotFound, loc)
	}

	if enabled, err := el.Enabled(ctx); err != nil || !enabled {
		var confirmed bool
		if err := el.Call(ctx, scriptForceEnable, &confirmed); err != nil || !confirmed {
			log.Warn("Field is disabled and could not be force-enabled.")
			return false, nil
		}
		log.Debug("Force-enabled a disabled field.")
	}

	// Best effort, the verification loop below is what matters.
	if err := el.Call(ctx, scriptScrollCenter, nil); err == nil {
		_ = el.Call(ctx, scriptFocus, nil)
	}

	if clear {
		if err := el.Clear(ctx); err != nil {
			log.Debug("Native clear failed, clearing via script.", zap.Error(err))
			if err := el.Call(ctx, scriptClearValue, nil); err != nil {
				log.Debug("Scripted clear failed.", zap.Error(err))
			}
		}
	}

	for attempt := 1; attempt <= i.budget.MaxAttempts; attempt++ {
		if attempt > 1 {
			_ = el.Call(ctx, scriptClearValue, nil)
		}
		if err := el.SendKeys(ctx, text); err != nil {
			log.Debug("Keystroke entry failed.", zap.Int("attempt", attempt), zap.Error(err))
		}
		if i.fieldValue(ctx, el) == text {
			return true, nil
		}

		if err := el.Call(ctx, scriptSetValueAndNotify, nil, text); err != nil {
			log.Debug("Scripted value assignment failed.", zap.Int("attempt", attempt), zap.Error(err))
		}
		if i.fieldValue(ctx, el) == text {
			log.Debug("Value set via script fallback.", zap.Int("attempt", attempt))
			return true, nil
		}

		if attempt < i.budget.MaxAttempts && !sleepCtx(ctx, i.retryInterval) {
			return false, nil
		}
	}

	log.Warn("Fill attempts exhausted, value never verified.", zap.String("selector", loc.Selector()))
	return false, nil
}

// FillMasked fills a field guarded by an input-mask library: the field's own
// key/input listeners are suppressed first, keystrokes go in one character
// at a time, and verification is by substring since masks insert
// separators. When keystrokes fail to stick the value is assigned via
// script with input/change/blur events, and that fallback is taken as
// success without re-verification; mask libraries rewrite the value freely,
// so an exact check would reject good fills.
func (i *Interactor) FillMasked(ctx context.Context, loc Locator, text, mask string) bool {
	log := i.logger.With(zap.Stringer("locator", loc))

	el := i.resolver.Resolve(ctx, loc, Visible, 0)
	if el == nil || !i.resolver.IsLive(ctx, el) {
		el = i.resolver.EnsureValid(ctx, loc, el, loc.Selector(), 0)
	}
	if el == nil {
		log.Warn("Masked fill aborted, field could not be resolved.")
		return false
	}

	if err := el.Call(ctx, scriptSuppressListeners, nil); err != nil {
		log.Debug("Listener suppression failed.", zap.Error(err))
	}

	payload := text
	if maskIsNumeric(mask) {
		payload = stripNonDigits(text)
	}

	for _, ch := range payload {
		if err := el.SendKeys(ctx, string(ch)); err != nil {
			log.Debug("Keystroke failed mid-entry.", zap.Error(err))
			break
		}
		if !sleepCtx(ctx, i.keystrokeDelay) {
			return false
		}
	}

	value := i.fieldValue(ctx, el)
	if strings.Contains(value, payload) ||
		(payload != "" && strings.Contains(stripNonDigits(value), stripNonDigits(payload))) {
		return true
	}

	if err := el.Call(ctx, scriptSetValueAndBlur, nil, payload); err != nil {
		log.Warn("Masked fill fallback failed.", zap.Error(err))
		return false
	}
	log.Debug("Masked value assigned via script fallback.")
	return true
}

func (i *Interactor) fieldValue(ctx context.Context, el Element) string {
	var value string
	if err := el.Call(ctx, scriptValue, &value); err != nil {
		return ""
	}
	return value
}

// maskIsNumeric treats any letter-free mask pattern as numeric-only.
func maskIsNumeric(mask string) bool {
	if mask == "" {
		return false
	}
	return strings.IndexFunc(mask, unicode.IsLetter) < 0
}

func stripNonDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// sleepCtx waits for the duration unless the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
