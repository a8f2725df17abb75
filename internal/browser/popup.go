// File: internal/browser/popup.go
package browser

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// sweepState is the popup loop's explicit state. Keeping the machine flat
// makes the three exit conditions (pass exhaustion, early settle, wall
// clock) auditable in one place.
type sweepState int

const (
	stateScanning sweepState = iota
	stateDismissing
	stateSettling
	stateDone
)

func (s sweepState) String() string {
	switch s {
	case stateDismissing:
		return "dismissing"
	case stateSettling:
		return "settling"
	case stateDone:
		return "done"
	default:
		return "scanning"
	}
}

// closeControlSelector matches elements that look like a popup's close
// button, by class, id or title.
const closeControlSelector = `[class*="close"], [class*="fechar"], [class*="dismiss"], ` +
	`[id*="close"], [id*="fechar"], [title*="lose"], [title*="echar"], [aria-label*="lose"]`

// Sweeper clears transient popups from the page. Registered entries are
// scanned in order; dismissal goes through the interactor's layered click.
// The whole loop is bounded both by empty scan passes and by wall-clock
// time, so no page can stall the workflow indefinitely.
type Sweeper struct {
	driver          Driver
	resolver        *Resolver
	interactor      *Interactor
	entries         []PopupEntry
	budget          RetryBudget
	perEntryTimeout time.Duration
	settleDelay     time.Duration
	logger          *zap.Logger
}

// NewSweeper builds a sweeper over the registered popup table. The budget's
// MaxAttempts is the number of consecutive empty scan passes tolerated and
// MaxElapsed is the hard wall-clock bound.
func NewSweeper(driver Driver, resolver *Resolver, interactor *Interactor, entries []PopupEntry, budget RetryBudget, perEntryTimeout, settleDelay time.Duration, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		driver:          driver,
		resolver:        resolver,
		interactor:      interactor,
		entries:         entries,
		budget:          budget,
		perEntryTimeout: perEntryTimeout,
		settleDelay:     settleDelay,
		logger:          logger.Named("popups"),
	}
}

// Run drives the state machine until Done and reports how many popups were
// dismissed.
func (s *Sweeper) Run(ctx context.Context) int {
	deadline := time.Now().Add(s.budget.MaxElapsed)
	state := stateScanning

	var (
		next            int // entry index within the current pass
		dismissedInPass int
		remainingPasses = s.budget.MaxAttempts
		total           int
		pending         Element
		pendingEntry    PopupEntry
	)

	for state != stateDone {
		if ctx.Err() != nil {
			break
		}
		if time.Now().After(deadline) {
			s.logger.Warn("Popup sweep hit its time budget.",
				zap.Duration("budget", s.budget.MaxElapsed), zap.Stringer("state", state))
			break
		}

		switch state {
		case stateScanning:
			if next >= len(s.entries) {
				// Pass complete.
				if dismissedInPass > 0 {
					state = stateSettling
					break
				}
				remainingPasses--
				if remainingPasses <= 0 {
					state = stateDone
					break
				}
				next = 0
				break
			}
			entry := s.entries[next]
			el := s.resolver.Resolve(ctx, entry.Locator, Clickable, s.perEntryTimeout)
			if el == nil {
				next++
				break
			}
			pending, pendingEntry = el, entry
			state = stateDismissing

		case stateDismissing:
			if s.dismiss(ctx, pending, pendingEntry) {
				dismissedInPass++
				total++
				s.logger.Info("Popup dismissed.", zap.String("popup", pendingEntry.Label))
			} else {
				s.logger.Warn("Popup resisted dismissal.", zap.String("popup", pendingEntry.Label))
			}
			pending = nil
			next++
			state = stateScanning

		case stateSettling:
			if !sleepCtx(ctx, s.settleDelay) {
				state = stateDone
				break
			}
			if !s.anyVisible(ctx) {
				s.logger.Debug("No popups remain visible, settling early.")
				state = stateDone
				break
			}
			next, dismissedInPass = 0, 0
			state = stateScanning
		}
	}

	s.logger.Debug("Popup sweep finished.", zap.Int("dismissed", total))
	return total
}

// dismiss tries the interactor's layered click first, then a bare scripted
// click, then a click on the document body to drop focus off the popup.
func (s *Sweeper) dismiss(ctx context.Context, el Element, entry PopupEntry) bool {
	if s.interactor.Click(ctx, el, entry.Locator, entry.Label, ClickOptions{}) {
		return true
	}
	if err := el.Call(ctx, scriptClick, nil); err == nil {
		return true
	}
	if err := s.driver.Evaluate(ctx, scriptClickBody, nil); err == nil {
		s.logger.Debug("Dismissed by body click.", zap.String("popup", entry.Label))
		return true
	}
	return false
}

// anyVisible reports whether any registered popup is still displayed.
func (s *Sweeper) anyVisible(ctx context.Context) bool {
	for _, entry := range s.entries {
		for _, el := range s.resolver.FindAll(ctx, entry.Locator) {
			if displayed, err := el.Displayed(ctx); err == nil && displayed {
				return true
			}
		}
	}
	return false
}

// DismissGeneric handles a popup no registered locator describes. It works
// through escalating steps, stopping as soon as the target stops being
// visible: a close-like control near the popup, the popup node itself via
// click then forced removal, and finally a sweep of overlay containers.
func (s *Sweeper) DismissGeneric(ctx context.Context, loc Locator, label string) bool {
	log := s.logger.With(zap.String("popup", label))

	gone := func() bool {
		el := s.resolver.Resolve(ctx, loc, Present, s.perEntryTimeout)
		if el == nil {
			return true
		}
		displayed, err := el.Displayed(ctx)
		return err != nil || !displayed
	}

	if gone() {
		return true
	}

	for _, el := range s.resolver.FindAll(ctx, NewLocator(closeControlSelector)) {
		displayed, err := el.Displayed(ctx)
		if err != nil || !displayed {
			continue
		}
		if enabled, err := el.Enabled(ctx); err != nil || !enabled {
			continue
		}
		if err := el.Call(ctx, scriptClick, nil); err != nil {
			continue
		}
		if gone() {
			log.Debug("Dismissed via close control.")
			return true
		}
	}

	if el := s.resolver.Resolve(ctx, loc, Present, s.perEntryTimeout); el != nil {
		if err := el.Call(ctx, scriptClick, nil); err == nil && gone() {
			log.Debug("Dismissed by clicking the popup itself.")
			return true
		}
		if err := el.Call(ctx, scriptRemoveNode, nil); err == nil && gone() {
			log.Debug("Dismissed by removing the popup node.")
			return true
		}
	}

	var removed int
	if err := s.driver.Evaluate(ctx, scriptOverlaySweep, &removed); err == nil && removed > 0 {
		log.Debug("Overlay sweep removed containers.", zap.Int("removed", removed))
	}
	return gone()
}
