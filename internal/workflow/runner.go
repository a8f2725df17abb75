// File: internal/workflow/runner.go

// Package workflow drives the per-site collection run: login, popup sweep,
// reward collection and balance capture, finishing with a consolidated
// report. One failing site never aborts the batch.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mpadilha/redcollect/internal/browser"
	"github.com/mpadilha/redcollect/internal/config"
	"github.com/mpadilha/redcollect/internal/money"
	"github.com/mpadilha/redcollect/internal/notify"
)

// Per-step waits, tuned to how long each page element realistically takes
// to appear rather than to the global element wait.
const (
	loginFieldProbeTimeout = 2 * time.Second
	rewardButtonTimeout    = 5 * time.Second
	blockProbeTimeout      = 2 * time.Second
	prizeProbeTimeout      = 3 * time.Second
	balanceTimeout         = 10 * time.Second
	rewardAttempts         = 3
)

// Navigator loads pages.
type Navigator interface {
	Navigate(ctx context.Context, url string) error
}

// Finder locates page elements under a readiness mode.
type Finder interface {
	Resolve(ctx context.Context, loc browser.Locator, mode browser.ReadinessMode, timeout time.Duration) browser.Element
	FindAll(ctx context.Context, loc browser.Locator) []browser.Element
}

// Actor performs clicks and fills.
type Actor interface {
	Click(ctx context.Context, el browser.Element, loc browser.Locator, label string, opts browser.ClickOptions) bool
	WaitAndClick(ctx context.Context, loc browser.Locator, label string, timeout time.Duration, useScript bool) bool
	Fill(ctx context.Context, loc browser.Locator, text string, clear bool) (bool, error)
}

// PopupSweeper clears transient popups before the workflow touches the page.
type PopupSweeper interface {
	Run(ctx context.Context) int
}

// History persists captured values between runs.
type History interface {
	Save(siteURL, value string) (changed bool, previous string, err error)
}

// Runner executes the collection workflow across all configured sites.
type Runner struct {
	cfg          *config.Config
	history      History
	notifier     notify.Notifier
	logger       *zap.Logger
	loginClassRe *regexp.Regexp
}

// NewRunner builds a runner. The login button class pattern comes
// pre-validated from config, but compilation is still checked here so the
// runner never holds a nil regexp.
func NewRunner(cfg *config.Config, history History, notifier notify.Notifier, logger *zap.Logger) (*Runner, error) {
	re, err := regexp.Compile(cfg.Selector.LoginButtonClass)
	if err != nil {
		return nil, fmt.Errorf("invalid login button class pattern: %w", err)
	}
	return &Runner{
		cfg:          cfg,
		history:      history,
		notifier:     notifier,
		logger:       logger.Named("workflow"),
		loginClassRe: re,
	}, nil
}

// Run starts a browser, walks every configured site and sends the
// consolidated report. The browser profile is torn down no matter how the
// run ends.
func (r *Runner) Run(ctx context.Context) error {
	manager, err := browser.NewManager(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to start browser: %w", err)
	}
	defer manager.Shutdown()

	session, err := manager.NewSession(ctx)
	if err != nil {
		return fmt.Errorf("failed to open browser session: %w", err)
	}
	defer session.Close()

	resolver := browser.NewResolver(session, r.cfg.Timeouts.ElementWait, r.logger)
	interactor := browser.NewInteractor(resolver, browser.RetryBudget{MaxAttempts: 3},
		r.cfg.Timeouts.RetryInterval, r.logger)

	entries := make([]browser.PopupEntry, 0, len(r.cfg.Popups))
	for _, p := range r.cfg.Popups {
		entries = append(entries, browser.PopupEntry{Locator: browser.NewLocator(p.Selector), Label: p.Label})
	}
	sweeper := browser.NewSweeper(session, resolver, interactor, entries,
		browser.RetryBudget{MaxAttempts: 3, MaxElapsed: r.cfg.Timeouts.PopupCheck},
		3*time.Second, 2*time.Second, r.logger)

	return r.processSites(ctx, session, resolver, interactor, sweeper)
}

// processSites visits each site in order, isolating failures per site, and
// delivers the start notification and the final report.
func (r *Runner) processSites(ctx context.Context, nav Navigator, finder Finder, actor Actor, popups PopupSweeper) error {
	r.notify(ctx, "<b>Starting site processing...</b>")

	var report strings.Builder
	report.WriteString("<b>Value Report:</b>\n\n")

	for idx, site := range r.cfg.Sites {
		log := r.logger.With(zap.String("site", site.URL))
		log.Info("Processing site.", zap.Int("position", idx+1), zap.Int("total", len(r.cfg.Sites)))

		value, err := r.processSite(ctx, nav, finder, actor, popups, site)
		if err != nil {
			log.Error("Site processing failed.", zap.Error(err))
			fmt.Fprintf(&report, "<b>Site:</b> %s\n<b>Error:</b> %v\n\n", site.URL, err)
		} else {
			log.Info("Value captured.", zap.String("value", value))
			r.appendValueLine(&report, site.URL, value)
		}

		if idx < len(r.cfg.Sites)-1 && !pause(ctx, r.cfg.Timeouts.RetryInterval) {
			return ctx.Err()
		}
	}

	r.notify(ctx, report.String())
	return ctx.Err()
}

// appendValueLine records one captured value in the report, with the change
// against the stored value when there is one.
func (r *Runner) appendValueLine(report *strings.Builder, siteURL, value string) {
	changed, previous, err := r.history.Save(siteURL, value)
	if err != nil {
		r.logger.Warn("Could not persist captured value.",
			zap.String("site", siteURL), zap.Error(err))
	}

	fmt.Fprintf(report, "<b>Site:</b> %s\n<b>Value:</b> %s\n", siteURL, value)
	switch {
	case err != nil || previous == "":
		// First capture for this site, nothing to compare against.
	case changed:
		fmt.Fprintf(report, "<b>Change:</b> %s\n", money.Delta(previous, value))
	default:
		fmt.Fprintf(report, "<b>Change:</b> %s\n", money.NoChange)
	}
	report.WriteString("\n")
}

// processSite runs the full flow on one site and returns the captured value.
func (r *Runner) processSite(ctx context.Context, nav Navigator, finder Finder, actor Actor, popups PopupSweeper, site config.SiteConfig) (string, error) {
	if err := r.login(ctx, nav, finder, actor, site); err != nil {
		return "", fmt.Errorf("login failed: %w", err)
	}

	if dismissed := popups.Run(ctx); dismissed > 0 {
		r.logger.Info("Cleared popups after login.", zap.Int("dismissed", dismissed))
	}

	if !r.collectReward(ctx, finder, actor) {
		// Collection being blocked or unavailable is routine; the balance
		// capture below is still worth doing.
		r.logger.Warn("Reward was not collected.", zap.String("site", site.URL))
	}

	return r.captureValue(ctx, finder), nil
}

// login opens the site and authenticates. The lobby shows several decorated
// tiles matching the login button selector; the real entry point is the one
// whose class matches the configured pattern. When no tile qualifies the
// credential form may already be on screen, which counts as the same state.
func (r *Runner) login(ctx context.Context, nav Navigator, finder Finder, actor Actor, site config.SiteConfig) error {
	if err := nav.Navigate(ctx, site.URL); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}

	userLoc := browser.NewLocator(r.cfg.Selector.UsernameField)
	buttonLoc := browser.NewLocator(r.cfg.Selector.LoginButton)

	opened := false
	for _, el := range finder.FindAll(ctx, buttonLoc) {
		displayed, err := el.Displayed(ctx)
		if err != nil || !displayed {
			continue
		}
		class, err := el.Attribute(ctx, "class")
		if err != nil || !r.loginClassRe.MatchString(class) {
			continue
		}
		if actor.Click(ctx, el, buttonLoc, "login button", browser.ClickOptions{NoScroll: true}) {
			opened = true
			break
		}
	}
	if !opened {
		if finder.Resolve(ctx, userLoc, browser.Visible, loginFieldProbeTimeout) == nil {
			return errors.New("no login button matched and the credential form never appeared")
		}
		r.logger.Debug("Credential form already visible, skipping the login button.")
	}

	if ok, err := actor.Fill(ctx, userLoc, site.Username, true); err != nil {
		return fmt.Errorf("username field: %w", err)
	} else if !ok {
		return errors.New("username could not be entered")
	}

	passLoc := browser.NewLocator(r.cfg.Selector.PasswordField)
	if ok, err := actor.Fill(ctx, passLoc, site.Password, true); err != nil {
		return fmt.Errorf("password field: %w", err)
	} else if !ok {
		return errors.New("password could not be entered")
	}

	submitLoc := browser.NewLocator(r.cfg.Selector.SubmitButton)
	if !actor.WaitAndClick(ctx, submitLoc, "submit button", r.cfg.Timeouts.ElementWait, false) {
		return errors.New("submit button could not be clicked")
	}
	return nil
}

// collectReward clicks the collection button and checks whether the site
// blocked the claim. A successful click that is not blocked counts as
// collected even when the prize text cannot be read afterwards.
func (r *Runner) collectReward(ctx context.Context, finder Finder, actor Actor) bool {
	mainLoc := browser.NewLocator(r.cfg.Selector.MainButton)
	blockLoc := browser.NewLocator(r.cfg.Selector.PopupBlock)
	prizeLoc := browser.NewLocator(r.cfg.Selector.PrizeValue)

	for attempt := 1; attempt <= rewardAttempts; attempt++ {
		if !actor.WaitAndClick(ctx, mainLoc, "reward button", rewardButtonTimeout, false) {
			r.logger.Debug("Reward button not clickable.", zap.Int("attempt", attempt))
			if !pause(ctx, time.Second) {
				return false
			}
			continue
		}

		if finder.Resolve(ctx, blockLoc, browser.Visible, blockProbeTimeout) != nil {
			r.logger.Info("Collection is blocked for now.")
			return false
		}

		if prize := finder.Resolve(ctx, prizeLoc, browser.Present, prizeProbeTimeout); prize != nil {
			if text, err := prize.Text(ctx); err == nil && strings.TrimSpace(text) != "" {
				r.logger.Info("Reward collected.", zap.String("prize", strings.TrimSpace(text)))
				return true
			}
		}
		r.logger.Info("Reward collected, prize text unavailable.")
		return true
	}
	return false
}

// captureValue reads the account balance. The balance widget renders one
// span per character; their data-char attributes are assembled first and the
// element's own text is the fallback. Whatever was read goes through a
// parse/format round trip so the report always shows a canonical value.
func (r *Runner) captureValue(ctx context.Context, finder Finder) string {
	balanceLoc := browser.NewLocator(r.cfg.Selector.CurrencyValue)
	el := finder.Resolve(ctx, balanceLoc, browser.Present, balanceTimeout)
	if el == nil {
		r.logger.Warn("Balance element never appeared.")
		return money.Format(0)
	}

	if balanceLoc.Strategy() == browser.ByPathQuery {
		charLoc := browser.NewLocator(balanceLoc.Selector() + `//span[@data-char]`)
		var assembled strings.Builder
		for _, span := range finder.FindAll(ctx, charLoc) {
			if ch, err := span.Attribute(ctx, "data-char"); err == nil {
				assembled.WriteString(ch)
			}
		}
		if s := strings.TrimSpace(assembled.String()); s != "" {
			return money.Format(money.Parse(s))
		}
	}

	if text, err := el.Text(ctx); err == nil && strings.TrimSpace(text) != "" {
		return money.Format(money.Parse(text))
	}

	r.logger.Warn("Balance element was present but unreadable.")
	return money.Format(0)
}

// notify delivers a message, logging instead of failing the run.
func (r *Runner) notify(ctx context.Context, text string) {
	if r.notifier == nil {
		return
	}
	if err := r.notifier.Send(ctx, text); err != nil {
		r.logger.Warn("Notification delivery failed.", zap.Error(err))
	}
}

// pause waits for the duration unless the context ends first.
func pause(ctx context.Context, d time.Duration) bool {
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
