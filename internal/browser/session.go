// File: internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mpadilha/redcollect/internal/config"
)

// Session is one browser tab. It implements Driver; all element operations
// run against the tab's chromedp context, bounded by the caller's context.
type Session struct {
	id       string
	ctx      context.Context
	cancel   context.CancelFunc
	timeouts config.TimeoutConfig
	logger   *zap.Logger

	closeOnce sync.Once
}

var _ Driver = (*Session)(nil)

func newSession(parent context.Context, allocCtx context.Context, timeouts config.TimeoutConfig, logger *zap.Logger) (*Session, error) {
	id := uuid.New().String()
	log := logger.Named("session").With(zap.String("session_id", id))

	taskCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithErrorf(func(format string, args ...interface{}) {
			log.Debug(fmt.Sprintf(format, args...))
		}))

	// An empty Run starts the browser process and attaches the tab.
	if err := chromedp.Run(taskCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to attach browser tab: %w", err)
	}
	if parent.Err() != nil {
		cancel()
		return nil, parent.Err()
	}

	log.Info("Browser session started.")
	return &Session{
		id:       id,
		ctx:      taskCtx,
		cancel:   cancel,
		timeouts: timeouts,
		logger:   log,
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Close releases the tab. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.logger.Info("Closing browser session.")
		s.cancel()
	})
}

// operationContext derives a context from the tab's lifecycle that is also
// cancelled when the caller's context ends, so a single slow operation can
// be abandoned without killing the tab.
func (s *Session) operationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	opCtx, cancel := context.WithCancel(s.ctx)
	stop := context.AfterFunc(ctx, cancel)
	return opCtx, func() {
		stop()
		cancel()
	}
}

// Navigate loads the URL and waits for the document body, bounded by the
// configured page-load timeout.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.logger.Debug("Navigating.", zap.String("url", url))

	opCtx, opCancel := s.operationContext(ctx)
	defer opCancel()
	navCtx, navCancel := context.WithTimeout(opCtx, s.timeouts.PageLoad)
	defer navCancel()

	err := chromedp.Run(navCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		if navCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("navigation to %s timed out after %s: %w", url, s.timeouts.PageLoad, err)
		}
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// Query returns all current matches for the locator without waiting.
func (s *Session) Query(ctx context.Context, loc Locator) ([]Element, error) {
	opCtx, cancel := s.operationContext(ctx)
	defer cancel()

	queryOpt := chromedp.ByQueryAll
	if loc.Strategy() == ByPathQuery {
		queryOpt = chromedp.BySearch
	}

	var nodes []*cdp.Node
	err := chromedp.Run(opCtx,
		chromedp.Nodes(loc.Selector(), &nodes, queryOpt, chromedp.AtLeast(0)),
	)
	if err != nil {
		return nil, fmt.Errorf("query %s failed: %w", loc, err)
	}

	elements := make([]Element, 0, len(nodes))
	for _, node := range nodes {
		elements = append(elements, &cdpElement{s: s, node: node})
	}
	return elements, nil
}

// WaitFor polls for an element satisfying the readiness mode at the
// configured retry interval until the timeout elapses.
func (s *Session) WaitFor(ctx context.Context, loc Locator, mode ReadinessMode, timeout time.Duration) (Element, error) {
	deadline := time.Now().Add(timeout)
	for {
		elements, err := s.Query(ctx, loc)
		if err != nil {
			s.logger.Debug("Query failed while waiting.", zap.Stringer("locator", loc), zap.Error(err))
		}
		for _, el := range elements {
			if s.satisfies(ctx, el, mode) {
				return el, nil
			}
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, fmt.Errorf("%w: %s did not become %s within %s", ErrNotFound, loc, mode, timeout)
		}

		interval := s.timeouts.RetryInterval
		if interval > remaining {
			interval = remaining
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: wait for %s aborted: %v", ErrNotFound, loc, ctx.Err())
		case <-time.After(interval):
		}
	}
}

func (s *Session) satisfies(ctx context.Context, el Element, mode ReadinessMode) bool {
	if mode == Present {
		return true
	}
	displayed, err := el.Displayed(ctx)
	if err != nil || !displayed {
		return false
	}
	if mode == Visible {
		return true
	}
	enabled, err := el.Enabled(ctx)
	return err == nil && enabled
}

// Evaluate runs a script in the page context.
func (s *Session) Evaluate(ctx context.Context, script string, res interface{}) error {
	opCtx, cancel := s.operationContext(ctx)
	defer cancel()
	return chromedp.Run(opCtx, chromedp.Evaluate(script, res))
}
