// File: internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/mpadilha/redcollect/internal/config"
)

// Manager owns the Chrome process allocator and the ephemeral profile
// directory. Both are released on Shutdown regardless of how the run ended.
type Manager struct {
	cfg      config.BrowserConfig
	timeouts config.TimeoutConfig
	logger   *zap.Logger

	allocCtx    context.Context
	allocCancel context.CancelFunc
	profileDir  string

	shutdownOnce sync.Once
}

// NewManager prepares the exec allocator with a fresh temporary profile.
// The browser process itself starts lazily with the first session.
func NewManager(cfg *config.Config, logger *zap.Logger) (*Manager, error) {
	profileDir, err := os.MkdirTemp("", "redcollect-profile-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create profile directory: %w", err)
	}

	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.UserDataDir(profileDir),
		chromedp.Flag("headless", cfg.Browser.Headless),
	)
	if cfg.Browser.DisableGPU {
		opts = append(opts, chromedp.Flag("disable-gpu", true))
	}
	if cfg.Browser.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	if cfg.Browser.DisableDevShm {
		// Containers mount a tiny /dev/shm; Chrome crashes without this.
		opts = append(opts, chromedp.Flag("disable-dev-shm-usage", true))
	}
	for _, arg := range cfg.Browser.Args {
		opts = append(opts, chromedp.Flag(arg, true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	m := &Manager{
		cfg:         cfg.Browser,
		timeouts:    cfg.Timeouts,
		logger:      logger.Named("browser_manager"),
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		profileDir:  profileDir,
	}
	m.logger.Debug("Browser manager created.", zap.String("profile_dir", profileDir))
	return m, nil
}

// NewSession starts the browser (on first use) and opens one tab.
func (m *Manager) NewSession(ctx context.Context) (*Session, error) {
	s, err := newSession(ctx, m.allocCtx, m.timeouts, m.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to start browser session: %w", err)
	}
	return s, nil
}

// Shutdown stops the browser process and removes the profile directory.
// Safe to call more than once.
func (m *Manager) Shutdown() {
	m.shutdownOnce.Do(func() {
		m.logger.Debug("Shutting down browser manager.")
		m.allocCancel()
		if err := os.RemoveAll(m.profileDir); err != nil {
			m.logger.Warn("Failed to remove profile directory.",
				zap.String("profile_dir", m.profileDir), zap.Error(err))
		}
	})
}
