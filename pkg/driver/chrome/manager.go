// Package chrome implements the browser capability on Chrome via go-rod.
// One Manager owns one Chrome process; every session is an incognito
// browser context with a single page.
package chrome

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/devicelab-dev/shopcheck/pkg/config"
	"github.com/devicelab-dev/shopcheck/pkg/core"
	"github.com/devicelab-dev/shopcheck/pkg/logger"
)

// Default viewport when the configuration leaves it unset.
const (
	DefaultViewportWidth  = 1366
	DefaultViewportHeight = 900
)

// connectAttempts bounds the DevTools connection retries.
const connectAttempts = 5

// Manager manages the Chrome lifecycle.
type Manager struct {
	cfg config.Browser

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// NewManager creates a Manager. Call Start to launch Chrome.
func NewManager(cfg config.Browser) *Manager {
	if cfg.ViewportWidth <= 0 {
		cfg.ViewportWidth = DefaultViewportWidth
	}
	if cfg.ViewportHeight <= 0 {
		cfg.ViewportHeight = DefaultViewportHeight
	}
	return &Manager{cfg: cfg}
}

// Start launches Chrome (or connects to a remote instance).
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("chrome: manager is closed")
	}
	if m.browser != nil {
		return nil
	}

	wsURL := m.cfg.RemoteURL
	if wsURL != "" {
		logger.Info("chrome: connecting to remote %s", wsURL)
	} else {
		l, err := m.launcher()
		if err != nil {
			return err
		}
		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("chrome: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		logger.Info("chrome: launched local chrome at %s (headless=%v)", wsURL, m.cfg.Headless)
	}

	b, err := connect(ctx, wsURL)
	if err != nil {
		m.cleanupLocked()
		return err
	}

	if err := b.IgnoreCertErrors(true); err != nil {
		logger.Warn("chrome: ignore cert errors failed: %v", err)
	}

	m.browser = b
	return nil
}

func (m *Manager) launcher() (*launcher.Launcher, error) {
	bin := m.cfg.Bin
	if bin == "" {
		if path, found := launcher.LookPath(); found {
			bin = path
		} else {
			dir := config.GetBrowserDir()
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("chrome: create browser dir: %w", err)
			}
			dl := launcher.NewBrowser()
			dl.RootDir = dir
			logger.Info("chrome: no local chrome found, downloading chromium into %s", dir)
			path, err := dl.Get()
			if err != nil {
				return nil, fmt.Errorf("chrome: download chromium: %w", err)
			}
			bin = path
		}
	}

	return launcher.New().
		Bin(bin).
		Headless(m.cfg.Headless).
		Set("disable-blink-features", "AutomationControlled").
		Set("window-size", fmt.Sprintf("%d,%d", m.cfg.ViewportWidth, m.cfg.ViewportHeight)), nil
}

// connect dials DevTools, retrying while Chrome finishes starting.
func connect(ctx context.Context, wsURL string) (*rod.Browser, error) {
	var b *rod.Browser
	op := func() error {
		c := rod.New().ControlURL(wsURL)
		if err := c.Connect(); err != nil {
			return err
		}
		b = c
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxInterval = 2 * time.Second
	bo := backoff.WithContext(backoff.WithMaxRetries(policy, connectAttempts-1), ctx)

	if err := backoff.Retry(op, bo); err != nil {
		return nil, fmt.Errorf("chrome: connect %s: %w", wsURL, err)
	}
	return b, nil
}

// NewSession opens an isolated incognito context with one page.
func (m *Manager) NewSession(ctx context.Context) (core.Driver, error) {
	m.mu.Lock()
	b := m.browser
	closed := m.closed
	m.mu.Unlock()

	if closed {
		return nil, fmt.Errorf("chrome: manager is closed")
	}
	if b == nil {
		return nil, fmt.Errorf("chrome: browser not started")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// The session outlives ctx; every Session method applies its own.
	incognito, err := b.Incognito()
	if err != nil {
		return nil, fmt.Errorf("chrome: create incognito context: %w", err)
	}

	var page *rod.Page
	if m.cfg.Stealth {
		page, err = stealth.Page(incognito.Context(ctx))
	} else {
		page, err = incognito.Context(ctx).Page(proto.TargetCreateTarget{URL: ""})
	}
	if err != nil {
		_ = incognito.Close()
		return nil, fmt.Errorf("chrome: create page: %w", err)
	}
	page = page.Context(context.Background())

	if err := page.Context(ctx).SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             m.cfg.ViewportWidth,
		Height:            m.cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		logger.Warn("chrome: set viewport failed: %v", err)
	}

	s := &Session{browser: incognito, page: page}
	if len(m.cfg.BlockResources) > 0 {
		s.router = applyResourceBlocking(page, m.cfg.BlockResources)
	}
	return s, nil
}

// Close shuts down Chrome.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.cleanupLocked()
	return nil
}

func (m *Manager) cleanupLocked() {
	if m.browser != nil {
		_ = m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
}

var _ core.Browser = (*Manager)(nil)
