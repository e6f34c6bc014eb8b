package fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/isoscrape/internal/config"
	"github.com/IshaanNene/isoscrape/internal/retry"
	"github.com/IshaanNene/isoscrape/internal/types"
)

// BrowserFactory launches one Chromium process per session via Rod.
type BrowserFactory struct {
	cfg       *config.BrowserConfig
	lowMemory bool
	proxyMgr  *ProxyManager
	logger    *slog.Logger
	launched  atomic.Int64
}

// BrowserOption configures the BrowserFactory.
type BrowserOption func(*BrowserFactory)

// WithBrowserProxy sets the proxy manager for browser launches.
func WithBrowserProxy(pm *ProxyManager) BrowserOption {
	return func(bf *BrowserFactory) { bf.proxyMgr = pm }
}

// NewBrowserFactory creates a factory. Low-memory launch options are
// selected when the worker count exceeds the configured threshold.
func NewBrowserFactory(cfg *config.Config, logger *slog.Logger, opts ...BrowserOption) *BrowserFactory {
	bf := &BrowserFactory{
		cfg:       &cfg.Browser,
		lowMemory: cfg.Scraper.Workers > cfg.Browser.LowMemoryThreshold,
		logger:    logger.With("component", "browser_factory"),
	}
	for _, opt := range opts {
		opt(bf)
	}

	bf.logger.Debug("browser factory ready",
		"headless", bf.cfg.Headless,
		"low_memory", bf.lowMemory,
		"stealth", bf.cfg.Stealth,
	)
	return bf
}

// LowMemory reports whether sessions are launched with reduced resources.
func (bf *BrowserFactory) LowMemory() bool { return bf.lowMemory }

// Launched returns the number of sessions successfully created.
func (bf *BrowserFactory) Launched() int64 { return bf.launched.Load() }

// NewSession launches a browser, retrying with jittered backoff.
func (bf *BrowserFactory) NewSession(ctx context.Context) (Session, error) {
	var sess *RodSession
	policy := retry.Policy{
		Attempts: bf.cfg.CreateAttempts,
		MinDelay: bf.cfg.CreateBackoffMin,
		MaxDelay: bf.cfg.CreateBackoffMax,
		OnRetry: func(attempt int, err error, wait time.Duration) {
			bf.logger.Warn("browser launch failed, retrying",
				"attempt", attempt,
				"wait", wait.Round(time.Millisecond),
				"error", err,
			)
		},
	}

	attempts, err := retry.Do(ctx, policy, func(int) error {
		s, err := bf.launch(ctx)
		if err != nil {
			return err
		}
		sess = s
		return nil
	})
	if err != nil {
		return nil, &types.SessionError{Attempts: attempts, Err: err}
	}

	bf.launched.Add(1)
	return sess, nil
}

// launch starts Chromium, connects to it and opens the working page.
func (bf *BrowserFactory) launch(ctx context.Context) (*RodSession, error) {
	var proxyURL *url.URL
	if bf.proxyMgr != nil {
		proxyURL = bf.proxyMgr.Next()
	}

	l := bf.launcher(proxyURL).Context(ctx)
	controlURL, err := l.Launch()
	if err != nil {
		discardLauncher(l)
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		if proxyURL != nil {
			bf.proxyMgr.MarkFailed(proxyURL, err)
			bf.logger.Warn("proxy marked failed",
				"proxy", proxyURL.Host,
				"healthy", bf.proxyMgr.HealthyCount(),
				"total", bf.proxyMgr.Count(),
			)
		}
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	var page *rod.Page
	if bf.cfg.Stealth {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		_ = browser.Close()
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("open page: %w", err)
	}

	if bf.cfg.UserAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent: bf.cfg.UserAgent,
		}); err != nil {
			bf.logger.Warn("failed to set user agent", "error", err)
		}
	}

	if bf.lowMemory {
		if err := (proto.EmulationSetScriptExecutionDisabled{Value: true}).Call(page); err != nil {
			bf.logger.Warn("failed to disable scripts", "error", err)
		}
	}

	return &RodSession{
		launcher: l,
		browser:  browser,
		page:     page,
	}, nil
}

// launcher builds the Chromium command line.
func (bf *BrowserFactory) launcher(proxyURL *url.URL) *launcher.Launcher {
	l := launcher.New().
		Headless(bf.cfg.Headless).
		NoSandbox(bf.cfg.NoSandbox).
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("disable-blink-features", "AutomationControlled").
		Delete("enable-automation")

	if bf.cfg.Bin != "" {
		l = l.Bin(bf.cfg.Bin)
	}
	if bf.cfg.WindowSize != "" {
		l = l.Set("window-size", bf.cfg.WindowSize)
	}
	if proxyURL != nil {
		l = l.Proxy(proxyURL.String())
	}

	if bf.lowMemory {
		l = l.
			Set("disable-extensions").
			Set("disable-plugins").
			Set("blink-settings", "imagesEnabled=false").
			Set("memory-pressure-off").
			Set("js-flags", "--max-old-space-size=4096")
	}
	return l
}

// discardLauncher stops a launcher whose Launch failed and removes its
// profile directory. Cleanup is not used because it waits on a process exit
// that never happens when the browser did not start.
func discardLauncher(l *launcher.Launcher) {
	l.Kill()
	if dir := l.Get(flags.UserDataDir); dir != "" {
		_ = os.RemoveAll(dir)
	}
}

// RodSession is a Session backed by a dedicated Chromium process.
type RodSession struct {
	launcher  *launcher.Launcher
	browser   *rod.Browser
	page      *rod.Page
	closeOnce sync.Once
	closeErr  error
}

func (s *RodSession) Navigate(ctx context.Context, rawURL string, timeout time.Duration) error {
	return s.page.Context(ctx).Timeout(timeout).Navigate(rawURL)
}

func (s *RodSession) WaitReady(ctx context.Context, timeout time.Duration) error {
	return s.page.Context(ctx).Timeout(timeout).Wait(rod.Eval(`() => document.readyState === "complete"`))
}

func (s *RodSession) WaitAny(ctx context.Context, selectors []string, timeout time.Duration) error {
	if len(selectors) == 0 {
		return nil
	}
	race := s.page.Context(ctx).Timeout(timeout).Race()
	for _, sel := range selectors {
		race = race.Element(sel)
	}
	_, err := race.Do()
	return err
}

func (s *RodSession) Title(ctx context.Context) (string, error) {
	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

func (s *RodSession) HTML(ctx context.Context) (string, error) {
	return s.page.Context(ctx).HTML()
}

// Close shuts the page and browser down, then kills the process and
// removes its profile directory.
func (s *RodSession) Close() error {
	s.closeOnce.Do(func() {
		var errs []error
		if s.page != nil {
			if err := s.page.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close page: %w", err))
			}
		}
		if s.browser != nil {
			if err := s.browser.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close browser: %w", err))
			}
		}
		if s.launcher != nil {
			s.launcher.Kill()
			s.launcher.Cleanup()
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
