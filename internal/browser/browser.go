package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/toppicks/bestseller-scraper/internal/metrics"
	"github.com/toppicks/bestseller-scraper/internal/ratelimit"
)

// ErrNotLaunched is returned by NewPage before Launch has succeeded.
var ErrNotLaunched = errors.New("browser not launched")

// Phrases that identify a CAPTCHA/verification interstitial. Matching any of
// them triggers the wait-out path instead of a normal retry.
var botChallengeMarkers = []string{
	"Enter the characters you see below",
	"Sorry, we just need to make sure you're not a robot",
	"Type the characters you see in this image",
	"To discuss automated access to Amazon data",
	"api-services-support@amazon.com",
	"Robot Check",
}

type Options struct {
	Headless       bool
	NavTimeout     time.Duration
	ViewportWidth  int
	ViewportHeight int
	MaxRetries     int
	UserAgents     []string
	AcceptLanguage string
	// ChallengeWait paces the wait-out-the-block loop; Backoff paces plain
	// navigation retries. Both injectable so tests run without sleeping.
	ChallengeWait ratelimit.DelayFunc
	Backoff       ratelimit.BackoffFunc
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		NavTimeout:     60 * time.Second,
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		MaxRetries:     3,
		AcceptLanguage: "en-US,en;q=0.9",
		ChallengeWait:  ratelimit.Jittered(30*time.Second, 60*time.Second),
		Backoff:        ratelimit.Exponential(10 * time.Second),
	}
}

// Session owns one hardened Chromium instance. Pages are created with a
// fresh identity (user agent drawn per page, not per request).
type Session struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    *Options
	logger  *slog.Logger
	metrics *metrics.Metrics
	closed  bool
}

func NewSession(opts *Options, logger *slog.Logger, m *metrics.Metrics) *Session {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.ChallengeWait == nil {
		opts.ChallengeWait = ratelimit.Jittered(30*time.Second, 60*time.Second)
	}
	if opts.Backoff == nil {
		opts.Backoff = ratelimit.Exponential(10 * time.Second)
	}
	return &Session{
		opts:    opts,
		logger:  logger.With("component", "browser"),
		metrics: m,
	}
}

// Launch starts the browser process. Failure here is fatal to the run; no
// scraping happens without a browser.
func (s *Session) Launch() error {
	pw, err := playwright.Run()
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(s.opts.Headless),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--disable-gpu",
			"--no-sandbox",
			"--disable-setuid-sandbox",
			fmt.Sprintf("--window-size=%d,%d", s.opts.ViewportWidth, s.opts.ViewportHeight),
		},
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	s.pw = pw
	s.browser = browser
	s.logger.Info("browser launched", "headless", s.opts.Headless)
	return nil
}

// NewPage returns a page configured with a randomly selected user-agent
// identity and standard request headers. Requires a prior Launch.
func (s *Session) NewPage() (playwright.Page, error) {
	if s.browser == nil {
		return nil, ErrNotLaunched
	}

	userAgent := s.opts.UserAgents[rand.Intn(len(s.opts.UserAgents))]

	context, err := s.browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent: playwright.String(userAgent),
		Viewport: &playwright.Size{
			Width:  s.opts.ViewportWidth,
			Height: s.opts.ViewportHeight,
		},
		ExtraHttpHeaders: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Language": s.opts.AcceptLanguage,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	page.SetDefaultTimeout(float64(s.opts.NavTimeout.Milliseconds()))
	s.logger.Debug("page created", "user_agent", userAgent)
	return page, nil
}

// NavigateWithRetry loads url and reports success. A detected bot challenge
// is waited out without consuming a retry slot; plain navigation failures
// back off exponentially until the retry budget is spent. Errors never
// escape this boundary.
func (s *Session) NavigateWithRetry(ctx context.Context, page playwright.Page, url string) bool {
	attempt := 0
	for attempt < s.opts.MaxRetries {
		if ctx.Err() != nil {
			return false
		}

		s.logger.Info("navigating", "url", url, "attempt", attempt+1)

		_, err := page.Goto(url, playwright.PageGotoOptions{
			WaitUntil: playwright.WaitUntilStateDomcontentloaded,
			Timeout:   playwright.Float(float64(s.opts.NavTimeout.Milliseconds())),
		})
		if err != nil {
			s.logger.Warn("navigation failed", "url", url, "attempt", attempt+1, "error", err)
			s.metrics.IncNavigationRetry()
			if ratelimit.SleepFor(ctx, s.opts.Backoff(attempt)) != nil {
				return false
			}
			attempt++
			continue
		}

		content, err := page.Content()
		if err != nil {
			s.logger.Warn("failed to read page content", "url", url, "error", err)
			s.metrics.IncNavigationRetry()
			if ratelimit.SleepFor(ctx, s.opts.Backoff(attempt)) != nil {
				return false
			}
			attempt++
			continue
		}

		if marker, detected := DetectBotChallenge(content); detected {
			s.logger.Warn("bot challenge detected, waiting it out", "url", url, "marker", marker)
			s.metrics.IncBotChallenge()
			if ratelimit.Sleep(ctx, s.opts.ChallengeWait) != nil {
				return false
			}
			// The challenge wait does not consume the attempt slot.
			continue
		}

		return true
	}

	s.logger.Error("navigation exhausted retries", "url", url, "attempts", s.opts.MaxRetries)
	return false
}

// DetectBotChallenge scans page HTML for known challenge phrases.
func DetectBotChallenge(content string) (string, bool) {
	for _, marker := range botChallengeMarkers {
		if strings.Contains(content, marker) {
			return marker, true
		}
	}
	return "", false
}

// Close shuts the browser down. Safe to call when never launched or already
// closed.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs []error
	if s.browser != nil {
		if err := s.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
		s.browser = nil
	}
	if s.pw != nil {
		if err := s.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
		s.pw = nil
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}
	s.logger.Info("browser closed")
	return nil
}
