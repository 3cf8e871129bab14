// Package browser owns the playwright lifecycle for a scenario: one browser,
// one context and one page at a time.
package browser

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/playwright-community/playwright-go"

	"github.com/webform-civicrm/acceptance/internal/config"
	herrors "github.com/webform-civicrm/acceptance/internal/errors"
)

// Session provides browser setup and teardown for scenarios
type Session struct {
	Playwright *playwright.Playwright
	Browser    playwright.Browser
	Context    playwright.BrowserContext
	Page       playwright.Page
	Config     *config.Config
}

// NewSession creates a session; nothing is launched until Setup
func NewSession(cfg *config.Config) *Session {
	return &Session{Config: cfg}
}

// Setup starts playwright, launches chromium and opens the first page
func (s *Session) Setup() error {
	var pw *playwright.Playwright
	var err error
	if !s.Config.Browser.Preinstalled && os.Getenv("PLAYWRIGHT_PREINSTALLED") != "1" {
		if err = playwright.Install(); err != nil {
			return fmt.Errorf("could not install playwright browsers: %w", err)
		}
	}
	pw, err = playwright.Run()
	if err != nil {
		// Driver may be missing in a fresh image; install and retry once
		_ = playwright.Install()
		pw, err = playwright.Run()
		if err != nil {
			return fmt.Errorf("could not start playwright after retry: %w", err)
		}
	}
	s.Playwright = pw

	b, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(s.Config.Browser.Headless),
		SlowMo:   playwright.Float(float64(s.Config.Browser.SlowMo.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("could not launch browser: %w", err)
	}
	s.Browser = b

	return s.newContext()
}

func (s *Session) newContext() error {
	opts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  s.Config.Browser.ViewportWidth,
			Height: s.Config.Browser.ViewportHeight,
		},
	}
	if s.Config.Browser.Videos {
		opts.RecordVideo = &playwright.RecordVideo{
			Dir: filepath.Join(s.Config.Browser.ArtifactsDir, "videos"),
		}
	}
	ctx, err := s.Browser.NewContext(opts)
	if err != nil {
		return fmt.Errorf("could not create context: %w", err)
	}
	s.Context = ctx

	page, err := ctx.NewPage()
	if err != nil {
		return fmt.Errorf("could not create page: %w", err)
	}
	s.Page = page
	page.SetDefaultTimeout(float64(s.Config.Browser.Timeout.Milliseconds()))
	return nil
}

// Reset discards cookies and storage by replacing the browser context.
// The next page starts logged out.
func (s *Session) Reset() error {
	if s.Browser == nil {
		return errors.New("browser session not set up")
	}
	s.closeContext()
	return s.newContext()
}

func (s *Session) closeContext() {
	if s.Page != nil {
		_ = s.Page.Close()
		s.Page = nil
	}
	if s.Context != nil {
		_ = s.Context.Close()
		s.Context = nil
	}
}

// TearDown closes the browser and cleans up resources
func (s *Session) TearDown() {
	s.closeContext()
	if s.Browser != nil {
		_ = s.Browser.Close()
		s.Browser = nil
	}
	if s.Playwright != nil {
		_ = s.Playwright.Stop()
		s.Playwright = nil
	}
}

// CaptureFailure saves a full-page screenshot named after the failing scenario
// and returns its path. Screenshots disabled in config yield "".
func (s *Session) CaptureFailure(name string) (string, error) {
	if !s.Config.Browser.Screenshots || s.Page == nil {
		return "", nil
	}
	path := filepath.Join(s.Config.Browser.ArtifactsDir, "screenshots", artifactName(name)+".png")
	if _, err := s.Page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	}); err != nil {
		return "", fmt.Errorf("failed to capture screenshot: %w", err)
	}
	log.Printf("[browser] Saved failure screenshot %s", path)
	return path, nil
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func artifactName(name string) string {
	clean := strings.Trim(unsafeChars.ReplaceAllString(name, "_"), "_")
	if clean == "" {
		clean = "scenario"
	}
	return clean + "_" + uuid.NewString()[:8]
}

// URL resolves path against the configured base URL
func (s *Session) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return s.Config.BaseURL + path
}

// NavigateTo navigates to a path relative to the base URL
func (s *Session) NavigateTo(path string) error {
	url := s.URL(path)
	_, err := s.Page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
	})
	if err != nil && strings.Contains(err.Error(), "ERR_TOO_MANY_REDIRECTS") {
		return fmt.Errorf("redirect loop navigating to %s (check base_url and login redirect configuration): %w", url, err)
	}
	return AsTimeout("navigate to "+path, s.Config.Browser.Timeout, err)
}

// ajaxIdle is true once the document has loaded, jQuery has no requests in
// flight or animations running, and Drupal has removed its progress throbbers.
const ajaxIdle = `() => {
	if (document.readyState !== 'complete') return false;
	if (document.querySelector('.ajax-progress, .ajax-progress-throbber, .ajax-progress-fullscreen')) return false;
	if (typeof window.jQuery === 'undefined') return true;
	return window.jQuery.active === 0 && window.jQuery(':animated').length === 0;
}`

// WaitForAjax blocks until in-page asynchronous updates have settled or the
// configured AJAX timeout expires.
func (s *Session) WaitForAjax() error {
	timeout := s.Config.Browser.AjaxTimeout
	_, err := s.Page.WaitForFunction(ajaxIdle, nil, playwright.PageWaitForFunctionOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	return AsTimeout("wait for ajax", timeout, err)
}

// AsTimeout converts a playwright timeout into the harness TimeoutError.
// Other errors, and nil, pass through unchanged.
func AsTimeout(op string, timeout time.Duration, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return &herrors.TimeoutError{Op: op, Timeout: timeout, Err: err}
	}
	return err
}
