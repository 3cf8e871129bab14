package browser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/webform-civicrm/acceptance/internal/config"
)

// AuthHelper logs CMS users in and out of a session
type AuthHelper struct {
	session *Session
}

// NewAuthHelper creates a new authentication helper
func NewAuthHelper(session *Session) *AuthHelper {
	return &AuthHelper{session: session}
}

// Login performs the CMS login form with the given credentials
func (a *AuthHelper) Login(user config.UserCredentials) error {
	if user.Name == "" || user.Password == "" {
		return fmt.Errorf("credentials not configured")
	}
	if err := a.session.NavigateTo("/user/login"); err != nil {
		return fmt.Errorf("failed to navigate to login: %w", err)
	}

	page := a.session.Page
	nameInput := page.Locator("input#edit-name")
	if err := nameInput.WaitFor(); err != nil {
		return AsTimeout("wait for login form", a.session.Config.Browser.Timeout, err)
	}
	if err := nameInput.Fill(user.Name); err != nil {
		return fmt.Errorf("failed to fill username: %w", err)
	}
	if err := page.Locator("input#edit-pass").Fill(user.Password); err != nil {
		return fmt.Errorf("failed to fill password: %w", err)
	}
	if err := page.Locator("#user-login-form #edit-submit, form.user-login-form [type='submit']").First().Click(); err != nil {
		return fmt.Errorf("failed to click submit: %w", err)
	}
	if err := page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateLoad,
	}); err != nil {
		return fmt.Errorf("failed waiting for login response: %w", err)
	}

	if a.IsLoggedIn() {
		return nil
	}
	errorMsg := page.Locator(".messages--error, .messages.error, [role='alert']")
	if count, _ := errorMsg.Count(); count > 0 {
		text, _ := errorMsg.First().TextContent()
		return fmt.Errorf("login failed for %s: %s", user.Name, strings.TrimSpace(text))
	}
	return fmt.Errorf("login failed for %s: still anonymous after submit", user.Name)
}

// Logout ends the CMS session. Newer Drupal versions ask for confirmation.
func (a *AuthHelper) Logout() error {
	if err := a.session.NavigateTo("/user/logout"); err != nil {
		return fmt.Errorf("failed to navigate to logout: %w", err)
	}
	confirm := a.session.Page.Locator("#user-logout-confirm #edit-submit, form.user-logout-confirm [type='submit']")
	if count, _ := confirm.Count(); count > 0 {
		if err := confirm.First().Click(); err != nil {
			return fmt.Errorf("failed to confirm logout: %w", err)
		}
		_ = a.session.Page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
			State: playwright.LoadStateLoad,
		})
	}
	if a.IsLoggedIn() {
		return fmt.Errorf("logout failed: session still authenticated")
	}
	return nil
}

// IsLoggedIn checks the body class Drupal sets for authenticated users
func (a *AuthHelper) IsLoggedIn() bool {
	if a.session.Page == nil {
		return false
	}
	url := a.session.Page.URL()
	if url == "" || strings.HasPrefix(url, "about:") {
		return false
	}
	count, _ := a.session.Page.Locator("body.user-logged-in").Count()
	return count > 0
}

var userPath = regexp.MustCompile(`/user/(\d+)(?:[/?#]|$)`)

// CurrentUserID returns the CMS uid of the logged-in user by following the
// /user redirect to the account page.
func (a *AuthHelper) CurrentUserID() (string, error) {
	if err := a.session.NavigateTo("/user"); err != nil {
		return "", err
	}
	uid := uidFromURL(a.session.Page.URL())
	if uid == "" {
		return "", fmt.Errorf("no user id in %s; is a user logged in?", a.session.Page.URL())
	}
	return uid, nil
}

func uidFromURL(url string) string {
	m := userPath.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return m[1]
}
