package config

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	herrors "github.com/webform-civicrm/acceptance/internal/errors"
)

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "acceptance.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("WFCRM_AUTODETECT_BASE_URL", "false")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", cfg.BaseURL)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 30*time.Second, cfg.Browser.Timeout)
	assert.Equal(t, 10*time.Second, cfg.Browser.AjaxTimeout)
	assert.Equal(t, "civicrm_webform_test", cfg.Webform.ID)
	assert.Equal(t, "CiviCRM Webform Test", cfg.Webform.Title)
	assert.Equal(t, "/civicrm/ajax/rest", cfg.CRM.RestPath)
	assert.Equal(t, "/civicrm/ajax/api4", cfg.CRM.API4Path)
	assert.Equal(t, 90*time.Second, cfg.Runner.StepTimeout)
	assert.Equal(t, "TestGroup", cfg.Fixtures.GroupTitle)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
base_url: http://drupal.test/
autodetect_base_url: false
users:
  root:
    name: root
    password: secret
webform:
  id: contact_form
fixtures:
  communication_styles:
    formal: "1"
    familiar: "2"
`)
	t.Setenv("WFCRM_CRM_API_KEY", "key-from-env")
	t.Setenv("WFCRM_RUNNER_STEP_TIMEOUT", "5s")
	t.Setenv("WFCRM_BROWSER_HEADLESS", "false")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "http://drupal.test", cfg.BaseURL, "trailing slash is trimmed")
	assert.Equal(t, "root", cfg.Users.Root.Name)
	assert.Equal(t, "secret", cfg.Users.Root.Password)
	assert.Equal(t, "contact_form", cfg.Webform.ID)
	assert.Equal(t, "key-from-env", cfg.CRM.APIKey)
	assert.Equal(t, 5*time.Second, cfg.Runner.StepTimeout)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, map[string]string{"formal": "1", "familiar": "2"}, cfg.Fixtures.CommunicationStyles)
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, t.TempDir(), "base_url: http://example.org\ncrm:\n  site_key: abc\n")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://example.org", cfg.BaseURL)
	assert.Equal(t, "abc", cfg.CRM.SiteKey)
	assert.Equal(t, "/civicrm/ajax/rest", cfg.CRM.RestPath, "defaults still apply")

	_, err = LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestValidateBrowser(t *testing.T) {
	valid := Config{
		BaseURL: "http://localhost",
		Users: UsersConfig{
			Root:  UserCredentials{Name: "admin", Password: "admin"},
			Admin: UserCredentials{Name: "editor", Password: "editor"},
		},
		CRM: CRMConfig{APIKey: "k", SiteKey: "s"},
	}
	require.NoError(t, valid.ValidateBrowser())

	tests := []struct {
		name   string
		mutate func(c *Config)
		field  string
	}{
		{"no base url", func(c *Config) { c.BaseURL = "" }, "base_url"},
		{"no root password", func(c *Config) { c.Users.Root.Password = "" }, "users.root"},
		{"no admin user", func(c *Config) { c.Users.Admin.Name = "" }, "users.admin"},
		{"no api key", func(c *Config) { c.CRM.APIKey = "" }, "crm"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := c.ValidateBrowser()
			var ce *herrors.ConfigError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.field, ce.Field)
		})
	}
}

func TestParseDotEnv(t *testing.T) {
	input := `
# comment
WFCRM_BASE_URL=http://localhost:8080
export WFCRM_USERS_ROOT_PASSWORD="quoted value"
WFCRM_CRM_SITE_KEY='single'
EMPTY=
=novalue
`
	got := parseDotEnv(bufio.NewScanner(strings.NewReader(input)))
	assert.Equal(t, map[string]string{
		"WFCRM_BASE_URL":            "http://localhost:8080",
		"WFCRM_USERS_ROOT_PASSWORD": "quoted value",
		"WFCRM_CRM_SITE_KEY":        "single",
	}, got)
}

func TestCandidateBaseURLs(t *testing.T) {
	got := candidateBaseURLs("http://drupal:8080")
	assert.Equal(t, []string{
		"http://localhost:8080",
		"http://localhost:80",
		"http://127.0.0.1:8080",
		"http://127.0.0.1:80",
	}, got)

	assert.Empty(t, candidateBaseURLs("http://localhost:8080"))
}
