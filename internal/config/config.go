package config

import (
	"bufio"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"

	herrors "github.com/webform-civicrm/acceptance/internal/errors"
)

var (
	cfg     *Config
	cfgErr  error
	once    sync.Once
	envOnce sync.Once
	mu      sync.RWMutex
)

// Config represents the acceptance harness configuration
type Config struct {
	BaseURL           string         `mapstructure:"base_url"`
	AutodetectBaseURL bool           `mapstructure:"autodetect_base_url"`
	Browser           BrowserConfig  `mapstructure:"browser"`
	Users             UsersConfig    `mapstructure:"users"`
	Webform           WebformConfig  `mapstructure:"webform"`
	CRM               CRMConfig      `mapstructure:"crm"`
	Database          DatabaseConfig `mapstructure:"database"`
	Runner            RunnerConfig   `mapstructure:"runner"`
	Fixtures          FixturesConfig `mapstructure:"fixtures"`
}

type BrowserConfig struct {
	Headless       bool          `mapstructure:"headless"`
	SlowMo         time.Duration `mapstructure:"slow_mo"`
	Timeout        time.Duration `mapstructure:"timeout"`
	AjaxTimeout    time.Duration `mapstructure:"ajax_timeout"`
	Screenshots    bool          `mapstructure:"screenshots"`
	Videos         bool          `mapstructure:"videos"`
	ArtifactsDir   string        `mapstructure:"artifacts_dir"`
	ViewportWidth  int           `mapstructure:"viewport_width"`
	ViewportHeight int           `mapstructure:"viewport_height"`
	Preinstalled   bool          `mapstructure:"preinstalled"`
}

type UserCredentials struct {
	Name     string `mapstructure:"name"`
	Password string `mapstructure:"password"`
}

// UsersConfig holds the two CMS accounts the scenarios log in as. Root is
// user 1; Admin is a regular administrator with its own CRM contact.
type UsersConfig struct {
	Root  UserCredentials `mapstructure:"root"`
	Admin UserCredentials `mapstructure:"admin"`
}

type WebformConfig struct {
	ID    string `mapstructure:"id"`
	Title string `mapstructure:"title"`
}

type CRMConfig struct {
	RestPath string        `mapstructure:"rest_path"`
	API4Path string        `mapstructure:"api4_path"`
	APIKey   string        `mapstructure:"api_key"`
	SiteKey  string        `mapstructure:"site_key"`
	Timeout  time.Duration `mapstructure:"timeout"`
	Debug    bool          `mapstructure:"debug"`
}

type DatabaseConfig struct {
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
}

type RunnerConfig struct {
	StepTimeout     time.Duration `mapstructure:"step_timeout"`
	ScenarioTimeout time.Duration `mapstructure:"scenario_timeout"`
	ReportPath      string        `mapstructure:"report_path"`
}

type FixturesConfig struct {
	GroupTitle          string            `mapstructure:"group_title"`
	CommunicationStyles map[string]string `mapstructure:"communication_styles"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("base_url", "http://localhost:8080")
	v.SetDefault("autodetect_base_url", true)

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.slow_mo", 0)
	v.SetDefault("browser.timeout", 30*time.Second)
	v.SetDefault("browser.ajax_timeout", 10*time.Second)
	v.SetDefault("browser.screenshots", true)
	v.SetDefault("browser.videos", false)
	v.SetDefault("browser.artifacts_dir", "./test-results")
	v.SetDefault("browser.viewport_width", 1280)
	v.SetDefault("browser.viewport_height", 1024)
	v.SetDefault("browser.preinstalled", false)

	v.SetDefault("users.root.name", "admin")
	v.SetDefault("users.root.password", "")
	v.SetDefault("users.admin.name", "")
	v.SetDefault("users.admin.password", "")

	v.SetDefault("webform.id", "civicrm_webform_test")
	v.SetDefault("webform.title", "CiviCRM Webform Test")

	v.SetDefault("crm.rest_path", "/civicrm/ajax/rest")
	v.SetDefault("crm.api4_path", "/civicrm/ajax/api4")
	v.SetDefault("crm.api_key", "")
	v.SetDefault("crm.site_key", "")
	v.SetDefault("crm.timeout", 30*time.Second)
	v.SetDefault("crm.debug", false)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 2)

	v.SetDefault("runner.step_timeout", 90*time.Second)
	v.SetDefault("runner.scenario_timeout", 10*time.Minute)
	v.SetDefault("runner.report_path", "")

	v.SetDefault("fixtures.group_title", "TestGroup")
	v.SetDefault("fixtures.communication_styles", map[string]string{})
}

// Load reads acceptance.yaml from the first matching search path (optional),
// applies WFCRM_* environment overrides and returns the result.
func Load(searchPaths ...string) (*Config, error) {
	envOnce.Do(loadDotEnv)

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("acceptance")
	v.SetConfigType("yaml")
	if dir := os.Getenv("WFCRM_CONFIG_DIR"); dir != "" {
		v.AddConfigPath(dir)
	}
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		log.Printf("[e2e-config] Using config file %s", v.ConfigFileUsed())
	}

	v.SetEnvPrefix("WFCRM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.AutodetectBaseURL {
		c.BaseURL = detectReachableBaseURL(c.BaseURL)
	}
	log.Printf("[e2e-config] Resolved BaseURL=%s", c.BaseURL)
	return c, nil
}

// LoadFromFile loads configuration from a specific file (useful for testing)
func LoadFromFile(configFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	c := &Config{}
	if err := v.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return c, nil
}

// Get returns the process-wide configuration, loading it on first use
func Get() (*Config, error) {
	once.Do(func() {
		c, err := Load(".", "./config")
		mu.Lock()
		cfg, cfgErr = c, err
		mu.Unlock()
	})
	mu.RLock()
	defer mu.RUnlock()
	return cfg, cfgErr
}

// ValidateBrowser reports what is missing before a browser scenario can run
func (c *Config) ValidateBrowser() error {
	if c.BaseURL == "" {
		return &herrors.ConfigError{Field: "base_url", Message: "not set"}
	}
	if c.Users.Root.Name == "" || c.Users.Root.Password == "" {
		return &herrors.ConfigError{Field: "users.root", Message: "credentials not configured"}
	}
	if c.Users.Admin.Name == "" || c.Users.Admin.Password == "" {
		return &herrors.ConfigError{Field: "users.admin", Message: "credentials not configured"}
	}
	return c.ValidateCRM()
}

// ValidateCRM reports what is missing before the record store can be queried
func (c *Config) ValidateCRM() error {
	if c.CRM.APIKey == "" || c.CRM.SiteKey == "" {
		return &herrors.ConfigError{Field: "crm", Message: "api_key and site_key are required"}
	}
	return nil
}

// loadDotEnv loads simple KEY=VALUE lines from .env if present.
// Existing environment variables take precedence and are not overwritten.
func loadDotEnv() {
	f, err := os.Open(".env")
	if err != nil {
		return
	}
	defer f.Close()
	for key, val := range parseDotEnv(bufio.NewScanner(f)) {
		if os.Getenv(key) == "" {
			_ = os.Setenv(key, val)
		}
	}
}

func parseDotEnv(scanner *bufio.Scanner) map[string]string {
	out := map[string]string{}
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")
		i := strings.Index(line, "=")
		if i <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:i])
		val := strings.TrimSpace(line[i+1:])
		if key == "" || val == "" {
			continue
		}
		// Strip optional surrounding quotes
		if len(val) >= 2 && ((val[0] == '"' && val[len(val)-1] == '"') || (val[0] == '\'' && val[len(val)-1] == '\'')) {
			val = val[1 : len(val)-1]
		}
		out[key] = val
	}
	return out
}
