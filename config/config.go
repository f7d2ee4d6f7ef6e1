// Package config provides YAML configuration parsing for the findwork binary.
//
// Example configuration:
//
//	repository: nrc/find-work
//	username: nrc
//	token: ${GITHUB_TOKEN}
//	addr: 127.0.0.1:3000
//	index_path: front/out/index.html
//	static_root: front/out/static
//	refresh_interval: 1h
//
//	log:
//	  level: info
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/findwork/internal/logging"
)

// minRefreshInterval keeps a misconfigured interval from hammering the GitHub API.
const minRefreshInterval = 1 * time.Second

const (
	defaultAddr            = "127.0.0.1:3000"
	defaultDataDir         = "data"
	defaultRefreshInterval = time.Hour
	defaultRequestTimeout  = 30 * time.Second
	defaultMaxConcurrency  = 8
	defaultAPIURL          = "https://api.github.com"
	defaultWebURL          = "https://github.com"
)

// Config is the root configuration structure for findwork.
//
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// Repository is the owner/name repository holding the structural data.
	// Supports environment variable substitution.
	Repository string `yaml:"repository"`

	// Username is sent as the User-Agent of GitHub requests.
	// Supports environment variable substitution.
	Username string `yaml:"username"`

	// Token is the GitHub access token. Usually "${GITHUB_TOKEN}".
	Token string `yaml:"token"`

	// Addr is the HTTP listen address. Defaults to 127.0.0.1:3000.
	Addr string `yaml:"addr"`

	// IndexPath is the index document. When empty the embedded page is served.
	IndexPath string `yaml:"index_path"`

	// StaticRoot is the directory served under /static/.
	StaticRoot string `yaml:"static_root"`

	// DataDir is the directory of tabs.json, categories.json and
	// tab-category.json: inside Repository, or on disk in dev mode.
	// Defaults to "data".
	DataDir string `yaml:"data_dir"`

	// DevMode reads structural data from the local DataDir instead of
	// GitHub and refreshes whenever those files change.
	DevMode bool `yaml:"dev_mode"`

	// RefreshInterval is the delay between refreshes. Defaults to 1h.
	RefreshInterval Duration `yaml:"refresh_interval"`

	// RequestTimeout bounds each GitHub request. Defaults to 30s.
	RequestTimeout Duration `yaml:"request_timeout"`

	// MaxConcurrency bounds concurrent issue queries. Defaults to 8.
	MaxConcurrency int `yaml:"max_concurrency"`

	// APIURL is the GitHub REST root. Defaults to https://api.github.com.
	APIURL string `yaml:"api_url"`

	// WebURL is the root of repository links. Defaults to https://github.com.
	WebURL string `yaml:"web_url"`

	Log LogConfig `yaml:"log"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is debug, info, warn or error. Defaults to info.
	Level string `yaml:"level"`

	// File, when set, receives a rotated copy of the log.
	File string `yaml:"file"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default}.
// Group 1: variable name
// Group 2: the ":-default" part, present when a default was given
// Group 3: the default value, possibly empty
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse parses YAML configuration data, applies defaults, expands
// environment variables in repository, username and token, and validates
// the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = defaultAddr
	}
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}
	if c.RefreshInterval == 0 {
		c.RefreshInterval = Duration(defaultRefreshInterval)
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = Duration(defaultRequestTimeout)
	}
	if c.MaxConcurrency == 0 {
		c.MaxConcurrency = defaultMaxConcurrency
	}
	if c.APIURL == "" {
		c.APIURL = defaultAPIURL
	}
	if c.WebURL == "" {
		c.WebURL = defaultWebURL
	}
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	for _, field := range []struct {
		name  string
		value *string
	}{
		{"repository", &c.Repository},
		{"username", &c.Username},
		{"token", &c.Token},
	} {
		expanded, err := expandEnvVars(*field.value)
		if err != nil {
			return fmt.Errorf("%s: %w", field.name, err)
		}
		*field.value = expanded
	}

	if c.Repository == "" {
		return errors.New("repository is required")
	}
	if owner, name, ok := strings.Cut(c.Repository, "/"); !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return fmt.Errorf("repository must be owner/name, got %q", c.Repository)
	}

	if c.StaticRoot == "" {
		return errors.New("static_root is required")
	}

	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("addr %q: %w", c.Addr, err)
	}

	if c.RefreshInterval.Duration() < minRefreshInterval {
		return fmt.Errorf("refresh_interval must be at least %s, got %s", minRefreshInterval, c.RefreshInterval.Duration())
	}
	if c.RequestTimeout.Duration() < time.Second {
		return fmt.Errorf("request_timeout must be at least 1s, got %s", c.RequestTimeout.Duration())
	}
	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency cannot be negative, got %d", c.MaxConcurrency)
	}

	for _, u := range []struct {
		name  string
		value string
	}{
		{"api_url", c.APIURL},
		{"web_url", c.WebURL},
	} {
		parsed, err := url.Parse(u.value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", u.name, err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return fmt.Errorf("%s scheme must be http or https, got %q", u.name, parsed.Scheme)
		}
	}

	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}

	return nil
}
