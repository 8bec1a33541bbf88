package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Makepad-fr/tada/internal/logging"
	"github.com/Makepad-fr/tada/internal/store/credstore"
)

// ErrConfigFailed marks any problem reading or parsing config.yaml.
var ErrConfigFailed = errors.New("config: failed to load")

const (
	DefaultAPIBaseURL = "http://localhost:8080/api"
	DefaultLoginPath  = "/login"
)

// Config holds user settings plus derived paths.
type Config struct {
	APIBaseURL        string `yaml:"api_base_url"`
	LoginPath         string `yaml:"login_path"`
	LogLevel          string `yaml:"log_level"`
	LogFile           string `yaml:"log_file"`
	CredentialBackend string `yaml:"credential_backend"`
	Theme             string `yaml:"theme"`

	Dir string `yaml:"-"`
}

// Error carries the path of the config that failed to load.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ErrConfigFailed.Error()
	}
	return fmt.Sprintf("%v: %s: %v", ErrConfigFailed, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *Error) Is(target error) bool { return target == ErrConfigFailed }

// DefaultPath returns <dir>/config.yaml.
func DefaultPath(dir string) string {
	return filepath.Join(dir, "config.yaml")
}

// Default returns the built-in settings rooted at dir.
func Default(dir string) *Config {
	cfg := &Config{Dir: dir}
	cfg.applyDefaults()
	return cfg
}

// Load reads path (a missing file yields defaults), applies env overrides and validates.
func Load(path string, dir string) (*Config, error) {
	if path == "" {
		return nil, &Error{Path: path, Err: errors.New("config path is empty")}
	}
	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, &Error{Path: path, Err: err}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &Error{Path: path, Err: err}
		}
	}
	cfg.Dir = dir
	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, &Error{Path: path, Err: err}
	}
	return cfg, nil
}

// Save writes cfg as YAML.
func Save(path string, cfg *Config) error {
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	return os.WriteFile(path, b, 0o600)
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("TADA_API_URL")); v != "" {
		c.APIBaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("TADA_LOG_LEVEL")); v != "" {
		c.LogLevel = v
	}
}

func (c *Config) applyDefaults() {
	c.APIBaseURL = strings.TrimRight(strings.TrimSpace(c.APIBaseURL), "/")
	if c.APIBaseURL == "" {
		c.APIBaseURL = DefaultAPIBaseURL
	}
	if strings.TrimSpace(c.LoginPath) == "" {
		c.LoginPath = DefaultLoginPath
	}
	c.LogLevel = strings.TrimSpace(strings.ToLower(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFile == "" && c.Dir != "" {
		c.LogFile = filepath.Join(c.Dir, "tada.log")
	} else if c.LogFile != "" && !filepath.IsAbs(c.LogFile) && c.Dir != "" {
		c.LogFile = filepath.Join(c.Dir, c.LogFile)
	}
	c.CredentialBackend = strings.TrimSpace(strings.ToLower(c.CredentialBackend))
	if c.CredentialBackend == "" {
		c.CredentialBackend = credstore.BackendFile
	}
	c.Theme = strings.TrimSpace(strings.ToLower(c.Theme))
	if c.Theme == "" {
		c.Theme = "classic"
	}
}

func (c *Config) validate() error {
	if !strings.HasPrefix(c.APIBaseURL, "http://") && !strings.HasPrefix(c.APIBaseURL, "https://") {
		return fmt.Errorf("api_base_url must be an http(s) URL, got %q", c.APIBaseURL)
	}
	if !strings.HasPrefix(c.LoginPath, "/") {
		return fmt.Errorf("login_path must start with /, got %q", c.LoginPath)
	}
	if !logging.ValidLevel(c.LogLevel) {
		return fmt.Errorf("unsupported log_level %q", c.LogLevel)
	}
	switch c.CredentialBackend {
	case credstore.BackendFile, credstore.BackendSQLite:
	default:
		return fmt.Errorf("unsupported credential_backend %q", c.CredentialBackend)
	}
	switch c.Theme {
	case "classic", "neon", "mono":
	default:
		return fmt.Errorf("unsupported theme %q", c.Theme)
	}
	return nil
}
