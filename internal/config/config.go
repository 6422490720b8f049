// Package config loads the nominator configuration.
//
// Values come from Default(), then an optional YAML file, then NOMINATOR_*
// environment variables (a .env file in the working directory is loaded
// first when present). Environment always wins.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultFormURL   = "https://www.eloyawards.com/nominate-2025/"
	DefaultSubmitURL = "https://www.eloyawards.com/wp-admin/admin-ajax.php"
	DefaultOrigin    = "https://www.eloyawards.com"
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	DefaultTimeout   = 30 * time.Second
	DefaultDBPath    = "nominations.db"
	DefaultAddr      = ":5000"
	DefaultLogLevel  = "info"
)

// Config is injected into every component at construction.
type Config struct {
	FormURL   string        `yaml:"form_url"`
	SubmitURL string        `yaml:"submit_url"`
	Origin    string        `yaml:"origin"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`

	DBPath   string `yaml:"db_path"`
	Addr     string `yaml:"addr"`
	LogLevel string `yaml:"log_level"`

	// DisableTrackingParam stops the fbclid decoration of the form URL.
	DisableTrackingParam bool `yaml:"disable_tracking_param"`
	// FetchAttempts is how many times a submission may fetch form state
	// before giving up. 1 means no retry.
	FetchAttempts int `yaml:"fetch_attempts"`
}

// Default returns the fixed remote target and local defaults.
func Default() Config {
	return Config{
		FormURL:       DefaultFormURL,
		SubmitURL:     DefaultSubmitURL,
		Origin:        DefaultOrigin,
		UserAgent:     DefaultUserAgent,
		Timeout:       DefaultTimeout,
		DBPath:        DefaultDBPath,
		Addr:          DefaultAddr,
		LogLevel:      DefaultLogLevel,
		FetchAttempts: 1,
	}
}

// Load builds a Config. An empty path skips the YAML file.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("load .env: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"NOMINATOR_FORM_URL":   &cfg.FormURL,
		"NOMINATOR_SUBMIT_URL": &cfg.SubmitURL,
		"NOMINATOR_ORIGIN":     &cfg.Origin,
		"NOMINATOR_USER_AGENT": &cfg.UserAgent,
		"NOMINATOR_DB_PATH":    &cfg.DBPath,
		"NOMINATOR_ADDR":       &cfg.Addr,
		"NOMINATOR_LOG_LEVEL":  &cfg.LogLevel,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("NOMINATOR_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("NOMINATOR_TIMEOUT: %w", err)
		}
		cfg.Timeout = d
	}
	if v := os.Getenv("NOMINATOR_DISABLE_TRACKING_PARAM"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("NOMINATOR_DISABLE_TRACKING_PARAM: %w", err)
		}
		cfg.DisableTrackingParam = b
	}
	if v := os.Getenv("NOMINATOR_FETCH_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("NOMINATOR_FETCH_ATTEMPTS: %w", err)
		}
		cfg.FetchAttempts = n
	}
	return nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	for name, raw := range map[string]string{
		"form_url":   c.FormURL,
		"submit_url": c.SubmitURL,
		"origin":     c.Origin,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config: %s must be an absolute URL, got %q", name, raw)
		}
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("config: timeout must be positive, got %s", c.Timeout)
	}
	if c.DBPath == "" {
		return errors.New("config: db_path is required")
	}
	if c.FetchAttempts < 1 {
		return fmt.Errorf("config: fetch_attempts must be at least 1, got %d", c.FetchAttempts)
	}
	return nil
}
