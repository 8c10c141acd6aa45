package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-pkgz/lgr"
	"gopkg.in/yaml.v3"
)

//go:generate go run ../../cmd/schema/main.go schema.json

const defaultRetries = 2

// Config holds the application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" json:"server" jsonschema:"description=Server configuration"`
	Fetch    FetchConfig    `yaml:"fetch" json:"fetch" jsonschema:"description=Feed download configuration"`
	Schedule ScheduleConfig `yaml:"schedule" json:"schedule" jsonschema:"description=Polling configuration"`
	Feeds    []string       `yaml:"feeds" json:"feeds,omitempty" jsonschema:"description=Feed urls subscribed on start"`
}

// ServerConfig holds http server settings
type ServerConfig struct {
	Listen  string        `yaml:"listen" json:"listen" jsonschema:"default=:8080,description=HTTP server listen address"`
	Timeout time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=30s,description=HTTP server timeout"`
	BaseURL string        `yaml:"base_url" json:"base_url" jsonschema:"default=http://localhost:8080,description=Base URL for RSS and OPML links"`
}

// FetchConfig holds feed download settings
type FetchConfig struct {
	Timeout     time.Duration `yaml:"timeout" json:"timeout" jsonschema:"default=10s,description=Timeout of a single download"`
	Proxy       string        `yaml:"proxy" json:"proxy,omitempty" jsonschema:"description=Relay url of allorigins kind (e.g. https://allorigins.hexlet.app/get)"`
	Retries     int           `yaml:"retries" json:"retries" jsonschema:"default=2,minimum=0,description=Retries of a failed download"`
	RetryDelay  time.Duration `yaml:"retry_delay" json:"retry_delay" jsonschema:"default=500ms,description=Initial delay between retries"`
	UserAgent   string        `yaml:"user_agent" json:"user_agent" jsonschema:"default=feedwatch/1.0,description=User agent for HTTP requests"`
	MaxBodySize int64         `yaml:"max_body_size" json:"max_body_size" jsonschema:"default=10485760,minimum=1,description=Maximum feed size in bytes"`
}

// ScheduleConfig holds polling settings
type ScheduleConfig struct {
	UpdateInterval time.Duration `yaml:"update_interval" json:"update_interval" jsonschema:"default=5s,description=Delay between polling cycles of a feed"`
	MaxWorkers     int           `yaml:"max_workers" json:"max_workers" jsonschema:"default=5,minimum=1,description=Concurrent downloads of configured feeds on start"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // file path comes from CLI flag
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// expand environment variables
	expanded := os.ExpandEnv(string(data))

	// retries preset so that an explicit zero turns them off
	cfg := Config{Fetch: FetchConfig{Retries: defaultRetries}}
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.setDefaults()

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if err := VerifyAgainstEmbeddedSchema(&cfg); err != nil {
		lgr.Printf("[WARN] schema validation failed: %v", err)
	}

	return &cfg, nil
}

// Default returns configuration with all defaults set, used when no config file is given
func Default() *Config {
	cfg := &Config{Fetch: FetchConfig{Retries: defaultRetries}}
	cfg.setDefaults()
	return cfg
}

// Validate checks the configuration, i.e. after overrides from the command line
func (c *Config) Validate() error {
	return validate(c)
}

func (c *Config) setDefaults() {
	// server
	if c.Server.Listen == "" {
		c.Server.Listen = ":8080"
	}
	if c.Server.Timeout == 0 {
		c.Server.Timeout = 30 * time.Second
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:8080"
	}
	c.Server.BaseURL = strings.TrimSuffix(c.Server.BaseURL, "/")

	// fetch
	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = 10 * time.Second
	}
	if c.Fetch.RetryDelay == 0 {
		c.Fetch.RetryDelay = 500 * time.Millisecond
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = "feedwatch/1.0"
	}
	if c.Fetch.MaxBodySize == 0 {
		c.Fetch.MaxBodySize = 10 * 1024 * 1024
	}

	// schedule
	if c.Schedule.UpdateInterval == 0 {
		c.Schedule.UpdateInterval = 5 * time.Second
	}
	if c.Schedule.MaxWorkers == 0 {
		c.Schedule.MaxWorkers = 5
	}
}

// validate checks configuration for correctness
func validate(cfg *Config) error {
	if cfg.Server.Timeout < time.Second {
		return fmt.Errorf("server timeout must be at least 1 second")
	}
	if _, err := url.ParseRequestURI(cfg.Server.BaseURL); err != nil {
		return fmt.Errorf("invalid server.base_url %q: %w", cfg.Server.BaseURL, err)
	}

	if cfg.Fetch.Timeout < 100*time.Millisecond {
		return fmt.Errorf("fetch timeout must be at least 100ms")
	}
	if cfg.Fetch.Retries < 0 {
		return fmt.Errorf("fetch retries must be non-negative")
	}
	if cfg.Fetch.MaxBodySize < 0 {
		return fmt.Errorf("fetch max_body_size must be positive")
	}
	if cfg.Fetch.Proxy != "" {
		u, err := url.Parse(cfg.Fetch.Proxy)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("invalid fetch.proxy %q, absolute http(s) url expected", cfg.Fetch.Proxy)
		}
	}

	if cfg.Schedule.UpdateInterval < time.Second {
		return fmt.Errorf("schedule update_interval must be at least 1 second")
	}
	if cfg.Schedule.MaxWorkers < 1 {
		return fmt.Errorf("schedule max_workers must be at least 1")
	}

	for i, f := range cfg.Feeds {
		if strings.TrimSpace(f) == "" {
			return fmt.Errorf("feeds[%d] is empty", i)
		}
	}
	return nil
}

// GetServerConfig returns server configuration
func (c *Config) GetServerConfig() (listen string, timeout time.Duration) {
	return c.Server.Listen, c.Server.Timeout
}

// GetBaseURL returns the public url of the server, without trailing slash
func (c *Config) GetBaseURL() string {
	return c.Server.BaseURL
}
