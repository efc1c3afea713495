package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	API       APIConfig       `yaml:"api"`
	State     StateConfig     `yaml:"state"`
	Web       WebConfig       `yaml:"web"`
	Tailscale TailscaleConfig `yaml:"tailscale"`
}

type APIConfig struct {
	BaseURL        string `yaml:"base_url"`
	UserAgent      string `yaml:"user_agent"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type StateConfig struct {
	Dir string `yaml:"dir"`
}

type WebConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type TailscaleConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Hostname string `yaml:"hostname"`
	StateDir string `yaml:"state_dir"`
}

// Timeout returns the configured HTTP client timeout.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// Default returns the built-in configuration used when no config file exists.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        "https://cloud.visualcoaching2.com",
			UserAgent:      "vcday/1.0",
			TimeoutSeconds: 30,
		},
		State: StateConfig{Dir: defaultStateDir()},
		Web:   WebConfig{Host: "127.0.0.1", Port: 8327},
	}
}

// DefaultPath returns the default config file location (~/.vcday/config.yaml).
func DefaultPath() string {
	return filepath.Join(defaultStateDir(), "config.yaml")
}

func defaultStateDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vcday"
	}
	return filepath.Join(home, ".vcday")
}

// Load reads config from a YAML file, then applies environment variable
// overrides. A missing file is not an error — the tool must work with
// defaults so that `vcday login` runs with zero setup. Env vars:
//
//	VCDAY_BASE_URL, VCDAY_USER_AGENT, VCDAY_TIMEOUT,
//	VCDAY_STATE_DIR, VCDAY_WEB_HOST, VCDAY_WEB_PORT
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VCDAY_BASE_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := os.Getenv("VCDAY_USER_AGENT"); v != "" {
		cfg.API.UserAgent = v
	}
	if v := os.Getenv("VCDAY_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.API.TimeoutSeconds = secs
		}
	}
	if v := os.Getenv("VCDAY_STATE_DIR"); v != "" {
		cfg.State.Dir = v
	}
	if v := os.Getenv("VCDAY_WEB_HOST"); v != "" {
		cfg.Web.Host = v
	}
	if v := os.Getenv("VCDAY_WEB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Web.Port = port
		}
	}
}

func (c *Config) validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.TimeoutSeconds <= 0 {
		return fmt.Errorf("api.timeout_seconds must be positive")
	}
	if c.State.Dir == "" {
		return fmt.Errorf("state.dir is required")
	}
	if c.Web.Port == 0 {
		return fmt.Errorf("web.port is required")
	}
	if c.Tailscale.Enabled && c.Tailscale.Hostname == "" {
		return fmt.Errorf("tailscale.hostname is required when tailscale is enabled")
	}
	return nil
}
