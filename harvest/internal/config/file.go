// CLAUDE:SUMMARY Defines harvest config structs and parses YAML configuration files with defaults.
// Package config handles harvest configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level harvest configuration.
type Config struct {
	Console ConsoleConfig `yaml:"console"`
	Browser BrowserConfig `yaml:"browser"`
	Wait    WaitConfig    `yaml:"wait"`
	Rules   RulesConfig   `yaml:"rules"`
	Output  OutputConfig  `yaml:"output"`
}

// ConsoleConfig locates and authenticates against the vendor console.
type ConsoleConfig struct {
	BaseURL        string        `yaml:"base_url"`
	Realm          string        `yaml:"realm"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	UserAgent      string        `yaml:"user_agent"`
}

// BrowserConfig controls Chrome lifecycle for the rendered substrate.
type BrowserConfig struct {
	Remote            string        `yaml:"remote"` // ws:// control URL, empty = launch locally
	Bin               string        `yaml:"bin"`
	Headless          *bool         `yaml:"headless"`
	ResourceBlocking  []string      `yaml:"resource_blocking"` // image | font | media | stylesheet
	ViewportWidth     int           `yaml:"viewport_width"`
	ViewportHeight    int           `yaml:"viewport_height"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	ElementTimeout    time.Duration `yaml:"element_timeout"`
}

// WaitConfig bounds every polling loop.
type WaitConfig struct {
	Interval    time.Duration `yaml:"interval"`
	MaxAttempts int           `yaml:"max_attempts"`
	Agreements  int           `yaml:"agreements"`
}

// RulesConfig replaces the classifier rule tables when non-empty.
type RulesConfig struct {
	Catalog []string `yaml:"catalog"`
	Payload []string `yaml:"payload"`
}

// OutputConfig controls where artifacts land.
type OutputConfig struct {
	Dir        string `yaml:"dir"`
	CatalogExt string `yaml:"catalog_ext"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// HeadlessEnabled reports whether Chrome runs headless (default true).
func (b BrowserConfig) HeadlessEnabled() bool {
	return b.Headless == nil || *b.Headless
}

func (c *Config) applyDefaults() {
	if c.Console.BaseURL == "" {
		c.Console.BaseURL = "https://portal.tradecentric.com"
	}
	if c.Console.Realm == "" {
		c.Console.Realm = "waters"
	}
	if c.Console.RequestTimeout <= 0 {
		c.Console.RequestTimeout = 30 * time.Second
	}
	if c.Console.UserAgent == "" {
		c.Console.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	}
	if c.Browser.ViewportWidth <= 0 {
		c.Browser.ViewportWidth = 1920
	}
	if c.Browser.ViewportHeight <= 0 {
		c.Browser.ViewportHeight = 1080
	}
	if c.Browser.NavigationTimeout <= 0 {
		c.Browser.NavigationTimeout = 30 * time.Second
	}
	if c.Browser.ElementTimeout <= 0 {
		c.Browser.ElementTimeout = 10 * time.Second
	}
	if c.Wait.Interval <= 0 {
		c.Wait.Interval = 300 * time.Millisecond
	}
	if c.Wait.MaxAttempts <= 0 {
		c.Wait.MaxAttempts = 30
	}
	if c.Wait.Agreements <= 0 {
		c.Wait.Agreements = 1
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "tradecentric_data"
	}
	if c.Output.CatalogExt == "" {
		c.Output.CatalogExt = "cxml"
	}
}
