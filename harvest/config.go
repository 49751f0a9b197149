package harvest

import (
	"github.com/hazyhaar/punchsync/harvest/internal/config"
)

// Config is the top-level harvest configuration. Re-exported from internal.
type Config = config.Config

// ConsoleConfig locates and authenticates against the vendor console.
type ConsoleConfig = config.ConsoleConfig

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig = config.BrowserConfig

// WaitConfig bounds every polling loop.
type WaitConfig = config.WaitConfig

// RulesConfig replaces the classifier rule tables.
type RulesConfig = config.RulesConfig

// OutputConfig controls where artifacts land.
type OutputConfig = config.OutputConfig

// LoadConfigFile reads a YAML configuration file.
func LoadConfigFile(path string) (*Config, error) {
	return config.LoadFile(path)
}

// DefaultConfig returns the configuration used without a file.
func DefaultConfig() *Config {
	return config.Default()
}
