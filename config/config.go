// Package config holds the tool configuration: which schema and scenarios to
// check, where the reference dictionaries live, and run policy.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config represents the complete spector configuration
type Config struct {
	BaseDir      string             `yaml:"-"`           // Directory containing the config file, for resolving relative paths
	Schema       string             `yaml:"schema"`      // Default schema file
	Scenarios    []string           `yaml:"scenarios"`   // Default scenario files
	Dictionaries DictionariesConfig `yaml:"dictionaries"`
	Locale       string             `yaml:"locale"`      // Locale for run stamps (e.g. "ru_RU")
	FailClosed   bool               `yaml:"fail_closed"` // Treat condition evaluation errors as violations
	Logging      LoggingConfig      `yaml:"logging"`
}

// DictionariesConfig points at the reference dictionary sources. Both may be
// set; the YAML fixture is merged over the SQLite snapshot.
type DictionariesConfig struct {
	YAML   string `yaml:"yaml"`   // YAML fixture path
	SQLite string `yaml:"sqlite"` // SQLite snapshot path
}

// LoggingConfig holds output verbosity settings
type LoggingConfig struct {
	Quiet   bool `yaml:"quiet"`   // Violations only, no run header
	Verbose bool `yaml:"verbose"` // Include per-condition diagnostics
}

// Defaults returns a Config with sensible defaults
func Defaults() *Config {
	return &Config{
		Locale: "ru_RU",
	}
}

// defaultPaths are searched, in order, when no config path is given
var defaultPaths = []string{"spector.yaml", "spector.yml"}

// Load reads configuration from a file with ${ENV} interpolation. An empty
// configPath searches the default locations; if none exists the defaults are
// returned as-is, since every setting has a flag equivalent.
func Load(configPath string, getenv func(string) string) (*Config, error) {
	path := configPath
	if path == "" {
		for _, candidate := range defaultPaths {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			return Defaults(), nil
		}
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	baseDir := filepath.Dir(absPath)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	data = interpolateEnv(data, getenv)

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.BaseDir = baseDir

	// Resolve paths relative to the config file, not the working directory
	cfg.Schema = resolvePath(baseDir, cfg.Schema)
	cfg.Dictionaries.YAML = resolvePath(baseDir, cfg.Dictionaries.YAML)
	cfg.Dictionaries.SQLite = resolvePath(baseDir, cfg.Dictionaries.SQLite)
	for i := range cfg.Scenarios {
		cfg.Scenarios[i] = resolvePath(baseDir, cfg.Scenarios[i])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports configuration contradictions
func (c *Config) Validate() error {
	if c.Logging.Quiet && c.Logging.Verbose {
		return fmt.Errorf("logging: quiet and verbose are mutually exclusive")
	}
	return nil
}

func resolvePath(baseDir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

var envPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// interpolateEnv replaces ${VAR} references with values from getenv.
// Unset variables interpolate to the empty string.
func interpolateEnv(data []byte, getenv func(string) string) []byte {
	if getenv == nil {
		getenv = os.Getenv
	}
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		name := envPattern.FindSubmatch(match)[1]
		return []byte(getenv(string(name)))
	})
}
