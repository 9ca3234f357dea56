// Package config loads the launcher's optional configuration file.
//
// The launcher runs fine without any configuration. A file given with
// --config can override the interpreter candidate list, the pip index,
// the log level, and the explicit timeouts for probe and install
// subprocesses. The format is chosen by file extension:
//   - .yaml / .yml parsed with gopkg.in/yaml.v3
//   - .json / .jsonc parsed with encoding/json after github.com/tidwall/jsonc
//     strips comments and trailing commas
//
// The launcher deliberately reads no environment variables for its own
// configuration: the environment belongs to the wrapped server.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// Default timeouts. Version and import probes are expected to finish in
// well under a second; pip may have to download and build wheels.
const (
	DefaultProbeTimeout   = 10 * time.Second
	DefaultInstallTimeout = 5 * time.Minute
	DefaultLogLevel       = "warn"
)

// Config is the resolved launcher configuration.
type Config struct {
	// Candidates overrides the interpreter probe order. Empty means the
	// resolver's defaults.
	Candidates []string `json:"candidates,omitempty"`

	// ProbeTimeout bounds each version and import probe.
	ProbeTimeout time.Duration `json:"probeTimeout"`

	// InstallTimeout bounds each pip install.
	InstallTimeout time.Duration `json:"installTimeout"`

	// IndexURL is an alternative package index passed to pip.
	IndexURL string `json:"indexURL,omitempty"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `json:"logLevel"`
}

// fileConfig is the on-disk shape shared by the YAML and JSON formats.
// Durations are strings in time.ParseDuration syntax ("10s", "5m").
type fileConfig struct {
	Candidates     []string `json:"candidates" yaml:"candidates"`
	ProbeTimeout   string   `json:"probeTimeout" yaml:"probeTimeout"`
	InstallTimeout string   `json:"installTimeout" yaml:"installTimeout"`
	IndexURL       string   `json:"indexURL" yaml:"indexURL"`
	LogLevel       string   `json:"logLevel" yaml:"logLevel"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		ProbeTimeout:   DefaultProbeTimeout,
		InstallTimeout: DefaultInstallTimeout,
		LogLevel:       DefaultLogLevel,
	}
}

// Load reads the configuration file at path and overlays it on Default.
// An empty path returns Default unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var raw fileConfig
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	case ".json", ".jsonc":
		if err := json.Unmarshal(jsonc.ToJSON(data), &raw); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file extension %q (valid: .yaml, .yml, .json, .jsonc)", ext)
	}

	if err := raw.apply(cfg); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// apply overlays the fields present in the file onto cfg.
func (f *fileConfig) apply(cfg *Config) error {
	if len(f.Candidates) > 0 {
		cfg.Candidates = f.Candidates
	}
	if f.ProbeTimeout != "" {
		d, err := time.ParseDuration(f.ProbeTimeout)
		if err != nil {
			return fmt.Errorf("probeTimeout: %w", err)
		}
		cfg.ProbeTimeout = d
	}
	if f.InstallTimeout != "" {
		d, err := time.ParseDuration(f.InstallTimeout)
		if err != nil {
			return fmt.Errorf("installTimeout: %w", err)
		}
		cfg.InstallTimeout = d
	}
	if f.IndexURL != "" {
		cfg.IndexURL = f.IndexURL
	}
	if f.LogLevel != "" {
		cfg.LogLevel = strings.ToLower(f.LogLevel)
	}
	return nil
}

// Validate checks field values.
func (c *Config) Validate() error {
	for i, name := range c.Candidates {
		if strings.TrimSpace(name) == "" {
			return fmt.Errorf("candidates[%d] must not be empty", i)
		}
	}
	if c.ProbeTimeout <= 0 {
		return fmt.Errorf("probeTimeout must be positive, got %s", c.ProbeTimeout)
	}
	if c.InstallTimeout <= 0 {
		return fmt.Errorf("installTimeout must be positive, got %s", c.InstallTimeout)
	}
	if err := ValidateLogLevel(c.LogLevel); err != nil {
		return fmt.Errorf("logLevel: %w", err)
	}
	return nil
}

// ValidateLogLevel checks a level name, case-insensitively. The
// --log-level flag and the config file share this rule.
func ValidateLogLevel(level string) error {
	switch strings.ToLower(level) {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("invalid log level %q (valid: debug, info, warn, error)", level)
	}
}
