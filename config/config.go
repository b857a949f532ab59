// Package config loads harness settings from a flaky.yaml file. Every field
// is optional; a missing file yields the defaults, and command-line flags
// override whatever the file provides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file name looked up in the working directory.
const DefaultFile = "flaky.yaml"

// DefaultEvalsDir is where eval cases live unless configured otherwise.
const DefaultEvalsDir = "./evals"

// DefaultRuns is the generation count used when neither the file nor the
// command line specifies one.
const DefaultRuns = 5

// CloudConfig identifies the cloud project uploads are attributed to.
// The API key is deliberately not a file setting; it comes from the
// FLAKY_API_KEY environment variable.
type CloudConfig struct {
	Project string `yaml:"project"`
	URL     string `yaml:"url"`
}

// Config is the file-level configuration.
type Config struct {
	EvalsDir   string      `yaml:"evals_dir"`
	Runs       int         `yaml:"runs"`
	MaxWorkers int         `yaml:"max_workers"`
	Cloud      CloudConfig `yaml:"cloud"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		EvalsDir: DefaultEvalsDir,
		Runs:     DefaultRuns,
	}
}

// Load reads the config file at path. A missing file is not an error — the
// defaults come back. A file that exists but does not parse is fatal, so a
// typo never silently runs with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if cfg.EvalsDir == "" {
		cfg.EvalsDir = DefaultEvalsDir
	}
	if cfg.Runs <= 0 {
		cfg.Runs = DefaultRuns
	}
	return cfg, nil
}

// CloudConfigured reports whether uploads are enabled: both a project and a
// URL must be present.
func (c *Config) CloudConfigured() bool {
	return c.Cloud.Project != "" && c.Cloud.URL != ""
}
