// Package config loads the analyzer settings file.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the analyzer configuration, normally read from settings.yaml in
// the working directory. All fields have working defaults so the file is
// optional.
type Config struct {
	// Build is the toolchain invocation that produces AST artifacts.
	Build []string `yaml:"build"`

	// SkipBuild reuses existing artifacts without rebuilding.
	SkipBuild bool `yaml:"skip_build"`

	// Detectors enables a subset of detectors by name; empty means all.
	Detectors []string `yaml:"detectors"`

	// Verbosity raises log output: 0 quiet, 1 info, 2 debug.
	Verbosity int `yaml:"verbosity"`

	// SolcVersions lists the locally available solc releases. It is loaded
	// from the settings file; no analysis or reporting step reads it.
	SolcVersions []string `yaml:"solc_versions"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Build: []string{"forge", "build", "--ast"},
	}
}

// Load reads path and overlays it onto the defaults. A missing file yields
// the defaults; a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// DetectorEnabled reports whether a named detector should run.
func (c *Config) DetectorEnabled(name string) bool {
	if len(c.Detectors) == 0 {
		return true
	}
	for _, enabled := range c.Detectors {
		if enabled == name {
			return true
		}
	}
	return false
}
