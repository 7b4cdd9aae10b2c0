// Package config loads the run configuration for a macrogen invocation
// (spec.md §1 "reading the user's configuration"): the header set to bind,
// the include-path list, the bindings-file and api-doc paths, the emitter
// selector, and the resource limits of §5/§4.2 (max errors, max include
// depth).
package config

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the YAML-shaped run configuration (SPEC_FULL.md §5.1).
type Config struct {
	Headers         []string `yaml:"headers"`
	IncludePath     []string `yaml:"include_path"`
	BindingsFile    string   `yaml:"bindings_file"`
	ApiDocFile      string   `yaml:"apidoc_file"`
	Emitter         string   `yaml:"emitter"`
	MaxErrors       int      `yaml:"max_errors"`
	MaxIncludeDepth int      `yaml:"max_include_depth"`
}

const (
	defaultMaxErrors       = 50
	defaultMaxIncludeDepth = 200
	defaultEmitter         = "text"
)

// applyDefaults fills in zero-valued fields the way asm.NewCompiler applies
// its own defaults for maxIncDepth/maxErrors.
func (c *Config) applyDefaults() {
	if c.MaxErrors <= 0 {
		c.MaxErrors = defaultMaxErrors
	}
	if c.MaxIncludeDepth <= 0 {
		c.MaxIncludeDepth = defaultMaxIncludeDepth
	}
	if c.Emitter == "" {
		c.Emitter = defaultEmitter
	}
}

// New returns a Config with defaults applied and no headers, for callers
// (such as a CLI with no -c flag) that build the rest of the config from
// command-line flags instead of a file.
func New() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads and decodes a YAML config file from path, rejecting unknown
// fields (a typo in the config shouldn't silently no-op), and applies
// defaults to anything left unset.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	return decode(f)
}

func decode(r io.Reader) (*Config, error) {
	var c Config
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && err != io.EOF {
		return nil, fmt.Errorf("config: %w", err)
	}
	c.applyDefaults()
	return &c, nil
}

// Validate reports a descriptive error if c is missing anything the
// pipeline requires to run at all.
func (c *Config) Validate() error {
	if len(c.Headers) == 0 {
		return fmt.Errorf("config: at least one header is required")
	}
	if c.Emitter != "text" {
		return fmt.Errorf("config: unknown emitter %q", c.Emitter)
	}
	return nil
}
