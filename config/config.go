// Package config loads comp3.toml, the optional TOML file of machine,
// compiler, trace, and statistics settings. Only cmd/comp3vm loads it;
// cmd/comp3c runs without a config.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config is the toolchain's full configuration surface. Every field has
// a sensible default (DefaultConfig), so no comp3.toml needs to exist
// for either CLI to run.
type Config struct {
	Machine struct {
		MaxTicks int    `toml:"max_ticks"`
		StackTop uint32 `toml:"stack_top"`
	} `toml:"machine"`

	Compiler struct {
		EntryComment bool `toml:"entry_comment"`
	} `toml:"compiler"`

	Trace struct {
		Enabled       bool   `toml:"enabled"`
		OutputFile    string `toml:"output_file"`
		PerMicrocycle bool   `toml:"per_microcycle"`
	} `toml:"trace"`

	Statistics struct {
		Format string `toml:"format"` // json, csv, text
	} `toml:"statistics"`
}

// DefaultConfig returns the zero-config defaults: an unbounded tick
// watchdog, a 4096-word stack, comments on generated instructions, and
// tracing off.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Machine.MaxTicks = 0
	cfg.Machine.StackTop = 4096
	cfg.Compiler.EntryComment = true
	cfg.Trace.Enabled = false
	cfg.Trace.OutputFile = "trace.log"
	cfg.Trace.PerMicrocycle = false
	cfg.Statistics.Format = "text"
	return cfg
}

// Load reads path, merging its values over the defaults. A missing file
// is not an error - it just means every field keeps its default.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse %s: %w", path, err)
	}

	switch cfg.Statistics.Format {
	case "json", "csv", "text":
	default:
		return nil, fmt.Errorf("config: statistics.format must be json, csv, or text, got %q", cfg.Statistics.Format)
	}

	return cfg, nil
}
