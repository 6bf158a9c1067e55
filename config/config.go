// Package config handles lox.toml runtime configuration. The VM's frame
// and value-stack limits are fixed-size arrays (vmi.FramesMax,
// vmi.StackMax) and are not configurable here — reallocating them at
// runtime would invalidate the *value.Value pointers open upvalues hold
// into the stack. The GC's growth strategy and the dispatcher's pool
// size have no such constraint and are adjustable without recompiling.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/loxlang/loxvm/dispatch"
	"github.com/loxlang/loxvm/gc"
)

// Config represents a lox.toml runtime configuration file.
type Config struct {
	GC         GC         `toml:"gc"`
	Dispatcher Dispatcher `toml:"dispatcher"`

	// Dir is the directory containing the lox.toml file (set at load time).
	Dir string `toml:"-"`
}

// GC configures the tracing collector's growth strategy.
type GC struct {
	GrowFactor    int  `toml:"grow-factor"`
	InitialNextGC int  `toml:"initial-next-gc"`
	Stress        bool `toml:"stress"`
}

// Dispatcher configures the sibling-VM concurrency pool.
type Dispatcher struct {
	PoolSize int `toml:"pool-size"`
}

// Default returns the configuration matching the spec's own numbers,
// used whenever no lox.toml is present.
func Default() *Config {
	return &Config{
		GC: GC{
			GrowFactor:    gc.DefaultGrowFactor,
			InitialNextGC: gc.DefaultInitialNextGC,
		},
		Dispatcher: Dispatcher{
			PoolSize: dispatch.DefaultPoolSize,
		},
	}
}

// Load parses a lox.toml file from the given directory, filling in any
// field left zero-valued with the spec's defaults.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, "lox.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	cfg.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

// FindAndLoad walks up from startDir looking for a lox.toml file, then
// loads and returns it. Returns the spec's defaults, not an error, if no
// file is found anywhere up the tree.
func FindAndLoad(startDir string) (*Config, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "lox.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return Default(), nil
		}
		dir = parent
	}
}

// applyDefaults fills in any zero-valued field left unset by a partial
// lox.toml with the spec's own numbers.
func applyDefaults(cfg *Config) {
	d := Default()
	if cfg.GC.GrowFactor == 0 {
		cfg.GC.GrowFactor = d.GC.GrowFactor
	}
	if cfg.GC.InitialNextGC == 0 {
		cfg.GC.InitialNextGC = d.GC.InitialNextGC
	}
	if cfg.Dispatcher.PoolSize == 0 {
		cfg.Dispatcher.PoolSize = d.Dispatcher.PoolSize
	}
}
