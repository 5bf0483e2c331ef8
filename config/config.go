// Package config holds the JSON configuration of a simulation run.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/go-logr/logr"

	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/ext/rvf"
	"github.com/sarchlab/rv32sim/ext/rvm"
	"github.com/sarchlab/rv32sim/ext/zicsr"
	"github.com/sarchlab/rv32sim/timing/core"
	"github.com/sarchlab/rv32sim/timing/cache"
	"github.com/sarchlab/rv32sim/timing/latency"
)

// Extension names accepted in Config.Extensions.
const (
	ExtM     = "m"
	ExtF     = "f"
	ExtZicsr = "zicsr"
)

// KnownExtensions lists the installable extensions in dispatch order.
var KnownExtensions = []string{ExtM, ExtF, ExtZicsr}

// Config describes a simulation run.
type Config struct {
	// MemorySize is the DRAM size in bytes. Must be a multiple of 4.
	MemorySize uint32 `json:"memory_size"`

	// MemoryBase is the address of the first DRAM byte.
	MemoryBase uint32 `json:"memory_base"`

	// Entry overrides the program entry point when non-nil.
	Entry *uint32 `json:"entry,omitempty"`

	// Extensions names the extensions installed after the base ISA, in
	// dispatch order.
	Extensions []string `json:"extensions"`

	// MaxInstructions bounds the run. 0 means no limit.
	MaxInstructions uint64 `json:"max_instructions"`

	// SkipUnsupported steps over words no engine claims.
	SkipUnsupported bool `json:"skip_unsupported"`

	// EnableTiming runs the program on the cycle-approximate core.
	EnableTiming bool `json:"enable_timing"`

	Timing *latency.TimingConfig `json:"timing"`

	// ICache, DCache and L2 are optional; nil disables the cache.
	ICache *cache.Config `json:"icache,omitempty"`
	DCache *cache.Config `json:"dcache,omitempty"`
	L2     *cache.Config `json:"l2,omitempty"`

	// MemoryLatency is the cycles charged per cache block fill.
	MemoryLatency uint64 `json:"memory_latency"`
}

// Default returns the default configuration: 1MB of memory at address 0,
// all extensions installed, no caches.
func Default() *Config {
	return &Config{
		MemorySize:    emu.DefaultMemorySize,
		MemoryBase:    emu.DRAMBase,
		Extensions:    slices.Clone(KnownExtensions),
		Timing:        latency.DefaultTimingConfig(),
		MemoryLatency: 100,
	}
}

// Load reads a Config from a JSON file. Fields absent from the file keep
// their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return config, nil
}

// Save writes the Config to a JSON file.
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks the memory geometry, the extension names and the
// timing and cache parameters.
func (c *Config) Validate() error {
	if c.MemorySize == 0 || c.MemorySize%4 != 0 {
		return fmt.Errorf("memory_size must be a positive multiple of 4, got %d", c.MemorySize)
	}
	if uint64(c.MemoryBase)+uint64(c.MemorySize) > 1<<32 {
		return fmt.Errorf("memory_base + memory_size exceeds the 32-bit address space")
	}
	if c.Entry != nil && (*c.Entry < c.MemoryBase || *c.Entry-c.MemoryBase >= c.MemorySize) {
		return fmt.Errorf("entry 0x%X is outside memory", *c.Entry)
	}

	seen := map[string]bool{}
	for _, name := range c.Extensions {
		if !slices.Contains(KnownExtensions, name) {
			return fmt.Errorf("unknown extension %q", name)
		}
		if seen[name] {
			return fmt.Errorf("extension %q listed twice", name)
		}
		seen[name] = true
	}

	if c.Timing == nil {
		return fmt.Errorf("timing must be set")
	}
	if err := c.Timing.Validate(); err != nil {
		return fmt.Errorf("timing: %w", err)
	}

	caches := []struct {
		name   string
		config *cache.Config
	}{{"icache", c.ICache}, {"dcache", c.DCache}, {"l2", c.L2}}
	for _, entry := range caches {
		if entry.config == nil {
			continue
		}
		if err := entry.config.Validate(); err != nil {
			return fmt.Errorf("%s: %w", entry.name, err)
		}
	}

	if c.MemoryLatency == 0 {
		return fmt.Errorf("memory_latency must be > 0")
	}

	return nil
}

// HasExtension reports whether the named extension is installed.
func (c *Config) HasExtension(name string) bool {
	return slices.Contains(c.Extensions, name)
}

// Clone returns a deep copy of the Config.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Extensions = slices.Clone(c.Extensions)
	if c.Entry != nil {
		entry := *c.Entry
		clone.Entry = &entry
	}
	if c.Timing != nil {
		clone.Timing = c.Timing.Clone()
	}
	clone.ICache = cloneCache(c.ICache)
	clone.DCache = cloneCache(c.DCache)
	clone.L2 = cloneCache(c.L2)
	return &clone
}

func cloneCache(c *cache.Config) *cache.Config {
	if c == nil {
		return nil
	}
	clone := *c
	return &clone
}

// BuildExtensions instantiates the configured extensions in order.
func (c *Config) BuildExtensions(log logr.Logger) []emu.Extension {
	exts := make([]emu.Extension, 0, len(c.Extensions))
	for _, name := range c.Extensions {
		switch name {
		case ExtM:
			exts = append(exts, rvm.New())
		case ExtF:
			exts = append(exts, rvf.New(rvf.WithLogger(log.WithName("rvf"))))
		case ExtZicsr:
			exts = append(exts, zicsr.New())
		}
	}
	return exts
}

// EmulatorOptions translates the configuration into emulator options.
// Callers append I/O options of their own.
func (c *Config) EmulatorOptions(log logr.Logger) []emu.EmulatorOption {
	return []emu.EmulatorOption{
		emu.WithMemorySize(c.MemorySize),
		emu.WithMemoryBase(c.MemoryBase),
		emu.WithExtensions(c.BuildExtensions(log)...),
		emu.WithMaxInstructions(c.MaxInstructions),
		emu.WithSkipUnsupported(c.SkipUnsupported),
		emu.WithLogger(log),
	}
}

// CoreOptions translates the timing and cache settings into core options.
func (c *Config) CoreOptions(log logr.Logger) []core.Option {
	opts := []core.Option{
		core.WithLatencyTable(latency.NewTableWithConfig(c.Timing)),
		core.WithMemoryLatency(c.MemoryLatency),
		core.WithLogger(log.WithName("core")),
	}
	if c.ICache != nil {
		opts = append(opts, core.WithICache(*c.ICache))
	}
	if c.DCache != nil {
		opts = append(opts, core.WithDCache(*c.DCache))
	}
	if c.L2 != nil {
		opts = append(opts, core.WithL2(*c.L2))
	}
	return opts
}
