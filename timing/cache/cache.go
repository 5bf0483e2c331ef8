// Package cache models set-associative caches for the cycle-approximate
// core using Akita cache components.
//
// The caches track tags only. Architectural data always lives in the
// emulator's bus, so a cache answers how long an access takes, never what
// it returns.
package cache

import (
	"fmt"

	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config holds cache configuration parameters.
type Config struct {
	// Size in bytes
	Size int `json:"size"`
	// Associativity (number of ways)
	Associativity int `json:"associativity"`
	// BlockSize in bytes (cache line size)
	BlockSize int `json:"block_size"`
	// HitLatency in cycles
	HitLatency uint64 `json:"hit_latency"`
	// MissLatency in cycles, charged when the cache has no backing store.
	MissLatency uint64 `json:"miss_latency"`
}

// DefaultL1IConfig returns default configuration for the L1 instruction
// cache of a small in-order core: 16KB, 4-way, 64B lines.
func DefaultL1IConfig() Config {
	return Config{
		Size:          16 * 1024,
		Associativity: 4,
		BlockSize:     64,
		HitLatency:    1,
		MissLatency:   20,
	}
}

// DefaultL1DConfig returns default configuration for the L1 data cache:
// 16KB, 4-way, 64B lines, 2-cycle load-to-use.
func DefaultL1DConfig() Config {
	return Config{
		Size:          16 * 1024,
		Associativity: 4,
		BlockSize:     64,
		HitLatency:    2,
		MissLatency:   20,
	}
}

// DefaultL2Config returns default configuration for a unified L2 cache:
// 256KB, 8-way, 64B lines.
func DefaultL2Config() Config {
	return Config{
		Size:          256 * 1024,
		Associativity: 8,
		BlockSize:     64,
		HitLatency:    10,
		MissLatency:   100,
	}
}

// Validate checks that the geometry forms at least one whole set.
func (c Config) Validate() error {
	if c.BlockSize <= 0 || c.BlockSize&(c.BlockSize-1) != 0 {
		return fmt.Errorf("block_size must be a power of two, got %d", c.BlockSize)
	}
	if c.Associativity <= 0 {
		return fmt.Errorf("associativity must be > 0")
	}
	if c.Size <= 0 || c.Size%(c.Associativity*c.BlockSize) != 0 {
		return fmt.Errorf("size must be a positive multiple of associativity*block_size")
	}
	if c.HitLatency == 0 {
		return fmt.Errorf("hit_latency must be > 0")
	}
	return nil
}

// AccessResult contains the result of a cache access.
type AccessResult struct {
	// Hit indicates whether the access was a cache hit.
	Hit bool
	// Latency is the number of cycles this access takes.
	Latency uint64
	// Evicted is true if a valid block was replaced.
	Evicted bool
	// EvictedAddr is the address of the evicted block (if Evicted is true).
	EvictedAddr uint32
}

// Statistics holds cache performance statistics.
type Statistics struct {
	Reads      uint64
	Writes     uint64
	Hits       uint64
	Misses     uint64
	Evictions  uint64
	Writebacks uint64
}

// Accesses returns the number of reads and writes.
func (s Statistics) Accesses() uint64 {
	return s.Reads + s.Writes
}

// HitRate returns hits over accesses, or 0 before the first access.
func (s Statistics) HitRate() float64 {
	if s.Accesses() == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Accesses())
}

// BackingStore is the next level in the memory hierarchy.
type BackingStore interface {
	// Fetch returns the cycles needed to deliver the block at addr.
	Fetch(addr uint32, size int) uint64
	// Writeback accepts a dirty block evicted from the level above.
	Writeback(addr uint32, size int)
}

// Cache is a write-back, write-allocate cache with LRU replacement.
type Cache struct {
	config Config

	// Akita cache directory for tag/state management
	directory *akitacache.DirectoryImpl

	stats   Statistics
	backing BackingStore
}

// New creates a new cache with the given configuration. A nil backing
// store charges MissLatency on every miss.
func New(config Config, backing BackingStore) *Cache {
	numSets := config.Size / (config.Associativity * config.BlockSize)

	return &Cache{
		config: config,
		directory: akitacache.NewDirectory(
			numSets,
			config.Associativity,
			config.BlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		backing: backing,
	}
}

// Config returns the cache configuration.
func (c *Cache) Config() Config {
	return c.config
}

// Stats returns cache statistics.
func (c *Cache) Stats() Statistics {
	return c.stats
}

// ResetStats clears cache statistics.
func (c *Cache) ResetStats() {
	c.stats = Statistics{}
}

func (c *Cache) blockAddr(addr uint32) uint32 {
	return addr &^ uint32(c.config.BlockSize-1)
}

// Read performs a cache read of the line holding addr.
func (c *Cache) Read(addr uint32) AccessResult {
	c.stats.Reads++
	return c.access(addr, false)
}

// Write performs a cache write to the line holding addr.
// Uses write-allocate policy: on miss, fetch the block first, then write.
func (c *Cache) Write(addr uint32) AccessResult {
	c.stats.Writes++
	return c.access(addr, true)
}

// Fetch lets a cache serve as the backing store of a smaller cache.
func (c *Cache) Fetch(addr uint32, _ int) uint64 {
	return c.Read(addr).Latency
}

// Writeback lets a cache absorb dirty blocks from a smaller cache.
func (c *Cache) Writeback(addr uint32, _ int) {
	c.Write(addr)
}

func (c *Cache) access(addr uint32, isWrite bool) AccessResult {
	blockAddr := c.blockAddr(addr)

	block := c.directory.Lookup(0, uint64(blockAddr))
	if block != nil && block.IsValid {
		c.stats.Hits++
		c.directory.Visit(block)
		if isWrite {
			block.IsDirty = true
		}

		return AccessResult{Hit: true, Latency: c.config.HitLatency}
	}

	c.stats.Misses++
	return c.handleMiss(blockAddr, isWrite)
}

// handleMiss fills the block from the backing store, evicting the LRU way.
func (c *Cache) handleMiss(blockAddr uint32, isWrite bool) AccessResult {
	result := AccessResult{Latency: c.config.MissLatency}

	victim := c.directory.FindVictim(uint64(blockAddr))
	if victim == nil {
		return result
	}

	if victim.IsValid {
		c.stats.Evictions++
		result.Evicted = true
		result.EvictedAddr = uint32(victim.Tag)

		if victim.IsDirty {
			c.stats.Writebacks++
			if c.backing != nil {
				c.backing.Writeback(uint32(victim.Tag), c.config.BlockSize)
			}
		}
	}

	if c.backing != nil {
		result.Latency = c.config.HitLatency +
			c.backing.Fetch(blockAddr, c.config.BlockSize)
	}

	victim.Tag = uint64(blockAddr)
	victim.IsValid = true
	victim.IsDirty = isWrite
	c.directory.Visit(victim)

	return result
}

// Contains reports whether the line holding addr is resident.
func (c *Cache) Contains(addr uint32) bool {
	block := c.directory.Lookup(0, uint64(c.blockAddr(addr)))
	return block != nil && block.IsValid
}

// Invalidate marks a cache line as invalid.
func (c *Cache) Invalidate(addr uint32) {
	block := c.directory.Lookup(0, uint64(c.blockAddr(addr)))
	if block != nil && block.IsValid {
		block.IsValid = false
		block.IsDirty = false
	}
}

// Flush writes back all dirty blocks and invalidates them.
func (c *Cache) Flush() {
	for _, set := range c.directory.GetSets() {
		for _, block := range set.Blocks {
			if block.IsValid && block.IsDirty {
				c.stats.Writebacks++
				if c.backing != nil {
					c.backing.Writeback(uint32(block.Tag), c.config.BlockSize)
				}
			}
			block.IsValid = false
			block.IsDirty = false
		}
	}
}

// Reset invalidates all cache lines without writeback.
func (c *Cache) Reset() {
	c.directory.Reset()
	c.stats = Statistics{}
}
