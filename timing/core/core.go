// Package core provides the cycle-approximate CPU core model.
// It wraps the functional emulator and charges a latency for every retired
// instruction, plus cache latencies for fetches and data accesses.
package core

import (
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/insts"
	"github.com/sarchlab/rv32sim/timing/cache"
	"github.com/sarchlab/rv32sim/timing/latency"
)

// DefaultMemoryLatency is the cycles charged per block fill from memory.
const DefaultMemoryLatency uint64 = 100

// Stats holds performance statistics for the core.
type Stats struct {
	// Cycles is the total number of cycles simulated.
	Cycles uint64
	// Instructions is the number of instructions retired.
	Instructions uint64
	// Unsupported is the number of words no engine claimed.
	Unsupported uint64
	// Loads and Stores count data memory accesses.
	Loads  uint64
	Stores uint64
	// BranchesTaken counts conditional branches that redirected fetch.
	BranchesTaken uint64
	// FetchStalls is the cycles spent waiting on the instruction cache.
	FetchStalls uint64
	// MemoryStalls is the cycles spent waiting on the data cache.
	MemoryStalls uint64

	ICache *cache.Statistics
	DCache *cache.Statistics
	L2     *cache.Statistics
}

// CPI returns cycles per retired instruction, or 0 before the first one.
func (s Stats) CPI() float64 {
	if s.Instructions == 0 {
		return 0
	}
	return float64(s.Cycles) / float64(s.Instructions)
}

// IPC returns retired instructions per cycle.
func (s Stats) IPC() float64 {
	if s.Cycles == 0 {
		return 0
	}
	return float64(s.Instructions) / float64(s.Cycles)
}

// CounterSink receives the cycle and retired-instruction counters before
// each step, so that counter CSRs observe the model's view of time.
type CounterSink interface {
	SetCounters(cycles, instret uint64)
}

// Option is a functional option for configuring the Core.
type Option func(*Core)

// WithLatencyTable sets the instruction latency table.
func WithLatencyTable(table *latency.Table) Option {
	return func(c *Core) {
		c.table = table
	}
}

// WithICache enables the instruction cache.
func WithICache(config cache.Config) Option {
	return func(c *Core) {
		c.icacheConfig = &config
	}
}

// WithDCache enables the data cache.
func WithDCache(config cache.Config) Option {
	return func(c *Core) {
		c.dcacheConfig = &config
	}
}

// WithL2 places a unified L2 cache between the L1 caches and memory.
func WithL2(config cache.Config) Option {
	return func(c *Core) {
		c.l2Config = &config
	}
}

// WithMemoryLatency sets the cycles charged per block fill from memory.
func WithMemoryLatency(cycles uint64) Option {
	return func(c *Core) {
		c.memoryLatency = cycles
	}
}

// WithLogger sets the logger.
func WithLogger(log logr.Logger) Option {
	return func(c *Core) {
		c.log = log
	}
}

// Core is a cycle-approximate CPU core model. Instructions execute
// functionally in the wrapped emulator; the core only accounts time.
type Core struct {
	emulator *emu.Emulator
	table    *latency.Table
	log      logr.Logger

	icacheConfig  *cache.Config
	dcacheConfig  *cache.Config
	l2Config      *cache.Config
	memoryLatency uint64

	icache *cache.Cache
	dcache *cache.Cache
	l2     *cache.Cache
	memory *cache.MemoryBacking

	counters []CounterSink

	stats    Stats
	halted   bool
	exitCode int32
}

// NewCore creates a new Core that drives the given emulator.
func NewCore(emulator *emu.Emulator, opts ...Option) *Core {
	c := &Core{
		emulator:      emulator,
		table:         latency.NewTable(),
		log:           logr.Discard(),
		memoryLatency: DefaultMemoryLatency,
	}

	for _, opt := range opts {
		opt(c)
	}

	for _, ext := range emulator.Extensions() {
		if sink, ok := ext.(CounterSink); ok {
			c.counters = append(c.counters, sink)
		}
	}

	c.buildHierarchy()

	return c
}

func (c *Core) buildHierarchy() {
	c.memory = cache.NewMemoryBacking(c.emulator.Bus(), c.memoryLatency)

	var next cache.BackingStore = c.memory
	c.l2 = nil
	if c.l2Config != nil {
		c.l2 = cache.New(*c.l2Config, c.memory)
		next = c.l2
	}

	c.icache = nil
	if c.icacheConfig != nil {
		c.icache = cache.New(*c.icacheConfig, next)
	}

	c.dcache = nil
	if c.dcacheConfig != nil {
		c.dcache = cache.New(*c.dcacheConfig, next)
	}
}

// Emulator returns the wrapped functional emulator.
func (c *Core) Emulator() *emu.Emulator {
	return c.emulator
}

// SetPC sets the program counter.
func (c *Core) SetPC(pc uint32) {
	c.emulator.Base().SetPC(pc)
}

// PC returns the program counter.
func (c *Core) PC() uint32 {
	return c.emulator.Base().PC()
}

// Halted returns true if the core has halted (exit, breakpoint or error).
func (c *Core) Halted() bool {
	return c.halted
}

// ExitCode returns the exit code if the core has halted.
func (c *Core) ExitCode() int32 {
	return c.exitCode
}

// Stats returns performance statistics for the core.
func (c *Core) Stats() Stats {
	stats := c.stats
	if c.icache != nil {
		s := c.icache.Stats()
		stats.ICache = &s
	}
	if c.dcache != nil {
		s := c.dcache.Stats()
		stats.DCache = &s
	}
	if c.l2 != nil {
		s := c.l2.Stats()
		stats.L2 = &s
	}
	return stats
}

// Step executes one instruction and charges its cycles. A step refused by
// the instruction limit charges nothing.
func (c *Core) Step() emu.StepResult {
	base := c.emulator.Base()
	bus := c.emulator.Bus()

	pc := base.PC()
	var word uint32
	if bus.Contains(pc, emu.Word) {
		word = bus.Load(pc, emu.Word)
	}

	// Operands must be read before the instruction overwrites rd.
	inst := base.Decode(word)
	lhs, rhs := base.Get(inst.Rs1), base.Get(inst.Rs2)
	addr := uint32(lhs) + uint32(inst.Imm)

	for _, sink := range c.counters {
		sink.SetCounters(c.stats.Cycles, c.stats.Instructions)
	}

	result := c.emulator.Step()
	if errors.Is(result.Err, emu.ErrMaxInstructions) {
		c.halt(result)
		return result
	}

	c.stats.Cycles += c.charge(pc, &inst, result, lhs, rhs, addr)

	if result.Outcome == emu.NotRecognized {
		c.stats.Unsupported++
	} else {
		c.stats.Instructions++
	}

	if result.Halted() && !c.skips(result) {
		c.halt(result)
	}

	return result
}

func (c *Core) skips(result emu.StepResult) bool {
	return c.emulator.SkipsUnsupported() &&
		errors.Is(result.Err, emu.ErrUnsupportedInstruction)
}

func (c *Core) charge(
	pc uint32,
	inst *insts.Instruction,
	result emu.StepResult,
	lhs, rhs int32,
	addr uint32,
) uint64 {
	var cycles uint64

	if c.icache != nil {
		fetch := c.icache.Read(pc)
		cycles += fetch.Latency
		if !fetch.Hit {
			c.stats.FetchStalls += fetch.Latency
		}
	}

	if result.Outcome == emu.NotRecognized {
		return cycles + c.table.Config().UnknownLatency
	}

	cycles += c.table.GetOperandLatency(inst, lhs, rhs)

	switch {
	case c.table.IsLoadOp(inst):
		c.stats.Loads++
		cycles += c.dataAccess(addr, false)
	case c.table.IsStoreOp(inst):
		c.stats.Stores++
		cycles += c.dataAccess(addr, true)
	case inst.Info().Class == insts.ClassBranch:
		if result.PC+4 != c.emulator.Base().PC() {
			c.stats.BranchesTaken++
		}
	}

	return cycles
}

func (c *Core) dataAccess(addr uint32, isWrite bool) uint64 {
	if c.dcache == nil {
		return 0
	}

	var access cache.AccessResult
	if isWrite {
		access = c.dcache.Write(addr)
	} else {
		access = c.dcache.Read(addr)
	}

	if !access.Hit {
		c.stats.MemoryStalls += access.Latency
	}

	return access.Latency
}

func (c *Core) halt(result emu.StepResult) {
	c.halted = true
	c.exitCode = result.ExitCode

	c.log.V(1).Info("core halted",
		"pc", fmt.Sprintf("0x%08X", result.PC),
		"cycles", c.stats.Cycles,
		"instructions", c.stats.Instructions,
		"err", result.Err)
}

// Run executes the core until it halts and returns the last step's result.
// Words no engine claims are stepped over when the emulator skips them.
func (c *Core) Run() emu.StepResult {
	for {
		result := c.Step()
		if c.halted {
			return result
		}
	}
}

// RunCycles executes instructions until at least the given number of
// additional cycles has elapsed. Returns true if still running.
func (c *Core) RunCycles(cycles uint64) bool {
	target := c.stats.Cycles + cycles
	for !c.halted && c.stats.Cycles < target {
		c.Step()
	}
	return !c.halted
}

// Reset clears the emulator, the caches and the statistics.
func (c *Core) Reset() {
	c.emulator.Reset()
	c.buildHierarchy()
	c.stats = Stats{}
	c.halted = false
	c.exitCode = 0
}
