package cache

import (
	"github.com/sarchlab/rv32sim/emu"
)

// MemoryBacking is the last level of the hierarchy: the emulator's bus
// behind a fixed access latency.
type MemoryBacking struct {
	bus     *emu.Bus
	latency uint64

	fills      uint64
	writebacks uint64
	outOfRange uint64
}

// NewMemoryBacking creates a MemoryBacking that charges latency cycles
// per block fill.
func NewMemoryBacking(bus *emu.Bus, latency uint64) *MemoryBacking {
	return &MemoryBacking{bus: bus, latency: latency}
}

// Fetch charges one memory access for the block at addr.
func (m *MemoryBacking) Fetch(addr uint32, _ int) uint64 {
	m.fills++
	if !m.bus.Contains(addr, emu.Byte) {
		m.outOfRange++
	}
	return m.latency
}

// Writeback records a dirty block returning to memory.
func (m *MemoryBacking) Writeback(_ uint32, _ int) {
	m.writebacks++
}

// Latency returns the per-block access latency.
func (m *MemoryBacking) Latency() uint64 {
	return m.latency
}

// Fills returns the number of blocks fetched from memory.
func (m *MemoryBacking) Fills() uint64 {
	return m.fills
}

// Writebacks returns the number of dirty blocks written to memory.
func (m *MemoryBacking) Writebacks() uint64 {
	return m.writebacks
}

// OutOfRange returns the number of fills for blocks outside the bus.
func (m *MemoryBacking) OutOfRange() uint64 {
	return m.outOfRange
}

// Reset clears the traffic counters.
func (m *MemoryBacking) Reset() {
	m.fills = 0
	m.writebacks = 0
	m.outOfRange = 0
}
