package emu

import (
	"fmt"

	"github.com/go-logr/logr"
)

// DRAMBase is the default bus address of the first memory byte.
const DRAMBase uint32 = 0x0

// Bus maps a logical address range onto the memory store. Accesses that do
// not fall entirely inside the range read as zero and are dropped on
// store; they never fault.
type Bus struct {
	dram *Memory
	base uint32
	log  logr.Logger

	outOfRange uint64
}

// BusOption is a functional option for configuring the Bus.
type BusOption func(*Bus)

// WithDRAMBase maps memory at the given bus address instead of DRAMBase.
func WithDRAMBase(base uint32) BusOption {
	return func(b *Bus) {
		b.base = base
	}
}

// WithBusLogger sets the logger used to report out-of-range accesses.
func WithBusLogger(log logr.Logger) BusOption {
	return func(b *Bus) {
		b.log = log
	}
}

// NewBus creates a Bus that owns the given memory.
func NewBus(dram *Memory, opts ...BusOption) *Bus {
	b := &Bus{
		dram: dram,
		base: DRAMBase,
		log:  logr.Discard(),
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Size returns the size of the mapped memory in bytes.
func (b *Bus) Size() uint32 {
	return b.dram.Size()
}

// Base returns the bus address of the first memory byte.
func (b *Bus) Base() uint32 {
	return b.base
}

// End returns the first bus address past the mapped memory. When memory
// reaches the top of the address space End wraps to 0, so a stack pointer
// initialised from it pre-decrements into the last word.
func (b *Bus) End() uint32 {
	return uint32(b.limit())
}

func (b *Bus) limit() uint64 {
	return uint64(b.base) + uint64(b.dram.Size())
}

// Span returns how many of the count bytes starting at addr are mapped.
// The run stops at the end of memory and is 0 when addr is unmapped.
func (b *Bus) Span(addr, count uint32) uint32 {
	if !b.Contains(addr, Byte) {
		return 0
	}
	if avail := b.limit() - uint64(addr); uint64(count) > avail {
		return uint32(avail)
	}
	return count
}

// ReadBytes fills buf from memory at addr. The whole range must be mapped;
// callers size buf with Span.
func (b *Bus) ReadBytes(addr uint32, buf []byte) {
	b.dram.ReadAt(addr-b.base, buf)
}

// WriteBytes copies buf into memory at addr. The whole range must be
// mapped; callers size buf with Span.
func (b *Bus) WriteBytes(addr uint32, buf []byte) {
	b.dram.WriteAt(addr-b.base, buf)
}

// Contains reports whether an access of the given width at addr falls
// entirely inside mapped memory.
func (b *Bus) Contains(addr uint32, width Width) bool {
	if addr < b.base {
		return false
	}
	return uint64(addr-b.base)+uint64(width.Bytes()) <= uint64(b.dram.Size())
}

// Load reads a zero-extended value. Out-of-range loads return 0.
func (b *Bus) Load(addr uint32, width Width) uint32 {
	if !b.Contains(addr, width) {
		b.reject("load", addr, width)
		return 0
	}
	return b.dram.Load(addr-b.base, width)
}

// Store writes the low bits of value. Out-of-range stores are dropped.
func (b *Bus) Store(addr uint32, width Width, value uint32) {
	if !b.Contains(addr, width) {
		b.reject("store", addr, width)
		return
	}
	b.dram.Store(addr-b.base, width, value)
}

// OutOfRange returns the number of accesses dropped so far.
func (b *Bus) OutOfRange() uint64 {
	return b.outOfRange
}

// LoadBytes copies data into memory starting at addr. Unlike Store it
// rejects images that do not fit.
func (b *Bus) LoadBytes(addr uint32, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	last := uint64(addr) + uint64(len(data)) - 1
	if addr < b.base || last >= b.limit() {
		return fmt.Errorf("%w: [0x%X, 0x%X] outside [0x%X, 0x%X)",
			ErrImageOutOfRange, addr, last, b.base, b.limit())
	}
	b.dram.WriteAt(addr-b.base, data)
	return nil
}

func (b *Bus) reject(kind string, addr uint32, width Width) {
	b.outOfRange++
	if !b.log.V(1).Enabled() {
		return
	}
	b.log.V(1).Info("out-of-range access ignored",
		"kind", kind, "addr", fmt.Sprintf("0x%08X", addr), "width", int(width))
}
