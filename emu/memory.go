// Package emu provides functional RV32 emulation.
package emu

import (
	"encoding/binary"
	"fmt"
)

// Width is the size of a memory access in bits.
type Width uint8

// Access widths.
const (
	Byte Width = 8
	Half Width = 16
	Word Width = 32
)

// Bytes returns the number of bytes covered by an access of this width.
func (w Width) Bytes() uint32 {
	return uint32(w) / 8
}

// Valid reports whether w is one of the supported access widths.
func (w Width) Valid() bool {
	return w == Byte || w == Half || w == Word
}

// Memory is a fixed-size, little-endian byte store. It performs no bounds
// policy of its own; the Bus decides which accesses reach it.
type Memory struct {
	data []byte
}

// NewMemory creates a zeroed memory of the given size. The size must be a
// multiple of 4.
func NewMemory(size uint32) *Memory {
	if size%4 != 0 {
		panic(fmt.Sprintf("emu: memory size %d is not a multiple of 4", size))
	}
	return &Memory{data: make([]byte, size)}
}

// Size returns the memory size in bytes.
func (m *Memory) Size() uint32 {
	return uint32(len(m.data))
}

// Load reads a zero-extended value of the given width at offset.
func (m *Memory) Load(offset uint32, width Width) uint32 {
	switch width {
	case Byte:
		return uint32(m.data[offset])
	case Half:
		return uint32(binary.LittleEndian.Uint16(m.data[offset:]))
	case Word:
		return binary.LittleEndian.Uint32(m.data[offset:])
	default:
		panic(fmt.Sprintf("emu: unsupported access width %d", width))
	}
}

// LoadSigned reads a value of the given width at offset and sign-extends
// it to 32 bits.
func (m *Memory) LoadSigned(offset uint32, width Width) int32 {
	return SignExtendWidth(m.Load(offset, width), width)
}

// Store writes the low bits of value at offset.
func (m *Memory) Store(offset uint32, width Width, value uint32) {
	switch width {
	case Byte:
		m.data[offset] = uint8(value)
	case Half:
		binary.LittleEndian.PutUint16(m.data[offset:], uint16(value))
	case Word:
		binary.LittleEndian.PutUint32(m.data[offset:], value)
	default:
		panic(fmt.Sprintf("emu: unsupported access width %d", width))
	}
}

// ReadAt copies len(buf) bytes starting at offset into buf.
func (m *Memory) ReadAt(offset uint32, buf []byte) {
	copy(buf, m.data[offset:])
}

// WriteAt copies buf into memory starting at offset.
func (m *Memory) WriteAt(offset uint32, buf []byte) {
	copy(m.data[offset:], buf)
}

// SignExtendWidth sign-extends a zero-extended load result of the given
// width.
func SignExtendWidth(value uint32, width Width) int32 {
	switch width {
	case Byte:
		return int32(int8(value))
	case Half:
		return int32(int16(value))
	default:
		return int32(value)
	}
}
