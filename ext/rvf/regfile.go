package rvf

import "math"

// NumRegs is the number of float registers.
const NumRegs = 32

// RegFile holds the 32 single-precision registers as raw IEEE-754 bits so
// that NaN payloads survive moves and stores.
type RegFile struct {
	f [NumRegs]uint32
}

// Bits returns the raw bits of a register.
func (r *RegFile) Bits(reg uint8) uint32 {
	if reg >= NumRegs {
		return 0
	}
	return r.f[reg]
}

// SetBits writes the raw bits of a register.
func (r *RegFile) SetBits(reg uint8, bits uint32) {
	if reg >= NumRegs {
		return
	}
	r.f[reg] = bits
}

// Get returns a register as a float32.
func (r *RegFile) Get(reg uint8) float32 {
	return math.Float32frombits(r.Bits(reg))
}

// Set writes a float32 to a register.
func (r *RegFile) Set(reg uint8, v float32) {
	r.SetBits(reg, math.Float32bits(v))
}
