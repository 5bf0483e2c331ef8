package emu

// NumRegs is the number of integer registers.
const NumRegs = 32

// ABI register numbers used by the driver.
const (
	RegZero uint8 = 0
	RegRA   uint8 = 1
	RegSP   uint8 = 2
	RegA0   uint8 = 10
	RegA1   uint8 = 11
	RegA2   uint8 = 12
	RegA3   uint8 = 13
	RegA7   uint8 = 17
)

// RegFile represents the RV32 integer register file and program counter.
// Register x0 always reads as 0; writes to it are discarded.
type RegFile struct {
	x  [NumRegs]int32
	pc uint32
}

// Get reads a register. Indices >= 32 read as 0.
func (r *RegFile) Get(reg uint8) int32 {
	if reg == RegZero || reg >= NumRegs {
		return 0
	}
	return r.x[reg]
}

// Set writes a register. Writes to x0 and to indices >= 32 are ignored.
func (r *RegFile) Set(reg uint8, value int32) {
	if reg == RegZero || reg >= NumRegs {
		return
	}
	r.x[reg] = value
}

// GetU reads a register as an unsigned value.
func (r *RegFile) GetU(reg uint8) uint32 {
	return uint32(r.Get(reg))
}

// SetU writes an unsigned value to a register.
func (r *RegFile) SetU(reg uint8, value uint32) {
	r.Set(reg, int32(value))
}

// PC returns the program counter.
func (r *RegFile) PC() uint32 {
	return r.pc
}

// SetPC sets the program counter.
func (r *RegFile) SetPC(pc uint32) {
	r.pc = pc
}
