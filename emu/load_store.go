package emu

import "github.com/sarchlab/rv32sim/insts"

// LoadStoreUnit implements RV32I loads and stores through the Bus.
type LoadStoreUnit struct {
	regFile *RegFile
	bus     *Bus
}

// NewLoadStoreUnit creates a new LoadStoreUnit connected to the given
// register file and bus.
func NewLoadStoreUnit(regFile *RegFile, bus *Bus) *LoadStoreUnit {
	return &LoadStoreUnit{
		regFile: regFile,
		bus:     bus,
	}
}

// EffectiveAddress returns rs1 + offset.
func (lsu *LoadStoreUnit) EffectiveAddress(rs1 uint8, offset int32) uint32 {
	return lsu.regFile.GetU(rs1) + uint32(offset)
}

// Load performs rd = mem[rs1 + offset] with the width and extension
// implied by op.
func (lsu *LoadStoreUnit) Load(op insts.Op, rd, rs1 uint8, offset int32) bool {
	width, signed, ok := loadWidth(op)
	if !ok {
		return false
	}

	value := lsu.bus.Load(lsu.EffectiveAddress(rs1, offset), width)
	if signed {
		lsu.regFile.Set(rd, SignExtendWidth(value, width))
	} else {
		lsu.regFile.SetU(rd, value)
	}

	return true
}

// Store performs mem[rs1 + offset] = rs2, truncated to the width implied
// by op.
func (lsu *LoadStoreUnit) Store(op insts.Op, rs2, rs1 uint8, offset int32) bool {
	width, ok := storeWidth(op)
	if !ok {
		return false
	}

	lsu.bus.Store(lsu.EffectiveAddress(rs1, offset), width, lsu.regFile.GetU(rs2))
	return true
}

func loadWidth(op insts.Op) (width Width, signed, ok bool) {
	switch op {
	case insts.OpLB:
		return Byte, true, true
	case insts.OpLH:
		return Half, true, true
	case insts.OpLW:
		return Word, true, true
	case insts.OpLBU:
		return Byte, false, true
	case insts.OpLHU:
		return Half, false, true
	default:
		return 0, false, false
	}
}

func storeWidth(op insts.Op) (Width, bool) {
	switch op {
	case insts.OpSB:
		return Byte, true
	case insts.OpSH:
		return Half, true
	case insts.OpSW:
		return Word, true
	default:
		return 0, false
	}
}
