package emu

import "github.com/sarchlab/rv32sim/insts"

// BranchUnit implements RV32I jumps and conditional branches.
type BranchUnit struct {
	regFile *RegFile
}

// NewBranchUnit creates a new BranchUnit connected to the given register file.
func NewBranchUnit(regFile *RegFile) *BranchUnit {
	return &BranchUnit{regFile: regFile}
}

// JAL writes the return address (the already advanced PC) to rd and jumps
// to instAddr + offset.
func (b *BranchUnit) JAL(rd uint8, instAddr uint32, offset int32) {
	b.regFile.SetU(rd, b.regFile.PC())
	b.regFile.SetPC(instAddr + uint32(offset))
}

// JALR jumps to (rs1 + offset) with bit 0 cleared, writing the return
// address to rd. The target is computed before rd is written so that
// rd == rs1 behaves.
func (b *BranchUnit) JALR(rd, rs1 uint8, offset int32) {
	target := (b.regFile.GetU(rs1) + uint32(offset)) &^ 1
	b.regFile.SetU(rd, b.regFile.PC())
	b.regFile.SetPC(target)
}

// Branch evaluates a conditional branch and jumps to instAddr + offset
// when it is taken. It reports whether the branch was taken.
func (b *BranchUnit) Branch(op insts.Op, rs1, rs2 uint8, instAddr uint32, offset int32) bool {
	if !Taken(op, b.regFile.Get(rs1), b.regFile.Get(rs2)) {
		return false
	}

	b.regFile.SetPC(instAddr + uint32(offset))
	return true
}

// Taken evaluates a branch condition.
func Taken(op insts.Op, lhs, rhs int32) bool {
	switch op {
	case insts.OpBEQ:
		return lhs == rhs
	case insts.OpBNE:
		return lhs != rhs
	case insts.OpBLT:
		return lhs < rhs
	case insts.OpBGE:
		return lhs >= rhs
	case insts.OpBLTU:
		return uint32(lhs) < uint32(rhs)
	case insts.OpBGEU:
		return uint32(lhs) >= uint32(rhs)
	default:
		return false
	}
}
