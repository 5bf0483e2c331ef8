package emu

import "github.com/sarchlab/rv32sim/insts"

// ALU implements RV32I integer arithmetic and logic operations.
type ALU struct {
	regFile *RegFile
}

// NewALU creates a new ALU connected to the given register file.
func NewALU(regFile *RegFile) *ALU {
	return &ALU{regFile: regFile}
}

// RegReg performs rd = rs1 <op> rs2. It reports false, without writing,
// when op is not a register-register ALU operation.
func (a *ALU) RegReg(op insts.Op, rd, rs1, rs2 uint8) bool {
	result, ok := Compute(op, a.regFile.Get(rs1), a.regFile.Get(rs2))
	if !ok {
		return false
	}

	a.regFile.Set(rd, result)
	return true
}

// RegImm performs rd = rs1 <op> imm for the OP-IMM family.
func (a *ALU) RegImm(op insts.Op, rd, rs1 uint8, imm int32) bool {
	result, ok := Compute(op, a.regFile.Get(rs1), imm)
	if !ok {
		return false
	}

	a.regFile.Set(rd, result)
	return true
}

// LUI loads imm<<12 into rd.
func (a *ALU) LUI(rd uint8, imm int32) {
	a.regFile.Set(rd, imm<<12)
}

// AUIPC adds imm<<12 to the address of the executing instruction.
func (a *ALU) AUIPC(rd uint8, instAddr uint32, imm int32) {
	a.regFile.SetU(rd, instAddr+uint32(imm<<12))
}

// Compute evaluates an integer ALU operation. Immediate forms take the
// immediate as rhs; shifts use its low 5 bits.
func Compute(op insts.Op, lhs, rhs int32) (int32, bool) {
	shamt := uint32(rhs) & 0x1F

	switch op {
	case insts.OpADD, insts.OpADDI:
		return lhs + rhs, true
	case insts.OpSUB:
		return lhs - rhs, true
	case insts.OpSLL, insts.OpSLLI:
		return int32(uint32(lhs) << shamt), true
	case insts.OpSLT, insts.OpSLTI:
		return boolToInt(lhs < rhs), true
	case insts.OpSLTU, insts.OpSLTIU:
		return boolToInt(uint32(lhs) < uint32(rhs)), true
	case insts.OpXOR, insts.OpXORI:
		return lhs ^ rhs, true
	case insts.OpSRL, insts.OpSRLI:
		return int32(uint32(lhs) >> shamt), true
	case insts.OpSRA, insts.OpSRAI:
		return lhs >> shamt, true
	case insts.OpOR, insts.OpORI:
		return lhs | rhs, true
	case insts.OpAND, insts.OpANDI:
		return lhs & rhs, true
	default:
		return 0, false
	}
}

func boolToInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
