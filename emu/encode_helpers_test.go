package emu_test

import "github.com/sarchlab/rv32sim/insts"

const (
	ecallWord  uint32 = 0x00000073
	ebreakWord uint32 = 0x00100073
	fenceWord  uint32 = 0x0FF0000F
	// custom-0 opcode, never claimed by the base engine.
	custom0Word uint32 = 0x0000000B
)

func iType(op insts.Opcode, funct3, rd, rs1 uint8, imm int32) uint32 {
	return insts.Assemble(op, insts.IType{Imm: imm, Rs1: rs1, Funct3: funct3, Rd: rd})
}

func rType(funct7, funct3, rd, rs1, rs2 uint8) uint32 {
	return insts.Assemble(insts.OpcodeOp,
		insts.RType{Funct7: funct7, Rs2: rs2, Rs1: rs1, Funct3: funct3, Rd: rd})
}

func addi(rd, rs1 uint8, imm int32) uint32 {
	return iType(insts.OpcodeOpImm, 0, rd, rs1, imm)
}

func lui(rd uint8, imm int32) uint32 {
	return insts.Assemble(insts.OpcodeLui, insts.UType{Imm: imm, Rd: rd})
}

func auipc(rd uint8, imm int32) uint32 {
	return insts.Assemble(insts.OpcodeAuipc, insts.UType{Imm: imm, Rd: rd})
}

func jal(rd uint8, imm int32) uint32 {
	return insts.Assemble(insts.OpcodeJal, insts.JType{Imm: imm, Rd: rd})
}

func jalr(rd, rs1 uint8, imm int32) uint32 {
	return iType(insts.OpcodeJalr, 0, rd, rs1, imm)
}

func branch(funct3, rs1, rs2 uint8, imm int32) uint32 {
	return insts.Assemble(insts.OpcodeBranch,
		insts.BType{Imm: imm, Rs2: rs2, Rs1: rs1, Funct3: funct3})
}

func load(funct3, rd, rs1 uint8, imm int32) uint32 {
	return iType(insts.OpcodeLoad, funct3, rd, rs1, imm)
}

func store(funct3, rs2, rs1 uint8, imm int32) uint32 {
	return insts.Assemble(insts.OpcodeStore,
		insts.SType{Imm: imm, Rs2: rs2, Rs1: rs1, Funct3: funct3})
}
