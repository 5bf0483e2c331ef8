package insts

// Opcode is the low 7 bits of an instruction word.
type Opcode uint8

// RV32 major opcodes.
const (
	OpcodeLoad    Opcode = 0b0000011
	OpcodeLoadFP  Opcode = 0b0000111
	OpcodeMiscMem Opcode = 0b0001111
	OpcodeOpImm   Opcode = 0b0010011
	OpcodeAuipc   Opcode = 0b0010111
	OpcodeStore   Opcode = 0b0100011
	OpcodeStoreFP Opcode = 0b0100111
	OpcodeOp      Opcode = 0b0110011
	OpcodeLui     Opcode = 0b0110111
	OpcodeOpFP    Opcode = 0b1010011
	OpcodeBranch  Opcode = 0b1100011
	OpcodeJalr    Opcode = 0b1100111
	OpcodeJal     Opcode = 0b1101111
	OpcodeSystem  Opcode = 0b1110011
)

// OpcodeMask selects the opcode bits of an instruction word.
const OpcodeMask = 0x7F

// OpcodeOf returns the opcode of an instruction word.
func OpcodeOf(word uint32) Opcode {
	return Opcode(word & OpcodeMask)
}

// SignExtend replicates bit width-1 of value into all higher bits of a
// 32-bit result. Width must be in [1, 32].
func SignExtend(value uint32, width uint) int32 {
	if width == 0 || width > 32 {
		panic("insts: sign extension width out of range")
	}
	shift := 32 - width
	return int32(value<<shift) >> shift
}

// Assemble combines an opcode with an encoded shape into a full
// instruction word.
func Assemble(op Opcode, s Shape) uint32 {
	return uint32(op)&OpcodeMask | s.Encode()
}
