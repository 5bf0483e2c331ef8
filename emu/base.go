package emu

import "github.com/sarchlab/rv32sim/insts"

// Base is the RV32I execution engine. It owns the integer register file
// and PC and reaches memory only through the Bus.
type Base struct {
	regFile *RegFile
	bus     *Bus
	decoder *insts.Decoder

	alu        *ALU
	lsu        *LoadStoreUnit
	branchUnit *BranchUnit
}

// NewBase creates a base engine on the given bus. The stack pointer starts
// at the end of mapped memory.
func NewBase(bus *Bus) *Base {
	regFile := &RegFile{}
	regFile.SetU(RegSP, bus.End())
	regFile.SetPC(bus.Base())

	return &Base{
		regFile:    regFile,
		bus:        bus,
		decoder:    insts.NewDecoder(),
		alu:        NewALU(regFile),
		lsu:        NewLoadStoreUnit(regFile, bus),
		branchUnit: NewBranchUnit(regFile),
	}
}

// RegFile returns the integer register file.
func (b *Base) RegFile() *RegFile {
	return b.regFile
}

// Bus returns the bus the engine fetches from.
func (b *Base) Bus() *Bus {
	return b.bus
}

// Get reads an integer register.
func (b *Base) Get(reg uint8) int32 {
	return b.regFile.Get(reg)
}

// Set writes an integer register. Writes to x0 are discarded.
func (b *Base) Set(reg uint8, value int32) {
	b.regFile.Set(reg, value)
}

// PC returns the program counter.
func (b *Base) PC() uint32 {
	return b.regFile.PC()
}

// SetPC sets the program counter.
func (b *Base) SetPC(pc uint32) {
	b.regFile.SetPC(pc)
}

// InstructionAddress returns the address of the instruction being
// executed. Fetch has already advanced PC past it.
func (b *Base) InstructionAddress() uint32 {
	return b.regFile.PC() - 4
}

// Decode classifies a word with the shared decoder.
func (b *Base) Decode(word uint32) insts.Instruction {
	return b.decoder.Decode(word)
}

// Fetch reads the word at PC and advances PC by 4.
func (b *Base) Fetch() uint32 {
	pc := b.regFile.PC()
	word := b.bus.Load(pc, Word)
	b.regFile.SetPC(pc + 4)
	return word
}

// Execute runs a base-ISA word. Words outside RV32I return NotRecognized
// without touching any state.
func (b *Base) Execute(word uint32) Outcome {
	inst := b.decoder.Decode(word)

	switch inst.Op {
	case insts.OpLUI:
		b.alu.LUI(inst.Rd, inst.Imm)
	case insts.OpAUIPC:
		b.alu.AUIPC(inst.Rd, b.InstructionAddress(), inst.Imm)
	case insts.OpJAL:
		b.branchUnit.JAL(inst.Rd, b.InstructionAddress(), inst.Imm)
	case insts.OpJALR:
		b.branchUnit.JALR(inst.Rd, inst.Rs1, inst.Imm)
	case insts.OpBEQ, insts.OpBNE, insts.OpBLT, insts.OpBGE, insts.OpBLTU, insts.OpBGEU:
		b.branchUnit.Branch(inst.Op, inst.Rs1, inst.Rs2, b.InstructionAddress(), inst.Imm)
	case insts.OpLB, insts.OpLH, insts.OpLW, insts.OpLBU, insts.OpLHU:
		b.lsu.Load(inst.Op, inst.Rd, inst.Rs1, inst.Imm)
	case insts.OpSB, insts.OpSH, insts.OpSW:
		b.lsu.Store(inst.Op, inst.Rs2, inst.Rs1, inst.Imm)
	case insts.OpADDI, insts.OpSLTI, insts.OpSLTIU, insts.OpXORI, insts.OpORI, insts.OpANDI:
		b.alu.RegImm(inst.Op, inst.Rd, inst.Rs1, inst.Imm)
	case insts.OpSLLI, insts.OpSRLI, insts.OpSRAI:
		b.alu.RegImm(inst.Op, inst.Rd, inst.Rs1, int32(inst.Shamt()))
	case insts.OpADD, insts.OpSUB, insts.OpSLL, insts.OpSLT, insts.OpSLTU,
		insts.OpXOR, insts.OpSRL, insts.OpSRA, insts.OpOR, insts.OpAND:
		b.alu.RegReg(inst.Op, inst.Rd, inst.Rs1, inst.Rs2)
	case insts.OpFENCE:
		// Single hart: every ordering constraint is already satisfied.
	case insts.OpECALL:
		return EnvironmentCall
	case insts.OpEBREAK:
		return EnvironmentBreak
	default:
		return NotRecognized
	}

	return Handled
}
