package insts

// Op represents a decoded RISC-V operation.
type Op uint16

// RV32 operations known to the decoder.
const (
	OpUnknown Op = iota

	// RV32I
	OpLUI
	OpAUIPC
	OpJAL
	OpJALR
	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU
	OpLB
	OpLH
	OpLW
	OpLBU
	OpLHU
	OpSB
	OpSH
	OpSW
	OpADDI
	OpSLTI
	OpSLTIU
	OpXORI
	OpORI
	OpANDI
	OpSLLI
	OpSRLI
	OpSRAI
	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND
	OpFENCE
	OpECALL
	OpEBREAK

	// M
	OpMUL
	OpMULH
	OpMULHSU
	OpMULHU
	OpDIV
	OpDIVU
	OpREM
	OpREMU

	// F
	OpFLW
	OpFSW
	OpFADDS
	OpFSUBS
	OpFMULS
	OpFDIVS
	OpFSQRTS
	OpFSGNJS
	OpFSGNJNS
	OpFSGNJXS
	OpFMINS
	OpFMAXS
	OpFCVTWS
	OpFCVTWUS
	OpFMVXW
	OpFEQS
	OpFLTS
	OpFLES
	OpFCLASSS
	OpFCVTSW
	OpFCVTSWU
	OpFMVWX

	// Zicsr
	OpCSRRW
	OpCSRRS
	OpCSRRC
	OpCSRRWI
	OpCSRRSI
	OpCSRRCI

	numOps
)

// Format represents an instruction encoding shape.
type Format uint8

// Instruction formats.
const (
	FormatUnknown Format = iota
	FormatR
	FormatI
	FormatS
	FormatB
	FormatU
	FormatJ
)

// Class groups operations with similar execution cost.
type Class uint8

// Instruction classes.
const (
	ClassUnknown Class = iota
	ClassALU
	ClassBranch
	ClassJump
	ClassLoad
	ClassStore
	ClassMultiply
	ClassDivide
	ClassFloat
	ClassFloatDivide
	ClassFloatSqrt
	ClassCSR
	ClassSystem
	ClassFence
)

// Syntax describes the operand layout used by the text assembly surface.
type Syntax uint8

// Operand layouts.
const (
	SyntaxNone       Syntax = iota // ecall
	SyntaxRegRegReg                // add rd, rs1, rs2
	SyntaxRegRegImm                // addi rd, rs1, imm
	SyntaxRegImm                   // lui rd, imm
	SyntaxRegMem                   // lw rd, imm(rs1)
	SyntaxStore                    // sw rs2, imm(rs1)
	SyntaxBranch                   // beq rs1, rs2, imm
	SyntaxRegReg                   // fsqrt.s rd, rs1
	SyntaxFence                    // fence pred, succ
	SyntaxCSR                      // csrrw rd, csr, rs1
	SyntaxCSRImm                   // csrrwi rd, csr, uimm
)

// RegClass tells whether an operand names an integer or a float register.
type RegClass uint8

// Register classes.
const (
	RegX RegClass = iota
	RegF
)

// Info is the static encoding description of an operation.
type Info struct {
	Name   string
	Opcode Opcode
	Format Format
	Class  Class
	Syntax Syntax

	Funct3 uint8
	Funct7 uint8
	Rs2    uint8  // fixed rs2 selector when MatchRs2 is set
	Imm    uint32 // fixed funct12 when MatchImm is set

	AnyFunct3   bool // funct3 carries a rounding mode
	MatchFunct7 bool // I-type shifts compare bits [31:25]
	MatchRs2    bool
	MatchImm    bool

	RdClass, Rs1Class, Rs2Class RegClass
}

var infos = [numOps]Info{
	OpUnknown: {Name: "?"},

	OpLUI:   {Name: "lui", Opcode: OpcodeLui, Format: FormatU, Class: ClassALU, Syntax: SyntaxRegImm},
	OpAUIPC: {Name: "auipc", Opcode: OpcodeAuipc, Format: FormatU, Class: ClassALU, Syntax: SyntaxRegImm},
	OpJAL:   {Name: "jal", Opcode: OpcodeJal, Format: FormatJ, Class: ClassJump, Syntax: SyntaxRegImm},
	OpJALR:  {Name: "jalr", Opcode: OpcodeJalr, Format: FormatI, Class: ClassJump, Syntax: SyntaxRegMem},

	OpBEQ:  branch("beq", 0),
	OpBNE:  branch("bne", 1),
	OpBLT:  branch("blt", 4),
	OpBGE:  branch("bge", 5),
	OpBLTU: branch("bltu", 6),
	OpBGEU: branch("bgeu", 7),

	OpLB:  load("lb", 0),
	OpLH:  load("lh", 1),
	OpLW:  load("lw", 2),
	OpLBU: load("lbu", 4),
	OpLHU: load("lhu", 5),

	OpSB: store("sb", 0),
	OpSH: store("sh", 1),
	OpSW: store("sw", 2),

	OpADDI:  opImm("addi", 0),
	OpSLTI:  opImm("slti", 2),
	OpSLTIU: opImm("sltiu", 3),
	OpXORI:  opImm("xori", 4),
	OpORI:   opImm("ori", 6),
	OpANDI:  opImm("andi", 7),
	OpSLLI:  shiftImm("slli", 1, 0x00),
	OpSRLI:  shiftImm("srli", 5, 0x00),
	OpSRAI:  shiftImm("srai", 5, 0x20),

	OpADD:  op("add", 0, 0x00, ClassALU),
	OpSUB:  op("sub", 0, 0x20, ClassALU),
	OpSLL:  op("sll", 1, 0x00, ClassALU),
	OpSLT:  op("slt", 2, 0x00, ClassALU),
	OpSLTU: op("sltu", 3, 0x00, ClassALU),
	OpXOR:  op("xor", 4, 0x00, ClassALU),
	OpSRL:  op("srl", 5, 0x00, ClassALU),
	OpSRA:  op("sra", 5, 0x20, ClassALU),
	OpOR:   op("or", 6, 0x00, ClassALU),
	OpAND:  op("and", 7, 0x00, ClassALU),

	OpFENCE: {Name: "fence", Opcode: OpcodeMiscMem, Format: FormatI, Class: ClassFence, Syntax: SyntaxFence},
	OpECALL: {Name: "ecall", Opcode: OpcodeSystem, Format: FormatI, Class: ClassSystem,
		Syntax: SyntaxNone, MatchImm: true, Imm: 0},
	OpEBREAK: {Name: "ebreak", Opcode: OpcodeSystem, Format: FormatI, Class: ClassSystem,
		Syntax: SyntaxNone, MatchImm: true, Imm: 1},

	OpMUL:    op("mul", 0, 0x01, ClassMultiply),
	OpMULH:   op("mulh", 1, 0x01, ClassMultiply),
	OpMULHSU: op("mulhsu", 2, 0x01, ClassMultiply),
	OpMULHU:  op("mulhu", 3, 0x01, ClassMultiply),
	OpDIV:    op("div", 4, 0x01, ClassDivide),
	OpDIVU:   op("divu", 5, 0x01, ClassDivide),
	OpREM:    op("rem", 6, 0x01, ClassDivide),
	OpREMU:   op("remu", 7, 0x01, ClassDivide),

	OpFLW: {Name: "flw", Opcode: OpcodeLoadFP, Format: FormatI, Class: ClassLoad,
		Syntax: SyntaxRegMem, Funct3: 2, RdClass: RegF},
	OpFSW: {Name: "fsw", Opcode: OpcodeStoreFP, Format: FormatS, Class: ClassStore,
		Syntax: SyntaxStore, Funct3: 2, Rs2Class: RegF},

	OpFADDS:   fpRounded("fadd.s", 0, ClassFloat),
	OpFSUBS:   fpRounded("fsub.s", 1, ClassFloat),
	OpFMULS:   fpRounded("fmul.s", 2, ClassFloat),
	OpFDIVS:   fpRounded("fdiv.s", 3, ClassFloatDivide),
	OpFSQRTS:  fpUnary("fsqrt.s", 11, 0, true, 0, ClassFloatSqrt, RegF, RegF),
	OpFSGNJS:  fp("fsgnj.s", 4, 0, RegF),
	OpFSGNJNS: fp("fsgnjn.s", 4, 1, RegF),
	OpFSGNJXS: fp("fsgnjx.s", 4, 2, RegF),
	OpFMINS:   fp("fmin.s", 5, 0, RegF),
	OpFMAXS:   fp("fmax.s", 5, 1, RegF),
	OpFCVTWS:  fpUnary("fcvt.w.s", 24, 0, true, 0, ClassFloat, RegX, RegF),
	OpFCVTWUS: fpUnary("fcvt.wu.s", 24, 1, true, 0, ClassFloat, RegX, RegF),
	OpFMVXW:   fpUnary("fmv.x.w", 28, 0, false, 0, ClassFloat, RegX, RegF),
	OpFCLASSS: fpUnary("fclass.s", 28, 0, false, 1, ClassFloat, RegX, RegF),
	OpFEQS:    fp("feq.s", 20, 2, RegX),
	OpFLTS:    fp("flt.s", 20, 1, RegX),
	OpFLES:    fp("fle.s", 20, 0, RegX),
	OpFCVTSW:  fpUnary("fcvt.s.w", 26, 0, true, 0, ClassFloat, RegF, RegX),
	OpFCVTSWU: fpUnary("fcvt.s.wu", 26, 1, true, 0, ClassFloat, RegF, RegX),
	OpFMVWX:   fpUnary("fmv.w.x", 30, 0, false, 0, ClassFloat, RegF, RegX),

	OpCSRRW:  csr("csrrw", 1, SyntaxCSR),
	OpCSRRS:  csr("csrrs", 2, SyntaxCSR),
	OpCSRRC:  csr("csrrc", 3, SyntaxCSR),
	OpCSRRWI: csr("csrrwi", 5, SyntaxCSRImm),
	OpCSRRSI: csr("csrrsi", 6, SyntaxCSRImm),
	OpCSRRCI: csr("csrrci", 7, SyntaxCSRImm),
}

func branch(name string, funct3 uint8) Info {
	return Info{Name: name, Opcode: OpcodeBranch, Format: FormatB, Class: ClassBranch,
		Syntax: SyntaxBranch, Funct3: funct3}
}

func load(name string, funct3 uint8) Info {
	return Info{Name: name, Opcode: OpcodeLoad, Format: FormatI, Class: ClassLoad,
		Syntax: SyntaxRegMem, Funct3: funct3}
}

func store(name string, funct3 uint8) Info {
	return Info{Name: name, Opcode: OpcodeStore, Format: FormatS, Class: ClassStore,
		Syntax: SyntaxStore, Funct3: funct3}
}

func opImm(name string, funct3 uint8) Info {
	return Info{Name: name, Opcode: OpcodeOpImm, Format: FormatI, Class: ClassALU,
		Syntax: SyntaxRegRegImm, Funct3: funct3}
}

func shiftImm(name string, funct3, funct7 uint8) Info {
	return Info{Name: name, Opcode: OpcodeOpImm, Format: FormatI, Class: ClassALU,
		Syntax: SyntaxRegRegImm, Funct3: funct3, Funct7: funct7, MatchFunct7: true}
}

func op(name string, funct3, funct7 uint8, class Class) Info {
	return Info{Name: name, Opcode: OpcodeOp, Format: FormatR, Class: class,
		Syntax: SyntaxRegRegReg, Funct3: funct3, Funct7: funct7}
}

// fpRounded describes a two-source OP-FP operation whose funct3 is a
// rounding mode.
func fpRounded(name string, funct5 uint8, class Class) Info {
	return Info{Name: name, Opcode: OpcodeOpFP, Format: FormatR, Class: class,
		Syntax: SyntaxRegRegReg, Funct7: funct5 << 2, AnyFunct3: true,
		RdClass: RegF, Rs1Class: RegF, Rs2Class: RegF}
}

// fp describes a two-source OP-FP operation with a fixed funct3.
func fp(name string, funct5, funct3 uint8, rd RegClass) Info {
	return Info{Name: name, Opcode: OpcodeOpFP, Format: FormatR, Class: ClassFloat,
		Syntax: SyntaxRegRegReg, Funct7: funct5 << 2, Funct3: funct3,
		RdClass: rd, Rs1Class: RegF, Rs2Class: RegF}
}

// fpUnary describes a single-source OP-FP operation selected by rs2.
func fpUnary(name string, funct5, rs2 uint8, rounded bool, funct3 uint8,
	class Class, rd, rs1 RegClass) Info {
	return Info{Name: name, Opcode: OpcodeOpFP, Format: FormatR, Class: class,
		Syntax: SyntaxRegReg, Funct7: funct5 << 2, Funct3: funct3, AnyFunct3: rounded,
		Rs2: rs2, MatchRs2: true, RdClass: rd, Rs1Class: rs1}
}

func csr(name string, funct3 uint8, syntax Syntax) Info {
	return Info{Name: name, Opcode: OpcodeSystem, Format: FormatI, Class: ClassCSR,
		Syntax: syntax, Funct3: funct3}
}

// Info returns the static encoding description of the operation.
func (o Op) Info() Info {
	if o >= numOps {
		return infos[OpUnknown]
	}
	return infos[o]
}

// String returns the assembler mnemonic.
func (o Op) String() string {
	return o.Info().Name
}

// Lookup finds an operation by mnemonic.
func Lookup(name string) (Op, bool) {
	o, ok := byName[name]
	return o, ok
}

var (
	byOpcode = map[Opcode][]Op{}
	byName   = map[string]Op{}
)

func init() {
	for o := OpUnknown + 1; o < numOps; o++ {
		info := infos[o]
		byOpcode[info.Opcode] = append(byOpcode[info.Opcode], o)
		byName[info.Name] = o
	}
}

// Instruction represents a decoded RV32 instruction.
type Instruction struct {
	Op     Op
	Format Format
	Word   uint32

	Rd     uint8
	Rs1    uint8
	Rs2    uint8
	Funct3 uint8
	Funct7 uint8

	// Imm is the sign-extended immediate for I, S, B, U and J formats.
	// For U format it is the 20-bit value before the shift by 12.
	Imm int32
}

// Info returns the static description of the decoded operation.
func (i Instruction) Info() Info {
	return i.Op.Info()
}

// CSR returns the unsigned 12-bit CSR address of a Zicsr instruction.
func (i Instruction) CSR() uint16 {
	return uint16(i.Word >> 20)
}

// Shamt returns the shift amount of an immediate shift.
func (i Instruction) Shamt() uint8 {
	return i.Rs2
}

// Decoder decodes RV32 machine code into instructions.
type Decoder struct{}

// NewDecoder creates a new RV32 instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode classifies a 32-bit instruction word. Words that match no known
// operation decode with Op set to OpUnknown. The result is returned by
// value so decoding on the step path does not allocate.
func (d *Decoder) Decode(word uint32) Instruction {
	inst := Instruction{Op: OpUnknown, Format: FormatUnknown, Word: word}

	for _, o := range byOpcode[OpcodeOf(word)] {
		if d.matches(infos[o], word) {
			inst.Op = o
			d.fill(&inst, infos[o].Format)
			break
		}
	}

	return inst
}

func (d *Decoder) matches(info Info, word uint32) bool {
	// U and J words carry immediate bits where funct3 would be.
	hasFunct3 := info.Format != FormatU && info.Format != FormatJ
	if hasFunct3 && !info.AnyFunct3 && funct3Of(word) != info.Funct3 {
		return false
	}

	switch info.Format {
	case FormatR:
		if funct7Of(word) != info.Funct7 {
			return false
		}
	case FormatI:
		if info.MatchFunct7 && funct7Of(word) != info.Funct7 {
			return false
		}
	}

	if info.MatchRs2 && rs2Of(word) != info.Rs2 {
		return false
	}

	if info.MatchImm && (word>>20 != info.Imm || rs1Of(word) != 0 || rdOf(word) != 0) {
		return false
	}

	return true
}

func (d *Decoder) fill(inst *Instruction, format Format) {
	w := inst.Word
	inst.Format = format

	switch format {
	case FormatR:
		r := DecodeR(w)
		inst.Rd, inst.Rs1, inst.Rs2, inst.Funct3, inst.Funct7 = r.Rd, r.Rs1, r.Rs2, r.Funct3, r.Funct7
	case FormatI:
		i := DecodeI(w)
		inst.Rd, inst.Rs1, inst.Funct3, inst.Imm = i.Rd, i.Rs1, i.Funct3, i.Imm
		inst.Rs2 = rs2Of(w)
		inst.Funct7 = funct7Of(w)
	case FormatS:
		s := DecodeS(w)
		inst.Rs1, inst.Rs2, inst.Funct3, inst.Imm = s.Rs1, s.Rs2, s.Funct3, s.Imm
	case FormatB:
		b := DecodeB(w)
		inst.Rs1, inst.Rs2, inst.Funct3, inst.Imm = b.Rs1, b.Rs2, b.Funct3, b.Imm
	case FormatU:
		u := DecodeU(w)
		inst.Rd, inst.Imm = u.Rd, u.Imm
	case FormatJ:
		j := DecodeJ(w)
		inst.Rd, inst.Imm = j.Rd, j.Imm
	}
}
