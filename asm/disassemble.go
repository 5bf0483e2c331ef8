package asm

import (
	"fmt"
	"strings"

	"github.com/sarchlab/rv32sim/insts"
)

var decoder = insts.NewDecoder()

// Disassemble renders a word in the syntax Assemble accepts. Words that do
// not decode render as Placeholder.
func Disassemble(word uint32) string {
	inst := decoder.Decode(word)
	if inst.Op == insts.OpUnknown {
		return Placeholder
	}

	info := inst.Info()
	name := info.Name

	switch info.Syntax {
	case insts.SyntaxNone:
		return name
	case insts.SyntaxRegRegReg:
		return withRounding(info, &inst, fmt.Sprintf("%s %s, %s, %s", name,
			reg(info.RdClass, inst.Rd), reg(info.Rs1Class, inst.Rs1), reg(info.Rs2Class, inst.Rs2)))
	case insts.SyntaxRegReg:
		return withRounding(info, &inst, fmt.Sprintf("%s %s, %s", name,
			reg(info.RdClass, inst.Rd), reg(info.Rs1Class, inst.Rs1)))
	case insts.SyntaxRegRegImm:
		imm := inst.Imm
		if info.MatchFunct7 {
			imm = int32(inst.Shamt())
		}
		return fmt.Sprintf("%s x%d, x%d, %d", name, inst.Rd, inst.Rs1, imm)
	case insts.SyntaxRegImm:
		return fmt.Sprintf("%s x%d, %d", name, inst.Rd, inst.Imm)
	case insts.SyntaxRegMem:
		return fmt.Sprintf("%s %s, %d(x%d)", name, reg(info.RdClass, inst.Rd), inst.Imm, inst.Rs1)
	case insts.SyntaxStore:
		return fmt.Sprintf("%s %s, %d(x%d)", name, reg(info.Rs2Class, inst.Rs2), inst.Imm, inst.Rs1)
	case insts.SyntaxBranch:
		return fmt.Sprintf("%s x%d, x%d, %d", name, inst.Rs1, inst.Rs2, inst.Imm)
	case insts.SyntaxFence:
		return fence(word)
	case insts.SyntaxCSR:
		return fmt.Sprintf("%s x%d, %d, x%d", name, inst.Rd, inst.CSR(), inst.Rs1)
	case insts.SyntaxCSRImm:
		return fmt.Sprintf("%s x%d, %d, %d", name, inst.Rd, inst.CSR(), inst.Rs1)
	default:
		return Placeholder
	}
}

// DisassembleProgram renders one line per word, prefixed by its address.
func DisassembleProgram(words []uint32, origin uint32) string {
	var b strings.Builder
	for i, w := range words {
		fmt.Fprintf(&b, "%08x:  %08x  %s\n", origin+uint32(i)*4, w, Disassemble(w))
	}
	return b.String()
}

func reg(class insts.RegClass, r uint8) string {
	if class == insts.RegF {
		return fmt.Sprintf("f%d", r)
	}
	return fmt.Sprintf("x%d", r)
}

func withRounding(info insts.Info, inst *insts.Instruction, text string) string {
	if !info.AnyFunct3 || inst.Funct3 == 0 {
		return text
	}
	if name := roundingNames[inst.Funct3]; name != "" {
		return text + ", " + name
	}
	return fmt.Sprintf("%s, %d", text, inst.Funct3)
}

func fence(word uint32) string {
	f := insts.DecodeFence(word)
	switch {
	case f.IsTSO() && f.Rs1 == 0 && f.Rd == 0:
		return "fence.tso"
	case f.IsPause():
		return "pause"
	default:
		return fmt.Sprintf("fence %d, %d", f.Pred, f.Succ)
	}
}
