package asm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sarchlab/rv32sim/insts"
)

// Immediate field widths in bits.
const (
	immBitsI      = 12
	immBitsS      = 12
	immBitsB      = 13
	immBitsU      = 20
	immBitsJ      = 21
	shamtMax      = 31
	csrMax        = 4095
	uimmMax       = 31
	fenceMaskMax  = 15
	roundingMax   = 7
	fenceAllMask  = 0b1111
	fenceTSOMasks = 0b0011
)

var abiNames = map[string]uint8{
	"zero": 0, "ra": 1, "sp": 2, "gp": 3, "tp": 4,
	"t0": 5, "t1": 6, "t2": 7, "s0": 8, "fp": 8, "s1": 9,
	"a0": 10, "a1": 11, "a2": 12, "a3": 13, "a4": 14, "a5": 15, "a6": 16, "a7": 17,
	"s2": 18, "s3": 19, "s4": 20, "s5": 21, "s6": 22, "s7": 23,
	"s8": 24, "s9": 25, "s10": 26, "s11": 27,
	"t3": 28, "t4": 29, "t5": 30, "t6": 31,
}

var roundingNames = []string{"rne", "rtz", "rdn", "rup", "rmm", "", "", "dyn"}

// line is a tokenised instruction line.
type line struct {
	text     string
	mnemonic string
	operands []string
	pc       uint32
	labels   map[string]uint32
}

func assembleLine(text string, pc uint32, labels map[string]uint32) (uint32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, fmt.Errorf("%w: empty line", ErrSyntax)
	}

	mnemonic, rest := text, ""
	if i := strings.IndexAny(text, " \t"); i >= 0 {
		mnemonic, rest = text[:i], text[i+1:]
	}
	l := &line{
		text:     text,
		mnemonic: strings.ToLower(mnemonic),
		pc:       pc,
		labels:   labels,
	}
	if rest = strings.TrimSpace(rest); rest != "" {
		for _, op := range strings.Split(rest, ",") {
			l.operands = append(l.operands, strings.TrimSpace(op))
		}
	}

	switch l.mnemonic {
	case "fence.tso":
		if err := l.want(0); err != nil {
			return 0, err
		}
		return insts.Assemble(insts.OpcodeMiscMem,
			insts.Fence{FM: insts.FenceModeTSO, Pred: fenceTSOMasks, Succ: fenceTSOMasks}), nil
	case "pause":
		if err := l.want(0); err != nil {
			return 0, err
		}
		return insts.Assemble(insts.OpcodeMiscMem, insts.Fence{Pred: 0b0001}), nil
	}

	op, ok := insts.Lookup(l.mnemonic)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownMnemonic, mnemonic)
	}

	return l.encode(op.Info())
}

func (l *line) encode(info insts.Info) (uint32, error) {
	switch info.Syntax {
	case insts.SyntaxNone:
		if err := l.want(0); err != nil {
			return 0, err
		}
		return insts.Assemble(info.Opcode, insts.IType{Imm: int32(info.Imm), Funct3: info.Funct3}), nil
	case insts.SyntaxRegRegReg:
		return l.regRegReg(info)
	case insts.SyntaxRegRegImm:
		return l.regRegImm(info)
	case insts.SyntaxRegImm:
		return l.regImm(info)
	case insts.SyntaxRegMem:
		return l.regMem(info)
	case insts.SyntaxStore:
		return l.store(info)
	case insts.SyntaxBranch:
		return l.branch(info)
	case insts.SyntaxRegReg:
		return l.regReg(info)
	case insts.SyntaxFence:
		return l.fence(info)
	case insts.SyntaxCSR, insts.SyntaxCSRImm:
		return l.csr(info)
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMnemonic, l.mnemonic)
	}
}

func (l *line) regRegReg(info insts.Info) (uint32, error) {
	hasRM, err := l.wantRounding(info, 3)
	if err != nil {
		return 0, err
	}
	rd, err := l.reg(0, info.RdClass)
	if err != nil {
		return 0, err
	}
	rs1, err := l.reg(1, info.Rs1Class)
	if err != nil {
		return 0, err
	}
	rs2, err := l.reg(2, info.Rs2Class)
	if err != nil {
		return 0, err
	}
	funct3, err := l.funct3(info, hasRM)
	if err != nil {
		return 0, err
	}

	return insts.Assemble(info.Opcode, insts.RType{
		Funct7: info.Funct7, Rs2: rs2, Rs1: rs1, Funct3: funct3, Rd: rd,
	}), nil
}

func (l *line) regReg(info insts.Info) (uint32, error) {
	hasRM, err := l.wantRounding(info, 2)
	if err != nil {
		return 0, err
	}
	rd, err := l.reg(0, info.RdClass)
	if err != nil {
		return 0, err
	}
	rs1, err := l.reg(1, info.Rs1Class)
	if err != nil {
		return 0, err
	}
	funct3, err := l.funct3(info, hasRM)
	if err != nil {
		return 0, err
	}

	return insts.Assemble(info.Opcode, insts.RType{
		Funct7: info.Funct7, Rs2: info.Rs2, Rs1: rs1, Funct3: funct3, Rd: rd,
	}), nil
}

func (l *line) regRegImm(info insts.Info) (uint32, error) {
	if err := l.want(3); err != nil {
		return 0, err
	}
	rd, err := l.reg(0, insts.RegX)
	if err != nil {
		return 0, err
	}
	rs1, err := l.reg(1, insts.RegX)
	if err != nil {
		return 0, err
	}

	var imm int32
	if info.MatchFunct7 {
		shamt, err := l.unsigned(2, shamtMax)
		if err != nil {
			return 0, err
		}
		imm = int32(info.Funct7)<<5 | int32(shamt)
	} else if imm, err = l.signed(2, immBitsI); err != nil {
		return 0, err
	}

	return insts.Assemble(info.Opcode, insts.IType{Imm: imm, Rs1: rs1, Funct3: info.Funct3, Rd: rd}), nil
}

func (l *line) regImm(info insts.Info) (uint32, error) {
	if err := l.want(2); err != nil {
		return 0, err
	}
	rd, err := l.reg(0, insts.RegX)
	if err != nil {
		return 0, err
	}

	if info.Format == insts.FormatJ {
		imm, err := l.target(1, immBitsJ)
		if err != nil {
			return 0, err
		}
		return insts.Assemble(info.Opcode, insts.JType{Imm: imm, Rd: rd}), nil
	}

	imm, err := l.signed(1, immBitsU)
	if err != nil {
		return 0, err
	}
	return insts.Assemble(info.Opcode, insts.UType{Imm: imm, Rd: rd}), nil
}

func (l *line) regMem(info insts.Info) (uint32, error) {
	if err := l.want(2); err != nil {
		return 0, err
	}
	rd, err := l.reg(0, info.RdClass)
	if err != nil {
		return 0, err
	}
	imm, rs1, err := l.mem(1, immBitsI)
	if err != nil {
		return 0, err
	}

	return insts.Assemble(info.Opcode, insts.IType{Imm: imm, Rs1: rs1, Funct3: info.Funct3, Rd: rd}), nil
}

func (l *line) store(info insts.Info) (uint32, error) {
	if err := l.want(2); err != nil {
		return 0, err
	}
	rs2, err := l.reg(0, info.Rs2Class)
	if err != nil {
		return 0, err
	}
	imm, rs1, err := l.mem(1, immBitsS)
	if err != nil {
		return 0, err
	}

	return insts.Assemble(info.Opcode, insts.SType{Imm: imm, Rs2: rs2, Rs1: rs1, Funct3: info.Funct3}), nil
}

func (l *line) branch(info insts.Info) (uint32, error) {
	if err := l.want(3); err != nil {
		return 0, err
	}
	rs1, err := l.reg(0, insts.RegX)
	if err != nil {
		return 0, err
	}
	rs2, err := l.reg(1, insts.RegX)
	if err != nil {
		return 0, err
	}
	imm, err := l.target(2, immBitsB)
	if err != nil {
		return 0, err
	}

	return insts.Assemble(info.Opcode, insts.BType{Imm: imm, Rs2: rs2, Rs1: rs1, Funct3: info.Funct3}), nil
}

func (l *line) fence(info insts.Info) (uint32, error) {
	f := insts.Fence{Pred: fenceAllMask, Succ: fenceAllMask, Funct3: info.Funct3}

	switch len(l.operands) {
	case 0:
	case 2:
		pred, err := l.unsigned(0, fenceMaskMax)
		if err != nil {
			return 0, err
		}
		succ, err := l.unsigned(1, fenceMaskMax)
		if err != nil {
			return 0, err
		}
		f.Pred, f.Succ = uint8(pred), uint8(succ)
	default:
		return 0, l.operandCount(2)
	}

	return insts.Assemble(info.Opcode, f), nil
}

func (l *line) csr(info insts.Info) (uint32, error) {
	if err := l.want(3); err != nil {
		return 0, err
	}
	rd, err := l.reg(0, insts.RegX)
	if err != nil {
		return 0, err
	}
	addr, err := l.unsigned(1, csrMax)
	if err != nil {
		return 0, err
	}

	var src uint8
	if info.Syntax == insts.SyntaxCSRImm {
		uimm, err := l.unsigned(2, uimmMax)
		if err != nil {
			return 0, err
		}
		src = uint8(uimm)
	} else if src, err = l.reg(2, insts.RegX); err != nil {
		return 0, err
	}

	return insts.Assemble(info.Opcode, insts.IType{
		Imm: insts.SignExtend(addr, immBitsI), Rs1: src, Funct3: info.Funct3, Rd: rd,
	}), nil
}

func (l *line) want(n int) error {
	if len(l.operands) != n {
		return l.operandCount(n)
	}
	return nil
}

// wantRounding accepts n operands plus, for operations that carry one, an
// optional trailing rounding mode.
func (l *line) wantRounding(info insts.Info, n int) (bool, error) {
	if info.AnyFunct3 && len(l.operands) == n+1 {
		return true, nil
	}
	return false, l.want(n)
}

func (l *line) operandCount(n int) error {
	return fmt.Errorf("%w: %q expects %d operands, got %d", ErrSyntax, l.mnemonic, n, len(l.operands))
}

func (l *line) funct3(info insts.Info, hasRM bool) (uint8, error) {
	switch {
	case !info.AnyFunct3:
		return info.Funct3, nil
	case hasRM:
		return l.rounding(len(l.operands) - 1)
	default:
		return 0, nil
	}
}

func (l *line) rounding(i int) (uint8, error) {
	s := strings.ToLower(l.operands[i])
	for rm, name := range roundingNames {
		if name != "" && s == name {
			return uint8(rm), nil
		}
	}
	v, err := l.unsigned(i, roundingMax)
	if err != nil {
		return 0, err
	}
	return uint8(v), nil
}

func (l *line) reg(i int, class insts.RegClass) (uint8, error) {
	r, ok := parseReg(l.operands[i], class)
	if !ok {
		return 0, fmt.Errorf("%w: bad register %q", ErrSyntax, l.operands[i])
	}
	return r, nil
}

func parseReg(s string, class insts.RegClass) (uint8, bool) {
	s = strings.ToLower(strings.TrimSpace(s))

	prefix := "x"
	if class == insts.RegF {
		prefix = "f"
	} else if r, ok := abiNames[s]; ok {
		return r, true
	}

	if !strings.HasPrefix(s, prefix) {
		return 0, false
	}
	n, err := strconv.ParseUint(s[len(prefix):], 10, 8)
	if err != nil || n > 31 {
		return 0, false
	}
	return uint8(n), true
}

// signed parses a decimal immediate that must fit in a signed field of
// the given width.
func (l *line) signed(i int, bits uint) (int32, error) {
	v, err := strconv.ParseInt(l.operands[i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad immediate %q", ErrSyntax, l.operands[i])
	}
	lo, hi := -(int64(1) << (bits - 1)), int64(1)<<(bits-1)-1
	if v < lo || v > hi {
		return 0, fmt.Errorf("%w: %d does not fit in %d signed bits", ErrImmediateRange, v, bits)
	}
	return int32(v), nil
}

func (l *line) unsigned(i int, max uint64) (uint32, error) {
	v, err := strconv.ParseUint(l.operands[i], 10, 64)
	if err != nil {
		if _, serr := strconv.ParseInt(l.operands[i], 10, 64); serr == nil {
			return 0, fmt.Errorf("%w: %s is negative", ErrImmediateRange, l.operands[i])
		}
		return 0, fmt.Errorf("%w: bad immediate %q", ErrSyntax, l.operands[i])
	}
	if v > max {
		return 0, fmt.Errorf("%w: %d exceeds %d", ErrImmediateRange, v, max)
	}
	return uint32(v), nil
}

// target parses a branch or jump offset: either a decimal byte offset or a
// label resolved relative to the instruction's address.
func (l *line) target(i int, bits uint) (int32, error) {
	s := l.operands[i]

	if addr, ok := l.labels[s]; ok {
		off := int64(addr) - int64(l.pc)
		lo, hi := -(int64(1) << (bits - 1)), int64(1)<<(bits-1)-1
		if off < lo || off > hi {
			return 0, fmt.Errorf("%w: label %q is %d bytes away", ErrImmediateRange, s, off)
		}
		return int32(off), nil
	}

	if isIdent(s) {
		return 0, fmt.Errorf("%w: %q", ErrUnknownLabel, s)
	}

	v, err := l.signed(i, bits)
	if err != nil {
		return 0, err
	}
	if v&1 != 0 {
		return 0, fmt.Errorf("%w: offset %d is odd", ErrImmediateRange, v)
	}
	return v, nil
}

// mem parses an imm(xN) operand.
func (l *line) mem(i int, bits uint) (int32, uint8, error) {
	s := l.operands[i]
	open := strings.IndexByte(s, '(')
	if open < 0 || !strings.HasSuffix(s, ")") {
		return 0, 0, fmt.Errorf("%w: bad memory operand %q", ErrSyntax, s)
	}

	immText := strings.TrimSpace(s[:open])
	if immText == "" {
		immText = "0"
	}

	tmp := &line{operands: []string{immText, s[open+1 : len(s)-1]}}
	imm, err := tmp.signed(0, bits)
	if err != nil {
		return 0, 0, err
	}
	rs1, err := tmp.reg(1, insts.RegX)
	if err != nil {
		return 0, 0, err
	}
	return imm, rs1, nil
}
