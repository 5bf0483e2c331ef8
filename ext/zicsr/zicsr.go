// Package zicsr implements the Zicsr control/status register extension.
//
// The CSR space is 4096 word-sized registers addressed by the 12-bit csr
// field. Addresses whose top two bits are 0b11 are read-only: an
// instruction that would write one is not recognized and changes nothing.
package zicsr

import (
	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/insts"
)

// Name is the extension name used for dispatch reporting.
const Name = "zicsr"

// NumCSRs is the size of the CSR address space.
const NumCSRs = 4096

// Unprivileged counter CSRs.
const (
	CSRCycle    uint16 = 0xC00
	CSRTime     uint16 = 0xC01
	CSRInstret  uint16 = 0xC02
	CSRCycleH   uint16 = 0xC80
	CSRTimeH    uint16 = 0xC81
	CSRInstretH uint16 = 0xC82
)

// CSRFile is the private CSR storage.
type CSRFile struct {
	regs [NumCSRs]uint32
}

// Get reads a CSR.
func (f *CSRFile) Get(addr uint16) uint32 {
	return f.regs[addr%NumCSRs]
}

// Set writes a CSR, bypassing the read-only check. It is meant for the
// simulator itself, not for guest instructions.
func (f *CSRFile) Set(addr uint16, v uint32) {
	f.regs[addr%NumCSRs] = v
}

// ReadOnly reports whether guest writes to addr are illegal.
func ReadOnly(addr uint16) bool {
	return (addr>>10)&0b11 == 0b11
}

// Extension executes the six CSR read-modify-write forms.
type Extension struct {
	csrs *CSRFile
}

// New creates the Zicsr extension with all CSRs zeroed.
func New() *Extension {
	return &Extension{csrs: &CSRFile{}}
}

// Name returns the extension name.
func (x *Extension) Name() string {
	return Name
}

// CSRFile returns the CSR storage.
func (x *Extension) CSRFile() *CSRFile {
	return x.csrs
}

// SetCounters publishes cycle and retired-instruction counts through the
// read-only counter CSRs. time mirrors cycle.
func (x *Extension) SetCounters(cycles, instret uint64) {
	x.csrs.Set(CSRCycle, uint32(cycles))
	x.csrs.Set(CSRCycleH, uint32(cycles>>32))
	x.csrs.Set(CSRTime, uint32(cycles))
	x.csrs.Set(CSRTimeH, uint32(cycles>>32))
	x.csrs.Set(CSRInstret, uint32(instret))
	x.csrs.Set(CSRInstretH, uint32(instret>>32))
}

// Execute runs a CSR instruction.
func (x *Extension) Execute(word uint32, base *emu.Base) emu.Outcome {
	if insts.OpcodeOf(word) != insts.OpcodeSystem {
		return emu.NotRecognized
	}

	inst := base.Decode(word)
	addr := inst.CSR()

	var (
		operand uint32
		writes  bool
	)

	switch inst.Op {
	case insts.OpCSRRW:
		operand, writes = uint32(base.Get(inst.Rs1)), true
	case insts.OpCSRRS, insts.OpCSRRC:
		operand, writes = uint32(base.Get(inst.Rs1)), inst.Rs1 != 0
	case insts.OpCSRRWI:
		operand, writes = uint32(inst.Rs1), true
	case insts.OpCSRRSI, insts.OpCSRRCI:
		operand, writes = uint32(inst.Rs1), inst.Rs1 != 0
	default:
		return emu.NotRecognized
	}

	if writes && ReadOnly(addr) {
		return emu.NotRecognized
	}

	old := x.csrs.Get(addr)

	if writes {
		x.csrs.Set(addr, update(inst.Op, old, operand))
	}

	base.Set(inst.Rd, int32(old))
	return emu.Handled
}

func update(op insts.Op, old, operand uint32) uint32 {
	switch op {
	case insts.OpCSRRS, insts.OpCSRRSI:
		return old | operand
	case insts.OpCSRRC, insts.OpCSRRCI:
		return old &^ operand
	default:
		return operand
	}
}
