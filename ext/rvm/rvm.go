// Package rvm implements the RV32M integer multiply/divide extension.
//
// Division follows the RISC-V sentinel convention: dividing by zero yields
// all ones (-1 signed, 0xFFFFFFFF unsigned) and the remainder is the
// dividend; INT_MIN / -1 yields INT_MIN with remainder 0. No operation
// traps.
package rvm

import (
	"math"

	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/insts"
)

// Name is the extension name used for dispatch reporting.
const Name = "m"

// Extension executes OP-opcode words with funct7 == 1.
type Extension struct{}

// New creates the M extension.
func New() *Extension {
	return &Extension{}
}

// Name returns the extension name.
func (x *Extension) Name() string {
	return Name
}

// Execute runs an M-extension word against the base register file.
func (x *Extension) Execute(word uint32, base *emu.Base) emu.Outcome {
	if insts.OpcodeOf(word) != insts.OpcodeOp {
		return emu.NotRecognized
	}

	inst := base.Decode(word)
	result, ok := Compute(inst.Op, base.Get(inst.Rs1), base.Get(inst.Rs2))
	if !ok {
		return emu.NotRecognized
	}

	base.Set(inst.Rd, result)
	return emu.Handled
}

// Compute evaluates an M-extension operation.
func Compute(op insts.Op, lhs, rhs int32) (int32, bool) {
	switch op {
	case insts.OpMUL:
		return lhs * rhs, true
	case insts.OpMULH:
		return int32((int64(lhs) * int64(rhs)) >> 32), true
	case insts.OpMULHSU:
		return int32((int64(lhs) * int64(uint32(rhs))) >> 32), true
	case insts.OpMULHU:
		return int32((uint64(uint32(lhs)) * uint64(uint32(rhs))) >> 32), true
	case insts.OpDIV:
		return div(lhs, rhs), true
	case insts.OpDIVU:
		return int32(divu(uint32(lhs), uint32(rhs))), true
	case insts.OpREM:
		return rem(lhs, rhs), true
	case insts.OpREMU:
		return int32(remu(uint32(lhs), uint32(rhs))), true
	default:
		return 0, false
	}
}

func div(lhs, rhs int32) int32 {
	switch {
	case rhs == 0:
		return -1
	case lhs == math.MinInt32 && rhs == -1:
		return math.MinInt32
	default:
		return lhs / rhs
	}
}

func divu(lhs, rhs uint32) uint32 {
	if rhs == 0 {
		return math.MaxUint32
	}
	return lhs / rhs
}

func rem(lhs, rhs int32) int32 {
	switch {
	case rhs == 0:
		return lhs
	case lhs == math.MinInt32 && rhs == -1:
		return 0
	default:
		return lhs % rhs
	}
}

func remu(lhs, rhs uint32) uint32 {
	if rhs == 0 {
		return lhs
	}
	return lhs % rhs
}
