// Package latency provides per-class instruction timing for the
// cycle-approximate core.
//
// Latency values can be configured via TimingConfig.
package latency

import (
	"math"

	"github.com/sarchlab/rv32sim/insts"
)

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// GetLatency returns the execution latency in cycles for the given instruction.
// For variable-latency operations, returns the expected (maximum) latency.
func (t *Table) GetLatency(inst *insts.Instruction) uint64 {
	if inst == nil {
		return t.config.UnknownLatency
	}

	switch inst.Info().Class {
	case insts.ClassALU:
		return t.config.ALULatency
	case insts.ClassBranch:
		return t.config.BranchLatency
	case insts.ClassJump:
		return t.config.JumpLatency
	case insts.ClassLoad:
		return t.config.LoadLatency
	case insts.ClassStore:
		return t.config.StoreLatency
	case insts.ClassMultiply:
		return t.config.MultiplyLatency
	case insts.ClassDivide:
		return t.config.DivideLatencyMax
	case insts.ClassFloat:
		return t.config.FloatLatency
	case insts.ClassFloatDivide:
		return t.config.FloatDivideLatency
	case insts.ClassFloatSqrt:
		return t.config.FloatSqrtLatency
	case insts.ClassCSR:
		return t.config.CSRLatency
	case insts.ClassSystem:
		return t.config.SyscallLatency
	case insts.ClassFence:
		return t.config.FenceLatency
	default:
		return t.config.UnknownLatency
	}
}

// GetOperandLatency refines GetLatency with the source operand values read
// before execution. Divides that produce a sentinel result finish early and
// taken branches pay the redirect penalty.
func (t *Table) GetOperandLatency(inst *insts.Instruction, lhs, rhs int32) uint64 {
	if inst == nil {
		return t.config.UnknownLatency
	}

	switch inst.Info().Class {
	case insts.ClassDivide:
		if rhs == 0 {
			return t.config.DivideLatencyMin
		}
		signed := inst.Op == insts.OpDIV || inst.Op == insts.OpREM
		if signed && lhs == math.MinInt32 && rhs == -1 {
			return t.config.DivideLatencyMin
		}
		return t.config.DivideLatencyMax
	case insts.ClassBranch:
		if branchTaken(inst.Op, lhs, rhs) {
			return t.config.BranchLatency + t.config.BranchTakenPenalty
		}
		return t.config.BranchLatency
	default:
		return t.GetLatency(inst)
	}
}

// GetMinLatency returns the minimum execution latency for variable-latency operations.
func (t *Table) GetMinLatency(inst *insts.Instruction) uint64 {
	if inst == nil {
		return t.config.UnknownLatency
	}

	if inst.Info().Class == insts.ClassDivide {
		return t.config.DivideLatencyMin
	}
	return t.GetLatency(inst)
}

// GetMaxLatency returns the maximum execution latency for variable-latency operations.
func (t *Table) GetMaxLatency(inst *insts.Instruction) uint64 {
	if inst == nil {
		return t.config.UnknownLatency
	}

	if inst.Info().Class == insts.ClassBranch {
		return t.config.BranchLatency + t.config.BranchTakenPenalty
	}
	return t.GetLatency(inst)
}

// IsMemoryOp returns true if the instruction accesses memory.
func (t *Table) IsMemoryOp(inst *insts.Instruction) bool {
	return t.IsLoadOp(inst) || t.IsStoreOp(inst)
}

// IsLoadOp returns true if the instruction is a load operation.
func (t *Table) IsLoadOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	return inst.Info().Class == insts.ClassLoad
}

// IsStoreOp returns true if the instruction is a store operation.
func (t *Table) IsStoreOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	return inst.Info().Class == insts.ClassStore
}

// IsBranchOp returns true if the instruction is a branch or jump.
func (t *Table) IsBranchOp(inst *insts.Instruction) bool {
	if inst == nil {
		return false
	}
	class := inst.Info().Class
	return class == insts.ClassBranch || class == insts.ClassJump
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}

func branchTaken(op insts.Op, lhs, rhs int32) bool {
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
