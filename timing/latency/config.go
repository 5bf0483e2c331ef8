package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds latency values for each instruction class.
// Defaults approximate a simple in-order RV32 core.
type TimingConfig struct {
	// ALULatency is the execution latency for integer register and
	// immediate operations, including lui and auipc. Default: 1 cycle.
	ALULatency uint64 `json:"alu_latency"`

	// BranchLatency is the base latency of a conditional branch.
	// Default: 1 cycle.
	BranchLatency uint64 `json:"branch_latency"`

	// BranchTakenPenalty is added when a conditional branch is taken.
	// The core predicts not-taken. Default: 2 cycles.
	BranchTakenPenalty uint64 `json:"branch_taken_penalty"`

	// JumpLatency is the latency of jal and jalr, including the redirect.
	// Default: 2 cycles.
	JumpLatency uint64 `json:"jump_latency"`

	// LoadLatency is the load-to-use latency when no data cache is
	// modeled. Default: 3 cycles.
	LoadLatency uint64 `json:"load_latency"`

	// StoreLatency is the store latency when no data cache is modeled.
	// Default: 1 cycle.
	StoreLatency uint64 `json:"store_latency"`

	// MultiplyLatency covers mul, mulh, mulhsu and mulhu. Default: 3 cycles.
	MultiplyLatency uint64 `json:"multiply_latency"`

	// DivideLatencyMin is the latency of a divide or remainder whose
	// result is a sentinel (divide by zero, overflow). Default: 2 cycles.
	DivideLatencyMin uint64 `json:"divide_latency_min"`

	// DivideLatencyMax is the latency of any other divide or remainder.
	// Default: 20 cycles.
	DivideLatencyMax uint64 `json:"divide_latency_max"`

	// FloatLatency covers single-precision add, subtract, multiply,
	// conversions, moves and compares. Default: 4 cycles.
	FloatLatency uint64 `json:"float_latency"`

	// FloatDivideLatency is the latency of fdiv.s. Default: 12 cycles.
	FloatDivideLatency uint64 `json:"float_divide_latency"`

	// FloatSqrtLatency is the latency of fsqrt.s. Default: 16 cycles.
	FloatSqrtLatency uint64 `json:"float_sqrt_latency"`

	// CSRLatency is the latency of the Zicsr read-modify-write forms.
	// Default: 1 cycle.
	CSRLatency uint64 `json:"csr_latency"`

	// SyscallLatency is the latency of ecall and ebreak.
	// Default: 1 cycle (handling is external).
	SyscallLatency uint64 `json:"syscall_latency"`

	// FenceLatency is the latency of fence. Default: 1 cycle.
	FenceLatency uint64 `json:"fence_latency"`

	// UnknownLatency is charged for words no engine recognized.
	// Default: 1 cycle.
	UnknownLatency uint64 `json:"unknown_latency"`
}

// DefaultTimingConfig returns a TimingConfig with the default values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		ALULatency:         1,
		BranchLatency:      1,
		BranchTakenPenalty: 2,
		JumpLatency:        2,
		LoadLatency:        3,
		StoreLatency:       1,
		MultiplyLatency:    3,
		DivideLatencyMin:   2,
		DivideLatencyMax:   20,
		FloatLatency:       4,
		FloatDivideLatency: 12,
		FloatSqrtLatency:   16,
		CSRLatency:         1,
		SyscallLatency:     1,
		FenceLatency:       1,
		UnknownLatency:     1,
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Fields absent from the
// file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that every latency that must be charged is > 0.
func (c *TimingConfig) Validate() error {
	if c.ALULatency == 0 {
		return fmt.Errorf("alu_latency must be > 0")
	}
	if c.BranchLatency == 0 {
		return fmt.Errorf("branch_latency must be > 0")
	}
	if c.JumpLatency == 0 {
		return fmt.Errorf("jump_latency must be > 0")
	}
	if c.LoadLatency == 0 {
		return fmt.Errorf("load_latency must be > 0")
	}
	if c.StoreLatency == 0 {
		return fmt.Errorf("store_latency must be > 0")
	}
	if c.MultiplyLatency == 0 {
		return fmt.Errorf("multiply_latency must be > 0")
	}
	if c.DivideLatencyMin == 0 {
		return fmt.Errorf("divide_latency_min must be > 0")
	}
	if c.DivideLatencyMin > c.DivideLatencyMax {
		return fmt.Errorf("divide_latency_min must be <= divide_latency_max")
	}
	if c.FloatLatency == 0 || c.FloatDivideLatency == 0 || c.FloatSqrtLatency == 0 {
		return fmt.Errorf("float latencies must be > 0")
	}
	if c.CSRLatency == 0 {
		return fmt.Errorf("csr_latency must be > 0")
	}
	if c.SyscallLatency == 0 {
		return fmt.Errorf("syscall_latency must be > 0")
	}
	if c.FenceLatency == 0 {
		return fmt.Errorf("fence_latency must be > 0")
	}
	if c.UnknownLatency == 0 {
		return fmt.Errorf("unknown_latency must be > 0")
	}
	return nil
}

// Clone returns a copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
