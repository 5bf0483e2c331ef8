// Package benchmarks provides timing benchmark infrastructure for rv32sim
// calibration.
package benchmarks

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-logr/logr"

	"github.com/sarchlab/rv32sim/asm"
	"github.com/sarchlab/rv32sim/config"
	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/timing/cache"
	"github.com/sarchlab/rv32sim/timing/core"
)

// ProgramBase is the address benchmark programs are assembled for.
const ProgramBase uint32 = 0x1000

// Version is reported in JSON benchmark reports.
const Version = "0.1.0"

// BenchmarkResult holds the timing results for a single benchmark run.
type BenchmarkResult struct {
	// Name identifies the benchmark
	Name string `json:"name"`

	// Description explains what the benchmark measures
	Description string `json:"description"`

	// SimulatedCycles is the total cycle count from the timing simulator
	SimulatedCycles uint64 `json:"simulated_cycles"`

	// InstructionsRetired is the number of completed instructions
	InstructionsRetired uint64 `json:"instructions_retired"`

	// CPI is cycles per instruction
	CPI float64 `json:"cpi"`

	// FetchStalls is cycles spent waiting on instruction cache misses
	FetchStalls uint64 `json:"fetch_stalls"`

	// MemStalls is cycles spent waiting on data cache misses
	MemStalls uint64 `json:"mem_stalls"`

	// BranchesTaken is the number of taken conditional branches
	BranchesTaken uint64 `json:"branches_taken"`

	// ICacheHits/Misses (if cache enabled)
	ICacheHits   uint64 `json:"icache_hits,omitempty"`
	ICacheMisses uint64 `json:"icache_misses,omitempty"`

	// DCacheHits/Misses (if cache enabled)
	DCacheHits   uint64 `json:"dcache_hits,omitempty"`
	DCacheMisses uint64 `json:"dcache_misses,omitempty"`

	// ExitCode is the program's exit code
	ExitCode int32 `json:"exit_code"`

	// Err describes a run that did not end with an exit syscall
	Err string `json:"error,omitempty"`

	// WallTime is the actual time taken to run the simulation
	WallTime time.Duration `json:"wall_time_ns"`
}

// Benchmark defines a single benchmark program.
type Benchmark struct {
	// Name identifies the benchmark
	Name string

	// Description explains what the benchmark measures
	Description string

	// Setup prepares the emulator state (e.g., initialize registers, memory)
	Setup func(e *emu.Emulator)

	// Source is the assembly text of the program, placed at ProgramBase
	Source string

	// ExpectedExit is the expected exit code (for validation)
	ExpectedExit int32
}

// HarnessConfig configures the benchmark harness.
type HarnessConfig struct {
	// EnableICache enables instruction cache simulation
	EnableICache bool

	// EnableDCache enables data cache simulation
	EnableDCache bool

	// EnableL2 places a unified L2 behind the L1 caches
	EnableL2 bool

	// Sim is the simulator configuration each benchmark starts from.
	// Nil means config.Default().
	Sim *config.Config

	// Output is where to write results (default: os.Stdout)
	Output io.Writer

	// Log receives per-benchmark progress when Verbose is set
	Log logr.Logger

	// Verbose enables detailed output
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() HarnessConfig {
	return HarnessConfig{
		EnableICache: true,
		EnableDCache: true,
		Output:       os.Stdout,
		Log:          logr.Discard(),
	}
}

// Harness runs timing benchmarks and reports results.
type Harness struct {
	config     HarnessConfig
	benchmarks []Benchmark
}

// NewHarness creates a new benchmark harness.
func NewHarness(config HarnessConfig) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &Harness{
		config:     config,
		benchmarks: []Benchmark{},
	}
}

// AddBenchmark adds a benchmark to the harness.
func (h *Harness) AddBenchmark(b Benchmark) {
	h.benchmarks = append(h.benchmarks, b)
}

// AddBenchmarks adds multiple benchmarks to the harness.
func (h *Harness) AddBenchmarks(benchmarks []Benchmark) {
	h.benchmarks = append(h.benchmarks, benchmarks...)
}

// RunAll executes all benchmarks and returns results.
func (h *Harness) RunAll() []BenchmarkResult {
	results := make([]BenchmarkResult, 0, len(h.benchmarks))

	for _, bench := range h.benchmarks {
		result := h.runBenchmark(bench)
		if h.config.Verbose {
			h.config.Log.Info("benchmark finished",
				"name", result.Name, "cycles", result.SimulatedCycles, "cpi", result.CPI)
		}
		results = append(results, result)
	}

	return results
}

// simConfig derives the simulator configuration for one run.
func (h *Harness) simConfig() *config.Config {
	cfg := config.Default()
	if h.config.Sim != nil {
		cfg = h.config.Sim.Clone()
	}

	if h.config.EnableICache && cfg.ICache == nil {
		icache := cache.DefaultL1IConfig()
		cfg.ICache = &icache
	}
	if h.config.EnableDCache && cfg.DCache == nil {
		dcache := cache.DefaultL1DConfig()
		cfg.DCache = &dcache
	}
	if h.config.EnableL2 && cfg.L2 == nil {
		l2 := cache.DefaultL2Config()
		cfg.L2 = &l2
	}
	if !h.config.EnableICache {
		cfg.ICache = nil
	}
	if !h.config.EnableDCache {
		cfg.DCache = nil
	}

	return cfg
}

// runBenchmark executes a single benchmark.
func (h *Harness) runBenchmark(bench Benchmark) BenchmarkResult {
	result := BenchmarkResult{
		Name:        bench.Name,
		Description: bench.Description,
	}

	words, err := asm.AssembleProgram(bench.Source, ProgramBase)
	if err != nil {
		result.Err = err.Error()
		return result
	}

	cfg := h.simConfig()
	e := emu.NewEmulator(append(cfg.EmulatorOptions(h.config.Log),
		emu.WithStdout(io.Discard), emu.WithStderr(io.Discard))...)
	defer e.Close()

	if err := e.LoadWords(ProgramBase, words...); err != nil {
		result.Err = err.Error()
		return result
	}
	e.Base().SetPC(ProgramBase)

	if bench.Setup != nil {
		bench.Setup(e)
	}

	c := core.NewCore(e, cfg.CoreOptions(h.config.Log)...)

	start := time.Now()
	final := c.Run()
	result.WallTime = time.Since(start)

	stats := c.Stats()
	result.SimulatedCycles = stats.Cycles
	result.InstructionsRetired = stats.Instructions
	result.CPI = stats.CPI()
	result.FetchStalls = stats.FetchStalls
	result.MemStalls = stats.MemoryStalls
	result.BranchesTaken = stats.BranchesTaken
	result.ExitCode = final.ExitCode

	if stats.ICache != nil {
		result.ICacheHits = stats.ICache.Hits
		result.ICacheMisses = stats.ICache.Misses
	}
	if stats.DCache != nil {
		result.DCacheHits = stats.DCache.Hits
		result.DCacheMisses = stats.DCache.Misses
	}

	if !final.Exited {
		result.Err = describeStop(final)
	}

	return result
}

func describeStop(r emu.StepResult) string {
	switch {
	case r.Breakpoint:
		return fmt.Sprintf("breakpoint at 0x%X", r.PC)
	case r.Err != nil:
		return r.Err.Error()
	default:
		return "did not exit"
	}
}

// Validate compares each result with the benchmark's expected exit code.
func Validate(benchmarks []Benchmark, results []BenchmarkResult) error {
	var errs []error
	for i, r := range results {
		if r.Err != "" {
			errs = append(errs, fmt.Errorf("%s: %s", r.Name, r.Err))
			continue
		}
		if i < len(benchmarks) && r.ExitCode != benchmarks[i].ExpectedExit {
			errs = append(errs, fmt.Errorf("%s: exit code %d, expected %d",
				r.Name, r.ExitCode, benchmarks[i].ExpectedExit))
		}
	}
	return errors.Join(errs...)
}

// PrintResults outputs benchmark results in a human-readable format.
func (h *Harness) PrintResults(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output, "=== rv32sim Timing Benchmark Results ===")
	_, _ = fmt.Fprintln(h.config.Output, "")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "Benchmark: %s\n", r.Name)
		_, _ = fmt.Fprintf(h.config.Output, "  Description: %s\n", r.Description)
		_, _ = fmt.Fprintf(h.config.Output, "  Exit Code: %d\n", r.ExitCode)
		if r.Err != "" {
			_, _ = fmt.Fprintf(h.config.Output, "  Error: %s\n", r.Err)
		}
		_, _ = fmt.Fprintln(h.config.Output, "  --- Timing ---")
		_, _ = fmt.Fprintf(h.config.Output, "  Simulated Cycles:     %d\n", r.SimulatedCycles)
		_, _ = fmt.Fprintf(h.config.Output, "  Instructions Retired: %d\n", r.InstructionsRetired)
		_, _ = fmt.Fprintf(h.config.Output, "  CPI:                  %.3f\n", r.CPI)
		_, _ = fmt.Fprintf(h.config.Output, "  Fetch Stalls:         %d\n", r.FetchStalls)
		_, _ = fmt.Fprintf(h.config.Output, "  Mem Stalls:           %d\n", r.MemStalls)
		_, _ = fmt.Fprintf(h.config.Output, "  Branches Taken:       %d\n", r.BranchesTaken)

		if r.ICacheHits > 0 || r.ICacheMisses > 0 {
			_, _ = fmt.Fprintln(h.config.Output, "  --- I-Cache ---")
			_, _ = fmt.Fprintf(h.config.Output, "  Hits:   %d\n", r.ICacheHits)
			_, _ = fmt.Fprintf(h.config.Output, "  Misses: %d\n", r.ICacheMisses)
		}

		if r.DCacheHits > 0 || r.DCacheMisses > 0 {
			_, _ = fmt.Fprintln(h.config.Output, "  --- D-Cache ---")
			_, _ = fmt.Fprintf(h.config.Output, "  Hits:   %d\n", r.DCacheHits)
			_, _ = fmt.Fprintf(h.config.Output, "  Misses: %d\n", r.DCacheMisses)
		}

		_, _ = fmt.Fprintf(h.config.Output, "  Wall Time: %v\n", r.WallTime)
		_, _ = fmt.Fprintln(h.config.Output, "")
	}
}

// PrintCSV outputs benchmark results in CSV format for easy comparison.
func (h *Harness) PrintCSV(results []BenchmarkResult) {
	_, _ = fmt.Fprintln(h.config.Output,
		"name,cycles,instructions,cpi,fetch_stalls,mem_stalls,branches_taken,icache_hits,icache_misses,dcache_hits,dcache_misses,exit_code")

	for _, r := range results {
		_, _ = fmt.Fprintf(h.config.Output, "%s,%d,%d,%.3f,%d,%d,%d,%d,%d,%d,%d,%d\n",
			r.Name,
			r.SimulatedCycles,
			r.InstructionsRetired,
			r.CPI,
			r.FetchStalls,
			r.MemStalls,
			r.BranchesTaken,
			r.ICacheHits,
			r.ICacheMisses,
			r.DCacheHits,
			r.DCacheMisses,
			r.ExitCode,
		)
	}
}

// BenchmarkReport is the complete output format for benchmark results.
type BenchmarkReport struct {
	// Metadata about the benchmark run
	Metadata ReportMetadata `json:"metadata"`

	// Results is the list of individual benchmark results
	Results []BenchmarkResult `json:"results"`

	// Summary contains aggregate statistics
	Summary ReportSummary `json:"summary"`
}

// ReportMetadata contains information about the benchmark run.
type ReportMetadata struct {
	// Timestamp when the benchmark was run
	Timestamp string `json:"timestamp"`

	// Version of the simulator
	Version string `json:"version"`

	// Config describes the benchmark configuration
	Config BenchmarkConfig `json:"config"`
}

// BenchmarkConfig describes the harness configuration used.
type BenchmarkConfig struct {
	ICacheEnabled bool `json:"icache_enabled"`
	DCacheEnabled bool `json:"dcache_enabled"`
	L2Enabled     bool `json:"l2_enabled"`
}

// ReportSummary contains aggregate statistics across all benchmarks.
type ReportSummary struct {
	// TotalBenchmarks is the number of benchmarks run
	TotalBenchmarks int `json:"total_benchmarks"`

	// TotalCycles is the sum of all simulated cycles
	TotalCycles uint64 `json:"total_cycles"`

	// TotalInstructions is the sum of all instructions retired
	TotalInstructions uint64 `json:"total_instructions"`

	// AverageCPI is the average cycles per instruction
	AverageCPI float64 `json:"average_cpi"`

	// TotalWallTime is the total wall clock time for all benchmarks
	TotalWallTime time.Duration `json:"total_wall_time_ns"`
}

// PrintJSON outputs benchmark results in JSON format for automated comparison.
func (h *Harness) PrintJSON(results []BenchmarkResult) error {
	var totalCycles, totalInstructions uint64
	var totalWallTime time.Duration
	for _, r := range results {
		totalCycles += r.SimulatedCycles
		totalInstructions += r.InstructionsRetired
		totalWallTime += r.WallTime
	}

	avgCPI := float64(0)
	if totalInstructions > 0 {
		avgCPI = float64(totalCycles) / float64(totalInstructions)
	}

	report := BenchmarkReport{
		Metadata: ReportMetadata{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   Version,
			Config: BenchmarkConfig{
				ICacheEnabled: h.config.EnableICache,
				DCacheEnabled: h.config.EnableDCache,
				L2Enabled:     h.config.EnableL2,
			},
		},
		Results: results,
		Summary: ReportSummary{
			TotalBenchmarks:   len(results),
			TotalCycles:       totalCycles,
			TotalInstructions: totalInstructions,
			AverageCPI:        avgCPI,
			TotalWallTime:     totalWallTime,
		},
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
