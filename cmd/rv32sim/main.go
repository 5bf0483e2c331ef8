// Package main provides the rv32sim command-line driver.
// It loads an RV32 program (ELF32, flat image or assembly text) and runs it
// functionally or on the cycle-approximate core.
package main

import (
	"encoding/binary"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-logr/logr"

	"github.com/sarchlab/rv32sim/asm"
	"github.com/sarchlab/rv32sim/config"
	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/loader"
	"github.com/sarchlab/rv32sim/timing/cache"
	"github.com/sarchlab/rv32sim/timing/core"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

type flags struct {
	timing     bool
	configPath string
	verbosity  int
	raw        bool
	base       uint
	entry      uint
	extensions string
	max        uint64
	skip       bool
	icache     bool
	dcache     bool
	l2         bool
	disasm     bool
}

func parseFlags(args []string, stderr io.Writer) (*flags, *flag.FlagSet, error) {
	f := &flags{}
	fs := flag.NewFlagSet("rv32sim", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.BoolVar(&f.timing, "timing", false, "Enable timing simulation mode")
	fs.StringVar(&f.configPath, "config", "", "Path to simulator configuration JSON file")
	fs.IntVar(&f.verbosity, "v", 0, "Log verbosity (0 = info, 1 = debug)")
	fs.BoolVar(&f.raw, "raw", false, "Treat the program as a flat binary image")
	fs.UintVar(&f.base, "base", 0, "Load address of a raw image or assembly program")
	fs.UintVar(&f.entry, "entry", 0, "Override the entry point")
	fs.StringVar(&f.extensions, "ext", "", "Comma-separated extensions to install (m,f,zicsr)")
	fs.Uint64Var(&f.max, "max", 0, "Stop after this many instructions (0 = no limit)")
	fs.BoolVar(&f.skip, "skip-unsupported", false, "Step over words no engine recognizes")
	fs.BoolVar(&f.icache, "icache", false, "Model the default L1 instruction cache")
	fs.BoolVar(&f.dcache, "dcache", false, "Model the default L1 data cache")
	fs.BoolVar(&f.l2, "l2", false, "Model the default unified L2 cache")
	fs.BoolVar(&f.disasm, "disasm", false, "Print the disassembled program and exit")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: rv32sim [options] <program.elf|program.bin|program.s>\n")
		fmt.Fprintf(stderr, "\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return f, fs, nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	f, fs, err := parseFlags(args, stderr)
	if err != nil {
		return 2
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return 1
	}

	log := logr.FromSlogHandler(slog.NewTextHandler(stderr,
		&slog.HandlerOptions{Level: slog.Level(-f.verbosity)}))

	cfg, err := buildConfig(f, fs)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	programPath := fs.Arg(0)
	prog, err := loadProgram(programPath, f)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading program: %v\n", err)
		return 1
	}

	log.V(1).Info("program loaded",
		"path", programPath,
		"entry", fmt.Sprintf("0x%X", prog.EntryPoint),
		"segments", len(prog.Segments))

	if f.disasm {
		printDisassembly(stdout, prog)
		return 0
	}

	e := emu.NewEmulator(append(cfg.EmulatorOptions(log),
		emu.WithStdin(stdin), emu.WithStdout(stdout), emu.WithStderr(stderr))...)
	defer e.Close()

	if err := prog.LoadInto(e.Bus()); err != nil {
		fmt.Fprintf(stderr, "Error loading program: %v\n", err)
		return 1
	}

	entry := prog.EntryPoint
	if cfg.Entry != nil {
		entry = *cfg.Entry
	}
	e.Base().SetPC(entry)

	if cfg.EnableTiming {
		return runTiming(e, cfg, log, programPath, stdout, stderr)
	}
	return runEmulation(e, log, programPath, stderr)
}

// buildConfig starts from the config file (or the defaults) and applies
// the flags that were set explicitly.
func buildConfig(f *flags, fs *flag.FlagSet) (*config.Config, error) {
	cfg := config.Default()
	if f.configPath != "" {
		var err error
		if cfg, err = config.Load(f.configPath); err != nil {
			return nil, err
		}
	}

	var err error
	fs.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "timing":
			cfg.EnableTiming = f.timing
		case "entry":
			entry := uint32(f.entry)
			cfg.Entry = &entry
		case "ext":
			cfg.Extensions = splitExtensions(f.extensions)
		case "max":
			cfg.MaxInstructions = f.max
		case "skip-unsupported":
			cfg.SkipUnsupported = f.skip
		case "icache":
			cfg.ICache = enable(f.icache, cfg.ICache, cache.DefaultL1IConfig())
		case "dcache":
			cfg.DCache = enable(f.dcache, cfg.DCache, cache.DefaultL1DConfig())
		case "l2":
			cfg.L2 = enable(f.l2, cfg.L2, cache.DefaultL2Config())
		case "base":
			if f.base > 0xFFFFFFFF {
				err = fmt.Errorf("base 0x%X does not fit in 32 bits", f.base)
			}
		}
	})
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func splitExtensions(list string) []string {
	exts := []string{}
	for _, name := range strings.Split(list, ",") {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			exts = append(exts, name)
		}
	}
	return exts
}

func enable(on bool, current *cache.Config, fallback cache.Config) *cache.Config {
	if !on {
		return nil
	}
	if current != nil {
		return current
	}
	return &fallback
}

// loadProgram reads assembly text (.s), a flat image (-raw) or an ELF32.
func loadProgram(path string, f *flags) (*loader.Program, error) {
	base := uint32(f.base)

	switch {
	case strings.EqualFold(filepath.Ext(path), ".s"):
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read assembly: %w", err)
		}
		words, err := asm.AssembleProgram(string(src), base)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return loader.RawProgram(asm.Bytes(words), base), nil
	case f.raw:
		return loader.LoadRaw(path, base)
	default:
		return loader.Load(path)
	}
}

func printDisassembly(w io.Writer, prog *loader.Program) {
	for _, seg := range prog.Segments {
		if seg.Flags&loader.SegmentFlagExecute == 0 {
			continue
		}
		words := make([]uint32, len(seg.Data)/4)
		for i := range words {
			words[i] = binary.LittleEndian.Uint32(seg.Data[i*4:])
		}
		fmt.Fprint(w, asm.DisassembleProgram(words, seg.VirtAddr))
	}
}

// exitStatus maps the final step onto a process exit code.
func exitStatus(result emu.StepResult, stderr io.Writer) int {
	switch {
	case result.Exited:
		return int(result.ExitCode)
	case result.Breakpoint:
		fmt.Fprintf(stderr, "Breakpoint at PC=0x%X\n", result.PC)
		return 0
	case errors.Is(result.Err, emu.ErrMaxInstructions):
		fmt.Fprintf(stderr, "Stopped: %v\n", result.Err)
		return 0
	default:
		fmt.Fprintf(stderr, "Error: %v\n", result.Err)
		return 1
	}
}

// runEmulation runs the program in functional emulation mode.
func runEmulation(e *emu.Emulator, log logr.Logger, programPath string, stderr io.Writer) int {
	result := e.Run()

	log.V(1).Info("emulation finished",
		"program", programPath,
		"exitCode", result.ExitCode,
		"instructions", e.InstructionCount(),
		"unsupported", e.UnsupportedCount(),
		"outOfRange", e.Bus().OutOfRange())

	return exitStatus(result, stderr)
}

// runTiming runs the program on the cycle-approximate core and prints the
// timing report.
func runTiming(
	e *emu.Emulator,
	cfg *config.Config,
	log logr.Logger,
	programPath string,
	stdout, stderr io.Writer,
) int {
	c := core.NewCore(e, cfg.CoreOptions(log)...)
	result := c.Run()
	printReport(stdout, programPath, result, c.Stats())
	return exitStatus(result, stderr)
}

func printReport(w io.Writer, programPath string, result emu.StepResult, stats core.Stats) {
	totalCycles := stats.Cycles
	if totalCycles == 0 {
		totalCycles = 1
	}
	execCycles := stats.Cycles - stats.FetchStalls - stats.MemoryStalls

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Program: %s\n", programPath)
	fmt.Fprintf(w, "Exit code: %d\n", result.ExitCode)
	fmt.Fprintf(w, "Total Instructions: %d\n", stats.Instructions)
	fmt.Fprintf(w, "Total Cycles: %d\n", stats.Cycles)
	fmt.Fprintf(w, "CPI: %.2f\n", stats.CPI())
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Breakdown:\n")
	fmt.Fprintf(w, "  Execute:        %6d cycles (%5.1f%%)\n",
		execCycles, 100.0*float64(execCycles)/float64(totalCycles))
	fmt.Fprintf(w, "  Fetch stalls:   %6d cycles (%5.1f%%)\n",
		stats.FetchStalls, 100.0*float64(stats.FetchStalls)/float64(totalCycles))
	fmt.Fprintf(w, "  Memory stalls:  %6d cycles (%5.1f%%)\n",
		stats.MemoryStalls, 100.0*float64(stats.MemoryStalls)/float64(totalCycles))
	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Events:\n")
	fmt.Fprintf(w, "  Loads:          %d\n", stats.Loads)
	fmt.Fprintf(w, "  Stores:         %d\n", stats.Stores)
	fmt.Fprintf(w, "  Branches taken: %d\n", stats.BranchesTaken)
	fmt.Fprintf(w, "  Unsupported:    %d\n", stats.Unsupported)

	printCache(w, "L1I", stats.ICache)
	printCache(w, "L1D", stats.DCache)
	printCache(w, "L2", stats.L2)
}

func printCache(w io.Writer, name string, s *cache.Statistics) {
	if s == nil {
		return
	}
	fmt.Fprintf(w, "  %-4s hits %d, misses %d, hit rate %.1f%%\n",
		name, s.Hits, s.Misses, 100*s.HitRate())
}
