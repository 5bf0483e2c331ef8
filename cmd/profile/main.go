// Package main provides a profiling wrapper for rv32sim to identify
// performance bottlenecks in the emulator and the timing core.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime/pprof"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/sarchlab/rv32sim/asm"
	"github.com/sarchlab/rv32sim/config"
	"github.com/sarchlab/rv32sim/emu"
	"github.com/sarchlab/rv32sim/loader"
	"github.com/sarchlab/rv32sim/timing/cache"
	"github.com/sarchlab/rv32sim/timing/core"
)

var (
	timing      = flag.Bool("timing", false, "Enable timing simulation mode")
	caches      = flag.Bool("caches", false, "Model the default L1 caches in timing mode")
	raw         = flag.Bool("raw", false, "Treat the program as a flat binary image at address 0")
	cpuProfile  = flag.String("cpuprofile", "", "write cpu profile to file")
	memProfile  = flag.String("memprofile", "", "write memory profile to file")
	duration    = flag.Duration("duration", 30*time.Second, "max duration to run (for profiling)")
	instruction = flag.Uint64("max-instr", 1000000, "max instructions to execute (0 = unlimited)")
)

func main() {
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Usage: profile [options] <program.elf|program.s>\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Start CPU profiling if requested
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting CPU profile: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	programPath := flag.Arg(0)

	prog, err := loadProgram(programPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Loaded: %s\n", programPath)
	fmt.Printf("Entry point: 0x%X\n", prog.EntryPoint)

	cfg := config.Default()
	cfg.MaxInstructions = *instruction
	if *caches {
		icache, dcache := cache.DefaultL1IConfig(), cache.DefaultL1DConfig()
		cfg.ICache, cfg.DCache = &icache, &dcache
	}

	e := emu.NewEmulator(append(cfg.EmulatorOptions(logr.Discard()),
		emu.WithStdout(io.Discard))...)
	defer e.Close()

	if err := prog.LoadInto(e.Bus()); err != nil {
		fmt.Fprintf(os.Stderr, "Error loading program: %v\n", err)
		os.Exit(1)
	}
	e.Base().SetPC(prog.EntryPoint)

	start := time.Now()

	// Set timeout
	go func() {
		time.Sleep(*duration)
		fmt.Printf("\nTimeout reached after %v - stopping execution\n", *duration)
		os.Exit(2)
	}()

	var (
		result     emu.StepResult
		instrCount uint64
		cycles     uint64
	)

	if *timing {
		c := core.NewCore(e, cfg.CoreOptions(logr.Discard())...)
		result = c.Run()
		instrCount = c.Stats().Instructions
		cycles = c.Stats().Cycles
	} else {
		result = e.Run()
		instrCount = e.InstructionCount()
	}

	elapsed := time.Since(start)

	// Write memory profile if requested
	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error creating memory profile: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()

		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing memory profile: %v\n", err)
		}
	}

	fmt.Printf("\nProfiling Results:\n")
	fmt.Printf("Exit code: %d\n", result.ExitCode)
	if result.Err != nil {
		fmt.Printf("Stopped: %v\n", result.Err)
	}
	fmt.Printf("Instructions executed: %d\n", instrCount)
	if *timing {
		fmt.Printf("Simulated cycles: %d\n", cycles)
	}
	fmt.Printf("Elapsed time: %v\n", elapsed)
	if instrCount > 0 {
		fmt.Printf("Instructions/second: %.0f\n", float64(instrCount)/elapsed.Seconds())
	}
}

func loadProgram(path string) (*loader.Program, error) {
	switch {
	case strings.EqualFold(filepath.Ext(path), ".s"):
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		words, err := asm.AssembleProgram(string(src), 0)
		if err != nil {
			return nil, err
		}
		return loader.RawProgram(asm.Bytes(words), 0), nil
	case *raw:
		return loader.LoadRaw(path, 0)
	default:
		return loader.Load(path)
	}
}
