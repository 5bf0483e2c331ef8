// Command benchmark runs the rv32sim timing benchmark harness.
//
// Usage:
//
//	go run ./cmd/benchmark [flags]
//
// Flags:
//
//	-csv        Output results in CSV format (default: human-readable)
//	-json       Output results in JSON format
//	-core       Run only the three core benchmarks
//	-config     Simulator configuration JSON file
//	-no-icache  Disable instruction cache simulation
//	-no-dcache  Disable data cache simulation
//	-l2         Model a unified L2 cache
//
// Example:
//
//	# Run all benchmarks with human-readable output
//	go run ./cmd/benchmark
//
//	# Output CSV for spreadsheet comparison
//	go run ./cmd/benchmark -csv > results.csv
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/go-logr/logr"

	"github.com/sarchlab/rv32sim/benchmarks"
	"github.com/sarchlab/rv32sim/config"
)

func main() {
	csvOutput := flag.Bool("csv", false, "Output results in CSV format")
	jsonOutput := flag.Bool("json", false, "Output results in JSON format")
	coreOnly := flag.Bool("core", false, "Run only the core benchmarks")
	configPath := flag.String("config", "", "Simulator configuration JSON file")
	noICache := flag.Bool("no-icache", false, "Disable instruction cache simulation")
	noDCache := flag.Bool("no-dcache", false, "Disable data cache simulation")
	l2 := flag.Bool("l2", false, "Model a unified L2 cache")
	verbose := flag.Bool("v", false, "Log each benchmark as it finishes")
	flag.Parse()

	cfg := benchmarks.DefaultConfig()
	cfg.EnableICache = !*noICache
	cfg.EnableDCache = !*noDCache
	cfg.EnableL2 = *l2
	cfg.Output = os.Stdout
	cfg.Verbose = *verbose
	cfg.Log = logr.FromSlogHandler(slog.NewTextHandler(os.Stderr, nil))

	if *configPath != "" {
		sim, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		cfg.Sim = sim
	}

	list := benchmarks.GetMicrobenchmarks()
	if *coreOnly {
		list = benchmarks.GetCoreBenchmarks()
	}

	harness := benchmarks.NewHarness(cfg)
	harness.AddBenchmarks(list)

	if !*csvOutput && !*jsonOutput {
		fmt.Println("rv32sim Timing Benchmark Harness")
		fmt.Println("================================")
		fmt.Printf("I-Cache: %v\n", cfg.EnableICache)
		fmt.Printf("D-Cache: %v\n", cfg.EnableDCache)
		fmt.Printf("L2:      %v\n", cfg.EnableL2)
		fmt.Println("")
	}

	results := harness.RunAll()

	switch {
	case *jsonOutput:
		if err := harness.PrintJSON(results); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case *csvOutput:
		harness.PrintCSV(results)
	default:
		harness.PrintResults(results)
	}

	if err := benchmarks.Validate(list, results); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed:\n%v\n", err)
		os.Exit(1)
	}
}
