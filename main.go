// Package main provides the entry point for rv32sim.
// rv32sim is an RV32IMF_Zicsr instruction-set simulator with an optional
// cycle-approximate timing model built on Akita cache components.
//
// For the full CLI, use: go run ./cmd/rv32sim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("rv32sim - RV32 RISC-V Instruction-Set Simulator")
	fmt.Println("Base ISA RV32I with the M, F and Zicsr extensions")
	fmt.Println("")
	fmt.Println("Usage: rv32sim [options] <program.elf|program.bin|program.s>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -timing    Enable timing simulation mode")
	fmt.Println("  -config    Path to simulator configuration JSON file")
	fmt.Println("  -ext       Extensions to install (m,f,zicsr)")
	fmt.Println("  -v         Log verbosity")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/rv32sim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/rv32sim' instead.")
	}
}
